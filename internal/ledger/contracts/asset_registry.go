// Package contracts binds the two on-chain registries (assets and
// documents) over the JSON-RPC client. Calldata is packed by hand; the
// registries' internals stay opaque to the sync core.
package contracts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zs0c131y/TrustVault-sub000/internal/domain/model"
	"github.com/zs0c131y/TrustVault-sub000/internal/ledger/rpc"
)

// AssetRegistry binds the on-chain property registry contract.
type AssetRegistry struct {
	client rpc.LedgerClient
	addr   string
	signer string
	logger *slog.Logger
}

func NewAssetRegistry(client rpc.LedgerClient, contractAddr, signer string, logger *slog.Logger) *AssetRegistry {
	return &AssetRegistry{
		client: client,
		addr:   contractAddr,
		signer: signer,
		logger: logger.With("component", "asset_registry"),
	}
}

// isRevert reports whether an eth_call failure means "record absent" rather
// than a transport problem.
func isRevert(err error) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "revert") || strings.Contains(lower, "invalid opcode")
}

// Exists probes the registry for a property at identity. A revert or empty
// return means the record is absent; transport failures are reported as
// errors.
func (r *AssetRegistry) Exists(ctx context.Context, identity string) (bool, error) {
	idArg, err := Address(identity)
	if err != nil {
		return false, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}

	result, err := r.client.Call(ctx, rpc.CallMsg{
		To:   r.addr,
		Data: Pack("getProperty(address)", idArg),
	})
	if err != nil {
		if isRevert(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: get property %s: %v", model.ErrLedgerCall, identity, err)
	}
	return !isEmptyReturn(result), nil
}

// OwnerOf returns the current on-chain owner of identity.
func (r *AssetRegistry) OwnerOf(ctx context.Context, identity string) (string, error) {
	idArg, err := Address(identity)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrValidation, err)
	}

	result, err := r.client.Call(ctx, rpc.CallMsg{
		To:   r.addr,
		Data: Pack("ownerOf(address)", idArg),
	})
	if err != nil {
		return "", fmt.Errorf("%w: owner of %s: %v", model.ErrLedgerCall, identity, err)
	}

	owner, err := DecodeAddress(result)
	if err != nil {
		return "", fmt.Errorf("%w: owner of %s: %v", model.ErrLedgerCall, identity, err)
	}
	return owner, nil
}

// Register re-creates a property on-chain from its stored attributes and
// blocks until the transaction is mined. Returns the receipt of the
// confirmed transaction.
func (r *AssetRegistry) Register(ctx context.Context, domainID, name, locality, propertyType string) (*rpc.TransactionReceipt, error) {
	data := Pack("registerProperty(string,string,string,string)",
		String(domainID), String(name), String(locality), String(propertyType))

	return r.send(ctx, data, "register property "+domainID)
}

// TransferOwnership moves identity's on-chain ownership to newOwner and
// blocks until the transaction is mined.
func (r *AssetRegistry) TransferOwnership(ctx context.Context, identity, newOwner string) (*rpc.TransactionReceipt, error) {
	idArg, err := Address(identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	ownerArg, err := Address(newOwner)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}

	data := Pack("transferOwnership(address,address)", idArg, ownerArg)
	return r.send(ctx, data, "transfer "+identity)
}

// Verify marks identity as verified on-chain.
func (r *AssetRegistry) Verify(ctx context.Context, identity string) (*rpc.TransactionReceipt, error) {
	idArg, err := Address(identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	return r.send(ctx, Pack("verifyProperty(address)", idArg), "verify "+identity)
}

func (r *AssetRegistry) send(ctx context.Context, data, what string) (*rpc.TransactionReceipt, error) {
	hash, err := r.client.SendTransaction(ctx, rpc.CallMsg{From: r.signer, To: r.addr, Data: data})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrLedgerCall, what, err)
	}

	receipt, err := r.client.WaitForReceipt(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrLedgerCall, what, err)
	}
	if !receipt.Succeeded() {
		return nil, fmt.Errorf("%w: %s: tx %s reverted", model.ErrLedgerCall, what, hash)
	}

	r.logger.Debug("transaction confirmed", "what", what, "tx_hash", hash)
	return receipt, nil
}
