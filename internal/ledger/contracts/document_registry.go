package contracts

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zs0c131y/TrustVault-sub000/internal/domain/model"
	"github.com/zs0c131y/TrustVault-sub000/internal/ledger/rpc"
)

// DocumentRegistry binds the on-chain document verification registry.
type DocumentRegistry struct {
	client rpc.LedgerClient
	addr   string
	signer string
	logger *slog.Logger
}

func NewDocumentRegistry(client rpc.LedgerClient, contractAddr, signer string, logger *slog.Logger) *DocumentRegistry {
	return &DocumentRegistry{
		client: client,
		addr:   contractAddr,
		signer: signer,
		logger: logger.With("component", "document_registry"),
	}
}

// LookupKey computes the on-chain record key for a document: keccak256 of
// the identity bytes concatenated with the domain id.
func LookupKey(identity, domainID string) ([32]byte, error) {
	var key [32]byte
	raw := strings.TrimPrefix(strings.TrimSpace(identity), "0x")
	idBytes, err := hex.DecodeString(raw)
	if err != nil || len(idBytes) != 20 {
		return key, fmt.Errorf("%w: invalid identity %q", model.ErrValidation, identity)
	}
	copy(key[:], keccak(append(idBytes, []byte(domainID)...)))
	return key, nil
}

// Exists probes the registry for a record at key. Revert or empty return
// means absent.
func (r *DocumentRegistry) Exists(ctx context.Context, key [32]byte) (bool, error) {
	result, err := r.client.Call(ctx, rpc.CallMsg{
		To:   r.addr,
		Data: Pack("getDocument(bytes32)", Bytes32(key)),
	})
	if err != nil {
		if isRevert(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: get document: %v", model.ErrLedgerCall, err)
	}
	return !isEmptyReturn(result), nil
}

// Verify records a document verification on-chain and blocks until the
// transaction is mined.
func (r *DocumentRegistry) Verify(ctx context.Context, identity, documentType, owner string, expiry uint64, extra string) (*rpc.TransactionReceipt, error) {
	idArg, err := Address(identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}

	data := Pack("verifyDocument(address,string,string,uint256,string)",
		idArg, String(documentType), String(owner), Uint64(expiry), String(extra))

	hash, err := r.client.SendTransaction(ctx, rpc.CallMsg{From: r.signer, To: r.addr, Data: data})
	if err != nil {
		return nil, fmt.Errorf("%w: verify document %s: %v", model.ErrLedgerCall, identity, err)
	}

	receipt, err := r.client.WaitForReceipt(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("%w: verify document %s: %v", model.ErrLedgerCall, identity, err)
	}
	if !receipt.Succeeded() {
		return nil, fmt.Errorf("%w: verify document %s: tx %s reverted", model.ErrLedgerCall, identity, hash)
	}

	r.logger.Debug("document verification confirmed", "identity", identity, "tx_hash", hash)
	return receipt, nil
}
