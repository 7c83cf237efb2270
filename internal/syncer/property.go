package syncer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zs0c131y/TrustVault-sub000/internal/domain/model"
	"github.com/zs0c131y/TrustVault-sub000/internal/identity"
	"github.com/zs0c131y/TrustVault-sub000/internal/ledger/rpc"
	"github.com/zs0c131y/TrustVault-sub000/internal/metrics"
)

// SyncProperty merges a ledger-confirmed transaction for a property into its
// off-chain record. The transaction's from/to/blockNumber/observedAt come
// from the receipt and block, never from caller input.
func (s *Service) SyncProperty(ctx context.Context, in PropertyInput, txHash string) (*model.SyncedEntity, error) {
	start := s.now()
	entity, err := s.syncProperty(ctx, in, txHash)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.SyncRequestsTotal.WithLabelValues(string(model.KindProperty), outcome).Inc()
	metrics.SyncDuration.WithLabelValues(string(model.KindProperty)).Observe(time.Since(start).Seconds())
	return entity, err
}

func (s *Service) syncProperty(ctx context.Context, in PropertyInput, txHash string) (*model.SyncedEntity, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	if !identity.IsAddress(in.Identity) {
		return nil, fmt.Errorf("%w: identity %q is not a valid address", model.ErrValidation, in.Identity)
	}
	if strings.TrimSpace(txHash) == "" {
		return nil, fmt.Errorf("%w: txHash is required", model.ErrValidation)
	}

	receipt, err := s.ledger.GetTransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("%w: receipt for %s: %v", model.ErrLedgerCall, txHash, err)
	}
	if receipt == nil {
		return nil, fmt.Errorf("%w: no receipt for %s", model.ErrLedgerRecordNotFound, txHash)
	}

	blockNumber, err := rpc.ParseHexInt64(receipt.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: receipt block number for %s: %v", model.ErrLedgerCall, txHash, err)
	}

	block, err := s.ledger.GetBlockByNumber(ctx, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: block %d: %v", model.ErrLedgerCall, blockNumber, err)
	}
	if block == nil {
		return nil, fmt.Errorf("%w: no block %d for %s", model.ErrLedgerRecordNotFound, blockNumber, txHash)
	}

	blockTime, err := rpc.ParseHexInt64(block.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: block %d timestamp: %v", model.ErrLedgerCall, blockNumber, err)
	}
	observedAt := time.Unix(blockTime, 0).UTC()

	entity, err := s.entities.FindByDomainOrIdentity(ctx, model.KindProperty, in.DomainID, in.Identity)
	if err != nil {
		return nil, fmt.Errorf("%w: load entity %s: %v", model.ErrStoreWrite, in.DomainID, err)
	}

	txKind := model.TxUpdate
	if entity == nil {
		txKind = model.TxRegistration
		entity = &model.SyncedEntity{
			Kind:         model.KindProperty,
			DomainID:     in.DomainID,
			RegisteredAt: observedAt,
		}
	}

	entity.MergeIdentity(in.Identity, &txHash, observedAt)
	entity.Owner = in.Owner
	entity.Verified = in.Verified
	entity.Property = &model.PropertyDetails{
		Name:         in.Name,
		Locality:     in.Locality,
		PropertyType: in.PropertyType,
	}
	if entity.LastModifiedAt.Before(observedAt) {
		entity.LastModifiedAt = observedAt
	}

	// Re-syncing an already recorded transaction merges identity state but
	// appends nothing: the log stays deduplicated by hash.
	if !entity.HasTransaction(txHash) {
		blockStr := strconv.FormatInt(blockNumber, 10)
		entity.AppendTransaction(model.TransactionRecord{
			Kind:        txKind,
			From:        receipt.From,
			To:          receipt.To,
			TxHash:      &txHash,
			BlockNumber: &blockStr,
			ObservedAt:  observedAt,
		})
	}

	if err := s.entities.Upsert(ctx, entity); err != nil {
		return nil, err
	}

	s.logger.Info("property synced",
		"domain_id", in.DomainID,
		"identity", in.Identity,
		"tx_hash", txHash,
		"tx_kind", txKind,
	)
	return entity, nil
}
