package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zs0c131y/TrustVault-sub000/internal/domain/model"
	"github.com/zs0c131y/TrustVault-sub000/internal/identity"
	"github.com/zs0c131y/TrustVault-sub000/internal/metrics"
	"github.com/zs0c131y/TrustVault-sub000/internal/store"
)

// SyncDocument mints a fresh identity for a document-verification request
// and records the pre-chain submission off-chain. The minted identity is
// returned; nothing has touched the ledger yet.
func (s *Service) SyncDocument(ctx context.Context, in DocumentInput) (string, error) {
	start := s.now()
	id, err := s.syncDocument(ctx, in)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.SyncRequestsTotal.WithLabelValues(string(model.KindDocumentVerification), outcome).Inc()
	metrics.SyncDuration.WithLabelValues(string(model.KindDocumentVerification)).Observe(time.Since(start).Seconds())
	return id, err
}

func (s *Service) syncDocument(ctx context.Context, in DocumentInput) (string, error) {
	if err := s.validate.Struct(in); err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrValidation, err)
	}

	// Time-seeded derivation: every request mints a new identity.
	minted, err := identity.ForDocument(in.DomainID, in.DocumentType)
	if err != nil {
		return "", err
	}

	owner := in.UserHandle
	addr, err := s.wallets.AddressForHandle(ctx, in.UserHandle)
	switch {
	case err == nil:
		owner = addr
	case errors.Is(err, store.ErrWalletNotFound):
		// Keep the handle itself so restoration can attempt resolution
		// later, once a wallet is on file.
		s.logger.Debug("no wallet for handle, keeping handle as owner", "handle", in.UserHandle)
	default:
		return "", fmt.Errorf("%w: wallet lookup for %s: %v", model.ErrStoreWrite, in.UserHandle, err)
	}

	if err := s.documents.SetIdentity(ctx, in.DomainID, minted); err != nil {
		return "", err
	}

	now := s.now().UTC()
	entity := &model.SyncedEntity{
		Kind:           model.KindDocumentVerification,
		DomainID:       in.DomainID,
		Owner:          owner,
		Verified:       false,
		RegisteredAt:   now,
		LastModifiedAt: now,
		Document: &model.DocumentDetails{
			DocumentType: in.DocumentType,
			UserHandle:   in.UserHandle,
		},
	}
	entity.MergeIdentity(minted, nil, now)
	// The submission is a logical, pre-chain event: no hash, no block.
	entity.AppendTransaction(model.TransactionRecord{
		Kind:       model.TxSubmission,
		ObservedAt: now,
	})

	if err := s.entities.Insert(ctx, entity); err != nil {
		return "", err
	}

	if err := s.entities.EnsureIndexes(ctx); err != nil {
		return "", err
	}

	s.logger.Info("document submission recorded",
		"domain_id", in.DomainID,
		"identity", minted,
		"owner", owner,
	)
	return minted, nil
}
