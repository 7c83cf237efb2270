// Package syncer merges ledger-observed transactions into the off-chain
// audit records. Both operations fail fast: any validation or ledger error
// is raised to the caller, which owns retry policy for the underlying
// transaction submission.
package syncer

import (
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/zs0c131y/TrustVault-sub000/internal/ledger/rpc"
	"github.com/zs0c131y/TrustVault-sub000/internal/store"
)

// Service performs property and document synchronization. Constructed once
// at startup; all dependencies are injected.
type Service struct {
	entities  store.EntityRepository
	wallets   store.WalletDirectory
	documents store.DocumentDirectory
	ledger    rpc.LedgerClient
	validate  *validator.Validate
	logger    *slog.Logger

	now func() time.Time
}

func NewService(
	entities store.EntityRepository,
	wallets store.WalletDirectory,
	documents store.DocumentDirectory,
	ledger rpc.LedgerClient,
	logger *slog.Logger,
) *Service {
	return &Service{
		entities:  entities,
		wallets:   wallets,
		documents: documents,
		ledger:    ledger,
		validate:  validator.New(),
		logger:    logger.With("component", "syncer"),
		now:       time.Now,
	}
}

// PropertyInput is the caller-supplied view of a property registration that
// was already confirmed on the ledger. Transaction metadata is never taken
// from here; it is re-read from the receipt.
type PropertyInput struct {
	DomainID     string `json:"domainId" validate:"required"`
	Identity     string `json:"identity" validate:"required"`
	Name         string `json:"name" validate:"required"`
	Locality     string `json:"locality" validate:"required"`
	PropertyType string `json:"propertyType"`
	Owner        string `json:"owner"`
	Verified     bool   `json:"verified"`
}

// DocumentInput describes an inbound document-verification request.
type DocumentInput struct {
	DomainID     string `json:"domainId" validate:"required"`
	UserHandle   string `json:"userHandle" validate:"required"`
	DocumentType string `json:"documentType" validate:"required"`
}
