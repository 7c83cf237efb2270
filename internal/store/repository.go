package store

import (
	"context"
	"errors"

	"github.com/zs0c131y/TrustVault-sub000/internal/domain/model"
)

// ErrWalletNotFound keeps wallet lookup misses consistent across backends.
var ErrWalletNotFound = errors.New("no wallet on file")

// EntityRepository provides access to the off-chain synced entity records.
// Implementations must treat the transaction log as append-only and never
// delete an entity.
type EntityRepository interface {
	// FindByDomainOrIdentity returns the entity of the given kind whose
	// domain id matches, or whose identity history contains identity.
	// Returns (nil, nil) when no such entity exists.
	FindByDomainOrIdentity(ctx context.Context, kind model.EntityKind, domainID, identity string) (*model.SyncedEntity, error)

	// ListAll enumerates every synced entity of both kinds.
	ListAll(ctx context.Context) ([]model.SyncedEntity, error)

	// Insert stores a brand-new entity.
	Insert(ctx context.Context, e *model.SyncedEntity) error

	// Upsert replaces the full document keyed by the entity's domain id.
	// A stale revision fails with model.ErrConflict.
	Upsert(ctx context.Context, e *model.SyncedEntity) error

	// EnsureIndexes creates the secondary lookup indexes. Safe to call
	// repeatedly.
	EnsureIndexes(ctx context.Context) error
}

// WalletDirectory resolves off-chain user handles to registered chain
// addresses.
type WalletDirectory interface {
	// AddressForHandle returns the chain address registered for handle, or
	// ErrWalletNotFound.
	AddressForHandle(ctx context.Context, handle string) (string, error)
}

// DocumentDirectory is the collaborator-owned document domain record store;
// the sync core only pushes freshly minted identities into it.
type DocumentDirectory interface {
	SetIdentity(ctx context.Context, domainID, identity string) error
}
