// Package couch implements the off-chain store interfaces on CouchDB via
// kivik. Entities are full-replace JSON documents keyed by kind-scoped
// domain id; CouchDB revisions provide the optimistic concurrency check.
package couch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-kivik/kivik/v4"

	"github.com/zs0c131y/TrustVault-sub000/internal/domain/model"
	"github.com/zs0c131y/TrustVault-sub000/internal/metrics"
	"github.com/zs0c131y/TrustVault-sub000/internal/store"
)

type EntityRepo struct {
	client *kivik.Client
	dbName string
	logger *slog.Logger
}

var _ store.EntityRepository = (*EntityRepo)(nil)

func NewEntityRepo(client *kivik.Client, dbName string, logger *slog.Logger) *EntityRepo {
	return &EntityRepo{
		client: client,
		dbName: dbName,
		logger: logger.With("component", "entity_repo"),
	}
}

func (r *EntityRepo) FindByDomainOrIdentity(ctx context.Context, kind model.EntityKind, domainID, identity string) (*model.SyncedEntity, error) {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"kind": string(kind),
			"$or": []map[string]interface{}{
				{"domainId": domainID},
				{"identityHistory": map[string]interface{}{
					"$elemMatch": map[string]interface{}{"identity": identity},
				}},
			},
		},
		"limit": 1,
	}

	rows := db.Find(ctx, query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find entity %s/%s: %w", kind, domainID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}

	var entity model.SyncedEntity
	if err := rows.ScanDoc(&entity); err != nil {
		return nil, fmt.Errorf("scan entity %s/%s: %w", kind, domainID, err)
	}
	return &entity, nil
}

func (r *EntityRepo) ListAll(ctx context.Context) ([]model.SyncedEntity, error) {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"kind": map[string]interface{}{
				"$in": []string{string(model.KindProperty), string(model.KindDocumentVerification)},
			},
		},
	}

	rows := db.Find(ctx, query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var entities []model.SyncedEntity
	for rows.Next() {
		var e model.SyncedEntity
		if err := rows.ScanDoc(&e); err != nil {
			r.logger.Warn("skipping undecodable entity document", "error", err)
			continue
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func (r *EntityRepo) Insert(ctx context.Context, e *model.SyncedEntity) error {
	db := r.client.DB(r.dbName)

	e.ID = e.DocID()
	rev, err := db.Put(ctx, e.ID, e)
	if err != nil {
		metrics.StoreOpsTotal.WithLabelValues("insert", "error").Inc()
		if kivik.HTTPStatus(err) == http.StatusConflict {
			return fmt.Errorf("%w: insert entity %s: %w", model.ErrStoreWrite, e.ID, model.ErrConflict)
		}
		return fmt.Errorf("%w: insert entity %s: %v", model.ErrStoreWrite, e.ID, err)
	}
	e.Rev = rev

	metrics.StoreOpsTotal.WithLabelValues("insert", "ok").Inc()
	return nil
}

func (r *EntityRepo) Upsert(ctx context.Context, e *model.SyncedEntity) error {
	db := r.client.DB(r.dbName)

	e.ID = e.DocID()
	rev, err := db.Put(ctx, e.ID, e)
	if err != nil {
		metrics.StoreOpsTotal.WithLabelValues("upsert", "error").Inc()
		if kivik.HTTPStatus(err) == http.StatusConflict {
			// The entity changed between read and write; the caller retries
			// the whole read-merge-write sequence.
			return fmt.Errorf("%w: upsert entity %s: %w", model.ErrStoreWrite, e.ID, model.ErrConflict)
		}
		return fmt.Errorf("%w: upsert entity %s: %v", model.ErrStoreWrite, e.ID, err)
	}
	e.Rev = rev

	metrics.StoreOpsTotal.WithLabelValues("upsert", "ok").Inc()
	return nil
}

// EnsureIndexes creates the Mango indexes backing the selector queries.
// CouchDB treats repeated creation of an identical index as a no-op.
func (r *EntityRepo) EnsureIndexes(ctx context.Context) error {
	db := r.client.DB(r.dbName)

	indexes := []struct {
		name   string
		fields []interface{}
	}{
		{"idx-kind-domain", []interface{}{"kind", "domainId"}},
		{"idx-current-identity", []interface{}{"currentIdentity"}},
		{"idx-identity-history", []interface{}{"identityHistory.identity"}},
		{"idx-tx-hash", []interface{}{"transactions.txHash"}},
	}

	for _, idx := range indexes {
		err := db.CreateIndex(ctx, "", idx.name, map[string]interface{}{
			"fields": idx.fields,
		})
		if err != nil {
			return fmt.Errorf("%w: create index %s: %v", model.ErrStoreWrite, idx.name, err)
		}
	}
	return nil
}
