//go:build integration

package couch_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/zs0c131y/TrustVault-sub000/internal/domain/model"
	"github.com/zs0c131y/TrustVault-sub000/internal/store/couch"
)

// testCouchURL returns a CouchDB base URL with credentials. TEST_COUCHDB_URL
// points it at an external server; otherwise an ephemeral container is
// started via testcontainers.
func testCouchURL(t *testing.T) string {
	t.Helper()
	if url := os.Getenv("TEST_COUCHDB_URL"); url != "" {
		return url
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "couchdb:3.3",
			Env:          map[string]string{"COUCHDB_USER": "test", "COUCHDB_PASSWORD": "test"},
			ExposedPorts: []string{"5984/tcp"},
			WaitingFor:   wait.ForListeningPort("5984/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5984")
	require.NoError(t, err)
	return fmt.Sprintf("http://test:test@%s:%s", host, port.Port())
}

func testEntityRepo(t *testing.T) *couch.EntityRepo {
	t.Helper()
	dbName := "entities_" + uuid.NewString()[:8]

	client, err := couch.Connect(context.Background(), testCouchURL(t), dbName)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := couch.NewEntityRepo(client, dbName, logger)
	require.NoError(t, repo.EnsureIndexes(context.Background()))
	return repo
}

func seedProperty(domainID, identity string) *model.SyncedEntity {
	now := time.Now().UTC().Truncate(time.Second)
	e := &model.SyncedEntity{
		Kind:            model.KindProperty,
		DomainID:        domainID,
		CurrentIdentity: identity,
		Owner:           "alice@example.com",
		RegisteredAt:    now,
		LastModifiedAt:  now,
		Property: &model.PropertyDetails{
			Name:     "Villa",
			Locality: "Whitefield",
		},
	}
	e.MergeIdentity(identity, nil, now)
	return e
}

func TestEntityRepo_InsertAndFind(t *testing.T) {
	repo := testEntityRepo(t)
	ctx := context.Background()

	identity := "0x00000000000000000000000000000000000000a1"
	entity := seedProperty("P1", identity)
	require.NoError(t, repo.Insert(ctx, entity))
	assert.NotEmpty(t, entity.Rev)

	// By domain id.
	found, err := repo.FindByDomainOrIdentity(ctx, model.KindProperty, "P1", "0xunknown")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "P1", found.DomainID)
	assert.Equal(t, identity, found.CurrentIdentity)

	// By identity in history, wrong domain id.
	found, err = repo.FindByDomainOrIdentity(ctx, model.KindProperty, "other", identity)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "P1", found.DomainID)

	// Absent entity is (nil, nil), not an error.
	found, err = repo.FindByDomainOrIdentity(ctx, model.KindProperty, "missing", "0xmissing")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestEntityRepo_UpsertStaleRevConflicts(t *testing.T) {
	repo := testEntityRepo(t)
	ctx := context.Background()

	entity := seedProperty("P2", "0x00000000000000000000000000000000000000a2")
	require.NoError(t, repo.Insert(ctx, entity))

	fresh, err := repo.FindByDomainOrIdentity(ctx, model.KindProperty, "P2", "")
	require.NoError(t, err)
	require.NotNil(t, fresh)

	fresh.Owner = "bob@example.com"
	require.NoError(t, repo.Upsert(ctx, fresh))

	// A writer holding the old revision loses the race.
	entity.Owner = "mallory@example.com"
	err = repo.Upsert(ctx, entity)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestEntityRepo_ListAllBothKinds(t *testing.T) {
	repo := testEntityRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, seedProperty("P3", "0x00000000000000000000000000000000000000a3")))

	now := time.Now().UTC().Truncate(time.Second)
	doc := &model.SyncedEntity{
		Kind:            model.KindDocumentVerification,
		DomainID:        "D1",
		CurrentIdentity: "0x00000000000000000000000000000000000000d1",
		RegisteredAt:    now,
		LastModifiedAt:  now,
		Document:        &model.DocumentDetails{DocumentType: "deed", UserHandle: "alice@example.com"},
	}
	doc.MergeIdentity(doc.CurrentIdentity, nil, now)
	require.NoError(t, repo.Insert(ctx, doc))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestEntityRepo_EnsureIndexesIdempotent(t *testing.T) {
	repo := testEntityRepo(t)

	// Repo setup already created them once.
	require.NoError(t, repo.EnsureIndexes(context.Background()))
}

func TestDocumentDir_SetIdentity(t *testing.T) {
	dbName := "documents_" + uuid.NewString()[:8]
	client, err := couch.Connect(context.Background(), testCouchURL(t), dbName)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	dir := couch.NewDocumentDir(client, dbName)
	ctx := context.Background()

	require.NoError(t, dir.SetIdentity(ctx, "D2", "0x00000000000000000000000000000000000000d2"))
	// Second write revises the same record.
	require.NoError(t, dir.SetIdentity(ctx, "D2", "0x00000000000000000000000000000000000000d3"))
}
