package syncer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zs0c131y/TrustVault-sub000/internal/domain/model"
	"github.com/zs0c131y/TrustVault-sub000/internal/identity"
)

func deedInput() DocumentInput {
	return DocumentInput{
		DomainID:     "DOC-42",
		UserHandle:   "alice@example.com",
		DocumentType: "deed",
	}
}

func TestSyncDocumentMintsIdentityAndRecordsSubmission(t *testing.T) {
	repo := newMemEntityRepo()
	docs := &stubDocumentDir{}
	wallets := &stubWallets{addrs: map[string]string{
		"alice@example.com": "0x0000000000000000000000000000000000000007",
	}}
	svc := NewService(repo, wallets, docs, &stubLedger{}, testLogger())

	minted, err := svc.SyncDocument(context.Background(), deedInput())
	require.NoError(t, err)
	assert.True(t, identity.IsAddress(minted))

	// Collaborator document record received the minted identity.
	assert.Equal(t, minted, docs.identities["DOC-42"])

	entity := repo.byDocID["document_verification:DOC-42"]
	require.NotNil(t, entity)
	assert.Equal(t, model.KindDocumentVerification, entity.Kind)
	assert.Equal(t, minted, entity.CurrentIdentity)
	assert.Equal(t, "0x0000000000000000000000000000000000000007", entity.Owner)
	assert.False(t, entity.Verified)
	require.NotNil(t, entity.Document)
	assert.Equal(t, "deed", entity.Document.DocumentType)
	assert.Equal(t, "alice@example.com", entity.Document.UserHandle)

	require.Len(t, entity.Transactions, 1)
	rec := entity.Transactions[0]
	assert.Equal(t, model.TxSubmission, rec.Kind)
	assert.Nil(t, rec.TxHash)
	assert.Nil(t, rec.BlockNumber)

	assert.Equal(t, 1, repo.insertCalls)
	assert.Equal(t, 1, repo.indexCalls)
}

func TestSyncDocumentTwiceMintsDistinctIdentities(t *testing.T) {
	repo := newMemEntityRepo()
	svc := NewService(repo, &stubWallets{}, &stubDocumentDir{}, &stubLedger{}, testLogger())

	first, err := svc.SyncDocument(context.Background(), deedInput())
	require.NoError(t, err)
	second, err := svc.SyncDocument(context.Background(), deedInput())
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestSyncDocumentKeepsHandleWhenNoWalletOnFile(t *testing.T) {
	repo := newMemEntityRepo()
	svc := NewService(repo, &stubWallets{}, &stubDocumentDir{}, &stubLedger{}, testLogger())

	_, err := svc.SyncDocument(context.Background(), deedInput())
	require.NoError(t, err)

	entity := repo.byDocID["document_verification:DOC-42"]
	require.NotNil(t, entity)
	assert.Equal(t, "alice@example.com", entity.Owner)
}

func TestSyncDocumentWalletDirectoryFailure(t *testing.T) {
	repo := newMemEntityRepo()
	wallets := &stubWallets{err: errors.New("users db unreachable")}
	svc := NewService(repo, wallets, &stubDocumentDir{}, &stubLedger{}, testLogger())

	_, err := svc.SyncDocument(context.Background(), deedInput())
	assert.ErrorIs(t, err, model.ErrStoreWrite)
	assert.Equal(t, 0, repo.insertCalls)
}

func TestSyncDocumentValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DocumentInput)
	}{
		{"missing domain id", func(in *DocumentInput) { in.DomainID = "" }},
		{"missing handle", func(in *DocumentInput) { in.UserHandle = "" }},
		{"missing document type", func(in *DocumentInput) { in.DocumentType = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemEntityRepo()
			docs := &stubDocumentDir{}
			svc := NewService(repo, &stubWallets{}, docs, &stubLedger{}, testLogger())

			in := deedInput()
			tt.mutate(&in)
			_, err := svc.SyncDocument(context.Background(), in)
			assert.ErrorIs(t, err, model.ErrValidation)
			assert.Equal(t, 0, repo.insertCalls)
			assert.Empty(t, docs.identities)
		})
	}
}

func TestSyncDocumentDocumentDirectoryFailure(t *testing.T) {
	repo := newMemEntityRepo()
	docs := &stubDocumentDir{err: errors.New("conflict")}
	svc := NewService(repo, &stubWallets{}, docs, &stubLedger{}, testLogger())

	_, err := svc.SyncDocument(context.Background(), deedInput())
	require.Error(t, err)
	assert.Equal(t, 0, repo.insertCalls)
}
