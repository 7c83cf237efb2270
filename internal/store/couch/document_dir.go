package couch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-kivik/kivik/v4"

	"github.com/zs0c131y/TrustVault-sub000/internal/domain/model"
	"github.com/zs0c131y/TrustVault-sub000/internal/store"
)

// DocumentDir updates the collaborator-owned document records with freshly
// minted chain identities. The documents database belongs to the upload
// pipeline; this side only touches the identity fields.
type DocumentDir struct {
	client *kivik.Client
	dbName string
}

var _ store.DocumentDirectory = (*DocumentDir)(nil)

func NewDocumentDir(client *kivik.Client, dbName string) *DocumentDir {
	return &DocumentDir{client: client, dbName: dbName}
}

func (d *DocumentDir) SetIdentity(ctx context.Context, domainID, identity string) error {
	db := d.client.DB(d.dbName)
	docID := "document:" + domainID

	var doc map[string]interface{}
	err := db.Get(ctx, docID).ScanDoc(&doc)
	switch {
	case err == nil:
	case kivik.HTTPStatus(err) == http.StatusNotFound:
		doc = map[string]interface{}{"domainId": domainID}
	default:
		return fmt.Errorf("%w: get document %s: %v", model.ErrStoreWrite, docID, err)
	}

	doc["currentIdentity"] = identity
	doc["identityUpdatedAt"] = time.Now().UTC().Format(time.RFC3339)

	if _, err := db.Put(ctx, docID, doc); err != nil {
		if kivik.HTTPStatus(err) == http.StatusConflict {
			return fmt.Errorf("%w: set identity on %s: %w", model.ErrStoreWrite, docID, model.ErrConflict)
		}
		return fmt.Errorf("%w: set identity on %s: %v", model.ErrStoreWrite, docID, err)
	}
	return nil
}
