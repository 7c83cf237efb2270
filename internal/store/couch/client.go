package couch

import (
	"context"
	"fmt"

	"github.com/go-kivik/kivik/v4"
	_ "github.com/go-kivik/kivik/v4/couchdb"
)

// Connect opens a CouchDB client and makes sure the named databases exist.
func Connect(ctx context.Context, url string, dbNames ...string) (*kivik.Client, error) {
	client, err := kivik.New("couch", url)
	if err != nil {
		return nil, fmt.Errorf("connect couchdb: %w", err)
	}

	for _, name := range dbNames {
		exists, err := client.DBExists(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("check database %s: %w", name, err)
		}
		if !exists {
			if err := client.CreateDB(ctx, name); err != nil {
				return nil, fmt.Errorf("create database %s: %w", name, err)
			}
		}
	}
	return client, nil
}
