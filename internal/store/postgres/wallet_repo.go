package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/zs0c131y/TrustVault-sub000/internal/store"
)

// WalletRepo resolves user handles (email-like) to their registered chain
// addresses. The users table is written by the account service; this side
// only reads.
type WalletRepo struct {
	db *DB
}

var _ store.WalletDirectory = (*WalletRepo)(nil)

func NewWalletRepo(db *DB) *WalletRepo {
	return &WalletRepo{db: db}
}

func (r *WalletRepo) AddressForHandle(ctx context.Context, handle string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var address sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT wallet_address
		FROM users
		WHERE lower(email) = lower($1)
	`, strings.TrimSpace(handle)).Scan(&address)
	if err == sql.ErrNoRows {
		return "", store.ErrWalletNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup wallet for %s: %w", handle, err)
	}
	if !address.Valid || address.String == "" {
		return "", store.ErrWalletNotFound
	}
	return address.String, nil
}
