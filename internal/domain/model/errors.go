package model

import "errors"

// Error taxonomy for the sync core. Components wrap these sentinels with
// fmt.Errorf("...: %w", ...) so callers branch with errors.Is.
var (
	// ErrValidation marks a missing or malformed required field. No write
	// has been attempted when this is returned.
	ErrValidation = errors.New("validation failed")

	// ErrLedgerRecordNotFound marks a receipt or block that does not exist
	// for a supplied transaction hash.
	ErrLedgerRecordNotFound = errors.New("ledger record not found")

	// ErrLedgerCall marks an RPC transport failure or a contract call
	// revert.
	ErrLedgerCall = errors.New("ledger call failed")

	// ErrStoreWrite marks a persistence layer failure.
	ErrStoreWrite = errors.New("store write failed")

	// ErrConflict marks a lost optimistic-concurrency race: the entity
	// revision changed between read and write. Callers retry the whole
	// read-merge-write sequence.
	ErrConflict = errors.New("revision conflict")

	// ErrIdentityResolution marks a missing wallet for an owner handle.
	// During restoration this is a skip, not a hard failure.
	ErrIdentityResolution = errors.New("identity resolution failed")
)
