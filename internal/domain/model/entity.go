package model

import (
	"strings"
	"time"
)

// EntityKind discriminates the two tracked entity kinds.
type EntityKind string

const (
	KindProperty             EntityKind = "property"
	KindDocumentVerification EntityKind = "document_verification"
)

// TxKind classifies a transaction log entry.
type TxKind string

const (
	TxRegistration TxKind = "registration"
	TxUpdate       TxKind = "update"
	TxVerification TxKind = "verification"
	TxTransfer     TxKind = "transfer"
	TxSubmission   TxKind = "submission"
	TxRestoration  TxKind = "restoration"
)

// IdentityRef is one entry of an entity's identity history, unique by
// identity value within a single entity.
type IdentityRef struct {
	Identity   string    `json:"identity"`
	TxHash     *string   `json:"txHash,omitempty"`
	ObservedAt time.Time `json:"observedAt"`
}

// TransactionRecord is one entry of the append-only transaction log.
// TxHash and BlockNumber are nil for pre-chain submissions. BlockNumber is
// kept as a decimal string so values survive JSON round-trips unchanged.
type TransactionRecord struct {
	Kind        TxKind    `json:"kind"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to,omitempty"`
	TxHash      *string   `json:"txHash,omitempty"`
	BlockNumber *string   `json:"blockNumber,omitempty"`
	ObservedAt  time.Time `json:"observedAt"`
}

// PropertyDetails carries the attributes of a registrable property.
type PropertyDetails struct {
	Name         string `json:"name"`
	Locality     string `json:"locality"`
	PropertyType string `json:"propertyType,omitempty"`
}

// DocumentDetails carries the attributes of a verification request.
type DocumentDetails struct {
	DocumentType string `json:"documentType"`
	UserHandle   string `json:"userHandle"`
}

// SyncedEntity is the off-chain record for one tracked entity. It is a
// tagged union discriminated by Kind: exactly one of Property and Document
// is non-nil. The transaction log is the permanent audit trail and the
// ground truth for ledger restoration; entities are never deleted.
type SyncedEntity struct {
	ID  string `json:"_id,omitempty"`
	Rev string `json:"_rev,omitempty"`

	Kind            EntityKind          `json:"kind"`
	DomainID        string              `json:"domainId"`
	CurrentIdentity string              `json:"currentIdentity"`
	IdentityHistory []IdentityRef       `json:"identityHistory"`
	Owner           string              `json:"owner"`
	Verified        bool                `json:"verified"`
	Transactions    []TransactionRecord `json:"transactions"`

	Property *PropertyDetails `json:"property,omitempty"`
	Document *DocumentDetails `json:"document,omitempty"`

	RegisteredAt   time.Time `json:"registeredAt"`
	LastModifiedAt time.Time `json:"lastModifiedAt"`
}

// DocID returns the store document id for the entity, namespaced by kind so
// property and document ids never collide.
func (e *SyncedEntity) DocID() string {
	return string(e.Kind) + ":" + e.DomainID
}

// identityEqual compares chain identities ignoring hex casing.
func identityEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// MergeIdentity records identity as the current one and adds it to the
// history unless an entry with the same identity value already exists.
// Returns true when a new history entry was added.
func (e *SyncedEntity) MergeIdentity(identity string, txHash *string, observedAt time.Time) bool {
	e.CurrentIdentity = identity
	for _, ref := range e.IdentityHistory {
		if identityEqual(ref.Identity, identity) {
			return false
		}
	}
	e.IdentityHistory = append(e.IdentityHistory, IdentityRef{
		Identity:   identity,
		TxHash:     txHash,
		ObservedAt: observedAt,
	})
	return true
}

// HasTransaction reports whether the log already contains a record with the
// given transaction hash. Records without a hash never match.
func (e *SyncedEntity) HasTransaction(txHash string) bool {
	for _, rec := range e.Transactions {
		if rec.TxHash != nil && identityEqual(*rec.TxHash, txHash) {
			return true
		}
	}
	return false
}

// AppendTransaction appends rec to the log and bumps LastModifiedAt. The log
// is append-only: existing entries are never rewritten or reordered.
func (e *SyncedEntity) AppendTransaction(rec TransactionRecord) {
	e.Transactions = append(e.Transactions, rec)
	if rec.ObservedAt.After(e.LastModifiedAt) {
		e.LastModifiedAt = rec.ObservedAt
	}
}
