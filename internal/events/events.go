// Package events publishes per-entity progress and diagnostic events from
// the restoration engine. Publishing is best-effort: failures are logged by
// the caller and never fail the restoration pass.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/zs0c131y/TrustVault-sub000/internal/domain/model"
)

// Result classifies what happened to one entity during a restoration pass.
type Result string

const (
	ResultRegistered      Result = "registered"
	ResultTransferred     Result = "transferred"
	ResultAlreadyOnChain  Result = "already_on_chain"
	ResultSkippedNoWallet Result = "skipped_no_wallet"
	ResultFailed          Result = "failed"
)

// Event is one progress record emitted per processed entity.
type Event struct {
	RunID    string           `json:"runId"`
	Kind     model.EntityKind `json:"kind"`
	DomainID string           `json:"domainId"`
	Identity string           `json:"identity"`
	Result   Result           `json:"result"`
	Error    string           `json:"error,omitempty"`
	At       time.Time        `json:"at"`
}

// Transport delivers restoration progress events.
type Transport interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// InMemoryTransport buffers events in memory; used in tests and when no
// redis is configured.
type InMemoryTransport struct {
	mu     sync.Mutex
	events []Event
}

var _ Transport = (*InMemoryTransport)(nil)

func NewInMemoryTransport() *InMemoryTransport {
	return &InMemoryTransport{}
}

func (t *InMemoryTransport) Publish(_ context.Context, ev Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, ev)
	return nil
}

// Events returns a copy of everything published so far.
func (t *InMemoryTransport) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := make([]Event, len(t.events))
	copy(cp, t.events)
	return cp
}

func (t *InMemoryTransport) Close() error { return nil }
