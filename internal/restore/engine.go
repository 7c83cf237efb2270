// Package restore rebuilds on-chain state from the off-chain audit trail
// after a ledger reset. The off-chain store is treated as ground truth:
// every synced entity is probed on-chain and re-created when absent, then
// ownership is reconciled. A single broken record never aborts the pass.
package restore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zs0c131y/TrustVault-sub000/internal/alert"
	"github.com/zs0c131y/TrustVault-sub000/internal/domain/model"
	"github.com/zs0c131y/TrustVault-sub000/internal/events"
	"github.com/zs0c131y/TrustVault-sub000/internal/identity"
	"github.com/zs0c131y/TrustVault-sub000/internal/ledger/contracts"
	"github.com/zs0c131y/TrustVault-sub000/internal/ledger/rpc"
	"github.com/zs0c131y/TrustVault-sub000/internal/metrics"
	"github.com/zs0c131y/TrustVault-sub000/internal/store"
)

// AssetRegistry is the slice of the property contract the engine needs.
type AssetRegistry interface {
	Exists(ctx context.Context, identity string) (bool, error)
	OwnerOf(ctx context.Context, identity string) (string, error)
	Register(ctx context.Context, domainID, name, locality, propertyType string) (*rpc.TransactionReceipt, error)
	TransferOwnership(ctx context.Context, identity, newOwner string) (*rpc.TransactionReceipt, error)
}

// DocumentRegistry is the slice of the document contract the engine needs.
type DocumentRegistry interface {
	Exists(ctx context.Context, key [32]byte) (bool, error)
	Verify(ctx context.Context, identity, documentType, owner string, expiry uint64, extra string) (*rpc.TransactionReceipt, error)
}

// EntityResult describes what happened to one entity during a pass.
type EntityResult struct {
	Kind     model.EntityKind `json:"kind"`
	DomainID string           `json:"domainId"`
	Result   events.Result    `json:"result"`
	Error    string           `json:"error,omitempty"`
}

// RunResult aggregates a full restoration pass.
type RunResult struct {
	RunID          string         `json:"runId"`
	Total          int            `json:"total"`
	Registered     int            `json:"registered"`
	Transferred    int            `json:"transferred"`
	AlreadyOnChain int            `json:"alreadyOnChain"`
	Skipped        int            `json:"skipped"`
	Errors         int            `json:"errors"`
	Entities       []EntityResult `json:"entities"`
	StartedAt      time.Time      `json:"startedAt"`
	FinishedAt     time.Time      `json:"finishedAt"`
}

// Engine replays missing on-chain state from the audit trail.
type Engine struct {
	entities store.EntityRepository
	wallets  store.WalletDirectory
	assets   AssetRegistry
	docs     DocumentRegistry

	signer       string
	probeWorkers int
	transport    events.Transport
	alerter      alert.Alerter
	logger       *slog.Logger
	now          func() time.Time
}

type Option func(*Engine)

// WithProbeWorkers bounds the parallelism of the read-only probe phase.
// Writes are always serialized regardless of this setting.
func WithProbeWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.probeWorkers = n
		}
	}
}

// WithAlerter installs an alert sink notified when a pass finishes with
// errors.
func WithAlerter(a alert.Alerter) Option {
	return func(e *Engine) { e.alerter = a }
}

func NewEngine(
	entities store.EntityRepository,
	wallets store.WalletDirectory,
	assets AssetRegistry,
	docs DocumentRegistry,
	signer string,
	transport events.Transport,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		entities:     entities,
		wallets:      wallets,
		assets:       assets,
		docs:         docs,
		signer:       signer,
		probeWorkers: 4,
		transport:    transport,
		logger:       logger.With("component", "restore"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// plan is the probe-phase verdict for one entity.
type plan struct {
	needsRegister bool
	resolvedOwner string
	ownerSkipped  bool
	err           error
}

// Run executes one full restoration pass. It only returns an error when
// enumerating the store itself fails; per-entity failures are collected in
// the result and the pass continues.
func (e *Engine) Run(ctx context.Context) (*RunResult, error) {
	metrics.RestoreRunsTotal.Inc()

	result := &RunResult{
		RunID:     uuid.NewString(),
		StartedAt: e.now(),
	}

	all, err := e.entities.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate entities: %v", model.ErrStoreWrite, err)
	}

	// Deterministic processing order keeps runs comparable and gives the
	// single-signer write phase a stable nonce sequence.
	sort.Slice(all, func(i, j int) bool { return all[i].DocID() < all[j].DocID() })

	logger := e.logger.With("run_id", result.RunID)
	logger.Info("restoration pass started", "entities", len(all))

	// Probe phase: read-only diffs against the ledger may run in parallel.
	plans := make([]plan, len(all))
	g, probeCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.probeWorkers)
	for i := range all {
		g.Go(func() error {
			plans[i] = e.probe(probeCtx, &all[i])
			return nil
		})
	}
	_ = g.Wait()

	// Write phase: all state-changing sends are drained through this one
	// ordered loop because a single restoring account requires strictly
	// increasing nonces.
	for i := range all {
		entity := &all[i]
		res, entityErr := e.restoreOne(ctx, entity, plans[i])

		result.Total++
		er := EntityResult{Kind: entity.Kind, DomainID: entity.DomainID, Result: res}
		switch res {
		case events.ResultRegistered:
			result.Registered++
		case events.ResultTransferred:
			result.Transferred++
		case events.ResultAlreadyOnChain:
			result.AlreadyOnChain++
		case events.ResultSkippedNoWallet:
			result.Skipped++
		}
		if entityErr != nil {
			result.Errors++
			er.Result = events.ResultFailed
			er.Error = entityErr.Error()
			metrics.RestoreErrorsTotal.Inc()
			logger.Warn("entity restoration failed",
				"kind", entity.Kind,
				"domain_id", entity.DomainID,
				"identity", entity.CurrentIdentity,
				"error", entityErr,
			)
		}
		result.Entities = append(result.Entities, er)
		metrics.RestoreEntitiesTotal.WithLabelValues(string(entity.Kind), string(er.Result)).Inc()

		e.publish(ctx, events.Event{
			RunID:    result.RunID,
			Kind:     entity.Kind,
			DomainID: entity.DomainID,
			Identity: entity.CurrentIdentity,
			Result:   er.Result,
			Error:    er.Error,
			At:       e.now(),
		})
	}

	result.FinishedAt = e.now()
	metrics.RestoreRunDuration.Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())

	logger.Info("restoration pass completed",
		"total", result.Total,
		"registered", result.Registered,
		"transferred", result.Transferred,
		"already_on_chain", result.AlreadyOnChain,
		"skipped", result.Skipped,
		"errors", result.Errors,
	)

	if result.Errors > 0 && e.alerter != nil {
		_ = e.alerter.Send(ctx, alert.Alert{
			Type:    alert.AlertTypeRestoreErrors,
			Title:   "Ledger restoration finished with errors",
			Message: fmt.Sprintf("%d/%d entities failed", result.Errors, result.Total),
			Fields: map[string]string{
				"run_id":     result.RunID,
				"registered": fmt.Sprintf("%d", result.Registered),
				"errors":     fmt.Sprintf("%d", result.Errors),
			},
		})
	}

	return result, nil
}

// probe diffs one entity against the ledger and resolves its target owner.
func (e *Engine) probe(ctx context.Context, entity *model.SyncedEntity) plan {
	var p plan

	switch entity.Kind {
	case model.KindProperty:
		exists, err := e.assets.Exists(ctx, entity.CurrentIdentity)
		if err != nil {
			p.err = err
			return p
		}
		p.needsRegister = !exists
	case model.KindDocumentVerification:
		key, err := contracts.LookupKey(entity.CurrentIdentity, entity.DomainID)
		if err != nil {
			p.err = err
			return p
		}
		exists, err := e.docs.Exists(ctx, key)
		if err != nil {
			p.err = err
			return p
		}
		p.needsRegister = !exists
	default:
		p.err = fmt.Errorf("%w: unknown entity kind %q", model.ErrValidation, entity.Kind)
		return p
	}

	p.resolvedOwner, p.ownerSkipped = e.resolveOwner(ctx, entity)
	return p
}

// resolveOwner turns the stored owner into a chain address when possible.
// A handle with no wallet on file is a skip, not a failure: ownership stays
// with the restoring signer until a wallet is registered.
func (e *Engine) resolveOwner(ctx context.Context, entity *model.SyncedEntity) (string, bool) {
	owner := strings.TrimSpace(entity.Owner)
	if owner == "" {
		return "", true
	}
	if identity.IsAddress(owner) {
		return owner, false
	}

	addr, err := e.wallets.AddressForHandle(ctx, owner)
	if err != nil {
		if !errors.Is(err, store.ErrWalletNotFound) {
			e.logger.Warn("wallet lookup failed during restoration",
				"domain_id", entity.DomainID, "handle", owner, "error", err)
		} else {
			e.logger.Warn("no wallet on file for owner, leaving ownership with restoring signer",
				"domain_id", entity.DomainID, "handle", owner)
		}
		return "", true
	}
	return addr, false
}

// restoreOne executes the planned writes for one entity and appends its
// restoration record. Per the current design, the record is appended for
// every successfully processed entity, even when the ledger already held
// the state and nothing was written on-chain.
func (e *Engine) restoreOne(ctx context.Context, entity *model.SyncedEntity, p plan) (events.Result, error) {
	if p.err != nil {
		return events.ResultFailed, p.err
	}

	var receipt *rpc.TransactionReceipt
	res := events.ResultAlreadyOnChain

	if p.needsRegister {
		var err error
		receipt, err = e.register(ctx, entity, p)
		if err != nil {
			return events.ResultFailed, err
		}
		res = events.ResultRegistered
	}

	if entity.Kind == model.KindProperty {
		transferred, transferReceipt, err := e.reconcileOwner(ctx, entity, p)
		if err != nil {
			return events.ResultFailed, err
		}
		if transferred {
			if receipt == nil {
				receipt = transferReceipt
			}
			if res != events.ResultRegistered {
				res = events.ResultTransferred
			}
		}
	}

	if p.ownerSkipped && res == events.ResultAlreadyOnChain {
		res = events.ResultSkippedNoWallet
	}

	if err := e.appendRestorationRecord(ctx, entity, receipt); err != nil {
		return events.ResultFailed, err
	}
	return res, nil
}

func (e *Engine) register(ctx context.Context, entity *model.SyncedEntity, p plan) (*rpc.TransactionReceipt, error) {
	switch entity.Kind {
	case model.KindProperty:
		if entity.Property == nil {
			return nil, fmt.Errorf("%w: property %s has no stored attributes", model.ErrValidation, entity.DomainID)
		}
		return e.assets.Register(ctx, entity.DomainID, entity.Property.Name, entity.Property.Locality, entity.Property.PropertyType)
	case model.KindDocumentVerification:
		if entity.Document == nil {
			return nil, fmt.Errorf("%w: document %s has no stored attributes", model.ErrValidation, entity.DomainID)
		}
		owner := p.resolvedOwner
		if owner == "" {
			owner = e.signer
		}
		return e.docs.Verify(ctx, entity.CurrentIdentity, entity.Document.DocumentType, owner, 0, entity.DomainID)
	default:
		return nil, fmt.Errorf("%w: unknown entity kind %q", model.ErrValidation, entity.Kind)
	}
}

// reconcileOwner transfers on-chain ownership to the resolved owner when
// the ledger disagrees. Skipped owners stay with the restoring signer.
func (e *Engine) reconcileOwner(ctx context.Context, entity *model.SyncedEntity, p plan) (bool, *rpc.TransactionReceipt, error) {
	if p.ownerSkipped || p.resolvedOwner == "" {
		return false, nil, nil
	}

	current, err := e.assets.OwnerOf(ctx, entity.CurrentIdentity)
	if err != nil {
		return false, nil, err
	}
	if strings.EqualFold(current, p.resolvedOwner) {
		return false, nil, nil
	}

	receipt, err := e.assets.TransferOwnership(ctx, entity.CurrentIdentity, p.resolvedOwner)
	if err != nil {
		return false, nil, err
	}
	return true, receipt, nil
}

func (e *Engine) appendRestorationRecord(ctx context.Context, entity *model.SyncedEntity, receipt *rpc.TransactionReceipt) error {
	rec := model.TransactionRecord{
		Kind:       model.TxRestoration,
		ObservedAt: e.now().UTC(),
	}
	if receipt != nil {
		rec.From = receipt.From
		rec.To = receipt.To
		rec.TxHash = &receipt.TransactionHash
		if n, err := rpc.ParseHexInt64(receipt.BlockNumber); err == nil {
			blockStr := fmt.Sprintf("%d", n)
			rec.BlockNumber = &blockStr
		}
	}
	entity.AppendTransaction(rec)

	if err := e.entities.Upsert(ctx, entity); err != nil {
		return err
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if e.transport == nil {
		return
	}
	if err := e.transport.Publish(ctx, ev); err != nil {
		e.logger.Warn("progress event publish failed", "domain_id", ev.DomainID, "error", err)
	}
}
