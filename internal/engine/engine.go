// Package engine is the single-authority facade over the ledger, registry,
// market and settlement layers. One writer at a time: every mutating
// operation takes the write lock, stages its changes against current state,
// prepares settlement where funds move, persists one changeset, and only
// then lets any in-memory state advance. Reads take the read lock and see
// committed state only.
package engine

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/greenlink-eco/credit-engine/internal/domain"
	"github.com/greenlink-eco/credit-engine/internal/ledger"
	"github.com/greenlink-eco/credit-engine/internal/market"
	"github.com/greenlink-eco/credit-engine/internal/messaging"
	"github.com/greenlink-eco/credit-engine/internal/metrics"
	"github.com/greenlink-eco/credit-engine/internal/registry"
	"github.com/greenlink-eco/credit-engine/internal/settlement"
	"github.com/greenlink-eco/credit-engine/internal/store"
	"github.com/greenlink-eco/credit-engine/internal/store/schema"
)

const rolePrefix = "role:"

// Config wires the engine's collaborators.
type Config struct {
	Store     store.Store
	Publisher messaging.Publisher
	Settler   settlement.Settler
	Logger    *zap.Logger
	// PlatformAccount collects marketplace fees.
	PlatformAccount domain.AccountID
	// Admins are granted RoleAdmin at startup so a fresh deployment can
	// bootstrap further grants.
	Admins []domain.AccountID
	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

// Engine owns all mutable state and its persistence.
type Engine struct {
	mu sync.RWMutex

	ledger   *ledger.Ledger
	registry *registry.Registry
	market   *market.Market
	settler  settlement.Settler

	roles map[domain.AccountID]domain.RoleSet

	store     store.Store
	publisher messaging.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// New builds an engine with empty state. Call Rehydrate before serving.
func New(cfg Config) *Engine {
	now := cfg.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		ledger:    ledger.New(),
		registry:  registry.New(),
		market:    market.New(cfg.PlatformAccount),
		settler:   cfg.Settler,
		roles:     make(map[domain.AccountID]domain.RoleSet),
		store:     cfg.Store,
		publisher: cfg.Publisher,
		logger:    logger,
		now:       now,
	}
	for _, admin := range cfg.Admins {
		e.roles[admin] = domain.NewRoleSet(domain.RoleAdmin)
	}
	return e
}

// Rehydrate loads durable state and rebuilds every component's in-memory
// view, including id sequences, the fingerprint index and configuration.
func (e *Engine) Rehydrate(ctx context.Context) error {
	snap, err := e.store.LoadAll(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	paused := snap.Config[schema.ConfigKeyPaused] == "true"
	e.ledger.Restore(snap.Tokens, paused, snap.Config[schema.ConfigKeyBaseLocator])

	threshold := -1
	if v, ok := snap.Config[schema.ConfigKeyThresholdPct]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			threshold = n
		}
	}
	e.registry.Restore(snap.Submissions, snap.Fingerprints, threshold)

	feeBps := -1
	if v, ok := snap.Config[schema.ConfigKeyPlatformFeeBps]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			feeBps = n
		}
	}
	e.market.Restore(snap.Listings, feeBps)

	for key, value := range snap.Config {
		if !strings.HasPrefix(key, rolePrefix) {
			continue
		}
		account := domain.AccountID(strings.TrimPrefix(key, rolePrefix))
		rs := domain.NewRoleSet()
		for _, name := range strings.Split(value, ",") {
			if name != "" {
				rs.Grant(domain.Role(name))
			}
		}
		e.roles[account] = rs
	}

	e.logger.Info("engine rehydrated",
		zap.Int("submissions", len(snap.Submissions)),
		zap.Int("tokens", len(snap.Tokens)),
		zap.Int("listings", len(snap.Listings)),
	)
	return nil
}

// requireRole is the single capability gate shared by all privileged
// operations.
func (e *Engine) requireRole(caller domain.AccountID, role domain.Role) error {
	if rs, ok := e.roles[caller]; ok && rs.Has(role) {
		return nil
	}
	return domain.ErrMissingRole
}

// commit persists the changeset, runs the infallible in-memory applies and
// publishes the events. Caller holds the write lock and has finished every
// fallible step.
func (e *Engine) commit(ctx context.Context, op string, cs *store.Changeset, apply func()) error {
	if err := e.store.Apply(ctx, cs); err != nil {
		return err
	}
	apply()
	metrics.OperationsTotal.WithLabelValues(op).Inc()
	e.publish(ctx, cs.Events)
	return nil
}

// publish delivers events post-commit. A publisher failure is logged, never
// propagated: the state change is already durable.
func (e *Engine) publish(ctx context.Context, events []domain.Event) {
	for _, event := range events {
		if err := e.publisher.Publish(ctx, event); err != nil {
			e.logger.Error("failed to publish event",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err),
			)
			continue
		}
		metrics.EventsPublishedTotal.WithLabelValues(string(event.Type)).Inc()
	}
}
