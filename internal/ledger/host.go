package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/quest-ledger/internal/events"
	"github.com/terra-clan/quest-ledger/internal/models"
	"github.com/terra-clan/quest-ledger/internal/storage"
)

// eventNamespace derives stable event ids from their sequence number
var eventNamespace = uuid.MustParse("6f1c3d2e-5b7a-4c8e-9a0d-2e4f6b8c1a3d")

// Clock returns the current ledger time
type Clock func() time.Time

// Host runs ledger invocations one at a time against a Store.
// An invocation either commits all of its writes or none of them.
type Host struct {
	mu    sync.Mutex
	store storage.Store
	auth  Authorizer
	sink  events.Sink
	clock Clock

	// delivery tickets keep sink order equal to commit order
	deliverMu   sync.Mutex
	deliverCond *sync.Cond
	nextTicket  uint64
	serving     uint64
}

// HostOption configures a Host
type HostOption func(*Host)

// WithClock overrides the ledger clock
func WithClock(clock Clock) HostOption {
	return func(h *Host) {
		h.clock = clock
	}
}

// WithAuthorizer overrides the authority check
func WithAuthorizer(auth Authorizer) HostOption {
	return func(h *Host) {
		h.auth = auth
	}
}

// WithSink sets where committed events are delivered
func WithSink(sink events.Sink) HostOption {
	return func(h *Host) {
		h.sink = sink
	}
}

// NewHost creates a Host over store
func NewHost(store storage.Store, opts ...HostOption) *Host {
	h := &Host{
		store: store,
		auth:  CallerAuthorizer{},
		sink:  events.Discard,
		clock: func() time.Time { return time.Now().UTC() },
	}
	h.deliverCond = sync.NewCond(&h.deliverMu)
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Ping checks the underlying store
func (h *Host) Ping(ctx context.Context) error {
	return h.store.Ping(ctx)
}

// Invoke runs fn as one atomic invocation named op.
// Writes are discarded when fn fails, except for sticky rejections, which
// commit their writes but publish no events. Events are delivered after the
// ledger lock is released, in commit order.
func (h *Host) Invoke(ctx context.Context, op string, fn func(env *Env) error) error {
	pending, ticket, err := h.commit(ctx, op, fn)
	if err != nil || len(pending) == 0 {
		return err
	}

	h.awaitTurn(ticket)
	defer h.finishTurn()

	for _, evt := range pending {
		if err := h.sink.Publish(ctx, evt); err != nil {
			slog.Error("failed to publish event", "op", op, "topic", evt.Topic, "sequence", evt.Sequence, "error", err)
		}
	}

	return nil
}

// commit runs fn under the ledger lock. When events are returned, the ticket
// is their delivery slot and must be passed to awaitTurn.
func (h *Host) commit(ctx context.Context, op string, fn func(env *Env) error) ([]models.Event, uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	env := h.newEnv(ctx)
	err := fn(env)

	var sticky *stickyError
	if err != nil && !errors.As(err, &sticky) {
		slog.Debug("invocation rejected", "op", op, "error", err)
		return nil, 0, err
	}

	if sticky == nil && len(env.pending) > 0 {
		if err := env.sequenceEvents(); err != nil {
			return nil, 0, fmt.Errorf("failed to sequence events: %w", err)
		}
	}

	muts := append(env.instance.mutations(), env.persistent.mutations()...)
	if err := h.store.Commit(ctx, muts); err != nil {
		slog.Error("invocation commit failed", "op", op, "error", err)
		return nil, 0, fmt.Errorf("failed to commit %s: %w", op, err)
	}

	if sticky != nil {
		slog.Info("invocation rejected after state transition", "op", op, "error", sticky.err)
		return nil, 0, sticky.err
	}

	if len(env.pending) == 0 {
		return nil, 0, nil
	}

	h.deliverMu.Lock()
	ticket := h.nextTicket
	h.nextTicket++
	h.deliverMu.Unlock()

	return env.pending, ticket, nil
}

func (h *Host) awaitTurn(ticket uint64) {
	h.deliverMu.Lock()
	for h.serving != ticket {
		h.deliverCond.Wait()
	}
	h.deliverMu.Unlock()
}

func (h *Host) finishTurn() {
	h.deliverMu.Lock()
	h.serving++
	h.deliverMu.Unlock()
	h.deliverCond.Broadcast()
}

// View runs fn against a consistent snapshot. Any writes are dropped.
func (h *Host) View(ctx context.Context, fn func(env *Env) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return fn(h.newEnv(ctx))
}

func (h *Host) newEnv(ctx context.Context) *Env {
	env := &Env{
		ctx:  ctx,
		auth: h.auth,
		now:  h.clock(),
	}
	env.instance = newTierView(ctx, h.store, storage.TierInstance)
	env.persistent = newTierView(ctx, h.store, storage.TierPersistent)
	return env
}

// Env is the per-invocation view of the ledger
type Env struct {
	ctx        context.Context
	auth       Authorizer
	now        time.Time
	instance   *tierView
	persistent *tierView
	pending    []models.Event
}

// Now returns the ledger time, fixed for the whole invocation
func (e *Env) Now() time.Time {
	return e.now
}

// RequireAuth aborts unless the caller proved control of p
func (e *Env) RequireAuth(p models.Principal) error {
	return e.auth.RequireAuth(e.ctx, p)
}

// Platform returns the platform configuration or ErrUninitialized
func (e *Env) Platform() (models.PlatformConfig, error) {
	return loadPlatform(e)
}

// Publish buffers an event, delivered only if the invocation commits
func (e *Env) Publish(topic string, principal models.Principal, payload map[string]any) {
	e.pending = append(e.pending, models.Event{
		Topic:      topic,
		Principal:  principal,
		Payload:    payload,
		LedgerTime: e.now,
	})
}

func (e *Env) sequenceEvents() error {
	seq, _, err := load[uint64](e.instance, keyEventSeq)
	if err != nil {
		return err
	}
	for i := range e.pending {
		seq++
		e.pending[i].Sequence = seq
		e.pending[i].ID = uuid.NewSHA1(eventNamespace, []byte(strconv.FormatUint(seq, 10))).String()
	}
	return save(e.instance, keyEventSeq, seq)
}

// tierView reads through a write buffer over one storage tier
type tierView struct {
	ctx    context.Context
	store  storage.Store
	tier   storage.Tier
	writes map[string]storage.Mutation
	order  []string
}

func newTierView(ctx context.Context, store storage.Store, tier storage.Tier) *tierView {
	return &tierView{
		ctx:    ctx,
		store:  store,
		tier:   tier,
		writes: make(map[string]storage.Mutation),
	}
}

func (v *tierView) get(key string) ([]byte, bool, error) {
	if m, ok := v.writes[key]; ok {
		if m.Delete {
			return nil, false, nil
		}
		return m.Value, true, nil
	}
	value, ok, err := v.store.Get(v.ctx, v.tier, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s/%s: %w", v.tier, key, err)
	}
	return value, ok, nil
}

func (v *tierView) put(m storage.Mutation) {
	if _, ok := v.writes[m.Key]; !ok {
		v.order = append(v.order, m.Key)
	}
	v.writes[m.Key] = m
}

func (v *tierView) set(key string, value []byte) {
	v.put(storage.Mutation{Tier: v.tier, Key: key, Value: value})
}

func (v *tierView) remove(key string) {
	v.put(storage.Mutation{Tier: v.tier, Key: key, Delete: true})
}

func (v *tierView) mutations() []storage.Mutation {
	muts := make([]storage.Mutation, 0, len(v.order))
	for _, key := range v.order {
		muts = append(muts, v.writes[key])
	}
	return muts
}

// load decodes the value under key; the zero value is returned when absent
func load[T any](v *tierView, key string) (T, bool, error) {
	var out T
	raw, ok, err := v.get(key)
	if err != nil || !ok {
		return out, ok, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false, fmt.Errorf("failed to decode %s/%s: %w", v.tier, key, err)
	}
	return out, true, nil
}

func save(v *tierView, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", v.tier, key, err)
	}
	v.set(key, raw)
	return nil
}
