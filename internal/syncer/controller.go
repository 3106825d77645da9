package syncer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"envdesk/internal/editlog"
	"envdesk/internal/model"
	"envdesk/internal/mutate"

	"github.com/rs/zerolog"
)

// Controller owns the optimistic Snapshot and the pending edit log, and drives
// flush and undo against a Gateway.
//
// Mutations only touch local state and may be called while a flush or undo is
// in flight. The gateway is never called with the lock held.
type Controller struct {
	gw       Gateway
	log      zerolog.Logger
	metrics  *Metrics
	onChange func(model.SyncState)

	mu          sync.Mutex
	base        model.Snapshot // last state fetched from the backend
	snap        model.Snapshot // base with the pending log applied
	pending     editlog.Log
	state       model.SyncState
	remoteDirty bool
	busy        bool
}

type Option func(*Controller)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithOnChange registers a callback for sync state transitions. It runs after
// the controller's lock is released.
func WithOnChange(fn func(model.SyncState)) Option {
	return func(c *Controller) { c.onChange = fn }
}

func New(gw Gateway, opts ...Option) *Controller {
	c := &Controller{
		gw:    gw,
		log:   zerolog.Nop(),
		base:  model.Snapshot{},
		snap:  model.Snapshot{},
		state: model.Synced,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load replaces the base with the backend's state. The pending log is kept
// and re-applied on top; operations that no longer apply are skipped in the
// Snapshot and will be reported by the next flush.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	c.mu.Unlock()

	st, err := c.gw.FetchState(ctx)
	if err != nil {
		return fmt.Errorf("fetch state: %w", err)
	}

	c.mu.Lock()
	c.base = st.Env.Clone()
	c.remoteDirty = st.Dirty
	c.rebuildLocked()
	changed := c.setStateLocked(c.settledLocked())
	state := c.state
	c.mu.Unlock()

	c.emit(changed, state)
	return nil
}

// Mutate validates op against the Snapshot, applies it and queues it. On error
// nothing changes. Carried values (old value, deleted value, prior values) are
// taken from the Snapshot so the queued operation always matches what it
// replaced.
func (c *Controller) Mutate(op model.Operation) error {
	c.mu.Lock()
	op = c.normalizeLocked(op)
	if err := mutate.Apply(c.snap, op); err != nil {
		c.mu.Unlock()
		return err
	}
	c.pending.Append(op)
	changed := false
	if c.state != model.Committing {
		changed = c.setStateLocked(model.Dirty)
	}
	state := c.state
	c.mu.Unlock()

	c.log.Debug().Str("kind", string(op.Kind)).Str("variable", op.Variable).Msg("queued")
	c.emit(changed, state)
	return nil
}

func (c *Controller) normalizeLocked(op model.Operation) model.Operation {
	op = op.Clone()
	values, ok := c.snap[op.Variable]
	at := func(i int) (string, bool) {
		if !ok || i < 0 || i >= len(values) {
			return "", false
		}
		return values[i], true
	}
	switch op.Kind {
	case model.OpModifyValue:
		if v, ok := at(op.Index); ok {
			op.OldValue = v
		}
	case model.OpDeleteValue, model.OpReorderValue:
		if v, ok := at(op.Index); ok {
			op.Value = v
		}
	case model.OpDeleteVariable:
		if ok {
			op.PriorValues = slices.Clone(values)
		}
	}
	return op
}

// Flush compacts the pending log against the base and commits the result in
// order. Operations queued while the flush runs stay pending for the next one.
//
// If the gateway rejects an operation, Flush stops, keeps that operation and
// the rest of the compacted sequence pending, and returns a *CommitError. The
// state is Dirty afterwards.
func (c *Controller) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	c.busy = true
	ops := c.pending.Ops()
	base := c.base.Clone()
	changed := c.setStateLocked(model.Committing)
	c.mu.Unlock()
	c.emit(changed, model.Committing)

	start := time.Now()
	n := len(ops)
	res := editlog.CompactAgainst(base, ops)
	ev := c.log.Debug().Int("ops", n).Int("compacted", len(res.Ops)).Int("folded", res.Folded)
	if len(res.Fallback) > 0 {
		ev = ev.Strs("uncompacted", res.Fallback)
	}
	ev.Msg("flush")

	for i, op := range res.Ops {
		if err := c.gw.Commit(ctx, op); err != nil {
			cerr := &CommitError{Index: i, Op: op, Err: err}
			c.log.Warn().Err(err).Int("index", i).Str("kind", string(op.Kind)).Str("variable", op.Variable).Msg("commit rejected")
			c.finishFailed(n, res.Ops, i)
			c.metrics.observeFlush("rejected", i, res.Folded, time.Since(start))
			return cerr
		}
	}

	if s, ok := c.gw.(BatchSealer); ok {
		if err := s.SealBatch(ctx); err != nil {
			// The batch stays open; the next flush continues it.
			c.log.Warn().Err(err).Msg("seal batch")
		}
	}

	st, fetchErr := c.gw.FetchState(ctx)

	c.mu.Lock()
	c.pending.DropPrefix(n)
	c.busy = false
	if fetchErr != nil {
		c.base = advance(c.log, c.base, res.Ops)
		c.rebuildLocked()
		changed = c.setStateLocked(model.Dirty)
	} else {
		c.base = st.Env.Clone()
		c.remoteDirty = st.Dirty
		c.rebuildLocked()
		changed = c.setStateLocked(c.settledLocked())
	}
	state := c.state
	c.mu.Unlock()
	c.emit(changed, state)

	if fetchErr != nil {
		c.metrics.observeFlush("error", len(res.Ops), res.Folded, time.Since(start))
		return fmt.Errorf("refresh after commit: %w", fetchErr)
	}
	c.metrics.observeFlush("ok", len(res.Ops), res.Folded, time.Since(start))
	c.log.Info().Int("committed", len(res.Ops)).Int("folded", res.Folded).Str("state", string(state)).Msg("flushed")
	return nil
}

// finishFailed replaces the n flushed operations with the uncommitted
// remainder of the compacted sequence and advances the base by the committed
// prefix.
func (c *Controller) finishFailed(n int, compacted []model.Operation, failed int) {
	c.mu.Lock()
	c.pending.ReplacePrefix(n, compacted[failed:])
	c.base = advance(c.log, c.base, compacted[:failed])
	if failed > 0 {
		c.remoteDirty = true
	}
	c.rebuildLocked()
	c.busy = false
	changed := c.setStateLocked(model.Dirty)
	c.mu.Unlock()
	c.emit(changed, model.Dirty)
}

// Undo asks the backend to revert its last committed batch and reloads. It is
// refused unless the state is Dirty. Pending local edits are not touched; use
// Discard for those.
func (c *Controller) Undo(ctx context.Context) error {
	c.mu.Lock()
	if c.state != model.Dirty || c.busy {
		st := c.state
		c.mu.Unlock()
		c.metrics.observeUndo("refused")
		return &UndoError{State: st, Err: ErrUndoNotAllowed}
	}
	c.busy = true
	c.mu.Unlock()

	err := c.gw.UndoLastBatch(ctx)

	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()

	if err != nil {
		c.metrics.observeUndo("error")
		c.log.Warn().Err(err).Msg("undo failed")
		return &UndoError{State: model.Dirty, Err: err}
	}
	c.metrics.observeUndo("ok")
	if err := c.Load(ctx); err != nil {
		return fmt.Errorf("refresh after undo: %w", err)
	}
	return nil
}

// Discard drops every pending operation and restores the Snapshot to the last
// loaded state.
func (c *Controller) Discard() error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	dropped := c.pending.Len()
	c.pending.Clear()
	c.snap = c.base.Clone()
	changed := c.setStateLocked(c.settledLocked())
	state := c.state
	c.mu.Unlock()

	if dropped > 0 {
		c.log.Info().Int("ops", dropped).Msg("discarded pending edits")
	}
	c.emit(changed, state)
	return nil
}

func (c *Controller) Snapshot() model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.Clone()
}

func (c *Controller) Base() model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base.Clone()
}

// Values returns a copy of the values of one variable.
func (c *Controller) Values(name string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.snap[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(v), true
}

func (c *Controller) State() model.SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns a copy of the queued operations in log order.
func (c *Controller) Pending() []model.Operation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending.Ops()
}

func (c *Controller) rebuildLocked() {
	snap := c.base.Clone()
	for i, op := range c.pending.Ops() {
		if err := mutate.Apply(snap, op); err != nil {
			c.log.Warn().Err(err).Int("pending", i).Str("variable", op.Variable).Msg("pending operation no longer applies")
		}
	}
	c.snap = snap
}

func (c *Controller) settledLocked() model.SyncState {
	if c.remoteDirty || c.pending.Len() > 0 {
		return model.Dirty
	}
	return model.Synced
}

func (c *Controller) setStateLocked(s model.SyncState) bool {
	if c.state == s {
		return false
	}
	c.state = s
	return true
}

func (c *Controller) emit(changed bool, s model.SyncState) {
	if changed && c.onChange != nil {
		c.onChange(s)
	}
}

// advance applies operations the backend already accepted to a local copy of
// base.
func advance(log zerolog.Logger, base model.Snapshot, ops []model.Operation) model.Snapshot {
	next, err := mutate.Replay(base, ops, false)
	if err != nil {
		var re *mutate.ReplayError
		if errors.As(err, &re) {
			log.Error().Err(re.Err).Int("index", re.Index).Msg("committed operation does not apply locally")
		}
		return base.Clone()
	}
	return next
}
