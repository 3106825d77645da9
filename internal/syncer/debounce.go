package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Flusher is the part of the Controller the debouncer drives.
type Flusher interface {
	Flush(ctx context.Context) error
}

// DebouncedFlusher flushes once edits have been idle for the debounce period.
// Runs never overlap; a notification that arrives during a run schedules
// another one.
type DebouncedFlusher struct {
	target   Flusher
	debounce time.Duration
	timeout  time.Duration
	log      zerolog.Logger
	onError  func(error)

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	running bool
	stopped bool
}

type DebouncedFlusherOpts struct {
	Debounce time.Duration
	// Timeout bounds a single flush. Zero means no timeout.
	Timeout time.Duration
	Logger  zerolog.Logger
	// OnError receives flush errors other than ErrBusy.
	OnError func(error)
}

func NewDebouncedFlusher(target Flusher, opts DebouncedFlusherOpts) *DebouncedFlusher {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &DebouncedFlusher{
		target:   target,
		debounce: debounce,
		timeout:  opts.Timeout,
		log:      opts.Logger,
		onError:  opts.OnError,
	}
}

func (d *DebouncedFlusher) Notify() {
	if d == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = true
	if d.timer == nil {
		d.timer = time.AfterFunc(d.debounce, d.onTimer)
		return
	}
	d.timer.Reset(d.debounce)
}

// Stop cancels any scheduled flush. A run already in progress completes.
func (d *DebouncedFlusher) Stop() {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *DebouncedFlusher) onTimer() {
	d.mu.Lock()
	if d.running {
		d.timer.Reset(d.debounce)
		d.mu.Unlock()
		return
	}
	if !d.pending || d.stopped {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.running = true
	d.mu.Unlock()

	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	err := d.target.Flush(ctx)

	d.mu.Lock()
	d.running = false
	if errors.Is(err, ErrBusy) {
		// Someone else is flushing; try again after they finish.
		d.pending = true
	}
	if d.pending && !d.stopped {
		d.timer.Reset(d.debounce)
	}
	d.mu.Unlock()

	if err != nil && !errors.Is(err, ErrBusy) {
		d.log.Warn().Err(err).Msg("auto flush")
		if d.onError != nil {
			d.onError(err)
		}
	}
}
