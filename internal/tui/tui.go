package tui

import (
	"context"
	"sync/atomic"
	"time"

	"envdesk/internal/model"
	"envdesk/internal/syncer"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

type Options struct {
	// Label is shown next to the title, e.g. the store dir or server URL.
	Label string
	// Applier enables the apply key. Nil hides it.
	Applier Applier
	// AutoFlush flushes after edits have been idle this long. Zero disables it.
	AutoFlush time.Duration
	// Theme is "auto", "dark" or "light".
	Theme  string
	Logger zerolog.Logger
}

// Run loads the backend state and runs the TUI until the user quits.
func Run(ctx context.Context, gw syncer.Gateway, opts Options) error {
	applyThemePreference(opts.Theme)

	var prog atomic.Pointer[tea.Program]
	send := func(msg tea.Msg) {
		if p := prog.Load(); p != nil {
			p.Send(msg)
		}
	}

	ctl := syncer.New(gw,
		syncer.WithLogger(opts.Logger),
		syncer.WithOnChange(func(s model.SyncState) { send(syncStateMsg{state: s}) }),
	)
	if err := ctl.Load(ctx); err != nil {
		return err
	}

	var flusher *syncer.DebouncedFlusher
	if opts.AutoFlush > 0 {
		flusher = syncer.NewDebouncedFlusher(ctl, syncer.DebouncedFlusherOpts{
			Debounce: opts.AutoFlush,
			Timeout:  actionTimeout,
			Logger:   opts.Logger,
			OnError:  func(err error) { send(autoFlushErrMsg{err: err}) },
		})
		defer flusher.Stop()
	}

	m := newAppModel(ctl, opts.Applier, flusher)
	m.label = opts.Label
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	prog.Store(p)
	_, err := p.Run()
	return err
}
