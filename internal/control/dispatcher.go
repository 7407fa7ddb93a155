// Package control turns decoded remote commands into application actions.
// The dispatcher debounces button presses and routes each command by the
// session's mode; it issues intents only and never renders anything itself.
package control

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/slidelink/internal/library"
	"github.com/srg/slidelink/internal/link"
)

// DefaultDebounce is the minimum gap between accepted commands. The remote
// fires repeated notifications for a held button; one global window across
// all command types matches the firmware's behavior.
const DefaultDebounce = 1 * time.Second

// Deck is the dispatcher's view of the presentation session.
type Deck interface {
	Presenting() bool
	Start(ctx context.Context, path string) error
	Next()
	Previous()
	End()
}

// StatusSink receives user-facing status text.
type StatusSink interface {
	UpdateStatus(text string)
}

// Dispatcher debounces and routes remote commands. Not safe for concurrent
// use: HandleCommand must only ever be called from the UI goroutine, the
// single consumer of the supervisor's command channel.
type Dispatcher struct {
	list   *library.List
	deck   Deck
	status StatusSink
	logger *logrus.Logger

	// Debounce is the rejection window; commands arriving closer than this
	// to the last accepted one are dropped regardless of their token.
	Debounce time.Duration

	lastAccepted time.Time
}

// NewDispatcher creates a Dispatcher with the default debounce window.
func NewDispatcher(list *library.List, deck Deck, status StatusSink, logger *logrus.Logger) *Dispatcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Dispatcher{
		list:     list,
		deck:     deck,
		status:   status,
		logger:   logger,
		Debounce: DefaultDebounce,
	}
}

// HandleCommand applies the debounce window and routes cmd by the current
// mode. now is injected by the caller so the window is testable.
func (d *Dispatcher) HandleCommand(ctx context.Context, cmd link.Command, now time.Time) {
	if !d.lastAccepted.IsZero() && now.Sub(d.lastAccepted) < d.Debounce {
		d.logger.WithField("command", cmd).Debug("Ignoring command due to debounce")
		return
	}
	d.lastAccepted = now

	if d.deck.Presenting() {
		d.handlePresenting(cmd)
	} else {
		d.handleNavigation(ctx, cmd)
	}
}

func (d *Dispatcher) handleNavigation(ctx context.Context, cmd link.Command) {
	switch cmd {
	case link.CmdUp:
		d.logger.Debug("Moving selection up")
		d.list.MoveUp()
	case link.CmdDown:
		d.logger.Debug("Moving selection down")
		d.list.MoveDown()
	case link.CmdSelect:
		entry, ok := d.list.Selected()
		if !ok {
			d.logger.Warn("SELECT with empty presentation list")
			d.status.UpdateStatus("No presentations found")
			return
		}
		d.logger.WithField("presentation", entry.Name).Info("Starting selected presentation")
		if err := d.deck.Start(ctx, entry.Path); err != nil {
			// The session already reported through the status line; the
			// command is consumed either way.
			d.logger.WithError(err).Warn("Presentation did not start")
		}
	}
}

func (d *Dispatcher) handlePresenting(cmd link.Command) {
	switch cmd {
	case link.CmdUp:
		d.deck.Previous()
	case link.CmdDown:
		d.deck.Next()
	case link.CmdSelect:
		d.logger.Info("Ending presentation on remote request")
		d.deck.End()
	}
}
