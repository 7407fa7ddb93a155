// Package session tracks what the controller is doing: browsing the
// presentation list (navigation mode) or showing slides (presenting mode),
// and where in the deck it is. The session decides what a remote command
// means; rendering is the presenter collaborator's job.
package session

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/srg/slidelink/internal/convert"
)

// Mode is the top-level application state determining command semantics.
type Mode int

const (
	Navigation Mode = iota
	Presenting
)

func (m Mode) String() string {
	if m == Presenting {
		return "presenting"
	}
	return "navigation"
}

// Cursor is the slide position within the current deck.
// Invariant: 0 <= Index < Count whenever Count > 0; the index clamps at the
// deck bounds and never wraps.
type Cursor struct {
	Index int
	Count int
}

// Presenter is the external display collaborator. Calls are side-effecting
// with no return contract beyond "applied".
type Presenter interface {
	ShowSlide(slide convert.Slide, cursor Cursor)
	UpdateStatus(text string)
	EnterPresentationView()
	RestoreListView()
}

// Session owns the mode, cursor, and loaded slides. It is not safe for
// concurrent use: all mutation must happen on the UI goroutine, the same
// one that runs the command dispatcher.
type Session struct {
	converter convert.Converter
	presenter Presenter
	logger    *logrus.Logger

	mode   Mode
	cursor Cursor
	slides []convert.Slide
}

// New creates a Session in navigation mode.
func New(converter convert.Converter, presenter Presenter, logger *logrus.Logger) *Session {
	if logger == nil {
		logger = logrus.New()
	}
	return &Session{
		converter: converter,
		presenter: presenter,
		logger:    logger,
	}
}

// Mode returns the current mode.
func (s *Session) Mode() Mode {
	return s.mode
}

// Presenting reports whether a presentation is running.
func (s *Session) Presenting() bool {
	return s.mode == Presenting
}

// Cursor returns the current slide position.
func (s *Session) Cursor() Cursor {
	return s.cursor
}

// Start converts the presentation at path and enters presenting mode. The
// conversion is synchronous and can be slow. On any conversion failure the
// session stays in navigation mode, reports through the status line, and
// retains no slide data; the user has to re-select to retry.
func (s *Session) Start(ctx context.Context, path string) error {
	if s.mode == Presenting {
		return fmt.Errorf("presentation already running")
	}

	s.logger.WithField("path", path).Info("Starting presentation")
	s.presenter.UpdateStatus(fmt.Sprintf("Converting %s...", path))

	slides, err := s.converter.Convert(ctx, path)
	if err == nil && len(slides) == 0 {
		// Nothing in the Converter contract promises a non-empty deck on
		// success; an empty one must not enter presenting mode.
		err = fmt.Errorf("conversion produced no slides")
	}
	if err != nil {
		s.logger.WithError(err).Error("Presentation conversion failed")
		s.presenter.UpdateStatus(fmt.Sprintf("Error loading presentation: %v", err))
		return err
	}

	s.slides = slides
	s.cursor = Cursor{Index: 0, Count: len(slides)}
	s.mode = Presenting

	s.presenter.EnterPresentationView()
	s.presenter.ShowSlide(s.slides[0], s.cursor)
	s.presenter.UpdateStatus(fmt.Sprintf("Slide 1 of %d", s.cursor.Count))

	s.logger.WithField("slides", s.cursor.Count).Info("Presentation started")
	return nil
}

// Next advances one slide, clamped at the end of the deck.
func (s *Session) Next() {
	s.move(1)
}

// Previous goes back one slide, clamped at the start of the deck.
func (s *Session) Previous() {
	s.move(-1)
}

func (s *Session) move(delta int) {
	if s.mode != Presenting || s.cursor.Count == 0 {
		return
	}

	next := s.cursor.Index + delta
	if next < 0 || next >= s.cursor.Count {
		s.logger.WithFields(logrus.Fields{
			"index": s.cursor.Index,
			"count": s.cursor.Count,
		}).Debug("Slide move clamped at deck bound")
		return
	}

	s.cursor.Index = next
	s.presenter.ShowSlide(s.slides[next], s.cursor)
	s.presenter.UpdateStatus(fmt.Sprintf("Slide %d of %d", next+1, s.cursor.Count))
	s.logger.WithField("slide", next+1).Info("Moved to slide")
}

// End leaves presenting mode, releases the slide images, and restores the
// list view. Calling End in navigation mode is a no-op.
func (s *Session) End() {
	if s.mode != Presenting {
		return
	}

	s.logger.Info("Ending presentation")
	s.mode = Navigation
	s.cursor = Cursor{}
	s.slides = nil

	s.presenter.RestoreListView()
	s.presenter.UpdateStatus("Presentation ended")
}

// SlideCount returns the number of loaded slides (0 in navigation mode).
func (s *Session) SlideCount() int {
	return len(s.slides)
}
