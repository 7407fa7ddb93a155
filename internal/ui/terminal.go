// Package ui is the bundled terminal front-end: it renders the
// presentation list, the link status, and the slide view, and decodes
// keyboard input so the controller is usable without the remote. All
// methods must be called from the UI goroutine.
package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/srg/slidelink/internal/convert"
	"github.com/srg/slidelink/internal/library"
	"github.com/srg/slidelink/internal/link"
	"github.com/srg/slidelink/internal/session"
)

// Terminal renders the controller state to a terminal. It implements
// session.Presenter.
type Terminal struct {
	out  io.Writer
	list *library.List

	title      *color.Color
	selected   *color.Color
	connected  *color.Color
	offline    *color.Color
	dim        *color.Color
	linkState  link.State
	status     string
	presenting bool
	cursor     session.Cursor
	slideSize  string
}

// NewTerminal creates a Terminal writing to out and rendering list in
// navigation mode.
func NewTerminal(out io.Writer, list *library.List) *Terminal {
	t := &Terminal{
		out:       out,
		list:      list,
		title:     color.New(color.Bold),
		selected:  color.New(color.ReverseVideo),
		connected: color.New(color.FgGreen),
		offline:   color.New(color.FgRed),
		dim:       color.New(color.Faint),
		status:    "Ready",
	}
	list.SetOnChange(t.Render)
	return t
}

// SetLinkState updates the link indicator and redraws.
func (t *Terminal) SetLinkState(st link.State) {
	t.linkState = st
	t.Render()
}

// UpdateStatus sets the status bar text and redraws.
func (t *Terminal) UpdateStatus(text string) {
	t.status = text
	t.Render()
}

// EnterPresentationView switches to the slide view.
func (t *Terminal) EnterPresentationView() {
	t.presenting = true
	t.Render()
}

// RestoreListView switches back to the presentation list.
func (t *Terminal) RestoreListView() {
	t.presenting = false
	t.cursor = session.Cursor{}
	t.slideSize = ""
	t.Render()
}

// ShowSlide displays the current slide position. A terminal cannot draw the
// raster itself, so the view shows the deck position and page dimensions.
func (t *Terminal) ShowSlide(slide convert.Slide, cursor session.Cursor) {
	t.cursor = cursor
	b := slide.Image.Bounds()
	t.slideSize = fmt.Sprintf("%dx%d", b.Dx(), b.Dy())
	t.Render()
}

// Render repaints the whole screen.
func (t *Terminal) Render() {
	fmt.Fprint(t.out, "\x1b[2J\x1b[H") // clear + home
	t.title.Fprintln(t.out, "Presentation Controller")
	fmt.Fprintln(t.out)

	if t.linkState == link.StateActive {
		t.connected.Fprintf(t.out, "● Remote %s\n", t.linkState)
	} else {
		t.offline.Fprintf(t.out, "○ Remote %s\n", t.linkState)
	}
	fmt.Fprintln(t.out)

	if t.presenting {
		t.renderSlideView()
	} else {
		t.renderListView()
	}

	fmt.Fprintln(t.out)
	fmt.Fprintf(t.out, "Status: %s\n", t.status)
}

func (t *Terminal) renderListView() {
	fmt.Fprintln(t.out, "Available presentations:")
	entries := t.list.Entries()
	if len(entries) == 0 {
		t.dim.Fprintln(t.out, "  (none found)")
	}
	for i, e := range entries {
		if i == t.list.SelectedIndex() {
			t.selected.Fprintf(t.out, "  %s\n", e.Name)
		} else {
			fmt.Fprintf(t.out, "  %s\n", e.Name)
		}
	}
	fmt.Fprintln(t.out)
	t.dim.Fprintln(t.out, "↑/↓ move   Enter start   q quit")
}

func (t *Terminal) renderSlideView() {
	fmt.Fprintf(t.out, "Slide %d of %d", t.cursor.Index+1, t.cursor.Count)
	if t.slideSize != "" {
		t.dim.Fprintf(t.out, "  (%s)", t.slideSize)
	}
	fmt.Fprintln(t.out)
	fmt.Fprintln(t.out)
	t.dim.Fprintln(t.out, "↑ previous   ↓ next   Enter end")
}
