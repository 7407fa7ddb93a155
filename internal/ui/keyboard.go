package ui

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/srg/slidelink/internal/link"
)

// KeyEvent is a decoded keyboard action. Cmd mirrors the remote's command
// vocabulary so the dispatcher treats both input paths identically.
type KeyEvent struct {
	Cmd  link.Command
	Quit bool
}

// Keyboard decodes terminal input into KeyEvents: arrow keys map to
// UP/DOWN, Enter to SELECT, q/Ctrl+C to quit. It exists so the controller
// can be exercised without the remote, exactly like the original keyboard
// bindings.
type Keyboard struct {
	in      io.Reader
	logger  *logrus.Logger
	events  chan KeyEvent
	restore func()
}

// NewKeyboard creates a Keyboard reading from in.
func NewKeyboard(in io.Reader, logger *logrus.Logger) *Keyboard {
	if logger == nil {
		logger = logrus.New()
	}
	return &Keyboard{
		in:     in,
		logger: logger,
		events: make(chan KeyEvent, 8),
	}
}

// Events returns the decoded key events. The channel closes when the input
// stream ends.
func (k *Keyboard) Events() <-chan KeyEvent {
	return k.events
}

// Start switches the terminal to raw mode when in is a terminal and begins
// the read loop on its own goroutine.
func (k *Keyboard) Start() error {
	if f, ok := k.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		oldState, err := term.MakeRaw(int(f.Fd()))
		if err != nil {
			return err
		}
		k.restore = func() {
			_ = term.Restore(int(f.Fd()), oldState)
		}
	}

	go k.readLoop()
	return nil
}

// Stop restores the terminal state. The read loop exits when the input
// stream is closed by the caller.
func (k *Keyboard) Stop() {
	if k.restore != nil {
		k.restore()
		k.restore = nil
	}
}

func (k *Keyboard) readLoop() {
	defer close(k.events)

	buf := make([]byte, 8)
	var pending []byte
	for {
		n, err := k.in.Read(buf)
		if err != nil {
			if err != io.EOF {
				k.logger.WithError(err).Debug("Keyboard read ended")
			}
			return
		}

		// An escape sequence can straddle two reads; unconsumed trailing
		// bytes carry over to the next one.
		pending = append(pending, buf[:n]...)
		var evs []KeyEvent
		evs, pending = decodeKeys(pending)

		for _, ev := range evs {
			k.events <- ev
			if ev.Quit {
				return
			}
		}
	}
}

// decodeKeys maps raw terminal bytes to key events. Escape sequences for
// the arrow keys arrive as ESC [ A / ESC [ B; an incomplete sequence at the
// end of the buffer is returned as rest for the caller to retry with more
// input.
func decodeKeys(b []byte) (evs []KeyEvent, rest []byte) {
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case 0x1b: // escape sequence
			if i == len(b)-1 || (b[i+1] == '[' && i+2 >= len(b)) {
				return evs, b[i:]
			}
			if b[i+1] == '[' {
				switch b[i+2] {
				case 'A':
					evs = append(evs, KeyEvent{Cmd: link.CmdUp})
				case 'B':
					evs = append(evs, KeyEvent{Cmd: link.CmdDown})
				}
				i += 2
			}
		case '\r', '\n':
			evs = append(evs, KeyEvent{Cmd: link.CmdSelect})
		case 'q', 0x03: // q or Ctrl+C
			evs = append(evs, KeyEvent{Quit: true})
		}
	}
	return evs, nil
}
