// Package queue provides a bounded channel-like buffer with
// overwrite-oldest semantics, used to hand notification-decoded commands
// from the link goroutine to the UI goroutine without ever blocking the
// producer.
package queue

// RingChannel wraps a buffered channel and guarantees that producers never
// block: when the buffer is full the oldest element is discarded. A stale
// remote command is worthless once a newer one arrived, so drop-oldest is
// the right policy for the command hand-off.
//
// Writers call Send; readers treat C() as a normal <-chan T.
type RingChannel[T any] struct {
	ch chan T
}

// NewRingChannel creates a RingChannel with the given capacity.
func NewRingChannel[T any](capacity int) *RingChannel[T] {
	if capacity <= 0 {
		panic("queue: ring channel capacity must be > 0")
	}
	return &RingChannel[T]{ch: make(chan T, capacity)}
}

// C returns the underlying receive-only channel.
// Consumers can range over it until it is closed.
func (rc *RingChannel[T]) C() <-chan T {
	return rc.ch
}

// Send inserts an item, discarding the oldest buffered item if full.
// It never blocks indefinitely.
func (rc *RingChannel[T]) Send(v T) {
	select {
	case rc.ch <- v:
	default:
		select {
		case <-rc.ch: // drop oldest
		default:
		}
		rc.ch <- v
	}
}

// Receive blocks until a value is available or the channel is closed.
// The ok result is false if the channel is closed and drained.
func (rc *RingChannel[T]) Receive() (v T, ok bool) {
	v, ok = <-rc.ch
	return
}

// Len returns the number of buffered elements.
func (rc *RingChannel[T]) Len() int {
	return len(rc.ch)
}

// Cap returns the buffer capacity.
func (rc *RingChannel[T]) Cap() int {
	return cap(rc.ch)
}

// Close closes the underlying channel. After Close, Send panics.
func (rc *RingChannel[T]) Close() {
	close(rc.ch)
}
