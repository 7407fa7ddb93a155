package link

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock never blocks: Sleep records the requested duration and returns
// immediately (or ctx.Err() when the context is already gone).
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return ctx.Err()
}

func (c *fakeClock) sleepCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sleeps)
}

// fakeConn scripts a Conn for the subscriber and supervisor tests. WaitForData
// ignores the timeout and pops scripted payloads, so tests are deterministic.
type fakeConn struct {
	mu sync.Mutex

	svcErr    error
	charErr   error
	listenErr error
	descs     []*Descriptor
	descErr   error

	// writeErrs is consumed one per WriteDescriptor call; nil means success.
	// An exhausted script succeeds.
	writeErrs []error

	payloads [][]byte
	dataErr  error // returned once payloads are drained

	listened         bool
	wroteUnlistened  bool // a CCCD write happened before Listen
	writes           []*Descriptor
	writeValues      [][]byte
	disconnects      int
}

func (c *fakeConn) DiscoverService(uuid string) (*Service, error) {
	if c.svcErr != nil {
		return nil, c.svcErr
	}
	return &Service{UUID: uuid}, nil
}

func (c *fakeConn) DiscoverCharacteristic(svc *Service, uuid string) (*Characteristic, error) {
	if c.charErr != nil {
		return nil, c.charErr
	}
	return &Characteristic{UUID: uuid, ValueHandle: 0x0012}, nil
}

func (c *fakeConn) ListDescriptors(ch *Characteristic) ([]*Descriptor, error) {
	return c.descs, c.descErr
}

func (c *fakeConn) WriteDescriptor(d *Descriptor, value []byte, confirm bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, d)
	c.writeValues = append(c.writeValues, value)
	if !c.listened {
		c.wroteUnlistened = true
	}
	if len(c.writeErrs) == 0 {
		return nil
	}
	err := c.writeErrs[0]
	c.writeErrs = c.writeErrs[1:]
	return err
}

func (c *fakeConn) Listen(ch *Characteristic) error {
	if c.listenErr != nil {
		return c.listenErr
	}
	c.mu.Lock()
	c.listened = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) WaitForData(timeout time.Duration) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.payloads) == 0 {
		if c.dataErr != nil {
			return nil, c.dataErr
		}
		return nil, nil // liveness poll timeout
	}
	p := c.payloads[0]
	c.payloads = c.payloads[1:]
	return p, nil
}

func (c *fakeConn) Disconnect() {
	c.mu.Lock()
	c.disconnects++
	c.mu.Unlock()
}

func (c *fakeConn) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

func newTestSubscriber(clock Clock) (*Subscriber, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return NewSubscriber(logger, clock), hook
}

func TestSubscriberUsesDiscoveredCCCD(t *testing.T) {
	conn := &fakeConn{
		descs: []*Descriptor{
			{UUID: "2901", Handle: 0x0013},
			{UUID: "00002902-0000-1000-8000-00805f9b34fb", Handle: 0x0014},
		},
	}
	sub, _ := newTestSubscriber(newFakeClock())

	err := sub.Enable(context.Background(), conn, "180f", "2a19")
	require.NoError(t, err)

	require.Len(t, conn.writes, 1)
	assert.Equal(t, uint16(0x0014), conn.writes[0].Handle)
	assert.Equal(t, []byte{0x01, 0x00}, conn.writeValues[0])
	assert.True(t, conn.listened)
	assert.False(t, conn.wroteUnlistened, "listener must be installed before the CCCD write")
}

func TestSubscriberFallsBackToComputedHandle(t *testing.T) {
	// No CCCD among the discovered descriptors: the write goes to the
	// computed handle right after the value attribute.
	conn := &fakeConn{descs: []*Descriptor{{UUID: "2901", Handle: 0x0013}}}
	sub, _ := newTestSubscriber(newFakeClock())

	err := sub.Enable(context.Background(), conn, "180f", "2a19")
	require.NoError(t, err)

	require.Len(t, conn.writes, 1)
	assert.Equal(t, uint16(0x0013), conn.writes[0].Handle)
	assert.Equal(t, "2902", conn.writes[0].UUID)
}

func TestSubscriberFallsBackWhenDescriptorDiscoveryFails(t *testing.T) {
	conn := &fakeConn{descErr: fmt.Errorf("att timeout")}
	sub, _ := newTestSubscriber(newFakeClock())

	err := sub.Enable(context.Background(), conn, "180f", "2a19")
	require.NoError(t, err)

	require.Len(t, conn.writes, 1)
	assert.Equal(t, uint16(0x0013), conn.writes[0].Handle)
}

func TestSubscriberRetriesWrite(t *testing.T) {
	conn := &fakeConn{
		descs:     []*Descriptor{{UUID: "2902", Handle: 0x0014}},
		writeErrs: []error{fmt.Errorf("%w: handle 0x0014: busy", ErrWriteFailed), nil},
	}
	clock := newFakeClock()
	sub, _ := newTestSubscriber(clock)

	err := sub.Enable(context.Background(), conn, "180f", "2a19")
	require.NoError(t, err)

	assert.Equal(t, 2, conn.writeCount())
	assert.Equal(t, 1, clock.sleepCount())
}

func TestSubscriberWriteExhaustionFails(t *testing.T) {
	writeErr := fmt.Errorf("%w: handle 0x0014: rejected", ErrWriteFailed)
	conn := &fakeConn{
		descs:     []*Descriptor{{UUID: "2902", Handle: 0x0014}},
		writeErrs: []error{writeErr, writeErr, writeErr},
	}
	sub, _ := newTestSubscriber(newFakeClock())

	err := sub.Enable(context.Background(), conn, "180f", "2a19")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubscriptionFailed)
	assert.Equal(t, 3, conn.writeCount())
}

func TestSubscriberServiceNotFound(t *testing.T) {
	conn := &fakeConn{svcErr: &NotFoundError{Resource: "service", UUIDs: []string{"180f"}}}
	sub, _ := newTestSubscriber(newFakeClock())

	err := sub.Enable(context.Background(), conn, "180f", "2a19")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Zero(t, conn.writeCount())
}

func TestSubscriberListenFailure(t *testing.T) {
	conn := &fakeConn{listenErr: errors.New("subscribe rejected")}
	sub, _ := newTestSubscriber(newFakeClock())

	err := sub.Enable(context.Background(), conn, "180f", "2a19")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubscriptionFailed)
	assert.Zero(t, conn.writeCount(), "no CCCD write without a listener")
}
