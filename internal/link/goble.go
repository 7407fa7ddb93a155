package link

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
	"github.com/go-ble/ble/linux/hci"
	"github.com/sirupsen/logrus"

	"github.com/srg/slidelink/internal/queue"
)

const (
	// notifyBuffer is the capacity of the per-connection inbound buffer.
	// Remote presses are sparse; anything beyond a handful means the
	// consumer stalled and older presses are stale anyway.
	notifyBuffer = 16

	// connectTimeout bounds a single dial attempt so the supervisor's retry
	// loop stays responsive.
	connectTimeout = 10 * time.Second
)

// DeviceFactory creates the HCI device (overridable in tests).
var DeviceFactory = func() (ble.Device, error) {
	return linux.NewDevice()
}

// BLETransport is the production Transport backed by go-ble.
type BLETransport struct {
	logger *logrus.Logger

	// dial performs a single dial attempt with one address type
	// (overridable in tests, like DeviceFactory).
	dial func(ctx context.Context, mac string, typ AddrType) (ble.Client, error)

	deviceOnce sync.Once
	deviceErr  error
}

// NewBLETransport creates a Transport over the local HCI device. The device
// itself is opened lazily on the first dial.
func NewBLETransport(logger *logrus.Logger) *BLETransport {
	if logger == nil {
		logger = logrus.New()
	}
	t := &BLETransport{logger: logger}
	t.dial = t.hciDial
	return t
}

func (t *BLETransport) ensureDevice() error {
	t.deviceOnce.Do(func() {
		dev, err := DeviceFactory()
		if err != nil {
			t.deviceErr = fmt.Errorf("failed to create BLE device: %w", err)
			return
		}
		ble.SetDefaultDevice(dev)
	})
	return t.deviceErr
}

// Connect dials the peripheral with the hinted address type, falling back to
// the other type once before giving up with ErrLinkUnavailable.
func (t *BLETransport) Connect(ctx context.Context, addr Address) (Conn, error) {
	client, err := t.dial(ctx, addr.MAC, addr.Type)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		fallback := addr.Type.Other()
		t.logger.WithFields(logrus.Fields{
			"address":   addr.MAC,
			"addr_type": addr.Type,
			"fallback":  fallback,
			"error":     err,
		}).Debug("Dial failed with hinted address type, trying fallback")
		client, err = t.dial(ctx, addr.MAC, fallback)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrLinkUnavailable, err)
	}

	t.logger.WithField("address", addr.MAC).Debug("Dialed BLE device")
	return newBLEConn(client, t.logger), nil
}

func (t *BLETransport) hciDial(ctx context.Context, mac string, typ AddrType) (ble.Client, error) {
	if err := t.ensureDevice(); err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	a := ble.NewAddr(mac)
	if typ == AddrTypeRandom {
		a = hci.RandomAddress{Addr: a}
	}
	return ble.Dial(dialCtx, a)
}

// bleConn adapts a ble.Client to the Conn interface. Notification payloads
// are copied into the inbound ring buffer by the go-ble callback goroutine
// and drained by WaitForData on the link goroutine.
type bleConn struct {
	client       ble.Client
	logger       *logrus.Logger
	inbound      *queue.RingChannel[[]byte]
	disconnected <-chan struct{}
	closed       atomic.Bool
}

func newBLEConn(client ble.Client, logger *logrus.Logger) *bleConn {
	c := &bleConn{
		client:  client,
		logger:  logger,
		inbound: queue.NewRingChannel[[]byte](notifyBuffer),
	}
	// Not every client implementation exposes the disconnect channel.
	if dc, ok := client.(interface{ Disconnected() <-chan struct{} }); ok {
		c.disconnected = dc.Disconnected()
	}
	return c
}

func (c *bleConn) DiscoverService(uuid string) (*Service, error) {
	u, err := ble.Parse(uuid)
	if err != nil {
		return nil, fmt.Errorf("invalid service UUID %q: %w", uuid, err)
	}

	svcs, err := c.client.DiscoverServices([]ble.UUID{u})
	if err != nil {
		return nil, fmt.Errorf("service discovery failed: %w", err)
	}
	if len(svcs) == 0 {
		return nil, &NotFoundError{Resource: "service", UUIDs: []string{uuid}}
	}

	c.logger.WithField("service", svcs[0].UUID.String()).Debug("Discovered service")
	return &Service{UUID: svcs[0].UUID.String(), svc: svcs[0]}, nil
}

func (c *bleConn) DiscoverCharacteristic(svc *Service, uuid string) (*Characteristic, error) {
	u, err := ble.Parse(uuid)
	if err != nil {
		return nil, fmt.Errorf("invalid characteristic UUID %q: %w", uuid, err)
	}

	chars, err := c.client.DiscoverCharacteristics([]ble.UUID{u}, svc.svc)
	if err != nil {
		return nil, fmt.Errorf("characteristic discovery failed: %w", err)
	}
	if len(chars) == 0 {
		return nil, &NotFoundError{Resource: "characteristic", UUIDs: []string{svc.UUID, uuid}}
	}

	c.logger.WithFields(logrus.Fields{
		"characteristic": chars[0].UUID.String(),
		"value_handle":   chars[0].ValueHandle,
	}).Debug("Discovered characteristic")
	return &Characteristic{
		UUID:        chars[0].UUID.String(),
		ValueHandle: chars[0].ValueHandle,
		char:        chars[0],
	}, nil
}

func (c *bleConn) ListDescriptors(ch *Characteristic) ([]*Descriptor, error) {
	descs, err := c.client.DiscoverDescriptors(nil, ch.char)
	if err != nil {
		return nil, fmt.Errorf("descriptor discovery failed: %w", err)
	}

	result := make([]*Descriptor, 0, len(descs))
	for _, d := range descs {
		result = append(result, &Descriptor{UUID: d.UUID.String(), Handle: d.Handle, desc: d})
	}
	return result, nil
}

func (c *bleConn) WriteDescriptor(d *Descriptor, value []byte, confirm bool) error {
	// confirm is accepted for interface symmetry: the underlying ATT write
	// for descriptors is always a write request, which carries a response.
	_ = confirm

	target := d.desc
	if target == nil {
		// Synthesized descriptor addressed by handle only (the computed
		// CCCD fallback path).
		u, err := ble.Parse(d.UUID)
		if err != nil {
			return fmt.Errorf("invalid descriptor UUID %q: %w", d.UUID, err)
		}
		target = &ble.Descriptor{UUID: u, Handle: d.Handle}
	}

	if err := c.client.WriteDescriptor(target, value); err != nil {
		return fmt.Errorf("%w: handle 0x%04x: %v", ErrWriteFailed, d.Handle, err)
	}
	return nil
}

func (c *bleConn) Listen(ch *Characteristic) error {
	err := c.client.Subscribe(ch.char, false, func(data []byte) {
		// go-ble reuses the notification buffer between callbacks.
		payload := make([]byte, len(data))
		copy(payload, data)
		c.inbound.Send(payload)
	})
	if err != nil {
		return fmt.Errorf("failed to install notification handler: %w", err)
	}
	return nil
}

func (c *bleConn) WaitForData(timeout time.Duration) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrLinkClosed
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data := <-c.inbound.C():
		return data, nil
	case <-c.disconnected:
		return nil, ErrLinkClosed
	case <-timer.C:
		return nil, nil
	}
}

// Disconnect releases the connection. Safe to call more than once; errors
// from the remote are logged, never surfaced.
func (c *bleConn) Disconnect() {
	if c.closed.Swap(true) {
		return
	}
	if err := c.client.CancelConnection(); err != nil {
		c.logger.WithError(err).Warn("Error disconnecting from BLE device")
		return
	}
	c.logger.Debug("Disconnected from BLE device")
}
