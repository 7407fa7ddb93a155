// Package link implements the wireless side of the presentation remote: the
// raw BLE transport primitives, the notification-enable protocol sequence,
// and the connection supervisor that keeps the link alive for the lifetime
// of the process.
package link

import (
	"context"
	"fmt"
	"time"

	"github.com/go-ble/ble"
)

// AddrType tags a peripheral address as public or random. Which one a given
// remote uses depends on its firmware, so Connect tries the configured hint
// first and falls back to the other type once.
type AddrType string

const (
	AddrTypePublic AddrType = "public"
	AddrTypeRandom AddrType = "random"
)

// Other returns the opposite address type, used for the connect fallback.
func (t AddrType) Other() AddrType {
	if t == AddrTypeRandom {
		return AddrTypePublic
	}
	return AddrTypeRandom
}

// ParseAddrType converts a configuration string into an AddrType.
func ParseAddrType(s string) (AddrType, error) {
	switch AddrType(s) {
	case AddrTypePublic, AddrTypeRandom:
		return AddrType(s), nil
	case "":
		return AddrTypeRandom, nil
	default:
		return "", fmt.Errorf("invalid address type %q: use public or random", s)
	}
}

// Address identifies the remote peripheral. Immutable, supplied by
// configuration.
type Address struct {
	MAC  string
	Type AddrType
}

func (a Address) String() string {
	return fmt.Sprintf("%s/%s", a.MAC, a.Type)
}

// Service is a discovered GATT service handle.
type Service struct {
	UUID string

	svc *ble.Service
}

// Characteristic is a discovered GATT characteristic handle. ValueHandle is
// kept for the computed-CCCD fallback.
type Characteristic struct {
	UUID        string
	ValueHandle uint16

	char *ble.Characteristic
}

// Descriptor is a discovered (or synthesized) GATT descriptor handle. A
// Descriptor with only Handle set addresses an attribute directly; the
// transport accepts both forms.
type Descriptor struct {
	UUID   string
	Handle uint16

	desc *ble.Descriptor
}

// Transport provides raw connect primitives over the wireless protocol.
// It carries no reconnection policy; that belongs to the Supervisor.
type Transport interface {
	// Connect dials the peripheral, trying the hinted address type first and
	// the other type once before failing with ErrLinkUnavailable.
	Connect(ctx context.Context, addr Address) (Conn, error)
}

// Conn is a live connection to the peripheral. All methods are called from
// the single link goroutine; implementations need not be safe for
// concurrent use except Disconnect, which must be idempotent.
type Conn interface {
	// DiscoverService finds the primary service with the given UUID,
	// failing with a NotFoundError if the remote does not offer it.
	DiscoverService(uuid string) (*Service, error)

	// DiscoverCharacteristic finds a characteristic within svc.
	DiscoverCharacteristic(svc *Service, uuid string) (*Characteristic, error)

	// ListDescriptors enumerates the descriptors of a characteristic.
	ListDescriptors(ch *Characteristic) ([]*Descriptor, error)

	// WriteDescriptor writes value to d. confirm requests a write-with-
	// response so the remote acknowledges the change.
	WriteDescriptor(d *Descriptor, value []byte, confirm bool) error

	// Listen installs the notification callback that feeds WaitForData.
	// It must be called before notifications are enabled on the remote,
	// otherwise early notifications are lost.
	Listen(ch *Characteristic) error

	// WaitForData blocks until a notification payload arrives, the timeout
	// elapses, or the link dies. A timeout is not an error: it returns
	// (nil, nil) so the caller can poll for liveness. A dead link returns
	// ErrLinkClosed.
	WaitForData(timeout time.Duration) ([]byte, error)

	// Disconnect releases the connection. Idempotent; never fails
	// observably.
	Disconnect()
}
