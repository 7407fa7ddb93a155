package link

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// cccdUUID is the Client Characteristic Configuration descriptor, the
// standard attribute controlling notification delivery.
const cccdUUID = "2902"

// enableNotificationValue is the 2-byte CCCD value enabling notifications
// (bit 0), little endian.
var enableNotificationValue = []byte{0x01, 0x00}

// Subscriber performs the discovery and notification-enable protocol
// sequence on top of a Conn.
type Subscriber struct {
	logger *logrus.Logger
	clock  Clock

	// WriteAttempts bounds CCCD write retries before the sequence fails
	// with ErrSubscriptionFailed.
	WriteAttempts int
	// WriteRetryDelay is the fixed delay between CCCD write attempts.
	WriteRetryDelay time.Duration
}

// NewSubscriber creates a Subscriber with the default retry budget.
func NewSubscriber(logger *logrus.Logger, clock Clock) *Subscriber {
	if logger == nil {
		logger = logrus.New()
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &Subscriber{
		logger:          logger,
		clock:           clock,
		WriteAttempts:   3,
		WriteRetryDelay: 500 * time.Millisecond,
	}
}

// Enable discovers the target service and characteristic, installs the
// notification listener, and writes the CCCD enable value. On peripherals
// that do not expose a CCCD through discovery it falls back to the computed
// handle (value handle + 1); that is a best-effort compatibility shim, not
// guaranteed correct on all firmwares.
func (s *Subscriber) Enable(ctx context.Context, conn Conn, serviceUUID, charUUID string) error {
	svc, err := conn.DiscoverService(serviceUUID)
	if err != nil {
		return err
	}

	char, err := conn.DiscoverCharacteristic(svc, charUUID)
	if err != nil {
		return err
	}

	// Install the listener before enabling delivery so nothing sent by the
	// remote right after the CCCD write is lost.
	if err := conn.Listen(char); err != nil {
		return fmt.Errorf("%w: %v", ErrSubscriptionFailed, err)
	}

	cccd := s.findCCCD(conn, char)

	for attempt := 1; ; attempt++ {
		s.logger.WithFields(logrus.Fields{
			"handle":  fmt.Sprintf("0x%04x", cccd.Handle),
			"attempt": attempt,
			"max":     s.WriteAttempts,
		}).Info("Enabling notifications")

		err = conn.WriteDescriptor(cccd, enableNotificationValue, true)
		if err == nil {
			s.logger.Info("Notifications enabled")
			return nil
		}

		s.logger.WithFields(logrus.Fields{
			"attempt": attempt,
			"error":   err,
		}).Error("Failed to enable notifications")

		if attempt >= s.WriteAttempts {
			return fmt.Errorf("%w: %v", ErrSubscriptionFailed, err)
		}
		if err := s.clock.Sleep(ctx, s.WriteRetryDelay); err != nil {
			return err
		}
	}
}

// findCCCD locates the standard CCCD among the characteristic's
// descriptors. When discovery yields nothing it synthesizes a descriptor at
// the computed handle; some firmwares place the CCCD directly after the
// value attribute but do not answer descriptor discovery.
func (s *Subscriber) findCCCD(conn Conn, char *Characteristic) *Descriptor {
	descs, err := conn.ListDescriptors(char)
	if err != nil {
		s.logger.WithError(err).Warn("Descriptor discovery failed, using computed CCCD handle")
	} else {
		for _, d := range descs {
			s.logger.WithFields(logrus.Fields{
				"descriptor": d.UUID,
				"handle":     fmt.Sprintf("0x%04x", d.Handle),
			}).Debug("Found descriptor")
			if EqualUUID(d.UUID, cccdUUID) {
				return d
			}
		}
		s.logger.Info("CCCD not found by discovery, using computed handle")
	}

	return &Descriptor{UUID: cccdUUID, Handle: char.ValueHandle + 1}
}
