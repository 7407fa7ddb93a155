// Package scan discovers nearby BLE peripherals so the remote's address can
// be found during setup.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/slidelink/internal/link"
)

// Result is one discovered peripheral.
type Result struct {
	Address     string
	Name        string
	RSSI        int
	Connectable bool
	Services    []string
	LastSeen    time.Time
}

// Options configures scanning behavior.
type Options struct {
	Duration        time.Duration
	DuplicateFilter bool
	ServiceUUID     string // only report devices advertising this service
	NameFilter      string // only report devices with this exact local name
}

// DefaultOptions returns the default scan configuration.
func DefaultOptions() *Options {
	return &Options{
		Duration:        10 * time.Second,
		DuplicateFilter: true,
	}
}

// Scanner handles BLE device discovery.
type Scanner struct {
	logger  *logrus.Logger
	results map[string]*Result
	mu      sync.RWMutex
}

// NewScanner creates a Scanner on the local HCI device.
func NewScanner(logger *logrus.Logger) (*Scanner, error) {
	if logger == nil {
		logger = logrus.New()
	}

	dev, err := link.DeviceFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to create BLE device: %w", err)
	}
	ble.SetDefaultDevice(dev)

	return &Scanner{
		logger:  logger,
		results: make(map[string]*Result),
	}, nil
}

// Scan discovers peripherals until the duration elapses or ctx is
// cancelled.
func (s *Scanner) Scan(ctx context.Context, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}

	s.logger.WithField("duration", opts.Duration).Info("Starting BLE scan")

	scanCtx := ctx
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	filter := func(adv ble.Advertisement) bool {
		return s.shouldInclude(adv, opts)
	}

	err := ble.Scan(scanCtx, opts.DuplicateFilter, s.handleAdvertisement, filter)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("scan failed: %w", err)
	}

	s.logger.WithField("device_count", len(s.Results())).Info("BLE scan completed")
	return nil
}

func (s *Scanner) handleAdvertisement(adv ble.Advertisement) {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := adv.Addr().String()
	r, ok := s.results[addr]
	if !ok {
		r = &Result{Address: addr}
		s.results[addr] = r
		s.logger.WithFields(logrus.Fields{
			"address": addr,
			"name":    adv.LocalName(),
			"rssi":    adv.RSSI(),
		}).Info("Discovered device")
	}

	if name := adv.LocalName(); name != "" {
		r.Name = name
	}
	r.RSSI = adv.RSSI()
	r.Connectable = adv.Connectable()
	r.LastSeen = time.Now()
	r.Services = r.Services[:0]
	for _, u := range adv.Services() {
		r.Services = append(r.Services, u.String())
	}
}

func (s *Scanner) shouldInclude(adv ble.Advertisement, opts *Options) bool {
	if opts.NameFilter != "" && adv.LocalName() != opts.NameFilter {
		return false
	}

	if opts.ServiceUUID != "" {
		for _, u := range adv.Services() {
			if link.EqualUUID(u.String(), opts.ServiceUUID) {
				return true
			}
		}
		return false
	}

	return true
}

// Results returns a snapshot of the discovered peripherals.
func (s *Scanner) Results() []Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Result, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, *r)
	}
	return out
}
