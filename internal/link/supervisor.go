package link

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/srg/slidelink/internal/queue"
)

// State is the supervisor's connection state. It is written only by the
// link goroutine and read atomically by anyone else (typically the UI
// status line).
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribing
	StateActive
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribing:
		return "subscribing"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// SupervisorConfig tunes the reconnection state machine.
type SupervisorConfig struct {
	Address            Address
	ServiceUUID        string
	CharacteristicUUID string

	// ConnectRetries is the number of connect attempts per cycle.
	ConnectRetries int
	// ConnectRetryDelay is the fixed delay between connect attempts.
	ConnectRetryDelay time.Duration
	// Cooldown is the pause after a failed cycle before the next one.
	Cooldown time.Duration
	// WaitTimeout bounds each WaitForData call; it is the supervisor's
	// liveness poll interval while Active.
	WaitTimeout time.Duration
	// CommandBuffer is the capacity of the outbound command ring.
	CommandBuffer int
}

// DefaultSupervisorConfig returns the retry policy the remote firmware is
// tuned for: 3 attempts, 2s apart, 2s cooldown, 1s data poll.
func DefaultSupervisorConfig(addr Address, serviceUUID, charUUID string) SupervisorConfig {
	return SupervisorConfig{
		Address:            addr,
		ServiceUUID:        serviceUUID,
		CharacteristicUUID: charUUID,
		ConnectRetries:     3,
		ConnectRetryDelay:  2 * time.Second,
		Cooldown:           2 * time.Second,
		WaitTimeout:        1 * time.Second,
		CommandBuffer:      16,
	}
}

// Supervisor owns the wireless link for the lifetime of the process. It
// runs the connect/subscribe/wait cycle on a single goroutine, never gives
// up (wireless remotes are intermittently reachable by nature; availability
// wins over fail-fast), and emits decoded commands through a drop-oldest
// ring consumed by the UI goroutine.
type Supervisor struct {
	transport  Transport
	subscriber *Subscriber
	cfg        SupervisorConfig
	clock      Clock
	logger     *logrus.Logger

	state    atomic.Int32
	onState  func(State)
	commands *queue.RingChannel[Command]
}

// NewSupervisor creates a Supervisor. transport is required; subscriber,
// clock, and logger default when nil.
func NewSupervisor(transport Transport, subscriber *Subscriber, cfg SupervisorConfig, clock Clock, logger *logrus.Logger) *Supervisor {
	if logger == nil {
		logger = logrus.New()
	}
	if clock == nil {
		clock = SystemClock()
	}
	if subscriber == nil {
		subscriber = NewSubscriber(logger, clock)
	}
	if cfg.CommandBuffer <= 0 {
		cfg.CommandBuffer = 16
	}
	return &Supervisor{
		transport:  transport,
		subscriber: subscriber,
		cfg:        cfg,
		clock:      clock,
		logger:     logger,
		commands:   queue.NewRingChannel[Command](cfg.CommandBuffer),
	}
}

// State returns the current connection state. Safe from any goroutine.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// SetStateListener registers a callback invoked on every state transition.
// The callback runs on the link goroutine and must not block; set it before
// Run starts.
func (s *Supervisor) SetStateListener(fn func(State)) {
	s.onState = fn
}

// Commands returns the channel of decoded remote commands. It is closed
// when Run exits.
func (s *Supervisor) Commands() <-chan Command {
	return s.commands.C()
}

// Run drives the reconnection state machine until ctx is cancelled. Every
// failure path releases the connection, reverts to Disconnected, cools
// down, and starts the next cycle.
func (s *Supervisor) Run(ctx context.Context) {
	defer s.commands.Close()
	defer s.setState(StateDisconnected)

	for {
		if ctx.Err() != nil {
			return
		}

		if err := s.runCycle(ctx); err != nil && ctx.Err() == nil {
			s.logger.WithError(err).Error("Link cycle ended")
		}

		s.setState(StateDisconnected)

		if err := s.clock.Sleep(ctx, s.cfg.Cooldown); err != nil {
			return
		}
	}
}

// runCycle performs one full connect → subscribe → wait-for-data cycle.
// It returns when the cycle fails or ctx is cancelled; the connection is
// released on every exit path.
func (s *Supervisor) runCycle(ctx context.Context) error {
	log := s.logger.WithField("cycle", uuid.NewString()[:8])

	s.setState(StateConnecting)
	conn, err := s.connectWithRetry(ctx, log)
	if err != nil {
		return err
	}
	defer conn.Disconnect()

	s.setState(StateSubscribing)
	if err := s.subscriber.Enable(ctx, conn, s.cfg.ServiceUUID, s.cfg.CharacteristicUUID); err != nil {
		log.WithError(err).Error("Notification setup failed")
		return err
	}

	s.setState(StateActive)
	log.Info("Link active, listening for remote commands")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := conn.WaitForData(s.cfg.WaitTimeout)
		if err != nil {
			log.WithError(err).Warn("Link lost")
			return err
		}
		if data == nil {
			continue // liveness poll timeout
		}

		cmd, ok := ParseCommand(data)
		if !ok {
			log.WithField("payload", string(data)).Warn("Ignoring unrecognized payload")
			continue
		}

		log.WithField("command", cmd).Info("Received remote command")
		s.commands.Send(cmd)
	}
}

// connectWithRetry dials up to ConnectRetries times with a fixed delay
// between attempts. The address-type fallback happens inside each
// Transport.Connect call.
func (s *Supervisor) connectWithRetry(ctx context.Context, log *logrus.Entry) (Conn, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.ConnectRetries; attempt++ {
		log.WithFields(logrus.Fields{
			"address": s.cfg.Address.String(),
			"attempt": attempt,
			"max":     s.cfg.ConnectRetries,
		}).Info("Connecting to remote")

		conn, err := s.transport.Connect(ctx, s.cfg.Address)
		if err == nil {
			log.Info("Connected")
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		log.WithFields(logrus.Fields{
			"attempt": attempt,
			"error":   err,
		}).Error("Connection attempt failed")

		if attempt < s.cfg.ConnectRetries {
			if err := s.clock.Sleep(ctx, s.cfg.ConnectRetryDelay); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

func (s *Supervisor) setState(st State) {
	if State(s.state.Swap(int32(st))) == st {
		return
	}
	s.logger.WithField("state", st.String()).Info("Link state changed")
	if s.onState != nil {
		s.onState(st)
	}
}
