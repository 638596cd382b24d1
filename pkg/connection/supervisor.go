package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrSupervisorRunning is returned when Run is called twice.
var ErrSupervisorRunning = errors.New("supervisor already running")

// State represents the link state.
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Session is one established link. Wait blocks until the link ends and
// returns the reason; Close ends it early.
type Session interface {
	Wait() error
	Close() error
}

// DialFunc establishes a session.
type DialFunc func(ctx context.Context) (Session, error)

// Config configures a Supervisor.
type Config struct {
	Backoff BackoffConfig

	// AttemptTimeout bounds a single dial. Default 10s.
	AttemptTimeout time.Duration

	// Logger receives link state changes. Nil disables logging.
	Logger *slog.Logger

	// OnStateChange is called after every transition.
	OnStateChange func(old, new State)
}

// Supervisor keeps a session to the controller alive.
type Supervisor struct {
	dial    DialFunc
	cfg     Config
	backoff *Backoff

	mu        sync.Mutex
	state     State
	running   bool
	connected chan struct{}
}

// NewSupervisor creates a supervisor for dial.
func NewSupervisor(dial DialFunc, cfg Config) *Supervisor {
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}
	return &Supervisor{
		dial:      dial,
		cfg:       cfg,
		backoff:   NewBackoff(cfg.Backoff),
		connected: make(chan struct{}),
	}
}

// State returns the current link state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// WaitConnected blocks until a session is established or ctx is done.
func (s *Supervisor) WaitConnected(ctx context.Context) error {
	for {
		s.mu.Lock()
		state, ch := s.state, s.connected
		s.mu.Unlock()

		switch state {
		case StateConnected:
			return nil
		case StateClosed:
			return ErrClosed
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// ErrClosed is returned by WaitConnected after Run has returned.
var ErrClosed = errors.New("supervisor closed")

// Run dials, waits for the session to end and redials with backoff until
// ctx is cancelled. It returns ctx.Err().
func (s *Supervisor) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSupervisorRunning
	}
	s.running = true
	s.mu.Unlock()
	defer s.setState(StateClosed)

	for {
		if s.backoff.Attempts() == 0 && s.State() == StateDisconnected {
			s.setState(StateConnecting)
		}

		dialCtx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
		sess, err := s.dial(dialCtx)
		cancel()

		if err == nil {
			s.backoff.Reset()
			s.setState(StateConnected)

			done := make(chan error, 1)
			go func() { done <- sess.Wait() }()

			select {
			case <-ctx.Done():
				_ = sess.Close()
				<-done
				return ctx.Err()
			case err = <-done:
			}
			s.debug("controller session ended", "error", err)
		} else {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.debug("controller dial failed", "error", err, "attempt", s.backoff.Attempts()+1)
		}

		s.setState(StateReconnecting)
		if err := s.backoff.Wait(ctx); err != nil {
			return err
		}
	}
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	old := s.state
	if old == state {
		s.mu.Unlock()
		return
	}
	s.state = state
	if state == StateConnected || state == StateClosed {
		close(s.connected)
		s.connected = make(chan struct{})
	}
	s.mu.Unlock()

	if s.cfg.Logger != nil {
		s.cfg.Logger.Info("controller link", "state", state.String(), "previous", old.String())
	}
	if s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(old, state)
	}
}

func (s *Supervisor) debug(msg string, args ...any) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Debug(msg, args...)
	}
}
