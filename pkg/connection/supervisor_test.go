package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	done   chan error
	closed atomic.Bool
	once   sync.Once
}

func newFakeSession() *fakeSession {
	return &fakeSession{done: make(chan error, 1)}
}

func (s *fakeSession) Wait() error { return <-s.done }

func (s *fakeSession) Close() error {
	s.once.Do(func() {
		s.closed.Store(true)
		s.done <- errors.New("closed")
	})
	return nil
}

func (s *fakeSession) drop() {
	s.once.Do(func() { s.done <- errors.New("connection lost") })
}

var fastBackoff = BackoffConfig{
	Initial:    10 * time.Millisecond,
	Max:        40 * time.Millisecond,
	Multiplier: 2,
	Jitter:     -1,
}

func TestSupervisorConnects(t *testing.T) {
	sess := newFakeSession()
	s := NewSupervisor(func(ctx context.Context) (Session, error) {
		return sess, nil
	}, Config{Backoff: fastBackoff})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.NoError(t, s.WaitConnected(waitCtx))
	assert.Equal(t, StateConnected, s.State())

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	assert.True(t, sess.closed.Load())
	assert.Equal(t, StateClosed, s.State())
	assert.ErrorIs(t, s.WaitConnected(context.Background()), ErrClosed)
}

func TestSupervisorRedialsWithBackoff(t *testing.T) {
	var dials atomic.Int32
	sessions := make(chan *fakeSession, 4)

	s := NewSupervisor(func(ctx context.Context) (Session, error) {
		n := dials.Add(1)
		if n == 2 {
			return nil, errors.New("refused")
		}
		sess := newFakeSession()
		sessions <- sess
		return sess, nil
	}, Config{Backoff: fastBackoff})

	var mu sync.Mutex
	var transitions []State
	s.cfg.OnStateChange = func(_, new State) {
		mu.Lock()
		transitions = append(transitions, new)
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	first := <-sessions
	first.drop()

	select {
	case <-sessions:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not redial")
	}

	assert.Equal(t, int32(3), dials.Load())
	require.Eventually(t, func() bool { return s.State() == StateConnected }, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateConnecting, StateConnected, StateReconnecting, StateConnected}, transitions)
}

func TestSupervisorRunTwice(t *testing.T) {
	s := NewSupervisor(func(ctx context.Context) (Session, error) {
		return newFakeSession(), nil
	}, Config{Backoff: fastBackoff})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.State() == StateConnected }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, s.Run(ctx), ErrSupervisorRunning)
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateDisconnected: "DISCONNECTED",
		StateConnecting:   "CONNECTING",
		StateConnected:    "CONNECTED",
		StateReconnecting: "RECONNECTING",
		StateClosed:       "CLOSED",
		State(99):         "UNKNOWN",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
