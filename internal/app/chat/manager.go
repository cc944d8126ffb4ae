package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"relaychat/internal/app/registry"
	"relaychat/internal/pkg/logx"
)

// ErrShuttingDown is returned by Serve once Shutdown has begun.
var ErrShuttingDown = errors.New("session manager is shutting down")

// Manager tracks every live Session so that the relay can shut down gracefully.
type Manager struct {
	registry *registry.Registry
	metrics  *Metrics
	opts     Options

	// ctx is the parent of every session's context; cancel ends them all.
	ctx    context.Context
	cancel context.CancelFunc

	// mu protects sessions and closing.
	mu       sync.Mutex
	sessions map[string]*Session
	closing  bool

	// wg counts sessions whose Run has not returned.
	wg sync.WaitGroup

	// structured logger with Manager context.
	logger zerolog.Logger
}

// NewManager constructs a Manager creating sessions against reg.
func NewManager(reg *registry.Registry, metrics *Metrics, opts Options) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		registry: reg,
		metrics:  metrics,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
		logger:   logx.Component("manager"),
	}
}

// NewSession creates an untracked session for conn using the manager's options.
func (m *Manager) NewSession(conn Conn) *Session {
	return NewSession(conn, m.registry, m.metrics, m.opts)
}

// Serve runs sess until it ends. It blocks for the lifetime of the connection.
// Once Shutdown has begun the session is closed immediately and ErrShuttingDown returned.
func (m *Manager) Serve(sess *Session) error {
	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		sess.writeClose(websocket.CloseGoingAway, "server shutting down")
		sess.cleanup()
		return ErrShuttingDown
	}
	m.sessions[sess.ID] = sess
	m.wg.Add(1)
	count := len(m.sessions)
	m.mu.Unlock()

	m.metrics.RecordActiveSessions(count)

	defer func() {
		m.mu.Lock()
		delete(m.sessions, sess.ID)
		count := len(m.sessions)
		m.mu.Unlock()

		m.metrics.RecordActiveSessions(count)
		m.wg.Done()
	}()

	sess.Run(m.ctx)
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown stops accepting sessions, asks every live session to close and waits
// for them to finish or for ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closing = true
	live := len(m.sessions)
	m.mu.Unlock()

	m.logger.Info().Int("sessions", live).Msg("Shutting down sessions...")
	m.cancel()

	finished := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		m.logger.Info().Msg("Manager shutdown complete.")
		return nil
	case <-ctx.Done():
		m.logger.Warn().Int("sessions", m.Count()).Msg("Shutdown deadline reached with sessions still open")
		return ctx.Err()
	}
}
