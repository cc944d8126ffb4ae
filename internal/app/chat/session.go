/*
Package chat implements the relay's session engine.

Each WebSocket connection is served by one Session. A reader goroutine feeds
inbound frames to the session loop, which multiplexes them against the session's
Outbox. The loop is the only writer to the connection: command status lines go
out as text frames, notifications queued by other sessions as binary frames.
*/
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"relaychat/internal/app/command"
	"relaychat/internal/app/registry"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/randx"
)

const (
	// timeout duration for writing one frame to the WebSocket connection.
	writeWait = 10 * time.Second

	// DefaultMaxFrameSize bounds the size of one inbound frame.
	DefaultMaxFrameSize = 1 << 20
)

// errSessionQuit ends the session loop after a quit command.
var errSessionQuit = errors.New("session quit")

// Conn is the part of *websocket.Conn the session engine uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	Close() error
}

// Options tunes new sessions.
type Options struct {
	// OutboxLimit bounds each session's outbox; 0 leaves it unbounded.
	OutboxLimit int

	// MaxFrameSize bounds inbound frames; 0 uses DefaultMaxFrameSize.
	MaxFrameSize int64
}

type sessionState int

const (
	stateUnauthenticated sessionState = iota
	stateAuthenticated
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateUnauthenticated:
		return "unauthenticated"
	case stateAuthenticated:
		return "authenticated"
	case stateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// inboundFrame is one result of conn.ReadMessage handed from the reader to the loop.
type inboundFrame struct {
	kind int
	data []byte
	err  error
}

// Session is the server side of one live connection.
type Session struct {
	// ID identifies the connection in logs.
	ID string

	conn     Conn
	registry *registry.Registry
	outbox   *Outbox
	metrics  *Metrics

	// state and user are only touched by the session loop.
	state sessionState
	user  string

	// inbound carries frames from readPump to the loop.
	inbound chan inboundFrame

	// done is closed when the loop exits so readPump stops handing over frames.
	done chan struct{}

	logger zerolog.Logger
}

// NewSession wraps conn in a Session bound to reg.
func NewSession(conn Conn, reg *registry.Registry, metrics *Metrics, opts Options) *Session {
	id := randx.SessionID()

	maxFrame := opts.MaxFrameSize
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrameSize
	}
	conn.SetReadLimit(maxFrame)

	return &Session{
		ID:       id,
		conn:     conn,
		registry: reg,
		outbox:   NewOutbox(opts.OutboxLimit),
		metrics:  metrics,
		state:    stateUnauthenticated,
		inbound:  make(chan inboundFrame),
		done:     make(chan struct{}),
		logger:   logx.Logger().With().Str("component", "session").Str("session_id", id).Logger(),
	}
}

// User returns the authenticated user name, or "" before login.
func (s *Session) User() string {
	return s.user
}

// Preauthenticate starts the session logged in as name, as if a login had succeeded.
// It must be called before Run.
func (s *Session) Preauthenticate(name string) error {
	err := s.registry.Update(func(tx *registry.Tx) error {
		if !tx.UserExists(name) {
			return errs.NewError(errs.ErrUserNotFound)
		}
		tx.SetOnline(name, s.outbox)
		return nil
	})
	if err != nil {
		return err
	}

	s.becomeAuthenticated(name)
	return nil
}

func (s *Session) becomeAuthenticated(name string) {
	s.state = stateAuthenticated
	s.user = name
	s.logger = s.logger.With().Str("user", name).Logger()
	s.logger.Info().Msg("Session authenticated")
}

// Run serves the connection until the peer closes it, a stream error occurs,
// the peer sends quit, or ctx is cancelled. It always cleans up before returning.
func (s *Session) Run(ctx context.Context) {
	defer s.cleanup()

	go s.readPump()

	s.logger.Info().Msg("Session started")

	for {
		select {
		case <-ctx.Done():
			s.writeClose(websocket.CloseGoingAway, "server shutting down")
			return

		case f := <-s.inbound:
			if f.err != nil {
				s.logReadError(f.err)
				return
			}

			if err := s.handleFrame(ctx, f); err != nil {
				switch {
				case errors.Is(err, errSessionQuit):
					s.writeClose(websocket.CloseNormalClosure, "")
				case ctx.Err() != nil:
					s.writeClose(websocket.CloseGoingAway, "server shutting down")
				default:
					s.logger.Warn().Err(err).Msg("Session ended by stream failure")
				}
				return
			}

		case <-s.outbox.Ready():
			if err := s.flushOutbox(); err != nil {
				s.logger.Warn().Err(err).Msg("Session ended by stream failure")
				return
			}
		}
	}
}

// readPump reads frames until the first error and hands each to the loop.
func (s *Session) readPump() {
	for {
		kind, data, err := s.conn.ReadMessage()

		select {
		case s.inbound <- inboundFrame{kind: kind, data: data, err: err}:
		case <-s.done:
			return
		}

		if err != nil {
			return
		}
	}
}

// next waits for the next inbound frame while the loop is busy with a command.
func (s *Session) next(ctx context.Context) (inboundFrame, error) {
	select {
	case <-ctx.Done():
		return inboundFrame{}, ctx.Err()
	case f := <-s.inbound:
		return f, nil
	}
}

func (s *Session) logReadError(err error) {
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
		s.logger.Info().Err(err).Msg("Connection closed unexpectedly")
		return
	}
	s.logger.Debug().Err(err).Msg("Connection closed")
}

func (s *Session) handleFrame(ctx context.Context, f inboundFrame) error {
	switch f.kind {
	case websocket.TextMessage:
		return s.handleLine(ctx, string(f.data))

	case websocket.BinaryMessage:
		s.logger.Warn().Int("bytes", len(f.data)).Msg("Binary frame outside a file transfer ignored")
		return nil

	default:
		s.logger.Warn().Int("frame_type", f.kind).Msg("Unsupported frame type ignored")
		return nil
	}
}

func (s *Session) handleLine(ctx context.Context, line string) error {
	cmd, ok := command.Parse(line)
	if !ok && strings.HasPrefix(line, senderEndPrefix) {
		// End line of a transfer that was refused or already finished.
		s.logger.Debug().Str("line", line).Msg("Stray transfer end line consumed")
		return nil
	}
	if !ok {
		s.metrics.RecordCommand("unknown")
		s.logger.Debug().Str("line", line).Msg("Line matched no command")
		return s.respond(errs.NewError(errs.ErrParseMismatch).Message)
	}

	s.metrics.RecordCommand(cmd.Keyword())

	if cmd.RequiresLogin() && s.state != stateAuthenticated {
		return s.respond(errs.NewError(errs.ErrNotAuthenticated).Message)
	}

	return s.dispatch(ctx, cmd)
}

// respond sends one status line to the peer.
func (s *Session) respond(status string) error {
	return s.write(websocket.TextMessage, []byte(status))
}

// flushOutbox writes every queued notification as a binary frame.
func (s *Session) flushOutbox() error {
	for _, msg := range s.outbox.Drain() {
		if err := s.write(websocket.BinaryMessage, msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) write(kind int, data []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return errs.Wrap(errs.ErrIOFailure, err)
	}
	if err := s.conn.WriteMessage(kind, data); err != nil {
		return errs.Wrap(errs.ErrIOFailure, err)
	}
	return nil
}

func (s *Session) writeClose(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to write close frame")
	}
}

// deliver enqueues msg on sink. Failures are logged and otherwise swallowed.
func (s *Session) deliver(sink registry.Sink, msg string) {
	err := sink.Send([]byte(msg))
	s.metrics.RecordDelivery(err == nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Notification not delivered")
	}
}

// cleanup releases the presence entry if it is still ours and closes the connection.
func (s *Session) cleanup() {
	close(s.done)

	if s.state == stateAuthenticated {
		if s.registry.Release(s.user, s.outbox) {
			s.logger.Info().Msg("User went offline")
		}
	}
	s.state = stateClosed

	s.outbox.Close()

	if err := s.conn.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Connection close error")
	}

	s.logger.Info().Msg("Session ended")
}
