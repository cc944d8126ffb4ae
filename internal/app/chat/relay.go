package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"relaychat/internal/app/command"
	"relaychat/internal/pkg/errs"
)

// errPeerStream marks a relay that ended because the sender's stream failed.
var errPeerStream = errors.New("sender stream failed")

// streamer is a sink that can carry one uninterrupted stream at a time.
type streamer interface {
	BeginTransfer(ctx context.Context) (*Transfer, error)
}

// handleFileTransfer relays one file from this session's peer to c.Recipient.
//
// After the announcement every binary frame from the peer is forwarded verbatim
// until the first non-binary frame, which ends the transfer and is consumed.
// Once forwarding fails the remaining chunks are read and dropped.
// The recipient always receives the end marker once the announcement went out.
// Other notifications for the recipient are held until after the end marker,
// and a second relay to the same recipient waits for this one to finish.
// The session's own outbox is not drained while a transfer is in progress.
func (s *Session) handleFileTransfer(ctx context.Context, c command.FileTransfer) error {
	sink, ok := s.registry.Lookup(c.Recipient)
	if !ok {
		return s.respond(errs.NewError(errs.ErrRecipientOffline).Message)
	}

	logger := s.logger.With().Str("recipient", c.Recipient).Str("file", c.Path).Logger()

	if st, ok := sink.(streamer); ok {
		tr, err := st.BeginTransfer(ctx)
		switch {
		case errors.Is(err, ErrOutboxClosed):
			return s.respond(errs.NewError(errs.ErrRecipientOffline).Message)
		case err != nil:
			return errs.Wrap(errs.ErrIOFailure, err)
		}
		defer tr.End()
		sink = tr
	}

	logger.Info().Msg("File relay started")

	s.deliver(sink, noteFileAnnounce(c.Path))

	var (
		relayed  int
		chunks   int
		relayErr error
		fatal    error
	)

relay:
	for {
		f, err := s.next(ctx)
		if err != nil {
			relayErr, fatal = err, err
			break
		}

		switch {
		case f.err != nil:
			relayErr = fmt.Errorf("%w: %v", errPeerStream, f.err)
			fatal = f.err
			break relay

		case f.kind != websocket.BinaryMessage:
			break relay
		}

		if relayErr != nil {
			// The rest of the transfer is consumed but not forwarded.
			continue
		}
		if err := sink.Send(f.data); err != nil {
			relayErr = fmt.Errorf("failed to forward chunk: %w", err)
			continue
		}
		relayed += len(f.data)
		chunks++
	}

	s.deliver(sink, fileEndMarker)
	if tr, ok := sink.(*Transfer); ok {
		tr.End()
	}
	s.metrics.RecordFileRelay(relayErr == nil, relayed)

	if fatal != nil {
		logger.Warn().Err(relayErr).Int("bytes", relayed).Msg("File relay aborted")
		return errs.Wrap(errs.ErrIOFailure, fatal)
	}

	if relayErr != nil {
		logger.Warn().Err(relayErr).Int("bytes", relayed).Msg("File relay failed")
		return s.respond(statusFileFailed(relayErr))
	}

	logger.Info().Int("bytes", relayed).Int("chunks", chunks).Msg("File relay finished")
	return s.respond(statusFileSent)
}
