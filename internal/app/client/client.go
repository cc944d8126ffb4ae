/*
Package client implements the relay's terminal client.

Lines typed by the user are sent as text frames, except for two that the client
handles itself: "file -u <user> <path>" streams a local file through the relay and
"quit" closes the connection. Frames from the relay are printed, and file frames are
reassembled into the download directory.
*/
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"relaychat/internal/app/transfer"
	"relaychat/internal/pkg/logx"
)

const (
	filePrefix = "file -u"
	quitLine   = "quit"
)

// PrintHelp writes the command overview shown on start.
func PrintHelp(w io.Writer) {
	fmt.Fprintln(w, "Welcome to the Chat Client!")
	fmt.Fprintln(w, "1. Register: `reg -u userName -p password`")
	fmt.Fprintln(w, "2. Login: `login -u userName -p password`")
	fmt.Fprintln(w, "3. Send message to one user: `text -u otherUser message`")
	fmt.Fprintln(w, "4. Send message to multiple users: `textMultiple -u user1 user2 -t message`")
	fmt.Fprintln(w, "5. Start chat: `startchat chatName`")
	fmt.Fprintln(w, "6. Join chat: `joinchat chatName`")
	fmt.Fprintln(w, "7. Message chat: `message hey chat`")
	fmt.Fprintln(w, "8. Leave chat: `quitchat chatName`")
	fmt.Fprintln(w, "9. Send file: `file -u otherUser filePath`")
	fmt.Fprintln(w, "Type `quit` to exit.")
	fmt.Fprintln(w)
}

// Client drives one relay connection from a line-oriented input.
type Client struct {
	conn     *Conn
	receiver *transfer.Receiver
	out      io.Writer

	// closing is set once the client starts the close handshake.
	closing atomic.Bool

	logger zerolog.Logger
}

// New returns a Client on conn that saves received files into downloads and
// prints to out.
func New(conn *Conn, downloads string, out io.Writer) *Client {
	return &Client{
		conn:     conn,
		receiver: transfer.NewReceiver(downloads),
		out:      out,
		logger:   logx.Component("client"),
	}
}

// Run reads commands from in until "quit", the end of in, or the relay closing the
// connection. It always closes the connection before returning.
func (c *Client) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recvDone := make(chan error, 1)
	go func() { recvDone <- c.receiveLoop(ctx) }()

	inputDone := make(chan error, 1)
	go func() { inputDone <- c.inputLoop(ctx, in) }()

	select {
	case err := <-recvDone:
		c.closing.Store(true)
		_ = c.conn.Close()
		return err

	case err := <-inputDone:
		c.closing.Store(true)
		if cerr := c.conn.Close(); cerr != nil {
			c.logger.Debug().Err(cerr).Msg("Close handshake failed")
		}
		<-recvDone
		return err

	case <-ctx.Done():
		c.closing.Store(true)
		_ = c.conn.Close()
		<-recvDone
		return nil
	}
}

func (c *Client) inputLoop(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue

		case line == quitLine:
			return nil

		case strings.HasPrefix(line, filePrefix):
			c.sendFile(ctx, line)

		default:
			if err := c.conn.WriteText(ctx, line); err != nil {
				return fmt.Errorf("failed to send command: %w", err)
			}
		}
	}
	return scanner.Err()
}

// sendFile streams the file named on line. Failures are reported and the
// client keeps running.
func (c *Client) sendFile(ctx context.Context, line string) {
	parts := strings.Fields(line)
	if len(parts) < 4 {
		fmt.Fprintln(c.out, "Invalid message format. Expected: `file -u user file_path`.")
		return
	}

	recipient := parts[2]
	path := strings.Join(parts[3:], " ")

	sent, err := transfer.Send(ctx, c.conn, recipient, path)
	if err != nil {
		fmt.Fprintf(c.out, "File transfer aborted: %v\n", err)
		return
	}

	c.logger.Debug().Str("recipient", recipient).Int64("bytes", sent).Msg("File streamed")
}

func (c *Client) receiveLoop(ctx context.Context) error {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			return c.readError(ctx, err)
		}

		switch typ {
		case websocket.MessageText:
			fmt.Fprintf(c.out, "Message received: %s\n", data)

		case websocket.MessageBinary:
			c.handleBinary(data)
		}
	}
}

func (c *Client) handleBinary(data []byte) {
	ev, err := c.receiver.Handle(data)
	if err != nil {
		fmt.Fprintf(c.out, "Error handling binary message: %v\n", err)
		return
	}

	switch ev.Kind {
	case transfer.EventMessage:
		fmt.Fprintf(c.out, "Message received: %s\n", ev.Text)
	case transfer.EventStarted:
		fmt.Fprintf(c.out, "Starting file reception: %s\n", ev.Name)
	case transfer.EventChunk:
		c.logger.Debug().Str("file", ev.Name).Int("bytes", ev.Bytes).Msg("Received file chunk")
	case transfer.EventSaved:
		fmt.Fprintf(c.out, "File received and saved to %s (%d bytes).\n", ev.Path, ev.Bytes)
	}
}

// readError maps the error that ended the receive loop. An orderly close by
// either side is not an error.
func (c *Client) readError(ctx context.Context, err error) error {
	if c.closing.Load() || ctx.Err() != nil {
		return nil
	}

	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		fmt.Fprintln(c.out, "Connection closed by the relay.")
		return nil
	}

	if errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("connection lost: %w", err)
}
