/*
Package transfer implements the two client-side halves of the file relay:
Send streams a local file to the relay in fixed-size binary chunks framed by
control text frames, and Receiver reassembles a relayed file from the frames
delivered to the recipient.
*/
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ChunkSize is the payload size of one binary file frame.
const ChunkSize = 1024

// FrameWriter sends frames to the relay.
type FrameWriter interface {
	WriteText(ctx context.Context, text string) error
	WriteBinary(ctx context.Context, data []byte) error
}

// StartLine is the control frame announcing a transfer of name to recipient.
func StartLine(recipient, name string) string {
	return fmt.Sprintf("file -u %s %s", recipient, name)
}

// EndLine is the control frame that ends a transfer of name.
func EndLine(name string) string {
	return "EOF: " + name
}

// Send streams the file at path to recipient through w and returns the number of
// payload bytes sent. Any read or write error aborts the transfer at once.
func Send(ctx context.Context, w FrameWriter, recipient, path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)

	if err := w.WriteText(ctx, StartLine(recipient, name)); err != nil {
		return 0, fmt.Errorf("failed to send start frame: %w", err)
	}

	var (
		sent int64
		buf  = make([]byte, ChunkSize)
	)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			if werr := w.WriteBinary(ctx, buf[:n]); werr != nil {
				return sent, fmt.Errorf("failed to send chunk: %w", werr)
			}
			sent += int64(n)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sent, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	if err := w.WriteText(ctx, EndLine(name)); err != nil {
		return sent, fmt.Errorf("failed to send end frame: %w", err)
	}

	return sent, nil
}
