package transfer

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	announcePrefix = "Filename:"
	endMarker      = "EOF"
)

// EventKind classifies what a binary frame meant to the Receiver.
type EventKind int

const (
	// EventMessage is a frame that is not part of a transfer.
	EventMessage EventKind = iota

	// EventStarted is a filename announcement.
	EventStarted

	// EventChunk is a payload chunk appended to the active transfer.
	EventChunk

	// EventSaved is the end marker; the file has been written.
	EventSaved
)

// Event describes the effect of one frame.
type Event struct {
	Kind EventKind

	// Name is the announced file name (EventStarted, EventChunk, EventSaved).
	Name string

	// Bytes is the chunk size (EventChunk) or the saved file size (EventSaved).
	Bytes int

	// Path is where the file was written (EventSaved).
	Path string

	// Text is the frame decoded as text (EventMessage).
	Text string
}

// Receiver accumulates one relayed file at a time and writes it into Dir.
type Receiver struct {
	// Dir is the directory received files are written to.
	Dir string

	// writeFile is os.WriteFile outside tests.
	writeFile func(name string, data []byte, perm os.FileMode) error

	active bool
	name   string
	buf    bytes.Buffer
}

// NewReceiver returns a Receiver saving into dir.
func NewReceiver(dir string) *Receiver {
	return &Receiver{Dir: dir, writeFile: os.WriteFile}
}

// Active reports whether a transfer is in progress.
func (r *Receiver) Active() bool {
	return r.active
}

// Handle processes one binary frame delivered by the relay.
// An announcement always starts a new accumulator, discarding an unfinished one.
func (r *Receiver) Handle(data []byte) (Event, error) {
	if bytes.HasPrefix(data, []byte(announcePrefix)) {
		name := strings.TrimSpace(string(data[len(announcePrefix):]))
		r.active = true
		r.name = name
		r.buf.Reset()
		return Event{Kind: EventStarted, Name: name}, nil
	}

	if !r.active {
		return Event{Kind: EventMessage, Text: frameText(data)}, nil
	}

	if string(data) == endMarker {
		return r.finish()
	}

	r.buf.Write(data)
	return Event{Kind: EventChunk, Name: r.name, Bytes: len(data)}, nil
}

func (r *Receiver) finish() (Event, error) {
	name := r.name
	data := r.buf.Bytes()
	defer r.reset()

	base := filepath.Base(name)
	if base == "." || base == ".." || base == string(filepath.Separator) || name == "" {
		return Event{}, errors.New("announced file name is not usable")
	}

	path := filepath.Join(r.Dir, base)
	if err := r.writeFile(path, data, 0o644); err != nil {
		return Event{}, fmt.Errorf("failed to save received file: %w", err)
	}

	return Event{Kind: EventSaved, Name: name, Bytes: len(data), Path: path}, nil
}

func (r *Receiver) reset() {
	r.active = false
	r.name = ""
	r.buf = bytes.Buffer{}
}

func frameText(data []byte) string {
	if !utf8.Valid(data) {
		return "<Invalid UTF-8>"
	}
	return string(data)
}
