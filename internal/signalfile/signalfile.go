// Package signalfile implements the cross-process signal mailboxes shared
// with the external dictation automation process.
//
// Each signal kind is a single well-known JSON file that is overwritten in
// full on every event, a mailbox rather than a log. The coordinator is the sole
// writer and the automation process the sole reader, so there are no
// write-write races. Each write is a single buffered write call, so a reader
// never observes a partially written record.
//
// Known limitation (accepted by design of the protocol): there is no
// acknowledgement channel. A signal written before the reader polls it is
// silently replaced by the next one, so under rapid speak/listen cycles only
// the latest signal survives. Readers must treat the file as "most recent
// state", not as an event history, and must not treat a missing file as an
// error before the first event.
package signalfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// CompleteFile is the mailbox written after every finished utterance.
	CompleteFile = "tts-complete.json"

	// ListenFile is the mailbox written when voice input is requested.
	ListenFile = "listen-signal.json"
)

// completeRecord is the payload of the playback-complete mailbox.
type completeRecord struct {
	Timestamp string `json:"timestamp"`
	Completed bool   `json:"completed"`
}

// listenRecord is the payload of the listen-requested mailbox.
type listenRecord struct {
	Timestamp string `json:"timestamp"`
	Triggered bool   `json:"triggered"`
}

// Writer writes the two signal mailboxes into a directory.
type Writer struct {
	dir string

	// now is stubbed in tests.
	now func() time.Time
}

// NewWriter creates a Writer that places signal files in dir. The directory
// must already exist; it is typically the process data directory that the
// automation scripts are configured to watch.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// PlaybackComplete overwrites the playback-complete mailbox with a fresh
// record. Called after each utterance has fully finished playing.
func (w *Writer) PlaybackComplete() error {
	rec := completeRecord{
		Timestamp: w.now().Format(time.RFC3339Nano),
		Completed: true,
	}
	return w.write(CompleteFile, rec)
}

// ListenRequested overwrites the listen-requested mailbox with a fresh
// record, handing the turn to the dictation process.
func (w *Writer) ListenRequested() error {
	rec := listenRecord{
		Timestamp: w.now().Format(time.RFC3339Nano),
		Triggered: true,
	}
	return w.write(ListenFile, rec)
}

// CompletePath returns the full path of the playback-complete mailbox.
func (w *Writer) CompletePath() string {
	return filepath.Join(w.dir, CompleteFile)
}

// ListenPath returns the full path of the listen-requested mailbox.
func (w *Writer) ListenPath() string {
	return filepath.Join(w.dir, ListenFile)
}

// write marshals rec and replaces the mailbox contents with a single
// buffered write call.
func (w *Writer) write(name string, rec any) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("signalfile: marshal %s: %w", name, err)
	}
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("signalfile: write %s: %w", name, err)
	}
	return nil
}
