package signalfile

import (
	"encoding/json"
	"os"
	"testing"
	"time"
)

func TestPlaybackComplete_WritesRecord(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	if err := w.PlaybackComplete(); err != nil {
		t.Fatalf("PlaybackComplete: %v", err)
	}

	data, err := os.ReadFile(w.CompletePath())
	if err != nil {
		t.Fatalf("read mailbox: %v", err)
	}
	var rec struct {
		Timestamp string `json:"timestamp"`
		Completed bool   `json:"completed"`
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !rec.Completed {
		t.Error("completed = false, want true")
	}
	if _, err := time.Parse(time.RFC3339Nano, rec.Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", rec.Timestamp, err)
	}
}

func TestListenRequested_WritesRecord(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	if err := w.ListenRequested(); err != nil {
		t.Fatalf("ListenRequested: %v", err)
	}

	data, err := os.ReadFile(w.ListenPath())
	if err != nil {
		t.Fatalf("read mailbox: %v", err)
	}
	var rec struct {
		Timestamp string `json:"timestamp"`
		Triggered bool   `json:"triggered"`
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !rec.Triggered {
		t.Error("triggered = false, want true")
	}
}

func TestPlaybackComplete_OverwritesWithMonotonicTimestamp(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	times := []time.Time{base, base.Add(time.Second)}
	i := 0
	w.now = func() time.Time {
		ts := times[i]
		i++
		return ts
	}

	var stamps []string
	for range times {
		if err := w.PlaybackComplete(); err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(w.CompletePath())
		if err != nil {
			t.Fatal(err)
		}
		var rec struct {
			Timestamp string `json:"timestamp"`
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			t.Fatalf("mailbox must hold exactly one record: %v", err)
		}
		stamps = append(stamps, rec.Timestamp)
	}

	t0, _ := time.Parse(time.RFC3339Nano, stamps[0])
	t1, _ := time.Parse(time.RFC3339Nano, stamps[1])
	if !t1.After(t0) {
		t.Errorf("second timestamp %v not after first %v", t1, t0)
	}
}

func TestWrite_MissingDirFails(t *testing.T) {
	w := NewWriter("/nonexistent-dir-for-signal-test")
	if err := w.PlaybackComplete(); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestListenRequested_DoesNotTouchCompleteMailbox(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	if err := w.ListenRequested(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(w.CompletePath()); !os.IsNotExist(err) {
		t.Error("listen signal must not create the complete mailbox")
	}
}
