package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_InitialSnapshot(t *testing.T) {
	path := writeSettingsFile(t, sampleSettings)
	w, err := NewWatcher(path, WithInterval(time.Hour))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	if got := w.Current().VoiceID; got != "21m00Tcm4TlvDq8ikWAM" {
		t.Errorf("VoiceID = %q", got)
	}
}

func TestWatcher_MissingFileStartsWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), SettingsFile)
	w, err := NewWatcher(path, WithInterval(time.Hour))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	if got := w.Current().Model; got != "eleven_flash_v2_5" {
		t.Errorf("Model = %q, want default", got)
	}
}

func TestWatcher_PicksUpEdit(t *testing.T) {
	path := writeSettingsFile(t, sampleSettings)

	changed := make(chan struct{}, 1)
	w, err := NewWatcher(path,
		WithInterval(10*time.Millisecond),
		WithOnChange(func(old, new *Settings) {
			select {
			case changed <- struct{}{}:
			default:
			}
		}),
	)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	edited := `{"voiceId": "new-voice", "model": "eleven_flash_v2_5", "voiceSettings": {"speed": 1, "stability": 0.5, "similarityBoost": 0.75, "style": 0}, "autoListen": false}`
	if err := os.WriteFile(path, []byte(edited), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for settings reload")
	}
	if got := w.Current().VoiceID; got != "new-voice" {
		t.Errorf("VoiceID = %q after edit", got)
	}
}

func TestWatcher_KeepsSnapshotOnBrokenEdit(t *testing.T) {
	path := writeSettingsFile(t, sampleSettings)
	w, err := NewWatcher(path, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatal(err)
	}

	// Give the poller a few ticks, then check the old snapshot survived.
	time.Sleep(100 * time.Millisecond)
	if got := w.Current().VoiceID; got != "21m00Tcm4TlvDq8ikWAM" {
		t.Errorf("VoiceID = %q, want previous snapshot", got)
	}
}
