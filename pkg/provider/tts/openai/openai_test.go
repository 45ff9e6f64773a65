package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MindSyncTech/talktocursor/pkg/provider/tts"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty API key")
	}
}

func TestResolveVoice(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alloy", "alloy"},
		{"Nova", "nova"},
		{"", "alloy"},
		{"21m00Tcm4TlvDq8ikWAM", "alloy"}, // ElevenLabs voice ID falls back
	}
	for _, tt := range tests {
		if got := string(resolveVoice(tt.in)); got != tt.want {
			t.Errorf("resolveVoice(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveModel(t *testing.T) {
	if got := string(resolveModel("tts-1")); got != "tts-1" {
		t.Errorf("resolveModel(tts-1) = %q", got)
	}
	if got := string(resolveModel("eleven_flash_v2_5")); got != DefaultModel {
		t.Errorf("resolveModel(eleven_flash_v2_5) = %q, want %q", got, DefaultModel)
	}
	if got := string(resolveModel("")); got != DefaultModel {
		t.Errorf("resolveModel(\"\") = %q, want %q", got, DefaultModel)
	}
}

func TestSynthesize(t *testing.T) {
	wantPCM := []byte{0x01, 0x02, 0x03, 0x04}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/speech") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		w.Header().Set("Content-Type", "audio/pcm")
		_, _ = w.Write(wantPCM)
	}))
	defer srv.Close()

	s, err := New("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	audio, err := s.Synthesize(context.Background(), "hello", tts.VoiceParams{VoiceID: "nova"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio.PCM) != string(wantPCM) {
		t.Errorf("PCM = %v, want %v", audio.PCM, wantPCM)
	}
	if audio.SampleRate != pcmSampleRate {
		t.Errorf("SampleRate = %d, want %d", audio.SampleRate, pcmSampleRate)
	}
}

func TestListVoices(t *testing.T) {
	s, err := New("test-key")
	if err != nil {
		t.Fatal(err)
	}
	voices, err := s.ListVoices(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(voices) != len(builtinVoices) {
		t.Fatalf("got %d voices, want %d", len(voices), len(builtinVoices))
	}
	for _, v := range voices {
		if v.Provider != "openai" {
			t.Errorf("Provider = %q, want openai", v.Provider)
		}
	}
}
