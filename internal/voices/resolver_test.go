package voices

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MindSyncTech/talktocursor/pkg/provider/tts"
	ttsmock "github.com/MindSyncTech/talktocursor/pkg/provider/tts/mock"
)

var catalogue = []tts.Voice{
	{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel", Provider: "elevenlabs"},
	{ID: "pNInz6obpgDQGcFmaJgB", Name: "Adam", Provider: "elevenlabs"},
	{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Bella", Provider: "elevenlabs"},
}

func newResolver(t *testing.T) (*Resolver, *ttsmock.Synthesizer) {
	t.Helper()
	synth := &ttsmock.Synthesizer{Voices: catalogue}
	return NewResolver(synth), synth
}

func TestResolve_ExactID(t *testing.T) {
	r, _ := newResolver(t)
	got, err := r.Resolve(context.Background(), "pNInz6obpgDQGcFmaJgB")
	if err != nil {
		t.Fatal(err)
	}
	if got != "pNInz6obpgDQGcFmaJgB" {
		t.Errorf("got %q", got)
	}
}

func TestResolve_ExactNameCaseInsensitive(t *testing.T) {
	r, _ := newResolver(t)
	got, err := r.Resolve(context.Background(), "rachel")
	if err != nil {
		t.Fatal(err)
	}
	if got != "21m00Tcm4TlvDq8ikWAM" {
		t.Errorf("got %q, want Rachel's ID", got)
	}
}

func TestResolve_FuzzyName(t *testing.T) {
	r, _ := newResolver(t)
	// Typo'd name still resolves.
	got, err := r.Resolve(context.Background(), "Rachell")
	if err != nil {
		t.Fatal(err)
	}
	if got != "21m00Tcm4TlvDq8ikWAM" {
		t.Errorf("got %q, want Rachel's ID", got)
	}
}

func TestResolve_UnknownPassesThrough(t *testing.T) {
	r, _ := newResolver(t)
	got, err := r.Resolve(context.Background(), "xq-unmatched-voice-id")
	if err != nil {
		t.Fatal(err)
	}
	if got != "xq-unmatched-voice-id" {
		t.Errorf("got %q, want query unchanged", got)
	}
}

func TestResolve_EmptyQuery(t *testing.T) {
	r, synth := newResolver(t)
	got, err := r.Resolve(context.Background(), "   ")
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("got %q, want empty", got)
	}
	if synth.ListVoicesCount != 0 {
		t.Error("empty query must not hit the catalogue")
	}
}

func TestResolve_CachesCatalogue(t *testing.T) {
	r, synth := newResolver(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := r.Resolve(ctx, "Adam"); err != nil {
			t.Fatal(err)
		}
	}
	if synth.ListVoicesCount != 1 {
		t.Errorf("ListVoices called %d times, want 1 (cached)", synth.ListVoicesCount)
	}
}

func TestResolve_RefetchAfterTTL(t *testing.T) {
	synth := &ttsmock.Synthesizer{Voices: catalogue}
	r := NewResolver(synth, WithTTL(time.Minute))

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return current }

	ctx := context.Background()
	if _, err := r.Resolve(ctx, "Adam"); err != nil {
		t.Fatal(err)
	}
	current = current.Add(2 * time.Minute)
	if _, err := r.Resolve(ctx, "Adam"); err != nil {
		t.Fatal(err)
	}
	if synth.ListVoicesCount != 2 {
		t.Errorf("ListVoices called %d times, want 2 after TTL expiry", synth.ListVoicesCount)
	}
}

func TestResolve_ServesStaleOnFetchError(t *testing.T) {
	synth := &ttsmock.Synthesizer{Voices: catalogue}
	r := NewResolver(synth, WithTTL(time.Minute))

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return current }

	ctx := context.Background()
	if _, err := r.Resolve(ctx, "Bella"); err != nil {
		t.Fatal(err)
	}

	// Expire the cache and break the backend: stale catalogue still serves.
	current = current.Add(2 * time.Minute)
	synth.ListVoicesErr = errors.New("quota exceeded")

	got, err := r.Resolve(ctx, "Bella")
	if err != nil {
		t.Fatalf("Resolve with stale cache: %v", err)
	}
	if got != "EXAVITQu4vr4xnSDxMaL" {
		t.Errorf("got %q", got)
	}
}

func TestResolve_FetchErrorWithoutCache(t *testing.T) {
	synth := &ttsmock.Synthesizer{ListVoicesErr: errors.New("unauthorized")}
	r := NewResolver(synth)
	if _, err := r.Resolve(context.Background(), "Rachel"); err == nil {
		t.Fatal("expected error when no catalogue is available")
	}
}

func TestInvalidate(t *testing.T) {
	r, synth := newResolver(t)
	ctx := context.Background()
	if _, err := r.Resolve(ctx, "Adam"); err != nil {
		t.Fatal(err)
	}
	r.Invalidate()
	if _, err := r.Resolve(ctx, "Adam"); err != nil {
		t.Fatal(err)
	}
	if synth.ListVoicesCount != 2 {
		t.Errorf("ListVoices called %d times, want 2 after Invalidate", synth.ListVoicesCount)
	}
}
