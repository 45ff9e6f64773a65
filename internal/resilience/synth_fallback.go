package resilience

import (
	"context"

	"github.com/MindSyncTech/talktocursor/pkg/provider/tts"
)

// SynthFallback implements [tts.Synthesizer] with automatic failover across
// multiple TTS backends. Each backend has its own circuit breaker. Failover
// happens entirely inside one synthesis call; the speak queue above still
// attempts each utterance exactly once.
type SynthFallback struct {
	group *FallbackGroup[tts.Synthesizer]
}

// Compile-time interface assertion.
var _ tts.Synthesizer = (*SynthFallback)(nil)

// NewSynthFallback creates a [SynthFallback] with primary as the preferred
// backend.
func NewSynthFallback(primary tts.Synthesizer, primaryName string, cfg FallbackConfig) *SynthFallback {
	return &SynthFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional backend, tried after the primary.
func (f *SynthFallback) AddFallback(name string, s tts.Synthesizer) {
	f.group.AddFallback(name, s)
}

// Synthesize produces a complete audio payload from the first healthy backend.
func (f *SynthFallback) Synthesize(ctx context.Context, text string, params tts.VoiceParams) (*tts.Audio, error) {
	return DoWithResult(f.group, func(s tts.Synthesizer) (*tts.Audio, error) {
		return s.Synthesize(ctx, text, params)
	})
}

// ListVoices returns the catalogue of the first healthy backend.
func (f *SynthFallback) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	return DoWithResult(f.group, func(s tts.Synthesizer) ([]tts.Voice, error) {
		return s.ListVoices(ctx)
	})
}
