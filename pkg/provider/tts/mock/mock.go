// Package mock provides a test double for the tts.Synthesizer interface.
//
// Use Synthesizer to feed controlled audio payloads to consumers and to
// verify the text and voice parameters passed to the TTS backend.
//
//	s := &mock.Synthesizer{
//	    SynthesizeAudio: &tts.Audio{PCM: []byte("pcm"), SampleRate: 22050},
//	    Voices:          []tts.Voice{{ID: "v1", Name: "Rachel"}},
//	}
package mock

import (
	"context"
	"sync"

	"github.com/MindSyncTech/talktocursor/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Text is the text passed to Synthesize.
	Text string
	// Params is the voice tuning passed to Synthesize.
	Params tts.VoiceParams
}

// Synthesizer is a mock implementation of tts.Synthesizer.
type Synthesizer struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// SynthesizeAudio is returned by Synthesize on success. When nil (and
	// SynthesizeErr is nil), a small non-empty payload is returned.
	SynthesizeAudio *tts.Audio

	// SynthesizeErr, if non-nil, is returned as the error from Synthesize.
	SynthesizeErr error

	// SynthesizeFunc, if non-nil, overrides the canned behaviour entirely.
	// The call is still recorded.
	SynthesizeFunc func(ctx context.Context, text string, params tts.VoiceParams) (*tts.Audio, error)

	// Voices is returned by ListVoices.
	Voices []tts.Voice

	// ListVoicesErr, if non-nil, is returned as the error from ListVoices.
	ListVoicesErr error

	// --- Recorded calls ---

	// SynthesizeCalls records each Synthesize invocation in order.
	SynthesizeCalls []SynthesizeCall

	// ListVoicesCount is the number of ListVoices invocations.
	ListVoicesCount int
}

// Compile-time interface assertion.
var _ tts.Synthesizer = (*Synthesizer)(nil)

// Synthesize records the call and returns the configured payload or error.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, params tts.VoiceParams) (*tts.Audio, error) {
	s.mu.Lock()
	s.SynthesizeCalls = append(s.SynthesizeCalls, SynthesizeCall{Text: text, Params: params})
	fn := s.SynthesizeFunc
	audio, errOut := s.SynthesizeAudio, s.SynthesizeErr
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, text, params)
	}
	if errOut != nil {
		return nil, errOut
	}
	if audio != nil {
		return audio, nil
	}
	return &tts.Audio{PCM: []byte{0, 0, 0, 0}, SampleRate: 22050}, nil
}

// ListVoices records the call and returns the configured catalogue or error.
func (s *Synthesizer) ListVoices(_ context.Context) ([]tts.Voice, error) {
	s.mu.Lock()
	s.ListVoicesCount++
	voices, err := s.Voices, s.ListVoicesErr
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return voices, nil
}

// Calls returns a snapshot of the recorded Synthesize calls.
func (s *Synthesizer) Calls() []SynthesizeCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SynthesizeCall, len(s.SynthesizeCalls))
	copy(out, s.SynthesizeCalls)
	return out
}
