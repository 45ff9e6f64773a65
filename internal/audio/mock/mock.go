// Package mock provides a test double for the audio.Sink interface.
package mock

import (
	"context"
	"sync"

	"github.com/MindSyncTech/talktocursor/internal/audio"
	"github.com/MindSyncTech/talktocursor/pkg/provider/tts"
)

// PlayCall records a single invocation of Play.
type PlayCall struct {
	// Audio is the payload passed to Play.
	Audio *tts.Audio
}

// Sink is a mock implementation of audio.Sink.
type Sink struct {
	mu sync.Mutex

	// PlayErr, if non-nil, is returned from every Play call.
	PlayErr error

	// PlayFunc, if non-nil, overrides the canned behaviour. The call is
	// still recorded before PlayFunc runs.
	PlayFunc func(ctx context.Context, a *tts.Audio) error

	// PlayCalls records each Play invocation in order.
	PlayCalls []PlayCall
}

// Compile-time interface assertion.
var _ audio.Sink = (*Sink)(nil)

// Play records the call and returns the configured error.
func (s *Sink) Play(ctx context.Context, a *tts.Audio) error {
	s.mu.Lock()
	s.PlayCalls = append(s.PlayCalls, PlayCall{Audio: a})
	fn := s.PlayFunc
	err := s.PlayErr
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, a)
	}
	return err
}

// PlayCount returns the number of recorded Play invocations.
func (s *Sink) PlayCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.PlayCalls)
}

// Calls returns a snapshot of the recorded Play calls.
func (s *Sink) Calls() []PlayCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PlayCall, len(s.PlayCalls))
	copy(out, s.PlayCalls)
	return out
}
