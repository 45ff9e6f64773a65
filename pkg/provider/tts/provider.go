// Package tts defines the Synthesizer interface for Text-to-Speech backends.
//
// A synthesizer wraps a speech synthesis service (e.g., ElevenLabs or the
// OpenAI speech API) and presents a uniform one-shot interface: text in,
// complete playable audio payload out. The turn-taking coordinator drives one
// synthesis at a time, so implementations are not required to stream, but they
// must respect context cancellation since a synthesis call suspends the whole
// speak queue.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Synthesizer is the abstraction over any TTS backend.
type Synthesizer interface {
	// Synthesize converts text into a complete audio payload using the given
	// voice parameters. It blocks until the full payload is available or ctx
	// is cancelled.
	//
	// Returns a non-nil *Audio on success. Failures (auth, quota, network,
	// unknown voice) are returned as errors and must not panic; the caller
	// surfaces them per-request without stopping its queue.
	Synthesize(ctx context.Context, text string, params VoiceParams) (*Audio, error)

	// ListVoices returns the backend's current voice catalogue. The result
	// may change between calls if the underlying service adds or removes
	// voices; callers that cache it should apply their own TTL.
	ListVoices(ctx context.Context) ([]Voice, error)
}
