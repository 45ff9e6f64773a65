package tts

import "time"

// Audio is a fully synthesized utterance: raw signed 16-bit little-endian
// mono PCM together with its sample rate.
type Audio struct {
	// PCM is the raw sample data (16-bit LE, mono).
	PCM []byte

	// SampleRate is the number of samples per second (e.g., 22050, 24000).
	SampleRate int
}

// Duration returns the playback length of the payload. Returns 0 when the
// sample rate is unset.
func (a *Audio) Duration() time.Duration {
	if a == nil || a.SampleRate <= 0 {
		return 0
	}
	samples := len(a.PCM) / 2
	return time.Duration(samples) * time.Second / time.Duration(a.SampleRate)
}

// Voice describes a single entry in a synthesizer's voice catalogue.
type Voice struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Provider identifies which backend this voice belongs to.
	Provider string

	// Metadata holds provider-specific voice attributes (gender, accent, etc.).
	Metadata map[string]string
}

// VoiceParams carries the tuning applied to a single synthesis request.
// Unset numeric fields (zero values) mean "use the backend default".
type VoiceParams struct {
	// VoiceID selects the voice. Required.
	VoiceID string

	// ModelID selects the synthesis model (e.g., "eleven_flash_v2_5").
	ModelID string

	// Speed adjusts speaking rate (0.5–2.0, 1.0 = default).
	Speed float64

	// Stability controls voice consistency (0.0–1.0). Lower values are more
	// expressive, higher values more consistent.
	Stability float64

	// SimilarityBoost controls how closely the voice matches the original
	// sample (0.0–1.0).
	SimilarityBoost float64

	// Style controls style exaggeration (0.0–1.0). Only some models honour it.
	Style float64
}
