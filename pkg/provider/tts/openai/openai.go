// Package openai provides a synthesizer backed by the OpenAI speech API.
//
// Unlike ElevenLabs, OpenAI ships a small fixed catalogue of built-in voices,
// so ListVoices is served locally. Audio is requested as raw PCM (24 kHz,
// 16-bit LE mono) so it can be handed to the playback sink without decoding.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MindSyncTech/talktocursor/pkg/provider/tts"
)

// DefaultModel is used when the synthesis request carries no model ID or a
// model ID belonging to another provider.
const DefaultModel = "gpt-4o-mini-tts"

// pcmSampleRate is the fixed sample rate of the OpenAI speech PCM output.
const pcmSampleRate = 24000

// builtinVoices is the catalogue of OpenAI speech voices.
var builtinVoices = []string{
	"alloy", "ash", "coral", "echo", "fable", "nova", "onyx", "sage", "shimmer",
}

// DefaultVoice is used when the requested voice is not an OpenAI voice name.
const DefaultVoice = "alloy"

// config holds optional configuration for the Synthesizer.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Synthesizer.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL. Used by tests.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Synthesizer implements tts.Synthesizer using the OpenAI speech API.
type Synthesizer struct {
	client oai.Client
}

// Compile-time interface assertion.
var _ tts.Synthesizer = (*Synthesizer)(nil)

// New constructs a new OpenAI Synthesizer. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Synthesizer, error) {
	if apiKey == "" {
		return nil, errors.New("openai: apiKey must not be empty")
	}
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(cfg.timeout))
	}

	return &Synthesizer{client: oai.NewClient(reqOpts...)}, nil
}

// Synthesize requests raw PCM speech for text and returns the complete payload.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, params tts.VoiceParams) (*tts.Audio, error) {
	body := oai.AudioSpeechNewParams{
		Model:          resolveModel(params.ModelID),
		Input:          text,
		Voice:          resolveVoice(params.VoiceID),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatPCM,
	}
	if params.Speed > 0 && params.Speed != 1.0 {
		body.Speed = oai.Float(params.Speed)
	}

	resp, err := s.client.Audio.Speech.New(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("openai: speech request: %w", err)
	}
	defer resp.Body.Close()

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read speech response: %w", err)
	}
	if len(pcm) == 0 {
		return nil, errors.New("openai: synthesis produced no audio")
	}
	return &tts.Audio{PCM: pcm, SampleRate: pcmSampleRate}, nil
}

// ListVoices returns the fixed OpenAI voice catalogue.
func (s *Synthesizer) ListVoices(_ context.Context) ([]tts.Voice, error) {
	voices := make([]tts.Voice, 0, len(builtinVoices))
	for _, name := range builtinVoices {
		voices = append(voices, tts.Voice{
			ID:       name,
			Name:     name,
			Provider: "openai",
		})
	}
	return voices, nil
}

// resolveModel maps the configured model ID onto an OpenAI speech model,
// falling back to [DefaultModel] for IDs that belong to other providers
// (e.g., "eleven_flash_v2_5" when OpenAI runs as the fallback backend).
func resolveModel(modelID string) oai.SpeechModel {
	switch modelID {
	case string(oai.SpeechModelTTS1), string(oai.SpeechModelTTS1HD), string(oai.SpeechModelGPT4oMiniTTS):
		return oai.SpeechModel(modelID)
	}
	return DefaultModel
}

// resolveVoice maps the configured voice onto an OpenAI voice name, falling
// back to [DefaultVoice] for provider-foreign voice IDs.
func resolveVoice(voiceID string) oai.AudioSpeechNewParamsVoice {
	lower := strings.ToLower(voiceID)
	for _, name := range builtinVoices {
		if lower == name {
			return oai.AudioSpeechNewParamsVoice(name)
		}
	}
	return DefaultVoice
}
