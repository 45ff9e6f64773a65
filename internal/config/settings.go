package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/MindSyncTech/talktocursor/pkg/provider/tts"
)

// SettingsFile is the well-known name of the shared settings file.
const SettingsFile = "config.json"

// VoiceSettings is the voice tuning block of the shared settings file.
type VoiceSettings struct {
	Speed           float64 `json:"speed"`
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarityBoost"`
	Style           float64 `json:"style"`
}

// Settings is the user-facing speech configuration persisted as config.json.
//
// The file is a cross-process contract: the external automation scripts read
// their own sections (autoSubmit, wisprLoop) from the same file. Those
// sections are opaque to this process and are preserved byte-for-byte across
// load/save round-trips.
type Settings struct {
	// APIKey is the ElevenLabs API key. Usually supplied via the
	// ELEVENLABS_API_KEY environment variable instead of the file.
	APIKey string `json:"apiKey,omitempty"`

	// VoiceID selects the voice, either a provider voice ID or a display
	// name resolved against the voice catalogue.
	VoiceID string `json:"voiceId"`

	// Model selects the synthesis model.
	Model string `json:"model"`

	// VoiceSettings tunes the selected voice.
	VoiceSettings VoiceSettings `json:"voiceSettings"`

	// AutoListen gates whether listen() writes the listen signal. When
	// false, listen() is a no-op.
	AutoListen bool `json:"autoListen"`

	// extra holds sections owned by other processes, preserved verbatim.
	extra map[string]json.RawMessage
}

// knownSettingsKeys are the top-level JSON keys owned by this process.
var knownSettingsKeys = map[string]bool{
	"apiKey":        true,
	"voiceId":       true,
	"model":         true,
	"voiceSettings": true,
	"autoListen":    true,
}

// DefaultSettings returns the settings used when no config.json exists yet.
func DefaultSettings() *Settings {
	return &Settings{
		Model: "eleven_flash_v2_5",
		VoiceSettings: VoiceSettings{
			Speed:           1.0,
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
		AutoListen: false,
	}
}

// UnmarshalJSON decodes the known fields and stashes everything else in the
// passthrough map.
func (s *Settings) UnmarshalJSON(data []byte) error {
	type alias Settings
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range raw {
		if knownSettingsKeys[k] {
			delete(raw, k)
		}
	}
	if len(raw) == 0 {
		raw = nil
	}

	*s = Settings(a)
	s.extra = raw
	return nil
}

// MarshalJSON encodes the known fields and merges the passthrough sections
// back in, so a save never drops what other processes stored in the file.
func (s Settings) MarshalJSON() ([]byte, error) {
	type alias Settings
	known, err := json.Marshal(alias(s))
	if err != nil {
		return nil, err
	}
	if len(s.extra) == 0 {
		return known, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range s.extra {
		if _, owned := merged[k]; !owned {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// LoadSettings reads the shared settings file and applies environment
// overrides. A missing file yields [DefaultSettings] (plus overrides), since
// first run happens before the settings page has saved anything.
func LoadSettings(path string) (*Settings, error) {
	s, err := readSettings(path)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(s, os.LookupEnv)
	return s, nil
}

// ReadSettings loads the settings file without environment overrides. Use it
// when the result will be edited and written back, so env-supplied values
// never leak into the file.
func ReadSettings(path string) (*Settings, error) {
	return readSettings(path)
}

// InheritPassthrough copies the passthrough sections from prev when s carries
// none of its own. Lets a settings save built from a partial document keep
// the sections other processes own.
func (s *Settings) InheritPassthrough(prev *Settings) {
	if prev == nil || len(s.extra) > 0 || len(prev.extra) == 0 {
		return
	}
	s.extra = make(map[string]json.RawMessage, len(prev.extra))
	for k, v := range prev.extra {
		s.extra[k] = v
	}
}

// readSettings loads the file without environment overrides.
func readSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read settings %q: %w", path, err)
	}
	s := DefaultSettings()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("config: parse settings %q: %w", path, err)
	}
	return s, nil
}

// SaveSettings persists s to path with a single buffered write, preserving
// any passthrough sections s was loaded with.
func SaveSettings(path string, s *Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write settings %q: %w", path, err)
	}
	return nil
}

// applyEnvOverrides layers environment variables over the file values.
// lookup is parameterised for tests.
func applyEnvOverrides(s *Settings, lookup func(string) (string, bool)) {
	if v, ok := lookup("ELEVENLABS_API_KEY"); ok && v != "" {
		s.APIKey = v
	}
	if v, ok := lookup("TTS_VOICE_ID"); ok && v != "" {
		s.VoiceID = v
	}
	if v, ok := lookup("TTS_MODEL_ID"); ok && v != "" {
		s.Model = v
	}
	if v, ok := lookup("TTS_AUTO_LISTEN"); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s.AutoListen = b
		}
	}
}

// VoiceParams maps the settings onto the synthesis request tuning.
func (s *Settings) VoiceParams() tts.VoiceParams {
	return tts.VoiceParams{
		VoiceID:         s.VoiceID,
		ModelID:         s.Model,
		Speed:           s.VoiceSettings.Speed,
		Stability:       s.VoiceSettings.Stability,
		SimilarityBoost: s.VoiceSettings.SimilarityBoost,
		Style:           s.VoiceSettings.Style,
	}
}
