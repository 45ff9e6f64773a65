// Package config provides the two configuration layers of talktocursor:
//
//   - The bootstrap config (config.yaml): operator-facing settings read once
//     at startup: log level, HTTP listen address, data directory, synthesis
//     backend selection, and circuit-breaker tuning.
//   - The shared settings file (config.json): user-facing speech settings
//     edited through the web page and read by the external automation
//     scripts. See [Settings].
//
// The split exists because config.json is a cross-process contract (the
// automation scripts parse it with Python's json module) while config.yaml is
// private to this process.
package config

import (
	"errors"
	"fmt"
	"time"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Backend names a synthesis backend implementation.
type Backend string

const (
	BackendElevenLabs Backend = "elevenlabs"
	BackendOpenAI     Backend = "openai"
)

// IsValid reports whether b is a recognised backend name.
func (b Backend) IsValid() bool {
	return b == BackendElevenLabs || b == BackendOpenAI
}

// Config is the root bootstrap configuration, loaded from a YAML file via
// [Load] or [LoadFromReader].
type Config struct {
	Server ServerConfig `yaml:"server"`
	Speech SpeechConfig `yaml:"speech"`
}

// ServerConfig holds process-level settings.
type ServerConfig struct {
	// ListenAddr is the TCP address of the settings/metrics HTTP server
	// (e.g., "127.0.0.1:7723"). Loopback-only by default: the page carries
	// an API key.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// DataDir is where the settings file and the signal mailboxes live.
	// Defaults to the current working directory, which the automation
	// scripts watch.
	DataDir string `yaml:"data_dir"`
}

// SpeechConfig selects and tunes the synthesis backends.
type SpeechConfig struct {
	// Primary is the preferred synthesis backend.
	Primary Backend `yaml:"primary"`

	// Fallback is an optional second backend tried when the primary fails
	// or its circuit breaker is open. Empty disables failover.
	Fallback Backend `yaml:"fallback"`

	// OutputFormat is the ElevenLabs PCM output format (e.g., "pcm_22050").
	OutputFormat string `yaml:"output_format"`

	// SettingsPoll is how often the shared settings file is re-checked for
	// edits made through the web page or by hand.
	SettingsPoll time.Duration `yaml:"settings_poll"`

	// Breaker tunes the per-backend circuit breakers.
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig mirrors resilience.BreakerConfig in YAML form.
type BreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
	HalfOpenMax  int           `yaml:"half_open_max"`
}

// Default returns the bootstrap configuration used when no config.yaml exists.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:7723",
			LogLevel:   LogInfo,
			DataDir:    ".",
		},
		Speech: SpeechConfig{
			Primary:      BackendElevenLabs,
			Fallback:     BackendOpenAI,
			OutputFormat: "pcm_22050",
			SettingsPoll: 2 * time.Second,
		},
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level: unknown level %q", cfg.Server.LogLevel))
	}
	if cfg.Speech.Primary != "" && !cfg.Speech.Primary.IsValid() {
		errs = append(errs, fmt.Errorf("speech.primary: unknown backend %q", cfg.Speech.Primary))
	}
	if cfg.Speech.Fallback != "" && !cfg.Speech.Fallback.IsValid() {
		errs = append(errs, fmt.Errorf("speech.fallback: unknown backend %q", cfg.Speech.Fallback))
	}
	if cfg.Speech.Fallback != "" && cfg.Speech.Fallback == cfg.Speech.Primary {
		errs = append(errs, errors.New("speech.fallback: must differ from speech.primary"))
	}
	if cfg.Speech.SettingsPoll < 0 {
		errs = append(errs, errors.New("speech.settings_poll: must not be negative"))
	}

	return errors.Join(errs...)
}

// applyDefaults fills unset fields from [Default].
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = def.Server.ListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = def.Server.LogLevel
	}
	if cfg.Server.DataDir == "" {
		cfg.Server.DataDir = def.Server.DataDir
	}
	if cfg.Speech.Primary == "" {
		cfg.Speech.Primary = def.Speech.Primary
	}
	if cfg.Speech.OutputFormat == "" {
		cfg.Speech.OutputFormat = def.Speech.OutputFormat
	}
	if cfg.Speech.SettingsPoll == 0 {
		cfg.Speech.SettingsPoll = def.Speech.SettingsPoll
	}
}
