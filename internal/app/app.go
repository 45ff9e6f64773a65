// Package app wires all talktocursor subsystems into a running application.
//
// New resolves configuration, builds the synthesis gateway with its failover
// chain, and connects the coordinator to the signal files, the MCP stdio
// server, and the settings web server. Run executes everything until the
// context is cancelled.
//
// For testing, inject doubles via functional options (WithSynthesizer,
// WithSink). When an option is not provided, New creates real implementations
// from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/MindSyncTech/talktocursor/internal/audio"
	"github.com/MindSyncTech/talktocursor/internal/config"
	"github.com/MindSyncTech/talktocursor/internal/coordinator"
	"github.com/MindSyncTech/talktocursor/internal/health"
	"github.com/MindSyncTech/talktocursor/internal/mcpserver"
	"github.com/MindSyncTech/talktocursor/internal/resilience"
	"github.com/MindSyncTech/talktocursor/internal/signalfile"
	"github.com/MindSyncTech/talktocursor/internal/voices"
	"github.com/MindSyncTech/talktocursor/internal/websrv"
	"github.com/MindSyncTech/talktocursor/pkg/provider/tts"
	"github.com/MindSyncTech/talktocursor/pkg/provider/tts/elevenlabs"
	"github.com/MindSyncTech/talktocursor/pkg/provider/tts/openai"
)

// ErrNoAPIKey means no synthesis API key could be resolved from the settings
// file or the environment. The process must not start without one.
var ErrNoAPIKey = errors.New("app: no synthesis API key configured " +
	"(set ELEVENLABS_API_KEY or OPENAI_API_KEY, or save an apiKey in config.json)")

// App owns all subsystem lifetimes.
type App struct {
	cfg     *config.Config
	version string

	synth    tts.Synthesizer
	sink     coordinator.Sink
	watcher  *config.Watcher
	resolver *voices.Resolver
	coord    *coordinator.Coordinator
	mcpSrv   *mcpserver.Server
	webSrv   *websrv.Server
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithSynthesizer injects a synthesis gateway instead of building one from
// the config.
func WithSynthesizer(s tts.Synthesizer) Option {
	return func(a *App) { a.synth = s }
}

// WithSink injects a playback sink instead of the oto player.
func WithSink(s coordinator.Sink) Option {
	return func(a *App) { a.sink = s }
}

// New creates an App by wiring all subsystems together.
func New(cfg *config.Config, version string, opts ...Option) (*App, error) {
	a := &App{cfg: cfg, version: version}
	for _, o := range opts {
		o(a)
	}

	settingsPath := filepath.Join(cfg.Server.DataDir, config.SettingsFile)

	// ── Settings watcher ─────────────────────────────────────────────────
	watcher, err := config.NewWatcher(settingsPath,
		config.WithInterval(cfg.Speech.SettingsPoll),
		config.WithOnChange(a.onSettingsChange),
	)
	if err != nil {
		return nil, fmt.Errorf("app: settings watcher: %w", err)
	}
	a.watcher = watcher

	// ── Synthesis gateway ────────────────────────────────────────────────
	if a.synth == nil {
		synth, err := buildGateway(cfg, watcher.Current())
		if err != nil {
			watcher.Stop()
			return nil, err
		}
		a.synth = synth
	}

	// ── Playback sink ────────────────────────────────────────────────────
	if a.sink == nil {
		a.sink = audio.NewPlayer()
	}

	// ── Coordinator ──────────────────────────────────────────────────────
	a.resolver = voices.NewResolver(a.synth)
	a.coord = coordinator.New(
		a.synth,
		a.sink,
		signalfile.NewWriter(cfg.Server.DataDir),
		watcher,
		coordinator.WithVoiceResolver(a.resolver),
		coordinator.WithProviderLabel(string(cfg.Speech.Primary)),
	)

	// ── Tool and web surfaces ────────────────────────────────────────────
	a.mcpSrv = mcpserver.New(a.coord, version)
	a.webSrv = websrv.New(cfg.Server.ListenAddr, settingsPath, a.coord, a.resolver,
		websrv.WithHealthChecks(
			health.Checker{Name: "synthesizer", Check: a.checkSynthesizer},
			health.Checker{Name: "settings", Check: a.checkSettings(settingsPath)},
		),
	)

	return a, nil
}

// Run serves the MCP stdio transport and the settings web server until ctx is
// cancelled or either surface fails.
func (a *App) Run(ctx context.Context) error {
	defer a.watcher.Stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.mcpSrv.Run(ctx) })
	g.Go(func() error { return a.webSrv.Run(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Coordinator exposes the turn-taking coordinator, mainly for tests.
func (a *App) Coordinator() *coordinator.Coordinator {
	return a.coord
}

// onSettingsChange reacts to edits of the shared settings file. Voice
// parameters are re-read per utterance anyway; the catalogue cache is only
// worth dropping when the API key changed.
func (a *App) onSettingsChange(old, new *config.Settings) {
	if old.APIKey != new.APIKey {
		a.resolver.Invalidate()
		slog.Info("api key changed, voice catalogue invalidated")
	}
	slog.Debug("settings reloaded", "voice", new.VoiceID, "model", new.Model)
}

// checkSynthesizer probes the synthesis backend through the voice catalogue.
func (a *App) checkSynthesizer(ctx context.Context) error {
	_, err := a.resolver.Voices(ctx)
	return err
}

// checkSettings verifies the settings file is readable (or absent, which
// yields defaults).
func (a *App) checkSettings(path string) func(ctx context.Context) error {
	return func(context.Context) error {
		_, err := config.ReadSettings(path)
		return err
	}
}

// buildGateway constructs the synthesis chain named by the config: the
// primary backend, optionally wrapped in a circuit-breaking failover group
// with the fallback backend.
func buildGateway(cfg *config.Config, settings *config.Settings) (tts.Synthesizer, error) {
	primary, err := buildBackend(cfg.Speech.Primary, cfg, settings)
	if err != nil {
		return nil, err
	}
	if cfg.Speech.Fallback == "" {
		return primary, nil
	}

	fallback, err := buildBackend(cfg.Speech.Fallback, cfg, settings)
	if err != nil {
		// A dead fallback must not block startup when the primary works.
		slog.Warn("fallback backend unavailable, continuing without failover",
			"backend", cfg.Speech.Fallback, "error", err)
		return primary, nil
	}

	group := resilience.NewSynthFallback(primary, string(cfg.Speech.Primary), resilience.FallbackConfig{
		Breaker: resilience.BreakerConfig{
			Name:         string(cfg.Speech.Primary),
			MaxFailures:  cfg.Speech.Breaker.MaxFailures,
			ResetTimeout: cfg.Speech.Breaker.ResetTimeout,
			HalfOpenMax:  cfg.Speech.Breaker.HalfOpenMax,
		},
	})
	group.AddFallback(string(cfg.Speech.Fallback), fallback)
	slog.Info("synthesis failover enabled",
		"primary", cfg.Speech.Primary, "fallback", cfg.Speech.Fallback)
	return group, nil
}

// buildBackend constructs one synthesis backend with its API key resolved
// from the settings file and the environment.
func buildBackend(backend config.Backend, cfg *config.Config, settings *config.Settings) (tts.Synthesizer, error) {
	switch backend {
	case config.BackendElevenLabs:
		key := settings.APIKey
		if key == "" {
			key = os.Getenv("ELEVENLABS_API_KEY")
		}
		if key == "" {
			return nil, ErrNoAPIKey
		}
		return elevenlabs.New(key, elevenlabs.WithOutputFormat(cfg.Speech.OutputFormat))

	case config.BackendOpenAI:
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, ErrNoAPIKey
		}
		return openai.New(key)

	default:
		return nil, fmt.Errorf("app: unknown synthesis backend %q", backend)
	}
}
