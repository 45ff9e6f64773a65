// Package websrv serves the local settings page and the HTTP API around the
// speech coordinator: settings round-trip, voice catalogue, test utterances,
// health probes, and Prometheus metrics.
//
// The server binds to localhost by default. It is an operator surface for the
// human at the keyboard, not a public API.
package websrv

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MindSyncTech/talktocursor/internal/config"
	"github.com/MindSyncTech/talktocursor/internal/coordinator"
	"github.com/MindSyncTech/talktocursor/internal/health"
	"github.com/MindSyncTech/talktocursor/internal/observe"
	"github.com/MindSyncTech/talktocursor/pkg/provider/tts"
)

//go:embed static
var staticFS embed.FS

// shutdownTimeout bounds graceful shutdown when the run context is cancelled.
const shutdownTimeout = 5 * time.Second

// Speaker is the coordinator surface used by the test-utterance endpoint.
type Speaker interface {
	Speak(ctx context.Context, text string) (<-chan coordinator.Result, error)
}

// VoiceCatalogue lists the voices available from the synthesis gateway.
type VoiceCatalogue interface {
	Voices(ctx context.Context) ([]tts.Voice, error)
}

// Server is the settings web server.
type Server struct {
	addr         string
	settingsPath string
	speaker      Speaker
	catalogue    VoiceCatalogue
	checks       *health.Handler
	metrics      *observe.Metrics
	log          *slog.Logger

	httpSrv *http.Server
}

// Option configures a [Server].
type Option func(*Server)

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics overrides the package-default metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithHealthChecks installs readiness checkers for /readyz.
func WithHealthChecks(checkers ...health.Checker) Option {
	return func(s *Server) {
		s.checks = health.New(checkers...)
	}
}

// New creates the server. addr is the HTTP listen address, settingsPath the
// location of the shared settings file.
func New(addr, settingsPath string, speaker Speaker, catalogue VoiceCatalogue, opts ...Option) *Server {
	s := &Server{
		addr:         addr,
		settingsPath: settingsPath,
		speaker:      speaker,
		catalogue:    catalogue,
		checks:       health.New(),
		metrics:      observe.DefaultMetrics(),
		log:          slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", http.HandlerFunc(s.handleIndex))
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handlePutSettings)
	mux.HandleFunc("GET /api/voices", s.handleVoices)
	mux.HandleFunc("POST /api/speak", s.handleSpeak)
	mux.Handle("GET /metrics", promhttp.Handler())
	s.checks.Register(mux)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(s.metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("settings server listening", "addr", s.addr)
		if err := s.httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("websrv: %w", err)
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("websrv: shutdown: %w", err)
	}
	return nil
}

// handleIndex serves the embedded settings page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "settings page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}

// handleGetSettings returns the settings file as stored, without environment
// overrides, so the page edits what will actually be written back.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := config.ReadSettings(s.settingsPath)
	if err != nil {
		s.log.Error("read settings", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to read settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handlePutSettings validates and persists the submitted settings. Sections
// owned by other processes survive the save even when the submitted document
// does not carry them.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var incoming config.Settings
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&incoming); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid settings document: "+err.Error())
		return
	}

	prev, err := config.ReadSettings(s.settingsPath)
	if err != nil {
		s.log.Error("read settings before save", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to read current settings")
		return
	}
	incoming.InheritPassthrough(prev)

	if err := config.SaveSettings(s.settingsPath, &incoming); err != nil {
		s.log.Error("save settings", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	s.log.Info("settings saved", "voice", incoming.VoiceID, "model", incoming.Model)
	writeJSON(w, http.StatusOK, &incoming)
}

// voiceEntry is the wire shape of one catalogue voice.
type voiceEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider,omitempty"`
}

// handleVoices returns the synthesis gateway's voice catalogue.
func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := s.catalogue.Voices(r.Context())
	if err != nil {
		s.log.Error("list voices", "error", err)
		writeJSONError(w, http.StatusBadGateway, "voice catalogue unavailable")
		return
	}
	out := make([]voiceEntry, 0, len(voices))
	for _, v := range voices {
		out = append(out, voiceEntry{ID: v.ID, Name: v.Name, Provider: v.Provider})
	}
	writeJSON(w, http.StatusOK, out)
}

// speakRequest is the POST /api/speak body.
type speakRequest struct {
	Text string `json:"text"`
}

// handleSpeak plays a test utterance through the coordinator and waits for it
// to settle, so the page can tell the user whether audio actually came out.
func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ch, err := s.speaker.Speak(r.Context(), req.Text)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	select {
	case res := <-ch:
		if res.Err != nil {
			writeJSONError(w, http.StatusBadGateway, res.Err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": res.Message()})
	case <-r.Context().Done():
		// Client went away; the utterance still plays.
	}
}

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a JSON error body.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
