package websrv

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MindSyncTech/talktocursor/internal/config"
	"github.com/MindSyncTech/talktocursor/internal/coordinator"
	"github.com/MindSyncTech/talktocursor/pkg/provider/tts"
)

// fakeSpeaker settles every utterance immediately.
type fakeSpeaker struct {
	err    error
	spoken []string
}

func (f *fakeSpeaker) Speak(_ context.Context, text string) (<-chan coordinator.Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, coordinator.ErrEmptyText
	}
	f.spoken = append(f.spoken, text)
	ch := make(chan coordinator.Result, 1)
	ch <- coordinator.Result{Text: text, Err: f.err}
	return ch, nil
}

// fakeCatalogue serves a fixed voice list.
type fakeCatalogue struct {
	voices []tts.Voice
	err    error
}

func (f *fakeCatalogue) Voices(context.Context) ([]tts.Voice, error) {
	return f.voices, f.err
}

func newTestServer(t *testing.T) (*Server, string, *fakeSpeaker) {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.SettingsFile)
	sp := &fakeSpeaker{}
	cat := &fakeCatalogue{voices: []tts.Voice{
		{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel", Provider: "elevenlabs"},
	}}
	return New("127.0.0.1:0", path, sp, cat), path, sp
}

// do runs a request through the server's full handler chain.
func do(t *testing.T, s *Server, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestIndex_ServesSettingsPage(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, "GET", "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Talk to Cursor") {
		t.Error("page body missing title")
	}
}

func TestGetSettings_DefaultsWhenFileMissing(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, "GET", "/api/settings", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got config.Settings
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Model != config.DefaultSettings().Model {
		t.Errorf("model = %q, want default", got.Model)
	}
}

func TestPutSettings_PersistsAndEchoes(t *testing.T) {
	s, path, _ := newTestServer(t)

	body := `{
		"voiceId": "Rachel",
		"model": "eleven_flash_v2_5",
		"voiceSettings": {"speed": 1.1, "stability": 0.4, "similarityBoost": 0.8, "style": 0},
		"autoListen": true
	}`
	rec := do(t, s, "PUT", "/api/settings", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	saved, err := config.ReadSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	if saved.VoiceID != "Rachel" {
		t.Errorf("voiceId = %q", saved.VoiceID)
	}
	if !saved.AutoListen {
		t.Error("autoListen not persisted")
	}
	if saved.VoiceSettings.Speed != 1.1 {
		t.Errorf("speed = %v", saved.VoiceSettings.Speed)
	}
}

func TestPutSettings_PreservesForeignSections(t *testing.T) {
	s, path, _ := newTestServer(t)

	// Seed a file with a section owned by the automation scripts.
	seed := `{
		"voiceId": "old",
		"model": "eleven_flash_v2_5",
		"voiceSettings": {"speed": 1, "stability": 0.5, "similarityBoost": 0.75, "style": 0},
		"autoListen": false,
		"wisprLoop": {"enabled": true, "hotkey": "ctrl+shift+space"}
	}`
	if err := os.WriteFile(path, []byte(seed), 0o600); err != nil {
		t.Fatal(err)
	}

	// Save a document that carries only the known fields.
	rec := do(t, s, "PUT", "/api/settings", `{
		"voiceId": "new",
		"model": "eleven_flash_v2_5",
		"voiceSettings": {"speed": 1, "stability": 0.5, "similarityBoost": 0.75, "style": 0},
		"autoListen": false
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["wisprLoop"]; !ok {
		t.Error("wisprLoop section dropped by save")
	}
	var voiceID string
	if err := json.Unmarshal(raw["voiceId"], &voiceID); err != nil || voiceID != "new" {
		t.Errorf("voiceId = %q, err = %v", voiceID, err)
	}
}

func TestPutSettings_RejectsMalformedJSON(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, "PUT", "/api/settings", `{"voiceId": `)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestVoices(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, "GET", "/api/voices", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var voices []voiceEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &voices); err != nil {
		t.Fatal(err)
	}
	if len(voices) != 1 || voices[0].Name != "Rachel" {
		t.Errorf("voices = %+v", voices)
	}
}

func TestVoices_CatalogueUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.SettingsFile)
	s := New("127.0.0.1:0", path, &fakeSpeaker{}, &fakeCatalogue{err: context.DeadlineExceeded})

	rec := do(t, s, "GET", "/api/voices", "")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestSpeak_Success(t *testing.T) {
	s, _, sp := newTestServer(t)

	rec := do(t, s, "POST", "/api/speak", `{"text": "check check"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	if len(sp.spoken) != 1 || sp.spoken[0] != "check check" {
		t.Errorf("spoken = %v", sp.spoken)
	}
}

func TestSpeak_EmptyTextRejected(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, "POST", "/api/speak", `{"text": "   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSpeak_UtteranceFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.SettingsFile)
	sp := &fakeSpeaker{err: coordinator.ErrSynthesis}
	s := New("127.0.0.1:0", path, sp, &fakeCatalogue{})

	rec := do(t, s, "POST", "/api/speak", `{"text": "doomed"}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, "GET", "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, "GET", "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
