package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"face-greeter-go/config"
	"face-greeter-go/internal/api/handlers"
	"face-greeter-go/internal/core/ledger"
	"face-greeter-go/internal/core/processor"
	"face-greeter-go/internal/core/tracking"
	"face-greeter-go/internal/integrations/audio"
	"face-greeter-go/internal/util/timezone"

	"github.com/gin-gonic/gin"
)

type staticState struct {
	state processor.State
}

func (s staticState) State() processor.State { return s.state }

type fakeDebug struct{}

func (fakeDebug) RegisterRoutes(router gin.IRoutes) {
	router.GET("/api/debug/frames", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"count": 0}) })
}

func newTestRouter(t *testing.T) (*gin.Engine, *ledger.Ledger) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	timezone.Initialize("UTC")

	phrases, err := audio.NewPhrases("en")
	if err != nil {
		t.Fatal(err)
	}

	store := ledger.NewJSONStore(t.TempDir())
	if err := store.Save("20261016", map[string]int{"old/1": 2}, 2); err != nil {
		t.Fatal(err)
	}
	l := ledger.New(store, "20261017")
	l.Increment("s1/1")

	cfg := &config.Config{
		Server: config.ServerConfig{SessionKey: "test-secret", SnapshotURL: "/snapshots", DataDir: t.TempDir()},
		Log:    config.LogConfig{Level: "debug"},
	}
	deps := handlers.Dependencies{
		Config: cfg,
		State: staticState{processor.State{
			SessionID:   "s1",
			Day:         "20261017",
			Present:     1,
			LedgerTotal: 1,
			Identities:  []tracking.Identity{{ID: 1}},
		}},
		Ledger:  l,
		Store:   store,
		Days:    store,
		Phrases: phrases,
		Pool:    processor.NewWorkerPool("test", 1, 2),
		Version: "test",
	}
	return NewRouter(deps, fakeDebug{}, nil), l
}

func get(t *testing.T, router http.Handler, path string, header map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var body map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestStatusAndIdentities(t *testing.T) {
	router, _ := newTestRouter(t)

	w, body := get(t, router, "/api/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status code = %d", w.Code)
	}
	if body["session_id"] != "s1" || body["ledger_total"] != float64(1) || body["system"] == nil {
		t.Errorf("status body = %v", body)
	}

	_, body = get(t, router, "/api/identities", nil)
	if ids, ok := body["identities"].([]interface{}); !ok || len(ids) != 1 {
		t.Errorf("identities body = %v", body)
	}

	if w, _ := get(t, router, "/api/debug/frames", nil); w.Code != http.StatusOK {
		t.Errorf("extra routes not registered: %d", w.Code)
	}
}

func TestLedgerEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	_, body := get(t, router, "/api/ledger", nil)
	if body["day"] != "20261017" || body["total_count"] != float64(1) || body["dirty"] != true {
		t.Errorf("ledger body = %v", body)
	}
	if days, ok := body["days"].([]interface{}); !ok || len(days) != 1 || days[0] != "20261016" {
		t.Errorf("ledger days = %v", body["days"])
	}

	tests := []struct {
		path  string
		code  int
		total float64
	}{
		{"/api/ledger/20261017", http.StatusOK, 1},
		{"/api/ledger/20261016", http.StatusOK, 2},
		{"/api/ledger/20200101", http.StatusOK, 0},
		{"/api/ledger/yesterday", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		w, body := get(t, router, tt.path, nil)
		if w.Code != tt.code {
			t.Errorf("%s: code = %d, want %d", tt.path, w.Code, tt.code)
			continue
		}
		if tt.code == http.StatusOK && body["total_count"] != tt.total {
			t.Errorf("%s: total = %v, want %v", tt.path, body["total_count"], tt.total)
		}
	}
}

func TestGreetingsLanguageSelection(t *testing.T) {
	router, _ := newTestRouter(t)

	w, body := get(t, router, "/api/greetings?lang=de", nil)
	if body["language"] != "de" {
		t.Fatalf("language = %v", body["language"])
	}
	phrases := body["phrases"].(map[string]interface{})
	if phrases["greeting"] != "Hallo! Schön, dich zu sehen." {
		t.Errorf("greeting = %v", phrases["greeting"])
	}

	// Sprache bleibt über das Session-Cookie erhalten
	cookie := w.Header().Get("Set-Cookie")
	if cookie == "" {
		t.Fatal("no session cookie set")
	}
	_, body = get(t, router, "/api/greetings", map[string]string{"Cookie": cookie, "Accept-Language": "fr"})
	if body["language"] != "de" {
		t.Errorf("language from session = %v, want de", body["language"])
	}

	_, body = get(t, router, "/api/greetings", map[string]string{"Accept-Language": "fr-CH, fr;q=0.9"})
	if body["language"] != "fr" {
		t.Errorf("language from Accept-Language = %v, want fr", body["language"])
	}

	_, body = get(t, router, "/api/greetings?lang=xx", nil)
	if body["language"] != "en" {
		t.Errorf("unknown language fell back to %v, want en", body["language"])
	}
}

func TestEndpointsWithoutDatabase(t *testing.T) {
	router, _ := newTestRouter(t)
	for _, path := range []string{"/api/greetings/history", "/api/snapshots", "/api/events"} {
		if w, _ := get(t, router, path, nil); w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: code = %d, want 503", path, w.Code)
		}
	}
}
