package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trivia-live-service/internal/app"
	"trivia-live-service/internal/domain"
	"trivia-live-service/internal/infra/memory"
	"trivia-live-service/internal/scoring"
)

func newAPITestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := memory.NewMatchStore()
	packs := memory.NewPackRepository(memory.NewStaticPackLoader(nil), time.Minute)
	matches := app.NewMatchService(store, packs, scoring.DefaultConfig())
	solo := app.NewSoloService(memory.NewSoloScoreStore(0, 100), 20, "letmein")

	mux := http.NewServeMux()
	NewAPIHandler(matches, solo).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, server *httptest.Server, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(server.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestAPICreateAndLookupMatch(t *testing.T) {
	server := newAPITestServer(t)

	body := `{"code":"AB12","hostPin":"9999","questions":[{"prompt":"q","answers":["a","b"],"correctIndex":0}]}`
	resp := postJSON(t, server, "/matches", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d", resp.StatusCode)
	}
	var created map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created["matchId"] == "" {
		t.Fatalf("missing matchId in response")
	}

	lookup, err := http.Get(server.URL + "/matches?code=AB12")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	defer lookup.Body.Close()
	if lookup.StatusCode != http.StatusOK {
		t.Fatalf("lookup: status %d", lookup.StatusCode)
	}
	var view map[string]any
	if err := json.NewDecoder(lookup.Body).Decode(&view); err != nil {
		t.Fatalf("decode lookup response: %v", err)
	}
	if view["id"] != created["matchId"] || view["state"] != string(domain.StateLobby) {
		t.Fatalf("unexpected view: %+v", view)
	}
	if _, leaked := view["hostPin"]; leaked {
		t.Fatalf("host pin must never leave the server")
	}

	dup := postJSON(t, server, "/matches", body)
	if dup.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate code: status %d", dup.StatusCode)
	}

	missing, err := http.Get(server.URL + "/matches?code=NOPE")
	if err != nil {
		t.Fatalf("missing lookup: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("missing code: status %d", missing.StatusCode)
	}
}

func TestAPISoloLeaderboard(t *testing.T) {
	server := newAPITestServer(t)

	resp := postJSON(t, server, "/solo/scores", `{"name":"Alice","score":420,"durationMs":61000}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("record: status %d", resp.StatusCode)
	}

	top, err := http.Get(server.URL + "/solo/top?n=5")
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	defer top.Body.Close()
	var entries []domain.SoloScore
	if err := json.NewDecoder(top.Body).Decode(&entries); err != nil {
		t.Fatalf("decode top: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "Alice" || entries[0].Score != 420 {
		t.Fatalf("unexpected leaderboard: %+v", entries)
	}

	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/solo/scores?passcode=wrong", nil)
	denied, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	denied.Body.Close()
	if denied.StatusCode != http.StatusForbidden {
		t.Fatalf("wrong passcode: status %d", denied.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodDelete, server.URL+"/solo/scores?passcode=letmein", nil)
	cleared, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	cleared.Body.Close()
	if cleared.StatusCode != http.StatusNoContent {
		t.Fatalf("clear: status %d", cleared.StatusCode)
	}
}
