package scorehub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"arena-server/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	cfg := config.HubConfig{
		BaseURL:       srv.URL,
		HostedGameKey: "arena-dev",
		Timeout:       2 * time.Second,
	}
	return New(cfg), srv.Close
}

func TestResolveNameFindsMatchingPlayerKey(t *testing.T) {
	c, closeFn := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Game/currentGame" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"Players": []map[string]string{
				{"Name": "Nova", "PlayerKey": "key-1"},
				{"Name": "Orbit", "PlayerKey": "key-2"},
			},
		})
	})
	defer closeFn()

	name, ok := c.ResolveName(t.Context(), "key-2")
	if !ok || name != "Orbit" {
		t.Errorf("expected Orbit/true, got %q/%v", name, ok)
	}
}

func TestResolveNameMissingKeyReturnsFalse(t *testing.T) {
	c, closeFn := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"Players": []map[string]string{}})
	})
	defer closeFn()

	if _, ok := c.ResolveName(t.Context(), "missing"); ok {
		t.Error("expected ok=false for unknown playerKey")
	}
}

func TestResolveNameTransientFailureReturnsFalse(t *testing.T) {
	c, closeFn := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer closeFn()

	if _, ok := c.ResolveName(t.Context(), "key-1"); ok {
		t.Error("expected ok=false on hub error")
	}
}

func TestSubmitScoreClampsAboveHundred(t *testing.T) {
	var seen scoreRequest
	c, closeFn := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Game/Score" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&seen)
		w.WriteHeader(http.StatusOK)
	})
	defer closeFn()

	if !c.SubmitScore(t.Context(), "key-1", "Nova", 500) {
		t.Fatal("expected success")
	}
	if len(seen.PlayerScores) != 1 || seen.PlayerScores[0].Score != 100 {
		t.Errorf("expected score clamped to 100, got %+v", seen.PlayerScores)
	}
	if seen.HostedGameKey != "arena-dev" {
		t.Errorf("expected hosted game key to be set, got %q", seen.HostedGameKey)
	}
}

func TestSubmitScoreClampsBelowZero(t *testing.T) {
	var seen scoreRequest
	c, closeFn := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&seen)
		w.WriteHeader(http.StatusOK)
	})
	defer closeFn()

	c.SubmitScore(t.Context(), "key-1", "Nova", -20)
	if seen.PlayerScores[0].Score != 0 {
		t.Errorf("expected score clamped to 0, got %d", seen.PlayerScores[0].Score)
	}
}

func TestSubmitScoreFailureOnNonOKStatus(t *testing.T) {
	c, closeFn := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	defer closeFn()

	if c.SubmitScore(t.Context(), "key-1", "Nova", 80) {
		t.Error("expected failure on non-2xx status")
	}
}
