// Package scorehub talks to the external scoring hub (spec.md §4.11):
// resolving a player's display name from a playerKey handshake param on
// admit, and submitting placement scores on admin endGame.
package scorehub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"arena-server/internal/config"
)

// Client is an HTTP client for the hub's two endpoints. It satisfies
// session.HubClient.
type Client struct {
	baseURL       string
	hostedGameKey string
	httpClient    *http.Client
}

// New constructs a hub client from hub configuration.
func New(cfg config.HubConfig) *Client {
	return &Client{
		baseURL:       cfg.BaseURL,
		hostedGameKey: cfg.HostedGameKey,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
	}
}

type currentGamePlayer struct {
	Name      string `json:"Name"`
	PlayerKey string `json:"PlayerKey"`
}

type currentGameResponse struct {
	Players []currentGamePlayer `json:"Players"`
}

// ResolveName looks up a player's display name by playerKey against
// the hub's currently hosted game roster. Transient failures are
// logged and reported as not-found; the ship keeps its fallback
// label (§4.8 "Admit").
func (c *Client) ResolveName(ctx context.Context, playerKey string) (string, bool) {
	body, err := c.get(ctx, "/Game/currentGame")
	if err != nil {
		log.Printf("👤 hub currentGame lookup failed: %v", err)
		return "", false
	}

	var resp currentGameResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		log.Printf("👤 hub currentGame decode failed: %v", err)
		return "", false
	}

	for _, p := range resp.Players {
		if p.PlayerKey == playerKey {
			return p.Name, true
		}
	}
	return "", false
}

type scorePlayer struct {
	Name      string `json:"Name"`
	PlayerKey string `json:"PlayerKey"`
}

type playerScore struct {
	Score  int         `json:"Score"`
	Player scorePlayer `json:"Player"`
}

type scoreRequest struct {
	HostedGameKey string        `json:"HostedGameKey"`
	PlayerScores  []playerScore `json:"PlayerScores"`
}

// SubmitScore posts one player's clamped, floored placement score
// (§4.11). Non-2xx responses and transport errors are logged and
// reported as failure; state is never mutated on failure.
func (c *Client) SubmitScore(ctx context.Context, playerKey, name string, score int) bool {
	clamped := score
	if clamped < 0 {
		clamped = 0
	}
	if clamped > 100 {
		clamped = 100
	}

	req := scoreRequest{
		HostedGameKey: c.hostedGameKey,
		PlayerScores: []playerScore{{
			Score:  clamped,
			Player: scorePlayer{Name: name, PlayerKey: playerKey},
		}},
	}

	if _, err := c.post(ctx, "/Game/Score", req); err != nil {
		log.Printf("💥 hub score submission failed for %s: %v", playerKey, err)
		return false
	}
	return true
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	return c.do(httpReq)
}

func (c *Client) post(ctx context.Context, endpoint string, body interface{}) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	return c.do(httpReq)
}

func (c *Client) do(httpReq *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("hub returned %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
