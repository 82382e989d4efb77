// Package score talks to the external leaderboard backend. Submission
// failures are reported to callers but never stop a run; the game is the
// source of truth and the backend is best-effort.
package score

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// EventType names a gameplay milestone forwarded to the backend.
type EventType string

const (
	EventGameStarted   EventType = "game_started"
	EventGameCompleted EventType = "game_completed"
	EventFloorReached  EventType = "floor_reached"
	EventPlayerDeath   EventType = "player_death"
	EventLevelUp       EventType = "level_up"
)

// Event is a single milestone notification.
type Event struct {
	RunID string         `json:"runId,omitempty"`
	Type  EventType      `json:"eventType"`
	Data  map[string]any `json:"eventData,omitempty"`
}

// Result is a finished run submitted for ranking. TimeSurvivedMS is
// wall-clock from run start to death.
type Result struct {
	RunID          string `json:"runId,omitempty"`
	PlayerName     string `json:"playerName"`
	Floor          int    `json:"floor"`
	EnemiesKilled  int    `json:"enemiesKilled"`
	TimeSurvivedMS int64  `json:"timeSurvived"`
}

// Ack is the backend's answer to a score submission.
type Ack struct {
	Rank int `json:"rank"`
}

// Reporter submits run results and milestone events.
type Reporter interface {
	SubmitScore(ctx context.Context, result Result) (Ack, error)
	SubmitEvent(ctx context.Context, event Event) error
}

// HTTPReporter posts JSON to a backend exposing POST /scores and POST /events.
type HTTPReporter struct {
	baseURL string
	client  *http.Client
}

// NewHTTPReporter returns a reporter for the given base URL. A non-positive
// timeout falls back to three seconds.
func NewHTTPReporter(baseURL string, timeout time.Duration) *HTTPReporter {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPReporter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// SubmitScore posts the result to /scores and decodes the returned rank. An
// empty response body is treated as an ack without a rank.
func (r *HTTPReporter) SubmitScore(ctx context.Context, result Result) (Ack, error) {
	var ack Ack
	resp, err := r.post(ctx, "/scores", result)
	if err != nil {
		return Ack{}, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return Ack{}, err
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil && !errors.Is(err, io.EOF) {
		return Ack{}, fmt.Errorf("score: decode ack: %w", err)
	}
	return ack, nil
}

// SubmitEvent posts the event to /events. The response body is discarded.
func (r *HTTPReporter) SubmitEvent(ctx context.Context, event Event) error {
	resp, err := r.post(ctx, "/events", event)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (r *HTTPReporter) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("score: encode %s payload: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("score: build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("score: post %s: %w", path, err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	io.Copy(io.Discard, resp.Body)
	return fmt.Errorf("score: backend returned %s", resp.Status)
}

type nopReporter struct{}

// NopReporter returns a reporter that acknowledges everything without
// talking to a backend. Used when no backend URL is configured.
func NopReporter() Reporter {
	return nopReporter{}
}

func (nopReporter) SubmitScore(context.Context, Result) (Ack, error) {
	return Ack{}, nil
}

func (nopReporter) SubmitEvent(context.Context, Event) error {
	return nil
}
