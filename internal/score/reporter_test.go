package score

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubmitScorePostsAndDecodesRank(t *testing.T) {
	var gotPath, gotContentType string
	var gotBody Result
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"rank": 12}`))
	}))
	defer server.Close()

	reporter := NewHTTPReporter(server.URL+"/", time.Second)
	result := Result{
		RunID:          "run-1",
		PlayerName:     "alice",
		Floor:          7,
		EnemiesKilled:  42,
		TimeSurvivedMS: 93000,
	}
	ack, err := reporter.SubmitScore(context.Background(), result)
	if err != nil {
		t.Fatalf("submit score: %v", err)
	}
	if ack.Rank != 12 {
		t.Fatalf("expected rank 12, got %d", ack.Rank)
	}
	if gotPath != "/scores" {
		t.Fatalf("expected POST /scores, got %s", gotPath)
	}
	if gotContentType != "application/json" {
		t.Fatalf("expected JSON content type, got %q", gotContentType)
	}
	if gotBody != result {
		t.Fatalf("expected %+v on the wire, got %+v", result, gotBody)
	}
}

func TestSubmitScoreToleratesEmptyAck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	reporter := NewHTTPReporter(server.URL, time.Second)
	ack, err := reporter.SubmitScore(context.Background(), Result{PlayerName: "bob"})
	if err != nil {
		t.Fatalf("submit score: %v", err)
	}
	if ack.Rank != 0 {
		t.Fatalf("expected zero rank for empty ack, got %d", ack.Rank)
	}
}

func TestSubmitScoreReportsBackendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	reporter := NewHTTPReporter(server.URL, time.Second)
	if _, err := reporter.SubmitScore(context.Background(), Result{}); err == nil {
		t.Fatalf("expected an error for a 500 response")
	}
}

func TestSubmitEventPostsMilestone(t *testing.T) {
	var gotPath string
	var gotEvent Event
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotEvent); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	reporter := NewHTTPReporter(server.URL, time.Second)
	event := Event{
		RunID: "run-9",
		Type:  EventFloorReached,
		Data:  map[string]any{"floor": float64(3)},
	}
	if err := reporter.SubmitEvent(context.Background(), event); err != nil {
		t.Fatalf("submit event: %v", err)
	}
	if gotPath != "/events" {
		t.Fatalf("expected POST /events, got %s", gotPath)
	}
	if gotEvent.RunID != "run-9" || gotEvent.Type != EventFloorReached {
		t.Fatalf("unexpected event on the wire: %+v", gotEvent)
	}
	if gotEvent.Data["floor"] != float64(3) {
		t.Fatalf("expected floor 3 in event data, got %v", gotEvent.Data["floor"])
	}
}

func TestSubmitEventReportsBackendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	reporter := NewHTTPReporter(server.URL, time.Second)
	err := reporter.SubmitEvent(context.Background(), Event{Type: EventLevelUp})
	if err == nil {
		t.Fatalf("expected an error for a 502 response")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestSubmitScoreRespectsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The server only watches for client disconnects (which cancel
		// r.Context()) after the request body has been drained.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	reporter := NewHTTPReporter(server.URL, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := reporter.SubmitScore(ctx, Result{}); err == nil {
		t.Fatalf("expected a context timeout error")
	}
}

func TestNopReporterAcksEverything(t *testing.T) {
	reporter := NopReporter()
	if _, err := reporter.SubmitScore(context.Background(), Result{}); err != nil {
		t.Fatalf("nop score: %v", err)
	}
	if err := reporter.SubmitEvent(context.Background(), Event{}); err != nil {
		t.Fatalf("nop event: %v", err)
	}
}
