package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/storyriver/internal/river"
)

// dialStream connects a WebSocket client to the fixture's stream
// endpoint with an accepted origin header.
func dialStream(t *testing.T, fixture *riverFixture) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(fixture.url, "http") + "/stream"
	header := http.Header{"Origin": []string{"http://localhost:8080"}}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("Failed to connect to stream endpoint: %v", err)
	}
	if resp != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readState reads one JSON frame from the stream connection.
func readState(t *testing.T, conn *websocket.Conn, timeout time.Duration) river.State {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read stream frame: %v", err)
	}

	var state river.State
	if err := json.Unmarshal(payload, &state); err != nil {
		t.Fatalf("Failed to decode stream frame %q: %v", payload, err)
	}
	return state
}

// TestStreamInitialSnapshot verifies that a new subscriber receives the
// current river state immediately, without waiting for a generation.
func TestStreamInitialSnapshot(t *testing.T) {
	fixture := newRiverFixture(t, nil, nil)
	fixture.server.StartHub()
	t.Cleanup(func() { _ = fixture.server.Hub().Shutdown(5 * time.Second) })

	conn := dialStream(t, fixture)

	state := readState(t, conn, 2*time.Second)
	if state.Sequence != 0 {
		t.Errorf("Expected initial snapshot at sequence 0, got %d", state.Sequence)
	}
	if state.Text != "Once upon a time..." {
		t.Errorf("Unexpected initial snapshot text: %q", state.Text)
	}
}

// TestStreamReceivesPublishedUpdates verifies that generation results
// flow from the cycle through the hub to connected subscribers.
func TestStreamReceivesPublishedUpdates(t *testing.T) {
	fixture := newRiverFixture(t, []string{"the lanterns drifted downstream"}, nil)
	fixture.server.StartHub()
	t.Cleanup(func() { _ = fixture.server.Hub().Shutdown(5 * time.Second) })
	fixture.cycle.NotifyPublish(fixture.server.Hub().Publish)

	conn := dialStream(t, fixture)

	// Drain the initial snapshot before triggering a generation.
	initial := readState(t, conn, 2*time.Second)
	if initial.Sequence != 0 {
		t.Fatalf("Expected initial snapshot at sequence 0, got %d", initial.Sequence)
	}

	published, err := fixture.cycle.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("Generation cycle failed: %v", err)
	}

	update := readState(t, conn, 2*time.Second)
	if update.Sequence != published.Sequence {
		t.Errorf("Expected streamed sequence %d, got %d", published.Sequence, update.Sequence)
	}
	if update.Delta != published.Delta {
		t.Errorf("Expected streamed fragment %q, got %q", published.Delta, update.Delta)
	}
}

// TestStreamRejectsMissingOrigin verifies that upgrade requests without
// an Origin header are refused even when a wildcard is configured.
func TestStreamRejectsMissingOrigin(t *testing.T) {
	fixture := newRiverFixture(t, nil, nil)
	fixture.server.StartHub()
	t.Cleanup(func() { _ = fixture.server.Hub().Shutdown(5 * time.Second) })

	wsURL := "ws" + strings.TrimPrefix(fixture.url, "http") + "/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		_ = conn.Close()
		t.Fatalf("Expected upgrade without origin to fail")
	}
	if resp != nil {
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("Expected status %d for missing origin, got %d", http.StatusForbidden, resp.StatusCode)
		}
	}
}
