// Package server exposes the HTTP handlers for the river: the front-end
// page, the polling endpoint, contributions, the stream upgrade, and
// health checks.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/storyriver/internal/metrics"
	"github.com/Tyrowin/storyriver/internal/river"
)

// RiverSource provides the current river snapshot. The in-memory store
// never fails, but a persistence-backed source may, so the error is part
// of the contract and drives the degraded /text payload.
type RiverSource interface {
	Current() (river.State, error)
}

type storeSource struct {
	store *river.Store
}

func (s storeSource) Current() (river.State, error) {
	return s.store.Current(), nil
}

// StoreSource adapts an in-memory store to the RiverSource interface.
func StoreSource(store *river.Store) RiverSource {
	return storeSource{store: store}
}

// Server owns the HTTP surface. It consumes the store and queue built at
// process start; it contains no generation logic of its own.
type Server struct {
	cfg            Config
	source         RiverSource
	queue          *river.Queue
	limiter        *cooldownLimiter
	hub            *Hub
	origins        map[string]struct{}
	originAllowAll bool
}

// New wires the handlers to their collaborators. The rate limiter and
// stream hub are owned here; the store and queue are shared with the
// generation cycle.
func New(cfg Config, source RiverSource, queue *river.Queue) *Server {
	cfg.sanitize()
	origins, allowAll := normalizeOrigins(cfg.AllowedOrigins)

	return &Server{
		cfg:            cfg,
		source:         source,
		queue:          queue,
		limiter:        newCooldownLimiter(cfg.RateLimitWindow, cfg.RateLimitCeiling, cfg.RateLimitRetention),
		hub:            NewHub(),
		origins:        origins,
		originAllowAll: allowAll,
	}
}

// Hub returns the stream hub for lifecycle coordination.
func (s *Server) Hub() *Hub {
	return s.hub
}

// StartHub launches the stream hub's event loop.
func (s *Server) StartHub() {
	go s.hub.Run()
	slog.Info("stream hub started")
}

// HealthHandler provides a simple liveness endpoint.
func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "StoryRiver server is running!")
}

// TextHandler reflects the current river snapshot as JSON. A read
// failure still yields the documented shape, with sequence -1 and the
// error in the text field, so polling clients never need special-case
// parsing.
func (s *Server) TextHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Text endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	state, err := s.source.Current()
	if err != nil {
		slog.Error("river snapshot read failed", "error", err)
		state = river.State{
			Text:     fmt.Sprintf("Error: %v", err),
			Sequence: -1,
			Delta:    "",
		}
	}
	writeJSON(w, http.StatusOK, state)
}

// ContributeHandler accepts a word for the next generation cycle. The
// word is validated first; only words that pass validation are checked
// against (and recorded in) the rate limiter, so a rejected word never
// consumes a client's cooldown.
func (s *Server) ContributeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, contributeResponse{
			Success: false,
			Message: "Method not allowed",
		})
		return
	}

	var req contributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.Contributions.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusOK, contributeResponse{
			Success: false,
			Message: "Invalid request body",
		})
		return
	}

	word := strings.TrimSpace(req.Word)
	if msg := validateWord(word, s.cfg.MaxWordLength); msg != "" {
		metrics.Contributions.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusOK, contributeResponse{Success: false, Message: msg})
		return
	}

	identity := clientIdentity(r)
	if !s.limiter.allow(identity) {
		metrics.Contributions.WithLabelValues("rate_limited").Inc()
		writeJSON(w, http.StatusOK, contributeResponse{
			Success: false,
			Message: fmt.Sprintf("Please wait %d seconds", s.limiter.secondsRemaining(identity)),
		})
		return
	}

	s.queue.Enqueue(river.WrapToken(word))
	metrics.Contributions.WithLabelValues("accepted").Inc()
	slog.Info("contribution accepted", "word", word, "identity", identity, "queued", s.queue.Len())
	writeJSON(w, http.StatusOK, contributeResponse{Success: true})
}

// StreamHandler upgrades the connection and subscribes it to river
// updates. The current snapshot is queued first so a new subscriber does
// not have to wait a full generation interval for its first frame.
func (s *Server) StreamHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Stream endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("stream upgrade failed", "error", err)
		return
	}

	sub := newSubscriber(conn, s.hub, r.RemoteAddr)
	if state, err := s.source.Current(); err == nil {
		if payload, err := json.Marshal(state); err == nil {
			sub.send <- payload
		}
	}
	// A hub that has already shut down no longer accepts registrations;
	// close the connection instead of blocking the handler.
	select {
	case s.hub.register <- sub:
	case <-s.hub.ctx.Done():
		_ = conn.Close()
	}
}

// clientIdentity extracts the rate-limiting identity for a request: the
// remote host without its port. Contributions are anonymous, so the
// address is all there is.
func clientIdentity(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json response", "error", err)
	}
}
