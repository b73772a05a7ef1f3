// Package server coordinates stream subscriber registration, river
// update fan-out, and connection cleanup via the Hub type.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/storyriver/internal/river"
)

// Hub fans newly published river states out to every connected stream
// subscriber. Subscribers are write-only consumers; the hub drops a
// subscriber whose send buffer stays full rather than letting one slow
// reader stall the rest.
type Hub struct {
	subscribers map[*subscriber]bool
	updates     chan river.State
	register    chan *subscriber
	unregister  chan *subscriber
	mutex       sync.RWMutex
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewHub creates a hub ready to manage stream subscriptions.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		subscribers: make(map[*subscriber]bool),
		updates:     make(chan river.State, 8),
		register:    make(chan *subscriber),
		unregister:  make(chan *subscriber),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Publish hands a newly published river state to the hub for fan-out.
// It never blocks the caller: if the hub's buffer is full the update is
// dropped, since a fresher one is already on its way next tick.
func (h *Hub) Publish(state river.State) {
	select {
	case h.updates <- state:
	default:
		slog.Warn("stream update dropped, hub buffer full", "sequence", state.Sequence)
	}
}

// Run starts the hub's event loop, handling subscriber registration,
// unregistration, and update fan-out. Call it in its own goroutine; it
// runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.closeSubscribers()
			return

		case sub := <-h.register:
			h.mutex.Lock()
			sub.closed = false
			h.subscribers[sub] = true
			count := len(h.subscribers)
			h.mutex.Unlock()
			slog.Info("stream subscriber connected", "addr", sub.addr, "subscribers", count)

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				sub.writePump()
			}()
			go func() {
				defer h.wg.Done()
				sub.readPump()
			}()

		case sub := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.subscribers[sub]; ok {
				delete(h.subscribers, sub)
				sub.closed = true
				count := len(h.subscribers)
				h.mutex.Unlock()
				// Close the channel after releasing the lock.
				close(sub.send)
				slog.Info("stream subscriber disconnected", "addr", sub.addr, "subscribers", count)
			} else {
				h.mutex.Unlock()
			}

		case state := <-h.updates:
			h.fanOut(state)
		}
	}
}

// fanOut encodes the state once and delivers it to every subscriber,
// removing any whose buffers are full.
func (h *Hub) fanOut(state river.State) {
	payload, err := json.Marshal(state)
	if err != nil {
		slog.Error("encode stream update", "error", err)
		return
	}

	var stale []*subscriber
	for _, sub := range h.snapshotSubscribers() {
		if !h.safeSend(sub, payload) {
			stale = append(stale, sub)
		}
	}
	h.removeStale(stale)
}

func (h *Hub) snapshotSubscribers() []*subscriber {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	subs := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	return subs
}

func (h *Hub) safeSend(sub *subscriber, payload []byte) bool {
	// Hold the read lock across the send so an unregister cannot close
	// the channel out from under us.
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if _, ok := h.subscribers[sub]; !ok || sub.closed {
		return false
	}
	select {
	case sub.send <- payload:
		return true
	default:
		return false
	}
}

func (h *Hub) removeStale(stale []*subscriber) {
	if len(stale) == 0 {
		return
	}

	h.mutex.Lock()
	var channels []chan []byte
	for _, sub := range stale {
		if _, ok := h.subscribers[sub]; ok {
			delete(h.subscribers, sub)
			sub.closed = true
			channels = append(channels, sub.send)
			slog.Warn("stream subscriber dropped, send buffer full", "addr", sub.addr)
		}
	}
	h.mutex.Unlock()

	for _, ch := range channels {
		close(ch)
	}
}

// closeSubscribers closes every active connection during shutdown.
func (h *Hub) closeSubscribers() {
	h.mutex.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mutex.Unlock()

	for _, sub := range subs {
		if sub.conn != nil {
			if err := sub.conn.Close(); err != nil && !isExpectedCloseError(err) {
				slog.Warn("close stream connection", "addr", sub.addr, "error", err)
			}
		}
	}
	slog.Info("closed stream connections", "count", len(subs))
}

// Shutdown stops the hub and waits for the subscriber goroutines to
// finish, up to the timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		slog.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		slog.Warn("hub shutdown timed out")
		return context.DeadlineExceeded
	}
}
