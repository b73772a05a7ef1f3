// Package server manages individual stream subscribers, handling the
// read/write pumps and lifecycle for each WebSocket connection.
package server

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 54 * time.Second
	// Subscribers never send application data; a small limit keeps a
	// misbehaving client from buffering junk server-side.
	streamReadLimit = 512
)

// subscriber is one stream connection. The hub writes encoded river
// states into send; the write pump drains it onto the wire.
type subscriber struct {
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	addr   string
	closed bool
}

func newSubscriber(conn *websocket.Conn, hub *Hub, addr string) *subscriber {
	if conn != nil {
		conn.SetReadLimit(streamReadLimit)
	}
	return &subscriber{
		conn: conn,
		send: make(chan []byte, 32),
		hub:  hub,
		addr: addr,
	}
}

// readPump services control frames and detects disconnects. Data frames
// from subscribers carry no meaning and are discarded.
func (s *subscriber) readPump() {
	defer func() {
		// Once the hub's loop has stopped, nothing receives unregister
		// anymore; the loop already closes every connection on shutdown.
		select {
		case s.hub.unregister <- s:
		case <-s.hub.ctx.Done():
		}
		if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
			slog.Warn("close stream connection in read pump", "addr", s.addr, "error", err)
		}
	}()

	if err := s.conn.SetReadDeadline(time.Now().Add(streamPongWait)); err != nil {
		slog.Warn("set stream read deadline", "addr", s.addr, "error", err)
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			s.logReadEnd(err)
			return
		}
	}
}

func (s *subscriber) logReadEnd(err error) {
	switch {
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		slog.Info("stream subscriber left", "addr", s.addr)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		slog.Info("stream connection closed", "addr", s.addr)
	default:
		slog.Warn("stream read error", "addr", s.addr, "error", err)
	}
}

// writePump drains the send channel onto the connection and keeps the
// connection alive with periodic pings.
func (s *subscriber) writePump() {
	ticker := time.NewTicker(streamPingPeriod)
	defer func() {
		ticker.Stop()
		if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
			slog.Warn("close stream connection in write pump", "addr", s.addr, "error", err)
		}
	}()

	for {
		select {
		case payload, ok := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
				slog.Warn("set stream write deadline", "addr", s.addr, "error", err)
				return
			}
			if !ok {
				// Hub closed the channel; tell the client we are done.
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				if !isExpectedCloseError(err) {
					slog.Warn("write stream update", "addr", s.addr, "error", err)
				}
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.hub.ctx.Done():
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(streamWriteWait))
			return
		}
	}
}
