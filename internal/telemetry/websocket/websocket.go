// Package websocket streams frames to a live viewer over a WebSocket.
package websocket

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/driftworks/vehiclectl/internal/config"
	"github.com/driftworks/vehiclectl/pkg/core"
	"github.com/driftworks/vehiclectl/pkg/streaming"
)

// ErrNoSession is returned when frames arrive before StartSession.
var ErrNoSession = errors.New("no active session")

// Backend streams session data over WebSocket. Frames are fire-and-forget;
// session start and end wait for a server ack.
type Backend struct {
	conn *connection
	cfg  config.WebSocketConfig

	session atomic.Pointer[core.Session]
	frames  atomic.Uint64
}

// New creates a new WebSocket backend.
func New(cfg config.WebSocketConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("component", "websocket"), 0),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Dropped returns the number of messages lost to a full send queue.
func (b *Backend) Dropped() uint64 {
	return b.conn.dropped.Load()
}

// StartSession announces the session and waits for the server ack.
func (b *Backend) StartSession(s *core.Session) error {
	data, err := streaming.Marshal(streaming.TypeStartSession, streaming.StartSessionPayload{Session: s})
	if err != nil {
		return err
	}

	b.conn.mu.Lock()
	b.conn.cachedStart = data
	b.conn.mu.Unlock()

	b.frames.Store(0)
	b.session.Store(s)
	return b.conn.sendAndWait(data, streaming.TypeStartSession, ackTimeout)
}

// EndSession sends end_session and waits for the server ack.
func (b *Backend) EndSession() error {
	s := b.session.Swap(nil)
	if s == nil {
		return ErrNoSession
	}

	data, err := streaming.Marshal(streaming.TypeEndSession, streaming.EndSessionPayload{
		SessionID: s.ID,
		Frames:    b.frames.Load(),
	})
	if err == nil {
		err = b.conn.sendAndWait(data, streaming.TypeEndSession, ackTimeout)
	}

	// Clear cached state regardless of error.
	b.conn.mu.Lock()
	b.conn.cachedStart = nil
	b.conn.mu.Unlock()

	return err
}

// RecordFrame queues a frame message.
func (b *Backend) RecordFrame(f *core.Frame) error {
	if b.session.Load() == nil {
		return ErrNoSession
	}
	data, err := streaming.Marshal(streaming.TypeFrame, f)
	if err != nil {
		return err
	}
	b.conn.send(data)
	b.frames.Add(1)
	return nil
}
