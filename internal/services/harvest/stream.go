package harvest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"InsightHub/internal/domain/models"
	domsvc "InsightHub/internal/domain/service"
	applogger "InsightHub/pkg/logger"
)

type StreamConfig struct {
	Name           string
	URL            string
	Subjects       []string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	BufferSize     int
}

// StreamHarvester keeps a websocket subscription open and buffers every insight
// frame it receives; Fetch drains the buffer once per harvest cycle.
type StreamHarvester struct {
	cfg    StreamConfig
	buffer *Buffer
	log    *applogger.Logger
	dialer *websocket.Dialer

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	lastErr   error
}

func NewStreamHarvester(cfg StreamConfig, l *applogger.Logger) *StreamHarvester {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &StreamHarvester{
		cfg:    cfg,
		buffer: NewBuffer(cfg.BufferSize),
		log:    l.Component("stream_harvester").Component(cfg.Name),
		dialer: websocket.DefaultDialer,
	}
}

func (h *StreamHarvester) Name() string { return h.cfg.Name }

// Fetch drains buffered insights. While disconnected with nothing buffered it
// reports the last connection error so the source counts as failed for the cycle.
func (h *StreamHarvester) Fetch(context.Context) ([]models.Insight, error) {
	out := h.buffer.Drain()
	if len(out) > 0 {
		return out, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.connected && h.lastErr != nil {
		return nil, h.lastErr
	}
	return nil, nil
}

// Run connects and reads until ctx is done, reconnecting after ReconnectDelay.
func (h *StreamHarvester) Run(ctx context.Context) {
	for {
		err := h.session(ctx)
		if ctx.Err() != nil {
			return
		}
		h.setState(false, err)
		h.log.Warn("stream disconnected", applogger.String("url", h.cfg.URL), applogger.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(h.cfg.ReconnectDelay):
		}
	}
}

func (h *StreamHarvester) session(ctx context.Context) error {
	conn, _, err := h.dialer.DialContext(ctx, h.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}
	h.mu.Lock()
	h.conn = conn
	h.mu.Unlock()
	defer h.closeConn(conn)

	for _, s := range h.cfg.Subjects {
		if err := h.write(func(c *websocket.Conn) error {
			return c.WriteJSON(map[string]string{"type": "subscribe", "subject": s})
		}); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
	}
	h.setState(true, nil)
	h.log.Info("stream connected", applogger.String("url", h.cfg.URL), applogger.Strings("subjects", h.cfg.Subjects))

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go h.pingLoop(sessCtx)
	go func() {
		// unblock ReadMessage on shutdown
		<-sessCtx.Done()
		_ = conn.Close()
	}()

	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("stream read: %w", err)
		}
		in, err := decodeInsights(b)
		if err != nil {
			h.log.Debug("ignoring non-insight frame", applogger.Error(err))
			continue
		}
		h.buffer.Push(withSource(in, h.cfg.Name)...)
	}
}

func (h *StreamHarvester) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = h.write(func(c *websocket.Conn) error {
				return c.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			})
		}
	}
}

// write serializes writers; gorilla connections allow only one concurrent writer.
func (h *StreamHarvester) write(fn func(*websocket.Conn) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn == nil {
		return fmt.Errorf("stream not connected")
	}
	return fn(h.conn)
}

func (h *StreamHarvester) closeConn(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	_ = conn.Close()
	if h.conn == conn {
		h.conn = nil
	}
}

func (h *StreamHarvester) setState(connected bool, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connected = connected
	h.lastErr = err
}

// Connected reports whether a session is currently open.
func (h *StreamHarvester) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

var _ domsvc.Harvester = (*StreamHarvester)(nil)
