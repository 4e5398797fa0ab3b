// Package broker implements the WebSocket session to the market data
// gateway: connect handshake, contract resolution, and historical bar
// retrieval over an id-correlated command protocol.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a single gateway session. A Client connects once; after Close
// it cannot be reused.
type Client struct {
	cfg    Config
	logger *slog.Logger

	conn *websocket.Conn

	// Write serialization
	writeMu sync.Mutex

	// In-flight commands keyed by request id
	pendingMu sync.Mutex
	pending   map[int64]chan response
	reqID     int64

	// State
	mu            sync.RWMutex
	connected     bool
	closed        bool
	serverVersion int
	connectedAt   time.Time
	lastPingAt    time.Time

	done chan struct{}
}

// NewClient creates a new gateway client. Zero timeouts in cfg are
// replaced with the defaults.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	def := DefaultConfig()
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = def.PingTimeout
	}

	return &Client{
		cfg:     cfg,
		logger:  logger,
		pending: make(map[int64]chan response),
		done:    make(chan struct{}),
	}
}

// Connect dials the gateway and performs the session handshake. The
// connection is unusable until Connect returns nil.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.mu.Unlock()

	header := http.Header{}
	header.Set("Accept", "application/json")

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.lastPingAt = time.Now()
	c.mu.Unlock()

	// The gateway sends pings to probe the session; answer them and track
	// the last one so a dead session is distinguishable from a slow call.
	conn.SetPingHandler(func(data string) error {
		c.mu.Lock()
		c.lastPingAt = time.Now()
		c.mu.Unlock()

		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	conn.SetPongHandler(func(data string) error {
		c.mu.Lock()
		c.lastPingAt = time.Now()
		c.mu.Unlock()
		return nil
	})

	go c.readLoop()

	ack, err := c.handshake(ctx)
	if err != nil {
		c.Close()
		return fmt.Errorf("handshake: %w", err)
	}

	c.mu.Lock()
	c.serverVersion = ack.ServerVersion
	c.connectedAt = time.Now()
	c.mu.Unlock()

	c.logger.Debug("gateway session established",
		"url", c.cfg.URL,
		"client_id", c.cfg.ClientID,
		"server_version", ack.ServerVersion,
	)

	return nil
}

// ResolveContract asks the gateway to qualify spec into a concrete
// contract. An ambiguous or unknown instrument comes back as a
// *GatewayError with code "no_contract".
func (c *Client) ResolveContract(ctx context.Context, spec ContractSpec) (Contract, error) {
	resp, err := c.call(ctx, "resolve", spec)
	if err != nil {
		return Contract{}, err
	}

	var contract Contract
	if err := json.Unmarshal(resp.Msg, &contract); err != nil {
		return Contract{}, fmt.Errorf("decode contract: %w", err)
	}
	return contract, nil
}

// HistoricalBars requests historical bars for a resolved contract. An
// empty slice with a nil error means the gateway had no data for the
// requested window.
func (c *Client) HistoricalBars(ctx context.Context, contract Contract, req BarRequest) ([]Bar, error) {
	params := historyParams{
		Contract:   contract,
		Duration:   req.Duration,
		BarSize:    req.BarSize,
		WhatToShow: req.WhatToShow,
		UseRTH:     req.UseRTH,
	}

	resp, err := c.call(ctx, "history", params)
	if err != nil {
		return nil, err
	}

	var msg barsMsg
	if err := json.Unmarshal(resp.Msg, &msg); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	return msg.Bars, nil
}

// Close tears down the session. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	c.mu.Unlock()

	// Signal the read loop and any in-flight calls to stop
	close(c.done)

	if c.conn != nil {
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return c.conn.Close()
	}

	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// ServerVersion returns the version reported in the handshake ack, or 0
// before Connect.
func (c *Client) ServerVersion() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverVersion
}

// stale reports whether the gateway has gone quiet past the ping window.
func (c *Client) stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Since(c.lastPingAt) > c.cfg.PingTimeout
}

// handshake identifies the session and waits for the gateway's ack.
func (c *Client) handshake(ctx context.Context) (handshakeAck, error) {
	resp, err := c.call(ctx, "handshake", handshakeParams{ClientID: c.cfg.ClientID})
	if err != nil {
		return handshakeAck{}, err
	}

	var ack handshakeAck
	if err := json.Unmarshal(resp.Msg, &ack); err != nil {
		return handshakeAck{}, fmt.Errorf("decode handshake ack: %w", err)
	}
	return ack, nil
}

// call sends a command and waits for its response.
func (c *Client) call(ctx context.Context, op string, params interface{}) (response, error) {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	if !connected {
		return response{}, ErrNotConnected
	}

	id := atomic.AddInt64(&c.reqID, 1)
	respCh := make(chan response, 1)

	c.pendingMu.Lock()
	c.pending[id] = respCh
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	data, err := json.Marshal(request{ID: id, Op: op, Params: params})
	if err != nil {
		return response{}, fmt.Errorf("encode %s request: %w", op, err)
	}
	if err := c.send(data); err != nil {
		return response{}, err
	}

	select {
	case <-ctx.Done():
		return response{}, ctx.Err()
	case <-c.done:
		return response{}, ErrNotConnected
	case <-time.After(c.cfg.CallTimeout):
		if c.stale() {
			return response{}, fmt.Errorf("%s: %w", op, ErrStaleSession)
		}
		return response{}, fmt.Errorf("%s: %w", op, ErrTimeout)
	case resp := <-respCh:
		if resp.Type == "error" {
			var msg errorMsg
			json.Unmarshal(resp.Msg, &msg)
			return response{}, &GatewayError{Code: msg.Code, Message: msg.Message}
		}
		return resp, nil
	}
}

// send writes raw bytes to the connection.
func (c *Client) send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop reads gateway messages and routes responses to waiting calls.
func (c *Client) readLoop() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			// Ignore errors after Close() is called
			select {
			case <-c.done:
			default:
				c.logger.Debug("gateway read loop ended", "error", err)
			}
			return
		}

		var resp response
		if err := json.Unmarshal(data, &resp); err != nil {
			c.logger.Warn("malformed gateway message", "error", err)
			continue
		}

		c.routeResponse(resp)
	}
}

// routeResponse sends a response to the goroutine waiting on its id.
func (c *Client) routeResponse(resp response) {
	c.pendingMu.Lock()
	ch, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.pendingMu.Unlock()

	if !ok {
		c.logger.Debug("unmatched gateway response", "id", resp.ID, "type", resp.Type)
		return
	}

	select {
	case ch <- resp:
	default:
	}
}
