package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jcleary/barharvest/internal/broker"
	"github.com/jcleary/barharvest/internal/retry"
)

// ErrConnectFailed means every connect attempt was spent without a
// session. The run cannot proceed without one.
var ErrConnectFailed = errors.New("gateway connect failed")

// State is the manager's position in its connect lifecycle.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateFailed       State = "failed"
)

// Gateway is the session surface the manager hands out once connected.
// *broker.Client satisfies it.
type Gateway interface {
	Connect(ctx context.Context) error
	ResolveContract(ctx context.Context, spec broker.ContractSpec) (broker.Contract, error)
	HistoricalBars(ctx context.Context, contract broker.Contract, req broker.BarRequest) ([]broker.Bar, error)
	Close() error
	IsConnected() bool
}

// Config configures the connection manager.
type Config struct {
	Host            string        // Gateway host (e.g. 127.0.0.1)
	Port            int           // Gateway port (e.g. 4001)
	ClientID        int           // Session identifier for the handshake
	ConnectAttempts int           // Max connect attempts before giving up
	ConnectBackoff  time.Duration // Base wait between attempts
	CallTimeout     time.Duration // Per-command deadline on the session
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "127.0.0.1",
		Port:            4001,
		ConnectAttempts: 5,
		ConnectBackoff:  2 * time.Second,
		CallTimeout:     60 * time.Second,
	}
}

// Manager owns the gateway session for one harvest run: a single connect
// with bounded retries up front, one disconnect at the end.
type Manager struct {
	cfg    Config
	logger *slog.Logger

	// newGateway builds a fresh session per connect attempt. Sessions are
	// single-use once closed, so a failed attempt cannot be redialed.
	newGateway func() Gateway

	mu      sync.Mutex
	state   State
	gateway Gateway
}

// NewManager creates a connection manager for the given gateway endpoint.
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		cfg:    cfg,
		logger: logger,
		state:  StateDisconnected,
	}
	m.newGateway = func() Gateway {
		return broker.NewClient(broker.Config{
			URL:         gatewayURL(cfg.Host, cfg.Port),
			ClientID:    cfg.ClientID,
			CallTimeout: cfg.CallTimeout,
		}, logger)
	}
	return m
}

// Connect establishes the gateway session, retrying every failure up to
// the configured attempt budget. Exhaustion leaves the manager in
// StateFailed and returns an error wrapping ErrConnectFailed.
func (m *Manager) Connect(ctx context.Context) error {
	m.setState(StateConnecting)

	pol := retry.Policy{
		MaxAttempts: m.cfg.ConnectAttempts,
		Backoff:     m.cfg.ConnectBackoff,
		Jitter:      true,
	}

	attempts, err := retry.Do(ctx, m.logger, pol, retry.Always, func(ctx context.Context) error {
		gw := m.newGateway()
		if err := gw.Connect(ctx); err != nil {
			return err
		}
		m.mu.Lock()
		m.gateway = gw
		m.mu.Unlock()
		return nil
	})
	if err != nil {
		m.setState(StateFailed)
		m.logger.Error("gateway unreachable",
			"host", m.cfg.Host,
			"port", m.cfg.Port,
			"attempts", attempts,
			"error", err,
		)
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	m.setState(StateConnected)
	m.logger.Info("gateway connected",
		"host", m.cfg.Host,
		"port", m.cfg.Port,
		"client_id", m.cfg.ClientID,
		"attempts", attempts,
	)
	return nil
}

// Gateway returns the connected session. Only valid while State() is
// StateConnected.
func (m *Manager) Gateway() Gateway {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gateway
}

// Disconnect closes the session if one exists. Safe to call in any state
// and any number of times.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	gw := m.gateway
	m.gateway = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	if gw == nil {
		return nil
	}

	if err := gw.Close(); err != nil {
		return fmt.Errorf("close gateway: %w", err)
	}
	m.logger.Debug("gateway disconnected", "host", m.cfg.Host, "port", m.cfg.Port)
	return nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// gatewayURL builds the session endpoint for a gateway host and port.
func gatewayURL(host string, port int) string {
	return fmt.Sprintf("ws://%s:%d/v1/api/ws", host, port)
}
