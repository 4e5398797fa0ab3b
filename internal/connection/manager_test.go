package connection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jcleary/barharvest/internal/broker"
	"github.com/jcleary/barharvest/internal/retry"
)

// fakeGateway fails a fixed number of connect attempts before succeeding.
type fakeGateway struct {
	failures  int
	connects  int
	closes    int
	connected bool
}

func (f *fakeGateway) Connect(ctx context.Context) error {
	f.connects++
	if f.connects <= f.failures {
		return errors.New("connection refused")
	}
	f.connected = true
	return nil
}

func (f *fakeGateway) ResolveContract(ctx context.Context, spec broker.ContractSpec) (broker.Contract, error) {
	return broker.Contract{}, nil
}

func (f *fakeGateway) HistoricalBars(ctx context.Context, contract broker.Contract, req broker.BarRequest) ([]broker.Bar, error) {
	return nil, nil
}

func (f *fakeGateway) Close() error {
	f.closes++
	f.connected = false
	return nil
}

func (f *fakeGateway) IsConnected() bool { return f.connected }

func newTestManager(attempts int, fake *fakeGateway) *Manager {
	m := NewManager(Config{
		Host:            "127.0.0.1",
		Port:            4001,
		ClientID:        1,
		ConnectAttempts: attempts,
		ConnectBackoff:  time.Millisecond,
	}, nil)
	m.newGateway = func() Gateway { return fake }
	return m
}

func TestManager_ConnectFirstTry(t *testing.T) {
	fake := &fakeGateway{}
	m := newTestManager(3, fake)

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if got := m.State(); got != StateConnected {
		t.Errorf("State = %v, want %v", got, StateConnected)
	}
	if m.Gateway() == nil {
		t.Error("Gateway should be available after Connect")
	}
	if fake.connects != 1 {
		t.Errorf("connects = %d, want 1", fake.connects)
	}
}

func TestManager_ConnectRetriesThenSucceeds(t *testing.T) {
	fake := &fakeGateway{failures: 2}
	m := newTestManager(5, fake)

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if fake.connects != 3 {
		t.Errorf("connects = %d, want 3", fake.connects)
	}
	if got := m.State(); got != StateConnected {
		t.Errorf("State = %v, want %v", got, StateConnected)
	}
}

func TestManager_ConnectBudgetTooSmall(t *testing.T) {
	// Would succeed on attempt 3, but only 2 attempts are allowed.
	fake := &fakeGateway{failures: 2}
	m := newTestManager(2, fake)

	err := m.Connect(context.Background())
	if !errors.Is(err, ErrConnectFailed) {
		t.Fatalf("err = %v, want ErrConnectFailed", err)
	}

	if fake.connects != 2 {
		t.Errorf("connects = %d, want 2", fake.connects)
	}
	if got := m.State(); got != StateFailed {
		t.Errorf("State = %v, want %v", got, StateFailed)
	}
}

func TestManager_ConnectExhaustion(t *testing.T) {
	fake := &fakeGateway{failures: 100}
	m := newTestManager(3, fake)

	err := m.Connect(context.Background())
	if !errors.Is(err, ErrConnectFailed) {
		t.Fatalf("err = %v, want ErrConnectFailed", err)
	}

	var ex *retry.ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("err = %v, want a wrapped *retry.ExhaustedError", err)
	}
	if ex.Attempts != 3 {
		t.Errorf("ExhaustedError.Attempts = %d, want 3", ex.Attempts)
	}

	if fake.connects != 3 {
		t.Errorf("connects = %d, want 3 (attempt budget)", fake.connects)
	}
	if got := m.State(); got != StateFailed {
		t.Errorf("State = %v, want %v", got, StateFailed)
	}
	if m.Gateway() != nil {
		t.Error("Gateway should be nil after failed connect")
	}
}

func TestManager_DisconnectIdempotent(t *testing.T) {
	fake := &fakeGateway{}
	m := newTestManager(3, fake)

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if err := m.Disconnect(); err != nil {
		t.Errorf("first Disconnect failed: %v", err)
	}
	if err := m.Disconnect(); err != nil {
		t.Errorf("second Disconnect failed: %v", err)
	}

	if fake.closes != 1 {
		t.Errorf("closes = %d, want 1", fake.closes)
	}
	if got := m.State(); got != StateDisconnected {
		t.Errorf("State = %v, want %v", got, StateDisconnected)
	}
	if m.Gateway() != nil {
		t.Error("Gateway should be nil after Disconnect")
	}
}

func TestManager_DisconnectWithoutConnect(t *testing.T) {
	fake := &fakeGateway{}
	m := newTestManager(3, fake)

	if err := m.Disconnect(); err != nil {
		t.Errorf("Disconnect failed: %v", err)
	}
	if fake.closes != 0 {
		t.Errorf("closes = %d, want 0", fake.closes)
	}
}

func TestGatewayURL(t *testing.T) {
	got := gatewayURL("127.0.0.1", 4001)
	want := "ws://127.0.0.1:4001/v1/api/ws"
	if got != want {
		t.Errorf("gatewayURL = %q, want %q", got, want)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ConnectAttempts != 5 {
		t.Errorf("ConnectAttempts = %d, want 5", cfg.ConnectAttempts)
	}
	if cfg.ConnectBackoff != 2*time.Second {
		t.Errorf("ConnectBackoff = %v, want 2s", cfg.ConnectBackoff)
	}
}
