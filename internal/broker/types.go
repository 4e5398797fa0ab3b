package broker

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Errors
var (
	ErrNotConnected  = errors.New("not connected")
	ErrAlreadyClosed = errors.New("already closed")
	ErrStaleSession  = errors.New("session stale (no ping)")

	// ErrTimeout reports a command that got no response within the call
	// window. It declares itself retryable: a later attempt may find a
	// responsive gateway.
	ErrTimeout = transientErr("operation timeout")
)

type transientErr string

func (e transientErr) Error() string     { return string(e) }
func (e transientErr) IsRetryable() bool { return true }

// Gateway error codes reported by the server.
const (
	CodePacingViolation    = "pacing_violation"
	CodeServiceUnavailable = "service_unavailable"
	CodeNoContract         = "no_contract"
	CodeInvalidRequest     = "invalid_request"
	CodeUnauthorized       = "unauthorized"
)

// GatewayError is an application-level error reported by the gateway in
// response to a command.
type GatewayError struct {
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error %s: %s", e.Code, e.Message)
}

// IsRetryable reports whether the request may succeed on a later attempt.
// Pacing and availability problems clear on their own; everything else is
// a property of the request.
func (e *GatewayError) IsRetryable() bool {
	switch e.Code {
	case CodePacingViolation, CodeServiceUnavailable:
		return true
	}
	return false
}

// ContractSpec describes the instrument to resolve. SecType follows the
// gateway's convention: "STK", "FUT", "CASH".
type ContractSpec struct {
	Symbol   string `json:"symbol"`
	SecType  string `json:"sec_type"`
	Exchange string `json:"exchange"`
	Currency string `json:"currency"`
	Expiry   string `json:"expiry,omitempty"` // futures only, YYYYMM
}

// Contract is a fully resolved instrument as returned by the gateway.
type Contract struct {
	ConID    int64  `json:"con_id"`
	Symbol   string `json:"symbol"`
	SecType  string `json:"sec_type"`
	Exchange string `json:"exchange"`
	Currency string `json:"currency"`
	Expiry   string `json:"expiry,omitempty"`
}

// BarRequest describes a historical data query for a resolved contract.
type BarRequest struct {
	Duration   string `json:"duration"`     // e.g. "1 Y"
	BarSize    string `json:"bar_size"`     // e.g. "1 day"
	WhatToShow string `json:"what_to_show"` // "TRADES" or "MIDPOINT"
	UseRTH     bool   `json:"use_rth"`
}

// Bar is a single historical bar. Date is the bar's session date in
// YYYY-MM-DD form. Volume is -1 when the instrument reports none.
type Bar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// request is a command sent to the gateway.
type request struct {
	ID     int64       `json:"id"`
	Op     string      `json:"op"`
	Params interface{} `json:"params,omitempty"`
}

// response is a command response from the gateway.
type response struct {
	ID   int64           `json:"id"`
	Type string          `json:"type"` // "ok" or "error"
	Msg  json.RawMessage `json:"msg"`
}

// handshakeParams identifies this session to the gateway.
type handshakeParams struct {
	ClientID int `json:"client_id"`
}

// handshakeAck is the gateway's reply to a handshake.
type handshakeAck struct {
	ServerVersion  int    `json:"server_version"`
	ConnectionTime string `json:"connection_time"`
}

// historyParams are the parameters for a history command.
type historyParams struct {
	Contract   Contract `json:"contract"`
	Duration   string   `json:"duration"`
	BarSize    string   `json:"bar_size"`
	WhatToShow string   `json:"what_to_show"`
	UseRTH     bool     `json:"use_rth"`
}

// barsMsg is the message content for a history response.
type barsMsg struct {
	Bars []Bar `json:"bars"`
}

// errorMsg is the message content for an "error" response.
type errorMsg struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Config configures a gateway client.
type Config struct {
	URL              string        // WebSocket URL (e.g. ws://127.0.0.1:4001/v1/api/ws)
	ClientID         int           // Session identifier sent in the handshake
	HandshakeTimeout time.Duration // Deadline for the WebSocket upgrade
	CallTimeout      time.Duration // Deadline for a command round trip
	WriteTimeout     time.Duration // Write deadline for sends
	PingTimeout      time.Duration // Max time without ping before the session counts as stale
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		CallTimeout:      60 * time.Second,
		WriteTimeout:     5 * time.Second,
		PingTimeout:      60 * time.Second,
	}
}
