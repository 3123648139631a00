package slacksocket

import (
	"errors"

	"github.com/slacksocket/slacksocket/internal/webapi"
)

// ErrClosed is returned by GetEvent and Events once the client is closed,
// either explicitly or because the connection was lost.
var ErrClosed = errors.New("slacksocket: client closed")

// AuthError reports that Slack rejected the token during bootstrap. Returned
// wrapped from New; unwrap with errors.As.
type AuthError = webapi.AuthError

// APIError is a non-auth failure reported by the Slack Web API.
type APIError = webapi.APIError

// ConnectionState tracks the client's single live transition path. States
// are never re-entered; a new session means a new Client.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateClosing
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
