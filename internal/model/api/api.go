// Package api defines the request and response bodies of the HTTP contract
// between the terminal client and the server.
package api

import (
	"time"

	"igdm/internal/model/dm"
)

// HealthResponse reports server liveness and authentication state.
type HealthResponse struct {
	Status        string `json:"status"`
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
}

// PublicKeyResponse carries the server's credential-transport public key.
type PublicKeyResponse struct {
	PublicKey string `json:"public_key"`
}

// LoginRequest carries either an encrypted credential (preferred) or, when
// the server allows it, a plaintext one for local testing.
type LoginRequest struct {
	Username          string `json:"username"`
	Password          string `json:"password,omitempty"`
	EncryptedPassword string `json:"encrypted_password,omitempty"`
}

// LoginResponse is the authenticated account identity.
type LoginResponse struct {
	AccountID   string `json:"account_id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
}

// InboxResponse is a bounded page of conversation summaries.
type InboxResponse struct {
	Conversations []dm.Conversation `json:"conversations"`
}

// ThreadResponse is a bounded page of messages for one thread.
type ThreadResponse struct {
	ThreadID string       `json:"thread_id"`
	Title    string       `json:"title,omitempty"`
	Messages []dm.Message `json:"messages"`
}

// SendRequest carries the message text for both send endpoints.
type SendRequest struct {
	Text string `json:"text"`
}

// SendResponse echoes the sent message.
type SendResponse struct {
	Message dm.Message `json:"message"`
}

// UserResponse is the minimal profile lookup result.
type UserResponse struct {
	User dm.User `json:"user"`
}

// ErrorBody is the structured error object every failure yields.
type ErrorBody struct {
	Kind              string `json:"kind"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

// ErrorResponse wraps ErrorBody under a stable top-level key.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// WSEvent is one frame on the live thread watch socket.
type WSEvent struct {
	Type      string      `json:"type"` // "message" or "status"
	ThreadID  string      `json:"thread_id"`
	Message   *dm.Message `json:"message,omitempty"`
	Status    string      `json:"status,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
