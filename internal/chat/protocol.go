// ABOUTME: Request/response contract with the remote conversation service.
// ABOUTME: Transport is the only network boundary the controller sees.

package chat

import (
	"context"
	"encoding/json"
)

// Request is one user turn sent to the service.
type Request struct {
	Message          string          `json:"message"`
	CurrentAgent     string          `json:"current_agent,omitempty"`
	IsSuggestedReply bool            `json:"is_suggested_reply,omitempty"`
	CardData         json.RawMessage `json:"card_data,omitempty"`
}

// Response is the service's reply to one turn.
type Response struct {
	Response         string   `json:"response"`
	Agent            string   `json:"agent"`
	Cards            CardList `json:"cards,omitempty"`
	SuggestedReplies []string `json:"suggested_replies,omitempty"`

	// Confirmed, when present, says whether this reply completes a booking.
	Confirmed *bool `json:"confirmed,omitempty"`

	Timestamp string `json:"timestamp,omitempty"`
	AgentType string `json:"agent_type,omitempty"`
	Icon      string `json:"icon,omitempty"`
}

// Transport performs one request/response exchange with the service.
// Network errors and non-success statuses are both returned as errors.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

// Send calls f(ctx, req).
func (f TransportFunc) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
