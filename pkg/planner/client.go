// Package planner talks to the plan-producing completion service and turns its raw answers into plans.
package planner

import (
	"context"
	"fmt"

	"github.com/dukex/roadbook/pkg/models"
)

// FinishReasonStop is the only finish reason treated as a complete answer.
const FinishReasonStop = "stop"

// Constraints bound the shape of the plan the service is asked to produce.
type Constraints struct {
	MaxSegmentsPerDay int `json:"max_segments_per_day" yaml:"max_segments_per_day" validate:"min=1,max=12"`
	MaxDays           int `json:"max_days"             yaml:"max_days"             validate:"min=1,max=30"`
}

// Request is everything the service needs to draft a plan.
type Request struct {
	NoteTitle   string
	NoteText    string
	Preferences models.Preferences
	Constraints Constraints
}

// Usage reports token consumption for one request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Response is the raw answer of the service. Content is expected to hold a JSON plan.
type Response struct {
	Content      string
	FinishReason string
	Usage        Usage
}

// Client produces candidate plans. Implementations must be safe for concurrent use.
type Client interface {
	Produce(ctx context.Context, request Request) (*Response, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, request Request) (*Response, error)

// Produce calls f.
func (f ClientFunc) Produce(ctx context.Context, request Request) (*Response, error) {
	return f(ctx, request)
}

// HTTPError represents a non-2xx answer from the completion service.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("planner HTTP %d: %s", e.StatusCode, e.Body)
}
