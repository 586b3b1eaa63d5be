package mocks

import (
	"context"

	"github.com/dukex/roadbook/pkg/planner"
	"github.com/stretchr/testify/mock"
)

// MockPlanner is a mock implementation of planner.Client interface.
type MockPlanner struct {
	mock.Mock
}

func (m *MockPlanner) Produce(ctx context.Context, request planner.Request) (*planner.Response, error) {
	args := m.Called(ctx, request)

	response, _ := args.Get(0).(*planner.Response)

	return response, args.Error(1)
}

// StopResponse is a complete answer carrying content.
func StopResponse(content string, promptTokens, completionTokens int) *planner.Response {
	return &planner.Response{
		Content:      content,
		FinishReason: planner.FinishReasonStop,
		Usage:        planner.Usage{PromptTokens: promptTokens, CompletionTokens: completionTokens},
	}
}
