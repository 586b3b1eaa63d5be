package cmd

import (
	"github.com/dukex/roadbook/pkg/config"
	"github.com/dukex/roadbook/pkg/planner"
)

func NewPlanner(apiKey, baseURL string, cfg config.Generation) (*planner.OpenAIClient, error) {
	return planner.NewOpenAIClient(planner.OpenAIConfig{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Timeout:     cfg.PlannerTimeout,
	})
}
