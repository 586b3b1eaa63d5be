// Package spend tracks estimated plan-service spend per user and calendar month.
package spend

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/roadbook/pkg/models"
)

// Ledger accumulates spend per user for the current UTC calendar month.
type Ledger interface {
	MonthToDate(ctx context.Context, userID string, now time.Time) (float64, error)
	Record(ctx context.Context, userID string, now time.Time, amountUSD float64) error
}

// Pricing holds per-million-token prices in USD.
type Pricing struct {
	InputPerMillion  float64 `yaml:"input_per_million"  validate:"gte=0"`
	OutputPerMillion float64 `yaml:"output_per_million" validate:"gte=0"`
}

// Cost estimates what the given token counts cost.
func (p Pricing) Cost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)*p.InputPerMillion/1e6 + float64(completionTokens)*p.OutputPerMillion/1e6
}

// Usage turns token counts into a usage record with its estimated cost.
func (p Pricing) Usage(promptTokens, completionTokens int) models.Usage {
	return models.Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		EstimatedCostUSD: p.Cost(promptTokens, completionTokens),
	}
}

// Month returns the UTC calendar month bucket for now, formatted YYYY-MM.
func Month(now time.Time) string {
	return now.UTC().Format("2006-01")
}

func ledgerKey(userID string, now time.Time) string {
	return fmt.Sprintf("roadbook:spend:%s:%s", userID, Month(now))
}
