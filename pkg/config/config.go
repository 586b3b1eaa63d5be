// Package config provides the generation tuning shared by the API and worker binaries.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dukex/roadbook/pkg/planner"
	"github.com/dukex/roadbook/pkg/spend"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Generation tunes the orchestrator, the plan client and the reaper.
type Generation struct {
	Model          string        `yaml:"model"           validate:"required"`
	Temperature    float64       `yaml:"temperature"     validate:"gte=0,lte=2"`
	PlannerTimeout time.Duration `yaml:"planner_timeout" validate:"gt=0"`

	Pricing            spend.Pricing `yaml:"pricing"`
	MonthlySpendCapUSD float64       `yaml:"monthly_spend_cap_usd" validate:"gt=0"`

	Constraints planner.Constraints `yaml:"constraints"`
	Thresholds  planner.Thresholds  `yaml:"thresholds"`

	StaleAfter     time.Duration `yaml:"stale_after"     validate:"gte=1m"`
	ReaperSchedule string        `yaml:"reaper_schedule" validate:"required"`
}

// Default returns the configuration used when no file is given.
func Default() Generation {
	return Generation{
		Model:          planner.DefaultModel,
		Temperature:    0.4,
		PlannerTimeout: 90 * time.Second,
		Pricing: spend.Pricing{
			InputPerMillion:  0.15,
			OutputPerMillion: 0.60,
		},
		MonthlySpendCapUSD: 5,
		Constraints: planner.Constraints{
			MaxSegmentsPerDay: 6,
			MaxDays:           7,
		},
		Thresholds:     planner.DefaultThresholds,
		StaleAfter:     10 * time.Minute,
		ReaperSchedule: "@every 1m",
	}
}

// Load reads a YAML file over the defaults and validates the result. An empty path returns the defaults.
func Load(path string) (Generation, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Generation{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = yaml.Unmarshal(data, &cfg)
		if err != nil {
			return Generation{}, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	err := cfg.Validate()
	if err != nil {
		return Generation{}, err
	}

	return cfg, nil
}

// Validate checks every field against its bounds.
func (g Generation) Validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(g)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return fmt.Errorf("invalid generation config: field %s failed %q", validationErrors[0].Namespace(), validationErrors[0].Tag())
		}

		return fmt.Errorf("invalid generation config: %w", err)
	}

	return nil
}
