package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Validator is implemented by configs that check cross-field constraints
// after parsing.
type Validator interface {
	Validate() error
}

// Load parses environment variables into cfg using its `env` and
// `envDefault` tags, then runs cfg.Validate when cfg implements Validator.
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
	}
	return nil
}
