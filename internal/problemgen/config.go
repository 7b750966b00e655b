package problemgen

import (
	"time"

	"github.com/abhisek/probgen/internal/expr"
)

// Config controls the behavior of the Engine.
type Config struct {
	// Validators is the ordered list of checks run on every generated
	// instance. The first failure fails the generation.
	Validators []Validator

	// EvalTimeout bounds each formula evaluation.
	EvalTimeout time.Duration

	// MaxOptionAttempts is how many fresh seeds Preview and Publish try per
	// item when generation fails with a retryable error such as too few
	// distinct options.
	MaxOptionAttempts int

	// Workers bounds concurrent generations in Publish.
	Workers int

	// MaxPublishCount caps a single Publish request.
	MaxPublishCount int
}

// DefaultConfig returns a Config with the standard validator chain
// and recommended defaults.
func DefaultConfig() Config {
	return Config{
		Validators: []Validator{
			&StructuralValidator{},
			&AnswerFormatValidator{},
			&MathCheckValidator{},
		},
		EvalTimeout:       expr.DefaultTimeout,
		MaxOptionAttempts: 5,
		Workers:           4,
		MaxPublishCount:   1000,
	}
}
