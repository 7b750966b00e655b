package problemgen

import (
	"fmt"

	"github.com/abhisek/probgen/internal/template"
)

// Validator checks a generated instance before it leaves the engine.
// Implementations should be stateless and safe for concurrent use.
type Validator interface {
	// Name returns a short identifier for this validator (for error messages
	// and logging), e.g. "structural", "math-check", "answer-format".
	Name() string

	// Validate returns nil if the instance passes. The template it was
	// generated from is passed for context.
	Validate(inst *ProblemInstance, t *template.ProblemTemplate) *ValidationError
}

// ValidationError describes why an instance failed a check.
type ValidationError struct {
	Validator string // Name of the validator that failed
	Message   string // Human-readable description of the failure
	Retryable bool   // Whether a fresh seed is likely to fix this
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}
