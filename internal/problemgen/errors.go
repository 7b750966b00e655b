package problemgen

import (
	"errors"
	"fmt"
)

// ErrInsufficientDistinctOptions is returned when a multiple choice
// question cannot be given the configured number of distinct options.
var ErrInsufficientDistinctOptions = errors.New("insufficient distinct options")

// ErrNoTemplateSource is returned by RegenerateFromSeed on an engine built
// without a TemplateSource.
var ErrNoTemplateSource = errors.New("no template source configured")

// ConstraintViolation reports a parameter that cannot be sampled.
type ConstraintViolation struct {
	Param  string
	Reason string
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("parameter %q: %s", e.Param, e.Reason)
}

// ComputedVarError reports a derived value whose formula failed.
type ComputedVarError struct {
	Name  string
	Cause error
}

func (e *ComputedVarError) Error() string {
	return fmt.Sprintf("computed %q: %v", e.Name, e.Cause)
}

func (e *ComputedVarError) Unwrap() error {
	return e.Cause
}

// InsufficientOptionsError carries how many options could be produced.
type InsufficientOptionsError struct {
	Want int
	Got  int
}

func (e *InsufficientOptionsError) Error() string {
	return fmt.Sprintf("%v: want %d, got %d", ErrInsufficientDistinctOptions, e.Want, e.Got)
}

func (e *InsufficientOptionsError) Unwrap() error {
	return ErrInsufficientDistinctOptions
}

// UnresolvedPlaceholderError reports a {{name}} with no scope entry.
type UnresolvedPlaceholderError struct {
	Name string
}

func (e *UnresolvedPlaceholderError) Error() string {
	return fmt.Sprintf("unresolved placeholder {{%s}}", e.Name)
}

// Stage names a step of the generation pipeline.
type Stage string

const (
	StageValidating        Stage = "Validating"
	StageSampling          Stage = "Sampling"
	StageComputingVars     Stage = "ComputingVars"
	StageResolvingAnswer   Stage = "ResolvingAnswer"
	StageGeneratingOptions Stage = "GeneratingOptions"
	StageRendering         Stage = "Rendering"
	StageChecking          Stage = "Checking"
	StageComplete          Stage = "Complete"
)

// GenerationError is the Failed state of one generation run.
type GenerationError struct {
	TemplateID string
	Stage      Stage
	Seed       Seed
	Err        error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("template %s: %s failed: %v", e.TemplateID, e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// StageOf returns the failing stage of err, or "" if err is not a
// GenerationError.
func StageOf(err error) Stage {
	var gerr *GenerationError
	if errors.As(err, &gerr) {
		return gerr.Stage
	}
	return ""
}
