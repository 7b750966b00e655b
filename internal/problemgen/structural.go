package problemgen

import (
	"fmt"
	"strings"

	"github.com/abhisek/probgen/internal/template"
)

const (
	maxQuestionLength    = 2000
	maxExplanationLength = 4000
)

// StructuralValidator checks that an instance has the fields its template
// promises and that rendered text is within length limits.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(inst *ProblemInstance, t *template.ProblemTemplate) *ValidationError {
	if strings.TrimSpace(inst.QuestionText) == "" {
		return &ValidationError{
			Validator: v.Name(),
			Message:   "question text is empty",
		}
	}
	if len(inst.QuestionText) > maxQuestionLength {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("question text exceeds %d characters", maxQuestionLength),
		}
	}
	if len(inst.Explanation) > maxExplanationLength {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("explanation exceeds %d characters", maxExplanationLength),
		}
	}
	if inst.Seed == "" {
		return &ValidationError{
			Validator: v.Name(),
			Message:   "instance has no seed",
		}
	}
	if len(inst.SolutionSteps) != len(t.SolutionSteps) {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("rendered %d solution steps, template declares %d", len(inst.SolutionSteps), len(t.SolutionSteps)),
		}
	}
	for _, p := range t.Parameters {
		if _, ok := inst.ResolvedParams[p.Name]; !ok {
			return &ValidationError{
				Validator: v.Name(),
				Message:   fmt.Sprintf("parameter %q was not resolved", p.Name),
			}
		}
	}
	for _, c := range t.ComputedVars {
		if _, ok := inst.ResolvedComputed[c.Name]; !ok {
			return &ValidationError{
				Validator: v.Name(),
				Message:   fmt.Sprintf("computed var %q was not resolved", c.Name),
			}
		}
	}
	return nil
}
