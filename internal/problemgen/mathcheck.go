package problemgen

import (
	"fmt"
	"time"

	"github.com/abhisek/probgen/internal/expr"
	"github.com/abhisek/probgen/internal/template"
)

// MathCheckValidator independently recomputes the answer from the
// resolved scope recorded on the instance. Text answers pass through.
// Timeout bounds the recomputation; zero means expr.DefaultTimeout. The
// Engine sets it to its own EvalTimeout.
type MathCheckValidator struct {
	Timeout time.Duration
}

func (v *MathCheckValidator) Name() string { return "math-check" }

func (v *MathCheckValidator) Validate(inst *ProblemInstance, t *template.ProblemTemplate) *ValidationError {
	if inst.Answer.Kind != AnswerNumeric {
		return nil
	}
	scope := make(map[string]float64, len(inst.ResolvedParams)+len(inst.ResolvedComputed))
	for k, val := range inst.ResolvedParams {
		if val.Numeric {
			scope[k] = val.Number
		}
	}
	for k, val := range inst.ResolvedComputed {
		scope[k] = val.Number
	}

	timeout := v.Timeout
	if timeout <= 0 {
		timeout = expr.DefaultTimeout
	}
	got, err := expr.NewEvaluator(timeout).Evaluate(t.AnswerFormula, scope)
	if err != nil {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("recompute failed: %v", err),
		}
	}
	got = expr.Round(got, inst.Answer.Decimals)
	if FormatFixed(got, inst.Answer.Decimals) != inst.Answer.Formatted() {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("recomputed %s but instance claims %s", FormatFixed(got, inst.Answer.Decimals), inst.Answer.Formatted()),
		}
	}
	return nil
}
