package problemgen

import (
	"strings"

	"github.com/abhisek/probgen/internal/expr"
	"github.com/abhisek/probgen/internal/template"
)

// Render substitutes every {{name}} in text with the display form of the
// matching scope entry. A name without an entry fails the render.
func Render(text string, scope Scope) (string, error) {
	var missing error
	out := template.PlaceholderPattern.ReplaceAllStringFunc(text, func(m string) string {
		name := strings.TrimSpace(m[2 : len(m)-2])
		v, ok := scope[name]
		if !ok || !expr.IsIdentifier(name) {
			if missing == nil {
				missing = &UnresolvedPlaceholderError{Name: name}
			}
			return m
		}
		return v.Display
	})
	if missing != nil {
		return "", missing
	}
	return out, nil
}

// renderAll renders the learner-facing text of t over scope, which must
// already hold the answer binding.
func renderAll(t *template.ProblemTemplate, scope Scope) (question, explanation string, steps []RenderedStep, err error) {
	if question, err = Render(t.QuestionTemplate, scope); err != nil {
		return "", "", nil, err
	}
	if explanation, err = Render(t.ExplanationTemplate, scope); err != nil {
		return "", "", nil, err
	}
	steps = make([]RenderedStep, 0, len(t.SolutionSteps))
	for _, s := range t.SolutionSteps {
		rs := RenderedStep{StepNumber: s.StepNumber, Title: s.Title, Formula: s.Formula}
		if rs.Description, err = Render(s.DescriptionTemplate, scope); err != nil {
			return "", "", nil, err
		}
		if rs.Calculation, err = Render(s.CalculationTemplate, scope); err != nil {
			return "", "", nil, err
		}
		if rs.Result, err = Render(s.ResultTemplate, scope); err != nil {
			return "", "", nil, err
		}
		steps = append(steps, rs)
	}
	return question, explanation, steps, nil
}
