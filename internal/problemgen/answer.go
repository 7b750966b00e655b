package problemgen

import (
	"fmt"

	"github.com/abhisek/probgen/internal/expr"
	"github.com/abhisek/probgen/internal/template"
)

// AnswerKind tells grading how to compare.
type AnswerKind string

const (
	AnswerNumeric AnswerKind = "numeric"
	AnswerText    AnswerKind = "text"
)

// Answer is the resolved correct answer of an instance.
type Answer struct {
	Kind AnswerKind `json:"kind"`

	// Value is the rounded numeric answer.
	Value float64 `json:"value"`

	// Text is the reference answer for text questions.
	Text string `json:"text,omitempty"`

	Decimals  int     `json:"decimals"`
	Tolerance float64 `json:"tolerance"`

	// Unit is for display only and never part of the comparable value.
	Unit string `json:"unit,omitempty"`
}

// Formatted returns the comparable form: the number at Decimals, or Text.
func (a Answer) Formatted() string {
	if a.Kind == AnswerText {
		return a.Text
	}
	return FormatFixed(a.Value, a.Decimals)
}

// Display returns the learner-facing answer including the unit.
func (a Answer) Display() string {
	if a.Kind == AnswerText {
		return a.Text
	}
	return withUnit(a.Formatted(), a.Unit)
}

// ResolveAnswer evaluates formula over scope and rounds it to the format's
// decimals. For short answer questions formula is a literal reference
// answer; its placeholders are substituted and nothing is evaluated.
func ResolveAnswer(formula string, scope Scope, format template.AnswerFormat, qt template.QuestionType) (Answer, error) {
	return resolveAnswer(defaultEvaluator, formula, scope, format, qt)
}

func resolveAnswer(ev *expr.Evaluator, formula string, scope Scope, format template.AnswerFormat, qt template.QuestionType) (Answer, error) {
	a := Answer{
		Decimals:  format.DecimalPlaces(),
		Tolerance: format.Tol(),
		Unit:      format.Unit,
	}
	if qt == template.QuestionShortAnswer {
		text, err := Render(formula, scope)
		if err != nil {
			return Answer{}, err
		}
		a.Kind = AnswerText
		a.Text = text
		return a, nil
	}

	v, err := ev.Evaluate(formula, scope.Numbers())
	if err != nil {
		return Answer{}, fmt.Errorf("answer formula: %w", err)
	}
	v = expr.Round(v, a.Decimals)
	if v == 0 {
		v = 0 // drop negative zero
	}
	a.Kind = AnswerNumeric
	a.Value = v
	return a, nil
}
