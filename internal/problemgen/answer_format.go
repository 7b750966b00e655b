package problemgen

import (
	"fmt"
	"math"
	"strings"

	"github.com/abhisek/probgen/internal/template"
)

// AnswerFormatValidator checks that the answer matches the question type
// and that multiple choice constraints are satisfied.
type AnswerFormatValidator struct{}

func (v *AnswerFormatValidator) Name() string { return "answer-format" }

func (v *AnswerFormatValidator) Validate(inst *ProblemInstance, t *template.ProblemTemplate) *ValidationError {
	a := inst.Answer
	switch t.QuestionType {
	case template.QuestionShortAnswer:
		if a.Kind != AnswerText {
			return v.fail("short answer question has a %s answer", a.Kind)
		}
		if strings.TrimSpace(a.Text) == "" {
			return v.fail("reference answer is empty")
		}
	default:
		if a.Kind != AnswerNumeric {
			return v.fail("%s question has a %s answer", t.QuestionType, a.Kind)
		}
		if math.IsNaN(a.Value) || math.IsInf(a.Value, 0) {
			return v.fail("answer %v is not finite", a.Value)
		}
		if a.Tolerance < 0 {
			return v.fail("tolerance %v is negative", a.Tolerance)
		}
	}

	if t.QuestionType != template.QuestionMultipleChoice {
		if len(inst.Options) > 0 {
			return v.fail("%s question must have no options", t.QuestionType)
		}
		return nil
	}

	want := t.OptionsGenerator.OptionCount()
	if len(inst.Options) != want {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("multiple choice must have exactly %d options, got %d", want, len(inst.Options)),
			Retryable: true,
		}
	}
	seen := make(map[string]bool, len(inst.Options))
	matches := 0
	for i, o := range inst.Options {
		if strings.TrimSpace(o) == "" {
			return v.fail("option %d is empty", i+1)
		}
		if seen[o] {
			return &ValidationError{
				Validator: v.Name(),
				Message:   fmt.Sprintf("duplicate option %q", o),
				Retryable: true,
			}
		}
		seen[o] = true
		if o == inst.CorrectOption {
			matches++
		}
	}
	if matches != 1 {
		return v.fail("correct option %q appears %d times", inst.CorrectOption, matches)
	}
	if inst.CorrectOption != a.Formatted() {
		return v.fail("correct option %q does not match answer %q", inst.CorrectOption, a.Formatted())
	}
	return nil
}

func (v *AnswerFormatValidator) fail(format string, args ...any) *ValidationError {
	return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf(format, args...)}
}
