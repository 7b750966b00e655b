package template

import (
	"regexp"
	"strings"

	"github.com/abhisek/probgen/internal/expr"
)

// PlaceholderPattern matches {{...}} spans. The inner text is validated
// separately so malformed names are reported instead of silently skipped.
var PlaceholderPattern = regexp.MustCompile(`\{\{([^{}]*)\}\}`)

// Placeholder is one {{name}} occurrence in a template string.
type Placeholder struct {
	Name  string
	Valid bool
}

// Placeholders returns every placeholder in s in order of appearance,
// including duplicates.
func Placeholders(s string) []Placeholder {
	matches := PlaceholderPattern.FindAllStringSubmatch(s, -1)
	out := make([]Placeholder, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		out = append(out, Placeholder{Name: name, Valid: expr.IsIdentifier(name)})
	}
	return out
}

// TextFields returns every substitutable text field of t keyed by its
// field path, in a stable order.
func (t *ProblemTemplate) TextFields() []TextField {
	fields := []TextField{
		{Path: "questionTemplate", Text: t.QuestionTemplate},
	}
	if t.ExplanationTemplate != "" {
		fields = append(fields, TextField{Path: "explanationTemplate", Text: t.ExplanationTemplate})
	}
	for i, s := range t.SolutionSteps {
		for _, f := range []struct{ name, text string }{
			{"descriptionTemplate", s.DescriptionTemplate},
			{"calculationTemplate", s.CalculationTemplate},
			{"resultTemplate", s.ResultTemplate},
		} {
			if f.text == "" {
				continue
			}
			fields = append(fields, TextField{Path: stepPath(i, f.name), Text: f.text})
		}
	}
	return fields
}

// TextField is one substitutable template string and where it lives.
type TextField struct {
	Path string
	Text string
}
