package report

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/probgen/internal/problemgen"
	"github.com/abhisek/probgen/internal/template"
)

func areaInstance() *problemgen.ProblemInstance {
	return &problemgen.ProblemInstance{
		TemplateID:      "tpl-area",
		TemplateVersion: 2,
		Seed:            "seed-1",
		QuestionType:    template.QuestionNumericInput,
		QuestionText:    "A plot is 12 m by 30 m. What is its area?",
		Answer: problemgen.Answer{
			Kind:     problemgen.AnswerNumeric,
			Value:    360,
			Decimals: 0,
			Unit:     "m²",
		},
		SolutionSteps: []problemgen.RenderedStep{
			{StepNumber: 1, Title: "Multiply", Formula: "A = w·h", Calculation: "12 x 30", Result: "A = 360 m²"},
		},
		Explanation: "12 x 30 = 360 m²",
	}
}

func TestInstanceMarkdown(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "area_markdown", []byte(InstanceMarkdown(areaInstance(), true)))
}

func TestInstanceMarkdownHidesAnswer(t *testing.T) {
	inst := areaInstance()
	inst.Options = []string{"360", "84", "42", "720"}
	md := InstanceMarkdown(inst, false)

	assert.Contains(t, md, "1. 360\n2. 84\n")
	assert.NotContains(t, md, "Answer")
	assert.NotContains(t, md, "Explanation")
}

func TestInstanceStyled(t *testing.T) {
	out := Instance(areaInstance(), true)
	assert.Contains(t, out, "A plot is 12 m by 30 m.")
	assert.Contains(t, out, "360 m²")
	assert.Contains(t, out, "Multiply")

	hidden := Instance(areaInstance(), false)
	assert.NotContains(t, hidden, "360 m²")
}

func TestMarkdownRenders(t *testing.T) {
	out, err := Markdown(InstanceMarkdown(areaInstance(), true), 80)
	require.NoError(t, err)
	assert.Contains(t, out, "Question")
	assert.Contains(t, out, "360")
}

func TestValidation(t *testing.T) {
	ok := Validation("area.yaml", nil)
	assert.Contains(t, ok, "area.yaml")

	bad := Validation("area.yaml", []template.ValidationError{
		{Code: template.CodeUndefinedReference, Field: "answerFormula", Name: "z", Message: `undefined name "z"`},
	})
	assert.Contains(t, bad, "1 problems")
	assert.Contains(t, bad, "UndefinedReference")
	assert.Contains(t, bad, "answerFormula")
}

func TestScopeSorted(t *testing.T) {
	out := Scope(problemgen.Scope{
		"w":       {Display: "12"},
		"area":    {Display: "360"},
		"_answer": {Display: "360 m²"},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "_answer")
	assert.Contains(t, lines[1], "area")
	assert.Contains(t, lines[2], "w")
}
