package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(errs []ValidationError) []Code {
	out := make([]Code, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateTemplate_Valid(t *testing.T) {
	assert.Empty(t, ValidateTemplate(validTemplate()))
	assert.NoError(t, Validate(validTemplate()))
}

func TestValidateTemplate_Nil(t *testing.T) {
	errs := ValidateTemplate(nil)
	require.Len(t, errs, 1)
	assert.Equal(t, CodeMissingField, errs[0].Code)
}

func TestValidateTemplate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ProblemTemplate)
		code   Code
		field  string
	}{
		{
			name:   "missing name",
			mutate: func(t *ProblemTemplate) { t.Name = " " },
			code:   CodeMissingField,
			field:  "name",
		},
		{
			name:   "unknown difficulty",
			mutate: func(t *ProblemTemplate) { t.Difficulty = "trivial" },
			code:   CodeInvalidEnum,
			field:  "difficulty",
		},
		{
			name:   "unknown question type",
			mutate: func(t *ProblemTemplate) { t.QuestionType = "essay" },
			code:   CodeInvalidEnum,
			field:  "questionType",
		},
		{
			name:   "min greater than max",
			mutate: func(t *ProblemTemplate) { t.Parameters[0].Min = fp(10); t.Parameters[0].Max = fp(5) },
			code:   CodeConstraintViolation,
			field:  "parameters[0]",
		},
		{
			name:   "integer range without integers",
			mutate: func(t *ProblemTemplate) { t.Parameters[0].Min = fp(1.2); t.Parameters[0].Max = fp(1.8) },
			code:   CodeConstraintViolation,
			field:  "parameters[0]",
		},
		{
			name:   "missing max",
			mutate: func(t *ProblemTemplate) { t.Parameters[1].Max = nil },
			code:   CodeMissingField,
			field:  "parameters[1].max",
		},
		{
			name: "empty choice set",
			mutate: func(t *ProblemTemplate) {
				t.Parameters = append(t.Parameters, TemplateParam{Name: "material", Type: ParamChoice})
			},
			code:  CodeEmptyChoiceSet,
			field: "parameters[2].choices",
		},
		{
			name: "duplicate parameter",
			mutate: func(t *ProblemTemplate) {
				t.Parameters = append(t.Parameters, TemplateParam{Name: "a", Type: ParamInteger, Min: fp(1), Max: fp(2)})
			},
			code:  CodeDuplicateName,
			field: "parameters[2].name",
		},
		{
			name: "reserved parameter name",
			mutate: func(t *ProblemTemplate) {
				t.Parameters = append(t.Parameters, TemplateParam{Name: "sin", Type: ParamInteger, Min: fp(1), Max: fp(2)})
			},
			code:  CodeReservedName,
			field: "parameters[2].name",
		},
		{
			name: "bearing outside circle",
			mutate: func(t *ProblemTemplate) {
				t.Parameters = append(t.Parameters, TemplateParam{Name: "brg", Type: ParamBearing, Min: fp(10), Max: fp(400)})
			},
			code:  CodeConstraintViolation,
			field: "parameters[2]",
		},
		{
			name:   "answer references unknown name",
			mutate: func(t *ProblemTemplate) { t.AnswerFormula = "a * c" },
			code:   CodeUndefinedReference,
			field:  "answerFormula",
		},
		{
			name:   "malformed answer formula",
			mutate: func(t *ProblemTemplate) { t.AnswerFormula = "(a * b" },
			code:   CodeSyntaxError,
			field:  "answerFormula",
		},
		{
			name:   "unknown function",
			mutate: func(t *ProblemTemplate) { t.AnswerFormula = "exp(a)" },
			code:   CodeUndefinedFunction,
			field:  "answerFormula",
		},
		{
			name:   "wrong arity",
			mutate: func(t *ProblemTemplate) { t.AnswerFormula = "pow(a)" },
			code:   CodeArityMismatch,
			field:  "answerFormula",
		},
		{
			name: "computed var forward reference",
			mutate: func(t *ProblemTemplate) {
				t.ComputedVars = []ComputedVar{
					{Name: "x", Formula: "y + 1"},
					{Name: "y", Formula: "a * 2"},
				}
			},
			code:  CodeForwardReference,
			field: "computedVars[0].formula",
		},
		{
			name: "computed parameter forward reference",
			mutate: func(t *ProblemTemplate) {
				t.Parameters = append(t.Parameters,
					TemplateParam{Name: "p", Type: ParamComputed, Formula: "q * 2"},
					TemplateParam{Name: "q", Type: ParamComputed, Formula: "a + b"},
				)
			},
			code:  CodeForwardReference,
			field: "parameters[2].formula",
		},
		{
			name: "computed parameter sees no computed vars",
			mutate: func(t *ProblemTemplate) {
				t.Parameters = append(t.Parameters, TemplateParam{Name: "p", Type: ParamComputed, Formula: "v * 2"})
				t.ComputedVars = []ComputedVar{{Name: "v", Formula: "a"}}
			},
			code:  CodeUndefinedReference,
			field: "parameters[2].formula",
		},
		{
			name:   "undefined placeholder",
			mutate: func(t *ProblemTemplate) { t.QuestionTemplate = "What is {{area}}?" },
			code:   CodeUndefinedReference,
			field:  "questionTemplate",
		},
		{
			name:   "malformed placeholder",
			mutate: func(t *ProblemTemplate) { t.QuestionTemplate = "What is {{ 2a }}?" },
			code:   CodeSyntaxError,
			field:  "questionTemplate",
		},
		{
			name: "undefined placeholder in step",
			mutate: func(t *ProblemTemplate) {
				t.SolutionSteps = []SolutionStepTemplate{{StepNumber: 1, Title: "Area", CalculationTemplate: "{{a}} x {{h}}"}}
			},
			code:  CodeUndefinedReference,
			field: "solutionSteps[0].calculationTemplate",
		},
		{
			name: "duplicate step number",
			mutate: func(t *ProblemTemplate) {
				t.SolutionSteps = []SolutionStepTemplate{{StepNumber: 1, Title: "A"}, {StepNumber: 1, Title: "B"}}
			},
			code:  CodeDuplicateName,
			field: "solutionSteps[1].stepNumber",
		},
		{
			name:   "negative tolerance",
			mutate: func(t *ProblemTemplate) { t.AnswerFormat.Tolerance = fp(-0.1) },
			code:   CodeConstraintViolation,
			field:  "answerFormat.tolerance",
		},
		{
			name:   "multiple choice without options",
			mutate: func(t *ProblemTemplate) { t.QuestionType = QuestionMultipleChoice },
			code:   CodeMissingField,
			field:  "optionsGenerator",
		},
		{
			name: "offset without add or multiply",
			mutate: func(t *ProblemTemplate) {
				t.QuestionType = QuestionMultipleChoice
				t.OptionsGenerator = &OptionsStrategy{Kind: OptionsOffsets, Offsets: []Offset{{}}}
			},
			code:  CodeInvalidOptions,
			field: "optionsGenerator.offsets[0]",
		},
		{
			name: "wrong formula references unknown name",
			mutate: func(t *ProblemTemplate) {
				t.QuestionType = QuestionMultipleChoice
				t.OptionsGenerator = &OptionsStrategy{Kind: OptionsWrongFormulas, Formulas: []string{"a + z"}}
			},
			code:  CodeUndefinedReference,
			field: "optionsGenerator.formulas[0]",
		},
		{
			name: "short answer placeholder undefined",
			mutate: func(t *ProblemTemplate) {
				t.QuestionType = QuestionShortAnswer
				t.AnswerFormula = "Use {{tool}}"
			},
			code:  CodeUndefinedReference,
			field: "answerFormula",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := validTemplate()
			tt.mutate(tmpl)
			errs := ValidateTemplate(tmpl)
			require.NotEmpty(t, errs)

			var found bool
			for _, e := range errs {
				if e.Code == tt.code && e.Field == tt.field {
					found = true
				}
			}
			assert.True(t, found, "want %s at %s, got %v", tt.code, tt.field, errs)

			err := Validate(tmpl)
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.True(t, verrs.Has(tt.code))
		})
	}
}

func TestValidateTemplate_ReportsAllProblems(t *testing.T) {
	tmpl := validTemplate()
	tmpl.Name = ""
	tmpl.AnswerFormula = "a +"
	tmpl.Parameters[0].Min = fp(9)
	tmpl.Parameters[0].Max = fp(3)

	got := codes(ValidateTemplate(tmpl))
	assert.Contains(t, got, CodeMissingField)
	assert.Contains(t, got, CodeSyntaxError)
	assert.Contains(t, got, CodeConstraintViolation)
}

func TestValidateTemplate_TextChoiceInFormula(t *testing.T) {
	withDir := func(choices ...string) *ProblemTemplate {
		tmpl := validTemplate()
		tmpl.QuestionTemplate = "Walk {{a}} m {{dir}}. " + tmpl.QuestionTemplate
		tmpl.Parameters = append(tmpl.Parameters, TemplateParam{Name: "dir", Type: ParamChoice, Choices: choices})
		return tmpl
	}

	t.Run("text choices in text only", func(t *testing.T) {
		assert.Empty(t, ValidateTemplate(withDir("north", "south")))
	})

	t.Run("numeric choices in formula", func(t *testing.T) {
		tmpl := withDir("1", "-1", "2.5")
		tmpl.AnswerFormula = "a * dir"
		assert.Empty(t, ValidateTemplate(tmpl))
	})

	tests := []struct {
		name   string
		mutate func(*ProblemTemplate)
		field  string
	}{
		{
			name:   "answer formula",
			mutate: func(t *ProblemTemplate) { t.AnswerFormula = "a * dir" },
			field:  "answerFormula",
		},
		{
			name: "computed var",
			mutate: func(t *ProblemTemplate) {
				t.ComputedVars = []ComputedVar{{Name: "signed", Formula: "a * dir"}}
			},
			field: "computedVars[0].formula",
		},
		{
			name: "computed parameter",
			mutate: func(t *ProblemTemplate) {
				t.Parameters = append(t.Parameters, TemplateParam{Name: "c", Type: ParamComputed, Formula: "dir + 1"})
			},
			field: "parameters[3].formula",
		},
		{
			name: "wrong formula",
			mutate: func(t *ProblemTemplate) {
				t.QuestionType = QuestionMultipleChoice
				t.OptionsGenerator = &OptionsStrategy{Kind: OptionsWrongFormulas, Count: 2, Formulas: []string{"a * dir"}}
			},
			field: "optionsGenerator.formulas[0]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := withDir("north", "2")
			tt.mutate(tmpl)
			errs := ValidateTemplate(tmpl)
			require.Len(t, errs, 1, "%v", errs)
			assert.Equal(t, CodeConstraintViolation, errs[0].Code)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Contains(t, errs[0].Message, "dir")
		})
	}
}

func TestValidateTemplate_ComputedChains(t *testing.T) {
	tmpl := validTemplate()
	tmpl.Parameters = append(tmpl.Parameters,
		TemplateParam{Name: "p", Type: ParamComputed, Formula: "a + b"},
		TemplateParam{Name: "q", Type: ParamComputed, Formula: "p * 2"},
	)
	tmpl.ComputedVars = []ComputedVar{
		{Name: "x", Formula: "q + PI"},
		{Name: "y", Formula: "x / 2"},
	}
	tmpl.AnswerFormula = "y + sqrt(a)"
	tmpl.QuestionTemplate = "Given {{a}}, {{b}} and {{p}}, find y."
	tmpl.SolutionSteps = []SolutionStepTemplate{
		{StepNumber: 1, Title: "x", CalculationTemplate: "{{q}} + pi = {{x}}"},
		{StepNumber: 2, Title: "y", ResultTemplate: "{{y}} = {{_answer}}"},
	}

	assert.Empty(t, ValidateTemplate(tmpl))
}

func TestValidateTemplate_AnswerNameReserved(t *testing.T) {
	tmpl := validTemplate()
	tmpl.ComputedVars = []ComputedVar{{Name: AnswerName, Formula: "a"}}

	errs := ValidateTemplate(tmpl)
	require.NotEmpty(t, errs)
	assert.Equal(t, CodeReservedName, errs[0].Code)
}

func TestValidateTemplate_AnswerPlaceholderNotAllowedInFormula(t *testing.T) {
	tmpl := validTemplate()
	tmpl.QuestionType = QuestionShortAnswer
	tmpl.AnswerFormula = "{{_answer}}"

	assert.Contains(t, codes(ValidateTemplate(tmpl)), CodeUndefinedReference)
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("{{a}} and {{ b }} then {{a}} and {{1x}}")
	require.Len(t, got, 4)
	assert.Equal(t, Placeholder{Name: "a", Valid: true}, got[0])
	assert.Equal(t, Placeholder{Name: "b", Valid: true}, got[1])
	assert.Equal(t, Placeholder{Name: "1x", Valid: false}, got[3])
}

func TestDefaults(t *testing.T) {
	var f AnswerFormat
	assert.Equal(t, DefaultDecimals, f.DecimalPlaces())
	assert.Equal(t, DefaultTolerance, f.Tol())

	var o OptionsStrategy
	assert.Equal(t, DefaultOptionCount, o.OptionCount())
	assert.Equal(t, DefaultMaxRetries, o.Retries())

	assert.Equal(t, 3, TemplateParam{Decimals: ip(3)}.DecimalPlaces())
}
