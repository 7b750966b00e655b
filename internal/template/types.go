package template

import (
	"math"
	"strconv"
)

// ProblemTemplate is an author-defined blueprint for a family of problems.
type ProblemTemplate struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Subcategory string `json:"subcategory,omitempty"`

	Difficulty   Difficulty   `json:"difficulty"`
	QuestionType QuestionType `json:"questionType"`

	// QuestionTemplate is the learner-facing prompt with {{name}} placeholders.
	QuestionTemplate string `json:"questionTemplate"`

	// Parameters are sampled in declaration order; computed parameters are
	// evaluated after every non-computed parameter.
	Parameters []TemplateParam `json:"parameters,omitempty"`

	// ComputedVars are derived values evaluated after all parameters, in
	// declaration order. A formula may only reference earlier vars.
	ComputedVars []ComputedVar `json:"computedVars,omitempty"`

	// AnswerFormula is an expression for numeric and multiple choice
	// questions, or the literal reference answer for short answer questions.
	AnswerFormula string       `json:"answerFormula"`
	AnswerFormat  AnswerFormat `json:"answerFormat"`

	SolutionSteps       []SolutionStepTemplate `json:"solutionSteps,omitempty"`
	ExplanationTemplate string                 `json:"explanationTemplate,omitempty"`

	// OptionsGenerator is required for multiple choice questions and
	// ignored otherwise.
	OptionsGenerator *OptionsStrategy `json:"optionsGenerator,omitempty"`

	// Linkage is opaque to the engine and passed through unchanged.
	Linkage *Linkage `json:"linkage,omitempty"`
	Tags    []string `json:"tags,omitempty"`

	IsActive bool `json:"isActive"`

	// Version is assigned by the store and bumped on every save. Dynamic
	// questions pin the version they were published from.
	Version int `json:"version,omitempty"`
}

// Difficulty is the author-assigned difficulty band.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyMedium   Difficulty = "medium"
	DifficultyHard     Difficulty = "hard"
	DifficultyVeryHard Difficulty = "very_hard"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyVeryHard:
		return true
	}
	return false
}

// QuestionType describes how the learner answers.
type QuestionType string

const (
	QuestionNumericInput   QuestionType = "numeric_input"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionShortAnswer    QuestionType = "short_answer"
)

// Valid reports whether q is a known question type.
func (q QuestionType) Valid() bool {
	switch q {
	case QuestionNumericInput, QuestionMultipleChoice, QuestionShortAnswer:
		return true
	}
	return false
}

// ParamType selects how a parameter is sampled and displayed.
type ParamType string

const (
	ParamInteger  ParamType = "integer"
	ParamFloat    ParamType = "float"
	ParamAngleDMS ParamType = "angle_dms"
	ParamBearing  ParamType = "bearing"
	ParamChoice   ParamType = "choice"
	ParamComputed ParamType = "computed"
)

// Valid reports whether p is a known parameter type.
func (p ParamType) Valid() bool {
	switch p {
	case ParamInteger, ParamFloat, ParamAngleDMS, ParamBearing, ParamChoice, ParamComputed:
		return true
	}
	return false
}

// Ranged reports whether the type is sampled from a [min, max] range.
func (p ParamType) Ranged() bool {
	switch p {
	case ParamInteger, ParamFloat, ParamAngleDMS, ParamBearing:
		return true
	}
	return false
}

// TemplateParam declares one input variable.
type TemplateParam struct {
	Name  string    `json:"name"`
	Label string    `json:"label,omitempty"`
	Unit  string    `json:"unit,omitempty"`
	Type  ParamType `json:"type"`

	// Min and Max bound ranged types. Both are inclusive.
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`

	// Decimals is the rounding applied at sample time for float and
	// computed parameters. Defaults to DefaultDecimals.
	Decimals *int `json:"decimals,omitempty"`

	// Step, when positive, restricts float samples to min + k*step.
	Step float64 `json:"step,omitempty"`

	Choices []string `json:"choices,omitempty"`

	// Formula is required for computed parameters. It may reference
	// non-computed parameters and earlier computed parameters only.
	Formula string `json:"formula,omitempty"`
}

// DecimalPlaces returns the configured decimals or DefaultDecimals.
func (p TemplateParam) DecimalPlaces() int {
	if p.Decimals != nil {
		return *p.Decimals
	}
	return DefaultDecimals
}

// ChoiceNumber parses a choice as a finite number.
func ChoiceNumber(choice string) (float64, bool) {
	n, err := strconv.ParseFloat(choice, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// NumericChoices reports whether every choice of p parses as a number, so
// that formulas may reference it.
func (p TemplateParam) NumericChoices() bool {
	for _, c := range p.Choices {
		if _, ok := ChoiceNumber(c); !ok {
			return false
		}
	}
	return true
}

// ComputedVar is a derived value used for solution-step exposition.
type ComputedVar struct {
	Name    string `json:"name"`
	Formula string `json:"formula"`

	// Decimals only affects display. The full-precision value is kept in
	// scope for later formulas.
	Decimals *int `json:"decimals,omitempty"`
}

// AnswerFormat controls rounding, grading tolerance and display unit.
type AnswerFormat struct {
	Decimals  *int     `json:"decimals,omitempty"`
	Tolerance *float64 `json:"tolerance,omitempty"`
	Unit      string   `json:"unit,omitempty"`
}

const (
	DefaultDecimals  = 2
	DefaultTolerance = 0.01
	MaxDecimals      = 10
)

// DecimalPlaces returns the configured decimals or DefaultDecimals.
func (f AnswerFormat) DecimalPlaces() int {
	if f.Decimals != nil {
		return *f.Decimals
	}
	return DefaultDecimals
}

// Tol returns the configured tolerance or DefaultTolerance.
func (f AnswerFormat) Tol() float64 {
	if f.Tolerance != nil {
		return *f.Tolerance
	}
	return DefaultTolerance
}

// SolutionStepTemplate is one step of the worked solution. Formula is
// literal display text; only the *Template fields are substituted.
type SolutionStepTemplate struct {
	StepNumber          int    `json:"stepNumber"`
	Title               string `json:"title"`
	DescriptionTemplate string `json:"descriptionTemplate,omitempty"`
	Formula             string `json:"formula,omitempty"`
	CalculationTemplate string `json:"calculationTemplate,omitempty"`
	ResultTemplate      string `json:"resultTemplate,omitempty"`
}

// OptionsKind selects the distractor strategy for multiple choice.
type OptionsKind string

const (
	OptionsOffsets       OptionsKind = "offsets"
	OptionsWrongFormulas OptionsKind = "wrong_formulas"
)

// Offset derives one distractor as correct+Add, correct*Multiply, or both
// applied in that order.
type Offset struct {
	Add      *float64 `json:"add,omitempty"`
	Multiply *float64 `json:"multiply,omitempty"`
}

// OptionsStrategy describes how distractors are produced.
type OptionsStrategy struct {
	Kind OptionsKind `json:"strategy"`

	// Count is the total number of options including the correct one.
	Count int `json:"count,omitempty"`

	Offsets []Offset `json:"offsets,omitempty"`

	// Formulas are common-mistake formulas evaluated over the answer scope.
	Formulas []string `json:"formulas,omitempty"`

	// MaxRetries bounds perturbation attempts per colliding distractor.
	MaxRetries int `json:"maxRetries,omitempty"`
}

const (
	DefaultOptionCount = 4
	DefaultMaxRetries  = 10
)

// OptionCount returns Count or DefaultOptionCount.
func (s OptionsStrategy) OptionCount() int {
	if s.Count > 0 {
		return s.Count
	}
	return DefaultOptionCount
}

// Retries returns MaxRetries or DefaultMaxRetries.
func (s OptionsStrategy) Retries() int {
	if s.MaxRetries > 0 {
		return s.MaxRetries
	}
	return DefaultMaxRetries
}

// Linkage associates a template with surrounding course content.
type Linkage struct {
	ModuleID     string `json:"moduleId,omitempty"`
	LessonID     string `json:"lessonId,omitempty"`
	ExamCategory string `json:"examCategory,omitempty"`
}

// AnswerName is the reserved placeholder bound to the answer display string.
const AnswerName = "_answer"
