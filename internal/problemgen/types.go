package problemgen

import (
	"github.com/abhisek/probgen/internal/template"
)

// Value is one resolved entry in a generation scope.
type Value struct {
	// Type is the originating parameter type. Empty for computed vars and
	// the answer binding.
	Type template.ParamType `json:"type,omitempty"`

	// Number is what the evaluator sees. Only meaningful when Numeric.
	Number  float64 `json:"number"`
	Numeric bool    `json:"numeric"`

	// Text holds the raw pick for choice parameters.
	Text string `json:"text,omitempty"`

	// Display is the human form substituted into templates.
	Display string `json:"display"`
}

// Scope maps names to resolved values.
type Scope map[string]Value

// Numbers returns the evaluator view of s: every numeric entry.
func (s Scope) Numbers() map[string]float64 {
	out := make(map[string]float64, len(s))
	for k, v := range s {
		if v.Numeric {
			out[k] = v.Number
		}
	}
	return out
}

// Clone returns a shallow copy of s.
func (s Scope) Clone() Scope {
	out := make(Scope, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// ProblemInstance is one concrete, fully resolved problem.
type ProblemInstance struct {
	TemplateID      string                `json:"sourceTemplateId"`
	TemplateVersion int                   `json:"templateVersion"`
	Seed            Seed                  `json:"generationSeed"`
	QuestionType    template.QuestionType `json:"questionType"`
	Difficulty      template.Difficulty   `json:"difficulty,omitempty"`

	ResolvedParams   Scope `json:"resolvedParams"`
	ResolvedComputed Scope `json:"resolvedComputed"`

	QuestionText  string         `json:"questionText"`
	SolutionSteps []RenderedStep `json:"renderedSolutionSteps,omitempty"`
	Explanation   string         `json:"explanation,omitempty"`

	Answer Answer `json:"correctAnswer"`

	// Options and CorrectOption are set for multiple choice only.
	Options       []string `json:"options,omitempty"`
	CorrectOption string   `json:"correctOption,omitempty"`

	Linkage *template.Linkage `json:"linkage,omitempty"`
	Tags    []string          `json:"tags,omitempty"`
}

// Tolerance is the grading tolerance carried from the answer format.
func (p *ProblemInstance) Tolerance() float64 {
	return p.Answer.Tolerance
}

// Scope returns parameters and computed vars merged, plus the answer
// binding.
func (p *ProblemInstance) Scope() Scope {
	out := make(Scope, len(p.ResolvedParams)+len(p.ResolvedComputed)+1)
	for k, v := range p.ResolvedParams {
		out[k] = v
	}
	for k, v := range p.ResolvedComputed {
		out[k] = v
	}
	out[template.AnswerName] = Value{Display: p.Answer.Display(), Number: p.Answer.Value, Numeric: p.Answer.Kind == AnswerNumeric, Text: p.Answer.Text}
	return out
}

// RenderedStep is a solution step after substitution.
type RenderedStep struct {
	StepNumber  int    `json:"stepNumber"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Formula     string `json:"formula,omitempty"`
	Calculation string `json:"calculation,omitempty"`
	Result      string `json:"result,omitempty"`
}

// PublishMode selects what a published question row carries.
type PublishMode string

const (
	// ModeStatic persists the fully baked instance.
	ModeStatic PublishMode = "static"
	// ModeDynamic persists only the template reference and seed.
	ModeDynamic PublishMode = "dynamic"
)

// Valid reports whether m is a known mode.
func (m PublishMode) Valid() bool {
	return m == ModeStatic || m == ModeDynamic
}

// Question is the persisted shape emitted by Publish and consumed by
// grading. Static questions carry Instance; dynamic questions carry the
// template reference and seed and regenerate on demand.
type Question struct {
	ID              string           `json:"id"`
	BatchID         string           `json:"batchId,omitempty"`
	IsDynamic       bool             `json:"isDynamic"`
	TemplateID      string           `json:"templateId"`
	TemplateVersion int              `json:"templateVersion"`
	Seed            Seed             `json:"seed"`
	Instance        *ProblemInstance `json:"instance,omitempty"`

	// AcceptedSet is an order-independent set of correct answers for
	// multi-select text questions created outside the engine.
	AcceptedSet []string `json:"acceptedSet,omitempty"`
}
