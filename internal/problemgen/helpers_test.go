package problemgen

import (
	"context"
	"fmt"
	"sync"

	"github.com/abhisek/probgen/internal/template"
)

func fp(v float64) *float64 { return &v }

func ip(v int) *int { return &v }

func slopeTemplate() *template.ProblemTemplate {
	return &template.ProblemTemplate{
		ID:               "tpl-slope",
		Version:          1,
		Name:             "Horizontal distance from slope distance",
		Difficulty:       template.DifficultyEasy,
		QuestionType:     template.QuestionNumericInput,
		QuestionTemplate: "A slope distance of {{slope_dist}} ft is measured at a vertical angle of {{vert_angle}}°. Find the horizontal distance, rounded to 2 decimals.",
		Parameters: []template.TemplateParam{
			{Name: "slope_dist", Type: template.ParamFloat, Unit: "ft", Min: fp(100), Max: fp(500)},
			{Name: "vert_angle", Type: template.ParamFloat, Unit: "°", Min: fp(10), Max: fp(80)},
		},
		ComputedVars: []template.ComputedVar{
			{Name: "cos_v", Formula: "cos(vert_angle * PI / 180)", Decimals: ip(4)},
		},
		AnswerFormula: "round(slope_dist * cos(vert_angle * PI / 180), 2)",
		AnswerFormat:  template.AnswerFormat{Unit: "ft"},
		SolutionSteps: []template.SolutionStepTemplate{
			{
				StepNumber:          1,
				Title:               "Cosine of the vertical angle",
				Formula:             "cos(α)",
				CalculationTemplate: "cos({{vert_angle}}°) = {{cos_v}}",
			},
			{
				StepNumber:          2,
				Title:               "Horizontal distance",
				DescriptionTemplate: "Multiply the slope distance by the cosine.",
				Formula:             "H = S·cos(α)",
				CalculationTemplate: "{{slope_dist}} x {{cos_v}}",
				ResultTemplate:      "H = {{_answer}}",
			},
		},
		ExplanationTemplate: "H = {{slope_dist}} ft x cos({{vert_angle}}°) = {{_answer}}",
		IsActive:            true,
	}
}

func choiceTemplate() *template.ProblemTemplate {
	return &template.ProblemTemplate{
		ID:               "tpl-area",
		Version:          3,
		Name:             "Rectangle area",
		Difficulty:       template.DifficultyMedium,
		QuestionType:     template.QuestionMultipleChoice,
		QuestionTemplate: "A {{material}} plot measures {{w}} m by {{h}} m. What is its area in m²?",
		Parameters: []template.TemplateParam{
			{Name: "material", Type: template.ParamChoice, Choices: []string{"gravel", "grass", "paved"}},
			{Name: "w", Type: template.ParamInteger, Min: fp(5), Max: fp(40)},
			{Name: "h", Type: template.ParamInteger, Min: fp(5), Max: fp(40)},
		},
		AnswerFormula: "w * h",
		AnswerFormat:  template.AnswerFormat{Decimals: ip(0), Unit: "m²"},
		OptionsGenerator: &template.OptionsStrategy{
			Kind:     template.OptionsWrongFormulas,
			Count:    4,
			Formulas: []string{"2 * (w + h)", "w + h", "w * h / 2"},
			Offsets:  []template.Offset{{Add: fp(10)}, {Add: fp(-10)}, {Multiply: fp(2)}},
		},
		IsActive: true,
	}
}

// memSource serves pinned template versions from memory.
type memSource struct {
	templates map[string]*template.ProblemTemplate
}

func newMemSource(ts ...*template.ProblemTemplate) *memSource {
	s := &memSource{templates: map[string]*template.ProblemTemplate{}}
	for _, t := range ts {
		s.templates[fmt.Sprintf("%s@%d", t.ID, t.Version)] = t
	}
	return s
}

func (s *memSource) TemplateVersion(_ context.Context, id string, version int) (*template.ProblemTemplate, error) {
	t, ok := s.templates[fmt.Sprintf("%s@%d", id, version)]
	if !ok {
		return nil, fmt.Errorf("template %s@%d not found", id, version)
	}
	return t, nil
}

// recordingWriter captures every batch it is given.
type recordingWriter struct {
	mu      sync.Mutex
	batches [][]Question
	err     error
}

func (w *recordingWriter) SaveQuestions(_ context.Context, qs []Question) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.batches = append(w.batches, qs)
	return nil
}
