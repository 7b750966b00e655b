package template

func fp(v float64) *float64 { return &v }

func ip(v int) *int { return &v }

// validTemplate returns a minimal numeric template that passes validation.
func validTemplate() *ProblemTemplate {
	return &ProblemTemplate{
		Name:             "Rectangle area",
		Difficulty:       DifficultyEasy,
		QuestionType:     QuestionNumericInput,
		QuestionTemplate: "A plot is {{a}} m by {{b}} m. What is its area?",
		Parameters: []TemplateParam{
			{Name: "a", Type: ParamInteger, Min: fp(1), Max: fp(10)},
			{Name: "b", Type: ParamFloat, Min: fp(1), Max: fp(10), Decimals: ip(1)},
		},
		AnswerFormula:       "a * b",
		ExplanationTemplate: "Area = {{a}} x {{b}} = {{_answer}}",
		IsActive:            true,
	}
}
