package template

var stringProp = map[string]any{"type": "string"}

func numberProp() map[string]any { return map[string]any{"type": "number"} }

func decimalsProp() map[string]any {
	return map[string]any{"type": "integer", "minimum": 0, "maximum": MaxDecimals}
}

func enumProp(values ...string) map[string]any {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return map[string]any{"type": "string", "enum": vs}
}

// DocumentSchema describes the on-disk template document. It checks shape
// only; cross-field rules live in ValidateTemplate.
var DocumentSchema = map[string]any{
	"type":     "object",
	"required": []any{"name", "questionType", "questionTemplate", "answerFormula"},
	"properties": map[string]any{
		"id":               stringProp,
		"name":             map[string]any{"type": "string", "minLength": 1},
		"description":      stringProp,
		"category":         stringProp,
		"subcategory":      stringProp,
		"difficulty":       enumProp(string(DifficultyEasy), string(DifficultyMedium), string(DifficultyHard), string(DifficultyVeryHard)),
		"questionType":     enumProp(string(QuestionNumericInput), string(QuestionMultipleChoice), string(QuestionShortAnswer)),
		"questionTemplate": map[string]any{"type": "string", "minLength": 1},
		"parameters": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"required":             []any{"name", "type"},
				"additionalProperties": false,
				"properties": map[string]any{
					"name":     stringProp,
					"label":    stringProp,
					"unit":     stringProp,
					"type":     enumProp(string(ParamInteger), string(ParamFloat), string(ParamAngleDMS), string(ParamBearing), string(ParamChoice), string(ParamComputed)),
					"min":      numberProp(),
					"max":      numberProp(),
					"decimals": decimalsProp(),
					"step":     map[string]any{"type": "number", "minimum": 0},
					"choices":  map[string]any{"type": "array", "items": stringProp},
					"formula":  stringProp,
				},
			},
		},
		"computedVars": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"required":             []any{"name", "formula"},
				"additionalProperties": false,
				"properties": map[string]any{
					"name":     stringProp,
					"formula":  stringProp,
					"decimals": decimalsProp(),
				},
			},
		},
		"answerFormula": map[string]any{"type": "string", "minLength": 1},
		"answerFormat": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"decimals":  decimalsProp(),
				"tolerance": map[string]any{"type": "number", "minimum": 0},
				"unit":      stringProp,
			},
		},
		"solutionSteps": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"required":             []any{"stepNumber", "title"},
				"additionalProperties": false,
				"properties": map[string]any{
					"stepNumber":          map[string]any{"type": "integer", "minimum": 1},
					"title":               stringProp,
					"descriptionTemplate": stringProp,
					"formula":             stringProp,
					"calculationTemplate": stringProp,
					"resultTemplate":      stringProp,
				},
			},
		},
		"explanationTemplate": stringProp,
		"optionsGenerator": map[string]any{
			"type":                 "object",
			"required":             []any{"strategy"},
			"additionalProperties": false,
			"properties": map[string]any{
				"strategy":   enumProp(string(OptionsOffsets), string(OptionsWrongFormulas)),
				"count":      map[string]any{"type": "integer", "minimum": 2},
				"maxRetries": map[string]any{"type": "integer", "minimum": 0},
				"offsets": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type":                 "object",
						"additionalProperties": false,
						"properties": map[string]any{
							"add":      numberProp(),
							"multiply": numberProp(),
						},
					},
				},
				"formulas": map[string]any{"type": "array", "items": stringProp},
			},
		},
		"linkage": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"moduleId":     stringProp,
				"lessonId":     stringProp,
				"examCategory": stringProp,
			},
		},
		"tags":     map[string]any{"type": "array", "items": stringProp},
		"isActive": map[string]any{"type": "boolean"},
		"version":  map[string]any{"type": "integer", "minimum": 0},
	},
	"additionalProperties": false,
}
