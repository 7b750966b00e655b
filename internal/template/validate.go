package template

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/abhisek/probgen/internal/expr"
)

// Code classifies a validation problem.
type Code string

const (
	CodeMissingField        Code = "MissingField"
	CodeInvalidEnum         Code = "InvalidEnum"
	CodeDuplicateName       Code = "DuplicateName"
	CodeReservedName        Code = "ReservedName"
	CodeUndefinedReference  Code = "UndefinedReference"
	CodeForwardReference    Code = "ForwardReference"
	CodeConstraintViolation Code = "ConstraintViolation"
	CodeEmptyChoiceSet      Code = "EmptyChoiceSet"
	CodeSyntaxError         Code = "SyntaxError"
	CodeUndefinedFunction   Code = "UndefinedFunction"
	CodeArityMismatch       Code = "ArityMismatch"
	CodeInvalidOptions      Code = "InvalidOptions"
)

// ValidationError is a single problem found in a template.
type ValidationError struct {
	Code    Code   `json:"code"`
	Field   string `json:"field"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Field, e.Code, e.Message)
}

// ValidationErrors is the full list of problems found in a template.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("template invalid (%d problems): %s", len(errs), strings.Join(msgs, "; "))
}

// Has reports whether any error carries the given code.
func (errs ValidationErrors) Has(code Code) bool {
	for _, e := range errs {
		if e.Code == code {
			return true
		}
	}
	return false
}

// Validate returns nil when t is valid, otherwise ValidationErrors.
func Validate(t *ProblemTemplate) error {
	if errs := ValidateTemplate(t); len(errs) > 0 {
		return ValidationErrors(errs)
	}
	return nil
}

// ValidateTemplate checks t without sampling anything. It reports every
// problem it can find rather than stopping at the first.
func ValidateTemplate(t *ProblemTemplate) []ValidationError {
	c := &checker{}
	if t == nil {
		c.add(CodeMissingField, "template", "", "template is nil")
		return c.errs
	}

	c.checkHeader(t)
	scope := c.checkParameters(t)
	scope = c.checkComputedVars(t, scope)
	c.checkAnswer(t, scope)
	c.checkSteps(t)
	c.checkText(t, scope)
	c.checkOptions(t, scope)
	return c.errs
}

type checker struct {
	errs []ValidationError

	// textChoices holds choice parameters with non-numeric choices. They
	// may appear in text but not in formulas.
	textChoices map[string]bool
}

// textRef reports a formula reference to a non-numeric choice parameter.
func (c *checker) textRef(field, name, ref string) bool {
	if !c.textChoices[ref] {
		return false
	}
	c.add(CodeConstraintViolation, field, name, "%q has non-numeric choices and cannot be used in a formula", ref)
	return true
}

func (c *checker) add(code Code, field, name, format string, args ...any) {
	c.errs = append(c.errs, ValidationError{
		Code:    code,
		Field:   field,
		Name:    name,
		Message: fmt.Sprintf(format, args...),
	})
}

func (c *checker) checkHeader(t *ProblemTemplate) {
	if strings.TrimSpace(t.Name) == "" {
		c.add(CodeMissingField, "name", "", "name is required")
	}
	if strings.TrimSpace(t.QuestionTemplate) == "" {
		c.add(CodeMissingField, "questionTemplate", "", "question template is required")
	}
	if strings.TrimSpace(t.AnswerFormula) == "" {
		c.add(CodeMissingField, "answerFormula", "", "answer formula is required")
	}
	switch {
	case t.Difficulty == "":
		c.add(CodeMissingField, "difficulty", "", "difficulty is required")
	case !t.Difficulty.Valid():
		c.add(CodeInvalidEnum, "difficulty", "", "unknown difficulty %q", t.Difficulty)
	}
	switch {
	case t.QuestionType == "":
		c.add(CodeMissingField, "questionType", "", "question type is required")
	case !t.QuestionType.Valid():
		c.add(CodeInvalidEnum, "questionType", "", "unknown question type %q", t.QuestionType)
	}
	if f := t.AnswerFormat; f.Decimals != nil && (*f.Decimals < 0 || *f.Decimals > MaxDecimals) {
		c.add(CodeConstraintViolation, "answerFormat.decimals", "", "decimals must be between 0 and %d", MaxDecimals)
	}
	if f := t.AnswerFormat; f.Tolerance != nil && (*f.Tolerance < 0 || math.IsNaN(*f.Tolerance)) {
		c.add(CodeConstraintViolation, "answerFormat.tolerance", "", "tolerance must be non-negative")
	}
}

// names tracks the identifiers visible to formulas and where each was
// declared, so a reference can be reported as undefined or forward.
type names struct {
	kind  map[string]string
	order map[string]int
}

func newNames() *names {
	return &names{kind: map[string]string{}, order: map[string]int{}}
}

func (n *names) declared(name string) bool {
	_, ok := n.kind[name]
	return ok
}

func (n *names) declare(name, kind string, idx int) {
	n.kind[name] = kind
	n.order[name] = idx
}

// nameCheck validates an identifier and registers it as seen.
func (c *checker) nameCheck(field, name string, seen map[string]bool) bool {
	switch {
	case name == "":
		c.add(CodeMissingField, field, "", "name is required")
		return false
	case !expr.IsIdentifier(name):
		c.add(CodeSyntaxError, field, name, "%q is not a valid identifier", name)
		return false
	case expr.IsReserved(name) || name == AnswerName:
		c.add(CodeReservedName, field, name, "%q is reserved", name)
		return false
	case seen[name]:
		c.add(CodeDuplicateName, field, name, "%q is declared more than once", name)
		return false
	}
	seen[name] = true
	return true
}

// checkParameters validates parameter declarations and returns the names
// visible to computed vars: every parameter, computed or not.
func (c *checker) checkParameters(t *ProblemTemplate) *names {
	seen := map[string]bool{}
	all := newNames()
	sampled := newNames()
	var computed []int

	for i, p := range t.Parameters {
		field := fmt.Sprintf("parameters[%d]", i)
		ok := c.nameCheck(field+".name", p.Name, seen)

		switch {
		case p.Type == "":
			c.add(CodeMissingField, field+".type", p.Name, "type is required")
		case !p.Type.Valid():
			c.add(CodeInvalidEnum, field+".type", p.Name, "unknown parameter type %q", p.Type)
		case p.Type.Ranged():
			c.checkRange(field, p)
		case p.Type == ParamChoice:
			if len(p.Choices) == 0 {
				c.add(CodeEmptyChoiceSet, field+".choices", p.Name, "choice parameter has no choices")
			}
			for j, ch := range p.Choices {
				if strings.TrimSpace(ch) == "" {
					c.add(CodeConstraintViolation, fmt.Sprintf("%s.choices[%d]", field, j), p.Name, "choices must not be blank")
				}
			}
		case p.Type == ParamComputed:
			if strings.TrimSpace(p.Formula) == "" {
				c.add(CodeMissingField, field+".formula", p.Name, "computed parameter needs a formula")
			}
			computed = append(computed, i)
		}
		if p.Decimals != nil && (*p.Decimals < 0 || *p.Decimals > MaxDecimals) {
			c.add(CodeConstraintViolation, field+".decimals", p.Name, "decimals must be between 0 and %d", MaxDecimals)
		}

		if !ok {
			continue
		}
		if p.Type == ParamChoice && !p.NumericChoices() {
			if c.textChoices == nil {
				c.textChoices = map[string]bool{}
			}
			c.textChoices[p.Name] = true
		}
		all.declare(p.Name, "parameter", i)
		if p.Type != ParamComputed {
			sampled.declare(p.Name, "parameter", i)
		}
	}

	// Computed parameters see every sampled parameter plus the computed
	// parameters declared before them.
	for _, i := range computed {
		p := t.Parameters[i]
		if strings.TrimSpace(p.Formula) == "" {
			continue
		}
		field := fmt.Sprintf("parameters[%d].formula", i)
		prog := c.parse(field, p.Name, p.Formula)
		if prog == nil {
			continue
		}
		for _, ref := range prog.Identifiers() {
			if c.textRef(field, p.Name, ref) {
				continue
			}
			switch {
			case sampled.declared(ref):
			case all.declared(ref) && t.Parameters[all.order[ref]].Type == ParamComputed && all.order[ref] < i:
			case all.declared(ref):
				c.add(CodeForwardReference, field, p.Name, "%q is computed later", ref)
			default:
				c.add(CodeUndefinedReference, field, p.Name, "%q is not a parameter", ref)
			}
		}
	}
	return all
}

func (c *checker) checkRange(field string, p TemplateParam) {
	if p.Min == nil {
		c.add(CodeMissingField, field+".min", p.Name, "%s parameter needs min", p.Type)
	}
	if p.Max == nil {
		c.add(CodeMissingField, field+".max", p.Name, "%s parameter needs max", p.Type)
	}
	if p.Min == nil || p.Max == nil {
		return
	}
	lo, hi := *p.Min, *p.Max
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		c.add(CodeConstraintViolation, field, p.Name, "range bounds must be finite")
		return
	}
	if lo > hi {
		c.add(CodeConstraintViolation, field, p.Name, "min %g is greater than max %g", lo, hi)
		return
	}
	switch p.Type {
	case ParamInteger:
		if math.Ceil(lo) > math.Floor(hi) {
			c.add(CodeConstraintViolation, field, p.Name, "range [%g, %g] contains no integer", lo, hi)
		}
	case ParamBearing:
		if lo < 0 || hi > 360 {
			c.add(CodeConstraintViolation, field, p.Name, "bearing range must lie within [0, 360]")
		}
	}
	if p.Step < 0 {
		c.add(CodeConstraintViolation, field+".step", p.Name, "step must be non-negative")
	}
}

// checkComputedVars validates derived values. Each formula may reference
// any parameter and earlier computed vars.
func (c *checker) checkComputedVars(t *ProblemTemplate, params *names) *names {
	seen := map[string]bool{}
	for name := range params.kind {
		seen[name] = true
	}
	later := map[string]bool{}
	for _, v := range t.ComputedVars {
		if v.Name != "" {
			later[v.Name] = true
		}
	}

	for i, v := range t.ComputedVars {
		field := fmt.Sprintf("computedVars[%d]", i)
		ok := c.nameCheck(field+".name", v.Name, seen)
		if v.Decimals != nil && (*v.Decimals < 0 || *v.Decimals > MaxDecimals) {
			c.add(CodeConstraintViolation, field+".decimals", v.Name, "decimals must be between 0 and %d", MaxDecimals)
		}
		if strings.TrimSpace(v.Formula) == "" {
			c.add(CodeMissingField, field+".formula", v.Name, "formula is required")
		} else if prog := c.parse(field+".formula", v.Name, v.Formula); prog != nil {
			for _, ref := range prog.Identifiers() {
				if c.textRef(field+".formula", v.Name, ref) {
					continue
				}
				switch {
				case params.declared(ref):
				case later[ref] && !params.declared(ref):
					c.add(CodeForwardReference, field+".formula", v.Name, "%q is defined after %q", ref, v.Name)
				default:
					c.add(CodeUndefinedReference, field+".formula", v.Name, "%q is not defined", ref)
				}
			}
		}
		if ok {
			params.declare(v.Name, "computedVar", i)
		}
		delete(later, v.Name)
	}
	return params
}

func (c *checker) checkAnswer(t *ProblemTemplate, scope *names) {
	if strings.TrimSpace(t.AnswerFormula) == "" {
		return
	}
	if t.QuestionType == QuestionShortAnswer {
		c.placeholders("answerFormula", t.AnswerFormula, scope, false)
		return
	}
	c.formula("answerFormula", "", t.AnswerFormula, scope)
}

func (c *checker) checkSteps(t *ProblemTemplate) {
	seen := map[int]bool{}
	for i, s := range t.SolutionSteps {
		field := fmt.Sprintf("solutionSteps[%d]", i)
		if strings.TrimSpace(s.Title) == "" {
			c.add(CodeMissingField, field+".title", "", "step title is required")
		}
		if s.StepNumber <= 0 {
			c.add(CodeConstraintViolation, field+".stepNumber", "", "step number must be positive")
		} else if seen[s.StepNumber] {
			c.add(CodeDuplicateName, field+".stepNumber", "", "step number %d is used more than once", s.StepNumber)
		}
		seen[s.StepNumber] = true
	}
}

func (c *checker) checkText(t *ProblemTemplate, scope *names) {
	for _, f := range t.TextFields() {
		c.placeholders(f.Path, f.Text, scope, true)
	}
}

func (c *checker) checkOptions(t *ProblemTemplate, scope *names) {
	if t.QuestionType != QuestionMultipleChoice {
		return
	}
	o := t.OptionsGenerator
	if o == nil {
		c.add(CodeMissingField, "optionsGenerator", "", "multiple choice questions need an options generator")
		return
	}
	if o.Count < 0 || o.Count == 1 {
		c.add(CodeInvalidOptions, "optionsGenerator.count", "", "option count must be at least 2")
	}
	if o.MaxRetries < 0 {
		c.add(CodeInvalidOptions, "optionsGenerator.maxRetries", "", "max retries must be non-negative")
	}
	switch o.Kind {
	case OptionsOffsets:
		if len(o.Offsets) == 0 {
			c.add(CodeInvalidOptions, "optionsGenerator.offsets", "", "offsets strategy needs at least one offset")
		}
		for i, off := range o.Offsets {
			if off.Add == nil && off.Multiply == nil {
				c.add(CodeInvalidOptions, fmt.Sprintf("optionsGenerator.offsets[%d]", i), "", "offset needs add or multiply")
			}
		}
	case OptionsWrongFormulas:
		if len(o.Formulas) == 0 {
			c.add(CodeInvalidOptions, "optionsGenerator.formulas", "", "wrong_formulas strategy needs at least one formula")
		}
		for i, f := range o.Formulas {
			c.formula(fmt.Sprintf("optionsGenerator.formulas[%d]", i), "", f, scope)
		}
	case "":
		c.add(CodeMissingField, "optionsGenerator.strategy", "", "strategy is required")
	default:
		c.add(CodeInvalidEnum, "optionsGenerator.strategy", "", "unknown options strategy %q", o.Kind)
	}
}

// formula parses src and checks every reference against scope.
func (c *checker) formula(field, name, src string, scope *names) {
	prog := c.parse(field, name, src)
	if prog == nil {
		return
	}
	for _, ref := range prog.Identifiers() {
		if c.textRef(field, name, ref) {
			continue
		}
		if !scope.declared(ref) {
			c.add(CodeUndefinedReference, field, name, "%q is not defined", ref)
		}
	}
}

func (c *checker) placeholders(field, text string, scope *names, allowAnswer bool) {
	for _, ph := range Placeholders(text) {
		switch {
		case !ph.Valid:
			c.add(CodeSyntaxError, field, ph.Name, "malformed placeholder {{%s}}", ph.Name)
		case ph.Name == AnswerName && allowAnswer:
		case !scope.declared(ph.Name):
			c.add(CodeUndefinedReference, field, ph.Name, "placeholder {{%s}} is not defined", ph.Name)
		}
	}
}

// parse compiles src, translating evaluator errors to validation codes.
func (c *checker) parse(field, name, src string) *expr.Program {
	prog, err := expr.Parse(src)
	if err == nil {
		return prog
	}
	var (
		fnErr    *expr.UndefinedFunctionError
		arityErr *expr.ArityError
	)
	switch {
	case errors.As(err, &fnErr):
		c.add(CodeUndefinedFunction, field, name, "%s", err.Error())
	case errors.As(err, &arityErr):
		c.add(CodeArityMismatch, field, name, "%s", err.Error())
	default:
		c.add(CodeSyntaxError, field, name, "%s", err.Error())
	}
	return nil
}

func stepPath(i int, name string) string {
	return fmt.Sprintf("solutionSteps[%d].%s", i, name)
}
