package expr

import (
	"errors"
	"fmt"
)

var (
	// ErrDivisionByZero is returned when the right operand of "/" is zero.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrEvaluationTimeout is returned when evaluation exceeds the
	// evaluator's time budget.
	ErrEvaluationTimeout = errors.New("evaluation timeout")

	// ErrNonFiniteResult is returned when an operation produces NaN or ±Inf,
	// e.g. sqrt(-1) or an overflowing pow.
	ErrNonFiniteResult = errors.New("non-finite result")
)

// SyntaxError reports a malformed expression. Pos is the byte offset into
// the source at which parsing failed.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Msg)
}

// UndefinedVariableError reports an identifier missing from the scope.
type UndefinedVariableError struct {
	Name string
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variable %q", e.Name)
}

// UndefinedFunctionError reports a call to a function outside the whitelist.
type UndefinedFunctionError struct {
	Name string
	Pos  int
}

func (e *UndefinedFunctionError) Error() string {
	return fmt.Sprintf("undefined function %q at position %d", e.Name, e.Pos)
}

// ArityError reports a whitelisted function called with the wrong number
// of arguments.
type ArityError struct {
	Fn       string
	Expected string
	Got      int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("function %s expects %s argument(s), got %d", e.Fn, e.Expected, e.Got)
}
