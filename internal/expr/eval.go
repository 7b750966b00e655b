package expr

import (
	"fmt"
	"math"
	"time"
)

// DefaultTimeout is the per-call budget used by Evaluate.
const DefaultTimeout = 10 * time.Millisecond

// checkEvery controls how often the deadline is consulted, in visited nodes.
const checkEvery = 64

type evalState struct {
	scope    map[string]float64
	deadline time.Time
	steps    int
}

func (st *evalState) tick() error {
	st.steps++
	if st.deadline.IsZero() || st.steps%checkEvery != 0 {
		return nil
	}
	if time.Now().After(st.deadline) {
		return ErrEvaluationTimeout
	}
	return nil
}

// Evaluator evaluates expressions under a fixed time budget.
// A zero Timeout disables the budget. Evaluator is safe for concurrent use.
type Evaluator struct {
	Timeout time.Duration
}

// NewEvaluator returns an Evaluator with the given per-call timeout.
func NewEvaluator(timeout time.Duration) *Evaluator {
	return &Evaluator{Timeout: timeout}
}

// Evaluate parses and evaluates src against scope.
func (e *Evaluator) Evaluate(src string, scope map[string]float64) (float64, error) {
	p, err := Parse(src)
	if err != nil {
		return 0, err
	}
	return e.Run(p, scope)
}

// Run evaluates an already parsed program against scope.
func (e *Evaluator) Run(p *Program, scope map[string]float64) (float64, error) {
	st := &evalState{scope: scope}
	if e != nil && e.Timeout > 0 {
		st.deadline = time.Now().Add(e.Timeout)
	}
	return p.run(st)
}

// Evaluate parses and evaluates src against scope using DefaultTimeout.
func Evaluate(src string, scope map[string]float64) (float64, error) {
	return NewEvaluator(DefaultTimeout).Evaluate(src, scope)
}

// Eval evaluates the program without a time budget.
func (p *Program) Eval(scope map[string]float64) (float64, error) {
	return p.run(&evalState{scope: scope})
}

func (p *Program) run(st *evalState) (float64, error) {
	v, err := p.root.eval(st)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNonFiniteResult
	}
	return v, nil
}

func (n *numberNode) eval(st *evalState) (float64, error) {
	return n.v, st.tick()
}

func (n *varNode) eval(st *evalState) (float64, error) {
	if err := st.tick(); err != nil {
		return 0, err
	}
	v, ok := st.scope[n.name]
	if !ok {
		return 0, &UndefinedVariableError{Name: n.name}
	}
	return v, nil
}

func (n *unaryNode) eval(st *evalState) (float64, error) {
	if err := st.tick(); err != nil {
		return 0, err
	}
	x, err := n.x.eval(st)
	if err != nil {
		return 0, err
	}
	return -x, nil
}

func (n *binaryNode) eval(st *evalState) (float64, error) {
	if err := st.tick(); err != nil {
		return 0, err
	}
	l, err := n.l.eval(st)
	if err != nil {
		return 0, err
	}
	r, err := n.r.eval(st)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	case '/':
		if r == 0 {
			return 0, ErrDivisionByZero
		}
		return l / r, nil
	case '^':
		v := math.Pow(l, r)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%g ^ %g: %w", l, r, ErrNonFiniteResult)
		}
		return v, nil
	}
	return 0, fmt.Errorf("unknown operator %q", n.op)
}

func (n *callNode) eval(st *evalState) (float64, error) {
	if err := st.tick(); err != nil {
		return 0, err
	}
	args := make([]float64, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(st)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}
	v := n.fn.call(args)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s: %w", n.fn.name, ErrNonFiniteResult)
	}
	return v, nil
}
