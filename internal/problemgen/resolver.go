package problemgen

import (
	"github.com/abhisek/probgen/internal/expr"
	"github.com/abhisek/probgen/internal/template"
)

// computedDisplayDecimals is used for computed vars without decimals.
const computedDisplayDecimals = 4

// Resolve evaluates vars in declaration order and returns scope extended
// with their values. Each formula sees the parameters and every earlier
// var. Values keep full precision; only Display is rounded. scope is not
// modified and nothing partial is returned on error.
func Resolve(vars []template.ComputedVar, scope Scope) (Scope, error) {
	return resolve(defaultEvaluator, vars, scope)
}

func resolve(ev *expr.Evaluator, vars []template.ComputedVar, scope Scope) (Scope, error) {
	out := scope.Clone()
	nums := out.Numbers()
	for _, v := range vars {
		n, err := ev.Evaluate(v.Formula, nums)
		if err != nil {
			return nil, &ComputedVarError{Name: v.Name, Cause: err}
		}
		d := computedDisplayDecimals
		if v.Decimals != nil {
			d = *v.Decimals
		}
		out[v.Name] = Value{Number: n, Numeric: true, Display: FormatFixed(n, d)}
		nums[v.Name] = n
	}
	return out, nil
}
