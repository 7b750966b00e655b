package expr

import (
	"fmt"
	"math"
	"sort"
)

// constPI names the only constant. It cannot be shadowed by the scope.
const constPI = "PI"

type function struct {
	name    string
	minArgs int
	maxArgs int
	call    func(args []float64) float64
}

func (f *function) expected() string {
	if f.minArgs == f.maxArgs {
		return fmt.Sprintf("%d", f.minArgs)
	}
	return fmt.Sprintf("%d-%d", f.minArgs, f.maxArgs)
}

func unary(name string, fn func(float64) float64) *function {
	return &function{name: name, minArgs: 1, maxArgs: 1, call: func(a []float64) float64 { return fn(a[0]) }}
}

var functions = map[string]*function{
	"sin":   unary("sin", math.Sin),
	"cos":   unary("cos", math.Cos),
	"tan":   unary("tan", math.Tan),
	"asin":  unary("asin", math.Asin),
	"acos":  unary("acos", math.Acos),
	"atan":  unary("atan", math.Atan),
	"sqrt":  unary("sqrt", math.Sqrt),
	"abs":   unary("abs", math.Abs),
	"floor": unary("floor", math.Floor),
	"ceil":  unary("ceil", math.Ceil),
	"pow": {name: "pow", minArgs: 2, maxArgs: 2, call: func(a []float64) float64 {
		return math.Pow(a[0], a[1])
	}},
	"round": {name: "round", minArgs: 1, maxArgs: 2, call: func(a []float64) float64 {
		if len(a) == 1 {
			return Round(a[0], 0)
		}
		return Round(a[0], int(math.Trunc(a[1])))
	}},
}

// Round rounds v half away from zero to the given number of decimal
// places. Negative decimals round to tens, hundreds, and so on.
func Round(v float64, decimals int) float64 {
	if decimals == 0 {
		return math.Round(v)
	}
	if decimals < 0 {
		p := math.Pow(10, float64(-decimals))
		return math.Round(v/p) * p
	}
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// Functions returns the sorted names of the whitelisted functions.
func Functions() []string {
	names := make([]string, 0, len(functions))
	for n := range functions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsReserved reports whether name is a function or constant name and so
// cannot be used as a variable.
func IsReserved(name string) bool {
	if name == constPI {
		return true
	}
	_, ok := functions[name]
	return ok
}
