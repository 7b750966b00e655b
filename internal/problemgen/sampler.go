package problemgen

import (
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/abhisek/probgen/internal/expr"
	"github.com/abhisek/probgen/internal/template"
)

var defaultEvaluator = expr.NewEvaluator(expr.DefaultTimeout)

// Sample draws one value per parameter. Non-computed parameters are drawn
// in declaration order; computed parameters are then evaluated in
// declaration order over the sampled values and earlier computed ones.
func Sample(params []template.TemplateParam, rng *rand.Rand) (Scope, error) {
	return sample(defaultEvaluator, params, rng)
}

func sample(ev *expr.Evaluator, params []template.TemplateParam, rng *rand.Rand) (Scope, error) {
	scope := make(Scope, len(params))
	for _, p := range params {
		if p.Type == template.ParamComputed {
			continue
		}
		v, err := sampleOne(p, rng)
		if err != nil {
			return nil, err
		}
		scope[p.Name] = v
	}

	for _, p := range params {
		if p.Type != template.ParamComputed {
			continue
		}
		if p.Formula == "" {
			return nil, &ConstraintViolation{Param: p.Name, Reason: "computed parameter has no formula"}
		}
		n, err := ev.Evaluate(p.Formula, scope.Numbers())
		if err != nil {
			return nil, &ComputedVarError{Name: p.Name, Cause: err}
		}
		d := p.DecimalPlaces()
		n = expr.Round(n, d)
		scope[p.Name] = Value{Type: p.Type, Number: n, Numeric: true, Display: FormatFixed(n, d)}
	}
	return scope, nil
}

func sampleOne(p template.TemplateParam, rng *rand.Rand) (Value, error) {
	switch p.Type {
	case template.ParamInteger:
		lo, hi, err := bounds(p)
		if err != nil {
			return Value{}, err
		}
		a, b := int64(math.Ceil(lo)), int64(math.Floor(hi))
		if a > b {
			return Value{}, &ConstraintViolation{Param: p.Name, Reason: "range contains no integer"}
		}
		n := a + rng.Int64N(b-a+1)
		return Value{Type: p.Type, Number: float64(n), Numeric: true, Display: strconv.FormatInt(n, 10)}, nil

	case template.ParamFloat:
		lo, hi, err := bounds(p)
		if err != nil {
			return Value{}, err
		}
		d := p.DecimalPlaces()
		n := sampleFloat(lo, hi, p.Step, d, rng)
		return Value{Type: p.Type, Number: n, Numeric: true, Display: FormatFixed(n, d)}, nil

	case template.ParamAngleDMS, template.ParamBearing:
		lo, hi, err := bounds(p)
		if err != nil {
			return Value{}, err
		}
		n := sampleSeconds(lo, hi, rng)
		display := FormatDMS(n)
		if p.Type == template.ParamBearing {
			display = FormatBearing(n)
		}
		return Value{Type: p.Type, Number: n, Numeric: true, Display: display}, nil

	case template.ParamChoice:
		if len(p.Choices) == 0 {
			return Value{}, &ConstraintViolation{Param: p.Name, Reason: "no choices"}
		}
		c := p.Choices[rng.IntN(len(p.Choices))]
		v := Value{Type: p.Type, Text: c, Display: c}
		if n, ok := template.ChoiceNumber(c); ok {
			v.Number, v.Numeric = n, true
		}
		return v, nil
	}
	return Value{}, &ConstraintViolation{Param: p.Name, Reason: "unknown type " + strconv.Quote(string(p.Type))}
}

func bounds(p template.TemplateParam) (float64, float64, error) {
	if p.Min == nil || p.Max == nil {
		return 0, 0, &ConstraintViolation{Param: p.Name, Reason: "min and max are required"}
	}
	if *p.Min > *p.Max {
		return 0, 0, &ConstraintViolation{Param: p.Name, Reason: "min is greater than max"}
	}
	return *p.Min, *p.Max, nil
}

// sampleFloat draws from [lo, hi], snapping to the step grid when step is
// positive, and rounds once to decimals.
func sampleFloat(lo, hi, step float64, decimals int, rng *rand.Rand) float64 {
	var n float64
	if step > 0 {
		k := int64(math.Floor((hi-lo)/step + 1e-9))
		n = lo + float64(rng.Int64N(k+1))*step
	} else {
		n = lo + rng.Float64()*(hi-lo)
	}
	n = expr.Round(n, decimals)

	// Rounding can step outside the range by one unit in the last place.
	unit := math.Pow(10, -float64(decimals))
	if n > hi && n-unit >= lo {
		n = expr.Round(n-unit, decimals)
	}
	if n < lo && n+unit <= hi {
		n = expr.Round(n+unit, decimals)
	}
	return n
}

// sampleSeconds draws an angle in degrees at whole-second resolution.
func sampleSeconds(lo, hi float64, rng *rand.Rand) float64 {
	a, b := int64(math.Ceil(lo*3600)), int64(math.Floor(hi*3600))
	if a > b {
		return lo
	}
	return float64(a+rng.Int64N(b-a+1)) / 3600
}
