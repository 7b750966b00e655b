package problemgen

import (
	"math"
	"math/rand/v2"

	"github.com/abhisek/probgen/internal/expr"
	"github.com/abhisek/probgen/internal/template"
)

// OptionSet is the shuffled option list of a multiple choice question.
type OptionSet struct {
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

// Correct returns the text of the correct option.
func (o OptionSet) Correct() string {
	return o.Options[o.CorrectIndex]
}

// GenerateOptions builds Count distinct options around correct. Options
// are compared after rounding to decimals. The result is shuffled with rng.
func GenerateOptions(correct float64, strategy template.OptionsStrategy, scope Scope, decimals int, rng *rand.Rand) (OptionSet, error) {
	return generateOptions(defaultEvaluator, correct, strategy, scope, decimals, rng)
}

func generateOptions(ev *expr.Evaluator, correct float64, strategy template.OptionsStrategy, scope Scope, decimals int, rng *rand.Rand) (OptionSet, error) {
	b := &optionBuilder{
		want:     strategy.OptionCount(),
		decimals: decimals,
		seen:     map[string]bool{},
	}
	correctText := FormatFixed(expr.Round(correct, decimals), decimals)
	b.add(correct)

	switch strategy.Kind {
	case template.OptionsWrongFormulas:
		nums := scope.Numbers()
		for _, f := range strategy.Formulas {
			if b.full() {
				break
			}
			v, err := ev.Evaluate(f, nums)
			if err != nil {
				continue
			}
			b.add(v)
		}
		// Configured offsets top up whatever the formulas could not supply.
		b.offsets(correct, strategy, rng)
	case template.OptionsOffsets:
		b.offsets(correct, strategy, rng)
	}

	if !b.full() {
		return OptionSet{}, &InsufficientOptionsError{Want: b.want, Got: len(b.texts)}
	}

	rng.Shuffle(len(b.texts), func(i, j int) {
		b.texts[i], b.texts[j] = b.texts[j], b.texts[i]
	})
	set := OptionSet{Options: b.texts, CorrectIndex: -1}
	for i, t := range b.texts {
		if t == correctText {
			set.CorrectIndex = i
		}
	}
	return set, nil
}

type optionBuilder struct {
	want     int
	decimals int
	seen     map[string]bool
	texts    []string
}

func (b *optionBuilder) full() bool {
	return len(b.texts) >= b.want
}

// add records v if it is finite and distinct after rounding.
func (b *optionBuilder) add(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	text := FormatFixed(expr.Round(v, b.decimals), b.decimals)
	if b.seen[text] {
		return false
	}
	b.seen[text] = true
	b.texts = append(b.texts, text)
	return true
}

// offsets derives one distractor per configured offset, perturbing a
// collision up to strategy.Retries() times.
func (b *optionBuilder) offsets(correct float64, strategy template.OptionsStrategy, rng *rand.Rand) {
	for _, off := range strategy.Offsets {
		if b.full() {
			return
		}
		v := correct
		if off.Add != nil {
			v += *off.Add
		}
		if off.Multiply != nil {
			v *= *off.Multiply
		}
		if b.add(v) {
			continue
		}
		for range strategy.Retries() {
			if b.add(v + perturbation(correct, b.decimals, rng)) {
				break
			}
		}
	}
}

// perturbation returns a non-zero nudge at least one display unit wide and
// scaled to the size of the answer.
func perturbation(correct float64, decimals int, rng *rand.Rand) float64 {
	unit := math.Pow(10, -float64(decimals))
	scale := math.Max(unit, math.Abs(correct)*0.02)
	d := scale * float64(1+rng.IntN(5))
	if rng.IntN(2) == 0 {
		d = -d
	}
	return d
}
