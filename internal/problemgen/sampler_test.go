package problemgen

import (
	"errors"
	"math"
	"reflect"
	"regexp"
	"testing"

	"github.com/abhisek/probgen/internal/expr"
	"github.com/abhisek/probgen/internal/template"
)

func TestSample_Deterministic(t *testing.T) {
	params := choiceTemplate().Parameters
	seed := Seed("fixed-seed")

	first, err := Sample(params, NewRand(seed, "tpl", 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 20; i++ {
		got, err := Sample(params, NewRand(seed, "tpl", 1))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first, got) {
			t.Fatalf("run %d differs: %v vs %v", i, first, got)
		}
	}
}

func TestNewRand_MixesTemplateIdentity(t *testing.T) {
	a := NewRand("s", "tpl-a", 1).Uint64()
	if b := NewRand("s", "tpl-b", 1).Uint64(); a == b {
		t.Error("different templates produced the same stream")
	}
	if c := NewRand("s", "tpl-a", 2).Uint64(); a == c {
		t.Error("different versions produced the same stream")
	}
}

func TestSample_IntegerInclusive(t *testing.T) {
	params := []template.TemplateParam{{Name: "n", Type: template.ParamInteger, Min: fp(1), Max: fp(3)}}
	rng := NewRand("ints", "", 0)
	seen := map[float64]bool{}
	for i := 0; i < 500; i++ {
		s, err := Sample(params, rng)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		v := s["n"].Number
		if v < 1 || v > 3 || v != math.Trunc(v) {
			t.Fatalf("sample %v out of range", v)
		}
		seen[v] = true
	}
	if len(seen) != 3 {
		t.Errorf("expected all of 1..3 to be drawn, got %v", seen)
	}
}

func TestSample_FloatRoundedOnce(t *testing.T) {
	params := []template.TemplateParam{{Name: "x", Type: template.ParamFloat, Min: fp(0), Max: fp(10), Decimals: ip(1)}}
	rng := NewRand("floats", "", 0)
	for i := 0; i < 200; i++ {
		s, err := Sample(params, rng)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		v := s["x"]
		if v.Number != expr.Round(v.Number, 1) {
			t.Fatalf("value %v not rounded to 1 decimal", v.Number)
		}
		if v.Display != FormatFixed(v.Number, 1) {
			t.Fatalf("display %q does not match value %v", v.Display, v.Number)
		}
		if v.Number < 0 || v.Number > 10 {
			t.Fatalf("value %v out of range", v.Number)
		}
	}
}

func TestSample_FloatStep(t *testing.T) {
	params := []template.TemplateParam{{Name: "x", Type: template.ParamFloat, Min: fp(1), Max: fp(3), Step: 0.5}}
	allowed := map[float64]bool{1: true, 1.5: true, 2: true, 2.5: true, 3: true}
	rng := NewRand("step", "", 0)
	for i := 0; i < 200; i++ {
		s, err := Sample(params, rng)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !allowed[s["x"].Number] {
			t.Fatalf("value %v is off the step grid", s["x"].Number)
		}
	}
}

func TestSample_Angles(t *testing.T) {
	dms := regexp.MustCompile(`^\d+°\d{2}'\d{2}"$`)
	brg := regexp.MustCompile(`^[NS] \d+°\d{2}'\d{2}" [EW]$`)
	params := []template.TemplateParam{
		{Name: "a", Type: template.ParamAngleDMS, Min: fp(10), Max: fp(80)},
		{Name: "b", Type: template.ParamBearing, Min: fp(0), Max: fp(360)},
	}
	rng := NewRand("angles", "", 0)
	for i := 0; i < 200; i++ {
		s, err := Sample(params, rng)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		a, b := s["a"], s["b"]
		if !dms.MatchString(a.Display) {
			t.Fatalf("bad DMS display %q", a.Display)
		}
		if !brg.MatchString(b.Display) {
			t.Fatalf("bad bearing display %q", b.Display)
		}
		if secs := a.Number * 3600; math.Abs(secs-math.Round(secs)) > 1e-6 {
			t.Fatalf("angle %v is not whole seconds", a.Number)
		}
		if a.Number < 10 || a.Number > 80 {
			t.Fatalf("angle %v out of range", a.Number)
		}
	}
}

func TestSample_Choice(t *testing.T) {
	params := []template.TemplateParam{
		{Name: "m", Type: template.ParamChoice, Choices: []string{"steel"}},
		{Name: "k", Type: template.ParamChoice, Choices: []string{"2.5"}},
	}
	s, err := Sample(params, NewRand("c", "", 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s["m"].Numeric || s["m"].Display != "steel" {
		t.Errorf("unexpected text choice %+v", s["m"])
	}
	if !s["k"].Numeric || s["k"].Number != 2.5 {
		t.Errorf("unexpected numeric choice %+v", s["k"])
	}
	if _, ok := s.Numbers()["m"]; ok {
		t.Error("text choice leaked into evaluator scope")
	}
}

func TestSample_ComputedAfterSampled(t *testing.T) {
	params := []template.TemplateParam{
		{Name: "area", Type: template.ParamComputed, Formula: "w * h", Decimals: ip(0)},
		{Name: "w", Type: template.ParamInteger, Min: fp(2), Max: fp(2)},
		{Name: "h", Type: template.ParamInteger, Min: fp(7), Max: fp(7)},
		{Name: "half", Type: template.ParamComputed, Formula: "area / 4"},
	}
	s, err := Sample(params, NewRand("c", "", 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s["area"].Number != 14 || s["area"].Display != "14" {
		t.Errorf("area = %+v", s["area"])
	}
	if s["half"].Number != 3.5 || s["half"].Display != "3.50" {
		t.Errorf("half = %+v", s["half"])
	}
}

func TestSample_ConstraintViolation(t *testing.T) {
	tests := []struct {
		name  string
		param template.TemplateParam
	}{
		{"min greater than max", template.TemplateParam{Name: "x", Type: template.ParamFloat, Min: fp(5), Max: fp(1)}},
		{"missing bounds", template.TemplateParam{Name: "x", Type: template.ParamInteger}},
		{"no integer", template.TemplateParam{Name: "x", Type: template.ParamInteger, Min: fp(1.1), Max: fp(1.9)}},
		{"empty choices", template.TemplateParam{Name: "x", Type: template.ParamChoice}},
		{"unknown type", template.TemplateParam{Name: "x", Type: "matrix"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Sample([]template.TemplateParam{tt.param}, NewRand("s", "", 0))
			var cv *ConstraintViolation
			if !errors.As(err, &cv) {
				t.Fatalf("expected ConstraintViolation, got %v", err)
			}
			if cv.Param != "x" {
				t.Errorf("expected param x, got %q", cv.Param)
			}
		})
	}
}

func TestFormatting(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{FormatFixed(212.1320343, 2), "212.13"},
		{FormatFixed(-0.001, 2), "0.00"},
		{FormatFixed(7, 0), "7"},
		{FormatDMS(45.5), `45°30'00"`},
		{FormatDMS(10.2575), `10°15'27"`},
		{FormatDMS(-3.5), `-3°30'00"`},
		{FormatBearing(45.5), `N 45°30'00" E`},
		{FormatBearing(135), `S 45°00'00" E`},
		{FormatBearing(225), `S 45°00'00" W`},
		{FormatBearing(315.25), `N 44°45'00" W`},
		{withUnit("12.00", "ft"), "12.00 ft"},
		{withUnit("30", "°"), "30°"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
