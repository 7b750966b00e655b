// Package grading checks learner submissions against published questions.
package grading

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/abhisek/probgen/internal/problemgen"
	"github.com/abhisek/probgen/internal/template"
)

var (
	// ErrMalformedSubmission means the submission could not be interpreted
	// for the question's answer type.
	ErrMalformedSubmission = errors.New("malformed submission")

	// ErrTemplateVersionMismatch means the question's instance could not be
	// rebuilt from its pinned template version.
	ErrTemplateVersionMismatch = errors.New("template version mismatch")
)

// SubmissionError wraps ErrMalformedSubmission with the offending input.
type SubmissionError struct {
	Submitted string
	Reason    string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("malformed submission %q: %s", e.Submitted, e.Reason)
}

func (e *SubmissionError) Unwrap() error { return ErrMalformedSubmission }

// VersionError wraps ErrTemplateVersionMismatch with the pinned reference.
type VersionError struct {
	TemplateID string
	Version    int
	Err        error
}

func (e *VersionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("template %s@%d: cannot rebuild question", e.TemplateID, e.Version)
	}
	return fmt.Sprintf("template %s@%d: cannot rebuild question: %v", e.TemplateID, e.Version, e.Err)
}

func (e *VersionError) Is(target error) bool { return target == ErrTemplateVersionMismatch }

func (e *VersionError) Unwrap() error { return e.Err }

// GradeResult is the outcome of grading one submission.
type GradeResult struct {
	IsCorrect            bool   `json:"isCorrect"`
	CorrectAnswerDisplay string `json:"correctAnswerDisplay"`
	Explanation          string `json:"explanation,omitempty"`
}

// Regenerator rebuilds dynamic question instances.
type Regenerator interface {
	RegenerateFromSeed(ctx context.Context, templateID string, version int, seed problemgen.Seed) (*problemgen.ProblemInstance, error)
}

// Grader grades submissions. A nil Regenerator restricts it to static
// questions.
type Grader struct {
	regen  Regenerator
	logger *zap.Logger
}

// New creates a Grader. logger may be nil.
func New(regen Regenerator, logger *zap.Logger) *Grader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Grader{regen: regen, logger: logger}
}

// Grade compares submitted against q's correct answer.
//
// Comparison rules:
//   - Numeric answers are correct when |submitted - correct| <= tolerance.
//     A trailing unit matching the answer's unit is ignored, and simple
//     fractions such as "3/4" are accepted.
//   - Text answers compare trimmed, whitespace-collapsed, NFKC-normalised
//     and case-folded.
//   - Multiple choice accepts the option text or its 1-based index.
//   - Questions with an accepted set need exactly that set, in any order,
//     separated by commas, semicolons or newlines.
//
// Errors mean the submission could not be graded, never that it is wrong.
func (g *Grader) Grade(ctx context.Context, q *problemgen.Question, submitted string) (GradeResult, error) {
	if q == nil {
		return GradeResult{}, errors.New("grade: question is nil")
	}
	submitted = strings.TrimSpace(submitted)
	if submitted == "" {
		return GradeResult{}, &SubmissionError{Submitted: submitted, Reason: "empty"}
	}

	if len(q.AcceptedSet) > 0 {
		return gradeSet(q.AcceptedSet, submitted, explanationOf(q.Instance))
	}

	inst, err := g.instance(ctx, q)
	if err != nil {
		return GradeResult{}, err
	}

	res := GradeResult{
		CorrectAnswerDisplay: inst.Answer.Display(),
		Explanation:          inst.Explanation,
	}
	switch {
	case inst.QuestionType == template.QuestionMultipleChoice:
		res.IsCorrect, err = gradeChoice(inst, submitted)
	case inst.Answer.Kind == problemgen.AnswerText:
		res.IsCorrect = normalizeText(submitted) == normalizeText(inst.Answer.Text)
	default:
		res.IsCorrect, err = gradeNumeric(inst.Answer, submitted)
	}
	if err != nil {
		return GradeResult{}, err
	}
	g.logger.Debug("graded submission",
		zap.String("question_id", q.ID),
		zap.String("template_id", inst.TemplateID),
		zap.Bool("correct", res.IsCorrect),
	)
	return res, nil
}

func (g *Grader) instance(ctx context.Context, q *problemgen.Question) (*problemgen.ProblemInstance, error) {
	if !q.IsDynamic {
		if q.Instance == nil {
			return nil, &VersionError{TemplateID: q.TemplateID, Version: q.TemplateVersion, Err: errors.New("static question has no instance")}
		}
		return q.Instance, nil
	}
	if g.regen == nil {
		return nil, &VersionError{TemplateID: q.TemplateID, Version: q.TemplateVersion, Err: errors.New("no regenerator configured")}
	}
	inst, err := g.regen.RegenerateFromSeed(ctx, q.TemplateID, q.TemplateVersion, q.Seed)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		g.logger.Warn("regenerate for grading failed",
			zap.String("question_id", q.ID),
			zap.String("template_id", q.TemplateID),
			zap.Int("template_version", q.TemplateVersion),
			zap.Error(err),
		)
		return nil, &VersionError{TemplateID: q.TemplateID, Version: q.TemplateVersion, Err: err}
	}
	return inst, nil
}

func explanationOf(inst *problemgen.ProblemInstance) string {
	if inst == nil {
		return ""
	}
	return inst.Explanation
}

func gradeNumeric(answer problemgen.Answer, submitted string) (bool, error) {
	x, err := parseNumber(submitted, answer.Unit)
	if err != nil {
		return false, err
	}
	return withinTolerance(x, answer.Value, answer.Tolerance), nil
}

// toleranceSlack is the relative slack added to a tolerance for the binary
// rounding of decimal input.
const toleranceSlack = 1e-9

func withinTolerance(x, want, tol float64) bool {
	return math.Abs(x-want) <= tol+toleranceSlack*math.Max(1, math.Abs(want))
}

func gradeChoice(inst *problemgen.ProblemInstance, submitted string) (bool, error) {
	if len(inst.Options) == 0 {
		return false, &VersionError{TemplateID: inst.TemplateID, Version: inst.TemplateVersion, Err: errors.New("multiple choice instance has no options")}
	}
	// Option text takes precedence over a 1-based index.
	got := normalizeText(submitted)
	if got == normalizeText(inst.CorrectOption) {
		return true, nil
	}
	for _, opt := range inst.Options {
		if normalizeText(opt) == got {
			return false, nil
		}
	}
	if idx, err := strconv.Atoi(strings.TrimSpace(submitted)); err == nil && idx >= 1 && idx <= len(inst.Options) {
		return inst.Options[idx-1] == inst.CorrectOption, nil
	}

	// Numeric options also match a submission that differs only in format,
	// such as "212.1" for "212.10".
	x, err := parseNumber(submitted, inst.Answer.Unit)
	if err != nil {
		return false, &SubmissionError{Submitted: submitted, Reason: "not one of the options"}
	}
	for _, opt := range inst.Options {
		v, perr := strconv.ParseFloat(opt, 64)
		if perr == nil && v == x {
			return opt == inst.CorrectOption, nil
		}
	}
	return false, &SubmissionError{Submitted: submitted, Reason: "not one of the options"}
}

func gradeSet(accepted []string, submitted, explanation string) (GradeResult, error) {
	want := make(map[string]struct{}, len(accepted))
	for _, a := range accepted {
		want[normalizeText(a)] = struct{}{}
	}
	got := make(map[string]struct{})
	for _, part := range strings.FieldsFunc(submitted, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	}) {
		if p := normalizeText(part); p != "" {
			got[p] = struct{}{}
		}
	}
	if len(got) == 0 {
		return GradeResult{}, &SubmissionError{Submitted: submitted, Reason: "no answers given"}
	}

	correct := len(got) == len(want)
	for k := range got {
		if _, ok := want[k]; !ok {
			correct = false
			break
		}
	}
	display := slices.Clone(accepted)
	slices.Sort(display)
	return GradeResult{
		IsCorrect:            correct,
		CorrectAnswerDisplay: strings.Join(display, ", "),
		Explanation:          explanation,
	}, nil
}

// normalizeText trims, collapses internal whitespace, applies NFKC and case
// folds s.
func normalizeText(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	return cases.Fold().String(s)
}

// parseNumber reads a decimal or simple fraction, dropping a trailing unit
// equal to unit.
func parseNumber(s, unit string) (float64, error) {
	s = strings.TrimSpace(s)
	if unit != "" {
		if trimmed, ok := cutSuffixFold(s, unit); ok {
			s = strings.TrimSpace(trimmed)
		}
	}

	var (
		v   float64
		err error
	)
	if strings.Contains(s, "/") {
		v, err = parseFraction(s)
	} else {
		v, err = strconv.ParseFloat(s, 64)
	}
	if err != nil {
		return 0, &SubmissionError{Submitted: s, Reason: "not a number"}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &SubmissionError{Submitted: s, Reason: "not a finite number"}
	}
	return v, nil
}

func cutSuffixFold(s, suffix string) (string, bool) {
	if len(s) < len(suffix) || !strings.EqualFold(s[len(s)-len(suffix):], suffix) {
		return s, false
	}
	return s[:len(s)-len(suffix)], true
}

// parseFraction parses "a/b" into a/b.
func parseFraction(s string) (float64, error) {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return 0, fmt.Errorf("invalid fraction format: %q", s)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numerator: %w", err)
	}
	d, err := strconv.ParseInt(strings.TrimSpace(den), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid denominator: %w", err)
	}
	if d == 0 {
		return 0, errors.New("zero denominator")
	}
	return float64(n) / float64(d), nil
}
