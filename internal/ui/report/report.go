// Package report formats templates, instances and validation results for
// the terminal.
package report

import (
	"fmt"
	"slices"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"

	"github.com/abhisek/probgen/internal/problemgen"
	"github.com/abhisek/probgen/internal/template"
	"github.com/abhisek/probgen/internal/ui/theme"
)

// Instance renders inst with theme styles. The answer, solution and
// explanation are included only when reveal is true.
func Instance(inst *problemgen.ProblemInstance, reveal bool) string {
	var b strings.Builder

	b.WriteString(theme.Title.Render(inst.QuestionText))
	b.WriteString("\n")
	for i, opt := range inst.Options {
		fmt.Fprintf(&b, "  %s %s\n", theme.Label.Render(fmt.Sprintf("%d)", i+1)), opt)
	}
	b.WriteString(theme.Hint.Render(fmt.Sprintf("seed %s · template %s@%d", inst.Seed, inst.TemplateID, inst.TemplateVersion)))
	b.WriteString("\n")

	if !reveal {
		return b.String()
	}

	b.WriteString("\n")
	b.WriteString(theme.Label.Render("Answer: "))
	b.WriteString(theme.Correct.Render(inst.Answer.Display()))
	if inst.CorrectOption != "" {
		b.WriteString(theme.Hint.Render(fmt.Sprintf(" (option %d)", slices.Index(inst.Options, inst.CorrectOption)+1)))
	}
	b.WriteString("\n")

	if len(inst.SolutionSteps) > 0 {
		var steps []string
		for _, s := range inst.SolutionSteps {
			steps = append(steps, stepLines(s, theme.Label.Render, theme.Code.Render)...)
		}
		b.WriteString(theme.Card.Render(strings.Join(steps, "\n")))
		b.WriteString("\n")
	}
	if inst.Explanation != "" {
		b.WriteString(theme.Body.Render(inst.Explanation))
		b.WriteString("\n")
	}
	return b.String()
}

func stepLines(s problemgen.RenderedStep, label, code func(...string) string) []string {
	lines := []string{label(fmt.Sprintf("%d. %s", s.StepNumber, s.Title))}
	if s.Description != "" {
		lines = append(lines, "   "+s.Description)
	}
	if s.Formula != "" {
		lines = append(lines, "   "+code(s.Formula))
	}
	if s.Calculation != "" {
		lines = append(lines, "   "+s.Calculation)
	}
	if s.Result != "" {
		lines = append(lines, "   => "+s.Result)
	}
	return lines
}

// InstanceMarkdown renders inst as a Markdown document.
func InstanceMarkdown(inst *problemgen.ProblemInstance, reveal bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Question\n\n%s\n\n", inst.QuestionText)
	for i, opt := range inst.Options {
		fmt.Fprintf(&b, "%d. %s\n", i+1, opt)
	}
	if len(inst.Options) > 0 {
		b.WriteString("\n")
	}
	if !reveal {
		return b.String()
	}

	fmt.Fprintf(&b, "**Answer:** %s\n\n", inst.Answer.Display())
	if len(inst.SolutionSteps) > 0 {
		b.WriteString("## Solution\n\n")
		for _, s := range inst.SolutionSteps {
			fmt.Fprintf(&b, "%d. **%s**", s.StepNumber, s.Title)
			if s.Description != "" {
				fmt.Fprintf(&b, " %s", s.Description)
			}
			b.WriteString("\n")
			if s.Formula != "" {
				fmt.Fprintf(&b, "   - `%s`\n", s.Formula)
			}
			if s.Calculation != "" {
				fmt.Fprintf(&b, "   - %s\n", s.Calculation)
			}
			if s.Result != "" {
				fmt.Fprintf(&b, "   - %s\n", s.Result)
			}
		}
		b.WriteString("\n")
	}
	if inst.Explanation != "" {
		fmt.Fprintf(&b, "## Explanation\n\n%s\n\n", inst.Explanation)
	}
	fmt.Fprintf(&b, "_seed `%s`, template `%s@%d`_\n", inst.Seed, inst.TemplateID, inst.TemplateVersion)
	return b.String()
}

// Markdown renders md for a terminal of the given width using the dark
// glamour style. width <= 0 disables wrapping.
func Markdown(md string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithStandardStyle("dark")}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("markdown renderer: %w", err)
	}
	return r.Render(md)
}

// Validation renders the validation result of one template document.
func Validation(source string, errs []template.ValidationError) string {
	if len(errs) == 0 {
		return theme.Correct.Render("✓ ") + source + "\n"
	}
	var b strings.Builder
	b.WriteString(theme.Incorrect.Render("✗ ") + source + theme.Hint.Render(fmt.Sprintf(" (%d problems)", len(errs))) + "\n")
	for _, e := range errs {
		fmt.Fprintf(&b, "  %s %s: %s\n", theme.Warning.Render(string(e.Code)), theme.Label.Render(e.Field), e.Message)
	}
	return b.String()
}

// Scope renders resolved values as an aligned name/value table.
func Scope(scope problemgen.Scope) string {
	names := make([]string, 0, len(scope))
	width := 0
	for n := range scope {
		names = append(names, n)
		width = max(width, lipgloss.Width(n))
	}
	slices.Sort(names)

	var b strings.Builder
	for _, n := range names {
		fmt.Fprintf(&b, "  %-*s  %s\n", width, n, theme.Code.Render(scope[n].Display))
	}
	return b.String()
}
