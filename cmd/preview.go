package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/probgen/internal/grading"
	"github.com/abhisek/probgen/internal/problemgen"
	"github.com/abhisek/probgen/internal/template"
	"github.com/abhisek/probgen/internal/ui/report"
	"github.com/abhisek/probgen/internal/ui/theme"
)

var previewCmd = &cobra.Command{
	Use:   "preview [FILE]",
	Short: "Generate instances from a template file or a stored template",
	Long: `Generate and show instances of a template. Nothing is published.

With FILE the template document is previewed without touching the database.
With --id the latest stored version is used. --seed reproduces one exact
instance. --interactive asks for an answer to each instance and grades it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().String("id", "", "Stored template ID")
	previewCmd.Flags().String("seed", "", "Generation seed to reproduce")
	previewCmd.Flags().Int("count", 1, "Number of instances to generate")
	previewCmd.Flags().Bool("markdown", false, "Render with glamour as Markdown")
	previewCmd.Flags().Bool("scope", false, "Print every resolved value")
	previewCmd.Flags().BoolP("interactive", "i", false, "Answer each instance and grade it")
}

func runPreview(cmd *cobra.Command, args []string) error {
	id, _ := cmd.Flags().GetString("id")
	seed, _ := cmd.Flags().GetString("seed")
	count, _ := cmd.Flags().GetInt("count")
	markdown, _ := cmd.Flags().GetBool("markdown")
	showScope, _ := cmd.Flags().GetBool("scope")
	interactive, _ := cmd.Flags().GetBool("interactive")

	if (len(args) == 0) == (id == "") {
		return errors.New("give either a template FILE or --id")
	}
	if count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", count)
	}
	if seed != "" {
		count = 1
	}

	ctx := cmd.Context()
	var t *template.ProblemTemplate
	var engine *problemgen.Engine
	if id != "" {
		svc, closeFn, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		if t, err = svc.GetTemplate(ctx, id); err != nil {
			return fmt.Errorf("load template %s: %w", id, err)
		}
		engine = svc.Engine()
	} else {
		var err error
		if t, err = template.DecodeFile(args[0]); err != nil {
			return err
		}
		engine = problemgen.New(appConfig.EngineConfig(), nil, problemgen.WithLogger(newLogger(cmd)))
	}

	out := cmd.OutOrStdout()
	grader := grading.New(nil, nil)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	var correct, answered int

	for i := 1; i <= count; i++ {
		var (
			inst  *problemgen.ProblemInstance
			scope problemgen.Scope
			err   error
		)
		if seed != "" {
			inst, err = engine.Regenerate(ctx, t, problemgen.Seed(seed))
			if err == nil {
				scope = inst.Scope()
			}
		} else {
			inst, scope, err = engine.Preview(ctx, t)
		}
		if err != nil {
			var verrs template.ValidationErrors
			if errors.As(err, &verrs) {
				fmt.Fprint(out, report.Validation(t.Name, verrs))
				return errors.New("template is invalid")
			}
			fmt.Fprintf(out, "Instance %d: generation failed at %s: %v\n\n", i, problemgen.StageOf(err), err)
			continue
		}

		if count > 1 {
			fmt.Fprintln(out, theme.Rule.Render(fmt.Sprintf("── Instance %d/%d ──", i, count)))
		}
		if err := printInstance(out, inst, !interactive, markdown); err != nil {
			return err
		}
		if showScope {
			fmt.Fprint(out, report.Scope(scope))
		}

		if !interactive {
			fmt.Fprintln(out)
			continue
		}

		fmt.Fprint(out, "\nYour answer: ")
		if !scanner.Scan() {
			fmt.Fprintln(out, "\n(input closed)")
			break
		}
		answer := strings.TrimSpace(scanner.Text())
		if answer == "" {
			fmt.Fprintln(out, "(skipped)")
			fmt.Fprintln(out)
			continue
		}

		answered++
		q := &problemgen.Question{TemplateID: inst.TemplateID, TemplateVersion: inst.TemplateVersion, Seed: inst.Seed, Instance: inst}
		res, err := grader.Grade(ctx, q, answer)
		switch {
		case errors.Is(err, grading.ErrMalformedSubmission):
			fmt.Fprintln(out, theme.Warning.Render("Could not read that answer: "+err.Error()))
		case err != nil:
			return err
		case res.IsCorrect:
			correct++
			fmt.Fprintln(out, theme.Correct.Render("✓ Correct!"))
		default:
			fmt.Fprintf(out, "%s Answer: %s\n", theme.Incorrect.Render("✗ Wrong."), res.CorrectAnswerDisplay)
		}
		if res.Explanation != "" {
			fmt.Fprintf(out, "Explanation: %s\n", res.Explanation)
		}
		fmt.Fprintln(out)
	}

	if interactive {
		fmt.Fprintf(out, "── Summary: %d/%d correct ──\n", correct, answered)
	}
	return nil
}

func printInstance(out io.Writer, inst *problemgen.ProblemInstance, reveal, markdown bool) error {
	if !markdown {
		_, err := fmt.Fprint(out, report.Instance(inst, reveal))
		return err
	}
	rendered, err := report.Markdown(report.InstanceMarkdown(inst, reveal), 100)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, rendered)
	return err
}
