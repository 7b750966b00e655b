package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/probgen/internal/ui/theme"
)

var gradeCmd = &cobra.Command{
	Use:   "grade QUESTION_ID ANSWER...",
	Short: "Grade an answer against a published question",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		res, err := svc.Grade(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return fmt.Errorf("unable to grade: %w", err)
		}

		out := cmd.OutOrStdout()
		if res.IsCorrect {
			fmt.Fprintln(out, theme.Correct.Render("✓ Correct"))
		} else {
			fmt.Fprintf(out, "%s Answer: %s\n", theme.Incorrect.Render("✗ Incorrect."), res.CorrectAnswerDisplay)
		}
		if res.Explanation != "" {
			fmt.Fprintf(out, "Explanation: %s\n", res.Explanation)
		}
		return nil
	},
}
