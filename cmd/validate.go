package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/probgen/internal/template"
	"github.com/abhisek/probgen/internal/ui/report"
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Validate template documents (JSON or YAML)",
	Long: `Check template documents for schema and semantic problems without
touching the database. Every problem in every file is reported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		var invalid int
		for _, path := range args {
			t, err := template.DecodeFile(path)
			if err != nil {
				invalid++
				fmt.Fprintln(out, report.Validation(path, []template.ValidationError{{
					Code:    template.CodeSyntaxError,
					Field:   "document",
					Message: err.Error(),
				}}))
				continue
			}
			errs := template.ValidateTemplate(t)
			if len(errs) > 0 {
				invalid++
			}
			fmt.Fprint(out, report.Validation(path, errs))
		}
		if invalid > 0 {
			return fmt.Errorf("%d of %d templates invalid", invalid, len(args))
		}
		return nil
	},
}
