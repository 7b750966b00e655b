package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/probgen/internal/service"
	"github.com/abhisek/probgen/internal/template"
	"github.com/abhisek/probgen/internal/ui/report"
	"github.com/abhisek/probgen/internal/ui/theme"
)

var templateCmd = &cobra.Command{
	Use:     "template",
	Aliases: []string{"tpl"},
	Short:   "Manage stored templates",
}

var templateImportCmd = &cobra.Command{
	Use:   "import FILE...",
	Short: "Validate and store template documents",
	Long: `Store each template document as a new template, or as a new version
of an existing one when the document carries an id.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		out := cmd.OutOrStdout()
		var failed int
		for _, path := range args {
			t, err := template.DecodeFile(path)
			if err != nil {
				failed++
				fmt.Fprintf(out, "%s %s: %v\n", theme.Incorrect.Render("✗"), path, err)
				continue
			}
			saved, err := svc.SaveTemplate(cmd.Context(), t)
			if err != nil {
				failed++
				var verrs template.ValidationErrors
				if errors.As(err, &verrs) {
					fmt.Fprint(out, report.Validation(path, verrs))
				} else {
					fmt.Fprintf(out, "%s %s: %v\n", theme.Incorrect.Render("✗"), path, err)
				}
				continue
			}
			fmt.Fprintf(out, "%s %s -> %s v%d\n", theme.Correct.Render("✓"), path, saved.ID, saved.Version)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d templates not imported", failed, len(args))
		}
		return nil
	},
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		search, _ := cmd.Flags().GetString("search")
		all, _ := cmd.Flags().GetBool("all")
		limit, _ := cmd.Flags().GetInt("limit")

		svc, closeFn, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		list, err := svc.ListTemplates(cmd.Context(), service.ListQuery{
			Category:        category,
			Search:          search,
			IncludeInactive: all,
			Limit:           limit,
		})
		if err != nil {
			return fmt.Errorf("list templates: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "No templates found.")
			return nil
		}

		// Header.
		fmt.Fprintf(out, "%-36s  %-40s  %-14s  %-16s  %3s  %s\n",
			"ID", "Name", "Category", "Type", "Ver", "Active")
		fmt.Fprintln(out, strings.Repeat("─", 124))

		for _, t := range list {
			name := t.Name
			if len(name) > 40 {
				name = name[:37] + "..."
			}
			active := "✓"
			if !t.IsActive {
				active = "✗"
			}
			fmt.Fprintf(out, "%-36s  %-40s  %-14s  %-16s  %3d  %s\n",
				t.ID, name, t.Category, t.QuestionType, t.Version, active)
		}

		fmt.Fprintf(out, "\n%d templates\n", len(list))
		return nil
	},
}

var templateShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print a stored template document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		version, _ := cmd.Flags().GetInt("version")

		svc, closeFn, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		var t *template.ProblemTemplate
		if version > 0 {
			t, err = svc.TemplateVersion(cmd.Context(), args[0], version)
		} else {
			t, err = svc.GetTemplate(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}

		data, err := template.Encode(t, template.Format(format))
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Deactivate a template",
	Long: `Mark a template inactive. It can no longer be published, but questions
already published from it keep working.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := svc.DeleteTemplate(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Template %s deactivated.\n", args[0])
		return nil
	},
}

func init() {
	templateListCmd.Flags().String("category", "", "Filter by category")
	templateListCmd.Flags().StringP("search", "s", "", "Fuzzy search by name, id, category or tag")
	templateListCmd.Flags().Bool("all", false, "Include inactive templates")
	templateListCmd.Flags().Int("limit", 0, "Maximum number of templates (0 = all)")

	templateShowCmd.Flags().String("format", string(template.FormatYAML), "Output format: yaml or json")
	templateShowCmd.Flags().Int("version", 0, "Show a specific version instead of the latest")

	templateCmd.AddCommand(templateImportCmd)
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateShowCmd)
	templateCmd.AddCommand(templateDeleteCmd)
}
