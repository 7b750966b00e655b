package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/probgen/internal/problemgen"
	"github.com/abhisek/probgen/internal/ui/theme"
)

var publishCmd = &cobra.Command{
	Use:   "publish TEMPLATE_ID",
	Short: "Generate and store a batch of questions",
	Long: `Generate --count questions from the latest version of a stored template
and write them in one transaction.

static questions store the full instance. dynamic questions store only the
template version and seed and are rebuilt whenever they are served or graded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		mode, _ := cmd.Flags().GetString("mode")
		allOrNothing, _ := cmd.Flags().GetBool("all-or-nothing")

		req := problemgen.PublishRequest{
			Count:        count,
			Mode:         problemgen.PublishMode(mode),
			AllOrNothing: allOrNothing,
		}
		if !req.Mode.Valid() {
			return fmt.Errorf("invalid mode %q: must be static or dynamic", mode)
		}

		svc, closeFn, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		res, err := svc.Publish(cmd.Context(), args[0], req)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %d %s questions (batch %s)\n",
			theme.Correct.Render("Published"), len(res.Questions), req.Mode, res.BatchID)
		for _, q := range res.Questions {
			fmt.Fprintf(out, "  %s  seed %s\n", q.ID, q.Seed)
		}
		for _, f := range res.Failures {
			fmt.Fprintf(out, "  %s item %d at %s: %s\n", theme.Incorrect.Render("✗"), f.Index, f.Stage, f.Error)
		}
		return nil
	},
}

func init() {
	publishCmd.Flags().Int("count", 10, "Number of questions to generate")
	publishCmd.Flags().String("mode", string(problemgen.ModeStatic), "Publish mode: static or dynamic")
	publishCmd.Flags().Bool("all-or-nothing", false, "Fail the whole batch if any item fails")
}
