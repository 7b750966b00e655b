package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/probgen/internal/store"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect recorded generation and grading events",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		templateID, _ := cmd.Flags().GetString("template")
		after, _ := cmd.Flags().GetInt64("after")

		svc, closeFn, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		events, err := svc.Events(cmd.Context(), store.QueryOpts{
			Limit:      limit,
			After:      after,
			TemplateID: templateID,
		})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No events found.")
			return nil
		}

		// Header.
		fmt.Fprintf(out, "%-6s  %-19s  %-10s  %-36s  %3s  %5s  %5s  %-7s  %s\n",
			"Seq", "Timestamp", "Operation", "Template", "Ver", "Req", "OK", "Ms", "Error")
		fmt.Fprintln(out, strings.Repeat("─", 120))

		for _, e := range events {
			errMsg := e.ErrorMessage
			if e.Stage != "" {
				errMsg = e.Stage + ": " + errMsg
			}
			if len(errMsg) > 40 {
				errMsg = errMsg[:37] + "..."
			}
			fmt.Fprintf(out, "%-6d  %-19s  %-10s  %-36s  %3d  %5d  %5d  %-7d  %s\n",
				e.Sequence,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.Operation,
				e.TemplateID,
				e.TemplateVersion,
				e.Requested,
				e.Succeeded,
				e.LatencyMs,
				errMsg,
			)
		}
		return nil
	},
}

var eventsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregated counts and latency per operation",
	RunE: func(cmd *cobra.Command, args []string) error {
		templateID, _ := cmd.Flags().GetString("template")

		svc, closeFn, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		events, err := svc.Events(cmd.Context(), store.QueryOpts{TemplateID: templateID})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if len(events) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No events recorded yet.")
			return nil
		}
		printStats(cmd.OutOrStdout(), aggregate(events))
		return nil
	},
}

type operationStats struct {
	Operation    store.Operation
	Calls        int
	Failed       int
	Requested    int
	Succeeded    int
	AvgLatencyMs int64
}

func aggregate(events []store.GenerationEvent) []operationStats {
	byOp := make(map[store.Operation]*operationStats)
	latency := make(map[store.Operation]int64)
	for _, e := range events {
		s, ok := byOp[e.Operation]
		if !ok {
			s = &operationStats{Operation: e.Operation}
			byOp[e.Operation] = s
		}
		s.Calls++
		if e.ErrorMessage != "" {
			s.Failed++
		}
		s.Requested += e.Requested
		s.Succeeded += e.Succeeded
		latency[e.Operation] += e.LatencyMs
	}

	out := make([]operationStats, 0, len(byOp))
	for op, s := range byOp {
		s.AvgLatencyMs = latency[op] / int64(s.Calls)
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b operationStats) int { return strings.Compare(string(a.Operation), string(b.Operation)) })
	return out
}

func printStats(out io.Writer, stats []operationStats) {
	fmt.Fprintln(out, "Events by Operation")
	fmt.Fprintln(out, strings.Repeat("─", 66))
	fmt.Fprintf(out, "%-12s  %6s  %6s  %10s  %10s  %8s\n",
		"Operation", "Calls", "Failed", "Requested", "Succeeded", "Avg Ms")
	fmt.Fprintln(out, strings.Repeat("─", 66))

	var calls, failed int
	for _, s := range stats {
		fmt.Fprintf(out, "%-12s  %6d  %6d  %10d  %10d  %8d\n",
			s.Operation, s.Calls, s.Failed, s.Requested, s.Succeeded, s.AvgLatencyMs)
		calls += s.Calls
		failed += s.Failed
	}

	fmt.Fprintln(out, strings.Repeat("─", 66))
	fmt.Fprintf(out, "%-12s  %6d  %6d\n", "TOTAL", calls, failed)
}

func init() {
	eventsListCmd.Flags().Int("limit", 50, "Maximum number of events")
	eventsListCmd.Flags().String("template", "", "Only events for this template ID")
	eventsListCmd.Flags().Int64("after", 0, "Only events after this sequence number")

	eventsStatsCmd.Flags().String("template", "", "Only events for this template ID")

	eventsCmd.AddCommand(eventsListCmd)
	eventsCmd.AddCommand(eventsStatsCmd)
}
