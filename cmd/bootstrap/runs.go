package main

import (
	"dashboard-bootstrap/cmd"
	"dashboard-bootstrap/internal/database"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newRunsCmd(a *app) *cobra.Command {
	var (
		limit  int
		status string
		asJSON bool
	)

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent bootstrap runs from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			db, err := cmd.OpenLedger(a.cfg)
			if err != nil {
				return err
			}

			runs, err := database.ListRuns(c.Context(), db, strings.ToUpper(status), limit)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(c.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			return writeRuns(c.OutOrStdout(), runs)
		},
	}

	runsCmd.Flags().IntVar(&limit, "limit", 10, "maximum number of runs to list")
	runsCmd.Flags().StringVar(&status, "status", "", "only list runs with this status")
	runsCmd.Flags().BoolVar(&asJSON, "json", false, "print runs as JSON")

	runsCmd.AddCommand(newRunsShowCmd(a))

	return runsCmd
}

func newRunsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show the steps of a run, the latest one by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			db, err := cmd.OpenLedger(a.cfg)
			if err != nil {
				return err
			}

			var run database.Run
			if len(args) == 1 {
				runId, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid run id '%s': %w", args[0], err)
				}
				run, err = database.GetRun(c.Context(), db, runId)
				if err != nil {
					return err
				}
			} else {
				run, err = database.LatestRun(c.Context(), db)
				if err != nil {
					return err
				}
			}

			return writeRun(c.OutOrStdout(), run)
		},
	}
}

func runDuration(r database.Run) string {
	if !r.CompletionTime.Valid {
		return "-"
	}
	return r.CompletionTime.Time.Sub(r.CreationTime).Round(time.Second).String()
}

func writeRuns(w io.Writer, runs []database.Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTATUS\tEXIT\tHOST\tSTARTED\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n", r.Id, r.Status, r.ExitCode, r.Host, r.CreationTime.Local().Format(time.DateTime), runDuration(r))
	}
	return tw.Flush()
}

func writeRun(w io.Writer, r database.Run) error {
	fmt.Fprintf(w, "run %s on %s: %s (exit %d)\n", r.Id, r.Host, r.Status, r.ExitCode)
	if r.Error.Valid {
		fmt.Fprintf(w, "error: %s\n", r.Error.String)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTEP\tPOLICY\tSTATUS\tATTEMPTS\tERROR")
	for _, s := range r.Steps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", s.Position, s.Name, s.Policy, s.Status, s.Attempts, s.Error.String)
	}
	return tw.Flush()
}
