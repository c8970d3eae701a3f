package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/runlet/internal/config"
	"github.com/michaelbrown/runlet/internal/storage"
	"github.com/michaelbrown/runlet/internal/storage/sqlite"
)

var (
	requesterFilter string
	outcomeFilter   string
	limitFlag       int
	exportFormat    string
	exportOutput    string
	forceFlag       bool
)

var runsCmd = &cobra.Command{
	Use:     "runs",
	Aliases: []string{"run", "r"},
	Short:   "Inspect recorded run history",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run's source, inputs, and output",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsExportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a run as markdown or JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsExport,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsDelete,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsExportCmd, runsDeleteCmd)

	runsListCmd.Flags().StringVar(&requesterFilter, "requester", "", "Filter by requester ID")
	runsListCmd.Flags().StringVar(&outcomeFilter, "outcome", "", "Filter by outcome (ok, timeout, launch_failed)")
	runsListCmd.Flags().IntVar(&limitFlag, "limit", 20, "Max runs to show")

	runsExportCmd.Flags().StringVar(&exportFormat, "format", "md", "Export format: md or json")
	runsExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")

	runsDeleteCmd.Flags().BoolVar(&forceFlag, "force", false, "Skip confirmation")
}

func openStore() (storage.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return sqlite.Open(cfg.Storage.DBPath)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	opts := storage.RunListOptions{
		RequesterID: requesterFilter,
		Outcome:     outcomeFilter,
		Limit:       limitFlag,
	}

	runs, err := store.ListRuns(context.Background(), opts)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	// Header
	fmt.Printf("%-10s %-14s %-12s %-30s %s\n", "ID", "OUTCOME", "REQUESTER", "SOURCE", "WHEN")
	fmt.Println(strings.Repeat("─", 85))

	for _, r := range runs {
		source := firstLine(r.Source)
		if len(source) > 28 {
			source = source[:28] + ".."
		}

		requester := r.RequesterID
		if len(requester) > 10 {
			requester = requester[:10] + ".."
		}

		fmt.Printf("%-10s %-14s %-12s %-30s %s\n",
			shortID(r.ID), r.Outcome, requester, source, timeAgo(r.CreatedAt))
	}

	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Run:       %s\n", run.ID)
	fmt.Printf("Requester: %s\n", run.RequesterID)
	fmt.Printf("Outcome:   %s\n", run.Outcome)
	fmt.Printf("Duration:  %s\n", run.Duration)
	fmt.Printf("Created:   %s\n", run.CreatedAt.Format(time.RFC3339))

	fmt.Printf("\nSource:\n%s\n", run.Source)
	if len(run.Inputs) > 0 {
		fmt.Printf("\nInputs:\n")
		for i, in := range run.Inputs {
			fmt.Printf("  %d. %s\n", i+1, in)
		}
	}
	if run.Output != "" {
		fmt.Printf("\nOutput:\n%s\n", run.Output)
	}

	return nil
}

func runRunsExport(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(context.Background(), args[0])
	if err != nil {
		return err
	}

	var output string
	switch exportFormat {
	case "json":
		data, err := storage.ExportJSON(run)
		if err != nil {
			return err
		}
		output = string(data)
	default:
		output = storage.ExportMarkdown(run)
	}

	if exportOutput != "" {
		return os.WriteFile(exportOutput, []byte(output), 0o644)
	}

	fmt.Print(output)
	return nil
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	run, err := store.GetRun(ctx, args[0])
	if err != nil {
		return err
	}

	if !forceFlag {
		fmt.Printf("Delete run %s (%s)? [y/N] ", shortID(run.ID), run.Outcome)
		var confirm string
		fmt.Scanln(&confirm)
		if strings.ToLower(confirm) != "y" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := store.DeleteRun(ctx, run.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted run %s\n", shortID(run.ID))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
