package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs [source-id]",
	Short: "Show recent sync runs",
	Long: `Lists recent sync runs, most recent first. With a source ID only
that source's runs are shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs to show")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	if err := ensureApp(); err != nil {
		return err
	}
	if runsSvc == nil {
		return errors.New("run history not configured")
	}
	if closeApp != nil {
		defer closeApp()
	}

	sourceID := ""
	if len(args) > 0 {
		sourceID = args[0]
	}

	runs, err := runsSvc.ListRuns(cmd.Context(), sourceID, runsLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tSTARTED\tDURATION\tFETCHED\tACCEPTED\tSKIPPED\tRESULT")
	for _, run := range runs {
		result := "ok"
		if !run.Succeeded() {
			result = run.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			run.SourceID,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Duration().Round(time.Millisecond),
			run.ItemsFetched, run.ItemsAccepted, run.ItemsSkipped,
			result)
	}
	return w.Flush()
}
