package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources and their sync state",
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, _ []string) error {
	if err := ensureApp(); err != nil {
		return err
	}
	if sourcesSvc == nil || cursorsSvc == nil {
		return errors.New("sources not configured")
	}
	if closeApp != nil {
		defer closeApp()
	}

	sources := sourcesSvc.Sources()
	if len(sources) == 0 {
		cmd.Println("No sources configured.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tENABLED\tMODE\tSTATUS\tFAILURES\tLAST SUCCESS")
	for _, src := range sources {
		cursor, err := cursorsSvc.Load(cmd.Context(), src.ID())
		if err != nil {
			return fmt.Errorf("load cursor for %s: %w", src.ID(), err)
		}
		lastSuccess := "never"
		if !cursor.LastSuccessAt.IsZero() {
			lastSuccess = cursor.LastSuccessAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%v\t%s\t%s\t%d\t%s\n",
			src.ID(), src.Enabled, src.SyncMode, cursor.Status,
			cursor.ConsecutiveFailures, lastSuccess)
	}
	return w.Flush()
}
