package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mind-engage/mindengage-loader/internal/content"
)

var historyLimit int

// targetsCmd prints the environment URL table after any overlay
var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Show the upload and admin pages of each environment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := content.LoadTargets(targetsFile)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(table); err != nil {
			return err
		}
		return enc.Close()
	},
}

// historyCmd lists payloads that were copied with --copy
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent payload handoffs",
	Long: `Reads the handoff log. HISTORY_DB_DRIVER and HISTORY_DB_DSN select the
database; a local sqlite file is used when neither is set.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)
	hist, closeHist, err := openHistory(ctx, true)
	if err != nil {
		return err
	}
	defer closeHist()

	entries, err := hist.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "no handoffs recorded")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tCATEGORY\tENV\tOPERATOR\tADMIN PAGE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Format(time.DateTime), e.Category, e.Environment, e.Operator, e.AdminURL)
	}
	return tw.Flush()
}
