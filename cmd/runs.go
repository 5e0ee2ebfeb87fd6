package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/edgar-recon/internal/model"
	"github.com/sells-group/edgar-recon/internal/store"
)

var (
	runsStatus string
	runsCIK    int64
	runsLimit  int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List past reconciliation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(runsStatus),
			CIK:    runsCIK,
			Limit:  runsLimit,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsStatus, "status", "", "filter by status")
	runsCmd.Flags().Int64Var(&runsCIK, "cik", 0, "filter by CIK")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 0, "max rows (default 100)")
	rootCmd.AddCommand(runsCmd)
}
