package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-recon/internal/edgar"
	"github.com/sells-group/edgar-recon/internal/model"
	"github.com/sells-group/edgar-recon/internal/recon"
	"github.com/sells-group/edgar-recon/internal/resolver"
	"github.com/sells-group/edgar-recon/internal/store"
)

var (
	reconCIKFlag     int64
	reconTickerFlag  string
	reconFromYear    int
	reconToYear      int
	reconMetrics     string
	reconMetricsFile string
	reconNoStore     bool
)

// reconcileResult is the JSON document a reconcile run prints.
type reconcileResult struct {
	RunID  string                     `json:"run_id,omitempty"`
	CIK    int64                      `json:"cik"`
	Years  []int                      `json:"years"`
	Tables map[string]model.FactTable `json:"tables"`
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile canonical facts for an entity across fiscal years",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f := initFetcher()
		client := initClient(f)

		cik, err := resolveCIK(ctx, client, reconCIKFlag, reconTickerFlag)
		if err != nil {
			return err
		}

		ts, err := loadTaxonomy(ctx, f)
		if err != nil {
			return eris.Wrap(err, "load taxonomy")
		}
		res, err := initResolver(ts, "")
		if err != nil {
			return err
		}

		metrics, err := selectMetrics(reconMetrics, reconMetricsFile)
		if err != nil {
			return err
		}
		years := yearRange(reconFromYear, reconToYear)

		var st store.Store
		if !reconNoStore {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate store")
			}
		}

		result, err := reconcileEntity(ctx, client, res, st, cik, reconTickerFlag, metrics, years)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// reconcileEntity runs the full resolve-then-reconcile flow for one
// entity and persists the outcome when a store is present.
func reconcileEntity(ctx context.Context, client *edgar.Client, res *resolver.Resolver, st store.Store, cik int64, ticker string, metrics *model.Metrics, years []int) (*reconcileResult, error) {
	var run *model.Run
	if st != nil {
		r, err := st.CreateRun(ctx, cik, ticker)
		if err != nil {
			return nil, eris.Wrap(err, "create run")
		}
		run = r
		if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning, ""); err != nil {
			return nil, eris.Wrap(err, "mark run running")
		}
	}

	result, resolved, err := runReconciliation(ctx, client, res, cik, metrics, years)
	if st != nil {
		if err != nil {
			if uerr := st.UpdateRunStatus(ctx, run.ID, model.RunStatusFailed, err.Error()); uerr != nil {
				zap.L().Warn("mark run failed", zap.Error(uerr))
			}
			return nil, err
		}
		result.RunID = run.ID
		for metric, table := range result.Tables {
			if err := st.SaveFacts(ctx, run.ID, cik, metric, table); err != nil {
				return nil, eris.Wrapf(err, "save facts %s", metric)
			}
		}
		if err := st.SaveResolutions(ctx, run.ID, resolved); err != nil {
			return nil, eris.Wrap(err, "save resolutions")
		}
		if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusComplete, ""); err != nil {
			return nil, eris.Wrap(err, "mark run complete")
		}
	}
	return result, err
}

// runReconciliation resolves alternatives for every base metric and
// feeds them to the reconciliation engine.
func runReconciliation(ctx context.Context, client *edgar.Client, res *resolver.Resolver, cik int64, metrics *model.Metrics, years []int) (*reconcileResult, []store.ResolvedCandidate, error) {
	reported, err := client.ReportedConcepts(ctx, cik, cfg.Recon.CutoffYear)
	if err != nil {
		return nil, nil, eris.Wrap(err, "load reported concepts")
	}

	alternatives := make(map[string][]model.Concept)
	var resolved []store.ResolvedCandidate
	for _, m := range metrics.Base() {
		resolution := res.Resolve(m.Concept(), reported, cfg.Resolve.TopN)
		alternatives[m.ID] = resolution.Ranking.Concepts()
		for i, c := range resolution.Ranking {
			resolved = append(resolved, store.ResolvedCandidate{
				Target:  m.Concept(),
				Concept: c.Concept,
				Rank:    i + 1,
				Score:   c.Score,
				Scorer:  resolution.Scorer,
			})
		}
	}

	engine := recon.New(edgar.NewMemo(client), recon.Options{CutoffYear: cfg.Recon.CutoffYear})
	tables, err := engine.ReconcileAll(ctx, cik, metrics, years, alternatives)
	if err != nil {
		return nil, nil, err
	}

	zap.L().Info("reconciliation complete",
		zap.Int64("cik", cik),
		zap.Int("metrics", len(tables)),
		zap.Int("years", len(years)),
	)
	return &reconcileResult{CIK: cik, Years: years, Tables: tables}, resolved, nil
}

// selectMetrics builds the run's metric registry: the default registry,
// or one loaded from metricsFile, optionally narrowed by a
// comma-separated ID filter.
func selectMetrics(filter, metricsFile string) (*model.Metrics, error) {
	all := model.DefaultMetrics()
	if metricsFile != "" {
		f, err := os.Open(metricsFile)
		if err != nil {
			return nil, eris.Wrapf(err, "open metrics file %s", metricsFile)
		}
		defer f.Close()
		all, err = model.MetricsFromYAML(f)
		if err != nil {
			return nil, err
		}
	}
	if filter == "" {
		return all, nil
	}
	var list []model.Metric
	for _, id := range strings.Split(filter, ",") {
		id = strings.TrimSpace(id)
		m, ok := all.Get(id)
		if !ok {
			return nil, eris.Errorf("unknown metric: %s", id)
		}
		list = append(list, m)
	}
	return model.NewMetrics(list), nil
}

func yearRange(from, to int) []int {
	if from == 0 {
		from = cfg.Recon.FromYear
	}
	if to == 0 {
		to = cfg.Recon.ToYear
	}
	if to < from {
		from, to = to, from
	}
	years := make([]int, 0, to-from+1)
	for y := from; y <= to; y++ {
		years = append(years, y)
	}
	return years
}

func init() {
	reconcileCmd.Flags().Int64Var(&reconCIKFlag, "cik", 0, "entity CIK")
	reconcileCmd.Flags().StringVar(&reconTickerFlag, "ticker", "", "entity ticker symbol")
	reconcileCmd.Flags().IntVar(&reconFromYear, "from", 0, "first fiscal year (default from config)")
	reconcileCmd.Flags().IntVar(&reconToYear, "to", 0, "last fiscal year (default from config)")
	reconcileCmd.Flags().StringVar(&reconMetrics, "metrics", "", "comma-separated metric IDs (default all)")
	reconcileCmd.Flags().StringVar(&reconMetricsFile, "metrics-file", "", "YAML file with a custom metric registry")
	reconcileCmd.Flags().BoolVar(&reconNoStore, "no-store", false, "skip persisting results")
	rootCmd.AddCommand(reconcileCmd)
}
