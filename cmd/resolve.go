package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-recon/internal/model"
)

var (
	resolveCIKFlag    int64
	resolveTickerFlag string
	resolveConcept    string
	resolveScorerFlag string
	resolveTopN       int
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Rank substitute concepts for a target against an entity's reported set",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		target := model.ParseConcept(resolveConcept)

		f := initFetcher()
		client := initClient(f)

		cik, err := resolveCIK(ctx, client, resolveCIKFlag, resolveTickerFlag)
		if err != nil {
			return err
		}

		ts, err := loadTaxonomy(ctx, f)
		if err != nil {
			return eris.Wrap(err, "load taxonomy")
		}

		res, err := initResolver(ts, resolveScorerFlag)
		if err != nil {
			return err
		}

		reported, err := client.ReportedConcepts(ctx, cik, cfg.Recon.CutoffYear)
		if err != nil {
			return eris.Wrap(err, "load reported concepts")
		}

		topN := resolveTopN
		if topN == 0 {
			topN = cfg.Resolve.TopN
		}
		resolution := res.Resolve(target, reported, topN)

		zap.L().Info("resolution complete",
			zap.String("target", target.String()),
			zap.Int64("cik", cik),
			zap.Int("candidates", len(resolution.Ranking)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resolution)
	},
}

func init() {
	resolveCmd.Flags().Int64Var(&resolveCIKFlag, "cik", 0, "entity CIK")
	resolveCmd.Flags().StringVar(&resolveTickerFlag, "ticker", "", "entity ticker symbol")
	resolveCmd.Flags().StringVar(&resolveConcept, "concept", "", "target concept, e.g. us-gaap:Revenues (required)")
	resolveCmd.Flags().StringVar(&resolveScorerFlag, "scorer", "", "scorer: textual, proximity, hybrid, depth, tree")
	resolveCmd.Flags().IntVar(&resolveTopN, "top", 0, "number of candidates to return (default from config)")
	_ = resolveCmd.MarkFlagRequired("concept")
	rootCmd.AddCommand(resolveCmd)
}
