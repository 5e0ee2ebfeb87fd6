package main

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/edgar-recon/internal/edgar"
	"github.com/sells-group/edgar-recon/internal/model"
)

var (
	batchFile        string
	batchConcurrency int
	batchContinue    bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Reconcile a list of entities concurrently",
	Long:  "Reads one CIK or ticker per line and reconciles each entity. Shared inputs (taxonomy, ticker map) are loaded once up front.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		entities, err := readEntityList(batchFile)
		if err != nil {
			return err
		}
		if len(entities) == 0 {
			return eris.New("entity list is empty")
		}

		f := initFetcher()
		client := initClient(f)

		ts, err := loadTaxonomy(ctx, f)
		if err != nil {
			return eris.Wrap(err, "load taxonomy")
		}
		res, err := initResolver(ts, "")
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		metrics := model.DefaultMetrics()
		years := yearRange(0, 0)

		concurrency := batchConcurrency
		if concurrency == 0 {
			concurrency = cfg.Batch.MaxConcurrentEntities
		}

		var (
			mu      sync.Mutex
			results []*reconcileResult
			failed  []string
		)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for _, entity := range entities {
			g.Go(func() error {
				cik, ticker, err := parseEntity(gctx, client, entity)
				if err == nil {
					var r *reconcileResult
					r, err = reconcileEntity(gctx, client, res, st, cik, ticker, metrics, years)
					if err == nil {
						mu.Lock()
						results = append(results, r)
						mu.Unlock()
						return nil
					}
				}
				zap.L().Error("entity failed", zap.String("entity", entity), zap.Error(err))
				if batchContinue {
					mu.Lock()
					failed = append(failed, entity)
					mu.Unlock()
					return nil
				}
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "batch run")
		}

		zap.L().Info("batch complete",
			zap.Int("succeeded", len(results)),
			zap.Int("failed", len(failed)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"succeeded": results,
			"failed":    failed,
		})
	},
}

func readEntityList(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open entity list %s", path)
	}
	defer file.Close()

	var entities []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entities = append(entities, line)
	}
	return entities, eris.Wrap(scanner.Err(), "read entity list")
}

// parseEntity interprets a list entry as a CIK when numeric and a
// ticker otherwise. Tickers are resolved through the SEC ticker map.
func parseEntity(ctx context.Context, client *edgar.Client, entity string) (int64, string, error) {
	if cik, err := strconv.ParseInt(entity, 10, 64); err == nil {
		return cik, "", nil
	}
	cik, err := client.CIKForTicker(ctx, entity)
	if err != nil {
		return 0, "", err
	}
	return cik, entity, nil
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "path to entity list, one CIK or ticker per line (required)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max concurrent entities (default from config)")
	batchCmd.Flags().BoolVar(&batchContinue, "continue-on-error", true, "record failures and keep going")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}
