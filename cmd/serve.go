package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-recon/internal/edgar"
	"github.com/sells-group/edgar-recon/internal/model"
	"github.com/sells-group/edgar-recon/internal/resolver"
	"github.com/sells-group/edgar-recon/internal/store"
	"github.com/sells-group/edgar-recon/internal/taxonomy"
)

var servePort int

// serverEnv bundles the long-lived collaborators the HTTP handlers
// share. The taxonomy is loaded once at startup.
type serverEnv struct {
	client *edgar.Client
	tax    *taxonomy.Store
	res    *resolver.Resolver
	store  store.Store
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for resolution and reconciliation",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

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

		env := &serverEnv{client: client, tax: ts, res: res, store: st}

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Post("/resolve", env.handleResolve)
		r.Post("/reconcile", env.handleReconcile)
		r.Get("/runs", env.handleListRuns)
		r.Get("/runs/{id}", env.handleGetRun)
		r.Get("/runs/{id}/facts", env.handleRunFacts)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			// The signal context is already cancelled; drain on a
			// fresh deadline so in-flight requests can finish.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

type entityRequest struct {
	CIK    int64  `json:"cik,omitempty"`
	Ticker string `json:"ticker,omitempty"`
}

func (env *serverEnv) handleResolve(w http.ResponseWriter, req *http.Request) {
	var body struct {
		entityRequest
		Concept string `json:"concept"`
		Scorer  string `json:"scorer,omitempty"`
		TopN    int    `json:"top_n,omitempty"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Concept == "" {
		writeError(w, http.StatusBadRequest, "concept is required")
		return
	}
	target := model.ParseConcept(body.Concept)

	ctx := req.Context()
	cik, err := resolveCIK(ctx, env.client, body.CIK, body.Ticker)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reported, err := env.client.ReportedConcepts(ctx, cik, cfg.Recon.CutoffYear)
	if err != nil {
		zap.L().Error("reported concepts", zap.Int64("cik", cik), zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to load reported concepts")
		return
	}

	topN := body.TopN
	if topN == 0 {
		topN = cfg.Resolve.TopN
	}

	res := env.res
	if body.Scorer != "" {
		res, err = initResolver(env.tax, body.Scorer)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, res.Resolve(target, reported, topN))
}

func (env *serverEnv) handleReconcile(w http.ResponseWriter, req *http.Request) {
	var body struct {
		entityRequest
		FromYear int    `json:"from_year,omitempty"`
		ToYear   int    `json:"to_year,omitempty"`
		Metrics  string `json:"metrics,omitempty"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := req.Context()
	cik, err := resolveCIK(ctx, env.client, body.CIK, body.Ticker)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics, err := selectMetrics(body.Metrics, "")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	years := yearRange(body.FromYear, body.ToYear)

	result, err := reconcileEntity(ctx, env.client, env.res, env.store, cik, body.Ticker, metrics, years)
	if err != nil {
		zap.L().Error("reconcile failed", zap.Int64("cik", cik), zap.Error(err))
		writeError(w, http.StatusBadGateway, "reconciliation failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (env *serverEnv) handleListRuns(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	filter := store.RunFilter{
		Status: model.RunStatus(q.Get("status")),
	}
	if cik, err := strconv.ParseInt(q.Get("cik"), 10, 64); err == nil {
		filter.CIK = cik
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	runs, err := env.store.ListRuns(req.Context(), filter)
	if err != nil {
		zap.L().Error("list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (env *serverEnv) handleGetRun(w http.ResponseWriter, req *http.Request) {
	run, err := env.store.GetRun(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (env *serverEnv) handleRunFacts(w http.ResponseWriter, req *http.Request) {
	tables, err := env.store.FactsForRun(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		zap.L().Error("facts for run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load facts")
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
