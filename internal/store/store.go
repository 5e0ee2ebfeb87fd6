// Package store persists reconciliation runs and canonical facts.
// Two backends implement the same interface: SQLite for local runs
// and Postgres for shared deployments.
package store

import (
	"context"

	"github.com/sells-group/edgar-recon/internal/model"
)

// ResolvedCandidate is one persisted row of a concept resolution
// ranking.
type ResolvedCandidate struct {
	Target  model.Concept `json:"target"`
	Concept model.Concept `json:"concept"`
	Rank    int           `json:"rank"`
	Score   float64       `json:"score"`
	Scorer  string        `json:"scorer"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	CIK    int64           `json:"cik,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for reconciliation output.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, cik int64, ticker string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus, runErr string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Facts
	SaveFacts(ctx context.Context, runID string, cik int64, metric string, table model.FactTable) error
	FactsForRun(ctx context.Context, runID string) (map[string]model.FactTable, error)
	LatestFacts(ctx context.Context, cik int64, metric string) (model.FactTable, error)

	// Resolutions
	SaveResolutions(ctx context.Context, runID string, candidates []ResolvedCandidate) error
	ResolutionsForRun(ctx context.Context, runID string) ([]ResolvedCandidate, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
