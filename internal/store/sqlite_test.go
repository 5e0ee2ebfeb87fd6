package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edgar-recon/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTable() model.FactTable {
	return model.FactTable{
		2020: {
			FY: 2020, Value: 100, HasValue: true,
			Concept: model.GAAP("Revenues"), Unit: "USD",
			Form: model.FormAnnual, Filed: "2021-02-01",
			Source: model.SourcePrimary,
		},
		2021: {
			FY: 2021, Value: 100, HasValue: true,
			Concept: model.GAAP("Revenues"), Unit: "USD",
			Source: model.SourceCarried, CarriedFromFY: 2020,
		},
		2022: {
			FY: 2022, HasValue: false,
			Concept: model.GAAP("FreeCashFlow"), Unit: "USD",
			Source: model.SourceDerived,
			Inputs: []string{"NetCashProvidedByUsedInOperatingActivities"},
		},
	}
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, 320193, "AAPL")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning, ""))
	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusFailed, "edgar unreachable"))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "edgar unreachable", got.Error)
	assert.Equal(t, int64(320193), got.CIK)
	assert.Equal(t, "AAPL", got.Ticker)
}

func TestSQLiteStore_UpdateUnknownRun(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateRunStatus(context.Background(), "no-such-run", model.RunStatusComplete, "")
	assert.Error(t, err)
}

func TestSQLiteStore_GetUnknownRun(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun(context.Background(), "no-such-run")
	assert.Error(t, err)
}

func TestSQLiteStore_ListRunsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r1, err := s.CreateRun(ctx, 1, "AAA")
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, 2, "BBB")
	require.NoError(t, err)
	require.NoError(t, s.UpdateRunStatus(ctx, r1.ID, model.RunStatusComplete, ""))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	complete, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, r1.ID, complete[0].ID)

	byCIK, err := s.ListRuns(ctx, RunFilter{CIK: 2})
	require.NoError(t, err)
	require.Len(t, byCIK, 1)
	assert.Equal(t, int64(2), byCIK[0].CIK)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteStore_SaveAndLoadFacts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, 320193, "AAPL")
	require.NoError(t, err)
	require.NoError(t, s.SaveFacts(ctx, run.ID, 320193, "Revenues", sampleTable()))

	tables, err := s.FactsForRun(ctx, run.ID)
	require.NoError(t, err)
	table := tables["Revenues"]
	require.Len(t, table, 3)

	primary := table[2020]
	assert.True(t, primary.HasValue)
	assert.Equal(t, 100.0, primary.Value)
	assert.Equal(t, model.GAAP("Revenues"), primary.Concept)
	assert.Equal(t, model.FormAnnual, primary.Form)
	assert.Equal(t, "2021-02-01", primary.Filed)

	carried := table[2021]
	assert.Equal(t, model.SourceCarried, carried.Source)
	assert.Equal(t, 2020, carried.CarriedFromFY)

	derived := table[2022]
	assert.False(t, derived.HasValue)
	assert.Equal(t, []string{"NetCashProvidedByUsedInOperatingActivities"}, derived.Inputs)
}

func TestSQLiteStore_SaveFactsUpserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, 1, "")
	require.NoError(t, err)

	table := model.FactTable{2020: {FY: 2020, Value: 100, HasValue: true, Concept: model.GAAP("Revenues"), Unit: "USD", Source: model.SourcePrimary}}
	require.NoError(t, s.SaveFacts(ctx, run.ID, 1, "Revenues", table))

	table[2020] = model.CanonicalFact{FY: 2020, Value: 120, HasValue: true, Concept: model.GAAP("Revenues"), Unit: "USD", Source: model.SourcePrimary}
	require.NoError(t, s.SaveFacts(ctx, run.ID, 1, "Revenues", table))

	tables, err := s.FactsForRun(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, tables["Revenues"], 1)
	assert.Equal(t, 120.0, tables["Revenues"][2020].Value)
}

func TestSQLiteStore_LatestFacts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older, err := s.CreateRun(ctx, 1, "")
	require.NoError(t, err)
	table := model.FactTable{2020: {FY: 2020, Value: 100, HasValue: true, Concept: model.GAAP("Revenues"), Unit: "USD", Source: model.SourcePrimary}}
	require.NoError(t, s.SaveFacts(ctx, older.ID, 1, "Revenues", table))

	newer, err := s.CreateRun(ctx, 1, "")
	require.NoError(t, err)
	table[2020] = model.CanonicalFact{FY: 2020, Value: 150, HasValue: true, Concept: model.GAAP("Revenues"), Unit: "USD", Source: model.SourcePrimary}
	require.NoError(t, s.SaveFacts(ctx, newer.ID, 1, "Revenues", table))

	latest, err := s.LatestFacts(ctx, 1, "Revenues")
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, 150.0, latest[2020].Value)
}

func TestSQLiteStore_Resolutions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, 1, "")
	require.NoError(t, err)

	candidates := []ResolvedCandidate{
		{Target: model.GAAP("Revenues"), Concept: model.GAAP("RevenueFromContracts"), Rank: 1, Score: 0.91, Scorer: "textual"},
		{Target: model.GAAP("Revenues"), Concept: model.GAAP("SalesRevenueNet"), Rank: 2, Score: 0.78, Scorer: "textual"},
	}
	require.NoError(t, s.SaveResolutions(ctx, run.ID, candidates))

	got, err := s.ResolutionsForRun(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.GAAP("RevenueFromContracts"), got[0].Concept)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, "textual", got[1].Scorer)
}
