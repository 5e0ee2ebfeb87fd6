package recon

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edgar-recon/internal/model"
)

// fakeProvider serves canned filing records per concept.
type fakeProvider struct {
	records map[model.Concept][]model.FilingRecord
	err     error
	calls   []model.Concept
}

func (p *fakeProvider) Filings(_ context.Context, _ int64, concept model.Concept) ([]model.FilingRecord, error) {
	p.calls = append(p.calls, concept)
	if p.err != nil {
		return nil, p.err
	}
	return p.records[concept], nil
}

func usdRecord(concept string, fy int, value float64, form model.Form, filed string) model.FilingRecord {
	return model.FilingRecord{
		Concept:   model.GAAP(concept),
		Value:     value,
		HasValue:  true,
		Unit:      "USD",
		FY:        fy,
		Form:      form,
		Filed:     filed,
		Accession: filed + "-acc",
		Start:     "2020-01-01",
		End:       "2020-12-31",
	}
}

func revenueMetric() model.Metric {
	return model.Metric{ID: "Revenues", PeriodType: model.PeriodDuration}
}

func TestReconcile_PrimaryConceptWins(t *testing.T) {
	p := &fakeProvider{records: map[model.Concept][]model.FilingRecord{
		model.GAAP("Revenues"): {
			usdRecord("Revenues", 2020, 100, model.FormAnnual, "2021-02-01"),
			usdRecord("Revenues", 2021, 110, model.FormAnnual, "2022-02-01"),
		},
		model.GAAP("SalesRevenueNet"): {
			usdRecord("SalesRevenueNet", 2020, 999, model.FormAnnual, "2021-02-01"),
		},
	}}
	e := New(p, Options{})

	table, err := e.Reconcile(context.Background(), 1, revenueMetric(), []int{2020, 2021}, []model.Concept{model.GAAP("SalesRevenueNet")})
	require.NoError(t, err)
	assert.Equal(t, 100.0, table[2020].Value)
	assert.Equal(t, model.SourcePrimary, table[2020].Source)
	assert.Equal(t, model.GAAP("Revenues"), table[2020].Concept)
	assert.Equal(t, model.SourcePrimary, table[2021].Source)
}

func TestReconcile_AnnualBeatsQuarterly(t *testing.T) {
	p := &fakeProvider{records: map[model.Concept][]model.FilingRecord{
		model.GAAP("Revenues"): {
			usdRecord("Revenues", 2020, 25, model.FormQuarterly, "2021-05-01"),
			usdRecord("Revenues", 2020, 100, model.FormAnnual, "2021-02-01"),
		},
	}}
	e := New(p, Options{})

	table, err := e.Reconcile(context.Background(), 1, revenueMetric(), []int{2020}, nil)
	require.NoError(t, err)
	assert.Equal(t, 100.0, table[2020].Value)
	assert.Equal(t, model.FormAnnual, table[2020].Form)
}

func TestReconcile_LatestFiledWinsWithinForm(t *testing.T) {
	p := &fakeProvider{records: map[model.Concept][]model.FilingRecord{
		model.GAAP("Revenues"): {
			usdRecord("Revenues", 2020, 100, model.FormAnnual, "2021-02-01"),
			// An amended figure filed later supersedes the original.
			usdRecord("Revenues", 2020, 105, model.FormAnnual, "2021-06-15"),
		},
	}}
	e := New(p, Options{})

	table, err := e.Reconcile(context.Background(), 1, revenueMetric(), []int{2020}, nil)
	require.NoError(t, err)
	assert.Equal(t, 105.0, table[2020].Value)
}

func TestReconcile_AlternativesTriedInRankOrder(t *testing.T) {
	p := &fakeProvider{records: map[model.Concept][]model.FilingRecord{
		model.GAAP("RevenueFromContracts"): {
			usdRecord("RevenueFromContracts", 2020, 90, model.FormAnnual, "2021-02-01"),
		},
		model.GAAP("SalesRevenueNet"): {
			usdRecord("SalesRevenueNet", 2020, 80, model.FormAnnual, "2021-02-01"),
		},
	}}
	e := New(p, Options{})

	alts := []model.Concept{model.GAAP("RevenueFromContracts"), model.GAAP("SalesRevenueNet")}
	table, err := e.Reconcile(context.Background(), 1, revenueMetric(), []int{2020}, alts)
	require.NoError(t, err)
	assert.Equal(t, 90.0, table[2020].Value)
	assert.Equal(t, model.SourceAlternative, table[2020].Source)
	assert.Equal(t, model.GAAP("RevenueFromContracts"), table[2020].Concept)
}

func TestReconcile_AlternativesKeepMetricFilters(t *testing.T) {
	// The alternative reports in shares, not the metric's USD, so it
	// cannot fill the year.
	alt := usdRecord("SharesOutstanding", 2020, 500, model.FormAnnual, "2021-02-01")
	alt.Unit = "shares"
	p := &fakeProvider{records: map[model.Concept][]model.FilingRecord{
		model.GAAP("SharesOutstanding"): {alt},
	}}
	e := New(p, Options{})

	table, err := e.Reconcile(context.Background(), 1, revenueMetric(), []int{2020}, []model.Concept{model.GAAP("SharesOutstanding")})
	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestReconcile_CutoffYearExcludesOldFilings(t *testing.T) {
	p := &fakeProvider{records: map[model.Concept][]model.FilingRecord{
		model.GAAP("Revenues"): {
			usdRecord("Revenues", 2012, 50, model.FormAnnual, "2013-02-01"),
			usdRecord("Revenues", 2015, 70, model.FormAnnual, "2016-02-01"),
		},
	}}
	e := New(p, Options{})

	table, err := e.Reconcile(context.Background(), 1, revenueMetric(), []int{2012, 2015}, nil)
	require.NoError(t, err)
	_, has2012 := table[2012]
	if has2012 {
		// 2012 can only be a carry from 2015, never a primary fact.
		assert.Equal(t, model.SourceCarried, table[2012].Source)
	}
	assert.Equal(t, model.SourcePrimary, table[2015].Source)
}

func TestReconcile_CarryForwardNearestYear(t *testing.T) {
	p := &fakeProvider{records: map[model.Concept][]model.FilingRecord{
		model.GAAP("Revenues"): {
			usdRecord("Revenues", 2018, 80, model.FormAnnual, "2019-02-01"),
			usdRecord("Revenues", 2021, 110, model.FormAnnual, "2022-02-01"),
		},
	}}
	e := New(p, Options{})

	table, err := e.Reconcile(context.Background(), 1, revenueMetric(), []int{2018, 2019, 2020, 2021}, nil)
	require.NoError(t, err)

	assert.Equal(t, model.SourceCarried, table[2019].Source)
	assert.Equal(t, 2018, table[2019].CarriedFromFY)
	assert.Equal(t, 80.0, table[2019].Value)

	assert.Equal(t, model.SourceCarried, table[2020].Source)
	assert.Equal(t, 2021, table[2020].CarriedFromFY)
	assert.Equal(t, 110.0, table[2020].Value)
}

func TestReconcile_CarryForwardTieGoesToEarlierYear(t *testing.T) {
	p := &fakeProvider{records: map[model.Concept][]model.FilingRecord{
		model.GAAP("Revenues"): {
			usdRecord("Revenues", 2018, 80, model.FormAnnual, "2019-02-01"),
			usdRecord("Revenues", 2020, 100, model.FormAnnual, "2021-02-01"),
		},
	}}
	e := New(p, Options{})

	table, err := e.Reconcile(context.Background(), 1, revenueMetric(), []int{2018, 2019, 2020}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2018, table[2019].CarriedFromFY)
	assert.Equal(t, 80.0, table[2019].Value)
}

func TestReconcile_NoEvidenceYieldsEmptyTable(t *testing.T) {
	e := New(&fakeProvider{}, Options{})
	table, err := e.Reconcile(context.Background(), 1, revenueMetric(), []int{2020, 2021}, nil)
	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestReconcile_DerivedMetricRejected(t *testing.T) {
	e := New(&fakeProvider{}, Options{})
	m := model.Metric{ID: "FreeCashFlow", Derive: &model.Derivation{Left: "A", Right: "B"}}
	_, err := e.Reconcile(context.Background(), 1, m, []int{2020}, nil)
	assert.Error(t, err)
}

func TestReconcile_ProviderErrorPropagates(t *testing.T) {
	e := New(&fakeProvider{err: errors.New("edgar down")}, Options{})
	_, err := e.Reconcile(context.Background(), 1, revenueMetric(), []int{2020}, nil)
	assert.Error(t, err)
}

func freeCashFlowMetric() model.Metric {
	return model.Metric{ID: "FreeCashFlow", PeriodType: model.PeriodDuration, Derive: &model.Derivation{
		Left:  "NetCashProvidedByUsedInOperatingActivities",
		Right: "PaymentsToAcquirePropertyPlantAndEquipment",
	}}
}

func TestDerive_SubtractsAbsoluteCapex(t *testing.T) {
	e := New(&fakeProvider{}, Options{})
	tables := map[string]model.FactTable{
		"NetCashProvidedByUsedInOperatingActivities": {
			2020: {FY: 2020, Value: 500, HasValue: true, Unit: "USD"},
		},
		"PaymentsToAcquirePropertyPlantAndEquipment": {
			// Capital expenditure reported as a negative outflow.
			2020: {FY: 2020, Value: -120, HasValue: true, Unit: "USD"},
		},
	}

	table, err := e.Derive(freeCashFlowMetric(), tables, []int{2020})
	require.NoError(t, err)
	fact := table[2020]
	assert.True(t, fact.HasValue)
	assert.Equal(t, 380.0, fact.Value)
	assert.Equal(t, model.SourceDerived, fact.Source)
	assert.ElementsMatch(t, []string{
		"NetCashProvidedByUsedInOperatingActivities",
		"PaymentsToAcquirePropertyPlantAndEquipment",
	}, fact.Inputs)
}

func TestDerive_OneInputMissingYieldsValuelessFact(t *testing.T) {
	e := New(&fakeProvider{}, Options{})
	tables := map[string]model.FactTable{
		"NetCashProvidedByUsedInOperatingActivities": {
			2020: {FY: 2020, Value: 500, HasValue: true, Unit: "USD"},
		},
	}

	table, err := e.Derive(freeCashFlowMetric(), tables, []int{2020})
	require.NoError(t, err)
	fact, ok := table[2020]
	require.True(t, ok)
	assert.False(t, fact.HasValue)
	assert.Equal(t, []string{"NetCashProvidedByUsedInOperatingActivities"}, fact.Inputs)
}

func TestDerive_NoInputsLeavesYearAbsent(t *testing.T) {
	e := New(&fakeProvider{}, Options{})
	table, err := e.Derive(freeCashFlowMetric(), map[string]model.FactTable{}, []int{2020})
	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestDerive_NonDerivedMetricRejected(t *testing.T) {
	e := New(&fakeProvider{}, Options{})
	_, err := e.Derive(revenueMetric(), nil, []int{2020})
	assert.Error(t, err)
}

func TestReconcileAll_DerivedUsesReconciledInputs(t *testing.T) {
	p := &fakeProvider{records: map[model.Concept][]model.FilingRecord{
		model.GAAP("Ocf"):   {usdRecord("Ocf", 2020, 300, model.FormAnnual, "2021-02-01")},
		model.GAAP("Capex"): {usdRecord("Capex", 2020, 100, model.FormAnnual, "2021-02-01")},
	}}
	e := New(p, Options{})

	metrics := model.NewMetrics([]model.Metric{
		{ID: "Ocf", PeriodType: model.PeriodDuration},
		{ID: "Capex", PeriodType: model.PeriodDuration},
		{ID: "Fcf", PeriodType: model.PeriodDuration, Derive: &model.Derivation{Left: "Ocf", Right: "Capex"}},
	})

	tables, err := e.ReconcileAll(context.Background(), 1, metrics, []int{2020}, nil)
	require.NoError(t, err)
	require.Len(t, tables, 3)
	assert.Equal(t, 200.0, tables["Fcf"][2020].Value)
}

func TestReconcileAll_ErrorNamesMetric(t *testing.T) {
	e := New(&fakeProvider{err: errors.New("boom")}, Options{})
	metrics := model.NewMetrics([]model.Metric{{ID: "Revenues", PeriodType: model.PeriodDuration}})
	_, err := e.ReconcileAll(context.Background(), 1, metrics, []int{2020}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Revenues")
}
