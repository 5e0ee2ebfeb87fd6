package model

// DefaultUnit is the unit assumed for metrics without an override.
const DefaultUnit = "USD"

// Derivation describes how a derived metric is computed from two
// already-reconciled metrics: Left minus the absolute value of Right.
type Derivation struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Metric is a target financial metric to reconcile. The ID doubles as
// the canonical us-gaap concept name for non-derived metrics.
type Metric struct {
	ID         string      `json:"id"`
	PeriodType PeriodType  `json:"period_type"`
	Unit       string      `json:"unit,omitempty"` // override; empty means DefaultUnit
	Derive     *Derivation `json:"derive,omitempty"`
}

// Concept returns the metric's canonical taxonomy concept.
func (m Metric) Concept() Concept {
	return GAAP(m.ID)
}

// PreferredUnit resolves the unit filter for this metric.
func (m Metric) PreferredUnit() string {
	if m.Unit != "" {
		return m.Unit
	}
	return DefaultUnit
}

// IsDerived reports whether the metric is computed from other metrics
// rather than fetched from filings.
func (m Metric) IsDerived() bool {
	return m.Derive != nil
}

// Metrics is an ordered metric registry with name lookup.
type Metrics struct {
	list []Metric
	byID map[string]Metric
}

// NewMetrics builds a registry preserving declaration order.
func NewMetrics(list []Metric) *Metrics {
	m := &Metrics{list: list, byID: make(map[string]Metric, len(list))}
	for _, mt := range list {
		m.byID[mt.ID] = mt
	}
	return m
}

// Get returns the metric with the given ID.
func (m *Metrics) Get(id string) (Metric, bool) {
	mt, ok := m.byID[id]
	return mt, ok
}

// All returns the metrics in declaration order. Derived metrics come
// after their inputs so reconciliation can run front to back.
func (m *Metrics) All() []Metric {
	return m.list
}

// Base returns the non-derived metrics in declaration order.
func (m *Metrics) Base() []Metric {
	out := make([]Metric, 0, len(m.list))
	for _, mt := range m.list {
		if !mt.IsDerived() {
			out = append(out, mt)
		}
	}
	return out
}

// DefaultMetrics is the standard registry of reconciled metrics and
// their expected period types and units.
func DefaultMetrics() *Metrics {
	return NewMetrics([]Metric{
		{ID: "Revenues", PeriodType: PeriodDuration},
		{ID: "NetIncomeLoss", PeriodType: PeriodDuration},
		{ID: "EarningsPerShareBasic", PeriodType: PeriodDuration, Unit: "USD/shares"},
		{ID: "EarningsPerShareDiluted", PeriodType: PeriodDuration, Unit: "USD/shares"},
		{ID: "OperatingIncomeLoss", PeriodType: PeriodDuration},
		{ID: "GrossProfit", PeriodType: PeriodDuration},
		{ID: "ResearchAndDevelopmentExpense", PeriodType: PeriodDuration},
		{ID: "SellingGeneralAndAdministrativeExpense", PeriodType: PeriodDuration},
		{ID: "Assets", PeriodType: PeriodInstant},
		{ID: "Liabilities", PeriodType: PeriodInstant},
		{ID: "StockholdersEquity", PeriodType: PeriodInstant},
		{ID: "CashAndCashEquivalentsAtCarryingValue", PeriodType: PeriodInstant},
		{ID: "NetCashProvidedByUsedInOperatingActivities", PeriodType: PeriodDuration},
		{ID: "PaymentsToAcquirePropertyPlantAndEquipment", PeriodType: PeriodDuration},
		{ID: "LongTermDebt", PeriodType: PeriodInstant},
		{ID: "ShortTermInvestments", PeriodType: PeriodInstant},
		{ID: "CostOfRevenue", PeriodType: PeriodDuration},
		{ID: "OperatingExpenses", PeriodType: PeriodDuration},
		{ID: "IncomeTaxExpenseBenefit", PeriodType: PeriodDuration},
		{ID: "AccountsReceivableNetCurrent", PeriodType: PeriodInstant},
		{ID: "FreeCashFlow", PeriodType: PeriodDuration, Derive: &Derivation{
			Left:  "NetCashProvidedByUsedInOperatingActivities",
			Right: "PaymentsToAcquirePropertyPlantAndEquipment",
		}},
	})
}
