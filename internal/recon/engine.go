package recon

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-recon/internal/edgar"
	"github.com/sells-group/edgar-recon/internal/model"
)

// DefaultCutoffYear is the earliest fiscal year considered; older
// disclosures predate consistent XBRL tagging.
const DefaultCutoffYear = 2014

// Options tunes the reconciliation engine.
type Options struct {
	CutoffYear int
}

// Engine reconciles filing records into canonical fact tables. It
// resolves each fiscal year through a fixed cascade: the metric's own
// concept, then ranked alternative concepts, then carry-forward from
// the nearest resolved year.
type Engine struct {
	provider edgar.Provider
	opts     Options
	log      *zap.Logger
}

// New creates an Engine. A zero cutoff year uses DefaultCutoffYear.
func New(provider edgar.Provider, opts Options) *Engine {
	if opts.CutoffYear == 0 {
		opts.CutoffYear = DefaultCutoffYear
	}
	return &Engine{
		provider: provider,
		opts:     opts,
		log:      zap.L().With(zap.String("component", "recon")),
	}
}

// Reconcile builds the fact table for one non-derived metric. The
// alternatives are tried in rank order for each year the primary
// concept cannot fill, always under the original metric's unit and
// period filters. Years no concept can fill are carried forward from
// the nearest resolved year. Years that remain unresolvable are
// absent from the table.
func (e *Engine) Reconcile(ctx context.Context, cik int64, metric model.Metric, years []int, alternatives []model.Concept) (model.FactTable, error) {
	if metric.IsDerived() {
		return nil, eris.Errorf("recon: metric %s is derived, not fetched", metric.ID)
	}

	table := make(model.FactTable)

	primary, err := e.eligibleFilings(ctx, cik, metric.Concept(), metric)
	if err != nil {
		return nil, err
	}
	for _, fy := range years {
		if rec, ok := selectForYear(primary, fy); ok {
			table[fy] = factFromRecord(rec, model.SourcePrimary)
		}
	}

	for _, fy := range years {
		if _, ok := table[fy]; ok {
			continue
		}
		for _, alt := range alternatives {
			recs, err := e.eligibleFilings(ctx, cik, alt, metric)
			if err != nil {
				return nil, err
			}
			rec, ok := selectForYear(recs, fy)
			if !ok {
				continue
			}
			table[fy] = factFromRecord(rec, model.SourceAlternative)
			e.log.Debug("year filled from alternative concept",
				zap.String("metric", metric.ID),
				zap.Int("fy", fy),
				zap.String("concept", alt.String()),
			)
			break
		}
	}

	e.carryForward(table, years)
	return table, nil
}

// Derive computes a derived metric from already-reconciled input
// tables: left minus the absolute value of right. A year where only
// one input resolved produces a fact without a value so the gap is
// visible; a year where neither resolved stays absent.
func (e *Engine) Derive(metric model.Metric, tables map[string]model.FactTable, years []int) (model.FactTable, error) {
	if !metric.IsDerived() {
		return nil, eris.Errorf("recon: metric %s has no derivation", metric.ID)
	}
	d := metric.Derive
	left, right := tables[d.Left], tables[d.Right]

	table := make(model.FactTable)
	for _, fy := range years {
		lf, lok := left[fy]
		rf, rok := right[fy]
		lok = lok && lf.HasValue
		rok = rok && rf.HasValue
		if !lok && !rok {
			continue
		}

		fact := model.CanonicalFact{
			FY:      fy,
			Concept: metric.Concept(),
			Unit:    metric.PreferredUnit(),
			Source:  model.SourceDerived,
		}
		if lok {
			fact.Inputs = append(fact.Inputs, d.Left)
		}
		if rok {
			fact.Inputs = append(fact.Inputs, d.Right)
		}
		if lok && rok {
			fact.Value = lf.Value - abs(rf.Value)
			fact.HasValue = true
		}
		table[fy] = fact
	}
	return table, nil
}

// ReconcileAll runs every metric in registry order. Derived metrics
// are declared after their inputs, so their tables are available by
// the time the derivation runs.
func (e *Engine) ReconcileAll(ctx context.Context, cik int64, metrics *model.Metrics, years []int, alternatives map[string][]model.Concept) (map[string]model.FactTable, error) {
	tables := make(map[string]model.FactTable, len(metrics.All()))
	for _, m := range metrics.All() {
		var (
			table model.FactTable
			err   error
		)
		if m.IsDerived() {
			table, err = e.Derive(m, tables, years)
		} else {
			table, err = e.Reconcile(ctx, cik, m, years, alternatives[m.ID])
		}
		if err != nil {
			return nil, eris.Wrapf(err, "recon: reconcile %s for CIK %d", m.ID, cik)
		}
		tables[m.ID] = table
	}
	return tables, nil
}

func (e *Engine) eligibleFilings(ctx context.Context, cik int64, concept model.Concept, metric model.Metric) ([]model.FilingRecord, error) {
	recs, err := e.provider.Filings(ctx, cik, concept)
	if err != nil {
		return nil, eris.Wrapf(err, "recon: fetch %s", concept)
	}
	return eligible(recs, metric, e.opts.CutoffYear), nil
}

// carryForward fills still-missing years by copying the value from
// the nearest resolved year. On equidistant candidates the earlier
// year wins. Carried facts never seed further carries.
func (e *Engine) carryForward(table model.FactTable, years []int) {
	resolved := make([]int, 0, len(table))
	for fy := range table {
		resolved = append(resolved, fy)
	}
	if len(resolved) == 0 {
		return
	}
	for i := 1; i < len(resolved); i++ {
		for j := i; j > 0 && resolved[j] < resolved[j-1]; j-- {
			resolved[j], resolved[j-1] = resolved[j-1], resolved[j]
		}
	}

	for _, fy := range years {
		if _, ok := table[fy]; ok {
			continue
		}
		src := resolved[0]
		for _, y := range resolved[1:] {
			if absInt(y-fy) < absInt(src-fy) {
				src = y
			}
		}
		from := table[src]
		table[fy] = model.CanonicalFact{
			FY:            fy,
			Value:         from.Value,
			HasValue:      from.HasValue,
			Concept:       from.Concept,
			Unit:          from.Unit,
			Source:        model.SourceCarried,
			CarriedFromFY: src,
		}
	}
}

func factFromRecord(rec model.FilingRecord, source model.SourceClass) model.CanonicalFact {
	return model.CanonicalFact{
		FY:       rec.FY,
		Value:    rec.Value,
		HasValue: rec.HasValue,
		Concept:  rec.Concept,
		Unit:     rec.Unit,
		Form:     rec.Form,
		Filed:    rec.Filed,
		Source:   source,
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
