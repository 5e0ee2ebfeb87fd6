// Package recon reconciles EDGAR filing records into one canonical
// value per metric per fiscal year, falling back through alternative
// concepts, carry-forward, and derivation when the primary concept is
// silent.
package recon

import (
	"github.com/sells-group/edgar-recon/internal/model"
)

// eligible filters raw filing records down to the ones a metric may
// draw from: recognized form, fiscal year at or after the cutoff,
// the metric's unit, a present value, and a period type matching the
// metric. Records whose period type cannot be determined are
// excluded, never guessed.
func eligible(records []model.FilingRecord, metric model.Metric, cutoffYear int) []model.FilingRecord {
	var out []model.FilingRecord
	for _, rec := range records {
		if !rec.HasValue {
			continue
		}
		if !recognizedForm(rec.Form) {
			continue
		}
		if rec.FY < cutoffYear {
			continue
		}
		if rec.Unit != metric.PreferredUnit() {
			continue
		}
		if pt, ok := rec.PeriodType(); !ok || pt != metric.PeriodType {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func recognizedForm(f model.Form) bool {
	for _, r := range model.RecognizedForms {
		if f == r {
			return true
		}
	}
	return false
}

// selectForYear picks the canonical record for one fiscal year:
// 10-K filings beat 10-Q filings, and within a form the latest filed
// record wins. The accession number breaks exact filed-date ties so
// the choice is deterministic.
func selectForYear(records []model.FilingRecord, fy int) (model.FilingRecord, bool) {
	for _, form := range model.RecognizedForms {
		var best model.FilingRecord
		found := false
		for _, rec := range records {
			if rec.FY != fy || rec.Form != form {
				continue
			}
			if !found || laterFiling(rec, best) {
				best = rec
				found = true
			}
		}
		if found {
			return best, true
		}
	}
	return model.FilingRecord{}, false
}

func laterFiling(a, b model.FilingRecord) bool {
	if a.Filed != b.Filed {
		return a.Filed > b.Filed
	}
	return a.Accession > b.Accession
}
