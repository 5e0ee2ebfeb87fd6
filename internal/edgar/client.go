// Package edgar fetches XBRL company facts from the SEC EDGAR JSON
// APIs and exposes them as filing records.
package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-recon/internal/fetcher"
	"github.com/sells-group/edgar-recon/internal/model"
)

// DefaultDataBaseURL serves the XBRL fact APIs.
const DefaultDataBaseURL = "https://data.sec.gov"

// DefaultFilesBaseURL serves the ticker map.
const DefaultFilesBaseURL = "https://www.sec.gov"

// Provider fetches all filing records for one (entity, concept) pair.
// An empty slice means the entity never used the concept; that is a
// normal result, not an error.
type Provider interface {
	Filings(ctx context.Context, cik int64, concept model.Concept) ([]model.FilingRecord, error)
}

// Client talks to the EDGAR JSON endpoints.
type Client struct {
	fetcher      fetcher.Fetcher
	dataBaseURL  string
	filesBaseURL string
}

// NewClient creates a Client. Empty base URLs use the public hosts.
func NewClient(f fetcher.Fetcher, dataBaseURL, filesBaseURL string) *Client {
	if dataBaseURL == "" {
		dataBaseURL = DefaultDataBaseURL
	}
	if filesBaseURL == "" {
		filesBaseURL = DefaultFilesBaseURL
	}
	return &Client{fetcher: f, dataBaseURL: dataBaseURL, filesBaseURL: filesBaseURL}
}

// conceptDoc is the companyconcept JSON-LD document: one concept's
// values grouped by unit of measure.
type conceptDoc struct {
	CIK   int64                  `json:"cik"`
	Tag   string                 `json:"tag"`
	Units map[string][]factValue `json:"units"`
}

// factsDoc is the companyfacts JSON-LD document: every concept the
// entity ever disclosed, grouped by namespace.
type factsDoc struct {
	CIK        int64                             `json:"cik"`
	EntityName string                            `json:"entityName"`
	Facts      map[string]map[string]conceptNode `json:"facts"`
}

type conceptNode struct {
	Label       string                 `json:"label"`
	Description string                 `json:"description"`
	Units       map[string][]factValue `json:"units"`
}

// factValue is a single data point as EDGAR serializes it.
type factValue struct {
	Start string       `json:"start,omitempty"`
	End   string       `json:"end"`
	Val   *json.Number `json:"val"`
	Accn  string       `json:"accn"`
	FY    int          `json:"fy"`
	FP    string       `json:"fp"`
	Form  string       `json:"form"`
	Filed string       `json:"filed"`
}

// Filings implements Provider: all records across all units for one
// (entity, concept) pair. A 404 from EDGAR means the entity never
// used the concept and yields an empty slice.
func (c *Client) Filings(ctx context.Context, cik int64, concept model.Concept) ([]model.FilingRecord, error) {
	url := fmt.Sprintf("%s/api/xbrl/companyconcept/CIK%010d/%s/%s.json",
		c.dataBaseURL, cik, concept.Namespace, concept.Name)

	var doc conceptDoc
	if err := c.getJSON(ctx, url, &doc); err != nil {
		var nf *fetcher.NotFoundError
		if eris.As(err, &nf) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "edgar: fetch concept %s for CIK %d", concept, cik)
	}

	var records []model.FilingRecord
	for unit, values := range doc.Units {
		for _, v := range values {
			rec := model.FilingRecord{
				Concept:   concept,
				Unit:      unit,
				FY:        v.FY,
				FP:        v.FP,
				Form:      model.Form(v.Form),
				Filed:     v.Filed,
				Accession: v.Accn,
				Start:     v.Start,
				End:       v.End,
			}
			if v.Val != nil {
				if f, err := v.Val.Float64(); err == nil {
					rec.Value = f
					rec.HasValue = true
				}
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

// ReportedConcepts returns the us-gaap concepts the entity used in
// any disclosure with a fiscal year at or after the cutoff.
func (c *Client) ReportedConcepts(ctx context.Context, cik int64, cutoffYear int) (model.ConceptSet, error) {
	url := fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%010d.json", c.dataBaseURL, cik)

	var doc factsDoc
	if err := c.getJSON(ctx, url, &doc); err != nil {
		var nf *fetcher.NotFoundError
		if eris.As(err, &nf) {
			return model.ConceptSet{}, nil
		}
		return nil, eris.Wrapf(err, "edgar: fetch company facts for CIK %d", cik)
	}

	set := make(model.ConceptSet)
	for name, node := range doc.Facts[model.GAAPNamespace] {
		for _, values := range node.Units {
			used := false
			for _, v := range values {
				if v.FY >= cutoffYear {
					used = true
					break
				}
			}
			if used {
				set.Add(model.GAAP(name))
				break
			}
		}
	}

	zap.L().Debug("edgar: reported concept set loaded",
		zap.Int64("cik", cik),
		zap.Int("concepts", len(set)),
	)
	return set, nil
}

// tickerEntry is one row of the SEC ticker map.
type tickerEntry struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// CIKForTicker resolves a ticker symbol to its CIK.
func (c *Client) CIKForTicker(ctx context.Context, ticker string) (int64, error) {
	url := c.filesBaseURL + "/files/company_tickers.json"

	var entries map[string]tickerEntry
	if err := c.getJSON(ctx, url, &entries); err != nil {
		return 0, eris.Wrap(err, "edgar: fetch ticker map")
	}

	want := strings.ToUpper(strings.TrimSpace(ticker))
	for _, e := range entries {
		if strings.ToUpper(e.Ticker) == want {
			return e.CIK, nil
		}
	}
	return 0, eris.Errorf("edgar: ticker %q not found", ticker)
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	rc, err := c.fetcher.Download(ctx, url)
	if err != nil {
		return err
	}
	defer rc.Close() //nolint:errcheck

	if err := json.NewDecoder(rc).Decode(out); err != nil {
		return eris.Wrapf(err, "edgar: decode %s", url)
	}
	return nil
}
