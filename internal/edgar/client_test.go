package edgar

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edgar-recon/internal/fetcher"
	"github.com/sells-group/edgar-recon/internal/model"
)

// mapFetcher serves canned bodies by URL; everything else is a 404.
type mapFetcher struct {
	bodies map[string]string
	hits   map[string]int
}

func (f *mapFetcher) Download(_ context.Context, url string) (io.ReadCloser, error) {
	if f.hits == nil {
		f.hits = make(map[string]int)
	}
	f.hits[url]++
	body, ok := f.bodies[url]
	if !ok {
		return nil, &fetcher.NotFoundError{URL: url}
	}
	return io.NopCloser(bytes.NewReader([]byte(body))), nil
}

const revenuesConceptJSON = `{
  "cik": 320193,
  "tag": "Revenues",
  "units": {
    "USD": [
      {"start": "2019-10-01", "end": "2020-09-30", "val": 274515000000, "accn": "0000320193-20-000096", "fy": 2020, "fp": "FY", "form": "10-K", "filed": "2020-10-30"},
      {"start": "2020-10-01", "end": "2020-12-31", "val": null, "accn": "0000320193-21-000010", "fy": 2021, "fp": "Q1", "form": "10-Q", "filed": "2021-01-28"}
    ]
  }
}`

func TestClient_Filings(t *testing.T) {
	url := "https://data.test/api/xbrl/companyconcept/CIK0000320193/us-gaap/Revenues.json"
	f := &mapFetcher{bodies: map[string]string{url: revenuesConceptJSON}}
	c := NewClient(f, "https://data.test", "")

	recs, err := c.Filings(context.Background(), 320193, model.GAAP("Revenues"))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, model.GAAP("Revenues"), recs[0].Concept)
	assert.Equal(t, "USD", recs[0].Unit)
	assert.Equal(t, 2020, recs[0].FY)
	assert.Equal(t, model.FormAnnual, recs[0].Form)
	assert.Equal(t, 274515000000.0, recs[0].Value)
	assert.True(t, recs[0].HasValue)
	assert.Equal(t, "2019-10-01", recs[0].Start)

	// The null value row survives as a record without a value.
	assert.False(t, recs[1].HasValue)
	assert.Equal(t, model.FormQuarterly, recs[1].Form)
}

func TestClient_FilingsUnusedConceptIsEmpty(t *testing.T) {
	c := NewClient(&mapFetcher{}, "https://data.test", "")
	recs, err := c.Filings(context.Background(), 320193, model.GAAP("ObscureConcept"))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestClient_FilingsDecodeError(t *testing.T) {
	url := "https://data.test/api/xbrl/companyconcept/CIK0000000001/us-gaap/Revenues.json"
	f := &mapFetcher{bodies: map[string]string{url: "not json"}}
	c := NewClient(f, "https://data.test", "")

	_, err := c.Filings(context.Background(), 1, model.GAAP("Revenues"))
	assert.Error(t, err)
}

const companyFactsJSON = `{
  "cik": 320193,
  "entityName": "Apple Inc.",
  "facts": {
    "dei": {
      "EntityCommonStockSharesOutstanding": {
        "units": {"shares": [{"end": "2020-10-16", "val": 1, "fy": 2020, "form": "10-K", "filed": "2020-10-30"}]}
      }
    },
    "us-gaap": {
      "Revenues": {
        "units": {"USD": [{"end": "2020-09-30", "val": 1, "fy": 2020, "form": "10-K", "filed": "2020-10-30"}]}
      },
      "LegacyConcept": {
        "units": {"USD": [{"end": "2010-09-30", "val": 1, "fy": 2010, "form": "10-K", "filed": "2010-10-30"}]}
      }
    }
  }
}`

func TestClient_ReportedConcepts(t *testing.T) {
	url := "https://data.test/api/xbrl/companyfacts/CIK0000320193.json"
	f := &mapFetcher{bodies: map[string]string{url: companyFactsJSON}}
	c := NewClient(f, "https://data.test", "")

	set, err := c.ReportedConcepts(context.Background(), 320193, 2014)
	require.NoError(t, err)

	assert.True(t, set.Has(model.GAAP("Revenues")))
	// Concepts last used before the cutoff are excluded.
	assert.False(t, set.Has(model.GAAP("LegacyConcept")))
	// Only the us-gaap namespace participates.
	assert.Len(t, set, 1)
}

func TestClient_ReportedConceptsUnknownEntity(t *testing.T) {
	c := NewClient(&mapFetcher{}, "https://data.test", "")
	set, err := c.ReportedConcepts(context.Background(), 99, 2014)
	require.NoError(t, err)
	assert.Empty(t, set)
}

const tickerMapJSON = `{
  "0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."},
  "1": {"cik_str": 789019, "ticker": "MSFT", "title": "MICROSOFT CORP"}
}`

func TestClient_CIKForTicker(t *testing.T) {
	url := "https://files.test/files/company_tickers.json"
	f := &mapFetcher{bodies: map[string]string{url: tickerMapJSON}}
	c := NewClient(f, "", "https://files.test")

	cik, err := c.CIKForTicker(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, int64(320193), cik)

	cik, err = c.CIKForTicker(context.Background(), " MSFT ")
	require.NoError(t, err)
	assert.Equal(t, int64(789019), cik)

	_, err = c.CIKForTicker(context.Background(), "ZZZZ")
	assert.Error(t, err)
}

func TestNewClient_DefaultHosts(t *testing.T) {
	c := NewClient(&mapFetcher{}, "", "")
	assert.Equal(t, DefaultDataBaseURL, c.dataBaseURL)
	assert.Equal(t, DefaultFilesBaseURL, c.filesBaseURL)
}
