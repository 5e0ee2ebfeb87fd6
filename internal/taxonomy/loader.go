package taxonomy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-recon/internal/fetcher"
	"github.com/sells-group/edgar-recon/internal/model"
)

// DefaultBaseURL is the FASB host serving US-GAAP taxonomy releases.
const DefaultBaseURL = "https://xbrl.fasb.org"

// statementSections are the financial-statement presentation linkbases
// loaded as individual networks alongside the entry-point linkbases.
var statementSections = []string{"is", "bs", "cf", "eq", "ci"}

// xlinkLabel is a label or documentation element from a label linkbase.
type xlinkLabel struct {
	Role  string `xml:"http://www.w3.org/1999/xlink role,attr"`
	Label string `xml:"http://www.w3.org/1999/xlink label,attr"`
	Text  string `xml:",chardata"`
}

// xlinkLoc maps an arc locator label to a concept href.
type xlinkLoc struct {
	Label string `xml:"http://www.w3.org/1999/xlink label,attr"`
	Href  string `xml:"http://www.w3.org/1999/xlink href,attr"`
}

// xlinkArc is one parent→child presentation arc.
type xlinkArc struct {
	From string `xml:"http://www.w3.org/1999/xlink from,attr"`
	To   string `xml:"http://www.w3.org/1999/xlink to,attr"`
}

// Loader fetches and assembles a taxonomy Store, trying each version
// in preference order until one loads.
type Loader struct {
	fetcher  fetcher.Fetcher
	baseURL  string
	versions []string
}

// NewLoader creates a Loader. Versions are tried first to last.
func NewLoader(f fetcher.Fetcher, baseURL string, versions []string) *Loader {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Loader{fetcher: f, baseURL: baseURL, versions: versions}
}

// Load returns the first loadable taxonomy version, or ErrUnavailable
// when the whole preference list is exhausted.
func (l *Loader) Load(ctx context.Context) (*Store, error) {
	log := zap.L().With(zap.String("component", "taxonomy_loader"))

	for _, yr := range l.versions {
		store, err := l.loadVersion(ctx, yr)
		if err != nil {
			log.Warn("taxonomy version not loadable, trying next",
				zap.String("version", yr),
				zap.Error(err),
			)
			continue
		}
		log.Info("taxonomy loaded",
			zap.String("version", yr),
			zap.Int("concepts", len(store.texts)),
			zap.Int("networks", len(store.networks)),
		)
		return store, nil
	}
	return nil, eris.Wrapf(ErrUnavailable, "tried versions %v", l.versions)
}

func (l *Loader) loadVersion(ctx context.Context, yr string) (*Store, error) {
	base := fmt.Sprintf("%s/us-gaap/%s/elts", l.baseURL, yr)

	texts, err := l.loadTexts(ctx, base, yr)
	if err != nil {
		return nil, err
	}

	// Presentation linkbases: the two entry-point files plus the five
	// statement sections. A single missing file is tolerated; the
	// remaining networks still load.
	files := map[string]string{
		"ent":    fmt.Sprintf("%s/us-gaap-ent-pre-%s.xml", base, yr),
		"depcon": fmt.Sprintf("%s/us-gaap-depcon-pre-%s.xml", base, yr),
	}
	for _, sec := range statementSections {
		files["stm-"+sec] = fmt.Sprintf("%s/us-gaap-stm-%s-pre-%s.xml", base, sec, yr)
	}

	edges := make(map[string][]Edge, len(files))
	for name, url := range files {
		es, err := l.loadPresentation(ctx, url)
		if err != nil {
			zap.L().Debug("presentation linkbase skipped",
				zap.String("network", name),
				zap.Error(err),
			)
			continue
		}
		edges[name] = es
	}
	if len(edges) == 0 {
		return nil, eris.Errorf("taxonomy: no presentation networks for %s", yr)
	}

	return NewStore(yr, texts, edges), nil
}

// loadTexts builds label+documentation text per concept. Standard
// labels and documentation strings for the same concept are joined
// with a space, label first.
func (l *Loader) loadTexts(ctx context.Context, base, yr string) (map[model.Concept]string, error) {
	parts := make(map[model.Concept][]string)

	load := func(url, roleSuffix string) error {
		body, err := l.download(ctx, url)
		if err != nil {
			return err
		}
		labels, err := fetcher.DecodeElements[xlinkLabel](bytes.NewReader(body), "label")
		if err != nil {
			return eris.Wrapf(err, "taxonomy: parse %s", url)
		}
		for _, lb := range labels {
			if !strings.HasSuffix(lb.Role, roleSuffix) {
				continue
			}
			name := localName(lb.Label)
			if name == "" {
				continue
			}
			c := model.GAAP(name)
			parts[c] = append(parts[c], strings.TrimSpace(lb.Text))
		}
		return nil
	}

	if err := load(fmt.Sprintf("%s/us-gaap-lab-%s.xml", base, yr), "/label"); err != nil {
		return nil, err
	}
	if err := load(fmt.Sprintf("%s/us-gaap-doc-%s.xml", base, yr), "/documentation"); err != nil {
		return nil, err
	}

	texts := make(map[model.Concept]string, len(parts))
	for c, ps := range parts {
		texts[c] = strings.Join(ps, " ")
	}
	return texts, nil
}

func (l *Loader) loadPresentation(ctx context.Context, url string) ([]Edge, error) {
	body, err := l.download(ctx, url)
	if err != nil {
		return nil, err
	}

	locs, err := fetcher.DecodeElements[xlinkLoc](bytes.NewReader(body), "loc")
	if err != nil {
		return nil, eris.Wrapf(err, "taxonomy: parse locs %s", url)
	}
	labelMap := make(map[string]model.Concept, len(locs))
	for _, loc := range locs {
		frag := loc.Href
		if i := strings.LastIndex(frag, "#"); i >= 0 {
			frag = frag[i+1:]
		}
		if name := localName(frag); name != "" {
			labelMap[loc.Label] = model.GAAP(name)
		}
	}

	arcs, err := fetcher.DecodeElements[xlinkArc](bytes.NewReader(body), "presentationArc")
	if err != nil {
		return nil, eris.Wrapf(err, "taxonomy: parse arcs %s", url)
	}
	var edges []Edge
	for _, arc := range arcs {
		parent, okP := labelMap[arc.From]
		child, okC := labelMap[arc.To]
		if okP && okC {
			edges = append(edges, Edge{Parent: parent, Child: child})
		}
	}
	return edges, nil
}

func (l *Loader) download(ctx context.Context, url string) ([]byte, error) {
	rc, err := l.fetcher.Download(ctx, url)
	if err != nil {
		return nil, eris.Wrapf(err, "taxonomy: download %s", url)
	}
	defer rc.Close() //nolint:errcheck
	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, eris.Wrapf(err, "taxonomy: read %s", url)
	}
	return body, nil
}

// localName strips the namespace prefix from linkbase identifiers like
// "us-gaap_Revenues" or "lab_us-gaap_Revenues". Concept names carry no
// underscores, so everything past the last one is the local name.
func localName(s string) string {
	if i := strings.LastIndex(s, "_"); i >= 0 {
		return s[i+1:]
	}
	return s
}
