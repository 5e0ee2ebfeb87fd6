package model

import (
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// metricsFile is the YAML document shape for a custom metric registry.
type metricsFile struct {
	Metrics []metricEntry `yaml:"metrics"`
}

type metricEntry struct {
	ID         string `yaml:"id"`
	PeriodType string `yaml:"period_type"`
	Unit       string `yaml:"unit"`
	Derive     *struct {
		Left  string `yaml:"left"`
		Right string `yaml:"right"`
	} `yaml:"derive"`
}

// MetricsFromYAML reads a custom metric registry. Entries keep file
// order; a derived metric must list both inputs among the entries
// declared before it, so reconciliation can still run front to back.
func MetricsFromYAML(r io.Reader) (*Metrics, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "model: read metrics file")
	}

	var doc metricsFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, eris.Wrap(err, "model: parse metrics file")
	}
	if len(doc.Metrics) == 0 {
		return nil, eris.New("model: metrics file declares no metrics")
	}

	seen := make(map[string]struct{}, len(doc.Metrics))
	list := make([]Metric, 0, len(doc.Metrics))
	for _, e := range doc.Metrics {
		if e.ID == "" {
			return nil, eris.New("model: metric entry missing id")
		}
		if _, dup := seen[e.ID]; dup {
			return nil, eris.Errorf("model: duplicate metric %s", e.ID)
		}

		m := Metric{ID: e.ID, Unit: e.Unit}
		switch PeriodType(e.PeriodType) {
		case PeriodDuration, PeriodInstant:
			m.PeriodType = PeriodType(e.PeriodType)
		case "":
			m.PeriodType = PeriodDuration
		default:
			return nil, eris.Errorf("model: metric %s: unknown period type %q", e.ID, e.PeriodType)
		}

		if e.Derive != nil {
			if e.Derive.Left == "" || e.Derive.Right == "" {
				return nil, eris.Errorf("model: metric %s: derive needs left and right", e.ID)
			}
			for _, input := range []string{e.Derive.Left, e.Derive.Right} {
				if _, ok := seen[input]; !ok {
					return nil, eris.Errorf("model: metric %s: input %s not declared earlier", e.ID, input)
				}
			}
			m.Derive = &Derivation{Left: e.Derive.Left, Right: e.Derive.Right}
		}

		seen[e.ID] = struct{}{}
		list = append(list, m)
	}
	return NewMetrics(list), nil
}
