package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/edgar-recon/internal/model"
)

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Inspect the loaded us-gaap taxonomy",
}

var taxShowConcept string

var taxonomyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a concept's text, networks, and depths",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		concept := model.ParseConcept(taxShowConcept)

		ts, err := loadTaxonomy(ctx, initFetcher())
		if err != nil {
			return eris.Wrap(err, "load taxonomy")
		}

		type networkInfo struct {
			Network   string          `json:"network"`
			Depth     int             `json:"depth"`
			Ancestors []model.Concept `json:"ancestors,omitempty"`
		}
		out := struct {
			Concept     model.Concept `json:"concept"`
			Version     string        `json:"version"`
			Text        string        `json:"text,omitempty"`
			MergedDepth *int          `json:"merged_depth,omitempty"`
			Networks    []networkInfo `json:"networks"`
		}{
			Concept: concept,
			Version: ts.Version(),
			Text:    ts.TextOf(concept),
		}
		if d, ok := ts.MergedDepths()[concept]; ok {
			out.MergedDepth = &d
		}
		for _, name := range ts.NetworksContaining(concept) {
			depth, _ := ts.DepthOf(concept, name)
			out.Networks = append(out.Networks, networkInfo{
				Network:   name,
				Depth:     depth,
				Ancestors: ts.AncestorsOf(concept, name),
			})
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var taxonomyVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show which taxonomy release loaded",
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, err := loadTaxonomy(cmd.Context(), initFetcher())
		if err != nil {
			return eris.Wrap(err, "load taxonomy")
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"version":  ts.Version(),
			"concepts": len(ts.Concepts()),
			"networks": ts.Networks(),
		})
	},
}

func init() {
	taxonomyShowCmd.Flags().StringVar(&taxShowConcept, "concept", "", "concept to inspect, e.g. us-gaap:GrossProfit (required)")
	_ = taxonomyShowCmd.MarkFlagRequired("concept")
	taxonomyCmd.AddCommand(taxonomyShowCmd)
	taxonomyCmd.AddCommand(taxonomyVersionCmd)
	rootCmd.AddCommand(taxonomyCmd)
}
