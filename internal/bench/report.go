package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/embedbench/embed-bench/internal/pkg/errors"
)

// Render writes a comparison in the requested format ("text" or "json").
func Render(w io.Writer, c *Comparison, format string) error {
	switch format {
	case "json":
		return RenderJSON(w, c)
	case "", "text":
		return RenderText(w, c)
	default:
		return errors.ValidationError("unknown report format: " + format)
	}
}

// RenderJSON writes the full comparison, per-query records included.
func RenderJSON(w io.Writer, c *Comparison) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

// RenderText writes a per-strategy summary table.
func RenderText(w io.Writer, c *Comparison) error {
	fmt.Fprintf(w, "run %s  ndcg@%d  baseline=%s\n\n", c.RunID, c.K, c.Baseline)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STRATEGY\tQUERIES\tMEAN NDCG\tDELTA")

	for _, res := range c.Results {
		delta := fmt.Sprintf("%+.4f", res.Delta)
		if res.Name == c.Baseline {
			delta = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%.4f\t%s\n",
			res.Name, res.Summary.QueryCount, res.Summary.MeanNDCG, delta)
	}

	return tw.Flush()
}
