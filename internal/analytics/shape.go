package analytics

import (
	"math"
	"sort"

	"spese-analytics/internal/core"
)

// ShapeOptions controls how a breakdown is trimmed for display. Cap <= 0
// means no cap.
type ShapeOptions struct {
	Cap              int
	IncludeRemainder bool
}

// DefaultTagCap is the number of tags shown before "Show all".
const DefaultTagCap = 10

// Shape sorts raw by total descending (ties keep upstream order), caps it and
// attaches whole-number percentages of the grand total. With
// IncludeRemainder, a capped result gets a trailing "Other" entry so the
// returned totals still sum to Total. raw is not modified.
func Shape(raw core.Breakdown, opts ShapeOptions) core.ShapedBreakdown {
	sorted := make(core.Breakdown, len(raw))
	copy(sorted, raw)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Total > sorted[j].Total
	})

	total := sorted.Sum()
	out := core.ShapedBreakdown{Total: total}

	kept := sorted
	if opts.Cap > 0 && len(sorted) > opts.Cap {
		kept = sorted[:opts.Cap]
		out.Capped = true
		out.Hidden = len(sorted) - opts.Cap
	}

	out.Entries = make([]core.ShapedEntry, 0, len(kept)+1)
	for _, e := range kept {
		out.Entries = append(out.Entries, shapedEntry(e.Name, e.Total, total))
	}
	if out.Capped && opts.IncludeRemainder {
		rest := sorted[opts.Cap:].Sum()
		out.Entries = append(out.Entries, shapedEntry(core.OtherName, rest, total))
	}
	return out
}

func shapedEntry(name string, value, total float64) core.ShapedEntry {
	return core.ShapedEntry{Name: name, Total: value, PercentOfTotal: percent(value, total)}
}

func percent(value, total float64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * value / total))
}
