package tree

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// SizeSummary describes the sizes of a node's children: block byte totals
// for a dataset, file sizes for a block.
type SizeSummary struct {
	Count  int     `json:"count"`
	Total  int64   `json:"total"`
	Min    int64   `json:"min"`
	Max    int64   `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Median float64 `json:"median"`
}

// Sizes returns the size statistics of n's children. The second result is
// false when n has no sized children.
func Sizes(n *Node) (SizeSummary, bool) {
	if n == nil {
		return SizeSummary{}, false
	}
	var xs []float64
	var total int64
	for _, c := range n.Children {
		var v int64
		switch {
		case c.Block != nil:
			v = c.Block.Bytes
		case c.File != nil:
			v = c.File.Size
		default:
			continue
		}
		xs = append(xs, float64(v))
		total += v
	}
	if len(xs) == 0 {
		return SizeSummary{}, false
	}

	sort.Float64s(xs)
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) == 1 {
		std = 0
	}
	return SizeSummary{
		Count:  len(xs),
		Total:  total,
		Min:    int64(xs[0]),
		Max:    int64(xs[len(xs)-1]),
		Mean:   mean,
		StdDev: std,
		Median: stat.Quantile(0.5, stat.Empirical, xs, nil),
	}, true
}

// FormatBytes renders a byte count with binary units, e.g. "1.50 GiB".
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit && exp < 5; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
