// Package rank scores corpus pages against an extracted tag map with an
// IDF-weighted, BM25-inspired formula, and mixes multi-scorer output into
// one deterministic ordered list.
package rank

import "math"

// IDF returns ln((N-n+s)/(n+s)) for a term with document frequency n in a
// corpus of size total. Degenerate inputs (empty corpus, or a frequency
// that drives either side non-positive) yield 0 instead of NaN/Inf.
func IDF(n, total int, smoothing float64) float64 {
	if total <= 0 {
		return 0
	}
	num := float64(total-n) + smoothing
	den := float64(n) + smoothing
	if num <= 0 || den <= 0 {
		return 0
	}
	return math.Log(num / den)
}
