// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package search

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// sigmaGFilter implements spec.md §4.4 step 3: over the valid
// per-observation likelihood contributions l_i, compute the sgl_L/sgl_H
// percentiles, and reject any observation whose l_i lies more than
// 1/sigmaGCoeff inter-percentile widths from the median. Returns the
// surviving indices into l. An empty or single-element input disables
// the filter (spec.md §7: empty percentile inputs never fail, they just
// do nothing).
//
// gonum's stat.Quantile is already a teacher dependency (internal/star
// pulls in gonum for frame alignment); reused here rather than
// hand-rolling another quantile estimator next to qsort.Percentile.
// stat.Empirical returns the smallest sorted sample whose cumulative
// fraction reaches p, without interpolating between samples; this
// differs from qsort.Percentile's rounding of p*(n-1) to a rank.
func sigmaGFilter(l []float64, sglL, sglH, sigmaGCoeff float64) []int {
	n := len(l)
	if n <= 1 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return l[order[i]] < l[order[j]] })
	sorted := make([]float64, n)
	for i, oi := range order {
		sorted[i] = l[oi]
	}

	lo := stat.Quantile(sglL/100, stat.Empirical, sorted, nil)
	hi := stat.Quantile(sglH/100, stat.Empirical, sorted, nil)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	width := hi - lo
	if width < 0 {
		width = -width
	}

	// A non-positive coefficient disables the clip; a zero width keeps
	// only the observations equal to the median.
	limit := math.Inf(1)
	if sigmaGCoeff > 0 {
		limit = width / sigmaGCoeff
	}

	survivors := make([]int, 0, n)
	for i, v := range l {
		if abs(v-median) <= limit {
			survivors = append(survivors, i)
		}
	}
	return survivors
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
