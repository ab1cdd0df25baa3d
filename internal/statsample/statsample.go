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

// Package statsample provides fast approximate bound estimation for large
// float32 arrays via random subsampling, trimmed from the teacher's much
// larger internal/stats package (which also offers IKSS, Qn and histogram
// location/scale estimators used for its own stacking pipeline; none of
// that stacking-specific machinery has a home in this repository, see
// DESIGN.md). Only the sampling pattern that underlies
// stats.FastApproxMedian survives, generalized to min/max for psi/phi
// quantization bounds.
package statsample

import (
	"math"

	"github.com/valyala/fastrand"
)

// ApproxMinMaxThreshold is the element count above which ApproxMinMax
// falls back to subsampling rather than a full scan.
const ApproxMinMaxThreshold = 1 << 16

// ExactMinMax scans skipFn-filtered values of data and returns the
// min/max, plus whether any value was found at all.
func ExactMinMax(data []float32, skip func(float32) bool) (min, max float32, any bool) {
	min, max = float32(math.Inf(1)), float32(math.Inf(-1))
	for _, v := range data {
		if skip(v) {
			continue
		}
		any = true
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max, any
}

// ApproxMinMax estimates min/max over unmasked data by sampling
// numSamples random indices, retrying on masked draws. For arrays at or
// below ApproxMinMaxThreshold it instead performs an exact scan, since
// sampling overhead isn't worth it below that size — the same size-gated
// strategy the teacher's stats package applies to its own location/scale
// estimators.
func ApproxMinMax(data []float32, skip func(float32) bool, numSamples int) (min, max float32, any bool) {
	if len(data) <= ApproxMinMaxThreshold {
		return ExactMinMax(data, skip)
	}

	rng := fastrand.RNG{}
	min, max = float32(math.Inf(1)), float32(math.Inf(-1))
	maxIdx := uint32(len(data))
	found := 0
	// Bound retries so a heavily masked image can't spin forever;
	// fall back to an exact scan if sampling finds no live pixel at
	// all within a generous retry budget.
	maxAttempts := numSamples * 50
	for attempt := 0; found < numSamples && attempt < maxAttempts; attempt++ {
		v := data[rng.Uint32n(maxIdx)]
		if skip(v) {
			continue
		}
		found++
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if found == 0 {
		return ExactMinMax(data, skip)
	}
	return min, max, true
}
