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

// Package search implements spec.md's C4 component: the parallel
// trajectory grid-search core, its per-candidate sigma-G filtering and
// per-pixel top-K retention, and the StackSearch state machine wrapping
// it. Grounded on the teacher's internal/ops/operator.go parallel
// fan-out pattern and internal/star/align.go's use of gonum, with the
// worker pool itself sourced from the pack's sixy6e-go-gsf example
// (github.com/alitto/pond), since the workload here (pixels ×
// velocities, often 10^6-10^9 candidates) is far larger than anything
// the teacher's own semaphore-channel pattern was sized for.
package search

// Trajectory is a single candidate result record (spec.md §3): a point
// source passing through integer start pixel (X,Y) at t=0 with linear
// velocity (VX,VY) in pixels/day.
type Trajectory struct {
	X          int16   `json:"x"`
	Y          int16   `json:"y"`
	VX         float64 `json:"vx"`
	VY         float64 `json:"vy"`
	Flux       float32 `json:"flux"`
	Likelihood float32 `json:"likelihood"`
	ObsCount   int16   `json:"obs_count"`
}

// better reports whether a sorts strictly before b in the final result
// ordering: descending likelihood, then (spec.md §4.4's tie-break chain)
// higher obs_count, then lower (x,y) lexicographically, then lower
// (vx,vy) lexicographically.
func better(a, b Trajectory) bool {
	if a.Likelihood != b.Likelihood {
		return a.Likelihood > b.Likelihood
	}
	if a.ObsCount != b.ObsCount {
		return a.ObsCount > b.ObsCount
	}
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	if a.VX != b.VX {
		return a.VX < b.VX
	}
	return a.VY < b.VY
}
