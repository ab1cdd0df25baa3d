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
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/alitto/pond"
	"github.com/google/uuid"
	"github.com/pbnjay/memory"

	"github.com/mlnoga/kbmod/internal/imagestack"
	"github.com/mlnoga/kbmod/internal/log"
	"github.com/mlnoga/kbmod/internal/psiphi"
	"github.com/mlnoga/kbmod/internal/rawimage"
)

// State is one of StackSearch's three lifecycle states (spec.md §4.4).
type State int

const (
	Fresh State = iota
	Ready
	HasResults
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "FRESH"
	case Ready:
		return "READY"
	case HasResults:
		return "HAS_RESULTS"
	default:
		return "UNKNOWN"
	}
}

// StackSearch borrows an ImageStack (non-owning reference, spec.md §9)
// and drives it through FRESH -> READY -> HAS_RESULTS. Each instance is
// tagged with a UUID for log correlation, the way a REST handler needs
// to report progress on a long-running search back to a caller.
type StackSearch struct {
	ID    uuid.UUID
	Stack *imagestack.ImageStack
	Array *psiphi.PsiPhiArray

	state   State
	results []Trajectory
}

// New wraps stack in a fresh StackSearch.
func New(stack *imagestack.ImageStack) *StackSearch {
	return &StackSearch{ID: uuid.New(), Stack: stack, state: Fresh}
}

func (s *StackSearch) State() State { return s.state }

// PreparePsiPhi generates and caches the PsiPhiArray if not already
// present; idempotent, per spec.md §4.4: once READY or HAS_RESULTS, a
// repeated call is a no-op.
func (s *StackSearch) PreparePsiPhi(psiNumBytes, phiNumBytes, maxThreads int) error {
	if s.state != Fresh {
		return nil
	}
	arr, err := psiphi.Generate(s.Stack, psiNumBytes, phiNumBytes, maxThreads)
	if err != nil {
		return fmt.Errorf("search: preparing psi/phi array: %w", err)
	}
	s.Array = arr
	s.state = Ready
	return nil
}

// ClearResults discards the current result vector and returns to READY,
// so new search parameters can be applied against the same PsiPhiArray
// without regenerating it (spec.md §4.4's clear_results transition).
func (s *StackSearch) ClearResults() {
	if s.state == HasResults {
		s.state = Ready
	}
	s.results = nil
}

// Results returns the most recent sorted result vector, or nil if the
// search has not run yet.
func (s *StackSearch) Results() []Trajectory { return s.results }

// DefaultMaxThreads sizes search concurrency from CPU count and physical
// memory, mirroring the teacher's -stMemory-driven imageLevelParallelism
// calculation (internal/batch.go): more threads than the machine can
// back with memory just thrashes the allocator.
func DefaultMaxThreads() int {
	n := runtime.NumCPU()
	mib := memory.TotalMemory() / 1024 / 1024
	// Budget roughly 256 MiB of working set per concurrent worker; below
	// that, scale down rather than oversubscribe.
	if budget := int(mib / 256); budget > 0 && budget < n {
		n = budget
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Search runs prepare_psi_phi implicitly from FRESH, then evaluates the
// full (start_pixel x velocity) grid and returns the globally sorted
// result vector (spec.md §4.4). An empty search rectangle yields zero
// results without error (scenario 5).
func (s *StackSearch) Search(params Parameters, grid Grid, maxThreads int) ([]Trajectory, error) {
	if s.state == Fresh {
		if err := s.PreparePsiPhi(params.PsiNumBytes, params.PhiNumBytes, maxThreads); err != nil {
			return nil, err
		}
	}

	pixW := params.XStartMax - params.XStartMin
	pixH := params.YStartMax - params.YStartMin
	if pixW <= 0 || pixH <= 0 {
		s.results = nil
		s.state = HasResults
		return s.results, nil
	}

	velocities := grid.Generate()
	times := s.Stack.ZeroedTimes()

	if maxThreads <= 0 {
		maxThreads = DefaultMaxThreads()
	}
	log.Infof("search %s: evaluating %d start pixels x %d velocities with %d workers\n",
		s.ID, pixW*pixH, len(velocities), maxThreads)

	perPixel := make([]*topK, pixW*pixH)
	pool := pond.New(maxThreads, 0, pond.MinWorkers(maxThreads))
	for py := 0; py < pixH; py++ {
		for px := 0; px < pixW; px++ {
			x := params.XStartMin + px
			y := params.YStartMin + py
			idx := py*pixW + px
			pool.Submit(func() {
				perPixel[idx] = evaluatePixel(s.Array, times, x, y, velocities, params)
			})
		}
	}
	pool.StopAndWait()

	total := 0
	for _, tk := range perPixel {
		total += tk.Len()
	}
	merged := make([]Trajectory, 0, total)
	for _, tk := range perPixel {
		merged = append(merged, tk.items...)
	}
	sort.Slice(merged, func(i, j int) bool { return better(merged[i], merged[j]) })

	s.results = merged
	s.state = HasResults
	return s.results, nil
}

// evaluatePixel implements spec.md §4.4's six-step per-candidate
// evaluation for every velocity in the grid, at one fixed start pixel.
func evaluatePixel(arr *psiphi.PsiPhiArray, times []float64, x, y int, velocities []Velocity, params Parameters) *topK {
	k := newTopK(params.ResultsPerPixel)
	psis := make([]float64, 0, arr.NumImages)
	phis := make([]float64, 0, arr.NumImages)
	ls := make([]float64, 0, arr.NumImages)

	for _, vel := range velocities {
		psis = psis[:0]
		phis = phis[:0]
		ls = ls[:0]

		for i := 0; i < arr.NumImages; i++ {
			t := times[i]
			px := int(math.Round(float64(x) + vel.VX*t))
			py := int(math.Round(float64(y) + vel.VY*t))
			if px < 0 || px >= arr.Width || py < 0 || py >= arr.Height {
				continue
			}
			psi := arr.Psi(i, py, px)
			phi := arr.Phi(i, py, px)
			if rawimage.IsNoData(psi) || rawimage.IsNoData(phi) || phi <= 0 {
				continue
			}
			psis = append(psis, float64(psi))
			phis = append(phis, float64(phi))
			ls = append(ls, float64(psi)/math.Sqrt(float64(phi)))
		}

		var survivors []int
		if params.DoSigmaGFilter {
			survivors = sigmaGFilter(ls, params.SGL_L, params.SGL_H, params.SigmaGCoeff)
		} else {
			survivors = make([]int, len(ls))
			for i := range survivors {
				survivors[i] = i
			}
		}

		var sumPsi, sumPhi float64
		for _, si := range survivors {
			sumPsi += psis[si]
			sumPhi += phis[si]
		}
		obsCount := len(survivors)

		var likelihood, flux float32
		if sumPhi > 0 {
			likelihood = float32(sumPsi / math.Sqrt(sumPhi))
			flux = float32(sumPsi / sumPhi)
		}

		if obsCount < params.MinObservations || likelihood < params.MinLH {
			continue
		}
		k.Offer(Trajectory{
			X: int16(x), Y: int16(y),
			VX: vel.VX, VY: vel.VY,
			Flux: flux, Likelihood: likelihood,
			ObsCount: int16(obsCount),
		})
	}
	return k
}
