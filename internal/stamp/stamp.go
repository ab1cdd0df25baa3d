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

// Package stamp implements spec.md's C5 component: centered per-image
// cutouts along a trajectory, coadded via C1's reductions, and an
// optional bank of quality filters on the coadd. Large trajectory
// batches are dispatched through the same github.com/alitto/pond pool
// shape internal/search uses for its pixel x velocity fan-out, since a
// batch of independent stamp coadds is the same embarrassingly-parallel
// shape as a batch of independent candidate evaluations.
package stamp

import (
	"math"
	"runtime"

	"github.com/alitto/pond"

	"github.com/mlnoga/kbmod/internal/imagestack"
	"github.com/mlnoga/kbmod/internal/rawimage"
	"github.com/mlnoga/kbmod/internal/search"
)

// Type selects the coadd reduction (spec.md §3's StampParameters).
type Type int

const (
	Sum Type = iota
	Mean
	Median
)

// Parameters holds spec.md §3's StampParameters.
type Parameters struct {
	Radius      int
	Type        Type
	DoFiltering bool

	PeakOffsetX, PeakOffsetY float64
	CenterThresh             float64
	M01Limit, M10Limit       float64
	M11Limit                 float64
	M02Limit, M20Limit       float64
}

// DefaultParameters returns permissive, filtering-disabled defaults at
// the given radius.
func DefaultParameters(radius int) Parameters {
	return Parameters{
		Radius:       radius,
		Type:         Sum,
		DoFiltering:  false,
		PeakOffsetX:  2,
		PeakOffsetY:  2,
		CenterThresh: 0.2,
		M01Limit:     0.3,
		M10Limit:     0.3,
		M11Limit:     0.3,
		M02Limit:     0.5,
		M20Limit:     0.5,
	}
}

// Build cuts a (2r+1)x(2r+1) stamp from each image of stack centered on
// the trajectory's predicted position, optionally restricted to
// useIndex (empty = all images), and coadds them under p.Type. If
// p.DoFiltering rejects the coadd, a 1x1 NO_DATA stamp is returned
// instead of dropping the trajectory, preserving index correspondence
// with the caller's trajectory list (spec.md §4.5).
func (p Parameters) Build(stack *imagestack.ImageStack, traj search.Trajectory, useIndex []bool) *rawimage.RawImage {
	times := stack.ZeroedTimes()
	stamps := make([]*rawimage.RawImage, 0, len(stack.Images))
	for i, im := range stack.Images {
		if len(useIndex) > 0 && i < len(useIndex) && !useIndex[i] {
			continue
		}
		t := times[i]
		cx := float64(traj.X) + traj.VX*t
		cy := float64(traj.Y) + traj.VY*t
		stamps = append(stamps, im.Science.Stamp(cx, cy, p.Radius))
	}

	var coadd *rawimage.RawImage
	switch p.Type {
	case Mean:
		coadd = rawimage.MeanImage(stamps)
	case Median:
		coadd = rawimage.MedianImage(stamps)
	default:
		coadd = rawimage.SummedImage(stamps)
	}

	if !p.DoFiltering || p.passes(coadd) {
		return coadd
	}
	return rawimage.NewNoData()
}

// passes applies the peak-offset, center-fraction and moment-limit
// filters of spec.md §4.5 to a single coadd.
func (p Parameters) passes(coadd *rawimage.RawImage) bool {
	x, y, ok := coadd.Peak()
	if !ok {
		return false
	}
	center := coadd.Width / 2
	if math.Abs(float64(x-center)) > p.PeakOffsetX || math.Abs(float64(y-center)) > p.PeakOffsetY {
		return false
	}

	peakVal := float64(coadd.At(x, y))
	sum := 0.0
	for _, v := range coadd.Data {
		if !rawimage.IsNoData(v) {
			sum += float64(v)
		}
	}
	if sum == 0 || peakVal/sum < p.CenterThresh {
		return false
	}

	m := coadd.CentralMoments()
	if math.Abs(m.M01) > p.M01Limit || math.Abs(m.M10) > p.M10Limit || math.Abs(m.M11) > p.M11Limit {
		return false
	}
	if m.M02 > p.M02Limit || m.M20 > p.M20Limit {
		return false
	}
	return true
}

// BuildBatch coadds stamps for every trajectory in trajs concurrently,
// preserving order (rejected trajectories occupy their index as a 1x1
// NO_DATA stamp, never removed).
func (p Parameters) BuildBatch(stack *imagestack.ImageStack, trajs []search.Trajectory, useIndex []bool, maxThreads int) []*rawimage.RawImage {
	if maxThreads <= 0 {
		maxThreads = runtime.NumCPU()
	}
	out := make([]*rawimage.RawImage, len(trajs))
	pool := pond.New(maxThreads, 0, pond.MinWorkers(maxThreads))
	for i, traj := range trajs {
		i, traj := i, traj
		pool.Submit(func() {
			out[i] = p.Build(stack, traj, useIndex)
		})
	}
	pool.StopAndWait()
	return out
}
