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

package stamp

import (
	"testing"

	"github.com/mlnoga/kbmod/internal/imagestack"
	"github.com/mlnoga/kbmod/internal/rawimage"
	"github.com/mlnoga/kbmod/internal/search"
)

// buildStack creates a 5-image, 9x9 stack with a spike of value i+1 at
// (4,4) on image i, masked out in images 1 and 2 (Scenario 6).
func buildStack(t *testing.T) *imagestack.ImageStack {
	t.Helper()
	images := make([]*imagestack.LayeredImage, 5)
	vals := []float32{1, 2, 3, 4, 5}
	maskedAt := map[int]bool{1: true, 2: true}
	for i := 0; i < 5; i++ {
		sci := rawimage.New(9, 9)
		vary := rawimage.New(9, 9)
		for j := range sci.Data {
			sci.Data[j] = 0
			vary.Data[j] = 1
		}
		sci.Set(4, 4, vals[i])
		mask := imagestack.NewMaskImage(9, 9)
		flags := uint32(0)
		if maskedAt[i] {
			mask.Data[4*9+4] = 1
			flags = 1
		}
		li, err := imagestack.NewLayeredImage(sci, vary, mask, float64(i), rawimage.NewDeltaPSF(), flags)
		if err != nil {
			t.Fatalf("NewLayeredImage: %v", err)
		}
		images[i] = li
	}
	stack, err := imagestack.NewImageStack(images)
	if err != nil {
		t.Fatalf("NewImageStack: %v", err)
	}
	return stack
}

// Scenario 6: median coadd with masked center equals median of the
// surviving images.
func TestBuildMedianCoaddMaskedCenter(t *testing.T) {
	stack := buildStack(t)
	traj := search.Trajectory{X: 4, Y: 4, VX: 0, VY: 0}
	params := DefaultParameters(0)
	params.Type = Median

	coadd := params.Build(stack, traj, nil)
	// images 1 and 2 (values 2 and 3) are masked, so the surviving
	// values are {1,4,5} and their median is 4.
	if coadd.Data[0] != 4 {
		t.Fatalf("got %v want 4", coadd.Data[0])
	}
}

func TestBuildSumCoadd(t *testing.T) {
	stack := buildStack(t)
	traj := search.Trajectory{X: 4, Y: 4, VX: 0, VY: 0}
	params := DefaultParameters(0)
	params.Type = Sum

	coadd := params.Build(stack, traj, nil)
	// masked images contribute 0 to a sum: 1+4+5 = 10
	if coadd.Data[0] != 10 {
		t.Fatalf("got %v want 10", coadd.Data[0])
	}
}

func TestBuildUseIndexRestricts(t *testing.T) {
	stack := buildStack(t)
	traj := search.Trajectory{X: 4, Y: 4, VX: 0, VY: 0}
	params := DefaultParameters(0)
	params.Type = Sum

	useIndex := []bool{true, false, false, false, false}
	coadd := params.Build(stack, traj, useIndex)
	if coadd.Data[0] != 1 {
		t.Fatalf("got %v want 1 (only image 0 included)", coadd.Data[0])
	}
}

func TestFilteringRejectsOffCenterPeak(t *testing.T) {
	stack := buildStack(t)
	// trajectory far from the spike: coadd peak will be far off-center
	// (or entirely NO_DATA/empty), so a tight filter must reject it.
	traj := search.Trajectory{X: 1, Y: 1, VX: 0, VY: 0}
	params := DefaultParameters(1)
	params.DoFiltering = true
	params.PeakOffsetX, params.PeakOffsetY = 0, 0
	params.CenterThresh = 0.99

	coadd := params.Build(stack, traj, nil)
	if !rawimage.IsNoData(coadd.Data[0]) || coadd.Width != 1 {
		t.Fatalf("expected rejected trajectory to yield 1x1 NO_DATA stamp")
	}
}

func TestFilteringAcceptsWellCenteredPeak(t *testing.T) {
	stack := buildStack(t)
	traj := search.Trajectory{X: 4, Y: 4, VX: 0, VY: 0}
	params := DefaultParameters(1)
	params.Type = Sum
	params.DoFiltering = true
	params.PeakOffsetX, params.PeakOffsetY = 1, 1
	params.CenterThresh = 0.1
	params.M01Limit, params.M10Limit, params.M11Limit = 1, 1, 1
	params.M02Limit, params.M20Limit = 1, 1

	coadd := params.Build(stack, traj, nil)
	if coadd.Width == 1 {
		t.Fatalf("expected well-centered trajectory to pass filtering")
	}
}

func TestBuildBatchPreservesOrder(t *testing.T) {
	stack := buildStack(t)
	trajs := []search.Trajectory{
		{X: 4, Y: 4, VX: 0, VY: 0},
		{X: 4, Y: 4, VX: 0, VY: 0},
	}
	params := DefaultParameters(0)
	params.Type = Sum
	coadds := params.BuildBatch(stack, trajs, nil, 2)
	if len(coadds) != 2 {
		t.Fatalf("expected 2 coadds, got %d", len(coadds))
	}
	for _, c := range coadds {
		if c.Data[0] != 10 {
			t.Fatalf("got %v want 10", c.Data[0])
		}
	}
}
