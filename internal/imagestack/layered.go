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

// Package imagestack implements spec.md's C2 component: the time-ordered
// collection of layered (science, variance, mask) images that make up a
// search input, plus the zeroed-time and global-mask derivations and the
// per-image psi/phi generation that walks the stack invoking C1
// (internal/rawimage) on each layer. Generalized from the teacher's
// fits.Image + ops/stack traversal, dropping everything that belongs to
// nightlight's own stacking/calibration pipeline (dark/flat, debayer,
// binning) per spec.md's Non-goals.
package imagestack

import (
	"fmt"

	"github.com/mlnoga/kbmod/internal/rawimage"
)

// MaskImage is a dense (H,W) array of bitfield mask values (saturation,
// cosmic ray, edge, etc., per spec.md §3). Kept as a distinct integer
// type from RawImage's float32 NO_DATA-carrying plane, since bitwise AND
// against configured flags is integer arithmetic, not a float reduction.
type MaskImage struct {
	Width, Height int
	Data          []uint32
}

func NewMaskImage(width, height int) *MaskImage {
	return &MaskImage{Width: width, Height: height, Data: make([]uint32, width*height)}
}

func (m *MaskImage) At(x, y int) uint32 {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return 0
	}
	return m.Data[y*m.Width+x]
}

// LayeredImage is a (science, variance, mask) triple sharing one shape,
// plus an observation timestamp and PSF (spec.md §3).
type LayeredImage struct {
	Science, Variance *rawimage.RawImage
	Mask              *MaskImage
	MJD               float64
	PSF               *rawimage.PSF
}

// NewLayeredImage validates that science, variance and mask share shape,
// then marks NO_DATA on science/variance wherever the mask is non-zero
// under maskFlags (spec.md §6: "NO_DATA is assigned to science/variance
// wherever the mask is non-zero under the configured mask-flag mask").
// Science and variance are cloned before masking, so the caller's inputs
// are left untouched.
func NewLayeredImage(science, variance *rawimage.RawImage, mask *MaskImage, mjd float64, psf *rawimage.PSF, maskFlags uint32) (*LayeredImage, error) {
	if !science.SameShape(variance) {
		return nil, fmt.Errorf("imagestack: science/variance shape mismatch: %dx%d vs %dx%d",
			science.Width, science.Height, variance.Width, variance.Height)
	}
	if mask.Width != science.Width || mask.Height != science.Height {
		return nil, fmt.Errorf("imagestack: mask shape mismatch: %dx%d vs %dx%d",
			mask.Width, mask.Height, science.Width, science.Height)
	}

	sci := science.Clone()
	vary := variance.Clone()
	if maskFlags != 0 {
		for i, m := range mask.Data {
			if m&maskFlags != 0 {
				sci.Data[i] = rawimage.NoData
				vary.Data[i] = rawimage.NoData
			}
		}
	}

	return &LayeredImage{Science: sci, Variance: vary, Mask: mask, MJD: mjd, PSF: psf}, nil
}
