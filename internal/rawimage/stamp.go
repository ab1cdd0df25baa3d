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

package rawimage

import "math"

// Stamp extracts a (2r+1)x(2r+1) image centered on the sub-pixel
// position (cx,cy): pixel [i,j] of the result corresponds to the input
// pixel nearest (cx-r+j, cy-r+i). No sub-pixel interpolation is applied;
// samples that fall outside the input are NO_DATA (spec.md §4.1).
func (im *RawImage) Stamp(cx, cy float64, r int) *RawImage {
	size := 2*r + 1
	out := New(size, size)
	for j := 0; j < size; j++ {
		sx := int(math.Round(cx - float64(r) + float64(j)))
		for i := 0; i < size; i++ {
			sy := int(math.Round(cy - float64(r) + float64(i)))
			if im.InBounds(sx, sy) {
				out.Data[i*size+j] = im.At(sx, sy)
			}
		}
	}
	return out
}

// StampViz is Stamp, but replaces NO_DATA with zero for display purposes;
// it must never be used on the path feeding a coadd or likelihood
// computation (spec.md §4.1: "a separate viz path may replace NO_DATA
// with zero").
func (im *RawImage) StampViz(cx, cy float64, r int) *RawImage {
	out := im.Stamp(cx, cy, r)
	for i, v := range out.Data {
		if IsNoData(v) {
			out.Data[i] = 0
		}
	}
	return out
}

// Peak returns the (x,y) of the image's maximum pixel. Ties are broken
// by lowest row then lowest column (spec.md §4.1).
func (im *RawImage) Peak() (x, y int, ok bool) {
	best := float32(math.Inf(-1))
	found := false
	for yy := 0; yy < im.Height; yy++ {
		for xx := 0; xx < im.Width; xx++ {
			v := im.Data[yy*im.Width+xx]
			if IsNoData(v) {
				continue
			}
			if !found || v > best {
				best, x, y, found = v, xx, yy, true
			}
		}
	}
	return x, y, found
}

// FluxWeightedPeak returns the intensity-weighted centroid of the image,
// rounded to the nearest pixel. NO_DATA pixels are excluded from the
// weighting.
func (im *RawImage) FluxWeightedPeak() (x, y int, ok bool) {
	sumX, sumY, sumW := float64(0), float64(0), float64(0)
	for yy := 0; yy < im.Height; yy++ {
		for xx := 0; xx < im.Width; xx++ {
			v := im.Data[yy*im.Width+xx]
			if IsNoData(v) || v <= 0 {
				continue
			}
			sumX += float64(xx) * float64(v)
			sumY += float64(yy) * float64(v)
			sumW += float64(v)
		}
	}
	if sumW == 0 {
		return 0, 0, false
	}
	return int(math.Round(sumX / sumW)), int(math.Round(sumY / sumW)), true
}

// Moments holds the central image moments required by spec.md §4.1,
// computed over the normalized coordinates (x-r)/r, (y-r)/r of a
// (2r+1)x(2r+1) stamp.
type Moments struct {
	M00, M01, M10, M11, M02, M20 float64
}

// CentralMoments computes the normalized central moments {00,01,10,11,
// 02,20} of a (2r+1)x(2r+1) stamp, ignoring NO_DATA pixels.
func (im *RawImage) CentralMoments() Moments {
	if im.Width != im.Height || im.Width%2 == 0 {
		panic("rawimage: CentralMoments requires a square, odd-sized stamp")
	}
	r := im.Width / 2
	var m Moments
	for y := 0; y < im.Height; y++ {
		ny := float64(0)
		if r > 0 {
			ny = float64(y-r) / float64(r)
		}
		for x := 0; x < im.Width; x++ {
			v := im.Data[y*im.Width+x]
			if IsNoData(v) {
				continue
			}
			nx := float64(0)
			if r > 0 {
				nx = float64(x-r) / float64(r)
			}
			fv := float64(v)
			m.M00 += fv
			m.M01 += fv * ny
			m.M10 += fv * nx
			m.M11 += fv * nx * ny
			m.M02 += fv * ny * ny
			m.M20 += fv * nx * nx
		}
	}
	return m
}
