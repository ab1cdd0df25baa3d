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

import "github.com/mlnoga/kbmod/internal/qsort"

// SummedImage computes the per-pixel sum across stamps, treating NO_DATA
// as zero (a sum is a filter by construction, spec.md §4.1). An empty
// input returns the canonical 1x1 NO_DATA image.
func SummedImage(stamps []*RawImage) *RawImage {
	if len(stamps) == 0 {
		return NewNoData()
	}
	out := New(stamps[0].Width, stamps[0].Height)
	for i := range out.Data {
		out.Data[i] = 0
	}
	for _, s := range stamps {
		for i, v := range s.Data {
			if IsNoData(v) {
				continue
			}
			out.Data[i] += v
		}
	}
	return out
}

// MeanImage computes the per-pixel mean of unmasked values across
// stamps; a pixel masked in every stamp is NO_DATA in the output. An
// empty input returns the canonical 1x1 NO_DATA image.
func MeanImage(stamps []*RawImage) *RawImage {
	if len(stamps) == 0 {
		return NewNoData()
	}
	w, h := stamps[0].Width, stamps[0].Height
	out := New(w, h)
	sums := make([]float32, w*h)
	counts := make([]int, w*h)
	for _, s := range stamps {
		for i, v := range s.Data {
			if IsNoData(v) {
				continue
			}
			sums[i] += v
			counts[i]++
		}
	}
	for i, c := range counts {
		if c == 0 {
			continue // already NO_DATA
		}
		out.Data[i] = sums[i] / float32(c)
	}
	return out
}

// MedianImage computes the per-pixel median across stamps, ignoring
// NO_DATA; a pixel masked in every stamp is NO_DATA in the output. Ties
// among an even count of unmasked values average the two middle values
// (spec.md §4.5's GPU-coadd tie-break, applied uniformly here so the CPU
// and GPU-batch coadd paths agree). An empty input returns the canonical
// 1x1 NO_DATA image.
func MedianImage(stamps []*RawImage) *RawImage {
	if len(stamps) == 0 {
		return NewNoData()
	}
	w, h := stamps[0].Width, stamps[0].Height
	out := New(w, h)
	buf := make([]float32, 0, len(stamps))
	for i := 0; i < w*h; i++ {
		buf = buf[:0]
		for _, s := range stamps {
			v := s.Data[i]
			if !IsNoData(v) {
				buf = append(buf, v)
			}
		}
		if len(buf) == 0 {
			continue // already NO_DATA
		}
		out.Data[i] = qsort.Median(buf)
	}
	return out
}
