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

// Package qsort provides order-statistic selection on float32 slices,
// adapted from the teacher's internal/qsort.go quickselect plus a
// generalized percentile selector the teacher only exposed as hardcoded
// median/first-quartile wrappers.
package qsort

// Sort sorts a in ascending order in place.
// Array must not contain IEEE NaN.
func Sort(a []float32) {
	if len(a) > 1 {
		index := partition(a)
		Sort(a[:index+1])
		Sort(a[index+1:])
	}
}

func partition(a []float32) int {
	left, right := 0, len(a)-1
	mid := (left + right) >> 1
	pivot := a[mid]
	l := left - 1
	r := right + 1
	for {
		for {
			l++
			if a[l] >= pivot {
				break
			}
		}
		for {
			r--
			if a[r] <= pivot {
				break
			}
		}
		if l >= r {
			return r
		}
		a[l], a[r] = a[r], a[l]
	}
}

// Select returns the k-th smallest element of a (1-indexed), partially
// reordering a in the process. Array must not contain IEEE NaN.
func Select(a []float32, k int) float32 {
	left, right := 0, len(a)-1
	for left < right {
		mid := (left + right) >> 1
		pivot := a[mid]
		l, r := left-1, right+1
		for {
			for {
				l++
				if a[l] >= pivot {
					break
				}
			}
			for {
				r--
				if a[r] <= pivot {
					break
				}
			}
			if l >= r {
				break
			}
			a[l], a[r] = a[r], a[l]
		}
		index := r
		offset := index - left + 1
		if k <= offset {
			right = index
		} else {
			left = index + 1
			k = k - offset
		}
	}
	return a[left]
}

// Median returns the median of a, partially reordering it. Uses the
// fixed-size sorting network when a has exactly 9 elements, quickselect
// otherwise.
func Median(a []float32) float32 {
	switch len(a) {
	case 0:
		return 0
	case 9:
		return median9(a)
	}
	if len(a)%2 == 1 {
		return Select(a, (len(a)>>1)+1)
	}
	// even count: average of the two middle values, matching the tie
	// break spec.md requires of the median coadd (§4.5).
	lo := Select(a, len(a)>>1)
	hi := Select(a, (len(a)>>1)+1)
	return 0.5 * (lo + hi)
}

// Percentile returns the p-th percentile (0..100) of a using the nearest-
// rank method (rank = p/100*(n-1), rounded), partially reordering a. The
// sigma-G filter does not use it; its percentiles come from gonum/stat.
func Percentile(a []float32, p float64) float32 {
	if len(a) == 0 {
		return 0
	}
	if len(a) == 1 {
		return a[0]
	}
	rank := int(p/100*float64(len(a)-1) + 0.5)
	if rank < 0 {
		rank = 0
	}
	if rank > len(a)-1 {
		rank = len(a) - 1
	}
	return Select(a, rank+1)
}

// median9 calculates the median of a float32 slice of length nine via a
// fixed sorting network, modifying a in place.
// From https://stackoverflow.com/questions/45453537/optimal-9-element-sorting-network-that-reduces-to-an-optimal-median-of-9-network
func median9(a []float32) float32 {
	if a[0] > a[1] {
		a[0], a[1] = a[1], a[0]
	}
	if a[3] > a[4] {
		a[3], a[4] = a[4], a[3]
	}
	if a[6] > a[7] {
		a[6], a[7] = a[7], a[6]
	}
	if a[1] > a[2] {
		a[1], a[2] = a[2], a[1]
	}
	if a[4] > a[5] {
		a[4], a[5] = a[5], a[4]
	}
	if a[7] > a[8] {
		a[7], a[8] = a[8], a[7]
	}
	if a[0] > a[1] {
		a[0], a[1] = a[1], a[0]
	}
	if a[3] > a[4] {
		a[3], a[4] = a[4], a[3]
	}
	if a[6] > a[7] {
		a[6], a[7] = a[7], a[6]
	}
	if a[0] > a[3] {
		a[3] = a[0]
	}
	if a[3] > a[6] {
		a[6] = a[3]
	}
	if a[1] > a[4] {
		a[1], a[4] = a[4], a[1]
	}
	if a[4] > a[7] {
		a[4] = a[7]
	}
	if a[1] > a[4] {
		a[4] = a[1]
	}
	if a[5] > a[8] {
		a[5] = a[8]
	}
	if a[2] > a[5] {
		a[2] = a[5]
	}
	if a[2] > a[4] {
		a[2], a[4] = a[4], a[2]
	}
	if a[4] > a[6] {
		a[4] = a[6]
	}
	if a[2] > a[4] {
		a[4] = a[2]
	}
	return a[4]
}
