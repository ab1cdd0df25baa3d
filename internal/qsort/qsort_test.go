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

package qsort

import (
	"testing"

	"github.com/valyala/fastrand"
)

func TestMedian(t *testing.T) {
	rng := fastrand.RNG{}
	for i := 1; i < 1000; i++ {
		arr := make([]float32, i)
		for j := range arr {
			arr[j] = float32(j + 1)
		}
		for j := range arr {
			k := rng.Uint32n(uint32(len(arr)))
			arr[j], arr[k] = arr[k], arr[j]
		}

		var expect float32
		if i&1 != 0 {
			expect = float32((i + 1) / 2)
		} else {
			expect = 0.5 * (float32(i/2) + float32(i/2+1))
		}

		res := Median(arr)
		if res != expect {
			t.Errorf("median(1..%d) got %f expect %f", i, res, expect)
		}
	}
}

func TestMedianAllIdentical(t *testing.T) {
	arr := []float32{3, 3, 3, 3, 3}
	if got := Median(arr); got != 3 {
		t.Errorf("got %f want 3", got)
	}
}

func TestSelectSortsBoundary(t *testing.T) {
	arr := []float32{5, 1, 4, 2, 3}
	if got := Select(arr, 1); got != 1 {
		t.Errorf("min: got %f want 1", got)
	}
	arr = []float32{5, 1, 4, 2, 3}
	if got := Select(arr, 5); got != 5 {
		t.Errorf("max: got %f want 5", got)
	}
}

func TestPercentile(t *testing.T) {
	base := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	arr := append([]float32(nil), base...)
	if got := Percentile(arr, 0); got != 1 {
		t.Errorf("p0: got %f want 1", got)
	}
	arr = append([]float32(nil), base...)
	if got := Percentile(arr, 100); got != 10 {
		t.Errorf("p100: got %f want 10", got)
	}
}
