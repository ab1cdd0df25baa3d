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

package imagestack

import (
	"testing"

	"github.com/mlnoga/kbmod/internal/rawimage"
)

func constImage(w, h int, v float32) *rawimage.RawImage {
	img := rawimage.New(w, h)
	for i := range img.Data {
		img.Data[i] = v
	}
	return img
}

func makeLayered(t *testing.T, mjd float64, sciVal, varVal float32, maskVal uint32) *LayeredImage {
	t.Helper()
	sci := constImage(3, 3, sciVal)
	vary := constImage(3, 3, varVal)
	mask := NewMaskImage(3, 3)
	for i := range mask.Data {
		mask.Data[i] = 0
	}
	mask.Data[4] = maskVal // center pixel
	li, err := NewLayeredImage(sci, vary, mask, mjd, rawimage.NewDeltaPSF(), 1)
	if err != nil {
		t.Fatalf("NewLayeredImage: %v", err)
	}
	return li
}

func TestNewLayeredImageMasksScienceAndVariance(t *testing.T) {
	li := makeLayered(t, 100, 5, 2, 1)
	if !rawimage.IsNoData(li.Science.At(1, 1)) {
		t.Fatalf("expected masked center pixel to be NO_DATA in science")
	}
	if !rawimage.IsNoData(li.Variance.At(1, 1)) {
		t.Fatalf("expected masked center pixel to be NO_DATA in variance")
	}
	if li.Science.At(0, 0) != 5 {
		t.Fatalf("unmasked pixel unexpectedly altered")
	}
}

func TestNewLayeredImageShapeMismatch(t *testing.T) {
	sci := constImage(3, 3, 1)
	vary := constImage(2, 2, 1)
	mask := NewMaskImage(3, 3)
	if _, err := NewLayeredImage(sci, vary, mask, 0, rawimage.NewDeltaPSF(), 0); err == nil {
		t.Fatalf("expected shape mismatch error")
	}
}

func TestZeroedTimesRelativeToFirstNotMinimum(t *testing.T) {
	a := makeLayered(t, 100, 1, 1, 0)
	b := makeLayered(t, 90, 1, 1, 0) // earlier than a, but not index 0
	c := makeLayered(t, 105, 1, 1, 0)
	stack, err := NewImageStack([]*LayeredImage{a, b, c})
	if err != nil {
		t.Fatalf("NewImageStack: %v", err)
	}
	// NewImageStack must not reorder by MJD: index 0 stays a (MJD 100),
	// even though b (MJD 90) is chronologically earlier. Times are
	// zeroed relative to index 0, not the stack's minimum MJD.
	if stack.Images[0] != a || stack.Images[1] != b || stack.Images[2] != c {
		t.Fatalf("expected caller order preserved, got reordered images")
	}
	times := stack.ZeroedTimes()
	want := []float64{0, -10, 5}
	for i, w := range want {
		if times[i] != w {
			t.Fatalf("time %d: got %v want %v", i, times[i], w)
		}
	}
}

func TestGlobalMaskThreshold(t *testing.T) {
	a := makeLayered(t, 1, 1, 1, 1)
	b := makeLayered(t, 2, 1, 1, 1)
	c := makeLayered(t, 3, 1, 1, 0)
	stack, err := NewImageStack([]*LayeredImage{a, b, c})
	if err != nil {
		t.Fatalf("NewImageStack: %v", err)
	}
	gm := stack.GlobalMask(1, 2)
	if gm.At(1, 1) != 1 {
		t.Fatalf("expected center pixel flagged with threshold 2, 2 images carry the flag")
	}
	if gm.At(0, 0) != 0 {
		t.Fatalf("unflagged pixel unexpectedly masked")
	}
	gm3 := stack.GlobalMask(1, 3)
	if gm3.At(1, 1) != 0 {
		t.Fatalf("expected center pixel unflagged with threshold 3, only 2 images carry the flag")
	}
}

func TestPsiPhiImagesShapeAndValues(t *testing.T) {
	// science=4, variance=2 -> psi (delta PSF) = science/variance = 2
	// phi (delta PSF) = 1/variance = 0.5
	a := makeLayered(t, 1, 4, 2, 0)
	b := makeLayered(t, 2, 4, 2, 0)
	stack, err := NewImageStack([]*LayeredImage{a, b})
	if err != nil {
		t.Fatalf("NewImageStack: %v", err)
	}
	psi, phi, err := stack.PsiPhiImages(0)
	if err != nil {
		t.Fatalf("PsiPhiImages: %v", err)
	}
	if len(psi) != 2 || len(phi) != 2 {
		t.Fatalf("expected 2 psi/phi images each, got %d/%d", len(psi), len(phi))
	}
	for i := range psi {
		if psi[i].At(0, 0) != 2 {
			t.Fatalf("image %d: psi got %v want 2", i, psi[i].At(0, 0))
		}
		if phi[i].At(0, 0) != 0.5 {
			t.Fatalf("image %d: phi got %v want 0.5", i, phi[i].At(0, 0))
		}
	}
}
