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

import "testing"

func makeTestImage() *RawImage {
	img := New(5, 5)
	for i := range img.Data {
		img.Data[i] = 0
	}
	img.Set(2, 2, 10)
	return img
}

// P4: convolution with the identity-equivalent PSF is the identity up to
// NO_DATA propagation.
func TestConvolveDeltaIsIdentity(t *testing.T) {
	img := makeTestImage()
	img.Set(0, 0, NoData)

	out := NewDeltaPSF().Convolve(img)
	for i := range img.Data {
		if IsNoData(img.Data[i]) {
			if !IsNoData(out.Data[i]) {
				t.Fatalf("pixel %d: expected NO_DATA, got %v", i, out.Data[i])
			}
			continue
		}
		if out.Data[i] != img.Data[i] {
			t.Fatalf("pixel %d: got %v want %v", i, out.Data[i], img.Data[i])
		}
	}
}

func TestConvolveRenormalizesAroundMask(t *testing.T) {
	img := New(3, 3)
	for i := range img.Data {
		img.Data[i] = 1
	}
	img.Set(1, 1, NoData)
	psf := NewGaussianPSF(1)
	out := psf.Convolve(img)
	// Every unmasked neighbor of the masked center contributed weight 1,
	// so the renormalized output away from full masking should still be
	// close to 1, not NO_DATA.
	if IsNoData(out.At(0, 0)) {
		t.Fatalf("corner pixel unexpectedly NO_DATA")
	}
}

func TestConvolveAllMaskedIsNoData(t *testing.T) {
	img := New(3, 3)
	psf := NewGaussianPSF(1)
	out := psf.Convolve(img)
	for _, v := range out.Data {
		if !IsNoData(v) {
			t.Fatalf("expected all NO_DATA, got %v", v)
		}
	}
}

func TestStampOutOfBoundsIsNoData(t *testing.T) {
	img := makeTestImage()
	s := img.Stamp(0, 0, 1)
	if !IsNoData(s.At(0, 0)) {
		t.Fatalf("expected NO_DATA at out-of-bounds corner")
	}
	if IsNoData(s.At(1, 1)) {
		t.Fatalf("expected center pixel to be defined")
	}
}

func TestPeakTieBreak(t *testing.T) {
	img := New(2, 2)
	img.Set(0, 0, 5)
	img.Set(1, 0, 5)
	img.Set(0, 1, 5)
	img.Set(1, 1, 5)
	x, y, ok := img.Peak()
	if !ok || x != 0 || y != 0 {
		t.Fatalf("expected tie-break to (0,0), got (%d,%d) ok=%v", x, y, ok)
	}
}

// P5 (summed image term): create_summed_image([a, NO_DATA, b])(p) = a(p)+b(p)
func TestSummedImageSkipsNoData(t *testing.T) {
	a := New(2, 2)
	for i := range a.Data {
		a.Data[i] = 1
	}
	mid := New(2, 2) // all NO_DATA
	b := New(2, 2)
	for i := range b.Data {
		b.Data[i] = 2
	}
	out := SummedImage([]*RawImage{a, mid, b})
	for _, v := range out.Data {
		if v != 3 {
			t.Fatalf("got %v want 3", v)
		}
	}
}

// P5 (median image term): create_median_image with all identical stamps
// returns that stamp.
func TestMedianImageIdenticalStamps(t *testing.T) {
	a := New(2, 2)
	for i := range a.Data {
		a.Data[i] = 7
	}
	b := a.Clone()
	c := a.Clone()
	out := MedianImage([]*RawImage{a, b, c})
	for _, v := range out.Data {
		if v != 7 {
			t.Fatalf("got %v want 7", v)
		}
	}
}

func TestReductionsEmptyInput(t *testing.T) {
	for _, fn := range []func([]*RawImage) *RawImage{SummedImage, MeanImage, MedianImage} {
		out := fn(nil)
		if out.Width != 1 || out.Height != 1 || !IsNoData(out.Data[0]) {
			t.Fatalf("expected 1x1 NO_DATA image for empty input, got %+v", out)
		}
	}
}

func TestMeanImageAllMaskedIsNoData(t *testing.T) {
	a := New(1, 1)
	b := New(1, 1)
	out := MeanImage([]*RawImage{a, b})
	if !IsNoData(out.Data[0]) {
		t.Fatalf("expected NO_DATA, got %v", out.Data[0])
	}
}

// Scenario 6: median coadd with masked center.
func TestMedianImageMaskedCenter(t *testing.T) {
	vals := []float32{1, 2, NoData, NoData, 3, 4, 5}
	stamps := make([]*RawImage, len(vals))
	for i, v := range vals {
		s := New(1, 1)
		s.Data[0] = v
		stamps[i] = s
	}
	out := MedianImage(stamps)
	// median(1,2,3,4,5) = 3
	if out.Data[0] != 3 {
		t.Fatalf("got %v want 3", out.Data[0])
	}
}

func TestCentralMomentsSymmetricIsZeroOffAxis(t *testing.T) {
	// a symmetric 3x3 stamp should have zero first moments
	s := New(3, 3)
	for i := range s.Data {
		s.Data[i] = 1
	}
	m := s.CentralMoments()
	if m.M01 != 0 || m.M10 != 0 {
		t.Fatalf("expected zero first moments for symmetric stamp, got %+v", m)
	}
	if m.M00 != 9 {
		t.Fatalf("expected mass 9, got %v", m.M00)
	}
}
