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
	"fmt"

	"github.com/mlnoga/kbmod/internal/parallel"
	"github.com/mlnoga/kbmod/internal/rawimage"
)

// ImageStack is a collection of LayeredImages sharing one (Width,
// Height) shape, the basic search input (spec.md §3). Images are held
// in caller-supplied order, not sorted by MJD: index 0 is whatever
// image the caller put there, and defines the time origin.
type ImageStack struct {
	Width, Height int
	Images        []*LayeredImage
}

// NewImageStack validates that every image shares the first image's
// shape. Caller order is preserved as-is: spec.md §3 is explicit that
// timestamps need not be sorted, and that index 0 defines the time
// origin regardless of whether it happens to carry the minimum MJD, so
// this constructor must not reorder images by MJD.
func NewImageStack(images []*LayeredImage) (*ImageStack, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("imagestack: stack must contain at least one image")
	}
	w, h := images[0].Science.Width, images[0].Science.Height
	for i, im := range images {
		if im.Science.Width != w || im.Science.Height != h {
			return nil, fmt.Errorf("imagestack: image %d has shape %dx%d, want %dx%d",
				i, im.Science.Width, im.Science.Height, w, h)
		}
	}
	kept := make([]*LayeredImage, len(images))
	copy(kept, images)
	return &ImageStack{Width: w, Height: h, Images: kept}, nil
}

// ZeroedTimes returns each image's MJD minus index 0's MJD, whatever
// that happens to be: spec.md §4.2 defines MJD_0 as the timestamp of
// index 0, not the minimum across the stack, so this must not sort or
// search for a minimum.
func (s *ImageStack) ZeroedTimes() []float64 {
	out := make([]float64, len(s.Images))
	ref := s.Images[0].MJD
	for i, im := range s.Images {
		out[i] = im.MJD - ref
	}
	return out
}

// GlobalMask synthesizes one (Width,Height) 0/1 image: a pixel is masked
// (set to 1) when at least threshold images carry a mask value matching
// flags at that pixel (spec.md §3's global mask, generalizing a single
// bad-pixel count threshold to a configurable per-flag one).
func (s *ImageStack) GlobalMask(flags uint32, threshold int) *rawimage.RawImage {
	out := rawimage.New(s.Width, s.Height)
	counts := make([]int, s.Width*s.Height)
	for _, im := range s.Images {
		for i, m := range im.Mask.Data {
			if m&flags != 0 {
				counts[i]++
			}
		}
	}
	for i, c := range counts {
		if c >= threshold {
			out.Data[i] = 1
		} else {
			out.Data[i] = 0
		}
	}
	return out
}

// PsiPhiImages computes the per-image psi and phi RawImages of spec.md
// §4.2: psi_i = PSF_i ⊛ (science_i / variance_i), phi_i = PSF_i² ⊛
// (1 / variance_i). This is C1's convolution applied through a stack
// traversal, generalizing the teacher's OpParallel pattern of applying
// one OperatorUnary across N FITS frames (internal/ops/operator.go) to
// computing two derived planes per layered image. A pixel that is
// NO_DATA in science/variance (or 1/variance) is NO_DATA in psi (or
// phi), even where the convolution could renormalize over its
// neighbors.
func (s *ImageStack) PsiPhiImages(maxThreads int) (psi, phi []*rawimage.RawImage, err error) {
	type pair struct{ psi, phi *rawimage.RawImage }
	results, err := parallel.Map(s.Images, maxThreads, func(_ int, im *LayeredImage) (pair, error) {
		invVar := rawimage.Recip(im.Variance)
		sciOverVar := rawimage.Div(im.Science, im.Variance)
		psi := im.PSF.Convolve(sciOverVar)
		phi := im.PSF.Squared().Convolve(invVar)
		for i := range psi.Data {
			if rawimage.IsNoData(sciOverVar.Data[i]) {
				psi.Data[i] = rawimage.NoData
			}
			if rawimage.IsNoData(invVar.Data[i]) {
				phi.Data[i] = rawimage.NoData
			}
		}
		return pair{psi: psi, phi: phi}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	psi = make([]*rawimage.RawImage, len(results))
	phi = make([]*rawimage.RawImage, len(results))
	for i, r := range results {
		psi[i], phi[i] = r.psi, r.phi
	}
	return psi, phi, nil
}
