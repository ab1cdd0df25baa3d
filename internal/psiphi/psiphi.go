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

// Package psiphi implements spec.md's C3 component: the packed ψ/φ array
// the search core reads candidate likelihoods from, with optional
// per-image-per-channel linear quantization to 1 or 2 bytes. Addressing
// follows the i*H*W + y*W + x layout, with ψ and φ stored as parallel
// planes under that shared index (an implementation choice the spec
// leaves open) rather than literally interleaved pairs, since the two
// channels may be quantized to different byte widths.
package psiphi

import (
	"fmt"
	"math"

	"github.com/mlnoga/kbmod/internal/imagestack"
	"github.com/mlnoga/kbmod/internal/pool"
	"github.com/mlnoga/kbmod/internal/rawimage"
	"github.com/mlnoga/kbmod/internal/statsample"
)

// NoDataCode8 and NoDataCode16 are the reserved all-ones codes marking
// NO_DATA in quantized storage (spec.md §4.3).
const (
	NoDataCode8  = 0xFF
	NoDataCode16 = 0xFFFF
)

// channelParams is the per-image affine quantization (min_val, scale)
// of one channel: value = min_val + code*scale.
type channelParams struct {
	MinVal, Scale float32
}

// PsiPhiArray is the packed ψ/φ buffer for a prepared search (spec.md
// §4.3). NumBytes of 0 or 4 means the channel is stored unquantized as
// float32; 1 or 2 means quantized codes with the reserved all-ones
// NO_DATA sentinel.
type PsiPhiArray struct {
	NumImages, Height, Width int
	PsiNumBytes, PhiNumBytes int

	psiF32, phiF32 []float32 // used when the respective NumBytes is 0 or 4
	psiU8, phiU8   []byte    // used when NumBytes == 1
	psiU16, phiU16 []uint16  // used when NumBytes == 2

	psiParams, phiParams []channelParams // len NumImages

	// DeviceDirty marks that the host-side arrays above have changed
	// since the last device-side copy. No actual device exists in this
	// CPU-only implementation (see SPEC_FULL.md); the flag is retained
	// so a future accelerated backend has a place to hook in without
	// reshaping the host-side API.
	DeviceDirty bool
}

func idx(i, y, x, h, w int) int { return i*h*w + y*w + x }

// Generate computes the ψ/φ array for stack, quantizing each channel to
// psiNumBytes/phiNumBytes bytes (0 or 4 for unquantized float32). It
// calls ImageStack.PsiPhiImages and packs its output; it caches
// nothing itself (StackSearch.PreparePsiPhi keeps the result).
func Generate(stack *imagestack.ImageStack, psiNumBytes, phiNumBytes, maxThreads int) (*PsiPhiArray, error) {
	psiImgs, phiImgs, err := stack.PsiPhiImages(maxThreads)
	if err != nil {
		return nil, fmt.Errorf("psiphi: generating psi/phi images: %w", err)
	}

	n, h, w := len(psiImgs), stack.Height, stack.Width
	arr := &PsiPhiArray{
		NumImages: n, Height: h, Width: w,
		PsiNumBytes: psiNumBytes, PhiNumBytes: phiNumBytes,
		DeviceDirty: true,
	}

	if err := arr.packChannel(psiImgs, psiNumBytes, true); err != nil {
		return nil, err
	}
	if err := arr.packChannel(phiImgs, phiNumBytes, false); err != nil {
		return nil, err
	}
	return arr, nil
}

func (a *PsiPhiArray) packChannel(imgs []*rawimage.RawImage, numBytes int, isPsi bool) error {
	n := len(imgs)
	size := n * a.Height * a.Width

	switch numBytes {
	case 0, 4:
		buf := pool.Float32.Get(size)
		for i, img := range imgs {
			base := i * a.Height * a.Width
			copy(buf[base:base+a.Height*a.Width], img.Data)
		}
		if isPsi {
			a.psiF32 = buf
		} else {
			a.phiF32 = buf
		}
	case 1:
		codes := pool.Byte.Get(size)
		params := make([]channelParams, n)
		for i, img := range imgs {
			p := quantizeParams(img.Data, NoDataCode8)
			params[i] = p
			base := i * a.Height * a.Width
			for j, v := range img.Data {
				codes[base+j] = byte(encodeCode(v, p, NoDataCode8))
			}
		}
		if isPsi {
			a.psiU8, a.psiParams = codes, params
		} else {
			a.phiU8, a.phiParams = codes, params
		}
	case 2:
		codes := pool.Uint16.Get(size)
		params := make([]channelParams, n)
		for i, img := range imgs {
			p := quantizeParams(img.Data, NoDataCode16)
			params[i] = p
			base := i * a.Height * a.Width
			for j, v := range img.Data {
				codes[base+j] = uint16(encodeCode(v, p, NoDataCode16))
			}
		}
		if isPsi {
			a.psiU16, a.psiParams = codes, params
		} else {
			a.phiU16, a.phiParams = codes, params
		}
	default:
		return fmt.Errorf("psiphi: unsupported quantization width %d bytes", numBytes)
	}
	return nil
}

// quantizeParams computes the affine (min_val, scale) mapping valid
// codes [0, maxCode-1] onto data's value range, reserving maxCode for
// NO_DATA. Bounds use statsample's size-gated approximate/exact min-max,
// the same strategy the teacher's stats package applies throughout.
func quantizeParams(data []float32, maxCode int) channelParams {
	min, max, any := statsample.ApproxMinMax(data, rawimage.IsNoData, 4096)
	if !any {
		return channelParams{MinVal: 0, Scale: 1}
	}
	validCodes := float32(maxCode - 1)
	scale := (max - min) / validCodes
	if scale <= 0 || math.IsNaN(float64(scale)) {
		scale = 1
	}
	return channelParams{MinVal: min, Scale: scale}
}

func encodeCode(v float32, p channelParams, maxCode int) int {
	if rawimage.IsNoData(v) {
		return maxCode
	}
	code := int(math.Round(float64((v - p.MinVal) / p.Scale)))
	if code < 0 {
		code = 0
	}
	if code > maxCode-1 {
		code = maxCode - 1
	}
	return code
}

func decodeCode(code, maxCode int, p channelParams) float32 {
	if code == maxCode {
		return rawimage.NoData
	}
	return p.MinVal + float32(code)*p.Scale
}

// Psi returns the ψ value for image i at pixel (x,y), decoding the
// stored representation as needed.
func (a *PsiPhiArray) Psi(i, y, x int) float32 {
	return a.get(i, y, x, a.PsiNumBytes, a.psiF32, a.psiU8, a.psiU16, a.psiParams, NoDataCode8, NoDataCode16)
}

// Phi returns the φ value for image i at pixel (x,y), decoding the
// stored representation as needed.
func (a *PsiPhiArray) Phi(i, y, x int) float32 {
	return a.get(i, y, x, a.PhiNumBytes, a.phiF32, a.phiU8, a.phiU16, a.phiParams, NoDataCode8, NoDataCode16)
}

func (a *PsiPhiArray) get(i, y, x, numBytes int, f32 []float32, u8 []byte, u16 []uint16, params []channelParams, maxCode8, maxCode16 int) float32 {
	id := idx(i, y, x, a.Height, a.Width)
	switch numBytes {
	case 0, 4:
		return f32[id]
	case 1:
		return decodeCode(int(u8[id]), maxCode8, params[i])
	case 2:
		return decodeCode(int(u16[id]), maxCode16, params[i])
	default:
		panic("psiphi: invalid channel width")
	}
}

// Release returns the array's backing buffers to the shared pools, so
// repeated searches against the same stack don't repeatedly allocate
// (spec.md §4.3's array pool wiring, mirroring the teacher's ClearPools
// memory discipline).
func (a *PsiPhiArray) Release() {
	if a.psiF32 != nil {
		pool.Float32.Put(a.psiF32)
		a.psiF32 = nil
	}
	if a.phiF32 != nil {
		pool.Float32.Put(a.phiF32)
		a.phiF32 = nil
	}
	if a.psiU8 != nil {
		pool.Byte.Put(a.psiU8)
		a.psiU8 = nil
	}
	if a.phiU8 != nil {
		pool.Byte.Put(a.phiU8)
		a.phiU8 = nil
	}
	if a.psiU16 != nil {
		pool.Uint16.Put(a.psiU16)
		a.psiU16 = nil
	}
	if a.phiU16 != nil {
		pool.Uint16.Put(a.phiU16)
		a.phiU16 = nil
	}
}
