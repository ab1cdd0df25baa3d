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

package search

import "math"

// Parameters holds spec.md §3's SearchParameters, the knobs governing
// per-candidate acceptance and per-pixel retention.
type Parameters struct {
	MinObservations int     `json:"min_observations"`
	MinLH           float32 `json:"min_lh"`

	DoSigmaGFilter bool    `json:"do_sigmag_filter"`
	SGL_L          float64 `json:"sgl_l"` // percentile bound in [0,100], default 25
	SGL_H          float64 `json:"sgl_h"` // percentile bound in [0,100], default 75
	SigmaGCoeff    float64 `json:"sigmag_coeff"` // default 0.7413

	PsiNumBytes int `json:"psi_num_bytes"` // 0 or 4 (float32), 1 or 2
	PhiNumBytes int `json:"phi_num_bytes"` // 0 or 4 (float32), 1 or 2

	XStartMin int `json:"x_start_min"`
	XStartMax int `json:"x_start_max"`
	YStartMin int `json:"y_start_min"`
	YStartMax int `json:"y_start_max"`

	ResultsPerPixel int `json:"results_per_pixel"` // default 8
}

// DefaultParameters returns spec.md §6's configuration defaults.
func DefaultParameters(width, height int) Parameters {
	return Parameters{
		MinObservations: 7,
		MinLH:           10,
		DoSigmaGFilter:  true,
		SGL_L:           25,
		SGL_H:           75,
		SigmaGCoeff:     0.7413,
		PsiNumBytes:     0,
		PhiNumBytes:     0,
		XStartMin:       0,
		XStartMax:       width,
		YStartMin:       0,
		YStartMax:       height,
		ResultsPerPixel: 8,
	}
}

// Grid is the velocity/angle grid configuration of spec.md §4.4 and §6's
// v_arr / ang_arr. Angles are offsets around a reference angle supplied
// by the caller (spec.md §9's open question: the core never infers a
// reference angle from WCS).
type Grid struct {
	VMin   float64 `json:"v_min"`
	VMax   float64 `json:"v_max"`
	VSteps int     `json:"v_steps"`

	RefAngle float64 `json:"ref_angle"` // radians, externally supplied
	AngBelow float64 `json:"ang_below"` // radians, offset around RefAngle
	AngAbove float64 `json:"ang_above"` // radians, offset around RefAngle
	AngSteps int     `json:"ang_steps"`
}

// DefaultGrid returns spec.md §6's default grid, centered on refAngle.
func DefaultGrid(refAngle float64) Grid {
	return Grid{
		VMin: 0, VMax: 20, VSteps: 21,
		RefAngle: refAngle,
		AngBelow: 0.5, AngAbove: 0.5, AngSteps: 11,
	}
}

// Velocity is one grid point (vx,vy) in pixels/day.
type Velocity struct {
	VX, VY float64
}

// Generate enumerates angle_steps x velocity_steps velocity vectors with
// uniform, half-open spacing on each axis: step = (max-min)/steps, value
// = min + k*step for k in [0, steps) (spec.md §4.4). The grid is dense
// and independent of start pixel.
func (g Grid) Generate() []Velocity {
	if g.VSteps <= 0 || g.AngSteps <= 0 {
		return nil
	}
	vStep := (g.VMax - g.VMin) / float64(g.VSteps)
	angMin := g.RefAngle - g.AngBelow
	angMax := g.RefAngle + g.AngAbove
	angStep := (angMax - angMin) / float64(g.AngSteps)

	out := make([]Velocity, 0, g.VSteps*g.AngSteps)
	for vi := 0; vi < g.VSteps; vi++ {
		v := g.VMin + float64(vi)*vStep
		for ai := 0; ai < g.AngSteps; ai++ {
			theta := angMin + float64(ai)*angStep
			out = append(out, Velocity{
				VX: v * math.Cos(theta),
				VY: v * math.Sin(theta),
			})
		}
	}
	return out
}
