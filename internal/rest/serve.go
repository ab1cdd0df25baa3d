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

// Package rest exposes the search core over HTTP via gin, the way the
// teacher's internal/rest exposed its stacking pipeline as a job
// endpoint (internal/rest/serve.go). Request/response bodies replace
// the teacher's ops.OpSequence binding with the trajectory-search
// domain's own payloads. MakeSandbox is unchanged process hardening and
// lives in sandbox_unix.go / sandbox_windows.go.
package rest

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/mlnoga/kbmod/internal/imagestack"
	"github.com/mlnoga/kbmod/internal/rawimage"
	"github.com/mlnoga/kbmod/internal/search"
)

// imagePayload is the wire representation of one LayeredImage.
type imagePayload struct {
	Width     int       `json:"width" binding:"required"`
	Height    int       `json:"height" binding:"required"`
	Science   []float32 `json:"science" binding:"required"`
	Variance  []float32 `json:"variance" binding:"required"`
	Mask      []uint32  `json:"mask"`
	MJD       float64   `json:"mjd"`
	PSFSigma  float32   `json:"psf_sigma"`
	MaskFlags uint32    `json:"mask_flags"`
}

func (p imagePayload) toLayeredImage() (*imagestack.LayeredImage, error) {
	sci := rawimage.NewFromData(p.Width, p.Height, p.Science)
	vary := rawimage.NewFromData(p.Width, p.Height, p.Variance)
	mask := imagestack.NewMaskImage(p.Width, p.Height)
	if len(p.Mask) > 0 {
		copy(mask.Data, p.Mask)
	}
	psf := rawimage.NewGaussianPSF(p.PSFSigma)
	return imagestack.NewLayeredImage(sci, vary, mask, p.MJD, psf, p.MaskFlags)
}

// stackRequest is the POST /api/v1/stack body: validates a set of
// images into a stack and reports its derived, pre-search properties.
type stackRequest struct {
	Images              []imagePayload `json:"images" binding:"required"`
	GlobalMaskFlags     uint32         `json:"global_mask_flags"`
	GlobalMaskThreshold int            `json:"global_mask_threshold"`
}

type stackResponse struct {
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	NumImages    int       `json:"num_images"`
	ZeroedTimes  []float64 `json:"zeroed_times"`
	MaskedPixels int       `json:"global_masked_pixels"`
}

// searchRequest is the POST /api/v1/search body.
type searchRequest struct {
	Images     []imagePayload    `json:"images" binding:"required"`
	Params     search.Parameters `json:"params"`
	Grid       search.Grid       `json:"grid"`
	MaxThreads int               `json:"max_threads"`
	MaxResults int               `json:"max_results"`
}

func buildStack(images []imagePayload) (*imagestack.ImageStack, error) {
	layered := make([]*imagestack.LayeredImage, len(images))
	for i, p := range images {
		li, err := p.toLayeredImage()
		if err != nil {
			return nil, err
		}
		layered[i] = li
	}
	return imagestack.NewImageStack(layered)
}

// Serve starts the HTTP API on 0.0.0.0:port, mirroring the teacher's
// gin.Default()-based Serve (internal/rest/serve.go).
func Serve(port int) {
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/stack", postStack)
			v1.POST("/search", postSearch)
		}
	}
	r.Run(fmt.Sprintf(":%d", port))
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func postStack(c *gin.Context) {
	var req stackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	stack, err := buildStack(req.Images)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	resp := stackResponse{
		Width: stack.Width, Height: stack.Height,
		NumImages:   len(stack.Images),
		ZeroedTimes: stack.ZeroedTimes(),
	}
	if req.GlobalMaskThreshold > 0 {
		gm := stack.GlobalMask(req.GlobalMaskFlags, req.GlobalMaskThreshold)
		for _, v := range gm.Data {
			if v != 0 {
				resp.MaskedPixels++
			}
		}
	}
	c.JSON(http.StatusOK, resp)
	debug.FreeOSMemory()
}

func postSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	stack, err := buildStack(req.Images)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	params := req.Params
	if params.ResultsPerPixel == 0 {
		params = search.DefaultParameters(stack.Width, stack.Height)
	}
	s := search.New(stack)
	results, err := s.Search(params, req.Grid, req.MaxThreads)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if req.MaxResults > 0 && len(results) > req.MaxResults {
		results = results[:req.MaxResults]
	}
	c.JSON(http.StatusOK, gin.H{"search_id": s.ID, "results": results})
	debug.FreeOSMemory()
}
