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

// Command kbmod is a thin flag-driven CLI wrapper around the search
// core, in the shape of the teacher's cmd/nightlight: a flag.Usage
// banner, a verb argument, and a JSON job file read via -job for
// anything structured (here, a stack description plus search
// parameters) instead of the teacher's FITS command-line arguments,
// since FITS ingestion and CLI argument design are both named as
// external-collaborator concerns in the core's own scope statement —
// the core takes in-memory records, this file is the plumbing around
// it.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"runtime/debug"
	"time"

	"github.com/mlnoga/kbmod/internal/imagestack"
	"github.com/mlnoga/kbmod/internal/log"
	"github.com/mlnoga/kbmod/internal/rawimage"
	"github.com/mlnoga/kbmod/internal/rest"
	"github.com/mlnoga/kbmod/internal/search"
)

const version = "0.1.0"

var port = flag.Int64("port", 8080, "port for serving HTTP API")
var chroot = flag.String("chroot", "", "directory to chroot and chdir to when serving HTTP. must be run as root")
var setuid = flag.Int64("setuid", -1, "user id number to setuid to when serving HTTP. must be run as root")
var job = flag.String("job", "", "JSON job specification to run, see jobSpec")
var maxResults = flag.Int64("maxResults", 50, "maximum number of trajectories to print")
var logFile = flag.String("log", "", "save log output to `file`")

// imageSpec is the JSON representation of one LayeredImage in a job
// file, mirroring internal/rest's wire format.
type imageSpec struct {
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Science   []float32 `json:"science"`
	Variance  []float32 `json:"variance"`
	Mask      []uint32  `json:"mask"`
	MJD       float64   `json:"mjd"`
	PSFSigma  float32   `json:"psf_sigma"`
	MaskFlags uint32    `json:"mask_flags"`
}

// jobSpec is the -job file format: a stack of images plus search
// parameters and grid.
type jobSpec struct {
	Images []imageSpec       `json:"images"`
	Params search.Parameters `json:"params"`
	Grid   search.Grid       `json:"grid"`
}

func (s imageSpec) toLayeredImage() (*imagestack.LayeredImage, error) {
	sci := rawimage.NewFromData(s.Width, s.Height, s.Science)
	vary := rawimage.NewFromData(s.Width, s.Height, s.Variance)
	mask := imagestack.NewMaskImage(s.Width, s.Height)
	if len(s.Mask) > 0 {
		copy(mask.Data, s.Mask)
	}
	psf := rawimage.NewGaussianPSF(s.PSFSigma)
	return imagestack.NewLayeredImage(sci, vary, mask, s.MJD, psf, s.MaskFlags)
}

func loadJob(path string) (*jobSpec, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading job file: %w", err)
	}
	var j jobSpec
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, fmt.Errorf("parsing job file: %w", err)
	}
	return &j, nil
}

func runSearch(j *jobSpec) error {
	layered := make([]*imagestack.LayeredImage, len(j.Images))
	for i, spec := range j.Images {
		li, err := spec.toLayeredImage()
		if err != nil {
			return err
		}
		layered[i] = li
	}
	stack, err := imagestack.NewImageStack(layered)
	if err != nil {
		return err
	}

	params := j.Params
	if params.ResultsPerPixel == 0 {
		params = search.DefaultParameters(stack.Width, stack.Height)
	}
	grid := j.Grid
	if grid.VSteps == 0 {
		grid = search.DefaultGrid(grid.RefAngle)
	}

	s := search.New(stack)
	start := time.Now()
	results, err := s.Search(params, grid, 0)
	if err != nil {
		return err
	}
	log.Infof("search %s completed in %s, %d trajectories found\n", s.ID, time.Since(start), len(results))

	n := len(results)
	if int64(n) > *maxResults {
		n = int(*maxResults)
	}
	fmt.Printf("%6s %6s %10s %10s %10s %8s %8s\n", "x", "y", "vx", "vy", "likelihood", "flux", "obs")
	for _, r := range results[:n] {
		fmt.Printf("%6d %6d %10.3f %10.3f %10.3f %8.3f %8d\n", r.X, r.Y, r.VX, r.VY, r.Likelihood, r.Flux, r.ObsCount)
	}
	return nil
}

func main() {
	debug.SetGCPercent(10)
	flag.Usage = func() {
		fmt.Fprintf(os.Stdout, `kbmod Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (search|serve|legal|version)

Commands:
  search  Run the trajectory grid search described by -job against an in-memory image stack
  serve   Serve the search core as an HTTP API
  legal   Show license and attribution information
  version Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *logFile != "" {
		if err := log.AlsoToFile(*logFile); err != nil {
			log.Fatalf("unable to open log file %s: %s\n", *logFile, err.Error())
		}
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	switch args[0] {
	case "serve":
		rest.MakeSandbox(*chroot, int(*setuid))
		rest.Serve(int(*port))

	case "search":
		if *job == "" {
			log.Fatalf("search requires -job <file>\n")
		}
		j, err := loadJob(*job)
		if err != nil {
			log.Fatalf("%s\n", err.Error())
		}
		if err := runSearch(j); err != nil {
			log.Fatalf("%s\n", err.Error())
		}

	case "legal":
		fmt.Println(legal)

	case "version":
		fmt.Printf("kbmod version %s\n", version)

	default:
		flag.Usage()
	}

	log.Sync()
}
