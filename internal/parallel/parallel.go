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

// Package parallel bounds concurrent fan-out over a slice of inputs,
// generalized from the teacher's OpParallel (internal/ops/operator.go),
// which ran one FITS operator per input frame behind a semaphore channel.
// Here the same shape applies to ψ/φ generation across an image stack:
// one goroutine per layered image, bounded by MaxThreads, errors
// aggregated rather than dropped.
package parallel

import (
	"errors"
	"fmt"
	"runtime"
)

// MaxThreads returns a sensible default degree of concurrency when the
// caller has not specified one explicitly.
func MaxThreads(requested int) int {
	if requested > 0 {
		return requested
	}
	return runtime.NumCPU()
}

// Map applies fn to every element of in concurrently, with concurrency
// bounded by maxThreads, and returns the results in input order. If any
// call to fn errors, Map returns all errors joined together; results for
// failed indices are the zero value.
func Map[T, R any](in []T, maxThreads int, fn func(int, T) (R, error)) ([]R, error) {
	out := make([]R, len(in))
	if len(in) == 0 {
		return out, nil
	}
	sem := make(chan struct{}, MaxThreads(maxThreads))
	errCh := make(chan error, len(in))

	for i, item := range in {
		sem <- struct{}{}
		go func(i int, item T) {
			defer func() { <-sem }()
			r, err := fn(i, item)
			if err != nil {
				errCh <- fmt.Errorf("item %d: %w", i, err)
				return
			}
			out[i] = r
			errCh <- nil
		}(i, item)
	}
	for i := 0; i < cap(sem); i++ {
		sem <- struct{}{} // wait for all goroutines to finish
	}

	var errs []error
	for i := 0; i < len(in); i++ {
		if err := <-errCh; err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return out, errors.Join(errs...)
	}
	return out, nil
}
