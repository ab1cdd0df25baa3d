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

import "container/heap"

// topK retains the best K candidates seen for one pixel, keyed by the
// spec.md §4.4 tie-break order, as a bounded min-heap over "worseness":
// the root is always the current worst kept candidate, so a new
// candidate can be accepted or rejected in O(log K).
type topK struct {
	items []Trajectory
	k     int
}

func newTopK(k int) *topK {
	return &topK{items: make([]Trajectory, 0, k), k: k}
}

// Len, Less, Swap, Push, Pop implement container/heap.Interface. Less(i,j)
// is true when items[i] is worse than items[j], so Pop yields the worst
// kept candidate.
func (t *topK) Len() int      { return len(t.items) }
func (t *topK) Swap(i, j int) { t.items[i], t.items[j] = t.items[j], t.items[i] }
func (t *topK) Less(i, j int) bool {
	return better(t.items[j], t.items[i])
}
func (t *topK) Push(x interface{}) { t.items = append(t.items, x.(Trajectory)) }
func (t *topK) Pop() interface{} {
	old := t.items
	n := len(old)
	item := old[n-1]
	t.items = old[:n-1]
	return item
}

// Offer inserts traj if it belongs among the K best, evicting the
// current worst kept candidate if the set is already full.
func (t *topK) Offer(traj Trajectory) {
	if t.k <= 0 {
		return
	}
	if t.Len() < t.k {
		heap.Push(t, traj)
		return
	}
	if better(traj, t.items[0]) {
		t.items[0] = traj
		heap.Fix(t, 0)
	}
}
