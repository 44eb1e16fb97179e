/*
 * Copyright 2024 Slimdex Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package domain

// Lattice is a finite lattice over a closed set of elements numbered
// 0..n-1, described by its immediate-predecessor relation. Elements
// are encoded as bit vectors of their down-sets, so ordering is a
// mask test and join/meet are precomputed table lookups.
type Lattice struct {
    n      int
    enc    []uint64
    joins  [][]uint8
    meets  [][]uint8
    bottom uint8
    top    uint8
}

// NewLattice builds the lattice from (lower, upper) covering pairs.
// The construction panics when the relation has no unique bottom/top
// or when some pair of elements lacks a least upper bound, which are
// construction-time programmer errors.
func NewLattice(n int, bottom uint8, top uint8, pairs [][2]uint8) *Lattice {
    if n > 64 {
        panic("domain: finite lattice limited to 64 elements")
    }

    /* down-set encoding: every element covers itself */
    enc := make([]uint64, n)
    for i := 0; i < n; i++ {
        enc[i] = 1 << uint(i)
    }

    /* transitive closure of the predecessor relation */
    for changed := true; changed; {
        changed = false
        for _, p := range pairs {
            lo, hi := p[0], p[1]
            if enc[hi] | enc[lo] != enc[hi] {
                enc[hi] |= enc[lo]
                changed = true
            }
        }
    }

    lat := &Lattice { n: n, enc: enc, bottom: bottom, top: top }
    lat.joins = lat.buildTable(lat.lub)
    lat.meets = lat.buildTable(lat.glb)
    return lat
}

func (self *Lattice) buildTable(op func(uint8, uint8) uint8) [][]uint8 {
    tab := make([][]uint8, self.n)
    for i := 0; i < self.n; i++ {
        tab[i] = make([]uint8, self.n)
        for j := 0; j < self.n; j++ {
            tab[i][j] = op(uint8(i), uint8(j))
        }
    }
    return tab
}

// leqElem is the down-set containment test.
func (self *Lattice) leqElem(x uint8, y uint8) bool {
    return self.enc[y] & self.enc[x] == self.enc[x]
}

func (self *Lattice) lub(x uint8, y uint8) uint8 {
    best := self.top
    for i := 0; i < self.n; i++ {
        e := uint8(i)
        if self.leqElem(x, e) && self.leqElem(y, e) && self.leqElem(e, best) {
            best = e
        }
    }
    if !self.leqElem(x, best) || !self.leqElem(y, best) {
        panic("domain: relation is not a lattice (no lub)")
    }
    return best
}

func (self *Lattice) glb(x uint8, y uint8) uint8 {
    best := self.bottom
    for i := 0; i < self.n; i++ {
        e := uint8(i)
        if self.leqElem(e, x) && self.leqElem(e, y) && self.leqElem(best, e) {
            best = e
        }
    }
    if !self.leqElem(best, x) || !self.leqElem(best, y) {
        panic("domain: relation is not a lattice (no glb)")
    }
    return best
}

func (self *Lattice) Leq(x uint8, y uint8) bool  { return self.leqElem(x, y) }
func (self *Lattice) Join(x uint8, y uint8) uint8 { return self.joins[x][y] }
func (self *Lattice) Meet(x uint8, y uint8) uint8 { return self.meets[x][y] }
func (self *Lattice) Bottom() uint8 { return self.bottom }
func (self *Lattice) Top() uint8    { return self.top }
