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

import (
    `gonum.org/v1/gonum/graph`
    `gonum.org/v1/gonum/graph/simple`
    `gonum.org/v1/gonum/graph/topo`

    `github.com/slimdex/slimdex/internal/dex`
)

// RegValueKind tags the vertex variants of the aliasing graph.
type RegValueKind uint8

const (
    RegNone RegValueKind = iota
    RegRegister
    RegLiteral
    RegString
    RegType
)

// RegValue is a vertex of the aliasing graph: either a register or a
// constant (literal, string handle, type handle). The struct is
// comparable, so it doubles as its own map key.
type RegValue struct {
    Kind    RegValueKind
    Reg     uint32
    Literal int64
    Str     *dex.String
    Typ     *dex.Type
}

func RegisterValue(r uint32) RegValue  { return RegValue { Kind: RegRegister, Reg: r } }
func LiteralValue(v int64) RegValue    { return RegValue { Kind: RegLiteral, Literal: v } }
func StringValue(s *dex.String) RegValue { return RegValue { Kind: RegString, Str: s } }
func TypeValue(t *dex.Type) RegValue     { return RegValue { Kind: RegType, Typ: t } }

// Aliases is an undirected graph whose vertices are register-values
// and whose edges mean "definitely the same value". The transitive
// closure is implicit: alias queries compute connected components on
// demand and cache the component map until the next mutation.
type Aliases struct {
    g     *simple.UndirectedGraph
    ids   map[RegValue]int64
    vals  map[int64]RegValue
    comps map[int64]int
}

func NewAliases() *Aliases {
    return &Aliases {
        g    : simple.NewUndirectedGraph(),
        ids  : make(map[RegValue]int64),
        vals : make(map[int64]RegValue),
    }
}

func (self *Aliases) findOrCreate(r RegValue) int64 {
    if id, ok := self.ids[r]; ok {
        return id
    }
    n := self.g.NewNode()
    self.g.AddNode(n)
    self.ids[r] = n.ID()
    self.vals[n.ID()] = r
    return n.ID()
}

/* any change to the graph invalidates the component cache */
func (self *Aliases) invalidateCache() {
    self.comps = nil
}

func (self *Aliases) components() map[int64]int {
    if self.comps == nil {
        self.comps = make(map[int64]int, len(self.ids))
        for i, cc := range topo.ConnectedComponents(self.g) {
            for _, n := range cc {
                self.comps[n.ID()] = i
            }
        }
    }
    return self.comps
}

// MakeAliased declares r1 and r2 aliases of each other; through the
// implicit closure, r1 becomes aliased to all of r2's aliases and
// vice versa.
func (self *Aliases) MakeAliased(r1 RegValue, r2 RegValue) {
    u := self.findOrCreate(r1)
    v := self.findOrCreate(r2)
    if u != v && !self.g.HasEdgeBetween(u, v) {
        self.g.SetEdge(self.g.NewEdge(simple.Node(u), simple.Node(v)))
    }
    self.invalidateCache()
}

// BreakAlias removes every edge incident to r; aliases among r's
// ex-neighbours are preserved.
func (self *Aliases) BreakAlias(r RegValue) {
    id, ok := self.ids[r]
    if !ok {
        return
    }

    adj := make([]int64, 0, 4)
    for it := self.g.From(id); it.Next(); {
        adj = append(adj, it.Node().ID())
    }
    for _, v := range adj {
        self.g.RemoveEdge(id, v)
    }
    self.invalidateCache()
}

// AreAliases reports whether x and y are in the same component,
// transitive aliases included.
func (self *Aliases) AreAliases(x RegValue, y RegValue) bool {
    if x == y {
        return true
    }
    u, ok1 := self.ids[x]
    v, ok2 := self.ids[y]
    if !ok1 || !ok2 {
        return false
    }
    cc := self.components()
    return cc[u] == cc[v]
}

// GetRepresentative picks the lowest-numbered register aliased to r,
// for replacing a source use by an already-live equivalent register.
func (self *Aliases) GetRepresentative(r RegValue) (uint32, bool) {
    id, ok := self.ids[r]
    if !ok {
        return 0, false
    }

    cc := self.components()
    best, found := uint32(0), false
    for vid, val := range self.vals {
        if cc[vid] != cc[id] || val.Kind != RegRegister {
            continue
        }
        if val == r {
            continue
        }
        if !found || val.Reg < best {
            best, found = val.Reg, true
        }
    }
    return best, found
}

/* the set of aliased vertex pairs, i.e. the transitive closure the
 * lattice operations are defined over */
func (self *Aliases) pairs() map[[2]RegValue]struct{} {
    cc := self.components()
    buckets := make(map[int][]RegValue)
    for id, val := range self.vals {
        buckets[cc[id]] = append(buckets[cc[id]], val)
    }

    out := make(map[[2]RegValue]struct{})
    for _, vs := range buckets {
        for i := 0; i < len(vs); i++ {
            for j := i + 1; j < len(vs); j++ {
                out[orderPair(vs[i], vs[j])] = struct{}{}
            }
        }
    }
    return out
}

func orderPair(a RegValue, b RegValue) [2]RegValue {
    if regValueLess(b, a) {
        a, b = b, a
    }
    return [2]RegValue { a, b }
}

func regValueLess(a RegValue, b RegValue) bool {
    if a.Kind != b.Kind {
        return a.Kind < b.Kind
    }
    switch a.Kind {
        case RegRegister : return a.Reg < b.Reg
        case RegLiteral  : return a.Literal < b.Literal
        default          : return false
    }
}

/* ---------- AbstractValue ---------- */

func (self *Aliases) Clear() {
    *self = *NewAliases()
}

func (self *Aliases) Kind() Kind {
    return KindValue
}

func (self *Aliases) Clone() *Aliases {
    na := NewAliases()
    for val := range self.ids {
        na.findOrCreate(val)
    }
    for it := self.g.Edges(); it.Next(); {
        e := it.Edge()
        u := na.ids[self.vals[e.From().ID()]]
        v := na.ids[self.vals[e.To().ID()]]
        na.g.SetEdge(na.g.NewEdge(simple.Node(u), simple.Node(v)))
    }
    return na
}

// Leq: an aliasing state is smaller (more precise) when it implies
// every alias pair the other state has.
func (self *Aliases) Leq(other *Aliases) bool {
    mine := self.pairs()
    for p := range other.pairs() {
        if _, ok := mine[p]; !ok {
            return false
        }
    }
    return true
}

func (self *Aliases) Equals(other *Aliases) bool {
    mine, theirs := self.pairs(), other.pairs()
    if len(mine) != len(theirs) {
        return false
    }
    for p := range mine {
        if _, ok := theirs[p]; !ok {
            return false
        }
    }
    return true
}

/* join keeps only the alias pairs provable on both incoming paths */
func (self *Aliases) JoinWith(other *Aliases) Kind {
    theirs := other.pairs()
    keep := make([][2]RegValue, 0, len(theirs))
    for p := range self.pairs() {
        if _, ok := theirs[p]; ok {
            keep = append(keep, p)
        }
    }

    self.Clear()
    for _, p := range keep {
        self.MakeAliased(p[0], p[1])
    }
    return KindValue
}

func (self *Aliases) WidenWith(other *Aliases) Kind {
    return self.JoinWith(other)
}

/* meet accumulates both sides' alias knowledge */
func (self *Aliases) MeetWith(other *Aliases) Kind {
    for p := range other.pairs() {
        self.MakeAliased(p[0], p[1])
    }
    return KindValue
}

func (self *Aliases) NarrowWith(other *Aliases) Kind {
    return self.MeetWith(other)
}

var _ graph.Undirected = (*simple.UndirectedGraph)(nil)

// AliasDomain is the sum-of-states wrapper passes interact with.
type AliasDomain = Domain[*Aliases]

func TopAliases() AliasDomain {
    return TopDomain[*Aliases]()
}

func ValueAliases(a *Aliases) AliasDomain {
    return ValueDomain[*Aliases](a)
}
