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

package regalloc

import (
    `github.com/slimdex/slimdex/internal/dex`
    `github.com/slimdex/slimdex/internal/fixpoint`
    `github.com/slimdex/slimdex/internal/ptree`
)

/* a register slot index can never exceed the widest encoding */
const maxAnyVreg = 0xffff

// Node is one interference-graph vertex: a symbolic register with the
// encoding constraints accumulated from every instruction slot it
// appears in.
type Node struct {
    adj     map[uint32]bool
    width   uint32
    maxVreg uint32
    param   bool
    inRange bool
    spilt   bool
    active  bool
    weight  uint32
}

func newNode() *Node {
    return &Node {
        adj     : make(map[uint32]bool),
        width   : 1,
        maxVreg : maxAnyVreg,
        active  : true,
    }
}

func (self *Node) Width() uint32    { return self.width }
func (self *Node) MaxVreg() uint32  { return self.maxVreg }
func (self *Node) IsParam() bool    { return self.param }
func (self *Node) IsRange() bool    { return self.inRange }
func (self *Node) IsSpilt() bool    { return self.spilt }
func (self *Node) IsActive() bool   { return self.active }
func (self *Node) Weight() uint32   { return self.weight }

// Adjacent lists the neighbouring registers.
func (self *Node) Adjacent() []uint32 {
    rr := make([]uint32, 0, len(self.adj))
    for r := range self.adj {
        rr = append(rr, r)
    }
    return rr
}

// DefinitelyColorable: the neighbours cannot occupy the whole
// restricted register space, so some slot must remain for this node.
func (self *Node) DefinitelyColorable() bool {
    return self.weight + self.width <= self.maxVreg + 1
}

func (self *Node) constrain(max uint32) {
    if max < self.maxVreg {
        self.maxVreg = max
    }
}

// Graph is the interference graph plus the per-instruction liveness
// the range-promotion heuristic consults. Containment edges (one
// register live across the other's definition) are tracked separately
// and only used to veto splits.
type Graph struct {
    nodes       map[uint32]*Node
    containment map[[2]uint32]bool
    liveAt      map[*dex.Insn]ptree.Set
}

func (self *Graph) Node(r uint32) *Node {
    n, ok := self.nodes[r]
    if !ok {
        panic("regalloc: no interference node for register")
    }
    return n
}

func (self *Graph) node(r uint32) *Node {
    n, ok := self.nodes[r]
    if !ok {
        n = newNode()
        self.nodes[r] = n
    }
    return n
}

// ActiveNodes returns the registers whose nodes are still in play.
func (self *Graph) ActiveNodes() []uint32 {
    rr := make([]uint32, 0, len(self.nodes))
    for r, n := range self.nodes {
        if n.active {
            rr = append(rr, r)
        }
    }
    return rr
}

func (self *Graph) Interferes(a uint32, b uint32) bool {
    if n, ok := self.nodes[a]; ok {
        return n.adj[b]
    }
    return false
}

func (self *Graph) addEdge(a uint32, b uint32) {
    if a == b {
        return
    }
    na, nb := self.node(a), self.node(b)
    if !na.adj[b] {
        na.adj[b] = true
        nb.adj[a] = true
        na.weight += nb.width
        nb.weight += na.width
    }
}

func (self *Graph) addContainment(outer uint32, inner uint32) {
    if outer != inner {
        self.containment[[2]uint32 { outer, inner }] = true
    }
}

// HasContainmentEdge reports whether outer's live range strictly
// contains inner's definition point.
func (self *Graph) HasContainmentEdge(outer uint32, inner uint32) bool {
    return self.containment[[2]uint32 { outer, inner }]
}

// LivenessAt is the live-out set recorded at the instruction.
func (self *Graph) LivenessAt(ins *dex.Insn) ptree.Set {
    return self.liveAt[ins]
}

// IsCoalesceable: two nodes may merge when they do not interfere.
func (self *Graph) IsCoalesceable(a uint32, b uint32) bool {
    if a == b {
        return false
    }
    return !self.Interferes(a, b)
}

// Combine merges child's node into parent's after coalescing.
func (self *Graph) Combine(parent uint32, child uint32) {
    p, c := self.Node(parent), self.Node(child)
    for r := range c.adj {
        if r != parent {
            self.addEdge(parent, r)
        }
        delete(self.nodes[r].adj, child)
    }
    p.constrain(c.maxVreg)
    p.param = p.param || c.param
    p.inRange = p.inRange || c.inRange
    p.spilt = p.spilt || c.spilt
    c.active = false
    delete(self.nodes, child)
}

// RemoveNode takes a register out of play during simplify and updates
// the neighbours' weights.
func (self *Graph) RemoveNode(r uint32) {
    n := self.Node(r)
    n.active = false
    for adj := range n.adj {
        if an, ok := self.nodes[adj]; ok && an.active {
            if an.weight >= n.width {
                an.weight -= n.width
            } else {
                an.weight = 0
            }
        }
    }
}

/* apply the encoding constraints of one instruction to its operand
 * nodes; sources of range-form instructions are only bounded by the
 * 16-bit range encoding */
func (self *Graph) updateConstraints(ins *dex.Insn, rs *RangeSet) {
    op := ins.Op()

    if ins.DestsSize() != 0 {
        n := self.node(ins.Dest())
        if op.HasWideDest() {
            n.width = 2
        }
        if op.IsLoadParam() {
            n.param = true
        }
        n.constrain(dex.MaxUnsignedValue(ins.DestBitWidth()))
    }

    ranged := rs.Contains(ins)
    for i, r := range ins.Srcs() {
        n := self.node(r)
        if ins.SrcIsWide(i) {
            n.width = 2
        }
        if ranged {
            n.inRange = true
            n.constrain(maxAnyVreg)
            continue
        }
        max := dex.MaxUnsignedValue(ins.SrcBitWidth(i))
        if op.IsInvoke() && n.width == 2 {
            /* one vreg is reserved for denormalizing the wide pair */
            max--
        }
        n.constrain(max)
    }
}

// BuildGraph constructs the interference graph from the liveness
// fixpoint: every def interferes with everything live after it, with
// the usual exception for the source of a move. Registers at or above
// initialRegs are temporaries minted by an earlier spill round.
func BuildGraph(code *dex.Code, cfg *dex.CFG, lv *fixpoint.Liveness, initialRegs uint32, rs *RangeSet) *Graph {
    g := &Graph {
        nodes       : make(map[uint32]*Node),
        containment : make(map[[2]uint32]bool),
        liveAt      : make(map[*dex.Insn]ptree.Set),
    }

    /* every register mentioned anywhere gets a node with the right
     * constraints, even if it never interferes */
    code.ForEachInsn(func(p *dex.Item) bool {
        g.updateConstraints(p.Insn, rs)
        return true
    })
    for r, n := range g.nodes {
        if r >= initialRegs {
            n.spilt = true
        }
    }

    resultReg := lv.ResultReg()
    for _, bb := range cfg.Blocks() {
        lv.ReplayBlock(bb, func(p *dex.Item, after ptree.Set, _ ptree.Set) {
            ins := p.Insn
            g.liveAt[ins] = after

            if ins.DestsSize() == 0 {
                return
            }

            dest := ins.Dest()
            moveSrc := uint32(maxAnyVreg + 1)
            if ins.Op().IsMove() {
                moveSrc = ins.Src(0)
            }

            after.Range(func(l uint64) bool {
                if l == resultReg {
                    return true
                }
                r := uint32(l)
                if r == dest || r == moveSrc {
                    return true
                }
                g.addEdge(dest, r)
                g.addContainment(r, dest)
                return true
            })
        })
    }
    return g
}
