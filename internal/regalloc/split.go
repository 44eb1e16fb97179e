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
)

// SplitConstraints gathers, per register, everything that decides
// whether splitting it is legal and what it would cost.
type SplitConstraints struct {
    CatchBlocks map[*dex.Block]int
    OtherBlocks map[*dex.Block]int
    WriteResult map[*dex.Item]bool
    SplitStore  uint32
    SplitLoad   uint32
}

// SplitCosts indexes the constraints by register.
type SplitCosts struct {
    regs map[uint32]*SplitConstraints
}

func newSplitCosts() *SplitCosts {
    return &SplitCosts { regs: make(map[uint32]*SplitConstraints) }
}

func (self *SplitCosts) at(u uint32) *SplitConstraints {
    c, ok := self.regs[u]
    if !ok {
        c = &SplitConstraints {
            CatchBlocks : make(map[*dex.Block]int),
            OtherBlocks : make(map[*dex.Block]int),
            WriteResult : make(map[*dex.Item]bool),
        }
        self.regs[u] = c
    }
    return c
}

// TotalValueAt is the number of moves splitting u would insert.
func (self *SplitCosts) TotalValueAt(u uint32) uint32 {
    c := self.at(u)
    return c.SplitStore + c.SplitLoad
}

func (self *SplitCosts) DeathAtCatch(u uint32) map[*dex.Block]int {
    return self.at(u).CatchBlocks
}

func (self *SplitCosts) WriteResultOf(u uint32) map[*dex.Item]bool {
    return self.at(u).WriteResult
}

// SplitPlan maps a register to the set of registers that will be
// split around it.
type SplitPlan struct {
    SplitAround map[uint32]map[uint32]bool
}

func newSplitPlan() *SplitPlan {
    return &SplitPlan { SplitAround: make(map[uint32]map[uint32]bool) }
}

func (self *SplitPlan) add(around uint32, reg uint32) {
    if self.SplitAround[around] == nil {
        self.SplitAround[around] = make(map[uint32]bool)
    }
    self.SplitAround[around][reg] = true
}

// calcSplitCosts counts the loads and stores a split of each register
// would need, records which invokes feed a move-result into which
// register, and tallies on which incoming edges of each catch block
// a register dies.
func calcSplitCosts(code *dex.Code, cfg *dex.CFG, lv *fixpoint.Liveness, costs *SplitCosts) {
    var prev *dex.Item
    code.ForEachInsn(func(p *dex.Item) bool {
        ins := p.Insn
        for _, src := range ins.Srcs() {
            costs.at(src).SplitLoad++
        }
        if ins.DestsSize() != 0 {
            costs.at(ins.Dest()).SplitStore++
        }
        if ins.Op().IsMoveResult() && prev != nil && prev.Insn.Op().WritesResult() {
            costs.at(ins.Dest()).WriteResult[prev] = true
        }
        prev = p
        return true
    })

    for _, bb := range cfg.Blocks() {
        for _, e := range bb.Preds() {
            dead := lv.LiveOut(e.Src).Difference(lv.LiveIn(bb))
            dead.Range(func(r uint64) bool {
                if bb.IsCatch() {
                    costs.at(uint32(r)).CatchBlocks[bb]++
                } else {
                    costs.at(uint32(r)).OtherBlocks[bb]++
                }
                return true
            })
        }
    }
}

/* splitting v around u is illegal when it would interpose a move
 * between an invoke (or filled-new-array) and its move-result */
func badMoveResult(u uint32, v uint32, costs *SplitCosts) bool {
    for item := range costs.WriteResultOf(u) {
        for _, src := range item.Insn.Srcs() {
            if src == v {
                return true
            }
        }
    }
    return false
}

/* a register that dies on only some of a catch block's incoming
 * edges cannot be split across that try */
func badCatch(reg uint32, costs *SplitCosts) bool {
    for bb, n := range costs.DeathAtCatch(reg) {
        if len(bb.Preds()) != n {
            return true
        }
    }
    return false
}

/*
 * For every global spill candidate, look for a neighbour colour that
 * could be reused by narrowing someone's live range: either split the
 * colour's current holders around the candidate, or split the
 * candidate around the holders, whichever is cheaper than spilling.
 */
func (self *Allocator) findSplit(g *Graph, costs *SplitCosts, xform *RegisterTransform,
                                 plan *SpillPlan, splitPlan *SplitPlan) {
    for _, reg := range sortedRegs(boolKeys(plan.GlobalSpills)) {
        bestCost := plan.SpillCosts[reg]
        if bestCost == 0 {
            continue
        }

        /* vreg → the registers currently mapped to it */
        mappedNeighbors := make(map[uint32]map[uint32]bool)
        node := g.Node(reg)
        for _, adj := range node.Adjacent() {
            if v, ok := xform.Map[adj]; ok {
                if mappedNeighbors[v] == nil {
                    mappedNeighbors[v] = make(map[uint32]bool)
                }
                mappedNeighbors[v][adj] = true
            }
        }

        bestVreg := uint32(0)
        splitFound := false
        splitAroundName := false
        maxRegBound := node.MaxVreg()

        for _, vreg := range sortedVregs(mappedNeighbors) {
            if vreg > maxRegBound {
                continue
            }
            holders := mappedNeighbors[vreg]

            /* split the holders around reg */
            splitOK := true
            cost := uint32(0)
            for _, neighbor := range sortedRegs(holders) {
                if badMoveResult(reg, neighbor, costs) || g.HasContainmentEdge(neighbor, reg) {
                    splitOK = false
                    break
                }
                cost += costs.TotalValueAt(reg)
            }
            if splitOK && cost < bestCost && !badCatch(reg, costs) {
                bestCost = cost
                bestVreg = vreg
                splitAroundName = true
                splitFound = true
            }

            /* split reg around the holders */
            splitOK = true
            cost = 0
            for _, neighbor := range sortedRegs(holders) {
                if badMoveResult(neighbor, reg, costs) || g.HasContainmentEdge(reg, neighbor) || badCatch(neighbor, costs) {
                    splitOK = false
                    break
                }
                cost += costs.TotalValueAt(neighbor)
            }
            if splitOK && cost < bestCost {
                bestCost = cost
                bestVreg = vreg
                splitAroundName = false
                splitFound = true
            }
        }

        if splitFound {
            xform.Map[reg] = bestVreg
            for neighbor := range mappedNeighbors[bestVreg] {
                if splitAroundName {
                    splitPlan.add(reg, neighbor)
                } else {
                    splitPlan.add(neighbor, reg)
                }
            }
            delete(plan.GlobalSpills, reg)
        }
    }
}

/*
 * Execute the split plan: each register x listed in SplitAround[...]
 * values parks its value in a fresh temp after every def, and reloads
 * it before a use whenever one of the registers it splits around was
 * touched in between, which is exactly the region where x's colour
 * was lent out.
 */
func split(plan *SplitPlan, g *Graph, code *dex.Code) uint64 {
    moves := uint64(0)

    /* invert: for each register to split, the set it splits around */
    arounds := make(map[uint32]map[uint32]bool)
    for around, regs := range plan.SplitAround {
        for r := range regs {
            if arounds[r] == nil {
                arounds[r] = make(map[uint32]bool)
            }
            arounds[r][around] = true
        }
    }

    for _, x := range sortedRegs(boolSet(arounds)) {
        ys := arounds[x]
        wide := g.Node(x).Width() == 2
        temp := code.AllocateTemp()

        var items []*dex.Item
        code.ForEachInsn(func(p *dex.Item) bool { items = append(items, p); return true })

        displaced := false
        for _, p := range items {
            ins := p.Insn

            /* reload before a use once the colour was lent out */
            if displaced {
                for _, src := range ins.Srcs() {
                    if src == x {
                        code.InsertBefore(p, &dex.Item { Kind: dex.KindInsn, Insn: genMove(wide, x, temp) })
                        moves++
                        displaced = false
                        break
                    }
                }
            }

            /* a touch of any around-register displaces x */
            for _, src := range ins.Srcs() {
                if ys[src] {
                    displaced = true
                }
            }
            if ins.DestsSize() != 0 && ys[ins.Dest()] {
                displaced = true
            }

            /* park the value after each def of x */
            if ins.DestsSize() != 0 && ins.Dest() == x {
                code.InsertAfter(p, &dex.Item { Kind: dex.KindInsn, Insn: genMove(wide, temp, x) })
                moves++
                displaced = false
            }
        }
    }
    return moves
}

func boolKeys(m map[uint32]uint32) map[uint32]bool {
    out := make(map[uint32]bool, len(m))
    for k := range m {
        out[k] = true
    }
    return out
}

func boolSet(m map[uint32]map[uint32]bool) map[uint32]bool {
    out := make(map[uint32]bool, len(m))
    for k := range m {
        out[k] = true
    }
    return out
}

func sortedVregs(m map[uint32]map[uint32]bool) []uint32 {
    out := make(map[uint32]bool, len(m))
    for k := range m {
        out[k] = true
    }
    return sortedRegs(out)
}
