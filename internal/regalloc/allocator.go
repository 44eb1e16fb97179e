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

// Package regalloc is the graph-colouring register allocator. The
// overall structure is the classic build-coalesce-simplify-select
// loop, adjusted for a bytecode whose operand encodings bound the
// register index per opcode slot, whose wide values occupy register
// pairs, which has contiguous-operand (range) instruction forms, and
// which places parameters at the high end of the frame.
package regalloc

import (
    `fmt`
    `sort`

    `github.com/davecgh/go-spew/spew`
    `github.com/oleiade/lane`
    `github.com/slimdex/slimdex/internal/dex`
    `github.com/slimdex/slimdex/internal/fixpoint`
    `github.com/slimdex/slimdex/internal/opts`
)

const invalidScore = int(^uint(0) >> 1)

/* the largest register index usable by a non-range encoding */
const nonRangeMaxVreg = 15

// RegMap maps symbolic registers to their assigned vregs.
type RegMap map[uint32]uint32

// RegisterTransform is the outcome of select: the assignment plus the
// frame size it implies.
type RegisterTransform struct {
    Map  RegMap
    Size uint32
}

// SpillPlan records everything select could not colour.
type SpillPlan struct {
    GlobalSpills map[uint32]uint32
    SpillCosts   map[uint32]uint32
    RangeSpills  map[*dex.Insn]map[uint32]bool
    ParamSpills  map[uint32]bool
}

func newSpillPlan() *SpillPlan {
    return &SpillPlan {
        GlobalSpills : make(map[uint32]uint32),
        SpillCosts   : make(map[uint32]uint32),
        RangeSpills  : make(map[*dex.Insn]map[uint32]bool),
        ParamSpills  : make(map[uint32]bool),
    }
}

func (self *SpillPlan) Empty() bool {
    return len(self.GlobalSpills) == 0 && len(self.RangeSpills) == 0 && len(self.ParamSpills) == 0
}

// Stats counts the allocator's work across methods; Accumulate is the
// reducer used by the parallel driver.
type Stats struct {
    ReiterationCount uint64
    ParamSpillMoves  uint64
    RangeSpillMoves  uint64
    GlobalSpillMoves uint64
    SplitMoves       uint64
    MovesCoalesced   uint64
    ParamsSpillEarly uint64
}

func (self *Stats) Accumulate(that *Stats) {
    self.ReiterationCount += that.ReiterationCount
    self.ParamSpillMoves += that.ParamSpillMoves
    self.RangeSpillMoves += that.RangeSpillMoves
    self.GlobalSpillMoves += that.GlobalSpillMoves
    self.SplitMoves += that.SplitMoves
    self.MovesCoalesced += that.MovesCoalesced
    self.ParamsSpillEarly += that.ParamsSpillEarly
}

func (self *Stats) MovesInserted() uint64 {
    return self.ParamSpillMoves + self.RangeSpillMoves + self.GlobalSpillMoves + self.SplitMoves
}

// Allocator allocates one method body at a time; it has no
// user-visible failure mode and always terminates with a legal
// colouring via unbounded spilling.
type Allocator struct {
    Stats        Stats
    UseSplitting bool
    Debug        bool
}

func genMove(wide bool, dest uint32, src uint32) *dex.Insn {
    if wide {
        return dex.NewInsn(dex.OpMoveWide, dest, src)
    }
    return dex.NewInsn(dex.OpMove, dest, src)
}

func remapRegisters(code *dex.Code, m RegMap) {
    code.ForEachInsn(func(p *dex.Item) bool {
        ins := p.Insn
        if ins.DestsSize() != 0 {
            if v, ok := m[ins.Dest()]; ok {
                ins.SetDest(v)
            }
        }
        for i := range ins.Srcs() {
            if v, ok := m[ins.Src(i)]; ok {
                ins.SetSrc(i, v)
            }
        }
        return true
    })
}

/* union-find over symbolic registers, used only by coalesce */
type aliasSets struct {
    parent map[uint32]uint32
    rank   map[uint32]uint32
}

func newAliasSets(n uint32) *aliasSets {
    a := &aliasSets { parent: make(map[uint32]uint32, n), rank: make(map[uint32]uint32, n) }
    for i := uint32(0); i < n; i++ {
        a.parent[i] = i
    }
    return a
}

func (self *aliasSets) find(r uint32) uint32 {
    for self.parent[r] != r {
        self.parent[r] = self.parent[self.parent[r]]
        r = self.parent[r]
    }
    return r
}

func (self *aliasSets) link(a uint32, b uint32) {
    ra, rb := self.find(a), self.find(b)
    if ra == rb {
        return
    }
    if self.rank[ra] < self.rank[rb] {
        ra, rb = rb, ra
    }
    self.parent[rb] = ra
    if self.rank[ra] == self.rank[rb] {
        self.rank[ra]++
    }
}

/*
 * Coalesce symregs where a more compact encoding is possible: moves
 * whose src and dest do not interfere (the move disappears), 2addr-
 * eligible arithmetic, and check-casts with identical src and dest.
 * Only run on the first iteration, because spill/reload moves are
 * moves too and must not be coalesced away again.
 */
func (self *Allocator) coalesce(g *Graph, code *dex.Code) bool {
    aliases := newAliasSets(code.RegistersSize())
    old := self.Stats.MovesCoalesced

    var dead []*dex.Item
    code.ForEachInsn(func(p *dex.Item) bool {
        ins := p.Insn
        op := ins.Op()
        if !op.IsMove() && !op.Has2addrForm() && !op.IsCheckCast() {
            return true
        }

        dest := aliases.find(ins.Dest())
        src := aliases.find(ins.Src(0))

        if dest == src {
            if op.IsMove() {
                self.Stats.MovesCoalesced++
                dead = append(dead, p)
            }
            return true
        }

        if g.IsCoalesceable(dest, src) {
            aliases.link(dest, src)

            /* link does not say which root survived */
            parent, child := dest, src
            if aliases.find(dest) != dest {
                parent, child = src, dest
            }
            g.Combine(parent, child)

            if op.IsMove() {
                self.Stats.MovesCoalesced++
                dead = append(dead, p)
            }
        }
        return true
    })

    for _, p := range dead {
        code.Remove(p)
    }

    m := make(RegMap, code.RegistersSize())
    for i := uint32(0); i < code.RegistersSize(); i++ {
        m[i] = aliases.find(i)
    }
    remapRegisters(code, m)
    return self.Stats.MovesCoalesced != old
}

/* pop the smallest register from a worklist set */
func popMin(set map[uint32]bool) uint32 {
    first, min := true, uint32(0)
    for r := range set {
        if first || r < min {
            first, min = false, r
        }
    }
    delete(set, min)
    return min
}

/*
 * Simplify: repeatedly push definitely-colourable nodes onto the
 * select stack; when none remain, move one high node over
 * optimistically (preferring nodes that have not been spilt yet), so
 * that by the time select re-encounters it all its heavy neighbours
 * are coloured and may share slots. Param and range nodes never go on
 * the stack here.
 */
func (self *Allocator) simplify(g *Graph, selectStack *lane.Stack) {
    low := make(map[uint32]bool)
    high := make(map[uint32]bool)

    for _, reg := range g.ActiveNodes() {
        node := g.Node(reg)
        if node.IsParam() || node.IsRange() {
            continue
        }
        if node.DefinitelyColorable() {
            low[reg] = true
        } else {
            high[reg] = true
        }
    }

    for {
        for len(low) > 0 {
            reg := popMin(low)
            node := g.Node(reg)
            selectStack.Push(reg)
            g.RemoveNode(reg)
            for _, adj := range node.Adjacent() {
                an, ok := g.nodes[adj]
                if !ok || !an.IsActive() || an.IsParam() || an.IsRange() {
                    continue
                }
                if an.DefinitelyColorable() {
                    low[adj] = true
                    delete(high, adj)
                }
            }
        }
        if len(high) == 0 {
            return
        }

        /* optimistic colouring */
        candidate, found := uint32(0), false
        for r := range high {
            if !g.Node(r).IsSpilt() && (!found || r < candidate) {
                candidate, found = r, true
            }
        }
        if !found {
            candidate = popMin(high)
        } else {
            delete(high, candidate)
        }
        low[candidate] = true
    }
}

/* mark the vregs already taken by coloured neighbours */
func markAdjacent(g *Graph, reg uint32, regMap RegMap, file *VRegFile) {
    for _, adj := range g.Node(reg).Adjacent() {
        if v, ok := regMap[adj]; ok {
            file.AllocAt(v, g.Node(adj).Width())
        }
    }
}

/*
 * Select: pop the stack and assign each node the lowest contiguous
 * free slots; a node whose lowest fit exceeds its max encodable vreg
 * becomes a global spill. Range- and param-related nodes are handled
 * by their own phases.
 */
func (self *Allocator) selectRegs(g *Graph, selectStack *lane.Stack, xform *RegisterTransform, plan *SpillPlan) {
    size := uint32(0)
    for !selectStack.Empty() {
        reg := selectStack.Pop().(uint32)
        node := g.Node(reg)

        var file VRegFile
        markAdjacent(g, reg, xform.Map, &file)

        vreg := file.Alloc(node.Width())
        if vreg <= node.MaxVreg() {
            xform.Map[reg] = vreg
        } else {
            plan.GlobalSpills[reg] = vreg
            plan.SpillCosts[reg] = 0
        }
        if file.Size() > size {
            size = file.Size()
        }
    }
    xform.Size = size
}

/*
 * Liberal heuristic: if a non-range instruction with N operands is to
 * be allocated without spilling, there must be N low vregs not live
 * out at it. Wide operands complicate the fit, so anything touching a
 * wide register is promoted outright. It may promote an instruction
 * that could have stayed non-range; that is a deliberate trade.
 */
func shouldConvertToRange(g *Graph, plan *SpillPlan, ins *dex.Insn) bool {
    if !ins.Op().HasRangeForm() {
        return false
    }

    hasWide := false
    hasSpill := false
    srcSet := make(map[uint32]bool, ins.SrcsSize())
    for i, src := range ins.Srcs() {
        srcSet[src] = true
        if ins.SrcIsWide(i) {
            hasWide = true
        }
        if _, ok := plan.GlobalSpills[src]; ok {
            hasSpill = true
        }
    }
    if !hasSpill {
        return false
    }
    if hasWide {
        return true
    }

    lowRegsOccupied := uint32(0)
    wideLow := false
    if live := g.LivenessAt(ins); !live.IsEmpty() {
        live.Range(func(l uint64) bool {
            r := uint32(l)
            node, ok := g.nodes[r]
            if !ok || node.MaxVreg() > nonRangeMaxVreg || srcSet[r] {
                return true
            }
            if node.Width() > 1 {
                wideLow = true
                return false
            }
            lowRegsOccupied++
            return true
        })
    }
    if wideLow {
        return true
    }
    return uint32(ins.SrcsSize()) + lowRegsOccupied > nonRangeMaxVreg + 1
}

func (self *Allocator) chooseRangePromotions(g *Graph, code *dex.Code, plan *SpillPlan, rs *RangeSet) {
    code.ForEachInsn(func(p *dex.Item) bool {
        if shouldConvertToRange(g, plan, p.Insn) {
            rs.Add(p.Insn)
        }
        return true
    })
}

/* count the spills a contiguous run starting at base would need */
func scoreRangeFit(g *Graph, rangeRegs []uint32, base uint32,
                   files map[uint32]*VRegFile, regMap RegMap) int {
    score := 0
    vreg := base
    for _, reg := range rangeRegs {
        node := g.Node(reg)
        file := files[reg]
        if !file.IsFree(vreg, node.Width()) {
            return invalidScore
        }
        mapped, ok := regMap[reg]
        if (ok && mapped != vreg) || vreg > node.MaxVreg() {
            score++
        }
        vreg += node.Width()
    }
    return score
}

func findBestRangeFit(g *Graph, rangeRegs []uint32, start uint32, end uint32,
                      files map[uint32]*VRegFile, regMap RegMap) uint32 {
    minScore := invalidScore
    base := uint32(0)
    for i := start; i <= end; i++ {
        score := scoreRangeFit(g, rangeRegs, i, files, regMap)
        if score < minScore {
            minScore = score
            base = i
        }
        if minScore == 0 {
            break
        }
    }
    if minScore == invalidScore {
        panic("regalloc: no feasible range base")
    }
    return base
}

/* map a range instruction's operands to a contiguous run; operands
 * that do not fit or are already mapped elsewhere become range spills */
func fitRangeInstruction(g *Graph, ins *dex.Insn, base uint32,
                         files map[uint32]*VRegFile, xform *RegisterTransform, plan *SpillPlan) {
    vreg := base
    for _, src := range ins.Srcs() {
        node := g.Node(src)
        mapped, ok := xform.Map[src]
        if vreg > node.MaxVreg() || (ok && mapped != vreg) {
            if plan.RangeSpills[ins] == nil {
                plan.RangeSpills[ins] = make(map[uint32]bool)
            }
            plan.RangeSpills[ins][src] = true
        } else {
            if !files[src].IsFree(vreg, node.Width()) {
                panic("regalloc: range slot not free after scoring")
            }
            xform.Map[src] = vreg
        }
        vreg += node.Width()
    }
    if vreg > xform.Size {
        xform.Size = vreg
    }
}

/*
 * Range instructions can address operands of any size, so they run
 * after ordinary select and let the non-range nodes keep the low
 * vregs.
 */
func (self *Allocator) selectRanges(g *Graph, rs *RangeSet, xform *RegisterTransform, plan *SpillPlan) {
    for _, ins := range rs.Insns() {
        files := make(map[uint32]*VRegFile, ins.SrcsSize())
        for _, src := range ins.Srcs() {
            file := &VRegFile{}
            markAdjacent(g, src, xform.Map, file)
            files[src] = file
        }

        base := findBestRangeFit(g, ins.Srcs(), 0, xform.Size, files, xform.Map)
        fitRangeInstruction(g, ins, base, files, xform, plan)
    }
}

/*
 * Parameters must occupy the frame tail contiguously: pick a base so
 * that base + params size lands exactly at the frame end.
 */
func (self *Allocator) selectParams(g *Graph, code *dex.Code, xform *RegisterTransform, plan *SpillPlan) {
    files := make(map[uint32]*VRegFile)
    paramRegs := make([]uint32, 0, 4)
    paramsSize := uint32(0)

    params := code.ParamItems()
    for _, p := range params {
        dest := p.Insn.Dest()
        paramsSize += g.Node(dest).Width()
        paramRegs = append(paramRegs, dest)
        file := &VRegFile{}
        markAdjacent(g, dest, xform.Map, file)
        files[dest] = file
    }
    if len(params) == 0 {
        return
    }

    minParamReg := uint32(0)
    if xform.Size >= paramsSize {
        minParamReg = xform.Size - paramsSize
    }
    base := findBestRangeFit(g, paramRegs, minParamReg, xform.Size, files, xform.Map)

    vreg := base
    for _, p := range params {
        dest := p.Insn.Dest()
        node := g.Node(dest)
        mapped, ok := xform.Map[dest]
        if vreg > node.MaxVreg() || (ok && mapped != vreg) {
            plan.ParamSpills[dest] = true
        } else {
            xform.Map[dest] = vreg
        }
        vreg += node.Width()
    }
    if vreg > xform.Size {
        xform.Size = vreg
    }
}

func maxValueForSrc(g *Graph, ins *dex.Insn, i int) uint32 {
    max := dex.MaxUnsignedValue(ins.SrcBitWidth(i))
    if ins.Op().IsInvoke() && g.Node(ins.Src(i)).Width() == 2 {
        max--
    }
    return max
}

/* a spill cost is one increment per use or def that would have needed
 * the wider encoding */
func (self *Allocator) spillCosts(g *Graph, code *dex.Code, rs *RangeSet, plan *SpillPlan) {
    code.ForEachInsn(func(p *dex.Item) bool {
        ins := p.Insn
        if rs.Contains(ins) {
            return true
        }
        for i, src := range ins.Srcs() {
            if v, ok := plan.GlobalSpills[src]; ok && v > maxValueForSrc(g, ins, i) {
                plan.SpillCosts[src]++
            }
        }
        if ins.DestsSize() != 0 {
            dest := ins.Dest()
            if v, ok := plan.GlobalSpills[dest]; ok && v > dex.MaxUnsignedValue(ins.DestBitWidth()) {
                plan.SpillCosts[dest]++
            }
        }
        return true
    })
}

/*
 * Insert loads before every use of a globally spilled symreg, and
 * stores after defs. Range operands spill with a single load just
 * before the range instruction; param spills were already handled.
 */
func (self *Allocator) spill(g *Graph, plan *SpillPlan, rs *RangeSet, code *dex.Code, newTemps map[uint32]bool) {
    var items []*dex.Item
    code.ForEachInsn(func(p *dex.Item) bool { items = append(items, p); return true })

    for _, p := range items {
        ins := p.Insn
        if rs.Contains(ins) {
            toSpill := plan.RangeSpills[ins]
            for i, src := range ins.Srcs() {
                if !toSpill[src] {
                    continue
                }
                node := g.Node(src)
                temp := code.AllocateTemp()
                ins.SetSrc(i, temp)
                newTemps[temp] = true
                code.InsertBefore(p, &dex.Item { Kind: dex.KindInsn, Insn: genMove(node.Width() == 2, temp, src) })
                self.Stats.RangeSpillMoves++
            }
            continue
        }

        for i, src := range ins.Srcs() {
            if newTemps[src] {
                continue
            }
            if v, ok := plan.GlobalSpills[src]; ok && v > maxValueForSrc(g, ins, i) {
                node := g.Node(src)
                temp := code.AllocateTemp()
                ins.SetSrc(i, temp)
                code.InsertBefore(p, &dex.Item { Kind: dex.KindInsn, Insn: genMove(node.Width() == 2, temp, src) })
                self.Stats.GlobalSpillMoves++
            }
        }
        if ins.DestsSize() != 0 {
            dest := ins.Dest()
            if v, ok := plan.GlobalSpills[dest]; ok && v > dex.MaxUnsignedValue(ins.DestBitWidth()) {
                node := g.Node(dest)
                temp := code.AllocateTemp()
                ins.SetDest(temp)
                code.InsertAfter(p, &dex.Item { Kind: dex.KindInsn, Insn: genMove(node.Width() == 2, dest, temp) })
                self.Stats.GlobalSpillMoves++
            }
        }
    }
}

/*
 * Spilt parameters relocate their first-use load either right after
 * the load-param block or just before the first real use: overwritten
 * params load eagerly, the rest search forward from the entry,
 * falling back to a block-end load when more than one live successor
 * would each need its own copy.
 */
func (self *Allocator) findParamFirstUses(orig map[uint32]bool, code *dex.Code, cfg *dex.CFG,
                                          lv *fixpoint.Liveness) map[uint32][]*dex.Item {
    loadParam := make(map[uint32][]*dex.Item)
    if len(orig) == 0 {
        return loadParam
    }

    params := make(map[uint32]bool, len(orig))
    for r := range orig {
        params[r] = true
    }

    /* params overwritten later load right after the param block */
    var paramEnd *dex.Item
    if pp := code.ParamItems(); len(pp) != 0 {
        paramEnd = pp[len(pp) - 1].Next()
    }
    code.ForEachInsn(func(p *dex.Item) bool {
        ins := p.Insn
        if ins.Op().IsLoadParam() || ins.DestsSize() == 0 {
            return true
        }
        if params[ins.Dest()] {
            delete(params, ins.Dest())
            loadParam[ins.Dest()] = append(loadParam[ins.Dest()], paramEnd)
            self.Stats.ParamsSpillEarly++
        }
        return true
    })
    if len(params) == 0 {
        return loadParam
    }

    for param := range params {
        visited := make(map[*dex.Block]bool)
        findFirstUses(cfg.Entry(), param, lv, loadParam, visited)
    }
    return loadParam
}

/* breadth-first-ish walk for the first uses of one parameter */
func findFirstUses(bb *dex.Block, param uint32, lv *fixpoint.Liveness,
                   loadParam map[uint32][]*dex.Item, visited map[*dex.Block]bool) {
    visited[bb] = true

    found := false
    bb.ForEachInsn(func(p *dex.Item) bool {
        for _, src := range p.Insn.Srcs() {
            if src == param {
                loadParam[param] = append(loadParam[param], p)
                found = true
                return false
            }
        }
        return true
    })
    if found {
        return
    }

    /* more than one live successor: load at block end to avoid a copy
     * per branch, staying in front of a trailing branch or thrower */
    count := 0
    for _, e := range bb.Succs() {
        if lv.LiveIn(e.Dst).Contains(uint64(param)) && !visited[e.Dst] {
            count++
        }
    }
    if count > 1 {
        at := bb.Last()
        if at != nil && at.Kind == dex.KindInsn {
            op := at.Insn.Op()
            if !op.IsBranch() && !op.MayThrow() && !op.IsGoto() {
                at = at.Next()
            }
        }
        loadParam[param] = append(loadParam[param], at)
        return
    }

    for _, e := range bb.Succs() {
        if lv.LiveIn(e.Dst).Contains(uint64(param)) && !visited[e.Dst] {
            findFirstUses(e.Dst, param, lv, loadParam, visited)
        }
    }
}

func (self *Allocator) spillParams(g *Graph, loadParam map[uint32][]*dex.Item, code *dex.Code, newTemps map[uint32]bool) {
    paramToTemp := make(map[uint32]uint32, len(loadParam))
    for _, p := range code.ParamItems() {
        ins := p.Insn
        dest := ins.Dest()
        if _, ok := loadParam[dest]; ok {
            temp := code.AllocateTemp()
            ins.SetDest(temp)
            newTemps[temp] = true
            paramToTemp[dest] = temp
        }
    }
    for dest, uses := range loadParam {
        wide := g.Node(dest).Width() == 2
        for _, at := range uses {
            mv := &dex.Item { Kind: dex.KindInsn, Insn: genMove(wide, dest, paramToTemp[dest]) }
            if at == nil {
                code.PushBack(mv)
            } else {
                code.InsertBefore(at, mv)
            }
            self.Stats.ParamSpillMoves++
        }
    }
}

/*
 * The main loop. Differences from textbook Chaitin-Briggs: coalescing
 * only runs the first time around (spill and reload moves are moves
 * too), and range and parameter registers get their own select
 * phases because the standard algorithm has no notion of either.
 */
func (self *Allocator) Allocate(code *dex.Code) {
    rangeSet := InitRangeSet(code)
    initialRegs := code.RegistersSize()
    first := true

    for {
        plan := newSpillPlan()
        splitPlan := newSplitPlan()
        xform := &RegisterTransform { Map: make(RegMap) }

        cfg := code.BuildCFG()
        lv := fixpoint.RunLiveness(code, cfg)
        g := BuildGraph(code, cfg, lv, initialRegs, rangeSet)

        if first {
            self.coalesce(g, code)
            first = false
        } else if self.Stats.ReiterationCount++; self.Stats.ReiterationCount >= uint64(opts.MaxSpillRounds) {
            /* reiteration this deep means the loop stopped making
             * progress, which is a bug, not an input property */
            panic(fmt.Sprintf("regalloc: reiteration cap hit (%d), allocator is not making progress", opts.MaxSpillRounds))
        }

        selectStack := lane.NewStack()
        self.simplify(g, selectStack)
        self.selectRegs(g, selectStack, xform, plan)

        self.chooseRangePromotions(g, code, plan, rangeSet)
        self.selectRanges(g, rangeSet, xform, plan)
        self.selectParams(g, code, xform, plan)

        if self.Debug {
            spew.Config.SortKeys = true
            spew.Dump(plan)
        }

        if plan.Empty() {
            remapRegisters(code, xform.Map)
            code.SetRegistersSize(xform.Size)
            convertRangeForms(code, rangeSet)
            return
        }

        splitCosts := newSplitCosts()
        if self.UseSplitting {
            self.spillCosts(g, code, rangeSet, plan)
            calcSplitCosts(code, cfg, lv, splitCosts)
            self.findSplit(g, splitCosts, xform, plan, splitPlan)
        }

        newTemps := make(map[uint32]bool)
        if loadParam := self.findParamFirstUses(plan.ParamSpills, code, cfg, lv); len(loadParam) != 0 {
            self.spillParams(g, loadParam, code, newTemps)
        }
        self.spill(g, plan, rangeSet, code, newTemps)

        if len(splitPlan.SplitAround) != 0 {
            self.Stats.SplitMoves += split(splitPlan, g, code)
        }
    }
}

/* rewrite promoted instructions into their range opcodes; operands
 * are contiguous by construction at this point */
func convertRangeForms(code *dex.Code, rs *RangeSet) {
    for _, ins := range rs.Insns() {
        if op := ins.Op(); op.HasRangeForm() {
            ins.SetOp(op.RangeForm())
        }
    }
}

/* deterministic ordering helper shared by the split logic */
func sortedRegs(m map[uint32]bool) []uint32 {
    rr := make([]uint32, 0, len(m))
    for r := range m {
        rr = append(rr, r)
    }
    sort.Slice(rr, func(i int, j int) bool { return rr[i] < rr[j] })
    return rr
}
