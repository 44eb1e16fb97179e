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

package fixpoint

import (
    `github.com/slimdex/slimdex/internal/dex`
    `github.com/slimdex/slimdex/internal/ptree`
)

// LiveSet adapts the Patricia set of live registers to the iterator's
// lattice surface; join is union, order is inclusion.
type LiveSet struct {
    S ptree.Set
}

func (self LiveSet) Leq(other LiveSet) bool    { return self.S.Leq(other.S) }
func (self LiveSet) Equals(other LiveSet) bool { return self.S.Equals(other.S) }
func (self LiveSet) Join(other LiveSet) LiveSet  { return LiveSet { S: self.S.Union(other.S) } }
func (self LiveSet) Widen(other LiveSet) LiveSet { return self.Join(other) }

// Liveness is the backward liveness analysis over one method body.
// The invoke result register is modelled as an extra slot at index N
// (the registers size), so return-value flows are tracked like any
// other register.
type Liveness struct {
    res       *Result[LiveSet]
    resultReg uint64
}

// ResultReg is the synthetic register index modelling the invoke
// result slot.
func (self *Liveness) ResultReg() uint64 {
    return self.resultReg
}

/* kill the defs, then gen the uses, of one instruction */
func liveTransferInsn(ins *dex.Insn, live ptree.Set, resultReg uint64) ptree.Set {
    op := ins.Op()

    if ins.DestsSize() != 0 {
        live = live.Remove(uint64(ins.Dest()))
    }
    if op.WritesResult() {
        live = live.Remove(resultReg)
    }

    for _, r := range ins.Srcs() {
        live = live.Insert(uint64(r))
    }
    if op.IsMoveResult() {
        live = live.Insert(resultReg)
    }
    return live
}

// RunLiveness computes the fixpoint for the given code and cfg.
func RunLiveness(code *dex.Code, cfg *dex.CFG) *Liveness {
    lv := &Liveness { resultReg: uint64(code.RegistersSize()) }

    an := &Analysis[LiveSet] {
        Backward : true,
        Entry    : LiveSet{},
        Identity : LiveSet{},
        AnalyzeNode: func(bb *dex.Block, in LiveSet) LiveSet {
            live := in.S
            insns := bb.Insns()
            for i := len(insns) - 1; i >= 0; i-- {
                live = liveTransferInsn(insns[i].Insn, live, lv.resultReg)
            }
            return LiveSet { S: live }
        },
    }

    lv.res = an.Run(cfg)
    return lv
}

// LiveIn is the set of registers live on entry to the block.
func (self *Liveness) LiveIn(bb *dex.Block) ptree.Set {
    return self.res.ExitStateAt(bb).S
}

// LiveOut is the set of registers live on exit from the block.
func (self *Liveness) LiveOut(bb *dex.Block) ptree.Set {
    return self.res.EntryStateAt(bb).S
}

// ReplayBlock walks the block's instructions backwards, handing each
// one its live-after and live-before sets; this is how per-
// instruction states are recovered from block-level results.
func (self *Liveness) ReplayBlock(bb *dex.Block, fn func(p *dex.Item, liveAfter ptree.Set, liveBefore ptree.Set)) {
    live := self.LiveOut(bb)
    insns := bb.Insns()
    for i := len(insns) - 1; i >= 0; i-- {
        after := live
        live = liveTransferInsn(insns[i].Insn, live, self.resultReg)
        fn(insns[i], after, live)
    }
}

// LiveAt recovers the live-before set of one instruction item.
func (self *Liveness) LiveAt(bb *dex.Block, at *dex.Item) ptree.Set {
    var found ptree.Set
    self.ReplayBlock(bb, func(p *dex.Item, _ ptree.Set, before ptree.Set) {
        if p == at {
            found = before
        }
    })
    return found
}
