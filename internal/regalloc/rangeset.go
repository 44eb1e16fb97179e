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
)

// RangeSet is the set of instructions that will be encoded in range
// (contiguous-operand) form. The set only ever grows during the
// allocation loop.
type RangeSet struct {
    set   map[*dex.Insn]bool
    order []*dex.Insn
}

func NewRangeSet() *RangeSet {
    return &RangeSet { set: make(map[*dex.Insn]bool) }
}

func (self *RangeSet) Contains(ins *dex.Insn) bool {
    return self.set[ins]
}

func (self *RangeSet) Add(ins *dex.Insn) {
    if !self.set[ins] {
        self.set[ins] = true
        self.order = append(self.order, ins)
    }
}

func (self *RangeSet) Insns() []*dex.Insn {
    return self.order
}

func (self *RangeSet) Len() int {
    return len(self.order)
}

// InitRangeSet pins the instructions whose summed source width cannot
// fit the enumerated encoding: wide filled-new-arrays and invokes.
func InitRangeSet(code *dex.Code) *RangeSet {
    rs := NewRangeSet()
    code.ForEachInsn(func(p *dex.Item) bool {
        ins := p.Insn
        op := ins.Op()
        isRange := false
        if op == dex.OpFilledNewArray {
            isRange = ins.SrcsSize() > dex.NonRangeMaxOperands
        } else if op.IsInvoke() && !op.IsRange() {
            isRange = ins.SumSrcSizes() > dex.NonRangeMaxOperands
        }
        if isRange {
            rs.Add(ins)
        }
        return true
    })
    return rs
}
