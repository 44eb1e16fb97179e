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

package dex

// Raw form is the flat load/store representation of a method body:
// instructions addressed by index, try ranges as index pairs, branch
// targets as indices. It only exists at container boundaries; all
// editing happens on the linked Code form. The conversion is lossless
// for everything the optimizer needs.

type RawHandler struct {
    Type      *Type // nil means catch-all
    TargetIdx int
}

type RawTry struct {
    StartIdx int
    EndIdx   int
    Handlers []RawHandler
}

type RawPosition struct {
    Idx  int
    Line uint32
    File *String
}

type RawDebug struct {
    Positions []RawPosition
}

type RawBranch struct {
    FromIdx int
    ToIdx   int
}

type RawCode struct {
    RegistersSize uint32
    Insns         []*Insn
    Branches      []RawBranch
    Tries         []RawTry
    Debug         *RawDebug
}

// ToRaw flattens the editable form.
func (self *Code) ToRaw() *RawCode {
    raw := &RawCode { RegistersSize: self.regs }

    /* index every instruction item */
    idx := make(map[*Item]int)
    for p := self.head; p != nil; p = p.next {
        if p.Kind == KindInsn {
            idx[p] = len(raw.Insns)
            raw.Insns = append(raw.Insns, p.Insn)
        }
    }

    /* resolve a marker to the index of the next instruction */
    insnIndexAt := func(p *Item) int {
        if q := p.NextInsn(); q != nil {
            return idx[q]
        }
        return len(raw.Insns)
    }

    /* branch targets become (from, to) index pairs */
    for p := self.head; p != nil; p = p.next {
        if p.Kind == KindTarget && p.Source != nil {
            raw.Branches = append(raw.Branches, RawBranch {
                FromIdx : idx[p.Source],
                ToIdx   : insnIndexAt(p),
            })
        }
    }

    /* try ranges and their handlers */
    tries := make(map[int]*RawTry)
    order := make([]int, 0, 4)
    for p := self.head; p != nil; p = p.next {
        switch p.Kind {
            case KindTryStart:
                tries[p.TryIndex] = &RawTry { StartIdx: insnIndexAt(p) }
                order = append(order, p.TryIndex)
            case KindTryEnd:
                if t := tries[p.TryIndex]; t != nil {
                    t.EndIdx = insnIndexAt(p)
                }
            case KindCatch:
                if t := tries[p.TryIndex]; t != nil {
                    t.Handlers = append(t.Handlers, RawHandler {
                        Type      : p.CatchType,
                        TargetIdx : insnIndexAt(p),
                    })
                }
        }
    }
    for _, ti := range order {
        raw.Tries = append(raw.Tries, *tries[ti])
    }

    /* debug positions */
    for p := self.head; p != nil; p = p.next {
        if p.Kind == KindPosition && p.Pos != nil {
            if raw.Debug == nil {
                raw.Debug = &RawDebug{}
            }
            raw.Debug.Positions = append(raw.Debug.Positions, RawPosition {
                Idx  : insnIndexAt(p),
                Line : p.Pos.Line,
                File : p.Pos.File,
            })
        }
    }
    return raw
}

// ToCode rebuilds the editable form: instruction items in order, a
// target item (back-linking its branch) before every branch target,
// try markers around their ranges, catch markers before handlers, and
// position items before their instructions.
func (self *RawCode) ToCode() *Code {
    code := NewCode(self.RegistersSize)

    items := make([]*Item, len(self.Insns))
    for i, ins := range self.Insns {
        items[i] = code.PushBackInsn(ins)
    }

    at := func(i int) *Item {
        if i < len(items) {
            return items[i]
        }
        return nil
    }

    insertMarker := func(i int, p *Item) {
        if q := at(i); q != nil {
            code.InsertBefore(q, p)
        } else {
            code.PushBack(p)
        }
    }

    for _, br := range self.Branches {
        insertMarker(br.ToIdx, &Item { Kind: KindTarget, Source: items[br.FromIdx] })
    }

    for ti, try := range self.Tries {
        insertMarker(try.StartIdx, &Item { Kind: KindTryStart, TryIndex: ti })
        insertMarker(try.EndIdx, &Item { Kind: KindTryEnd, TryIndex: ti })
        for _, h := range try.Handlers {
            insertMarker(h.TargetIdx, &Item { Kind: KindCatch, TryIndex: ti, CatchType: h.Type })
        }
    }

    if self.Debug != nil {
        for _, pos := range self.Debug.Positions {
            insertMarker(pos.Idx, &Item { Kind: KindPosition, Pos: &Position { File: pos.File, Line: pos.Line } })
        }
    }
    return code
}
