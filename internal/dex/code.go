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

// ItemKind tags the variants of a method item entry.
type ItemKind uint8

const (
    KindInsn ItemKind = iota
    KindTryStart
    KindTryEnd
    KindCatch
    KindTarget
    KindPosition
    KindDebug
    KindFallThrough
)

// Position is a source position entry; parents chain through inlined
// frames.
type Position struct {
    File   *String
    Line   uint32
    Parent *Position
}

// Item is one entry of the editable instruction sequence. Items form
// an intrusive doubly-linked list owned by a Code. A KindTarget item
// back-links the branching instruction it belongs to, so branch
// targets stay stable across arbitrary edits; integer offsets only
// exist in raw form.
type Item struct {
    prev *Item
    next *Item

    Kind      ItemKind
    Insn      *Insn
    Source    *Item     // KindTarget: the branching item
    CatchType *Type     // KindCatch: nil means catch-all
    TryIndex  int       // KindTryStart/TryEnd/KindCatch pairing
    Pos       *Position // KindPosition
}

func (self *Item) Prev() *Item { return self.prev }
func (self *Item) Next() *Item { return self.next }

// NextInsn finds the next instruction item at or after self.
func (self *Item) NextInsn() *Item {
    for p := self; p != nil; p = p.next {
        if p.Kind == KindInsn {
            return p
        }
    }
    return nil
}

// Code is a method body in editable form.
type Code struct {
    head *Item
    tail *Item
    regs uint32
}

func NewCode(registers uint32) *Code {
    return &Code { regs: registers }
}

func (self *Code) RegistersSize() uint32 {
    return self.regs
}

func (self *Code) SetRegistersSize(n uint32) {
    self.regs = n
}

// AllocateTemp reserves a fresh symbolic register.
func (self *Code) AllocateTemp() uint32 {
    r := self.regs
    self.regs++
    return r
}

func (self *Code) Front() *Item { return self.head }
func (self *Code) Back() *Item  { return self.tail }

func (self *Code) PushBack(p *Item) *Item {
    p.prev, p.next = self.tail, nil
    if self.tail != nil {
        self.tail.next = p
    } else {
        self.head = p
    }
    self.tail = p
    return p
}

func (self *Code) PushBackInsn(ins *Insn) *Item {
    return self.PushBack(&Item { Kind: KindInsn, Insn: ins })
}

func (self *Code) InsertBefore(at *Item, p *Item) *Item {
    p.prev, p.next = at.prev, at
    if at.prev != nil {
        at.prev.next = p
    } else {
        self.head = p
    }
    at.prev = p
    return p
}

func (self *Code) InsertAfter(at *Item, p *Item) *Item {
    p.prev, p.next = at, at.next
    if at.next != nil {
        at.next.prev = p
    } else {
        self.tail = p
    }
    at.next = p
    return p
}

func (self *Code) Remove(p *Item) {
    if p.prev != nil {
        p.prev.next = p.next
    } else {
        self.head = p.next
    }
    if p.next != nil {
        p.next.prev = p.prev
    } else {
        self.tail = p.prev
    }
    p.prev, p.next = nil, nil
}

// ForEachInsn visits every instruction item in order until fn returns
// false.
func (self *Code) ForEachInsn(fn func(*Item) bool) {
    for p := self.head; p != nil; p = p.next {
        if p.Kind == KindInsn {
            if !fn(p) {
                return
            }
        }
    }
}

// ParamItems returns the leading block of load-param instructions.
// Parameters always sit at the very front of the body.
func (self *Code) ParamItems() []*Item {
    rr := make([]*Item, 0, 4)
    for p := self.head; p != nil; p = p.next {
        if p.Kind != KindInsn {
            continue
        }
        if !p.Insn.Op().IsLoadParam() {
            break
        }
        rr = append(rr, p)
    }
    return rr
}

// TargetsOf collects the target items back-linking each branching
// instruction item, in list order.
func (self *Code) TargetsOf() map[*Item][]*Item {
    tgt := make(map[*Item][]*Item)
    for p := self.head; p != nil; p = p.next {
        if p.Kind == KindTarget && p.Source != nil {
            tgt[p.Source] = append(tgt[p.Source], p)
        }
    }
    return tgt
}

// AddBranch links a target item for the given branching item at the
// given position.
func (self *Code) AddBranch(branch *Item, before *Item) *Item {
    t := &Item { Kind: KindTarget, Source: branch }
    if before == nil {
        return self.PushBack(t)
    }
    return self.InsertBefore(before, t)
}

// CountInsns returns the number of instruction items.
func (self *Code) CountInsns() int {
    n := 0
    for p := self.head; p != nil; p = p.next {
        if p.Kind == KindInsn {
            n++
        }
    }
    return n
}
