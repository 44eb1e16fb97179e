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

// EdgeKind labels a control-flow edge.
type EdgeKind uint8

const (
    EdgeGoto EdgeKind = iota
    EdgeBranch
    EdgeThrow
)

func (self EdgeKind) String() string {
    switch self {
        case EdgeGoto   : return "goto"
        case EdgeBranch : return "branch"
        case EdgeThrow  : return "throw"
        default         : return "?"
    }
}

type Edge struct {
    Src  *Block
    Dst  *Block
    Kind EdgeKind
}

// Block is a maximal straight-line item sequence. first/last are
// iterators into the underlying code list; the CFG holds no copies,
// so any edit that moves items across block boundaries requires a
// rebuild.
type Block struct {
    id    int
    first *Item
    last  *Item
    preds []*Edge
    succs []*Edge
}

func (self *Block) ID() int         { return self.id }
func (self *Block) First() *Item    { return self.first }
func (self *Block) Last() *Item     { return self.last }
func (self *Block) Preds() []*Edge  { return self.preds }
func (self *Block) Succs() []*Edge  { return self.succs }

// IsCatch reports whether the block is a catch handler entry.
func (self *Block) IsCatch() bool {
    return self.first != nil && self.first.Kind == KindCatch
}

// ForEachInsn visits the block's instruction items in order.
func (self *Block) ForEachInsn(fn func(*Item) bool) {
    for p := self.first; p != nil; p = p.next {
        if p.Kind == KindInsn {
            if !fn(p) {
                return
            }
        }
        if p == self.last {
            return
        }
    }
}

// Insns collects the block's instruction items.
func (self *Block) Insns() []*Item {
    rr := make([]*Item, 0, 8)
    self.ForEachInsn(func(p *Item) bool { rr = append(rr, p); return true })
    return rr
}

// CFG is the block graph over one method body. Entry and exit are
// distinguished; exit is synthetic and carries no items.
type CFG struct {
    blocks []*Block
    entry  *Block
    exit   *Block
}

func (self *CFG) Blocks() []*Block { return self.blocks }
func (self *CFG) Entry() *Block    { return self.entry }
func (self *CFG) Exit() *Block     { return self.exit }

func addEdge(src *Block, dst *Block, kind EdgeKind) {
    e := &Edge { Src: src, Dst: dst, Kind: kind }
    src.succs = append(src.succs, e)
    dst.preds = append(dst.preds, e)
}

/* a terminator forces the next item into a new block */
func isTerminator(p *Item) bool {
    if p.Kind != KindInsn {
        return false
    }
    op := p.Insn.Op()
    return op.IsGoto() || op.IsBranch() || op.IsReturn() || op.IsThrow()
}

// BuildCFG constructs a fresh CFG. Rebuilding is cheap and is the
// required response to any edit that invalidates block boundaries.
func (self *Code) BuildCFG() *CFG {
    cfg := &CFG{}
    starts := make(map[*Item]bool)

    /* block leaders: list head, branch targets, catch entries, and
     * whatever follows a terminator */
    for p := self.head; p != nil; p = p.next {
        if p == self.head || p.Kind == KindTarget || p.Kind == KindCatch {
            starts[p] = true
        }
        if isTerminator(p) && p.next != nil {
            starts[p.next] = true
        }
    }

    /* carve the item list into blocks */
    var cur *Block
    blockOf := make(map[*Item]*Block)
    for p := self.head; p != nil; p = p.next {
        if starts[p] || cur == nil {
            cur = &Block { id: len(cfg.blocks), first: p }
            cfg.blocks = append(cfg.blocks, cur)
        }
        cur.last = p
        blockOf[p] = cur
    }

    /* synthetic exit */
    cfg.exit = &Block { id: len(cfg.blocks) }
    cfg.blocks = append(cfg.blocks, cfg.exit)

    if len(cfg.blocks) > 1 {
        cfg.entry = cfg.blocks[0]
    } else {
        cfg.entry = cfg.exit
        return cfg
    }

    /* catch handlers per try index */
    catches := make(map[int][]*Block)
    for p := self.head; p != nil; p = p.next {
        if p.Kind == KindCatch {
            catches[p.TryIndex] = append(catches[p.TryIndex], blockOf[p])
        }
    }

    /* active try ranges per block */
    activeTries := make(map[*Block][]int)
    open := make([]int, 0, 4)
    for p := self.head; p != nil; p = p.next {
        switch p.Kind {
            case KindTryStart : open = append(open, p.TryIndex)
            case KindTryEnd   : open = removeTry(open, p.TryIndex)
        }
        if p.Kind == KindInsn && p.Insn.Op().MayThrow() && len(open) != 0 {
            bb := blockOf[p]
            activeTries[bb] = mergeTries(activeTries[bb], open)
        }
    }

    tgt := self.TargetsOf()

    /* wire the edges */
    for i, bb := range cfg.blocks {
        if bb == cfg.exit {
            continue
        }

        last := bb.last
        fall := (*Block)(nil)
        if i + 1 < len(cfg.blocks) - 1 {
            fall = cfg.blocks[i + 1]
        }

        if last.Kind == KindInsn {
            op := last.Insn.Op()
            switch {
                case op.IsReturn():
                    addEdge(bb, cfg.exit, EdgeGoto)

                case op.IsThrow():
                    self.addThrowEdges(cfg, bb, activeTries, catches)

                case op.IsGoto():
                    for _, t := range tgt[last] {
                        addEdge(bb, blockOf[t], EdgeGoto)
                    }

                case op.IsBranch():
                    for _, t := range tgt[last] {
                        addEdge(bb, blockOf[t], EdgeBranch)
                    }
                    if fall != nil {
                        addEdge(bb, fall, EdgeGoto)
                    }

                default:
                    if fall != nil {
                        addEdge(bb, fall, EdgeGoto)
                    }
            }
        } else if fall != nil {
            addEdge(bb, fall, EdgeGoto)
        }

        /* in-try throwing blocks reach their handlers */
        if len(activeTries[bb]) != 0 && !(last.Kind == KindInsn && last.Insn.Op().IsThrow()) {
            for _, ti := range activeTries[bb] {
                for _, h := range catches[ti] {
                    addEdge(bb, h, EdgeThrow)
                }
            }
        }
    }
    return cfg
}

func (self *Code) addThrowEdges(cfg *CFG, bb *Block, activeTries map[*Block][]int, catches map[int][]*Block) {
    caught := false
    for _, ti := range activeTries[bb] {
        for _, h := range catches[ti] {
            addEdge(bb, h, EdgeThrow)
            caught = true
        }
    }
    if !caught {
        addEdge(bb, cfg.exit, EdgeThrow)
    }
}

func removeTry(open []int, idx int) []int {
    for i, v := range open {
        if v == idx {
            return append(open[:i:i], open[i + 1:]...)
        }
    }
    return open
}

func mergeTries(have []int, add []int) []int {
    for _, v := range add {
        found := false
        for _, w := range have {
            if v == w {
                found = true
                break
            }
        }
        if !found {
            have = append(have, v)
        }
    }
    return have
}
