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

// Package fixpoint implements the monotone fixpoint iterator over
// per-method control-flow graphs. One iterator run is owned by one
// goroutine; nothing here assumes otherwise.
package fixpoint

import (
    `github.com/oleiade/lane`

    `github.com/slimdex/slimdex/internal/dex`
)

// State is the lattice surface the iterator needs from an abstract
// state. Join is used at ordinary confluence points, Widen at the
// designated widening points so iteration terminates on lattices of
// infinite height.
type State[D any] interface {
    Leq(D) bool
    Equals(D) bool
    Join(D) D
    Widen(D) D
}

// Analysis describes one dataflow problem. AnalyzeNode is the
// block-level transfer function; AnalyzeEdge (optional) refines the
// state a block contributes along one edge.
type Analysis[D State[D]] struct {
    Backward    bool
    Entry       D
    Identity    D
    AnalyzeNode func(bb *dex.Block, in D) D
    AnalyzeEdge func(e *dex.Edge, out D) D
}

// Result holds the per-block states after the fixpoint stabilizes.
type Result[D State[D]] struct {
    analysis *Analysis[D]
    in       map[*dex.Block]D
    out      map[*dex.Block]D
}

// EntryStateAt is the stabilized in-state of the block, in analysis
// direction (for backward analyses this is the state at block end).
func (self *Result[D]) EntryStateAt(bb *dex.Block) D {
    if s, ok := self.in[bb]; ok {
        return s
    }
    return self.analysis.Identity
}

// ExitStateAt is the stabilized out-state of the block.
func (self *Result[D]) ExitStateAt(bb *dex.Block) D {
    if s, ok := self.out[bb]; ok {
        return s
    }
    return self.analysis.Identity
}

/* direction helpers: a backward analysis runs on the reversed graph */
func (self *Analysis[D]) root(cfg *dex.CFG) *dex.Block {
    if self.Backward {
        return cfg.Exit()
    }
    return cfg.Entry()
}

func (self *Analysis[D]) inEdges(bb *dex.Block) []*dex.Edge {
    if self.Backward {
        return bb.Succs()
    }
    return bb.Preds()
}

func (self *Analysis[D]) outEdges(bb *dex.Block) []*dex.Edge {
    if self.Backward {
        return bb.Preds()
    }
    return bb.Succs()
}

func (self *Analysis[D]) edgeSource(e *dex.Edge) *dex.Block {
    if self.Backward {
        return e.Dst
    }
    return e.Src
}

func (self *Analysis[D]) edgeTarget(e *dex.Edge) *dex.Block {
    if self.Backward {
        return e.Src
    }
    return e.Dst
}

/* widening points: targets of retreating edges in a DFS over the
 * analysis direction, i.e. loop heads */
func (self *Analysis[D]) wideningPoints(cfg *dex.CFG) map[*dex.Block]bool {
    heads := make(map[*dex.Block]bool)
    color := make(map[*dex.Block]int)

    var visit func(*dex.Block)
    visit = func(bb *dex.Block) {
        color[bb] = 1
        for _, e := range self.outEdges(bb) {
            t := self.edgeTarget(e)
            switch color[t] {
                case 0 : visit(t)
                case 1 : heads[t] = true
            }
        }
        color[bb] = 2
    }

    visit(self.root(cfg))
    return heads
}

// Run iterates the transfer to the least fixed point: each block's
// in-state is the join of the contributions along its incoming edges,
// widened at loop heads; iteration stops when nothing changes.
func (self *Analysis[D]) Run(cfg *dex.CFG) *Result[D] {
    res := &Result[D] {
        analysis : self,
        in       : make(map[*dex.Block]D),
        out      : make(map[*dex.Block]D),
    }

    heads := self.wideningPoints(cfg)
    root := self.root(cfg)
    res.in[root] = self.Entry

    queued := make(map[*dex.Block]bool)
    q := lane.NewQueue()
    for q.Enqueue(root); !q.Empty(); {
        bb := q.Dequeue().(*dex.Block)
        queued[bb] = false

        /* join the edge contributions of the processed predecessors */
        in := self.Identity
        for _, e := range self.inEdges(bb) {
            src := self.edgeSource(e)
            out, ok := res.out[src]
            if !ok {
                continue
            }
            if self.AnalyzeEdge != nil {
                out = self.AnalyzeEdge(e, out)
            }
            in = in.Join(out)
        }
        if bb == root {
            in = in.Join(self.Entry)
        }

        /* widen at loop heads once a previous state exists */
        if old, ok := res.in[bb]; ok {
            if heads[bb] {
                in = old.Widen(in)
            }
            if in.Equals(old) && bb != root {
                continue
            }
            if in.Leq(old) && !old.Leq(in) && heads[bb] {
                continue
            }
        }

        res.in[bb] = in
        out := self.AnalyzeNode(bb, in)

        if old, ok := res.out[bb]; ok && out.Equals(old) {
            continue
        }
        res.out[bb] = out

        for _, e := range self.outEdges(bb) {
            if t := self.edgeTarget(e); !queued[t] {
                queued[t] = true
                q.Enqueue(t)
            }
        }
    }
    return res
}
