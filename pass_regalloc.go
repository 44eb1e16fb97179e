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

package slimdex

import (
    `github.com/slimdex/slimdex/internal/dex`
    `github.com/slimdex/slimdex/internal/opts`
    `github.com/slimdex/slimdex/internal/regalloc`
    `github.com/slimdex/slimdex/internal/work`
)

// RegAllocPass runs the graph-colouring allocator over every method
// body in scope, class-partitioned across workers. It only mutates
// method bodies, never the interning context, so it is safe to fan
// out.
type RegAllocPass struct {
    useSplitting bool
    threads      int
    stats        regalloc.Stats
}

func NewRegAllocPass() *RegAllocPass {
    return &RegAllocPass{}
}

func (self *RegAllocPass) Name() string {
    return "RegAllocPass"
}

func (self *RegAllocPass) Configure(o opts.Options) {
    self.useSplitting = o.GetBool("live_range_splitting", true)
    self.threads = int(o.GetInt("threads", 0))
}

func (self *RegAllocPass) Run(_ *dex.Context, scope dex.Scope, mgr *PassManager) {
    driver := mgr.Options()
    useSplitting := self.useSplitting && driver.UseSplitting
    debug := opts.RegAllocDebug || driver.Debug
    threads := self.threads
    if threads == 0 {
        threads = driver.Threads
    }
    self.stats = work.WalkMethodsParallel(
        scope,
        func(alloc **regalloc.Allocator, m *dex.Method) regalloc.Stats {
            if m.Code() == nil || m.IsExternal() {
                return regalloc.Stats{}
            }
            a := *alloc
            before := a.Stats
            a.Allocate(m.Code())
            delta := a.Stats
            delta.ReiterationCount -= before.ReiterationCount
            delta.ParamSpillMoves -= before.ParamSpillMoves
            delta.RangeSpillMoves -= before.RangeSpillMoves
            delta.GlobalSpillMoves -= before.GlobalSpillMoves
            delta.SplitMoves -= before.SplitMoves
            delta.MovesCoalesced -= before.MovesCoalesced
            delta.ParamsSpillEarly -= before.ParamsSpillEarly
            return delta
        },
        func(a regalloc.Stats, b regalloc.Stats) regalloc.Stats {
            a.Accumulate(&b)
            return a
        },
        func(int) *regalloc.Allocator {
            return &regalloc.Allocator { UseSplitting: useSplitting, Debug: debug }
        },
        regalloc.Stats{},
        threads,
    )
}

func (self *RegAllocPass) Metrics(mgr *PassManager) {
    mgr.IncrCounter("regalloc.reiterations", int64(self.stats.ReiterationCount))
    mgr.IncrCounter("regalloc.moves_coalesced", int64(self.stats.MovesCoalesced))
    mgr.IncrCounter("regalloc.param_spill_moves", int64(self.stats.ParamSpillMoves))
    mgr.IncrCounter("regalloc.range_spill_moves", int64(self.stats.RangeSpillMoves))
    mgr.IncrCounter("regalloc.global_spill_moves", int64(self.stats.GlobalSpillMoves))
    mgr.IncrCounter("regalloc.split_moves", int64(self.stats.SplitMoves))
}
