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

// Package work is the parallel pass driver: a work queue that fans
// items out across OS threads and reduces per-thread results. There
// is no cancellation; a pass either completes or the process aborts.
package work

import (
    `sync/atomic`

    `github.com/klauspost/cpuid/v2`
    `golang.org/x/sync/errgroup`
)

// DefaultThreads is half the hardware concurrency: the target
// environment is consistently hyperthreaded, so this lands on the
// physical core count.
func DefaultThreads() int {
    n := cpuid.CPU.LogicalCores / 2
    if n < 1 {
        n = 1
    }
    return n
}

// Queue fans items out to a fixed set of workers. Per-worker data is
// constructed exactly once per worker; the reducer must be
// associative, and no cross-item ordering is guaranteed. Within one
// worker, items are processed in the order dequeued.
type Queue[T any, D any, O any] struct {
    work     func(*D, T) O
    reduce   func(O, O) O
    initData func(int) D
    threads  int
    items    []T
}

func NewQueue[T any, D any, O any](work func(*D, T) O, reduce func(O, O) O,
                                   initData func(int) D, threads int) *Queue[T, D, O] {
    if threads < 1 {
        threads = DefaultThreads()
    }
    return &Queue[T, D, O] {
        work     : work,
        reduce   : reduce,
        initData : initData,
        threads  : threads,
    }
}

// Add enqueues one item; only legal before Run.
func (self *Queue[T, D, O]) Add(item T) {
    self.items = append(self.items, item)
}

// Run drains the queue and reduces every worker's partial result
// into init. The final reduction runs serially after all workers
// finish.
func (self *Queue[T, D, O]) Run(init O) O {
    nw := self.threads
    if n := len(self.items); n < nw {
        nw = n
    }
    if nw == 0 {
        return init
    }

    var next uint64
    partial := make([]O, nw)

    var eg errgroup.Group
    for i := 0; i < nw; i++ {
        wid := i
        eg.Go(func() error {
            data := self.initData(wid)
            acc := init
            for {
                n := atomic.AddUint64(&next, 1) - 1
                if n >= uint64(len(self.items)) {
                    break
                }
                acc = self.reduce(acc, self.work(&data, self.items[n]))
            }
            partial[wid] = acc
            return nil
        })
    }

    /* workers never error; Wait is just the barrier */
    if err := eg.Wait(); err != nil {
        panic("work: worker failed: " + err.Error())
    }

    out := init
    for _, p := range partial {
        out = self.reduce(out, p)
    }
    return out
}
