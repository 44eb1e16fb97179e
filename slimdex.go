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

// Package slimdex is a whole-program optimizer substrate for
// register-based class-container bytecode: an interned IR model, a
// class-hierarchy index, abstract-interpretation scaffolding, a
// graph-colouring register allocator, an AOT container codec and a
// parallel pass driver. Optimization passes are consumers of these
// contracts and live outside this module.
package slimdex

import (
    `sort`
    `sync`

    `github.com/slimdex/slimdex/internal/dex`
    `github.com/slimdex/slimdex/internal/opts`
)

// Pass is one pipeline stage. Configure is called once before the
// pipeline begins; Run may inspect and mutate the scope; Metrics
// reports named counters into the manager afterwards.
type Pass interface {
    Name() string
    Configure(o opts.Options)
    Run(ctx *dex.Context, scope dex.Scope, mgr *PassManager)
    Metrics(mgr *PassManager)
}

// PassManager owns the pipeline configuration and the metric
// counters passes emit. Counter updates are safe from parallel work
// functions; everything else is driver-phase only.
type PassManager struct {
    mu       sync.Mutex
    config   *opts.Config
    options  Options
    counters map[string]int64
}

func NewPassManager(config *opts.Config) *PassManager {
    return &PassManager {
        config   : config,
        options  : newOptions(),
        counters : make(map[string]int64),
    }
}

// Options are the driver-level defaults passes may consult.
func (self *PassManager) Options() Options {
    return self.options
}

func (self *PassManager) IncrCounter(name string, n int64) {
    self.mu.Lock()
    self.counters[name] += n
    self.mu.Unlock()
}

func (self *PassManager) Counter(name string) int64 {
    self.mu.Lock()
    defer self.mu.Unlock()
    return self.counters[name]
}

// CounterNames lists the emitted counters in stable order.
func (self *PassManager) CounterNames() []string {
    self.mu.Lock()
    defer self.mu.Unlock()
    names := make([]string, 0, len(self.counters))
    for k := range self.counters {
        names = append(names, k)
    }
    sort.Strings(names)
    return names
}

// RunPasses drives the pipeline: configure everything, then run each
// pass in order and collect its metrics. Re-keying mutations of the
// interning context are only legal inside Run, which executes on the
// driver thread.
func (self *PassManager) RunPasses(ctx *dex.Context, scope dex.Scope, passes []Pass) {
    for _, p := range passes {
        p.Configure(self.config.PassOptions(p.Name()))
    }
    for _, p := range passes {
        p.Run(ctx, scope, self)
        p.Metrics(self)
    }
}

// Optimize is the one-call driver: configure, run and meter the
// whole pipeline over the scope.
func Optimize(ctx *dex.Context, scope dex.Scope, config *opts.Config, passes []Pass, options ...Option) *PassManager {
    mgr := NewPassManager(config)
    mgr.options = newOptions(options...)
    mgr.RunPasses(ctx, scope, passes)
    return mgr
}
