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
    `github.com/slimdex/slimdex/internal/work`
)

// Options are the driver-level knobs shared by every pipeline run.
type Options struct {
    Threads      int
    UseSplitting bool
    Debug        bool
}

// Option is a functional option for the pipeline driver.
type Option func(*Options)

func newOptions(opts ...Option) Options {
    o := Options {
        Threads      : work.DefaultThreads(),
        UseSplitting : true,
    }
    for _, fn := range opts {
        fn(&o)
    }
    return o
}

// WithThreads sets the worker count for parallel pass regions.
func WithThreads(n int) Option {
    return func(o *Options) {
        if n > 0 {
            o.Threads = n
        }
    }
}

// WithSplitting toggles live-range splitting in the allocator.
func WithSplitting(enabled bool) Option {
    return func(o *Options) {
        o.UseSplitting = enabled
    }
}

// WithDebug enables allocator state dumps.
func WithDebug(enabled bool) Option {
    return func(o *Options) {
        o.Debug = enabled
    }
}
