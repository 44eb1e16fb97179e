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

package work

import (
    `github.com/slimdex/slimdex/internal/dex`
)

// WalkMethodsParallel calls walker on every method of every class in
// scope, partitioned by class so that two workers never touch the
// same class. Direct methods are visited before virtual methods,
// each group in insertion order. Global state the walker needs must
// be copied per worker through dataInit.
func WalkMethodsParallel[D any, O any](scope dex.Scope,
                                       walker func(*D, *dex.Method) O,
                                       reducer func(O, O) O,
                                       dataInit func(int) D,
                                       init O, threads int) O {
    q := NewQueue(
        func(data *D, cls *dex.Class) O {
            out := init
            cls.AllMethods(func(m *dex.Method) {
                out = reducer(out, walker(data, m))
            })
            return out
        },
        reducer,
        dataInit,
        threads,
    )

    for _, cls := range scope {
        q.Add(cls)
    }
    return q.Run(init)
}

// WalkMethodsParallelSimple is the no-data, no-output variant.
func WalkMethodsParallelSimple(scope dex.Scope, walker func(*dex.Method)) {
    WalkMethodsParallel(
        scope,
        func(_ *struct{}, m *dex.Method) struct{} {
            walker(m)
            return struct{}{}
        },
        func(a struct{}, _ struct{}) struct{} { return a },
        func(int) struct{} { return struct{}{} },
        struct{}{},
        0,
    )
}
