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
    `sync/atomic`
    `testing`

    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`

    `github.com/slimdex/slimdex/internal/dex`
)

func TestQueue_ReducesEveryItem(t *testing.T) {
    q := NewQueue(
        func(_ *struct{}, item int) int { return item },
        func(a int, b int) int { return a + b },
        func(int) struct{} { return struct{}{} },
        4,
    )

    want := 0
    for i := 1; i <= 100; i++ {
        q.Add(i)
        want += i
    }
    assert.Equal(t, want, q.Run(0))
}

func TestQueue_DataInitializerOncePerWorker(t *testing.T) {
    var inits int32
    q := NewQueue(
        func(data *int, _ int) int { return *data },
        func(a int, b int) int { return a + b },
        func(int) int {
            atomic.AddInt32(&inits, 1)
            return 1
        },
        3,
    )
    for i := 0; i < 30; i++ {
        q.Add(i)
    }

    /* every item sees initialized per-worker data */
    assert.Equal(t, 30, q.Run(0))
    assert.LessOrEqual(t, inits, int32(3))
}

func TestQueue_EmptyRuns(t *testing.T) {
    q := NewQueue(
        func(_ *struct{}, item int) int { return item },
        func(a int, b int) int { return a + b },
        func(int) struct{} { return struct{}{} },
        2,
    )
    assert.Equal(t, 42, q.Run(42))
}

func TestWalkMethodsParallel_Order(t *testing.T) {
    ctx := dex.NewContext()
    proto := ctx.MakeProto(ctx.MakeTypeStr("V"), ctx.MakeTypeList(nil))
    cls := ctx.MakeClass(ctx.MakeTypeStr("La;"), nil, dex.AccPublic, ctx.MakeTypeList(nil))

    d1 := ctx.MakeMethod(cls.Type(), ctx.MakeString("d1"), proto)
    d1.MakeConcrete(dex.AccStatic, nil, false)
    cls.AddDirectMethod(d1)
    v1 := ctx.MakeMethod(cls.Type(), ctx.MakeString("v1"), proto)
    v1.MakeConcrete(dex.AccPublic, nil, true)
    cls.AddVirtualMethod(v1)
    d2 := ctx.MakeMethod(cls.Type(), ctx.MakeString("d2"), proto)
    d2.MakeConcrete(dex.AccStatic, nil, false)
    cls.AddDirectMethod(d2)

    /* within one class: direct methods before virtual methods, each
     * group in insertion order */
    got := WalkMethodsParallel(
        dex.Scope { cls },
        func(_ *struct{}, m *dex.Method) []string { return []string { m.Name().Str() } },
        func(a []string, b []string) []string { return append(a, b...) },
        func(int) struct{} { return struct{}{} },
        nil,
        2,
    )
    require.Equal(t, []string { "d1", "d2", "v1" }, got)
}

func TestWalkMethodsParallelSimple(t *testing.T) {
    ctx := dex.NewContext()
    proto := ctx.MakeProto(ctx.MakeTypeStr("V"), ctx.MakeTypeList(nil))

    var scope dex.Scope
    var count int32
    for _, name := range []string { "La;", "Lb;", "Lc;" } {
        cls := ctx.MakeClass(ctx.MakeTypeStr(name), nil, dex.AccPublic, ctx.MakeTypeList(nil))
        m := ctx.MakeMethod(cls.Type(), ctx.MakeString("m"), proto)
        m.MakeConcrete(dex.AccPublic, nil, true)
        cls.AddVirtualMethod(m)
        scope = append(scope, cls)
    }

    WalkMethodsParallelSimple(scope, func(*dex.Method) {
        atomic.AddInt32(&count, 1)
    })
    assert.Equal(t, int32(3), count)
}

func TestDefaultThreads(t *testing.T) {
    assert.GreaterOrEqual(t, DefaultThreads(), 1)
}
