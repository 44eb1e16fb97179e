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
    `testing`

    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`

    `github.com/slimdex/slimdex/internal/dex`
    `github.com/slimdex/slimdex/internal/opts`
)

func buildScope(ctx *dex.Context, classes int, methodsPer int) dex.Scope {
    var scope dex.Scope
    proto := ctx.MakeProto(ctx.MakeTypeStr("V"), ctx.MakeTypeList(nil))
    for c := 0; c < classes; c++ {
        cls := ctx.MakeClass(ctx.MakeTypeStr("Lgen/C"+string(rune('a' + c))+";"), nil, dex.AccPublic, ctx.MakeTypeList(nil))
        for i := 0; i < methodsPer; i++ {
            code := dex.NewCode(3)
            code.PushBackInsn(dex.NewConst(0, 7))
            code.PushBackInsn(dex.NewInsn(dex.OpMove, 1, 0))
            code.PushBackInsn(dex.NewInsn(dex.OpReturn, 0, 1))

            m := ctx.MakeMethod(cls.Type(), ctx.MakeString("m"+string(rune('a' + i))), proto)
            m.MakeConcrete(dex.AccPublic, code, true)
            cls.AddVirtualMethod(m)
        }
        scope = append(scope, cls)
    }
    return scope
}

func TestRegAllocPass_Pipeline(t *testing.T) {
    ctx := dex.NewContext()
    scope := buildScope(ctx, 4, 3)

    cfg, err := opts.ParseConfig([]byte(`
passes = ["RegAllocPass"]

[options.RegAllocPass]
live_range_splitting = true
`))
    require.NoError(t, err)

    mgr := NewPassManager(cfg)
    mgr.RunPasses(ctx, scope, []Pass { NewRegAllocPass() })

    /* every method body got its copy coalesced away */
    assert.Equal(t, int64(12), mgr.Counter("regalloc.moves_coalesced"))
    for _, cls := range scope {
        cls.AllMethods(func(m *dex.Method) {
            assert.Equal(t, 2, m.Code().CountInsns())
        })
    }

    names := mgr.CounterNames()
    assert.Contains(t, names, "regalloc.moves_coalesced")
    assert.Contains(t, names, "regalloc.split_moves")
}
