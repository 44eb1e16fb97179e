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

package fixpoint

import (
    `testing`

    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`

    `github.com/slimdex/slimdex/internal/dex`
    `github.com/slimdex/slimdex/internal/domain`
)

func TestNullness_StraightLine(t *testing.T) {
    ctx := dex.NewContext()
    code := dex.NewCode(3)
    code.PushBackInsn(dex.NewConst(0, 0))
    code.PushBackInsn(dex.NewConstString(1, ctx.MakeString("s")))
    code.PushBackInsn(dex.NewInsn(dex.OpMoveObject, 2, 1))
    code.PushBackInsn(dex.NewInsn(dex.OpReturnObject, 0, 2))

    cfg := code.BuildCFG()
    nl := RunNullness(code, cfg)

    out := nl.ExitEnv(cfg.Entry())
    assert.Equal(t, domain.IsNull, out.Get(0), "the zero literal is null")
    assert.Equal(t, domain.NotNull, out.Get(1))
    assert.Equal(t, domain.NotNull, out.Get(2), "moves propagate nullness")
    assert.Equal(t, domain.Nullable, out.Get(9), "unbound registers sit at Top")
}

func TestNullness_BranchJoin(t *testing.T) {
    ctx := dex.NewContext()
    code := dex.NewCode(2)

    br := code.PushBackInsn(dex.NewInsn(dex.OpIfEqz, 0, 1))
    code.PushBackInsn(dex.NewConst(0, 0))
    gt := code.PushBackInsn(dex.NewInsn(dex.OpGoto, 0))
    other := code.PushBackInsn(dex.NewConstString(0, ctx.MakeString("x")))
    code.InsertBefore(other, &dex.Item { Kind: dex.KindTarget, Source: br })
    ret := code.PushBackInsn(dex.NewInsn(dex.OpReturnObject, 0, 0))
    code.InsertBefore(ret, &dex.Item { Kind: dex.KindTarget, Source: gt })

    cfg := code.BuildCFG()
    nl := RunNullness(code, cfg)

    /* find the merge block: the one led by the goto's target */
    var merge *dex.Block
    for _, bb := range cfg.Blocks() {
        if bb.First() != nil && bb.First().Kind == dex.KindTarget && bb.First().Source == gt {
            merge = bb
        }
    }
    require.NotNil(t, merge)

    /* null on one path, not-null on the other: the join is Nullable */
    in := nl.EntryEnv(merge)
    assert.Equal(t, domain.Nullable, in.Get(0))
}
