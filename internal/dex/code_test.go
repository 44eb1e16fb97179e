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

import (
    `testing`

    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

func TestCode_ListEditing(t *testing.T) {
    code := NewCode(4)
    a := code.PushBackInsn(NewConst(0, 1))
    b := code.PushBackInsn(NewConst(1, 2))

    mid := code.InsertBefore(b, &Item { Kind: KindInsn, Insn: NewInsn(OpMove, 2, 0) })
    assert.Equal(t, 3, code.CountInsns())
    assert.True(t, a.Next() == mid && mid.Next() == b)

    code.Remove(mid)
    assert.Equal(t, 2, code.CountInsns())
    assert.True(t, a.Next() == b && b.Prev() == a)

    r := code.AllocateTemp()
    assert.Equal(t, uint32(4), r)
    assert.Equal(t, uint32(5), code.RegistersSize())
}

func TestCode_ParamItems(t *testing.T) {
    code := NewCode(3)
    code.PushBackInsn(NewInsn(OpLoadParam, 0))
    code.PushBackInsn(NewInsn(OpLoadParamWide, 1))
    code.PushBackInsn(NewConst(2, 0))
    code.PushBackInsn(NewInsn(OpReturnVoid, 0))

    pp := code.ParamItems()
    require.Len(t, pp, 2)
    assert.Equal(t, OpLoadParam, pp[0].Insn.Op())
    assert.Equal(t, OpLoadParamWide, pp[1].Insn.Op())
}

func TestCode_RawRoundTrip(t *testing.T) {
    code := NewCode(3)
    c0 := code.PushBackInsn(NewConst(0, 7))
    br := code.PushBackInsn(NewInsn(OpIfEqz, 0, 0))
    code.PushBackInsn(NewConst(1, 1))
    tgt := code.PushBackInsn(NewInsn(OpReturn, 0, 0))
    code.InsertBefore(tgt, &Item { Kind: KindTarget, Source: br })
    _ = c0

    raw := code.ToRaw()
    require.Len(t, raw.Insns, 4)
    require.Len(t, raw.Branches, 1)
    assert.Equal(t, 1, raw.Branches[0].FromIdx)
    assert.Equal(t, 3, raw.Branches[0].ToIdx)

    back := raw.ToCode()
    assert.Equal(t, uint32(3), back.RegistersSize())
    assert.Equal(t, 4, back.CountInsns())

    /* the rebuilt target back-links the rebuilt branch */
    var target *Item
    for p := back.Front(); p != nil; p = p.Next() {
        if p.Kind == KindTarget {
            target = p
        }
    }
    require.NotNil(t, target)
    assert.Equal(t, OpIfEqz, target.Source.Insn.Op())
    assert.Equal(t, OpReturn, target.NextInsn().Insn.Op())
}

func TestCode_RawRoundTripTries(t *testing.T) {
    code := NewCode(2)
    code.PushBack(&Item { Kind: KindTryStart, TryIndex: 0 })
    code.PushBackInsn(NewTypeInsn(OpNewInstance, 0, nil))
    code.PushBack(&Item { Kind: KindTryEnd, TryIndex: 0 })
    code.PushBack(&Item { Kind: KindCatch, TryIndex: 0 })
    code.PushBackInsn(NewInsn(OpReturnVoid, 0))

    raw := code.ToRaw()
    require.Len(t, raw.Tries, 1)
    assert.Equal(t, 0, raw.Tries[0].StartIdx)
    assert.Equal(t, 1, raw.Tries[0].EndIdx)
    require.Len(t, raw.Tries[0].Handlers, 1)
    assert.Equal(t, 1, raw.Tries[0].Handlers[0].TargetIdx)

    back := raw.ToCode()
    kinds := []ItemKind{}
    for p := back.Front(); p != nil; p = p.Next() {
        kinds = append(kinds, p.Kind)
    }
    assert.Contains(t, kinds, KindTryStart)
    assert.Contains(t, kinds, KindTryEnd)
    assert.Contains(t, kinds, KindCatch)
}

func TestCFG_LinearAndBranch(t *testing.T) {
    code := NewCode(2)
    code.PushBackInsn(NewConst(0, 1))
    br := code.PushBackInsn(NewInsn(OpIfEqz, 0, 0))
    code.PushBackInsn(NewConst(1, 2))
    ret := code.PushBackInsn(NewInsn(OpReturnVoid, 0))
    code.InsertBefore(ret, &Item { Kind: KindTarget, Source: br })

    cfg := code.BuildCFG()

    /* entry block, fallthrough block, target block, synthetic exit */
    require.Len(t, cfg.Blocks(), 4)
    entry := cfg.Entry()

    var kinds []EdgeKind
    for _, e := range entry.Succs() {
        kinds = append(kinds, e.Kind)
    }
    assert.Contains(t, kinds, EdgeBranch)
    assert.Contains(t, kinds, EdgeGoto)

    /* the return block reaches the synthetic exit */
    hasExitPred := false
    for _, e := range cfg.Exit().Preds() {
        hasExitPred = hasExitPred || e.Kind == EdgeGoto
    }
    assert.True(t, hasExitPred)
}

func TestCFG_ThrowEdges(t *testing.T) {
    code := NewCode(2)
    code.PushBack(&Item { Kind: KindTryStart, TryIndex: 0 })
    code.PushBackInsn(NewTypeInsn(OpNewInstance, 0, nil))
    code.PushBackInsn(NewInsn(OpGoto, 0))
    code.PushBack(&Item { Kind: KindTryEnd, TryIndex: 0 })
    code.PushBack(&Item { Kind: KindCatch, TryIndex: 0 })
    code.PushBackInsn(NewInsn(OpReturnVoid, 0))

    cfg := code.BuildCFG()

    throwSeen := false
    for _, bb := range cfg.Blocks() {
        for _, e := range bb.Succs() {
            if e.Kind == EdgeThrow {
                throwSeen = true
                assert.True(t, e.Dst.IsCatch())
            }
        }
    }
    assert.True(t, throwSeen, "a throwing block inside a try must reach its handler")
}

func TestInsn_Widths(t *testing.T) {
    mv := NewInsn(OpMoveWide, 0, 1)
    assert.True(t, mv.DestIsWide())
    assert.True(t, mv.SrcIsWide(0))
    assert.Equal(t, uint32(2), mv.SrcWidth(0))
    assert.Equal(t, uint8(8), mv.DestBitWidth())
    assert.Equal(t, uint8(16), mv.SrcBitWidth(0))

    add := NewInsn(OpAddInt, 0, 1, 2)
    assert.False(t, add.SrcIsWide(0))
    assert.True(t, add.Op().Has2addrForm())
}

func TestInsn_InvokeWideness(t *testing.T) {
    ctx := NewContext()
    owner := ctx.MakeTypeStr("Lfoo/A;")
    args := ctx.MakeTypeList([]*Type { ctx.MakeTypeStr("J"), ctx.MakeTypeStr("I") })
    proto := ctx.MakeProto(ctx.MakeTypeStr("V"), args)
    callee := ctx.MakeMethod(owner, ctx.MakeString("f"), proto)

    /* this, wide long, int */
    inv := NewInvoke(OpInvokeVirtual, callee, 0, 1, 2)
    assert.False(t, inv.SrcIsWide(0))
    assert.True(t, inv.SrcIsWide(1))
    assert.False(t, inv.SrcIsWide(2))
    assert.Equal(t, uint32(4), inv.SumSrcSizes())
    assert.Equal(t, uint8(4), inv.SrcBitWidth(0))

    static := NewInvoke(OpInvokeStatic, callee, 3, 4)
    assert.True(t, static.SrcIsWide(0))
    assert.False(t, static.SrcIsWide(1))
}
