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
    `github.com/slimdex/slimdex/internal/dex`
    `github.com/slimdex/slimdex/internal/domain`
)

// NullEnv is the per-program-point environment of the nullness
// analysis.
type NullEnv = domain.Env[domain.Nullness]

// Nullness is the forward nullness analysis: it tracks, per register,
// whether a reference it holds can be null. Parameters and unknown
// values sit at Nullable; the transfer is per opcode family.
type Nullness struct {
    res *Result[NullEnv]
}

/* transfer of one instruction over the environment */
func nullTransferInsn(ins *dex.Insn, env NullEnv) NullEnv {
    op := ins.Op()
    dest := uint64(ins.Dest())

    switch {
        case op == dex.OpConst:
            /* the zero literal is the null reference */
            if ins.Literal() == 0 {
                return env.Set(dest, domain.IsNull)
            }
            return env.Set(dest, domain.NotNull)

        case op == dex.OpConstString, op == dex.OpConstClass, op == dex.OpNewInstance,
             op == dex.OpFilledNewArray, op == dex.OpFilledNewArrayRange:
            return env.Set(dest, domain.NotNull)

        case op.IsMove():
            return env.Set(dest, env.Get(uint64(ins.Src(0))))

        case op.IsCheckCast():
            /* a passing cast preserves the operand's nullness */
            return env.Set(dest, env.Get(uint64(ins.Src(0))))

        case op.IsLoadParam(), op.IsMoveResult():
            return env.Set(dest, domain.Nullable)

        case ins.DestsSize() != 0:
            /* field/array loads and arithmetic yield unknown refs */
            return env.Set(dest, domain.Nullable)

        default:
            return env
    }
}

// RunNullness computes the forward fixpoint over the method.
func RunNullness(code *dex.Code, cfg *dex.CFG) *Nullness {
    an := &Analysis[NullEnv] {
        Entry    : domain.TopEnv[domain.Nullness](),
        Identity : domain.BottomEnv[domain.Nullness](),
        AnalyzeNode: func(bb *dex.Block, in NullEnv) NullEnv {
            env := in
            bb.ForEachInsn(func(p *dex.Item) bool {
                env = nullTransferInsn(p.Insn, env)
                return true
            })
            return env
        },
    }
    return &Nullness { res: an.Run(cfg) }
}

// EntryEnv is the environment on entry to the block.
func (self *Nullness) EntryEnv(bb *dex.Block) NullEnv {
    return self.res.EntryStateAt(bb)
}

// ExitEnv is the environment on exit from the block.
func (self *Nullness) ExitEnv(bb *dex.Block) NullEnv {
    return self.res.ExitStateAt(bb)
}

// At replays the block to recover the environment just before the
// given instruction item.
func (self *Nullness) At(bb *dex.Block, at *dex.Item) NullEnv {
    env := self.EntryEnv(bb)
    found := env
    bb.ForEachInsn(func(p *dex.Item) bool {
        if p == at {
            found = env
            return false
        }
        env = nullTransferInsn(p.Insn, env)
        return true
    })
    return found
}
