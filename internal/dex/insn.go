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
    `fmt`
    `strings`
)

// Insn is one instruction in editable form. Operand registers are
// symbolic until register allocation assigns final vregs; encoding
// constraints are queried through the opcode table plus the per-source
// wideness computed at construction.
type Insn struct {
    op      Op
    dest    uint32
    srcs    []uint32
    wide    []bool

    /* at most one payload is meaningful for any opcode */
    literal int64
    str     *String
    typ     *Type
    field   *Field
    method  *Method
}

func NewInsn(op Op, dest uint32, srcs ...uint32) *Insn {
    p := &Insn { op: op, dest: dest, srcs: srcs }
    p.wide = make([]bool, len(srcs))

    /* wide arithmetic reads wide on both sides */
    if op.HasWideDest() && op.Has2addrForm() {
        for i := range p.wide {
            p.wide[i] = true
        }
    }

    /* wide moves read a wide source */
    if op == OpMoveWide || op == OpReturnWide {
        for i := range p.wide {
            p.wide[i] = true
        }
    }
    return p
}

// NewInvoke builds an invoke with its source wideness derived from the
// callee prototype; non-static invokes carry the implicit this in
// source slot 0.
func NewInvoke(op Op, callee *Method, srcs ...uint32) *Insn {
    if !op.IsInvoke() {
        panic("dex: not an invoke opcode: " + op.Name())
    }

    p := NewInsn(op, 0, srcs...)
    p.method = callee

    i := 0
    if op != OpInvokeStatic && op != OpInvokeStaticRange {
        i = 1
    }

    for _, t := range callee.Proto().Args().Types() {
        if i >= len(srcs) {
            break
        }
        if IsWideType(t) {
            p.wide[i] = true
            i += 1
        } else {
            i += 1
        }
    }
    return p
}

func NewConst(dest uint32, literal int64) *Insn {
    p := NewInsn(OpConst, dest)
    p.literal = literal
    return p
}

func NewConstString(dest uint32, s *String) *Insn {
    p := NewInsn(OpConstString, dest)
    p.str = s
    return p
}

func NewConstClass(dest uint32, t *Type) *Insn {
    p := NewInsn(OpConstClass, dest)
    p.typ = t
    return p
}

func NewTypeInsn(op Op, dest uint32, t *Type, srcs ...uint32) *Insn {
    p := NewInsn(op, dest, srcs...)
    p.typ = t
    return p
}

func NewFieldInsn(op Op, dest uint32, f *Field, srcs ...uint32) *Insn {
    p := NewInsn(op, dest, srcs...)
    p.field = f
    return p
}

func (self *Insn) Op() Op          { return self.op }
func (self *Insn) Literal() int64  { return self.literal }
func (self *Insn) Str() *String    { return self.str }
func (self *Insn) Typ() *Type      { return self.typ }
func (self *Insn) FieldRef() *Field   { return self.field }
func (self *Insn) MethodRef() *Method { return self.method }

func (self *Insn) SetOp(op Op)     { self.op = op }

func (self *Insn) DestsSize() int {
    return self.op.info().dests
}

func (self *Insn) Dest() uint32 {
    return self.dest
}

func (self *Insn) SetDest(r uint32) {
    self.dest = r
}

func (self *Insn) DestIsWide() bool {
    return self.op.HasWideDest()
}

func (self *Insn) SrcsSize() int {
    return len(self.srcs)
}

func (self *Insn) Src(i int) uint32 {
    return self.srcs[i]
}

func (self *Insn) Srcs() []uint32 {
    return self.srcs
}

func (self *Insn) SetSrc(i int, r uint32) {
    self.srcs[i] = r
}

func (self *Insn) SrcIsWide(i int) bool {
    return self.wide[i]
}

// DestBitWidth is the encodable width of the destination slot.
func (self *Insn) DestBitWidth() uint8 {
    return self.op.info().destBits
}

// SrcBitWidth is the encodable width of source slot i.
func (self *Insn) SrcBitWidth(i int) uint8 {
    ti := self.op.info()
    if ti.variadic {
        return ti.varSrcBits
    }
    if i >= len(ti.srcBits) {
        panic(fmt.Sprintf("dex: source index %d out of range for %s", i, ti.name))
    }
    return ti.srcBits[i]
}

// SrcWidth is the register-slot width of source i (1 or 2).
func (self *Insn) SrcWidth(i int) uint32 {
    if self.wide[i] {
        return 2
    }
    return 1
}

// SumSrcSizes is the total register-slot footprint of the sources,
// which decides whether an enumerated encoding can hold the operands.
func (self *Insn) SumSrcSizes() uint32 {
    n := uint32(0)
    for i := range self.srcs {
        n += self.SrcWidth(i)
    }
    return n
}

func (self *Insn) String() string {
    buf := make([]string, 0, len(self.srcs) + 1)
    if self.DestsSize() != 0 {
        buf = append(buf, fmt.Sprintf("v%d", self.dest))
    }
    for _, r := range self.srcs {
        buf = append(buf, fmt.Sprintf("v%d", r))
    }
    s := self.op.Name()
    if len(buf) != 0 {
        s += " " + strings.Join(buf, ", ")
    }
    if self.method != nil {
        s += ", " + self.method.String()
    }
    return s
}
