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

// Op identifies an instruction kind. Every operand-encoding and
// category question is answered from the opcode table below, never
// from ad-hoc switches, so the table is the single source of truth
// for the encoding constraints the register allocator works against.
type Op uint16

const (
    OpNop Op = iota

    /* register moves */
    OpMove
    OpMoveWide
    OpMoveObject

    /* result captures, must immediately follow their invoke */
    OpMoveResult
    OpMoveResultWide
    OpMoveResultObject

    /* implicit parameter placement pseudo-ops */
    OpLoadParam
    OpLoadParamWide
    OpLoadParamObject

    /* constants */
    OpConst
    OpConstWide
    OpConstString
    OpConstClass

    /* returns */
    OpReturnVoid
    OpReturn
    OpReturnWide
    OpReturnObject

    /* control flow */
    OpGoto
    OpIfEq
    OpIfNe
    OpIfLt
    OpIfGe
    OpIfGt
    OpIfLe
    OpIfEqz
    OpIfNez
    OpThrow

    /* objects and arrays */
    OpCheckCast
    OpInstanceOf
    OpNewInstance
    OpFilledNewArray
    OpFilledNewArrayRange
    OpAget
    OpAput
    OpIget
    OpIput
    OpSget
    OpSput

    /* invokes */
    OpInvokeVirtual
    OpInvokeSuper
    OpInvokeDirect
    OpInvokeStatic
    OpInvokeInterface
    OpInvokeVirtualRange
    OpInvokeSuperRange
    OpInvokeDirectRange
    OpInvokeStaticRange
    OpInvokeInterfaceRange

    /* arithmetic, the whole block is 2addr-eligible */
    OpAddInt
    OpSubInt
    OpMulInt
    OpDivInt
    OpRemInt
    OpAddLong
    OpMulLong
    OpAddFloat
    OpAddDouble
    OpRemDouble

    opMax
)

// NonRangeMaxOperands is the operand count limit of the enumerated
// (non-range) encodings; anything wider must use a range form.
const NonRangeMaxOperands = 5

type opFlags uint32

const (
    flagMove opFlags = 1 << iota
    flagInvoke
    flagBranch
    flagGoto
    flagReturn
    flagThrow
    flagMayThrow
    flagLoadParam
    flagMoveResult
    flagWritesResult
    flagCheckCast
    flag2addr
    flagWideDest
    flagRange
)

type opInfo struct {
    name       string
    dests      int
    destBits   uint8
    srcBits    []uint8
    varSrcBits uint8
    variadic   bool
    rangeForm  Op
    flags      opFlags
}

var opTab = [opMax]opInfo {
    OpNop              : { name: "nop" },

    OpMove             : { name: "move",        dests: 1, destBits: 8, srcBits: []uint8 { 16 }, flags: flagMove },
    OpMoveWide         : { name: "move-wide",   dests: 1, destBits: 8, srcBits: []uint8 { 16 }, flags: flagMove | flagWideDest },
    OpMoveObject       : { name: "move-object", dests: 1, destBits: 8, srcBits: []uint8 { 16 }, flags: flagMove },

    OpMoveResult       : { name: "move-result",        dests: 1, destBits: 8, flags: flagMoveResult },
    OpMoveResultWide   : { name: "move-result-wide",   dests: 1, destBits: 8, flags: flagMoveResult | flagWideDest },
    OpMoveResultObject : { name: "move-result-object", dests: 1, destBits: 8, flags: flagMoveResult },

    OpLoadParam        : { name: "load-param",        dests: 1, destBits: 16, flags: flagLoadParam },
    OpLoadParamWide    : { name: "load-param-wide",   dests: 1, destBits: 16, flags: flagLoadParam | flagWideDest },
    OpLoadParamObject  : { name: "load-param-object", dests: 1, destBits: 16, flags: flagLoadParam },

    OpConst            : { name: "const",        dests: 1, destBits: 8 },
    OpConstWide        : { name: "const-wide",   dests: 1, destBits: 8, flags: flagWideDest },
    OpConstString      : { name: "const-string", dests: 1, destBits: 8, flags: flagMayThrow },
    OpConstClass       : { name: "const-class",  dests: 1, destBits: 8, flags: flagMayThrow },

    OpReturnVoid       : { name: "return-void", flags: flagReturn },
    OpReturn           : { name: "return",        srcBits: []uint8 { 8 }, flags: flagReturn },
    OpReturnWide       : { name: "return-wide",   srcBits: []uint8 { 8 }, flags: flagReturn },
    OpReturnObject     : { name: "return-object", srcBits: []uint8 { 8 }, flags: flagReturn },

    OpGoto             : { name: "goto", flags: flagGoto },
    OpIfEq             : { name: "if-eq", srcBits: []uint8 { 4, 4 }, flags: flagBranch },
    OpIfNe             : { name: "if-ne", srcBits: []uint8 { 4, 4 }, flags: flagBranch },
    OpIfLt             : { name: "if-lt", srcBits: []uint8 { 4, 4 }, flags: flagBranch },
    OpIfGe             : { name: "if-ge", srcBits: []uint8 { 4, 4 }, flags: flagBranch },
    OpIfGt             : { name: "if-gt", srcBits: []uint8 { 4, 4 }, flags: flagBranch },
    OpIfLe             : { name: "if-le", srcBits: []uint8 { 4, 4 }, flags: flagBranch },
    OpIfEqz            : { name: "if-eqz", srcBits: []uint8 { 8 }, flags: flagBranch },
    OpIfNez            : { name: "if-nez", srcBits: []uint8 { 8 }, flags: flagBranch },
    OpThrow            : { name: "throw", srcBits: []uint8 { 8 }, flags: flagThrow | flagMayThrow },

    OpCheckCast        : { name: "check-cast",  dests: 1, destBits: 8, srcBits: []uint8 { 8 }, flags: flagCheckCast | flagMayThrow },
    OpInstanceOf       : { name: "instance-of", dests: 1, destBits: 4, srcBits: []uint8 { 4 }, flags: flagMayThrow },
    OpNewInstance      : { name: "new-instance", dests: 1, destBits: 8, flags: flagMayThrow },

    OpFilledNewArray      : { name: "filled-new-array", variadic: true, varSrcBits: 4, rangeForm: OpFilledNewArrayRange, flags: flagWritesResult | flagMayThrow },
    OpFilledNewArrayRange : { name: "filled-new-array/range", variadic: true, varSrcBits: 16, flags: flagWritesResult | flagMayThrow | flagRange },

    OpAget             : { name: "aget", dests: 1, destBits: 8, srcBits: []uint8 { 8, 8 }, flags: flagMayThrow },
    OpAput             : { name: "aput", srcBits: []uint8 { 8, 8, 8 }, flags: flagMayThrow },
    OpIget             : { name: "iget", dests: 1, destBits: 4, srcBits: []uint8 { 4 }, flags: flagMayThrow },
    OpIput             : { name: "iput", srcBits: []uint8 { 4, 4 }, flags: flagMayThrow },
    OpSget             : { name: "sget", dests: 1, destBits: 8, flags: flagMayThrow },
    OpSput             : { name: "sput", srcBits: []uint8 { 8 }, flags: flagMayThrow },

    OpInvokeVirtual    : { name: "invoke-virtual",   variadic: true, varSrcBits: 4, rangeForm: OpInvokeVirtualRange,   flags: flagInvoke | flagWritesResult | flagMayThrow },
    OpInvokeSuper      : { name: "invoke-super",     variadic: true, varSrcBits: 4, rangeForm: OpInvokeSuperRange,     flags: flagInvoke | flagWritesResult | flagMayThrow },
    OpInvokeDirect     : { name: "invoke-direct",    variadic: true, varSrcBits: 4, rangeForm: OpInvokeDirectRange,    flags: flagInvoke | flagWritesResult | flagMayThrow },
    OpInvokeStatic     : { name: "invoke-static",    variadic: true, varSrcBits: 4, rangeForm: OpInvokeStaticRange,    flags: flagInvoke | flagWritesResult | flagMayThrow },
    OpInvokeInterface  : { name: "invoke-interface", variadic: true, varSrcBits: 4, rangeForm: OpInvokeInterfaceRange, flags: flagInvoke | flagWritesResult | flagMayThrow },

    OpInvokeVirtualRange   : { name: "invoke-virtual/range",   variadic: true, varSrcBits: 16, flags: flagInvoke | flagWritesResult | flagMayThrow | flagRange },
    OpInvokeSuperRange     : { name: "invoke-super/range",     variadic: true, varSrcBits: 16, flags: flagInvoke | flagWritesResult | flagMayThrow | flagRange },
    OpInvokeDirectRange    : { name: "invoke-direct/range",    variadic: true, varSrcBits: 16, flags: flagInvoke | flagWritesResult | flagMayThrow | flagRange },
    OpInvokeStaticRange    : { name: "invoke-static/range",    variadic: true, varSrcBits: 16, flags: flagInvoke | flagWritesResult | flagMayThrow | flagRange },
    OpInvokeInterfaceRange : { name: "invoke-interface/range", variadic: true, varSrcBits: 16, flags: flagInvoke | flagWritesResult | flagMayThrow | flagRange },

    OpAddInt           : { name: "add-int", dests: 1, destBits: 8, srcBits: []uint8 { 8, 8 }, flags: flag2addr },
    OpSubInt           : { name: "sub-int", dests: 1, destBits: 8, srcBits: []uint8 { 8, 8 }, flags: flag2addr },
    OpMulInt           : { name: "mul-int", dests: 1, destBits: 8, srcBits: []uint8 { 8, 8 }, flags: flag2addr },
    OpDivInt           : { name: "div-int", dests: 1, destBits: 8, srcBits: []uint8 { 8, 8 }, flags: flag2addr | flagMayThrow },
    OpRemInt           : { name: "rem-int", dests: 1, destBits: 8, srcBits: []uint8 { 8, 8 }, flags: flag2addr | flagMayThrow },
    OpAddLong          : { name: "add-long", dests: 1, destBits: 8, srcBits: []uint8 { 8, 8 }, flags: flag2addr | flagWideDest },
    OpMulLong          : { name: "mul-long", dests: 1, destBits: 8, srcBits: []uint8 { 8, 8 }, flags: flag2addr | flagWideDest },
    OpAddFloat         : { name: "add-float", dests: 1, destBits: 8, srcBits: []uint8 { 8, 8 }, flags: flag2addr },
    OpAddDouble        : { name: "add-double", dests: 1, destBits: 8, srcBits: []uint8 { 8, 8 }, flags: flag2addr | flagWideDest },
    OpRemDouble        : { name: "rem-double", dests: 1, destBits: 8, srcBits: []uint8 { 8, 8 }, flags: flag2addr | flagWideDest },
}

func (self Op) info() *opInfo {
    if self >= opMax {
        panic("dex: invalid opcode")
    }
    return &opTab[self]
}

func (self Op) Name() string            { return self.info().name }
func (self Op) IsMove() bool            { return self.info().flags & flagMove != 0 }
func (self Op) IsInvoke() bool          { return self.info().flags & flagInvoke != 0 }
func (self Op) IsBranch() bool          { return self.info().flags & flagBranch != 0 }
func (self Op) IsGoto() bool            { return self.info().flags & flagGoto != 0 }
func (self Op) IsReturn() bool          { return self.info().flags & flagReturn != 0 }
func (self Op) IsThrow() bool           { return self.info().flags & flagThrow != 0 }
func (self Op) MayThrow() bool          { return self.info().flags & flagMayThrow != 0 }
func (self Op) IsLoadParam() bool       { return self.info().flags & flagLoadParam != 0 }
func (self Op) IsMoveResult() bool      { return self.info().flags & flagMoveResult != 0 }
func (self Op) WritesResult() bool      { return self.info().flags & flagWritesResult != 0 }
func (self Op) IsCheckCast() bool       { return self.info().flags & flagCheckCast != 0 }
func (self Op) Has2addrForm() bool      { return self.info().flags & flag2addr != 0 }
func (self Op) HasWideDest() bool       { return self.info().flags & flagWideDest != 0 }
func (self Op) IsRange() bool           { return self.info().flags & flagRange != 0 }
func (self Op) HasRangeForm() bool      { return self.info().rangeForm != OpNop }
func (self Op) RangeForm() Op           { return self.info().rangeForm }
func (self Op) String() string          { return self.Name() }

// MaxUnsignedValue is the largest register index encodable in a field
// of the given bit width.
func MaxUnsignedValue(bits uint8) uint32 {
    return (1 << bits) - 1
}
