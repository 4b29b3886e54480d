// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package smx

// ParamKind classifies the runtime meaning of one instruction
// parameter, for callers that want to render or follow it (a Jump
// parameter is a code offset, a Function parameter names a public or
// discovered procedure, and so on).
type ParamKind uint8

const (
	ParamConstant ParamKind = iota
	ParamStack
	ParamJump
	ParamFunction
	ParamNative
	ParamAddress
)

func (k ParamKind) String() string {
	switch k {
	case ParamConstant:
		return "C"
	case ParamStack:
		return "S"
	case ParamJump:
		return "J"
	case ParamFunction:
		return "F"
	case ParamNative:
		return "N"
	case ParamAddress:
		return "A"
	default:
		return "?"
	}
}

// Opcode identifies one bytecode instruction. Ordinals are assigned
// sequentially by this reader, grouped by parameter arity; they are
// an implementation detail and carry no on-disk compatibility
// requirement of their own.
type Opcode uint16

// CASETBL has variable arity and is handled specially by the
// disassembler rather than through its descriptor's Params list.
const (
	OpInvalid Opcode = iota

	// No parameters.
	OpAdd
	OpAnd
	OpBreak
	OpDecAlt
	OpDecI
	OpDecPri
	OpEq
	OpIdxAddr
	OpIncAlt
	OpIncI
	OpIncPri
	OpInvert
	OpLoadI
	OpMoveAlt
	OpMovePri
	OpNeg
	OpNeq
	OpNop
	OpNot
	OpOr
	OpPopAlt
	OpPopPri
	OpProc
	OpPushAlt
	OpPushPri
	OpRetn
	OpSdiv
	OpSdivAlt
	OpSgeq
	OpSgrtr
	OpShl
	OpShr
	OpSleq
	OpSless
	OpSmul
	OpSshr
	OpStorI
	OpStrAdjustPri
	OpSub
	OpSubAlt
	OpSwapAlt
	OpSwapPri
	OpTrackerPopSetheap
	OpXchg
	OpXor
	OpZeroAlt
	OpZeroPri

	// One Constant parameter.
	OpAddC
	OpBounds
	OpConstAlt
	OpConstPri
	OpFill
	OpGenArray
	OpGenArrayZ
	OpHalt
	OpHeap
	OpIdxAddrB
	OpEqCAlt
	OpEqCPri
	OpLidxB
	OpLoadAlt
	OpLoadPri
	OpLodbI
	OpMovs
	OpPushC
	OpShlCAlt
	OpShlCPri
	OpShrCAlt
	OpShrCPri
	OpSmulC
	OpStack
	OpStorAlt
	OpStorPri
	OpStrbI
	OpTrackerPushC
	OpLidx

	// One Stack parameter.
	OpAddrAlt
	OpAddrPri
	OpDecS
	OpIncS
	OpLoadSAlt
	OpLoadSPri
	OpLrefSAlt
	OpLrefSPri
	OpPushAdr
	OpPushS
	OpSrefSAlt
	OpSrefSPri
	OpStorSAlt
	OpStorSPri
	OpZeroS

	// One Address parameter.
	OpDec
	OpInc
	OpPush
	OpSwitch
	OpZero

	// One Jump parameter.
	OpJeq
	OpJneq
	OpJnz
	OpJsgeq
	OpJsgrtr
	OpJsleq
	OpJsless
	OpJump
	OpJzer

	// Irregular / multi-kind parameter lists.
	OpCall
	OpSysreqC
	OpSysreqN
	OpCasetbl
	OpConst
	OpConstS
	OpLoadBoth
	OpLoadSBoth
	OpPush2
	OpPush3
	OpPush4
	OpPush5
	OpPush2C
	OpPush3C
	OpPush4C
	OpPush5C
	OpPush2S
	OpPush3S
	OpPush4S
	OpPush5S
	OpPush2Adr
	OpPush3Adr
	OpPush4Adr
	OpPush5Adr
	OpRebase

	// ENDPROC shares PROC's role as a procedure boundary marker but
	// carries no parameters of its own.
	OpEndProc

	opcodeCount
)

// OpcodeInfo describes one opcode's textual name and its fixed
// parameter list. CASETBL's Params is a two-entry placeholder; see
// the disassembler for its real, count-driven arity.
type OpcodeInfo struct {
	Name   string
	Params []ParamKind
}

var opcodeTable = buildOpcodeTable()

func buildOpcodeTable() [opcodeCount]OpcodeInfo {
	var t [opcodeCount]OpcodeInfo

	noParams := []struct {
		op   Opcode
		name string
	}{
		{OpAdd, "add"}, {OpAnd, "and"}, {OpBreak, "break"}, {OpDecAlt, "dec.alt"},
		{OpDecI, "dec.i"}, {OpDecPri, "dec.pri"}, {OpEq, "eq"}, {OpIdxAddr, "idxaddr"},
		{OpIncAlt, "inc.alt"}, {OpIncI, "inc.i"}, {OpIncPri, "inc.pri"}, {OpInvert, "invert"},
		{OpLoadI, "load.i"}, {OpMoveAlt, "move.alt"}, {OpMovePri, "move.pri"}, {OpNeg, "neg"},
		{OpNeq, "neq"}, {OpNop, "nop"}, {OpNot, "not"}, {OpOr, "or"},
		{OpPopAlt, "pop.alt"}, {OpPopPri, "pop.pri"}, {OpProc, "proc"}, {OpPushAlt, "push.alt"},
		{OpPushPri, "push.pri"}, {OpRetn, "retn"}, {OpSdiv, "sdiv"}, {OpSdivAlt, "sdiv.alt"},
		{OpSgeq, "sgeq"}, {OpSgrtr, "sgrtr"}, {OpShl, "shl"}, {OpShr, "shr"},
		{OpSleq, "sleq"}, {OpSless, "sless"}, {OpSmul, "smul"}, {OpSshr, "sshr"},
		{OpStorI, "stor.i"}, {OpStrAdjustPri, "stradjust.pri"}, {OpSub, "sub"}, {OpSubAlt, "sub.alt"},
		{OpSwapAlt, "swap.alt"}, {OpSwapPri, "swap.pri"}, {OpTrackerPopSetheap, "tracker.pop.setheap"},
		{OpXchg, "xchg"}, {OpXor, "xor"}, {OpZeroAlt, "zero.alt"}, {OpZeroPri, "zero.pri"},
		{OpEndProc, "endproc"},
	}
	for _, e := range noParams {
		t[e.op] = OpcodeInfo{Name: e.name}
	}

	oneConst := []struct {
		op   Opcode
		name string
	}{
		{OpAddC, "add.c"}, {OpBounds, "bounds"}, {OpConstAlt, "const.alt"}, {OpConstPri, "const.pri"},
		{OpFill, "fill"}, {OpGenArray, "genarray"}, {OpGenArrayZ, "genarray.z"}, {OpHalt, "halt"},
		{OpHeap, "heap"}, {OpIdxAddrB, "idxaddr.b"}, {OpEqCAlt, "eq.c.alt"}, {OpEqCPri, "eq.c.pri"},
		{OpLidxB, "lidx.b"}, {OpLoadAlt, "load.alt"}, {OpLoadPri, "load.pri"}, {OpLodbI, "lodb.i"},
		{OpMovs, "movs"}, {OpPushC, "push.c"}, {OpShlCAlt, "shl.c.alt"}, {OpShlCPri, "shl.c.pri"},
		{OpShrCAlt, "shr.c.alt"}, {OpShrCPri, "shr.c.pri"}, {OpSmulC, "smul.c"}, {OpStack, "stack"},
		{OpStorAlt, "stor.alt"}, {OpStorPri, "stor.pri"}, {OpStrbI, "strb.i"}, {OpTrackerPushC, "tracker.push.c"},
	}
	for _, e := range oneConst {
		t[e.op] = OpcodeInfo{Name: e.name, Params: []ParamKind{ParamConstant}}
	}
	t[OpLidx] = OpcodeInfo{Name: "lidx"}

	oneStack := []struct {
		op   Opcode
		name string
	}{
		{OpAddrAlt, "addr.alt"}, {OpAddrPri, "addr.pri"}, {OpDecS, "dec.s"}, {OpIncS, "inc.s"},
		{OpLoadSAlt, "load.s.alt"}, {OpLoadSPri, "load.s.pri"}, {OpLrefSAlt, "lref.s.alt"}, {OpLrefSPri, "lref.s.pri"},
		{OpPushAdr, "push.adr"}, {OpPushS, "push.s"}, {OpSrefSAlt, "sref.s.alt"}, {OpSrefSPri, "sref.s.pri"},
		{OpStorSAlt, "stor.s.alt"}, {OpStorSPri, "stor.s.pri"}, {OpZeroS, "zero.s"},
	}
	for _, e := range oneStack {
		t[e.op] = OpcodeInfo{Name: e.name, Params: []ParamKind{ParamStack}}
	}

	oneAddress := []struct {
		op   Opcode
		name string
	}{
		{OpDec, "dec"}, {OpInc, "inc"}, {OpPush, "push"}, {OpSwitch, "switch"}, {OpZero, "zero"},
	}
	for _, e := range oneAddress {
		t[e.op] = OpcodeInfo{Name: e.name, Params: []ParamKind{ParamAddress}}
	}

	oneJump := []struct {
		op   Opcode
		name string
	}{
		{OpJeq, "jeq"}, {OpJneq, "jneq"}, {OpJnz, "jnz"}, {OpJsgeq, "jsgeq"}, {OpJsgrtr, "jsgrtr"},
		{OpJsleq, "jsleq"}, {OpJsless, "jsless"}, {OpJump, "jump"}, {OpJzer, "jzer"},
	}
	for _, e := range oneJump {
		t[e.op] = OpcodeInfo{Name: e.name, Params: []ParamKind{ParamJump}}
	}

	t[OpCall] = OpcodeInfo{Name: "call", Params: []ParamKind{ParamFunction}}
	t[OpSysreqC] = OpcodeInfo{Name: "sysreq.c", Params: []ParamKind{ParamNative}}
	t[OpSysreqN] = OpcodeInfo{Name: "sysreq.n", Params: []ParamKind{ParamNative, ParamConstant}}
	t[OpCasetbl] = OpcodeInfo{Name: "casetbl", Params: []ParamKind{ParamConstant, ParamAddress}}
	t[OpConst] = OpcodeInfo{Name: "const", Params: []ParamKind{ParamAddress, ParamConstant}}
	t[OpConstS] = OpcodeInfo{Name: "const.s", Params: []ParamKind{ParamStack, ParamConstant}}
	t[OpLoadBoth] = OpcodeInfo{Name: "load.both", Params: []ParamKind{ParamConstant, ParamConstant}}
	t[OpLoadSBoth] = OpcodeInfo{Name: "load.s.both", Params: []ParamKind{ParamStack, ParamStack}}

	pushN := func(op Opcode, name string, n int, kind ParamKind) {
		params := make([]ParamKind, n)
		for i := range params {
			params[i] = kind
		}
		t[op] = OpcodeInfo{Name: name, Params: params}
	}
	pushN(OpPush2, "push2", 2, ParamAddress)
	pushN(OpPush3, "push3", 3, ParamAddress)
	pushN(OpPush4, "push4", 4, ParamAddress)
	pushN(OpPush5, "push5", 5, ParamAddress)
	pushN(OpPush2C, "push2.c", 2, ParamConstant)
	pushN(OpPush3C, "push3.c", 3, ParamConstant)
	pushN(OpPush4C, "push4.c", 4, ParamConstant)
	pushN(OpPush5C, "push5.c", 5, ParamConstant)
	pushN(OpPush2S, "push2.s", 2, ParamStack)
	pushN(OpPush3S, "push3.s", 3, ParamStack)
	pushN(OpPush4S, "push4.s", 4, ParamStack)
	pushN(OpPush5S, "push5.s", 5, ParamStack)
	pushN(OpPush2Adr, "push2.adr", 2, ParamStack)
	pushN(OpPush3Adr, "push3.adr", 3, ParamStack)
	pushN(OpPush4Adr, "push4.adr", 4, ParamStack)
	pushN(OpPush5Adr, "push5.adr", 5, ParamStack)

	t[OpRebase] = OpcodeInfo{Name: "rebase", Params: []ParamKind{ParamAddress, ParamConstant, ParamConstant}}

	return t
}

// Info returns the opcode's descriptor, or the zero OpcodeInfo if op
// is out of range.
func (op Opcode) Info() (OpcodeInfo, bool) {
	if int(op) <= 0 || int(op) >= len(opcodeTable) {
		return OpcodeInfo{}, false
	}
	return opcodeTable[op], true
}

func (op Opcode) String() string {
	if info, ok := op.Info(); ok {
		return info.Name
	}
	return "unknown"
}
