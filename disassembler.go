// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package smx

import "encoding/binary"

// Instruction is one decoded bytecode instruction: its opcode and the
// raw i32 parameters that followed it, in file order.
type Instruction struct {
	Address int32
	Opcode  Opcode
	Params  []int32
}

// Procedure is the decoded instruction stream for one function,
// starting at its PROC opcode and ending at the next PROC, ENDPROC,
// or the code blob boundary.
type Procedure struct {
	Address      int32
	Instructions []Instruction
}

// Disassembler decodes procedures out of one container's code blob,
// recording any CALL target not already known as a public or a prior
// discovery into a shared worklist.
type Disassembler struct {
	code    []byte
	publics *PublicTable
	called  *CalledFunctionsTable
}

// NewDisassembler builds a disassembler over the given code blob.
func NewDisassembler(code []byte, publics *PublicTable, called *CalledFunctionsTable) *Disassembler {
	return &Disassembler{code: code, publics: publics, called: called}
}

// Disassemble decodes the procedure starting at procOffset, which
// must be the byte offset of a PROC opcode within the code blob.
func (d *Disassembler) Disassemble(procOffset int32) (*Procedure, error) {
	cursor := int(procOffset)

	firstOp, err := d.readI32(&cursor)
	if err != nil {
		return nil, err
	}
	if Opcode(firstOp) != OpProc {
		return nil, ErrNotProcAligned
	}

	proc := &Procedure{Address: procOffset}

	for {
		if cursor >= len(d.code) {
			break
		}
		instrAddr := int32(cursor)

		rawOp, err := d.readI32(&cursor)
		if err != nil {
			return nil, err
		}
		op := Opcode(rawOp)

		if op == OpProc || op == OpEndProc {
			break
		}

		params, err := d.readParams(&cursor, op)
		if err != nil {
			return nil, err
		}

		if op == OpCall {
			d.recordCall(uint32(params[0]))
		}

		proc.Instructions = append(proc.Instructions, Instruction{
			Address: instrAddr,
			Opcode:  op,
			Params:  params,
		})
	}

	return proc, nil
}

// readParams reads an opcode's fixed parameter list, with CASETBL's
// count-driven variable arity handled as a special case: the first
// parameter is a case count N, followed by one default target and N
// (value, target) pairs — 2N+1 additional i32 words.
func (d *Disassembler) readParams(cursor *int, op Opcode) ([]int32, error) {
	if op == OpCasetbl {
		count, err := d.readI32(cursor)
		if err != nil {
			return nil, err
		}
		params := []int32{count}
		remaining := 2*count + 1
		for i := int32(0); i < remaining; i++ {
			v, err := d.readI32(cursor)
			if err != nil {
				return nil, err
			}
			params = append(params, v)
		}
		return params, nil
	}

	info, ok := op.Info()
	if !ok {
		return nil, other("unknown opcode ordinal")
	}

	params := make([]int32, 0, len(info.Params))
	for range info.Params {
		v, err := d.readI32(cursor)
		if err != nil {
			return nil, err
		}
		params = append(params, v)
	}
	return params, nil
}

// recordCall appends target to the discovered-functions table unless
// it is a known public or a prior discovery.
func (d *Disassembler) recordCall(target uint32) {
	if _, ok := d.publics.FindByAddress(target); ok {
		return
	}
	if d.called.Has(target) {
		return
	}
	d.called.Record(target)
}

func (d *Disassembler) readI32(cursor *int) (int32, error) {
	if *cursor+4 > len(d.code) {
		return 0, ErrOffsetOverflow
	}
	v := int32(binary.LittleEndian.Uint32(d.code[*cursor : *cursor+4]))
	*cursor += 4
	return v, nil
}
