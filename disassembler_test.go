// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package smx

import "testing"

func opBytes(op Opcode) []byte { return i32le(int32(op)) }

func TestDisassembleSimpleProcedure(t *testing.T) {
	code := concat(opBytes(OpProc), opBytes(OpAdd), opBytes(OpRetn))

	d := NewDisassembler(code, &PublicTable{}, NewCalledFunctionsTable())
	proc, err := d.Disassemble(0)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if len(proc.Instructions) != 2 {
		t.Fatalf("got %d instructions, want 2", len(proc.Instructions))
	}
	if proc.Instructions[0].Opcode != OpAdd || proc.Instructions[1].Opcode != OpRetn {
		t.Fatalf("got opcodes %v, %v, want ADD, RETN", proc.Instructions[0].Opcode, proc.Instructions[1].Opcode)
	}
}

func TestDisassembleRequiresLeadingPROC(t *testing.T) {
	code := opBytes(OpAdd)
	d := NewDisassembler(code, &PublicTable{}, NewCalledFunctionsTable())
	if _, err := d.Disassemble(0); err == nil {
		t.Fatal("expected an error when the procedure does not start with PROC")
	}
}

func TestDisassembleStopsAtEndProc(t *testing.T) {
	code := concat(opBytes(OpProc), opBytes(OpNop), opBytes(OpEndProc), opBytes(OpNop))
	d := NewDisassembler(code, &PublicTable{}, NewCalledFunctionsTable())
	proc, err := d.Disassemble(0)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if len(proc.Instructions) != 1 || proc.Instructions[0].Opcode != OpNop {
		t.Fatalf("got %+v, want exactly one NOP instruction", proc.Instructions)
	}
}

func TestDisassembleCasetbl(t *testing.T) {
	// case count N=2: a default target followed by N (value, target) pairs.
	code := concat(
		opBytes(OpProc),
		opBytes(OpCasetbl),
		i32le(2),
		i32le(0x100), // default target
		i32le(1), i32le(0x200),
		i32le(2), i32le(0x300),
	)
	d := NewDisassembler(code, &PublicTable{}, NewCalledFunctionsTable())
	proc, err := d.Disassemble(0)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if len(proc.Instructions) != 1 {
		t.Fatalf("got %d instructions, want 1", len(proc.Instructions))
	}
	params := proc.Instructions[0].Params
	if len(params) != 2*(2+1) {
		t.Fatalf("got %d params, want %d", len(params), 2*(2+1))
	}
	if params[0] != 2 {
		t.Fatalf("params[0] (case count) = %d, want 2", params[0])
	}
	if params[1] != 0x100 {
		t.Fatalf("params[1] (default target) = %#x, want 0x100", params[1])
	}
}

func TestDisassembleDiscoversCallTargets(t *testing.T) {
	code := concat(opBytes(OpProc), opBytes(OpCall), i32le(0x500), opBytes(OpRetn))

	called := NewCalledFunctionsTable()
	d := NewDisassembler(code, &PublicTable{}, called)
	if _, err := d.Disassemble(0); err != nil {
		t.Fatalf("Disassemble: %v", err)
	}

	cf, ok := called.FindByAddress(0x500)
	if !ok {
		t.Fatal("expected the CALL target to be recorded as a discovered function")
	}
	if cf.Name != "sub_500" {
		t.Fatalf("Name = %q, want %q", cf.Name, "sub_500")
	}
}

func TestDisassembleDoesNotRediscoverPublics(t *testing.T) {
	code := concat(opBytes(OpProc), opBytes(OpCall), i32le(0x500), opBytes(OpRetn))

	publics := &PublicTable{}
	publics.entries = []PublicEntry{{Address: 0x500, Name: "OnPluginStart"}}
	called := NewCalledFunctionsTable()

	d := NewDisassembler(code, publics, called)
	if _, err := d.Disassemble(0); err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if called.Has(0x500) {
		t.Fatal("a CALL target that is already a public must not be added to discovered-functions")
	}
}
