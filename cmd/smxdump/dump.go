// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"text/tabwriter"

	smx "github.com/saferwall/smx"
)

// dumpOptions mirrors the boolean flags accepted by the dump subcommand.
type dumpOptions struct {
	publics bool
	natives bool
	pubvars bool
	tags    bool
	debug   bool
	rtti    bool
	disasm  bool
	all     bool
}

func prettyPrint(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "\t"); err != nil {
		return string(raw)
	}
	return buf.String()
}

// run parses path, which may be a single container or a directory of
// them, and prints the requested sub-models.
func run(path string, opts dumpOptions) {
	info, err := os.Stat(path)
	if err != nil {
		log.Printf("cannot stat %s: %v", path, err)
		return
	}

	if !info.IsDir() {
		dumpOne(path, opts)
		return
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		log.Printf("cannot read directory %s: %v", path, err)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		dumpOne(path+string(os.PathSeparator)+e.Name(), opts)
	}
}

func dumpOne(filename string, opts dumpOptions) {
	log.Printf("processing %s", filename)

	f, err := smx.New(filename, &smx.Options{})
	if err != nil {
		log.Printf("error opening %s: %v", filename, err)
		return
	}
	defer f.Close()

	if opts.publics || opts.all {
		fmt.Println(prettyPrint(f.Publics))
	}
	if opts.natives || opts.all {
		fmt.Println(prettyPrint(f.Natives))
	}
	if opts.pubvars || opts.all {
		fmt.Println(prettyPrint(f.Pubvars))
	}
	if opts.tags || opts.all {
		fmt.Println(prettyPrint(f.Tags))
	}
	if opts.debug || opts.all {
		fmt.Println(prettyPrint(struct {
			Files   *smx.DebugFileTable
			Lines   *smx.DebugLineTable
			Globals *smx.DebugGlobalTable
			Locals  *smx.DebugLocalTable
			Methods *smx.DebugMethodTable
		}{f.DebugFiles, f.DebugLines, f.DebugGlobals, f.DebugLocals, f.DebugMethods}))
	}
	if opts.rtti || opts.all {
		fmt.Println(prettyPrint(struct {
			Enums        *smx.RTTIEnumTable
			Methods      *smx.RTTIMethodTable
			Natives      *smx.RTTINativeTable
			Typedefs     *smx.RTTITypedefTable
			Typesets     *smx.RTTITypesetTable
			EnumStructs  *smx.RTTIEnumStructTable
			ClassDefs    *smx.RTTIClassDefTable
		}{f.RTTIEnums, f.RTTIMethods, f.RTTINatives, f.RTTITypedefs, f.RTTITypesets, f.RTTIEnumStructs, f.RTTIClassDefs}))
	}
	if opts.disasm || opts.all {
		printDisasm(f)
	}
}

// printDisasm renders every decoded procedure as a tab-aligned
// instruction listing, sorted by entry address for stable output.
func printDisasm(f *smx.File) {
	addrs := make([]int32, 0, len(f.Procedures))
	for addr := range f.Procedures {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, addr := range addrs {
		proc := f.Procedures[addr]
		name, ok := f.FindFunctionName(uint32(addr))
		if !ok {
			name = fmt.Sprintf("sub_%x", addr)
		}
		fmt.Fprintf(w, "; --- %s (0x%x) ---\n", name, addr)
		for _, instr := range proc.Instructions {
			fmt.Fprintf(w, "0x%08x\t%s\t%v\n", instr.Address, instr.Opcode, instr.Params)
		}
	}
	w.Flush()
}
