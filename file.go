// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package smx

import (
	"fmt"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/saferwall/smx/log"
)

// Recognized section names, per the container's on-disk section directory.
const (
	sectionNames              = ".names"
	sectionDebugStrings       = ".dbg.strings"
	sectionDebugInfo          = ".dbg.info"
	sectionDebugFiles         = ".dbg.files"
	sectionDebugLines         = ".dbg.lines"
	sectionDebugGlobals       = ".dbg.globals"
	sectionDebugLocals        = ".dbg.locals"
	sectionDebugMethods       = ".dbg.methods"
	sectionDebugNatives       = ".dbg.natives"
	sectionDebugSymbols       = ".dbg.symbols"
	sectionPublics            = ".publics"
	sectionNatives            = ".natives"
	sectionPubvars            = ".pubvars"
	sectionTags               = ".tags"
	sectionCode               = ".code"
	sectionData               = ".data"
	sectionRTTIEnums          = ".rtti.enums"
	sectionRTTIMethods        = ".rtti.methods"
	sectionRTTINatives        = ".rtti.natives"
	sectionRTTITypedefs       = ".rtti.typedefs"
	sectionRTTITypesets       = ".rtti.typesets"
	sectionRTTIEnumStructs    = ".rtti.enumstructs"
	sectionRTTIEnumStructFlds = ".rtti.enumstruct_fields"
	sectionRTTIClassDefs      = ".rtti.classdefs"
	sectionRTTIFields         = ".rtti.fields"
	sectionRTTIData           = ".rtti.data"
)

// Options configures parsing of a container.
type Options struct {
	// A custom logger. Defaults to a stderr logger filtered at LevelError.
	Logger log.Logger
}

// File represents an open SMX container: its decoded header, typed
// tables, RTTI data, and disassembled procedures.
type File struct {
	Header *Header

	Names      *NameTable
	DebugNames *NameTable

	Publics *PublicTable
	Natives *NativeTable
	Pubvars *PubvarTable
	Tags    *TagTable

	Code *CodeV1Section
	Data *DataSection

	DebugInfo    DebugInfoHeader
	DebugFiles   *DebugFileTable
	DebugLines   *DebugLineTable
	DebugGlobals *DebugGlobalTable
	DebugLocals  *DebugLocalTable
	DebugMethods *DebugMethodTable

	RTTIEnums            *RTTIEnumTable
	RTTIMethods          *RTTIMethodTable
	RTTINatives          *RTTINativeTable
	RTTITypedefs         *RTTITypedefTable
	RTTITypesets         *RTTITypesetTable
	RTTIEnumStructs      *RTTIEnumStructTable
	RTTIEnumStructFields *RTTIEnumStructFieldTable
	RTTIClassDefs        *RTTIClassDefTable
	RTTIFields           *RTTIFieldTable
	RTTI                 *RTTIData

	Procedures      map[int32]*Procedure
	CalledFunctions *CalledFunctionsTable
	UnknownSections []string

	data   mmap.MMap
	f      *os.File
	opts   *Options
	logger *log.Helper

	rttiCtx *RTTIContext
}

// New opens the container at name, memory-mapping its contents.
func New(name string, opts *Options) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, wrapIO(err)
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, wrapIO(err)
	}

	file := newFile(opts)
	file.data = data
	file.f = f

	if err := file.load(data); err != nil {
		file.Close()
		return nil, err
	}
	return file, nil
}

// NewBytes opens a container already held in memory.
func NewBytes(data []byte, opts *Options) (*File, error) {
	file := newFile(opts)
	if err := file.load(data); err != nil {
		return nil, err
	}
	return file, nil
}

func newFile(opts *Options) *File {
	file := &File{}
	if opts != nil {
		file.opts = opts
	} else {
		file.opts = &Options{}
	}

	var logger log.Logger
	if file.opts.Logger == nil {
		logger = log.NewStdLogger(os.Stderr)
		file.logger = log.NewHelper(log.NewFilter(logger, log.FilterLevel(log.LevelError)))
	} else {
		file.logger = log.NewHelper(file.opts.Logger)
	}

	file.Procedures = make(map[int32]*Procedure)
	file.CalledFunctions = NewCalledFunctionsTable()
	file.rttiCtx = &RTTIContext{}
	return file
}

func (f *File) load(data []byte) error {
	h, err := LoadHeader(data)
	if err != nil {
		return err
	}
	f.Header = h
	return f.Parse()
}

// Close releases the memory-mapped file, if any.
func (f *File) Close() error {
	if f.data != nil {
		_ = f.data.Unmap()
	}
	if f.f != nil {
		return f.f.Close()
	}
	return nil
}

// Parse decodes every recognized section, then disassembles every
// public function and, transitively, every function discovered while
// disassembling.
func (f *File) Parse() error {
	if err := f.parseNameTables(); err != nil {
		return err
	}

	foundErr := false
	for _, s := range f.Header.Sections {
		func() {
			defer func() {
				if e := recover(); e != nil {
					f.logger.Errorf("unhandled exception parsing section %q: %v", s.Name, e)
					foundErr = true
				}
			}()

			if err := f.parseSection(s); err != nil {
				f.logger.Warnf("failed to parse section %q: %v", s.Name, err)
			}
		}()
	}

	if err := f.disassembleAll(); err != nil {
		f.logger.Warnf("disassembly failed: %v", err)
	}

	if foundErr {
		return other("one or more sections failed to parse")
	}
	return nil
}

// parseNameTables is pass 1: the string pools every later table needs.
func (f *File) parseNameTables() error {
	namesSection := f.Header.FindSection(sectionNames)
	if namesSection == nil {
		return other("missing .names section")
	}
	f.Names = NewNameTable(f.Header, namesSection)

	if s := f.Header.FindSection(sectionDebugStrings); s != nil {
		f.DebugNames = NewNameTable(f.Header, s)
	} else {
		f.DebugNames = f.Names
	}

	if s := f.Header.FindSection(sectionDebugInfo); s != nil {
		info, err := NewDebugInfoHeader(f.Header, s)
		if err != nil {
			return err
		}
		f.DebugInfo = info
	}

	return nil
}

// parseSection is pass 2: route one section to its typed constructor.
func (f *File) parseSection(s *SectionEntry) error {
	var err error
	switch s.Name {
	case sectionNames, sectionDebugStrings, sectionDebugInfo:
		// Handled eagerly in pass 1.
	case sectionDebugNatives, sectionDebugSymbols:
		// Legacy sections, not decoded.
	case sectionPublics:
		f.Publics, err = NewPublicTable(f.Header, s, f.Names)
	case sectionNatives:
		f.Natives, err = NewNativeTable(f.Header, s, f.Names)
	case sectionPubvars:
		f.Pubvars, err = NewPubvarTable(f.Header, s, f.Names)
	case sectionTags:
		f.Tags, err = NewTagTable(f.Header, s, f.Names)
	case sectionCode:
		f.Code, err = NewCodeV1Section(f.Header, s)
	case sectionData:
		f.Data, err = NewDataSection(f.Header, s)
	case sectionDebugFiles:
		f.DebugFiles, err = NewDebugFileTable(f.Header, s, f.DebugNames)
	case sectionDebugLines:
		f.DebugLines, err = NewDebugLineTable(f.Header, s)
	case sectionDebugGlobals:
		f.DebugGlobals, err = NewDebugGlobalTable(f.Header, s, f.DebugNames)
	case sectionDebugLocals:
		f.DebugLocals, err = NewDebugLocalTable(f.Header, s, f.DebugNames)
	case sectionDebugMethods:
		f.DebugMethods, err = NewDebugMethodTable(f.Header, s)
	case sectionRTTIEnums:
		f.RTTIEnums, err = NewRTTIEnumTable(f.Header, s, f.Names)
		f.rttiCtx.Enums = f.RTTIEnums
	case sectionRTTIMethods:
		f.RTTIMethods, err = NewRTTIMethodTable(f.Header, s, f.Names)
	case sectionRTTINatives:
		f.RTTINatives, err = NewRTTINativeTable(f.Header, s, f.Names)
	case sectionRTTITypedefs:
		f.RTTITypedefs, err = NewRTTITypedefTable(f.Header, s, f.Names)
		f.rttiCtx.Typedefs = f.RTTITypedefs
	case sectionRTTITypesets:
		f.RTTITypesets, err = NewRTTITypesetTable(f.Header, s, f.Names)
		f.rttiCtx.Typesets = f.RTTITypesets
	case sectionRTTIEnumStructs:
		f.RTTIEnumStructs, err = NewRTTIEnumStructTable(f.Header, s, f.Names)
		f.rttiCtx.EnumStructs = f.RTTIEnumStructs
	case sectionRTTIEnumStructFlds:
		f.RTTIEnumStructFields, err = NewRTTIEnumStructFieldTable(f.Header, s, f.Names)
	case sectionRTTIClassDefs:
		f.RTTIClassDefs, err = NewRTTIClassDefTable(f.Header, s, f.Names)
		f.rttiCtx.ClassDefs = f.RTTIClassDefs
	case sectionRTTIFields:
		f.RTTIFields, err = NewRTTIFieldTable(f.Header, s, f.Names)
	case sectionRTTIData:
		f.RTTI = NewRTTIData(f.Header, s, f.rttiCtx)
	default:
		f.UnknownSections = append(f.UnknownSections, s.Name)
	}
	return err
}

// disassembleAll disassembles every public, then drains the
// discovered-functions worklist, which may grow while draining.
func (f *File) disassembleAll() error {
	if f.Code == nil {
		return nil
	}

	codeStart := f.Code.CodeStart()
	codeSize := f.Code.Header().CodeSize
	end := codeStart + codeSize
	if end > int32(len(f.Header.Image)) {
		end = int32(len(f.Header.Image))
	}
	codeBytes := f.Header.Image[codeStart:end]

	publics := f.Publics
	if publics == nil {
		publics = &PublicTable{}
	}
	d := NewDisassembler(codeBytes, publics, f.CalledFunctions)

	for _, pub := range publics.Entries() {
		if err := f.disassembleOne(d, int32(pub.Address)); err != nil {
			return err
		}
	}

	for {
		next, ok := f.CalledFunctions.Next()
		if !ok {
			break
		}
		if err := f.disassembleOne(d, int32(next.Address)); err != nil {
			return err
		}
	}

	return nil
}

func (f *File) disassembleOne(d *Disassembler, addr int32) error {
	if _, ok := f.Procedures[addr]; ok {
		return nil
	}
	proc, err := d.Disassemble(addr)
	if err != nil {
		return err
	}
	f.Procedures[addr] = proc
	return nil
}

// FindGlobalName returns the name of the global variable declared at
// addr, if any.
func (f *File) FindGlobalName(addr int32) (string, bool) {
	if f.DebugGlobals == nil {
		return "", false
	}
	e, ok := f.DebugGlobals.FindGlobal(addr)
	if !ok {
		return "", false
	}
	return e.Name, true
}

// FindLocalName returns the name of the local, static, or argument
// variable declared at addr and live at codeAddr, if any.
func (f *File) FindLocalName(codeAddr, addr int32) (string, bool) {
	if f.DebugLocals == nil {
		return "", false
	}
	e, ok := f.DebugLocals.FindLocal(codeAddr, addr)
	if !ok {
		return "", false
	}
	return e.Name, true
}

// FindFunctionName returns the name of the public or discovered
// function at addr, if any.
func (f *File) FindFunctionName(addr uint32) (string, bool) {
	if f.Publics != nil {
		if e, ok := f.Publics.FindByAddress(addr); ok {
			return e.Name, true
		}
	}
	if e, ok := f.CalledFunctions.FindByAddress(addr); ok {
		return e.Name, true
	}
	return "", false
}

// IsFunctionAtAddress reports whether a public or discovered function
// starts at addr.
func (f *File) IsFunctionAtAddress(addr uint32) bool {
	if f.Publics != nil {
		if _, ok := f.Publics.FindByAddress(addr); ok {
			return true
		}
	}
	return f.CalledFunctions.Has(addr)
}

// String renders a brief summary of the container, useful for quick
// diagnostics.
func (f *File) String() string {
	return fmt.Sprintf("SMX container: version=0x%04x sections=%d publics=%d procedures=%d",
		f.Header.Version, len(f.Header.Sections), publicsLen(f.Publics), len(f.Procedures))
}

func publicsLen(t *PublicTable) int {
	if t == nil {
		return 0
	}
	return len(t.Entries())
}
