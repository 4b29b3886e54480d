// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Command smxdump parses SourcePawn ".smx" containers and prints the
// requested sub-model as indented JSON. It is a thin consumer of the
// smx package, not part of the core parser.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is the smxdump release string, printed by the version
// subcommand.
const version = "0.1.0"

func main() {
	var opts dumpOptions

	rootCmd := &cobra.Command{
		Use:   "smxdump",
		Short: "A SourcePawn .smx container parser and disassembler",
		Long:  "smxdump parses compiled SourcePawn .smx containers and prints their sections, built for plugin inspection and malware analysis.",
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("smxdump version %s\n", version)
		},
	}

	dumpCmd := &cobra.Command{
		Use:   "dump <path>",
		Short: "Dumps the requested sub-model of one container or a directory of containers",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			run(args[0], opts)
		},
	}

	dumpCmd.Flags().BoolVar(&opts.publics, "publics", false, "dump exported functions")
	dumpCmd.Flags().BoolVar(&opts.natives, "natives", false, "dump imported native references")
	dumpCmd.Flags().BoolVar(&opts.pubvars, "pubvars", false, "dump exported variables")
	dumpCmd.Flags().BoolVar(&opts.tags, "tags", false, "dump tag definitions")
	dumpCmd.Flags().BoolVar(&opts.debug, "debug", false, "dump debug file/line/symbol tables")
	dumpCmd.Flags().BoolVar(&opts.rtti, "rtti", false, "dump RTTI tables")
	dumpCmd.Flags().BoolVar(&opts.disasm, "disasm", false, "disassemble every public and discovered function")
	dumpCmd.Flags().BoolVar(&opts.all, "all", false, "dump everything")

	rootCmd.AddCommand(versionCmd, dumpCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
