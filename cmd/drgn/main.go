// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The drgn tool looks up types and objects in the DWARF debugging
// information of an ELF binary.
// Run "drgn help" for a list of commands.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/kamalesh-babulal/drgn/internal/dwinfo"
	"github.com/kamalesh-babulal/drgn/internal/dwtype"
	"github.com/kamalesh-babulal/drgn/program"
)

var (
	flagKind     string
	flagFilename string
	flagObjects  string
)

var rootCmd = &cobra.Command{
	Use:   "drgn",
	Short: "explore the DWARF type information of an ELF binary",
	Long: `drgn looks up types and objects (constants, functions, variables)
in the DWARF debugging information of an ELF binary.`,
	SilenceUsage: true,
}

var typeCmd = &cobra.Command{
	Use:   "type <binary> <name>",
	Short: "find a type by name",
	Args:  cobra.ExactArgs(2),
	RunE:  runType,
}

var objectCmd = &cobra.Command{
	Use:   "object <binary> <name>",
	Short: "find an object (constant, function, or variable) by name",
	Args:  cobra.ExactArgs(2),
	RunE:  runObject,
}

var replCmd = &cobra.Command{
	Use:   "repl <binary>",
	Short: "interactively look up types and objects",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepl,
}

func main() {
	typeCmd.Flags().StringVar(&flagKind, "kind", "", "restrict the type kind (int, bool, float, struct, union, class, enum, typedef)")
	typeCmd.Flags().StringVar(&flagFilename, "filename", "", "restrict matches to this source file")
	objectCmd.Flags().StringVar(&flagObjects, "objects", "cfv", "object kinds to consider: any of c (constants), f (functions), v (variables)")
	objectCmd.Flags().StringVar(&flagFilename, "filename", "", "restrict matches to this source file")
	rootCmd.AddCommand(typeCmd, objectCmd, replCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openProgram(path string) (*program.Program, error) {
	p, err := program.Open(path)
	if err != nil {
		return nil, err
	}
	for _, w := range p.Warnings() {
		fmt.Fprintf(os.Stderr, "WARNING: %s\n", w)
	}
	return p, nil
}

// typeKinds is the order kinds are tried when none is given.
var typeKinds = []dwtype.Kind{
	dwtype.KindStruct,
	dwtype.KindUnion,
	dwtype.KindClass,
	dwtype.KindEnum,
	dwtype.KindTypedef,
	dwtype.KindInt,
	dwtype.KindBool,
	dwtype.KindFloat,
}

func kindFromString(s string) (dwtype.Kind, error) {
	for _, k := range typeKinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown type kind %q", s)
}

func findType(p *program.Program, name, kind, filename string) (dwtype.QualifiedType, error) {
	if kind != "" {
		k, err := kindFromString(kind)
		if err != nil {
			return dwtype.QualifiedType{}, err
		}
		return p.FindType(k, name, filename)
	}
	for _, k := range typeKinds {
		qt, err := p.FindType(k, name, filename)
		if err == dwinfo.ErrNotFound {
			continue
		}
		return qt, err
	}
	return dwtype.QualifiedType{}, dwinfo.ErrNotFound
}

func objectFlags(s string) (dwinfo.FindObjectFlags, error) {
	var flags dwinfo.FindObjectFlags
	for _, c := range s {
		switch c {
		case 'c':
			flags |= dwinfo.FindObjectConstant
		case 'f':
			flags |= dwinfo.FindObjectFunction
		case 'v':
			flags |= dwinfo.FindObjectVariable
		default:
			return 0, fmt.Errorf("unknown object kind %q", string(c))
		}
	}
	return flags, nil
}

func runType(cmd *cobra.Command, args []string) error {
	p, err := openProgram(args[0])
	if err != nil {
		return err
	}
	defer p.Close()

	qt, err := findType(p, args[1], flagKind, flagFilename)
	if err != nil {
		return err
	}
	fmt.Println(qt)
	return nil
}

func runObject(cmd *cobra.Command, args []string) error {
	p, err := openProgram(args[0])
	if err != nil {
		return err
	}
	defer p.Close()

	flags, err := objectFlags(flagObjects)
	if err != nil {
		return err
	}
	obj, err := p.FindObject(args[1], flagFilename, flags)
	if err != nil {
		return err
	}
	fmt.Println(obj)
	return nil
}

func runRepl(cmd *cobra.Command, args []string) error {
	p, err := openProgram(args[0])
	if err != nil {
		return err
	}
	defer p.Close()

	rl, err := readline.New("drgn> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "quit", "exit":
			return nil
		case "type":
			if len(fields) != 2 {
				fmt.Println("usage: type NAME")
				continue
			}
			qt, err := findType(p, fields[1], "", "")
			if err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Println(qt)
		case "object":
			if len(fields) != 2 {
				fmt.Println("usage: object NAME")
				continue
			}
			obj, err := p.FindObject(fields[1], "", dwinfo.FindObjectAny)
			if err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Println(obj)
		default:
			fmt.Println("commands: type NAME, object NAME, quit")
		}
	}
}
