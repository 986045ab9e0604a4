package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/GarageGames/Torque3D-sub044/compiler"
	"github.com/GarageGames/Torque3D-sub044/console"
	"github.com/GarageGames/Torque3D-sub044/dso"
	"github.com/GarageGames/Torque3D-sub044/server"
)

// compile writes a .dso for every script argument.
// Usage:
//
//	tscript compile main.cs             # into the configured dso directory
//	tscript compile -o build a.cs b.cs  # into ./build
func (a *app) compile(args []string) int {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	out := fs.String("o", a.cfg.DSODir(), "Output directory")
	withSource := fs.Bool("source", a.cfg.DSO.IncludeSource, "Embed the script text")
	fs.Parse(args)

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: compile requires at least one script")
		return 2
	}
	status := 0
	for _, path := range fs.Args() {
		target := dso.PathFor(*out, a.relative(path))
		f, warnings, err := dso.CompileFile(path, target, *withSource)
		for _, w := range warnings {
			fmt.Fprintln(os.Stderr, w)
		}
		if err != nil {
			a.reportf("Error: %v", err)
			status = 1
			continue
		}
		if a.verbose {
			fmt.Printf("%s -> %s (%d words, build %s)\n", path, target, len(f.Code), f.BuildID)
		}
	}
	return status
}

// disasm prints the instruction listing of a script or compiled file.
func (a *app) disasm(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Error: disasm takes exactly one file")
		return 2
	}
	path := args[0]
	var unit *compiler.Unit
	if strings.EqualFold(filepath.Ext(path), dso.Ext) {
		f, err := dso.ReadFile(path)
		if err != nil {
			a.reportf("Error: %v", err)
			return 1
		}
		fmt.Printf("; build %s\n", f.BuildID)
		unit = f.Unit()
	} else {
		src, err := os.ReadFile(path)
		if err != nil {
			a.reportf("Error: %v", err)
			return 1
		}
		unit, err = compiler.Compile(string(src), path)
		if err != nil {
			a.reportf("Error: %v", err)
			return 1
		}
	}
	fmt.Print(compiler.Disassemble(unit))
	return 0
}

// export runs scripts and writes the globals matching a pattern.
func (a *app) export(args []string) int {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("o", "", "Write to file instead of stdout")
	appendMode := fs.Bool("append", false, "Append to the output file")
	fs.Parse(args)

	pattern := a.cfg.Prefs.Pattern
	scripts := fs.Args()
	if len(scripts) > 0 {
		pattern, scripts = scripts[0], scripts[1:]
	}
	a.loadPrefs()
	if err := a.execScripts(scripts); err != nil {
		a.reportf("Error: %v", err)
		return 1
	}

	var err error
	if *out != "" {
		err = a.rt.Globals().ExportToFile(pattern, *out, *appendMode)
	} else {
		err = a.rt.Globals().ExportVariables(pattern, os.Stdout)
	}
	if err != nil {
		a.reportf("Error: %v", err)
		return 1
	}
	return 0
}

// dump documents the namespaces after running the given scripts.
func (a *app) dump(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Error: dump requires classes, functions or yaml")
		return 2
	}
	if err := a.execScripts(args[1:]); err != nil {
		a.reportf("Error: %v", err)
		return 1
	}
	var err error
	switch args[0] {
	case "classes":
		err = a.rt.DumpClasses(os.Stdout)
	case "functions":
		err = a.rt.DumpFunctions(os.Stdout)
	case "yaml":
		err = a.rt.DumpYAML(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown dump kind %q\n", args[0])
		return 2
	}
	if err != nil {
		a.reportf("Error: %v", err)
		return 1
	}
	return 0
}

// prefsCommand lists or clears stored preferences.
func (a *app) prefsCommand(args []string) int {
	if a.store == nil {
		a.reportf("Error: preference database unavailable")
		return 1
	}
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Error: prefs requires list or clear")
		return 2
	}
	pattern := a.cfg.Prefs.Pattern
	if len(args) > 1 {
		pattern = args[1]
	}
	switch args[0] {
	case "list":
		list, err := a.store.List(pattern)
		if err != nil {
			a.reportf("Error: %v", err)
			return 1
		}
		for _, p := range list {
			fmt.Printf("%s = \"%s\";\n", p.Name, console.ExpandEscape(p.Value.String()))
		}
	case "clear":
		n, err := a.store.Delete(pattern)
		if err != nil {
			a.reportf("Error: %v", err)
			return 1
		}
		fmt.Printf("Removed %d preferences\n", n)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown prefs command %q\n", args[0])
		return 2
	}
	return 0
}

// lsp serves the Language Server Protocol after preloading scripts so
// their functions are known to completion and hover.
func (a *app) lsp(args []string) int {
	fs := flag.NewFlagSet("lsp", flag.ExitOnError)
	tcp := fs.String("tcp", "", "Listen on a TCP address instead of stdio")
	fs.Parse(args)

	// Script output must not corrupt the protocol stream
	a.rt.SetOutput(io.Discard)
	if err := a.execScripts(fs.Args()); err != nil {
		a.reportf("Error: %v", err)
		return 1
	}
	srv := server.NewLSP(a.rt)
	var err error
	if *tcp != "" {
		err = srv.RunTCP(*tcp)
	} else {
		err = srv.Run()
	}
	if err != nil {
		a.reportf("LSP error: %v", err)
		return 1
	}
	return 0
}

// runREPL starts an interactive read-eval-print loop. Input accumulates
// while brackets or strings are open, so blocks may span several lines.
func runREPL(a *app) {
	interactive := isTerminal(os.Stdin)
	if interactive {
		fmt.Println("TorqueScript console (type 'quit();' or Ctrl-D to exit)")
	}
	a.rt.Global.AddVoidCommand("quit", func(_ *console.Object, _ []string) {
		a.quit = true
	}, "quit()", 0, 0)

	scanner := bufio.NewScanner(os.Stdin)
	var buf strings.Builder
	for !a.quit {
		if interactive {
			if buf.Len() == 0 {
				fmt.Print("> ")
			} else {
				fmt.Print(".. ")
			}
		}
		if !scanner.Scan() {
			break
		}
		buf.WriteString(scanner.Text())
		buf.WriteByte('\n')

		src := buf.String()
		if strings.TrimSpace(src) == "" {
			buf.Reset()
			continue
		}
		if incomplete(src) {
			continue
		}
		buf.Reset()
		result, err := a.rt.Eval(src, "<console>")
		if err != nil {
			a.reportf("%v", err)
			continue
		}
		if result != "" {
			fmt.Println(result)
		}
	}
	if interactive {
		fmt.Println()
	}
}

// incomplete reports whether src has unbalanced braces or parentheses,
// or an unterminated string.
func incomplete(src string) bool {
	depth := 0
	var quote byte
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '{' || c == '(' || c == '[':
			depth++
		case c == '}' || c == ')' || c == ']':
			depth--
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		}
	}
	return depth > 0 || quote != 0
}
