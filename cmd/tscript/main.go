// tscript - command line driver for the TorqueScript compiler and console
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"

	"github.com/GarageGames/Torque3D-sub044/config"
	"github.com/GarageGames/Torque3D-sub044/console"
	"github.com/GarageGames/Torque3D-sub044/dso"
	"github.com/GarageGames/Torque3D-sub044/prefs"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("torque.cli")

// app carries the state shared by every subcommand.
type app struct {
	cfg     *config.Config
	rt      *console.Runtime
	store   *prefs.Store
	color   bool
	verbose bool
	useDSO  bool
	quit    bool
}

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	dir := flag.String("C", ".", "Directory to search for torque.toml")
	useDSO := flag.Bool("dso", false, "Reuse and refresh compiled .dso files when running scripts")
	noPrefs := flag.Bool("no-prefs", false, "Do not load or save the preference database")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tscript [options] <command> [args...]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  run [scripts...]          Execute scripts (default: the configured entry)\n")
		fmt.Fprintf(os.Stderr, "  repl                      Interactive console\n")
		fmt.Fprintf(os.Stderr, "  compile [-o dir] files... Write compiled .dso files\n")
		fmt.Fprintf(os.Stderr, "  disasm file               Disassemble a .cs or .dso file\n")
		fmt.Fprintf(os.Stderr, "  export [-o file] [-append] pattern [scripts...]\n")
		fmt.Fprintf(os.Stderr, "                            Run scripts, then write matching globals as script\n")
		fmt.Fprintf(os.Stderr, "  dump classes|functions|yaml [scripts...]\n")
		fmt.Fprintf(os.Stderr, "                            Document the console namespaces\n")
		fmt.Fprintf(os.Stderr, "  prefs list|clear [pattern]\n")
		fmt.Fprintf(os.Stderr, "                            Inspect the preference database\n")
		fmt.Fprintf(os.Stderr, "  lsp [-tcp addr] [scripts...]\n")
		fmt.Fprintf(os.Stderr, "                            Serve the Language Server Protocol\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.FindAndLoad(*dir)
	if err != nil {
		fatalf("Error loading %s: %v", config.FileName, err)
	}
	if cfg == nil {
		cfg = config.Default()
		cfg.Dir, _ = filepath.Abs(*dir)
	}

	verbosity := cfg.Log.Verbosity
	if *verbose {
		verbosity = 2
	}
	var logPath *string
	if cfg.Log.File != "" {
		logPath = &cfg.Log.File
	}
	commonlog.Configure(verbosity, logPath)

	cmd, args := flag.Arg(0), flag.Args()[1:]

	a := &app{
		cfg:     cfg,
		color:   isTerminal(os.Stderr),
		verbose: *verbose,
		useDSO:  *useDSO,
	}
	opts := cfg.RuntimeOptions()
	opts.Output = os.Stdout
	a.rt = console.NewRuntime(opts)

	if !*noPrefs && cmd != "compile" && cmd != "disasm" {
		a.openPrefs()
	}
	status := a.dispatch(cmd, args)
	if a.store != nil {
		a.store.Close()
	}
	os.Exit(status)
}

func (a *app) dispatch(cmd string, args []string) int {
	switch cmd {
	case "run":
		return a.run(args)
	case "repl":
		a.loadPrefs()
		runREPL(a)
		a.savePrefs()
		return 0
	case "compile":
		return a.compile(args)
	case "disasm":
		return a.disasm(args)
	case "export":
		return a.export(args)
	case "dump":
		return a.dump(args)
	case "prefs":
		return a.prefsCommand(args)
	case "lsp":
		return a.lsp(args)
	}
	fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
	flag.Usage()
	return 2
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// reportf prints a diagnostic to stderr, in red when stderr is a terminal.
func (a *app) reportf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if a.color {
		msg = "\x1b[31m" + msg + "\x1b[0m"
	}
	fmt.Fprintln(os.Stderr, msg)
}

func (a *app) openPrefs() {
	store, err := prefs.Open(a.cfg.PrefsPath())
	if err != nil {
		a.reportf("Warning: preferences unavailable: %v", err)
		a.store = nil
		return
	}
	a.store = store
	store.RegisterCommands(a.rt, a.cfg.Prefs.Pattern)
}

func (a *app) loadPrefs() {
	if a.store == nil {
		return
	}
	n, err := a.store.Load(a.rt.Globals(), a.cfg.Prefs.Pattern)
	if err != nil {
		a.reportf("Warning: loading preferences: %v", err)
		return
	}
	log.Debugf("restored %d preferences", n)
}

func (a *app) savePrefs() {
	if a.store == nil {
		return
	}
	if _, err := a.store.Save(a.rt.Globals(), a.cfg.Prefs.Pattern); err != nil {
		a.reportf("Warning: saving preferences: %v", err)
	}
}

// execScripts runs each script in order, stopping at the first compile error.
func (a *app) execScripts(paths []string) error {
	for _, path := range paths {
		if a.verbose {
			fmt.Fprintf(os.Stderr, "Executing %s\n", path)
		}
		if a.useDSO && !strings.EqualFold(filepath.Ext(path), dso.Ext) {
			unit, err := dso.LoadOrCompile(path, dso.PathFor(a.cfg.DSODir(), a.relative(path)), a.cfg.DSO.IncludeSource)
			if err != nil {
				return err
			}
			a.rt.ExecBlock(a.rt.NewCodeBlock(unit))
			continue
		}
		if strings.EqualFold(filepath.Ext(path), dso.Ext) {
			f, err := dso.ReadFile(path)
			if err != nil {
				return err
			}
			a.rt.ExecBlock(a.rt.NewCodeBlock(f.Unit()))
			continue
		}
		if _, err := a.rt.ExecFile(path); err != nil {
			return err
		}
	}
	return nil
}

// relative expresses path relative to the project directory when possible.
func (a *app) relative(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(a.cfg.Dir, abs); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// scriptsOrEntry returns args, or the configured entry script when empty.
func (a *app) scriptsOrEntry(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return []string{a.cfg.EntryPath()}
}

func (a *app) run(args []string) int {
	a.loadPrefs()
	if err := a.execScripts(a.scriptsOrEntry(args)); err != nil {
		a.reportf("Error: %v", err)
		return 1
	}
	a.savePrefs()
	return 0
}
