package console

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Console output
// ---------------------------------------------------------------------------

// Printf writes a line to the console output.
func (rt *Runtime) Printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(rt.out, msg)
	log.Info(msg)
}

// Warnf writes a warning line to the console output.
func (rt *Runtime) Warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(rt.out, msg)
	log.Warning(msg)
}

// Errorf writes an error line to the console output.
func (rt *Runtime) Errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(rt.out, msg)
	log.Error(msg)
}

// Backtrace renders the live script call chain, outermost first, as
// [pkg]Ns::fn entries joined by "->".
func (rt *Runtime) Backtrace() string {
	var parts []string
	for i := 0; i < rt.State.Depth(); i++ {
		f := rt.State.Frame(i)
		if f.ScopeName == nil {
			continue
		}
		var b strings.Builder
		if ns := f.ScopeNamespace; ns != nil {
			if ns.Package != nil {
				b.WriteString("[" + ns.Package.String() + "]")
			}
			if ns.Name != nil {
				b.WriteString(ns.Name.String() + "::")
			}
		}
		b.WriteString(f.ScopeName.String())
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "->")
}

// ---------------------------------------------------------------------------
// Builtin functions
// ---------------------------------------------------------------------------

func (rt *Runtime) registerBuiltins() {
	g := rt.Global

	g.MarkGroup("Output", "")
	g.AddVoidCommand("echo", func(_ *Object, argv []string) {
		rt.Printf("%s", strings.Join(argv, ""))
	}, "echo(text [, ...])", 1, 0)
	g.AddVoidCommand("warn", func(_ *Object, argv []string) {
		rt.Warnf("%s", strings.Join(argv, ""))
	}, "warn(text [, ...])", 1, 0)
	g.AddVoidCommand("error", func(_ *Object, argv []string) {
		rt.Errorf("%s", strings.Join(argv, ""))
	}, "error(text [, ...])", 1, 0)
	g.AddVoidCommand("backtrace", func(_ *Object, argv []string) {
		rt.Printf("BackTrace: %s", rt.Backtrace())
	}, "backtrace()", 0, 0)

	g.MarkGroup("Packages", "")
	g.AddBoolCommand("activatePackage", func(_ *Object, argv []string) bool {
		return rt.ActivatePackage(argv[0])
	}, "activatePackage(package)", 1, 1)
	g.AddBoolCommand("deactivatePackage", func(_ *Object, argv []string) bool {
		return rt.DeactivatePackage(argv[0])
	}, "deactivatePackage(package)", 1, 1)
	g.AddBoolCommand("isPackage", func(_ *Object, argv []string) bool {
		return rt.IsPackage(argv[0])
	}, "isPackage(package)", 1, 1)
	g.AddBoolCommand("isActivePackage", func(_ *Object, argv []string) bool {
		return rt.IsPackageActive(argv[0])
	}, "isActivePackage(package)", 1, 1)

	g.MarkGroup("Reflection", "")
	g.AddBoolCommand("isFunction", func(_ *Object, argv []string) bool {
		e := rt.Global.LookupString(argv[0])
		return e != nil && e.Kind != GroupMarker && e.Kind != ScriptCallbackMarker
	}, "isFunction(name)", 1, 1)
	g.AddBoolCommand("isObject", func(_ *Object, argv []string) bool {
		return rt.FindObject(argv[0]) != nil
	}, "isObject(object)", 1, 1)
	g.AddIntCommand("nameToID", func(_ *Object, argv []string) int64 {
		if obj := rt.FindObject(argv[0]); obj != nil {
			return int64(obj.ID)
		}
		return -1
	}, "nameToID(name)", 1, 1)

	g.MarkGroup("Variables", "")
	g.AddVoidCommand("export", func(_ *Object, argv []string) {
		var err error
		switch {
		case len(argv) < 2 || argv[1] == "":
			err = rt.Globals().ExportVariables(argv[0], rt.out)
		default:
			appendMode := len(argv) > 2 && StringValue(argv[2]).Bool()
			err = rt.Globals().ExportToFile(argv[0], argv[1], appendMode)
		}
		if err != nil {
			rt.Errorf("export: %v", err)
		}
	}, "export(pattern [, file [, append]])", 1, 3)
	g.AddIntCommand("deleteVariables", func(_ *Object, argv []string) int64 {
		return int64(rt.Globals().DeleteVariables(argv[0]))
	}, "deleteVariables(pattern)", 1, 1)

	g.MarkGroup("Strings", "")
	g.AddIntCommand("strlen", func(_ *Object, argv []string) int64 {
		return int64(len(argv[0]))
	}, "strlen(string)", 1, 1)
	g.AddIntCommand("getWordCount", func(_ *Object, argv []string) int64 {
		return int64(len(words(argv[0])))
	}, "getWordCount(text)", 1, 1)
	g.AddStringCommand("getWord", func(_ *Object, argv []string) string {
		w := words(argv[0])
		i, err := strconv.Atoi(strings.TrimSpace(argv[1]))
		if err != nil || i < 0 || i >= len(w) {
			return ""
		}
		return w[i]
	}, "getWord(text, index)", 2, 2)

	g.MarkGroup("Execution", "")
	g.AddBoolCommand("exec", func(_ *Object, argv []string) bool {
		if _, err := rt.ExecFile(argv[0]); err != nil {
			rt.Errorf("exec: %v", err)
			return false
		}
		return true
	}, "exec(file)", 1, 1)
	g.AddStringCommand("eval", func(_ *Object, argv []string) string {
		out, err := rt.EvalLocal(argv[0], "eval")
		if err != nil {
			rt.Errorf("eval: %v", err)
		}
		return out
	}, "eval(code)", 1, 1)
}

// words splits text on the console's word separators.
func words(text string) []string {
	var out []string
	start := -1
	for i := 0; i < len(text); i++ {
		if c := text[i]; c == ' ' || c == '\t' || c == '\n' {
			if start >= 0 {
				out = append(out, text[start:i])
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, text[start:])
	}
	return out
}
