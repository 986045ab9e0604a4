package server

import (
	"regexp"
	"strconv"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/GarageGames/Torque3D-sub044/compiler"
)

var (
	parseErrLine = regexp.MustCompile(`^line (\d+): `)
	warnLine     = regexp.MustCompile(`^.*? \((\d+)\): `)
)

// Symbol is a function declared by an open document.
type Symbol struct {
	Name      string
	Namespace string
	Package   string
	Args      []string
	Line      int
}

// Qualified returns the Ns::name form used in calls.
func (s Symbol) Qualified() string {
	if s.Namespace == "" {
		return s.Name
	}
	return s.Namespace + "::" + s.Name
}

// Analysis is the result of checking one document.
type Analysis struct {
	Diagnostics []protocol.Diagnostic
	Symbols     []Symbol
}

// Analyze parses and compiles text, returning parse errors and compile
// warnings as diagnostics plus the functions the document declares.
func Analyze(filename, text string) Analysis {
	var a Analysis
	p := compiler.NewParser(text)
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		for _, msg := range errs {
			a.Diagnostics = append(a.Diagnostics, diagnostic(parseErrLine, msg, protocol.DiagnosticSeverityError))
		}
		return a
	}
	prog.Filename = filename

	for _, st := range prog.Statements {
		if fn, ok := st.(*compiler.FunctionDecl); ok {
			a.Symbols = append(a.Symbols, Symbol{
				Name:      fn.Name,
				Namespace: fn.Namespace,
				Package:   fn.Package,
				Args:      fn.Args,
				Line:      fn.Pos().Line,
			})
		}
	}

	c := compiler.NewCompiler(filename)
	if _, err := c.CompileProgram(prog); err != nil {
		a.Diagnostics = append(a.Diagnostics, diagnostic(nil, err.Error(), protocol.DiagnosticSeverityError))
	}
	for _, w := range c.Warnings() {
		a.Diagnostics = append(a.Diagnostics, diagnostic(warnLine, w, protocol.DiagnosticSeverityWarning))
	}
	return a
}

// diagnostic builds a whole-line diagnostic, taking the 1-based line
// number from the message prefix matched by re.
func diagnostic(re *regexp.Regexp, msg string, severity protocol.DiagnosticSeverity) protocol.Diagnostic {
	line := 0
	if re != nil {
		if m := re.FindStringSubmatch(msg); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				line = n - 1
			}
			msg = strings.TrimPrefix(msg, m[0])
		}
	}
	source := lspName
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: protocol.UInteger(line), Character: 0},
			End:   protocol.Position{Line: protocol.UInteger(line + 1), Character: 0},
		},
		Severity: &severity,
		Source:   &source,
		Message:  msg,
	}
}
