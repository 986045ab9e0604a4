package server

import (
	"bytes"
	"context"
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/GarageGames/Torque3D-sub044/console"
)

const preload = `
function Util::clamp(%v, %lo, %hi) { if (%v < %lo) return %lo; if (%v > %hi) return %hi; return %v; }
function helper() { return 1; }
$pref::Volume = 0.5;
new ScriptObject(Player) { health = 10; };
`

func newTestLSP(t *testing.T) *LspServer {
	t.Helper()
	var buf bytes.Buffer
	rt := console.NewRuntime(console.Options{Output: &buf})
	if _, err := rt.Eval(preload, "/game/util.cs"); err != nil {
		t.Fatalf("preload: %v", err)
	}
	w := NewWorker(rt)
	t.Cleanup(w.Stop)
	return &LspServer{
		worker: w,
		docs:   make(map[string]*document),
	}
}

// ---------------------------------------------------------------------------
// Text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractPrefix(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  protocol.Position
		want string
	}{
		{"simple word", "echo(x); strl", protocol.Position{Line: 0, Character: 13}, "strl"},
		{"namespace", "Util::cl", protocol.Position{Line: 0, Character: 8}, "Util::cl"},
		{"global sigil", "%x = $pref::Vo;", protocol.Position{Line: 0, Character: 14}, "$pref::Vo"},
		{"multi line", "first\nsecond\nech", protocol.Position{Line: 2, Character: 3}, "ech"},
		{"cursor at beginning", "hello", protocol.Position{Line: 0, Character: 0}, ""},
		{"after space", "a ", protocol.Position{Line: 0, Character: 2}, ""},
		{"line beyond document", "one line", protocol.Position{Line: 5, Character: 0}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractPrefix(tt.text, tt.pos); got != tt.want {
				t.Errorf("extractPrefix = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractWord(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  protocol.Position
		want string
	}{
		{"middle of call", "Util::clamp(1, 2, 3);", protocol.Position{Line: 0, Character: 8}, "Util::clamp"},
		{"variable", "echo($pref::Volume);", protocol.Position{Line: 0, Character: 8}, "$pref::Volume"},
		{"local", "%this.x", protocol.Position{Line: 0, Character: 2}, "%this"},
		{"underscore", "my_func();", protocol.Position{Line: 0, Character: 3}, "my_func"},
		{"at space", "a b", protocol.Position{Line: 0, Character: 1}, "a"},
		{"lone sigil", "$ = 1", protocol.Position{Line: 0, Character: 1}, ""},
		{"empty line", "", protocol.Position{Line: 0, Character: 0}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractWord(tt.text, tt.pos); got != tt.want {
				t.Errorf("extractWord = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func TestAnalyze_ParseError(t *testing.T) {
	a := Analyze("bad.cs", "$a = 1;\n$b = ;\n")
	if len(a.Diagnostics) == 0 {
		t.Fatal("expected a parse diagnostic")
	}
	d := a.Diagnostics[0]
	if d.Severity == nil || *d.Severity != protocol.DiagnosticSeverityError {
		t.Error("parse errors should be reported as errors")
	}
	if d.Range.Start.Line != 1 {
		t.Errorf("diagnostic line = %d, want 1", d.Range.Start.Line)
	}
	if strings.HasPrefix(d.Message, "line ") {
		t.Errorf("message should drop the line prefix: %q", d.Message)
	}
}

func TestAnalyze_Symbols(t *testing.T) {
	src := "function a() {}\n\nfunction Ns::b(%x, %y) {}\npackage P { function c() {} };\n"
	a := Analyze("ok.cs", src)
	if len(a.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", a.Diagnostics)
	}
	if len(a.Symbols) != 3 {
		t.Fatalf("symbols = %v, want 3", a.Symbols)
	}
	b := a.Symbols[1]
	if b.Qualified() != "Ns::b" || b.Line != 3 || len(b.Args) != 2 {
		t.Errorf("symbol b = %+v", b)
	}
	if got := signature(a.Symbols[2]); got != "[P] function c()" {
		t.Errorf("signature = %q", got)
	}
}

// ---------------------------------------------------------------------------
// Runtime-backed logic (complete, hover, definition)
// ---------------------------------------------------------------------------

func TestLSP_Complete(t *testing.T) {
	lsp := newTestLSP(t)
	lsp.update("file:///open.cs", "function Util::lerp(%a, %b, %t) {}\n")

	result, err := lsp.worker.Query(context.Background(), func(rt *console.Runtime) interface{} {
		return lsp.complete(rt, "util::")
	})
	if err != nil {
		t.Fatalf("complete returned error: %v", err)
	}
	labels := map[string]protocol.CompletionItem{}
	for _, item := range result.([]protocol.CompletionItem) {
		labels[item.Label] = item
	}
	if _, ok := labels["Util::clamp"]; !ok {
		t.Errorf("completion should include runtime Util::clamp, got %v", labels)
	}
	if item, ok := labels["Util::lerp"]; !ok || *item.Detail != "function Util::lerp(%a, %b, %t)" {
		t.Errorf("completion should include document Util::lerp, got %v", labels)
	}
}

func TestLSP_CompleteKinds(t *testing.T) {
	lsp := newTestLSP(t)
	result, _ := lsp.worker.Query(context.Background(), func(rt *console.Runtime) interface{} {
		return lsp.complete(rt, "Sim")
	})
	found := false
	for _, item := range result.([]protocol.CompletionItem) {
		if item.Label == "SimGroup" {
			found = true
			if item.Kind == nil || *item.Kind != protocol.CompletionItemKindClass {
				t.Error("SimGroup completion should have Kind=Class")
			}
		}
	}
	if !found {
		t.Error("complete for 'Sim' should include SimGroup")
	}

	result, _ = lsp.worker.Query(context.Background(), func(rt *console.Runtime) interface{} {
		return lsp.complete(rt, "$pref")
	})
	items := result.([]protocol.CompletionItem)
	if len(items) != 1 || items[0].Label != "$pref::Volume" {
		t.Errorf("variable completion = %v", items)
	}
}

func hoverText(t *testing.T, lsp *LspServer, word string) string {
	t.Helper()
	result, err := lsp.worker.Query(context.Background(), func(rt *console.Runtime) interface{} {
		return lsp.hover(rt, word)
	})
	if err != nil {
		t.Fatalf("hover returned error: %v", err)
	}
	h := result.(*protocol.Hover)
	if h == nil {
		return ""
	}
	mc, ok := h.Contents.(protocol.MarkupContent)
	if !ok {
		t.Fatal("hover contents should be MarkupContent")
	}
	return mc.Value
}

func TestLSP_Hover(t *testing.T) {
	lsp := newTestLSP(t)
	tests := []struct{ word, want string }{
		{"$pref::Volume", "= `0.5`"},
		{"SimGroup", "class SimGroup** : SimSet"},
		{"Util::clamp", "/game/util.cs:2"},
		{"echo", "echo(text [, ...])"},
		{"Player", "(1000) : ScriptObject"},
	}
	for _, tt := range tests {
		if got := hoverText(t, lsp, tt.word); !strings.Contains(got, tt.want) {
			t.Errorf("hover(%q) = %q, want it to contain %q", tt.word, got, tt.want)
		}
	}
	if got := hoverText(t, lsp, "nothingHere"); got != "" {
		t.Errorf("hover for unknown word = %q, want empty", got)
	}
}

func TestLSP_Definition(t *testing.T) {
	lsp := newTestLSP(t)
	lsp.update("file:///open.cs", "\n\nfunction fresh() {}\n")

	result, _ := lsp.worker.Query(context.Background(), func(rt *console.Runtime) interface{} {
		return lsp.definition(rt, "fresh")
	})
	locs := result.([]protocol.Location)
	if len(locs) != 1 || locs[0].URI != "file:///open.cs" || locs[0].Range.Start.Line != 2 {
		t.Errorf("definition(fresh) = %v", locs)
	}

	result, _ = lsp.worker.Query(context.Background(), func(rt *console.Runtime) interface{} {
		return lsp.definition(rt, "Util::clamp")
	})
	locs = result.([]protocol.Location)
	if len(locs) != 1 || locs[0].URI != "file:///game/util.cs" || locs[0].Range.Start.Line != 1 {
		t.Errorf("definition(Util::clamp) = %v", locs)
	}

	result, _ = lsp.worker.Query(context.Background(), func(rt *console.Runtime) interface{} {
		return lsp.definition(rt, "echo")
	})
	if locs := result.([]protocol.Location); len(locs) != 0 {
		t.Errorf("native functions have no definition, got %v", locs)
	}
}

// ---------------------------------------------------------------------------
// Document synchronization state and worker
// ---------------------------------------------------------------------------

func TestLSP_DocumentStore(t *testing.T) {
	lsp := newTestLSP(t)
	diags := lsp.update("file:///test.cs", "function f() {}")
	if diags == nil || len(diags) != 0 {
		t.Errorf("clean document diagnostics = %v, want empty non-nil", diags)
	}
	doc := lsp.document("file:///test.cs")
	if doc == nil || doc.text != "function f() {}" || len(doc.symbols) != 1 {
		t.Fatalf("document = %+v", doc)
	}
	if got := uriPath("file:///tmp/x.cs"); got != "/tmp/x.cs" {
		t.Errorf("uriPath = %q", got)
	}
}

func TestWorker_RecoversAndStops(t *testing.T) {
	w := NewWorker(console.NewRuntime(console.Options{Output: &bytes.Buffer{}}))
	_, err := w.Query(context.Background(), func(*console.Runtime) interface{} { panic("boom") })
	if err == nil || err.Error() != "boom" {
		t.Errorf("panic error = %v, want boom", err)
	}
	v, err := w.Query(context.Background(), func(rt *console.Runtime) interface{} { return rt.ObjectCount() })
	if err != nil || v.(int) != 0 {
		t.Errorf("Do after panic = %v, %v", v, err)
	}
	w.Stop()
	w.Stop()
	if _, err := w.Query(context.Background(), func(*console.Runtime) interface{} { return nil }); err != errStopped {
		t.Errorf("Do after Stop: err = %v, want errStopped", err)
	}
}

func TestWorker_ExecCapturesOutput(t *testing.T) {
	var sink bytes.Buffer
	rt := console.NewRuntime(console.Options{Output: &sink})
	w := NewWorker(rt)
	defer w.Stop()

	ex, err := w.Exec(context.Background(), "run.cs", `echo("hello"); function twice(%x) { return %x * 2; }`)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if ex.Output != "hello\n" {
		t.Errorf("captured output = %q, want %q", ex.Output, "hello\n")
	}
	if sink.Len() != 0 {
		t.Errorf("captured text leaked to the runtime writer: %q", sink.String())
	}

	v, err := w.Query(context.Background(), func(rt *console.Runtime) interface{} {
		out, _ := rt.Call("twice", "21")
		rt.Printf("after")
		return out
	})
	if err != nil || v.(string) != "42" {
		t.Errorf("twice(21) = %v, %v", v, err)
	}
	if sink.String() != "after\n" {
		t.Errorf("runtime writer not restored: %q", sink.String())
	}

	if _, err := w.Exec(context.Background(), "bad.cs", "$a = ;"); err == nil {
		t.Error("Exec should return the compile error")
	}
}

func TestWorker_CanceledContext(t *testing.T) {
	w := NewWorker(console.NewRuntime(console.Options{Output: &bytes.Buffer{}}))
	defer w.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran := false
	_, err := w.Query(ctx, func(*console.Runtime) interface{} {
		ran = true
		return nil
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if _, err := w.Query(context.Background(), func(*console.Runtime) interface{} { return nil }); err != nil {
		t.Fatalf("follow-up query: %v", err)
	}
	if ran {
		t.Error("a canceled request should not run")
	}
}

func TestLSP_ExecDocument(t *testing.T) {
	lsp := newTestLSP(t)
	lsp.update("file:///new.cs", "function Util::wrap(%v) { return %v - 20; }\necho(Util::wrap(23));\n")

	ex, err := lsp.execDocument(context.Background(), "file:///new.cs")
	if err != nil {
		t.Fatalf("execDocument: %v", err)
	}
	if ex.Output != "3\n" {
		t.Errorf("output = %q, want 3", ex.Output)
	}
	if got := hoverText(t, lsp, "Util::wrap"); !strings.Contains(got, "/new.cs:1") {
		t.Errorf("executed function should be live: hover = %q", got)
	}
	if _, err := lsp.execDocument(context.Background(), "file:///closed.cs"); err == nil {
		t.Error("executing a document that is not open should fail")
	}
}
