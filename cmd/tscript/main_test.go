package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/GarageGames/Torque3D-sub044/config"
	"github.com/GarageGames/Torque3D-sub044/console"
	"github.com/GarageGames/Torque3D-sub044/dso"
	"github.com/GarageGames/Torque3D-sub044/prefs"
)

func TestIncomplete(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"echo(1);", false},
		{"function f() {", true},
		{"function f() {\n}\n", false},
		{`$s = "open {`, true},
		{`$s = "brace { in string";`, false},
		{"// comment with {\n$a = 1;", false},
		{`$s = "esc \" quote";`, false},
		{"$a[1", true},
	}
	for _, tt := range tests {
		if got := incomplete(tt.src); got != tt.want {
			t.Errorf("incomplete(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

// newTestApp builds an app over a temporary project directory.
func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.FileName), []byte("[source]\ndirs = [\".\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	opts := cfg.RuntimeOptions()
	opts.Output = &out
	a := &app{cfg: cfg, rt: console.NewRuntime(opts)}
	store, err := prefs.Open(cfg.PrefsPath())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	a.store = store
	store.RegisterCommands(a.rt, cfg.Prefs.Pattern)
	return a, &out
}

func writeScript(t *testing.T, a *app, name, src string) string {
	t.Helper()
	path := filepath.Join(a.cfg.Dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunPersistsPrefs(t *testing.T) {
	a, out := newTestApp(t)
	entry := writeScript(t, a, "main.cs", `$pref::Runs = $pref::Runs + 1; echo("runs " @ $pref::Runs);`)

	if status := a.run(nil); status != 0 {
		t.Fatalf("run status = %d", status)
	}
	if status := a.run([]string{entry}); status != 0 {
		t.Fatalf("second run status = %d", status)
	}
	if got := out.String(); got != "runs 1\nruns 2\n" {
		t.Errorf("output = %q", got)
	}
	p, err := a.store.Get("$pref::Runs")
	if err != nil || p.Value.String() != "2" {
		t.Errorf("stored $pref::Runs = %v, %v", p, err)
	}
}

func TestCompileThenRunDSO(t *testing.T) {
	a, out := newTestApp(t)
	src := writeScript(t, a, "lib.cs", `function twice(%x) { return %x * 2; } echo(twice(21));`)

	if status := a.compile([]string{src}); status != 0 {
		t.Fatalf("compile status = %d", status)
	}
	compiled := dso.PathFor(a.cfg.DSODir(), "lib.cs")
	if _, err := os.Stat(compiled); err != nil {
		t.Fatalf("compiled file missing: %v", err)
	}
	if err := a.execScripts([]string{compiled}); err != nil {
		t.Fatalf("execScripts: %v", err)
	}
	if out.String() != "42\n" {
		t.Errorf("output = %q, want 42", out.String())
	}
}

func TestExecScriptsCompileError(t *testing.T) {
	a, _ := newTestApp(t)
	bad := writeScript(t, a, "bad.cs", `$a = ;`)
	if err := a.execScripts([]string{bad}); err == nil {
		t.Error("a script that fails to compile should stop execution")
	}
	if status := a.compile([]string{bad}); status != 1 {
		t.Errorf("compile status = %d, want 1", status)
	}
}

func TestExportToFile(t *testing.T) {
	a, _ := newTestApp(t)
	script := writeScript(t, a, "set.cs", `$opt::b = "two"; $opt::a = 1; $other = 3;`)
	target := filepath.Join(a.cfg.Dir, "opts.cs")
	if status := a.export([]string{"-o", target, "$opt::*", script}); status != 0 {
		t.Fatalf("export status = %d", status)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if want := "$opt::a = 1;\n$opt::b = \"two\";\n"; string(data) != want {
		t.Errorf("exported %q, want %q", data, want)
	}
}

func TestRelative(t *testing.T) {
	a, _ := newTestApp(t)
	if got := a.relative(filepath.Join(a.cfg.Dir, "sub", "x.cs")); got != filepath.Join("sub", "x.cs") {
		t.Errorf("relative = %q", got)
	}
	if got := a.relative("/elsewhere/y.cs"); got != "/elsewhere/y.cs" {
		t.Errorf("relative outside project = %q", got)
	}
}
