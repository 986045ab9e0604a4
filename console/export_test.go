package console

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExportPrefs(t *testing.T) {
	rt, _ := newTestRuntime(t)
	evalOK(t, rt, `$pref::Foo = "bar"; $pref::Count = 5; $other = 1;`)

	vars := rt.Globals().Match("$pref::*")
	if len(vars) != 2 {
		t.Fatalf("matched %d variables, want 2", len(vars))
	}
	if vars[0].Name().String() != "$pref::Count" || vars[1].Name().String() != "$pref::Foo" {
		t.Errorf("names = [%s %s]", vars[0].Name(), vars[1].Name())
	}
	if vars[0].GetString() != "5" || vars[1].GetString() != "bar" {
		t.Errorf("values = [%s %s]", vars[0].GetString(), vars[1].GetString())
	}

	var buf bytes.Buffer
	if err := rt.Globals().ExportVariables("$pref::*", &buf); err != nil {
		t.Fatal(err)
	}
	want := "$pref::Count = 5;\n$pref::Foo = \"bar\";\n"
	if buf.String() != want {
		t.Errorf("export = %q, want %q", buf.String(), want)
	}
}

func TestExportRoundTrip(t *testing.T) {
	rt, _ := newTestRuntime(t)
	evalOK(t, rt, `$pref::Text = "line1\nsay \"hi\"\\"; $pref::Half = 0.5;`)
	path := filepath.Join(t.TempDir(), "prefs.cs")
	if err := rt.Globals().ExportToFile("$pref::*", path, false); err != nil {
		t.Fatal(err)
	}
	if err := rt.Globals().ExportToFile("$pref::Half", path, true); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "$pref::Half = 0.5;"); n != 2 {
		t.Errorf("append mode: Half written %d times, want 2\n%s", n, data)
	}

	fresh, _ := newTestRuntime(t)
	if _, err := fresh.ExecFile(path); err != nil {
		t.Fatal(err)
	}
	orig, _ := rt.Globals().GetVariable("$pref::Text")
	if got := global(t, fresh, "$pref::Text"); got != orig {
		t.Errorf("round trip = %q, want %q", got, orig)
	}
}

func TestExpandEscape(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain", "plain"},
		{"a\nb\tc\r", `a\nb\tc\r`},
		{`q"b\`, `q\"b\\`},
		{"\x01", `\x01`},
	}
	for _, tt := range tests {
		if got := ExpandEscape(tt.in); got != tt.want {
			t.Errorf("ExpandEscape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExportAndDeleteBuiltins(t *testing.T) {
	rt, out := newTestRuntime(t)
	evalOK(t, rt, `$tmp::a = 1; $tmp::b = "x"; export("$tmp::*"); $n = deleteVariables("$tmp::*");`)
	if !strings.Contains(out.String(), "$tmp::a = 1;\n$tmp::b = \"x\";\n") {
		t.Errorf("output = %q", out.String())
	}
	if got := global(t, rt, "$n"); got != "2" {
		t.Errorf("$n = %q, want 2", got)
	}
	if _, ok := rt.Globals().GetVariable("$tmp::a"); ok {
		t.Error("$tmp::a should be deleted")
	}
}
