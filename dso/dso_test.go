package dso

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/GarageGames/Torque3D-sub044/compiler"
	"github.com/GarageGames/Torque3D-sub044/console"
)

const script = `function add(%a, %b) { return %a + %b; }
$pi = 3.25;
$sum = add(2, $pi);
$msg = "sum " @ $sum;
`

func compileUnit(t *testing.T) *compiler.Unit {
	t.Helper()
	unit, err := compiler.Compile(script, "math.cs")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return unit
}

func TestMarshalRoundTrip(t *testing.T) {
	unit := compileUnit(t)
	f := New(unit, script, false)
	data, err := Marshal(f)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.BuildID != f.BuildID {
		t.Errorf("BuildID = %s, want %s", got.BuildID, f.BuildID)
	}
	if got.Source != "" {
		t.Error("source should be omitted unless requested")
	}
	u := got.Unit()
	if !reflect.DeepEqual(u.Code, unit.Code) || !reflect.DeepEqual(u.Strings, unit.Strings) ||
		!reflect.DeepEqual(u.Floats, unit.Floats) || !reflect.DeepEqual(u.LineBreaks, unit.LineBreaks) {
		t.Error("decoded unit differs from the compiled one")
	}
	if !got.Matches(script) || got.Matches(script+" ") {
		t.Error("Matches should compare source hashes")
	}
}

func TestCanonicalEncoding(t *testing.T) {
	f := New(compileUnit(t), script, true)
	a, _ := Marshal(f)
	b, _ := Marshal(f)
	if !bytes.Equal(a, b) {
		t.Error("encoding should be deterministic")
	}
}

func TestHeaderChecks(t *testing.T) {
	f := New(compileUnit(t), script, false)
	f.Magic = "NOPE"
	data, _ := Marshal(f)
	if _, err := Unmarshal(data); !errors.Is(err, ErrBadMagic) {
		t.Errorf("bad magic: err = %v", err)
	}

	f.Magic = Magic
	f.Version = Version + 1
	data, _ = Marshal(f)
	if _, err := Unmarshal(data); !errors.Is(err, ErrVersion) {
		t.Errorf("bad version: err = %v", err)
	}

	f.Version = Version
	f.Code = []uint32{0xFFFF}
	data, _ = Marshal(f)
	if _, err := Unmarshal(data); err == nil {
		t.Error("corrupt code stream should be rejected")
	}

	if _, err := Unmarshal([]byte{0xFF, 0x00}); err == nil {
		t.Error("garbage should not decode")
	}
}

func TestCompiledFileRunsLikeSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "math.cs")
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}
	out := PathFor(filepath.Join(dir, "out"), path)
	if _, _, err := CompileFile(path, out, true); err != nil {
		t.Fatalf("CompileFile: %v", err)
	}
	f, err := ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if f.Source != script {
		t.Error("include-source should embed the script text")
	}

	var buf bytes.Buffer
	rt := console.NewRuntime(console.Options{Output: &buf})
	rt.ExecBlock(rt.NewCodeBlock(f.Unit()))
	if got, _ := rt.Globals().GetVariable("$msg"); got != "sum 5.25" {
		t.Errorf("$msg = %q, want %q", got, "sum 5.25")
	}
	if r, ok := rt.Call("add", "1", "2"); !ok || r != "3" {
		t.Errorf("add(1, 2) = %q, %v", r, ok)
	}
}

func TestLoadOrCompile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.cs")
	out := filepath.Join(dir, "a.cs.dso")
	os.WriteFile(path, []byte(`$x = 1;`), 0o644)

	if _, err := LoadOrCompile(path, out, false); err != nil {
		t.Fatalf("first LoadOrCompile: %v", err)
	}
	first, err := ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOrCompile(path, out, false); err != nil {
		t.Fatal(err)
	}
	again, _ := ReadFile(out)
	if again.BuildID != first.BuildID {
		t.Error("an up-to-date file should be reused")
	}

	os.WriteFile(path, []byte(`$x = 2;`), 0o644)
	if _, err := LoadOrCompile(path, out, false); err != nil {
		t.Fatal(err)
	}
	rebuilt, _ := ReadFile(out)
	if rebuilt.BuildID == first.BuildID {
		t.Error("a stale file should be recompiled")
	}
}

func TestPathFor(t *testing.T) {
	tests := []struct{ dir, script, want string }{
		{"out", "scripts/main.cs", filepath.Join("out", "scripts", "main.cs.dso")},
		{"out", "/abs/x.cs", filepath.Join("out", "x.cs.dso")},
		{"out", "../up.cs", filepath.Join("out", "up.cs.dso")},
	}
	for _, tt := range tests {
		if got := PathFor(tt.dir, tt.script); got != tt.want {
			t.Errorf("PathFor(%q, %q) = %q, want %q", tt.dir, tt.script, got, tt.want)
		}
	}
}
