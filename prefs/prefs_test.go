package prefs

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/GarageGames/Torque3D-sub044/console"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "prefs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newRuntime(t *testing.T, src string) *console.Runtime {
	t.Helper()
	var buf bytes.Buffer
	rt := console.NewRuntime(console.Options{Output: &buf})
	if src != "" {
		if _, err := rt.Eval(src, "prefs.cs"); err != nil {
			t.Fatalf("Eval: %v", err)
		}
	}
	return rt
}

func TestSaveAndLoad(t *testing.T) {
	s := openStore(t)
	rt := newRuntime(t, `$pref::Name = "Player One"; $pref::Volume = 0.75; $pref::Count = 3; $temp = 1;`)

	n, err := s.Save(rt.Globals(), "$pref::*")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n != 3 {
		t.Errorf("Save stored %d, want 3", n)
	}

	fresh := newRuntime(t, "")
	n, err = s.Load(fresh.Globals(), "$pref::*")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n != 3 {
		t.Errorf("Load restored %d, want 3", n)
	}
	want := map[string]string{"$pref::Name": "Player One", "$pref::Volume": "0.75", "$pref::Count": "3"}
	for name, w := range want {
		if got, _ := fresh.Globals().GetVariable(name); got != w {
			t.Errorf("%s = %q, want %q", name, got, w)
		}
	}
	if _, ok := fresh.Globals().GetVariable("$temp"); ok {
		t.Error("$temp should not be stored")
	}
	if v := fresh.Globals().Match("$pref::Count"); len(v) != 1 || v[0].Value().Kind() != console.KindInt {
		t.Error("integer preferences should keep their kind")
	}
}

func TestSaveOverwritesCaseInsensitively(t *testing.T) {
	s := openStore(t)
	rt := newRuntime(t, `$pref::Level = 1;`)
	s.Save(rt.Globals(), "$pref::*")
	rt.Globals().SetVariable("$PREF::level", "2")
	s.Save(rt.Globals(), "$pref::*")

	all, err := s.List("*")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("List() = %v, want one row", all)
	}
	p, err := s.Get("$pref::LEVEL")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Value.String() != "2" {
		t.Errorf("Get value = %q, want 2", p.Value.String())
	}
}

func TestGetMissingAndDelete(t *testing.T) {
	s := openStore(t)
	if _, err := s.Get("$pref::none"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing: err = %v, want ErrNotFound", err)
	}

	rt := newRuntime(t, `$pref::a = 1; $pref::b = 2; $keep::c = 3;`)
	s.Save(rt.Globals(), "*")
	n, err := s.Delete("$pref::*")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Delete removed %d, want 2", n)
	}
	rest, _ := s.List("*")
	if len(rest) != 1 || rest[0].Name != "$keep::c" {
		t.Errorf("remaining = %v", rest)
	}
}

func TestLoadSkipsConstants(t *testing.T) {
	s := openStore(t)
	rt := newRuntime(t, `$pref::Fixed = "new";`)
	s.Save(rt.Globals(), "$pref::*")

	fresh := newRuntime(t, `$pref::Fixed = "old";`)
	fresh.Globals().Variable("$pref::Fixed").SetConstant(true)
	n, _ := s.Load(fresh.Globals(), "$pref::*")
	if n != 0 {
		t.Errorf("Load restored %d, want 0", n)
	}
	if got, _ := fresh.Globals().GetVariable("$pref::Fixed"); got != "old" {
		t.Errorf("constant overwritten: %q", got)
	}
}

func TestScriptCommands(t *testing.T) {
	s := openStore(t)
	rt := newRuntime(t, "")
	s.RegisterCommands(rt, "$pref::*")
	if _, err := rt.Eval(`$pref::Gamma = 1.5; $saved = savePrefs(); $pref::Gamma = 9; $loaded = loadPrefs("$pref::G*");`, "cmd.cs"); err != nil {
		t.Fatal(err)
	}
	for name, w := range map[string]string{"$saved": "1", "$loaded": "1", "$pref::Gamma": "1.5"} {
		if got, _ := rt.Globals().GetVariable(name); got != w {
			t.Errorf("%s = %q, want %q", name, got, w)
		}
	}
}
