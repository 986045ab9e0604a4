package console

import (
	"bytes"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestBacktrace(t *testing.T) {
	rt, _ := newTestRuntime(t)
	rt.Global.AddStringCommand("trace", func(*Object, []string) string {
		return rt.Backtrace()
	}, "trace()", 0, 0)
	evalOK(t, rt, `
		function Foo::inner() { return trace(); }
		function outer() { return Foo::inner(); }
		package Pk { function outer() { return "pk:" @ Foo::inner(); } };
		$plain = outer();
		activatePackage(Pk);
		$pkg = outer();
	`)
	if got := global(t, rt, "$plain"); got != "outer->Foo::inner" {
		t.Errorf("$plain = %q", got)
	}
	if got := global(t, rt, "$pkg"); got != "pk:[Pk]outer->Foo::inner" {
		t.Errorf("$pkg = %q", got)
	}
	if rt.Backtrace() != "" {
		t.Errorf("Backtrace() = %q outside any call", rt.Backtrace())
	}
}

func TestDumpClasses(t *testing.T) {
	rt, _ := newTestRuntime(t)
	var buf bytes.Buffer
	if err := rt.DumpClasses(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"class SimSet : SimObject {",
		"class ScriptGroup : SimGroup {",
		"getCount [int] - set.getCount()",
		"/* Identity */",
		"onAdd [callback]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("DumpClasses output missing %q\n%s", want, out)
		}
	}
}

func TestDumpFunctions(t *testing.T) {
	rt, _ := newTestRuntime(t)
	evalOK(t, rt, `function Util::twice(%x) { return %x * 2; } package Extra { function echo2() {} };`)
	var buf bytes.Buffer
	if err := rt.DumpFunctions(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"namespace <global> {",
		"/* Output */",
		"echo [void] - echo(text [, ...])",
		"namespace Util {",
		"twice [script] (test.cs:1)",
		"namespace [Extra]<global> {",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("DumpFunctions output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "namespace SimObject") {
		t.Error("class namespaces belong in DumpClasses")
	}
}

func TestDumpYAML(t *testing.T) {
	rt, _ := newTestRuntime(t)
	var buf bytes.Buffer
	if err := rt.DumpYAML(&buf); err != nil {
		t.Fatal(err)
	}
	var docs []NamespaceDoc
	if err := yaml.Unmarshal(buf.Bytes(), &docs); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, buf.String())
	}
	found := false
	for _, d := range docs {
		if d.Name != "SimObject" {
			continue
		}
		if !d.Class {
			t.Error("SimObject should be marked as a class")
		}
		for _, e := range d.Entries {
			if e.Name == "getId" && e.Kind == "int" && e.MinArgs == 1 {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("SimObject.getId missing from YAML dump\n%s", buf.String())
	}
}
