package console

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func evalOK(t *testing.T, rt *Runtime, src string) string {
	t.Helper()
	res, err := rt.Eval(src, "test.cs")
	if err != nil {
		t.Fatalf("eval %q: %v", src, err)
	}
	return res
}

func global(t *testing.T, rt *Runtime, name string) string {
	t.Helper()
	v, ok := rt.Globals().GetVariable(name)
	if !ok {
		t.Fatalf("%s is not defined", name)
	}
	return v
}

func TestIfElseTakesElseBranch(t *testing.T) {
	rt, _ := newTestRuntime(t)
	evalOK(t, rt, `$cond = false; if ($cond) { $a = 1; } else { $a = 2; }`)
	if got := global(t, rt, "$a"); got != "2" {
		t.Errorf("$a = %q, want 2", got)
	}
}

func TestExpressions(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`$r = 1 + 2 * 3;`, "7"},
		{`$r = 10 - 4 - 3;`, "3"},
		{`$r = 7 / 2;`, "3.5"},
		{`$r = 7 % 3;`, "1"},
		{`$r = 7 % 0;`, "0"},
		{`$r = 1 << 4 | 1;`, "17"},
		{`$r = 6 & 3 ^ 1;`, "3"},
		{`$r = 5 > 3;`, "1"},
		{`$r = 2 >= 3;`, "0"},
		{`$r = !0;`, "1"},
		{`$r = -(2 + 3);`, "-5"},
		{`$r = "a" @ "b";`, "ab"},
		{`$r = "a" SPC "b" TAB "c";`, "a b\tc"},
		{`$r = "abc" $= "ABC";`, "1"},
		{`$r = "abc" !$= "abd";`, "1"},
		{`$r = 1 ? "yes" : "no";`, "yes"},
		{`$r = 0 && ($never = 1);`, "0"},
		{`$r = 2 || 0;`, "2"},
		{`$r = 0x10;`, "16"},
	}
	for _, tt := range tests {
		rt, _ := newTestRuntime(t)
		evalOK(t, rt, tt.src)
		if got := global(t, rt, "$r"); got != tt.want {
			t.Errorf("%s: $r = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestLoops(t *testing.T) {
	rt, _ := newTestRuntime(t)
	evalOK(t, rt, `
		$sum = 0;
		for ($i = 0; $i < 10; $i++) {
			if ($i == 3) continue;
			if ($i == 6) break;
			$sum += $i;
		}
		$n = 0;
		while ($n < 4) $n++;
		$d = 0;
		do { $d++; } while ($d < 0);
	`)
	if got := global(t, rt, "$sum"); got != "12" {
		t.Errorf("$sum = %q, want 12", got)
	}
	if got := global(t, rt, "$n"); got != "4" {
		t.Errorf("$n = %q, want 4", got)
	}
	if got := global(t, rt, "$d"); got != "1" {
		t.Errorf("$d = %q, want 1", got)
	}
}

func TestArrayVariables(t *testing.T) {
	rt, _ := newTestRuntime(t)
	evalOK(t, rt, `$arr[1, 2] = "x"; $arr[3] = 5; $arr[3] += 1; $copy = $arr[1, 2];`)
	if got := global(t, rt, "$arr1_2"); got != "x" {
		t.Errorf("$arr1_2 = %q, want x", got)
	}
	if got := global(t, rt, "$arr3"); got != "6" {
		t.Errorf("$arr3 = %q, want 6", got)
	}
	if got := global(t, rt, "$copy"); got != "x" {
		t.Errorf("$copy = %q, want x", got)
	}
}

func TestSwitch(t *testing.T) {
	rt, _ := newTestRuntime(t)
	evalOK(t, rt, `
		function pick(%v) {
			switch (%v) {
			case 1 or 2: return "low";
			case 3: return "three";
			default: return "other";
			}
		}
		function name(%s) {
			switch$ (%s) {
			case "a": return "A";
			default: return "?";
			}
		}
		$a = pick(2); $b = pick(3); $c = pick(9); $d = name("A");
	`)
	for name, want := range map[string]string{"$a": "low", "$b": "three", "$c": "other", "$d": "A"} {
		if got := global(t, rt, name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestFunctionsAndLocals(t *testing.T) {
	rt, _ := newTestRuntime(t)
	evalOK(t, rt, `
		function add(%a, %b) { %sum = %a + %b; return %sum; }
		function fact(%n) { if (%n <= 1) return 1; return %n * fact(%n - 1); }
		function noop() {}
		$x = add(2, 3);
		$f = fact(5);
		$v = noop();
		%local = 1;
	`)
	if got := global(t, rt, "$x"); got != "5" {
		t.Errorf("$x = %q, want 5", got)
	}
	if got := global(t, rt, "$f"); got != "120" {
		t.Errorf("$f = %q, want 120", got)
	}
	if got := global(t, rt, "$v"); got != "" {
		t.Errorf("$v = %q, want empty", got)
	}
	if _, ok := rt.Globals().GetVariable("%local"); ok {
		t.Error("locals should not leak into globals")
	}
	if rt.State.Depth() != 0 {
		t.Errorf("Depth() = %d after eval, want 0", rt.State.Depth())
	}
	if res, ok := rt.Call("add", "4", "5"); !ok || res != "9" {
		t.Errorf("Call(add) = %q, %v", res, ok)
	}
}

func TestUnknownFunctionWarns(t *testing.T) {
	rt, out := newTestRuntime(t)
	evalOK(t, rt, `$r = nothing(1); $after = 1;`)
	if !strings.Contains(out.String(), "Unknown command nothing") {
		t.Errorf("output = %q", out.String())
	}
	if got := global(t, rt, "$after"); got != "1" {
		t.Error("execution should continue after an unknown call")
	}
}

func TestRecursionLimit(t *testing.T) {
	var out strings.Builder
	rt := NewRuntime(Options{Output: &out, MaxCallDepth: 16})
	evalOK(t, rt, `function down(%n) { return down(%n + 1); } $r = down(0); $done = 1;`)
	if !strings.Contains(out.String(), "call depth limit") {
		t.Errorf("output = %q, want depth warning", out.String())
	}
	if got := global(t, rt, "$done"); got != "1" {
		t.Error("execution should continue after hitting the limit")
	}
}

func TestNamespacedFunctionsAndParent(t *testing.T) {
	rt, _ := newTestRuntime(t)
	evalOK(t, rt, `
		function Base::greet(%this) { return "base"; }
		function Derived::greet(%this) { return "derived+" @ Parent::greet(%this); }
	`)
	rt.FindNamespace("Derived", "").ClassLinkTo(rt.FindNamespace("Base", ""))
	evalOK(t, rt, `$g = Derived::greet(0);`)
	if got := global(t, rt, "$g"); got != "derived+base" {
		t.Errorf("$g = %q, want derived+base", got)
	}
}

func TestLargeIntegerLiterals(t *testing.T) {
	rt, _ := newTestRuntime(t)
	evalOK(t, rt, `$big = 3000000000; $sum = 3000000000 + 1; $mask = 0xff;`)
	for name, want := range map[string]string{"$big": "3000000000", "$sum": "3000000001", "$mask": "255"} {
		if got := global(t, rt, name); got != want {
			t.Errorf("%s = %q, want %s", name, got, want)
		}
	}
}

func TestEvalSharesCallerLocals(t *testing.T) {
	rt, _ := newTestRuntime(t)
	evalOK(t, rt, `function f() { %x = 1; eval("%x = 2; %y = %x + 1;"); return %x @ " " @ %y; } $r = f();`)
	if got := global(t, rt, "$r"); got != "2 3" {
		t.Errorf("$r = %q, want \"2 3\"", got)
	}
	if d := rt.State.Depth(); d != 0 {
		t.Errorf("Depth() = %d after eval, want 0", d)
	}

	evalOK(t, rt, `function g() { eval("%z = 5;"); } g(); $after = %z;`)
	if got := global(t, rt, "$after"); got != "" {
		t.Errorf("locals leaked out of the function frame: $after = %q", got)
	}
}

func TestCompileErrorReturned(t *testing.T) {
	rt, _ := newTestRuntime(t)
	if _, err := rt.Eval(`$a = ;`, "bad.cs"); err == nil {
		t.Error("expected a compile error")
	}
}

func TestExecFileAndBuiltins(t *testing.T) {
	rt, out := newTestRuntime(t)
	path := filepath.Join(t.TempDir(), "main.cs")
	src := `echo("hello", " ", "world"); $len = strlen("abcd"); $wc = getWordCount("a b  c"); $w = getWord("a b c", 1);`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := rt.ExecFile(path); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "hello world\n") {
		t.Errorf("output = %q", out.String())
	}
	for name, want := range map[string]string{"$len": "4", "$wc": "3", "$w": "b"} {
		if got := global(t, rt, name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	evalOK(t, rt, `$isf = isFunction("echo"); $nof = isFunction("nope"); $e = eval("$inner = 3;");`)
	if global(t, rt, "$isf") != "1" || global(t, rt, "$nof") != "0" || global(t, rt, "$inner") != "3" {
		t.Error("reflection builtins returned unexpected values")
	}
}

func TestCodeBlockReferences(t *testing.T) {
	rt, _ := newTestRuntime(t)
	evalOK(t, rt, `function keep() { return 1; }`)
	blocks := rt.CodeBlocks()
	if len(blocks) != 1 || blocks[0].RefCount() != 1 {
		t.Fatalf("blocks = %d, want one block held by its function", len(blocks))
	}
	evalOK(t, rt, `$x = 1;`)
	if len(rt.CodeBlocks()) != 1 {
		t.Error("a block defining no functions should be released after running")
	}
	evalOK(t, rt, `function keep() { return 2; }`)
	if got := rt.CodeBlocks(); len(got) != 1 || got[0] == blocks[0] {
		t.Error("redefining the only function should release the old block")
	}
}
