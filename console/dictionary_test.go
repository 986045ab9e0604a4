package console

import (
	"fmt"
	"strings"
	"testing"
)

func TestDictionaryAddLookupRemove(t *testing.T) {
	names := NewNameTable()
	d := NewDictionary(names, 0)
	n := names.Intern("$x")

	if d.Lookup(n) != nil {
		t.Fatal("lookup before add should be nil")
	}
	v := d.Add(n)
	if v == nil || d.Lookup(n) != v {
		t.Fatal("lookup after add should return the added entry")
	}
	if d.Add(n) != v {
		t.Error("add should be idempotent")
	}
	if !d.Remove(v) {
		t.Fatal("remove should report success")
	}
	if d.Lookup(n) != nil {
		t.Error("lookup after remove should be nil")
	}
	if d.Remove(v) {
		t.Error("second remove should fail")
	}
}

func TestDictionaryRemoveMiddleOfBucket(t *testing.T) {
	names := NewNameTable()
	all := make([]*Name, 31)
	for i := range all {
		all[i] = names.Intern(fmt.Sprintf("n%d", i))
	}
	// ids 1, 16 and 31 share bucket 1 of 15.
	a, b, c := all[0], all[15], all[30]
	d := NewDictionary(names, 15)
	va, vb, vc := d.Add(a), d.Add(b), d.Add(c)

	bucket := d.table.bucket(a)
	if d.table.bucket(b) != bucket || d.table.bucket(c) != bucket {
		t.Fatal("names should collide")
	}
	if !d.Remove(vb) {
		t.Fatal("remove middle failed")
	}
	if d.Lookup(a) != va || d.Lookup(c) != vc {
		t.Error("siblings should remain reachable")
	}
	var chain []*Variable
	for e := d.table.buckets[bucket]; e != nil; e = e.next {
		chain = append(chain, e)
	}
	if len(chain) != 2 || chain[0] != vc || chain[1] != va {
		t.Errorf("bucket chain = %v, want [n30 n0]", chain)
	}
	if d.Count() != 2 {
		t.Errorf("Count() = %d, want 2", d.Count())
	}
}

func TestDictionaryGrowthKeepsIdentity(t *testing.T) {
	names := NewNameTable()
	d := NewDictionary(names, 15)
	var vars []*Variable
	for i := 0; i < 30; i++ {
		vars = append(vars, d.Add(names.Intern(fmt.Sprintf("$v%d", i))))
	}
	if d.BucketCount() != 15 {
		t.Fatalf("BucketCount() = %d before growth, want 15", d.BucketCount())
	}
	vars = append(vars, d.Add(names.Intern("$v30")))
	if d.BucketCount() != 59 {
		t.Fatalf("BucketCount() = %d after 31 inserts, want 59", d.BucketCount())
	}
	for i, v := range vars {
		if got := d.Lookup(names.Lookup(fmt.Sprintf("$v%d", i))); got != v {
			t.Errorf("$v%d resolved to a different entry after growth", i)
		}
	}
}

func TestVariableCoercion(t *testing.T) {
	names := NewNameTable()
	d := NewDictionary(names, 0)
	v := d.Add(names.Intern("$n"))

	v.SetString("12.5abc")
	if v.GetFloat() != 12.5 || v.GetInt() != 12 {
		t.Errorf("GetFloat/GetInt = %v/%v, want 12.5/12", v.GetFloat(), v.GetInt())
	}
	v.SetInt(7)
	if v.GetString() != "7" {
		t.Errorf("GetString() = %q, want 7", v.GetString())
	}
	v.SetFloat(0.5)
	if v.GetString() != "0.5" {
		t.Errorf("GetString() = %q, want 0.5", v.GetString())
	}
	v.SetString("9" + strings.Repeat(" ", maxNumericString))
	if v.GetFloat() != 0 {
		t.Errorf("long string GetFloat() = %v, want 0", v.GetFloat())
	}
}

func TestVariableConstantAndNotify(t *testing.T) {
	names := NewNameTable()
	d := NewDictionary(names, 0)
	var seen []string
	d.AddNotify("$c", func(v *Variable) { seen = append(seen, v.GetString()) })

	d.SetVariable("$c", "one")
	v := d.Lookup(names.Lookup("$c"))
	v.SetConstant(true)
	if v.SetString("two") {
		t.Error("assignment to a constant should fail")
	}
	if got, _ := d.GetVariable("$c"); got != "one" {
		t.Errorf("$c = %q, want one", got)
	}
	if len(seen) != 1 || seen[0] != "one" {
		t.Errorf("notifications = %v, want [one]", seen)
	}
	if n := d.DeleteVariables("$c"); n != 0 {
		t.Errorf("DeleteVariables removed %d constants", n)
	}
}

func TestDictionarySharedAndReset(t *testing.T) {
	names := NewNameTable()
	es := NewEvalState(names, 0)
	outer := es.PushFrame(names.Intern("outer"), nil)
	outer.SetVariable("%x", "1")

	inner := es.PushFrameRef(0)
	if !inner.Shares(outer) || inner.Owns() {
		t.Fatal("ref frame should borrow the outer table")
	}
	inner.SetVariable("%y", "2")
	if _, ok := outer.GetVariable("%y"); !ok {
		t.Error("write through a shared frame should be visible to the owner")
	}
	if inner.ScopeName != outer.ScopeName {
		t.Error("ref frame should copy scope metadata")
	}

	es.PopFrame()
	if outer.Count() != 2 {
		t.Errorf("popping a borrowing frame changed the owner: Count() = %d", outer.Count())
	}
	buckets := outer.BucketCount()
	es.PopFrame()
	if es.Depth() != 0 {
		t.Fatalf("Depth() = %d, want 0", es.Depth())
	}

	again := es.PushFrame(nil, nil)
	if again != outer {
		t.Error("frame slot should be reused")
	}
	if again.Count() != 0 {
		t.Errorf("reused frame has %d variables", again.Count())
	}
	if again.BucketCount() != buckets {
		t.Errorf("BucketCount() = %d after reset, want %d", again.BucketCount(), buckets)
	}
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern, s string
		want       bool
	}{
		{"$pref::*", "$Pref::Foo", true},
		{"$pref::*", "$prefs", false},
		{"$a?c", "$abc", true},
		{"*", "", true},
		{"$a*z", "$abcz", true},
		{"$a*z", "$abc", false},
		{"$path::*", "$Path::a/b/c", true},
		{"$x[1*", "$x[12", true},
		{"$x[1*", "$x1", false},
		{`$a\*`, `$a\b`, true},
		{"", "$a", false},
	}
	for _, tt := range tests {
		if got := MatchPattern(tt.pattern, tt.s); got != tt.want {
			t.Errorf("MatchPattern(%q, %q) = %v, want %v", tt.pattern, tt.s, got, tt.want)
		}
	}
}
