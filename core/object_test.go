package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestObjectString tests the PDF syntax form of objects
func TestObjectString(t *testing.T) {
	tests := []struct {
		obj  Object
		want string
	}{
		{Null{}, "null"},
		{Bool(true), "true"},
		{Int(-3), "-3"},
		{Real(1.5), "1.5"},
		{Name("Font"), "/Font"},
		{Array{Int(1), Name("A")}, "[1 /A]"},
		{Dict{"B": Int(2), "A": Int(1)}, "<< /A 1 /B 2 >>"},
		{IndirectRef{Number: 4, Generation: 1}, "4 1 R"},
	}
	for _, tt := range tests {
		if got := tt.obj.String(); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.obj.Type(), tt.want, got)
		}
	}
}

// TestDictAccessors tests the typed getters
func TestDictAccessors(t *testing.T) {
	d := Dict{
		"Type":   Name("Page"),
		"Count":  Int(3),
		"Scale":  Real(0.5),
		"Res":    Dict{"Font": Dict{}},
		"Kids":   Array{IndirectRef{Number: 5}},
		"Parent": IndirectRef{Number: 2},
	}

	if v, ok := d.GetName("Type"); !ok || v != "Page" {
		t.Errorf("GetName: got %v %v", v, ok)
	}
	if _, ok := d.GetName("Count"); ok {
		t.Error("GetName should reject an integer")
	}
	if v, ok := d.GetInt("Count"); !ok || v != 3 {
		t.Errorf("GetInt: got %v %v", v, ok)
	}
	if v, ok := d.GetNumber("Scale"); !ok || v != 0.5 {
		t.Errorf("GetNumber: got %v %v", v, ok)
	}
	if v, ok := d.GetNumber("Count"); !ok || v != 3 {
		t.Errorf("GetNumber on Int: got %v %v", v, ok)
	}
	if _, ok := d.GetDict("Res"); !ok {
		t.Error("GetDict failed")
	}
	if v, ok := d.GetArray("Kids"); !ok || len(v) != 1 {
		t.Errorf("GetArray: got %v %v", v, ok)
	}
	if v, ok := d.GetIndirectRef("Parent"); !ok || v.Number != 2 {
		t.Errorf("GetIndirectRef: got %v %v", v, ok)
	}
	if d.Get("Missing") != nil {
		t.Error("expected nil for missing key")
	}
	if diff := cmp.Diff([]string{"Count", "Kids", "Parent", "Res", "Scale", "Type"}, d.Keys()); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
}

// TestObjectTypeString tests type names
func TestObjectTypeString(t *testing.T) {
	if ObjStream.String() != "stream" {
		t.Errorf("expected stream, got %s", ObjStream)
	}
	if ObjectType(99).String() != "unknown" {
		t.Errorf("expected unknown, got %s", ObjectType(99))
	}
}
