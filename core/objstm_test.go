package core

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tsawler/pagesect/internal/pdftest"
)

func newObjStm(t *testing.T, compress bool, objects map[int]string, order []int) *Stream {
	t.Helper()
	var header, body string
	for _, n := range order {
		header += fmt.Sprintf("%d %d ", n, len(body))
		body += objects[n] + " "
	}
	data := []byte(header + body)
	dict := Dict{
		"Type":  Name("ObjStm"),
		"N":     Int(len(order)),
		"First": Int(len(header)),
	}
	if compress {
		data = pdftest.Deflate(data)
		dict["Filter"] = Name("FlateDecode")
	}
	return &Stream{Dict: dict, Data: data}
}

// TestObjectStream tests reading objects by index and number
func TestObjectStream(t *testing.T) {
	objects := map[int]string{
		10: "<< /Type /Font /BaseFont /Helvetica >>",
		11: "[1 2 3]",
		12: "(text)",
	}
	os, err := NewObjectStream(newObjStm(t, true, objects, []int{10, 11, 12}))
	if err != nil {
		t.Fatalf("NewObjectStream failed: %v", err)
	}
	if os.Len() != 3 {
		t.Errorf("expected 3 objects, got %d", os.Len())
	}

	num, obj, err := os.ObjectAt(1)
	if err != nil {
		t.Fatalf("ObjectAt failed: %v", err)
	}
	if num != 11 {
		t.Errorf("expected object 11, got %d", num)
	}
	if diff := cmp.Diff(Array{Int(1), Int(2), Int(3)}, obj); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	// A wrong hint falls back to a search.
	obj, err = os.Object(12, 0)
	if err != nil {
		t.Fatalf("Object failed: %v", err)
	}
	if obj != String("text") {
		t.Errorf("expected (text), got %v", obj)
	}

	if _, err := os.Object(99, 0); err == nil {
		t.Error("expected error for missing object")
	}
	if _, _, err := os.ObjectAt(3); err == nil {
		t.Error("expected error for index out of range")
	}
}

// TestObjectStreamInvalid tests header validation
func TestObjectStreamInvalid(t *testing.T) {
	tests := []struct {
		name   string
		stream *Stream
	}{
		{"nil", nil},
		{"wrong type", &Stream{Dict: Dict{"Type": Name("XRef"), "N": Int(0), "First": Int(0)}}},
		{"missing N", &Stream{Dict: Dict{"Type": Name("ObjStm"), "First": Int(0)}}},
		{"First past end", &Stream{Dict: Dict{"Type": Name("ObjStm"), "N": Int(1), "First": Int(50)}, Data: []byte("1 0")}},
		{"short header", &Stream{Dict: Dict{"Type": Name("ObjStm"), "N": Int(2), "First": Int(4)}, Data: []byte("1 0 (a)")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewObjectStream(tt.stream); err == nil {
				t.Error("expected error")
			}
		})
	}
}
