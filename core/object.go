package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Object is any PDF object.
type Object interface {
	Type() ObjectType
	String() string
}

// ObjectType identifies the concrete type of an Object.
type ObjectType int

const (
	ObjNull ObjectType = iota
	ObjBool
	ObjInt
	ObjReal
	ObjString
	ObjName
	ObjArray
	ObjDict
	ObjStream
	ObjIndirect
)

var objectTypeNames = [...]string{
	ObjNull:     "null",
	ObjBool:     "bool",
	ObjInt:      "int",
	ObjReal:     "real",
	ObjString:   "string",
	ObjName:     "name",
	ObjArray:    "array",
	ObjDict:     "dict",
	ObjStream:   "stream",
	ObjIndirect: "ref",
}

func (t ObjectType) String() string {
	if t >= 0 && int(t) < len(objectTypeNames) {
		return objectTypeNames[t]
	}
	return "unknown"
}

// Null is the PDF null object.
type Null struct{}

func (n Null) Type() ObjectType { return ObjNull }
func (n Null) String() string   { return "null" }

// Bool is a PDF boolean.
type Bool bool

func (b Bool) Type() ObjectType { return ObjBool }
func (b Bool) String() string   { return strconv.FormatBool(bool(b)) }

// Int is a PDF integer.
type Int int64

func (i Int) Type() ObjectType { return ObjInt }
func (i Int) String() string   { return strconv.FormatInt(int64(i), 10) }

// Real is a PDF real number.
type Real float64

func (r Real) Type() ObjectType { return ObjReal }
func (r Real) String() string   { return strconv.FormatFloat(float64(r), 'f', -1, 64) }

// String is a PDF string holding raw bytes, already unescaped.
type String string

func (s String) Type() ObjectType { return ObjString }
func (s String) String() string   { return string(s) }

// Name is a PDF name without the leading slash.
type Name string

func (n Name) Type() ObjectType { return ObjName }
func (n Name) String() string   { return "/" + string(n) }

// Array is a PDF array.
type Array []Object

func (a Array) Type() ObjectType { return ObjArray }
func (a Array) String() string {
	parts := make([]string, len(a))
	for i, obj := range a {
		parts[i] = obj.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Dict is a PDF dictionary keyed by name (without the slash).
type Dict map[string]Object

func (d Dict) Type() ObjectType { return ObjDict }
func (d Dict) String() string {
	var sb strings.Builder
	sb.WriteString("<<")
	for _, k := range d.Keys() {
		sb.WriteString(" /")
		sb.WriteString(k)
		sb.WriteByte(' ')
		sb.WriteString(d[k].String())
	}
	sb.WriteString(" >>")
	return sb.String()
}

// Get returns the value for key, or nil.
func (d Dict) Get(key string) Object {
	return d[key]
}

// GetName returns the value for key if it is a name.
func (d Dict) GetName(key string) (Name, bool) {
	v, ok := d[key].(Name)
	return v, ok
}

// GetInt returns the value for key if it is an integer.
func (d Dict) GetInt(key string) (Int, bool) {
	v, ok := d[key].(Int)
	return v, ok
}

// GetNumber returns the value for key if it is an integer or a real.
func (d Dict) GetNumber(key string) (float64, bool) {
	return Number(d[key])
}

// GetDict returns the value for key if it is a direct dictionary.
func (d Dict) GetDict(key string) (Dict, bool) {
	v, ok := d[key].(Dict)
	return v, ok
}

// GetArray returns the value for key if it is a direct array.
func (d Dict) GetArray(key string) (Array, bool) {
	v, ok := d[key].(Array)
	return v, ok
}

// GetIndirectRef returns the value for key if it is an indirect reference.
func (d Dict) GetIndirectRef(key string) (IndirectRef, bool) {
	v, ok := d[key].(IndirectRef)
	return v, ok
}

// Keys returns the keys in sorted order.
func (d Dict) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Stream is a PDF stream: a dictionary plus raw, still-encoded data.
type Stream struct {
	Dict Dict
	Data []byte
}

func (s *Stream) Type() ObjectType { return ObjStream }
func (s *Stream) String() string {
	return fmt.Sprintf("stream %s (%d bytes)", s.Dict.String(), len(s.Data))
}

// IndirectRef is a reference to an indirect object.
type IndirectRef struct {
	Number     int
	Generation int
}

func (r IndirectRef) Type() ObjectType { return ObjIndirect }
func (r IndirectRef) String() string {
	return fmt.Sprintf("%d %d R", r.Number, r.Generation)
}

// IndirectObject is an object together with the reference it was stored
// under.
type IndirectObject struct {
	Ref    IndirectRef
	Object Object
}

// Number returns the numeric value of an Int or Real.
func Number(obj Object) (float64, bool) {
	switch v := obj.(type) {
	case Int:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}
