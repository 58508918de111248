package contentstream

import (
	"bytes"

	"github.com/tsawler/pagesect/core"
	"github.com/tsawler/pagesect/model"
)

// OpKind classifies the operators the segmentation engine reacts to.
// Everything else is OpUnknown and is carried through verbatim.
type OpKind int

const (
	OpUnknown OpKind = iota
	OpBeginText
	OpEndText
	OpSetFont
	OpMoveText
	OpMoveTextSetLeading
	OpSetLeading
	OpNextLine
	OpShowText
	OpShowTextArray
	OpNextLineShowText
	OpSpacingNextLineShowText
	OpSetTextMatrix
	OpConcat
	OpSave
	OpRestore
	OpDrawObject
	OpBeginMarked
	OpBeginMarkedProps
	OpEndMarked
)

var opKinds = map[string]OpKind{
	"BT":  OpBeginText,
	"ET":  OpEndText,
	"Tf":  OpSetFont,
	"Td":  OpMoveText,
	"TD":  OpMoveTextSetLeading,
	"TL":  OpSetLeading,
	"T*":  OpNextLine,
	"Tj":  OpShowText,
	"TJ":  OpShowTextArray,
	"'":   OpNextLineShowText,
	"\"":  OpSpacingNextLineShowText,
	"Tm":  OpSetTextMatrix,
	"cm":  OpConcat,
	"q":   OpSave,
	"Q":   OpRestore,
	"Do":  OpDrawObject,
	"BMC": OpBeginMarked,
	"BDC": OpBeginMarkedProps,
	"EMC": OpEndMarked,
}

// Classify returns the kind of an operator.
func Classify(operator string) OpKind {
	return opKinds[operator]
}

// String returns the operator the kind was classified from.
func (k OpKind) String() string {
	for op, kind := range opKinds {
		if kind == k {
			return op
		}
	}
	return "unknown"
}

// Kind classifies the operation's operator.
func (op Operation) Kind() OpKind {
	return Classify(op.Operator)
}

// IsTextShow reports whether the operation paints a text string.
func (op Operation) IsTextShow() bool {
	switch op.Kind() {
	case OpShowText, OpShowTextArray, OpNextLineShowText, OpSpacingNextLineShowText:
		return true
	}
	return false
}

// Number returns operand i as a float64 if it is numeric.
func (op Operation) Number(i int) (float64, bool) {
	if i < 0 || i >= len(op.Operands) {
		return 0, false
	}
	return number(op.Operands[i])
}

// Numbers returns every operand as a float64. It fails if the operation
// does not have exactly n operands or any of them is not numeric.
func (op Operation) Numbers(n int) ([]float64, bool) {
	if len(op.Operands) != n {
		return nil, false
	}
	out := make([]float64, n)
	for i, operand := range op.Operands {
		v, ok := number(operand)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// Name returns operand i if it is a name.
func (op Operation) Name(i int) (string, bool) {
	if i < 0 || i >= len(op.Operands) {
		return "", false
	}
	n, ok := op.Operands[i].(core.Name)
	return string(n), ok
}

// Matrix returns the six numeric operands of "cm" or "Tm" as a matrix.
func (op Operation) Matrix() (model.Matrix, bool) {
	v, ok := op.Numbers(6)
	if !ok {
		return model.Matrix{}, false
	}
	return model.Matrix{v[0], v[1], v[2], v[3], v[4], v[5]}, true
}

// TextPayload returns the raw string bytes painted by a text-showing
// operation. For TJ the string elements of the array are concatenated and
// the kerning numbers are dropped.
func (op Operation) TextPayload() ([]byte, bool) {
	if !op.IsTextShow() || len(op.Operands) == 0 {
		return nil, false
	}

	last := op.Operands[len(op.Operands)-1]
	switch v := last.(type) {
	case core.String:
		return []byte(v), true
	case core.Array:
		if op.Kind() != OpShowTextArray {
			return nil, false
		}
		var buf bytes.Buffer
		for _, elem := range v {
			if s, ok := elem.(core.String); ok {
				buf.WriteString(string(s))
			}
		}
		return buf.Bytes(), true
	}
	return nil, false
}

func number(obj core.Object) (float64, bool) {
	switch v := obj.(type) {
	case core.Int:
		return float64(v), true
	case core.Real:
		return float64(v), true
	}
	return 0, false
}
