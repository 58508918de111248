// Package contentstream tokenizes and re-serializes PDF content streams.
//
// A content stream is a flat sequence of operands followed by an operator:
//
//	ops, err := contentstream.Parse(streamData)
//	for _, op := range ops {
//	    fmt.Printf("Operator: %s, Operands: %v\n", op.Operator, op.Operands)
//	}
//
// [Encode] writes operations back out. Parse(Encode(ops)) returns the same
// operations, which is what lets a page be split into sections and put back
// together with some of them removed.
//
// Inline images (BI ... ID data EI) are returned as a single "BI" operation
// so the image data never leaks into the operator stream.
//
// [Classify] maps the operators that matter for segmentation (text objects,
// text positioning and showing, cm, q/Q, Do, marked content) onto [OpKind];
// every other operator is [OpUnknown] and is carried through untouched.
package contentstream
