// Package model provides the geometric primitives shared by the content-stream
// parser, the graphics state and the section matcher.
//
// All coordinates are in PDF user space: origin at the bottom-left of the
// page, y growing upward, one unit per 1/72 inch.
//
//   - [Point] - 2D point with distance and per-axis offset
//   - [BBox] - axis-aligned rectangle with union and containment
//   - [Matrix] - affine transform in the PDF [a b c d e f] convention
//
// [Matrix.Multiply] composes left to right: m.Multiply(n) applies m first,
// then n, which is the order PDF uses when a "cm" operand is applied to the
// current transformation matrix.
package model
