// Package docmodel is the boundary between the segmentation engine and the
// document it edits.
//
// A [Source] hands out pages as parsed operations plus a resolver for
// their XObject names; a [Sink] takes edited operations back. [Memory]
// implements both in memory. [PDF] implements them over a PDF file, where
// an XObject's identifier is its indirect reference, or with
// [WithContentDedup] a fingerprint of its content.
//
// Rendering and writing files are not part of this package; [Rasterizer]
// names the rendering capability callers may supply.
package docmodel
