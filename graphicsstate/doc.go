// Package graphicsstate tracks just enough of the PDF graphics state to
// anchor content geometrically: the transform stack, the text matrix with
// its relative offset, the current font, and the extent of painted paths.
//
// Example usage:
//
//	gs := graphicsstate.NewGraphicsState()
//	gs.Push()                          // q
//	gs.Concat(model.Translate(72, 0))  // cm
//	gs.BeginText()                     // BT
//	gs.SetFont("F1", 12)               // Tf
//	gs.MoveText(0, 700)                // Td
//	anchor := gs.TextPosition()        // where the next Tj lands
//	gs.EndText()                       // ET
//	_, err := gs.Pop()                 // Q
//
// # Transform stack
//
// The stack starts with an identity base frame. [GraphicsState.Push] adds an
// identity frame, [GraphicsState.Concat] composes onto the top frame and the
// effective transform is the product of all frames in push order.
// Popping with no open scope returns [ErrStackUnderflow] instead of
// corrupting the stack.
//
// Marked content (BMC/BDC ... EMC) is scoped on the same stack so that
// unbalanced markers can be detected, but it never changes geometry: closing
// a marked scope folds its matrix into the frame below.
//
// # Text positioning
//
// Td/TD/T* accumulate a relative offset in text space; Tm replaces the text
// matrix and restarts the offset. Points are resolved on demand with
// [GraphicsState.ResolvePoint].
package graphicsstate
