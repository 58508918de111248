package graphicsstate

import (
	"github.com/tsawler/pagesect/model"
)

// ScopeKind tells graphics-state frames (q/Q) apart from marked-content
// frames (BMC/BDC/EMC).
type ScopeKind int

const (
	ScopeBase ScopeKind = iota
	ScopeGraphics
	ScopeMarked
)

// TextState is the part of the text state that q/Q saves and restores.
type TextState struct {
	FontName string
	FontSize float64
	Leading  float64
}

// frame is one entry of the transform stack.
type frame struct {
	kind   ScopeKind
	matrix model.Matrix
	saved  TextState // text state in effect when the frame was pushed
}

// GraphicsState tracks the transform stack and text positioning during a
// single linear pass over one page's instructions.
//
// The stack always holds an identity base frame that cannot be popped. Each
// q pushes an identity frame and each cm composes onto the top frame, so the
// effective transform is the product of every frame in push order. The text
// matrix lives outside the stack.
//
// A GraphicsState is not safe for concurrent use; create one per page.
type GraphicsState struct {
	frames []frame
	text   TextState

	inText     bool
	textMatrix model.Matrix
	offset     model.Point
}

// NewGraphicsState creates a state with only the identity base frame.
func NewGraphicsState() *GraphicsState {
	return &GraphicsState{
		frames:     []frame{{kind: ScopeBase, matrix: model.Identity()}},
		textMatrix: model.Identity(),
	}
}

// Depth returns the number of frames above the base frame.
func (gs *GraphicsState) Depth() int {
	return len(gs.frames) - 1
}

// Push enters a nested coordinate scope (q operator).
func (gs *GraphicsState) Push() {
	gs.push(ScopeGraphics)
}

// Pop leaves the innermost graphics scope (Q operator), restoring the text
// state saved by the matching Push. Marked-content frames still open above
// that scope are discarded with it; their count is returned so the caller
// can report the interleaving. Pop returns ErrStackUnderflow when no
// graphics scope is open and leaves the stack untouched.
func (gs *GraphicsState) Pop() (discardedMarked int, err error) {
	i := gs.innermost(ScopeGraphics)
	if i < 0 {
		return 0, ErrStackUnderflow
	}

	discardedMarked = len(gs.frames) - 1 - i
	gs.text = gs.frames[i].saved
	gs.frames = gs.frames[:i]
	return discardedMarked, nil
}

// PushMarked enters a marked-content scope (BMC/BDC operators).
func (gs *GraphicsState) PushMarked() {
	gs.push(ScopeMarked)
}

// PopMarked leaves the innermost marked-content scope (EMC operator).
// Marked content has no geometric effect, so any cm applied inside the
// scope is folded into the frame below and the effective transform does not
// change. interleaved is true when graphics frames were opened inside the
// marked scope and are still open; they stay on the stack. PopMarked returns
// ErrUnmatchedMarked when no marked scope is open.
func (gs *GraphicsState) PopMarked() (interleaved bool, err error) {
	i := gs.innermost(ScopeMarked)
	if i < 0 {
		return false, ErrUnmatchedMarked
	}

	gs.frames[i-1].matrix = gs.frames[i].matrix.Multiply(gs.frames[i-1].matrix)
	gs.frames = append(gs.frames[:i], gs.frames[i+1:]...)
	return i != len(gs.frames), nil
}

// Concat composes m onto the top frame (cm operator). m applies before
// everything already on the stack.
func (gs *GraphicsState) Concat(m model.Matrix) {
	top := &gs.frames[len(gs.frames)-1]
	top.matrix = m.Multiply(top.matrix)
}

// Effective returns the product of the stack in push order.
func (gs *GraphicsState) Effective() model.Matrix {
	eff := model.Identity()
	for i := len(gs.frames) - 1; i >= 0; i-- {
		eff = eff.Multiply(gs.frames[i].matrix)
	}
	return eff
}

// Transform returns the matrix that maps a point in the current local space
// to page space: text matrix then effective transform inside a text object,
// effective transform alone otherwise.
func (gs *GraphicsState) Transform() model.Matrix {
	if gs.inText {
		return gs.textMatrix.Multiply(gs.Effective())
	}
	return gs.Effective()
}

// ResolvePoint maps a local point into page space.
func (gs *GraphicsState) ResolvePoint(p model.Point) model.Point {
	return gs.Transform().Transform(p)
}

// TextPosition resolves the accumulated relative text offset into page space.
func (gs *GraphicsState) TextPosition() model.Point {
	return gs.ResolvePoint(gs.offset)
}

// BeginText enters a text object (BT operator) with an identity text matrix
// and no relative offset.
func (gs *GraphicsState) BeginText() {
	gs.inText = true
	gs.textMatrix = model.Identity()
	gs.offset = model.Point{}
}

// EndText leaves the text object (ET operator).
func (gs *GraphicsState) EndText() {
	gs.inText = false
}

// InText reports whether a text object is open.
func (gs *GraphicsState) InText() bool {
	return gs.inText
}

// SetTextMatrix replaces the text matrix (Tm operator). The relative offset
// restarts at the new origin.
func (gs *GraphicsState) SetTextMatrix(m model.Matrix) {
	gs.textMatrix = m
	gs.offset = model.Point{}
}

// TextMatrix returns the current text matrix.
func (gs *GraphicsState) TextMatrix() model.Matrix {
	return gs.textMatrix
}

// MoveText adds a translation to the relative offset in text space
// (Td operator).
func (gs *GraphicsState) MoveText(tx, ty float64) {
	gs.offset.X += tx
	gs.offset.Y += ty
}

// MoveTextSetLeading moves like MoveText and sets the leading to -ty
// (TD operator).
func (gs *GraphicsState) MoveTextSetLeading(tx, ty float64) {
	gs.text.Leading = -ty
	gs.MoveText(tx, ty)
}

// NextLine moves down by the leading (T* operator, and the implicit move of
// the ' and " operators).
func (gs *GraphicsState) NextLine() {
	gs.MoveText(0, -gs.text.Leading)
}

// TextOffset returns the accumulated relative offset in text space.
func (gs *GraphicsState) TextOffset() model.Point {
	return gs.offset
}

// SetFont sets the current font (Tf operator).
func (gs *GraphicsState) SetFont(name string, size float64) {
	gs.text.FontName = name
	gs.text.FontSize = size
}

// SetLeading sets text leading (TL operator).
func (gs *GraphicsState) SetLeading(leading float64) {
	gs.text.Leading = leading
}

// Text returns the current font and leading.
func (gs *GraphicsState) Text() TextState {
	return gs.text
}

func (gs *GraphicsState) push(kind ScopeKind) {
	gs.frames = append(gs.frames, frame{kind: kind, matrix: model.Identity(), saved: gs.text})
}

// innermost returns the index of the topmost frame of the given kind, or -1.
func (gs *GraphicsState) innermost(kind ScopeKind) int {
	for i := len(gs.frames) - 1; i > 0; i-- {
		if gs.frames[i].kind == kind {
			return i
		}
	}
	return -1
}
