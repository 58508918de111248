package graphicsstate

import (
	"errors"
	"math"
	"testing"

	"github.com/tsawler/pagesect/contentstream"
	"github.com/tsawler/pagesect/model"
)

func pointNear(a, b model.Point) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9
}

// TestNewGraphicsState tests initial state
func TestNewGraphicsState(t *testing.T) {
	gs := NewGraphicsState()

	if gs.Depth() != 0 {
		t.Errorf("expected depth 0, got %d", gs.Depth())
	}
	if !gs.Effective().IsIdentity() {
		t.Error("expected effective transform to be identity")
	}
	if gs.InText() {
		t.Error("expected to start outside a text object")
	}
}

// TestPushPop tests q/Q scoping of the transform
func TestPushPop(t *testing.T) {
	gs := NewGraphicsState()
	gs.Concat(model.Translate(10, 0))

	gs.Push()
	if gs.Depth() != 1 {
		t.Fatalf("expected depth 1, got %d", gs.Depth())
	}
	gs.Concat(model.Translate(0, 5))

	p := gs.ResolvePoint(model.Point{})
	if !pointNear(p, model.Point{X: 10, Y: 5}) {
		t.Errorf("expected (10, 5), got %+v", p)
	}

	if _, err := gs.Pop(); err != nil {
		t.Fatalf("Pop failed: %v", err)
	}

	p = gs.ResolvePoint(model.Point{})
	if !pointNear(p, model.Point{X: 10, Y: 0}) {
		t.Errorf("expected (10, 0) after pop, got %+v", p)
	}
}

// TestPopUnderflow tests Q without q
func TestPopUnderflow(t *testing.T) {
	gs := NewGraphicsState()
	gs.Concat(model.Translate(3, 4))

	_, err := gs.Pop()
	if !errors.Is(err, ErrStackUnderflow) {
		t.Fatalf("expected ErrStackUnderflow, got %v", err)
	}

	// The base frame survives an underflow.
	p := gs.ResolvePoint(model.Point{})
	if !pointNear(p, model.Point{X: 3, Y: 4}) {
		t.Errorf("expected base transform kept, got %+v", p)
	}
}

// TestEffectiveOrder tests that later pushes apply first
func TestEffectiveOrder(t *testing.T) {
	gs := NewGraphicsState()
	gs.Concat(model.Scale(2, 2))
	gs.Push()
	gs.Concat(model.Translate(10, 0))

	// Inner translate applies to the point, then the outer scale.
	p := gs.ResolvePoint(model.Point{X: 1, Y: 1})
	if !pointNear(p, model.Point{X: 22, Y: 2}) {
		t.Errorf("expected (22, 2), got %+v", p)
	}
}

// TestConcatComposition tests that successive cm operators compose like PDF
func TestConcatComposition(t *testing.T) {
	gs := NewGraphicsState()
	gs.Concat(model.Translate(100, 0))
	gs.Concat(model.Scale(2, 2))

	// "100 0 cm" then "2 0 0 2 cm": the scale is applied in the translated space.
	p := gs.ResolvePoint(model.Point{X: 1, Y: 1})
	if !pointNear(p, model.Point{X: 102, Y: 2}) {
		t.Errorf("expected (102, 2), got %+v", p)
	}
}

// TestTextPositioning tests Td accumulation, Tm replacement and BT reset
func TestTextPositioning(t *testing.T) {
	gs := NewGraphicsState()
	gs.Concat(model.Translate(0, 10))

	gs.BeginText()
	gs.MoveText(72, 700)
	gs.MoveText(0, -14)

	p := gs.TextPosition()
	if !pointNear(p, model.Point{X: 72, Y: 696}) {
		t.Errorf("expected (72, 696), got %+v", p)
	}

	gs.SetTextMatrix(model.Matrix{1, 0, 0, 1, 50, 50})
	if gs.TextOffset() != (model.Point{}) {
		t.Errorf("expected Tm to restart the offset, got %+v", gs.TextOffset())
	}
	gs.MoveText(5, 0)
	p = gs.TextPosition()
	if !pointNear(p, model.Point{X: 55, Y: 60}) {
		t.Errorf("expected (55, 60), got %+v", p)
	}

	gs.EndText()
	gs.BeginText()
	if !gs.TextMatrix().IsIdentity() || gs.TextOffset() != (model.Point{}) {
		t.Error("expected BT to reset text matrix and offset")
	}
}

// TestResolvePointOutsideText tests that the text matrix is ignored outside BT/ET
func TestResolvePointOutsideText(t *testing.T) {
	gs := NewGraphicsState()
	gs.BeginText()
	gs.SetTextMatrix(model.Translate(500, 500))
	gs.EndText()

	p := gs.ResolvePoint(model.Point{X: 1, Y: 1})
	if !pointNear(p, model.Point{X: 1, Y: 1}) {
		t.Errorf("expected (1, 1), got %+v", p)
	}
}

// TestLeading tests TL, TD and T*
func TestLeading(t *testing.T) {
	gs := NewGraphicsState()
	gs.BeginText()

	gs.MoveTextSetLeading(0, -12)
	if gs.Text().Leading != 12 {
		t.Errorf("expected leading 12, got %f", gs.Text().Leading)
	}
	gs.NextLine()
	if gs.TextOffset() != (model.Point{X: 0, Y: -24}) {
		t.Errorf("expected offset (0, -24), got %+v", gs.TextOffset())
	}

	gs.SetLeading(5)
	gs.NextLine()
	if gs.TextOffset() != (model.Point{X: 0, Y: -29}) {
		t.Errorf("expected offset (0, -29), got %+v", gs.TextOffset())
	}
}

// TestFontSavedByPush tests that Q restores the font in effect at q
func TestFontSavedByPush(t *testing.T) {
	gs := NewGraphicsState()
	gs.SetFont("Helvetica", 14)

	gs.Push()
	gs.SetFont("Times", 18)
	if gs.Text().FontName != "Times" {
		t.Errorf("expected font Times, got %s", gs.Text().FontName)
	}

	gs.Pop()
	if gs.Text().FontName != "Helvetica" || gs.Text().FontSize != 14 {
		t.Errorf("expected restored Helvetica 14, got %+v", gs.Text())
	}
}

// TestMarkedContentHasNoGeometricEffect tests BMC/EMC folding
func TestMarkedContentHasNoGeometricEffect(t *testing.T) {
	gs := NewGraphicsState()
	gs.PushMarked()
	gs.Concat(model.Translate(7, 0))
	interleaved, err := gs.PopMarked()
	if err != nil {
		t.Fatalf("PopMarked failed: %v", err)
	}
	if interleaved {
		t.Error("expected properly nested markers")
	}
	if gs.Depth() != 0 {
		t.Errorf("expected depth 0, got %d", gs.Depth())
	}

	// The cm inside marked content still applies after EMC.
	p := gs.ResolvePoint(model.Point{})
	if !pointNear(p, model.Point{X: 7, Y: 0}) {
		t.Errorf("expected (7, 0), got %+v", p)
	}
}

// TestUnmatchedMarked tests EMC without BMC
func TestUnmatchedMarked(t *testing.T) {
	gs := NewGraphicsState()
	gs.Push()

	_, err := gs.PopMarked()
	if !errors.Is(err, ErrUnmatchedMarked) {
		t.Fatalf("expected ErrUnmatchedMarked, got %v", err)
	}
	if gs.Depth() != 1 {
		t.Errorf("expected graphics frame untouched, got depth %d", gs.Depth())
	}
}

// TestInterleavedScopes tests q BMC Q EMC and BMC q EMC Q
func TestInterleavedScopes(t *testing.T) {
	gs := NewGraphicsState()
	gs.Push()
	gs.PushMarked()
	gs.Concat(model.Translate(1, 1))

	discarded, err := gs.Pop()
	if err != nil {
		t.Fatalf("Pop failed: %v", err)
	}
	if discarded != 1 {
		t.Errorf("expected 1 discarded marked frame, got %d", discarded)
	}
	if !gs.Effective().IsIdentity() {
		t.Error("expected Q to discard the cm made after q")
	}
	if _, err := gs.PopMarked(); !errors.Is(err, ErrUnmatchedMarked) {
		t.Errorf("expected the marked frame to be gone, got %v", err)
	}

	gs.PushMarked()
	gs.Push()
	gs.Concat(model.Translate(2, 0))
	interleaved, err := gs.PopMarked()
	if err != nil {
		t.Fatalf("PopMarked failed: %v", err)
	}
	if !interleaved {
		t.Error("expected interleaving to be reported")
	}
	if gs.Depth() != 1 {
		t.Errorf("expected the q frame to remain, got depth %d", gs.Depth())
	}
	p := gs.ResolvePoint(model.Point{})
	if !pointNear(p, model.Point{X: 2, Y: 0}) {
		t.Errorf("expected (2, 0), got %+v", p)
	}
}

// TestPathExtent tests painted path bounds in page space
func TestPathExtent(t *testing.T) {
	ops, err := contentstream.Parse([]byte("10 10 m 20 30 l S 0 0 5 5 re W n 100 100 50 20 re f"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	var pe PathExtent
	m := model.Translate(0, 100)
	for _, op := range ops {
		pe.Apply(op, m)
	}

	box, ok := pe.Painted()
	if !ok {
		t.Fatal("expected painted extent")
	}
	want := model.BBox{X: 10, Y: 110, Width: 140, Height: 110}
	if box != want {
		t.Errorf("expected %+v, got %+v", want, box)
	}

	pe.Reset()
	if _, ok := pe.Painted(); ok {
		t.Error("expected no extent after Reset")
	}
}

// TestPathExtentIgnoresOtherOperators tests the return value of Apply
func TestPathExtentIgnoresOtherOperators(t *testing.T) {
	var pe PathExtent
	if pe.Apply(contentstream.Operation{Operator: "Tj"}, model.Identity()) {
		t.Error("expected Tj to not be a path operator")
	}
	if !pe.Apply(contentstream.Operation{Operator: "n"}, model.Identity()) {
		t.Error("expected n to be a path operator")
	}
}
