package graphicsstate

import (
	"github.com/tsawler/pagesect/contentstream"
	"github.com/tsawler/pagesect/model"
)

// PathExtent accumulates the page-space extent of painted paths.
//
// Path construction points are mapped through the transform in effect when
// they are added, as PDF requires. Curve control points are included, so the
// extent is a conservative hull. Paths ended with "n" (clip only) are not
// painted and do not count.
type PathExtent struct {
	pending    []model.Point
	current    model.Point // local space
	start      model.Point // local space, for h
	hasCurrent bool

	painted    model.BBox
	hasPainted bool
}

// Apply feeds one path construction or painting operation, using m to map
// local coordinates into page space. It reports whether op was a path
// operator.
func (pe *PathExtent) Apply(op contentstream.Operation, m model.Matrix) bool {
	switch op.Operator {
	case "m":
		if v, ok := op.Numbers(2); ok {
			pe.moveTo(model.Point{X: v[0], Y: v[1]}, m)
		}
	case "l":
		if v, ok := op.Numbers(2); ok {
			pe.lineTo(model.Point{X: v[0], Y: v[1]}, m)
		}
	case "c":
		if v, ok := op.Numbers(6); ok {
			pe.lineTo(model.Point{X: v[0], Y: v[1]}, m)
			pe.lineTo(model.Point{X: v[2], Y: v[3]}, m)
			pe.lineTo(model.Point{X: v[4], Y: v[5]}, m)
		}
	case "v", "y":
		if v, ok := op.Numbers(4); ok {
			pe.lineTo(model.Point{X: v[0], Y: v[1]}, m)
			pe.lineTo(model.Point{X: v[2], Y: v[3]}, m)
		}
	case "h":
		if pe.hasCurrent {
			pe.current = pe.start
		}
	case "re":
		if v, ok := op.Numbers(4); ok {
			pe.moveTo(model.Point{X: v[0], Y: v[1]}, m)
			pe.lineTo(model.Point{X: v[0] + v[2], Y: v[1]}, m)
			pe.lineTo(model.Point{X: v[0] + v[2], Y: v[1] + v[3]}, m)
			pe.lineTo(model.Point{X: v[0], Y: v[1] + v[3]}, m)
			pe.current = pe.start
		}
	case "S", "s", "f", "F", "f*", "B", "B*", "b", "b*":
		pe.paint()
	case "n":
		pe.discard()
	default:
		return false
	}
	return true
}

// Painted returns the union of everything painted since the last Reset.
func (pe *PathExtent) Painted() (model.BBox, bool) {
	return pe.painted, pe.hasPainted
}

// Reset forgets painted extents. A path still under construction is kept.
func (pe *PathExtent) Reset() {
	pe.painted = model.BBox{}
	pe.hasPainted = false
}

func (pe *PathExtent) moveTo(p model.Point, m model.Matrix) {
	pe.pending = append(pe.pending, m.Transform(p))
	pe.current = p
	pe.start = p
	pe.hasCurrent = true
}

func (pe *PathExtent) lineTo(p model.Point, m model.Matrix) {
	if !pe.hasCurrent {
		pe.moveTo(p, m)
		return
	}
	pe.pending = append(pe.pending, m.Transform(p))
	pe.current = p
}

func (pe *PathExtent) paint() {
	if len(pe.pending) > 0 {
		box := model.NewBBoxFromPoints(pe.pending...)
		if pe.hasPainted {
			box = pe.painted.Union(box)
		}
		pe.painted = box
		pe.hasPainted = true
	}
	pe.discard()
}

func (pe *PathExtent) discard() {
	pe.pending = pe.pending[:0]
	pe.hasCurrent = false
}
