package section

import (
	"github.com/tsawler/pagesect/contentstream"
	"github.com/tsawler/pagesect/model"
)

// Kind is the type of a section.
type Kind int

const (
	// Other holds instructions that neither show text nor draw an external
	// object: state changes, paths, inline images, styling.
	Other Kind = iota
	// Text is a BT...ET text object with at least one text-showing operator.
	Text
	// Object is a single Do operator drawing an image or form XObject.
	Object
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Object:
		return "object"
	default:
		return "other"
	}
}

// SectionID indexes a section within a Collection.
type SectionID int

// GroupID indexes a group within a Collection.
type GroupID int

// NoGroup marks a section that has not been claimed by any group.
const NoGroup GroupID = -1

// ResourceID is a persistent identifier of an embedded resource that is the
// same on every page that draws it (for PDF, the "num gen R" of the XObject).
// The empty ResourceID means the resource could not be resolved.
type ResourceID string

// ResourceResolver maps an XObject name from a page's resource dictionary
// to its persistent identifier.
type ResourceResolver func(name string) (ResourceID, bool)

// Section is a contiguous slice of a page's content stream treated as one
// unit for editing.
type Section struct {
	ID    SectionID
	Page  int
	Index int // position among the page's sections
	Kind  Kind

	// Content is the exact run of operations this section covers.
	Content []contentstream.Operation

	// Anchor is the page-space origin where the section starts drawing.
	// It is nil for Other sections.
	Anchor *model.Point

	Text   *TextInfo   // Text sections only
	Object *ObjectInfo // Object sections only
	Extent *model.BBox // painted path extent, Other sections only

	// Keep is the edit flag; sections with Keep false are left out of the
	// reconstructed content stream.
	Keep bool

	// Group is the group that claimed this section, or NoGroup.
	Group GroupID
}

// TextInfo describes the text drawn by a Text section.
type TextInfo struct {
	Font     string // font of the first draw
	FontSize float64
	Draws    []TextDraw
}

// TextDraw is one text-showing operator inside a text object.
type TextDraw struct {
	Operator string
	Content  []byte // raw string bytes; kerning removed for TJ
	Anchor   model.Point
	Font     string
	FontSize float64

	// Transform maps text space at the draw position to page space.
	Transform model.Matrix
}

// ObjectInfo describes the XObject drawn by an Object section.
type ObjectInfo struct {
	Name     string // resource name, e.g. "Im1"
	Resource ResourceID
	Bounds   model.BBox // unit square through the transform at Do
	Label    string     // optional recognized text, see ocr
}

// IsGrouped reports whether a group has claimed the section.
func (s *Section) IsGrouped() bool {
	return s.Group != NoGroup
}

// Matchable reports whether the section takes part in cross-page matching.
func (s *Section) Matchable() bool {
	return s.Kind == Text || s.Kind == Object
}

// Bounding box heuristics for text, in font-size units and points.
const (
	glyphWidthEm  = 0.5
	lineHeightEm  = 1.2
	descentEm     = 0.2
	textBoxMargin = 5
)

// BBox returns an approximate page-space bounding box. Text boxes are
// estimated from the font size since glyph metrics are not interpreted.
// Other sections report the extent of the paths they paint, if any.
func (s *Section) BBox() (model.BBox, bool) {
	switch s.Kind {
	case Text:
		if s.Text == nil || len(s.Text.Draws) == 0 {
			return model.BBox{}, false
		}
		var box model.BBox
		for i, d := range s.Text.Draws {
			b := d.BBox()
			if i == 0 {
				box = b
			} else {
				box = box.Union(b)
			}
		}
		return box.Expand(textBoxMargin), true
	case Object:
		if s.Object == nil {
			return model.BBox{}, false
		}
		return s.Object.Bounds, true
	default:
		if s.Extent == nil {
			return model.BBox{}, false
		}
		return *s.Extent, true
	}
}

// BBox estimates the page-space box of a single draw.
func (d TextDraw) BBox() model.BBox {
	size := d.FontSize
	if size == 0 {
		size = 1
	}
	local := model.BBox{
		X:      0,
		Y:      -descentEm * size,
		Width:  glyphWidthEm * size * float64(len(d.Content)),
		Height: lineHeightEm * size,
	}
	m := d.Transform
	if m == (model.Matrix{}) {
		m = model.Translate(d.Anchor.X, d.Anchor.Y)
	}
	return m.TransformBBox(local)
}

// DisplayText returns the decoded text of every draw, one line per draw.
func (s *Section) DisplayText() string {
	if s.Text == nil {
		return ""
	}
	out := make([]byte, 0, 64)
	for i, d := range s.Text.Draws {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, DecodeText(d.Content)...)
	}
	return string(out)
}
