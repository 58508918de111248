package section

import (
	"fmt"
	"log/slog"

	"github.com/tsawler/pagesect/contentstream"
	"github.com/tsawler/pagesect/graphicsstate"
	"github.com/tsawler/pagesect/model"
)

// PageResult is the outcome of parsing one page: its sections in stream
// order plus every recoverable problem met on the way.
type PageResult struct {
	Page     int
	Sections []*Section
	Warnings []Warning
}

// Operations concatenates the content of every section in order. For any
// input this equals the operations that were parsed.
func (r *PageResult) Operations() []contentstream.Operation {
	var ops []contentstream.Operation
	for _, s := range r.Sections {
		ops = append(ops, s.Content...)
	}
	return ops
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithLogger sets the logger warnings are reported to.
func WithLogger(logger *slog.Logger) ParserOption {
	return func(p *Parser) {
		p.logger = logger
	}
}

// Parser splits page content streams into sections. A Parser holds no
// per-page state and may be shared by goroutines parsing different pages.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a parser.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Parse segments one page. resolve maps XObject names to resource
// identifiers and may be nil, in which case every Object section gets an
// empty identifier. Parse never fails: malformed nesting is recovered from
// and reported in PageResult.Warnings, and no operation is ever dropped.
func (p *Parser) Parse(page int, ops []contentstream.Operation, resolve ResourceResolver) *PageResult {
	run := &pageRun{
		logger:  p.logger,
		page:    page,
		gs:      graphicsstate.NewGraphicsState(),
		resolve: resolve,
		result:  &PageResult{Page: page},
	}

	for i, op := range ops {
		run.handle(i, op)
	}
	run.finish()

	return run.result
}

// openText accumulates a BT...ET text object.
type openText struct {
	ops    []contentstream.Operation
	info   TextInfo
	anchor *model.Point
}

// pageRun is the state of one Parse call. Idle when text is nil, InText
// otherwise.
type pageRun struct {
	logger  *slog.Logger
	page    int
	gs      *graphicsstate.GraphicsState
	paths   graphicsstate.PathExtent
	resolve ResourceResolver
	result  *PageResult

	other []contentstream.Operation
	text  *openText
}

func (r *pageRun) handle(i int, op contentstream.Operation) {
	switch op.Kind() {
	case contentstream.OpBeginText:
		if r.text != nil {
			r.warn(i, NestedText, "BT inside an open text object; closing it")
			r.closeText()
		}
		r.flushOther()
		r.text = &openText{}
		r.gs.BeginText()
		r.append(op)

	case contentstream.OpEndText:
		r.append(op)
		if r.text == nil {
			r.warn(i, UnmatchedEndText, "ET outside a text object")
			return
		}
		r.closeText()

	case contentstream.OpSetFont:
		r.append(op)
		name, okName := op.Name(0)
		size, okSize := op.Number(1)
		if !okName || !okSize {
			r.malformed(i, op)
			return
		}
		r.gs.SetFont(name, size)

	case contentstream.OpMoveText:
		r.append(op)
		if v, ok := op.Numbers(2); ok {
			r.gs.MoveText(v[0], v[1])
		} else {
			r.malformed(i, op)
		}

	case contentstream.OpMoveTextSetLeading:
		r.append(op)
		if v, ok := op.Numbers(2); ok {
			r.gs.MoveTextSetLeading(v[0], v[1])
		} else {
			r.malformed(i, op)
		}

	case contentstream.OpSetLeading:
		r.append(op)
		if v, ok := op.Numbers(1); ok {
			r.gs.SetLeading(v[0])
		} else {
			r.malformed(i, op)
		}

	case contentstream.OpNextLine:
		r.append(op)
		r.gs.NextLine()

	case contentstream.OpShowText, contentstream.OpShowTextArray:
		r.append(op)
		r.draw(i, op)

	case contentstream.OpNextLineShowText, contentstream.OpSpacingNextLineShowText:
		r.append(op)
		r.gs.NextLine()
		r.draw(i, op)

	case contentstream.OpSetTextMatrix:
		r.append(op)
		if m, ok := op.Matrix(); ok {
			r.gs.SetTextMatrix(m)
		} else {
			r.malformed(i, op)
		}

	case contentstream.OpConcat:
		r.append(op)
		if m, ok := op.Matrix(); ok {
			r.gs.Concat(m)
		} else {
			r.malformed(i, op)
		}

	case contentstream.OpSave:
		r.append(op)
		r.gs.Push()

	case contentstream.OpRestore:
		r.append(op)
		discarded, err := r.gs.Pop()
		if err != nil {
			r.warn(i, StackUnderflow, "Q without matching q")
		} else if discarded > 0 {
			r.warn(i, InterleavedScope, fmt.Sprintf("Q closed %d open marked-content scope(s)", discarded))
		}

	case contentstream.OpDrawObject:
		r.drawObject(i, op)

	case contentstream.OpBeginMarked, contentstream.OpBeginMarkedProps:
		r.append(op)
		r.gs.PushMarked()

	case contentstream.OpEndMarked:
		r.append(op)
		interleaved, err := r.gs.PopMarked()
		if err != nil {
			r.warn(i, UnmatchedMarked, "EMC without matching BMC/BDC")
		} else if interleaved {
			r.warn(i, InterleavedScope, "EMC inside an open q scope")
		}

	default:
		r.append(op)
		if r.text == nil {
			r.paths.Apply(op, r.gs.Effective())
		}
	}
}

// append adds op to the open accumulator.
func (r *pageRun) append(op contentstream.Operation) {
	if r.text != nil {
		r.text.ops = append(r.text.ops, op)
		return
	}
	r.other = append(r.other, op)
}

// draw records a text-draw event at the current text position.
func (r *pageRun) draw(i int, op contentstream.Operation) {
	if r.text == nil {
		r.warn(i, DrawOutsideText, op.Operator+" outside a text object")
		return
	}

	payload, ok := op.TextPayload()
	if !ok {
		r.malformed(i, op)
		return
	}

	ts := r.gs.Text()
	offset := r.gs.TextOffset()
	m := model.Translate(offset.X, offset.Y).Multiply(r.gs.Transform())
	anchor := m.Transform(model.Point{})

	t := r.text
	if len(t.info.Draws) == 0 {
		t.anchor = &anchor
		t.info.Font = ts.FontName
		t.info.FontSize = ts.FontSize
	}
	t.info.Draws = append(t.info.Draws, TextDraw{
		Operator:  op.Operator,
		Content:   payload,
		Anchor:    anchor,
		Font:      ts.FontName,
		FontSize:  ts.FontSize,
		Transform: m,
	})
}

// drawObject closes whatever is accumulating and emits a one-operation
// Object section. Do also ends any open text object.
func (r *pageRun) drawObject(i int, op contentstream.Operation) {
	// Inside BT the text matrix applies but the Td/TD/T* offset does not.
	transform := r.gs.Transform()
	anchor := transform.Transform(model.Point{})
	bounds := transform.TransformBBox(model.BBox{Width: 1, Height: 1})

	if r.text != nil {
		r.closeText()
	}
	r.flushOther()

	info := &ObjectInfo{Bounds: bounds}
	name, ok := op.Name(0)
	if !ok {
		r.malformed(i, op)
	} else {
		info.Name = name
		if r.resolve != nil {
			if id, found := r.resolve(name); found {
				info.Resource = id
			}
		}
		if info.Resource == "" {
			r.warn(i, UnresolvedResource, fmt.Sprintf("no resource identifier for /%s", name))
		}
	}

	r.emit(&Section{
		Kind:    Object,
		Content: []contentstream.Operation{op},
		Anchor:  &anchor,
		Object:  info,
	})
}

// closeText ends the open text object. A text object without draws is not
// a section; its operations move to the Other accumulator.
func (r *pageRun) closeText() {
	t := r.text
	r.text = nil
	r.gs.EndText()

	if len(t.info.Draws) == 0 {
		r.other = append(r.other, t.ops...)
		return
	}

	info := t.info
	r.emit(&Section{
		Kind:    Text,
		Content: t.ops,
		Anchor:  t.anchor,
		Text:    &info,
	})
}

// flushOther emits the Other accumulator if it holds anything.
func (r *pageRun) flushOther() {
	if len(r.other) == 0 {
		return
	}

	s := &Section{Kind: Other, Content: r.other}
	if box, ok := r.paths.Painted(); ok {
		s.Extent = &box
	}
	r.paths.Reset()
	r.other = nil
	r.emit(s)
}

func (r *pageRun) emit(s *Section) {
	s.ID = -1
	s.Page = r.page
	s.Index = len(r.result.Sections)
	s.Keep = true
	s.Group = NoGroup
	r.result.Sections = append(r.result.Sections, s)
}

func (r *pageRun) finish() {
	if r.text != nil {
		r.warn(-1, UnbalancedAtEnd, "text object still open at end of stream")
		r.closeText()
	}
	r.flushOther()

	if depth := r.gs.Depth(); depth > 0 {
		r.warn(-1, UnbalancedAtEnd, fmt.Sprintf("%d scope(s) still open at end of stream", depth))
	}
}

func (r *pageRun) malformed(i int, op contentstream.Operation) {
	r.warn(i, MalformedOperands, fmt.Sprintf("%s with %d unusable operand(s)", op.Operator, len(op.Operands)))
}

func (r *pageRun) warn(i int, code WarningCode, msg string) {
	r.result.Warnings = append(r.result.Warnings, Warning{
		Page:    r.page,
		Index:   i,
		Code:    code,
		Message: msg,
	})
	r.logger.Warn("section: recovered from malformed content",
		"page", r.page, "index", i, "code", string(code), "detail", msg)
}
