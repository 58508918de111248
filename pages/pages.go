package pages

import (
	"bytes"
	"fmt"

	"github.com/tsawler/pagesect/core"
	"github.com/tsawler/pagesect/model"
)

// ObjectResolver resolves indirect references.
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// inheritable lists the page attributes a page may take from an ancestor.
var inheritable = []string{"Resources", "MediaBox", "CropBox", "Rotate"}

// Catalog is the document catalog.
type Catalog struct {
	dict     core.Dict
	resolver ObjectResolver
}

// NewCatalog creates a catalog from its dictionary.
func NewCatalog(dict core.Dict, resolver ObjectResolver) *Catalog {
	return &Catalog{dict: dict, resolver: resolver}
}

// Pages returns the root of the page tree.
func (c *Catalog) Pages() (core.Dict, error) {
	pagesRef := c.dict.Get("Pages")
	if pagesRef == nil {
		return nil, fmt.Errorf("catalog missing /Pages entry")
	}
	pagesObj, err := c.resolver.Resolve(pagesRef)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Pages: %w", err)
	}
	pagesDict, ok := pagesObj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid /Pages type: %s", pagesObj.Type())
	}
	return pagesDict, nil
}

// PageTree flattens the page tree into document order.
type PageTree struct {
	root     core.Dict
	resolver ObjectResolver
	pages    []*Page
}

// NewPageTree creates a page tree from its root /Pages dictionary.
func NewPageTree(root core.Dict, resolver ObjectResolver) *PageTree {
	return &PageTree{root: root, resolver: resolver}
}

// Count returns the number of pages found by walking the tree. The root's
// /Count is not trusted.
func (t *PageTree) Count() (int, error) {
	if err := t.load(); err != nil {
		return 0, err
	}
	return len(t.pages), nil
}

// GetPage returns the page at the given 0-based index.
func (t *PageTree) GetPage(index int) (*Page, error) {
	if err := t.load(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(t.pages) {
		return nil, fmt.Errorf("page index %d out of range [0, %d)", index, len(t.pages))
	}
	return t.pages[index], nil
}

// Pages returns all pages.
func (t *PageTree) Pages() ([]*Page, error) {
	if err := t.load(); err != nil {
		return nil, err
	}
	return t.pages, nil
}

func (t *PageTree) load() error {
	if t.pages != nil {
		return nil
	}
	t.pages = make([]*Page, 0)
	if err := t.walk(t.root, core.Dict{}, map[core.IndirectRef]bool{}); err != nil {
		t.pages = nil
		return fmt.Errorf("failed to traverse page tree: %w", err)
	}
	return nil
}

// walk visits a node. inherited holds the inheritable attributes of its
// ancestors, nearest first.
func (t *PageTree) walk(node, inherited core.Dict, visited map[core.IndirectRef]bool) error {
	typeName, _ := node.GetName("Type")
	if typeName == "" {
		// A missing /Type is common; /Kids decides.
		typeName = "Page"
		if _, ok := node["Kids"]; ok {
			typeName = "Pages"
		}
	}

	switch typeName {
	case "Pages":
		own := make(core.Dict, len(inherited))
		for k, v := range inherited {
			own[k] = v
		}
		for _, key := range inheritable {
			if v, ok := node[key]; ok {
				own[key] = v
			}
		}

		kidsObj, err := t.resolver.Resolve(node.Get("Kids"))
		if err != nil {
			return fmt.Errorf("failed to resolve /Kids: %w", err)
		}
		kids, ok := kidsObj.(core.Array)
		if !ok {
			return fmt.Errorf("invalid /Kids")
		}
		for i, kid := range kids {
			if ref, ok := kid.(core.IndirectRef); ok {
				if visited[ref] {
					return fmt.Errorf("page tree cycle at %s", ref)
				}
				visited[ref] = true
			}
			resolved, err := t.resolver.Resolve(kid)
			if err != nil {
				return fmt.Errorf("failed to resolve kid %d: %w", i, err)
			}
			kidDict, ok := resolved.(core.Dict)
			if !ok {
				return fmt.Errorf("invalid kid type: %s", resolved.Type())
			}
			if err := t.walk(kidDict, own, visited); err != nil {
				return err
			}
		}

	case "Page":
		t.pages = append(t.pages, NewPage(node, inherited, t.resolver))

	default:
		return fmt.Errorf("unexpected page node type: %s", typeName)
	}
	return nil
}

// Page is one page of the document.
type Page struct {
	dict      core.Dict
	inherited core.Dict
	resolver  ObjectResolver
}

// NewPage creates a page. inherited holds attributes from its ancestors
// and may be nil.
func NewPage(dict, inherited core.Dict, resolver ObjectResolver) *Page {
	return &Page{dict: dict, inherited: inherited, resolver: resolver}
}

// Dict returns the page dictionary.
func (p *Page) Dict() core.Dict {
	return p.dict
}

func (p *Page) attr(name string) core.Object {
	if v := p.dict.Get(name); v != nil {
		return v
	}
	return p.inherited.Get(name)
}

// MediaBox returns the page boundary. A missing box defaults to US Letter.
func (p *Page) MediaBox() (model.BBox, error) {
	box, err := p.box("MediaBox")
	if err != nil {
		return model.NewBBox(0, 0, 612, 792), nil
	}
	return box, nil
}

// CropBox returns the visible region, defaulting to the media box.
func (p *Page) CropBox() (model.BBox, error) {
	box, err := p.box("CropBox")
	if err != nil {
		return p.MediaBox()
	}
	return box, nil
}

func (p *Page) box(name string) (model.BBox, error) {
	obj := p.attr(name)
	if obj == nil {
		return model.BBox{}, fmt.Errorf("%s not found", name)
	}
	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		return model.BBox{}, fmt.Errorf("failed to resolve %s: %w", name, err)
	}
	arr, ok := resolved.(core.Array)
	if !ok || len(arr) != 4 {
		return model.BBox{}, fmt.Errorf("invalid %s", name)
	}

	var v [4]float64
	for i, elem := range arr {
		n, ok := core.Number(elem)
		if !ok {
			return model.BBox{}, fmt.Errorf("invalid %s element %s", name, elem)
		}
		v[i] = n
	}
	// Corners may be given in any order.
	return model.NewBBoxFromPoints(model.Point{X: v[0], Y: v[1]}, model.Point{X: v[2], Y: v[3]}), nil
}

// Rotate returns the page rotation in degrees.
func (p *Page) Rotate() int {
	if r, ok := p.attr("Rotate").(core.Int); ok {
		return int(r)
	}
	return 0
}

// Resources returns the resource dictionary, which may be inherited. A page
// without resources gets an empty dictionary.
func (p *Page) Resources() (core.Dict, error) {
	obj := p.attr("Resources")
	if obj == nil {
		return core.Dict{}, nil
	}
	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Resources: %w", err)
	}
	dict, ok := resolved.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid Resources type: %s", resolved.Type())
	}
	return dict, nil
}

// XObjectRef returns the indirect reference behind an /XObject resource
// name. Directly embedded XObjects have no reference.
func (p *Page) XObjectRef(name string) (core.IndirectRef, bool) {
	res, err := p.Resources()
	if err != nil {
		return core.IndirectRef{}, false
	}
	xobjs, err := p.resolver.Resolve(res.Get("XObject"))
	if err != nil {
		return core.IndirectRef{}, false
	}
	dict, ok := xobjs.(core.Dict)
	if !ok {
		return core.IndirectRef{}, false
	}
	ref, ok := dict.GetIndirectRef(name)
	return ref, ok
}

// Contents returns the page's content streams in order.
func (p *Page) Contents() ([]*core.Stream, error) {
	obj := p.dict.Get("Contents")
	if obj == nil {
		return nil, nil
	}
	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Contents: %w", err)
	}

	switch v := resolved.(type) {
	case *core.Stream:
		return []*core.Stream{v}, nil
	case core.Array:
		streams := make([]*core.Stream, 0, len(v))
		for i, elem := range v {
			r, err := p.resolver.Resolve(elem)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve contents[%d]: %w", i, err)
			}
			s, ok := r.(*core.Stream)
			if !ok {
				return nil, fmt.Errorf("contents[%d] is %s, not a stream", i, r.Type())
			}
			streams = append(streams, s)
		}
		return streams, nil
	}
	return nil, fmt.Errorf("invalid Contents type: %s", resolved.Type())
}

// ContentData decodes the content streams and joins them. Streams are
// separated by a newline, since a stream may end mid-token.
func (p *Page) ContentData() ([]byte, error) {
	streams, err := p.Contents()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for i, s := range streams {
		data, err := s.Decode()
		if err != nil {
			return nil, fmt.Errorf("content stream %d: %w", i, err)
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}
