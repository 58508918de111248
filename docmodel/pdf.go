package docmodel

import (
	"fmt"
	"image"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/tsawler/pagesect/contentstream"
	"github.com/tsawler/pagesect/core"
	"github.com/tsawler/pagesect/pages"
	"github.com/tsawler/pagesect/reader"
	"github.com/tsawler/pagesect/section"
)

// dedupPrefix starts the content-addressed identifiers WithContentDedup
// assigns.
const dedupPrefix = "xobj:"

// PDF is a Source and Sink over a PDF file. XObjects are identified by
// their indirect reference ("12 0 R"). Edited content is kept in memory;
// writing the file back is left to the caller.
type PDF struct {
	r      *reader.Reader
	dedup  bool
	logger *slog.Logger

	mu     sync.Mutex
	edited map[int][]contentstream.Operation
	ids    map[core.IndirectRef]section.ResourceID
	refs   map[section.ResourceID]core.IndirectRef
	sf     singleflight.Group
}

var (
	_ Source      = (*PDF)(nil)
	_ Sink        = (*PDF)(nil)
	_ ImageSource = (*PDF)(nil)
)

// PDFOption configures a PDF.
type PDFOption func(*PDF)

// WithContentDedup gives XObjects with identical dictionaries and decoded
// data the same identifier, so that a logo embedded once per page still
// matches across pages. Identifiers become "xobj:" plus a 64-bit xxhash
// fingerprint in hex.
func WithContentDedup() PDFOption {
	return func(p *PDF) {
		p.dedup = true
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) PDFOption {
	return func(p *PDF) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// OpenPDF opens a PDF file.
func OpenPDF(path string, opts ...PDFOption) (*PDF, error) {
	p := newPDF(opts...)
	r, err := reader.Open(path, reader.WithLogger(p.logger))
	if err != nil {
		return nil, fmt.Errorf("docmodel: %w", err)
	}
	p.r = r
	return p, nil
}

// NewPDF wraps an open reader.
func NewPDF(r *reader.Reader, opts ...PDFOption) *PDF {
	p := newPDF(opts...)
	p.r = r
	return p
}

func newPDF(opts ...PDFOption) *PDF {
	p := &PDF{
		logger: slog.Default(),
		edited: make(map[int][]contentstream.Operation),
		ids:    make(map[core.IndirectRef]section.ResourceID),
		refs:   make(map[section.ResourceID]core.IndirectRef),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Close releases the file.
func (p *PDF) Close() error {
	return p.r.Close()
}

// Reader returns the underlying reader.
func (p *PDF) Reader() *reader.Reader {
	return p.r
}

// PageCount returns the number of pages.
func (p *PDF) PageCount() (int, error) {
	return p.r.PageCount()
}

// Page loads a page: its media box, its content streams decoded, joined and
// parsed, and a resolver for its XObjects.
func (p *PDF) Page(index int) (*Page, error) {
	pg, err := p.page(index)
	if err != nil {
		return nil, err
	}
	box, err := pg.MediaBox()
	if err != nil {
		return nil, fmt.Errorf("docmodel: page %d: %w", index, err)
	}

	var warnings []section.Warning
	p.mu.Lock()
	ops, ok := p.edited[index]
	p.mu.Unlock()
	if !ok {
		data, err := pg.ContentData()
		if err != nil {
			return nil, fmt.Errorf("docmodel: page %d: %w", index, err)
		}
		ops, err = contentstream.ParseLenient(data)
		if err != nil {
			p.logger.Warn("docmodel: content kept unparsed", "page", index, "error", err)
			warnings = append(warnings, section.Warning{
				Page:    index,
				Index:   len(ops) - 1,
				Code:    section.UnparsedContent,
				Message: err.Error(),
			})
		}
	}

	return &Page{
		Index:      index,
		MediaBox:   box,
		Operations: append([]contentstream.Operation(nil), ops...),
		Resolve: func(name string) (section.ResourceID, bool) {
			ref, ok := pg.XObjectRef(name)
			if !ok {
				return "", false
			}
			return p.resourceID(ref)
		},
		Warnings: warnings,
	}, nil
}

func (p *PDF) page(index int) (*pages.Page, error) {
	count, err := p.r.PageCount()
	if err != nil {
		return nil, fmt.Errorf("docmodel: %w", err)
	}
	if index < 0 || index >= count {
		return nil, fmt.Errorf("page %d of %d: %w", index, count, ErrPageOutOfRange)
	}
	return p.r.GetPage(index)
}

// resourceID returns the identifier of an XObject.
func (p *PDF) resourceID(ref core.IndirectRef) (section.ResourceID, bool) {
	if !p.dedup {
		return section.ResourceID(ref.String()), true
	}

	p.mu.Lock()
	id, ok := p.ids[ref]
	p.mu.Unlock()
	if ok {
		return id, true
	}

	// Pages parsed in parallel often ask for the same XObject at once.
	v, err, _ := p.sf.Do(ref.String(), func() (interface{}, error) {
		return p.fingerprint(ref)
	})
	if err != nil {
		p.logger.Warn("docmodel: cannot fingerprint XObject", "ref", ref.String(), "error", err)
		return section.ResourceID(ref.String()), true
	}
	id = v.(section.ResourceID)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids[ref] = id
	if _, seen := p.refs[id]; !seen {
		p.refs[id] = ref
	}
	return id, true
}

// maxFingerprintDepth bounds how many references deep a fingerprint
// follows.
const maxFingerprintDepth = 4

// fingerprint hashes an XObject's dictionary, minus entries that differ
// between identical copies, and its decoded data.
func (p *PDF) fingerprint(ref core.IndirectRef) (section.ResourceID, error) {
	obj, err := p.r.ResolveReference(ref)
	if err != nil {
		return "", err
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		return "", fmt.Errorf("%s is %s, not a stream", ref, obj.Type())
	}

	d := xxhash.New()
	if err := p.hashObject(d, stream, 0); err != nil {
		return "", err
	}
	return section.ResourceID(fmt.Sprintf("%s%016x", dedupPrefix, d.Sum64())), nil
}

// hashObject writes a length-prefixed canonical form of obj. References are
// replaced by what they point to, so copies pointing at separate but equal
// objects hash alike while different soft masks or palettes do not.
func (p *PDF) hashObject(d *xxhash.Digest, obj core.Object, depth int) error {
	switch v := obj.(type) {
	case core.IndirectRef:
		if depth >= maxFingerprintDepth {
			d.WriteString("R;")
			return nil
		}
		resolved, err := p.r.ResolveReference(v)
		if err != nil {
			return err
		}
		return p.hashObject(d, resolved, depth+1)
	case *core.Stream:
		data, err := v.Decode()
		if err != nil {
			return err
		}
		d.WriteString("S")
		if err := p.hashDict(d, v.Dict, true, depth); err != nil {
			return err
		}
		hashBytes(d, data)
	case core.Dict:
		d.WriteString("D")
		return p.hashDict(d, v, false, depth)
	case core.Array:
		fmt.Fprintf(d, "A%d;", len(v))
		for _, elem := range v {
			if err := p.hashObject(d, elem, depth); err != nil {
				return err
			}
		}
	case core.String:
		d.WriteString("s")
		hashBytes(d, []byte(v))
	case core.Name:
		d.WriteString("n")
		hashBytes(d, []byte(v))
	case nil:
		d.WriteString("z;")
	default:
		fmt.Fprintf(d, "%s:%s;", v.Type(), v.String())
	}
	return nil
}

// hashDict hashes entries in key order. Stream dictionaries skip the entries
// that describe the encoding rather than the content.
func (p *PDF) hashDict(d *xxhash.Digest, dict core.Dict, stream bool, depth int) error {
	keys := dict.Keys()
	if stream {
		kept := keys[:0]
		for _, k := range keys {
			switch k {
			case "Length", "Filter", "DecodeParms":
				continue
			}
			kept = append(kept, k)
		}
		keys = kept
	}
	fmt.Fprintf(d, "%d;", len(keys))
	for _, k := range keys {
		hashBytes(d, []byte(k))
		if err := p.hashObject(d, dict[k], depth); err != nil {
			return err
		}
	}
	return nil
}

func hashBytes(d *xxhash.Digest, b []byte) {
	fmt.Fprintf(d, "%d;", len(b))
	d.Write(b)
}

// Image decodes the image XObject behind an identifier.
func (p *PDF) Image(id section.ResourceID) (image.Image, error) {
	ref, err := p.lookup(id)
	if err != nil {
		return nil, err
	}
	obj, err := p.r.ResolveReference(ref)
	if err != nil {
		return nil, fmt.Errorf("docmodel: %s: %w", ref, err)
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrUnknownResource)
	}
	return p.r.DecodeImage(stream)
}

func (p *PDF) lookup(id section.ResourceID) (core.IndirectRef, error) {
	if strings.HasPrefix(string(id), dedupPrefix) {
		p.mu.Lock()
		defer p.mu.Unlock()
		ref, ok := p.refs[id]
		if !ok {
			return core.IndirectRef{}, fmt.Errorf("%q: %w", id, ErrUnknownResource)
		}
		return ref, nil
	}
	var ref core.IndirectRef
	if _, err := fmt.Sscanf(string(id), "%d %d R", &ref.Number, &ref.Generation); err != nil {
		return core.IndirectRef{}, fmt.Errorf("%q: %w", id, ErrUnknownResource)
	}
	return ref, nil
}

// SetPageContent stores edited operations for a page. Later calls to Page
// and Content see them.
func (p *PDF) SetPageContent(index int, ops []contentstream.Operation) error {
	if _, err := p.page(index); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.edited[index] = append([]contentstream.Operation(nil), ops...)
	return nil
}

// Content returns a page's content stream: the edited operations encoded,
// or the original decoded stream.
func (p *PDF) Content(index int) ([]byte, error) {
	p.mu.Lock()
	ops, ok := p.edited[index]
	p.mu.Unlock()
	if ok {
		return contentstream.Encode(ops)
	}
	pg, err := p.page(index)
	if err != nil {
		return nil, err
	}
	return pg.ContentData()
}

// Edited returns the indices of pages with edited content.
func (p *PDF) Edited() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	indices := make([]int, 0, len(p.edited))
	for i := range p.edited {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}
