package reader

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"sync"

	"github.com/tsawler/pagesect/core"
	"github.com/tsawler/pagesect/pages"
)

// ErrNotPDF is returned when the data has no %PDF- header.
var ErrNotPDF = errors.New("not a PDF file")

// PDFVersion represents a PDF version
type PDFVersion struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v PDFVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Reader reads objects and pages from a PDF file held in memory. It is safe
// for concurrent use.
type Reader struct {
	data     []byte
	xref     *core.XRefTable
	trailer  core.Dict
	version  PDFVersion
	repaired bool
	logger   *slog.Logger

	mu         sync.Mutex
	objCache   map[int]core.Object
	objStreams map[int]*core.ObjectStream
	loading    map[int]bool
	pageTree   *pages.PageTree
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the logger used for recovery diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

var _ pages.ObjectResolver = (*Reader)(nil)

// Open reads a PDF file into memory.
func Open(filename string, opts ...Option) (*Reader, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return NewReader(data, opts...)
}

// NewReader creates a reader over PDF data. When the cross-reference data is
// missing or does not lead to a catalog, the table is rebuilt by scanning
// the file.
func NewReader(data []byte, opts ...Option) (*Reader, error) {
	r := &Reader{
		data:       data,
		logger:     slog.Default(),
		objCache:   make(map[int]core.Object),
		objStreams: make(map[int]*core.ObjectStream),
		loading:    make(map[int]bool),
	}
	for _, opt := range opts {
		opt(r)
	}

	version, err := parseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	r.version = version

	table, err := core.ReadXRef(data)
	if err == nil {
		r.setXRef(table)
		if _, err = r.GetCatalog(); err == nil {
			return r, nil
		}
	}

	r.logger.Warn("reader: rebuilding cross-reference table", "error", err)
	table, rerr := core.RepairXRef(data)
	if rerr != nil {
		return nil, fmt.Errorf("failed to load xref: %w", errors.Join(err, rerr))
	}
	r.setXRef(table)
	r.repaired = true
	if _, err := r.GetCatalog(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) setXRef(table *core.XRefTable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.xref = table
	r.trailer = table.Trailer
	r.objCache = make(map[int]core.Object)
	r.objStreams = make(map[int]*core.ObjectStream)
}

// Close releases the reader's data.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = nil
	r.objCache = nil
	r.objStreams = nil
	return nil
}

var headerVersion = regexp.MustCompile(`%PDF-(\d+)\.(\d+)`)

// parseHeader finds %PDF-x.y within the first kilobyte; some producers
// write junk before it.
func parseHeader(data []byte) (PDFVersion, error) {
	m := headerVersion.FindSubmatch(data[:min(len(data), 1024)])
	if m == nil {
		return PDFVersion{}, ErrNotPDF
	}
	major, _ := strconv.Atoi(string(m[1]))
	minor, _ := strconv.Atoi(string(m[2]))
	return PDFVersion{Major: major, Minor: minor}, nil
}

// Version returns the PDF version
func (r *Reader) Version() PDFVersion {
	return r.version
}

// Trailer returns the trailer dictionary
func (r *Reader) Trailer() core.Dict {
	return r.trailer
}

// Repaired reports whether the cross-reference table was rebuilt.
func (r *Reader) Repaired() bool {
	return r.repaired
}

// FileSize returns the size of the PDF data in bytes
func (r *Reader) FileSize() int64 {
	return int64(len(r.data))
}

// XRefTable returns the cross-reference table
func (r *Reader) XRefTable() *core.XRefTable {
	return r.xref
}

// GetObject loads an object by number. Free and missing objects are null.
func (r *Reader) GetObject(objNum int) (core.Object, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getObject(objNum)
}

// getObject requires r.mu.
func (r *Reader) getObject(objNum int) (core.Object, error) {
	if r.objCache == nil {
		return nil, fmt.Errorf("reader is closed")
	}
	if obj, ok := r.objCache[objNum]; ok {
		return obj, nil
	}
	if r.loading[objNum] {
		return nil, fmt.Errorf("object %d refers to itself while loading", objNum)
	}
	r.loading[objNum] = true
	defer delete(r.loading, objNum)

	entry, ok := r.xref.Get(objNum)
	if !ok || entry.Kind == core.EntryFree {
		return core.Null{}, nil
	}

	var obj core.Object
	var err error
	switch entry.Kind {
	case core.EntryCompressed:
		obj, err = r.loadCompressed(objNum, entry)
	default:
		obj, err = r.loadAt(objNum, entry.Offset)
	}
	if err != nil {
		return nil, err
	}
	r.objCache[objNum] = obj
	return obj, nil
}

func (r *Reader) loadAt(objNum int, offset int64) (core.Object, error) {
	// A parser per load: resolving an indirect /Length re-enters here.
	parser := core.NewParser(r.data)
	parser.SetReferenceResolver(lockedResolver{r})
	indObj, err := parser.ParseIndirectObjectAt(offset)
	if err != nil {
		return nil, fmt.Errorf("failed to parse object %d: %w", objNum, err)
	}
	if indObj.Ref.Number != objNum {
		return nil, fmt.Errorf("object number mismatch: expected %d, got %d", objNum, indObj.Ref.Number)
	}
	return indObj.Object, nil
}

func (r *Reader) loadCompressed(objNum int, entry *core.XRefEntry) (core.Object, error) {
	stm, ok := r.objStreams[entry.Stream]
	if !ok {
		container, err := r.getObject(entry.Stream)
		if err != nil {
			return nil, fmt.Errorf("object stream %d: %w", entry.Stream, err)
		}
		stream, ok := container.(*core.Stream)
		if !ok {
			return nil, fmt.Errorf("object stream %d is %s", entry.Stream, container.Type())
		}
		stm, err = core.NewObjectStream(stream)
		if err != nil {
			return nil, fmt.Errorf("object stream %d: %w", entry.Stream, err)
		}
		r.objStreams[entry.Stream] = stm
	}
	obj, err := stm.Object(objNum, entry.Index)
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", objNum, err)
	}
	return obj, nil
}

// lockedResolver resolves references for a parser while r.mu is held.
type lockedResolver struct{ r *Reader }

func (l lockedResolver) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return l.r.getObject(ref.Number)
}

// ResolveReference resolves an indirect reference
func (r *Reader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return r.GetObject(ref.Number)
}

// Resolve resolves an object if it's an indirect reference, otherwise returns it as-is
func (r *Reader) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		return r.ResolveReference(ref)
	}
	return obj, nil
}

// GetCatalog returns the document catalog (root object)
func (r *Reader) GetCatalog() (core.Dict, error) {
	ref, ok := r.trailer.GetIndirectRef("Root")
	if !ok {
		return nil, fmt.Errorf("trailer missing /Root reference")
	}
	obj, err := r.ResolveReference(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog: %w", err)
	}
	catalog, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("catalog is %s, not a dictionary", obj.Type())
	}
	return catalog, nil
}

// PageCount returns the number of pages in the PDF
func (r *Reader) PageCount() (int, error) {
	tree, err := r.ensurePageTree()
	if err != nil {
		return 0, err
	}
	return tree.Count()
}

// GetPage returns the page at the given index (0-based)
func (r *Reader) GetPage(index int) (*pages.Page, error) {
	tree, err := r.ensurePageTree()
	if err != nil {
		return nil, err
	}
	return tree.GetPage(index)
}

func (r *Reader) ensurePageTree() (*pages.PageTree, error) {
	r.mu.Lock()
	tree := r.pageTree
	r.mu.Unlock()
	if tree != nil {
		return tree, nil
	}

	catalog, err := r.GetCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}
	root, err := pages.NewCatalog(catalog, r).Pages()
	if err != nil {
		return nil, err
	}
	tree = pages.NewPageTree(root, r)
	// Walk now so concurrent GetPage calls only read.
	if _, err := tree.Count(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pageTree == nil {
		r.pageTree = tree
	}
	return r.pageTree, nil
}

// ClearCache clears the object cache
func (r *Reader) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objCache = make(map[int]core.Object)
	r.objStreams = make(map[int]*core.ObjectStream)
}

// CacheSize returns the number of cached objects
func (r *Reader) CacheSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.objCache)
}
