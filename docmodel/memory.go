package docmodel

import (
	"fmt"
	"image"
	"sync"

	"github.com/tsawler/pagesect/contentstream"
	"github.com/tsawler/pagesect/model"
	"github.com/tsawler/pagesect/section"
)

type memPage struct {
	box model.BBox
	ops []contentstream.Operation
}

// Memory is a Source and Sink held entirely in memory. XObject names map to
// identifiers through one table shared by all pages.
type Memory struct {
	mu        sync.RWMutex
	pages     []memPage
	resources map[string]section.ResourceID
	images    map[section.ResourceID]image.Image
}

var (
	_ Source      = (*Memory)(nil)
	_ Sink        = (*Memory)(nil)
	_ ImageSource = (*Memory)(nil)
)

// NewMemory creates an empty document.
func NewMemory() *Memory {
	return &Memory{
		resources: make(map[string]section.ResourceID),
		images:    make(map[section.ResourceID]image.Image),
	}
}

// AddPage parses content and appends it as a new page, returning its index.
func (m *Memory) AddPage(box model.BBox, content []byte) (int, error) {
	ops, err := contentstream.Parse(content)
	if err != nil {
		return 0, fmt.Errorf("docmodel: parse page content: %w", err)
	}
	return m.AddOperations(box, ops), nil
}

// AddOperations appends a page built from operations.
func (m *Memory) AddOperations(box model.BBox, ops []contentstream.Operation) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = append(m.pages, memPage{box: box, ops: ops})
	return len(m.pages) - 1
}

// SetResource maps an XObject name to an identifier.
func (m *Memory) SetResource(name string, id section.ResourceID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources[name] = id
}

// SetImage registers the image behind an identifier.
func (m *Memory) SetImage(id section.ResourceID, img image.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[id] = img
}

// PageCount returns the number of pages.
func (m *Memory) PageCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pages), nil
}

// Page returns a page. The operations are copied.
func (m *Memory) Page(index int) (*Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if index < 0 || index >= len(m.pages) {
		return nil, fmt.Errorf("page %d of %d: %w", index, len(m.pages), ErrPageOutOfRange)
	}
	p := m.pages[index]
	return &Page{
		Index:      index,
		MediaBox:   p.box,
		Operations: append([]contentstream.Operation(nil), p.ops...),
		Resolve:    m.resolve,
	}, nil
}

func (m *Memory) resolve(name string) (section.ResourceID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.resources[name]
	return id, ok
}

// SetPageContent replaces a page's operations.
func (m *Memory) SetPageContent(index int, ops []contentstream.Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.pages) {
		return fmt.Errorf("page %d of %d: %w", index, len(m.pages), ErrPageOutOfRange)
	}
	m.pages[index].ops = append([]contentstream.Operation(nil), ops...)
	return nil
}

// Content returns a page's operations encoded as a content stream.
func (m *Memory) Content(index int) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if index < 0 || index >= len(m.pages) {
		return nil, fmt.Errorf("page %d of %d: %w", index, len(m.pages), ErrPageOutOfRange)
	}
	return contentstream.Encode(m.pages[index].ops)
}

// Image returns a registered image.
func (m *Memory) Image(id section.ResourceID) (image.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img, ok := m.images[id]
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrUnknownResource)
	}
	return img, nil
}
