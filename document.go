package pagesect

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tsawler/pagesect/contentstream"
	"github.com/tsawler/pagesect/docmodel"
	"github.com/tsawler/pagesect/match"
	"github.com/tsawler/pagesect/ocr"
	"github.com/tsawler/pagesect/section"
)

// Document is the result of Analyze: every page's sections and the groups
// of recurring sections. Edits made through its methods are safe for
// concurrent use.
type Document struct {
	mu         sync.Mutex
	collection *section.Collection
	stats      match.Stats
	dirty      map[int]bool // pages whose keep flags changed since Commit
}

func newDocument(c *section.Collection, stats match.Stats) *Document {
	return &Document{
		collection: c,
		stats:      stats,
		dirty:      make(map[int]bool),
	}
}

// Collection returns the underlying collection. Callers that mutate it
// directly bypass the document's lock and dirty-page tracking.
func (d *Document) Collection() *section.Collection {
	return d.collection
}

// Stats returns the summary of the matching pass.
func (d *Document) Stats() match.Stats {
	return d.stats
}

// PageCount returns the number of pages analyzed.
func (d *Document) PageCount() int {
	return d.collection.PageCount()
}

// Pages returns the analyzed page indices (0-indexed) in ascending order.
func (d *Document) Pages() []int {
	return d.collection.Pages()
}

// Sections returns a page's sections in stream order.
func (d *Document) Sections(page int) []*section.Section {
	return d.collection.PageSections(page)
}

// Section returns the section with the given ID, or nil.
func (d *Document) Section(id section.SectionID) *section.Section {
	return d.collection.Section(id)
}

// Groups returns every group, singletons included, in creation order.
func (d *Document) Groups() []*section.Group {
	return d.collection.Groups()
}

// RecurringGroups returns the groups with more than one member.
func (d *Document) RecurringGroups() []*section.Group {
	var out []*section.Group
	for _, g := range d.collection.Groups() {
		if len(g.Members) > 1 {
			out = append(out, g)
		}
	}
	return out
}

// GroupOf returns the group that claimed a section.
func (d *Document) GroupOf(id section.SectionID) (*section.Group, bool) {
	s := d.collection.Section(id)
	if s == nil || !s.IsGrouped() {
		return nil, false
	}
	return d.collection.Group(s.Group), true
}

// Members returns the sections of a group in join order.
func (d *Document) Members(id section.GroupID) []*section.Section {
	return d.collection.GroupMembers(id)
}

// SetKeep sets the edit flag of one occurrence only.
func (d *Document) SetKeep(id section.SectionID, keep bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.collection.SetKeep(id, keep); err != nil {
		return err
	}
	d.dirty[d.collection.Section(id).Page] = true
	return nil
}

// SetGroupKeep sets the edit flag of every occurrence in a group.
func (d *Document) SetGroupKeep(id section.GroupID, keep bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.collection.SetGroupKeep(id, keep); err != nil {
		return err
	}
	for _, s := range d.collection.GroupMembers(id) {
		d.dirty[s.Page] = true
	}
	return nil
}

// Reconstruct returns the page's operations without the sections whose
// keep flag is false.
func (d *Document) Reconstruct(page int) []contentstream.Operation {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.collection.Reconstruct(page)
}

// Encode returns the reconstructed content stream of a page.
func (d *Document) Encode(page int) ([]byte, error) {
	data, err := contentstream.Encode(d.Reconstruct(page))
	if err != nil {
		return nil, fmt.Errorf("failed to encode page %d: %w", page, err)
	}
	return data, nil
}

// Edited returns the pages changed since the last Commit, in ascending
// order.
func (d *Document) Edited() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.editedLocked()
}

func (d *Document) editedLocked() []int {
	pages := make([]int, 0, len(d.dirty))
	for p := range d.dirty {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// Commit hands the reconstructed content of every edited page to the
// document model. Pages written successfully stop being edited; the first
// failure is returned and the remaining pages stay pending.
func (d *Document) Commit(sink docmodel.Sink) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, page := range d.editedLocked() {
		if err := sink.SetPageContent(page, d.collection.Reconstruct(page)); err != nil {
			return fmt.Errorf("failed to commit page %d: %w", page, err)
		}
		delete(d.dirty, page)
	}
	return nil
}

// LabelObjects fills ObjectInfo.Label for Object sections whose XObject src
// can decode as an image. Each resource is labeled once and the label is
// shared by every section that draws it. Sections that cannot be labeled
// keep an empty label and are reported as LabelFailed warnings; an error is
// returned only if ctx ends.
func (d *Document) LabelObjects(ctx context.Context, src docmodel.ImageSource, labeler ocr.Labeler) ([]Warning, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	type outcome struct {
		label string
		err   error
	}
	done := make(map[section.ResourceID]outcome)

	var warnings []Warning
	for _, s := range d.collection.Sections() {
		if s.Kind != section.Object || s.Object == nil || s.Object.Resource == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return warnings, err
		}

		res, ok := done[s.Object.Resource]
		if !ok {
			res.label, res.err = labelResource(src, labeler, s.Object.Resource)
			done[s.Object.Resource] = res
		}
		if res.err != nil {
			warnings = append(warnings, Warning{
				Page:    s.Page,
				Index:   -1,
				Code:    section.LabelFailed,
				Message: fmt.Sprintf("%s (%s): %v", s.Object.Name, s.Object.Resource, res.err),
			})
			continue
		}
		s.Object.Label = res.label
	}
	return warnings, nil
}

func labelResource(src docmodel.ImageSource, labeler ocr.Labeler, id section.ResourceID) (string, error) {
	img, err := src.Image(id)
	if err != nil {
		return "", err
	}
	return labeler.LabelImage(img)
}
