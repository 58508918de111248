package section

import (
	"fmt"
	"sort"

	"github.com/tsawler/pagesect/contentstream"
)

// Group is a cluster of sections on different pages believed to draw the
// same recurring element.
type Group struct {
	ID GroupID

	// Master founded the group and is what candidates are scored against.
	Master SectionID

	// Members in the order they joined, master first. At most one per page.
	Members []SectionID

	// LastMatchedPage is the highest page already searched for this group.
	// It never decreases.
	LastMatchedPage int
}

// Collection owns every section and group of a document. Sections and
// groups refer to each other by ID only.
//
// A Collection is not safe for concurrent mutation.
type Collection struct {
	sections []*Section
	groups   []*Group
	pages    map[int][]SectionID
	warnings []Warning
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{pages: make(map[int][]SectionID)}
}

// AddPage takes ownership of a page's sections and assigns their IDs.
func (c *Collection) AddPage(r *PageResult) error {
	if _, ok := c.pages[r.Page]; ok {
		return fmt.Errorf("page %d: %w", r.Page, ErrPageTaken)
	}

	ids := make([]SectionID, 0, len(r.Sections))
	for _, s := range r.Sections {
		s.ID = SectionID(len(c.sections))
		s.Page = r.Page
		s.Group = NoGroup
		c.sections = append(c.sections, s)
		ids = append(ids, s.ID)
	}
	c.pages[r.Page] = ids
	c.warnings = append(c.warnings, r.Warnings...)
	return nil
}

// AddWarning records a document-level problem, such as a page that could
// not be loaded.
func (c *Collection) AddWarning(w Warning) {
	c.warnings = append(c.warnings, w)
}

// Pages returns the page numbers in ascending order.
func (c *Collection) Pages() []int {
	pages := make([]int, 0, len(c.pages))
	for p := range c.pages {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// PageCount returns the number of pages added.
func (c *Collection) PageCount() int {
	return len(c.pages)
}

// PageSections returns a page's sections in stream order.
func (c *Collection) PageSections(page int) []*Section {
	ids := c.pages[page]
	out := make([]*Section, len(ids))
	for i, id := range ids {
		out[i] = c.sections[id]
	}
	return out
}

// Section returns the section with the given ID, or nil.
func (c *Collection) Section(id SectionID) *Section {
	if id < 0 || int(id) >= len(c.sections) {
		return nil
	}
	return c.sections[id]
}

// Sections returns every section in ID order.
func (c *Collection) Sections() []*Section {
	return c.sections
}

// Group returns the group with the given ID, or nil.
func (c *Collection) Group(id GroupID) *Group {
	if id < 0 || int(id) >= len(c.groups) {
		return nil
	}
	return c.groups[id]
}

// Groups returns every group in creation order.
func (c *Collection) Groups() []*Group {
	return c.groups
}

// Warnings returns the warnings of every page added, in insertion order.
func (c *Collection) Warnings() []Warning {
	return c.warnings
}

// NewGroup founds a group with master as its first member.
func (c *Collection) NewGroup(master SectionID) (*Group, error) {
	s := c.Section(master)
	if s == nil {
		return nil, fmt.Errorf("section %d: %w", master, ErrUnknownSection)
	}
	if !s.Matchable() {
		return nil, fmt.Errorf("section %d: %w", master, ErrNotMatchable)
	}
	if s.IsGrouped() {
		return nil, fmt.Errorf("section %d: %w", master, ErrAlreadyGrouped)
	}

	g := &Group{
		ID:              GroupID(len(c.groups)),
		Master:          master,
		Members:         []SectionID{master},
		LastMatchedPage: s.Page,
	}
	c.groups = append(c.groups, g)
	s.Group = g.ID
	return g, nil
}

// Assign adds a section to a group. A section joins at most one group, and
// a group takes at most one section per page.
func (c *Collection) Assign(gid GroupID, sid SectionID) error {
	g := c.Group(gid)
	if g == nil {
		return fmt.Errorf("group %d: %w", gid, ErrUnknownGroup)
	}
	s := c.Section(sid)
	if s == nil {
		return fmt.Errorf("section %d: %w", sid, ErrUnknownSection)
	}
	if !s.Matchable() {
		return fmt.Errorf("section %d: %w", sid, ErrNotMatchable)
	}
	if s.IsGrouped() {
		return fmt.Errorf("section %d: %w", sid, ErrAlreadyGrouped)
	}
	for _, m := range g.Members {
		if c.sections[m].Page == s.Page {
			return fmt.Errorf("group %d, page %d: %w", gid, s.Page, ErrPageTaken)
		}
	}

	g.Members = append(g.Members, sid)
	s.Group = gid
	return nil
}

// AdvanceScan records that page has been searched for the group. Earlier
// pages are ignored so LastMatchedPage never decreases.
func (c *Collection) AdvanceScan(gid GroupID, page int) {
	if g := c.Group(gid); g != nil && page > g.LastMatchedPage {
		g.LastMatchedPage = page
	}
}

// SetKeep sets the edit flag of one section.
func (c *Collection) SetKeep(id SectionID, keep bool) error {
	s := c.Section(id)
	if s == nil {
		return fmt.Errorf("section %d: %w", id, ErrUnknownSection)
	}
	s.Keep = keep
	return nil
}

// SetGroupKeep sets the edit flag of every member of a group, which is how
// an edit is applied to all occurrences of a recurring element.
func (c *Collection) SetGroupKeep(id GroupID, keep bool) error {
	g := c.Group(id)
	if g == nil {
		return fmt.Errorf("group %d: %w", id, ErrUnknownGroup)
	}
	for _, m := range g.Members {
		c.sections[m].Keep = keep
	}
	return nil
}

// GroupMembers returns the sections of a group in join order.
func (c *Collection) GroupMembers(id GroupID) []*Section {
	g := c.Group(id)
	if g == nil {
		return nil
	}
	out := make([]*Section, len(g.Members))
	for i, m := range g.Members {
		out[i] = c.sections[m]
	}
	return out
}

// Reconstruct returns the page's operations with every section whose Keep
// flag is false left out. Kept sections appear in their original order.
func (c *Collection) Reconstruct(page int) []contentstream.Operation {
	var ops []contentstream.Operation
	for _, id := range c.pages[page] {
		s := c.sections[id]
		if s.Keep {
			ops = append(ops, s.Content...)
		}
	}
	return ops
}
