// Package report renders an analyzed document as a self-contained HTML page
// listing every page's sections and the recurring groups.
package report

import (
	"fmt"
	"io"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/tsawler/pagesect"
	"github.com/tsawler/pagesect/section"
)

const style = `body{font-family:sans-serif;margin:2em}
table{border-collapse:collapse;margin-bottom:2em}
td,th{border:1px solid #ccc;padding:2px 8px;text-align:left;vertical-align:top}
tr.dropped{color:#999;text-decoration:line-through}
td.text{white-space:pre-wrap;font-family:monospace}`

// Options controls the report.
type Options struct {
	Title string

	// Singletons includes groups with a single member in the group table.
	Singletons bool
}

// Write renders doc as HTML.
func Write(w io.Writer, doc *pagesect.Document, opts Options) error {
	title := opts.Title
	if title == "" {
		title = "Section report"
	}

	body := element(atom.Body,
		element(atom.H1, text(title)),
		summary(doc),
		element(atom.H2, text("Groups")),
		groupTable(doc, opts.Singletons),
		element(atom.H2, text("Pages")),
	)
	for _, page := range doc.Pages() {
		body.AppendChild(element(atom.H3, text(fmt.Sprintf("Page %d", page+1))))
		body.AppendChild(pageTable(doc, page))
	}

	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	root.AppendChild(element(atom.Html,
		element(atom.Head,
			withAttr(element(atom.Meta), "charset", "utf-8"),
			element(atom.Title, text(title)),
			element(atom.Style, text(style)),
		),
		body,
	))

	if err := html.Render(w, root); err != nil {
		return fmt.Errorf("report: render: %w", err)
	}
	return nil
}

func summary(doc *pagesect.Document) *html.Node {
	stats := doc.Stats()
	return element(atom.P, text(fmt.Sprintf(
		"%d pages, %d sections, %d groups (%d recurring), %d comparisons",
		doc.PageCount(), len(doc.Collection().Sections()), stats.Groups, stats.Recurring, stats.Comparisons)))
}

func groupTable(doc *pagesect.Document, singletons bool) *html.Node {
	table := element(atom.Table, row(atom.Th, "Group", "Master", "Kind", "Members", "Content"))
	for _, g := range doc.Groups() {
		if len(g.Members) < 2 && !singletons {
			continue
		}
		master := doc.Section(g.Master)
		members := ""
		for i, s := range doc.Members(g.ID) {
			if i > 0 {
				members += ", "
			}
			members += fmt.Sprintf("p%d#%d", s.Page+1, s.ID)
		}
		tr := row(atom.Td, strconv.Itoa(int(g.ID)), strconv.Itoa(int(master.ID)), master.Kind.String(), members)
		tr.AppendChild(contentCell(master))
		table.AppendChild(tr)
	}
	return table
}

func pageTable(doc *pagesect.Document, page int) *html.Node {
	table := element(atom.Table, row(atom.Th, "#", "ID", "Kind", "Group", "Anchor", "Ops", "Content"))
	for _, s := range doc.Sections(page) {
		group := ""
		if s.IsGrouped() {
			group = strconv.Itoa(int(s.Group))
		}
		anchor := ""
		if s.Anchor != nil {
			anchor = fmt.Sprintf("%.1f, %.1f", s.Anchor.X, s.Anchor.Y)
		}
		tr := row(atom.Td,
			strconv.Itoa(s.Index), strconv.Itoa(int(s.ID)), s.Kind.String(),
			group, anchor, strconv.Itoa(len(s.Content)))
		tr.AppendChild(contentCell(s))
		if !s.Keep {
			withAttr(tr, "class", "dropped")
		}
		table.AppendChild(tr)
	}
	return table
}

// contentCell describes what a section draws.
func contentCell(s *section.Section) *html.Node {
	var content string
	switch s.Kind {
	case section.Text:
		content = s.DisplayText()
	case section.Object:
		content = "/" + s.Object.Name
		if s.Object.Resource != "" {
			content += " (" + string(s.Object.Resource) + ")"
		}
		if s.Object.Label != "" {
			content += " " + strconv.Quote(s.Object.Label)
		}
	}
	return withAttr(element(atom.Td, text(content)), "class", "text")
}

func row(cell atom.Atom, values ...string) *html.Node {
	tr := element(atom.Tr)
	for _, v := range values {
		tr.AppendChild(element(cell, text(v)))
	}
	return tr
}

func element(a atom.Atom, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func withAttr(n *html.Node, key, val string) *html.Node {
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
