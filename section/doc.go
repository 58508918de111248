// Package section splits page content streams into typed sections and keeps
// them, together with the groups the matcher builds, in an ID-indexed
// [Collection].
//
// A [Parser] makes one forward pass over a page's operations:
//
//	p := section.NewParser()
//	res := p.Parse(0, ops, resolve)
//	for _, s := range res.Sections {
//	    fmt.Println(s.Kind, s.Anchor)
//	}
//
// Every operation lands in exactly one section, so concatenating the
// sections' Content gives back the input. A BT...ET object that shows text
// becomes a [Text] section anchored where its first string is drawn; each Do
// becomes a one-operation [Object] section carrying the XObject's
// [ResourceID]; everything in between is [Other].
//
// Malformed nesting (BT inside BT, stray ET, Q without q, EMC without BMC)
// never stops a parse. The parser recovers by closing what is open and
// records a [Warning].
//
// Sections and groups reference each other by [SectionID] and [GroupID]
// through the Collection, which also enforces the grouping rules: a section
// joins at most one group and a group holds at most one section per page.
package section
