// Package pages walks the PDF page tree and exposes per-page attributes.
//
// The tree is flattened into document order:
//
//	tree := pages.NewPageTree(pagesDict, resolver)
//	count, _ := tree.Count()
//	page, _ := tree.GetPage(0)  // 0-indexed
//
// A [Page] gives its media box as a [model.BBox], its resources (inherited
// from any ancestor) and its content streams, either raw through
// [Page.Contents] or decoded and joined through [Page.ContentData].
// [Page.XObjectRef] maps an XObject resource name to the reference that
// identifies the object across pages.
package pages
