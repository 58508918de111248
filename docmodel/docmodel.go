package docmodel

import (
	"context"
	"image"

	"github.com/tsawler/pagesect/contentstream"
	"github.com/tsawler/pagesect/model"
	"github.com/tsawler/pagesect/section"
)

// Page is one page as the segmentation engine sees it.
type Page struct {
	Index      int
	MediaBox   model.BBox
	Operations []contentstream.Operation

	// Resolve maps XObject names used by Operations to identifiers that
	// are stable across pages. It may be nil.
	Resolve section.ResourceResolver

	// Warnings found while loading the page.
	Warnings []section.Warning
}

// Source provides pages.
type Source interface {
	PageCount() (int, error)
	Page(index int) (*Page, error)
}

// Sink accepts edited page content.
type Sink interface {
	SetPageContent(index int, ops []contentstream.Operation) error
}

// ImageSource decodes image resources by identifier.
type ImageSource interface {
	Image(id section.ResourceID) (image.Image, error)
}

// Rasterizer renders a page to a bitmap. Rendering is outside this module;
// overlay consumes implementations supplied by the caller.
type Rasterizer interface {
	Rasterize(ctx context.Context, index int, dpi float64) (image.Image, error)
}
