// Package overlay paints section boxes over page images so the result of
// segmentation and matching can be inspected visually.
package overlay

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"github.com/tsawler/pagesect/docmodel"
	"github.com/tsawler/pagesect/model"
	"github.com/tsawler/pagesect/section"
)

// Options controls how boxes are painted.
type Options struct {
	// Colors per section kind. Kinds without a color are not drawn.
	Colors map[section.Kind]color.RGBA

	// Stroke is the outline width in pixels.
	// Default: 2
	Stroke int

	// FillAlpha is the opacity of the box interior, 0 for outlines only.
	// Default: 48
	FillAlpha uint8

	// Dropped is the color of sections whose keep flag is false.
	Dropped color.RGBA
}

// DefaultOptions returns the default overlay options.
func DefaultOptions() Options {
	return Options{
		Colors: map[section.Kind]color.RGBA{
			section.Text:   {R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
			section.Object: {R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
			section.Other:  {R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff},
		},
		Stroke:    2,
		FillAlpha: 48,
		Dropped:   color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	}
}

// Draw paints the box of every section onto dst. dst shows the page area
// box scaled to its bounds, with y growing downward.
func Draw(dst draw.Image, box model.BBox, sections []*section.Section, opts Options) {
	bounds := dst.Bounds()
	if box.Width <= 0 || box.Height <= 0 || bounds.Empty() {
		return
	}
	sx := float64(bounds.Dx()) / box.Width
	sy := float64(bounds.Dy()) / box.Height

	for _, s := range sections {
		c, ok := opts.Colors[s.Kind]
		if !ok {
			continue
		}
		if !s.Keep {
			c = opts.Dropped
		}
		b, ok := s.BBox()
		if !ok {
			continue
		}

		r := image.Rect(
			bounds.Min.X+int(math.Floor((b.X-box.X)*sx)),
			bounds.Min.Y+int(math.Floor((box.Top()-b.Top())*sy)),
			bounds.Min.X+int(math.Ceil((b.Right()-box.X)*sx)),
			bounds.Min.Y+int(math.Ceil((box.Top()-b.Y)*sy)),
		).Intersect(bounds)
		if r.Empty() {
			continue
		}
		paintBox(dst, r, c, opts)
	}
}

func paintBox(dst draw.Image, r image.Rectangle, c color.RGBA, opts Options) {
	if opts.FillAlpha > 0 {
		fill := premultiply(c, opts.FillAlpha)
		draw.Draw(dst, r, image.NewUniform(fill), image.Point{}, draw.Over)
	}

	w := max(opts.Stroke, 1)
	edge := image.NewUniform(c)
	for _, e := range []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w),
		image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y),
		image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Max.Y),
	} {
		draw.Draw(dst, e.Intersect(r), edge, image.Point{}, draw.Src)
	}
}

// premultiply returns c at opacity a as a premultiplied color.
func premultiply(c color.RGBA, a uint8) color.RGBA {
	scale := func(v uint8) uint8 { return uint8(uint16(v) * uint16(a) / 0xff) }
	return color.RGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: a}
}

// Blank returns a white image of the page area at the given resolution.
func Blank(box model.BBox, dpi float64) *image.RGBA {
	w := max(int(math.Round(box.Width*dpi/72)), 1)
	h := max(int(math.Round(box.Height*dpi/72)), 1)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return img
}

// Render rasterizes a page through r and paints its sections on a copy of
// the raster.
func Render(ctx context.Context, r docmodel.Rasterizer, index int, dpi float64, box model.BBox, sections []*section.Section, opts Options) (*image.RGBA, error) {
	raster, err := r.Rasterize(ctx, index, dpi)
	if err != nil {
		return nil, fmt.Errorf("overlay: rasterize page %d: %w", index, err)
	}
	b := raster.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), raster, b.Min, draw.Src)
	Draw(dst, box, sections, opts)
	return dst, nil
}

// Thumbnail scales src to fit within maxW x maxH, keeping its aspect ratio.
// Images that already fit are returned unchanged.
func Thumbnail(src image.Image, maxW, maxH int) image.Image {
	b := src.Bounds()
	if maxW <= 0 || maxH <= 0 || (b.Dx() <= maxW && b.Dy() <= maxH) {
		return src
	}

	scale := math.Min(float64(maxW)/float64(b.Dx()), float64(maxH)/float64(b.Dy()))
	w := max(int(math.Round(float64(b.Dx())*scale)), 1)
	h := max(int(math.Round(float64(b.Dy())*scale)), 1)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
