package reader

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/tsawler/pagesect/core"
	"github.com/tsawler/pagesect/internal/pdftest"
)

// TestExtractPageImages tests finding image XObjects in inherited resources
func TestExtractPageImages(t *testing.T) {
	r := newReader(t, pdftest.Document("q 10 0 0 10 0 0 cm /Im1 Do Q"))
	page, _ := r.GetPage(0)

	images, err := r.ExtractPageImages(page)
	if err != nil {
		t.Fatalf("ExtractPageImages failed: %v", err)
	}
	if len(images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(images))
	}
	img := images[0]
	if img.Name != "Im1" || img.Ref.Number != pdftest.ImageObj {
		t.Errorf("unexpected image identity %s %v", img.Name, img.Ref)
	}
	if img.Width != 2 || img.Height != 2 || img.ColorSpace != "DeviceGray" {
		t.Errorf("unexpected image properties %+v", img)
	}
}

// TestDecodeImage tests decoding samples into an image.Image
func TestDecodeImage(t *testing.T) {
	r := newReader(t, pdftest.Document("BT ET"))
	obj, _ := r.GetObject(pdftest.ImageObj)

	img, err := r.DecodeImage(obj.(*core.Stream))
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("expected *image.Gray, got %T", img)
	}
	if gray.GrayAt(0, 0).Y != 0 || gray.GrayAt(1, 0).Y != 255 {
		t.Errorf("unexpected pixels %v", gray.Pix)
	}

	font, _ := r.GetObject(pdftest.FontObj)
	if _, err := r.DecodeImage(&core.Stream{Dict: font.(core.Dict)}); err == nil {
		t.Error("expected error for a non-image stream")
	}
}

// TestImageConversions tests each sample layout
func TestImageConversions(t *testing.T) {
	tests := []struct {
		name string
		img  PageImage
		at   color.Color
	}{
		{"gray 8", PageImage{Width: 2, Height: 1, ColorSpace: "DeviceGray", BitsPerComponent: 8, Data: []byte{7, 9}},
			color.Gray{Y: 7}},
		{"bilevel", PageImage{Width: 8, Height: 1, ColorSpace: "DeviceGray", BitsPerComponent: 1, Data: []byte{0x80}},
			color.Gray{Y: 255}},
		{"gray 4", PageImage{Width: 2, Height: 1, ColorSpace: "DeviceGray", BitsPerComponent: 4, Data: []byte{0xF0}},
			color.Gray{Y: 255}},
		{"rgb", PageImage{Width: 1, Height: 1, ColorSpace: "DeviceRGB", BitsPerComponent: 8, Data: []byte{255, 0, 0}},
			color.RGBA{R: 255, A: 255}},
		{"cmyk", PageImage{Width: 1, Height: 1, ColorSpace: "DeviceCMYK", BitsPerComponent: 8, Data: []byte{0, 0, 0, 255}},
			color.RGBA{A: 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := tt.img.Image()
			if err != nil {
				t.Fatalf("Image failed: %v", err)
			}
			r1, g1, b1, a1 := img.At(0, 0).RGBA()
			r2, g2, b2, a2 := tt.at.RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
				t.Errorf("expected %v at origin, got %v", tt.at, img.At(0, 0))
			}
			if _, err := tt.img.ToPNG(); err != nil {
				t.Errorf("ToPNG failed: %v", err)
			}
		})
	}
}

// TestImageInsufficientData tests short sample buffers
func TestImageInsufficientData(t *testing.T) {
	for _, img := range []PageImage{
		{Width: 4, Height: 4, ColorSpace: "DeviceGray", BitsPerComponent: 8, Data: []byte{1}},
		{Width: 16, Height: 2, ColorSpace: "DeviceGray", BitsPerComponent: 1, Data: []byte{1}},
		{Width: 2, Height: 2, ColorSpace: "DeviceRGB", BitsPerComponent: 8, Data: []byte{1, 2, 3}},
		{Width: 2, Height: 2, ColorSpace: "DeviceCMYK", BitsPerComponent: 8, Data: []byte{1, 2, 3, 4}},
		{Width: 2, Height: 2, ColorSpace: "DeviceGray", BitsPerComponent: 16, Data: make([]byte, 8)},
	} {
		if _, err := img.Image(); err == nil {
			t.Errorf("%s/%d: expected error", img.ColorSpace, img.BitsPerComponent)
		}
	}
}

// TestImageJPEG tests that DCT data is handed to the JPEG decoder
func TestImageJPEG(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, nil); err != nil {
		t.Fatalf("jpeg.Encode failed: %v", err)
	}
	img := PageImage{Width: 4, Height: 4, Filter: "DCTDecode", Data: buf.Bytes()}
	decoded, err := img.Image()
	if err != nil {
		t.Fatalf("Image failed: %v", err)
	}
	if decoded.Bounds().Dx() != 4 {
		t.Errorf("expected width 4, got %d", decoded.Bounds().Dx())
	}
}
