package reader

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sort"

	"github.com/tsawler/pagesect/core"
	"github.com/tsawler/pagesect/pages"
)

// PageImage is an image XObject with its samples decoded.
type PageImage struct {
	Name             string // resource name, e.g. "Im1"
	Ref              core.IndirectRef
	Width            int
	Height           int
	ColorSpace       string // DeviceGray, DeviceRGB, DeviceCMYK, ...
	BitsPerComponent int
	Data             []byte // decoded samples, or JPEG bytes when Filter is DCTDecode
	Filter           string // last filter in the chain
}

// ExtractPageImages returns the image XObjects in a page's resources, sorted
// by name. XObjects that fail to decode are skipped.
func (r *Reader) ExtractPageImages(page *pages.Page) ([]PageImage, error) {
	resources, err := page.Resources()
	if err != nil {
		return nil, err
	}
	xobjectsObj, err := r.Resolve(resources.Get("XObject"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve XObject dictionary: %w", err)
	}
	xobjects, ok := xobjectsObj.(core.Dict)
	if !ok {
		return nil, nil
	}

	var images []PageImage
	for _, name := range xobjects.Keys() {
		resolved, err := r.Resolve(xobjects[name])
		if err != nil {
			continue
		}
		stream, ok := resolved.(*core.Stream)
		if !ok || !IsImage(stream) {
			continue
		}
		img, err := r.extractImage(name, stream)
		if err != nil {
			r.logger.Debug("reader: skipping image", "name", name, "error", err)
			continue
		}
		img.Ref, _ = xobjects.GetIndirectRef(name)
		images = append(images, *img)
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Name < images[j].Name })
	return images, nil
}

// IsImage reports whether a stream is an image XObject.
func IsImage(stream *core.Stream) bool {
	subtype, _ := stream.Dict.GetName("Subtype")
	return subtype == "Image"
}

// DecodeImage decodes an image XObject stream.
func (r *Reader) DecodeImage(stream *core.Stream) (image.Image, error) {
	if !IsImage(stream) {
		return nil, fmt.Errorf("stream is not an image XObject")
	}
	img, err := r.extractImage("", stream)
	if err != nil {
		return nil, err
	}
	return img.Image()
}

func (r *Reader) extractImage(name string, stream *core.Stream) (*PageImage, error) {
	dict := stream.Dict

	width, ok := dict.GetInt("Width")
	if !ok || width <= 0 {
		return nil, fmt.Errorf("image missing or invalid /Width")
	}
	height, ok := dict.GetInt("Height")
	if !ok || height <= 0 {
		return nil, fmt.Errorf("image missing or invalid /Height")
	}

	// Masks and CCITT images are one bit deep.
	bpc := 8
	if v, ok := dict.GetInt("BitsPerComponent"); ok {
		bpc = int(v)
	} else if mask, _ := dict.Get("ImageMask").(core.Bool); mask {
		bpc = 1
	}

	colorSpace := "DeviceGray"
	if cs := dict.Get("ColorSpace"); cs != nil {
		colorSpace = r.parseColorSpace(cs)
	}

	filter := ""
	if names := stream.Filters(); len(names) > 0 {
		filter = names[len(names)-1]
		if filter == "CCITTFaxDecode" || filter == "CCF" {
			bpc = 1
		}
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode image stream: %w", err)
	}

	return &PageImage{
		Name:             name,
		Width:            int(width),
		Height:           int(height),
		ColorSpace:       colorSpace,
		BitsPerComponent: bpc,
		Data:             data,
		Filter:           filter,
	}, nil
}

// parseColorSpace returns the family name of a color space.
func (r *Reader) parseColorSpace(obj core.Object) string {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return "DeviceGray"
	}

	switch v := resolved.(type) {
	case core.Name:
		return string(v)
	case core.Array:
		if len(v) == 0 {
			break
		}
		name, _ := v[0].(core.Name)
		switch {
		case name == "Indexed" && len(v) > 1:
			return r.parseColorSpace(v[1])
		case name == "ICCBased" && len(v) > 1:
			// /N gives the component count of the profile.
			if profile, err := r.Resolve(v[1]); err == nil {
				if s, ok := profile.(*core.Stream); ok {
					switch n, _ := s.Dict.GetInt("N"); n {
					case 3:
						return "DeviceRGB"
					case 4:
						return "DeviceCMYK"
					}
				}
			}
			return "ICCBased"
		}
		return string(name)
	}
	return "DeviceGray"
}

// Image converts the decoded samples to an image.Image.
func (img *PageImage) Image() (image.Image, error) {
	switch img.Filter {
	case "DCTDecode", "DCT":
		decoded, err := jpeg.Decode(bytes.NewReader(img.Data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode JPEG: %w", err)
		}
		return decoded, nil
	case "JPXDecode":
		return nil, fmt.Errorf("JPXDecode images are not supported")
	}

	var goImg image.Image
	var err error
	switch img.ColorSpace {
	case "DeviceRGB", "CalRGB":
		goImg, err = img.toRGBImage()
	case "DeviceCMYK":
		goImg, err = img.toCMYKImage()
	default:
		goImg, err = img.toGrayImage()
	}
	if err != nil {
		return nil, err
	}
	return goImg, nil
}

// ToPNG encodes the image as PNG, the input format of the OCR engine.
func (img *PageImage) ToPNG() ([]byte, error) {
	goImg, err := img.Image()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, goImg); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func (img *PageImage) toGrayImage() (*image.Gray, error) {
	switch img.BitsPerComponent {
	case 1:
		return img.toBilevelGray()
	case 4:
		return img.to4BitGray()
	case 8:
		goImg := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
		expectedSize := img.Width * img.Height
		if len(img.Data) < expectedSize {
			return nil, fmt.Errorf("insufficient data: got %d, expected %d", len(img.Data), expectedSize)
		}
		copy(goImg.Pix, img.Data[:expectedSize])
		return goImg, nil
	}
	return nil, fmt.Errorf("unsupported bits per component: %d", img.BitsPerComponent)
}

// toBilevelGray expands one bit per pixel, MSB first, 0 black.
func (img *PageImage) toBilevelGray() (*image.Gray, error) {
	goImg := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
	bytesPerRow := (img.Width + 7) / 8
	if expected := bytesPerRow * img.Height; len(img.Data) < expected {
		return nil, fmt.Errorf("insufficient data for 1-bit image: got %d, expected %d", len(img.Data), expected)
	}

	for y := 0; y < img.Height; y++ {
		row := img.Data[y*bytesPerRow:]
		for x := 0; x < img.Width; x++ {
			if row[x/8]>>(7-x%8)&1 != 0 {
				goImg.Pix[y*img.Width+x] = 255
			}
		}
	}
	return goImg, nil
}

func (img *PageImage) to4BitGray() (*image.Gray, error) {
	goImg := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
	bytesPerRow := (img.Width + 1) / 2
	if expected := bytesPerRow * img.Height; len(img.Data) < expected {
		return nil, fmt.Errorf("insufficient data for 4-bit image: got %d, expected %d", len(img.Data), expected)
	}

	for y := 0; y < img.Height; y++ {
		row := img.Data[y*bytesPerRow:]
		for x := 0; x < img.Width; x++ {
			nibble := row[x/2] & 0x0F
			if x%2 == 0 {
				nibble = row[x/2] >> 4
			}
			goImg.Pix[y*img.Width+x] = nibble * 17
		}
	}
	return goImg, nil
}

func (img *PageImage) toRGBImage() (*image.RGBA, error) {
	if img.BitsPerComponent != 8 {
		return nil, fmt.Errorf("unsupported bits per component for RGB: %d", img.BitsPerComponent)
	}
	expectedSize := img.Width * img.Height * 3
	if len(img.Data) < expectedSize {
		return nil, fmt.Errorf("insufficient data for RGB image: got %d, expected %d", len(img.Data), expectedSize)
	}

	goImg := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for i := 0; i < img.Width*img.Height; i++ {
		copy(goImg.Pix[i*4:i*4+3], img.Data[i*3:i*3+3])
		goImg.Pix[i*4+3] = 255
	}
	return goImg, nil
}

func (img *PageImage) toCMYKImage() (*image.RGBA, error) {
	if img.BitsPerComponent != 8 {
		return nil, fmt.Errorf("unsupported bits per component for CMYK: %d", img.BitsPerComponent)
	}
	expectedSize := img.Width * img.Height * 4
	if len(img.Data) < expectedSize {
		return nil, fmt.Errorf("insufficient data for CMYK image: got %d, expected %d", len(img.Data), expectedSize)
	}

	goImg := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for i := 0; i < img.Width*img.Height; i++ {
		s := img.Data[i*4 : i*4+4]
		r, g, b := color.CMYKToRGB(s[0], s[1], s[2], s[3])
		goImg.Pix[i*4+0] = r
		goImg.Pix[i*4+1] = g
		goImg.Pix[i*4+2] = b
		goImg.Pix[i*4+3] = 255
	}
	return goImg, nil
}
