package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strconv"
	"strings"
)

// ErrOCRNotEnabled is returned when OCR functions are called but OCR support
// was not compiled in. Rebuild with -tags ocr to enable OCR support.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// Labeler turns a decoded image into a short text label.
type Labeler interface {
	LabelImage(img image.Image) (string, error)
}

// LabelerFunc adapts a function to the Labeler interface.
type LabelerFunc func(img image.Image) (string, error)

// LabelImage calls f(img).
func (f LabelerFunc) LabelImage(img image.Image) (string, error) {
	return f(img)
}

// PageSegMode represents page segmentation modes for OCR.
// These control how Tesseract analyzes the page layout.
type PageSegMode int

// Page segmentation modes, numbered as in Tesseract.
const (
	PSM_OSD_ONLY               PageSegMode = 0  // Orientation and script detection only
	PSM_AUTO_OSD               PageSegMode = 1  // Automatic with OSD
	PSM_AUTO_ONLY              PageSegMode = 2  // Automatic, no OSD or OCR
	PSM_AUTO                   PageSegMode = 3  // Fully automatic (default)
	PSM_SINGLE_COLUMN          PageSegMode = 4  // Single column of variable sizes
	PSM_SINGLE_BLOCK_VERT_TEXT PageSegMode = 5  // Single uniform block of vertically aligned text
	PSM_SINGLE_BLOCK           PageSegMode = 6  // Single uniform block of text
	PSM_SINGLE_LINE            PageSegMode = 7  // Single text line
	PSM_SINGLE_WORD            PageSegMode = 8  // Single word
	PSM_CIRCLE_WORD            PageSegMode = 9  // Single word in a circle
	PSM_SINGLE_CHAR            PageSegMode = 10 // Single character
	PSM_SPARSE_TEXT            PageSegMode = 11 // Find as much text as possible
	PSM_SPARSE_TEXT_OSD        PageSegMode = 12 // Sparse text with OSD
	PSM_RAW_LINE               PageSegMode = 13 // Treat image as single text line
)

var pageSegModeNames = [...]string{
	PSM_OSD_ONLY:               "osd_only",
	PSM_AUTO_OSD:               "auto_osd",
	PSM_AUTO_ONLY:              "auto_only",
	PSM_AUTO:                   "auto",
	PSM_SINGLE_COLUMN:          "single_column",
	PSM_SINGLE_BLOCK_VERT_TEXT: "single_block_vert_text",
	PSM_SINGLE_BLOCK:           "single_block",
	PSM_SINGLE_LINE:            "single_line",
	PSM_SINGLE_WORD:            "single_word",
	PSM_CIRCLE_WORD:            "circle_word",
	PSM_SINGLE_CHAR:            "single_char",
	PSM_SPARSE_TEXT:            "sparse_text",
	PSM_SPARSE_TEXT_OSD:        "sparse_text_osd",
	PSM_RAW_LINE:               "raw_line",
}

func (m PageSegMode) String() string {
	if m >= 0 && int(m) < len(pageSegModeNames) {
		return pageSegModeNames[m]
	}
	return fmt.Sprintf("PageSegMode(%d)", int(m))
}

// ParsePageSegMode accepts a mode name ("sparse_text") or its Tesseract
// number ("11").
func ParsePageSegMode(s string) (PageSegMode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range pageSegModeNames {
		if n == name {
			return PageSegMode(i), nil
		}
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 0 && n < len(pageSegModeNames) {
		return PageSegMode(n), nil
	}
	return 0, fmt.Errorf("unknown page segmentation mode %q", s)
}

// Options configures recognition on a Client.
type Options struct {
	// Language is one or more "+"-separated Tesseract languages, e.g.
	// "eng+fra". Empty keeps the engine default.
	Language    string
	PageSegMode PageSegMode
}

// DefaultOptions reads sparse English text, the usual content of stamps
// and logos.
func DefaultOptions() Options {
	return Options{Language: "eng", PageSegMode: PSM_SPARSE_TEXT}
}

// Configurable is an engine whose language and segmentation mode can be set.
// *Client implements it.
type Configurable interface {
	SetLanguage(lang string) error
	SetPageSegMode(mode PageSegMode) error
}

// Configure applies opts to c.
func Configure(c Configurable, opts Options) error {
	if opts.Language != "" {
		if err := c.SetLanguage(opts.Language); err != nil {
			return fmt.Errorf("set language %q: %w", opts.Language, err)
		}
	}
	if err := c.SetPageSegMode(opts.PageSegMode); err != nil {
		return fmt.Errorf("set page segmentation mode %s: %w", opts.PageSegMode, err)
	}
	return nil
}

func encodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, errors.New("ocr: nil image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// oneLine collapses every whitespace run to a single space.
func oneLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
