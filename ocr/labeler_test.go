package ocr

import (
	"errors"
	"image"
	"testing"
)

func TestLabelerFunc(t *testing.T) {
	want := errors.New("boom")
	var l Labeler = LabelerFunc(func(img image.Image) (string, error) {
		if img.Bounds().Dx() != 2 {
			return "", want
		}
		return "LOGO", nil
	})

	got, err := l.LabelImage(image.NewGray(image.Rect(0, 0, 2, 2)))
	if err != nil || got != "LOGO" {
		t.Errorf("expected LOGO, got %q (%v)", got, err)
	}
	if _, err := l.LabelImage(image.NewGray(image.Rect(0, 0, 3, 3))); !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
}

func TestOneLine(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"ACME", "ACME"},
		{"  ACME\n Corp \t Ltd\n", "ACME Corp Ltd"},
	}
	for _, tt := range tests {
		if got := oneLine(tt.in); got != tt.want {
			t.Errorf("oneLine(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestEncodePNG(t *testing.T) {
	if _, err := encodePNG(nil); err == nil {
		t.Error("expected error for nil image")
	}
	data, err := encodePNG(image.NewGray(image.Rect(0, 0, 4, 4)))
	if err != nil {
		t.Fatalf("encodePNG: %v", err)
	}
	if len(data) < 8 || string(data[1:4]) != "PNG" {
		t.Errorf("expected PNG signature, got % x", data[:min(8, len(data))])
	}
}

// recorder is a Configurable that records the settings it receives.
type recorder struct {
	calls   []string
	langErr error
}

func (r *recorder) SetLanguage(lang string) error {
	r.calls = append(r.calls, "lang="+lang)
	return r.langErr
}

func (r *recorder) SetPageSegMode(mode PageSegMode) error {
	r.calls = append(r.calls, "psm="+mode.String())
	return nil
}

// TestParsePageSegMode tests mode names and numbers
func TestParsePageSegMode(t *testing.T) {
	tests := []struct {
		in   string
		want PageSegMode
	}{
		{"sparse_text", PSM_SPARSE_TEXT},
		{" Single_Line ", PSM_SINGLE_LINE},
		{"osd_only", PSM_OSD_ONLY},
		{"raw_line", PSM_RAW_LINE},
		{"11", PSM_SPARSE_TEXT},
		{"3", PSM_AUTO},
	}
	for _, tt := range tests {
		got, err := ParsePageSegMode(tt.in)
		if err != nil {
			t.Errorf("ParsePageSegMode(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePageSegMode(%q): expected %s, got %s", tt.in, tt.want, got)
		}
	}

	for _, bad := range []string{"", "sparse", "14", "-1"} {
		if _, err := ParsePageSegMode(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

// TestPageSegModeString tests that every mode has a name that parses back
func TestPageSegModeString(t *testing.T) {
	for m := PSM_OSD_ONLY; m <= PSM_RAW_LINE; m++ {
		got, err := ParsePageSegMode(m.String())
		if err != nil || got != m {
			t.Errorf("mode %d: expected round trip through %q, got %d (%v)", int(m), m.String(), int(got), err)
		}
	}
	if s := PageSegMode(99).String(); s != "PageSegMode(99)" {
		t.Errorf("expected PageSegMode(99), got %q", s)
	}
}

// TestConfigure tests that options reach the engine in order
func TestConfigure(t *testing.T) {
	r := &recorder{}
	if err := Configure(r, DefaultOptions()); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	want := []string{"lang=eng", "psm=sparse_text"}
	if len(r.calls) != len(want) || r.calls[0] != want[0] || r.calls[1] != want[1] {
		t.Errorf("expected calls %v, got %v", want, r.calls)
	}

	r = &recorder{}
	if err := Configure(r, Options{PageSegMode: PSM_SINGLE_WORD}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if len(r.calls) != 1 || r.calls[0] != "psm=single_word" {
		t.Errorf("expected only the mode to be set, got %v", r.calls)
	}

	boom := errors.New("no traineddata")
	r = &recorder{langErr: boom}
	if err := Configure(r, DefaultOptions()); !errors.Is(err, boom) {
		t.Errorf("expected %v, got %v", boom, err)
	}
	if len(r.calls) != 1 {
		t.Errorf("expected configuration to stop at the language, got %v", r.calls)
	}
}
