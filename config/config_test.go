package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tsawler/pagesect"
	"github.com/tsawler/pagesect/match"
	"github.com/tsawler/pagesect/ocr"
)

func TestParseDefaults(t *testing.T) {
	for _, data := range []string{"", "# nothing here\n", "matcher: {}\n"} {
		f, err := Parse([]byte(data))
		if err != nil {
			t.Fatalf("Parse(%q): %v", data, err)
		}
		if d := cmp.Diff(Default(), f); d != "" {
			t.Errorf("Parse(%q) (-want +got):\n%s", data, d)
		}
	}
}

func TestParsePartial(t *testing.T) {
	f, err := Parse([]byte(`
matcher:
  lookahead: 3
  accept_threshold: 0.9
parser:
  workers: 2
  dedup: true
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := match.DefaultConfig()
	want.Lookahead = 3
	want.AcceptThreshold = 0.9
	if d := cmp.Diff(want, f.MatchConfig()); d != "" {
		t.Errorf("MatchConfig (-want +got):\n%s", d)
	}
	if f.Parser.Workers != 2 || !f.Parser.Dedup {
		t.Errorf("unexpected parser section %+v", f.Parser)
	}
}

func TestParseEnv(t *testing.T) {
	t.Setenv("PAGESECT_TEST_LOOKAHEAD", "7")
	t.Setenv("PAGESECT_TEST_LEVEL", "debug")

	f, err := Parse([]byte("matcher:\n  lookahead: ${PAGESECT_TEST_LOOKAHEAD}\nlog:\n  level: $PAGESECT_TEST_LEVEL\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Matcher.Lookahead != 7 {
		t.Errorf("expected lookahead 7, got %d", f.Matcher.Lookahead)
	}
	level, err := f.Level()
	if err != nil || level != slog.LevelDebug {
		t.Errorf("expected debug level, got %v (%v)", level, err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown key", "matcher:\n  look_ahead: 3\n"},
		{"unknown section", "render:\n  dpi: 72\n"},
		{"wrong type", "matcher:\n  lookahead: many\n"},
		{"invalid threshold", "matcher:\n  accept_threshold: 0\n"},
		{"negative workers", "parser:\n  workers: -1\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"bad format", "log:\n  format: xml\n"},
		{"bad ocr mode", "ocr:\n  page_seg_mode: everything\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Errorf("expected error for %q", tt.data)
			}
		})
	}

	_, err := Parse([]byte("matcher:\n  lookahead: 0\n"))
	if !errors.Is(err, match.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

// TestOCROptions tests the ocr section and its defaults
func TestOCROptions(t *testing.T) {
	f, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got, err := f.OCROptions()
	if err != nil {
		t.Fatalf("OCROptions: %v", err)
	}
	if d := cmp.Diff(ocr.DefaultOptions(), got); d != "" {
		t.Errorf("default OCROptions (-want +got):\n%s", d)
	}

	f, err = Parse([]byte("ocr:\n  language: eng+fra\n  page_seg_mode: \"7\"\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got, err = f.OCROptions()
	if err != nil {
		t.Fatalf("OCROptions: %v", err)
	}
	want := ocr.Options{Language: "eng+fra", PageSegMode: ocr.PSM_SINGLE_LINE}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("OCROptions (-want +got):\n%s", d)
	}

	f.OCR.PageSegMode = ""
	if got, _ := f.OCROptions(); got.PageSegMode != ocr.PSM_SPARSE_TEXT {
		t.Errorf("expected sparse_text for an empty mode, got %s", got.PageSegMode)
	}
}

func TestLoadAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagesect.yaml")

	f := Default()
	f.Matcher.MaxOffset = 12.5
	f.Log.Format = "json"
	if err := Save(path, f); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d := cmp.Diff(f, loaded); d != "" {
		t.Errorf("loaded (-want +got):\n%s", d)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	f := Default()
	f.Log = Log{Level: "warn", Format: "json"}

	logger := f.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "page", 3)

	out := strings.TrimSpace(buf.String())
	if strings.Contains(out, "hidden") {
		t.Errorf("expected info to be filtered, got %s", out)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", out, err)
	}
	if rec["msg"] != "shown" || rec["page"] != float64(3) {
		t.Errorf("unexpected record %v", rec)
	}

	buf.Reset()
	Default().Logger(&buf).Info("text")
	if !strings.Contains(buf.String(), "msg=text") {
		t.Errorf("expected text handler output, got %q", buf.String())
	}
}

func TestApply(t *testing.T) {
	f := Default()
	f.Matcher.AcceptThreshold = 1.5
	_, _, err := f.Apply(pagesect.Open("unused.pdf")).Analyze(context.Background())
	if !errors.Is(err, match.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig from the applied config, got %v", err)
	}
}
