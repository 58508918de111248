//go:build !ocr

package main

import (
	"strings"
	"testing"
)

// TestRunOCRDisabled tests that OCR settings are accepted and the run fails
// only because OCR support is not compiled in
func TestRunOCRDisabled(t *testing.T) {
	path := samplePDF(t, 2)
	code, _, errOut := runCLI("-ocr", "-ocr-lang", "eng+deu", "-ocr-psm", "single_word", path)
	if code != 1 {
		t.Errorf("expected exit 1, got %d: %s", code, errOut)
	}
	if !strings.Contains(errOut, "OCR support not enabled") {
		t.Errorf("expected OCR disabled message, got %q", errOut)
	}
}
