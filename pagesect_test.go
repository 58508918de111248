package pagesect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tsawler/pagesect/contentstream"
	"github.com/tsawler/pagesect/docmodel"
	"github.com/tsawler/pagesect/internal/pdftest"
	"github.com/tsawler/pagesect/match"
	"github.com/tsawler/pagesect/model"
	"github.com/tsawler/pagesect/ocr"
	"github.com/tsawler/pagesect/section"
)

const (
	header = "BT /F1 12 Tf 72 750 Td (ACME Corp) Tj ET\n"
	stamp  = "q 50 0 0 50 500 20 cm /Im1 Do Q\n"
)

var bodies = []string{"Alpha report", "Quarterly xyz", "Zebra 9000", "Mnop"}

// body places each page's text 60 points lower than the previous page's
// so bodies never fall within the matching offset of each other.
func body(i int) string {
	return fmt.Sprintf("BT /F1 10 Tf 72 %d Td (%s) Tj ET\n", 600-60*i, bodies[i%len(bodies)])
}

func pageContent(i int) string {
	return header + body(i) + stamp
}

var letter = model.BBox{Width: 612, Height: 792}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func memoryDoc(t *testing.T, n int) *docmodel.Memory {
	t.Helper()
	m := docmodel.NewMemory()
	for i := 0; i < n; i++ {
		if _, err := m.AddPage(letter, []byte(pageContent(i))); err != nil {
			t.Fatalf("AddPage %d: %v", i, err)
		}
	}
	m.SetResource("Im1", "logo")
	return m
}

func analyze(t *testing.T, a *Analyzer) (*Document, []Warning) {
	t.Helper()
	doc, warnings, err := a.Logger(quietLogger()).Analyze(context.Background())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return doc, warnings
}

// groupPages returns the page of every member of a group in join order.
func groupPages(doc *Document, g *section.Group) []int {
	var pages []int
	for _, s := range doc.Members(g.ID) {
		pages = append(pages, s.Page)
	}
	return pages
}

// TestAnalyzeGroupsRecurringSections tests that a header and a stamp drawn
// on every page each form one group while page bodies stay alone.
func TestAnalyzeGroupsRecurringSections(t *testing.T) {
	doc, warnings := analyze(t, FromSource(memoryDoc(t, 4)))
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got:\n%s", FormatWarnings(warnings))
	}
	if doc.PageCount() != 4 {
		t.Fatalf("expected 4 pages, got %d", doc.PageCount())
	}

	recurring := doc.RecurringGroups()
	if len(recurring) != 2 {
		t.Fatalf("expected 2 recurring groups, got %d", len(recurring))
	}
	for _, g := range recurring {
		if d := cmp.Diff([]int{0, 1, 2, 3}, groupPages(doc, g)); d != "" {
			t.Errorf("group %d pages (-want +got):\n%s", g.ID, d)
		}
	}

	header := doc.Section(recurring[0].Master)
	if header.Kind != section.Text || header.DisplayText() != "ACME Corp" {
		t.Errorf("expected header text group first, got %s %q", header.Kind, header.DisplayText())
	}
	stamp := doc.Section(recurring[1].Master)
	if stamp.Kind != section.Object || stamp.Object.Resource != "logo" {
		t.Errorf("expected logo object group second, got %s", stamp.Kind)
	}

	stats := doc.Stats()
	if stats.Recurring != 2 {
		t.Errorf("expected 2 recurring in stats, got %d", stats.Recurring)
	}
	if stats.Assigned != 6 {
		t.Errorf("expected 6 assigned sections, got %d", stats.Assigned)
	}
	// 4 bodies, plus the header and stamp groups
	if stats.Groups != 6 {
		t.Errorf("expected 6 groups, got %d", stats.Groups)
	}

	for _, page := range doc.Pages() {
		for _, s := range doc.Sections(page) {
			g, ok := doc.GroupOf(s.ID)
			if s.Matchable() != ok {
				t.Errorf("section %d (%s): grouped=%v", s.ID, s.Kind, ok)
			}
			if ok && !containsSection(g.Members, s.ID) {
				t.Errorf("section %d not among members of group %d", s.ID, g.ID)
			}
		}
	}
}

func containsSection(ids []section.SectionID, id section.SectionID) bool {
	for _, m := range ids {
		if m == id {
			return true
		}
	}
	return false
}

// TestAnalyzeLosslessPartition tests that each page's sections add up to
// the page's original operations.
func TestAnalyzeLosslessPartition(t *testing.T) {
	m := memoryDoc(t, 3)
	doc, _ := analyze(t, FromSource(m).Workers(2))

	for _, page := range doc.Pages() {
		want, err := contentstream.Parse([]byte(pageContent(page)))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if d := cmp.Diff(want, doc.Reconstruct(page)); d != "" {
			t.Errorf("page %d reconstruct (-want +got):\n%s", page, d)
		}
	}
}

// failingSource fails to supply some pages and counts page loads.
type failingSource struct {
	*docmodel.Memory
	fail  map[int]bool
	mu    sync.Mutex
	loads int
}

func (f *failingSource) Page(index int) (*docmodel.Page, error) {
	f.mu.Lock()
	f.loads++
	f.mu.Unlock()
	if f.fail[index] {
		return nil, errors.New("content stream is corrupt")
	}
	return f.Memory.Page(index)
}

// TestAnalyzePageUnavailable tests that a page that cannot be loaded is
// reported and left empty without stopping the others.
func TestAnalyzePageUnavailable(t *testing.T) {
	src := &failingSource{Memory: memoryDoc(t, 3), fail: map[int]bool{1: true}}
	doc, warnings := analyze(t, FromSource(src))

	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got:\n%s", FormatWarnings(warnings))
	}
	w := warnings[0]
	if w.Code != section.PageUnavailable || w.Page != 1 || w.Index != -1 {
		t.Errorf("unexpected warning %v", w)
	}
	if !strings.Contains(w.Message, "corrupt") {
		t.Errorf("expected the load error in the message, got %q", w.Message)
	}

	if doc.PageCount() != 3 {
		t.Errorf("expected 3 pages, got %d", doc.PageCount())
	}
	if n := len(doc.Sections(1)); n != 0 {
		t.Errorf("expected no sections on page 1, got %d", n)
	}
	for _, g := range doc.RecurringGroups() {
		if d := cmp.Diff([]int{0, 2}, groupPages(doc, g)); d != "" {
			t.Errorf("group %d pages (-want +got):\n%s", g.ID, d)
		}
	}
}

// TestAnalyzeInvalidConfig tests that bad matcher settings fail before any
// page is loaded.
func TestAnalyzeInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		a    func(*Analyzer) *Analyzer
	}{
		{"zero threshold", func(a *Analyzer) *Analyzer { return a.Threshold(0) }},
		{"threshold above one", func(a *Analyzer) *Analyzer { return a.Threshold(1.5) }},
		{"zero lookahead", func(a *Analyzer) *Analyzer { return a.Lookahead(0) }},
		{"negative offset", func(a *Analyzer) *Analyzer { return a.MaxOffset(-1) }},
		{"font ratio of one", func(a *Analyzer) *Analyzer { return a.MaxFontSizeRatio(1) }},
		{"empty config", func(a *Analyzer) *Analyzer { return a.WithConfig(match.Config{}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &failingSource{Memory: memoryDoc(t, 2)}
			_, _, err := tt.a(FromSource(src)).Analyze(context.Background())
			if !errors.Is(err, match.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if src.loads != 0 {
				t.Errorf("expected no page loads, got %d", src.loads)
			}
		})
	}
}

// TestAnalyzePages tests page selection.
func TestAnalyzePages(t *testing.T) {
	m := memoryDoc(t, 4)

	doc, _ := analyze(t, FromSource(m).Pages(4, 1, 1))
	if d := cmp.Diff([]int{0, 3}, doc.Pages()); d != "" {
		t.Errorf("pages (-want +got):\n%s", d)
	}

	doc, _ = analyze(t, FromSource(m).PageRange(2, 3))
	if d := cmp.Diff([]int{1, 2}, doc.Pages()); d != "" {
		t.Errorf("page range (-want +got):\n%s", d)
	}

	_, _, err := FromSource(m).Pages(5).Analyze(context.Background())
	if err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Errorf("expected out of range error, got %v", err)
	}
}

// TestAnalyzeLookahead tests that a group does not reach past the
// lookahead window of the page that extends it.
func TestAnalyzeLookahead(t *testing.T) {
	m := docmodel.NewMemory()
	contents := []string{header, body(0), body(1), header}
	for _, c := range contents {
		if _, err := m.AddPage(letter, []byte(c)); err != nil {
			t.Fatal(err)
		}
	}

	doc, _ := analyze(t, FromSource(m).Lookahead(2))
	if n := len(doc.RecurringGroups()); n != 0 {
		t.Errorf("expected no recurring groups with lookahead 2, got %d", n)
	}

	doc, _ = analyze(t, FromSource(m).Lookahead(3))
	if n := len(doc.RecurringGroups()); n != 1 {
		t.Errorf("expected 1 recurring group with lookahead 3, got %d", n)
	}
}

// TestAnalyzeCancelled tests that a cancelled context stops analysis.
func TestAnalyzeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := FromSource(memoryDoc(t, 3)).Logger(quietLogger()).Analyze(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// TestAnalyzerImmutable tests that chain methods never modify the
// receiver.
func TestAnalyzerImmutable(t *testing.T) {
	base := Open("doc.pdf").Pages(1)
	derived := base.Pages(2).Lookahead(9).Workers(3).Dedup()

	if d := cmp.Diff([]int{1}, base.options.pages); d != "" {
		t.Errorf("base pages changed (-want +got):\n%s", d)
	}
	if base.options.match.Lookahead != match.DefaultConfig().Lookahead {
		t.Errorf("base lookahead changed to %d", base.options.match.Lookahead)
	}
	if base.options.workers != 0 || base.options.dedup {
		t.Errorf("base options changed: %+v", base.options)
	}

	if d := cmp.Diff([]int{1, 2}, derived.options.pages); d != "" {
		t.Errorf("derived pages (-want +got):\n%s", d)
	}
	if derived.options.match.Lookahead != 9 || derived.options.workers != 3 || !derived.options.dedup {
		t.Errorf("derived options not applied: %+v", derived.options)
	}
}

// TestAnalyzeNoFilename tests an Analyzer with nothing to read.
func TestAnalyzeNoFilename(t *testing.T) {
	_, _, err := Open("").Analyze(context.Background())
	if err == nil {
		t.Error("expected error for empty filename")
	}

	_, _, err = Open(filepath.Join(t.TempDir(), "missing.pdf")).Analyze(context.Background())
	if err == nil {
		t.Error("expected error for missing file")
	}
}

// TestSetGroupKeepAndCommit tests dropping a recurring group and handing
// the edited pages back to the document model.
func TestSetGroupKeepAndCommit(t *testing.T) {
	m := memoryDoc(t, 3)
	doc, _ := analyze(t, FromSource(m))

	if n := len(doc.Edited()); n != 0 {
		t.Fatalf("expected no edited pages, got %d", n)
	}

	header := doc.RecurringGroups()[0]
	if err := doc.SetGroupKeep(header.ID, false); err != nil {
		t.Fatalf("SetGroupKeep: %v", err)
	}
	if d := cmp.Diff([]int{0, 1, 2}, doc.Edited()); d != "" {
		t.Errorf("edited (-want +got):\n%s", d)
	}

	data, err := doc.Encode(0)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if bytes.Contains(data, []byte("ACME")) {
		t.Errorf("expected header to be dropped, got:\n%s", data)
	}
	if !bytes.Contains(data, []byte("Alpha report")) {
		t.Errorf("expected body to be kept, got:\n%s", data)
	}

	if err := doc.Commit(m); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if n := len(doc.Edited()); n != 0 {
		t.Errorf("expected no edited pages after commit, got %d", n)
	}
	for i := 0; i < 3; i++ {
		content, err := m.Content(i)
		if err != nil {
			t.Fatalf("Content %d: %v", i, err)
		}
		if bytes.Contains(content, []byte("ACME")) {
			t.Errorf("page %d still draws the header:\n%s", i, content)
		}
	}

	// Restoring one occurrence only touches its own page.
	if err := doc.SetKeep(header.Members[1], true); err != nil {
		t.Fatalf("SetKeep: %v", err)
	}
	if d := cmp.Diff([]int{1}, doc.Edited()); d != "" {
		t.Errorf("edited after SetKeep (-want +got):\n%s", d)
	}
	if err := doc.Commit(m); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	content, _ := m.Content(1)
	if !bytes.Contains(content, []byte("ACME")) {
		t.Errorf("expected header restored on page 1, got:\n%s", content)
	}

	if err := doc.SetKeep(9999, false); !errors.Is(err, section.ErrUnknownSection) {
		t.Errorf("expected ErrUnknownSection, got %v", err)
	}
	if err := doc.SetGroupKeep(9999, false); !errors.Is(err, section.ErrUnknownGroup) {
		t.Errorf("expected ErrUnknownGroup, got %v", err)
	}
}

type failingSink struct{ failPage int }

func (s failingSink) SetPageContent(index int, ops []contentstream.Operation) error {
	if index == s.failPage {
		return errors.New("read-only")
	}
	return nil
}

// TestCommitFailure tests that pages that failed to commit stay pending.
func TestCommitFailure(t *testing.T) {
	doc, _ := analyze(t, FromSource(memoryDoc(t, 3)))
	if err := doc.SetGroupKeep(doc.RecurringGroups()[0].ID, false); err != nil {
		t.Fatal(err)
	}

	if err := doc.Commit(failingSink{failPage: 1}); err == nil {
		t.Fatal("expected commit error")
	}
	if d := cmp.Diff([]int{1, 2}, doc.Edited()); d != "" {
		t.Errorf("pending pages (-want +got):\n%s", d)
	}
}

// TestLabelObjects tests that each image resource is labeled once and the
// label reaches every section drawing it.
func TestLabelObjects(t *testing.T) {
	m := memoryDoc(t, 3)
	m.SetImage("logo", image.NewGray(image.Rect(0, 0, 4, 4)))
	doc, _ := analyze(t, FromSource(m))

	calls := 0
	labeler := ocr.LabelerFunc(func(img image.Image) (string, error) {
		calls++
		return "ACME", nil
	})

	warnings, err := doc.LabelObjects(context.Background(), m, labeler)
	if err != nil {
		t.Fatalf("LabelObjects: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got:\n%s", FormatWarnings(warnings))
	}
	if calls != 1 {
		t.Errorf("expected 1 labeler call, got %d", calls)
	}

	labeled := 0
	for _, s := range doc.Collection().Sections() {
		if s.Kind == section.Object {
			if s.Object.Label != "ACME" {
				t.Errorf("section %d: expected label ACME, got %q", s.ID, s.Object.Label)
			}
			labeled++
		}
	}
	if labeled != 3 {
		t.Errorf("expected 3 labeled sections, got %d", labeled)
	}
}

// TestLabelObjectsFailures tests that unlabeled objects become warnings.
func TestLabelObjectsFailures(t *testing.T) {
	m := memoryDoc(t, 2)
	doc, _ := analyze(t, FromSource(m))

	warnings, err := doc.LabelObjects(context.Background(), m, ocr.LabelerFunc(func(image.Image) (string, error) {
		return "", ocr.ErrOCRNotEnabled
	}))
	if err != nil {
		t.Fatalf("LabelObjects: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got:\n%s", FormatWarnings(warnings))
	}
	for _, w := range warnings {
		if w.Code != section.LabelFailed {
			t.Errorf("expected %s, got %s", section.LabelFailed, w.Code)
		}
		if !strings.Contains(w.Message, "logo") {
			t.Errorf("expected resource in message, got %q", w.Message)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := doc.LabelObjects(ctx, m, ocr.LabelerFunc(nil)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func writePDF(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

// TestAnalyzeFile tests the full pipeline over a PDF file.
func TestAnalyzeFile(t *testing.T) {
	contents := make([]string, 3)
	for i := range contents {
		contents[i] = pageContent(i)
	}
	path := writePDF(t, pdftest.Document(contents...))

	for _, dedup := range []bool{false, true} {
		a := Open(path)
		if dedup {
			a = a.Dedup()
		}
		doc, warnings := analyze(t, a)
		if len(warnings) != 0 {
			t.Errorf("dedup=%v: unexpected warnings:\n%s", dedup, FormatWarnings(warnings))
		}
		recurring := doc.RecurringGroups()
		if len(recurring) != 2 {
			t.Fatalf("dedup=%v: expected 2 recurring groups, got %d", dedup, len(recurring))
		}
		stamp := doc.Section(recurring[1].Master)
		if stamp.Kind != section.Object {
			t.Fatalf("dedup=%v: expected object group, got %s", dedup, stamp.Kind)
		}
		wantPrefix := fmt.Sprintf("%d 0 R", pdftest.ImageObj)
		if dedup {
			wantPrefix = "xobj:"
		}
		if !strings.HasPrefix(string(stamp.Object.Resource), wantPrefix) {
			t.Errorf("dedup=%v: expected resource %s..., got %q", dedup, wantPrefix, stamp.Object.Resource)
		}
	}
}

// TestAnalyzeFileUnparsedContent tests that a malformed token keeps the
// page: the sections before it are segmented and the rest is carried
// through verbatim.
func TestAnalyzeFileUnparsedContent(t *testing.T) {
	contents := make([]string, 3)
	for i := range contents {
		contents[i] = pageContent(i)
	}
	contents[1] += "\n[1 foo] d 0 0 m 10 10 l S"
	path := writePDF(t, pdftest.Document(contents...))

	doc, warnings := analyze(t, Open(path))
	if len(warnings) != 1 || warnings[0].Code != section.UnparsedContent || warnings[0].Page != 1 {
		t.Fatalf("expected one unparsed-content warning on page 1, got:\n%s", FormatWarnings(warnings))
	}
	if n := len(doc.RecurringGroups()); n != 2 {
		t.Errorf("expected 2 recurring groups, got %d", n)
	}

	out, err := doc.Encode(1)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Contains(out, []byte("[1 foo] d 0 0 m 10 10 l S")) {
		t.Errorf("expected the unparsed tail in the output, got %q", out)
	}
}

// TestMust tests the panicking helpers.
func TestMust(t *testing.T) {
	if got := Must(3, nil); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected MustAnalyze to panic")
		}
	}()
	MustAnalyze(nil, nil, errors.New("boom"))
}
