// Command pagesect splits the pages of a PDF into sections, groups the
// sections that recur across pages and reports or removes them.
//
// Usage:
//
//	pagesect [flags] file.pdf
//
// Examples:
//
//	pagesect -html report.html scan.pdf
//	pagesect -drop-group 0 -drop-group 2 -out pages/ scan.pdf
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tsawler/pagesect"
	"github.com/tsawler/pagesect/config"
	"github.com/tsawler/pagesect/docmodel"
	"github.com/tsawler/pagesect/ocr"
	"github.com/tsawler/pagesect/overlay"
	"github.com/tsawler/pagesect/report"
	"github.com/tsawler/pagesect/section"
)

// intSlice implements flag.Value for repeatable integer flags.
type intSlice []int

func (s *intSlice) String() string {
	parts := make([]string, len(*s))
	for i, v := range *s {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}

func (s *intSlice) Set(val string) error {
	n, err := strconv.Atoi(val)
	if err != nil {
		return err
	}
	*s = append(*s, n)
	return nil
}

// errUsage marks errors that exit with status 2.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath string
	pages      string
	dropGroups intSlice
	outDir     string
	htmlPath   string
	overlayDir string
	thumb      int
	ocr        bool
	verbose    bool
	path       string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pagesect", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.configPath, "config", "", "Path to a YAML configuration file")
	lookahead := fs.Int("lookahead", 0, "Pages searched ahead for group members (default from config: 5)")
	threshold := fs.Float64("threshold", 0, "Minimum score to join a group (default from config: 0.8)")
	maxOffset := fs.Float64("max-offset", 0, "Largest anchor offset in points (default from config: 20)")
	maxFontRatio := fs.Float64("max-font-ratio", 0, "Largest relative font size difference (default from config: 0.1)")
	workers := fs.Int("workers", 0, "Pages parsed in parallel (0=GOMAXPROCS)")
	dedup := fs.Bool("dedup", false, "Identify XObjects by content instead of object number")
	fs.StringVar(&opts.pages, "pages", "", "Comma-separated pages to analyze, e.g. 1,3,5 (default: all)")
	fs.Var(&opts.dropGroups, "drop-group", "Group ID to remove from every page (repeatable)")
	fs.StringVar(&opts.outDir, "out", "", "Directory to write reconstructed content streams to")
	fs.StringVar(&opts.htmlPath, "html", "", "Path to write an HTML report to")
	fs.StringVar(&opts.overlayDir, "overlay", "", "Directory to write section box images to")
	fs.IntVar(&opts.thumb, "thumb", 0, "Scale overlay images to fit this many pixels (0=full size)")
	fs.BoolVar(&opts.ocr, "ocr", false, "Label image objects with OCR (requires -tags ocr)")
	ocrLang := fs.String("ocr-lang", "", "OCR languages joined by '+' (default from config: eng)")
	ocrPSM := fs.String("ocr-psm", "", "OCR page segmentation mode name or number (default from config: sparse_text)")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose logging and warning output")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: pagesect [flags] file.pdf")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	opts.path = fs.Arg(0)

	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			fmt.Fprintf(stderr, "pagesect: %v\n", err)
			return 2
		}
		cfg = loaded
	}

	// Flags given on the command line override the file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "lookahead":
			cfg.Matcher.Lookahead = *lookahead
		case "threshold":
			cfg.Matcher.AcceptThreshold = *threshold
		case "max-offset":
			cfg.Matcher.MaxOffset = *maxOffset
		case "max-font-ratio":
			cfg.Matcher.MaxFontSizeRatio = *maxFontRatio
		case "workers":
			cfg.Parser.Workers = *workers
		case "dedup":
			cfg.Parser.Dedup = *dedup
		case "ocr-lang":
			cfg.OCR.Language = *ocrLang
		case "ocr-psm":
			cfg.OCR.PageSegMode = *ocrPSM
		case "v":
			if opts.verbose {
				cfg.Log.Level = "debug"
			}
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "pagesect: %v\n", err)
		return 2
	}

	logger := cfg.Logger(stderr)
	if err := analyze(ctx, cfg, opts, logger, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "pagesect: %v\n", err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

func analyze(ctx context.Context, cfg *config.File, opts options, logger *slog.Logger, stdout, stderr io.Writer) error {
	pdfOpts := []docmodel.PDFOption{docmodel.WithLogger(logger)}
	if cfg.Parser.Dedup {
		pdfOpts = append(pdfOpts, docmodel.WithContentDedup())
	}
	src, err := docmodel.OpenPDF(opts.path, pdfOpts...)
	if err != nil {
		return err
	}
	defer src.Close()

	a := cfg.Apply(pagesect.FromSource(src)).Logger(logger)
	if opts.pages != "" {
		pages, err := parsePages(opts.pages)
		if err != nil {
			return err
		}
		a = a.Pages(pages...)
	}

	doc, warnings, err := a.Analyze(ctx)
	if err != nil {
		return err
	}

	if opts.ocr {
		ocrOpts, err := cfg.OCROptions()
		if err != nil {
			return err
		}
		client, err := ocr.NewWithOptions(ocrOpts)
		if err != nil {
			return err
		}
		defer client.Close()
		labelWarnings, err := doc.LabelObjects(ctx, src, client)
		if err != nil {
			return err
		}
		warnings = append(warnings, labelWarnings...)
	}

	if len(warnings) > 0 {
		if opts.verbose {
			fmt.Fprint(stderr, pagesect.FormatWarnings(warnings))
		} else {
			fmt.Fprintf(stderr, "%d warnings (use -v to list them)\n", len(warnings))
		}
	}

	for _, id := range opts.dropGroups {
		if err := doc.SetGroupKeep(section.GroupID(id), false); err != nil {
			return fmt.Errorf("%w: -drop-group %d: %v", errUsage, id, err)
		}
	}

	if opts.outDir != "" {
		if err := writeContents(doc, opts.outDir); err != nil {
			return err
		}
	}
	if opts.htmlPath != "" {
		if err := writeReport(doc, opts.htmlPath, filepath.Base(opts.path)); err != nil {
			return err
		}
	}
	if opts.overlayDir != "" {
		if err := writeOverlays(doc, src, opts.overlayDir, opts.thumb); err != nil {
			return err
		}
	}

	printSummary(stdout, doc)
	return nil
}

func parsePages(s string) ([]int, error) {
	var pages []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid page %q", errUsage, part)
		}
		pages = append(pages, n)
	}
	return pages, nil
}

// writeContents writes one reconstructed content stream per page, named by
// 1-indexed page number.
func writeContents(doc *pagesect.Document, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, page := range doc.Pages() {
		data, err := doc.Encode(page)
		if err != nil {
			return err
		}
		name := filepath.Join(dir, fmt.Sprintf("page-%03d.content", page+1))
		if err := os.WriteFile(name, data, 0644); err != nil {
			return err
		}
	}
	return nil
}

func writeReport(doc *pagesect.Document, path, title string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.Write(f, doc, report.Options{Title: title}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeOverlays draws each page's section boxes on a blank page, since
// rendering page content is left to the caller's rasterizer.
func writeOverlays(doc *pagesect.Document, src docmodel.Source, dir string, thumb int) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	opts := overlay.DefaultOptions()
	for _, index := range doc.Pages() {
		page, err := src.Page(index)
		if err != nil {
			continue
		}
		img := overlay.Blank(page.MediaBox, 72)
		overlay.Draw(img, page.MediaBox, doc.Sections(index), opts)

		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("page-%03d.png", index+1)))
		if err != nil {
			return err
		}
		if err := png.Encode(f, overlay.Thumbnail(img, thumb, thumb)); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(w io.Writer, doc *pagesect.Document) {
	stats := doc.Stats()
	fmt.Fprintf(w, "%d pages, %d sections, %d recurring groups\n",
		doc.PageCount(), len(doc.Collection().Sections()), stats.Recurring)

	for _, g := range doc.RecurringGroups() {
		master := doc.Section(g.Master)
		pages := make([]string, 0, len(g.Members))
		for _, s := range doc.Members(g.ID) {
			pages = append(pages, strconv.Itoa(s.Page+1))
		}
		fmt.Fprintf(w, "group %d: %s %s on pages %s\n",
			g.ID, master.Kind, describe(master), strings.Join(pages, ","))
	}
}

func describe(s *section.Section) string {
	switch s.Kind {
	case section.Text:
		return strconv.Quote(strings.ReplaceAll(s.DisplayText(), "\n", " "))
	case section.Object:
		if s.Object.Label != "" {
			return fmt.Sprintf("/%s %q", s.Object.Name, s.Object.Label)
		}
		return "/" + s.Object.Name
	}
	return ""
}
