package pagesect

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tsawler/pagesect/docmodel"
	"github.com/tsawler/pagesect/match"
	"github.com/tsawler/pagesect/section"
)

// Analyzer provides a fluent interface for segmenting and matching the
// pages of a document. Each configuration method returns a new Analyzer
// instance, making it safe for concurrent use and allowing method chaining.
type Analyzer struct {
	// Source: a file opened by Analyze, or a caller-owned document model
	filename string
	source   docmodel.Source

	// Configuration
	options AnalyzeOptions
}

// clone creates a shallow copy of the Analyzer with a deep copy of options.
func (a *Analyzer) clone() *Analyzer {
	return &Analyzer{
		filename: a.filename,
		source:   a.source,
		options:  a.options.clone(),
	}
}

// Pages restricts analysis to specific pages (1-indexed). Duplicates are
// ignored. Lookahead still counts page numbers, not selected pages.
func (a *Analyzer) Pages(pages ...int) *Analyzer {
	newA := a.clone()
	newA.options.pages = append(newA.options.pages, pages...)
	return newA
}

// PageRange restricts analysis to pages start through end inclusive
// (1-indexed).
func (a *Analyzer) PageRange(start, end int) *Analyzer {
	newA := a.clone()
	for i := start; i <= end; i++ {
		newA.options.pages = append(newA.options.pages, i)
	}
	return newA
}

// Lookahead sets how many following pages a group searches.
func (a *Analyzer) Lookahead(pages int) *Analyzer {
	newA := a.clone()
	newA.options.match.Lookahead = pages
	return newA
}

// Threshold sets the minimum score for a section to join a group.
func (a *Analyzer) Threshold(score float64) *Analyzer {
	newA := a.clone()
	newA.options.match.AcceptThreshold = score
	return newA
}

// MaxOffset sets the largest per-axis anchor distance, in points, between
// matching sections.
func (a *Analyzer) MaxOffset(points float64) *Analyzer {
	newA := a.clone()
	newA.options.match.MaxOffset = points
	return newA
}

// MaxFontSizeRatio sets the largest relative font size difference between
// matching text draws.
func (a *Analyzer) MaxFontSizeRatio(ratio float64) *Analyzer {
	newA := a.clone()
	newA.options.match.MaxFontSizeRatio = ratio
	return newA
}

// WithConfig replaces every matcher setting at once.
func (a *Analyzer) WithConfig(config match.Config) *Analyzer {
	newA := a.clone()
	newA.options.match = config
	return newA
}

// Workers limits how many pages are parsed at the same time. Zero or less
// means GOMAXPROCS.
func (a *Analyzer) Workers(n int) *Analyzer {
	newA := a.clone()
	newA.options.workers = n
	return newA
}

// Dedup gives identical XObjects stored under different object numbers the
// same resource identifier, so they can match across pages. It applies to
// files opened by Analyze; a Source passed to FromSource decides its own
// identifiers.
func (a *Analyzer) Dedup() *Analyzer {
	newA := a.clone()
	newA.options.dedup = true
	return newA
}

// Logger sets the logger used by every stage. The default is slog.Default().
func (a *Analyzer) Logger(logger *slog.Logger) *Analyzer {
	newA := a.clone()
	newA.options.logger = logger
	return newA
}

func (a *Analyzer) logger() *slog.Logger {
	if a.options.logger != nil {
		return a.options.logger
	}
	return slog.Default()
}

// Analyze parses the selected pages in parallel, then groups recurring
// sections in one sequential pass. A page the document model cannot supply
// becomes a PageUnavailable warning and an empty page; it does not stop
// the others. An invalid matcher configuration is rejected before any page
// is read.
//
// Example:
//
//	doc, warnings, err := pagesect.Open("document.pdf").Lookahead(3).Analyze(ctx)
func (a *Analyzer) Analyze(ctx context.Context) (*Document, []Warning, error) {
	logger := a.logger()

	matcher, err := match.NewMatcher(a.options.match, match.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}

	src, release, err := a.openSource()
	if err != nil {
		return nil, nil, err
	}
	defer release()

	indices, err := a.resolvePages(src)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	results, err := a.parsePages(ctx, src, indices)
	if err != nil {
		return nil, nil, err
	}

	c := section.NewCollection()
	for _, r := range results {
		if err := c.AddPage(r); err != nil {
			return nil, nil, fmt.Errorf("failed to add page %d: %w", r.Page, err)
		}
	}

	stats := matcher.Match(c)
	logger.Info("pagesect: analysis complete",
		"pages", c.PageCount(),
		"sections", len(c.Sections()),
		"groups", stats.Groups,
		"recurring", stats.Recurring,
		"warnings", len(c.Warnings()),
		"elapsed", time.Since(start))

	return newDocument(c, stats), c.Warnings(), nil
}

// openSource returns the document model and a function that releases it
// if Analyze opened it.
func (a *Analyzer) openSource() (docmodel.Source, func(), error) {
	if a.source != nil {
		return a.source, func() {}, nil
	}
	if a.filename == "" {
		return nil, nil, fmt.Errorf("no filename specified")
	}

	opts := []docmodel.PDFOption{docmodel.WithLogger(a.logger())}
	if a.options.dedup {
		opts = append(opts, docmodel.WithContentDedup())
	}
	pdf, err := docmodel.OpenPDF(a.filename, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return pdf, func() { _ = pdf.Close() }, nil
}

// resolvePages converts the 1-indexed selection into sorted, unique
// 0-indexed page indices.
func (a *Analyzer) resolvePages(src docmodel.Source) ([]int, error) {
	pageCount, err := src.PageCount()
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}

	// If no pages specified, use all pages
	if len(a.options.pages) == 0 {
		pageIndices := make([]int, pageCount)
		for i := 0; i < pageCount; i++ {
			pageIndices[i] = i
		}
		return pageIndices, nil
	}

	seen := make(map[int]bool)
	var pageIndices []int
	for _, p := range a.options.pages {
		if p < 1 || p > pageCount {
			return nil, fmt.Errorf("page %d out of range (1-%d)", p, pageCount)
		}
		zeroIndexed := p - 1
		if !seen[zeroIndexed] {
			seen[zeroIndexed] = true
			pageIndices = append(pageIndices, zeroIndexed)
		}
	}

	sort.Ints(pageIndices)
	return pageIndices, nil
}

// parsePages segments every page on a bounded pool of goroutines. Results
// are indexed like indices, so their order does not depend on scheduling.
func (a *Analyzer) parsePages(ctx context.Context, src docmodel.Source, indices []int) ([]*section.PageResult, error) {
	logger := a.logger()
	parser := section.NewParser(section.WithLogger(logger))
	results := make([]*section.PageResult, len(indices))

	workers := a.options.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, index := range indices {
		i, index := i, index
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			page, err := src.Page(index)
			if err != nil {
				logger.Warn("pagesect: page unavailable", "page", index, "error", err)
				results[i] = &section.PageResult{
					Page: index,
					Warnings: []section.Warning{{
						Page:    index,
						Index:   -1,
						Code:    section.PageUnavailable,
						Message: err.Error(),
					}},
				}
				return nil
			}

			result := parser.Parse(index, page.Operations, page.Resolve)
			if len(page.Warnings) > 0 {
				result.Warnings = append(append([]section.Warning(nil), page.Warnings...), result.Warnings...)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
