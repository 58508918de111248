// Package pagesect splits the content streams of PDF pages into sections
// and groups the sections that recur across pages, such as headers,
// footers, stamps and watermarks, so an edit to one occurrence can be
// applied to all of them.
//
// Basic usage:
//
//	doc, warnings, err := pagesect.Open("document.pdf").Analyze(ctx)
//	if err != nil {
//	    // handle error
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", pagesect.FormatWarnings(warnings))
//	}
//	for _, g := range doc.RecurringGroups() {
//	    fmt.Println(g.ID, len(g.Members))
//	}
//
// With options:
//
//	doc, _, err := pagesect.Open("report.pdf").
//	    Pages(1, 2, 3).
//	    Lookahead(3).
//	    Threshold(0.9).
//	    Analyze(ctx)
//
// The section, match and docmodel packages are available for lower-level
// use.
package pagesect

import (
	"github.com/tsawler/pagesect/docmodel"
	"github.com/tsawler/pagesect/section"
)

// Warning is a recoverable problem met while analyzing a document.
type Warning = section.Warning

// FormatWarnings renders warnings one per line.
func FormatWarnings(warnings []Warning) string {
	return section.FormatWarnings(warnings)
}

// Open returns an Analyzer for a PDF file. The file is opened by Analyze
// and closed before it returns.
//
// Example:
//
//	doc, warnings, err := pagesect.Open("document.pdf").Analyze(ctx)
func Open(filename string) *Analyzer {
	return &Analyzer{
		filename: filename,
		options:  defaultOptions(),
	}
}

// FromSource returns an Analyzer over an already open document model.
// The caller keeps ownership of src, which must stay usable for as long as
// the resulting Document is committed back or labeled.
//
// Example:
//
//	src, err := docmodel.OpenPDF("document.pdf")
//	if err != nil {
//	    // handle error
//	}
//	defer src.Close()
//	doc, warnings, err := pagesect.FromSource(src).Analyze(ctx)
func FromSource(src docmodel.Source) *Analyzer {
	return &Analyzer{
		source:  src,
		options: defaultOptions(),
	}
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// MustAnalyze is a helper that wraps a call to Analyze and panics if the
// error is non-nil. It discards warnings and returns just the document.
//
// Example:
//
//	doc := pagesect.MustAnalyze(pagesect.Open("document.pdf").Analyze(ctx))
func MustAnalyze(doc *Document, _ []Warning, err error) *Document {
	if err != nil {
		panic(err)
	}
	return doc
}
