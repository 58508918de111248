package pagesect

import (
	"log/slog"

	"github.com/tsawler/pagesect/match"
)

// AnalyzeOptions holds configuration for document analysis.
type AnalyzeOptions struct {
	// Page selection (1-indexed in API, stored as-is)
	pages []int

	// Matcher tuning
	match match.Config

	// Processing options
	workers int  // parallel page parsers, 0 means GOMAXPROCS
	dedup   bool // content-addressed XObject identifiers, file sources only

	logger *slog.Logger
}

// defaultOptions returns the default analysis options.
func defaultOptions() AnalyzeOptions {
	return AnalyzeOptions{
		pages:   nil, // nil means all pages
		match:   match.DefaultConfig(),
		workers: 0,
		dedup:   false,
		logger:  nil,
	}
}

// clone creates a deep copy of AnalyzeOptions.
func (o AnalyzeOptions) clone() AnalyzeOptions {
	newOpts := AnalyzeOptions{
		match:   o.match,
		workers: o.workers,
		dedup:   o.dedup,
		logger:  o.logger,
	}

	// Deep copy pages slice
	if o.pages != nil {
		newOpts.pages = make([]int, len(o.pages))
		copy(newOpts.pages, o.pages)
	}

	return newOpts
}
