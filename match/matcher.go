package match

import (
	"log/slog"

	"github.com/tsawler/pagesect/section"
)

// Stats summarizes a matching pass.
type Stats struct {
	Groups      int // groups founded
	Recurring   int // groups with more than one member
	Assigned    int // sections that joined an existing group
	Comparisons int // Score calls made
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) {
		m.logger = logger
	}
}

// WithScorer replaces the default scorer built from the configuration.
func WithScorer(scorer *Scorer) Option {
	return func(m *Matcher) {
		m.scorer = scorer
	}
}

// Matcher groups recurring sections in one forward pass over the pages.
type Matcher struct {
	config Config
	scorer *Scorer
	logger *slog.Logger
}

// NewMatcher creates a matcher. An invalid configuration is rejected here,
// before any pass can start.
func NewMatcher(config Config, opts ...Option) (*Matcher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	m := &Matcher{config: config}
	for _, opt := range opts {
		opt(m)
	}
	if m.scorer == nil {
		m.scorer = NewScorer(config)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m, nil
}

// Config returns the configuration the matcher was built with.
func (m *Matcher) Config() Config {
	return m.config
}

// Match assigns every Text and Object section of c to exactly one group.
// Pages are visited in ascending order and sections in stream order. Each
// group only looks forward, and a page is searched at most once per group,
// so the pass never revisits a decision.
//
// Every page must be added to c before Match is called.
func (m *Matcher) Match(c *section.Collection) Stats {
	var stats Stats

	pages := c.Pages()
	if len(pages) == 0 {
		return stats
	}
	lastPage := pages[len(pages)-1]

	for _, page := range pages {
		for _, s := range c.PageSections(page) {
			if !s.Matchable() {
				continue
			}

			if !s.IsGrouped() {
				if _, err := c.NewGroup(s.ID); err != nil {
					m.logger.Debug("match: cannot start group", "section", s.ID, "error", err)
					continue
				}
				stats.Groups++
			}

			m.extend(c, c.Group(s.Group), page, lastPage, &stats)
		}
	}

	for _, g := range c.Groups() {
		if len(g.Members) > 1 {
			stats.Recurring++
		}
	}

	m.logger.Debug("match: pass complete",
		"pages", len(pages),
		"groups", stats.Groups,
		"recurring", stats.Recurring,
		"assigned", stats.Assigned,
		"comparisons", stats.Comparisons)

	return stats
}

// extend searches the pages after page, within the lookahead window, for
// more members of g.
func (m *Matcher) extend(c *section.Collection, g *section.Group, page, lastPage int, stats *Stats) {
	master := c.Section(g.Master)
	end := min(page+m.config.Lookahead, lastPage)

	for p := max(page+1, g.LastMatchedPage+1); p <= end; p++ {
		c.AdvanceScan(g.ID, p)

		var best *section.Section
		bestScore := 0.0
		for _, cand := range c.PageSections(p) {
			if !cand.Matchable() || cand.IsGrouped() {
				continue
			}
			stats.Comparisons++
			score := m.scorer.Score(master, cand)
			if best == nil || score > bestScore {
				best, bestScore = cand, score
			}
		}

		if best == nil || bestScore < m.config.AcceptThreshold {
			continue
		}
		if err := c.Assign(g.ID, best.ID); err != nil {
			m.logger.Debug("match: assign failed", "group", g.ID, "section", best.ID, "error", err)
			continue
		}
		stats.Assigned++
		m.logger.Debug("match: section joined group",
			"group", g.ID, "section", best.ID, "page", p, "score", bestScore)
	}
}
