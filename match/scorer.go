package match

import (
	"math"

	"github.com/tsawler/pagesect/model"
	"github.com/tsawler/pagesect/section"
)

// Scorer rates how likely two sections draw the same recurring element.
// It never modifies the sections it is given.
type Scorer struct {
	config Config
}

// NewScorer creates a scorer. The configuration is not validated; use
// Config.Validate or NewMatcher for that.
func NewScorer(config Config) *Scorer {
	return &Scorer{config: config}
}

// Score returns a similarity in [0, 1]. Sections of different kinds, Other
// sections, sections without an anchor and anchors further apart than
// MaxOffset on either axis all score 0.
func (s *Scorer) Score(a, b *section.Section) float64 {
	if a == nil || b == nil || a.Kind != b.Kind || !a.Matchable() {
		return 0
	}
	if a.Anchor == nil || b.Anchor == nil {
		return 0
	}
	if !s.withinOffset(*a.Anchor, *b.Anchor) {
		return 0
	}

	switch a.Kind {
	case section.Text:
		return s.scoreText(a.Text, b.Text)
	case section.Object:
		return s.scoreObject(a, b)
	}
	return 0
}

func (s *Scorer) scoreText(a, b *section.TextInfo) float64 {
	if a == nil || b == nil || len(a.Draws) != len(b.Draws) {
		return 0
	}

	score := 1.0
	for i := range a.Draws {
		da, db := a.Draws[i], b.Draws[i]
		if da.Font != db.Font {
			return 0
		}
		if !s.withinOffset(da.Anchor, db.Anchor) {
			return 0
		}
		rel := relativeDifference(da.FontSize, db.FontSize)
		if rel > s.config.MaxFontSizeRatio {
			return 0
		}

		score *= LCSRatio(da.Content, db.Content) * (1 - rel) * s.location(da.Anchor, db.Anchor)
		if score == 0 {
			return 0
		}
	}
	return score
}

// scoreObject requires the same resolved resource. Unresolved objects never
// match, not even themselves.
func (s *Scorer) scoreObject(a, b *section.Section) float64 {
	if a.Object == nil || b.Object == nil {
		return 0
	}
	if a.Object.Resource == "" || a.Object.Resource != b.Object.Resource {
		return 0
	}
	return s.location(*a.Anchor, *b.Anchor)
}

func (s *Scorer) withinOffset(a, b model.Point) bool {
	dx, dy := a.AxisOffset(b)
	return dx <= s.config.MaxOffset && dy <= s.config.MaxOffset
}

// location falls off quadratically from 1 at zero offset to 0 at MaxOffset.
func (s *Scorer) location(a, b model.Point) float64 {
	dx, dy := a.AxisOffset(b)
	r := math.Max(dx, dy) / s.config.MaxOffset
	return 1 - r*r
}

// relativeDifference is |a-b| as a fraction of the larger magnitude.
func relativeDifference(a, b float64) float64 {
	larger := math.Max(math.Abs(a), math.Abs(b))
	if larger == 0 {
		return 0
	}
	return math.Abs(a-b) / larger
}

// LCSRatio returns 2·LCS(a, b) / (len(a) + len(b)): 1 for equal inputs,
// 0 when nothing is shared. Two empty inputs are equal.
func LCSRatio(a, b []byte) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	return 2 * float64(LCS(a, b)) / float64(total)
}

// LCS returns the length of the longest common subsequence of a and b.
func LCS(a, b []byte) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return 0
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
