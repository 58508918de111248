// Package match clusters sections that recur across pages.
//
// A Scorer compares two sections and returns a similarity in [0, 1]. The
// Matcher makes one forward pass over a section.Collection: every Text or
// Object section that is not yet grouped founds a group, and the group's
// master is scored against the ungrouped sections of the next few pages.
// The best candidate on each page joins the group when its score reaches the
// acceptance threshold.
//
// Scores multiply per-draw factors instead of averaging them, so a single
// divergent draw sinks the whole score:
//
//	score = Π content × size × location
//	content  = 2·LCS(a, b) / (len(a) + len(b))
//	size     = 1 − |sa − sb| / max(sa, sb)
//	location = 1 − (max(|dx|, |dy|) / MaxOffset)²
//
// Example:
//
//	m, err := match.NewMatcher(match.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	stats := m.Match(collection)
//	fmt.Printf("%d groups, %d recurring\n", stats.Groups, stats.Recurring)
package match
