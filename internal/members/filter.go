package members

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Annotate returns a copy of roster with viewer-relative flags applied. The
// checks run in order: self, blocked, starred. A blocked member is never
// marked starred.
func Annotate(roster []Member, viewerID string, isBlocked func(string) bool, starred map[string]struct{}) []Member {
	out := make([]Member, 0, len(roster))
	for _, m := range roster {
		m.IsSelf, m.IsBlocked, m.IsStarred = false, false, false
		switch {
		case m.ID == viewerID:
			m.IsSelf = true
			m.Name += SelfSuffix
		case isBlocked != nil && isBlocked(m.ID):
			m.IsBlocked = true
		default:
			_, m.IsStarred = starred[m.ID]
		}
		out = append(out, m)
	}
	return out
}

// Filter annotates roster and narrows it to query. Queries of at most one
// character return every member in default order; longer queries keep only
// members whose name, ENS name or address matches, best match first.
func Filter(roster []Member, viewerID string, isBlocked func(string) bool, starred map[string]struct{}, query string) []Member {
	annotated := Annotate(roster, viewerID, isBlocked, starred)
	query = strings.TrimSpace(query)

	if utf8.RuneCountInString(query) <= 1 {
		slices.SortStableFunc(annotated, Compare)
		return annotated
	}

	type ranked struct {
		member Member
		rank   int
	}
	var matches []ranked
	for i, m := range annotated {
		if r := matchRank(query, roster[i]); r >= 0 {
			matches = append(matches, ranked{member: m, rank: r})
		}
	}

	slices.SortStableFunc(matches, func(a, b ranked) int {
		if c := cmp.Compare(a.rank, b.rank); c != 0 {
			return c
		}
		return Compare(a.member, b.member)
	})

	out := make([]Member, len(matches))
	for i, m := range matches {
		out[i] = m.member
	}
	return out
}

// Compare is the default directory ordering: case-insensitive display
// name, then id.
func Compare(a, b Member) int {
	if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// matchRank returns the best fuzzy distance of query against the member's
// searchable fields, or -1 when nothing matches. Raw roster fields are used
// so the self suffix is not searchable.
func matchRank(query string, m Member) int {
	best := -1
	for _, field := range []string{m.Name, m.ENSName, m.Address} {
		if field == "" {
			continue
		}
		r := fuzzy.RankMatchNormalizedFold(query, field)
		if r < 0 {
			continue
		}
		if strings.Contains(strings.ToLower(field), strings.ToLower(query)) {
			// substring hits rank ahead of scattered ones
			r = r / 2
		}
		if best < 0 || r < best {
			best = r
		}
	}
	return best
}
