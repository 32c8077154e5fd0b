package members

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noneBlocked(string) bool { return false }

func blockedSet(ids ...string) func(string) bool {
	return func(id string) bool { return slices.Contains(ids, id) }
}

func starredSet(ids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func names(ms []Member) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Name
	}
	return out
}

func TestFilterEmptyQueryScenario(t *testing.T) {
	roster := []Member{
		{ID: "2", Name: "Bob"},
		{ID: "1", Name: "Alice"},
	}

	got := Filter(roster, "1", noneBlocked, nil, "")

	require.Len(t, got, 2)
	assert.Equal(t, Member{ID: "1", Name: "Alice (you)", IsSelf: true}, got[0])
	assert.Equal(t, Member{ID: "2", Name: "Bob"}, got[1])
}

func TestAnnotate(t *testing.T) {
	roster := []Member{
		{ID: "me", Name: "Me"},
		{ID: "b", Name: "Blocked"},
		{ID: "s", Name: "Starred"},
		{ID: "bs", Name: "BlockedAndStarred"},
		{ID: "p", Name: "Plain"},
	}

	got := Annotate(roster, "me", blockedSet("b", "bs", "me"), starredSet("s", "bs", "me"))

	require.Len(t, got, 5)
	assert.True(t, got[0].IsSelf)
	assert.False(t, got[0].IsBlocked, "self check short-circuits blocked")
	assert.False(t, got[0].IsStarred)
	assert.Equal(t, "Me (you)", got[0].Name)

	assert.True(t, got[1].IsBlocked)
	assert.True(t, got[2].IsStarred)

	assert.True(t, got[3].IsBlocked)
	assert.False(t, got[3].IsStarred, "blocked short-circuits starred")

	assert.False(t, got[4].IsBlocked || got[4].IsStarred || got[4].IsSelf)

	// roster untouched
	assert.Equal(t, "Me", roster[0].Name)
}

func TestAnnotateClearsStaleFlags(t *testing.T) {
	roster := []Member{{ID: "x", Name: "X", IsStarred: true, IsBlocked: true}}
	got := Annotate(roster, "viewer", nil, nil)
	assert.False(t, got[0].IsStarred)
	assert.False(t, got[0].IsBlocked)
}

func TestFilterSingleCharacterReturnsAll(t *testing.T) {
	roster := []Member{
		{ID: "1", Name: "carol"},
		{ID: "2", Name: "Alice"},
		{ID: "3", Name: "bob"},
	}

	for _, q := range []string{"", " ", "z", "  q  ", "é"} {
		t.Run(fmt.Sprintf("query %q", q), func(t *testing.T) {
			got := Filter(roster, "none", noneBlocked, nil, q)
			assert.Equal(t, []string{"Alice", "bob", "carol"}, names(got))
		})
	}
}

func TestFilterMatchesNameENSAndAddress(t *testing.T) {
	roster := []Member{
		{ID: "1", Name: "Alice", ENSName: "alice.eth", Address: "0xAAA111"},
		{ID: "2", Name: "Bob", ENSName: "builder.eth", Address: "0xBBB222"},
		{ID: "3", Name: "Carol", Address: "0xCCC333"},
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"by name", "bob", []string{"2"}},
		{"by ens", "builder", []string{"2"}},
		{"by address", "0xccc", []string{"3"}},
		{"case insensitive", "ALICE", []string{"1"}},
		{"fuzzy subsequence", "crl", []string{"3"}},
		{"no match", "zzz", nil},
		{"trimmed", "  carol  ", []string{"3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(roster, "viewer", noneBlocked, nil, tt.query)
			var ids []string
			for _, m := range got {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestFilterRelevanceOrder(t *testing.T) {
	roster := []Member{
		{ID: "1", Name: "Nounder Annie"},
		{ID: "2", Name: "Ann"},
		{ID: "3", Name: "Anna"},
	}

	got := Filter(roster, "viewer", noneBlocked, nil, "ann")

	require.Len(t, got, 3)
	assert.Equal(t, "2", got[0].ID, "closest match first")
	assert.Equal(t, "3", got[1].ID)
	assert.Equal(t, "1", got[2].ID)
}

func TestFilterSelfSuffixWithQuery(t *testing.T) {
	roster := []Member{{ID: "1", Name: "Alice"}, {ID: "2", Name: "Alicia"}}

	got := Filter(roster, "1", noneBlocked, nil, "ali")

	require.Len(t, got, 2)
	for _, m := range got {
		if m.ID == "1" {
			assert.Equal(t, "Alice (you)", m.Name)
		}
	}

	assert.Empty(t, Filter(roster, "1", noneBlocked, nil, "you"), "suffix is not searchable")
}

func TestCompare(t *testing.T) {
	assert.Negative(t, Compare(Member{Name: "alice"}, Member{Name: "Bob"}))
	assert.Positive(t, Compare(Member{Name: "Bob"}, Member{Name: "alice"}))
	assert.Negative(t, Compare(Member{ID: "1", Name: "Same"}, Member{ID: "2", Name: "same"}))
	assert.Zero(t, Compare(Member{ID: "1", Name: "X"}, Member{ID: "1", Name: "x"}))
}

func genRoster() gopter.Gen {
	return gen.SliceOf(gen.AlphaString()).Map(func(ns []string) []Member {
		roster := make([]Member, len(ns))
		for i, n := range ns {
			roster[i] = Member{ID: fmt.Sprintf("id-%d", i), Name: n, Address: fmt.Sprintf("0x%040d", i)}
		}
		return roster
	})
}

func TestFilterProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("short queries return every member once in default order", prop.ForAll(
		func(roster []Member, q string) bool {
			got := Filter(roster, "id-0", noneBlocked, nil, q)
			if len(got) != len(roster) {
				return false
			}
			seen := make(map[string]bool)
			for _, m := range got {
				if seen[m.ID] {
					return false
				}
				seen[m.ID] = true
			}
			return slices.IsSortedFunc(got, Compare)
		},
		genRoster(),
		gen.AlphaString().Map(func(s string) string {
			if len(s) > 1 {
				return s[:1]
			}
			return s
		}),
	))

	properties.Property("long queries only return matching members", prop.ForAll(
		func(roster []Member, q string) bool {
			got := Filter(roster, "", noneBlocked, nil, q)
			kept := make(map[string]bool)
			for _, m := range got {
				kept[m.ID] = true
			}
			for _, m := range roster {
				matches := fuzzy.MatchNormalizedFold(q, m.Name) || fuzzy.MatchNormalizedFold(q, m.Address)
				if matches != kept[m.ID] {
					return false
				}
			}
			return true
		},
		genRoster(),
		gen.AlphaString().Map(func(s string) string {
			if len(s) < 2 {
				return s + "ab"
			}
			if len(s) > 3 {
				return s[:3]
			}
			return s
		}),
	))

	properties.Property("viewer always carries the self suffix", prop.ForAll(
		func(roster []Member, q string) bool {
			if len(roster) == 0 {
				return true
			}
			for _, m := range Filter(roster, "id-0", noneBlocked, nil, q) {
				if m.ID == "id-0" && !strings.HasSuffix(m.Name, SelfSuffix) {
					return false
				}
			}
			return true
		},
		genRoster(),
		gen.AlphaString(),
	))

	properties.Property("blocked members are never starred", prop.ForAll(
		func(roster []Member) bool {
			all := make([]string, len(roster))
			for i, m := range roster {
				all[i] = m.ID
			}
			for _, m := range Annotate(roster, "", blockedSet(all...), starredSet(all...)) {
				if m.IsStarred {
					return false
				}
			}
			return true
		},
		genRoster(),
	))

	properties.TestingRun(t)
}
