package discovery

import (
	"slices"
	"sort"
	"strings"
)

// dedupKey is the identity of a hit across providers: the full source for
// GitHub hits, otherwise the bare name after the scheme prefix.
func dedupKey(s DiscoveredSkill) string {
	src := strings.ToLower(strings.TrimSpace(s.Source))
	if strings.HasPrefix(src, "github:") {
		return src
	}
	if _, name, ok := strings.Cut(src, ":"); ok && name != "" {
		return name
	}
	if src != "" {
		return src
	}
	return strings.ToLower(strings.TrimSpace(s.Name))
}

// merge folds per-provider lists, in provider order, into one list keeping
// the first occurrence of each identity. Later duplicates add their
// provider to FoundIn and raise Stars. It returns the duplicate count.
func merge(lists [][]DiscoveredSkill) ([]DiscoveredSkill, int) {
	var (
		out        []DiscoveredSkill
		index      = map[string]int{}
		duplicates int
	)
	for _, list := range lists {
		for _, hit := range list {
			key := dedupKey(hit)
			i, seen := index[key]
			if !seen {
				index[key] = len(out)
				hit.FoundIn = slices.Clone(hit.FoundIn)
				if len(hit.FoundIn) == 0 && hit.Provider != "" {
					hit.FoundIn = []string{hit.Provider}
				}
				out = append(out, hit)
				continue
			}
			duplicates++
			canon := &out[i]
			for _, p := range append(slices.Clone(hit.FoundIn), hit.Provider) {
				if p != "" && !slices.Contains(canon.FoundIn, p) {
					canon.FoundIn = append(canon.FoundIn, p)
				}
			}
			if hit.Stars != nil && (canon.Stars == nil || *hit.Stars > *canon.Stars) {
				canon.Stars = Stars(*hit.Stars)
			}
		}
	}
	return out, duplicates
}

// rank orders hits with known stars first, then by stars descending, then
// by name.
func rank(hits []DiscoveredSkill) {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if (a.Stars == nil) != (b.Stars == nil) {
			return a.Stars != nil
		}
		if a.Stars != nil && *a.Stars != *b.Stars {
			return *a.Stars > *b.Stars
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
}

// matches reports whether any of fields contains every word of query.
func matches(query string, fields ...string) bool {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return true
	}
	hay := strings.ToLower(strings.Join(fields, " "))
	for _, w := range words {
		if !strings.Contains(hay, w) {
			return false
		}
	}
	return true
}
