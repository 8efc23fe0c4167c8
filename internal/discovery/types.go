package discovery

import (
	"context"
)

// Provider ids.
const (
	ProviderPriority = "priority"
	ProviderLocal    = "local"
	ProviderSkillsMP = "skillsmp"
	ProviderAwesome  = "awesome"
	ProviderGitHub   = "github"
)

// DiscoveredSkill is one search hit. It is never persisted.
type DiscoveredSkill struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Source is the canonical install string, e.g. github:org/repo#path.
	Source   string `json:"source"`
	Provider string `json:"provider"`
	// Stars is nil when the provider does not know.
	Stars    *int     `json:"stars,omitempty"`
	Author   string   `json:"author,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	// FoundIn lists every provider that surfaced this skill.
	FoundIn []string `json:"foundIn"`
}

// Query is what a provider is asked for.
type Query struct {
	Text  string
	Limit int
}

// Provider is one search backend.
type Provider interface {
	ID() string
	// IsConfigured reports whether the provider has what it needs to run,
	// e.g. credentials or an initialized store.
	IsConfigured() bool
	Search(ctx context.Context, q Query) ([]DiscoveredSkill, error)
}

// SearchOptions controls Manager.Search.
type SearchOptions struct {
	Query string
	// Limit caps the merged result; zero uses the manager default.
	Limit int
	// Sources restricts the providers queried; empty uses DefaultSources.
	Sources []string
}

// SearchResult is the merged, ranked outcome of a search.
type SearchResult struct {
	Skills []DiscoveredSkill `json:"skills"`
	// Errors maps provider id to the failure it reported.
	Errors map[string]string `json:"errors"`
	// Duplicates counts hits merged into an earlier record.
	Duplicates int `json:"duplicates"`
	// Sources lists the provider ids queried, in query order.
	Sources []string `json:"sources"`
}

// Stars returns a pointer to n, for building DiscoveredSkill literals.
func Stars(n int) *int {
	return &n
}
