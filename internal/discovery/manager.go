// Package discovery searches several skill catalogs at once and merges
// their answers into one ranked, deduplicated list.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"skillkit/internal/logging"
	"skillkit/internal/skillerr"
)

const (
	defaultTimeout = 10 * time.Second
	defaultLimit   = 10
)

// Manager fans a query out to its providers. It holds no durable state.
type Manager struct {
	providers map[string]Provider
	order     []string
	timeout   time.Duration
	limit     int
	logger    *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout bounds each provider call.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithDefaultLimit sets the result cap used when a search gives none.
func WithDefaultLimit(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.limit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = logging.OrDiscard(l) }
}

// NewManager returns a manager with the given providers registered.
func NewManager(providers []Provider, opts ...Option) *Manager {
	m := &Manager{
		providers: map[string]Provider{},
		timeout:   defaultTimeout,
		limit:     defaultLimit,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, p := range providers {
		m.Register(p)
	}
	return m
}

// Register adds p, replacing any provider with the same id.
func (m *Manager) Register(p Provider) {
	id := p.ID()
	if _, ok := m.providers[id]; !ok {
		m.order = append(m.order, id)
	}
	m.providers[id] = p
}

// Provider returns the provider registered under id.
func (m *Manager) Provider(id string) (Provider, bool) {
	p, ok := m.providers[id]
	return p, ok
}

// DefaultSources is the provider order used when a search names none:
// priority and local when configured, then skillsmp when it has an API
// key or else the awesome list, then github.
func (m *Manager) DefaultSources() []string {
	var out []string
	add := func(id string) bool {
		p, ok := m.providers[id]
		if !ok || !p.IsConfigured() {
			return false
		}
		out = append(out, id)
		return true
	}
	add(ProviderPriority)
	add(ProviderLocal)
	if !add(ProviderSkillsMP) {
		add(ProviderAwesome)
	}
	add(ProviderGitHub)
	return out
}

// Search queries the selected providers concurrently and waits for all of
// them. A provider that fails or times out is reported in Errors and does
// not affect the others. Each provider is asked for twice the limit so
// that deduplication still leaves enough hits; the merged list is ranked
// and truncated last.
func (m *Manager) Search(ctx context.Context, opts SearchOptions) (SearchResult, error) {
	query := strings.TrimSpace(opts.Query)
	if query == "" {
		return SearchResult{}, skillerr.New(skillerr.KindSourceInvalid, "DSC_QUERY", "search query is required")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = m.limit
	}
	ids := opts.Sources
	if len(ids) == 0 {
		ids = m.DefaultSources()
	}

	res := SearchResult{Skills: []DiscoveredSkill{}, Errors: map[string]string{}, Sources: []string{}}
	var selected []Provider
	for _, id := range ids {
		p, ok := m.providers[id]
		switch {
		case !ok:
			res.Errors[id] = "unknown source"
			continue
		case !p.IsConfigured():
			res.Errors[id] = "source is not configured"
			continue
		}
		if containsProvider(selected, id) {
			continue
		}
		selected = append(selected, p)
		res.Sources = append(res.Sources, id)
	}

	lists := make([][]DiscoveredSkill, len(selected))
	errs := make([]error, len(selected))
	var wg sync.WaitGroup
	for i, p := range selected {
		i, p := i, p
		wg.Add(1)
		go func() {
			defer wg.Done()
			lists[i], errs[i] = m.searchOne(ctx, p, Query{Text: query, Limit: 2 * limit})
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			res.Errors[selected[i].ID()] = err.Error()
			m.logger.Warn("discovery provider failed", "provider", selected[i].ID(), "error", err)
			lists[i] = nil
		}
	}
	skills, dups := merge(lists)
	rank(skills)
	if len(skills) > limit {
		skills = skills[:limit]
	}
	if skills != nil {
		res.Skills = skills
	}
	res.Duplicates = dups
	m.logger.Debug("discovery finished", "query", query, "sources", res.Sources, "hits", len(res.Skills), "duplicates", dups)
	return res, nil
}

// searchOne runs one provider under its own timeout and stamps its id on
// every hit.
func (m *Manager) searchOne(ctx context.Context, p Provider, q Query) (hits []DiscoveredSkill, err error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			hits, err = nil, fmt.Errorf("provider panicked: %v", r)
		}
	}()
	start := time.Now()
	hits, err = p.Search(ctx, q)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s", m.timeout)
		}
		return nil, err
	}
	id := p.ID()
	for i := range hits {
		hits[i].Provider = id
		hits[i].FoundIn = []string{id}
	}
	m.logger.Debug("discovery provider answered", "provider", id, "hits", len(hits), "elapsed", time.Since(start))
	return hits, nil
}

func containsProvider(ps []Provider, id string) bool {
	for _, p := range ps {
		if p.ID() == id {
			return true
		}
	}
	return false
}
