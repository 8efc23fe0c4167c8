package discovery

import (
	"context"

	"skillkit/internal/config"
)

// PriorityProvider serves the curated entries from config.json. They are
// searched first so that recommended skills win deduplication.
type PriorityProvider struct {
	Entries []config.PriorityEntry
}

func (p *PriorityProvider) ID() string { return ProviderPriority }

func (p *PriorityProvider) IsConfigured() bool { return len(p.Entries) > 0 }

func (p *PriorityProvider) Search(_ context.Context, q Query) ([]DiscoveredSkill, error) {
	var out []DiscoveredSkill
	for _, e := range p.Entries {
		fields := append([]string{e.Name, e.Description}, e.Keywords...)
		if !matches(q.Text, fields...) {
			continue
		}
		out = append(out, DiscoveredSkill{
			Name:        e.Name,
			Description: e.Description,
			Source:      e.Source,
			Author:      e.Author,
			Keywords:    e.Keywords,
		})
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}
