package discovery

import (
	"context"

	"skillkit/internal/store"
)

// LocalProvider searches skills already in a store.
type LocalProvider struct {
	Store *store.Store
}

func (p *LocalProvider) ID() string { return ProviderLocal }

func (p *LocalProvider) IsConfigured() bool {
	return p.Store != nil && p.Store.IsInitialized()
}

func (p *LocalProvider) Search(ctx context.Context, q Query) ([]DiscoveredSkill, error) {
	installed, err := p.Store.ListSkills()
	if err != nil {
		return nil, err
	}
	var out []DiscoveredSkill
	for _, it := range installed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sk := it.Skill
		fields := append([]string{sk.Name, sk.Description}, sk.Keywords...)
		if !matches(q.Text, fields...) {
			continue
		}
		out = append(out, DiscoveredSkill{
			Name:        sk.Name,
			Description: sk.Description,
			Source:      "local:" + sk.Name,
			Author:      sk.Author,
			Keywords:    sk.Keywords,
		})
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}
