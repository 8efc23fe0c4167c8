package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"skillkit/internal/source"
)

// SkillsMPProvider searches the primary skill catalog. It needs an API key.
type SkillsMPProvider struct {
	Client  *source.Client
	BaseURL string
	APIKey  string
	Cache   *TTLCache[[]DiscoveredSkill]
}

// NewSkillsMPProvider returns a provider caching answers for ttl.
func NewSkillsMPProvider(client *source.Client, baseURL, apiKey string, ttl time.Duration) *SkillsMPProvider {
	return &SkillsMPProvider{Client: client, BaseURL: baseURL, APIKey: apiKey, Cache: NewTTLCache[[]DiscoveredSkill](ttl)}
}

func (p *SkillsMPProvider) ID() string { return ProviderSkillsMP }

func (p *SkillsMPProvider) IsConfigured() bool {
	return p.APIKey != "" && p.BaseURL != ""
}

func (p *SkillsMPProvider) Search(ctx context.Context, q Query) ([]DiscoveredSkill, error) {
	key := strings.ToLower(q.Text) + "|" + strconv.Itoa(q.Limit)
	hits, err := p.Cache.GetOrCompute(key, func() ([]DiscoveredSkill, error) {
		return p.fetch(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	return append([]DiscoveredSkill(nil), hits...), nil
}

func (p *SkillsMPProvider) fetch(ctx context.Context, q Query) ([]DiscoveredSkill, error) {
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("DSC_SKILLSMP: invalid base URL: %w", err)
	}
	u.Path = path.Join(u.Path, "/api/v1/skills/search")
	v := url.Values{}
	v.Set("q", q.Text)
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	u.RawQuery = v.Encode()

	client := p.Client
	if client == nil {
		client = source.NewClient(nil)
	}
	resp, err := client.Get(ctx, u.String(), p.APIKey, http.Header{"Accept": {"application/json"}})
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK {
		return nil, fmt.Errorf("DSC_SKILLSMP: status %d", resp.Status)
	}
	hits, err := parseCatalogResponse(resp.Body, ProviderSkillsMP)
	if err != nil {
		return nil, fmt.Errorf("DSC_SKILLSMP: %w", err)
	}
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

// parseCatalogResponse accepts either a bare array or an object wrapping
// the list under one of the usual keys.
func parseCatalogResponse(body []byte, scheme string) ([]DiscoveredSkill, error) {
	var rows []map[string]any
	if json.Unmarshal(body, &rows) != nil {
		var obj map[string]any
		if err := json.Unmarshal(body, &obj); err != nil {
			return nil, fmt.Errorf("bad search payload: %w", err)
		}
		if data, ok := obj["data"].(map[string]any); ok {
			obj = data
		}
		for _, key := range []string{"items", "skills", "data", "results"} {
			list, ok := obj[key].([]any)
			if !ok {
				continue
			}
			for _, item := range list {
				if row, ok := item.(map[string]any); ok {
					rows = append(rows, row)
				}
			}
		}
	}

	out := make([]DiscoveredSkill, 0, len(rows))
	for _, row := range rows {
		hit, ok := mapCatalogRow(row, scheme)
		if ok {
			out = append(out, hit)
		}
	}
	return out, nil
}

func mapCatalogRow(row map[string]any, scheme string) (DiscoveredSkill, bool) {
	str := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := row[k].(string); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}
	name := str("name", "slug", "id")
	if name == "" {
		return DiscoveredSkill{}, false
	}
	hit := DiscoveredSkill{
		Name:        name,
		Description: str("description", "summary"),
		Author:      str("author", "owner"),
	}
	for _, k := range []string{"stars", "githubStars", "stargazers_count"} {
		if n, ok := row[k].(float64); ok {
			hit.Stars = Stars(int(n))
			break
		}
	}
	for _, k := range []string{"keywords", "tags"} {
		if list, ok := row[k].([]any); ok {
			for _, item := range list {
				if s, ok := item.(string); ok {
					hit.Keywords = append(hit.Keywords, s)
				}
			}
			break
		}
	}
	hit.Source = scheme + ":" + name
	for _, raw := range []string{str("source"), str("githubUrl", "github_url", "repoUrl", "url")} {
		if raw == "" {
			continue
		}
		if ref, err := source.Parse(raw); err == nil {
			hit.Source = ref.String()
			break
		}
	}
	return hit, true
}
