package discovery

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"skillkit/internal/source"
)

// AwesomeProvider searches a curated "awesome" README. It is the fallback
// when the primary catalog has no API key.
type AwesomeProvider struct {
	Client *source.Client
	URL    string
	Cache  *TTLCache[[]DiscoveredSkill]
}

// NewAwesomeProvider returns a provider that re-reads the list after ttl.
func NewAwesomeProvider(client *source.Client, listURL string, ttl time.Duration) *AwesomeProvider {
	return &AwesomeProvider{Client: client, URL: listURL, Cache: NewTTLCache[[]DiscoveredSkill](ttl)}
}

func (p *AwesomeProvider) ID() string { return ProviderAwesome }

func (p *AwesomeProvider) IsConfigured() bool { return p.URL != "" }

func (p *AwesomeProvider) Search(ctx context.Context, q Query) ([]DiscoveredSkill, error) {
	all, err := p.Cache.GetOrCompute(p.URL, func() ([]DiscoveredSkill, error) {
		return p.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	var out []DiscoveredSkill
	for _, hit := range all {
		fields := append([]string{hit.Name, hit.Description}, hit.Keywords...)
		if !matches(q.Text, fields...) {
			continue
		}
		out = append(out, hit)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (p *AwesomeProvider) fetch(ctx context.Context) ([]DiscoveredSkill, error) {
	client := p.Client
	if client == nil {
		client = source.NewClient(nil)
	}
	resp, err := client.Get(ctx, p.URL, "", nil)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK {
		return nil, fmt.Errorf("DSC_AWESOME: status %d", resp.Status)
	}
	return parseAwesomeList(resp.Body), nil
}

// listItem matches `- [title](link) - description` bullets.
var listItem = regexp.MustCompile(`^\s*[-*+]\s+\[([^\]]+)\]\(([^)\s]+)\)\s*(?:[-:\x{2013}\x{2014}]\s*(.*))?$`)

// parseAwesomeList extracts GitHub-hosted skills from a markdown list. The
// section heading a bullet sits under becomes its keyword.
func parseAwesomeList(body []byte) []DiscoveredSkill {
	var (
		out     []DiscoveredSkill
		section string
		seen    = map[string]bool{}
	)
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "#") {
			section = strings.ToLower(strings.TrimSpace(strings.TrimLeft(line, "#")))
			continue
		}
		m := listItem.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ref, err := source.Parse(m[2])
		if err != nil || ref.Scheme != source.SchemeGitHub {
			continue
		}
		src := ref.String()
		if seen[src] {
			continue
		}
		seen[src] = true
		hit := DiscoveredSkill{
			Name:        ref.SkillName(),
			Description: strings.TrimSpace(m[3]),
			Source:      src,
			Author:      ref.Owner,
		}
		if section != "" {
			hit.Keywords = []string{section}
		}
		out = append(out, hit)
	}
	return out
}
