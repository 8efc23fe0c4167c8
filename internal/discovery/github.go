package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"skillkit/internal/source"
)

// DefaultGitHubTopic narrows repository search to skill repositories.
const DefaultGitHubTopic = "claude-skills"

// GitHubProvider searches GitHub repositories. It is supplementary: hits
// carry star counts but no manifest details.
type GitHubProvider struct {
	Client  *source.Client
	BaseURL string
	Token   string
	Topic   string
	Enabled bool
}

func (p *GitHubProvider) ID() string { return ProviderGitHub }

func (p *GitHubProvider) IsConfigured() bool { return p.Enabled && p.BaseURL != "" }

type githubSearchResponse struct {
	Items []struct {
		Name        string   `json:"name"`
		FullName    string   `json:"full_name"`
		Description string   `json:"description"`
		Stars       int      `json:"stargazers_count"`
		Topics      []string `json:"topics"`
		Owner       struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"items"`
}

func (p *GitHubProvider) Search(ctx context.Context, q Query) ([]DiscoveredSkill, error) {
	topic := p.Topic
	if topic == "" {
		topic = DefaultGitHubTopic
	}
	v := url.Values{}
	v.Set("q", q.Text+" topic:"+topic)
	v.Set("sort", "stars")
	v.Set("order", "desc")
	if q.Limit > 0 {
		v.Set("per_page", strconv.Itoa(min(q.Limit, 100)))
	}
	endpoint := strings.TrimSuffix(p.BaseURL, "/") + "/search/repositories?" + v.Encode()

	client := p.Client
	if client == nil {
		client = source.NewClient(nil)
	}
	resp, err := client.Get(ctx, endpoint, p.Token, http.Header{"Accept": {"application/vnd.github+json"}})
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK {
		return nil, fmt.Errorf("DSC_GITHUB: status %d", resp.Status)
	}
	var payload githubSearchResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("DSC_GITHUB: bad search payload: %w", err)
	}
	out := make([]DiscoveredSkill, 0, len(payload.Items))
	for _, it := range payload.Items {
		if it.FullName == "" {
			continue
		}
		out = append(out, DiscoveredSkill{
			Name:        strings.ToLower(it.Name),
			Description: it.Description,
			Source:      "github:" + it.FullName,
			Stars:       Stars(it.Stars),
			Author:      it.Owner.Login,
			Keywords:    it.Topics,
		})
	}
	return out, nil
}
