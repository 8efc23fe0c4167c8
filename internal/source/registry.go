package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"path"
	"strings"

	"skillkit/internal/skill"
	"skillkit/internal/skillerr"
)

// RegistryFetcher reads skills from remote catalogs speaking the
// /api/v1/skills/{name} REST shape. Catalogs are addressed by the scheme
// prefix of the source, e.g. registry:pdf.
type RegistryFetcher struct {
	Client *Client
	// BaseURLs maps a catalog prefix to its base URL.
	BaseURLs map[string]string
	Token    string
}

type registryPayload struct {
	Name         string             `json:"name"`
	Version      string             `json:"version"`
	Description  string             `json:"description"`
	Author       string             `json:"author"`
	Keywords     []string           `json:"keywords"`
	Content      string             `json:"content"`
	Dependencies skill.Dependencies `json:"dependencies"`
	// Files maps bundle paths to their text content.
	Files map[string]string `json:"files"`
}

// Fetch implements backend.
func (f *RegistryFetcher) Fetch(ctx context.Context, ref Ref) (*skill.Skill, error) {
	base, ok := f.BaseURLs[ref.Registry]
	if !ok || base == "" {
		return nil, skillerr.New(skillerr.KindSourceInvalid, "SRC_UNKNOWN_REGISTRY", "no catalog configured for %q", ref.Registry)
	}
	status, body, err := f.getWithFallback(ctx, base, "/api/v1/skills/"+url.PathEscape(ref.Name))
	if err != nil {
		return nil, skillerr.Wrap(err, skillerr.KindProviderFailure, "SRC_REGISTRY_FETCH", ref.String())
	}
	switch {
	case status == http.StatusNotFound:
		return nil, nil
	case status != http.StatusOK:
		return nil, skillerr.New(skillerr.KindProviderFailure, "SRC_REGISTRY_FETCH", "%s: status %d", ref, status)
	}

	var payload registryPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, parseFailure(ref, err)
	}
	if strings.TrimSpace(payload.Content) != "" {
		sk, err := skill.Parse([]byte(payload.Content), ref.Name)
		if err != nil {
			return nil, parseFailure(ref, err)
		}
		return withFiles(ref, sk, payload.Files)
	}
	sk := &skill.Skill{
		Name:         payload.Name,
		Version:      strings.TrimPrefix(payload.Version, "v"),
		Description:  payload.Description,
		Author:       payload.Author,
		Keywords:     payload.Keywords,
		Dependencies: payload.Dependencies,
	}
	if sk.Name == "" {
		sk.Name = ref.Name
	}
	if sk.Version == "" {
		sk.Version = skill.DefaultVersion
	}
	if err := sk.Validate(); err != nil {
		return nil, parseFailure(ref, err)
	}
	return withFiles(ref, sk, payload.Files)
}

func withFiles(ref Ref, sk *skill.Skill, files map[string]string) (*skill.Skill, error) {
	for rel, body := range files {
		if err := sk.AddFile(rel, []byte(body)); err != nil {
			return nil, bundleFailure(ref, err)
		}
	}
	return sk, nil
}

// getWithFallback retries a 404 on the pre-v1 /api/ prefix older catalogs
// still serve.
func (f *RegistryFetcher) getWithFallback(ctx context.Context, base, endpoint string) (int, []byte, error) {
	resp, err := f.client().Get(ctx, buildURL(base, endpoint), f.Token, nil)
	if err != nil {
		return 0, nil, err
	}
	if resp.Status != http.StatusNotFound || !strings.Contains(endpoint, "/api/v1/") {
		return resp.Status, resp.Body, nil
	}
	legacy := strings.Replace(endpoint, "/api/v1/", "/api/", 1)
	resp, err = f.client().Get(ctx, buildURL(base, legacy), f.Token, nil)
	if err != nil {
		return 0, nil, err
	}
	return resp.Status, resp.Body, nil
}

func (f *RegistryFetcher) client() *Client {
	if f.Client == nil {
		return NewClient(nil)
	}
	return f.Client
}

func buildURL(base, endpoint string) string {
	u, err := url.Parse(base)
	if err != nil {
		return strings.TrimSuffix(base, "/") + endpoint
	}
	u.Path = path.Join(u.Path, endpoint)
	return u.String()
}
