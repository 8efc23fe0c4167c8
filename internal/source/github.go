package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strings"

	"skillkit/internal/skill"
	"skillkit/internal/skillerr"
)

// DefaultRawBaseURL serves raw repository files.
const DefaultRawBaseURL = "https://raw.githubusercontent.com/"

// maxBundleDepth bounds how deep a skill directory is walked.
const maxBundleDepth = 8

// manifestFiles are tried in order when detecting a skill in a repository.
var manifestFiles = []string{skill.FileName, "skill.yaml"}

// GitHubFetcher reads manifests straight from raw.githubusercontent.com.
type GitHubFetcher struct {
	Client  *Client
	BaseURL string
	// APIBaseURL is used to list the skill directory so that bundled
	// files are fetched with the manifest. Empty reads the manifest only.
	APIBaseURL string
	Token      string
}

// Fetch implements backend. Branch defaults to HEAD.
func (f *GitHubFetcher) Fetch(ctx context.Context, ref Ref) (*skill.Skill, error) {
	branch := ref.Branch
	if branch == "" {
		branch = "HEAD"
	}
	for _, file := range manifestFiles {
		u := f.rawURL(ref, branch, path.Join(ref.Path, file))
		resp, err := f.client().Get(ctx, u, f.Token, nil)
		if err != nil {
			return nil, skillerr.Wrap(err, skillerr.KindProviderFailure, "SRC_GITHUB_FETCH", ref.String())
		}
		switch {
		case resp.Status == http.StatusNotFound:
			continue
		case resp.Status != http.StatusOK:
			return nil, skillerr.New(skillerr.KindProviderFailure, "SRC_GITHUB_FETCH", "%s: status %d", u, resp.Status)
		}
		var sk *skill.Skill
		if file == skill.FileName {
			sk, err = skill.Parse(resp.Body, ref.SkillName())
		} else {
			sk, err = skill.ParseYAML(resp.Body, ref.SkillName())
		}
		if err != nil {
			return nil, parseFailure(ref, err)
		}
		if f.APIBaseURL != "" {
			if err := f.fetchBundle(ctx, ref, branch, ref.Path, sk, 0); err != nil {
				return nil, err
			}
		}
		return sk, nil
	}
	return nil, nil
}

type contentEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
}

// fetchBundle lists dir through the contents API and downloads every file
// except the manifests at the top level.
func (f *GitHubFetcher) fetchBundle(ctx context.Context, ref Ref, branch, dir string, sk *skill.Skill, depth int) error {
	if depth > maxBundleDepth {
		return bundleFailure(ref, skillerr.New(skillerr.KindSourceInvalid, "SRC_BUNDLE_DEPTH", "%s nests deeper than %d levels", dir, maxBundleDepth))
	}
	u := f.contentsURL(ref, branch, dir)
	resp, err := f.client().Get(ctx, u, f.Token, http.Header{"Accept": {"application/vnd.github+json"}})
	if err != nil {
		return skillerr.Wrap(err, skillerr.KindProviderFailure, "SRC_GITHUB_BUNDLE", ref.String())
	}
	switch {
	case resp.Status == http.StatusNotFound && depth == 0:
		return nil
	case resp.Status != http.StatusOK:
		return skillerr.New(skillerr.KindProviderFailure, "SRC_GITHUB_BUNDLE", "%s: status %d", u, resp.Status)
	}
	var entries []contentEntry
	if err := json.Unmarshal(resp.Body, &entries); err != nil {
		return skillerr.Wrap(err, skillerr.KindProviderFailure, "SRC_GITHUB_BUNDLE", u)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name, ".") {
			continue
		}
		switch e.Type {
		case "dir":
			if err := f.fetchBundle(ctx, ref, branch, e.Path, sk, depth+1); err != nil {
				return err
			}
		case "file":
			if depth == 0 && slices.Contains(manifestFiles, e.Name) {
				continue
			}
			raw := f.rawURL(ref, branch, e.Path)
			fileResp, err := f.client().Get(ctx, raw, f.Token, nil)
			if err != nil {
				return skillerr.Wrap(err, skillerr.KindProviderFailure, "SRC_GITHUB_BUNDLE", raw)
			}
			if fileResp.Status != http.StatusOK {
				return skillerr.New(skillerr.KindProviderFailure, "SRC_GITHUB_BUNDLE", "%s: status %d", raw, fileResp.Status)
			}
			rel := e.Path
			if ref.Path != "" {
				rel = strings.TrimPrefix(e.Path, ref.Path+"/")
			}
			if err := sk.AddFile(rel, fileResp.Body); err != nil {
				return bundleFailure(ref, err)
			}
		}
	}
	return nil
}

func (f *GitHubFetcher) contentsURL(ref Ref, branch, dir string) string {
	u := strings.TrimSuffix(f.APIBaseURL, "/") + "/repos/" + ref.Owner + "/" + ref.Repo + "/contents"
	if dir != "" {
		u += "/" + dir
	}
	if branch != "HEAD" {
		u += "?ref=" + url.QueryEscape(branch)
	}
	return u
}

func (f *GitHubFetcher) rawURL(ref Ref, branch, repoPath string) string {
	base := f.BaseURL
	if base == "" {
		base = DefaultRawBaseURL
	}
	return strings.Join([]string{strings.TrimSuffix(base, "/"), ref.Owner, ref.Repo, branch, repoPath}, "/")
}

func (f *GitHubFetcher) client() *Client {
	if f.Client == nil {
		return NewClient(nil)
	}
	return f.Client
}
