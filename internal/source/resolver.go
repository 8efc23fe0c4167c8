package source

import (
	"context"
	"fmt"

	"skillkit/internal/skill"
	"skillkit/internal/skillerr"
)

// backend serves one Scheme.
type backend interface {
	Fetch(ctx context.Context, ref Ref) (*skill.Skill, error)
}

// Resolver is the Fetcher used in production. It dispatches on the
// source scheme.
type Resolver struct {
	GitHub   *GitHubFetcher
	Local    *LocalFetcher
	Registry *RegistryFetcher
}

var _ Fetcher = (*Resolver)(nil)

// FetchSkill implements Fetcher.
func (r *Resolver) FetchSkill(ctx context.Context, src string) (*skill.Skill, error) {
	ref, err := Parse(src)
	if err != nil {
		return nil, err
	}
	b, err := r.backend(ref)
	if err != nil {
		return nil, err
	}
	return b.Fetch(ctx, ref)
}

// FetchMetadata implements Fetcher.
func (r *Resolver) FetchMetadata(ctx context.Context, src string) (*Metadata, error) {
	sk, err := r.FetchSkill(ctx, src)
	if err != nil || sk == nil {
		return nil, err
	}
	ref, _ := Parse(src)
	return &Metadata{
		Name:         sk.Name,
		Version:      sk.Version,
		Description:  sk.Description,
		Source:       ref.String(),
		Dependencies: sk.Dependencies,
	}, nil
}

func (r *Resolver) backend(ref Ref) (backend, error) {
	var b backend
	switch ref.Scheme {
	case SchemeGitHub:
		if r.GitHub != nil {
			b = r.GitHub
		}
	case SchemeLocal, SchemePath:
		if r.Local != nil {
			b = r.Local
		}
	case SchemeRegistry:
		if r.Registry != nil {
			b = r.Registry
		}
	}
	if b == nil {
		return nil, skillerr.New(skillerr.KindSourceInvalid, "SRC_UNSUPPORTED", "no fetcher configured for %s sources", ref.Scheme)
	}
	return b, nil
}

func bundleFailure(ref Ref, err error) error {
	return skillerr.Wrap(err, skillerr.KindSourceInvalid, "SRC_BUNDLE", fmt.Sprintf("cannot read bundled files of %s", ref))
}

func parseFailure(ref Ref, err error) error {
	return skillerr.Wrap(err, skillerr.KindSourceInvalid, "SRC_MANIFEST", fmt.Sprintf("invalid manifest at %s", ref))
}
