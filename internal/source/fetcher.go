// Package source parses install sources and fetches skill content from
// GitHub, the local store, filesystem directories and remote catalogs.
package source

//go:generate mockgen -destination=mocks/mock_fetcher.go -package=mocks -source=fetcher.go

import (
	"context"

	"skillkit/internal/skill"
)

// Metadata is the manifest summary of a fetchable skill.
type Metadata struct {
	Name         string
	Version      string
	Description  string
	Source       string
	Dependencies skill.Dependencies
}

// Fetcher resolves a source string into skill content. A (nil, nil)
// return means the source does not exist; errors are reserved for
// malformed sources and transport failures.
type Fetcher interface {
	FetchMetadata(ctx context.Context, src string) (*Metadata, error)
	FetchSkill(ctx context.Context, src string) (*skill.Skill, error)
}
