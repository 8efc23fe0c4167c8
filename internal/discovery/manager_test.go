package discovery

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	id         string
	configured bool
	hits       []DiscoveredSkill
	err        error
	delay      time.Duration
	gotLimit   atomic.Int32
	panics     bool
}

func (f *fakeProvider) ID() string         { return f.id }
func (f *fakeProvider) IsConfigured() bool { return f.configured }

func (f *fakeProvider) Search(ctx context.Context, q Query) ([]DiscoveredSkill, error) {
	f.gotLimit.Store(int32(q.Limit))
	if f.panics {
		panic("boom")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return append([]DiscoveredSkill(nil), f.hits...), nil
}

func provider(id string, hits ...DiscoveredSkill) *fakeProvider {
	return &fakeProvider{id: id, configured: true, hits: hits}
}

func TestSearchEndToEndCommitScenario(t *testing.T) {
	m := NewManager([]Provider{
		provider(ProviderLocal),
		provider(ProviderAwesome, DiscoveredSkill{Name: "commit-helper", Stars: Stars(12)}),
		provider(ProviderGitHub, DiscoveredSkill{Name: "commit-helper", Stars: Stars(40)}),
	})

	res, err := m.Search(context.Background(), SearchOptions{Query: "commit"})
	require.NoError(t, err)
	require.Len(t, res.Skills, 1)
	got := res.Skills[0]
	assert.Equal(t, "commit-helper", got.Name)
	require.NotNil(t, got.Stars)
	assert.Equal(t, 40, *got.Stars)
	assert.Len(t, got.FoundIn, 2)
	assert.Equal(t, ProviderAwesome, got.Provider)
	assert.Equal(t, 1, res.Duplicates)
	assert.Empty(t, res.Errors)
	assert.Equal(t, []string{ProviderLocal, ProviderAwesome, ProviderGitHub}, res.Sources)
}

func TestSearchMergesIdenticalGitHubSources(t *testing.T) {
	m := NewManager([]Provider{
		provider(ProviderAwesome, DiscoveredSkill{Name: "x", Source: "github:acme/tools#skills/x", Stars: Stars(5), Description: "first"}),
		provider(ProviderGitHub, DiscoveredSkill{Name: "x", Source: "GitHub:Acme/Tools#skills/x", Stars: Stars(9), Description: "second"}),
	})

	res, err := m.Search(context.Background(), SearchOptions{Query: "x", Sources: []string{ProviderAwesome, ProviderGitHub}})
	require.NoError(t, err)
	require.Len(t, res.Skills, 1)
	assert.Equal(t, []string{ProviderAwesome, ProviderGitHub}, res.Skills[0].FoundIn)
	assert.Equal(t, 9, *res.Skills[0].Stars)
	assert.Equal(t, "first", res.Skills[0].Description, "first occurrence is canonical")
	assert.Equal(t, 1, res.Duplicates)
}

func TestSearchKeepsDistinctGitHubPaths(t *testing.T) {
	m := NewManager([]Provider{
		provider(ProviderGitHub,
			DiscoveredSkill{Name: "x", Source: "github:acme/tools#skills/x"},
			DiscoveredSkill{Name: "x", Source: "github:other/tools#skills/x"},
		),
	})
	res, err := m.Search(context.Background(), SearchOptions{Query: "x", Sources: []string{ProviderGitHub}})
	require.NoError(t, err)
	assert.Len(t, res.Skills, 2)
	assert.Zero(t, res.Duplicates)
}

func TestSearchMergesByBareNameAcrossSchemes(t *testing.T) {
	m := NewManager([]Provider{
		provider(ProviderLocal, DiscoveredSkill{Name: "pdf", Source: "local:pdf"}),
		provider(ProviderSkillsMP, DiscoveredSkill{Name: "pdf", Source: "skillsmp:pdf", Stars: Stars(3)}),
	})
	res, err := m.Search(context.Background(), SearchOptions{Query: "pdf", Sources: []string{ProviderLocal, ProviderSkillsMP}})
	require.NoError(t, err)
	require.Len(t, res.Skills, 1)
	assert.Equal(t, "local:pdf", res.Skills[0].Source)
	assert.Equal(t, 3, *res.Skills[0].Stars)
}

func TestSearchIsolatesProviderFailures(t *testing.T) {
	failing := provider(ProviderSkillsMP)
	failing.err = errors.New("DSC_SKILLSMP: status 503")
	m := NewManager([]Provider{
		failing,
		provider(ProviderGitHub, DiscoveredSkill{Name: "lint", Source: "github:acme/lint", Stars: Stars(1)}),
	})

	res, err := m.Search(context.Background(), SearchOptions{Query: "lint", Sources: []string{ProviderSkillsMP, ProviderGitHub}})
	require.NoError(t, err)
	assert.Equal(t, "DSC_SKILLSMP: status 503", res.Errors["skillsmp"])
	require.Len(t, res.Skills, 1)
	assert.Equal(t, "lint", res.Skills[0].Name)
}

func TestSearchTimesOutSlowProviderOnly(t *testing.T) {
	slow := provider(ProviderSkillsMP, DiscoveredSkill{Name: "late"})
	slow.delay = time.Second
	m := NewManager([]Provider{slow, provider(ProviderLocal, DiscoveredSkill{Name: "fast"})}, WithTimeout(20*time.Millisecond))

	res, err := m.Search(context.Background(), SearchOptions{Query: "a", Sources: []string{ProviderSkillsMP, ProviderLocal}})
	require.NoError(t, err)
	assert.Contains(t, res.Errors[ProviderSkillsMP], "timed out")
	require.Len(t, res.Skills, 1)
	assert.Equal(t, "fast", res.Skills[0].Name)
}

func TestSearchRecoversProviderPanic(t *testing.T) {
	bad := provider(ProviderAwesome)
	bad.panics = true
	m := NewManager([]Provider{bad})
	res, err := m.Search(context.Background(), SearchOptions{Query: "a", Sources: []string{ProviderAwesome}})
	require.NoError(t, err)
	assert.Contains(t, res.Errors[ProviderAwesome], "panicked")
}

func TestSearchRanksAndTruncatesLast(t *testing.T) {
	gh := provider(ProviderGitHub,
		DiscoveredSkill{Name: "b", Source: "github:o/b", Stars: Stars(10)},
		DiscoveredSkill{Name: "a", Source: "github:o/a", Stars: Stars(10)},
		DiscoveredSkill{Name: "c", Source: "github:o/c", Stars: Stars(50)},
	)
	local := provider(ProviderLocal,
		DiscoveredSkill{Name: "aaa", Source: "local:aaa"},
		DiscoveredSkill{Name: "zzz", Source: "local:zzz"},
	)
	m := NewManager([]Provider{local, gh})

	res, err := m.Search(context.Background(), SearchOptions{Query: "q", Limit: 4, Sources: []string{ProviderLocal, ProviderGitHub}})
	require.NoError(t, err)
	names := make([]string, 0, len(res.Skills))
	for _, s := range res.Skills {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"c", "a", "b", "aaa"}, names)
	assert.EqualValues(t, 8, gh.gotLimit.Load(), "providers are asked for twice the limit")
}

func TestSearchValidatesInput(t *testing.T) {
	m := NewManager(nil)
	_, err := m.Search(context.Background(), SearchOptions{Query: "  "})
	require.Error(t, err)

	res, err := m.Search(context.Background(), SearchOptions{Query: "x", Sources: []string{"nope"}})
	require.NoError(t, err)
	assert.Equal(t, "unknown source", res.Errors["nope"])
	assert.NotNil(t, res.Skills)
	assert.Empty(t, res.Skills)
}

func TestSearchReportsUnconfiguredExplicitSource(t *testing.T) {
	p := provider(ProviderSkillsMP)
	p.configured = false
	m := NewManager([]Provider{p})
	res, err := m.Search(context.Background(), SearchOptions{Query: "x", Sources: []string{ProviderSkillsMP}})
	require.NoError(t, err)
	assert.Contains(t, res.Errors, ProviderSkillsMP)
	assert.Empty(t, res.Sources)
}

func TestDefaultSources(t *testing.T) {
	all := func(skillsmpConfigured bool) *Manager {
		smp := provider(ProviderSkillsMP)
		smp.configured = skillsmpConfigured
		return NewManager([]Provider{
			provider(ProviderGitHub),
			provider(ProviderAwesome),
			smp,
			provider(ProviderLocal),
			provider(ProviderPriority),
		})
	}
	assert.Equal(t, []string{ProviderPriority, ProviderLocal, ProviderSkillsMP, ProviderGitHub}, all(true).DefaultSources())
	assert.Equal(t, []string{ProviderPriority, ProviderLocal, ProviderAwesome, ProviderGitHub}, all(false).DefaultSources())

	unconfiguredLocal := provider(ProviderLocal)
	unconfiguredLocal.configured = false
	m := NewManager([]Provider{unconfiguredLocal, provider(ProviderGitHub)})
	assert.Equal(t, []string{ProviderGitHub}, m.DefaultSources())
}
