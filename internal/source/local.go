package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"skillkit/internal/skill"
	"skillkit/internal/store"
)

// LocalFetcher serves local:<name> from a store and directory sources
// from the filesystem.
type LocalFetcher struct {
	Store *store.Store
}

// Fetch implements backend.
func (f *LocalFetcher) Fetch(_ context.Context, ref Ref) (*skill.Skill, error) {
	if ref.Scheme == SchemeLocal {
		if f.Store == nil {
			return nil, nil
		}
		sk, ok := f.Store.GetSkill(ref.Name)
		if !ok {
			return nil, nil
		}
		if err := f.Store.LoadFiles(sk); err != nil {
			return nil, bundleFailure(ref, err)
		}
		return sk, nil
	}
	return readDir(ref)
}

func readDir(ref Ref) (*skill.Skill, error) {
	for _, file := range manifestFiles {
		blob, err := os.ReadFile(filepath.Join(ref.Dir, file))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, parseFailure(ref, err)
		}
		var sk *skill.Skill
		if file == skill.FileName {
			sk, err = skill.Parse(blob, ref.SkillName())
		} else {
			sk, err = skill.ParseYAML(blob, ref.SkillName())
		}
		if err != nil {
			return nil, parseFailure(ref, err)
		}
		if err := sk.LoadFiles(ref.Dir, manifestFiles...); err != nil {
			return nil, bundleFailure(ref, err)
		}
		return sk, nil
	}
	return nil, nil
}
