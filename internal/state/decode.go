package state

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type entryShape int

const (
	// shapeVersionOnly is the legacy `"name": "1.0.0"` form written before
	// dependency tracking existed.
	shapeVersionOnly entryShape = iota + 1
	shapeObject
)

// rawEntry is one state.json entry tagged with the shape it was written in.
type rawEntry struct {
	shape   entryShape
	version string
	object  legacyAwareEntry
}

// legacyAwareEntry accepts both snake_case and the older camelCase keys.
type legacyAwareEntry struct {
	Version        string   `json:"version"`
	Source         string   `json:"source"`
	InstalledBy    string   `json:"installed_by"`
	DependedBy     []string `json:"depended_by"`
	InstalledByOld string   `json:"installedBy"`
	DependedByOld  []string `json:"dependedBy"`
}

func (r *rawEntry) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return fmt.Errorf("empty entry")
	}
	switch b[0] {
	case '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*r = rawEntry{shape: shapeVersionOnly, version: v}
	case '{':
		var obj legacyAwareEntry
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*r = rawEntry{shape: shapeObject, object: obj}
	default:
		return fmt.Errorf("unsupported entry %s", string(b))
	}
	return nil
}

// normalizeEntry turns either entry shape into the current Entry.
func normalizeEntry(r rawEntry) Entry {
	switch r.shape {
	case shapeVersionOnly:
		return Entry{Version: r.version, InstalledBy: InstalledByUser, DependedBy: []string{}}
	default:
		e := Entry{
			Version:     r.object.Version,
			Source:      r.object.Source,
			InstalledBy: r.object.InstalledBy,
			DependedBy:  r.object.DependedBy,
		}
		if e.InstalledBy == "" {
			e.InstalledBy = r.object.InstalledByOld
		}
		if e.DependedBy == nil {
			e.DependedBy = r.object.DependedByOld
		}
		if e.InstalledBy == "" {
			e.InstalledBy = InstalledByUser
		}
		e.DependedBy = normalizeSet(e.DependedBy)
		return e
	}
}

func decode(blob []byte) (*State, error) {
	var doc struct {
		Skills map[string]json.RawMessage `json:"skills"`
	}
	if err := json.Unmarshal(blob, &doc); err != nil {
		return nil, err
	}
	st := New()
	for name, raw := range doc.Skills {
		if isNull(raw) {
			continue
		}
		var r rawEntry
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("skill %q: %w", name, err)
		}
		e := normalizeEntry(r)
		st.Skills[name] = &e
	}
	return st, nil
}
