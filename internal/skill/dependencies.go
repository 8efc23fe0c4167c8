package skill

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// toolPrefix marks an external tool inside a legacy flat dependency list.
const toolPrefix = "tool:"

type dependencyShape int

const (
	shapeNone dependencyShape = iota
	// shapeList is the legacy `dependencies: [a, b, tool:jq]` form.
	shapeList
	// shapeObject is the current `dependencies: {skills: [...], tools: [...]}` form.
	shapeObject
)

// RawDependencies holds a dependency declaration exactly as written in a
// manifest, tagged with the shape it was written in.
type RawDependencies struct {
	shape  dependencyShape
	list   []string
	object Dependencies
}

// UnmarshalYAML accepts both the legacy list and the current object shape.
func (r *RawDependencies) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return fmt.Errorf("dependencies list: %w", err)
		}
		*r = RawDependencies{shape: shapeList, list: list}
	case yaml.MappingNode:
		var obj Dependencies
		if err := node.Decode(&obj); err != nil {
			return fmt.Errorf("dependencies object: %w", err)
		}
		*r = RawDependencies{shape: shapeObject, object: obj}
	case yaml.ScalarNode:
		if node.Tag == "!!null" || strings.TrimSpace(node.Value) == "" {
			*r = RawDependencies{}
			return nil
		}
		*r = RawDependencies{shape: shapeList, list: []string{node.Value}}
	default:
		return fmt.Errorf("dependencies: unsupported YAML node kind %d", node.Kind)
	}
	return nil
}

// NormalizeDependencies converts either declaration shape into
// Dependencies. Entries are trimmed and deduplicated preserving order.
func NormalizeDependencies(raw RawDependencies) Dependencies {
	var out Dependencies
	switch raw.shape {
	case shapeList:
		for _, item := range raw.list {
			if name, ok := strings.CutPrefix(strings.TrimSpace(item), toolPrefix); ok {
				out.Tools = append(out.Tools, name)
				continue
			}
			out.Skills = append(out.Skills, item)
		}
	case shapeObject:
		out.Skills = append(out.Skills, raw.object.Skills...)
		out.Tools = append(out.Tools, raw.object.Tools...)
	}
	out.Skills = uniqueTrimmed(out.Skills)
	out.Tools = uniqueTrimmed(out.Tools)
	return out
}

func uniqueTrimmed(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
