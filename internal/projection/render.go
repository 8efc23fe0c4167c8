package projection

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"skillkit/internal/fsutil"
	"skillkit/internal/skill"
)

type ruleHeader struct {
	Description string `yaml:"description"`
	AlwaysApply bool   `yaml:"alwaysApply"`
}

// render produces the projected file for sk. The body is copied verbatim
// behind the managed marker.
func render(t Target, sk *skill.Skill) ([]byte, error) {
	marked := *sk
	marked.Instructions = fsutil.ManagedMarker(sk.Name, sk.Version) + "\n\n" + sk.Instructions
	if t.Layout == LayoutSkillDir {
		return skill.Render(&marked)
	}

	header, err := yaml.Marshal(ruleHeader{Description: sk.Description})
	if err != nil {
		return nil, fmt.Errorf("PRJ_RENDER: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n\n")
	buf.WriteString(marked.Instructions)
	if !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
