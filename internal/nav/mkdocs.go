package nav

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// PlaceholderPrefix marks substitutable values in mkdocs.yml templates.
const PlaceholderPrefix = "MKDOCS_"

// UpdateMkdocs substitutes vars into the file at ymlPath and sets its
// top-level nav to entries. Everything else in the document, including
// custom tags, is preserved.
func UpdateMkdocs(fs afero.Fs, ymlPath string, entries []Entry, vars map[string]string) error {
	raw, err := afero.ReadFile(fs, ymlPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", ymlPath, err)
	}
	raw = []byte(ReplacePlaceholders(string(raw), vars))

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", ymlPath, err)
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return errors.New("mkdocs config must be a mapping")
	}
	setKey(doc.Content[0], "nav", NavNode(entries))

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encode %s: %w", ymlPath, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode %s: %w", ymlPath, err)
	}
	if err := afero.WriteFile(fs, ymlPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", ymlPath, err)
	}
	return nil
}

// ReplacePlaceholders substitutes every key of vars in s. Longer keys go
// first so MKDOCS_SITE_NAME is not clobbered by MKDOCS_SITE.
func ReplacePlaceholders(s string, vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		s = strings.ReplaceAll(s, k, vars[k])
	}
	return s
}

// NavNode renders entries as an MkDocs nav sequence.
func NavNode(entries []Entry) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, e := range entries {
		var value *yaml.Node
		if e.IsSection() {
			value = NavNode(e.Children)
		} else {
			value = scalar(e.Path)
		}
		seq.Content = append(seq.Content, &yaml.Node{
			Kind:    yaml.MappingNode,
			Tag:     "!!map",
			Content: []*yaml.Node{scalar(e.Title), value},
		})
	}
	return seq
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func setKey(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content, scalar(key), value)
}
