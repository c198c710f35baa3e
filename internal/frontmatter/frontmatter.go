// Package frontmatter reads and writes markdown notes that start with a
// YAML block between --- lines.
package frontmatter

import (
	"bytes"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// Meta is the frontmatter carried by every exported note.
type Meta struct {
	Type       string   `yaml:"type"`
	Name       string   `yaml:"name,omitempty"`
	Category   string   `yaml:"category,omitempty"`
	Difficulty int      `yaml:"difficulty,omitempty"`
	Books      []string `yaml:"books,omitempty"`
	Origins    []string `yaml:"origins,omitempty"`
	Tags       []string `yaml:"tags,omitempty"`
}

const delim = "---\n"

// Split separates the raw YAML block of a note from its body.
func Split(data []byte) (fm []byte, body []byte, err error) {
	if !bytes.HasPrefix(data, []byte(delim)) {
		return nil, nil, fmt.Errorf("frontmatter: missing opening --- delimiter")
	}
	rest := data[len(delim):]
	var idx int
	if bytes.HasPrefix(rest, []byte(delim)) {
		idx = -1
	} else if idx = bytes.Index(rest, []byte("\n"+delim)); idx < 0 {
		return nil, nil, fmt.Errorf("frontmatter: missing closing --- delimiter")
	}
	return rest[:idx+1], rest[idx+1+len(delim):], nil
}

// Render writes meta as frontmatter followed by body. Tags are sorted so
// the same note always renders to the same bytes.
func Render(meta Meta, body string) ([]byte, error) {
	meta.Tags = slices.Sorted(slices.Values(meta.Tags))
	fm, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("frontmatter: marshal: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(delim)
	buf.Write(fm)
	buf.WriteString(delim)
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// Read decodes the frontmatter of a note and returns its body.
func Read(data []byte) (Meta, string, error) {
	fm, body, err := Split(data)
	if err != nil {
		return Meta{}, "", err
	}
	var meta Meta
	if err := yaml.Unmarshal(fm, &meta); err != nil {
		return Meta{}, "", fmt.Errorf("frontmatter: unmarshal: %w", err)
	}
	return meta, string(body), nil
}
