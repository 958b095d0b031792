// Package document loads Markdown entries with their title and summary and
// writes translated entries back.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by fetchers when the document does not exist.
var ErrNotFound = errors.New("document not found")

const frontMatterDelimiter = "---"

// Document is one translatable entry. Summary is nil when the entry has none.
type Document struct {
	ID      string
	Title   string
	Summary *string
	Content string

	// frontMatter is the parsed mapping node, kept so Render can preserve
	// keys other than title and summary.
	frontMatter *yaml.Node
}

// Fetcher retrieves documents by identifier.
type Fetcher interface {
	FetchDocument(ctx context.Context, id string) (*Document, error)
}

// WithTranslation returns a copy of d carrying translated fields.
func (d *Document) WithTranslation(title string, summary *string, content string) *Document {
	cp := *d
	cp.Title = title
	cp.Summary = summary
	cp.Content = content
	return &cp
}

// Parse splits Markdown with optional YAML front matter into a Document.
// Only a front matter block that opens on the very first line is
// recognized; anything else is content.
func Parse(id string, data []byte) (*Document, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	doc := &Document{ID: id, Content: text}

	yamlText, body, ok := splitFrontMatter(text)
	if !ok {
		return doc, nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(yamlText), &root); err != nil {
		return nil, fmt.Errorf("failed to parse front matter: %w", err)
	}
	mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if len(root.Content) > 0 {
		if root.Content[0].Kind != yaml.MappingNode {
			return nil, fmt.Errorf("front matter must be a mapping")
		}
		mapping = root.Content[0]
	}

	doc.frontMatter = mapping
	doc.Content = strings.TrimLeft(body, "\n")
	if v := lookup(mapping, "title"); v != nil {
		doc.Title = v.Value
	}
	if v := lookup(mapping, "summary"); v != nil {
		s := v.Value
		doc.Summary = &s
	}
	return doc, nil
}

func splitFrontMatter(text string) (string, string, bool) {
	first, rest, found := strings.Cut(text, "\n")
	if !found || strings.TrimSpace(first) != frontMatterDelimiter {
		return "", "", false
	}
	var fm strings.Builder
	for rest != "" {
		var line string
		line, rest, _ = strings.Cut(rest, "\n")
		if strings.TrimSpace(line) == frontMatterDelimiter {
			return fm.String(), rest, true
		}
		fm.WriteString(line)
		fm.WriteByte('\n')
	}
	return "", "", false
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func set(mapping *yaml.Node, key, value string) {
	if v := lookup(mapping, key); v != nil {
		v.Kind = yaml.ScalarNode
		v.Tag = "!!str"
		v.Value = value
		v.Style = 0
		v.Content = nil
		return
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
}

func cloneNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	cp := *n
	if n.Content != nil {
		cp.Content = make([]*yaml.Node, len(n.Content))
		for i, c := range n.Content {
			cp.Content[i] = cloneNode(c)
		}
	}
	return &cp
}

// Render writes d as Markdown. The front matter keeps every key of the
// source document, with title and summary replaced by d's values.
func Render(d *Document) ([]byte, error) {
	mapping := cloneNode(d.frontMatter)
	if mapping == nil {
		if d.Title == "" && d.Summary == nil {
			return []byte(d.Content), nil
		}
		mapping = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	if d.Title != "" || lookup(mapping, "title") != nil {
		set(mapping, "title", d.Title)
	}
	if d.Summary != nil {
		set(mapping, "summary", *d.Summary)
	}
	if len(mapping.Content) == 0 {
		return []byte(d.Content), nil
	}

	var fm bytes.Buffer
	enc := yaml.NewEncoder(&fm)
	enc.SetIndent(2)
	if err := enc.Encode(mapping); err != nil {
		return nil, fmt.Errorf("failed to encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode front matter: %w", err)
	}

	var out bytes.Buffer
	out.WriteString(frontMatterDelimiter + "\n")
	out.Write(fm.Bytes())
	out.WriteString(frontMatterDelimiter + "\n\n")
	out.WriteString(d.Content)
	if !strings.HasSuffix(d.Content, "\n") {
		out.WriteByte('\n')
	}
	return out.Bytes(), nil
}
