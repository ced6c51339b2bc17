// Package nav builds an MkDocs navigation tree from an exported content
// directory and writes it into mkdocs.yml.
package nav

import (
	"bytes"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// HomeTitle is the title given to the first root-level page.
const HomeTitle = "Home"

// IndexTitle is the title of a section's own page.
const IndexTitle = "index"

// Entry is one navigation node: a page (Path set) or a section (Children set).
type Entry struct {
	Title    string
	Path     string
	Children []Entry
}

// IsSection reports whether the entry groups other entries.
func (e Entry) IsSection() bool {
	return e.Path == "" && len(e.Children) > 0
}

// Generate walks contentRoot. The first markdown file at the top level
// becomes Home; a file named after its directory becomes that section's
// index; sections are titled by the first heading of their own page.
func Generate(fs afero.Fs, contentRoot string) ([]Entry, error) {
	return generate(fs, contentRoot, contentRoot, true)
}

func generate(fs afero.Fs, root, dir string, isRoot bool) ([]Entry, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var dirs, files []string
	for _, info := range infos {
		name := info.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		switch {
		case info.IsDir():
			dirs = append(dirs, name)
		case strings.HasSuffix(name, ".md"):
			files = append(files, name)
		}
	}
	sort.Strings(dirs)
	sort.Strings(files)

	var entries []Entry
	if isRoot && len(files) > 0 {
		rel, err := relative(root, filepath.Join(dir, files[0]))
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Title: HomeTitle, Path: rel})
		files = files[1:]
	}

	base := filepath.Base(dir)
	for _, f := range files {
		rel, err := relative(root, filepath.Join(dir, f))
		if err != nil {
			return nil, err
		}
		title := strings.TrimSuffix(f, ".md")
		if title == base {
			title = IndexTitle
		}
		entries = append(entries, Entry{Title: title, Path: rel})
	}

	for _, d := range dirs {
		sub := filepath.Join(dir, d)
		children, err := generate(fs, root, sub, false)
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			continue
		}
		title := d
		if h := firstHeading(fs, filepath.Join(sub, d+".md")); h != "" {
			title = h
		}
		entries = append(entries, Entry{Title: title, Children: children})
	}
	return entries, nil
}

func relative(root, name string) (string, error) {
	rel, err := filepath.Rel(root, name)
	if err != nil {
		return "", fmt.Errorf("relative path of %s: %w", name, err)
	}
	return path.Clean(filepath.ToSlash(rel)), nil
}

// firstHeading returns the text of the first heading in name, or "" when the
// file is missing or has no heading.
func firstHeading(fs afero.Fs, name string) string {
	src, err := afero.ReadFile(fs, name)
	if err != nil {
		return ""
	}
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			return extractText(h, src)
		}
	}
	return ""
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
