package doctree

import "strings"

// FragmentKind distinguishes the page title fragment and the synthetic
// changelog from ordinary block content.
type FragmentKind string

const (
	KindContent   FragmentKind = "content"
	KindPage      FragmentKind = "page"
	KindChangelog FragmentKind = "changelog"
)

// Ref is the target of a cross-page link, resolved at render time.
type Ref struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Fragment is a unit of rendered markdown with its destination hint.
type Fragment struct {
	SourceID string       `json:"source_id"`
	Type     BlockType    `json:"type"`
	Kind     FragmentKind `json:"kind"`
	Markdown string       `json:"markdown"`
	Path     string       `json:"path"` // slash-joined page ancestor ids

	Title string `json:"title,omitempty"` // page fragments
	Root  bool   `json:"root,omitempty"`  // page fragment of the crawl root
	Ref   *Ref   `json:"ref,omitempty"`   // cross-page links
}

// Segments splits Path into its ids.
func (f Fragment) Segments() []string {
	return SplitPath(f.Path)
}

// Depth is the number of path segments.
func (f Fragment) Depth() int {
	return len(f.Segments())
}

// IsPage reports whether the fragment opens a page file.
func (f Fragment) IsPage() bool {
	return f.Kind == KindPage
}

// SplitPath splits a slash-joined path, dropping empty segments.
func SplitPath(p string) []string {
	if p == "" {
		return nil
	}
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// JoinPath joins path segments with slashes.
func JoinPath(segments ...string) string {
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "/")
}
