// Package materialize resolves fragment id paths into human-readable
// directories and writes the markdown tree.
package materialize

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/doctree"
)

// DefaultRootName names the output directory when no root name can be derived.
const DefaultRootName = "export"

// Materializer writes rendered fragments to a filesystem.
type Materializer struct {
	fs     afero.Fs
	log    *slog.Logger
	rootID string
}

type Option func(*Materializer)

func WithLogger(log *slog.Logger) Option {
	return func(m *Materializer) { m.log = log }
}

// WithRootID names the crawl root so it can be recognized, and named, even
// when it is not a page.
func WithRootID(id string) Option {
	return func(m *Materializer) { m.rootID = id }
}

func New(fs afero.Fs, opts ...Option) *Materializer {
	m := &Materializer{
		fs:  fs,
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Result describes what a Materialize call wrote.
type Result struct {
	RootName      string
	Files         []string // relative to the output root, in first-write order
	Fragments     int
	LinksResolved int
	LinksExternal int
	Elided        int // path segments that did not resolve to a page name
}

// resolved is a fragment with its destination directory as name segments.
type resolved struct {
	doctree.Fragment
	dir   []string
	depth int
}

func (r resolved) file() string {
	return path.Join(path.Join(r.dir...), r.dir[len(r.dir)-1]+".md")
}

// Materialize writes frags below outputRoot. Page fragments create their
// file; every other fragment is appended to the file of its nearest page.
func (m *Materializer) Materialize(frags []doctree.Fragment, outputRoot string) (*Result, error) {
	idx := m.buildIndex(frags)
	res := &Result{RootName: idx.rootName}

	out := make([]resolved, 0, len(frags))
	for _, f := range frags {
		r, elided := idx.resolve(f)
		res.Elided += elided
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].depth < out[j].depth })

	written := make(map[string]bool)
	for _, r := range out {
		md := r.Markdown
		if r.Ref != nil {
			if link, ok := idx.link(r); ok {
				md = link
				res.LinksResolved++
			} else {
				res.LinksExternal++
			}
		}

		rel := r.file()
		if err := m.write(filepath.Join(outputRoot, filepath.FromSlash(rel)), md, r.IsPage(), written[rel]); err != nil {
			return res, err
		}
		if !written[rel] {
			written[rel] = true
			res.Files = append(res.Files, rel)
		}
		res.Fragments++
	}

	m.log.Info("materialize complete",
		"root", res.RootName,
		"files", len(res.Files),
		"fragments", res.Fragments,
		"links_resolved", res.LinksResolved,
	)
	return res, nil
}

// write creates (page) or appends to (content) name. Appended blocks are
// separated from earlier content by a blank line.
func (m *Materializer) write(name, md string, page, exists bool) error {
	if err := m.fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", name, err)
	}

	flag := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if page && !exists {
		flag = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	f, err := m.fs.OpenFile(name, flag, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	if exists {
		md = "\n" + md
	}
	if _, err := f.WriteString(md + "\n"); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// index maps normalized page ids to their names and directories.
type index struct {
	rootName string
	names    map[string]string
	dirs     map[string][]string
	log      *slog.Logger
}

func (m *Materializer) buildIndex(frags []doctree.Fragment) *index {
	idx := &index{
		names: make(map[string]string),
		dirs:  make(map[string][]string),
		log:   m.log,
	}

	var pages []doctree.Fragment
	for _, f := range frags {
		if f.IsPage() {
			pages = append(pages, f)
		}
	}
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Depth() < pages[j].Depth() })

	root, ok := m.findRoot(pages)
	switch {
	case ok:
		idx.rootName = nameFor(root.Title, root.SourceID)
		key := doctree.NormalizeID(root.SourceID)
		idx.names[key] = idx.rootName
		idx.dirs[key] = []string{idx.rootName}
	case m.rootID != "":
		idx.rootName = doctree.NormalizeID(m.rootID)
		idx.names[idx.rootName] = idx.rootName
	default:
		idx.rootName = DefaultRootName
	}

	taken := make(map[string]bool)
	for _, p := range pages {
		key := doctree.NormalizeID(p.SourceID)
		if _, done := idx.dirs[key]; done {
			continue
		}
		parent, _ := idx.resolveSegments(p.Segments())
		name := nameFor(p.Title, p.SourceID)
		slot := path.Join(path.Join(parent...), name)
		if taken[slot] {
			name = name + "_" + shortID(p.SourceID)
			slot = path.Join(path.Join(parent...), name)
			idx.log.Warn("duplicate page name, disambiguating", "page_id", p.SourceID, "name", name)
		}
		taken[slot] = true
		idx.names[key] = name
		idx.dirs[key] = append(append([]string(nil), parent...), name)
	}
	return idx
}

// findRoot picks the crawl root's page fragment.
func (m *Materializer) findRoot(pages []doctree.Fragment) (doctree.Fragment, bool) {
	for _, p := range pages {
		if p.Root {
			return p, true
		}
	}
	if m.rootID != "" {
		for _, p := range pages {
			if doctree.SameID(p.SourceID, m.rootID) {
				return p, true
			}
		}
		return doctree.Fragment{}, false
	}
	for _, p := range pages {
		if p.Path == "" {
			return p, true
		}
	}
	return doctree.Fragment{}, false
}

// resolveSegments maps id segments to names, eliding ids outside the index. An
// empty result resolves to the root.
func (idx *index) resolveSegments(segments []string) ([]string, int) {
	out := make([]string, 0, len(segments))
	elided := 0
	for _, s := range segments {
		name, ok := idx.names[doctree.NormalizeID(s)]
		if !ok {
			idx.log.Debug("eliding unresolved path segment", "id", s)
			elided++
			continue
		}
		out = append(out, name)
	}
	if len(out) == 0 {
		out = append(out, idx.rootName)
	}
	return out, elided
}

func (idx *index) resolve(f doctree.Fragment) (resolved, int) {
	if f.IsPage() {
		if dir, ok := idx.dirs[doctree.NormalizeID(f.SourceID)]; ok {
			return resolved{Fragment: f, dir: dir, depth: len(dir) - 1}, 0
		}
	}
	dir, elided := idx.resolveSegments(f.Segments())
	return resolved{Fragment: f, dir: dir, depth: len(dir)}, elided
}

// link rewrites a cross-page link whose target is part of this export into a
// relative link.
func (idx *index) link(r resolved) (string, bool) {
	target, ok := idx.dirs[doctree.NormalizeID(r.Ref.ID)]
	if !ok {
		return "", false
	}
	rel := RelativePath(path.Join(r.dir...), path.Join(target...)) + "/" + target[len(target)-1] + ".md"
	return fmt.Sprintf("[%s](%s)", r.Ref.Title, rel), true
}

func nameFor(title, id string) string {
	if name := Normalize(title); name != "" {
		return name
	}
	return doctree.NormalizeID(id)
}

func shortID(id string) string {
	n := doctree.NormalizeID(id)
	return n[:min(8, len(n))]
}

// Tree lists every file below root, slash-separated and relative to root.
func Tree(fs afero.Fs, root string) ([]string, error) {
	var files []string
	err := afero.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(files)
	return files, err
}
