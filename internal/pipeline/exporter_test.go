package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"

	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/crawler"
	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/materialize"
	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/notion"
)

const (
	rootID    = "11111111111111111111111111111111"
	runbookID = "22222222222222222222222222222222"
	outsideID = "99999999999999999999999999999999"
)

// memSource is an in-memory content API.
type memSource struct {
	mu       sync.Mutex
	blocks   map[string]notion.Block
	children map[string][]string
	pages    map[string]*notion.Page
	failOn   map[string]error
	calls    int
}

func newMemSource() *memSource {
	return &memSource{
		blocks:   make(map[string]notion.Block),
		children: make(map[string][]string),
		pages:    make(map[string]*notion.Page),
		failOn:   make(map[string]error),
	}
}

func (m *memSource) add(id, typ, parent string, payload any) {
	raw, _ := json.Marshal(payload)
	p := notion.Parent{Type: "page_id", PageID: parent}
	if pb, ok := m.blocks[parent]; ok && pb.Type != "child_page" {
		p = notion.Parent{Type: "block_id", BlockID: parent}
	}
	m.blocks[id] = notion.Block{
		Object:  "block",
		ID:      id,
		Type:    typ,
		Parent:  p,
		Payload: raw,
	}
	if pb, ok := m.blocks[parent]; ok {
		pb.HasChildren = true
		m.blocks[parent] = pb
	}
	m.children[parent] = append(m.children[parent], id)
}

func (m *memSource) GetBlock(_ context.Context, id string) (*notion.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := m.failOn[id]; err != nil {
		return nil, err
	}
	b, ok := m.blocks[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *memSource) ListChildren(_ context.Context, id, _ string) (*notion.ChildrenPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	page := &notion.ChildrenPage{Object: "list"}
	for _, cid := range m.children[id] {
		page.Results = append(page.Results, m.blocks[cid])
	}
	return page, nil
}

func (m *memSource) GetPage(_ context.Context, id string) (*notion.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.pages[id], nil
}

func rich(s string) map[string]any {
	return map[string]any{
		"rich_text": []map[string]any{{"type": "text", "text": map[string]any{"content": s}, "plain_text": s}},
	}
}

func pageMeta(id, title string) *notion.Page {
	return &notion.Page{
		ID:        id,
		URL:       "https://www.notion.so/" + strings.ReplaceAll(title, " ", "-") + "-" + id,
		CreatedBy: notion.User{ID: "user-1", Name: "Grace"},
		Properties: map[string]notion.Property{
			"title": {Type: "title", Title: []notion.RichText{{Type: "text", PlainText: title}}},
		},
	}
}

// teamWikiSource serves a root page "Team Wiki" with a paragraph, a link to
// its child page, a link to a page outside the export, and the child page
// "Runbook" holding a captioned python block.
func teamWikiSource() *memSource {
	m := newMemSource()
	m.add(rootID, "child_page", outsideID, map[string]any{"title": "Team Wiki"})
	m.add("p1", "paragraph", rootID, rich("Hello"))
	m.add("l1", "link_to_page", rootID, map[string]any{"type": "page_id", "page_id": runbookID})
	m.add("l2", "link_to_page", rootID, map[string]any{"type": "page_id", "page_id": outsideID})
	m.add(runbookID, "child_page", rootID, map[string]any{"title": "Runbook"})
	m.add("k1", "code", runbookID, map[string]any{
		"rich_text": []map[string]any{{"type": "text", "text": map[string]any{"content": "print(1)"}, "plain_text": "print(1)"}},
		"caption":   []map[string]any{{"type": "text", "text": map[string]any{"content": "demo"}, "plain_text": "demo"}},
		"language":  "python",
	})
	m.add("t1", "table", runbookID, map[string]any{"table_width": 2})

	m.pages[rootID] = pageMeta(rootID, "Team Wiki")
	m.pages[runbookID] = pageMeta(runbookID, "Runbook")
	m.pages[outsideID] = pageMeta(outsideID, "Company Home")
	return m
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func read(t *testing.T, fs afero.Fs, name string) string {
	t.Helper()
	b, err := afero.ReadFile(fs, name)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(b)
}

func TestExporter_TeamWiki(t *testing.T) {
	for _, policy := range []crawler.ExternalParentPolicy{crawler.PolicyIgnore, crawler.PolicyPrepend} {
		t.Run(string(policy), func(t *testing.T) {
			fs := afero.NewMemMapFs()
			exp := NewExporter(teamWikiSource(), fs, quietLogger(), Options{
				OutputsDir:           "out",
				ExternalParentPolicy: policy,
			})
			job := NewJob(rootID, false)

			res, err := exp.Run(context.Background(), job)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			files, err := materialize.Tree(fs, "out")
			if err != nil {
				t.Fatal(err)
			}
			if strings.Join(files, ",") != "teamwiki/runbook/runbook.md,teamwiki/teamwiki.md" {
				t.Fatalf("unexpected files %v", files)
			}

			root := read(t, fs, "out/teamwiki/teamwiki.md")
			for _, want := range []string{
				"## Team Wiki\n",
				"\nHello\n",
				"| **Created by** | Grace |",
				"[Runbook](runbook/runbook.md)",
				"[Company Home](https://www.notion.so/Company-Home-" + outsideID + ")",
			} {
				if !strings.Contains(root, want) {
					t.Errorf("root file missing %q:\n%s", want, root)
				}
			}

			runbook := read(t, fs, "out/teamwiki/runbook/runbook.md")
			if !strings.HasPrefix(runbook, "## Runbook\n\n|   |   |") {
				t.Errorf("expected heading then changelog:\n%s", runbook)
			}
			if !strings.Contains(runbook, "```python\n#demo\nprint(1)\n```") {
				t.Errorf("expected captioned python block:\n%s", runbook)
			}

			snap := job.Snapshot()
			if snap.Status != StatusCompleted {
				t.Errorf("expected completed, got %q (%v)", snap.Status, snap.Progress.Errors)
			}
			if snap.Progress.ItemsCrawled != 7 || snap.Progress.ItemsDropped != 1 {
				t.Errorf("unexpected progress: %+v", snap.Progress)
			}
			if snap.Progress.FilesWritten != 2 || res.LinksResolved != 1 || res.LinksExternal != 1 {
				t.Errorf("unexpected write result: %+v / %+v", snap.Progress, res)
			}
		})
	}
}

func TestExporter_WithNav(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "mkdocs.yml", []byte("site_name: MKDOCS_SITE_NAME\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	exp := NewExporter(teamWikiSource(), fs, quietLogger(), Options{
		OutputsDir:    "docs",
		MkdocsYMLPath: "mkdocs.yml",
		MkdocsVars:    map[string]string{"MKDOCS_SITE_NAME": "Wiki"},
	})
	job := NewJob(rootID, true)
	if _, err := exp.Run(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	yml := read(t, fs, "mkdocs.yml")
	for _, want := range []string{"site_name: Wiki", "Team Wiki:", "index: teamwiki/teamwiki.md", "index: teamwiki/runbook/runbook.md"} {
		if !strings.Contains(yml, want) {
			t.Errorf("mkdocs.yml missing %q:\n%s", want, yml)
		}
	}
}

func TestExporter_OutputIsFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "out", []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	src := teamWikiSource()
	job := NewJob(rootID, false)
	_, err := NewExporter(src, fs, quietLogger(), Options{OutputsDir: "out"}).Run(context.Background(), job)
	if !errors.Is(err, materialize.ErrNotDirectory) {
		t.Fatalf("expected ErrNotDirectory, got %v", err)
	}
	if src.calls != 0 {
		t.Errorf("expected no fetches before the output check, got %d", src.calls)
	}
	if job.Snapshot().Status != StatusFailed {
		t.Errorf("expected failed job, got %q", job.Snapshot().Status)
	}
}

func TestExporter_RootNotFound(t *testing.T) {
	fs := afero.NewMemMapFs()
	job := NewJob("ghost", false)
	_, err := NewExporter(newMemSource(), fs, quietLogger(), Options{OutputsDir: "out"}).Run(context.Background(), job)
	if !errors.Is(err, crawler.ErrRootNotFound) {
		t.Fatalf("expected ErrRootNotFound, got %v", err)
	}
	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "crawling" || len(snap.Progress.Errors) != 1 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestExporter_ThrottlingAborts(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := teamWikiSource()
	src.failOn[runbookID] = notion.ErrRateLimited
	job := NewJob(rootID, false)

	_, err := NewExporter(src, fs, quietLogger(), Options{OutputsDir: "out"}).Run(context.Background(), job)
	if !errors.Is(err, notion.ErrRateLimited) {
		t.Fatalf("expected rate limit to abort the export, got %v", err)
	}
	if files, _ := materialize.Tree(fs, "out"); len(files) != 0 {
		t.Errorf("expected nothing written after a crawl failure, got %v", files)
	}
	if job.Snapshot().Progress.ItemsCrawled == 0 {
		t.Error("expected partial crawl count to be recorded")
	}
}

// throttledPages serves blocks normally but throttles every metadata request.
type throttledPages struct {
	*memSource
}

func (throttledPages) GetPage(context.Context, string) (*notion.Page, error) {
	return nil, notion.ErrRateLimited
}

func TestExporter_ThrottlingDuringRenderAborts(t *testing.T) {
	fs := afero.NewMemMapFs()
	job := NewJob(rootID, false)

	_, err := NewExporter(throttledPages{teamWikiSource()}, fs, quietLogger(), Options{OutputsDir: "out"}).Run(context.Background(), job)
	if !errors.Is(err, notion.ErrRateLimited) {
		t.Fatalf("expected rate limit to abort the export, got %v", err)
	}
	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "rendering" {
		t.Errorf("expected failure in the rendering phase, got %+v", snap)
	}
	if files, _ := materialize.Tree(fs, "out"); len(files) != 0 {
		t.Errorf("expected nothing written after a render failure, got %v", files)
	}
}

func TestExporter_ListsInsidePageUnderList(t *testing.T) {
	const (
		nestedRoot = "33333333333333333333333333333333"
		nestedPage = "44444444444444444444444444444444"
	)
	m := newMemSource()
	m.add(nestedRoot, "child_page", "", map[string]any{"title": "Root"})
	m.add("bl1", "bulleted_list_item", nestedRoot, rich("a"))
	m.add("bl2", "bulleted_list_item", "bl1", rich("b"))
	m.add(nestedPage, "child_page", "bl2", map[string]any{"title": "A One"})
	m.add("bl3", "bulleted_list_item", nestedPage, rich("x"))
	m.add("bl4", "bulleted_list_item", "bl3", rich("y"))

	fs := afero.NewMemMapFs()
	if _, err := NewExporter(m, fs, quietLogger(), Options{OutputsDir: "out"}).Run(context.Background(), NewJob(nestedRoot, false)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if root := read(t, fs, "out/root/root.md"); !strings.Contains(root, "\n- a\n\n    - b\n") {
		t.Errorf("unexpected root lists:\n%q", root)
	}
	page := read(t, fs, "out/root/aone/aone.md")
	if !strings.Contains(page, "\n- x\n\n    - y\n") {
		t.Errorf("expected lists to restart at the nested page:\n%q", page)
	}
}
