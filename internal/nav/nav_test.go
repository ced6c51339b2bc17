package nav

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

func exportTree(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"docs/teamwiki/teamwiki.md":                  "## Team Wiki\n\nHello\n",
		"docs/teamwiki/runbook/runbook.md":           "## Runbook *ops*\n\n```python\n#demo\nprint(1)\n```\n",
		"docs/teamwiki/faq/faq.md":                   "No heading here.\n",
		"docs/teamwiki/.hidden/secret.md":            "## Hidden\n",
		"docs/teamwiki/assets/readme.txt":            "not markdown",
		"docs/teamwiki/runbook/oncall/oncall.md":     "# On-call\n",
		"docs/teamwiki/runbook/oncall/escalation.md": "## Escalation\n",
	}
	for name, body := range files {
		if err := afero.WriteFile(fs, name, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return fs
}

func TestGenerate_SectionsAndIndexes(t *testing.T) {
	entries, err := Generate(exportTree(t), "docs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Title != "Team Wiki" || !entries[0].IsSection() {
		t.Fatalf("expected a single Team Wiki section, got %+v", entries)
	}

	wiki := entries[0].Children
	if len(wiki) != 3 {
		t.Fatalf("expected index plus two sections, got %+v", wiki)
	}
	if wiki[0].Title != IndexTitle || wiki[0].Path != "teamwiki/teamwiki.md" {
		t.Errorf("expected index entry first, got %+v", wiki[0])
	}
	// Sorted by directory name; faq has no heading so keeps its name.
	if wiki[1].Title != "faq" {
		t.Errorf("expected faq section titled by directory, got %q", wiki[1].Title)
	}
	if wiki[2].Title != "Runbook ops" {
		t.Errorf("expected runbook section titled by its heading, got %q", wiki[2].Title)
	}

	runbook := wiki[2].Children
	if len(runbook) != 2 || runbook[0].Title != IndexTitle || runbook[1].Title != "On-call" {
		t.Fatalf("unexpected runbook children: %+v", runbook)
	}
	oncall := runbook[1].Children
	if oncall[0].Title != "escalation" || oncall[0].Path != "teamwiki/runbook/oncall/escalation.md" {
		t.Errorf("unexpected plain page entry: %+v", oncall[0])
	}
	if oncall[1].Title != IndexTitle {
		t.Errorf("expected oncall index, got %+v", oncall[1])
	}
}

func TestGenerate_HomeIsFirstRootFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, name := range []string{"site/b.md", "site/a.md", "site/sub/sub.md"} {
		if err := afero.WriteFile(fs, name, []byte("# x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := Generate(fs, "site")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %+v", entries)
	}
	if entries[0].Title != HomeTitle || entries[0].Path != "a.md" {
		t.Errorf("expected Home to be a.md, got %+v", entries[0])
	}
	if entries[1].Title != "b" || entries[1].Path != "b.md" {
		t.Errorf("unexpected second entry %+v", entries[1])
	}
	if entries[2].Title != "x" || entries[2].Children[0].Title != IndexTitle {
		t.Errorf("unexpected section %+v", entries[2])
	}
}

func TestGenerate_MissingRoot(t *testing.T) {
	if _, err := Generate(afero.NewMemMapFs(), "nowhere"); err == nil {
		t.Error("expected error for missing content root")
	}
}

func TestReplacePlaceholders(t *testing.T) {
	vars := map[string]string{
		"MKDOCS_SITE":      "https://docs.example.com",
		"MKDOCS_SITE_NAME": "Team Docs",
	}
	got := ReplacePlaceholders("name: MKDOCS_SITE_NAME\nurl: MKDOCS_SITE\n", vars)
	if got != "name: Team Docs\nurl: https://docs.example.com\n" {
		t.Errorf("unexpected substitution:\n%s", got)
	}
}

const mkdocsTemplate = `site_name: MKDOCS_SITE_NAME
site_url: MKDOCS_SITE
theme:
  name: material
nav:
  - Old: old.md
markdown_extensions:
  - pymdownx.emoji:
      emoji_index: !!python/name:material.extensions.emoji.twemoji
`

func TestUpdateMkdocs(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "mkdocs.yml", []byte(mkdocsTemplate), 0o644); err != nil {
		t.Fatal(err)
	}
	entries := []Entry{
		{Title: HomeTitle, Path: "index.md"},
		{Title: "Team Wiki", Children: []Entry{{Title: IndexTitle, Path: "teamwiki/teamwiki.md"}}},
	}
	vars := map[string]string{"MKDOCS_SITE_NAME": "Team Docs", "MKDOCS_SITE": "https://docs.example.com"}

	if err := UpdateMkdocs(fs, "mkdocs.yml", entries, vars); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := afero.ReadFile(fs, "mkdocs.yml")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "!!python/name:material.extensions.emoji.twemoji") {
		t.Errorf("expected custom tag to survive:\n%s", out)
	}
	if strings.Contains(string(out), "old.md") {
		t.Errorf("expected previous nav to be replaced:\n%s", out)
	}

	var cfg struct {
		SiteName string `yaml:"site_name"`
		SiteURL  string `yaml:"site_url"`
		Theme    struct {
			Name string `yaml:"name"`
		} `yaml:"theme"`
		Nav []map[string]any `yaml:"nav"`
	}
	if err := yaml.Unmarshal(out, &cfg); err != nil {
		t.Fatalf("decode updated config: %v\n%s", err, out)
	}
	if cfg.SiteName != "Team Docs" || cfg.SiteURL != "https://docs.example.com" || cfg.Theme.Name != "material" {
		t.Errorf("unexpected config values: %+v", cfg)
	}
	if len(cfg.Nav) != 2 || cfg.Nav[0][HomeTitle] != "index.md" {
		t.Fatalf("unexpected nav: %+v", cfg.Nav)
	}
	section, ok := cfg.Nav[1]["Team Wiki"].([]any)
	if !ok || len(section) != 1 {
		t.Fatalf("expected Team Wiki section, got %+v", cfg.Nav[1])
	}
	if idx, _ := section[0].(map[string]any); idx[IndexTitle] != "teamwiki/teamwiki.md" {
		t.Errorf("unexpected section entry %+v", section[0])
	}
}

func TestUpdateMkdocs_AddsNavWhenAbsent(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "mkdocs.yml", []byte("site_name: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := UpdateMkdocs(fs, "mkdocs.yml", []Entry{{Title: HomeTitle, Path: "a.md"}}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, _ := afero.ReadFile(fs, "mkdocs.yml")
	if !strings.Contains(string(out), "nav:\n  - Home: a.md") {
		t.Errorf("expected nav to be appended:\n%s", out)
	}
}

func TestUpdateMkdocs_RejectsNonMapping(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "mkdocs.yml", []byte("- a\n- b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := UpdateMkdocs(fs, "mkdocs.yml", nil, nil); err == nil {
		t.Error("expected error for a non-mapping document")
	}
}
