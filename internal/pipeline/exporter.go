package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/crawler"
	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/materialize"
	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/nav"
	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/render"
)

// Source is the remote content API an export reads from.
type Source interface {
	crawler.Source
	render.PageFetcher
}

// Options configures an Exporter.
type Options struct {
	OutputsDir           string
	ExternalParentPolicy crawler.ExternalParentPolicy
	MkdocsYMLPath        string
	MkdocsVars           map[string]string
}

// Exporter runs the export phases strictly in sequence: crawl, render,
// write, then optionally navigation.
type Exporter struct {
	src  Source
	fs   afero.Fs
	log  *slog.Logger
	opts Options
}

func NewExporter(src Source, fs afero.Fs, log *slog.Logger, opts Options) *Exporter {
	return &Exporter{
		src:  src,
		fs:   fs,
		log:  log,
		opts: opts,
	}
}

// Run executes job. A failed phase leaves whatever earlier phases wrote.
func (e *Exporter) Run(ctx context.Context, job *Job) (*materialize.Result, error) {
	log := e.log.With("job_id", job.ID, "page_id", job.PageID)

	fail := func(phase string, err error) error {
		log.Error("export failed", "phase", phase, "error", err)
		job.AddError(fmt.Sprintf("%s: %s", phase, err))
		job.SetStatus(StatusFailed, phase)
		return err
	}

	// The output location is checked before anything is fetched.
	if err := materialize.PrepareOutputDir(e.fs, e.opts.OutputsDir); err != nil {
		return nil, fail("preparing", err)
	}

	// Phase 1: Crawl
	job.SetStatus(StatusCrawling, "crawling")
	c := crawler.New(e.src,
		crawler.WithLogger(log),
		crawler.WithExternalParentPolicy(e.opts.ExternalParentPolicy),
	)
	items, err := c.Crawl(ctx, job.PageID)
	job.SetCrawled(len(items))
	if err != nil {
		return nil, fail("crawling", err)
	}

	// Phase 2: Render
	job.SetStatus(StatusRendering, "rendering")
	frags, stats, err := render.New(e.src, render.WithLogger(log)).RenderAll(ctx, items)
	job.SetRendered(stats.Fragments, stats.Dropped)
	if err != nil {
		return nil, fail("rendering", err)
	}
	if stats.Dropped > 0 {
		log.Warn("items dropped during render", "dropped", stats.Dropped, "items", stats.Items)
	}

	// Phase 3: Write
	job.SetStatus(StatusWriting, "writing")
	m := materialize.New(e.fs,
		materialize.WithLogger(log),
		materialize.WithRootID(job.PageID),
	)
	res, err := m.Materialize(frags, e.opts.OutputsDir)
	if res != nil {
		job.SetWritten(res.RootName, len(res.Files), res.LinksResolved)
	}
	if err != nil {
		return res, fail("writing", err)
	}

	// Phase 4: Navigation
	if job.Nav {
		job.SetStatus(StatusNavigating, "navigating")
		if err := e.updateNav(); err != nil {
			return res, fail("navigating", err)
		}
	}

	job.SetStatus(StatusCompleted, "done")
	log.Info("export completed",
		"root", res.RootName,
		"items", len(items),
		"files", len(res.Files),
		"dropped", stats.Dropped,
	)
	return res, nil
}

func (e *Exporter) updateNav() error {
	entries, err := nav.Generate(e.fs, e.opts.OutputsDir)
	if err != nil {
		return fmt.Errorf("generate nav: %w", err)
	}
	return nav.UpdateMkdocs(e.fs, e.opts.MkdocsYMLPath, entries, e.opts.MkdocsVars)
}
