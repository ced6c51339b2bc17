// Command notion-export mirrors a Notion page hierarchy into a markdown
// directory tree suitable for MkDocs.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/spf13/afero"

	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/api"
	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/config"
	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/crawler"
	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/materialize"
	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/nav"
	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/notion"
	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/pipeline"
)

// CLI defines the command-line interface. Flags override the environment.
var CLI struct {
	OutputsDir string `name:"outputs-dir" short:"o" help:"Directory the export is written to (env OUTPUTS_DIR)"`
	LogLevel   string `name:"log-level" short:"l" help:"Log level (env LOG_LEVEL)"`
	LogFormat  string `name:"log-format" help:"Log format (env LOG_FORMAT)"`

	Export ExportCmd `cmd:"" help:"Export a page and everything below it"`
	Nav    NavCmd    `cmd:"" help:"Regenerate the mkdocs.yml nav from the outputs directory"`
	Serve  ServeCmd  `cmd:"" help:"Run the export HTTP service"`
}

// ExportCmd runs one export synchronously.
type ExportCmd struct {
	PageID         string `name:"page-id" short:"p" required:"" help:"Root page id"`
	Nav            bool   `name:"nav" help:"Update the mkdocs.yml nav after writing"`
	ExternalParent string `name:"external-parent" help:"Handling of the root's parent outside the export (env EXTERNAL_PARENT_POLICY)"`
}

func (c *ExportCmd) Run(cfg *config.Config, log *slog.Logger) error {
	if c.ExternalParent != "" {
		cfg.ExternalParentPolicy = c.ExternalParent
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	client := newClient(cfg)
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exp := pipeline.NewExporter(client, afero.NewOsFs(), log, exporterOptions(cfg))
	job := pipeline.NewJob(c.PageID, c.Nav)
	res, err := exp.Run(ctx, job)
	printSummary(job.Snapshot(), res)
	return err
}

// NavCmd rebuilds the nav section without contacting Notion.
type NavCmd struct {
	MkdocsYML string `name:"mkdocs-yml" help:"Path to mkdocs.yml (env MKDOCS_YML_PATH)"`
}

func (c *NavCmd) Run(cfg *config.Config, log *slog.Logger) error {
	if c.MkdocsYML != "" {
		cfg.MkdocsYMLPath = c.MkdocsYML
	}
	fs := afero.NewOsFs()
	entries, err := nav.Generate(fs, cfg.OutputsDir)
	if err != nil {
		return err
	}
	if err := nav.UpdateMkdocs(fs, cfg.MkdocsYMLPath, entries, cfg.MkdocsVars); err != nil {
		return err
	}
	log.Info("nav updated", "mkdocs_yml", cfg.MkdocsYMLPath, "entries", len(entries))
	return nil
}

// ServeCmd runs the queued export service.
type ServeCmd struct {
	Port string `name:"port" help:"Listen port (env PORT)"`
}

func (c *ServeCmd) Run(cfg *config.Config, log *slog.Logger) error {
	if c.Port != "" {
		cfg.Port = c.Port
	}
	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := newClient(cfg)
	fs := afero.NewOsFs()

	exp := pipeline.NewExporter(client, fs, log, exporterOptions(cfg))
	orch := pipeline.NewOrchestrator(exp, cfg.MaxQueueSize, cfg.JobTTL, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, fs, log, *cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		// Stop accepting submissions before the queue is closed.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		client.Close()
	}()

	log.Info("starting notion-export", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("notion-export"),
		kong.Description("Export a Notion page hierarchy to markdown for MkDocs"),
		kong.UsageOnError(),
	)

	cfg := config.Load()
	if CLI.OutputsDir != "" {
		cfg.OutputsDir = CLI.OutputsDir
	}
	if CLI.LogLevel != "" {
		cfg.LogLevel = CLI.LogLevel
	}
	if CLI.LogFormat != "" {
		cfg.LogFormat = CLI.LogFormat
	}

	log := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	err := ctx.Run(&cfg, log)
	ctx.FatalIfErrorf(err)
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newClient(cfg *config.Config) *notion.Client {
	return notion.NewClient(cfg.NotionAPIURL, cfg.NotionToken,
		notion.WithVersion(cfg.NotionVersion),
		notion.WithRequestDelay(cfg.NotionRequestDelay),
		notion.WithPageSize(cfg.NotionPageSize),
		notion.WithHTTPClient(&http.Client{Timeout: cfg.NotionHTTPTimeout}),
	)
}

func exporterOptions(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		OutputsDir:           cfg.OutputsDir,
		ExternalParentPolicy: crawler.ExternalParentPolicy(cfg.ExternalParentPolicy),
		MkdocsYMLPath:        cfg.MkdocsYMLPath,
		MkdocsVars:           cfg.MkdocsVars,
	}
}

func printSummary(snap pipeline.JobSnapshot, res *materialize.Result) {
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)

	if snap.Status == pipeline.StatusCompleted {
		green.Printf("✓ Export of %s completed\n", snap.PageID)
	} else {
		red.Printf("✗ Export of %s failed during %s\n", snap.PageID, snap.Phase)
		for _, e := range snap.Progress.Errors {
			red.Printf("  %s\n", e)
		}
	}

	cyan.Printf("  items crawled:      %d\n", snap.Progress.ItemsCrawled)
	cyan.Printf("  fragments rendered: %d\n", snap.Progress.FragmentsRendered)
	cyan.Printf("  items dropped:      %d\n", snap.Progress.ItemsDropped)
	if res == nil {
		return
	}
	cyan.Printf("  files written:      %d\n", len(res.Files))
	cyan.Printf("  links resolved:     %d (%d external)\n", res.LinksResolved, res.LinksExternal)
	if res.Elided > 0 {
		gray.Printf("  path segments elided: %d\n", res.Elided)
	}
	gray.Printf("  root directory:     %s\n", res.RootName)
}
