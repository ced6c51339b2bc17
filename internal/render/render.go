// Package render turns crawled items into markdown fragments, one rule per
// block type.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/doctree"
	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/notion"
)

// PageTitleLevel is the heading level of a page's title fragment.
const PageTitleLevel = 2

// HeadingShift is added to block heading levels so they nest below the page title.
const HeadingShift = 1

// ErrUnsupportedType is reported for block types without a render rule.
var ErrUnsupportedType = errors.New("unsupported block type")

// PageFetcher retrieves page metadata for changelogs and cross-page links.
type PageFetcher interface {
	GetPage(ctx context.Context, id string) (*notion.Page, error)
}

// Renderer dispatches items to their type's rule.
type Renderer struct {
	pages PageFetcher
	log   *slog.Logger
}

type Option func(*Renderer)

func WithLogger(log *slog.Logger) Option {
	return func(r *Renderer) { r.log = log }
}

func New(pages PageFetcher, opts ...Option) *Renderer {
	r := &Renderer{
		pages: pages,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Stats summarizes a RenderAll run.
type Stats struct {
	Items     int
	Fragments int
	Dropped   int
}

type rule func(ctx context.Context, it doctree.Item) ([]doctree.Fragment, error)

func (r *Renderer) ruleFor(t doctree.BlockType) rule {
	switch t {
	case doctree.TypeChildPage:
		return r.page
	case doctree.TypeParagraph:
		return r.paragraph
	case doctree.TypeHeading1, doctree.TypeHeading2, doctree.TypeHeading3:
		return r.heading
	case doctree.TypeCode:
		return r.code
	case doctree.TypeQuote:
		return r.quote
	case doctree.TypeCallout:
		return r.callout
	case doctree.TypeImage:
		return r.image
	case doctree.TypeBookmark, doctree.TypeEmbed:
		return r.bookmark
	case doctree.TypeBulletedListItem, doctree.TypeNumberedListItem:
		return r.listItem
	case doctree.TypeToDo:
		return r.toDo
	case doctree.TypeDivider:
		return r.divider
	case doctree.TypeLinkToPage:
		return r.linkToPage
	default:
		return nil
	}
}

// Render produces the fragments for one item. Items that cannot be rendered
// are logged and yield nothing. The returned error is non-nil only when the
// export must stop: the API throttled a request or ctx is done.
func (r *Renderer) Render(ctx context.Context, it doctree.Item) ([]doctree.Fragment, error) {
	frags, err := r.render(ctx, it)
	if err != nil {
		var perr *PayloadError
		switch {
		case fatal(err):
			return nil, fmt.Errorf("render %s %s: %w", it.Type, it.ID, err)
		case errors.Is(err, ErrUnsupportedType):
			r.log.Warn("dropping block", "block_id", it.ID, "type", it.Type, "error", err)
		case errors.As(err, &perr):
			r.log.Warn("dropping block with invalid payload", "block_id", it.ID, "type", it.Type, "error", perr.Err)
		default:
			r.log.Error("render failed", "block_id", it.ID, "type", it.Type, "error", err)
		}
		return nil, nil
	}
	return frags, nil
}

func fatal(err error) bool {
	return errors.Is(err, notion.ErrRateLimited) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (r *Renderer) render(ctx context.Context, it doctree.Item) ([]doctree.Fragment, error) {
	fn := r.ruleFor(it.Type)
	if fn == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, it.Type)
	}
	return fn(ctx, it)
}

// RenderAll renders items in order. It stops at the first error Render
// reports, returning what was rendered so far.
func (r *Renderer) RenderAll(ctx context.Context, items []doctree.Item) ([]doctree.Fragment, Stats, error) {
	var (
		out   []doctree.Fragment
		stats Stats
	)
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return out, stats, err
		}
		stats.Items++
		frags, err := r.Render(ctx, it)
		if err != nil {
			return out, stats, err
		}
		if len(frags) == 0 {
			stats.Dropped++
			continue
		}
		stats.Fragments += len(frags)
		out = append(out, frags...)
	}
	return out, stats, nil
}

func content(it doctree.Item, md string) []doctree.Fragment {
	return []doctree.Fragment{{
		SourceID: it.ID,
		Type:     it.Type,
		Kind:     doctree.KindContent,
		Markdown: md,
		Path:     it.PagePath(),
	}}
}

func (r *Renderer) page(ctx context.Context, it doctree.Item) ([]doctree.Fragment, error) {
	var p childPagePayload
	if err := decodePayload(it, &p); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = "Untitled"
	}
	frags := []doctree.Fragment{{
		SourceID: it.ID,
		Type:     it.Type,
		Kind:     doctree.KindPage,
		Markdown: Heading(title, PageTitleLevel),
		Path:     it.PagePath(),
		Title:    title,
		Root:     it.IsRoot(),
	}}

	meta, err := r.pages.GetPage(ctx, it.ID)
	switch {
	case fatal(err):
		return nil, fmt.Errorf("fetch page metadata %s: %w", it.ID, err)
	case err != nil:
		r.log.Warn("changelog unavailable", "page_id", it.ID, "error", err)
		return frags, nil
	case meta == nil:
		r.log.Warn("changelog unavailable", "page_id", it.ID, "error", "page metadata not found")
		return frags, nil
	}
	frags = append(frags, doctree.Fragment{
		SourceID: it.ID,
		Type:     it.Type,
		Kind:     doctree.KindChangelog,
		Markdown: Changelog(meta),
		Path:     doctree.JoinPath(it.PagePath(), it.ID),
	})
	return frags, nil
}

// Changelog renders a page's ownership and edit metadata as a key/value table.
func Changelog(p *notion.Page) string {
	owner := "N/A"
	createdTime := formatTime(p.CreatedTime)
	editedTime := formatTime(p.LastEditedTime)
	for _, prop := range p.Properties {
		switch prop.Type {
		case "created_time":
			if prop.CreatedTime != "" {
				createdTime = prop.CreatedTime
			}
		case "last_edited_time":
			if prop.LastEditedTime != "" {
				editedTime = prop.LastEditedTime
			}
		}
	}
	if prop, ok := p.Properties["Owner"]; ok && len(prop.People) > 0 && prop.People[0].Name != "" {
		owner = prop.People[0].Name
	}
	createdBy := p.CreatedBy.Name
	if createdBy == "" {
		createdBy = p.CreatedBy.ID
	}
	if createdBy == "" {
		createdBy = "N/A"
	}

	return Table([]string{" ", " "}, [][]string{
		{"**Owner**", owner},
		{"**Created time**", createdTime},
		{"**Last edited time**", editedTime},
		{"**Created by**", createdBy},
	})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.UTC().Format(time.RFC3339)
}

func (r *Renderer) paragraph(_ context.Context, it doctree.Item) ([]doctree.Fragment, error) {
	var p richTextPayload
	if err := decodePayload(it, &p); err != nil {
		return nil, err
	}
	text := RichText(p.RichText, " ")
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return content(it, text), nil
}

func (r *Renderer) heading(_ context.Context, it doctree.Item) ([]doctree.Fragment, error) {
	var p richTextPayload
	if err := decodePayload(it, &p); err != nil {
		return nil, err
	}
	level := 1
	switch it.Type {
	case doctree.TypeHeading2:
		level = 2
	case doctree.TypeHeading3:
		level = 3
	}
	text := strings.TrimSpace(PlainText(p.RichText))
	if text == "" {
		return nil, nil
	}
	return content(it, Heading(text, level+HeadingShift)), nil
}

func (r *Renderer) code(_ context.Context, it doctree.Item) ([]doctree.Fragment, error) {
	var p codePayload
	if err := decodePayload(it, &p); err != nil {
		return nil, err
	}
	var src strings.Builder
	for _, rt := range p.RichText {
		src.WriteString(rt.Content())
	}
	caption := strings.TrimSpace(PlainText(p.Caption))
	return content(it, CodeBlock(src.String(), caption, p.Language)), nil
}

func (r *Renderer) quote(_ context.Context, it doctree.Item) ([]doctree.Fragment, error) {
	var p richTextPayload
	if err := decodePayload(it, &p); err != nil {
		return nil, err
	}
	md, err := Note(strings.TrimSpace(RichText(p.RichText, " ")), "NOTE")
	if err != nil {
		return nil, err
	}
	return content(it, md), nil
}

func (r *Renderer) callout(_ context.Context, it doctree.Item) ([]doctree.Fragment, error) {
	var p calloutPayload
	if err := decodePayload(it, &p); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(RichText(p.RichText, " "))
	if p.Icon != nil && p.Icon.Type == "emoji" && p.Icon.Emoji != "" {
		text = p.Icon.Emoji + " " + text
	}
	md, err := Note(text, "TIP")
	if err != nil {
		return nil, err
	}
	return content(it, md), nil
}

func (r *Renderer) image(_ context.Context, it doctree.Item) ([]doctree.Fragment, error) {
	var p imagePayload
	if err := decodePayload(it, &p); err != nil {
		return nil, err
	}
	return content(it, Image(strings.TrimSpace(PlainText(p.Caption)), p.URL())), nil
}

func (r *Renderer) bookmark(_ context.Context, it doctree.Item) ([]doctree.Fragment, error) {
	var p linkPayload
	if err := decodePayload(it, &p); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(PlainText(p.Caption))
	if title == "" {
		title = p.URL
	}
	return content(it, Link(title, p.URL)), nil
}

func (r *Renderer) listItem(_ context.Context, it doctree.Item) ([]doctree.Fragment, error) {
	var p richTextPayload
	if err := decodePayload(it, &p); err != nil {
		return nil, err
	}
	marker := "-"
	if it.Type == doctree.TypeNumberedListItem {
		marker = "1."
	}
	return content(it, ListItem(marker, RichText(p.RichText, " "), it.Chain.ListDepth())), nil
}

func (r *Renderer) toDo(_ context.Context, it doctree.Item) ([]doctree.Fragment, error) {
	var p toDoPayload
	if err := decodePayload(it, &p); err != nil {
		return nil, err
	}
	marker := "- [ ]"
	if p.Checked {
		marker = "- [x]"
	}
	return content(it, ListItem(marker, RichText(p.RichText, " "), it.Chain.ListDepth())), nil
}

func (r *Renderer) divider(_ context.Context, it doctree.Item) ([]doctree.Fragment, error) {
	if err := decodePayload(it, &dividerPayload{}); err != nil {
		return nil, err
	}
	return content(it, "---"), nil
}

func (r *Renderer) linkToPage(ctx context.Context, it doctree.Item) ([]doctree.Fragment, error) {
	var p linkToPagePayload
	if err := decodePayload(it, &p); err != nil {
		return nil, err
	}
	target, err := r.pages.GetPage(ctx, p.PageID)
	if err != nil {
		return nil, fmt.Errorf("fetch link target %s: %w", p.PageID, err)
	}
	if target == nil {
		return nil, &PayloadError{ItemID: it.ID, Type: it.Type, Err: fmt.Errorf("link target %s not found", p.PageID)}
	}
	title := strings.TrimSpace(target.Title())
	if title == "" {
		title = target.URL
	}
	frags := content(it, Link(title, target.URL))
	frags[0].Ref = &doctree.Ref{
		ID:    RefID(target.URL, p.PageID),
		URL:   target.URL,
		Title: title,
	}
	return frags, nil
}

// RefID extracts the page id from a page URL: the last hyphen-separated
// token of the final path segment. fallback is used when the URL carries no
// recognizable id.
func RefID(pageURL, fallback string) string {
	u := pageURL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	u = strings.TrimRight(u, "/")
	if i := strings.LastIndex(u, "/"); i >= 0 {
		u = u[i+1:]
	}
	if i := strings.LastIndex(u, "-"); i >= 0 {
		u = u[i+1:]
	}
	if len(doctree.NormalizeID(u)) != 32 {
		return fallback
	}
	return u
}
