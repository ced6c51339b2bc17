// Package crawler walks the remote block hierarchy depth-first and flattens it
// into a list of items annotated with their ancestor chains.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/doctree"
	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/notion"
)

// ErrRootNotFound is returned when the crawl root cannot be fetched.
var ErrRootNotFound = errors.New("crawl root not found")

// Source yields block records and their children.
type Source interface {
	GetBlock(ctx context.Context, id string) (*notion.Block, error)
	ListChildren(ctx context.Context, id, cursor string) (*notion.ChildrenPage, error)
}

// ExternalParentPolicy controls how the root's out-of-crawl parent is
// reflected in descendant chains.
type ExternalParentPolicy string

const (
	// PolicyIgnore keeps the external parent out of every chain.
	PolicyIgnore ExternalParentPolicy = "ignore"
	// PolicyPrepend puts a page-type external parent at the front of every
	// descendant chain. The root's own chain stays empty.
	PolicyPrepend ExternalParentPolicy = "prepend"
)

// Crawler flattens a block hierarchy.
type Crawler struct {
	src    Source
	log    *slog.Logger
	policy ExternalParentPolicy
}

// Option configures a Crawler.
type Option func(*Crawler)

func WithLogger(log *slog.Logger) Option {
	return func(c *Crawler) { c.log = log }
}

func WithExternalParentPolicy(p ExternalParentPolicy) Option {
	return func(c *Crawler) {
		if p != "" {
			c.policy = p
		}
	}
}

func New(src Source, opts ...Option) *Crawler {
	c := &Crawler{
		src:    src,
		log:    slog.Default(),
		policy: PolicyIgnore,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// crawl holds the state of a single Crawl call.
type crawl struct {
	*Crawler
	rootID   string
	external *doctree.Ancestor
	seen     map[string]bool
	items    []doctree.Item
}

// Crawl fetches rootID and everything reachable below it. Items are returned
// in depth-first order, children in the order the source lists them.
func (c *Crawler) Crawl(ctx context.Context, rootID string) ([]doctree.Item, error) {
	root, err := c.src.GetBlock(ctx, rootID)
	if err != nil {
		return nil, fmt.Errorf("fetch root %s: %w", rootID, err)
	}
	if root == nil || root.Archived || root.InTrash {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, rootID)
	}

	cr := &crawl{
		Crawler: c,
		rootID:  root.ID,
		seen:    make(map[string]bool),
	}
	if pid := root.Parent.ID(); pid != "" {
		cr.external = &doctree.Ancestor{ID: pid, Type: parentType(root.Parent)}
	}

	if err := cr.visit(ctx, root, nil); err != nil {
		return cr.items, err
	}
	c.log.Info("crawl complete", "root_id", rootID, "items", len(cr.items))
	return cr.items, nil
}

// visit records b and descends into its children. chain is the caller's
// chain; it is never modified, each level derives a new one.
func (cr *crawl) visit(ctx context.Context, b *notion.Block, chain doctree.Chain) error {
	key := doctree.NormalizeID(b.ID)
	if cr.seen[key] {
		cr.log.Warn("block already visited, skipping", "block_id", b.ID)
		return nil
	}
	cr.seen[key] = true

	item := doctree.Item{
		ID:          b.ID,
		Type:        doctree.BlockType(b.Type),
		HasChildren: b.HasChildren,
		Parent:      doctree.Ancestor{ID: b.Parent.ID(), Type: parentType(b.Parent)},
		Payload:     b.Payload,
		RootID:      cr.rootID,
	}
	if doctree.SameID(b.ID, cr.rootID) {
		item.ExternalParent = cr.external
	} else {
		item.Chain = cr.chainFor(chain, item.Parent)
	}
	cr.items = append(cr.items, item)

	if !b.HasChildren {
		return nil
	}

	childChain := item.Chain.Append(doctree.Ancestor{ID: b.ID, Type: item.Type})
	cursor := ""
	for {
		page, err := cr.src.ListChildren(ctx, b.ID, cursor)
		if err != nil {
			return fmt.Errorf("list children of %s: %w", b.ID, err)
		}
		for i := range page.Results {
			child := &page.Results[i]
			if child.Archived || child.InTrash {
				cr.log.Debug("skipping archived block", "block_id", child.ID)
				continue
			}
			if err := cr.visitChild(ctx, child, childChain); err != nil {
				return err
			}
		}
		if !page.HasMore || page.Cursor() == "" {
			return nil
		}
		cursor = page.Cursor()
	}
}

// visitChild fetches the child's full record before descending, so the item
// carries the detail payload rather than the listing's.
func (cr *crawl) visitChild(ctx context.Context, listed *notion.Block, chain doctree.Chain) error {
	b, err := cr.src.GetBlock(ctx, listed.ID)
	if err != nil {
		return fmt.Errorf("fetch block %s: %w", listed.ID, err)
	}
	if b == nil || b.Archived || b.InTrash {
		cr.log.Warn("block not available, skipping subtree", "block_id", listed.ID)
		return nil
	}
	return cr.visit(ctx, b, chain)
}

// chainFor combines the caller chain with the item's declared parent.
func (cr *crawl) chainFor(chain doctree.Chain, parent doctree.Ancestor) doctree.Chain {
	out := chain.Append(parent)
	if cr.policy == PolicyPrepend && cr.external != nil && cr.external.Type.IsPage() {
		out = out.Prepend(*cr.external)
	}
	return out
}

func parentType(p notion.Parent) doctree.BlockType {
	switch {
	case p.IsPage():
		return doctree.TypeChildPage
	case p.BlockID != "":
		return "block"
	default:
		return doctree.BlockType(p.Type)
	}
}
