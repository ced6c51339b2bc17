package doctree

import (
	"encoding/json"
	"strings"
)

// BlockType is the structural kind of a content item.
type BlockType string

const (
	TypeChildPage        BlockType = "child_page"
	TypeParagraph        BlockType = "paragraph"
	TypeHeading1         BlockType = "heading_1"
	TypeHeading2         BlockType = "heading_2"
	TypeHeading3         BlockType = "heading_3"
	TypeCode             BlockType = "code"
	TypeQuote            BlockType = "quote"
	TypeCallout          BlockType = "callout"
	TypeImage            BlockType = "image"
	TypeBookmark         BlockType = "bookmark"
	TypeEmbed            BlockType = "embed"
	TypeBulletedListItem BlockType = "bulleted_list_item"
	TypeNumberedListItem BlockType = "numbered_list_item"
	TypeToDo             BlockType = "to_do"
	TypeDivider          BlockType = "divider"
	TypeLinkToPage       BlockType = "link_to_page"
)

// IsPage reports whether items of this type become their own markdown file.
func (t BlockType) IsPage() bool {
	return t == TypeChildPage
}

// Ancestor is one element of an ancestor chain.
type Ancestor struct {
	ID   string    `json:"id"`
	Type BlockType `json:"type"`
}

// Item is one node of the source hierarchy, annotated by the crawler.
type Item struct {
	ID          string          `json:"id"`
	Type        BlockType       `json:"type"`
	HasChildren bool            `json:"has_children"`
	Parent      Ancestor        `json:"parent"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Chain       Chain           `json:"chain"`
	RootID      string          `json:"root_id"`

	// ExternalParent is the crawl root's declared parent, which lies outside
	// the crawl. Only set on the root item.
	ExternalParent *Ancestor `json:"external_parent,omitempty"`
}

// IsRoot reports whether the item is the crawl's starting item.
func (it Item) IsRoot() bool {
	return SameID(it.ID, it.RootID)
}

// PagePath returns the slash-joined ids of the page-type ancestors, outermost first.
func (it Item) PagePath() string {
	return strings.Join(it.Chain.PageIDs(), "/")
}

// NormalizeID returns the canonical form of an identifier: hyphens removed,
// lower-cased. Notion accepts both the hyphenated and the compact form.
func NormalizeID(id string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(id), "-", ""))
}

// SameID compares two identifiers after normalization.
func SameID(a, b string) bool {
	return NormalizeID(a) == NormalizeID(b)
}
