package notion

import (
	"encoding/json"
	"fmt"
	"time"
)

// Parent is the declared parent of a block or page.
type Parent struct {
	Type       string `json:"type"`
	PageID     string `json:"page_id,omitempty"`
	BlockID    string `json:"block_id,omitempty"`
	DatabaseID string `json:"database_id,omitempty"`
	Workspace  bool   `json:"workspace,omitempty"`
}

// ID returns the parent's identifier, empty for workspace-level parents.
func (p Parent) ID() string {
	switch {
	case p.PageID != "":
		return p.PageID
	case p.BlockID != "":
		return p.BlockID
	default:
		return p.DatabaseID
	}
}

// IsPage reports whether the parent is a page.
func (p Parent) IsPage() bool {
	return p.Type == "page_id" || (p.Type == "" && p.PageID != "")
}

// User is a partial user object.
type User struct {
	Object string `json:"object"`
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
}

// Link is the target of a text run.
type Link struct {
	URL string `json:"url"`
}

// TextContent is the content of a text-type rich text run.
type TextContent struct {
	Content string `json:"content"`
	Link    *Link  `json:"link"`
}

// Annotations are the style flags of a rich text run.
type Annotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color"`
}

// RichText is one styled run of text.
type RichText struct {
	Type        string       `json:"type"`
	Text        *TextContent `json:"text,omitempty"`
	Annotations Annotations  `json:"annotations"`
	PlainText   string       `json:"plain_text"`
	Href        *string      `json:"href"`
}

// Content returns the run's text, preferring the raw text content.
func (r RichText) Content() string {
	if r.Text != nil {
		return r.Text.Content
	}
	return r.PlainText
}

// LinkURL returns the run's link target, if any.
func (r RichText) LinkURL() string {
	if r.Text != nil && r.Text.Link != nil && r.Text.Link.URL != "" {
		return r.Text.Link.URL
	}
	if r.Href != nil {
		return *r.Href
	}
	return ""
}

// Block is a block object as returned by the blocks endpoints.
// Payload holds the raw type-specific object keyed by Type.
type Block struct {
	Object         string    `json:"object"`
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	HasChildren    bool      `json:"has_children"`
	Archived       bool      `json:"archived"`
	InTrash        bool      `json:"in_trash"`
	Parent         Parent    `json:"parent"`
	CreatedTime    time.Time `json:"created_time"`
	LastEditedTime time.Time `json:"last_edited_time"`

	Payload json.RawMessage `json:"-"`
}

func (b *Block) UnmarshalJSON(data []byte) error {
	type plain Block
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*b = Block(p)
	if raw, ok := fields[b.Type]; ok && string(raw) != "null" {
		b.Payload = raw
	}
	return nil
}

// ChildrenPage is one page of a block's children listing.
type ChildrenPage struct {
	Object     string  `json:"object"`
	Results    []Block `json:"results"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

// Cursor returns the continuation cursor, empty when there is none.
func (p *ChildrenPage) Cursor() string {
	if p == nil || p.NextCursor == nil {
		return ""
	}
	return *p.NextCursor
}

// Property is a page property value. Only the variants the exporter reads are decoded.
type Property struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	Title          []RichText `json:"title,omitempty"`
	People         []User     `json:"people,omitempty"`
	CreatedTime    string     `json:"created_time,omitempty"`
	LastEditedTime string     `json:"last_edited_time,omitempty"`
}

// Page is a page object as returned by the pages endpoint.
type Page struct {
	Object         string              `json:"object"`
	ID             string              `json:"id"`
	URL            string              `json:"url"`
	CreatedTime    time.Time           `json:"created_time"`
	LastEditedTime time.Time           `json:"last_edited_time"`
	CreatedBy      User                `json:"created_by"`
	LastEditedBy   User                `json:"last_edited_by"`
	Parent         Parent              `json:"parent"`
	Archived       bool                `json:"archived"`
	Properties     map[string]Property `json:"properties"`
}

// Title returns the plain text of the page's title property.
func (p *Page) Title() string {
	for _, prop := range p.Properties {
		if prop.Type != "title" {
			continue
		}
		var out string
		for _, rt := range prop.Title {
			out += rt.PlainText
		}
		return out
	}
	return ""
}

// APIError is an error response from the API.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("notion api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("notion api: status %d (%s): %s", e.Status, e.Code, e.Message)
}
