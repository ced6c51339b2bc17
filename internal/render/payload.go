package render

import (
	"encoding/json"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/doctree"
	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/notion"
)

// PayloadError reports a type payload that failed to decode or validate.
type PayloadError struct {
	ItemID string
	Type   doctree.BlockType
	Err    error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("invalid %s payload for %s: %v", e.Type, e.ItemID, e.Err)
}

func (e *PayloadError) Unwrap() error { return e.Err }

// decodePayload unmarshals the item's payload into dst and validates it.
func decodePayload(it doctree.Item, dst validation.Validatable) error {
	if len(it.Payload) == 0 {
		return &PayloadError{ItemID: it.ID, Type: it.Type, Err: errors.New("missing payload")}
	}
	if err := json.Unmarshal(it.Payload, dst); err != nil {
		return &PayloadError{ItemID: it.ID, Type: it.Type, Err: err}
	}
	if err := dst.Validate(); err != nil {
		return &PayloadError{ItemID: it.ID, Type: it.Type, Err: err}
	}
	return nil
}

var richTextRule = validation.By(func(v any) error {
	rt, ok := v.(notion.RichText)
	if !ok {
		return errors.New("not a rich text run")
	}
	if rt.Type == "" && rt.Text == nil && rt.PlainText == "" {
		return errors.New("empty rich text run")
	}
	return nil
})

// richTextPayload covers paragraphs, headings, quotes and list items.
type richTextPayload struct {
	RichText []notion.RichText `json:"rich_text"`
	Color    string            `json:"color"`
}

func (p richTextPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.RichText, validation.NotNil, validation.Each(richTextRule)),
	)
}

type toDoPayload struct {
	RichText []notion.RichText `json:"rich_text"`
	Checked  bool              `json:"checked"`
}

func (p toDoPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.RichText, validation.NotNil, validation.Each(richTextRule)),
	)
}

type calloutPayload struct {
	RichText []notion.RichText `json:"rich_text"`
	Icon     *struct {
		Type  string `json:"type"`
		Emoji string `json:"emoji"`
	} `json:"icon"`
}

func (p calloutPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.RichText, validation.NotNil, validation.Each(richTextRule)),
	)
}

type codePayload struct {
	RichText []notion.RichText `json:"rich_text"`
	Caption  []notion.RichText `json:"caption"`
	Language string            `json:"language"`
}

func (p codePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.RichText, validation.NotNil, validation.Each(richTextRule)),
		validation.Field(&p.Caption, validation.Each(richTextRule)),
	)
}

type fileRef struct {
	URL string `json:"url"`
}

type imagePayload struct {
	Type     string            `json:"type"`
	File     *fileRef          `json:"file"`
	External *fileRef          `json:"external"`
	Caption  []notion.RichText `json:"caption"`
}

// URL returns the hosted or external image location.
func (p imagePayload) URL() string {
	switch {
	case p.File != nil && p.File.URL != "":
		return p.File.URL
	case p.External != nil:
		return p.External.URL
	}
	return ""
}

func (p imagePayload) Validate() error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Type, validation.Required, validation.In("file", "external")),
		validation.Field(&p.Caption, validation.Each(richTextRule)),
	)
	if err != nil {
		return err
	}
	if p.URL() == "" {
		return errors.New("image has no url")
	}
	return nil
}

// linkPayload covers bookmarks and embeds.
type linkPayload struct {
	URL     string            `json:"url"`
	Caption []notion.RichText `json:"caption"`
}

func (p linkPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.URL, validation.Required),
		validation.Field(&p.Caption, validation.Each(richTextRule)),
	)
}

type childPagePayload struct {
	Title string `json:"title"`
}

func (p childPagePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Length(0, 2000)),
	)
}

type linkToPagePayload struct {
	Type       string `json:"type"`
	PageID     string `json:"page_id"`
	DatabaseID string `json:"database_id"`
}

func (p linkToPagePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Type, validation.Required, validation.In("page_id")),
		validation.Field(&p.PageID, validation.Required),
	)
}

type dividerPayload struct{}

func (p dividerPayload) Validate() error { return nil }
