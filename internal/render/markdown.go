package render

import (
	"fmt"
	"strings"

	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/notion"
	"golang.org/x/net/html"
)

// Heading formats title as a heading of the given level, clamped to 1..6.
func Heading(title string, level int) string {
	level = min(max(level, 1), 6)
	return strings.Repeat("#", level) + " " + title
}

// Table formats a markdown table.
func Table(headers []string, rows [][]string) string {
	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, "| "+strings.Join(headers, " | ")+" |")
	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = "---"
	}
	lines = append(lines, "| "+strings.Join(sep, " | ")+" |")
	for _, row := range rows {
		lines = append(lines, "| "+strings.Join(row, " | ")+" |")
	}
	return strings.Join(lines, "\n")
}

// Link formats an inline link.
func Link(title, url string) string {
	return fmt.Sprintf("[%s](%s)", title, url)
}

// Image formats an inline image.
func Image(caption, url string) string {
	return fmt.Sprintf("![%s](%s)", caption, url)
}

type codeLanguage struct {
	tag          string
	commentOpen  string
	commentClose string
}

// codeLanguages maps source language names (lower-cased) to fence tags and
// comment delimiters used for captions.
var codeLanguages = map[string]codeLanguage{
	"bash":       {"bash", "#", ""},
	"c":          {"c", "//", ""},
	"c#":         {"csharp", "//", ""},
	"c++":        {"cpp", "//", ""},
	"css":        {"css", "/*", "*/"},
	"docker":     {"dockerfile", "#", ""},
	"go":         {"go", "//", ""},
	"html":       {"html", "<!--", "-->"},
	"java":       {"java", "//", ""},
	"javascript": {"javascript", "//", ""},
	"json":       {"json", "//", ""},
	"kotlin":     {"kotlin", "//", ""},
	"makefile":   {"makefile", "#", ""},
	"markdown":   {"markdown", "<!--", "-->"},
	"php":        {"php", "//", ""},
	"powershell": {"powershell", "#", ""},
	"python":     {"python", "#", ""},
	"ruby":       {"ruby", "#", ""},
	"rust":       {"rust", "//", ""},
	"shell":      {"shell", "#", ""},
	"sql":        {"sql", "--", ""},
	"swift":      {"swift", "//", ""},
	"toml":       {"toml", "#", ""},
	"typescript": {"typescript", "//", ""},
	"xml":        {"xml", "<!--", "-->"},
	"yaml":       {"yaml", "#", ""},
}

// CodeBlock formats a fenced code block. A caption becomes the first line of
// the block as a comment in the block's language; for languages without a
// known comment syntax it is placed above the fence in italics.
func CodeBlock(code, caption, language string) string {
	lang, known := codeLanguages[strings.ToLower(strings.TrimSpace(language))]

	var b strings.Builder
	if caption != "" && (!known || lang.commentOpen == "") {
		b.WriteString("*" + caption + "*\n")
	}
	b.WriteString("```" + lang.tag + "\n")
	if caption != "" && known && lang.commentOpen != "" {
		b.WriteString(lang.commentOpen + caption + lang.commentClose + "\n")
	}
	b.WriteString(code)
	b.WriteString("\n```")
	return b.String()
}

// Styled applies the run's annotations to content. Markers wrap the trimmed
// text; leading and trailing whitespace stays outside them.
func Styled(content string, a notion.Annotations) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return content
	}
	lead := content[:strings.Index(content, trimmed)]
	trail := content[len(lead)+len(trimmed):]

	if a.Underline && !a.Code {
		trimmed = html.EscapeString(trimmed)
	}
	if a.Bold {
		trimmed = "**" + trimmed + "**"
	}
	if a.Italic {
		trimmed = "*" + trimmed + "*"
	}
	if a.Strikethrough {
		trimmed = "~~" + trimmed + "~~"
	}
	if a.Underline {
		trimmed = "<u>" + trimmed + "</u>"
	}
	if a.Code {
		trimmed = "`" + trimmed + "`"
	}
	return lead + trimmed + trail
}

// StyledRun renders one rich text run, wrapping it in a link when the run has one.
func StyledRun(rt notion.RichText) string {
	s := Styled(rt.Content(), rt.Annotations)
	if u := rt.LinkURL(); u != "" && strings.TrimSpace(s) != "" {
		return Link(s, u)
	}
	return s
}

// RichText renders runs joined with sep.
func RichText(runs []notion.RichText, sep string) string {
	parts := make([]string, 0, len(runs))
	for _, rt := range runs {
		parts = append(parts, StyledRun(rt))
	}
	return strings.Join(parts, sep)
}

// PlainText concatenates the runs' plain text.
func PlainText(runs []notion.RichText) string {
	var b strings.Builder
	for _, rt := range runs {
		if rt.PlainText != "" {
			b.WriteString(rt.PlainText)
		} else {
			b.WriteString(rt.Content())
		}
	}
	return b.String()
}

var noteHeadings = map[string]bool{"NOTE": true, "TIP": true, "IMPORTANT": true, "CAUTION": true, "WARNING": true}

// Note formats content as a blockquote admonition with the given heading.
func Note(content, heading string) (string, error) {
	if !noteHeadings[heading] {
		return "", fmt.Errorf("unsupported note heading %q", heading)
	}
	body := strings.ReplaceAll(content, "\n", "\n> ")
	return fmt.Sprintf("> \\[!%s\\]\n> %s", heading, body), nil
}

// ListItem formats a list line with four spaces per indentation level.
func ListItem(marker, text string, indent int) string {
	return strings.Repeat("    ", max(indent, 0)) + marker + " " + text
}
