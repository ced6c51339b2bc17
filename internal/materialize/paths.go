package materialize

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/spf13/afero"

	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/doctree"
)

// ErrNotDirectory is returned when the output path exists but is not a directory.
var ErrNotDirectory = errors.New("output path exists and is not a directory")

// Normalize turns a page title into a file name: lower-cased, whitespace
// removed, anything but letters, digits and underscores stripped.
func Normalize(title string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			return unicode.ToLower(r)
		default:
			return -1
		}
	}, title)
}

// RelativePath returns the slash path that leads from directory from to
// directory to. Both are slash-separated and relative to the same base.
func RelativePath(from, to string) string {
	f, t := doctree.SplitPath(from), doctree.SplitPath(to)
	i := 0
	for i < len(f) && i < len(t) && f[i] == t[i] {
		i++
	}
	parts := make([]string, 0, len(f)-i+len(t)-i)
	for range f[i:] {
		parts = append(parts, "..")
	}
	parts = append(parts, t[i:]...)
	if len(parts) == 0 {
		return "."
	}
	return strings.Join(parts, "/")
}

// PrepareOutputDir makes dir an empty directory. An existing directory is
// removed and recreated; an existing file is an error.
func PrepareOutputDir(fs afero.Fs, dir string) error {
	info, err := fs.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("stat output dir: %w", err)
	case !info.IsDir():
		return fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}
	if err := fs.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear output dir: %w", err)
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("recreate output dir: %w", err)
	}
	return nil
}
