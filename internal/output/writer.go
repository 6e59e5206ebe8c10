// Package output persists generated pages as JSON documents.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// File names of the generated pages.
const (
	FAQFile            = "faq.json"
	ProductPageFile    = "product_page.json"
	ComparisonPageFile = "comparison_page.json"
)

// DefaultDir is where pages are written when no directory is configured.
const DefaultDir = "output"

// Writer persists one page under a file name and returns where it went.
type Writer interface {
	Write(name string, page any) (string, error)
}

// FileWriter writes pages into a directory, creating it on first use.
type FileWriter struct {
	dir string
}

// NewFileWriter returns a writer rooted at dir. An empty dir means DefaultDir.
func NewFileWriter(dir string) *FileWriter {
	if dir == "" {
		dir = DefaultDir
	}
	return &FileWriter{dir: dir}
}

// Dir returns the output directory.
func (w *FileWriter) Dir() string {
	return w.dir
}

// Write encodes page with two-space indentation. Characters such as ₹ are
// written verbatim rather than escaped.
func (w *FileWriter) Write(name string, page any) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", w.dir, err)
	}

	data, err := Marshal(page)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", name, err)
	}

	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// Marshal renders v the way pages are stored on disk.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
