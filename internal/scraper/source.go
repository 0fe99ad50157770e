package scraper

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Source supplies a rendered HTML document to the pipeline. Fetching and
// rendering happen outside this module; sources only read documents that
// already exist.
type Source interface {
	HTML(ctx context.Context) (string, error)
}

// FileSource reads the document from a file on disk.
type FileSource struct {
	Path string
}

func (s FileSource) HTML(ctx context.Context) (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read document %s: %w", s.Path, err)
	}
	return string(data), nil
}

// ReaderSource consumes the document from a stream, typically stdin.
type ReaderSource struct {
	Reader io.Reader
}

func (s ReaderSource) HTML(ctx context.Context) (string, error) {
	data, err := io.ReadAll(s.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	return string(data), nil
}

// StringSource wraps an in-memory document.
type StringSource string

func (s StringSource) HTML(ctx context.Context) (string, error) {
	return string(s), nil
}
