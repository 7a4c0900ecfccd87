package source

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dd0wney/cluso-synapse/pkg/graph"
)

// FileSource reads a JSON snapshot from disk. A ".sz" suffix selects snappy.
type FileSource struct {
	path string
}

// NewFileSource creates a file source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load reads the file on every call so a refresh picks up edits.
func (s *FileSource) Load(ctx context.Context) (graph.Dataset, error) {
	if s.path == "" {
		return graph.Dataset{}, errors.New("source: file path is empty")
	}
	if err := ctx.Err(); err != nil {
		return graph.Dataset{}, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return graph.Dataset{}, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()
	return Decode(f, IsCompressed(s.path))
}

// Close is a no-op.
func (s *FileSource) Close() error { return nil }
