// Package source loads raw graph records from the configured backing store:
// a local snapshot file, a PostgreSQL graph schema or an S3 object.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-synapse/pkg/graph"
)

// Kinds accepted by Open.
const (
	KindFile     = "file"
	KindPostgres = "postgres"
	KindS3       = "s3"
)

// CompressedSuffix marks snappy-compressed JSON snapshots.
const CompressedSuffix = ".sz"

// ErrUnknownKind is returned by Open for an unsupported source kind.
var ErrUnknownKind = errors.New("source: unknown kind")

// Source yields a dataset. Implementations never validate records; that is
// graph.Ingest's job.
type Source interface {
	Load(ctx context.Context) (graph.Dataset, error)
	Close() error
}

// Config selects and configures a Source.
type Config struct {
	Kind     string `yaml:"kind"`
	Path     string `yaml:"path"`     // file
	DSN      string `yaml:"dsn"`      // postgres
	Bucket   string `yaml:"bucket"`   // s3
	Key      string `yaml:"key"`      // s3
	Region   string `yaml:"region"`   // s3
	Endpoint string `yaml:"endpoint"` // s3, for S3-compatible stores
}

// Open builds the source named by cfg.Kind.
func Open(ctx context.Context, cfg Config) (Source, error) {
	switch cfg.Kind {
	case KindFile, "":
		return NewFileSource(cfg.Path), nil
	case KindPostgres:
		return NewPostgresSource(ctx, cfg.DSN)
	case KindS3:
		return NewS3Source(ctx, S3Params{
			Bucket:   cfg.Bucket,
			Key:      cfg.Key,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

// IsCompressed reports whether name carries the snappy suffix.
func IsCompressed(name string) bool {
	return strings.HasSuffix(name, CompressedSuffix)
}

// Decode reads a JSON dataset, snappy-decoding it first when compressed.
func Decode(r io.Reader, compressed bool) (graph.Dataset, error) {
	var ds graph.Dataset
	if compressed {
		raw, err := io.ReadAll(r)
		if err != nil {
			return ds, fmt.Errorf("read snapshot: %w", err)
		}
		plain, err := snappy.Decode(nil, raw)
		if err != nil {
			return ds, fmt.Errorf("decompress snapshot: %w", err)
		}
		r = bytes.NewReader(plain)
	}
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return ds, fmt.Errorf("decode snapshot: %w", err)
	}
	return ds, nil
}

// Encode writes ds as JSON, snappy-compressed when requested.
func Encode(w io.Writer, ds graph.Dataset, compressed bool) error {
	body, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if compressed {
		body = snappy.Encode(nil, body)
	}
	_, err = w.Write(body)
	return err
}

// Static serves a fixed dataset.
type Static graph.Dataset

// Load returns the dataset.
func (s Static) Load(context.Context) (graph.Dataset, error) { return graph.Dataset(s), nil }

// Close is a no-op.
func (Static) Close() error { return nil }
