// Package codec reads and writes structural descriptions as YAML or JSON.
package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aretw0/keel/pkg/domain"
)

// Importer reads a description from a stream.
type Importer interface {
	Parse(r io.Reader) (*domain.Description, error)
	Format() string
}

// Exporter writes a description to a stream.
type Exporter interface {
	Export(desc *domain.Description, w io.Writer) error
	Format() string
}

// Codec is both an Importer and an Exporter.
type Codec interface {
	Importer
	Exporter
}

// ForFormat returns the codec for a format identifier ("yaml", "yml" or "json").
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	case "json":
		return NewJSONCodec(), nil
	}
	return nil, fmt.Errorf("unsupported description format %q", format)
}

// ForPath picks a codec from the file extension of path.
func ForPath(path string) (Codec, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, fmt.Errorf("cannot infer description format of %q", path)
	}
	return ForFormat(ext)
}

// finish checks the format version of a parsed description and fills defaults.
func finish(desc *domain.Description) (*domain.Description, error) {
	if desc.Format == "" {
		desc.Format = domain.FormatVersion
	}
	if err := CheckFormat(desc.Format); err != nil {
		return nil, err
	}
	for i, op := range desc.Ops {
		if op.Op == "" {
			return nil, fmt.Errorf("%w: op %d has no type", domain.ErrInvalidArgument, i)
		}
		if op.Op != domain.OpCreate && op.Op != domain.OpSet {
			return nil, fmt.Errorf("%w: op %d has unknown type %q", domain.ErrInvalidArgument, i, op.Op)
		}
	}
	return desc, nil
}
