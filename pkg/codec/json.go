package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/keel/pkg/domain"
)

// JSONCodec handles JSON descriptions.
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier.
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse reads a description from JSON.
func (c *JSONCodec) Parse(r io.Reader) (*domain.Description, error) {
	var desc domain.Description
	if err := json.NewDecoder(r).Decode(&desc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return finish(&desc)
}

// Export writes a description as indented JSON.
func (c *JSONCodec) Export(desc *domain.Description, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(desc); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
