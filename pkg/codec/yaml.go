package codec

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/keel/pkg/domain"
)

// YAMLCodec handles YAML descriptions.
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec.
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier.
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Parse reads a description from YAML.
func (c *YAMLCodec) Parse(r io.Reader) (*domain.Description, error) {
	var desc domain.Description
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&desc); err != nil {
		if err == io.EOF {
			return finish(&desc)
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return finish(&desc)
}

// Export writes a description as YAML.
func (c *YAMLCodec) Export(desc *domain.Description, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(desc); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}
