package codec

import (
	"fmt"

	mm "github.com/Masterminds/semver/v3"

	"github.com/aretw0/keel/pkg/domain"
)

// SupportedFormats is the constraint descriptions must satisfy to be read.
const SupportedFormats = "^1.0.0"

var supported = mustConstraint(SupportedFormats)

func mustConstraint(raw string) *mm.Constraints {
	c, err := mm.NewConstraint(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// CheckFormat fails with domain.ErrIncompatibleFormat unless version satisfies
// SupportedFormats.
func CheckFormat(version string) error {
	v, err := mm.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: parse version %q: %v", domain.ErrIncompatibleFormat, version, err)
	}
	if !supported.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %s", domain.ErrIncompatibleFormat, v, SupportedFormats)
	}
	return nil
}
