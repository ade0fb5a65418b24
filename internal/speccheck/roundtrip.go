// Package speccheck verifies that a compiled spec survives serialization:
// the decoded copy must encode to the same bytes and be executable.
package speccheck

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cruffinoni/gobars/internal/compiler"
	"github.com/cruffinoni/gobars/internal/runtime"
)

// ErrMismatch reports a spec whose decoded copy differs from the original.
var ErrMismatch = errors.New("spec changed across a round trip")

// RoundTrip encodes spec, decodes it back and re-encodes the copy. It returns
// the encoded bytes when both encodings agree and the copy loads as a
// template.
func RoundTrip(name string, spec *compiler.Spec, format compiler.Format) ([]byte, error) {
	first, err := compiler.Encode(spec, format)
	if err != nil {
		return nil, fmt.Errorf("encode spec %q: %w", name, err)
	}
	decoded, err := compiler.Decode(first, format)
	if err != nil {
		return nil, fmt.Errorf("decode spec %q: %w", name, err)
	}
	second, err := compiler.Encode(decoded, format)
	if err != nil {
		return nil, fmt.Errorf("re-encode spec %q: %w", name, err)
	}
	if !bytes.Equal(first, second) {
		return nil, fmt.Errorf("%w: %s (%s)", ErrMismatch, name, format)
	}
	if _, err := runtime.FromSpec(decoded); err != nil {
		return nil, fmt.Errorf("load spec %q: %w", name, err)
	}
	return first, nil
}
