package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a Spec serialization format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat normalizes a user supplied format name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown spec format %q", name)
}

// Ext returns the file extension used for the format.
func (f Format) Ext() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// Encode serializes spec.
func Encode(spec *Spec, format Format) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		data, err := json.MarshalIndent(spec, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode spec: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var doc yaml.Node
		if err := doc.Encode(spec); err != nil {
			return nil, fmt.Errorf("encode spec: %w", err)
		}
		quoteMultiline(&doc)
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(&doc); err != nil {
			return nil, fmt.Errorf("encode spec: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode spec: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown spec format %q", format)
}

// quoteMultiline double-quotes string scalars holding line breaks. Block
// scalars made only of newlines do not survive a decode.
func quoteMultiline(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" && strings.ContainsAny(n.Value, "\r\n") {
		n.Style = yaml.DoubleQuotedStyle
	}
	for _, c := range n.Content {
		quoteMultiline(c)
	}
}

// Decode reconstructs and validates a Spec. It has no side effects.
func Decode(data []byte, format Format) (*Spec, error) {
	var spec Spec
	switch format {
	case FormatJSON, "":
		if err := json.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
		}
	default:
		return nil, fmt.Errorf("unknown spec format %q", format)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}
