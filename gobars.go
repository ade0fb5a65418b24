// Package gobars compiles Handlebars-flavoured HTML templates into
// serializable specs and renders them into live golang.org/x/net/html trees
// whose dynamic regions can be updated in place.
package gobars

import (
	"fmt"

	"github.com/cruffinoni/gobars/internal/compiler"
	"github.com/cruffinoni/gobars/internal/runtime"
	"github.com/cruffinoni/gobars/internal/syntax"
)

// Options configures compilation. ModuleName is recorded as the source of
// every location. Plugins transform the syntax tree before it is compiled.
type Options struct {
	ModuleName string
	Plugins    []syntax.Plugin
}

// CompileSpec parses src and compiles it to a spec.
func CompileSpec(src string, opts Options) (*compiler.Spec, error) {
	program, err := syntax.Parse(src, syntax.Options{ModuleName: opts.ModuleName, Plugins: opts.Plugins})
	if err != nil {
		return nil, err
	}
	return compiler.Compile(program, compiler.Options{ModuleName: opts.ModuleName})
}

// Precompile compiles src and encodes the spec.
func Precompile(src string, opts Options, format compiler.Format) ([]byte, error) {
	spec, err := CompileSpec(src, opts)
	if err != nil {
		return nil, err
	}
	return compiler.Encode(spec, format)
}

// Template returns an executable template for spec.
func Template(spec *compiler.Spec) (*runtime.Template, error) {
	return runtime.FromSpec(spec)
}

// TemplateFromBytes decodes a precompiled spec and returns an executable
// template for it.
func TemplateFromBytes(data []byte, format compiler.Format) (*runtime.Template, error) {
	spec, err := compiler.Decode(data, format)
	if err != nil {
		return nil, err
	}
	return runtime.FromSpec(spec)
}

// Compile parses, compiles and prepares src in one step.
func Compile(src string, opts Options) (*runtime.Template, error) {
	spec, err := CompileSpec(src, opts)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", moduleLabel(opts.ModuleName), err)
	}
	return runtime.FromSpec(spec)
}

func moduleLabel(name string) string {
	if name == "" {
		return "<template>"
	}
	return name
}
