package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/cruffinoni/gobars"
	"github.com/cruffinoni/gobars/internal/compiler"
	"github.com/cruffinoni/gobars/internal/dom"
	"github.com/cruffinoni/gobars/internal/rendercheck"
	"github.com/cruffinoni/gobars/internal/runtime"
)

type renderOptions struct {
	template string
	data     string
	context  string
}

func newRenderCmd(a *app) *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one template or precompiled spec to HTML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd.OutOrStdout(), a, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.template, "template", "", "Template source (.hbs) or precompiled spec (.json, .yaml)")
	f.StringVar(&opts.data, "data", "", "JSON file with the template data")
	f.StringVar(&opts.context, "context", "", "Tag of the element the output is rendered into (default body)")
	f.StringVar(&a.cfg.Helpers, "helpers", a.cfg.Helpers, "Starlark script providing helpers")
	f.StringVar(&a.cfg.CacheDir, "cache-dir", a.cfg.CacheDir, "Directory persisting compiled specs between runs")
	f.BoolVar(&a.cfg.Minify, "minify", a.cfg.Minify, "Minify the rendered HTML")
	_ = cmd.MarkFlagRequired("template")

	return cmd
}

// specFormat reports the spec format a file extension denotes.
func specFormat(path string) (compiler.Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return compiler.FormatJSON, true
	case ".yaml", ".yml":
		return compiler.FormatYAML, true
	}
	return "", false
}

func loadTemplate(a *app, path string) (*runtime.Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %q: %w", path, err)
	}
	if format, ok := specFormat(path); ok {
		return gobars.TemplateFromBytes(raw, format)
	}

	cache, err := compiler.NewCache(a.cfg.CacheDir, a.logger)
	if err != nil {
		return nil, err
	}
	name := filepath.ToSlash(path)
	spec, err := cache.GetOrCompile(name, string(raw), func() (*compiler.Spec, error) {
		return gobars.CompileSpec(string(raw), gobars.Options{ModuleName: name})
	})
	if err != nil {
		return nil, newExitError(ExitCodeCompileFailed, err)
	}
	return gobars.Template(spec)
}

// contextElement builds the element the output is parsed and rendered
// under. svg and math switch to their namespaces.
func contextElement(h *dom.Helper, tag string) *html.Node {
	switch tag = strings.ToLower(strings.TrimSpace(tag)); tag {
	case "":
		return nil
	case "svg":
		return h.CreateElementNS(dom.SVGNamespace, tag)
	case "math":
		return h.CreateElementNS(dom.MathMLNamespace, tag)
	}
	return h.CreateElementNS(dom.XHTMLNamespace, tag)
}

func runRender(stdout io.Writer, a *app, opts renderOptions) error {
	tmpl, err := loadTemplate(a, opts.template)
	if err != nil {
		return err
	}

	var data any
	if opts.data != "" {
		payload, ok, err := rendercheck.LoadSample(opts.data)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("data file %q does not exist", opts.data)
		}
		data = payload
	}

	env, _, err := loadEnv(a.cfg.Helpers, a.logger)
	if err != nil {
		return err
	}
	env.DOM = dom.NewHelper(dom.WithLogger(a.logger))

	out, err := rendercheck.Render(opts.template, tmpl, data, rendercheck.Options{
		Env:        env,
		Contextual: contextElement(env.DOM, opts.context),
		Minify:     a.cfg.Minify,
	})
	if err != nil {
		return newExitError(ExitCodeValidationFailed, err)
	}
	_, err = fmt.Fprintln(stdout, out)
	return err
}
