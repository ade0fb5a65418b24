package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cruffinoni/gobars/internal/compiler"
	"github.com/cruffinoni/gobars/internal/config"
	"github.com/cruffinoni/gobars/internal/fswalk"
	"github.com/cruffinoni/gobars/internal/rendercheck"
	"github.com/cruffinoni/gobars/internal/report"
	"github.com/cruffinoni/gobars/internal/runtime"
	"github.com/cruffinoni/gobars/internal/speccheck"
	"github.com/cruffinoni/gobars/internal/starhelpers"
	"github.com/cruffinoni/gobars/internal/syntax"
)

func newPrecompileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "precompile",
		Short: "Compile a template tree into serialized specs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.ValidatePrecompile(); err != nil {
				return err
			}
			p, err := newPrecompiler(a.cfg, a.logger)
			if err != nil {
				return err
			}
			if a.cfg.Watch {
				return p.watch(cmd.Context())
			}
			return p.run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringVar(&a.cfg.In, "in", a.cfg.In, "Input root directory containing .hbs templates")
	f.StringVar(&a.cfg.Out, "out", a.cfg.Out, "Output root directory for compiled specs")
	f.StringVar(&a.cfg.Glob, "glob", a.cfg.Glob, "Glob pattern relative to --in (supports **)")
	f.StringVar(&a.cfg.Format, "format", a.cfg.Format, "Spec format: json or yaml")
	f.BoolVar(&a.cfg.RenderCheck, "render-check", a.cfg.RenderCheck, "Render each template with its sample data")
	f.StringVar(&a.cfg.SamplesRoot, "samples-root", a.cfg.SamplesRoot, "Path to sample JSON root")
	f.StringVar(&a.cfg.Helpers, "helpers", a.cfg.Helpers, "Starlark script providing helpers for render checks")
	f.BoolVar(&a.cfg.Minify, "minify", a.cfg.Minify, "Minify render-check output")
	f.StringVar(&a.cfg.CacheDir, "cache-dir", a.cfg.CacheDir, "Directory persisting compiled specs between runs")
	f.BoolVar(&a.cfg.Strict, "strict", a.cfg.Strict, "Stop at the first failing template")
	f.BoolVar(&a.cfg.Watch, "watch", a.cfg.Watch, "Recompile when templates change")
	f.StringVar(&a.cfg.ReportJSON, "report-json", a.cfg.ReportJSON, "Optional JSON report output path")
	f.StringVar(&a.cfg.ReportCSV, "report-csv", a.cfg.ReportCSV, "Optional CSV report output path")

	return cmd
}

// precompiler runs precompile passes. The cache outlives a pass so watch
// mode only recompiles the templates that changed.
type precompiler struct {
	cfg      config.Config
	format   compiler.Format
	cache    *compiler.Cache
	env      *runtime.Env
	provided map[string]struct{}
	logger   *slog.Logger
}

func newPrecompiler(cfg config.Config, logger *slog.Logger) (*precompiler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	format, err := compiler.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	cache, err := compiler.NewCache(cfg.CacheDir, logger)
	if err != nil {
		return nil, err
	}
	env, provided, err := loadEnv(cfg.Helpers, logger)
	if err != nil {
		return nil, err
	}
	return &precompiler{
		cfg:      cfg,
		format:   format,
		cache:    cache,
		env:      env,
		provided: provided,
		logger:   logger,
	}, nil
}

// loadEnv builds the render environment, with the helpers of the Starlark
// script at path when one is given.
func loadEnv(path string, logger *slog.Logger) (*runtime.Env, map[string]struct{}, error) {
	env := &runtime.Env{Logger: logger}
	provided := map[string]struct{}{}
	if path == "" {
		return env, provided, nil
	}
	reg, err := starhelpers.LoadFile(path, logger)
	if err != nil {
		return nil, nil, err
	}
	env.Helpers = reg.Helpers()
	env.Modifiers = reg.Modifiers()
	for _, name := range reg.Names() {
		provided["helper:"+name] = struct{}{}
	}
	for _, name := range reg.ModifierNames() {
		provided["modifier:"+name] = struct{}{}
	}
	return env, provided, nil
}

// moduleName is the name recorded in a template's locations.
func moduleName(relPath string) string {
	return filepath.ToSlash(relPath)
}

// compiledFile is the outcome of the front-end and compiler for one file.
type compiledFile struct {
	spec     *compiler.Spec
	features []string
	cached   bool
}

func (p *precompiler) compile(relPath string, source string) (compiledFile, error) {
	name := moduleName(relPath)
	program, err := syntax.Parse(source, syntax.Options{ModuleName: name})
	if err != nil {
		return compiledFile{}, err
	}
	out := compiledFile{features: compiler.Features(program)}

	key := compiler.Key(name, source)
	if spec, ok := p.cache.Get(key); ok {
		out.spec, out.cached = spec, true
		return out, nil
	}
	spec, err := compiler.Compile(program, compiler.Options{ModuleName: name})
	if err != nil {
		return compiledFile{}, err
	}
	if err := p.cache.Put(key, spec); err != nil {
		p.logger.Warn("cache store failed", "file", relPath, "error", err)
	}
	out.spec = spec
	return out, nil
}

// missingHelpers lists the helpers and modifiers a template calls that are
// neither built in nor provided by the helper script.
func (p *precompiler) missingHelpers(features []string) []string {
	var out []string
	for _, f := range features {
		kind, name, ok := strings.Cut(f, ":")
		if !ok || (kind != "helper" && kind != "modifier") {
			continue
		}
		if kind == "helper" && runtime.Builtin(name) {
			continue
		}
		if _, ok := p.provided[f]; ok {
			continue
		}
		out = append(out, name)
	}
	return out
}

func writeReports(cfg config.Config, summary report.Summary, files []report.FileItem) error {
	if cfg.ReportJSON != "" {
		if err := report.WriteJSON(cfg.ReportJSON, report.NewJSONReport(summary, files)); err != nil {
			return err
		}
	}
	if cfg.ReportCSV != "" {
		if err := report.WriteCSV(cfg.ReportCSV, files); err != nil {
			return err
		}
	}
	return nil
}

func (p *precompiler) run(ctx context.Context) error {
	cfg := p.cfg
	files, err := fswalk.DiscoverTemplates(cfg.In, cfg.Glob)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no template files matched %q under %q", cfg.Glob, cfg.In)
	}

	var (
		compiled        int
		compileFailed   int
		roundTripFailed int
		renderFailed    int
		noSample        int
		cacheHits       int

		helpers   = map[string]struct{}{}
		fileItems = make([]report.FileItem, 0, len(files))

		stopErr  error
		stopCode = ExitCodeSuccess
	)

	for _, f := range files {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		raw, err := os.ReadFile(f.AbsPath)
		if err != nil {
			return fmt.Errorf("read %q: %w", f.AbsPath, err)
		}

		item := report.FileItem{
			File: f.RelPath,
		}

		result, err := p.compile(f.RelPath, string(raw))
		if err != nil {
			compileFailed++
			item.Status = report.StatusCompileError
			item.Diagnostics = []report.DiagnosticItem{report.ToDiagnosticItem(f.RelPath, err)}
			fileItems = append(fileItems, item)
			p.logger.Warn("compile failed", "file", f.RelPath, "error", err)
			if cfg.Strict {
				stopErr = fmt.Errorf("compile failed on %s: %w", f.RelPath, err)
				stopCode = ExitCodeCompileFailed
				break
			}
			continue
		}
		if result.cached {
			cacheHits++
		}
		item.Cached = result.cached
		item.Statements = len(result.spec.Statements)
		item.FeaturesDetected = append(item.FeaturesDetected, result.features...)
		item.HelpersRequired = p.missingHelpers(result.features)
		for _, h := range item.HelpersRequired {
			helpers[h] = struct{}{}
		}

		encoded, err := speccheck.RoundTrip(moduleName(f.RelPath), result.spec, p.format)
		if err != nil {
			roundTripFailed++
			item.Status = report.StatusRoundTripError
			item.Diagnostics = []report.DiagnosticItem{report.ToDiagnosticItem(f.RelPath, err)}
			fileItems = append(fileItems, item)
			p.logger.Warn("round-trip check failed", "file", f.RelPath, "error", err)
			if cfg.Strict {
				stopErr = fmt.Errorf("round-trip check failed on %s: %w", f.RelPath, err)
				stopCode = ExitCodeValidationFailed
				break
			}
			continue
		}

		var rendered string
		if cfg.RenderCheck {
			samplePath := rendercheck.SamplePath(cfg.SamplesRoot, f.RelPath)
			item.RenderChecked = true
			item.SamplePath = samplePath
			status, htmlOut, renderErr := p.renderCheck(f.RelPath, result.spec, samplePath)
			if renderErr != nil {
				renderFailed++
				item.Status = report.StatusRenderError
				item.Diagnostics = []report.DiagnosticItem{report.ToDiagnosticItem(f.RelPath, renderErr)}
				fileItems = append(fileItems, item)
				p.logger.Warn("render-check failed", "file", f.RelPath, "error", renderErr)
				if cfg.Strict {
					stopErr = fmt.Errorf("render-check failed on %s: %w", f.RelPath, renderErr)
					stopCode = ExitCodeValidationFailed
					break
				}
				continue
			}
			if status == rendercheck.StatusNoSample {
				noSample++
				item.Status = report.StatusCompiledNoData
			} else {
				rendered = htmlOut
			}
		}
		if item.Status == "" {
			item.Status = report.StatusCompiled
		}

		outPath := fswalk.MirrorOutputPath(cfg.Out, f.RelPath, p.format.Ext())
		if err := fswalk.EnsureParentDir(outPath); err != nil {
			return fmt.Errorf("prepare output path %q: %w", outPath, err)
		}
		if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
			return fmt.Errorf("write spec %q: %w", outPath, err)
		}
		item.SpecPath = outPath
		if item.Status == report.StatusCompiled && cfg.RenderCheck {
			renderedPath := fswalk.MirrorOutputPath(cfg.Out, f.RelPath, ".rendered.html")
			if err := os.WriteFile(renderedPath, []byte(rendered), 0o644); err != nil {
				return fmt.Errorf("write rendered output %q: %w", renderedPath, err)
			}
			item.RenderedPath = renderedPath
		}
		compiled++
		fileItems = append(fileItems, item)
	}

	helperList := make([]string, 0, len(helpers))
	for h := range helpers {
		helperList = append(helperList, h)
	}
	sort.Strings(helperList)

	p.logger.Info(
		"precompile summary",
		"discovered",
		len(files),
		"compiled",
		compiled,
		"compile_failed",
		compileFailed,
		"roundtrip_failed",
		roundTripFailed,
		"render_failed",
		renderFailed,
		"no_sample",
		noSample,
		"cache_hits",
		cacheHits,
		"input",
		filepath.Clean(cfg.In),
		"output",
		filepath.Clean(cfg.Out),
	)

	summary := report.Summary{
		Discovered:      len(files),
		Compiled:        compiled,
		CompileFailed:   compileFailed,
		RoundTripFailed: roundTripFailed,
		RenderFailed:    renderFailed,
		NoSample:        noSample,
		CacheHits:       cacheHits,
		HelpersNeeded:   helperList,
	}

	if err := writeReports(cfg, summary, fileItems); err != nil {
		return fmt.Errorf("write report artifacts: %w", err)
	}

	if len(helperList) > 0 {
		p.logger.Info("helpers needed", "helpers", helperList)
	}
	if cfg.ReportJSON != "" || cfg.ReportCSV != "" {
		p.logger.Info("reports written", "json", cfg.ReportJSON, "csv", cfg.ReportCSV)
	}

	if stopErr != nil {
		return newExitError(stopCode, stopErr)
	}

	if compileFailed > 0 {
		return newExitError(ExitCodeCompileFailed, fmt.Errorf("precompile finished with %d failed files", compileFailed))
	}
	if roundTripFailed > 0 || renderFailed > 0 {
		return newExitError(ExitCodeValidationFailed, fmt.Errorf("validation finished with roundtrip_failed=%d render_failed=%d", roundTripFailed, renderFailed))
	}

	return nil
}

func (p *precompiler) renderCheck(relPath string, spec *compiler.Spec, samplePath string) (rendercheck.Status, string, error) {
	tmpl, err := runtime.FromSpec(spec)
	if err != nil {
		return rendercheck.StatusNoSample, "", err
	}
	return rendercheck.RenderWithSample(relPath, tmpl, samplePath, rendercheck.Options{Env: p.env, Minify: p.cfg.Minify})
}
