package cli

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cruffinoni/gobars"
	"github.com/cruffinoni/gobars/internal/compiler"
	"github.com/cruffinoni/gobars/internal/config"
)

func execute(t *testing.T, args ...string) (*app, string, string, error) {
	t.Helper()
	a := &app{cfg: config.Default(), logger: slog.Default()}
	cmd := newRootCmd(a)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return a, stdout.String(), stderr.String(), err
}

func TestConfigFileUnderFlags(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "gobars.yaml")
	mustWrite(t, cfgPath, "log_level: warn\nformat: yaml\nminify: true\n")
	tpl := filepath.Join(dir, "a.hbs")
	mustWrite(t, tpl, `<p>{{x}}</p>`)

	a, stdout, _, err := execute(t, "--config", cfgPath, "--log-level", "error", "check", tpl)
	require.NoError(t, err)
	require.Equal(t, "error", a.cfg.LogLevel)
	require.Equal(t, "yaml", a.cfg.Format)
	require.True(t, a.cfg.Minify)
	require.Contains(t, stdout, "a.hbs: ok (1 statements)")
}

func TestInvalidConfigFails(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "gobars.yaml")
	mustWrite(t, cfgPath, "log_format: xml\n")
	tpl := filepath.Join(dir, "a.hbs")
	mustWrite(t, tpl, `x`)

	_, _, _, err := execute(t, "--config", cfgPath, "check", tpl)
	require.ErrorContains(t, err, "log_format must be one of")

	_, _, _, err = execute(t, "--config", filepath.Join(dir, "missing.yaml"), "check", tpl)
	require.ErrorContains(t, err, "read config")
}

func TestCheckReportsDiagnostics(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.hbs")
	bad := filepath.Join(dir, "bad.hbs")
	mustWrite(t, good, `{{#each xs as |x|}}{{x}}{{/each}}`)
	mustWrite(t, bad, `<div>{{#if x}}</div>{{/if}}`)

	_, stdout, stderr, err := execute(t, "check", good, bad)
	require.Equal(t, ExitCodeCompileFailed, exitCode(t, err))
	require.Contains(t, stdout, "good.hbs: ok")
	require.Contains(t, stderr, "bad.hbs:1:")
	require.Contains(t, stderr, "[SYNTAX_")

	_, _, _, err = execute(t, "check")
	require.Error(t, err)
}

func TestRenderTemplateSource(t *testing.T) {
	dir := t.TempDir()
	tpl := filepath.Join(dir, "list.hbs")
	mustWrite(t, tpl, "<ul>\n  {{#each items as |item|}}<li class=\"{{item.cls}}\">{{item.name}}</li>{{/each}}\n</ul>")
	data := filepath.Join(dir, "data.json")
	mustWrite(t, data, `{"items":[{"name":"a","cls":"on"},{"name":"b","cls":"off"}]}`)

	_, stdout, _, err := execute(t, "render", "--template", tpl, "--data", data, "--minify", "--cache-dir", filepath.Join(dir, "cache"))
	require.NoError(t, err)
	require.Equal(t, "<ul><li class=\"on\">a</li><li class=\"off\">b</li></ul>\n", stdout)

	entries, err := os.ReadDir(filepath.Join(dir, "cache"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRenderPrecompiledSpecInContext(t *testing.T) {
	dir := t.TempDir()
	encoded, err := gobars.Precompile(`<tr><td>{{v}}</td></tr>`, gobars.Options{ModuleName: "row.hbs"}, compiler.FormatYAML)
	require.NoError(t, err)
	spec := filepath.Join(dir, "row.yaml")
	mustWrite(t, spec, string(encoded))
	data := filepath.Join(dir, "data.json")
	mustWrite(t, data, `{"v":3}`)

	_, stdout, _, err := execute(t, "render", "--template", spec, "--data", data, "--context", "tbody")
	require.NoError(t, err)
	require.Equal(t, "<tr><td>3</td></tr>\n", stdout)
}

func TestRenderWithHelpersAndErrors(t *testing.T) {
	dir := t.TempDir()
	tpl := filepath.Join(dir, "a.hbs")
	mustWrite(t, tpl, `<b>{{shout name}}</b>`)
	data := filepath.Join(dir, "data.json")
	mustWrite(t, data, `{"name":"hi"}`)
	script := filepath.Join(dir, "helpers.star")
	mustWrite(t, script, "def shout(s):\n    return s.upper()\n")

	_, stdout, _, err := execute(t, "render", "--template", tpl, "--data", data, "--helpers", script)
	require.NoError(t, err)
	require.Equal(t, "<b>HI</b>\n", stdout)

	_, _, _, err = execute(t, "render", "--template", tpl, "--data", data)
	require.Equal(t, ExitCodeValidationFailed, exitCode(t, err))
	require.Contains(t, err.Error(), "a.hbs:1:3")

	broken := filepath.Join(dir, "broken.hbs")
	mustWrite(t, broken, `<p>`)
	_, _, _, err = execute(t, "render", "--template", broken)
	require.Equal(t, ExitCodeCompileFailed, exitCode(t, err))

	_, _, _, err = execute(t, "render", "--template", tpl, "--data", filepath.Join(dir, "nope.json"))
	require.ErrorContains(t, err, "does not exist")
}

func TestExitCode(t *testing.T) {
	require.Equal(t, ExitCodeSuccess, ExitCode(nil))
	require.Equal(t, ExitCodeError, ExitCode(errors.New("boom")))
	wrapped := fmt.Errorf("run: %w", newExitError(ExitCodeValidationFailed, errors.New("bad sample")))
	require.Equal(t, ExitCodeValidationFailed, ExitCode(wrapped))
	require.Equal(t, "run: bad sample", wrapped.Error())
	require.Equal(t, "exit code 2", (&ExitError{Code: 2}).Error())
}
