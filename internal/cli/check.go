package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cruffinoni/gobars"
	"github.com/cruffinoni/gobars/internal/compiler"
	"github.com/cruffinoni/gobars/internal/report"
	"github.com/cruffinoni/gobars/internal/speccheck"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE...",
		Short: "Compile templates and report their diagnostics",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.OutOrStdout(), cmd.ErrOrStderr(), a, args)
		},
	}
}

// runCheck compiles every file and verifies its spec round trip in the
// configured format. Diagnostics go to stderr, one line per failing file.
func runCheck(stdout, stderr io.Writer, a *app, files []string) error {
	format, err := compiler.ParseFormat(a.cfg.Format)
	if err != nil {
		return err
	}

	var compileFailed, roundTripFailed int
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %q: %w", path, err)
		}
		name := filepath.ToSlash(path)

		spec, err := gobars.CompileSpec(string(raw), gobars.Options{ModuleName: name})
		if err != nil {
			compileFailed++
			fmt.Fprintln(stderr, diagnosticLine(name, err))
			continue
		}
		if _, err := speccheck.RoundTrip(name, spec, format); err != nil {
			roundTripFailed++
			fmt.Fprintln(stderr, diagnosticLine(name, err))
			continue
		}
		fmt.Fprintf(stdout, "%s: ok (%d statements)\n", name, len(spec.Statements))
	}

	a.logger.Debug("check summary", "files", len(files), "compile_failed", compileFailed, "roundtrip_failed", roundTripFailed)
	if compileFailed > 0 {
		return newExitError(ExitCodeCompileFailed, fmt.Errorf("%d of %d templates failed to compile", compileFailed, len(files)))
	}
	if roundTripFailed > 0 {
		return newExitError(ExitCodeValidationFailed, fmt.Errorf("%d of %d specs failed the round-trip check", roundTripFailed, len(files)))
	}
	return nil
}

// diagnosticLine formats one syntax or render error for terminal output.
func diagnosticLine(file string, err error) string {
	item := report.ToDiagnosticItem(file, err)
	loc := item.File
	if loc == "" {
		loc = file
	}
	if item.Line > 0 {
		loc = fmt.Sprintf("%s:%d:%d", loc, item.Line, item.Column)
	}
	line := fmt.Sprintf("%s [%s] %s", loc, item.Code, item.Message)
	if item.Snippet != "" {
		line += "\n    " + item.Snippet
	}
	return line
}
