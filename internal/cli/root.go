package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cruffinoni/gobars/internal/config"
	"github.com/cruffinoni/gobars/internal/logging"
)

// app is the state shared by the commands of one invocation.
type app struct {
	cfg        config.Config
	configPath string
	logger     *slog.Logger
}

// NewRootCmd wires CLI flags to configuration and registers the commands.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{cfg: config.Default(), logger: slog.Default()})
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gobars",
		Short:         "Compile Handlebars HTML templates into specs and render them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file (default ./"+config.DefaultFile+" when present)")
	pf.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "Log level: debug, info, warn or error")
	pf.StringVar(&a.cfg.LogFormat, "log-format", a.cfg.LogFormat, "Log format: text or json")

	cmd.AddCommand(newPrecompileCmd(a), newRenderCmd(a), newCheckCmd(a))
	return cmd
}

// setup merges the config file under the flags given on the command line,
// validates the result and installs the logger.
func (a *app) setup(cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err == nil {
			path = config.DefaultFile
		}
	}
	if path != "" {
		explicit := map[string]string{}
		cmd.Flags().Visit(func(f *pflag.Flag) {
			explicit[f.Name] = f.Value.String()
		})
		if err := a.cfg.Merge(path); err != nil {
			return err
		}
		for name, value := range explicit {
			if err := cmd.Flags().Set(name, value); err != nil {
				return fmt.Errorf("reapply --%s: %w", name, err)
			}
		}
	}

	if err := a.cfg.Validate(); err != nil {
		return err
	}
	logger, err := logging.Configure(a.cfg.LogLevel, a.cfg.LogFormat)
	if err != nil {
		return err
	}
	a.logger = logger
	if path != "" {
		logger.Debug("config loaded", "path", path)
	}
	return nil
}
