// Package cli implements the runviewer command line.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tOgg1/runviewer/internal/config"
	"github.com/tOgg1/runviewer/internal/logging"
)

// envFiles are tried in order; the first one found is loaded. Values already
// present in the environment win.
var envFiles = []string{".env", "../.env", "../../.env"}

type rootOptions struct {
	configFile string
	logLevel   string
	logFormat  string
	task       string
	basePath   string
	origin     string
	dir        string
}

// app carries what every command needs once flags are parsed.
type app struct {
	version string
	opts    rootOptions

	root    *cobra.Command
	loader  *config.Loader
	cfg     *config.Config
	session string
	logger  zerolog.Logger
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd(version).ExecuteContext(ctx)
}

func newRootCmd(version string) *cobra.Command {
	a := &app{version: version, logger: logging.Component("cli")}
	cmd := &cobra.Command{
		Use:           "runviewer",
		Short:         "Browse recorded agent episodes frame by frame",
		Long:          "runviewer prefetches and plays back the env and memory frames of recorded training runs.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	a.root = cmd

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.opts.configFile, "config", "", "config file (default is $HOME/.config/runviewer/config.yaml)")
	flags.StringVar(&a.opts.logLevel, "log-level", "", "override logging level (debug, info, warn, error)")
	flags.StringVar(&a.opts.logFormat, "log-format", "", "override logging format (json, console)")
	flags.StringVar(&a.opts.task, "task", "", "task type: maze|memory")
	flags.StringVar(&a.opts.basePath, "base-path", "", "deployment prefix of the static tree, e.g. /ppo_lstm_viewer")
	flags.StringVar(&a.opts.origin, "origin", "", "HTTP origin serving the static tree")
	flags.StringVar(&a.opts.dir, "dir", "", "local site root containing static/runs")

	cmd.AddCommand(
		newViewCmd(a),
		newPrefetchCmd(a),
		newBuildManifestCmd(a),
		newServeCmd(a),
	)
	return cmd
}

// flagBindings maps persistent flags onto config keys.
var flagBindings = map[string]string{
	"log-level":  "logging.level",
	"log-format": "logging.format",
	"task":       "source.task",
	"base-path":  "source.base_path",
	"origin":     "source.origin",
	"dir":        "source.dir",
}

// setup loads .env and config, then initializes logging for the session.
func (a *app) setup() error {
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	a.loader = config.NewLoader()
	if a.opts.configFile != "" {
		a.loader.SetConfigFile(a.opts.configFile)
	}
	for flagName, key := range flagBindings {
		if err := a.loader.BindFlag(key, a.root.PersistentFlags().Lookup(flagName)); err != nil {
			return err
		}
	}
	cfg, err := a.loader.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       os.Stderr,
		EnableCaller: cfg.Logging.EnableCaller,
	})
	a.session = uuid.NewString()
	a.logger = logging.WithSession(logging.Component("cli"), a.session)
	if used := a.loader.ConfigFileUsed(); used != "" {
		a.logger.Debug().Str("config_file", used).Msg("loaded config file")
	}
	return nil
}
