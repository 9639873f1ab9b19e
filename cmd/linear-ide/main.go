package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/roeyazroel/linear-ide/internal/config"
	"github.com/roeyazroel/linear-ide/internal/logger"
	"github.com/roeyazroel/linear-ide/internal/tui"
	"github.com/roeyazroel/linear-ide/internal/workbench"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func main() {
	if err := fang.Execute(context.Background(), newRootCmd(), fang.WithVersion(VersionInfo())); err != nil {
		os.Exit(1)
	}
}

// rootOptions is shared by every subcommand.
type rootOptions struct {
	v          *viper.Viper
	configFile string
}

// flagKeys maps persistent flags onto config keys.
var flagKeys = map[string]string{
	"api-endpoint":     config.KeyAPIEndpoint,
	"log-file":         config.KeyLogFile,
	"log-level":        config.KeyLogLevel,
	"repository":       config.KeyRepository,
	"team":             config.KeyDefaultTeam,
	"auto-refresh":     config.KeyAutoRefreshInterval,
	"credentials-file": config.KeyCredentialsFile,
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: config.New()}

	cmd := &cobra.Command{
		Use:   "linear-ide",
		Short: "Your assigned Linear issues, grouped by cycle, next to your git repository",
		Long: `linear-ide shows the Linear issues assigned to you grouped by cycle.
Open an issue to read its description and comments, move it to another
workflow state, or start work on it by checking out its suggested git branch.

Run without a subcommand to open the terminal interface.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default "+config.Dir()+"/config.yaml)")
	flags.String("api-endpoint", config.DefaultEndpoint, "Linear GraphQL endpoint")
	flags.String("log-file", "", "write logs to this file")
	flags.String("log-level", "warning", "log level: debug, info, warning or error")
	flags.String("repository", ".", "git repository used by start work")
	flags.String("team", "", "team id the issue list starts filtered to")
	flags.Int("auto-refresh", 0, "refresh interval in seconds, 0 disables")
	flags.String("credentials-file", "", "file holding the stored API key")
	bindFlags(opts.v, flags)

	cmd.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newIssuesCmd(opts),
		newTeamsCmd(opts),
		newBranchCmd(opts),
	)
	return cmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

// load resolves the configuration and starts the file logger.
func (o *rootOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.v, o.configFile)
	if err != nil {
		return config.Config{}, err
	}
	if err := logger.Init(cfg.LogFile, logger.ParseLevel(cfg.LogLevel)); err != nil {
		return config.Config{}, fmt.Errorf("initialize logger: %w", err)
	}
	logger.Debug("main: configuration endpoint=%s page_size=%d auto_refresh=%d",
		cfg.APIEndpoint, cfg.PageSize, cfg.AutoRefreshInterval)
	return cfg, nil
}

func runTUI(ctx context.Context, opts *rootOptions) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	defer logger.Close()

	logger.Info("Application starting")
	app := tui.NewApp(workbench.Options{Config: cfg})

	if opts.v.ConfigFileUsed() != "" {
		current := cfg
		config.Watch(opts.v, func(next config.Config) {
			if next.LogFile != current.LogFile || next.LogLevel != current.LogLevel {
				if err := logger.Reinit(next.LogFile, logger.ParseLevel(next.LogLevel)); err != nil {
					app.Error(err.Error())
				}
			}
			current = next
			logger.Info("main: configuration reloaded")
			app.Workbench().Reconfigure(next)
		}, func(err error) {
			logger.ErrorWithErr(err, "main: configuration reload rejected")
			app.Warn("Ignoring config change: " + err.Error())
		})
	}

	if err := app.Run(ctx); err != nil {
		logger.ErrorWithErr(err, "Application error")
		return fmt.Errorf("run terminal interface: %w", err)
	}
	logger.Info("Application shutdown")
	return nil
}
