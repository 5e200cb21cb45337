package main

import (
	"github.com/goliatone/go-callcache/cache"
	"github.com/goliatone/go-callcache/callcache"
	"github.com/goliatone/go-callcache/pkg/di"
	"github.com/goliatone/go-callcache/report"
	"github.com/spf13/cobra"
)

// app holds the state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string
	format     string
	noColor    bool

	container *di.Container
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "callcache",
		Short:         "Measure how much memoization would help a workload",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.container == nil {
				return nil
			}
			return a.container.Close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (yaml, json or toml)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flags.StringVarP(&a.format, "format", "f", "", "report format override (table, json, log)")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colors in the table report")

	root.AddCommand(
		newFibCommand(a),
		newPathsCommand(a),
		newReportCommand(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := cache.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.format != "" {
		cfg.Report.Format = a.format
	}
	if a.noColor {
		cfg.Report.Color = false
	}

	a.container, err = di.NewContainer(cfg)
	return err
}

// scopeOptions returns the container options with the report redirected to
// the command output when it targets stdout.
func (a *app) scopeOptions(cmd *cobra.Command) []callcache.Option {
	opts := a.container.Options()

	cfg := a.container.Config().Report
	if cfg.Enabled && cfg.Output == cache.OutputStdout {
		renderer, _ := report.FromConfig(cfg, a.container.Logger())
		opts = append(opts, callcache.WithReporter(renderer, cmd.OutOrStdout()))
	}
	return opts
}
