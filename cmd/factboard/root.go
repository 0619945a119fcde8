package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/spektr-org/factboard/cache"
	"github.com/spektr-org/factboard/config"
	"github.com/spektr-org/factboard/engine"
	"github.com/spektr-org/factboard/helpers"
	"github.com/spektr-org/factboard/schema"
)

// app holds what every command needs once configuration is loaded.
type app struct {
	cfgFile string

	cfg      *config.Config
	logger   *slog.Logger
	registry *schema.Registry
	metrics  *prometheus.Registry
	loader   *helpers.Loader
	executor *engine.Executor
}

// newRootCmd creates the root command with all subcommands.
func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "factboard",
		Short: "factboard - faceted dashboards over fact datasets",
		Long: `factboard loads crime fact tables (counts, police strength, time of
occurrence, resolutions), filters them by year, month, area and category, and
computes the KPIs and panels of each dataset's dashboard.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "__complete" {
				return nil
			}
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.writeMetrics()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: ./factboard.yaml)")
	flags.String("data-dir", "", "directory holding the dataset CSV files")
	flags.String("registry", "", "YAML file with additional dataset definitions")
	flags.Int("cache-size", 0, "number of canonical tables kept in memory")
	flags.Int("parallelism", 0, "panels computed concurrently")
	flags.StringP("output", "o", "", "output format (table|json)")
	flags.String("log-level", "", "log level (debug|info|warn|error)")
	flags.String("log-format", "", "log format (text|json)")
	flags.Int("preview-rows", 0, "rows shown by explore")
	flags.String("metrics-out", "", "write Prometheus metrics to this file on exit")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.OutputTable, config.OutputJSON}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newDatasetsCommand(a))
	rootCmd.AddCommand(newDashboardCommand(a))
	rootCmd.AddCommand(newAggregateCommand(a))
	rootCmd.AddCommand(newFacetsCommand(a))
	rootCmd.AddCommand(newExploreCommand(a))

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}
	logger, err := cfg.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if cfg.FileUsed != "" {
		logger.Debug("using config file", slog.String("path", cfg.FileUsed))
	}

	registry := schema.Default()
	if cfg.RegistryFile != "" {
		if err := loadRegistryFile(registry, cfg.RegistryFile); err != nil {
			return err
		}
	}

	metrics := prometheus.NewRegistry()
	tables, err := cache.NewLRU(cfg.CacheSize, cache.NewMetrics(metrics), logger)
	if err != nil {
		return fmt.Errorf("failed to create table cache: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.registry = registry
	a.metrics = metrics
	a.loader = helpers.NewLoader(tables, logger)
	a.executor = engine.NewExecutor(registry,
		engine.WithLogger(logger),
		engine.WithRegisterer(metrics),
		engine.WithParallelism(cfg.Parallelism))
	return nil
}

func loadRegistryFile(registry *schema.Registry, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open registry file: %w", err)
	}
	defer f.Close()

	datasets, err := schema.LoadYAML(f)
	if err != nil {
		return fmt.Errorf("registry file %s: %w", path, err)
	}
	for _, ds := range datasets {
		if err := registry.Register(ds); err != nil {
			return fmt.Errorf("registry file %s: %w", path, err)
		}
	}
	return nil
}

// loadDataset resolves the dataset schema and loads its canonical table.
// An explicit file overrides the configured location.
func (a *app) loadDataset(ctx context.Context, name, file string) (schema.Dataset, *engine.Table, error) {
	ds, err := a.registry.SchemaFor(name)
	if err != nil {
		return schema.Dataset{}, nil, err
	}
	if file == "" {
		file = a.cfg.FileFor(ds)
	}
	table, err := a.loader.LoadFile(ctx, file, ds)
	if err != nil {
		return schema.Dataset{}, nil, err
	}
	return ds, table, nil
}

func (a *app) renderer(cmd *cobra.Command) *renderer {
	mode := config.DefaultOutput
	if a.cfg != nil {
		mode = a.cfg.Output
	}
	return newRenderer(cmd.OutOrStdout(), mode)
}

func (a *app) writeMetrics() error {
	if a.cfg == nil || a.cfg.MetricsOut == "" {
		return nil
	}
	families, err := a.metrics.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	f, err := os.Create(a.cfg.MetricsOut)
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	defer f.Close()
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(f, mf); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}
