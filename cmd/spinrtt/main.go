package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vjranagit/spinrtt/internal/config"
	"github.com/vjranagit/spinrtt/internal/metrics"
	"github.com/vjranagit/spinrtt/pkg/pipeline"
	"github.com/vjranagit/spinrtt/pkg/storage"
)

const (
	version = "0.3.0"
)

// app carries what every subcommand needs once the configuration is loaded
type app struct {
	configPath string

	cfg      *config.Config
	log      *logrus.Logger
	store    *storage.CachedStorage
	engine   *pipeline.Engine
	registry *prometheus.Registry
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp()
	err := newRootCmd(a).ExecuteContext(ctx)
	if terr := a.teardown(); terr != nil {
		a.log.WithError(terr).Error("teardown failed")
		err = terr
	}
	if err != nil {
		os.Exit(1)
	}
}

func newApp() *app {
	return &app{log: logrus.StandardLogger()}
}

// newRootCmd wires the subcommands to a. The caller owns a and must call
// a.teardown once the command returns, whether or not it failed.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "spinrtt",
		Short:         "Offline accuracy analysis of passive RTT measurements",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "configuration file (yaml, toml or json)")

	root.AddCommand(
		newIngestCmd(a),
		newRunsCmd(a),
		newECDFCmd(a),
		newCompareCmd(a),
		newSmoothCmd(a),
	)

	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	a.cfg = cfg

	if err := cfg.Log.Apply(a.log); err != nil {
		return errors.Wrap(err, "invalid log configuration")
	}

	a.log.WithFields(logrus.Fields{
		"version":     version,
		"storage":     cfg.Storage.Path,
		"compression": cfg.Storage.CompressionLevel,
		"workers":     cfg.Analysis.Workers,
	}).Debug("configuration loaded")

	base, err := storage.NewStorage(cfg.ToStorageConfig())
	if err != nil {
		return errors.Wrap(err, "failed to initialize storage")
	}
	a.store = storage.NewCachedStorage(base, cfg.Storage.CacheCapacity, cfg.Storage.CacheTTL)
	a.engine = pipeline.NewEngine(a.store, cfg.Analysis.Workers, a.log)
	a.registry = metrics.NewRegistry()

	return nil
}

// teardown flushes metrics and closes the store. It is safe to call more than once.
func (a *app) teardown() error {
	if a.store == nil {
		return nil
	}
	store := a.store
	a.store = nil

	stats, hits, misses := store.CacheStats()
	metrics.CacheHitRatio.Set(store.CacheHitRate() / 100)
	a.log.WithFields(logrus.Fields{
		"cached": stats.Size,
		"hits":   hits,
		"misses": misses,
	}).Debug("result cache")

	if err := metrics.WriteTextfile(a.registry, a.cfg.Metrics.Textfile); err != nil {
		a.log.WithError(err).Warn("failed to write metrics textfile")
	}

	return errors.Wrap(store.Close(), "failed to close storage")
}
