// main.go - Entry point for the sparkd daemon
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sparknote/internal/api"
	"sparknote/internal/note"
	"sparknote/internal/store"
)

const version = "1.0.0"

var configPath string

func main() {
	root := &cobra.Command{
		Use:     "sparkd",
		Short:   "Note commitment and spent-nullifier tracking daemon",
		Version: version,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "sparkd.json", "path to config file")

	root.AddCommand(serveCmd(), exportCmd(), importCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadDaemonConfig() (*Config, *zap.Logger, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	logger, err := NewLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadDaemonConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			var spentStore *store.SpentStore
			spent := note.NewSpentSet()
			if cfg.EnablePersistence {
				spentStore, err = store.Open(cfg.DataDir)
				if err != nil {
					return err
				}
				defer spentStore.Close()
				spentStore.SetLogger(logger)

				// Replay the durable ledger into memory before serving.
				spent, err = spentStore.Load()
				if err != nil {
					return err
				}
			}
			registry := note.NewRegistry(spent)

			metrics := NewMetricsCollector()
			health := NewHealthChecker(version)
			health.RegisterComponent("spent_set", func() error {
				metrics.SetGauge(MetricSpentSetSize, float64(registry.SpentCount()), nil)
				metrics.SetGauge(MetricNoteCount, float64(registry.NoteCount()), nil)
				return nil
			})
			if spentStore != nil {
				health.RegisterComponent("spent_store", func() error {
					_, err := spentStore.Count()
					return err
				})
			}

			limiter := NewClientRateLimiter(cfg.RateLimitBurst, cfg.RateLimitPerSecond, time.Second)

			gin.SetMode(gin.ReleaseMode)
			router := api.New(registry, spentStore).
				SetLogger(logger).
				Router(limiter.Middleware(), metrics.Middleware())
			router.GET("/healthz", health.Handler())
			router.GET("/metricsz", metrics.Handler())

			srv := &http.Server{
				Addr:    cfg.ListenAddr,
				Handler: router,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("server listening",
					zap.String("addr", cfg.ListenAddr),
					zap.Bool("persistence", cfg.EnablePersistence),
					zap.Int("spent_nullifiers", spent.Len()))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-stop:
				logger.Info("shutting down", zap.String("signal", sig.String()))
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
}

func exportCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the persisted spent-set to a portable JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadDaemonConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if !cfg.EnablePersistence {
				return fmt.Errorf("persistence is disabled; nothing to export")
			}
			spentStore, err := store.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			defer spentStore.Close()

			spent, err := spentStore.Load()
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = cfg.ExportPath
			}
			if err := spent.SaveToFile(outPath); err != nil {
				return err
			}
			logger.Info("spent-set exported",
				zap.String("path", outPath), zap.Int("nullifiers", spent.Len()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (defaults to export_path from config)")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a spent-set export into the persisted store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadDaemonConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if !cfg.EnablePersistence {
				return fmt.Errorf("persistence is disabled; nothing to import into")
			}
			imported, err := note.LoadSpentSetFromFile(args[0])
			if err != nil {
				return err
			}

			spentStore, err := store.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			defer spentStore.Close()

			added := 0
			for _, n := range imported.Export() {
				err := spentStore.Add(n)
				if note.IsAlreadySpent(err) {
					continue
				}
				if err != nil {
					return err
				}
				added++
			}
			logger.Info("spent-set imported",
				zap.String("path", args[0]),
				zap.Int("total", imported.Len()),
				zap.Int("added", added))
			return nil
		},
	}
}
