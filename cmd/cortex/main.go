package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/cortex/internal/config"
	"github.com/nikbrunner/cortex/internal/core"
	"github.com/nikbrunner/cortex/internal/logger"
)

var (
	cfgFile      string
	logLevelFlag string
)

// app carries what every command needs once the root pre-run finished.
type app struct {
	cfg *config.Config
	log logger.Logger
	svc *core.Service
}

var current app

var rootCmd = &cobra.Command{
	Use:   "cortex",
	Short: "cortex - bookmark manager with categories, tags and themes",
	Long: `cortex keeps bookmarks grouped in categories, mirrors them into a
fallback store and serves them to the browser extension over a local API.

Data lives in ~/.config/cortex unless data.dir says otherwise.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevelFlag != "" {
			cfg.Log.Level = logLevelFlag
		}
		log, err := logger.New(cfg.Log.Level, cfg.Log.Pretty)
		if err != nil {
			return err
		}
		if cfg.File != "" {
			log.Debug("config loaded", logger.String("file", cfg.File))
		}

		svc, err := core.Open(cmd.Context(), core.Options{Config: cfg, Logger: log})
		if err != nil {
			return fmt.Errorf("open cortex: %w", err)
		}
		current = app{cfg: cfg, log: log, svc: svc}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if current.svc == nil {
			return nil
		}
		err := current.svc.Close()
		_ = current.log.Sync()
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/cortex/config.yaml or ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn, error (overrides config)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if current.svc != nil {
			current.svc.Close()
		}
		os.Exit(1)
	}
}
