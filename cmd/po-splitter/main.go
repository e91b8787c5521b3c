// Package main is the po-splitter CLI: split a scanned batch of purchase
// orders into one PDF per order, or serve the same operation over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Lllllllleong/posplitter/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	appConfig config.Config
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "po-splitter",
	Short: "Split multi-document PDFs on \"Page X of X\" markers",
	Long: `po-splitter splits a PDF holding several documents, such as a batch of
purchase orders from a scanner or fax system, into one PDF per document.

A document ends on the page whose "Page X of Y" footer has X equal to Y.
Each output is named PO_<number>.pdf after the first "Purchase Order No.:"
found in its pages, or Document_<n>.pdf otherwise. Existing files are never
overwritten; a " (1)", " (2)", ... suffix is added instead.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfgFile, _ := cmd.Flags().GetString("config")
		if err := config.Init(viper.GetViper(), cfgFile); err != nil {
			return err
		}
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		appConfig = cfg
		logger = cfg.Log.NewLogger(os.Stderr)
		slog.SetDefault(logger)
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug("Using config file.", "path", used)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./po-splitter.yaml or ~/.config/po-splitter/po-splitter.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text or json")

	mustBindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	mustBindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// mustBindPFlag binds a flag to a viper key. It only fails for a nil flag,
// which is a wiring mistake.
func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag for %s: %v", key, err))
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
