package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/posplitter/internal/api"
	"github.com/Lllllllleong/posplitter/internal/splitter"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the split operation over HTTP",
	Long: `Serve starts a local HTTP API:

  GET  /health      liveness probe
  POST /api/split   {"inputPath": "...", "outputDir": "..."}

outputDir falls back to output_dir from the config. Paths are read and
written on the server's filesystem.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8090)")
	mustBindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sp := splitter.New(splitter.WithLogger(logger))
	srv := api.NewServer(sp, logger, appConfig.OutputDir)

	httpServer := &http.Server{
		Addr:         appConfig.Server.Addr,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down.")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("Starting po-splitter server.", "addr", appConfig.Server.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
