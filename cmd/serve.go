package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blueprintkit/bioblueprint/internal/dataset"
	"github.com/blueprintkit/bioblueprint/internal/server"
	"github.com/blueprintkit/bioblueprint/internal/task"
)

var (
	servePort       int
	serveUploadRoot string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for async image analysis",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		registry := task.NewRegistry(time.Duration(cfg.Task.RetentionMinutes) * time.Minute)
		defer registry.Close()

		runner := &server.PipelineRunner{
			Pipeline:   env.Pipeline,
			Preprocess: preprocessOptions(),
		}
		srvHandler := server.New(
			cfg.Server,
			runner,
			registry,
			dataset.Catalog{Root: cfg.Datasets.Root},
			serveUploadRoot,
		)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srvHandler.Router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveUploadRoot, "upload-dir", "uploads", "directory for staging multipart uploads")
	rootCmd.AddCommand(serveCmd)
}
