package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/config"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/database"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/handlers"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/pipeline"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/router"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run history API and re-run the batch on an interval",
	Long: `Starts the HTTP API over recorded batches and runs a batch every
pipeline.interval. Serving always records batches, using the configured
database driver.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Init(config.Conf.Database, log); err != nil {
		return err
	}

	scheduler := services.NewScheduler(log, config.Conf.Pipeline.Interval, func(ctx context.Context) (*pipeline.Report, error) {
		return runBatch(ctx, pipeline.DBStore{})
	})
	scheduler.Start(ctx)

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	r := router.Setup(log, handlers.NewRunsHandler(log, scheduler), router.Options{})

	srv := &http.Server{
		Addr:              ":" + config.Conf.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", "http://localhost"+srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info("Shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	scheduler.Wait()
	return nil
}
