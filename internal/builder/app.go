package builder

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/futig/workspace-agent/internal/telegram"
	"github.com/futig/workspace-agent/internal/usecase/document"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// App represents the application with all its components
type App struct {
	server    *http.Server
	documents *document.DocumentUsecase
	bot       *telegram.Bot
	db        *pgxpool.Pool
	redis     *redis.Client
	logger    *zap.Logger
}

// Run serves HTTP until the process is interrupted or the server fails.
func (a *App) Run() error {
	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	if a.bot != nil {
		a.bot.Start(context.Background())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		a.logger.Error("Server error", zap.Error(err))
		a.stopBot()
		a.close()
		return err
	case sig := <-sigChan:
		a.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	return a.shutdown()
}

// shutdown stops accepting requests, lets background indexing finish and
// releases storage connections.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.logger.Info("Shutting down server gracefully")

	err := a.server.Shutdown(ctx)
	if err != nil {
		a.logger.Error("Server shutdown error", zap.Error(err))
	}
	a.stopBot()

	if a.documents != nil {
		done := make(chan struct{})
		go func() {
			a.documents.Wait()
			close(done)
		}()

		select {
		case <-done:
			a.logger.Info("Background indexing finished")
		case <-ctx.Done():
			a.logger.Warn("Background indexing still running at shutdown")
		}
	}

	a.close()
	a.logger.Info("Application stopped gracefully")
	_ = a.logger.Sync()
	return err
}

func (a *App) stopBot() {
	if a.bot == nil {
		return
	}
	if err := a.bot.Stop(); err != nil {
		a.logger.Warn("Telegram bot shutdown error", zap.Error(err))
	}
}

func (a *App) close() {
	if a.db != nil {
		a.logger.Info("Closing database connections")
		a.db.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Redis close error", zap.Error(err))
		}
	}
}
