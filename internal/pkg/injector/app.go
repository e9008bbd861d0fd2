package injector

import (
	"context"
	"errors"

	"github.com/lk2023060901/media-edge-backend/internal/background"
	"github.com/lk2023060901/media-edge-backend/internal/conf"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/logger"
	"github.com/lk2023060901/media-edge-backend/internal/server"
	"go.uber.org/zap"
)

// App encapsulates all application dependencies
type App struct {
	Config     *conf.Config
	Logger     *logger.Logger
	HTTPServer *server.HTTPServer
	Runner     *background.Runner
	cleanup    func()
}

func newApp(
	config *conf.Config,
	log *logger.Logger,
	httpServer *server.HTTPServer,
	runner *background.Runner,
) (*App, func()) {
	app := &App{
		Config:     config,
		Logger:     log,
		HTTPServer: httpServer,
		Runner:     runner,
	}
	app.cleanup = func() {
		log.Info("application resources released")
	}
	return app, app.cleanup
}

// Shutdown stops accepting requests, then drains background tasks.
// Stores are closed afterwards by the injector cleanup.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if err := a.HTTPServer.Stop(ctx); err != nil {
		a.Logger.Error("HTTP server forced to shutdown", zap.Error(err))
		errs = append(errs, err)
	}

	if err := a.Runner.Shutdown(ctx); err != nil {
		a.Logger.Error("background tasks abandoned", zap.Error(err))
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
