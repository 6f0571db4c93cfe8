// Package app wires the services of profilesync into a samber/do container.
// Services are built lazily on first use, so commands that never touch the
// database never connect to it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nfrund/profilesync/internal/appstore"
	"github.com/nfrund/profilesync/internal/config"
	"github.com/nfrund/profilesync/internal/database"
	"github.com/nfrund/profilesync/internal/handlers"
	"github.com/nfrund/profilesync/internal/identity"
	"github.com/nfrund/profilesync/internal/imagesource"
	"github.com/nfrund/profilesync/internal/metrics"
	"github.com/nfrund/profilesync/internal/profile"
	"github.com/nfrund/profilesync/internal/pubsub"
	"github.com/nfrund/profilesync/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/do/v2"
	"github.com/spf13/afero"
)

// App owns the dependency container.
type App struct {
	injector *do.RootScope
}

// New registers every service provider. fs backs image acquisition from
// local paths; pass afero.NewOsFs() outside tests.
func New(cfg *config.Config, fs afero.Fs) *App {
	i := do.New()

	do.ProvideValue(i, cfg)
	do.ProvideValue(i, fs)
	do.Provide(i, provideRegistry)
	do.Provide(i, provideMetrics)
	do.Provide(i, provideBridge)
	do.Provide(i, provideConnection)
	do.Provide(i, provideUserStore)
	do.Provide(i, provideIdentityClient)
	do.Provide(i, provideAppStoreClient)
	do.Provide(i, provideImageSource)
	do.Provide(i, provideCoordinator)
	do.Provide(i, provideServer)

	return &App{injector: i}
}

// Server returns the fully wired HTTP server. This connects to the database.
func (a *App) Server() (*server.Server, error) {
	return do.Invoke[*server.Server](a.injector)
}

// Coordinator returns the reconciliation coordinator.
func (a *App) Coordinator() (*profile.Coordinator, error) {
	return do.Invoke[*profile.Coordinator](a.injector)
}

// Images returns the image source.
func (a *App) Images() (*imagesource.Source, error) {
	return do.Invoke[*imagesource.Source](a.injector)
}

// Shutdown stops every service that was started, in reverse dependency order.
func (a *App) Shutdown(ctx context.Context) error {
	report := a.injector.ShutdownWithContext(ctx)
	if report != nil && !report.Succeed {
		return fmt.Errorf("shutdown: %s", report.Error())
	}
	return nil
}

func provideRegistry(i do.Injector) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, nil
}

func provideMetrics(i do.Injector) (*metrics.Metrics, error) {
	return metrics.New(do.MustInvoke[*prometheus.Registry](i)), nil
}

func provideBridge(i do.Injector) (*pubsub.WatermillBridge, error) {
	return pubsub.NewWatermillBridge(0), nil
}

func provideConnection(i do.Injector) (*database.Connection, error) {
	cfg := do.MustInvoke[*config.Config](i)
	conn := database.NewConnection(cfg)
	if err := conn.Connect(context.Background()); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	conn.StartMonitoring()
	return conn, nil
}

func provideUserStore(i do.Injector) (*database.UserStore, error) {
	conn, err := do.Invoke[*database.Connection](i)
	if err != nil {
		return nil, err
	}
	return database.NewUserStore(conn), nil
}

func provideIdentityClient(i do.Injector) (*identity.Client, error) {
	return identity.NewClient(do.MustInvoke[*config.Config](i))
}

func provideAppStoreClient(i do.Injector) (*appstore.Client, error) {
	return appstore.NewClient(do.MustInvoke[*config.Config](i))
}

func provideImageSource(i do.Injector) (*imagesource.Source, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return imagesource.New(do.MustInvoke[afero.Fs](i), cfg.GetMaxImageBytes()), nil
}

func provideCoordinator(i do.Injector) (*profile.Coordinator, error) {
	idc, err := do.Invoke[*identity.Client](i)
	if err != nil {
		return nil, err
	}
	asc, err := do.Invoke[*appstore.Client](i)
	if err != nil {
		return nil, err
	}
	bridge := do.MustInvoke[*pubsub.WatermillBridge](i)
	return profile.NewCoordinator(idc, asc, profile.NewPubSubReporter(bridge),
		profile.WithRecordLoader(asc),
		profile.WithMetrics(do.MustInvoke[*metrics.Metrics](i)),
		profile.WithLogger(slog.Default()),
	), nil
}

func provideServer(i do.Injector) (*server.Server, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	conn, err := do.Invoke[*database.Connection](i)
	if err != nil {
		return nil, err
	}
	store, err := do.Invoke[*database.UserStore](i)
	if err != nil {
		return nil, err
	}
	coord, err := do.Invoke[*profile.Coordinator](i)
	if err != nil {
		return nil, err
	}
	images := do.MustInvoke[*imagesource.Source](i)
	bridge := do.MustInvoke[*pubsub.WatermillBridge](i)

	return server.New(server.Deps{
		JWTSecret:    []byte(cfg.GetAppJWTSecret()),
		MaxBodyBytes: cfg.GetMaxImageBytes(),
		Profile:      handlers.NewProfileHandler(coord, images),
		Outcomes:     handlers.NewOutcomeStream(bridge),
		AppStore:     appstore.NewHandler(store),
		Gatherer:     do.MustInvoke[*prometheus.Registry](i),
		Health: func(context.Context) error {
			if !conn.IsHealthy() {
				return errors.New("database unavailable")
			}
			return nil
		},
	}), nil
}
