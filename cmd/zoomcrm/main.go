package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/syncwell/zoomcrm/internal/bridge"
	"github.com/syncwell/zoomcrm/internal/config"
	"github.com/syncwell/zoomcrm/internal/crm"
	"github.com/syncwell/zoomcrm/internal/dedup"
	"github.com/syncwell/zoomcrm/internal/handlers"
	"github.com/syncwell/zoomcrm/internal/logger"
	"github.com/syncwell/zoomcrm/internal/resolve"
	"github.com/syncwell/zoomcrm/internal/server"
	"github.com/syncwell/zoomcrm/internal/version"
	"github.com/syncwell/zoomcrm/internal/zoom"
)

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideCRMClient(log *slog.Logger, cfg config.Config) *crm.Client {
	return crm.NewClient(log, cfg.CRM.APIKey, cfg.CRM.LocationID, cfg.CRM.BaseURL, 15*time.Second)
}

func provideZoomClient(log *slog.Logger, cfg config.Config) *zoom.Client {
	return zoom.NewClient(log,
		zoom.Credentials{
			AccountID:    cfg.Zoom.AccountID,
			ClientID:     cfg.Zoom.ClientID,
			ClientSecret: cfg.Zoom.ClientSecret,
		},
		zoom.Endpoints{
			API:      cfg.Zoom.APIBaseURL,
			OAuth:    cfg.Zoom.OAuthURL,
			Download: cfg.Zoom.DownloadBaseURL,
		},
		30*time.Second,
	)
}

func provideResolver(log *slog.Logger, crmClient *crm.Client) *resolve.Resolver {
	return resolve.NewResolver(log, crmClient)
}

type dedupSets struct {
	fx.Out

	Events *dedup.Set `name:"event_dedup"`
	Notes  *dedup.Set `name:"note_dedup"`
}

func provideDedupSets(cfg config.Config) dedupSets {
	return dedupSets{
		Events: dedup.NewSet(cfg.Dedup.Capacity),
		Notes:  dedup.NewSet(cfg.Dedup.Capacity),
	}
}

type processorParams struct {
	fx.In

	Logger     *slog.Logger
	Resolver   *resolve.Resolver
	CRMClient  *crm.Client
	ZoomClient *zoom.Client
	Config     config.Config
	Events     *dedup.Set `name:"event_dedup"`
	Notes      *dedup.Set `name:"note_dedup"`
}

func provideProcessor(params processorParams) *bridge.Processor {
	return bridge.NewProcessor(
		params.Logger,
		params.Resolver,
		params.CRMClient,
		params.ZoomClient,
		bridge.LinkConfig{
			PublicBaseURL: params.Config.Links.PublicBaseURL,
			AccountID:     params.Config.Zoom.AccountID,
		},
		params.Events,
		params.Notes,
	)
}

func provideWebhookHandler(log *slog.Logger, processor *bridge.Processor, cfg config.Config) *handlers.WebhookHandler {
	return handlers.NewWebhookHandler(log, processor, cfg.Zoom.SecretToken)
}

func provideRecordingsHandler(log *slog.Logger, zoomClient *zoom.Client, cfg config.Config) *handlers.RecordingsHandler {
	return handlers.NewRecordingsHandler(log, zoomClient, cfg.Zoom.AccountID)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.ServerHandlers...)
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func startServer(
	lc fx.Lifecycle,
	logger *slog.Logger,
	srv *server.Server,
	shutdowner fx.Shutdowner,
) {
	fmt.Printf("Starting zoomcrm bridge %s\n", version.GetInfo())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil { // block until server is stopped
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Stop(ctx)
		},
	})
}

func main() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,

			provideCRMClient,
			provideZoomClient,
			provideResolver,
			provideDedupSets,
			provideProcessor,

			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(provideWebhookHandler),
			provideServerHandler(provideRecordingsHandler),

			provideServer,
		),
		fx.Invoke(
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}
