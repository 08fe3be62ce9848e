package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-agency-dashboard/components/dashboard"
	"github.com/goliatone/go-agency-dashboard/components/dashboard/commands"
	"github.com/goliatone/go-agency-dashboard/components/dashboard/gorouter"
	"github.com/goliatone/go-agency-dashboard/components/dashboard/httpapi"
	"github.com/goliatone/go-agency-dashboard/components/dashboard/queries"
	"github.com/goliatone/go-agency-dashboard/internal/config"
	"github.com/goliatone/go-agency-dashboard/pkg/activity"
	"github.com/goliatone/go-agency-dashboard/pkg/api"
)

type cli struct {
	ConfigFile string `name:"config-file" type:"path" help:"Optional config file (yaml, json, toml or env) read before the environment."`
	Port       string `help:"Listen port, overrides PORT."`
	Demo       bool   `help:"Serve an in-memory agency API seeded with demo accounts and records."`
	APIAddr    string `name:"api-addr" help:"Also serve the JSON endpoints over net/http on this address (e.g. :8081)."`
}

func main() {
	var args cli
	ctx := kong.Parse(&args,
		kong.Name("agency-dashboard"),
		kong.Description("Role-aware agency dashboard server."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(args.Run(context.Background()))
}

func (c *cli) Run(ctx context.Context) error {
	cfg, err := config.Load(c.ConfigFile)
	if err != nil {
		return err
	}
	if c.Port != "" {
		cfg.Port = c.Port
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	telemetry := dashboard.NewSlogTelemetry(logger)

	if c.Demo {
		baseURL, err := startDemoBackend(logger)
		if err != nil {
			return err
		}
		cfg.APIBaseURL = baseURL
	}

	client, err := api.NewClient(api.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.APITimeout})
	if err != nil {
		return err
	}
	if c.Demo {
		seed := commands.NewSeedRecordsCommand(client, telemetry)
		if err := seed.Execute(ctx, commands.SeedRecordsInput{}); err != nil {
			logger.Warn("demo seed incomplete", "error", err)
		}
	}

	registry := dashboard.NewRegistry()
	if cfg.ManifestPath != "" {
		doc, err := registry.LoadManifestFile(cfg.ManifestPath)
		if err != nil {
			return err
		}
		logger.Info("role manifest loaded", "path", doc.Source, "roles", len(doc.Roles))
	}

	cache := dashboard.NewChartCache(cfg.ChartCacheTTL)
	chartOpts := []dashboard.ChartRendererOption{dashboard.WithChartCache(cache)}
	if cfg.EChartsAssetsHost != "" {
		chartOpts = append(chartOpts, dashboard.WithChartAssetsHost(cfg.EChartsAssetsHost))
	}

	broadcast := dashboard.NewBroadcastHook(dashboard.WithBroadcastCookie(cfg.SessionCookie))
	var hooks activity.Hooks
	if cfg.ActivityEnabled {
		hooks = activity.Hooks{activity.HookFunc(func(_ context.Context, evt activity.Event) error {
			logger.Info("activity",
				"verb", evt.Verb,
				"actor_id", evt.ActorID,
				"object_type", evt.ObjectType,
				"object_id", evt.ObjectID,
				"channel", evt.Channel,
			)
			return nil
		})}
	}

	service, err := dashboard.NewService(dashboard.Options{
		Registry:       registry,
		API:            client,
		Charts:         dashboard.NewChartRenderer(chartOpts...),
		RefreshHook:    dashboard.RefreshHooks{cache, broadcast},
		Telemetry:      telemetry,
		ActivityHooks:  hooks,
		ActivityConfig: activity.Config{Enabled: cfg.ActivityEnabled},
		BasePath:       cfg.BasePath,
	})
	if err != nil {
		return fmt.Errorf("build dashboard: %w", err)
	}

	renderer, err := dashboard.NewTemplateRenderer()
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	controller := dashboard.NewController(dashboard.ControllerOptions{
		Service:  service,
		Renderer: renderer,
		BasePath: cfg.BasePath,
	})

	submit := commands.NewSubmitUnitCommand(service, telemetry)
	remove := commands.NewDeleteRecordCommand(service, telemetry)
	export := commands.NewExportTableCommand(service, telemetry)
	logout := commands.NewLogoutCommand(service, telemetry)
	login := commands.NewLoginCommand(client, service, telemetry)
	signup := commands.NewSignupCommand(client, service, telemetry)
	forgot := commands.NewForgotPasswordCommand(client, telemetry)

	if c.APIAddr != "" {
		handlers := &httpapi.Handlers{
			Page:       queries.NewDashboardPageQuery(service),
			Submit:     submit,
			Delete:     remove,
			Export:     export,
			Refresh:    commands.NewNotifyRecordChangedCommand(service, telemetry),
			Logout:     logout,
			Broadcast:  broadcast,
			CookieName: cfg.SessionCookie,
			Logger:     logger,

			Login:          login,
			Signup:         signup,
			ForgotPassword: forgot,
		}
		mux := http.NewServeMux()
		handlers.Register(mux, cfg.BasePath)
		go func() {
			srv := &http.Server{Addr: c.APIAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("json api stopped", "error", err)
			}
		}()
		logger.Info("json api ready", "addr", c.APIAddr)
	}

	server := router.NewFiberAdapter()
	if err := gorouter.Register(gorouter.Config[*fiber.App]{
		Router: server.Router(),
		Options: gorouter.Options{
			Controller: controller,
			Commands: gorouter.Commands{
				Submit: submit,
				Delete: remove,
				Export: export,
				Logout: logout,

				Login:          login,
				Signup:         signup,
				ForgotPassword: forgot,
			},
			Broadcast:  broadcast,
			BasePath:   cfg.BasePath,
			LoginPath:  cfg.LoginPath,
			CookieName: cfg.SessionCookie,
			Logger:     logger,
		},
	}); err != nil {
		return fmt.Errorf("register routes: %w", err)
	}

	logger.Info("dashboard ready", "addr", cfg.Addr(), "base_path", cfg.BasePath, "api", cfg.APIBaseURL)
	return server.Serve(cfg.Addr())
}

// startDemoBackend serves a MockBackend on a loopback port and logs one token
// per demo account.
func startDemoBackend(logger *slog.Logger) (string, error) {
	backend := api.NewMockBackend()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("demo backend: %w", err)
	}
	go func() {
		srv := &http.Server{Handler: backend, ReadHeaderTimeout: 10 * time.Second}
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("demo backend stopped", "error", err)
		}
	}()
	for _, acc := range api.DefaultDemoAccounts() {
		token, err := backend.IssueToken(acc)
		if err != nil {
			return "", err
		}
		logger.Info("demo account", "email", acc.Email, "role", acc.Role, "token", token)
	}
	return "http://" + ln.Addr().String(), nil
}
