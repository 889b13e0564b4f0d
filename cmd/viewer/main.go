// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/livegrid/internal/api"
	"github.com/tomtom215/livegrid/internal/config"
	"github.com/tomtom215/livegrid/internal/connection"
	"github.com/tomtom215/livegrid/internal/engine"
	"github.com/tomtom215/livegrid/internal/logging"
	"github.com/tomtom215/livegrid/internal/models"
	"github.com/tomtom215/livegrid/internal/render"
	"github.com/tomtom215/livegrid/internal/snapshot"
	"github.com/tomtom215/livegrid/internal/supervisor"
	"github.com/tomtom215/livegrid/internal/supervisor/services"
	ws "github.com/tomtom215/livegrid/internal/websocket"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadWithKoanf()
	if err != nil {
		// Logging is not configured yet, use the defaults.
		logging.Fatal().Err(err).Msg("Failed to load config")
	}
	logging.Init(cfg.LoggingSettings())

	logging.Info().
		Str("version", api.Version).
		Str("feed", cfg.Connection.URL).
		Str("transport", cfg.Connection.Transport).
		Msg("Starting LiveGrid viewer")

	tree, err := supervisor.NewSupervisorTree("viewer", logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// === RENDER PIPELINE ===

	hub := ws.NewHub("viewer")
	sink := render.NewHubSink(hub, cfg.Render.VisibleRows, nil)
	eng := engine.New(cfg.EngineSettings(), engine.WithSink(sink))

	// === SNAPSHOT ===

	var (
		snapClient *snapshot.Client
		store      *snapshot.Store
		syncer     *snapshot.Syncer
	)
	if cfg.Snapshot.StorePath != "" {
		store, err = snapshot.OpenStore(snapshot.StoreConfig{Path: cfg.Snapshot.StorePath})
		if err != nil {
			logging.Warn().Err(err).Str("path", cfg.Snapshot.StorePath).Msg("Snapshot store unavailable, warm start disabled")
			store = nil
		} else {
			defer func() {
				if cerr := store.Close(); cerr != nil {
					logging.Error().Err(cerr).Msg("Failed to close snapshot store")
				}
			}()
		}
	}

	if cfg.Snapshot.Enabled {
		snapClient = snapshot.NewClient(cfg.SnapshotClientSettings())
		var loader snapshot.Loader
		if store != nil {
			loader = store
		}
		syncer = snapshot.NewSyncer(snapClient, loader, eng, cfg.Snapshot.Timeout)
		// A late bootstrap on connect replaces the rows, so the render
		// window has to follow.
		syncer.OnInitialize(func() { sink.SetOrder(eng.RowIDs()) })

		source, berr := syncer.Bootstrap(ctx)
		if berr != nil {
			logging.Warn().Err(berr).Msg("No initial rows, retrying the snapshot on each feed connection")
		} else {
			logging.Info().Str("source", string(source)).Msg("Row cache bootstrapped")
		}
	} else if store != nil {
		rows, lerr := store.Load()
		switch {
		case lerr == nil:
			eng.Initialize(rows)
		case errors.Is(lerr, snapshot.ErrNoSnapshot):
			logging.Info().Msg("Snapshot disabled and no stored rows, starting empty")
		default:
			logging.Warn().Err(lerr).Msg("Failed to load stored snapshot")
		}
	}
	sink.SetOrder(eng.RowIDs())

	// === UPSTREAM CONNECTION ===

	transport, err := newTransport(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create feed transport")
	}

	// Hooks run without the manager's lock held, so Status is safe here.
	var manager *connection.Manager
	connCfg := cfg.ConnectionSettings()
	connCfg.OnStateChange = func(models.ConnectionState) {
		hub.Broadcast(models.MsgConnectionState, manager.Status())
	}
	connCfg.OnError = func(err error) {
		logging.Warn().Err(err).Msg("Feed connection error")
	}
	if syncer != nil {
		connCfg.OnConnect = syncer.HandleConnect
	}
	manager = connection.NewManager(connCfg, transport, eng)
	if err := manager.Subscribe(cfg.Connection.Symbols); err != nil {
		logging.Fatal().Err(err).Msg("Failed to set initial interest set")
	}

	// === HTTP ===

	deps := api.ViewerDeps{
		Engine:         eng,
		Connection:     manager,
		Sink:           sink,
		Hub:            hub,
		AllowedOrigins: cfg.Server.CORSOrigins,
	}
	if snapClient != nil {
		deps.Snapshot = snapClient
	}
	handler := api.NewViewerHandler(deps)
	mw := api.NewChiMiddlewareFromServer(
		cfg.Server.CORSOrigins,
		cfg.Server.RateLimitReqs,
		cfg.Server.RateLimitWindow,
		cfg.Server.RateLimitDisabled,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewViewerRouter(handler, mw),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	tree.AddIngestService(manager)
	logging.Info().Str("url", cfg.Connection.URL).Msg("Connection manager added to supervisor tree")

	if syncer != nil {
		tree.AddRenderService(services.NewEngineService(eng, syncer))
	} else {
		tree.AddRenderService(services.NewEngineService(eng))
	}
	tree.AddRenderService(services.NewWebSocketHubService(hub))
	if store != nil {
		tree.AddRenderService(snapshot.NewSaver(store, eng, cfg.Snapshot.SaveInterval))
		logging.Info().Dur("interval", cfg.Snapshot.SaveInterval).Msg("Snapshot saver added to supervisor tree")
	}

	tree.AddAPIService(services.NewHTTPServerService("viewer-http", server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	run(ctx, cancel, tree)

	logging.Info().Msg("Viewer stopped gracefully")
}

// run serves the tree until SIGINT or SIGTERM, then reports services that
// did not stop in time.
func run(ctx context.Context, cancel context.CancelFunc, tree *supervisor.SupervisorTree) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// The channel carries exactly one result and is never closed.
	var err error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
		err = <-errCh
	case err = <-errCh:
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}
}
