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
	"github.com/tomtom215/livegrid/internal/logging"
	"github.com/tomtom215/livegrid/internal/simulator"
	"github.com/tomtom215/livegrid/internal/supervisor"
	"github.com/tomtom215/livegrid/internal/supervisor/services"
	ws "github.com/tomtom215/livegrid/internal/websocket"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load config")
	}
	logging.Init(cfg.LoggingSettings())

	logging.Info().
		Str("version", api.Version).
		Int("symbols", cfg.Simulator.Symbols).
		Float64("rate", cfg.Simulator.Rate).
		Msg("Starting LiveGrid simulator")

	tree, err := supervisor.NewSupervisorTree("simulator", logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	gen := simulator.NewGenerator(simulator.GeneratorConfig{
		Symbols:            cfg.Simulator.Symbols,
		Prefix:             cfg.Simulator.Prefix,
		MaxFieldsPerUpdate: cfg.Simulator.MaxFieldsPerUpdate,
		Volatility:         cfg.Simulator.Volatility,
		Seed:               cfg.Simulator.Seed,
	})

	hub := ws.NewHub("simulator")
	pubs := []simulator.Publisher{simulator.NewHubPublisher(hub)}

	// NATS is optional; a failure here leaves the websocket stream running.
	natsPub, natsServer := initNATS(cfg)
	if natsPub != nil {
		pubs = append(pubs, natsPub)
		defer func() {
			if cerr := natsPub.Close(); cerr != nil {
				logging.Warn().Err(cerr).Msg("Failed to drain NATS publisher")
			}
		}()
	}

	runner, err := simulator.NewRunner(gen, cfg.Simulator.Rate, pubs...)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create simulator runner")
	}

	handler := api.NewSimulatorHandler(runner, gen, hub, cfg.Server.CORSOrigins)
	mw := api.NewChiMiddlewareFromServer(
		cfg.Server.CORSOrigins,
		cfg.Server.RateLimitReqs,
		cfg.Server.RateLimitWindow,
		cfg.Server.RateLimitDisabled,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Simulator.Host, cfg.Simulator.Port),
		Handler:      api.NewSimulatorRouter(handler, mw),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	if natsServer != nil {
		tree.AddIngestService(services.NewNATSServerService(natsServer, 10*time.Second))
		logging.Info().Str("url", natsServer.ClientURL()).Msg("Embedded NATS server added to supervisor tree")
	}
	tree.AddIngestService(runner)
	tree.AddRenderService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService("simulator-http", server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	run(ctx, cancel, tree)

	logging.Info().Msg("Simulator stopped gracefully")
}

// initNATS starts the embedded server when configured and connects the
// publisher. It returns nils when NATS is disabled or unavailable.
func initNATS(cfg *config.Config) (*simulator.NATSPublisher, *simulator.EmbeddedServer) {
	if !cfg.NATS.Enabled {
		return nil, nil
	}

	url := cfg.NATS.URL
	var embedded *simulator.EmbeddedServer
	if cfg.NATS.EmbeddedServer {
		srv, err := simulator.NewEmbeddedServer(cfg.NATS.Host, cfg.NATS.Port)
		if err != nil {
			logNATSError(err, "Failed to start embedded NATS server")
			return nil, nil
		}
		embedded = srv
		url = srv.ClientURL()
	}

	pub, err := simulator.NewNATSPublisher(url, cfg.NATS.SubjectPrefix)
	if err != nil {
		logNATSError(err, "Failed to connect NATS publisher")
		if embedded != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = embedded.Shutdown(shutdownCtx)
		}
		return nil, nil
	}
	logging.Info().Str("url", url).Str("prefix", cfg.NATS.SubjectPrefix).Msg("Publishing updates to NATS")
	return pub, embedded
}

func logNATSError(err error, msg string) {
	if errors.Is(err, simulator.ErrNATSNotEnabled) {
		logging.Warn().Msg("NATS_ENABLED=true but NATS support not compiled (build with -tags nats)")
		return
	}
	logging.Error().Err(err).Msg(msg)
}

// run serves the tree until SIGINT or SIGTERM.
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
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}
}
