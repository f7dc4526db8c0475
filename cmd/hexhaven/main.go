// Hexhaven - authoritative game server for a turn-based hex board game.
//
// Hexhaven accepts line-oriented TCP connections from game clients,
// hosts the lobby and per-game state machines, exposes a REST API for
// monitoring and administration, and publishes telemetry via MQTT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hexhaven-project/hexhaven/internal/api"
	"github.com/hexhaven-project/hexhaven/internal/cli"
	"github.com/hexhaven-project/hexhaven/internal/config"
	"github.com/hexhaven-project/hexhaven/internal/db"
	"github.com/hexhaven-project/hexhaven/internal/dispatch"
	"github.com/hexhaven-project/hexhaven/internal/events"
	"github.com/hexhaven-project/hexhaven/internal/game"
	"github.com/hexhaven-project/hexhaven/internal/network"
	"github.com/hexhaven-project/hexhaven/internal/registry"
	"github.com/hexhaven-project/hexhaven/internal/scheduler"
	"github.com/hexhaven-project/hexhaven/internal/telemetry"
	"github.com/hexhaven-project/hexhaven/internal/util"
)

const Banner = `
  _   _           _
 | | | | _____  _| |__   __ ___   _____ _ __
 | |_| |/ _ \ \/ / '_ \ / _' \ \ / / _ \ '_ \
 |  _  |  __/>  <| | | | (_| |\ V /  __/ | | |
 |_| |_|\___/_/\_\_| |_|\__,_| \_/ \___|_| |_|
                                      v%s
 Hex board game server
`

func main() {
	fmt.Printf(Banner, config.ServerVersionString)
	fmt.Println()

	// Defaults first; reconfigured once the config file is loaded.
	if err := util.InitLogger(util.DefaultLogConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info().
		Str("version", config.ServerVersionString).
		Str("platform", runtime.GOOS).
		Str("arch", runtime.GOARCH).
		Int("cpus", runtime.NumCPU()).
		Msg("starting hexhaven")

	cfg, err := config.Load(config.DefaultConfigDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging := cfg.GetApplicationData().Logging
	if err := util.InitLogger(util.LogConfig{
		Level:      logging.Level,
		Directory:  logging.Directory,
		MaxBackups: util.DefaultLogConfig().MaxBackups,
		Console:    logging.Console,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to reconfigure logger, using defaults")
	}

	validation := config.Validate(cfg)
	for _, w := range validation.Warnings {
		log.Warn().Str("field", w.Field).Msg(w.Message)
	}
	if !validation.IsValid() {
		for _, e := range validation.Errors {
			log.Error().Str("field", e.Field).Msg(e.Message)
		}
		log.Fatal().Msg("configuration validation failed, please fix the errors above")
	}

	sysInfo := util.GetSystemInfo()
	log.Info().
		Str("hostname", sysInfo.Hostname).
		Str("os", sysInfo.OS).
		Str("cpu", sysInfo.CPUModel).
		Int("cores", sysInfo.CPUCores).
		Uint64("memory_mb", sysInfo.TotalMemory).
		Msg("system information")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventBus := events.NewEventBus()

	// Account store; absent when no database path is configured.
	var store *db.Store
	sd := cfg.GetServerData()
	if sd.DatabasePath != "" {
		if err := util.EnsureDir(filepath.Dir(sd.DatabasePath)); err != nil {
			log.Fatal().Err(err).Msg("failed to create database directory")
		}
		database, err := db.NewDatabase(sd.DatabasePath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open account database")
		}
		defer database.Close()

		store, err = db.NewStore(database, 0)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize account store")
		}
	} else if sd.AccountsRequired {
		log.Fatal().Msg("accounts are required but no database path is configured")
	}

	// Core session-layer components.
	reg := registry.New(time.Duration(sd.NicknameTakeoverSec) * time.Second)
	table := game.NewTable()
	disp := dispatch.New(cfg, reg, table, eventBus, store)

	gameAddr := fmt.Sprintf("%s:%d", sd.BindAddress, sd.GamePort)
	listener := network.NewListener(gameAddr, disp)

	apiServer := api.NewServer(cfg, table, reg, disp, store)

	var mqttHandler *telemetry.MQTTHandler
	if cfg.GetApplicationData().MQTT.Enabled {
		mqttHandler, err = telemetry.NewMQTTHandler(cfg, eventBus)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize MQTT, telemetry disabled")
		}
	}

	sched := scheduler.New(cfg, reg, table, disp, store)
	cliHandler := cli.NewCLI(cfg, eventBus, table, reg, disp)

	var wg sync.WaitGroup
	errCh := make(chan error, 4)

	// Game listener; this one is fatal, the server is pointless without it.
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", gameAddr).Msg("starting game listener")
		if err := listener.Start(ctx); err != nil {
			errCh <- fmt.Errorf("game listener: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Int("port", sd.APIPort).Msg("starting REST API server")
		if err := apiServer.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("API server failed (non-fatal)")
		}
	}()

	if mqttHandler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Msg("starting MQTT telemetry")
			if err := mqttHandler.Start(ctx); err != nil {
				log.Warn().Err(err).Msg("MQTT telemetry failed")
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Msg("starting task scheduler")
		sched.Start(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Msg("starting interactive console")
		cliHandler.Start(ctx)
	}()

	// Graceful shutdown on signal, CLI quit, or fatal component error.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	shutdownCh := make(chan struct{})
	eventBus.Subscribe(events.EventShutdown, "main.shutdown", func(ctx context.Context, e events.Event) error {
		select {
		case <-shutdownCh:
		default:
			close(shutdownCh)
		}
		return nil
	})

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case <-shutdownCh:
		log.Info().Msg("shutdown requested")
	case err := <-errCh:
		log.Error().Err(err).Msg("critical error, initiating shutdown")
	}

	log.Info().Msg("initiating graceful shutdown...")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all tasks stopped gracefully")
	case <-time.After(30 * time.Second):
		log.Warn().Msg("shutdown timed out after 30 seconds, forcing exit")
	}

	eventBus.Stop()
	log.Info().Msg("hexhaven stopped")
}
