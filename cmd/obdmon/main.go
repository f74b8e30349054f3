package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/obdmon/internal/canbus"
	"codeberg.org/mutker/obdmon/internal/cloud"
	"codeberg.org/mutker/obdmon/internal/config"
	"codeberg.org/mutker/obdmon/internal/engine"
	"codeberg.org/mutker/obdmon/internal/gpio"
	"codeberg.org/mutker/obdmon/internal/logger"
	"codeberg.org/mutker/obdmon/internal/power"
	"codeberg.org/mutker/obdmon/internal/telemetry"
)

// One loop iteration every 10ms keeps the 100ms request cadence accurate
// without busy-waiting.
const loopTick = 10 * time.Millisecond

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, logger.IsService()); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug().Msg("Config loaded")

	settings := engine.NewSettings(cfg.IdleRPM, cfg.IdleSpeed, cfg.FastPublish)
	logger.Info().
		Int("idle_rpm", settings.IdleRPM()).
		Int("idle_speed", settings.IdleSpeed()).
		Int("fastpub_ms", settings.FastPublish()).
		Msg("Engine settings loaded")

	// A failed bus init is not fatal to the process: polling carries on
	// against a disconnected bus and every sample counts as "off".
	bus, err := canbus.NewSocketCAN(cfg.Interface)
	if err != nil {
		logger.Error().Err(err).Str("interface", cfg.Interface).Msg("CAN initialization failed")
		bus = canbus.Disconnected{}
	} else {
		logger.Info().Int("bitrate", cfg.Bitrate).Msg("CAN initialization succeeded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	cloudClient, err := cloud.Connect(ctx, cloud.Config{
		Broker:      cfg.Broker,
		ClientID:    cfg.ClientID,
		TopicPrefix: cfg.TopicPrefix,
	}, settings)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start cloud connection")
	}

	var repo telemetry.Repository
	if cfg.Archive {
		repo, err = telemetry.NewRepository(cfg.ArchiveDB)
		if err != nil {
			logger.Warn().Err(err).Msg("snapshot archive unavailable; continuing without it")
			repo = nil
		}
	}
	svc := telemetry.NewService(cloudClient, repo)

	sleepManager := power.NewManager(cfg.DisableSleep)
	monitor := engine.NewMonitor(bus, gpio.NewLine(cfg.KeyInPin), sleepManager, settings, engine.Config{
		RequestPeriod:   cfg.RequestPeriod,
		EngineLogPeriod: cfg.EngineLogPeriod,
	})

	loop(ctx, monitor, svc, cfg.PublishPeriod)

	cleanup(bus, svc, cloudClient)
}

// loop drives the single-threaded control loop: the monitor core runs
// every tick, and publishes happen inline on the same goroutine so all
// engine state keeps a single owner.
func loop(ctx context.Context, monitor *engine.Monitor, svc *telemetry.Service, publishPeriodMillis int) {
	ticker := time.NewTicker(loopTick)
	defer ticker.Stop()

	publishPeriod := time.Duration(publishPeriodMillis) * time.Millisecond
	lastPublish := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			monitor.Step(now)

			baselineDue := publishPeriod > 0 && now.Sub(lastPublish) >= publishPeriod
			if baselineDue || monitor.MaybeFastPublish(now, svc.IsConnected()) {
				lastPublish = now

				rpm, speed := monitor.Harvest()
				if err := svc.Publish(ctx, telemetry.NewSnapshot(now, rpm, speed)); err != nil {
					logger.Warn().Err(err).Msg("snapshot publish failed")
				}
			}
		}
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func cleanup(bus canbus.Bus, svc *telemetry.Service, cloudClient *cloud.Client) {
	if err := bus.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close CAN interface")
	}
	if err := svc.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close telemetry service")
	}

	disconnectCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := cloudClient.Disconnect(disconnectCtx); err != nil {
		logger.Error().Err(err).Msg("failed to disconnect from cloud")
	}

	logger.Info().Msg("Exiting...")
}
