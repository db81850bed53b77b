package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumeon/opticore"
	"github.com/lumeon/opticore/tracing"
)

const version = "0.1.0"

func main() {
	configURL := flag.String("config", "", "configuration URL (YAML); defaults apply when empty")
	mode := flag.String("mode", "", "override execution mode: SIMULATION or HARDWARE")
	descriptorURL := flag.String("descriptor", "", "override hardware descriptor URL")
	pretty := flag.Bool("pretty", false, "human-readable console log output")
	traceFile := flag.String("trace", "", "write OpenTelemetry spans to this file")
	flag.Parse()

	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "opticored").Logger()
	if *pretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	if *traceFile != "" {
		if err := tracing.Init("opticored", version, *traceFile); err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize tracing")
		}
	}

	ctx := context.Background()
	config := opticore.DefaultConfig()
	if *configURL != "" {
		loaded, err := opticore.LoadConfig(ctx, *configURL)
		if err != nil {
			logger.Fatal().Err(err).Str("url", *configURL).Msg("failed to load config")
		}
		config = loaded
	}
	if *mode != "" {
		config.Runtime.Mode = *mode
	}
	if *descriptorURL != "" {
		config.Runtime.DescriptorURL = *descriptorURL
	}

	srv, err := opticore.New(
		opticore.WithConfig(config),
		opticore.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to construct engine")
	}
	if err := srv.Runtime().Initialize(ctx); err != nil {
		logger.Fatal().Err(err).Msg("device link initialization failed")
	}
	logger.Info().
		Str("mode", config.Runtime.Mode).
		Str("status", string(srv.Runtime().Status())).
		Msg("opticore engine online")

	// OS termination requests ride the supervisor's interrupt path so the
	// full shutdown sequence runs before the process exits.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signals
		srv.Supervisor().Interrupt(fmt.Sprintf("External Signal Interrupt (%s)", sig))
	}()

	// The monitor loop owns the rest of the process lifetime. On any
	// excursion or interrupt the shutdown sequence exits the process, so
	// reaching the return below means the context was cancelled externally.
	if err := srv.Supervisor().Run(ctx); err != nil {
		logger.Error().Err(err).Msg("safety monitor stopped")
		os.Exit(1)
	}
}
