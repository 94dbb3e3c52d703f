// Command ircd runs the server: load configuration, wire logging, bind
// listeners, and serve until interrupted or asked to reload.
//
// Grounded on emiago-sipgo's cmd/proxysip/main.go: same zerolog
// ConsoleWriter setup and the same promhttp.Handler() wiring for an
// optional metrics endpoint, served on its own goroutine. Signal handling
// beyond that is owned by Control, grounded on abligh-goms/smtpd's
// control loop.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/birchwood-irc/ircd"
	"github.com/birchwood-irc/ircd/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	setupLogging(cfg, *debug)

	if cfg.Metrics.Address != "" {
		go serveMetrics(cfg.Metrics.Address)
	}

	srv, err := ircd.New(cfg, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build server")
	}

	log.Info().Str("server", cfg.Server.Name).Int("listeners", len(cfg.Server.Listeners)).Msg("starting")

	control := NewControl(*configPath, srv, log.Logger.With().Str("caller", "control").Logger())
	if err := control.Run(context.Background()); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}

	log.Info().Msg("shutdown complete")
}

func setupLogging(cfg *config.Config, debug bool) {
	var writer = os.Stdout
	if cfg.Logging.Console {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        writer,
			TimeFormat: "2006-01-02 15:04:05.000",
		}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(writer).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if debug {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Logger.Level(level)
}

// serveMetrics exposes Prometheus metrics on address until the process
// exits; a failure here is logged but does not bring down the server.
func serveMetrics(address string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info().Str("address", address).Msg("metrics endpoint listening")
	if err := http.ListenAndServe(address, mux); err != nil {
		log.Error().Err(err).Msg("metrics server failed")
	}
}
