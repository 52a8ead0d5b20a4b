package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/dokzlo13/lumectl/internal/config"
)

func main() {
	flags := pflag.NewFlagSet("lumectl", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "Path to configuration file")
	verbose := flags.BoolP("verbose", "v", false, "Enable debug logging")
	logJSON := flags.Bool("log-json", false, "Log as JSON")
	flags.Usage = func() { printUsage(flags) }

	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		fmt.Fprintf(os.Stderr, "lumectl: %v\n", err)
		os.Exit(1)
	}

	path := *configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("config", path).Msg("Failed to load configuration")
	}

	setupLogging(cfg.Log.Level, cfg.Log.JSON, cfg.Log.Colors)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if *logJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Cancel in-flight remote calls on interrupt.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := newApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize local state")
	}

	if err := application.run(ctx, flags.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "lumectl: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(level string, useJSON bool, colors bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func printUsage(flags *pflag.FlagSet) {
	fmt.Fprint(os.Stderr, `Usage:
  lumectl [flags] <device> [color] [brightness]   view or change device state
  lumectl devices                                 list account devices
  lumectl device add <name> <mac> [model]         add or overwrite a registry entry
  lumectl device remove <name>                    remove a registry entry
  lumectl device import                           add all unconfigured lights
  lumectl color set <name> <hex>                  define or update a color
  lumectl colors                                  list the color dictionary
  lumectl auth                                    interactive credential setup
  lumectl history [n]                             recent control history

Color and brightness tokens may appear in either order. Brightness is
0-100; 0 turns the device off. Colors are dictionary names or bare
6-hex-digit literals.

Flags:
`)
	flags.PrintDefaults()
}
