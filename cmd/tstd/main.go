package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/kumarlokesh/sysd/exercises/tst/internal/api"
	"github.com/kumarlokesh/sysd/exercises/tst/internal/config"
	"github.com/kumarlokesh/sysd/exercises/tst/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("invalid config")
	}

	logger := cfg.Log.NewLogger(os.Stderr)

	st := store.NewTrieStore(logger, cfg.Store.MaxKeyLength)
	if cfg.Store.SeedFile != "" {
		if err := seed(st, cfg.Store.SeedFile); err != nil {
			logger.Fatal().Err(err).Str("file", cfg.Store.SeedFile).Msg("failed to seed store")
		}
	}

	if err := st.Ping(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("store ping failed")
	}

	server := api.NewServer(cfg.Server, st, logger)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			logger.Fatal().Err(err).Msg("server error")
		}
		return
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("error during server shutdown")
	} else {
		logger.Info().Msg("server gracefully stopped")
	}
}

func seed(st *store.TrieStore, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = st.Load(context.Background(), f)
	return err
}
