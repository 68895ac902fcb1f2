package main

import (
	"os"

	"github.com/rs/zerolog"

	storefront "github.com/craftloom/go-storefront"
	"github.com/craftloom/go-storefront/transport/proxy"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	baseURL := os.Getenv("BACKEND_BASE_URL")
	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	opts := []storefront.Option{}
	if baseURL != "" {
		opts = append(opts, storefront.WithBaseURL(baseURL))
	}

	client, err := storefront.NewClient(opts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create storefront client")
	}

	router := proxy.NewRouter(client, logger)

	logger.Info().Str("addr", addr).Msg("storefront proxy listening")
	if err := router.Run(addr); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
