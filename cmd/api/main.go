package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/erebus-labs/erebus-gateway/internal/config"
	"github.com/erebus-labs/erebus-gateway/internal/jupiter"
	"github.com/erebus-labs/erebus-gateway/internal/quote"
	"github.com/erebus-labs/erebus-gateway/internal/rpc"
	"github.com/erebus-labs/erebus-gateway/internal/server"
	"github.com/erebus-labs/erebus-gateway/internal/store"
	"github.com/erebus-labs/erebus-gateway/internal/tokens"
	"github.com/erebus-labs/erebus-gateway/internal/transfer"
	"github.com/erebus-labs/erebus-gateway/internal/wallet"
)

// main wires the gateway: Redis-backed transfer records, the Solana RPC
// client, the Jupiter client, the custodian treasury, and the HTTP server
// with graceful shutdown.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file found, using system environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	rclient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   0,
	})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	records, err := store.NewRecordStore(rclient)
	if err != nil {
		logger.WithError(err).Fatal("failed to create record store")
	}

	// ClickHouse audit trail is optional; transfers work without it
	var audit transfer.Auditor
	if cfg.ClickHouseAddr != "" {
		sink, err := store.NewAuditSink(store.AuditConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		})
		if err != nil {
			logger.WithError(err).Warn("failed to connect audit sink, continuing without it")
		} else {
			audit = sink
			defer func() {
				_ = sink.Close()
			}()
		}
	}

	rpcClient := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.RPCUrl,
		Timeout:      cfg.RPCTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
	})

	treasury, err := wallet.NewTreasury(cfg.TreasuryPrivateKey, rpcClient, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to load treasury keypair")
	}
	logger.WithField("address", treasury.Address()).Info("treasury loaded")

	jup := jupiter.NewClient(cfg.JupiterBaseURL, cfg.JupiterPriceURL, cfg.JupiterAPIKey)
	registry := tokens.NewRegistry()
	resolver := quote.NewResolver(jup, registry, logger)

	coordinator, err := transfer.NewCoordinator(transfer.CoordinatorConfig{
		Chain:     rpcClient,
		Custodian: treasury,
		Records:   records,
		Audit:     audit,
		Fees: transfer.FeePolicy{
			Percent:            cfg.FeePercent,
			NetworkFeeEstimate: cfg.NetworkFeeEstimate,
		},
		Logger: logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create transfer coordinator")
	}

	h := &server.Handlers{
		RPC:       rpcClient,
		Jupiter:   jup,
		Registry:  registry,
		Quotes:    resolver,
		Transfers: coordinator,
		DevMode:   cfg.DevMode,
		Logger:    logger,
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:        cfg.APIAddr,
			DevMode:     cfg.DevMode,
			APIKey:      cfg.APIKey,
			CORSOrigins: cfg.CORSOrigins,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	logger.WithField("addr", cfg.APIAddr).Info("api server starting")
	if err := srv.Start(); err != nil {
		if err.Error() == "http: Server closed" {
			return
		}
		logger.WithError(err).Fatal("api server failed")
	}

	if err := srv.WaitClosed(context.Background()); err != nil {
		fmt.Println(err)
	}
}
