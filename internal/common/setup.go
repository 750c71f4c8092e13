/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/The-x-35/vibegame-sub000/internal/aggregator"
	"github.com/The-x-35/vibegame-sub000/internal/auth"
	"github.com/The-x-35/vibegame-sub000/internal/database"
	"github.com/The-x-35/vibegame-sub000/internal/ledger"
	"github.com/The-x-35/vibegame-sub000/internal/mint"
	"github.com/The-x-35/vibegame-sub000/internal/minter"
	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/pipeline"
	"github.com/The-x-35/vibegame-sub000/internal/signer"
	"github.com/The-x-35/vibegame-sub000/internal/txbuilder"
	"github.com/The-x-35/vibegame-sub000/internal/upstream"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService   *database.Service
	RPC         *rpc.Client
	Broadcaster *ledger.Broadcaster
	Pipeline    *pipeline.Service
	Verifier    *auth.Verifier
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices wires every collaborator of the pipeline from cfg.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	httpClient, err := upstream.NewHTTPClient(cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("unable to create upstream client: %w", err)
	}

	registry, err := LoadMintConfig(cfg.Ledger.MintsFile)
	if err != nil {
		return nil, err
	}
	zap.L().Info("Loaded mint registry",
		zap.String("file", cfg.Ledger.MintsFile),
		zap.Int("mints", len(registry)))

	rpcClient := ledger.NewRPCClient(cfg.Ledger.RPCURL, httpClient)
	broadcaster := ledger.NewBroadcaster(rpcClient, cfg.Ledger)

	resolver, err := mint.NewResolver(rpcClient, registry)
	if err != nil {
		return nil, err
	}

	builder, err := txbuilder.NewBuilder(rpcClient, cfg.Treasury.Address)
	if err != nil {
		return nil, err
	}

	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		return nil, err
	}

	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	svc, err := pipeline.NewService(pipeline.Dependencies{
		Signer:     signer.NewGateway(httpClient, cfg.Signer.SignURL, cfg.Upstream.MaxBodyBytes),
		Ledger:     broadcaster,
		Aggregator: aggregator.NewClient(httpClient, cfg.Aggregator, cfg.Upstream.MaxBodyBytes),
		Minter:     minter.NewClient(httpClient, cfg.Minter, cfg.Upstream.MaxBodyBytes),
		Mints:      resolver,
		Builder:    builder,
		Journal:    dbService,
		Launches:   dbService,
	}, pipeline.Settings{
		QuoteMint:       cfg.Aggregator.QuoteMint,
		DefaultLamports: cfg.Treasury.DefaultLamports,
	})
	if err != nil {
		dbService.Close()
		return nil, err
	}

	zap.L().Info("Pipeline initialized",
		zap.String("treasury", MaskShort(cfg.Treasury.Address)),
		zap.String("quote_mint", cfg.Aggregator.QuoteMint))

	return &Services{
		DbService:   dbService,
		RPC:         rpcClient,
		Broadcaster: broadcaster,
		Pipeline:    svc,
		Verifier:    verifier,
	}, nil
}

// InitializeDatabaseOnly initializes just the database service without any upstream
// Useful for read-only operations like listing checkpoints
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

// InitializeLedgerOnly builds the ledger broadcaster for tools that only
// probe transactions.
func InitializeLedgerOnly(cfg *models.Config) (*ledger.Broadcaster, error) {
	if cfg.Ledger.RPCURL == "" {
		return nil, fmt.Errorf("SOLANA_RPC_URL is required")
	}
	httpClient, err := upstream.NewHTTPClient(cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("unable to create upstream client: %w", err)
	}
	return ledger.NewBroadcaster(ledger.NewRPCClient(cfg.Ledger.RPCURL, httpClient), cfg.Ledger), nil
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
