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

package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/The-x-35/vibegame-sub000/internal/common"
	"github.com/The-x-35/vibegame-sub000/internal/config"
	"github.com/The-x-35/vibegame-sub000/internal/database"
	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/store"

	"go.uber.org/zap"
)

func formatTransactionId(txId string) string {
	if txId == "" {
		return "none"
	}
	return common.MaskShort(txId)
}

func printOperation(op models.Operation, isLast bool) {
	symbol := common.BoxPrefix(isLast)
	fmt.Printf("%s %-36s %-20s %-12s tx: %-15s (v%d, updated: %s)\n",
		symbol,
		op.Id,
		op.Kind,
		op.Stage,
		formatTransactionId(op.TransactionId),
		op.Version,
		op.UpdatedAt.Format("2006-01-02 15:04:05"))

	detailSymbol := common.BoxDetailPrefix(isLast)
	fmt.Printf("%s   Wallet: %s\n", detailSymbol, op.Wallet)
	if op.Detail != "" {
		fmt.Printf("%s   Detail: %s\n", detailSymbol, op.Detail)
	}
}

func printCheckpoint(cp models.Checkpoint, isLast bool) {
	symbol := common.BoxPrefix(isLast)
	fmt.Printf("%s %s  %-12s tx: %-15s %s\n",
		symbol,
		cp.CreatedAt.Format("2006-01-02 15:04:05.000"),
		cp.Stage,
		formatTransactionId(cp.TransactionId),
		cp.Detail)
}

func printLaunch(rec models.LaunchRecord, isLast bool) {
	symbol := common.BoxPrefix(isLast)
	fmt.Printf("%s %-10s %-30s %s (tx: %s, %s)\n",
		symbol,
		rec.Ticker,
		rec.Name,
		rec.TokenAddress,
		formatTransactionId(rec.TransactionId),
		rec.CreatedAt.Format("2006-01-02 15:04:05"))
}

func showStuck(ctx context.Context, dbService *database.Service, olderThan time.Duration, limit int) (int, error) {
	ops, err := dbService.ListStuck(ctx, store.StuckFilter{
		Stages:    store.DefaultStuckStages,
		OlderThan: time.Now().UTC().Add(-olderThan),
		Limit:     limit,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list stuck operations: %w", err)
	}

	common.PrintHeader(fmt.Sprintf("OPERATIONS STUCK AFTER SIGNING (older than %s)", olderThan), common.DefaultWidth)
	for i, op := range ops {
		printOperation(op, i == len(ops)-1)
	}
	return len(ops), nil
}

func showOperation(ctx context.Context, dbService *database.Service, operationId string) (int, error) {
	op, err := dbService.GetOperation(ctx, operationId)
	if err != nil {
		return 0, fmt.Errorf("failed to get operation: %w", err)
	}
	checkpoints, err := dbService.GetCheckpoints(ctx, operationId)
	if err != nil {
		return 0, fmt.Errorf("failed to get checkpoints: %w", err)
	}

	common.PrintHeader("OPERATION "+op.Id, common.WideWidth)
	printOperation(*op, true)
	fmt.Printf("\n┌─ Checkpoints: %d\n", len(checkpoints))
	common.PrintBoxSeparator(common.WideWidth - 2)
	for i, cp := range checkpoints {
		printCheckpoint(cp, i == len(checkpoints)-1)
	}
	return len(checkpoints), nil
}

func showLaunches(ctx context.Context, dbService *database.Service, wallet string, limit int) (int, error) {
	launches, err := dbService.ListLaunches(ctx, wallet, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list launches: %w", err)
	}

	common.PrintHeader("TOKENS LAUNCHED BY "+common.MaskShort(wallet), common.DefaultWidth)
	for i, rec := range launches {
		printLaunch(rec, i == len(launches)-1)
	}
	return len(launches), nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	operationFlag := flag.String("op", "", "Show the checkpoint history of one operation")
	walletFlag := flag.String("wallet", "", "List tokens launched by a wallet")
	olderFlag := flag.Duration("older-than", time.Minute, "Only list operations not updated for this long")
	limitFlag := flag.Int("limit", 100, "Maximum number of rows")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Initialize database service (no upstreams needed for read-only operations)
	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	var count int
	var what string
	switch {
	case *operationFlag != "":
		what = "checkpoints"
		count, err = showOperation(ctx, dbService, *operationFlag)
	case *walletFlag != "":
		what = "launches"
		count, err = showLaunches(ctx, dbService, *walletFlag, *limitFlag)
	default:
		what = "stuck operations"
		count, err = showStuck(ctx, dbService, *olderFlag, *limitFlag)
	}
	if err != nil {
		logger.Fatal("Query failed", zap.Error(err))
	}

	common.PrintFooter(fmt.Sprintf("SUMMARY: %d %s", count, what), common.DefaultWidth)
}
