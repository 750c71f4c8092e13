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
	"os"

	"github.com/The-x-35/vibegame-sub000/internal/common"
	"github.com/The-x-35/vibegame-sub000/internal/config"
	"github.com/The-x-35/vibegame-sub000/internal/mint"
	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/txerrors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const solDecimals = 9

type transferRequest struct {
	token    string
	lamports uint64
}

func parseAndValidateFlags() (*transferRequest, error) {
	tokenFlag := flag.String("token", os.Getenv("CALLER_TOKEN"), "Caller bearer credential (default: $CALLER_TOKEN)")
	amountFlag := flag.String("sol", "", "Amount of SOL to transfer (default: configured treasury amount)")
	flag.Parse()

	if *tokenFlag == "" {
		return nil, fmt.Errorf("a caller credential is required: --token or CALLER_TOKEN")
	}

	req := &transferRequest{token: *tokenFlag}
	if *amountFlag == "" {
		return req, nil
	}

	amount, err := decimal.NewFromString(*amountFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}
	req.lamports, err = mint.ToRaw(amount, solDecimals)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func printTransferSummary(wallet, treasury string, lamports uint64) {
	common.PrintHeader("TREASURY TRANSFER", common.DefaultWidth)
	fmt.Printf("From:      %s\n", wallet)
	fmt.Printf("To:        %s\n", treasury)
	if lamports == 0 {
		fmt.Printf("Amount:    configured default\n")
	} else {
		fmt.Printf("Amount:    %s SOL (%d lamports)\n", mint.FromRaw(lamports, solDecimals).String(), lamports)
	}
	common.PrintSeparator("=", common.DefaultWidth)
}

func printFailure(err error) {
	common.PrintHeader("TRANSFER FAILED", common.DefaultWidth)
	fmt.Printf("Error:     %s\n", err)
	fmt.Printf("Kind:      %s\n", txerrors.PublicKind(err))
	fmt.Printf("Advice:    %s\n", txerrors.Advise(err))
	if e, ok := txerrors.As(err); ok && e.TransactionId != "" {
		fmt.Printf("Tx:        %s\n", e.TransactionId)
		fmt.Printf("\nProbe it later with: txstatus -tx %s\n", e.TransactionId)
	}
	common.PrintSeparator("=", common.DefaultWidth)
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req, err := parseAndValidateFlags()
	if err != nil {
		zap.L().Fatal("Invalid arguments", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}
	if err := config.Validate(cfg); err != nil {
		zap.L().Fatal("Invalid configuration", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	id, err := services.Verifier.Verify(req.token)
	if err != nil {
		printFailure(err)
		zap.L().Fatal("Credential rejected", zap.Error(err))
	}

	printTransferSummary(id.Address, cfg.Treasury.Address, req.lamports)

	fmt.Println("Signing and submitting...")
	result, err := services.Pipeline.PayTreasury(ctx, id, models.TreasuryTransferRequest{Lamports: req.lamports})
	if err != nil {
		printFailure(err)
		services.Close()
		os.Exit(1)
	}

	common.PrintFooter(fmt.Sprintf("CONFIRMED: %s (operation %s)", result.TransactionId, result.OperationId), common.DefaultWidth)
	zap.L().Info("Treasury transfer completed",
		zap.String("operation_id", result.OperationId),
		zap.String("transaction_id", result.TransactionId),
		zap.String("wallet", common.MaskShort(id.Address)))
}
