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
	"time"

	"github.com/The-x-35/vibegame-sub000/internal/common"
	"github.com/The-x-35/vibegame-sub000/internal/config"
	"github.com/The-x-35/vibegame-sub000/internal/ledger"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// ANSI color helpers for console output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

func stateColor(state ledger.State) string {
	switch {
	case state.Landed():
		return colorGreen
	case state == ledger.StateFailed:
		return colorRed
	}
	return colorYellow
}

func main() {
	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	txFlag := flag.String("tx", "", "Transaction id to probe (required)")
	waitFlag := flag.Bool("wait", false, "Wait until the transaction reaches confirmed commitment")
	flag.Parse()

	if *txFlag == "" {
		fmt.Println("Usage: txstatus -tx <transaction id> [-wait]")
		os.Exit(2)
	}

	sig, err := solana.SignatureFromBase58(*txFlag)
	if err != nil {
		logger.Fatal("Invalid transaction id", zap.String("transaction_id", *txFlag), zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	broadcaster, err := common.InitializeLedgerOnly(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize ledger client", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Ledger.ConfirmTimeout+10*time.Second)
	defer cancel()

	common.PrintHeader("TRANSACTION "+common.MaskShort(sig.String()), common.DefaultWidth)

	if *waitFlag {
		conf, err := broadcaster.Confirm(ctx, sig)
		if err != nil {
			fmt.Printf("%s✗ %s%s\n", colorRed, err, colorReset)
			common.PrintFooter("NOT CONFIRMED", common.DefaultWidth)
			os.Exit(1)
		}
		fmt.Printf("%s✓ %s at slot %d%s\n", colorGreen, conf.State, conf.Slot, colorReset)
		common.PrintFooter("CONFIRMED", common.DefaultWidth)
		return
	}

	st, err := broadcaster.Status(ctx, sig)
	if err != nil {
		logger.Fatal("Failed to probe transaction", zap.Error(err))
	}

	fmt.Printf("%s%-10s%s slot %d\n", stateColor(st.State), st.State, colorReset, st.Slot)
	if st.Err != "" {
		fmt.Printf("  error: %s\n", st.Err)
	}
	common.PrintFooter("STATUS: "+string(st.State), common.DefaultWidth)
}
