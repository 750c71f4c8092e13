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

package listener

import (
	"context"
	"time"

	"github.com/The-x-35/vibegame-sub000/internal/ledger"
	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/store"

	"github.com/gagliardetto/solana-go"
)

const (
	defaultPollingInterval = 30 * time.Second
	defaultMaxAge          = 10 * time.Minute
	defaultBatchSize       = 100
)

// StatusProber reads the current ledger state of a transaction.
type StatusProber interface {
	Status(ctx context.Context, sig solana.Signature) (ledger.Status, error)
}

// ReconcilerConfig contains configuration for Reconciler
type ReconcilerConfig struct {
	Journal         store.CheckpointStore
	Ledger          StatusProber
	PollingInterval time.Duration
	MaxAge          time.Duration
	BatchSize       int
}

// Reconciler polls the checkpoint journal for operations that were signed
// but never reached a final stage, and settles them from ledger state.
type Reconciler struct {
	journal store.CheckpointStore
	ledger  StatusProber

	pollingInterval time.Duration
	maxAge          time.Duration
	batchSize       int

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewReconciler creates a new checkpoint reconciler
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	r := &Reconciler{
		journal:         cfg.Journal,
		ledger:          cfg.Ledger,
		pollingInterval: cfg.PollingInterval,
		maxAge:          cfg.MaxAge,
		batchSize:       cfg.BatchSize,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
	if r.pollingInterval <= 0 {
		r.pollingInterval = defaultPollingInterval
	}
	if r.maxAge <= 0 {
		r.maxAge = defaultMaxAge
	}
	if r.batchSize <= 0 {
		r.batchSize = defaultBatchSize
	}
	return r
}

// landedStage is the final success stage for an operation kind. Swaps are
// settled by the aggregator, everything else by the ledger directly.
func landedStage(kind string) string {
	switch kind {
	case models.OperationBuy, models.OperationSell:
		return models.StageExecuted
	}
	return models.StageConfirmed
}
