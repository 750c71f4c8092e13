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
	"errors"
	"fmt"
	"time"

	"github.com/The-x-35/vibegame-sub000/internal/ledger"
	"github.com/The-x-35/vibegame-sub000/internal/metrics"
	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/store"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Start runs one reconciliation pass to catch operations left over from a
// previous process, then keeps polling in the background.
func (r *Reconciler) Start(ctx context.Context) error {
	zap.L().Info("Starting checkpoint reconciler")

	if _, err := r.ReconcileOnce(ctx); err != nil {
		return fmt.Errorf("startup reconciliation failed: %w", err)
	}

	go r.pollLoop(ctx)

	zap.L().Info("Checkpoint reconciler started successfully",
		zap.Duration("polling_interval", r.pollingInterval),
		zap.Duration("max_age", r.maxAge),
		zap.Int("batch_size", r.batchSize))

	return nil
}

// Stop gracefully stops the reconciler
func (r *Reconciler) Stop() {
	zap.L().Info("Stopping checkpoint reconciler")
	close(r.stopChan)
	<-r.doneChan
	zap.L().Info("Checkpoint reconciler stopped")
}

// pollLoop runs the main polling loop
func (r *Reconciler) pollLoop(ctx context.Context) {
	defer close(r.doneChan)

	ticker := time.NewTicker(r.pollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := r.ReconcileOnce(ctx); err != nil {
				zap.L().Error("Reconciliation pass failed", zap.Error(err))
			}
		case <-r.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// ReconcileOnce probes every stuck operation once and returns how many were
// moved to a final stage.
func (r *Reconciler) ReconcileOnce(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	ops, err := r.journal.ListStuck(ctx, store.StuckFilter{
		Stages:    store.DefaultStuckStages,
		OlderThan: now.Add(-r.pollingInterval),
		Limit:     r.batchSize,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list stuck operations: %w", err)
	}
	if len(ops) == 0 {
		return 0, nil
	}

	zap.L().Info("Reconciling stuck operations", zap.Int("count", len(ops)))

	var resolved int
	for _, op := range ops {
		if ctx.Err() != nil {
			return resolved, ctx.Err()
		}
		ok, err := r.reconcileOperation(ctx, op, now)
		if err != nil {
			zap.L().Error("Failed to reconcile operation",
				zap.String("operation_id", op.Id),
				zap.String("stage", op.Stage),
				zap.String("transaction_id", op.TransactionId),
				zap.Error(err))
			continue
		}
		if ok {
			resolved++
		}
	}

	zap.L().Info("Reconciliation pass completed",
		zap.Int("stuck", len(ops)),
		zap.Int("resolved", resolved))
	return resolved, nil
}

// reconcileOperation decides the final stage of one operation, if the ledger
// allows deciding it yet.
func (r *Reconciler) reconcileOperation(ctx context.Context, op models.Operation, now time.Time) (bool, error) {
	expired := now.Sub(op.UpdatedAt) > r.maxAge

	if op.TransactionId == "" {
		if !expired {
			return false, nil
		}
		return r.settle(ctx, op, models.StageFailed, "no transaction id recorded before expiry")
	}

	sig, err := solana.SignatureFromBase58(op.TransactionId)
	if err != nil {
		return r.settle(ctx, op, models.StageFailed, "invalid transaction id")
	}

	st, err := r.ledger.Status(ctx, sig)
	if err != nil {
		return false, fmt.Errorf("failed to probe transaction: %w", err)
	}

	switch {
	case st.State.Landed():
		return r.settle(ctx, op, landedStage(op.Kind), fmt.Sprintf("%s at slot %d (reconciled)", st.State, st.Slot))
	case st.State == ledger.StateFailed:
		return r.settle(ctx, op, models.StageFailed, st.Err)
	case st.State == ledger.StateUnknown && expired:
		return r.settle(ctx, op, models.StageFailed, "dropped: never seen by the ledger")
	}

	zap.L().Debug("Operation still pending",
		zap.String("operation_id", op.Id),
		zap.String("transaction_id", op.TransactionId),
		zap.String("state", string(st.State)))
	return false, nil
}

func (r *Reconciler) settle(ctx context.Context, op models.Operation, stage, detail string) (bool, error) {
	_, err := r.journal.Record(ctx, store.TransitionParams{
		OperationId: op.Id,
		Stage:       stage,
		Detail:      detail,
	})
	if errors.Is(err, store.ErrConcurrentModification) {
		// The pipeline or another reconciler finished it first.
		zap.L().Debug("Operation already moved on",
			zap.String("operation_id", op.Id))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to record %s: %w", stage, err)
	}

	metrics.RecordReconciled(stage)
	zap.L().Info("Operation reconciled",
		zap.String("operation_id", op.Id),
		zap.String("kind", op.Kind),
		zap.String("from_stage", op.Stage),
		zap.String("to_stage", stage),
		zap.String("transaction_id", op.TransactionId))
	return true, nil
}
