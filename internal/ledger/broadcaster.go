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

package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/payload"
	"github.com/The-x-35/vibegame-sub000/internal/txerrors"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// State is what the ledger currently reports about a transaction.
type State string

const (
	StateUnknown   State = "unknown"
	StateProcessed State = "processed"
	StateConfirmed State = "confirmed"
	StateFinalized State = "finalized"
	StateFailed    State = "failed"
)

// Landed reports whether s satisfies the confirmed commitment level.
func (s State) Landed() bool {
	return s == StateConfirmed || s == StateFinalized
}

// Status is one observation of a transaction.
type Status struct {
	Signature solana.Signature
	State     State
	Slot      uint64
	Err       string
}

// Confirmation is the terminal success result of Confirm.
type Confirmation struct {
	Signature solana.Signature
	State     State
	Slot      uint64
}

// Broadcaster submits signed transactions and waits for them to land.
type Broadcaster struct {
	rpc           RPC
	interval      time.Duration
	timeout       time.Duration
	searchHistory bool
}

func NewBroadcaster(client RPC, cfg models.LedgerConfig) *Broadcaster {
	interval := cfg.ConfirmInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	timeout := cfg.ConfirmTimeout
	if timeout < interval {
		timeout = interval
	}
	return &Broadcaster{
		rpc:           client,
		interval:      interval,
		timeout:       timeout,
		searchHistory: cfg.SearchHistoryOnPoll,
	}
}

// Submit sends the exact signed bytes with preflight simulation skipped and
// returns the transaction id. A successful Submit does not mean the
// transaction landed; Confirm is mandatory.
func (b *Broadcaster) Submit(ctx context.Context, signed []byte) (solana.Signature, error) {
	if err := payload.CheckSize(signed); err != nil {
		return solana.Signature{}, txerrors.Wrap(txerrors.KindMalformedTransaction, "ledger.Submit", "refusing to submit", err)
	}

	sig, err := b.rpc.SendRawTransactionWithOpts(ctx, signed, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: Commitment,
	})
	if err != nil {
		zap.L().Error("Transaction submission failed", zap.Error(err))
		return solana.Signature{}, ClassifyError("ledger.Submit", err)
	}

	zap.L().Info("Transaction submitted", zap.String("signature", sig.String()))
	return sig, nil
}

// Status probes a transaction once without waiting.
func (b *Broadcaster) Status(ctx context.Context, sig solana.Signature) (Status, error) {
	out, err := b.rpc.GetSignatureStatuses(ctx, b.searchHistory, sig)
	if errors.Is(err, rpc.ErrNotFound) {
		return Status{Signature: sig, State: StateUnknown}, nil
	}
	if err != nil {
		return Status{}, ClassifyError("ledger.Status", err)
	}
	if len(out.Value) == 0 || out.Value[0] == nil {
		return Status{Signature: sig, State: StateUnknown}, nil
	}

	v := out.Value[0]
	st := Status{Signature: sig, Slot: v.Slot}
	switch {
	case v.Err != nil:
		st.State = StateFailed
		st.Err = describeTxError(v.Err)
	case v.ConfirmationStatus == rpc.ConfirmationStatusFinalized:
		st.State = StateFinalized
	case v.ConfirmationStatus == rpc.ConfirmationStatusConfirmed:
		st.State = StateConfirmed
	case v.ConfirmationStatus == rpc.ConfirmationStatusProcessed:
		st.State = StateProcessed
	default:
		st.State = StateUnknown
	}
	return st, nil
}

// Confirm polls at a fixed interval until the transaction lands at the
// confirmed level, fails on chain, or the bounded wait elapses. Cancelling
// ctx stops the waiting only; the transaction may still land. Calling
// Confirm again for a landed transaction returns the same result.
func (b *Broadcaster) Confirm(ctx context.Context, sig solana.Signature) (Confirmation, error) {
	deadline := time.NewTimer(b.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	polls := 0
	for {
		polls++
		st, err := b.Status(ctx, sig)
		if err != nil {
			zap.L().Warn("Confirmation poll failed",
				zap.String("signature", sig.String()),
				zap.Int("poll", polls),
				zap.Error(err))
		} else {
			switch {
			case st.State == StateFailed:
				e := txerrors.New(txerrors.KindOnChain, "ledger.Confirm", st.Err)
				e.Upstream = txerrors.UpstreamLedger
				e.Stage = txerrors.StageConfirm
				e.TransactionId = sig.String()
				return Confirmation{}, e
			case st.State.Landed():
				zap.L().Info("Transaction confirmed",
					zap.String("signature", sig.String()),
					zap.String("state", string(st.State)),
					zap.Uint64("slot", st.Slot),
					zap.Int("polls", polls))
				return Confirmation{Signature: sig, State: st.State, Slot: st.Slot}, nil
			}
		}

		select {
		case <-ticker.C:
		case <-deadline.C:
			return Confirmation{}, b.timeoutError(sig, fmt.Sprintf("not confirmed within %s", b.timeout), nil)
		case <-ctx.Done():
			return Confirmation{}, b.timeoutError(sig, "stopped waiting for confirmation", ctx.Err())
		}
	}
}

func (b *Broadcaster) timeoutError(sig solana.Signature, msg string, cause error) error {
	zap.L().Warn("Transaction outcome unknown",
		zap.String("signature", sig.String()),
		zap.String("reason", msg))
	e := txerrors.Wrap(txerrors.KindConfirmationTimeout, "ledger.Confirm", msg, cause)
	e.Upstream = txerrors.UpstreamLedger
	e.Stage = txerrors.StageConfirm
	e.TransactionId = sig.String()
	return e
}

func describeTxError(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
