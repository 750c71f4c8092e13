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

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/The-x-35/vibegame-sub000/internal/aggregator"
	"github.com/The-x-35/vibegame-sub000/internal/ledger"
	"github.com/The-x-35/vibegame-sub000/internal/metrics"
	"github.com/The-x-35/vibegame-sub000/internal/minter"
	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/signer"
	"github.com/The-x-35/vibegame-sub000/internal/store"
	"github.com/The-x-35/vibegame-sub000/internal/txbuilder"
	"github.com/The-x-35/vibegame-sub000/internal/txerrors"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Signer produces signed artifacts for unsigned transactions.
type Signer interface {
	Sign(ctx context.Context, req signer.Request) (signer.Artifact, error)
}

// Ledger submits and observes transactions.
type Ledger interface {
	Submit(ctx context.Context, signed []byte) (solana.Signature, error)
	Confirm(ctx context.Context, sig solana.Signature) (ledger.Confirmation, error)
	Status(ctx context.Context, sig solana.Signature) (ledger.Status, error)
}

// Aggregator quotes and settles swaps.
type Aggregator interface {
	Order(ctx context.Context, req aggregator.OrderRequest) (*aggregator.Order, error)
	Execute(ctx context.Context, signedTx, requestId string) (*aggregator.Execution, error)
}

// Minter creates token creation transactions.
type Minter interface {
	Mint(ctx context.Context, req minter.MintRequest) (*minter.MintResult, error)
}

// Mints resolves token identifiers and their precision.
type Mints interface {
	Parse(id string) (solana.PublicKey, error)
	Decimals(ctx context.Context, id string) (solana.PublicKey, uint8, error)
}

// Builder produces locally built or re-anchored transactions.
type Builder interface {
	BuildTransfer(ctx context.Context, from solana.PublicKey, lamports uint64) (*txbuilder.Unsigned, error)
	Restamp(ctx context.Context, u *txbuilder.Unsigned) error
}

// Dependencies are the collaborators of a Service. Journal and Launches
// default to the log-only store when nil.
type Dependencies struct {
	Signer     Signer
	Ledger     Ledger
	Aggregator Aggregator
	Minter     Minter
	Mints      Mints
	Builder    Builder
	Journal    store.CheckpointStore
	Launches   store.LaunchRecorder
}

// Settings are the static pipeline parameters.
type Settings struct {
	QuoteMint       string
	DefaultLamports uint64
}

// Service runs the four pipelines. It keeps no per-request state between
// calls; everything durable goes through the journal and the launch recorder.
type Service struct {
	signer     Signer
	ledger     Ledger
	aggregator Aggregator
	minter     Minter
	mints      Mints
	builder    Builder
	journal    store.CheckpointStore
	launches   store.LaunchRecorder

	quoteMint       solana.PublicKey
	defaultLamports uint64
}

func NewService(deps Dependencies, settings Settings) (*Service, error) {
	if deps.Signer == nil || deps.Ledger == nil || deps.Aggregator == nil ||
		deps.Minter == nil || deps.Mints == nil || deps.Builder == nil {
		return nil, fmt.Errorf("pipeline requires signer, ledger, aggregator, minter, mints and builder")
	}

	quote, err := deps.Mints.Parse(settings.QuoteMint)
	if err != nil {
		return nil, fmt.Errorf("invalid quote mint %q: %w", settings.QuoteMint, err)
	}

	journal := deps.Journal
	launches := deps.Launches
	if journal == nil || launches == nil {
		logStore := store.NewLogStore()
		if journal == nil {
			journal = logStore
		}
		if launches == nil {
			launches = logStore
		}
	}

	return &Service{
		signer:          deps.Signer,
		ledger:          deps.Ledger,
		aggregator:      deps.Aggregator,
		minter:          deps.Minter,
		mints:           deps.Mints,
		builder:         deps.Builder,
		journal:         journal,
		launches:        launches,
		quoteMint:       quote,
		defaultLamports: settings.DefaultLamports,
	}, nil
}

// run is one pipeline invocation.
type run struct {
	id      string
	kind    string
	wallet  string
	started time.Time
	journal store.CheckpointStore

	// stage is the last stage recorded for this run.
	stage string
}

func (s *Service) begin(kind string, id models.Identity) *run {
	r := &run{
		id:      uuid.New().String(),
		kind:    kind,
		wallet:  id.Address,
		started: time.Now(),
		journal: s.journal,
	}
	zap.L().Info("Operation started",
		zap.String("operation_id", r.id),
		zap.String("kind", kind),
		zap.String("wallet", id.Address))
	return r
}

// checkpoint records a stage transition. Journal failures are logged and
// never fail the operation.
func (r *run) checkpoint(ctx context.Context, stage, txid, requestId, detail string) {
	_, err := r.journal.Record(context.WithoutCancel(ctx), store.TransitionParams{
		OperationId:   r.id,
		Kind:          r.kind,
		Wallet:        r.wallet,
		Stage:         stage,
		TransactionId: txid,
		RequestId:     requestId,
		Detail:        detail,
	})
	r.stage = stage
	if err != nil {
		zap.L().Error("Failed to record checkpoint",
			zap.String("operation_id", r.id),
			zap.String("stage", stage),
			zap.String("transaction_id", txid),
			zap.Error(err))
	}
}

// finish logs and counts the outcome and returns err unchanged. A run that
// failed before anything was signed is closed in the journal; runs that failed
// after signing keep their last stage so the reconciler can probe them.
func (r *run) finish(ctx context.Context, err error) error {
	elapsed := time.Since(r.started)
	if err == nil {
		metrics.RecordOperation(r.kind, "success", elapsed)
		zap.L().Info("Operation succeeded",
			zap.String("operation_id", r.id),
			zap.String("kind", r.kind),
			zap.Duration("elapsed", elapsed))
		return nil
	}

	e, _ := txerrors.As(err)
	fields := []zap.Field{
		zap.String("operation_id", r.id),
		zap.String("kind", r.kind),
		zap.String("advice", string(txerrors.Advise(err))),
		zap.Duration("elapsed", elapsed),
		zap.Error(err),
	}
	if e != nil {
		fields = append(fields,
			zap.String("error_kind", string(e.Kind)),
			zap.String("stage", string(e.Stage)),
			zap.String("upstream", e.Upstream),
			zap.Bool("signed", e.Signed),
			zap.String("transaction_id", e.TransactionId))
	}
	zap.L().Warn("Operation failed", fields...)
	if r.stage == models.StageBuilt {
		r.checkpoint(ctx, models.StageFailed, "", "", err.Error())
	}
	metrics.RecordOperation(r.kind, string(txerrors.PublicKind(err)), elapsed)
	return err
}

func (r *run) observe(stage txerrors.Stage, since time.Time) {
	metrics.ObserveStage(r.kind, string(stage), time.Since(since))
}

func callerKey(id models.Identity) (solana.PublicKey, error) {
	if id.Credential == "" || id.Address == "" {
		return solana.PublicKey{}, txerrors.New(txerrors.KindUnauthenticated, "pipeline.identity", "missing caller credential")
	}
	pk, err := solana.PublicKeyFromBase58(id.Address)
	if err != nil {
		return solana.PublicKey{}, txerrors.Wrap(txerrors.KindUnauthenticated, "pipeline.identity", "caller address is not a valid public key", err)
	}
	return pk, nil
}
