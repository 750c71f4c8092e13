package listener

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/The-x-35/vibegame-sub000/internal/ledger"
	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/store"

	"github.com/gagliardetto/solana-go"
)

type fakeJournal struct {
	ops      []models.Operation
	listErr  error
	conflict map[string]bool
	recorded map[string]store.TransitionParams
	filter   store.StuckFilter
}

func (f *fakeJournal) Record(_ context.Context, p store.TransitionParams) (*models.Operation, error) {
	if f.conflict[p.OperationId] {
		return nil, store.ErrConcurrentModification
	}
	if f.recorded == nil {
		f.recorded = make(map[string]store.TransitionParams)
	}
	f.recorded[p.OperationId] = p
	return &models.Operation{Id: p.OperationId, Stage: p.Stage}, nil
}

func (f *fakeJournal) GetOperation(context.Context, string) (*models.Operation, error) {
	return nil, store.ErrNotFound
}

func (f *fakeJournal) GetCheckpoints(context.Context, string) ([]models.Checkpoint, error) {
	return nil, nil
}

func (f *fakeJournal) ListStuck(_ context.Context, filter store.StuckFilter) ([]models.Operation, error) {
	f.filter = filter
	return f.ops, f.listErr
}

func (f *fakeJournal) Close() {}

type fakeStatuses struct {
	states map[solana.Signature]ledger.Status
	err    error
}

func (f *fakeStatuses) Status(_ context.Context, sig solana.Signature) (ledger.Status, error) {
	if f.err != nil {
		return ledger.Status{}, f.err
	}
	st, ok := f.states[sig]
	if !ok {
		return ledger.Status{Signature: sig, State: ledger.StateUnknown}, nil
	}
	return st, nil
}

func sigN(n byte) solana.Signature {
	var sig solana.Signature
	sig[0] = n
	sig[63] = n
	return sig
}

func TestReconcileOnce(t *testing.T) {
	now := time.Now().UTC()
	fresh := now.Add(-time.Minute)
	stale := now.Add(-time.Hour)

	journal := &fakeJournal{ops: []models.Operation{
		{Id: "landed-direct", Kind: models.OperationTreasuryTransfer, Stage: models.StageSubmitted, TransactionId: sigN(1).String(), UpdatedAt: fresh},
		{Id: "landed-swap", Kind: models.OperationBuy, Stage: models.StageSigned, TransactionId: sigN(2).String(), UpdatedAt: fresh},
		{Id: "failed", Kind: models.OperationLaunch, Stage: models.StageUnconfirmed, TransactionId: sigN(3).String(), UpdatedAt: fresh},
		{Id: "pending", Kind: models.OperationSell, Stage: models.StageSigned, TransactionId: sigN(4).String(), UpdatedAt: fresh},
		{Id: "dropped", Kind: models.OperationSignAndBroadcast, Stage: models.StageSubmitted, TransactionId: sigN(5).String(), UpdatedAt: stale},
		{Id: "no-txid-stale", Kind: models.OperationBuy, Stage: models.StageSigned, UpdatedAt: stale},
		{Id: "no-txid-fresh", Kind: models.OperationBuy, Stage: models.StageSigned, UpdatedAt: fresh},
		{Id: "processed", Kind: models.OperationLaunch, Stage: models.StageSubmitted, TransactionId: sigN(6).String(), UpdatedAt: stale},
	}}
	statuses := &fakeStatuses{states: map[solana.Signature]ledger.Status{
		sigN(1): {State: ledger.StateConfirmed, Slot: 10},
		sigN(2): {State: ledger.StateFinalized, Slot: 11},
		sigN(3): {State: ledger.StateFailed, Err: "custom program error: 0x1"},
		sigN(6): {State: ledger.StateProcessed, Slot: 12},
	}}

	r := NewReconciler(ReconcilerConfig{
		Journal:         journal,
		Ledger:          statuses,
		PollingInterval: time.Second,
		MaxAge:          10 * time.Minute,
		BatchSize:       50,
	})

	resolved, err := r.ReconcileOnce(context.Background())
	if err != nil {
		t.Fatalf("ReconcileOnce failed: %v", err)
	}
	if resolved != 5 {
		t.Errorf("Expected 5 resolved operations, got %d", resolved)
	}

	want := map[string]string{
		"landed-direct": models.StageConfirmed,
		"landed-swap":   models.StageExecuted,
		"failed":        models.StageFailed,
		"dropped":       models.StageFailed,
		"no-txid-stale": models.StageFailed,
	}
	for id, stage := range want {
		got, ok := journal.recorded[id]
		if !ok {
			t.Errorf("Expected %s to be recorded", id)
			continue
		}
		if got.Stage != stage {
			t.Errorf("Expected %s to move to %s, got %s", id, stage, got.Stage)
		}
	}
	for _, id := range []string{"pending", "no-txid-fresh", "processed"} {
		if _, ok := journal.recorded[id]; ok {
			t.Errorf("Expected %s to be left alone", id)
		}
	}
	if journal.recorded["failed"].Detail != "custom program error: 0x1" {
		t.Errorf("Expected on-chain error as detail, got %q", journal.recorded["failed"].Detail)
	}

	if journal.filter.Limit != 50 {
		t.Errorf("Expected batch size 50, got %d", journal.filter.Limit)
	}
	if len(journal.filter.Stages) != len(store.DefaultStuckStages) {
		t.Errorf("Expected default stuck stages, got %v", journal.filter.Stages)
	}
}

func TestReconcileConcurrentModification(t *testing.T) {
	journal := &fakeJournal{
		ops: []models.Operation{
			{Id: "op-1", Kind: models.OperationLaunch, Stage: models.StageSubmitted, TransactionId: sigN(1).String(), UpdatedAt: time.Now()},
		},
		conflict: map[string]bool{"op-1": true},
	}
	statuses := &fakeStatuses{states: map[solana.Signature]ledger.Status{sigN(1): {State: ledger.StateConfirmed}}}

	resolved, err := NewReconciler(ReconcilerConfig{Journal: journal, Ledger: statuses}).ReconcileOnce(context.Background())
	if err != nil {
		t.Fatalf("ReconcileOnce failed: %v", err)
	}
	if resolved != 0 {
		t.Errorf("Expected 0 resolved operations, got %d", resolved)
	}
}

func TestReconcileLedgerUnreachable(t *testing.T) {
	journal := &fakeJournal{ops: []models.Operation{
		{Id: "op-1", Kind: models.OperationLaunch, Stage: models.StageSubmitted, TransactionId: sigN(1).String(), UpdatedAt: time.Now().Add(-time.Hour)},
	}}
	statuses := &fakeStatuses{err: errors.New("rpc down")}

	resolved, err := NewReconciler(ReconcilerConfig{Journal: journal, Ledger: statuses}).ReconcileOnce(context.Background())
	if err != nil {
		t.Fatalf("Expected ledger failures to be skipped, got %v", err)
	}
	if resolved != 0 || len(journal.recorded) != 0 {
		t.Error("Expected nothing recorded when the ledger cannot be reached")
	}
}

func TestReconcileListFailure(t *testing.T) {
	journal := &fakeJournal{listErr: errors.New("database is locked")}
	r := NewReconciler(ReconcilerConfig{Journal: journal, Ledger: &fakeStatuses{}})

	if err := r.Start(context.Background()); err == nil {
		t.Error("Expected Start to fail when the journal cannot be read")
	}
}

func TestStartStop(t *testing.T) {
	journal := &fakeJournal{}
	r := NewReconciler(ReconcilerConfig{Journal: journal, Ledger: &fakeStatuses{}, PollingInterval: 5 * time.Millisecond})

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	r.Stop()
}

func TestNewReconcilerDefaults(t *testing.T) {
	r := NewReconciler(ReconcilerConfig{})
	if r.pollingInterval != defaultPollingInterval {
		t.Errorf("Expected polling interval %v, got %v", defaultPollingInterval, r.pollingInterval)
	}
	if r.maxAge != defaultMaxAge {
		t.Errorf("Expected max age %v, got %v", defaultMaxAge, r.maxAge)
	}
	if r.batchSize != defaultBatchSize {
		t.Errorf("Expected batch size %d, got %d", defaultBatchSize, r.batchSize)
	}
}
