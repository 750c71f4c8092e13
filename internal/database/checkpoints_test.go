package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/store"
)

func setupTestDb(t *testing.T) (*Service, func()) {
	service, err := NewService(context.Background(), models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	return service, service.Close
}

func TestRecord_CreatesOperation(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	op, err := service.Record(ctx, store.TransitionParams{
		OperationId: "op1",
		Kind:        models.OperationBuy,
		Wallet:      "wallet1",
		Stage:       models.StageBuilt,
		RequestId:   "req1",
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if op.Version != 1 {
		t.Errorf("Expected version 1, got %d", op.Version)
	}
	if op.Stage != models.StageBuilt {
		t.Errorf("Expected stage %s, got %s", models.StageBuilt, op.Stage)
	}
	if op.RequestId != "req1" {
		t.Errorf("Expected request id req1, got %s", op.RequestId)
	}
}

func TestRecord_FirstTransitionNeedsKind(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	_, err := service.Record(context.Background(), store.TransitionParams{OperationId: "op1", Stage: models.StageSigned})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRecord_TransitionsKeepEarlierFields(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	steps := []store.TransitionParams{
		{OperationId: "op1", Kind: models.OperationTreasuryTransfer, Wallet: "wallet1", Stage: models.StageBuilt},
		{OperationId: "op1", Stage: models.StageSigned},
		{OperationId: "op1", Stage: models.StageSubmitted, TransactionId: "sig1"},
		{OperationId: "op1", Stage: models.StageConfirmed, Detail: "slot 42"},
	}
	for _, step := range steps {
		if _, err := service.Record(ctx, step); err != nil {
			t.Fatalf("Record %s failed: %v", step.Stage, err)
		}
	}

	op, err := service.GetOperation(ctx, "op1")
	if err != nil {
		t.Fatalf("GetOperation failed: %v", err)
	}
	if op.Version != 4 {
		t.Errorf("Expected version 4, got %d", op.Version)
	}
	if op.TransactionId != "sig1" {
		t.Errorf("Expected transaction id sig1, got %s", op.TransactionId)
	}
	if op.Kind != models.OperationTreasuryTransfer || op.Wallet != "wallet1" {
		t.Errorf("Expected kind and wallet kept, got %s %s", op.Kind, op.Wallet)
	}

	checkpoints, err := service.GetCheckpoints(ctx, "op1")
	if err != nil {
		t.Fatalf("GetCheckpoints failed: %v", err)
	}
	if len(checkpoints) != len(steps) {
		t.Fatalf("Expected %d checkpoints, got %d", len(steps), len(checkpoints))
	}
	for i, c := range checkpoints {
		if c.Stage != steps[i].Stage {
			t.Errorf("Checkpoint %d: expected stage %s, got %s", i, steps[i].Stage, c.Stage)
		}
	}
	if checkpoints[1].TransactionId != "" {
		t.Errorf("Expected no transaction id before submission, got %s", checkpoints[1].TransactionId)
	}
	if checkpoints[3].TransactionId != "sig1" || checkpoints[3].Detail != "slot 42" {
		t.Errorf("Expected confirmed checkpoint to carry sig1 and detail, got %+v", checkpoints[3])
	}
}

func TestRecord_TerminalStageIsFinal(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	_, _ = service.Record(ctx, store.TransitionParams{OperationId: "op1", Kind: models.OperationSell, Stage: models.StageSigned})
	if _, err := service.Record(ctx, store.TransitionParams{OperationId: "op1", Stage: models.StageExecuted, TransactionId: "sig"}); err != nil {
		t.Fatalf("Record executed failed: %v", err)
	}

	_, err := service.Record(ctx, store.TransitionParams{OperationId: "op1", Stage: models.StageFailed})
	if !errors.Is(err, store.ErrConcurrentModification) {
		t.Errorf("Expected ErrConcurrentModification, got %v", err)
	}

	if _, err := service.Record(ctx, store.TransitionParams{OperationId: "op1", Stage: models.StageExecuted}); err != nil {
		t.Errorf("Expected repeat of terminal stage to succeed, got %v", err)
	}
}

func TestGetOperation_NotFound(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	_, err := service.GetOperation(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListStuck(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	record := func(id, stage string) {
		t.Helper()
		if _, err := service.Record(ctx, store.TransitionParams{OperationId: id, Kind: models.OperationBuy, Stage: stage}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	record("built", models.StageBuilt)
	record("signed", models.StageSigned)
	record("submitted", models.StageSubmitted)
	record("unconfirmed", models.StageUnconfirmed)
	record("done", models.StageSigned)
	record("done", models.StageExecuted)

	stuck, err := service.ListStuck(ctx, store.StuckFilter{OlderThan: time.Now().Add(time.Minute)})
	if err != nil {
		t.Fatalf("ListStuck failed: %v", err)
	}
	if len(stuck) != 3 {
		t.Fatalf("Expected 3 stuck operations, got %d", len(stuck))
	}
	for _, op := range stuck {
		if op.Id == "built" || op.Id == "done" {
			t.Errorf("Unexpected operation %s in stuck list", op.Id)
		}
	}

	stuck, err = service.ListStuck(ctx, store.StuckFilter{
		Stages:    []string{models.StageSubmitted},
		OlderThan: time.Now().Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("ListStuck failed: %v", err)
	}
	if len(stuck) != 1 || stuck[0].Id != "submitted" {
		t.Errorf("Expected only the submitted operation, got %+v", stuck)
	}

	stuck, _ = service.ListStuck(ctx, store.StuckFilter{OlderThan: time.Now().Add(-time.Hour)})
	if len(stuck) != 0 {
		t.Errorf("Expected nothing older than an hour, got %d", len(stuck))
	}
}

func TestRecordLaunch(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	record := models.LaunchRecord{
		OperationId:   "op1",
		Wallet:        "wallet1",
		TokenAddress:  "mint1",
		TransactionId: "sig1",
		Name:          "Foo",
		Ticker:        "FOO",
	}
	if err := service.RecordLaunch(ctx, record); err != nil {
		t.Fatalf("RecordLaunch failed: %v", err)
	}

	err := service.RecordLaunch(ctx, record)
	if !errors.Is(err, store.ErrDuplicateLaunch) {
		t.Errorf("Expected ErrDuplicateLaunch, got %v", err)
	}

	launches, err := service.ListLaunches(ctx, "wallet1", 10)
	if err != nil {
		t.Fatalf("ListLaunches failed: %v", err)
	}
	if len(launches) != 1 {
		t.Fatalf("Expected 1 launch, got %d", len(launches))
	}
	if launches[0].TokenAddress != "mint1" || launches[0].Ticker != "FOO" {
		t.Errorf("Unexpected launch %+v", launches[0])
	}
	if launches[0].Id == "" || launches[0].CreatedAt.IsZero() {
		t.Errorf("Expected generated id and timestamp, got %+v", launches[0])
	}
}

func TestNewService_ValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.DatabaseConfig
	}{
		{"empty path", models.DatabaseConfig{MaxOpenConns: 1, PingTimeout: time.Second}},
		{"zero open conns", models.DatabaseConfig{Path: ":memory:", PingTimeout: time.Second}},
		{"negative idle conns", models.DatabaseConfig{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: -1, PingTimeout: time.Second}},
		{"zero ping timeout", models.DatabaseConfig{Path: ":memory:", MaxOpenConns: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewService(context.Background(), tt.cfg); err == nil {
				t.Error("Expected configuration error")
			}
		})
	}
}
