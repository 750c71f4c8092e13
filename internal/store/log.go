package store

import (
	"context"
	"sync"
	"time"

	"github.com/The-x-35/vibegame-sub000/internal/models"

	"go.uber.org/zap"
)

var (
	_ CheckpointStore = (*LogStore)(nil)
	_ LaunchRecorder  = (*LogStore)(nil)
)

// DefaultLogStoreCapacity bounds the operations a LogStore keeps in memory.
const DefaultLogStoreCapacity = 10000

// LogStore writes transitions to the structured log only. It keeps the
// latest state of each operation in memory so in-flight transitions can be
// versioned, but nothing survives a restart. Once capacity is reached the
// least recently updated operation is dropped.
type LogStore struct {
	mu       sync.Mutex
	ops      map[string]*models.Operation
	capacity int
}

func NewLogStore() *LogStore {
	return NewBoundedLogStore(DefaultLogStoreCapacity)
}

// NewBoundedLogStore creates a LogStore holding at most capacity operations.
func NewBoundedLogStore(capacity int) *LogStore {
	if capacity <= 0 {
		capacity = DefaultLogStoreCapacity
	}
	return &LogStore{ops: make(map[string]*models.Operation), capacity: capacity}
}

func (s *LogStore) Record(_ context.Context, params TransitionParams) (*models.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	op, ok := s.ops[params.OperationId]
	if !ok {
		if len(s.ops) >= s.capacity {
			s.evictOldest()
		}
		op = &models.Operation{
			Id:        params.OperationId,
			Kind:      params.Kind,
			Wallet:    params.Wallet,
			CreatedAt: now,
		}
		s.ops[params.OperationId] = op
	}
	op.Stage = params.Stage
	if params.TransactionId != "" {
		op.TransactionId = params.TransactionId
	}
	if params.RequestId != "" {
		op.RequestId = params.RequestId
	}
	if params.Detail != "" {
		op.Detail = params.Detail
	}
	op.Version++
	op.UpdatedAt = now

	zap.L().Info("Checkpoint",
		zap.String("operation_id", op.Id),
		zap.String("kind", op.Kind),
		zap.String("stage", op.Stage),
		zap.String("transaction_id", op.TransactionId),
		zap.String("request_id", op.RequestId),
		zap.String("detail", params.Detail))

	if IsTerminal(op.Stage) {
		delete(s.ops, op.Id)
	}
	snapshot := *op
	return &snapshot, nil
}

// evictOldest drops the least recently updated operation. Callers hold s.mu.
func (s *LogStore) evictOldest() {
	var oldest *models.Operation
	for _, op := range s.ops {
		if oldest == nil || op.UpdatedAt.Before(oldest.UpdatedAt) {
			oldest = op
		}
	}
	if oldest == nil {
		return
	}
	delete(s.ops, oldest.Id)
	zap.L().Warn("Dropping untracked operation from memory",
		zap.String("operation_id", oldest.Id),
		zap.String("stage", oldest.Stage),
		zap.String("transaction_id", oldest.TransactionId))
}

func (s *LogStore) GetOperation(_ context.Context, operationId string) (*models.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.ops[operationId]
	if !ok {
		return nil, ErrNotFound
	}
	snapshot := *op
	return &snapshot, nil
}

func (s *LogStore) GetCheckpoints(_ context.Context, _ string) ([]models.Checkpoint, error) {
	return nil, nil
}

func (s *LogStore) ListStuck(_ context.Context, filter StuckFilter) ([]models.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stages := filter.Stages
	if len(stages) == 0 {
		stages = DefaultStuckStages
	}

	var stuck []models.Operation
	for _, op := range s.ops {
		if filter.Limit > 0 && len(stuck) >= filter.Limit {
			break
		}
		if !op.UpdatedAt.Before(filter.OlderThan) {
			continue
		}
		for _, st := range stages {
			if op.Stage == st {
				stuck = append(stuck, *op)
				break
			}
		}
	}
	return stuck, nil
}

func (s *LogStore) RecordLaunch(_ context.Context, record models.LaunchRecord) error {
	zap.L().Info("Token launched",
		zap.String("operation_id", record.OperationId),
		zap.String("wallet", record.Wallet),
		zap.String("token_address", record.TokenAddress),
		zap.String("transaction_id", record.TransactionId),
		zap.String("ticker", record.Ticker))
	return nil
}

func (s *LogStore) Close() {}
