package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Record atomically moves an operation to a new stage and appends the
// checkpoint row. Operations already in a terminal stage only accept a
// repeat of that same stage.
func (s *JournalService) Record(ctx context.Context, params store.TransitionParams) (*models.Operation, error) {
	if params.OperationId == "" || params.Stage == "" {
		return nil, fmt.Errorf("operation id and stage are required")
	}

	zap.L().Debug("Recording checkpoint",
		zap.String("operation_id", params.OperationId),
		zap.String("kind", params.Kind),
		zap.String("stage", params.Stage),
		zap.String("transaction_id", params.TransactionId))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	var currentStage string
	var version int64
	err = tx.QueryRowContext(ctx, queryGetOperationVersion, params.OperationId).Scan(&currentStage, &version)
	if errors.Is(err, sql.ErrNoRows) {
		if params.Kind == "" {
			return nil, fmt.Errorf("%w: %s has no kind for its first checkpoint", store.ErrNotFound, params.OperationId)
		}
		_, err = tx.ExecContext(ctx, queryInsertOperation,
			params.OperationId, params.Kind, params.Wallet, params.Stage,
			params.TransactionId, params.RequestId, params.Detail, now, now)
		if err != nil {
			return nil, fmt.Errorf("failed to insert operation: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to get operation: %w", err)
	} else {
		if store.IsTerminal(currentStage) && currentStage != params.Stage {
			return nil, fmt.Errorf("%w: operation %s is already %s", store.ErrConcurrentModification, params.OperationId, currentStage)
		}

		// Optimistic locking on the version read above
		result, err := tx.ExecContext(ctx, queryUpdateOperation,
			params.Stage, params.TransactionId, params.RequestId, params.Detail, now,
			params.OperationId, version)
		if err != nil {
			return nil, fmt.Errorf("failed to update operation: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return nil, fmt.Errorf("operation update failed - %w", store.ErrConcurrentModification)
		}
	}

	if _, err := tx.ExecContext(ctx, queryInsertCheckpoint, uuid.New().String(), params.Detail, now, params.OperationId); err != nil {
		return nil, fmt.Errorf("failed to insert checkpoint: %w", err)
	}

	op, err := scanOperation(tx.QueryRowContext(ctx, queryGetOperation, params.OperationId))
	if err != nil {
		return nil, fmt.Errorf("failed to read operation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Checkpoint recorded",
		zap.String("operation_id", op.Id),
		zap.String("kind", op.Kind),
		zap.String("stage", op.Stage),
		zap.String("transaction_id", op.TransactionId),
		zap.Int64("version", op.Version))

	return op, nil
}

func (s *JournalService) GetOperation(ctx context.Context, operationId string) (*models.Operation, error) {
	op, err := scanOperation(s.db.QueryRowContext(ctx, queryGetOperation, operationId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, operationId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}
	return op, nil
}

// GetCheckpoints returns the full transition history of an operation, oldest first
func (s *JournalService) GetCheckpoints(ctx context.Context, operationId string) ([]models.Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, queryGetCheckpoints, operationId)
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoints: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var checkpoints []models.Checkpoint
	for rows.Next() {
		var c models.Checkpoint
		err := rows.Scan(&c.Id, &c.OperationId, &c.Kind, &c.Wallet, &c.Stage,
			&c.TransactionId, &c.RequestId, &c.Detail, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		checkpoints = append(checkpoints, c)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during checkpoint row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating checkpoint rows: %w", err)
	}

	return checkpoints, nil
}

// ListStuck returns operations parked in one of the filter stages since
// before filter.OlderThan, least recently updated first.
func (s *JournalService) ListStuck(ctx context.Context, filter store.StuckFilter) ([]models.Operation, error) {
	stages := filter.Stages
	if len(stages) == 0 {
		stages = store.DefaultStuckStages
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(stages)), ", ")
	query := fmt.Sprintf(queryListStuckOperations, placeholders)

	args := make([]any, 0, len(stages)+2)
	for _, st := range stages {
		args = append(args, st)
	}
	args = append(args, filter.OlderThan.UTC(), limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stuck operations: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var ops []models.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		ops = append(ops, *op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operation rows: %w", err)
	}

	return ops, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOperation(row rowScanner) (*models.Operation, error) {
	var op models.Operation
	err := row.Scan(&op.Id, &op.Kind, &op.Wallet, &op.Stage, &op.TransactionId,
		&op.RequestId, &op.Detail, &op.Version, &op.CreatedAt, &op.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &op, nil
}
