package store

import (
	"context"
	"errors"
	"time"

	"github.com/The-x-35/vibegame-sub000/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound               = errors.New("operation not found")
	ErrDuplicateLaunch        = errors.New("duplicate launch")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// TransitionParams describes one stage transition of an operation. Empty
// TransactionId, RequestId and Detail keep the values already recorded.
type TransitionParams struct {
	OperationId   string
	Kind          string
	Wallet        string
	Stage         string
	TransactionId string
	RequestId     string
	Detail        string
}

// StuckFilter selects operations that signed but never reached a terminal stage
type StuckFilter struct {
	Stages    []string
	OlderThan time.Time
	Limit     int
}

// DefaultStuckStages are the stages the reconciler re-probes.
var DefaultStuckStages = []string{models.StageSigned, models.StageSubmitted, models.StageUnconfirmed}

// CheckpointStore is the journal of pipeline stage transitions.
type CheckpointStore interface {
	// Record appends a checkpoint and moves the operation to its stage,
	// creating the operation on its first transition.
	Record(ctx context.Context, params TransitionParams) (*models.Operation, error)
	GetOperation(ctx context.Context, operationId string) (*models.Operation, error)
	GetCheckpoints(ctx context.Context, operationId string) ([]models.Checkpoint, error)
	ListStuck(ctx context.Context, filter StuckFilter) ([]models.Operation, error)
	Close()
}

// LaunchRecorder persists created tokens.
type LaunchRecorder interface {
	RecordLaunch(ctx context.Context, record models.LaunchRecord) error
}

// IsTerminal reports whether no further transition is expected for a stage
func IsTerminal(stage string) bool {
	switch stage {
	case models.StageConfirmed, models.StageExecuted, models.StageFailed:
		return true
	}
	return false
}
