package models

import (
	"time"
)

// Operation kinds recorded in the checkpoint journal
const (
	OperationLaunch           = "launch"
	OperationBuy              = "buy"
	OperationSell             = "sell"
	OperationSignAndBroadcast = "sign-and-broadcast"
	OperationTreasuryTransfer = "treasury-transfer"
)

// Checkpoint stages. Everything from StageSigned onward means a signature
// exists and the operation must not be restarted from scratch.
const (
	StageBuilt       = "built"
	StageSigned      = "signed"
	StageSubmitted   = "submitted"
	StageExecuted    = "executed"
	StageConfirmed   = "confirmed"
	StageFailed      = "failed"
	StageUnconfirmed = "unconfirmed"
)

// Operation represents the current state of one pipeline run (hot data)
type Operation struct {
	Id            string    `db:"id"`
	Kind          string    `db:"kind"`
	Wallet        string    `db:"wallet"`
	Stage         string    `db:"stage"`
	TransactionId string    `db:"transaction_id"`
	RequestId     string    `db:"request_id"`
	Detail        string    `db:"detail"`
	Version       int64     `db:"version"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Checkpoint represents one immutable stage transition (cold data)
type Checkpoint struct {
	Id            string    `db:"id"`
	OperationId   string    `db:"operation_id"`
	Kind          string    `db:"kind"`
	Wallet        string    `db:"wallet"`
	Stage         string    `db:"stage"`
	TransactionId string    `db:"transaction_id"`
	RequestId     string    `db:"request_id"`
	Detail        string    `db:"detail"`
	CreatedAt     time.Time `db:"created_at"`
}

// LaunchRecord is the durable record of a created token
type LaunchRecord struct {
	Id            string    `db:"id"`
	OperationId   string    `db:"operation_id"`
	Wallet        string    `db:"wallet"`
	TokenAddress  string    `db:"token_address"`
	TransactionId string    `db:"transaction_id"`
	Name          string    `db:"name"`
	Ticker        string    `db:"ticker"`
	CreatedAt     time.Time `db:"created_at"`
}

// IsAfterSigning reports whether a stage implies a signature already exists
func IsAfterSigning(stage string) bool {
	switch stage {
	case StageSigned, StageSubmitted, StageExecuted, StageConfirmed, StageFailed, StageUnconfirmed:
		return true
	}
	return false
}
