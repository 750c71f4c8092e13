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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/store"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time checks: *Service must satisfy the store contracts.
var (
	_ store.CheckpointStore = (*Service)(nil)
	_ store.LaunchRecorder  = (*Service)(nil)
)

type Service struct {
	db      *sql.DB
	journal *JournalService
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after ping failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	journal := NewJournalService(db)
	service := &Service{db: db, journal: journal}
	if err := service.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	if err := journal.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to initialize journal schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

// Ping checks that the database still answers.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Service) initSchema() error {
	schema := `
	-- Created tokens, one row per successful launch
	CREATE TABLE IF NOT EXISTS launches (
		id TEXT PRIMARY KEY,
		operation_id TEXT NOT NULL,
		wallet TEXT NOT NULL,
		token_address TEXT NOT NULL UNIQUE,
		transaction_id TEXT NOT NULL,
		name TEXT NOT NULL,
		ticker TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_launches_wallet ON launches(wallet);
	CREATE INDEX IF NOT EXISTS idx_launches_created_at ON launches(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Journal convenience methods

func (s *Service) Record(ctx context.Context, params store.TransitionParams) (*models.Operation, error) {
	return s.journal.Record(ctx, params)
}

func (s *Service) GetOperation(ctx context.Context, operationId string) (*models.Operation, error) {
	return s.journal.GetOperation(ctx, operationId)
}

func (s *Service) GetCheckpoints(ctx context.Context, operationId string) ([]models.Checkpoint, error) {
	return s.journal.GetCheckpoints(ctx, operationId)
}

func (s *Service) ListStuck(ctx context.Context, filter store.StuckFilter) ([]models.Operation, error) {
	return s.journal.ListStuck(ctx, filter)
}

// RecordLaunch stores a created token. A token address can only be recorded once.
func (s *Service) RecordLaunch(ctx context.Context, record models.LaunchRecord) error {
	if record.Id == "" {
		record.Id = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, queryInsertLaunch,
		record.Id, record.OperationId, record.Wallet, record.TokenAddress,
		record.TransactionId, record.Name, record.Ticker, record.CreatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: token %s", store.ErrDuplicateLaunch, record.TokenAddress)
		}
		return fmt.Errorf("failed to record launch: %w", err)
	}

	zap.L().Info("Launch recorded",
		zap.String("operation_id", record.OperationId),
		zap.String("wallet", record.Wallet),
		zap.String("token_address", record.TokenAddress),
		zap.String("transaction_id", record.TransactionId))
	return nil
}

// ListLaunches returns the most recent launches of a wallet
func (s *Service) ListLaunches(ctx context.Context, wallet string, limit int) ([]models.LaunchRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, queryListLaunchesByWallet, wallet, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list launches: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var launches []models.LaunchRecord
	for rows.Next() {
		var l models.LaunchRecord
		if err := rows.Scan(&l.Id, &l.OperationId, &l.Wallet, &l.TokenAddress,
			&l.TransactionId, &l.Name, &l.Ticker, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan launch: %w", err)
		}
		launches = append(launches, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating launch rows: %w", err)
	}

	return launches, nil
}
