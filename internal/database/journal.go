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
	"database/sql"
)

// JournalService handles operation and checkpoint persistence
type JournalService struct {
	db *sql.DB
}

func NewJournalService(db *sql.DB) *JournalService {
	return &JournalService{
		db: db,
	}
}

func (s *JournalService) InitSchema() error {
	schema := `
	-- Operations Table (Current State - Hot Data)
	CREATE TABLE IF NOT EXISTS operations (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		wallet TEXT NOT NULL,
		stage TEXT NOT NULL,
		transaction_id TEXT NOT NULL DEFAULT '',
		request_id TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	-- Checkpoints Table (Audit Trail - Cold Data)
	CREATE TABLE IF NOT EXISTS checkpoints (
		id TEXT PRIMARY KEY,
		operation_id TEXT NOT NULL REFERENCES operations(id),
		kind TEXT NOT NULL,
		wallet TEXT NOT NULL,
		stage TEXT NOT NULL,
		transaction_id TEXT NOT NULL DEFAULT '',
		request_id TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_operations_stage_updated ON operations(stage, updated_at);
	CREATE INDEX IF NOT EXISTS idx_operations_wallet ON operations(wallet);
	CREATE INDEX IF NOT EXISTS idx_operations_transaction_id ON operations(transaction_id);
	CREATE INDEX IF NOT EXISTS idx_checkpoints_operation_id ON checkpoints(operation_id);
	`

	_, err := s.db.Exec(schema)
	return err
}
