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

const (
	// Operation queries
	queryGetOperationVersion = `
		SELECT stage, version
		FROM operations
		WHERE id = ?`

	queryInsertOperation = `
		INSERT INTO operations (
			id, kind, wallet, stage, transaction_id, request_id, detail, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`

	queryUpdateOperation = `
		UPDATE operations
		SET stage = ?,
		    transaction_id = COALESCE(NULLIF(?, ''), transaction_id),
		    request_id = COALESCE(NULLIF(?, ''), request_id),
		    detail = COALESCE(NULLIF(?, ''), detail),
		    version = version + 1,
		    updated_at = ?
		WHERE id = ? AND version = ?`

	queryGetOperation = `
		SELECT id, kind, wallet, stage, transaction_id, request_id, detail, version, created_at, updated_at
		FROM operations
		WHERE id = ?`

	queryListStuckOperations = `
		SELECT id, kind, wallet, stage, transaction_id, request_id, detail, version, created_at, updated_at
		FROM operations
		WHERE stage IN (%s) AND updated_at < ?
		ORDER BY updated_at
		LIMIT ?`

	// Checkpoint queries
	queryInsertCheckpoint = `
		INSERT INTO checkpoints (
			id, operation_id, kind, wallet, stage, transaction_id, request_id, detail, created_at
		)
		SELECT ?, id, kind, wallet, stage, transaction_id, request_id, ?, ?
		FROM operations
		WHERE id = ?`

	queryGetCheckpoints = `
		SELECT id, operation_id, kind, wallet, stage, transaction_id, request_id, detail, created_at
		FROM checkpoints
		WHERE operation_id = ?
		ORDER BY created_at, rowid`

	// Launch queries
	queryInsertLaunch = `
		INSERT INTO launches (
			id, operation_id, wallet, token_address, transaction_id, name, ticker, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryListLaunchesByWallet = `
		SELECT id, operation_id, wallet, token_address, transaction_id, name, ticker, created_at
		FROM launches
		WHERE wallet = ?
		ORDER BY created_at DESC
		LIMIT ?`
)
