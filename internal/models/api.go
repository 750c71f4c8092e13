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

package models

import (
	"github.com/shopspring/decimal"
)

// LaunchMetadata is the user-supplied description of a token to create
type LaunchMetadata struct {
	Name        string           `json:"name" validate:"required,min=2,max=50"`
	TokenTicker string           `json:"tokenTicker" validate:"required,min=2,max=10,alphanum"`
	Description string           `json:"description" validate:"max=500"`
	Image       string           `json:"image" validate:"required,image_ref"`
	Website     string           `json:"website,omitempty" validate:"omitempty,http_url"`
	Twitter     string           `json:"twitter,omitempty" validate:"omitempty,social"`
	Telegram    string           `json:"telegram,omitempty" validate:"omitempty,social"`
	InitialBuy  *decimal.Decimal `json:"initialBuy,omitempty" validate:"-"`
}

// LaunchResult is returned once the creation transaction has landed
type LaunchResult struct {
	OperationId  string `json:"operationId"`
	TokenAddress string `json:"tokenAddress"`
	Tx           string `json:"tx"`
	Warning      string `json:"warning,omitempty"`
}

// SwapRequest is the body of a buy or sell call. Mint is the output mint for
// a buy and the input mint for a sell.
type SwapRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Mint   string          `json:"mint"`
}

// SettlementResult is the terminal state of one value-moving operation
type SettlementResult struct {
	OperationId   string `json:"operationId"`
	Success       bool   `json:"success"`
	TransactionId string `json:"transactionId,omitempty"`
}

// SignAndBroadcastRequest carries a caller-built transaction as hex
type SignAndBroadcastRequest struct {
	Transaction string `json:"transaction"`
}

// TreasuryTransferRequest pays the platform treasury. Zero lamports means the
// configured default amount.
type TreasuryTransferRequest struct {
	Lamports uint64 `json:"lamports,omitempty"`
}

// TransactionStatus is a single non-blocking probe of a transaction id
type TransactionStatus struct {
	TransactionId string `json:"transactionId"`
	Status        string `json:"status"`
	Slot          uint64 `json:"slot,omitempty"`
	Error         string `json:"error,omitempty"`
}

// MintInfo is a statically known mint from the registry file
type MintInfo struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals uint8  `yaml:"decimals"`
}
