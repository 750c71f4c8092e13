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

package ledger

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/The-x-35/vibegame-sub000/internal/txerrors"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// Commitment is used for every read and for preflight.
const Commitment = rpc.CommitmentConfirmed

// RPC is the subset of the ledger JSON-RPC surface the pipeline needs.
// *rpc.Client satisfies it.
type RPC interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetTokenSupply(ctx context.Context, mint solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenSupplyResult, error)
	SendRawTransactionWithOpts(ctx context.Context, rawTx []byte, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetHealth(ctx context.Context) (string, error)
}

var _ RPC = (*rpc.Client)(nil)

// NewRPCClient connects to endpoint through the shared pooled HTTP client.
func NewRPCClient(endpoint string, httpClient *http.Client) *rpc.Client {
	if httpClient == nil {
		return rpc.New(endpoint)
	}
	return rpc.NewWithCustomRPCClient(jsonrpc.NewClientWithOpts(endpoint, &jsonrpc.RPCClientOpts{
		HTTPClient: httpClient,
	}))
}

// ClassifyError maps an RPC failure onto the error taxonomy. JSON-RPC error
// objects are explicit refusals by the node; anything else is transport.
func ClassifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return txerrors.Rejected(txerrors.UpstreamLedger, op, rpcErr.Message)
	}
	return txerrors.Unavailable(txerrors.UpstreamLedger, op, "ledger rpc failed", err)
}

// IsAccountMissing reports an RPC error for an account that does not exist
// or is not of the expected type.
func IsAccountMissing(err error) bool {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	if rpcErr.Code == -32602 {
		return true
	}
	msg := strings.ToLower(rpcErr.Message)
	return strings.Contains(msg, "could not find") || strings.Contains(msg, "not a token mint") || strings.Contains(msg, "invalid param")
}
