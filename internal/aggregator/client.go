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

package aggregator

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/txerrors"
	"github.com/The-x-35/vibegame-sub000/internal/upstream"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// OrderRequest asks for a swap of RawAmount base units of InputMint.
type OrderRequest struct {
	InputMint  solana.PublicKey
	OutputMint solana.PublicKey
	RawAmount  uint64
	Taker      solana.PublicKey
}

// Order is a quote bound to one unsigned transaction. It expires quickly and
// is never reused.
type Order struct {
	OrderRequest
	RequestId   string
	Transaction string
}

// Execution is the aggregator's settlement report.
type Execution struct {
	Status    string
	Signature string
}

// Client talks to the order aggregator. The aggregator, not the ledger RPC,
// broadcasts swap transactions.
type Client struct {
	client     *upstream.Client
	orderURL   string
	executeURL string
	apiKey     string
}

func NewClient(httpClient *http.Client, cfg models.AggregatorConfig, maxBodyBytes int64) *Client {
	return &Client{
		client:     upstream.NewClient(txerrors.UpstreamAggregator, httpClient, maxBodyBytes),
		orderURL:   cfg.OrderURL,
		executeURL: cfg.ExecuteURL,
		apiKey:     cfg.APIKey,
	}
}

type orderResponse struct {
	RequestId    string  `json:"requestId"`
	Transaction  *string `json:"transaction"`
	ErrorMessage string  `json:"errorMessage"`
	Error        string  `json:"error"`
}

type executeRequest struct {
	SignedTransaction string `json:"signedTransaction"`
	RequestId         string `json:"requestId"`
}

type executeResponse struct {
	Status    string `json:"status"`
	Signature string `json:"signature"`
	Error     string `json:"error"`
	Code      *int   `json:"code"`
}

func (c *Client) headers() map[string]string {
	if c.apiKey == "" {
		return nil
	}
	return map[string]string{"x-api-key": c.apiKey}
}

// Order requests a fresh quote and its unsigned transaction.
func (c *Client) Order(ctx context.Context, req OrderRequest) (*Order, error) {
	const op = "aggregator.Order"

	q := url.Values{}
	q.Set("inputMint", req.InputMint.String())
	q.Set("outputMint", req.OutputMint.String())
	q.Set("amount", strconv.FormatUint(req.RawAmount, 10))
	q.Set("taker", req.Taker.String())

	sep := "?"
	if strings.Contains(c.orderURL, "?") {
		sep = "&"
	}

	zap.L().Info("Requesting order",
		zap.String("input_mint", req.InputMint.String()),
		zap.String("output_mint", req.OutputMint.String()),
		zap.Uint64("amount", req.RawAmount),
		zap.String("taker", req.Taker.String()))

	resp, err := c.client.Do(ctx, http.MethodGet, c.orderURL+sep+q.Encode(), c.headers(), nil)
	if err != nil {
		return nil, err
	}
	if err := c.client.StatusError(op, resp); err != nil {
		return nil, err
	}

	var body orderResponse
	if err := c.client.Decode(op, resp, &body); err != nil {
		return nil, err
	}

	if body.Transaction == nil || *body.Transaction == "" {
		// A quote without a transaction is how the aggregator declines.
		if msg := firstNonEmpty(body.ErrorMessage, body.Error); msg != "" {
			return nil, txerrors.Rejected(txerrors.UpstreamAggregator, op, msg)
		}
		return nil, c.client.Malformed(op, "order has no transaction")
	}
	if body.RequestId == "" {
		return nil, c.client.Malformed(op, "order has no requestId")
	}

	zap.L().Info("Order received", zap.String("request_id", body.RequestId))
	return &Order{OrderRequest: req, RequestId: body.RequestId, Transaction: *body.Transaction}, nil
}

// Execute hands the signed transaction back with the order's request id. A
// failed execution is terminal for the quote.
func (c *Client) Execute(ctx context.Context, signedTx, requestId string) (*Execution, error) {
	const op = "aggregator.Execute"

	resp, err := c.client.Do(ctx, http.MethodPost, c.executeURL, c.headers(), executeRequest{
		SignedTransaction: signedTx,
		RequestId:         requestId,
	})
	if err != nil {
		return nil, err
	}
	if err := c.client.StatusError(op, resp); err != nil {
		return nil, err
	}

	var body executeResponse
	if err := c.client.Decode(op, resp, &body); err != nil {
		return nil, err
	}

	if !strings.EqualFold(body.Status, "success") && (body.Status != "" || body.Error != "") {
		msg := firstNonEmpty(body.Error, "execution failed with status "+body.Status)
		e := txerrors.Rejected(txerrors.UpstreamAggregator, op, msg)
		e.TransactionId = body.Signature
		zap.L().Warn("Order execution failed",
			zap.String("request_id", requestId),
			zap.String("status", body.Status),
			zap.String("signature", body.Signature),
			zap.String("error", body.Error))
		return nil, e
	}
	if body.Signature == "" {
		return nil, c.client.Malformed(op, "execution has no signature")
	}
	if _, err := solana.SignatureFromBase58(body.Signature); err != nil {
		return nil, c.client.Malformed(op, "execution signature is not a transaction id")
	}

	zap.L().Info("Order executed",
		zap.String("request_id", requestId),
		zap.String("signature", body.Signature))
	return &Execution{Status: body.Status, Signature: body.Signature}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
