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

package minter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/txerrors"
	"github.com/The-x-35/vibegame-sub000/internal/upstream"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MintRequest describes the token to create and the creator's initial buy.
type MintRequest struct {
	User        solana.PublicKey
	Name        string
	Symbol      string
	Description string
	ImageURL    string
	Amount      *decimal.Decimal
}

// MintResult is the minter's unsigned creation transaction and the address
// the token will have once it lands.
type MintResult struct {
	Transaction string
	Mint        solana.PublicKey
}

// Client calls the token minter service.
type Client struct {
	client  *upstream.Client
	baseURL string
	apiKey  string
}

func NewClient(httpClient *http.Client, cfg models.MinterConfig, maxBodyBytes int64) *Client {
	return &Client{
		client:  upstream.NewClient(txerrors.UpstreamMinter, httpClient, maxBodyBytes),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

type mintRequest struct {
	User        string      `json:"user"`
	Name        string      `json:"name"`
	Symbol      string      `json:"symbol"`
	Description string      `json:"description"`
	ImageURL    string      `json:"imageUrl"`
	Amount      json.Number `json:"amount,omitempty"`
}

type mintResponse struct {
	Tx   string `json:"tx"`
	Mint string `json:"mint"`
}

// Mint asks the minter for a creation transaction.
func (c *Client) Mint(ctx context.Context, req MintRequest) (*MintResult, error) {
	const op = "minter.Mint"

	body := mintRequest{
		User:        req.User.String(),
		Name:        req.Name,
		Symbol:      req.Symbol,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}
	if req.Amount != nil {
		body.Amount = json.Number(req.Amount.String())
	}

	zap.L().Info("Requesting token creation",
		zap.String("user", req.User.String()),
		zap.String("symbol", req.Symbol))

	resp, err := c.client.Do(ctx, http.MethodPost, c.baseURL+"/mint", map[string]string{"x-api-key": c.apiKey}, body)
	if err != nil {
		return nil, err
	}
	if err := c.client.StatusError(op, resp); err != nil {
		return nil, err
	}

	var out mintResponse
	if err := c.client.Decode(op, resp, &out); err != nil {
		return nil, err
	}
	if out.Tx == "" {
		if msg := upstream.ErrorMessage(resp.Body); msg != "" {
			return nil, txerrors.Rejected(txerrors.UpstreamMinter, op, msg)
		}
		return nil, c.client.Malformed(op, "no transaction in response")
	}
	mint, err := solana.PublicKeyFromBase58(out.Mint)
	if err != nil {
		return nil, c.client.Malformed(op, "mint is not a valid address")
	}

	zap.L().Info("Creation transaction received", zap.String("mint", mint.String()))
	return &MintResult{Transaction: out.Tx, Mint: mint}, nil
}
