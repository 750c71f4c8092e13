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

package mint

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/The-x-35/vibegame-sub000/internal/ledger"
	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/txerrors"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SupplySource reads mint supply from the ledger.
type SupplySource interface {
	GetTokenSupply(ctx context.Context, mint solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenSupplyResult, error)
}

// Metadata is what the ledger reports about a mint. Supply is in raw units.
type Metadata struct {
	Mint     solana.PublicKey
	Decimals uint8
	Supply   decimal.Decimal
}

// Resolver looks up mint precision. Decimals never change for a mint, so
// they are cached; supply is always read fresh.
type Resolver struct {
	source  SupplySource
	symbols map[string]solana.PublicKey
	known   sync.Map // solana.PublicKey -> uint8
}

func NewResolver(source SupplySource, registry []models.MintInfo) (*Resolver, error) {
	r := &Resolver{source: source, symbols: make(map[string]solana.PublicKey)}
	for _, m := range registry {
		pk, err := solana.PublicKeyFromBase58(m.Address)
		if err != nil {
			return nil, fmt.Errorf("invalid mint address for %s: %w", m.Symbol, err)
		}
		if m.Symbol != "" {
			r.symbols[strings.ToUpper(m.Symbol)] = pk
		}
		r.known.Store(pk, m.Decimals)
	}
	return r, nil
}

// Parse turns a mint address or registry symbol into a public key.
func (r *Resolver) Parse(id string) (solana.PublicKey, error) {
	id = strings.TrimSpace(id)
	if pk, ok := r.symbols[strings.ToUpper(id)]; ok {
		return pk, nil
	}
	pk, err := solana.PublicKeyFromBase58(id)
	if err != nil || pk.IsZero() {
		return solana.PublicKey{}, txerrors.New(txerrors.KindNotFound, "mint.Resolve", fmt.Sprintf("%q is not a valid mint", id))
	}
	return pk, nil
}

// Resolve fetches decimals and supply for a mint at confirmed commitment.
func (r *Resolver) Resolve(ctx context.Context, id string) (Metadata, error) {
	pk, err := r.Parse(id)
	if err != nil {
		return Metadata{}, err
	}

	out, err := r.source.GetTokenSupply(ctx, pk, ledger.Commitment)
	if err != nil {
		if ledger.IsAccountMissing(err) {
			return Metadata{}, txerrors.Wrap(txerrors.KindNotFound, "mint.Resolve", fmt.Sprintf("mint %s not found", pk), err)
		}
		return Metadata{}, ledger.ClassifyError("mint.Resolve", err)
	}
	if out == nil || out.Value == nil {
		return Metadata{}, txerrors.New(txerrors.KindNotFound, "mint.Resolve", fmt.Sprintf("mint %s not found", pk))
	}

	supply, err := decimal.NewFromString(out.Value.Amount)
	if err != nil {
		return Metadata{}, txerrors.Unavailable(txerrors.UpstreamLedger, "mint.Resolve", "malformed supply", err)
	}

	r.known.Store(pk, out.Value.Decimals)
	zap.L().Debug("Resolved mint",
		zap.String("mint", pk.String()),
		zap.Uint8("decimals", out.Value.Decimals),
		zap.String("supply", supply.String()))

	return Metadata{Mint: pk, Decimals: out.Value.Decimals, Supply: supply}, nil
}

// Decimals returns the precision of a mint, from the registry or cache when
// possible.
func (r *Resolver) Decimals(ctx context.Context, id string) (solana.PublicKey, uint8, error) {
	pk, err := r.Parse(id)
	if err != nil {
		return solana.PublicKey{}, 0, err
	}
	if d, ok := r.known.Load(pk); ok {
		return pk, d.(uint8), nil
	}
	md, err := r.Resolve(ctx, pk.String())
	if err != nil {
		return solana.PublicKey{}, 0, err
	}
	return pk, md.Decimals, nil
}
