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

package txbuilder

import (
	"context"
	"fmt"

	"github.com/The-x-35/vibegame-sub000/internal/ledger"
	"github.com/The-x-35/vibegame-sub000/internal/payload"
	"github.com/The-x-35/vibegame-sub000/internal/txerrors"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// Origin records who produced an unsigned transaction.
type Origin string

const (
	OriginLocal      Origin = "local"
	OriginCaller     Origin = "caller"
	OriginAggregator Origin = "aggregator"
	OriginMinter     Origin = "minter"
)

// AnchorSource hands out recent blockhashes.
type AnchorSource interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
}

// Unsigned is a transaction waiting for the custodial signer.
type Unsigned struct {
	Tx       *solana.Transaction
	Anchor   solana.Hash
	FeePayer solana.PublicKey
	Origin   Origin

	// raw holds the producer's exact bytes for adopted transactions.
	raw []byte
}

// Bytes serializes the transaction, including any signature slots already
// filled by the producer. Adopted transactions are returned byte for byte.
func (u *Unsigned) Bytes() ([]byte, error) {
	if u.raw != nil {
		return append([]byte(nil), u.raw...), nil
	}
	raw, err := u.Tx.MarshalBinary()
	if err != nil {
		return nil, txerrors.Wrap(txerrors.KindMalformedTransaction, "txbuilder.Bytes", "failed to serialize transaction", err)
	}
	return raw, nil
}

// Builder produces unsigned transactions.
type Builder struct {
	anchors  AnchorSource
	treasury solana.PublicKey
}

func NewBuilder(anchors AnchorSource, treasury string) (*Builder, error) {
	pk, err := solana.PublicKeyFromBase58(treasury)
	if err != nil {
		return nil, fmt.Errorf("invalid treasury address %q: %w", treasury, err)
	}
	return &Builder{anchors: anchors, treasury: pk}, nil
}

// Treasury returns the fixed transfer destination.
func (b *Builder) Treasury() solana.PublicKey {
	return b.treasury
}

// BuildTransfer builds a single transfer of lamports from the caller to the
// treasury, paid for by the caller and stamped with a freshly fetched anchor.
func (b *Builder) BuildTransfer(ctx context.Context, from solana.PublicKey, lamports uint64) (*Unsigned, error) {
	if lamports == 0 {
		return nil, txerrors.Field("txbuilder.BuildTransfer", "lamports", "must be greater than zero")
	}

	anchor, err := b.freshAnchor(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, from, b.treasury).Build(),
		},
		anchor,
		solana.TransactionPayer(from),
	)
	if err != nil {
		return nil, txerrors.Wrap(txerrors.KindMalformedTransaction, "txbuilder.BuildTransfer", "failed to build transfer", err)
	}
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)

	zap.L().Debug("Built treasury transfer",
		zap.String("from", from.String()),
		zap.String("treasury", b.treasury.String()),
		zap.Uint64("lamports", lamports),
		zap.String("anchor", anchor.String()))

	return &Unsigned{Tx: tx, Anchor: anchor, FeePayer: from, Origin: OriginLocal}, nil
}

// Restamp replaces the anchor of a transaction the pipeline is allowed to
// re-anchor and clears its signature slots, since any existing signature
// covers the old anchor.
func (b *Builder) Restamp(ctx context.Context, u *Unsigned) error {
	if u.Origin == OriginAggregator || u.Origin == OriginMinter {
		return fmt.Errorf("refusing to re-anchor a %s transaction", u.Origin)
	}
	anchor, err := b.freshAnchor(ctx)
	if err != nil {
		return err
	}
	u.Tx.Message.RecentBlockhash = anchor
	u.Anchor = anchor
	u.raw = nil
	u.Tx.Signatures = make([]solana.Signature, u.Tx.Message.Header.NumRequiredSignatures)
	return nil
}

func (b *Builder) freshAnchor(ctx context.Context) (solana.Hash, error) {
	out, err := b.anchors.GetLatestBlockhash(ctx, ledger.Commitment)
	if err != nil {
		return solana.Hash{}, ledger.ClassifyError("txbuilder.anchor", err)
	}
	if out == nil || out.Value == nil || out.Value.Blockhash.IsZero() {
		return solana.Hash{}, txerrors.Unavailable(txerrors.UpstreamLedger, "txbuilder.anchor", "malformed response: no blockhash", nil)
	}
	return out.Value.Blockhash, nil
}

// Adopt parses an already-built transaction, legacy or versioned, and checks
// it is structurally sound. The transaction is never modified; its anchor
// belongs to whoever built it.
func Adopt(raw []byte, origin Origin) (*Unsigned, error) {
	const op = "txbuilder.Adopt"

	tx, err := parse(op, raw)
	if err != nil {
		return nil, err
	}

	header := tx.Message.Header
	if header.NumRequiredSignatures == 0 {
		return nil, txerrors.New(txerrors.KindMalformedTransaction, op, "transaction requires no signatures")
	}
	if len(tx.Signatures) != int(header.NumRequiredSignatures) {
		return nil, txerrors.New(txerrors.KindMalformedTransaction, op,
			fmt.Sprintf("%d signature slots for %d required signatures", len(tx.Signatures), header.NumRequiredSignatures))
	}
	if len(tx.Message.AccountKeys) < int(header.NumRequiredSignatures) {
		return nil, txerrors.New(txerrors.KindMalformedTransaction, op, "fewer account keys than signers")
	}
	if tx.Message.RecentBlockhash.IsZero() {
		return nil, txerrors.New(txerrors.KindMalformedTransaction, op, "missing recent blockhash")
	}
	if len(tx.Message.Instructions) == 0 {
		return nil, txerrors.New(txerrors.KindMalformedTransaction, op, "transaction has no instructions")
	}

	return &Unsigned{
		Tx:       tx,
		Anchor:   tx.Message.RecentBlockhash,
		FeePayer: tx.Message.AccountKeys[0],
		Origin:   origin,
		raw:      append([]byte(nil), raw...),
	}, nil
}

func parse(op string, raw []byte) (*solana.Transaction, error) {
	if err := payload.CheckSize(raw); err != nil {
		return nil, txerrors.Wrap(txerrors.KindMalformedTransaction, op, "invalid transaction size", err)
	}

	dec := bin.NewBinDecoder(raw)
	tx, err := solana.TransactionFromDecoder(dec)
	if err != nil {
		return nil, txerrors.Wrap(txerrors.KindMalformedTransaction, op, "not a legacy or versioned transaction", err)
	}
	if dec.HasRemaining() {
		return nil, txerrors.New(txerrors.KindMalformedTransaction, op, fmt.Sprintf("%d trailing bytes after transaction", dec.Remaining()))
	}
	return tx, nil
}

// AdoptBase64 adopts a base64 transaction as returned by order and minter APIs.
func AdoptBase64(b64 string, origin Origin) (*Unsigned, error) {
	raw, err := payload.DecodeBase64(b64)
	if err != nil {
		return nil, txerrors.Wrap(txerrors.KindMalformedTransaction, "txbuilder.Adopt", "invalid base64 transaction", err)
	}
	return Adopt(raw, origin)
}

// Versioned reports whether the transaction uses a v0 message.
func (u *Unsigned) Versioned() bool {
	return u.Tx.Message.IsVersioned()
}
