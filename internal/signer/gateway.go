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

package signer

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/The-x-35/vibegame-sub000/internal/payload"
	"github.com/The-x-35/vibegame-sub000/internal/txerrors"
	"github.com/The-x-35/vibegame-sub000/internal/upstream"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// OperationSignTransaction is the only operation the pipeline requests.
const OperationSignTransaction = "signTransaction"

// ArtifactKind tags which shape the signer answered with.
type ArtifactKind int

const (
	// ArtifactSignedTransaction is the full signed wire transaction. This is
	// the contract the pipeline is built against.
	ArtifactSignedTransaction ArtifactKind = iota + 1
	// ArtifactSignature is a detached 64-byte fee payer signature.
	ArtifactSignature
	// ArtifactTransactionID means the signer broadcast the transaction itself
	// and only reported its id.
	ArtifactTransactionID
)

func (k ArtifactKind) String() string {
	switch k {
	case ArtifactSignedTransaction:
		return "signed-transaction"
	case ArtifactSignature:
		return "signature"
	case ArtifactTransactionID:
		return "transaction-id"
	}
	return fmt.Sprintf("artifact(%d)", int(k))
}

// Artifact is the signer's result. Exactly one of Transaction or Signature
// is meaningful, selected by Kind.
type Artifact struct {
	Kind        ArtifactKind
	Transaction []byte
	Signature   solana.Signature
}

// Request is one signing call. It is never persisted and the credential is
// never logged.
type Request struct {
	Operation  string
	Payload    payload.Encoded
	Credential string
}

// Gateway delegates signing to the custodial signer.
type Gateway struct {
	client  *upstream.Client
	signURL string
}

func NewGateway(httpClient *http.Client, signURL string, maxBodyBytes int64) *Gateway {
	return &Gateway{
		client:  upstream.NewClient(txerrors.UpstreamSigner, httpClient, maxBodyBytes).ForwardsCallerCredential(),
		signURL: signURL,
	}
}

type signRequest struct {
	Operation string `json:"operation"`
	Payload   string `json:"payload"`
}

type signResponse struct {
	Signature         *string `json:"signature"`
	SignedTransaction *string `json:"signedTransaction"`
	Txid              *string `json:"txid"`
	Hash              *string `json:"hash"`
	Message           *string `json:"message"`
}

// Sign forwards the payload and the caller's credential to the signer.
func (g *Gateway) Sign(ctx context.Context, req Request) (Artifact, error) {
	const op = "signer.Sign"

	if strings.TrimSpace(req.Credential) == "" {
		e := txerrors.New(txerrors.KindUnauthenticated, op, "missing caller credential")
		e.Upstream = txerrors.UpstreamSigner
		return Artifact{}, e
	}
	if req.Operation == "" {
		req.Operation = OperationSignTransaction
	}

	hexPayload, err := toHex(req.Payload)
	if err != nil {
		return Artifact{}, txerrors.Wrap(txerrors.KindMalformedTransaction, op, "invalid payload", err)
	}

	zap.L().Info("Requesting signature",
		zap.String("operation", req.Operation),
		zap.String("payload_prefix", payload.Prefix(hexPayload)),
		zap.Int("payload_len", len(hexPayload)))

	resp, err := g.client.Do(ctx, http.MethodPost, g.signURL,
		map[string]string{"Authorization": "Bearer " + req.Credential},
		signRequest{Operation: req.Operation, Payload: hexPayload})
	if err != nil {
		return Artifact{}, err
	}
	if err := g.client.StatusError(op, resp); err != nil {
		zap.L().Warn("Signer refused request",
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return Artifact{}, err
	}

	var body signResponse
	if err := g.client.Decode(op, resp, &body); err != nil {
		return Artifact{}, err
	}

	artifact, err := g.classify(op, body)
	if err != nil {
		return Artifact{}, err
	}

	zap.L().Info("Signer responded", zap.String("artifact", artifact.Kind.String()))
	return artifact, nil
}

// classify maps a response onto exactly one artifact. Responses with more
// than one result field are refused rather than guessed at.
func (g *Gateway) classify(op string, body signResponse) (Artifact, error) {
	present := 0
	for _, f := range []*string{body.Signature, body.SignedTransaction, body.Txid, body.Hash} {
		if f != nil && *f != "" {
			present++
		}
	}

	switch {
	case present == 0 && body.Message != nil && *body.Message != "":
		return Artifact{}, txerrors.Rejected(txerrors.UpstreamSigner, op, *body.Message)
	case present == 0:
		return Artifact{}, g.client.Malformed(op, "no signature in response")
	case present > 1:
		return Artifact{}, g.client.Malformed(op, "conflicting result fields in response")
	}

	switch {
	case body.Signature != nil && *body.Signature != "":
		return g.classifySignature(op, *body.Signature)
	case body.SignedTransaction != nil && *body.SignedTransaction != "":
		raw, err := payload.DecodeBase64(*body.SignedTransaction)
		if err != nil {
			return Artifact{}, g.client.Malformed(op, "signedTransaction is not base64")
		}
		deviation("signedTransaction", "base64 signed transaction")
		return Artifact{Kind: ArtifactSignedTransaction, Transaction: raw}, nil
	case body.Txid != nil && *body.Txid != "":
		return g.transactionID(op, "txid", *body.Txid)
	default:
		return g.transactionID(op, "hash", *body.Hash)
	}
}

func (g *Gateway) classifySignature(op, value string) (Artifact, error) {
	if raw, err := hex.DecodeString(strings.TrimPrefix(value, "0x")); err == nil {
		switch {
		case len(raw) == solana.SignatureLength:
			deviation("signature", "detached 64-byte signature")
			return Artifact{Kind: ArtifactSignature, Signature: solana.SignatureFromBytes(raw)}, nil
		case len(raw) > solana.SignatureLength:
			return Artifact{Kind: ArtifactSignedTransaction, Transaction: raw}, nil
		}
	}
	return g.transactionID(op, "signature", value)
}

func (g *Gateway) transactionID(op, field, value string) (Artifact, error) {
	sig, err := solana.SignatureFromBase58(value)
	if err != nil {
		return Artifact{}, g.client.Malformed(op, field+" is neither hex nor a base58 transaction id")
	}
	deviation(field, "transaction id, signer broadcast the transaction itself")
	return Artifact{Kind: ArtifactTransactionID, Signature: sig}, nil
}

// deviation logs a response shape other than the full signed transaction.
func deviation(field, shape string) {
	zap.L().Warn("Signer response deviates from the signed transaction contract",
		zap.String("field", field),
		zap.String("shape", shape))
}

func toHex(p payload.Encoded) (string, error) {
	if p.Encoding == payload.Hex {
		if _, err := payload.DecodeHex(p.Text); err != nil {
			return "", err
		}
		return strings.TrimPrefix(p.Text, "0x"), nil
	}
	raw, err := payload.Decode(p)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
