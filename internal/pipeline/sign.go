package pipeline

import (
	"context"
	"time"

	"github.com/The-x-35/vibegame-sub000/internal/metrics"
	"github.com/The-x-35/vibegame-sub000/internal/payload"
	"github.com/The-x-35/vibegame-sub000/internal/signer"
	"github.com/The-x-35/vibegame-sub000/internal/txbuilder"
	"github.com/The-x-35/vibegame-sub000/internal/txerrors"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// signed is the outcome of a successful signing step. Wire is nil when the
// signer broadcast the transaction itself.
type signed struct {
	kind signer.ArtifactKind
	wire []byte
	txid solana.Signature
}

func (s *signed) broadcastBySigner() bool {
	return s.kind == signer.ArtifactTransactionID
}

// sign sends u to the custodial signer and turns whichever artifact comes
// back into signed wire bytes for exactly the transaction that was sent.
func (s *Service) sign(ctx context.Context, r *run, u *txbuilder.Unsigned, credential string) (*signed, error) {
	raw, err := u.Bytes()
	if err != nil {
		return nil, txerrors.At(err, txerrors.StageSign)
	}
	enc, err := payload.Encode(raw, payload.Hex)
	if err != nil {
		return nil, txerrors.At(err, txerrors.StageSign)
	}

	start := time.Now()
	art, err := s.signer.Sign(ctx, signer.Request{
		Operation:  signer.OperationSignTransaction,
		Payload:    enc,
		Credential: credential,
	})
	r.observe(txerrors.StageSign, start)
	if err != nil {
		metrics.RecordSignerFailure(signerFailure(err))
		return nil, txerrors.At(err, txerrors.StageSign)
	}
	metrics.RecordArtifact(art.Kind.String())

	switch art.Kind {
	case signer.ArtifactSignedTransaction:
		tx, err := u.VerifySigned(art.Transaction)
		if err != nil {
			return nil, txerrors.At(txerrors.FromUpstream(err, txerrors.UpstreamSigner), txerrors.StageSign)
		}
		return &signed{kind: art.Kind, wire: art.Transaction, txid: tx.Signatures[0]}, nil

	case signer.ArtifactSignature:
		wire, err := u.AttachSignature(art.Signature)
		if err != nil {
			return nil, txerrors.At(txerrors.FromUpstream(err, txerrors.UpstreamSigner), txerrors.StageSign)
		}
		return &signed{kind: art.Kind, wire: wire, txid: art.Signature}, nil

	case signer.ArtifactTransactionID:
		zap.L().Warn("Signer broadcast the transaction itself",
			zap.String("operation_id", r.id),
			zap.String("transaction_id", art.Signature.String()))
		return &signed{kind: art.Kind, txid: art.Signature}, nil
	}

	e := txerrors.New(txerrors.KindMalformedTransaction, "pipeline.sign", "unrecognised signer artifact "+art.Kind.String())
	e.Upstream = txerrors.UpstreamSigner
	return nil, txerrors.At(e, txerrors.StageSign)
}

// signerFailure labels a failed signing call for metrics.
func signerFailure(err error) string {
	switch {
	case txerrors.IsSignerRejected(err):
		return "rejected"
	case txerrors.IsSignerUnreachable(err):
		return "unreachable"
	case txerrors.IsKind(err, txerrors.KindUnauthenticated):
		return "unauthenticated"
	}
	return "other"
}
