package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/The-x-35/vibegame-sub000/internal/ledger"
	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/payload"
	"github.com/The-x-35/vibegame-sub000/internal/txbuilder"
	"github.com/The-x-35/vibegame-sub000/internal/txerrors"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// PayTreasury transfers lamports from the caller to the platform treasury.
// Zero lamports means the configured default amount.
func (s *Service) PayTreasury(ctx context.Context, id models.Identity, req models.TreasuryTransferRequest) (*models.SettlementResult, error) {
	r := s.begin(models.OperationTreasuryTransfer, id)
	txid, err := s.payTreasury(ctx, r, id, req.Lamports)
	if err = r.finish(ctx, err); err != nil {
		return nil, err
	}
	return &models.SettlementResult{OperationId: r.id, Success: true, TransactionId: txid}, nil
}

func (s *Service) payTreasury(ctx context.Context, r *run, id models.Identity, lamports uint64) (string, error) {
	from, err := callerKey(id)
	if err != nil {
		return "", err
	}
	if lamports == 0 {
		lamports = s.defaultLamports
	}

	start := time.Now()
	u, err := s.builder.BuildTransfer(ctx, from, lamports)
	r.observe(txerrors.StageBuild, start)
	if err != nil {
		return "", txerrors.At(err, txerrors.StageBuild)
	}
	r.checkpoint(ctx, models.StageBuilt, "", "", fmt.Sprintf("%d lamports", lamports))

	return s.signAndSettle(ctx, r, u, id.Credential)
}

// SignAndBroadcast signs a caller-built transaction and lands it. The
// transaction must be paid for by the caller alone and is re-anchored before
// signing.
func (s *Service) SignAndBroadcast(ctx context.Context, id models.Identity, req models.SignAndBroadcastRequest) (*models.SettlementResult, error) {
	r := s.begin(models.OperationSignAndBroadcast, id)
	txid, err := s.signAndBroadcast(ctx, r, id, req.Transaction)
	if err = r.finish(ctx, err); err != nil {
		return nil, err
	}
	return &models.SettlementResult{OperationId: r.id, Success: true, TransactionId: txid}, nil
}

func (s *Service) signAndBroadcast(ctx context.Context, r *run, id models.Identity, transactionHex string) (string, error) {
	const op = "pipeline.SignAndBroadcast"

	caller, err := callerKey(id)
	if err != nil {
		return "", err
	}

	raw, err := payload.DecodeHex(transactionHex)
	if err != nil || len(raw) == 0 {
		return "", txerrors.Field(op, "transaction", "must be a hex encoded transaction")
	}
	u, err := txbuilder.Adopt(raw, txbuilder.OriginCaller)
	if err != nil {
		return "", txerrors.At(err, txerrors.StageValidate)
	}
	if !u.FeePayer.Equals(caller) {
		return "", txerrors.Field(op, "transaction", "fee payer must be the caller's wallet")
	}
	if u.Tx.Message.Header.NumRequiredSignatures > 1 {
		return "", txerrors.Field(op, "transaction", "only transactions signed by the caller alone are accepted")
	}

	start := time.Now()
	err = s.builder.Restamp(ctx, u)
	r.observe(txerrors.StageBuild, start)
	if err != nil {
		return "", txerrors.At(err, txerrors.StageBuild)
	}
	r.checkpoint(ctx, models.StageBuilt, "", "", "re-anchored "+u.Anchor.String())

	return s.signAndSettle(ctx, r, u, id.Credential)
}

// signAndSettle is the direct path shared by treasury transfers, sign and
// broadcast, and launches: sign, submit to the ledger, confirm.
func (s *Service) signAndSettle(ctx context.Context, r *run, u *txbuilder.Unsigned, credential string) (string, error) {
	sg, err := s.sign(ctx, r, u, credential)
	if err != nil {
		return "", err
	}
	r.checkpoint(ctx, models.StageSigned, sg.txid.String(), "", sg.kind.String())

	if _, err := s.settle(ctx, r, sg); err != nil {
		return "", err
	}
	return sg.txid.String(), nil
}

// settle submits signed bytes unless the signer already did, then waits for
// the confirmed commitment level.
func (s *Service) settle(ctx context.Context, r *run, sg *signed) (ledger.Confirmation, error) {
	txid := sg.txid.String()

	if !sg.broadcastBySigner() {
		start := time.Now()
		sig, err := s.ledger.Submit(ctx, sg.wire)
		r.observe(txerrors.StageSubmit, start)
		if err != nil {
			// The transaction may still have reached the cluster. The signed
			// checkpoint carries its id for the reconciler.
			return ledger.Confirmation{}, txerrors.AfterSigning(txerrors.At(err, txerrors.StageSubmit), txid)
		}
		if sig != sg.txid {
			zap.L().Warn("Ledger reported a different transaction id",
				zap.String("operation_id", r.id),
				zap.String("expected", txid),
				zap.String("reported", sig.String()))
		}
	}
	r.checkpoint(ctx, models.StageSubmitted, txid, "", "")

	start := time.Now()
	conf, err := s.ledger.Confirm(ctx, sg.txid)
	r.observe(txerrors.StageConfirm, start)
	if err != nil {
		err = txerrors.AfterSigning(txerrors.At(err, txerrors.StageConfirm), txid)
		if txerrors.IsKind(err, txerrors.KindOnChain) {
			r.checkpoint(ctx, models.StageFailed, txid, "", err.Error())
		} else {
			r.checkpoint(ctx, models.StageUnconfirmed, txid, "", err.Error())
		}
		return ledger.Confirmation{}, err
	}

	r.checkpoint(ctx, models.StageConfirmed, txid, "", fmt.Sprintf("%s at slot %d", conf.State, conf.Slot))
	return conf, nil
}

// Status probes a transaction id once without waiting.
func (s *Service) Status(ctx context.Context, transactionId string) (*models.TransactionStatus, error) {
	sig, err := solana.SignatureFromBase58(transactionId)
	if err != nil {
		return nil, txerrors.Field("pipeline.Status", "transactionId", "is not a valid transaction id")
	}

	st, err := s.ledger.Status(ctx, sig)
	if err != nil {
		return nil, err
	}
	return &models.TransactionStatus{
		TransactionId: sig.String(),
		Status:        string(st.State),
		Slot:          st.Slot,
		Error:         st.Err,
	}, nil
}
