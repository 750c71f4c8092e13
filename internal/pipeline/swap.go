package pipeline

import (
	"context"
	"time"

	"github.com/The-x-35/vibegame-sub000/internal/aggregator"
	"github.com/The-x-35/vibegame-sub000/internal/mint"
	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/payload"
	"github.com/The-x-35/vibegame-sub000/internal/txbuilder"
	"github.com/The-x-35/vibegame-sub000/internal/txerrors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// swapLeg names the two sides of a swap before they are resolved.
type swapLeg struct {
	input  string
	output string
	amount decimal.Decimal
}

// Buy spends amount of the quote currency on the mint in req.
func (s *Service) Buy(ctx context.Context, id models.Identity, req models.SwapRequest) (*models.SettlementResult, error) {
	return s.swap(ctx, models.OperationBuy, id, swapLeg{
		input:  s.quoteMint.String(),
		output: req.Mint,
		amount: req.Amount,
	})
}

// Sell sells amount of the mint in req for the quote currency.
func (s *Service) Sell(ctx context.Context, id models.Identity, req models.SwapRequest) (*models.SettlementResult, error) {
	return s.swap(ctx, models.OperationSell, id, swapLeg{
		input:  req.Mint,
		output: s.quoteMint.String(),
		amount: req.Amount,
	})
}

func (s *Service) swap(ctx context.Context, kind string, id models.Identity, leg swapLeg) (*models.SettlementResult, error) {
	r := s.begin(kind, id)
	txid, err := s.runSwap(ctx, r, id, leg)
	if err = r.finish(ctx, err); err != nil {
		return nil, err
	}
	return &models.SettlementResult{OperationId: r.id, Success: true, TransactionId: txid}, nil
}

// runSwap drives quote, adopt, sign, execute. The aggregator broadcasts the
// swap; the pipeline never submits it to the ledger itself.
func (s *Service) runSwap(ctx context.Context, r *run, id models.Identity, leg swapLeg) (string, error) {
	const op = "pipeline.swap"

	taker, err := callerKey(id)
	if err != nil {
		return "", err
	}

	output, err := s.mints.Parse(leg.output)
	if err != nil {
		return "", txerrors.At(err, txerrors.StageValidate)
	}
	input, decimals, err := s.mints.Decimals(ctx, leg.input)
	if err != nil {
		return "", txerrors.At(err, txerrors.StageValidate)
	}
	if input.Equals(output) {
		return "", txerrors.Field(op, "mint", "input and output mint must differ")
	}
	rawAmount, err := mint.ToRaw(leg.amount, decimals)
	if err != nil {
		return "", txerrors.At(err, txerrors.StageValidate)
	}

	start := time.Now()
	order, err := s.aggregator.Order(ctx, aggregator.OrderRequest{
		InputMint:  input,
		OutputMint: output,
		RawAmount:  rawAmount,
		Taker:      taker,
	})
	if err != nil {
		r.observe(txerrors.StageBuild, start)
		return "", txerrors.At(err, txerrors.StageBuild)
	}
	u, err := txbuilder.AdoptBase64(order.Transaction, txbuilder.OriginAggregator)
	r.observe(txerrors.StageBuild, start)
	if err != nil {
		return "", txerrors.At(txerrors.FromUpstream(err, txerrors.UpstreamAggregator), txerrors.StageBuild)
	}
	if !u.FeePayer.Equals(taker) {
		e := txerrors.New(txerrors.KindMalformedTransaction, op, "order transaction is not paid by the taker")
		e.Upstream = txerrors.UpstreamAggregator
		return "", txerrors.At(e, txerrors.StageBuild)
	}
	r.checkpoint(ctx, models.StageBuilt, "", order.RequestId, leg.amount.String()+" "+input.String()+" -> "+output.String())

	zap.L().Info("Swap quoted",
		zap.String("operation_id", r.id),
		zap.String("request_id", order.RequestId),
		zap.String("input_mint", input.String()),
		zap.String("output_mint", output.String()),
		zap.Uint64("raw_amount", rawAmount),
		zap.Bool("versioned", u.Versioned()))

	sg, err := s.sign(ctx, r, u, id.Credential)
	if err != nil {
		return "", err
	}
	txid := sg.txid.String()

	if sg.broadcastBySigner() {
		// The aggregator never saw this transaction and cannot settle it.
		r.checkpoint(ctx, models.StageSubmitted, txid, "", "broadcast by signer, aggregator bypassed")
		e := txerrors.Rejected(txerrors.UpstreamSigner, op, "signer broadcast the swap itself; the order was not executed by the aggregator")
		return "", txerrors.AfterSigning(txerrors.At(e, txerrors.StageExecute), txid)
	}
	r.checkpoint(ctx, models.StageSigned, txid, "", sg.kind.String())

	enc, err := payload.Encode(sg.wire, payload.Base64)
	if err != nil {
		return "", txerrors.AfterSigning(txerrors.At(err, txerrors.StageExecute), txid)
	}

	start = time.Now()
	exec, err := s.aggregator.Execute(ctx, enc.Text, order.RequestId)
	r.observe(txerrors.StageExecute, start)
	if err != nil {
		err = txerrors.AfterSigning(txerrors.At(err, txerrors.StageExecute), txid)
		if txerrors.IsKind(err, txerrors.KindUpstreamRejected) {
			r.checkpoint(ctx, models.StageFailed, "", "", err.Error())
		} else {
			r.checkpoint(ctx, models.StageUnconfirmed, "", "", err.Error())
		}
		return "", err
	}

	if exec.Signature != txid {
		zap.L().Warn("Aggregator reported a different transaction id",
			zap.String("operation_id", r.id),
			zap.String("expected", txid),
			zap.String("reported", exec.Signature))
	}
	r.checkpoint(ctx, models.StageExecuted, exec.Signature, "", exec.Status)
	return exec.Signature, nil
}
