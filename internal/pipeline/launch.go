package pipeline

import (
	"context"
	"time"

	"github.com/The-x-35/vibegame-sub000/internal/launch"
	"github.com/The-x-35/vibegame-sub000/internal/minter"
	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/txbuilder"
	"github.com/The-x-35/vibegame-sub000/internal/txerrors"

	"go.uber.org/zap"
)

// Launch creates a token described by meta for the caller. The creation
// transaction comes from the minter, is signed by the custodial signer,
// landed through the ledger and finally recorded.
func (s *Service) Launch(ctx context.Context, id models.Identity, meta models.LaunchMetadata) (*models.LaunchResult, error) {
	r := s.begin(models.OperationLaunch, id)
	result, err := s.launch(ctx, r, id, meta)
	if err = r.finish(ctx, err); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) launch(ctx context.Context, r *run, id models.Identity, meta models.LaunchMetadata) (*models.LaunchResult, error) {
	const op = "pipeline.Launch"

	creator, err := callerKey(id)
	if err != nil {
		return nil, err
	}

	meta = launch.Normalize(meta)
	if err := launch.Validate(meta); err != nil {
		return nil, err
	}

	start := time.Now()
	minted, err := s.minter.Mint(ctx, minter.MintRequest{
		User:        creator,
		Name:        meta.Name,
		Symbol:      meta.TokenTicker,
		Description: meta.Description,
		ImageURL:    meta.Image,
		Amount:      meta.InitialBuy,
	})
	if err != nil {
		r.observe(txerrors.StageBuild, start)
		return nil, txerrors.At(err, txerrors.StageBuild)
	}
	u, err := txbuilder.AdoptBase64(minted.Transaction, txbuilder.OriginMinter)
	r.observe(txerrors.StageBuild, start)
	if err != nil {
		return nil, txerrors.At(txerrors.FromUpstream(err, txerrors.UpstreamMinter), txerrors.StageBuild)
	}
	if !u.FeePayer.Equals(creator) {
		e := txerrors.New(txerrors.KindMalformedTransaction, op, "creation transaction is not paid by the creator")
		e.Upstream = txerrors.UpstreamMinter
		return nil, txerrors.At(e, txerrors.StageBuild)
	}
	r.checkpoint(ctx, models.StageBuilt, "", "", "token "+minted.Mint.String())

	txid, err := s.signAndSettle(ctx, r, u, id.Credential)
	if err != nil {
		return nil, err
	}

	result := &models.LaunchResult{
		OperationId:  r.id,
		TokenAddress: minted.Mint.String(),
		Tx:           txid,
	}

	err = s.launches.RecordLaunch(context.WithoutCancel(ctx), models.LaunchRecord{
		OperationId:   r.id,
		Wallet:        creator.String(),
		TokenAddress:  result.TokenAddress,
		TransactionId: txid,
		Name:          meta.Name,
		Ticker:        meta.TokenTicker,
	})
	if err != nil {
		zap.L().Error("Token landed but could not be recorded",
			zap.String("operation_id", r.id),
			zap.String("token_address", result.TokenAddress),
			zap.String("transaction_id", txid),
			zap.String("stage", string(txerrors.StageRecord)),
			zap.Error(err))
		result.Warning = "token created but not recorded; contact support with the operation id"
	}

	return result, nil
}
