package api

import (
	"net/http"

	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/txerrors"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type buyRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	OutputMint string          `json:"outputMint"`
}

type sellRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	InputMint string          `json:"inputMint"`
}

func caller(r *http.Request) models.Identity {
	id, _ := models.IdentityFromContext(r.Context())
	return id
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	var meta models.LaunchMetadata
	if err := decodeJSON(w, r, &meta); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.pipeline.Launch(r.Context(), caller(r), meta)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.pipeline.Buy(r.Context(), caller(r), models.SwapRequest{Amount: req.Amount, Mint: req.OutputMint})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	var req sellRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.pipeline.Sell(r.Context(), caller(r), models.SwapRequest{Amount: req.Amount, Mint: req.InputMint})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSignAndBroadcast(w http.ResponseWriter, r *http.Request) {
	var req models.SignAndBroadcastRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.pipeline.SignAndBroadcast(r.Context(), caller(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePayTreasury(w http.ResponseWriter, r *http.Request) {
	var req models.TreasuryTransferRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	result, err := s.pipeline.PayTreasury(r.Context(), caller(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	txid := chi.URLParam(r, "id")
	if txid == "" {
		writeError(w, r, txerrors.Field("api.status", "id", "transaction id is required"))
		return
	}

	status, err := s.pipeline.Status(r.Context(), txid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
