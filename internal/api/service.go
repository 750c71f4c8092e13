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

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/The-x-35/vibegame-sub000/internal/metrics"
	"github.com/The-x-35/vibegame-sub000/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Pipeline is the transaction orchestration the HTTP layer exposes.
type Pipeline interface {
	Launch(ctx context.Context, id models.Identity, meta models.LaunchMetadata) (*models.LaunchResult, error)
	Buy(ctx context.Context, id models.Identity, req models.SwapRequest) (*models.SettlementResult, error)
	Sell(ctx context.Context, id models.Identity, req models.SwapRequest) (*models.SettlementResult, error)
	SignAndBroadcast(ctx context.Context, id models.Identity, req models.SignAndBroadcastRequest) (*models.SettlementResult, error)
	PayTreasury(ctx context.Context, id models.Identity, req models.TreasuryTransferRequest) (*models.SettlementResult, error)
	Status(ctx context.Context, transactionId string) (*models.TransactionStatus, error)
}

// Verifier turns a bearer credential into a caller identity.
type Verifier interface {
	Verify(token string) (models.Identity, error)
}

// HealthCheck is one dependency probed by /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server is the HTTP front of the pipeline
type Server struct {
	pipeline Pipeline
	verifier Verifier
	checks   []HealthCheck
	limiter  *RateLimiter
	origins  []string
}

func NewServer(p Pipeline, v Verifier, cfg models.ServerConfig, checks ...HealthCheck) *Server {
	return &Server{
		pipeline: p,
		verifier: v,
		checks:   checks,
		limiter:  NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		origins:  cfg.AllowedOrigins,
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(metrics.InstrumentHandler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(api chi.Router) {
		api.Use(s.authenticate)
		api.Use(s.limiter.Handler)

		api.Post("/tokens/launch", s.handleLaunch)
		api.Post("/swaps/buy", s.handleBuy)
		api.Post("/swaps/sell", s.handleSell)
		api.Post("/transactions/sign-and-broadcast", s.handleSignAndBroadcast)
		api.Get("/transactions/{id}", s.handleStatus)
		api.Post("/treasury/transfer", s.handlePayTreasury)
	})

	return r
}

// HealthCheck runs every registered dependency check.
func (s *Server) HealthCheck(ctx context.Context) error {
	for _, c := range s.checks {
		if err := c.Check(ctx); err != nil {
			return fmt.Errorf("%s health check failed: %w", c.Name, err)
		}
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := s.HealthCheck(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
