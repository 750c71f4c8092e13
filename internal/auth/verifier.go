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

package auth

import (
	"fmt"
	"strings"

	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/txerrors"

	"github.com/gagliardetto/solana-go"
	"github.com/golang-jwt/jwt/v5"
)

const opVerify = "auth.verify"

// Verifier turns a bearer credential into a caller identity. The credential
// itself is kept on the identity so it can be forwarded to the signer.
type Verifier struct {
	secret       []byte
	addressClaim string
	parser       *jwt.Parser
}

func NewVerifier(cfg models.AuthConfig) (*Verifier, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret cannot be empty")
	}
	claim := cfg.AddressClaim
	if claim == "" {
		claim = "walletAddress"
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &Verifier{
		secret:       []byte(cfg.JWTSecret),
		addressClaim: claim,
		parser:       jwt.NewParser(opts...),
	}, nil
}

// Verify validates the token and returns the wallet address it names.
// Every failure is reported as txerrors.KindUnauthenticated.
func (v *Verifier) Verify(token string) (models.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Identity{}, txerrors.New(txerrors.KindUnauthenticated, opVerify, "missing credential")
	}

	claims := jwt.MapClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return models.Identity{}, txerrors.Wrap(txerrors.KindUnauthenticated, opVerify, "invalid credential", err)
	}

	raw, _ := claims[v.addressClaim].(string)
	if raw == "" {
		return models.Identity{}, txerrors.New(txerrors.KindUnauthenticated, opVerify, "credential carries no wallet address")
	}
	address, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return models.Identity{}, txerrors.Wrap(txerrors.KindUnauthenticated, opVerify, "credential wallet address is not a valid public key", err)
	}

	return models.Identity{Address: address.String(), Credential: token}, nil
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
