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

package payload

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// MaxTransactionSize is the largest serialized transaction the ledger accepts.
const MaxTransactionSize = 1232

// logPrefixLen bounds how much of a payload may appear in logs.
const logPrefixLen = 16

// Encoding is a transport-safe text representation of transaction bytes.
type Encoding string

const (
	Hex    Encoding = "hex"
	Base64 Encoding = "base64"
)

// Encoded is an UnsignedTransaction or SignedTransaction on the wire.
type Encoded struct {
	Encoding Encoding
	Text     string
}

// Encode converts raw bytes to the given encoding.
func Encode(raw []byte, enc Encoding) (Encoded, error) {
	switch enc {
	case Hex:
		return Encoded{Encoding: Hex, Text: hex.EncodeToString(raw)}, nil
	case Base64:
		return Encoded{Encoding: Base64, Text: base64.StdEncoding.EncodeToString(raw)}, nil
	}
	return Encoded{}, fmt.Errorf("unsupported encoding %q", enc)
}

// Decode returns the exact bytes that were encoded.
func Decode(e Encoded) ([]byte, error) {
	switch e.Encoding {
	case Hex:
		return DecodeHex(e.Text)
	case Base64:
		return DecodeBase64(e.Text)
	}
	return nil, fmt.Errorf("unsupported encoding %q", e.Encoding)
}

// DecodeHex accepts an optional 0x prefix. Odd lengths are rejected.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	return raw, nil
}

// DecodeBase64 accepts standard padded base64 only.
func DecodeBase64(s string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return raw, nil
}

// Prefix returns a short, log-safe view of a payload.
func Prefix(text string) string {
	if len(text) <= logPrefixLen {
		return text
	}
	return text[:logPrefixLen] + "..."
}

// CheckSize rejects payloads the ledger would refuse outright.
func CheckSize(raw []byte) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty transaction")
	}
	if len(raw) > MaxTransactionSize {
		return fmt.Errorf("transaction is %d bytes, limit is %d", len(raw), MaxTransactionSize)
	}
	return nil
}
