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

package txerrors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is a stable category for programmatic error handling. Callers branch
// on Kind and Advice, never on Error() strings.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindUnauthenticated     Kind = "unauthenticated"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindUpstreamRejected    Kind = "upstream_rejected"
	KindOnChain             Kind = "on_chain"
	KindConfirmationTimeout Kind = "confirmation_timeout"

	// Component-level kinds. They are reported to callers as validation or
	// upstream errors depending on who supplied the offending input.
	KindNotFound             Kind = "not_found"
	KindMalformedTransaction Kind = "malformed_transaction"
)

// Stage names the pipeline step that produced an error.
type Stage string

const (
	StageValidate Stage = "validate"
	StageBuild    Stage = "build"
	StageSign     Stage = "sign"
	StageSubmit   Stage = "submit"
	StageExecute  Stage = "execute"
	StageConfirm  Stage = "confirm"
	StageRecord   Stage = "record"
)

// Upstream names used in errors and metrics.
const (
	UpstreamSigner     = "signer"
	UpstreamLedger     = "ledger"
	UpstreamAggregator = "aggregator"
	UpstreamMinter     = "minter"
)

// FieldError is one per-field validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the structured error type of the pipeline.
//
// Message is meant for humans. For upstream rejections it is the upstream's
// own text, unmodified.
type Error struct {
	Kind          Kind
	Op            string
	Stage         Stage
	Upstream      string
	Message       string
	Fields        []FieldError
	Signed        bool
	TransactionId string
	Cause         error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if len(e.Fields) > 0 {
		parts := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			parts[i] = f.Field + ": " + f.Message
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, "; "))
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New returns a structured error without a cause.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Message: msg}
}

// Wrap returns a structured error around cause.
func Wrap(kind Kind, op, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: msg, Cause: cause}
}

// Validation returns a field-tagged validation error.
func Validation(op string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Op: op, Stage: StageValidate, Message: "invalid input", Fields: fields}
}

// Field builds a single-field validation error.
func Field(op, field, msg string) *Error {
	return Validation(op, FieldError{Field: field, Message: msg})
}

// Rejected is an explicit refusal by an upstream, carrying its message verbatim.
func Rejected(upstream, op, upstreamMsg string) *Error {
	return &Error{Kind: KindUpstreamRejected, Op: op, Upstream: upstream, Message: upstreamMsg}
}

// Unavailable is a network failure, timeout, 5xx or malformed upstream response.
func Unavailable(upstream, op, msg string, cause error) *Error {
	return &Error{Kind: KindUpstreamUnavailable, Op: op, Upstream: upstream, Message: msg, Cause: cause}
}

// As extracts the structured error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return nil, false
	}
	return e, true
}

// KindOf returns the Kind of a structured error, or "" if err is not one.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsSignerRejected reports an explicit refusal by the custodial signer.
func IsSignerRejected(err error) bool {
	e, ok := As(err)
	return ok && e.Kind == KindUpstreamRejected && e.Upstream == UpstreamSigner
}

// IsSignerUnreachable reports a network-level signer failure.
func IsSignerUnreachable(err error) bool {
	e, ok := As(err)
	return ok && e.Kind == KindUpstreamUnavailable && e.Upstream == UpstreamSigner
}

// At annotates err with the stage it happened in. Plain errors are wrapped as
// upstream-unavailable so nothing leaves the pipeline unclassified.
func At(err error, stage Stage) error {
	if err == nil {
		return nil
	}
	e, ok := As(err)
	if !ok {
		return &Error{Kind: KindUpstreamUnavailable, Stage: stage, Message: "unexpected failure", Cause: err}
	}
	cp := *e
	if cp.Stage == "" {
		cp.Stage = stage
	}
	return &cp
}

// AfterSigning marks err as having happened once a signature already
// existed. txid is the id the signature committed to, if known.
func AfterSigning(err error, txid string) error {
	if err == nil {
		return nil
	}
	e, ok := As(err)
	if !ok {
		e = &Error{Kind: KindUpstreamUnavailable, Message: "unexpected failure", Cause: err}
	}
	cp := *e
	cp.Signed = true
	if cp.TransactionId == "" {
		cp.TransactionId = txid
	}
	return &cp
}

// FromUpstream attributes a component error to the upstream that supplied the
// offending bytes.
func FromUpstream(err error, upstream string) error {
	e, ok := As(err)
	if !ok || e.Upstream != "" {
		return err
	}
	cp := *e
	cp.Upstream = upstream
	return &cp
}
