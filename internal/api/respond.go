package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/The-x-35/vibegame-sub000/internal/txerrors"

	"go.uber.org/zap"
)

// maxRequestBytes bounds request bodies. A full launch with an inline image
// is the largest legitimate body.
const maxRequestBytes = 4 << 20

type errorBody struct {
	Kind          string                `json:"kind"`
	Message       string                `json:"message"`
	Advice        string                `json:"advice"`
	Fields        []txerrors.FieldError `json:"fields,omitempty"`
	TransactionId string                `json:"transactionId,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("Failed to encode response", zap.Error(err))
	}
}

// writeError renders err as the public error envelope. The cause chain only
// goes to the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := txerrors.PublicKind(err)
	body := errorBody{
		Kind:    string(kind),
		Message: "internal error",
		Advice:  string(txerrors.Advise(err)),
	}
	if e, ok := txerrors.As(err); ok {
		body.Message = e.Message
		body.Fields = e.Fields
		body.TransactionId = e.TransactionId
	}

	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		zap.L().Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	writeJSON(w, status, errorEnvelope{Error: body})
}

func statusFor(kind txerrors.Kind) int {
	switch kind {
	case txerrors.KindValidation:
		return http.StatusBadRequest
	case txerrors.KindUnauthenticated:
		return http.StatusUnauthorized
	case txerrors.KindUpstreamRejected:
		return http.StatusUnprocessableEntity
	case txerrors.KindOnChain:
		return http.StatusConflict
	case txerrors.KindConfirmationTimeout:
		return http.StatusAccepted
	case txerrors.KindUpstreamUnavailable:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// decodeJSON reads a bounded JSON body. Decoding failures are validation
// errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer body.Close()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return txerrors.Field("api.decode", "body", "request body is empty")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return txerrors.Field("api.decode", "body", "request body is too large")
		}
		return txerrors.Wrap(txerrors.KindValidation, "api.decode", "request body is not valid JSON: "+err.Error(), err)
	}
	return nil
}
