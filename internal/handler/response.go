package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/efreitasn/holdingsledger/internal/domain"
)

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // Write error intentionally ignored in response helper
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response with the given status code,
// error code, and human-readable message.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

var errInvalidBody = errors.New("Request body must be valid JSON with Content-Type: application/json")

// ParseJSON decodes the request body as JSON into v. Numbers are kept as
// json.Number and unknown fields are ignored.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return errInvalidBody
	}

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return errInvalidBody
	}

	return nil
}

// writeDomainError maps service errors to responses. Anything unrecognized
// is logged and reported as a 500 without its cause.
func writeDomainError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	var ve *domain.ValidationError
	var insufficient *domain.InsufficientQuantityError
	switch {
	case errors.As(err, &ve):
		WriteError(w, http.StatusBadRequest, "validation_error", ve.Message)
	case errors.Is(err, domain.ErrHoldingNotFound):
		WriteError(w, http.StatusNotFound, "holding_not_found", domain.ErrHoldingNotFound.Error())
	case errors.As(err, &insufficient):
		WriteError(w, http.StatusBadRequest, "insufficient_quantity", insufficient.Error())
	default:
		logger.Error("request failed", zap.String("op", op), zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// number renders a decimal as a bare JSON number.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
