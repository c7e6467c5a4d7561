package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fhiba/2025Q2-G4/internal/adapter"
	"github.com/fhiba/2025Q2-G4/internal/config"
	"github.com/fhiba/2025Q2-G4/internal/domain/invoiceModel"
	"github.com/fhiba/2025Q2-G4/pkg/logger_i"
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// the status line is already out
		logger_i.NewLogger("RequestHandler").Error("Error encoding response", "error", err)
	}
}

func WriteErrorResponse(w http.ResponseWriter, r *http.Request, httpCode int, message string) {
	traceId := ""
	if r != nil {
		traceId = traceFrom(r.Context())
	}
	writeJsonResponse(w, httpCode, adapter.ErrorBody(httpCode, message, traceId))
}

func traceFrom(ctx context.Context) string {
	trace, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return trace
}

func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(config.OWNER_ID_KEY).(string)
	return owner
}

func (h *Handler) validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		h.logger.Warn("context error", "traceId", traceFrom(ctx), "error", ctx.Err())
		return false
	}
	return true
}

// statusForProcessError maps a processing failure onto an HTTP status. Bad
// documents are the caller's problem; everything else may pass on retry.
func statusForProcessError(err error) int {
	switch {
	case errors.Is(err, invoiceModel.ErrTooSmall), errors.Is(err, invoiceModel.ErrMalformed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, invoiceModel.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}
