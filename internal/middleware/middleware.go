package middleware

import (
	"net/http"
	"strconv"

	"github.com/fhiba/2025Q2-G4/internal/handlers"
	"github.com/fhiba/2025Q2-G4/internal/metrics"
	"github.com/fhiba/2025Q2-G4/pkg/logger_i"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

// Wrap runs trace injection and caller identification before next.
func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return wrap(next, false)
}

// WrapLimited is Wrap plus the per-IP rate limiter.
func WrapLimited(next http.HandlerFunc) http.HandlerFunc {
	return wrap(next, true)
}

func wrap(next http.HandlerFunc, limited bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec}, limited)

		if handleBadRequest(re) {
			next(rec, re.req)
		}

		metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

func processRequest(re requestResponseStruct, limited bool) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re = injectTrace(re)
	if re.badRequest.isBadRequest {
		return re
	}
	re.logger.Debug("New request received", "method", re.req.Method, "path", re.req.URL.Path)

	if limited {
		re = rateLimiter(re)
		if re.badRequest.isBadRequest {
			return re //stop here if rate limit fails
		}
	}
	return identify(re)
}

// handleBadRequest writes the failure, if any, and reports whether the
// request may continue.
func handleBadRequest(re requestResponseStruct) bool {
	if !re.badRequest.isBadRequest {
		return true
	}
	remote := ""
	if re.req != nil {
		remote = re.req.RemoteAddr
	}
	re.logger.Warn("Bad request", "httpCode", re.badRequest.httpCode, "errorMessage", re.badRequest.errorMessage, "IP", remote)
	handlers.WriteErrorResponse(re.writer, re.req, re.badRequest.httpCode, re.badRequest.errorMessage)
	return false
}
