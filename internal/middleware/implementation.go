package middleware

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/fhiba/2025Q2-G4/internal/adapter/utils"
	"github.com/fhiba/2025Q2-G4/internal/config"
)

// claim names that identify the caller, in order of preference
var ownerClaims = []string{"cognito:username", "email", "sub"}

func injectTrace(re requestResponseStruct) requestResponseStruct {
	req := re.req
	if req == nil {
		//this is a bad request
		re.badRequest.httpCode = http.StatusBadRequest
		re.badRequest.errorMessage = "request is empty"
		re.badRequest.isBadRequest = true
		return re
	}
	trace := req.Header.Get("X-Trace-Id")
	if trace == "" {
		trace = utils.GetNewUUID()
	}
	re.logger = re.logger.With("traceId", trace)
	ctx := context.WithValue(req.Context(), config.TRACE_ID_KEY, trace)
	req.Header.Set("X-Trace-Id", trace)
	re.writer.Header().Set("X-Trace-Id", trace)
	re.req = req.WithContext(ctx)
	return re
}

// identify puts the caller's owner id in the context. The token signature is
// checked by the gateway in front of this service; only the claims are read
// here. The username query parameter is honoured when no token is present.
func identify(re requestResponseStruct) requestResponseStruct {
	owner := OwnerFromBearer(re.req.Header.Get("Authorization"))
	if owner == "" {
		owner = re.req.URL.Query().Get("username")
	}
	if owner == "" {
		return re
	}
	re.logger = re.logger.With("ownerId", owner)
	re.req = re.req.WithContext(context.WithValue(re.req.Context(), config.OWNER_ID_KEY, owner))
	return re
}

// OwnerFromBearer returns the first non-empty identity claim of a bearer JWT.
func OwnerFromBearer(authHeader string) string {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return ""
	}
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 {
		return ""
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return ""
	}
	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return ""
	}
	for _, name := range ownerClaims {
		if v, ok := claims[name].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func rateLimiter(re requestResponseStruct) requestResponseStruct {
	ip, _, err := net.SplitHostPort(re.req.RemoteAddr)
	if err != nil {
		ip = re.req.RemoteAddr
	}

	if !limiterInstance.GetLimiter(ip).Allow() {
		re.logger.Error("Too many requests", "ip", ip)
		re.badRequest = failureStruct{
			isBadRequest: true,
			httpCode:     http.StatusTooManyRequests,
			errorMessage: "rate limit exceeded",
		}
	}
	return re
}
