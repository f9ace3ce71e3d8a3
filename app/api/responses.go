package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"promptiq/m/v2/app/lib"

	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const (
	quotaExceededError   = "quota_exceeded"
	quotaExceededMessage = "🚀 PromptIQ is experiencing incredible demand! Our free tier is at capacity right now. Please try again in a few minutes, or upgrade to Pro to skip the queue and get priority access."
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, body interface{}) {
	payload, err := json.Marshal(body)
	if err != nil {
		log.Errorf("writeJSON: %v", err)
		ctx.SetStatusCode(http.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(payload)
}

func writeErrorMessage(ctx *fasthttp.RequestCtx, status int, message string) {
	writeJSON(ctx, status, errorResponse{Error: message})
}

// writeError maps domain errors to a status and a user-facing message.
// Anything unknown is logged and answered with fallback.
func writeError(ctx *fasthttp.RequestCtx, err error, fallback string) {
	switch {
	case errors.Is(err, lib.ErrMissingFields):
		writeErrorMessage(ctx, http.StatusBadRequest, "Missing required fields")
	case errors.Is(err, lib.ErrInvalidRequest):
		writeJSON(ctx, http.StatusBadRequest, errorResponse{Error: "Invalid request", Message: err.Error()})
	case errors.Is(err, lib.ErrInvalidPlan):
		writeErrorMessage(ctx, http.StatusBadRequest, "Invalid plan")
	case errors.Is(err, lib.ErrInvalidEmail):
		writeErrorMessage(ctx, http.StatusBadRequest, "Invalid email format")
	case errors.Is(err, lib.ErrUserNotFound):
		writeErrorMessage(ctx, http.StatusNotFound, "User not found")
	case errors.Is(err, lib.ErrPromptNotFound):
		writeErrorMessage(ctx, http.StatusNotFound, "Prompt not found")
	case errors.Is(err, lib.ErrLinkNotFound):
		writeErrorMessage(ctx, http.StatusNotFound, "Link not found")
	case errors.Is(err, lib.ErrLinkExpired):
		writeErrorMessage(ctx, http.StatusGone, "Link expired")
	case errors.Is(err, lib.ErrUnauthorized):
		writeErrorMessage(ctx, http.StatusForbidden, "Unauthorized")
	case errors.Is(err, lib.ErrQuotaExceeded):
		writeErrorMessage(ctx, http.StatusForbidden, "Generation limit reached. Please upgrade your plan.")
	case errors.Is(err, lib.ErrProviderQuotaExceeded):
		writeJSON(ctx, http.StatusTooManyRequests, errorResponse{Error: quotaExceededError, Message: quotaExceededMessage})
	default:
		log.Errorf("%s %s: %v", ctx.Method(), ctx.Path(), err)
		writeErrorMessage(ctx, http.StatusInternalServerError, fallback)
	}
}

// decodeBody rejects bodies that are not JSON objects as missing fields.
func decodeBody(ctx *fasthttp.RequestCtx, v interface{}) error {
	if err := json.Unmarshal(ctx.PostBody(), v); err != nil {
		return lib.ErrMissingFields
	}
	return nil
}
