package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/crewbase/crewbase/internal/identity"
	"github.com/crewbase/crewbase/internal/service"
	"github.com/crewbase/crewbase/internal/webhook"
	"go.uber.org/zap"
)

type handler struct {
	svc        Service
	identity   Identity
	logger     *zap.Logger
	secret     string
	sessionTTL time.Duration
	now        func() time.Time
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) writeServiceError(w http.ResponseWriter, err error) {
	status, code := mapServiceError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("service error", zap.Error(err))
	}
	writeError(w, status, code, err.Error())
}

func mapServiceError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, service.ErrAlreadyExists):
		return http.StatusConflict, "ALREADY_EXISTS"
	case errors.Is(err, service.ErrDuplicateApproval):
		return http.StatusConflict, "DUPLICATE_APPROVAL"
	case errors.Is(err, service.ErrHandoffInvalid):
		return http.StatusUnauthorized, "HANDOFF_INVALID"
	case errors.Is(err, service.ErrInvalidAction):
		return http.StatusBadRequest, "INVALID_ACTION"
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS"
	case errors.Is(err, identity.ErrInvalidToken):
		return http.StatusUnauthorized, "INVALID_TOKEN"
	case errors.Is(err, webhook.ErrUnknownEvent),
		errors.Is(err, webhook.ErrBadPayload):
		return http.StatusBadRequest, "BAD_EVENT"
	case errors.Is(err, webhook.ErrBadSignature):
		return http.StatusUnauthorized, "BAD_SIGNATURE"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return limit
}

func pathInt64(r *http.Request, value string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, errors.New("numeric path parameter expected")
	}
	return n, nil
}

func decodeJSON(_ context.Context, body io.ReadCloser, dst any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected extra JSON input")
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

func writeValidationError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, "VALIDATION", err.Error())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func unixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
