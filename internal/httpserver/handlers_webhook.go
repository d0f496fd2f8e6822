package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/crewbase/crewbase/internal/webhook"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20 // 1 MiB

func (h *handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	eventName := r.Header.Get("X-GitHub-Event")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		webhookEventsTotal.WithLabelValues(eventName, "read_error").Inc()
		writeError(w, http.StatusBadRequest, "BAD_EVENT", "failed to read request body")
		return
	}
	defer r.Body.Close()

	if err := webhook.VerifySignature(h.secret, body, r.Header.Get("X-Hub-Signature-256")); err != nil {
		webhookEventsTotal.WithLabelValues(eventName, "bad_signature").Inc()
		h.logger.Warn("webhook signature rejected", zap.String("event", eventName))
		h.writeServiceError(w, err)
		return
	}

	evt, err := webhook.ParseEvent(eventName, body)
	if err != nil {
		if errors.Is(err, webhook.ErrUnknownEvent) {
			// Unknown event types are acknowledged so the provider does not
			// retry them forever.
			webhookEventsTotal.WithLabelValues(eventName, "ignored").Inc()
			writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}
		webhookEventsTotal.WithLabelValues(eventName, "bad_payload").Inc()
		h.writeServiceError(w, err)
		return
	}

	if err := h.svc.ProcessEvent(r.Context(), evt); err != nil {
		webhookEventsTotal.WithLabelValues(eventName, "error").Inc()
		h.writeServiceError(w, err)
		return
	}

	webhookEventsTotal.WithLabelValues(eventName, "ok").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}
