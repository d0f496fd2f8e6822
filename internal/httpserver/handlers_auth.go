package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/crewbase/crewbase/internal/session"
)

// buildSession computes the session envelope for a fresh token pair. The
// provider's expires_in caps the configured TTL, never extends it.
func (h *handler) buildSession(user domain.SessionUser, pair session.TokenPair) domain.Session {
	now := h.now().UTC()
	ttl := h.sessionTTL
	if pair.ExpiresIn > 0 && pair.ExpiresIn < ttl {
		ttl = pair.ExpiresIn
	}
	return domain.Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user,
		ExpiresAt:    now.Add(ttl),
		CreatedAt:    now,
	}
}

func (h *handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeValidationError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeValidationError(w, errors.New("email and password are required"))
		return
	}

	user, pair, err := h.identity.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	sess := h.buildSession(user, pair)
	writeJSON(w, http.StatusOK, map[string]any{
		"session": mapSession(sess),
	})
}

func (h *handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
		User         struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeValidationError(w, err)
		return
	}
	if req.RefreshToken == "" {
		writeValidationError(w, errors.New("refresh_token is required"))
		return
	}

	pair, err := h.identity.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	sess := h.buildSession(domain.SessionUser{ID: req.User.ID, Email: req.User.Email}, pair)
	writeJSON(w, http.StatusOK, map[string]any{
		"session": mapSession(sess),
	})
}

func (h *handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		writeValidationError(w, errors.New("bearer token is required"))
		return
	}

	if err := h.identity.SignOut(r.Context(), token); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

func (h *handler) handleHandoffCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Session sessionPayload `json:"session"`
	}
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeValidationError(w, err)
		return
	}
	sess := req.Session.toDomain()
	if sess.AccessToken == "" || sess.RefreshToken == "" || sess.User.ID == "" {
		writeValidationError(w, errors.New("session with tokens and user is required"))
		return
	}

	code, err := h.svc.CreateHandoff(r.Context(), sess)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"code":       code.Code,
		"expires_at": formatTime(code.ExpiresAt),
	})
}

func (h *handler) handleHandoffRedeem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeValidationError(w, err)
		return
	}
	if req.Code == "" {
		writeValidationError(w, errors.New("code is required"))
		return
	}

	sess, err := h.svc.RedeemHandoff(r.Context(), req.Code)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session": mapSession(sess),
	})
}

// sessionPayload is the wire shape of a session in requests.
type sessionPayload struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	User         sessionUserParam `json:"user"`
	ExpiresAt    int64            `json:"expires_at"` // epoch milliseconds
	CreatedAt    int64            `json:"created_at"`
}

type sessionUserParam struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"metadata"`
}

func (p sessionPayload) toDomain() domain.Session {
	return domain.Session{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		User: domain.SessionUser{
			ID:       p.User.ID,
			Email:    p.User.Email,
			Metadata: p.User.Metadata,
		},
		ExpiresAt: unixMilli(p.ExpiresAt),
		CreatedAt: unixMilli(p.CreatedAt),
	}
}

func mapSession(s domain.Session) map[string]any {
	return map[string]any{
		"access_token":  s.AccessToken,
		"refresh_token": s.RefreshToken,
		"user": map[string]any{
			"id":       s.User.ID,
			"email":    s.User.Email,
			"metadata": s.User.Metadata,
		},
		"expires_at": s.ExpiresAt.UnixMilli(),
		"created_at": s.CreatedAt.UnixMilli(),
	}
}
