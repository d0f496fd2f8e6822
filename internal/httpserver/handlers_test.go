package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/crewbase/crewbase/internal/identity"
	"github.com/crewbase/crewbase/internal/repository"
	"github.com/crewbase/crewbase/internal/service"
	"github.com/crewbase/crewbase/internal/session"
	"github.com/crewbase/crewbase/internal/webhook"
)

const testSecret = "topsecret"

// fakeService embeds the interface so each test only overrides the methods it
// exercises; any accidental call elsewhere panics loudly.
type fakeService struct {
	Service

	processEvent   func(ctx context.Context, evt webhook.Event) error
	listPipelines  func(ctx context.Context, filter repository.PipelineFilter) ([]domain.Pipeline, error)
	submitApproval func(ctx context.Context, externalID int64, approver string, action domain.ApprovalAction, comment string) (domain.MergeRequest, error)
	redeemHandoff  func(ctx context.Context, code string) (domain.Session, error)
	createHandoff  func(ctx context.Context, s domain.Session) (domain.HandoffCode, error)
	evaluateFlag   func(ctx context.Context, name, subject string, attrs map[string]string) (bool, error)
}

func (f *fakeService) ProcessEvent(ctx context.Context, evt webhook.Event) error {
	return f.processEvent(ctx, evt)
}

func (f *fakeService) ListPipelines(ctx context.Context, filter repository.PipelineFilter) ([]domain.Pipeline, error) {
	return f.listPipelines(ctx, filter)
}

func (f *fakeService) SubmitApproval(ctx context.Context, externalID int64, approver string, action domain.ApprovalAction, comment string) (domain.MergeRequest, error) {
	return f.submitApproval(ctx, externalID, approver, action, comment)
}

func (f *fakeService) RedeemHandoff(ctx context.Context, code string) (domain.Session, error) {
	return f.redeemHandoff(ctx, code)
}

func (f *fakeService) CreateHandoff(ctx context.Context, s domain.Session) (domain.HandoffCode, error) {
	return f.createHandoff(ctx, s)
}

func (f *fakeService) EvaluateFeatureFlag(ctx context.Context, name, subject string, attrs map[string]string) (bool, error) {
	return f.evaluateFlag(ctx, name, subject, attrs)
}

type fakeIdentity struct {
	signIn  func(ctx context.Context, email, password string) (domain.SessionUser, session.TokenPair, error)
	refresh func(ctx context.Context, refreshToken string) (session.TokenPair, error)
	signOut func(ctx context.Context, accessToken string) error
}

func (f *fakeIdentity) SignIn(ctx context.Context, email, password string) (domain.SessionUser, session.TokenPair, error) {
	return f.signIn(ctx, email, password)
}

func (f *fakeIdentity) Refresh(ctx context.Context, refreshToken string) (session.TokenPair, error) {
	return f.refresh(ctx, refreshToken)
}

func (f *fakeIdentity) SignOut(ctx context.Context, accessToken string) error {
	return f.signOut(ctx, accessToken)
}

func newTestRouter(svc Service, identity Identity) http.Handler {
	return newRouter(zap.NewNop(), svc, identity, Options{
		WebhookSecret: testSecret,
		SessionTTL:    time.Hour,
	})
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&fakeService{}, &fakeIdentity{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	called := false
	svc := &fakeService{processEvent: func(context.Context, webhook.Event) error {
		called = true
		return nil
	}}
	r := newTestRouter(svc, &fakeIdentity{})

	body := []byte(`{"ref":"refs/heads/main","after":"abc123"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewReader(body))
	req.Header.Set("X-GitHub-Event", "push")
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called, "handler must not process unsigned events")
	assert.Contains(t, rec.Body.String(), "BAD_SIGNATURE")
}

func TestWebhookMissingSignatureHeader(t *testing.T) {
	r := newTestRouter(&fakeService{}, &fakeIdentity{})

	body := []byte(`{"ref":"refs/heads/main","after":"abc123"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewReader(body))
	req.Header.Set("X-GitHub-Event", "push")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookProcessesSignedPush(t *testing.T) {
	var got webhook.Event
	svc := &fakeService{processEvent: func(_ context.Context, evt webhook.Event) error {
		got = evt
		return nil
	}}
	r := newTestRouter(svc, &fakeIdentity{})

	body := []byte(`{"ref":"refs/heads/main","after":"abc123","pusher":{"name":"ada"}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewReader(body))
	req.Header.Set("X-GitHub-Event", "push")
	req.Header.Set("X-Hub-Signature-256", webhook.Sign(testSecret, body))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	push, ok := got.(webhook.PushEvent)
	require.True(t, ok)
	assert.Equal(t, "refs/heads/main", push.Ref)
	assert.Equal(t, "abc123", push.After)
}

func TestWebhookIgnoresUnknownEvent(t *testing.T) {
	r := newTestRouter(&fakeService{}, &fakeIdentity{})

	body := []byte(`{"zen":"Design for failure."}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewReader(body))
	req.Header.Set("X-GitHub-Event", "ping")
	req.Header.Set("X-Hub-Signature-256", webhook.Sign(testSecret, body))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")
}

func TestLogin(t *testing.T) {
	id := &fakeIdentity{
		signIn: func(_ context.Context, email, password string) (domain.SessionUser, session.TokenPair, error) {
			require.Equal(t, "ada@example.com", email)
			require.Equal(t, "hunter2", password)
			return domain.SessionUser{ID: "u1", Email: email},
				session.TokenPair{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 30 * time.Minute},
				nil
		},
	}
	r := newTestRouter(&fakeService{}, id)

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"ada@example.com","password":"hunter2"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Session struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
			ExpiresAt    int64  `json:"expires_at"`
			User         struct {
				ID string `json:"id"`
			} `json:"user"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "at", resp.Session.AccessToken)
	assert.Equal(t, "rt", resp.Session.RefreshToken)
	assert.Equal(t, "u1", resp.Session.User.ID)
	assert.Greater(t, resp.Session.ExpiresAt, time.Now().UnixMilli())
}

func TestLoginBadCredentials(t *testing.T) {
	id := &fakeIdentity{
		signIn: func(context.Context, string, string) (domain.SessionUser, session.TokenPair, error) {
			return domain.SessionUser{}, session.TokenPair{}, fmt.Errorf("wrap: %w", identity.ErrInvalidCredentials)
		},
	}
	r := newTestRouter(&fakeService{}, id)

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"ada@example.com","password":"wrong"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_CREDENTIALS")
}

func TestHandoffRedeemInvalid(t *testing.T) {
	svc := &fakeService{
		redeemHandoff: func(context.Context, string) (domain.Session, error) {
			return domain.Session{}, service.ErrHandoffInvalid
		},
	}
	r := newTestRouter(svc, &fakeIdentity{})

	req := httptest.NewRequest(http.MethodPost, "/auth/handoff/redeem",
		strings.NewReader(`{"code":"nope"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "HANDOFF_INVALID")
}

func TestHandoffRoundTrip(t *testing.T) {
	expires := time.Now().Add(time.Minute).UTC().Truncate(time.Second)
	svc := &fakeService{
		createHandoff: func(_ context.Context, s domain.Session) (domain.HandoffCode, error) {
			require.Equal(t, "at", s.AccessToken)
			return domain.HandoffCode{Code: "c0de", Session: s, ExpiresAt: expires}, nil
		},
	}
	r := newTestRouter(svc, &fakeIdentity{})

	payload := `{"session":{"access_token":"at","refresh_token":"rt","user":{"id":"u1","email":"a@b.c"},"expires_at":` +
		fmt.Sprint(time.Now().Add(time.Hour).UnixMilli()) + `,"created_at":` + fmt.Sprint(time.Now().UnixMilli()) + `}}`
	req := httptest.NewRequest(http.MethodPost, "/auth/handoff", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"c0de"`)
}

func TestPipelineListPassesFilter(t *testing.T) {
	svc := &fakeService{
		listPipelines: func(_ context.Context, filter repository.PipelineFilter) ([]domain.Pipeline, error) {
			assert.Equal(t, domain.PipelineStatusRunning, filter.Status)
			assert.Equal(t, domain.EnvironmentProduction, filter.Environment)
			assert.Equal(t, 5, filter.Limit)
			return []domain.Pipeline{{
				ID:        "p1",
				Branch:    "main",
				CommitSHA: "abc",
				Status:    domain.PipelineStatusRunning,
				StartedAt: time.Now(),
			}}, nil
		},
	}
	r := newTestRouter(svc, &fakeIdentity{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pipelines?status=running&environment=production&limit=5", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"p1"`)
}

func TestMergeRequestApprovalConflict(t *testing.T) {
	svc := &fakeService{
		submitApproval: func(_ context.Context, externalID int64, approver string, action domain.ApprovalAction, _ string) (domain.MergeRequest, error) {
			assert.Equal(t, int64(42), externalID)
			assert.Equal(t, "felix", approver)
			assert.Equal(t, domain.ApprovalActionApprove, action)
			return domain.MergeRequest{}, service.ErrDuplicateApproval
		},
	}
	r := newTestRouter(svc, &fakeIdentity{})

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/merge-requests/42",
		strings.NewReader(`{"action":"approve","approver":"felix"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "DUPLICATE_APPROVAL")
}

func TestMergeRequestApprovalBadAction(t *testing.T) {
	r := newTestRouter(&fakeService{}, &fakeIdentity{})

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/merge-requests/42",
		strings.NewReader(`{"action":"ship-it","approver":"felix"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMergeRequestNonNumericPath(t *testing.T) {
	r := newTestRouter(&fakeService{}, &fakeIdentity{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/merge-requests/forty-two", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFlagEvaluate(t *testing.T) {
	svc := &fakeService{
		evaluateFlag: func(_ context.Context, name, subject string, attrs map[string]string) (bool, error) {
			assert.Equal(t, "new-pipeline-view", name)
			assert.Equal(t, "u1", subject)
			assert.Equal(t, "Engineering", attrs["department"])
			return true, nil
		},
	}
	r := newTestRouter(svc, &fakeIdentity{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/feature-flags/new-pipeline-view/evaluate",
		strings.NewReader(`{"subject":"u1","attributes":{"department":"Engineering"}}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"enabled":true`)
}

func TestRejectsUnknownJSONFields(t *testing.T) {
	r := newTestRouter(&fakeService{}, &fakeIdentity{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"a@b.c","password":"x","surprise":true}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
