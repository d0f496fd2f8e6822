package scm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPullRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/hrms/pulls/42", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"number":42,"additions":10,"deletions":2,"changed_files":3,"mergeable":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", "acme/hrms", nil)
	pr, err := c.GetPullRequest(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, int64(42), pr.Number)
	assert.Equal(t, 10, pr.Additions)
	require.NotNil(t, pr.Mergeable)
	assert.True(t, *pr.Mergeable)
}

func TestRequiredApprovals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/hrms/branches/main/protection", r.URL.Path)
		_, _ = w.Write([]byte(`{"required_pull_request_reviews":{"required_approving_review_count":2}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "acme/hrms", nil)
	n, err := c.RequiredApprovals(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUnprotectedBranchIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "acme/hrms", nil)
	_, err := c.RequiredApprovals(context.Background(), "feature/x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListCheckRuns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/hrms/commits/abc123/check-runs", r.URL.Path)
		_, _ = w.Write([]byte(`{"check_runs":[{"name":"lint","status":"completed","conclusion":"success"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "acme/hrms", nil)
	runs, err := c.ListCheckRuns(context.Background(), "abc123")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "lint", runs[0].Name)
}
