// Package scm is a read-only client for the source-control provider's REST
// API. It is used to enrich webhook-driven rows; every call is best-effort
// and callers are expected to degrade gracefully when one fails.
package scm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var ErrNotFound = errors.New("resource not found")

// HTTPClient lets tests inject a transport.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL    string
	token      string
	repo       string // "owner/name"
	httpClient HTTPClient
}

func NewClient(baseURL, token, repo string, httpClient HTTPClient) *Client {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		repo:       repo,
		httpClient: httpClient,
	}
}

// PullRequestDetails are the live diff stats for one pull request.
type PullRequestDetails struct {
	Number       int64
	Additions    int
	Deletions    int
	ChangedFiles int
	Mergeable    *bool
}

// GetPullRequest fetches current diff stats for a pull request.
func (c *Client) GetPullRequest(ctx context.Context, number int64) (PullRequestDetails, error) {
	var raw struct {
		Number       int64 `json:"number"`
		Additions    int   `json:"additions"`
		Deletions    int   `json:"deletions"`
		ChangedFiles int   `json:"changed_files"`
		Mergeable    *bool `json:"mergeable"`
	}

	url := fmt.Sprintf("%s/repos/%s/pulls/%d", c.baseURL, c.repo, number)
	if err := c.get(ctx, url, &raw); err != nil {
		return PullRequestDetails{}, err
	}

	return PullRequestDetails{
		Number:       raw.Number,
		Additions:    raw.Additions,
		Deletions:    raw.Deletions,
		ChangedFiles: raw.ChangedFiles,
		Mergeable:    raw.Mergeable,
	}, nil
}

// RequiredApprovals reads the branch protection rule for a branch. Branches
// without protection (or repos where the token cannot see it) report the
// provider's 404, which callers treat as "no requirement configured".
func (c *Client) RequiredApprovals(ctx context.Context, branch string) (int, error) {
	var raw struct {
		RequiredPullRequestReviews struct {
			RequiredApprovingReviewCount int `json:"required_approving_review_count"`
		} `json:"required_pull_request_reviews"`
	}

	url := fmt.Sprintf("%s/repos/%s/branches/%s/protection", c.baseURL, c.repo, branch)
	if err := c.get(ctx, url, &raw); err != nil {
		return 0, err
	}
	return raw.RequiredPullRequestReviews.RequiredApprovingReviewCount, nil
}

// CheckRun is one CI check attached to a commit.
type CheckRun struct {
	Name       string
	Status     string
	Conclusion string
}

// ListCheckRuns fetches the check runs for a commit SHA.
func (c *Client) ListCheckRuns(ctx context.Context, sha string) ([]CheckRun, error) {
	var raw struct {
		CheckRuns []struct {
			Name       string `json:"name"`
			Status     string `json:"status"`
			Conclusion string `json:"conclusion"`
		} `json:"check_runs"`
	}

	url := fmt.Sprintf("%s/repos/%s/commits/%s/check-runs", c.baseURL, c.repo, sha)
	if err := c.get(ctx, url, &raw); err != nil {
		return nil, err
	}

	runs := make([]CheckRun, 0, len(raw.CheckRuns))
	for _, r := range raw.CheckRuns {
		runs = append(runs, CheckRun{Name: r.Name, Status: r.Status, Conclusion: r.Conclusion})
	}
	return runs, nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrNotFound
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("provider request: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}
