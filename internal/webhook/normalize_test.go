package webhook

import (
	"fmt"
	"testing"
	"time"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func parsePush(t *testing.T, ref string) PushEvent {
	t.Helper()
	body := fmt.Sprintf(`{
		"ref": %q,
		"after": "abc123",
		"head_commit": {"message": "fix bug"},
		"pusher": {"name": "alice"}
	}`, ref)

	evt, err := ParseEvent("push", []byte(body))
	require.NoError(t, err)
	return evt.(PushEvent)
}

func TestNormalizePushCreatesPipelineAndJobs(t *testing.T) {
	changes, err := Normalize(parsePush(t, "refs/heads/feature/x"), testNow)
	require.NoError(t, err)

	require.Len(t, changes.Pipelines, 1)
	p := changes.Pipelines[0]
	assert.Equal(t, "feature/x", p.Branch)
	assert.Equal(t, "abc123", p.CommitSHA)
	assert.Equal(t, "alice", p.Author)
	assert.Equal(t, "fix bug", p.Message)
	assert.Equal(t, domain.PipelineStatusPending, p.Status)
	assert.Equal(t, domain.EnvironmentDevelopment, p.Environment)

	require.Len(t, changes.Jobs, 5)
	names := make([]string, 0, 5)
	for _, job := range changes.Jobs {
		names = append(names, job.Name)
		assert.Equal(t, domain.PipelineStatusPending, job.Status)
		assert.Equal(t, p.ID, job.PipelineID)
	}
	assert.Equal(t, []string{"lint", "unit-test", "build", "integration-test", "deploy"}, names)
}

func TestNormalizePushEnvironmentFromBranch(t *testing.T) {
	tests := []struct {
		ref  string
		want domain.Environment
	}{
		{"refs/heads/main", domain.EnvironmentProduction},
		{"refs/heads/master", domain.EnvironmentProduction},
		{"refs/heads/staging", domain.EnvironmentStaging},
		{"refs/heads/feature/x", domain.EnvironmentDevelopment},
		{"refs/heads/hotfix", domain.EnvironmentDevelopment},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			changes, err := Normalize(parsePush(t, tt.ref), testNow)
			require.NoError(t, err)
			require.Len(t, changes.Pipelines, 1)
			assert.Equal(t, tt.want, changes.Pipelines[0].Environment)
		})
	}
}

func TestNormalizePullRequestOpened(t *testing.T) {
	body := `{
		"action": "opened",
		"number": 42,
		"pull_request": {
			"number": 42,
			"title": "Add leave balances",
			"body": "details",
			"draft": false,
			"additions": 120,
			"deletions": 8,
			"changed_files": 6,
			"mergeable": true,
			"user": {"login": "alice"},
			"head": {"ref": "feature/leave"},
			"base": {"ref": "main"}
		}
	}`

	evt, err := ParseEvent("pull_request", []byte(body))
	require.NoError(t, err)

	changes, err := Normalize(evt, testNow)
	require.NoError(t, err)

	require.Len(t, changes.MergeRequests, 1)
	mr := changes.MergeRequests[0]
	assert.Equal(t, int64(42), mr.ExternalID)
	assert.Equal(t, domain.MergeRequestStatusOpen, mr.Status)
	assert.Equal(t, "alice", mr.Author)
	assert.Equal(t, 120, mr.Additions)
	assert.False(t, mr.Conflicts)
	assert.False(t, mr.ApprovalsSatisfied)

	require.Len(t, changes.Notifications, 1)
	assert.Equal(t, "merge_request_opened", changes.Notifications[0].Kind)
}

func TestNormalizePullRequestDraft(t *testing.T) {
	body := `{
		"action": "opened",
		"number": 7,
		"pull_request": {
			"number": 7,
			"title": "wip",
			"draft": true,
			"user": {"login": "bob"},
			"head": {"ref": "wip"},
			"base": {"ref": "main"}
		}
	}`

	evt, err := ParseEvent("pull_request", []byte(body))
	require.NoError(t, err)

	changes, err := Normalize(evt, testNow)
	require.NoError(t, err)
	require.Len(t, changes.MergeRequests, 1)
	assert.Equal(t, domain.MergeRequestStatusDraft, changes.MergeRequests[0].Status)
}

func TestNormalizePullRequestClosed(t *testing.T) {
	tests := []struct {
		name   string
		merged bool
		want   domain.MergeRequestStatus
	}{
		{"merged", true, domain.MergeRequestStatusMerged},
		{"closed without merge", false, domain.MergeRequestStatusClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := fmt.Sprintf(`{
				"action": "closed",
				"number": 42,
				"pull_request": {"number": 42, "merged": %v, "user": {"login": "alice"}}
			}`, tt.merged)

			evt, err := ParseEvent("pull_request", []byte(body))
			require.NoError(t, err)

			changes, err := Normalize(evt, testNow)
			require.NoError(t, err)
			require.Len(t, changes.StatusUpdates, 1)
			assert.Equal(t, tt.want, changes.StatusUpdates[0].Status)
			assert.Empty(t, changes.MergeRequests)
		})
	}
}

func TestNormalizePullRequestSynchronize(t *testing.T) {
	body := `{
		"action": "synchronize",
		"number": 42,
		"pull_request": {
			"number": 42,
			"additions": 200,
			"deletions": 30,
			"changed_files": 9,
			"mergeable": false,
			"user": {"login": "alice"}
		}
	}`

	evt, err := ParseEvent("pull_request", []byte(body))
	require.NoError(t, err)

	changes, err := Normalize(evt, testNow)
	require.NoError(t, err)
	require.Len(t, changes.DiffUpdates, 1)
	diff := changes.DiffUpdates[0]
	assert.Equal(t, 200, diff.Additions)
	assert.Equal(t, 9, diff.FilesChanged)
	assert.True(t, diff.Conflicts)
	assert.Empty(t, changes.StatusUpdates, "synchronize touches diff stats only")
}

func TestRunStatusMapping(t *testing.T) {
	tests := []struct {
		status     string
		conclusion string
		want       domain.PipelineStatus
	}{
		{"completed", "success", domain.PipelineStatusSuccess},
		{"completed", "failure", domain.PipelineStatusFailed},
		{"completed", "timed_out", domain.PipelineStatusFailed},
		{"completed", "cancelled", domain.PipelineStatusCancelled},
		{"in_progress", "", domain.PipelineStatusRunning},
		{"queued", "", domain.PipelineStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.status+"/"+tt.conclusion, func(t *testing.T) {
			assert.Equal(t, tt.want, RunStatus(tt.status, tt.conclusion))
		})
	}
}

func TestNormalizeWorkflowRun(t *testing.T) {
	body := `{
		"action": "completed",
		"workflow_run": {
			"name": "ci",
			"path": ".github/workflows/ci.yml",
			"status": "completed",
			"conclusion": "success",
			"head_sha": "abc123",
			"pull_requests": [{"number": 42}]
		}
	}`

	evt, err := ParseEvent("workflow_run", []byte(body))
	require.NoError(t, err)

	changes, err := Normalize(evt, testNow)
	require.NoError(t, err)
	require.Len(t, changes.PipelineRuns, 1)
	run := changes.PipelineRuns[0]
	assert.Equal(t, "abc123", run.CommitSHA)
	assert.Equal(t, domain.PipelineStatusSuccess, run.Status)
	assert.Equal(t, ".github/workflows/ci.yml", run.WorkflowFile)
	assert.Equal(t, []int64{42}, run.MergeRequests)
}

func TestNormalizeReview(t *testing.T) {
	tests := []struct {
		name   string
		state  string
		action domain.ApprovalAction
		want   int
	}{
		{"approved", "approved", domain.ApprovalActionApprove, 1},
		{"changes requested", "changes_requested", domain.ApprovalActionReject, 1},
		{"comment only", "commented", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := fmt.Sprintf(`{
				"action": "submitted",
				"review": {"state": %q, "body": "lgtm", "user": {"login": "bob"}},
				"pull_request": {"number": 42}
			}`, tt.state)

			evt, err := ParseEvent("pull_request_review", []byte(body))
			require.NoError(t, err)

			changes, err := Normalize(evt, testNow)
			require.NoError(t, err)
			require.Len(t, changes.Approvals, tt.want)
			if tt.want > 0 {
				assert.Equal(t, tt.action, changes.Approvals[0].Action)
				assert.Equal(t, "bob", changes.Approvals[0].Approver)
			}
		})
	}
}

func TestParseEventRejectsUnknownAndMalformed(t *testing.T) {
	_, err := ParseEvent("deployment_status", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = ParseEvent("push", []byte(`{not json`))
	assert.ErrorIs(t, err, ErrBadPayload)

	_, err = ParseEvent("push", []byte(`{"ref": "refs/heads/main"}`))
	assert.ErrorIs(t, err, ErrBadPayload, "missing after sha")

	_, err = ParseEvent("pull_request_review", []byte(`{"action":"submitted","pull_request":{"number":1},"review":{"user":{"login":""}}}`))
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"ref":"refs/heads/main"}`)

	header := Sign("secret", body)
	assert.NoError(t, VerifySignature("secret", body, header))

	assert.ErrorIs(t, VerifySignature("other", body, header), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature("secret", []byte("tampered"), header), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature("secret", body, "sha1=deadbeef"), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature("secret", body, "sha256=zz"), ErrBadSignature)
}
