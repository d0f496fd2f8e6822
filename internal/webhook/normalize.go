package webhook

import (
	"fmt"
	"strings"
	"time"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/google/uuid"
)

// Changes is the set of row mutations one event produces. Normalization is a
// pure translation; applying the changes (and their transactional guarantees)
// belongs to the caller.
type Changes struct {
	Pipelines     []domain.Pipeline
	Jobs          []domain.PipelineJob
	MergeRequests []domain.MergeRequest

	StatusUpdates []MergeRequestStatusUpdate
	DiffUpdates   []MergeRequestDiffUpdate
	Approvals     []ApprovalUpdate
	PipelineRuns  []PipelineRunUpdate

	Notifications []domain.Notification
}

// MergeRequestStatusUpdate sets the status of the merge request identified by
// the provider's number.
type MergeRequestStatusUpdate struct {
	ExternalID int64
	Status     domain.MergeRequestStatus
}

// MergeRequestDiffUpdate refreshes diff stats after new commits land on a
// pull request.
type MergeRequestDiffUpdate struct {
	ExternalID   int64
	Additions    int
	Deletions    int
	FilesChanged int
	Conflicts    bool
}

// ApprovalUpdate is one review verdict. The counter increment and the
// satisfied-threshold flip happen atomically at the database, not here.
type ApprovalUpdate struct {
	ExternalID int64
	Approver   string
	Action     domain.ApprovalAction
	Comment    string
}

// PipelineRunUpdate carries a CI run status onto the pipeline matched by
// commit SHA, and onto any merge requests the run is linked to.
type PipelineRunUpdate struct {
	CommitSHA     string
	Status        domain.PipelineStatus
	WorkflowFile  string
	MergeRequests []int64
}

// Normalize translates one parsed event into row mutations.
func Normalize(evt Event, now time.Time) (Changes, error) {
	switch e := evt.(type) {
	case PushEvent:
		return normalizePush(e, now), nil
	case PullRequestEvent:
		return normalizePullRequest(e, now), nil
	case WorkflowRunEvent:
		return normalizeWorkflowRun(e), nil
	case ReviewEvent:
		return normalizeReview(e), nil
	default:
		return Changes{}, fmt.Errorf("%w: %T", ErrUnknownEvent, evt)
	}
}

func normalizePush(e PushEvent, now time.Time) Changes {
	branch := strings.TrimPrefix(e.Ref, "refs/heads/")

	pipeline := domain.Pipeline{
		ID:          uuid.NewString(),
		Branch:      branch,
		CommitSHA:   e.After,
		Author:      e.Pusher.Name,
		Message:     e.HeadCommit.Message,
		Status:      domain.PipelineStatusPending,
		Environment: domain.EnvironmentForBranch(branch),
		StartedAt:   now,
	}

	jobs := make([]domain.PipelineJob, 0, len(domain.PipelineStages))
	for _, stage := range domain.PipelineStages {
		jobs = append(jobs, domain.PipelineJob{
			ID:         uuid.NewString(),
			PipelineID: pipeline.ID,
			Name:       stage,
			Status:     domain.PipelineStatusPending,
		})
	}

	return Changes{
		Pipelines: []domain.Pipeline{pipeline},
		Jobs:      jobs,
	}
}

func normalizePullRequest(e PullRequestEvent, now time.Time) Changes {
	switch e.Action {
	case "opened", "reopened":
		status := domain.MergeRequestStatusOpen
		if e.PullRequest.Draft {
			status = domain.MergeRequestStatusDraft
		}

		conflicts := e.PullRequest.Mergeable != nil && !*e.PullRequest.Mergeable
		mr := domain.MergeRequest{
			ID:                uuid.NewString(),
			ExternalID:        e.PullRequest.Number,
			Title:             e.PullRequest.Title,
			Description:       e.PullRequest.Body,
			Author:            e.PullRequest.User.Login,
			SourceBranch:      e.PullRequest.Head.Ref,
			TargetBranch:      e.PullRequest.Base.Ref,
			Status:            status,
			RequiredApprovals: 1,
			PipelineStatus:    domain.PipelineStatusPending,
			Additions:         e.PullRequest.Additions,
			Deletions:         e.PullRequest.Deletions,
			FilesChanged:      e.PullRequest.ChangedFiles,
			Conflicts:         conflicts,
			CreatedAt:         now,
			UpdatedAt:         now,
		}

		note := domain.Notification{
			ID:        uuid.NewString(),
			Kind:      "merge_request_opened",
			Title:     fmt.Sprintf("MR !%d opened", mr.ExternalID),
			Body:      mr.Title,
			Status:    domain.NotificationStatusSent,
			CreatedAt: now,
		}

		return Changes{
			MergeRequests: []domain.MergeRequest{mr},
			Notifications: []domain.Notification{note},
		}

	case "closed":
		status := domain.MergeRequestStatusClosed
		if e.PullRequest.Merged {
			status = domain.MergeRequestStatusMerged
		}
		return Changes{
			StatusUpdates: []MergeRequestStatusUpdate{
				{ExternalID: e.PullRequest.Number, Status: status},
			},
		}

	case "synchronize":
		conflicts := e.PullRequest.Mergeable != nil && !*e.PullRequest.Mergeable
		return Changes{
			DiffUpdates: []MergeRequestDiffUpdate{{
				ExternalID:   e.PullRequest.Number,
				Additions:    e.PullRequest.Additions,
				Deletions:    e.PullRequest.Deletions,
				FilesChanged: e.PullRequest.ChangedFiles,
				Conflicts:    conflicts,
			}},
		}

	default:
		// Other actions (labeled, assigned, ...) carry nothing this system
		// tracks.
		return Changes{}
	}
}

func normalizeWorkflowRun(e WorkflowRunEvent) Changes {
	linked := make([]int64, 0, len(e.WorkflowRun.PullRequests))
	for _, pr := range e.WorkflowRun.PullRequests {
		linked = append(linked, pr.Number)
	}

	return Changes{
		PipelineRuns: []PipelineRunUpdate{{
			CommitSHA:     e.WorkflowRun.HeadSHA,
			Status:        RunStatus(e.WorkflowRun.Status, e.WorkflowRun.Conclusion),
			WorkflowFile:  e.WorkflowRun.Path,
			MergeRequests: linked,
		}},
	}
}

// RunStatus maps the provider's status/conclusion pair onto the internal
// five-state enum.
func RunStatus(status, conclusion string) domain.PipelineStatus {
	switch status {
	case "completed":
		switch conclusion {
		case "success":
			return domain.PipelineStatusSuccess
		case "cancelled":
			return domain.PipelineStatusCancelled
		default:
			return domain.PipelineStatusFailed
		}
	case "in_progress":
		return domain.PipelineStatusRunning
	default:
		return domain.PipelineStatusPending
	}
}

func normalizeReview(e ReviewEvent) Changes {
	if e.Action != "submitted" {
		return Changes{}
	}

	var action domain.ApprovalAction
	switch e.Review.State {
	case "approved":
		action = domain.ApprovalActionApprove
	case "changes_requested":
		action = domain.ApprovalActionReject
	default:
		// Plain comments are not verdicts.
		return Changes{}
	}

	return Changes{
		Approvals: []ApprovalUpdate{{
			ExternalID: e.PullRequest.Number,
			Approver:   e.Review.User.Login,
			Action:     action,
			Comment:    e.Review.Body,
		}},
	}
}
