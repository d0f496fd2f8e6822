package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/crewbase/crewbase/internal/repository"
	"github.com/crewbase/crewbase/internal/scm"
	"github.com/crewbase/crewbase/internal/webhook"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ProcessEvent normalizes one provider event and applies the resulting row
// mutations in a single transaction. Enrichment calls to the provider happen
// before the transaction and degrade gracefully.
func (s *Service) ProcessEvent(ctx context.Context, evt webhook.Event) error {
	now := s.now().UTC()

	changes, err := webhook.Normalize(evt, now)
	if err != nil {
		return err
	}

	// Best-effort enrichment: pull the real approval requirement off the
	// target branch's protection rule.
	for i := range changes.MergeRequests {
		mr := &changes.MergeRequests[i]
		required, err := s.scm.RequiredApprovals(ctx, mr.TargetBranch)
		if err != nil {
			s.logger.Debug("branch protection lookup failed, keeping default",
				zap.String("branch", mr.TargetBranch),
				zap.Error(err),
			)
			continue
		}
		if required > 0 {
			mr.RequiredApprovals = required
		}
	}

	return s.repo.RunInTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		for _, p := range changes.Pipelines {
			if err := s.repo.InsertPipeline(ctx, tx, p); err != nil {
				return fmt.Errorf("apply pipeline: %w", err)
			}
		}
		if err := s.repo.InsertPipelineJobs(ctx, tx, changes.Jobs); err != nil {
			return fmt.Errorf("apply jobs: %w", err)
		}

		for _, mr := range changes.MergeRequests {
			if err := s.repo.UpsertMergeRequest(ctx, tx, mr); err != nil {
				return fmt.Errorf("apply merge request: %w", err)
			}
		}

		for _, u := range changes.StatusUpdates {
			err := s.repo.UpdateMergeRequestStatus(ctx, tx, u.ExternalID, u.Status, now)
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Warn("status update for unknown merge request",
					zap.Int64("external_id", u.ExternalID))
				continue
			}
			if err != nil {
				return fmt.Errorf("apply status update: %w", err)
			}
		}

		for _, u := range changes.DiffUpdates {
			err := s.repo.UpdateMergeRequestDiff(ctx, tx, u.ExternalID, u.Additions, u.Deletions, u.FilesChanged, u.Conflicts, now)
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Warn("diff update for unknown merge request",
					zap.Int64("external_id", u.ExternalID))
				continue
			}
			if err != nil {
				return fmt.Errorf("apply diff update: %w", err)
			}
		}

		for _, a := range changes.Approvals {
			_, err := s.repo.AddApproval(ctx, tx, uuid.NewString(), a.ExternalID, a.Approver, a.Action, a.Comment, now)
			if errors.Is(err, repository.ErrDuplicateApproval) {
				s.logger.Info("duplicate review ignored",
					zap.Int64("external_id", a.ExternalID),
					zap.String("approver", a.Approver))
				continue
			}
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Warn("review for unknown merge request",
					zap.Int64("external_id", a.ExternalID))
				continue
			}
			if err != nil {
				return fmt.Errorf("apply approval: %w", err)
			}
		}

		for _, run := range changes.PipelineRuns {
			matched, err := s.repo.UpdatePipelineStatusBySHA(ctx, tx, run.CommitSHA, run.Status, run.WorkflowFile, now)
			if err != nil {
				return fmt.Errorf("apply pipeline run: %w", err)
			}
			if matched == 0 {
				s.logger.Debug("workflow run matched no pipeline", zap.String("sha", run.CommitSHA))
			}
			if err := s.repo.UpdateMergeRequestPipelineStatus(ctx, tx, run.MergeRequests, run.Status, now); err != nil {
				return fmt.Errorf("apply pipeline run to merge requests: %w", err)
			}
		}

		for _, n := range changes.Notifications {
			if err := s.repo.InsertNotification(ctx, tx, n); err != nil {
				return fmt.Errorf("apply notification: %w", err)
			}
		}

		return nil
	})
}

func (s *Service) ListPipelines(ctx context.Context, filter repository.PipelineFilter) ([]domain.Pipeline, error) {
	pipelines, err := s.repo.ListPipelines(ctx, filter)
	return pipelines, mapRepoError(err)
}

func (s *Service) GetPipeline(ctx context.Context, id string) (domain.Pipeline, []domain.PipelineJob, error) {
	p, err := s.repo.GetPipeline(ctx, id)
	if err != nil {
		return domain.Pipeline{}, nil, mapRepoError(err)
	}
	jobs, err := s.repo.ListPipelineJobs(ctx, id)
	if err != nil {
		return domain.Pipeline{}, nil, err
	}
	return p, jobs, nil
}

// PipelineAction applies a dashboard action to a pipeline. retry resets the
// run to pending; cancel moves it to cancelled.
func (s *Service) PipelineAction(ctx context.Context, id, action string) (domain.Pipeline, error) {
	var status domain.PipelineStatus
	switch action {
	case "retry":
		status = domain.PipelineStatusPending
	case "cancel":
		status = domain.PipelineStatusCancelled
	default:
		return domain.Pipeline{}, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.repo.UpdatePipelineStatus(ctx, tx, id, status, s.now().UTC())
	})
	if err != nil {
		return domain.Pipeline{}, mapRepoError(err)
	}
	p, err := s.repo.GetPipeline(ctx, id)
	return p, mapRepoError(err)
}

func (s *Service) DeletePipeline(ctx context.Context, id string) error {
	return mapRepoError(s.repo.DeletePipeline(ctx, id))
}

func (s *Service) ListMergeRequests(ctx context.Context, status domain.MergeRequestStatus, limit int) ([]domain.MergeRequest, error) {
	result, err := s.repo.ListMergeRequests(ctx, status, limit)
	return result, mapRepoError(err)
}

func (s *Service) GetMergeRequest(ctx context.Context, externalID int64) (domain.MergeRequest, []domain.MergeApproval, error) {
	mr, err := s.repo.GetMergeRequestByExternalID(ctx, externalID)
	if err != nil {
		return domain.MergeRequest{}, nil, mapRepoError(err)
	}
	approvals, err := s.repo.ListApprovals(ctx, externalID)
	if err != nil {
		return domain.MergeRequest{}, nil, err
	}
	return mr, approvals, nil
}

// SubmitApproval is the admin-panel verdict path. It funnels into the same
// atomic counter update the webhook review path uses.
func (s *Service) SubmitApproval(ctx context.Context, externalID int64, approver string, action domain.ApprovalAction, comment string) (domain.MergeRequest, error) {
	if action != domain.ApprovalActionApprove && action != domain.ApprovalActionReject {
		return domain.MergeRequest{}, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	var mr domain.MergeRequest
	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		mr, err = s.repo.AddApproval(ctx, tx, uuid.NewString(), externalID, approver, action, comment, s.now().UTC())
		return err
	})
	if err != nil {
		return domain.MergeRequest{}, mapRepoError(err)
	}
	return mr, nil
}

// RefreshMergeRequest pulls live diff stats off the provider and applies them
// to the mirrored row. Unlike webhook enrichment, a provider failure here is
// surfaced: the caller asked for live data explicitly.
func (s *Service) RefreshMergeRequest(ctx context.Context, externalID int64) (domain.MergeRequest, error) {
	details, err := s.scm.GetPullRequest(ctx, externalID)
	if err != nil {
		if errors.Is(err, scm.ErrNotFound) {
			return domain.MergeRequest{}, ErrNotFound
		}
		return domain.MergeRequest{}, fmt.Errorf("provider: %w", err)
	}

	conflicts := details.Mergeable != nil && !*details.Mergeable
	err = s.repo.RunInTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.repo.UpdateMergeRequestDiff(ctx, tx, externalID,
			details.Additions, details.Deletions, details.ChangedFiles, conflicts, s.now().UTC())
	})
	if err != nil {
		return domain.MergeRequest{}, mapRepoError(err)
	}

	mr, err := s.repo.GetMergeRequestByExternalID(ctx, externalID)
	return mr, mapRepoError(err)
}

// RefreshPipeline re-derives a pipeline's status from the provider's check
// runs for its commit. Any failure wins, then cancellation, then anything
// still moving; the status only changes when at least one check run exists.
func (s *Service) RefreshPipeline(ctx context.Context, id string) (domain.Pipeline, error) {
	p, err := s.repo.GetPipeline(ctx, id)
	if err != nil {
		return domain.Pipeline{}, mapRepoError(err)
	}

	runs, err := s.scm.ListCheckRuns(ctx, p.CommitSHA)
	if err != nil {
		if errors.Is(err, scm.ErrNotFound) {
			return domain.Pipeline{}, ErrNotFound
		}
		return domain.Pipeline{}, fmt.Errorf("provider: %w", err)
	}
	if len(runs) == 0 {
		return p, nil
	}

	status := aggregateCheckRuns(runs)
	err = s.repo.RunInTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.repo.UpdatePipelineStatus(ctx, tx, id, status, s.now().UTC())
	})
	if err != nil {
		return domain.Pipeline{}, mapRepoError(err)
	}

	p, err = s.repo.GetPipeline(ctx, id)
	return p, mapRepoError(err)
}

func aggregateCheckRuns(runs []scm.CheckRun) domain.PipelineStatus {
	counts := make(map[domain.PipelineStatus]int, len(runs))
	for _, run := range runs {
		counts[webhook.RunStatus(run.Status, run.Conclusion)]++
	}

	switch {
	case counts[domain.PipelineStatusFailed] > 0:
		return domain.PipelineStatusFailed
	case counts[domain.PipelineStatusCancelled] > 0:
		return domain.PipelineStatusCancelled
	case counts[domain.PipelineStatusRunning] > 0:
		return domain.PipelineStatusRunning
	case counts[domain.PipelineStatusPending] > 0:
		return domain.PipelineStatusPending
	default:
		return domain.PipelineStatusSuccess
	}
}

// SetRequiredApprovals overrides the approval threshold for one merge
// request. The satisfied flag is recomputed against the current counter.
func (s *Service) SetRequiredApprovals(ctx context.Context, externalID int64, required int) (domain.MergeRequest, error) {
	if required < 1 {
		return domain.MergeRequest{}, fmt.Errorf("%w: required approvals must be positive", ErrInvalidAction)
	}

	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.repo.SetRequiredApprovals(ctx, tx, externalID, required)
	})
	if err != nil {
		return domain.MergeRequest{}, mapRepoError(err)
	}
	mr, err := s.repo.GetMergeRequestByExternalID(ctx, externalID)
	return mr, mapRepoError(err)
}

func (s *Service) DeleteMergeRequest(ctx context.Context, externalID int64) error {
	return mapRepoError(s.repo.DeleteMergeRequest(ctx, externalID))
}

func (s *Service) CreateDeployment(ctx context.Context, d domain.Deployment) (domain.Deployment, error) {
	d.ID = uuid.NewString()
	d.DeployedAt = s.now().UTC()
	if d.Status == "" {
		d.Status = domain.DeploymentStatusPending
	}
	if d.Health == "" {
		d.Health = domain.DeploymentHealthUnknown
	}

	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.repo.InsertDeployment(ctx, tx, d)
	})
	if err != nil {
		return domain.Deployment{}, err
	}
	return d, nil
}

func (s *Service) ListDeployments(ctx context.Context, environment domain.Environment, limit int) ([]domain.Deployment, error) {
	return s.repo.ListDeployments(ctx, environment, limit)
}

func (s *Service) UpdateDeployment(ctx context.Context, id string, status domain.DeploymentStatus, health domain.DeploymentHealth) error {
	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.repo.UpdateDeployment(ctx, tx, id, status, health)
	})
	return mapRepoError(err)
}

func (s *Service) DeleteDeployment(ctx context.Context, id string) error {
	return mapRepoError(s.repo.DeleteDeployment(ctx, id))
}

func (s *Service) ListNotifications(ctx context.Context, limit int) ([]domain.Notification, error) {
	return s.repo.ListNotifications(ctx, limit)
}

func (s *Service) CreateIntegration(ctx context.Context, i domain.Integration) (domain.Integration, error) {
	i.ID = uuid.NewString()
	i.Status = domain.IntegrationStatusPending
	i.CreatedAt = s.now().UTC()
	if err := s.repo.InsertIntegration(ctx, i); err != nil {
		return domain.Integration{}, err
	}
	return i, nil
}

func (s *Service) ListIntegrations(ctx context.Context) ([]domain.Integration, error) {
	return s.repo.ListIntegrations(ctx)
}

// DecideIntegration approves or rejects a pending connector.
func (s *Service) DecideIntegration(ctx context.Context, id, action string) error {
	var status domain.IntegrationStatus
	switch action {
	case "approve":
		status = domain.IntegrationStatusApproved
	case "reject":
		status = domain.IntegrationStatusRejected
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	return mapRepoError(s.repo.UpdateIntegrationStatus(ctx, id, status))
}
