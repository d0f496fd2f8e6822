package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/jackc/pgx/v5"
)

// PipelineFilter narrows ListPipelines. Zero values mean "no filter".
type PipelineFilter struct {
	Status      domain.PipelineStatus
	Environment domain.Environment
	Branch      string
	Limit       int
}

func (r *Repository) InsertPipeline(ctx context.Context, tx pgx.Tx, p domain.Pipeline) error {
	if tx == nil {
		return errTxRequired
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO pipelines (pipeline_id, branch, commit_sha, author, message, status, environment, workflow_file, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.Branch, p.CommitSHA, p.Author, p.Message, string(p.Status), string(p.Environment), p.WorkflowFile, p.StartedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert pipeline: %w", err)
	}
	return nil
}

func (r *Repository) InsertPipelineJobs(ctx context.Context, tx pgx.Tx, jobs []domain.PipelineJob) error {
	if tx == nil {
		return errTxRequired
	}

	for _, job := range jobs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO pipeline_jobs (job_id, pipeline_id, name, status, duration_ms, started_at, finished_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, job.ID, job.PipelineID, job.Name, string(job.Status), job.Duration.Milliseconds(), job.StartedAt, job.FinishedAt); err != nil {
			return fmt.Errorf("insert pipeline job: %w", err)
		}
	}
	return nil
}

func (r *Repository) GetPipeline(ctx context.Context, id string) (domain.Pipeline, error) {
	return scanPipeline(r.pool.QueryRow(ctx, `
		SELECT pipeline_id, branch, commit_sha, author, message, status, environment, workflow_file, started_at, finished_at
		FROM pipelines
		WHERE pipeline_id = $1
	`, id))
}

func (r *Repository) ListPipelines(ctx context.Context, filter PipelineFilter) ([]domain.Pipeline, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT pipeline_id, branch, commit_sha, author, message, status, environment, workflow_file, started_at, finished_at
		FROM pipelines
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR environment = $2)
		  AND ($3 = '' OR branch = $3)
		ORDER BY started_at DESC
		LIMIT $4
	`, string(filter.Status), string(filter.Environment), filter.Branch, limit)
	if err != nil {
		return nil, fmt.Errorf("select pipelines: %w", err)
	}
	defer rows.Close()

	var pipelines []domain.Pipeline
	for rows.Next() {
		p, err := scanPipeline(rows)
		if err != nil {
			return nil, err
		}
		pipelines = append(pipelines, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pipelines: %w", err)
	}
	return pipelines, nil
}

func scanPipeline(row pgx.Row) (domain.Pipeline, error) {
	var p domain.Pipeline
	var status, environment string
	var workflowFile sql.NullString
	var finishedAt sql.NullTime

	err := row.Scan(&p.ID, &p.Branch, &p.CommitSHA, &p.Author, &p.Message,
		&status, &environment, &workflowFile, &p.StartedAt, &finishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Pipeline{}, ErrNotFound
	}
	if err != nil {
		return domain.Pipeline{}, fmt.Errorf("scan pipeline: %w", err)
	}

	p.Status = domain.PipelineStatus(status)
	p.Environment = domain.Environment(environment)
	if workflowFile.Valid {
		f := workflowFile.String
		p.WorkflowFile = &f
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		p.FinishedAt = &t
	}
	return p, nil
}

func (r *Repository) ListPipelineJobs(ctx context.Context, pipelineID string) ([]domain.PipelineJob, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT job_id, pipeline_id, name, status, duration_ms, started_at, finished_at
		FROM pipeline_jobs
		WHERE pipeline_id = $1
		ORDER BY job_id
	`, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("select pipeline jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.PipelineJob
	for rows.Next() {
		var job domain.PipelineJob
		var status string
		var durationMS int64
		var startedAt, finishedAt sql.NullTime

		if err := rows.Scan(&job.ID, &job.PipelineID, &job.Name, &status, &durationMS, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan pipeline job: %w", err)
		}
		job.Status = domain.PipelineStatus(status)
		job.Duration = time.Duration(durationMS) * time.Millisecond
		if startedAt.Valid {
			t := startedAt.Time
			job.StartedAt = &t
		}
		if finishedAt.Valid {
			t := finishedAt.Time
			job.FinishedAt = &t
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pipeline jobs: %w", err)
	}
	return jobs, nil
}

// UpdatePipelineStatus moves one pipeline to the given status, stamping
// finished_at for terminal states.
func (r *Repository) UpdatePipelineStatus(ctx context.Context, tx pgx.Tx, id string, status domain.PipelineStatus, now time.Time) error {
	if tx == nil {
		return errTxRequired
	}

	tag, err := tx.Exec(ctx, `
		UPDATE pipelines
		SET status = $2,
		    finished_at = CASE WHEN $3 THEN COALESCE(finished_at, $4) ELSE finished_at END
		WHERE pipeline_id = $1
	`, id, string(status), status.IsTerminal(), now)
	if err != nil {
		return fmt.Errorf("update pipeline status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePipelineStatusBySHA carries a CI run result onto every pipeline for
// the commit. The SHA match is best-effort: zero rows is not an error.
func (r *Repository) UpdatePipelineStatusBySHA(ctx context.Context, tx pgx.Tx, sha string, status domain.PipelineStatus, workflowFile string, now time.Time) (int64, error) {
	if tx == nil {
		return 0, errTxRequired
	}

	tag, err := tx.Exec(ctx, `
		UPDATE pipelines
		SET status = $2,
		    workflow_file = COALESCE(NULLIF($3, ''), workflow_file),
		    finished_at = CASE WHEN $4 THEN COALESCE(finished_at, $5) ELSE finished_at END
		WHERE commit_sha = $1
	`, sha, string(status), workflowFile, status.IsTerminal(), now)
	if err != nil {
		return 0, fmt.Errorf("update pipelines by sha: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) DeletePipeline(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM pipelines WHERE pipeline_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete pipeline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertMergeRequest creates the merge request or refreshes the mutable
// fields when the provider re-sends it (reopened, edited).
func (r *Repository) UpsertMergeRequest(ctx context.Context, tx pgx.Tx, mr domain.MergeRequest) error {
	if tx == nil {
		return errTxRequired
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO merge_requests (
			mr_id, external_id, title, description, author, source_branch, target_branch,
			status, approvals, required_approvals, approvals_satisfied, pipeline_status,
			additions, deletions, files_changed, conflicts, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $17)
		ON CONFLICT (external_id)
		DO UPDATE SET title = EXCLUDED.title,
		              description = EXCLUDED.description,
		              status = EXCLUDED.status,
		              additions = EXCLUDED.additions,
		              deletions = EXCLUDED.deletions,
		              files_changed = EXCLUDED.files_changed,
		              conflicts = EXCLUDED.conflicts,
		              updated_at = EXCLUDED.updated_at
	`, mr.ID, mr.ExternalID, mr.Title, mr.Description, mr.Author, mr.SourceBranch, mr.TargetBranch,
		string(mr.Status), mr.Approvals, mr.RequiredApprovals, mr.ApprovalsSatisfied, string(mr.PipelineStatus),
		mr.Additions, mr.Deletions, mr.FilesChanged, mr.Conflicts, mr.CreatedAt); err != nil {
		return fmt.Errorf("upsert merge request: %w", err)
	}
	return nil
}

func (r *Repository) GetMergeRequestByExternalID(ctx context.Context, externalID int64) (domain.MergeRequest, error) {
	return scanMergeRequest(r.pool.QueryRow(ctx, `
		SELECT mr_id, external_id, title, description, author, source_branch, target_branch,
		       status, approvals, required_approvals, approvals_satisfied, pipeline_status,
		       additions, deletions, files_changed, conflicts, created_at, updated_at
		FROM merge_requests
		WHERE external_id = $1
	`, externalID))
}

func (r *Repository) ListMergeRequests(ctx context.Context, status domain.MergeRequestStatus, limit int) ([]domain.MergeRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT mr_id, external_id, title, description, author, source_branch, target_branch,
		       status, approvals, required_approvals, approvals_satisfied, pipeline_status,
		       additions, deletions, files_changed, conflicts, created_at, updated_at
		FROM merge_requests
		WHERE ($1 = '' OR status = $1)
		ORDER BY updated_at DESC
		LIMIT $2
	`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("select merge requests: %w", err)
	}
	defer rows.Close()

	var result []domain.MergeRequest
	for rows.Next() {
		mr, err := scanMergeRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, mr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate merge requests: %w", err)
	}
	return result, nil
}

func scanMergeRequest(row pgx.Row) (domain.MergeRequest, error) {
	var mr domain.MergeRequest
	var status, pipelineStatus string

	err := row.Scan(&mr.ID, &mr.ExternalID, &mr.Title, &mr.Description, &mr.Author,
		&mr.SourceBranch, &mr.TargetBranch, &status, &mr.Approvals, &mr.RequiredApprovals,
		&mr.ApprovalsSatisfied, &pipelineStatus, &mr.Additions, &mr.Deletions,
		&mr.FilesChanged, &mr.Conflicts, &mr.CreatedAt, &mr.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MergeRequest{}, ErrNotFound
	}
	if err != nil {
		return domain.MergeRequest{}, fmt.Errorf("scan merge request: %w", err)
	}

	mr.Status = domain.MergeRequestStatus(status)
	mr.PipelineStatus = domain.PipelineStatus(pipelineStatus)
	return mr, nil
}

func (r *Repository) UpdateMergeRequestStatus(ctx context.Context, tx pgx.Tx, externalID int64, status domain.MergeRequestStatus, now time.Time) error {
	if tx == nil {
		return errTxRequired
	}

	tag, err := tx.Exec(ctx, `
		UPDATE merge_requests
		SET status = $2, updated_at = $3
		WHERE external_id = $1
	`, externalID, string(status), now)
	if err != nil {
		return fmt.Errorf("update merge request status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) UpdateMergeRequestDiff(ctx context.Context, tx pgx.Tx, externalID int64, additions, deletions, filesChanged int, conflicts bool, now time.Time) error {
	if tx == nil {
		return errTxRequired
	}

	tag, err := tx.Exec(ctx, `
		UPDATE merge_requests
		SET additions = $2, deletions = $3, files_changed = $4, conflicts = $5, updated_at = $6
		WHERE external_id = $1
	`, externalID, additions, deletions, filesChanged, conflicts, now)
	if err != nil {
		return fmt.Errorf("update merge request diff: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateMergeRequestPipelineStatus propagates a CI result onto linked merge
// requests. Best-effort: unknown external ids are skipped.
func (r *Repository) UpdateMergeRequestPipelineStatus(ctx context.Context, tx pgx.Tx, externalIDs []int64, status domain.PipelineStatus, now time.Time) error {
	if tx == nil {
		return errTxRequired
	}
	if len(externalIDs) == 0 {
		return nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE merge_requests
		SET pipeline_status = $2, updated_at = $3
		WHERE external_id = ANY($1::bigint[])
	`, externalIDs, string(status), now); err != nil {
		return fmt.Errorf("update merge request pipeline status: %w", err)
	}
	return nil
}

func (r *Repository) SetRequiredApprovals(ctx context.Context, tx pgx.Tx, externalID int64, required int) error {
	if tx == nil {
		return errTxRequired
	}

	if _, err := tx.Exec(ctx, `
		UPDATE merge_requests
		SET required_approvals = $2,
		    approvals_satisfied = (approvals >= $2)
		WHERE external_id = $1
	`, externalID, required); err != nil {
		return fmt.Errorf("set required approvals: %w", err)
	}
	return nil
}

// AddApproval records one verdict and, for approvals, bumps the counter and
// the satisfied flag in a single conditional UPDATE. The approval insert and
// the counter update ride in the same transaction, and the unique
// (mr_id, approver) constraint makes a re-submitted verdict a no-op instead
// of a double count.
func (r *Repository) AddApproval(ctx context.Context, tx pgx.Tx, approvalID string, externalID int64, approver string, action domain.ApprovalAction, comment string, now time.Time) (domain.MergeRequest, error) {
	if tx == nil {
		return domain.MergeRequest{}, errTxRequired
	}

	var insertedID sql.NullString
	err := tx.QueryRow(ctx, `
		INSERT INTO merge_approvals (approval_id, mr_id, approver, action, comment, created_at)
		SELECT $1, mr_id, $3, $4, $5, $6
		FROM merge_requests
		WHERE external_id = $2
		ON CONFLICT (mr_id, approver) DO NOTHING
		RETURNING approval_id
	`, approvalID, externalID, approver, string(action), comment, now).Scan(&insertedID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the merge request does not exist or the approver already
		// voted. Disambiguate for the caller.
		if _, lookupErr := r.getMergeRequestTx(ctx, tx, externalID); lookupErr != nil {
			return domain.MergeRequest{}, lookupErr
		}
		return domain.MergeRequest{}, ErrDuplicateApproval
	}
	if err != nil {
		return domain.MergeRequest{}, fmt.Errorf("insert approval: %w", err)
	}

	if action != domain.ApprovalActionApprove {
		return r.getMergeRequestTx(ctx, tx, externalID)
	}

	return scanMergeRequest(tx.QueryRow(ctx, `
		UPDATE merge_requests
		SET approvals = approvals + 1,
		    approvals_satisfied = (approvals + 1 >= required_approvals),
		    updated_at = $2
		WHERE external_id = $1
		RETURNING mr_id, external_id, title, description, author, source_branch, target_branch,
		          status, approvals, required_approvals, approvals_satisfied, pipeline_status,
		          additions, deletions, files_changed, conflicts, created_at, updated_at
	`, externalID, now))
}

func (r *Repository) getMergeRequestTx(ctx context.Context, tx pgx.Tx, externalID int64) (domain.MergeRequest, error) {
	return scanMergeRequest(tx.QueryRow(ctx, `
		SELECT mr_id, external_id, title, description, author, source_branch, target_branch,
		       status, approvals, required_approvals, approvals_satisfied, pipeline_status,
		       additions, deletions, files_changed, conflicts, created_at, updated_at
		FROM merge_requests
		WHERE external_id = $1
	`, externalID))
}

func (r *Repository) ListApprovals(ctx context.Context, externalID int64) ([]domain.MergeApproval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.approval_id, a.mr_id, a.approver, a.action, a.comment, a.created_at
		FROM merge_approvals a
		JOIN merge_requests mr ON mr.mr_id = a.mr_id
		WHERE mr.external_id = $1
		ORDER BY a.created_at
	`, externalID)
	if err != nil {
		return nil, fmt.Errorf("select approvals: %w", err)
	}
	defer rows.Close()

	var approvals []domain.MergeApproval
	for rows.Next() {
		var a domain.MergeApproval
		var action string
		if err := rows.Scan(&a.ID, &a.MergeRequestID, &a.Approver, &action, &a.Comment, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		a.Action = domain.ApprovalAction(action)
		approvals = append(approvals, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approvals: %w", err)
	}
	return approvals, nil
}

func (r *Repository) DeleteMergeRequest(ctx context.Context, externalID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM merge_requests WHERE external_id = $1`, externalID)
	if err != nil {
		return fmt.Errorf("delete merge request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) InsertDeployment(ctx context.Context, tx pgx.Tx, d domain.Deployment) error {
	if tx == nil {
		return errTxRequired
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO deployments (deployment_id, environment, version, status, health, pipeline_id, deployed_by, deployed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, d.ID, string(d.Environment), d.Version, string(d.Status), string(d.Health), d.PipelineID, d.DeployedBy, d.DeployedAt); err != nil {
		return fmt.Errorf("insert deployment: %w", err)
	}
	return nil
}

func (r *Repository) ListDeployments(ctx context.Context, environment domain.Environment, limit int) ([]domain.Deployment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT deployment_id, environment, version, status, health, pipeline_id, deployed_by, deployed_at
		FROM deployments
		WHERE ($1 = '' OR environment = $1)
		ORDER BY deployed_at DESC
		LIMIT $2
	`, string(environment), limit)
	if err != nil {
		return nil, fmt.Errorf("select deployments: %w", err)
	}
	defer rows.Close()

	var deployments []domain.Deployment
	for rows.Next() {
		var d domain.Deployment
		var environment, status, health string
		var pipelineID sql.NullString

		if err := rows.Scan(&d.ID, &environment, &d.Version, &status, &health, &pipelineID, &d.DeployedBy, &d.DeployedAt); err != nil {
			return nil, fmt.Errorf("scan deployment: %w", err)
		}
		d.Environment = domain.Environment(environment)
		d.Status = domain.DeploymentStatus(status)
		d.Health = domain.DeploymentHealth(health)
		if pipelineID.Valid {
			id := pipelineID.String
			d.PipelineID = &id
		}
		deployments = append(deployments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deployments: %w", err)
	}
	return deployments, nil
}

func (r *Repository) UpdateDeployment(ctx context.Context, tx pgx.Tx, id string, status domain.DeploymentStatus, health domain.DeploymentHealth) error {
	if tx == nil {
		return errTxRequired
	}

	tag, err := tx.Exec(ctx, `
		UPDATE deployments
		SET status = COALESCE(NULLIF($2, ''), status),
		    health = COALESCE(NULLIF($3, ''), health)
		WHERE deployment_id = $1
	`, id, string(status), string(health))
	if err != nil {
		return fmt.Errorf("update deployment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteDeployment(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM deployments WHERE deployment_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete deployment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) InsertNotification(ctx context.Context, tx pgx.Tx, n domain.Notification) error {
	if tx == nil {
		return errTxRequired
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO notifications (notification_id, kind, title, body, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.ID, n.Kind, n.Title, n.Body, string(n.Status), n.CreatedAt); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *Repository) ListNotifications(ctx context.Context, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT notification_id, kind, title, body, status, created_at
		FROM notifications
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var status string
		if err := rows.Scan(&n.ID, &n.Kind, &n.Title, &n.Body, &status, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Status = domain.NotificationStatus(status)
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return notifications, nil
}

func (r *Repository) InsertIntegration(ctx context.Context, i domain.Integration) error {
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO integrations (integration_id, name, kind, webhook_url, status, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, i.ID, i.Name, i.Kind, i.WebhookURL, string(i.Status), i.CreatedBy, i.CreatedAt); err != nil {
		return fmt.Errorf("insert integration: %w", err)
	}
	return nil
}

func (r *Repository) ListIntegrations(ctx context.Context) ([]domain.Integration, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT integration_id, name, kind, webhook_url, status, created_by, created_at
		FROM integrations
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("select integrations: %w", err)
	}
	defer rows.Close()

	var integrations []domain.Integration
	for rows.Next() {
		var i domain.Integration
		var status string
		if err := rows.Scan(&i.ID, &i.Name, &i.Kind, &i.WebhookURL, &status, &i.CreatedBy, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan integration: %w", err)
		}
		i.Status = domain.IntegrationStatus(status)
		integrations = append(integrations, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate integrations: %w", err)
	}
	return integrations, nil
}

func (r *Repository) UpdateIntegrationStatus(ctx context.Context, id string, status domain.IntegrationStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE integrations SET status = $2 WHERE integration_id = $1
	`, id, string(status))
	if err != nil {
		return fmt.Errorf("update integration status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
