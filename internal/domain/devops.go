package domain

import "time"

type PipelineStatus string

const (
	PipelineStatusPending   PipelineStatus = "pending"
	PipelineStatusRunning   PipelineStatus = "running"
	PipelineStatusSuccess   PipelineStatus = "success"
	PipelineStatusFailed    PipelineStatus = "failed"
	PipelineStatusCancelled PipelineStatus = "cancelled"
)

// IsTerminal reports whether no further status transitions are expected.
func (s PipelineStatus) IsTerminal() bool {
	return s == PipelineStatusSuccess || s == PipelineStatusFailed || s == PipelineStatusCancelled
}

type Environment string

const (
	EnvironmentDevelopment Environment = "development"
	EnvironmentStaging     Environment = "staging"
	EnvironmentProduction  Environment = "production"
)

// EnvironmentForBranch derives the target environment from a branch name.
// main maps to production and staging to staging; everything else is a
// development branch.
func EnvironmentForBranch(branch string) Environment {
	switch branch {
	case "main", "master":
		return EnvironmentProduction
	case "staging":
		return EnvironmentStaging
	default:
		return EnvironmentDevelopment
	}
}

// Pipeline is one CI run tied to a branch and commit.
type Pipeline struct {
	ID           string
	Branch       string
	CommitSHA    string
	Author       string
	Message      string
	Status       PipelineStatus
	Environment  Environment
	WorkflowFile *string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// PipelineJob is one named stage within a pipeline. Its status is tracked
// independently of the parent pipeline.
type PipelineJob struct {
	ID         string
	PipelineID string
	Name       string
	Status     PipelineStatus
	Duration   time.Duration
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// PipelineStages are the placeholder jobs created for every new pipeline.
var PipelineStages = []string{"lint", "unit-test", "build", "integration-test", "deploy"}

type MergeRequestStatus string

const (
	MergeRequestStatusDraft  MergeRequestStatus = "draft"
	MergeRequestStatusOpen   MergeRequestStatus = "open"
	MergeRequestStatusMerged MergeRequestStatus = "merged"
	MergeRequestStatusClosed MergeRequestStatus = "closed"
)

// MergeRequest mirrors a pull request on the source-control provider.
// ApprovalsSatisfied records that the approval threshold has been met; it is
// deliberately separate from Status, which only becomes merged when the
// provider reports an actual merge.
type MergeRequest struct {
	ID                 string
	ExternalID         int64
	Title              string
	Description        string
	Author             string
	SourceBranch       string
	TargetBranch       string
	Status             MergeRequestStatus
	Approvals          int
	RequiredApprovals  int
	ApprovalsSatisfied bool
	PipelineStatus     PipelineStatus
	Additions          int
	Deletions          int
	FilesChanged       int
	Conflicts          bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type ApprovalAction string

const (
	ApprovalActionApprove ApprovalAction = "approve"
	ApprovalActionReject  ApprovalAction = "reject"
)

// MergeApproval is one review verdict on a merge request.
type MergeApproval struct {
	ID             string
	MergeRequestID string
	Approver       string
	Action         ApprovalAction
	Comment        string
	CreatedAt      time.Time
}

type DeploymentStatus string

const (
	DeploymentStatusPending    DeploymentStatus = "pending"
	DeploymentStatusDeploying  DeploymentStatus = "deploying"
	DeploymentStatusSuccess    DeploymentStatus = "success"
	DeploymentStatusFailed     DeploymentStatus = "failed"
	DeploymentStatusRolledBack DeploymentStatus = "rolled_back"
)

type DeploymentHealth string

const (
	DeploymentHealthy       DeploymentHealth = "healthy"
	DeploymentUnhealthy     DeploymentHealth = "unhealthy"
	DeploymentHealthUnknown DeploymentHealth = "unknown"
)

// Deployment records one rollout of a version into an environment.
type Deployment struct {
	ID          string
	Environment Environment
	Version     string
	Status      DeploymentStatus
	Health      DeploymentHealth
	PipelineID  *string
	DeployedBy  string
	DeployedAt  time.Time
}

type NotificationStatus string

const (
	NotificationStatusSent      NotificationStatus = "sent"
	NotificationStatusDelivered NotificationStatus = "delivered"
)

// Notification is an outbound message record produced by webhook handling
// and admin actions, consumed by the messaging-platform connector.
type Notification struct {
	ID        string
	Kind      string
	Title     string
	Body      string
	Status    NotificationStatus
	CreatedAt time.Time
}

type IntegrationStatus string

const (
	IntegrationStatusPending  IntegrationStatus = "pending"
	IntegrationStatusApproved IntegrationStatus = "approved"
	IntegrationStatusRejected IntegrationStatus = "rejected"
)

// Integration is a messaging-platform connector configuration awaiting or
// holding administrative approval.
type Integration struct {
	ID         string
	Name       string
	Kind       string
	WebhookURL string
	Status     IntegrationStatus
	CreatedBy  string
	CreatedAt  time.Time
}
