package httpserver

import (
	"context"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/crewbase/crewbase/internal/repository"
	"github.com/crewbase/crewbase/internal/session"
	"github.com/crewbase/crewbase/internal/webhook"
)

// Service is everything the HTTP layer needs from the business layer.
type Service interface {
	ProcessEvent(ctx context.Context, evt webhook.Event) error

	ListPipelines(ctx context.Context, filter repository.PipelineFilter) ([]domain.Pipeline, error)
	GetPipeline(ctx context.Context, id string) (domain.Pipeline, []domain.PipelineJob, error)
	PipelineAction(ctx context.Context, id, action string) (domain.Pipeline, error)
	RefreshPipeline(ctx context.Context, id string) (domain.Pipeline, error)
	DeletePipeline(ctx context.Context, id string) error

	ListMergeRequests(ctx context.Context, status domain.MergeRequestStatus, limit int) ([]domain.MergeRequest, error)
	GetMergeRequest(ctx context.Context, externalID int64) (domain.MergeRequest, []domain.MergeApproval, error)
	SubmitApproval(ctx context.Context, externalID int64, approver string, action domain.ApprovalAction, comment string) (domain.MergeRequest, error)
	SetRequiredApprovals(ctx context.Context, externalID int64, required int) (domain.MergeRequest, error)
	RefreshMergeRequest(ctx context.Context, externalID int64) (domain.MergeRequest, error)
	DeleteMergeRequest(ctx context.Context, externalID int64) error

	CreateDeployment(ctx context.Context, d domain.Deployment) (domain.Deployment, error)
	ListDeployments(ctx context.Context, environment domain.Environment, limit int) ([]domain.Deployment, error)
	UpdateDeployment(ctx context.Context, id string, status domain.DeploymentStatus, health domain.DeploymentHealth) error
	DeleteDeployment(ctx context.Context, id string) error

	UpsertFeatureFlag(ctx context.Context, f domain.FeatureFlag) (domain.FeatureFlag, error)
	ListFeatureFlags(ctx context.Context, environment domain.Environment) ([]domain.FeatureFlag, error)
	GetFeatureFlag(ctx context.Context, name string) (domain.FeatureFlag, error)
	SetFeatureFlagEnabled(ctx context.Context, name string, enabled bool) error
	DeleteFeatureFlag(ctx context.Context, name string) error
	EvaluateFeatureFlag(ctx context.Context, name, subject string, attrs map[string]string) (bool, error)

	ListNotifications(ctx context.Context, limit int) ([]domain.Notification, error)
	CreateIntegration(ctx context.Context, i domain.Integration) (domain.Integration, error)
	ListIntegrations(ctx context.Context) ([]domain.Integration, error)
	DecideIntegration(ctx context.Context, id, action string) error

	CreateOrganization(ctx context.Context, name, orgDomain string) (domain.Organization, error)
	GetOrganization(ctx context.Context, id string) (domain.Organization, error)
	ListOrganizations(ctx context.Context) ([]domain.Organization, error)
	DeleteOrganization(ctx context.Context, id string) error

	UpsertEmployee(ctx context.Context, e domain.Employee) (domain.Employee, error)
	GetEmployee(ctx context.Context, id string) (domain.Employee, error)
	ListEmployees(ctx context.Context, orgID string, activeOnly bool, limit int) ([]domain.Employee, error)
	DeleteEmployee(ctx context.Context, id string) error

	CreateLeaveRequest(ctx context.Context, lr domain.LeaveRequest) (domain.LeaveRequest, error)
	ListLeaveRequests(ctx context.Context, employeeID string, status domain.LeaveStatus, limit int) ([]domain.LeaveRequest, error)
	DecideLeaveRequest(ctx context.Context, id, action, decidedBy string) error

	CreatePayrollRecord(ctx context.Context, p domain.PayrollRecord) (domain.PayrollRecord, error)
	ListPayrollRecords(ctx context.Context, employeeID string, limit int) ([]domain.PayrollRecord, error)
	MarkPayrollPaid(ctx context.Context, id string) error

	CreateHandoff(ctx context.Context, s domain.Session) (domain.HandoffCode, error)
	RedeemHandoff(ctx context.Context, code string) (domain.Session, error)
}

// Identity is the auth-provider surface the login/refresh/logout routes use.
type Identity interface {
	SignIn(ctx context.Context, email, password string) (domain.SessionUser, session.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (session.TokenPair, error)
	SignOut(ctx context.Context, accessToken string) error
}
