package service

import (
	"context"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/google/uuid"
)

func (s *Service) CreateOrganization(ctx context.Context, name, orgDomain string) (domain.Organization, error) {
	org := domain.Organization{
		ID:        uuid.NewString(),
		Name:      name,
		Domain:    orgDomain,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.InsertOrganization(ctx, org); err != nil {
		return domain.Organization{}, mapRepoError(err)
	}
	return org, nil
}

func (s *Service) GetOrganization(ctx context.Context, id string) (domain.Organization, error) {
	org, err := s.repo.GetOrganization(ctx, id)
	return org, mapRepoError(err)
}

func (s *Service) ListOrganizations(ctx context.Context) ([]domain.Organization, error) {
	return s.repo.ListOrganizations(ctx)
}

func (s *Service) DeleteOrganization(ctx context.Context, id string) error {
	return mapRepoError(s.repo.DeleteOrganization(ctx, id))
}

func (s *Service) UpsertEmployee(ctx context.Context, e domain.Employee) (domain.Employee, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := s.now().UTC()
	e.CreatedAt = now
	if e.HiredAt.IsZero() {
		e.HiredAt = now
	}

	// Employees must belong to an existing organization.
	if _, err := s.repo.GetOrganization(ctx, e.OrganizationID); err != nil {
		return domain.Employee{}, mapRepoError(err)
	}

	stored, err := s.repo.UpsertEmployee(ctx, e)
	return stored, mapRepoError(err)
}

func (s *Service) GetEmployee(ctx context.Context, id string) (domain.Employee, error) {
	e, err := s.repo.GetEmployee(ctx, id)
	return e, mapRepoError(err)
}

func (s *Service) ListEmployees(ctx context.Context, orgID string, activeOnly bool, limit int) ([]domain.Employee, error) {
	return s.repo.ListEmployees(ctx, orgID, activeOnly, limit)
}

func (s *Service) DeleteEmployee(ctx context.Context, id string) error {
	return mapRepoError(s.repo.DeleteEmployee(ctx, id))
}

func (s *Service) CreateLeaveRequest(ctx context.Context, lr domain.LeaveRequest) (domain.LeaveRequest, error) {
	lr.ID = uuid.NewString()
	lr.Status = domain.LeaveStatusPending
	lr.CreatedAt = s.now().UTC()

	if _, err := s.repo.GetEmployee(ctx, lr.EmployeeID); err != nil {
		return domain.LeaveRequest{}, mapRepoError(err)
	}
	if err := s.repo.InsertLeaveRequest(ctx, lr); err != nil {
		return domain.LeaveRequest{}, err
	}
	return lr, nil
}

func (s *Service) ListLeaveRequests(ctx context.Context, employeeID string, status domain.LeaveStatus, limit int) ([]domain.LeaveRequest, error) {
	return s.repo.ListLeaveRequests(ctx, employeeID, status, limit)
}

// DecideLeaveRequest approves or rejects a pending leave request.
func (s *Service) DecideLeaveRequest(ctx context.Context, id, action, decidedBy string) error {
	var status domain.LeaveStatus
	switch action {
	case "approve":
		status = domain.LeaveStatusApproved
	case "reject":
		status = domain.LeaveStatusRejected
	default:
		return ErrInvalidAction
	}
	return mapRepoError(s.repo.DecideLeaveRequest(ctx, id, status, decidedBy))
}

func (s *Service) CreatePayrollRecord(ctx context.Context, p domain.PayrollRecord) (domain.PayrollRecord, error) {
	p.ID = uuid.NewString()
	p.CreatedAt = s.now().UTC()

	if _, err := s.repo.GetEmployee(ctx, p.EmployeeID); err != nil {
		return domain.PayrollRecord{}, mapRepoError(err)
	}
	if err := s.repo.InsertPayrollRecord(ctx, p); err != nil {
		return domain.PayrollRecord{}, err
	}
	return p, nil
}

func (s *Service) ListPayrollRecords(ctx context.Context, employeeID string, limit int) ([]domain.PayrollRecord, error) {
	return s.repo.ListPayrollRecords(ctx, employeeID, limit)
}

func (s *Service) MarkPayrollPaid(ctx context.Context, id string) error {
	return mapRepoError(s.repo.MarkPayrollPaid(ctx, id, s.now().UTC()))
}
