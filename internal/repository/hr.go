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

func (r *Repository) InsertOrganization(ctx context.Context, org domain.Organization) error {
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO organizations (org_id, name, domain, created_at)
		VALUES ($1, $2, $3, $4)
	`, org.ID, org.Name, org.Domain, org.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert organization: %w", err)
	}
	return nil
}

func (r *Repository) GetOrganization(ctx context.Context, id string) (domain.Organization, error) {
	var org domain.Organization
	err := r.pool.QueryRow(ctx, `
		SELECT org_id, name, domain, created_at FROM organizations WHERE org_id = $1
	`, id).Scan(&org.ID, &org.Name, &org.Domain, &org.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Organization{}, ErrNotFound
	}
	if err != nil {
		return domain.Organization{}, fmt.Errorf("select organization: %w", err)
	}
	return org, nil
}

func (r *Repository) ListOrganizations(ctx context.Context) ([]domain.Organization, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT org_id, name, domain, created_at FROM organizations ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("select organizations: %w", err)
	}
	defer rows.Close()

	var orgs []domain.Organization
	for rows.Next() {
		var org domain.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.Domain, &org.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate organizations: %w", err)
	}
	return orgs, nil
}

func (r *Repository) DeleteOrganization(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM organizations WHERE org_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) UpsertEmployee(ctx context.Context, e domain.Employee) (domain.Employee, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO employees (employee_id, org_id, email, full_name, position, department, hired_at, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (email)
		DO UPDATE SET full_name = EXCLUDED.full_name,
		              position = EXCLUDED.position,
		              department = EXCLUDED.department,
		              active = EXCLUDED.active,
		              updated_at = EXCLUDED.updated_at
		RETURNING employee_id, created_at, updated_at
	`, e.ID, e.OrganizationID, e.Email, e.FullName, e.Position, e.Department, e.HiredAt, e.Active, e.CreatedAt).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return domain.Employee{}, fmt.Errorf("upsert employee: %w", err)
	}
	return e, nil
}

func (r *Repository) GetEmployee(ctx context.Context, id string) (domain.Employee, error) {
	var e domain.Employee
	err := r.pool.QueryRow(ctx, `
		SELECT employee_id, org_id, email, full_name, position, department, hired_at, active, created_at, updated_at
		FROM employees
		WHERE employee_id = $1
	`, id).Scan(&e.ID, &e.OrganizationID, &e.Email, &e.FullName, &e.Position, &e.Department,
		&e.HiredAt, &e.Active, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Employee{}, ErrNotFound
	}
	if err != nil {
		return domain.Employee{}, fmt.Errorf("select employee: %w", err)
	}
	return e, nil
}

func (r *Repository) ListEmployees(ctx context.Context, orgID string, activeOnly bool, limit int) ([]domain.Employee, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		SELECT employee_id, org_id, email, full_name, position, department, hired_at, active, created_at, updated_at
		FROM employees
		WHERE ($1 = '' OR org_id::text = $1)
		  AND (NOT $2 OR active)
		ORDER BY full_name
		LIMIT $3
	`, orgID, activeOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("select employees: %w", err)
	}
	defer rows.Close()

	var employees []domain.Employee
	for rows.Next() {
		var e domain.Employee
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.Email, &e.FullName, &e.Position,
			&e.Department, &e.HiredAt, &e.Active, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}
	return employees, nil
}

func (r *Repository) DeleteEmployee(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM employees WHERE employee_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) InsertLeaveRequest(ctx context.Context, lr domain.LeaveRequest) error {
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO leave_requests (leave_id, employee_id, kind, start_date, end_date, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, lr.ID, lr.EmployeeID, lr.Kind, lr.StartDate, lr.EndDate, lr.Reason, string(lr.Status), lr.CreatedAt); err != nil {
		return fmt.Errorf("insert leave request: %w", err)
	}
	return nil
}

func (r *Repository) ListLeaveRequests(ctx context.Context, employeeID string, status domain.LeaveStatus, limit int) ([]domain.LeaveRequest, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		SELECT leave_id, employee_id, kind, start_date, end_date, reason, status, decided_by, created_at
		FROM leave_requests
		WHERE ($1 = '' OR employee_id::text = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, employeeID, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("select leave requests: %w", err)
	}
	defer rows.Close()

	var requests []domain.LeaveRequest
	for rows.Next() {
		var lr domain.LeaveRequest
		var status string
		var decidedBy sql.NullString

		if err := rows.Scan(&lr.ID, &lr.EmployeeID, &lr.Kind, &lr.StartDate, &lr.EndDate,
			&lr.Reason, &status, &decidedBy, &lr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan leave request: %w", err)
		}
		lr.Status = domain.LeaveStatus(status)
		if decidedBy.Valid {
			v := decidedBy.String
			lr.DecidedBy = &v
		}
		requests = append(requests, lr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leave requests: %w", err)
	}
	return requests, nil
}

// DecideLeaveRequest moves a pending request to approved or rejected. Only
// pending requests can be decided, which doubles as the idempotency guard.
func (r *Repository) DecideLeaveRequest(ctx context.Context, id string, status domain.LeaveStatus, decidedBy string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leave_requests
		SET status = $2, decided_by = $3
		WHERE leave_id = $1 AND status = 'pending'
	`, id, string(status), decidedBy)
	if err != nil {
		return fmt.Errorf("decide leave request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) InsertPayrollRecord(ctx context.Context, p domain.PayrollRecord) error {
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO payroll_records (payroll_id, employee_id, period_start, period_end, gross_amount, net_amount, currency, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.EmployeeID, p.PeriodStart, p.PeriodEnd, p.GrossAmount, p.NetAmount, p.Currency, p.PaidAt, p.CreatedAt); err != nil {
		return fmt.Errorf("insert payroll record: %w", err)
	}
	return nil
}

func (r *Repository) ListPayrollRecords(ctx context.Context, employeeID string, limit int) ([]domain.PayrollRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		SELECT payroll_id, employee_id, period_start, period_end, gross_amount, net_amount, currency, paid_at, created_at
		FROM payroll_records
		WHERE ($1 = '' OR employee_id::text = $1)
		ORDER BY period_start DESC
		LIMIT $2
	`, employeeID, limit)
	if err != nil {
		return nil, fmt.Errorf("select payroll records: %w", err)
	}
	defer rows.Close()

	var records []domain.PayrollRecord
	for rows.Next() {
		var p domain.PayrollRecord
		var paidAt sql.NullTime

		if err := rows.Scan(&p.ID, &p.EmployeeID, &p.PeriodStart, &p.PeriodEnd,
			&p.GrossAmount, &p.NetAmount, &p.Currency, &paidAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payroll record: %w", err)
		}
		if paidAt.Valid {
			t := paidAt.Time
			p.PaidAt = &t
		}
		records = append(records, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payroll records: %w", err)
	}
	return records, nil
}

// MarkPayrollPaid stamps paid_at once; repeated calls keep the first stamp.
func (r *Repository) MarkPayrollPaid(ctx context.Context, id string, paidAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payroll_records
		SET paid_at = COALESCE(paid_at, $2)
		WHERE payroll_id = $1
	`, id, paidAt)
	if err != nil {
		return fmt.Errorf("mark payroll paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
