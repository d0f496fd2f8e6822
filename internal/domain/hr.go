package domain

import "time"

// Organization is a tenant: a company with employees and HR records.
type Organization struct {
	ID        string
	Name      string
	Domain    string
	CreatedAt time.Time
}

type Employee struct {
	ID             string
	OrganizationID string
	Email          string
	FullName       string
	Position       string
	Department     string
	HiredAt        time.Time
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type LeaveStatus string

const (
	LeaveStatusPending  LeaveStatus = "pending"
	LeaveStatusApproved LeaveStatus = "approved"
	LeaveStatusRejected LeaveStatus = "rejected"
)

type LeaveRequest struct {
	ID         string
	EmployeeID string
	Kind       string
	StartDate  time.Time
	EndDate    time.Time
	Reason     string
	Status     LeaveStatus
	DecidedBy  *string
	CreatedAt  time.Time
}

type PayrollRecord struct {
	ID          string
	EmployeeID  string
	PeriodStart time.Time
	PeriodEnd   time.Time
	GrossAmount int64
	NetAmount   int64
	Currency    string
	PaidAt      *time.Time
	CreatedAt   time.Time
}
