package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/crewbase/crewbase/internal/domain"
)

const dateLayout = "2006-01-02"

func (h *handler) handleOrgList(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.svc.ListOrganizations(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(orgs))
	for _, o := range orgs {
		items = append(items, mapOrganization(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"organizations": items})
}

func (h *handler) handleOrgCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string `json:"name"`
		Domain string `json:"domain"`
	}
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeValidationError(w, err)
		return
	}
	if req.Name == "" {
		writeValidationError(w, errors.New("name is required"))
		return
	}

	o, err := h.svc.CreateOrganization(r.Context(), req.Name, req.Domain)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapOrganization(o))
}

func (h *handler) handleOrgGet(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.GetOrganization(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrganization(o))
}

func (h *handler) handleOrgDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteOrganization(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleEmployeeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	activeOnly := q.Get("active") == "true"

	employees, err := h.svc.ListEmployees(r.Context(), q.Get("organization_id"), activeOnly, queryLimit(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(employees))
	for _, e := range employees {
		items = append(items, mapEmployee(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"employees": items})
}

func (h *handler) handleEmployeeUpsert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrganizationID string `json:"organization_id"`
		Email          string `json:"email"`
		FullName       string `json:"full_name"`
		Position       string `json:"position"`
		Department     string `json:"department"`
		HiredAt        string `json:"hired_at"`
		Active         *bool  `json:"active"`
	}
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeValidationError(w, err)
		return
	}
	if req.OrganizationID == "" || req.Email == "" || req.FullName == "" {
		writeValidationError(w, errors.New("organization_id, email and full_name are required"))
		return
	}

	hiredAt := h.now().UTC()
	if req.HiredAt != "" {
		parsed, err := time.Parse(dateLayout, req.HiredAt)
		if err != nil {
			writeValidationError(w, errors.New("hired_at must be YYYY-MM-DD"))
			return
		}
		hiredAt = parsed
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	e, err := h.svc.UpsertEmployee(r.Context(), domain.Employee{
		OrganizationID: req.OrganizationID,
		Email:          req.Email,
		FullName:       req.FullName,
		Position:       req.Position,
		Department:     req.Department,
		HiredAt:        hiredAt,
		Active:         active,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapEmployee(e))
}

func (h *handler) handleEmployeeGet(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapEmployee(e))
}

func (h *handler) handleEmployeeDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteEmployee(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleLeaveList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := domain.LeaveStatus(q.Get("status"))

	requests, err := h.svc.ListLeaveRequests(r.Context(), q.Get("employee_id"), status, queryLimit(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(requests))
	for _, lr := range requests {
		items = append(items, mapLeaveRequest(lr))
	}
	writeJSON(w, http.StatusOK, map[string]any{"leave_requests": items})
}

func (h *handler) handleLeaveCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmployeeID string `json:"employee_id"`
		Kind       string `json:"kind"`
		StartDate  string `json:"start_date"`
		EndDate    string `json:"end_date"`
		Reason     string `json:"reason"`
	}
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeValidationError(w, err)
		return
	}
	if req.EmployeeID == "" || req.Kind == "" {
		writeValidationError(w, errors.New("employee_id and kind are required"))
		return
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		writeValidationError(w, errors.New("start_date must be YYYY-MM-DD"))
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		writeValidationError(w, errors.New("end_date must be YYYY-MM-DD"))
		return
	}
	if end.Before(start) {
		writeValidationError(w, errors.New("end_date must not precede start_date"))
		return
	}

	lr, err := h.svc.CreateLeaveRequest(r.Context(), domain.LeaveRequest{
		EmployeeID: req.EmployeeID,
		Kind:       req.Kind,
		StartDate:  start,
		EndDate:    end,
		Reason:     req.Reason,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapLeaveRequest(lr))
}

func (h *handler) handleLeaveDecide(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action    string `json:"action"`
		DecidedBy string `json:"decided_by"`
	}
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeValidationError(w, err)
		return
	}
	if req.DecidedBy == "" {
		writeValidationError(w, errors.New("decided_by is required"))
		return
	}

	if err := h.svc.DecideLeaveRequest(r.Context(), chi.URLParam(r, "id"), req.Action, req.DecidedBy); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Action})
}

func (h *handler) handlePayrollList(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.ListPayrollRecords(r.Context(), r.URL.Query().Get("employee_id"), queryLimit(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(records))
	for _, p := range records {
		items = append(items, mapPayrollRecord(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"payroll_records": items})
}

func (h *handler) handlePayrollCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmployeeID  string `json:"employee_id"`
		PeriodStart string `json:"period_start"`
		PeriodEnd   string `json:"period_end"`
		GrossAmount int64  `json:"gross_amount"`
		NetAmount   int64  `json:"net_amount"`
		Currency    string `json:"currency"`
	}
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeValidationError(w, err)
		return
	}
	if req.EmployeeID == "" {
		writeValidationError(w, errors.New("employee_id is required"))
		return
	}
	if req.GrossAmount < 0 || req.NetAmount < 0 || req.NetAmount > req.GrossAmount {
		writeValidationError(w, errors.New("amounts must be non-negative and net must not exceed gross"))
		return
	}

	start, err := time.Parse(dateLayout, req.PeriodStart)
	if err != nil {
		writeValidationError(w, errors.New("period_start must be YYYY-MM-DD"))
		return
	}
	end, err := time.Parse(dateLayout, req.PeriodEnd)
	if err != nil {
		writeValidationError(w, errors.New("period_end must be YYYY-MM-DD"))
		return
	}

	p, err := h.svc.CreatePayrollRecord(r.Context(), domain.PayrollRecord{
		EmployeeID:  req.EmployeeID,
		PeriodStart: start,
		PeriodEnd:   end,
		GrossAmount: req.GrossAmount,
		NetAmount:   req.NetAmount,
		Currency:    req.Currency,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapPayrollRecord(p))
}

func (h *handler) handlePayrollPay(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkPayrollPaid(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paid"})
}

func mapOrganization(o domain.Organization) map[string]any {
	return map[string]any{
		"id":         o.ID,
		"name":       o.Name,
		"domain":     o.Domain,
		"created_at": formatTime(o.CreatedAt),
	}
}

func mapEmployee(e domain.Employee) map[string]any {
	return map[string]any{
		"id":              e.ID,
		"organization_id": e.OrganizationID,
		"email":           e.Email,
		"full_name":       e.FullName,
		"position":        e.Position,
		"department":      e.Department,
		"hired_at":        e.HiredAt.Format(dateLayout),
		"active":          e.Active,
		"created_at":      formatTime(e.CreatedAt),
		"updated_at":      formatTime(e.UpdatedAt),
	}
}

func mapLeaveRequest(lr domain.LeaveRequest) map[string]any {
	resp := map[string]any{
		"id":          lr.ID,
		"employee_id": lr.EmployeeID,
		"kind":        lr.Kind,
		"start_date":  lr.StartDate.Format(dateLayout),
		"end_date":    lr.EndDate.Format(dateLayout),
		"reason":      lr.Reason,
		"status":      lr.Status,
		"created_at":  formatTime(lr.CreatedAt),
	}
	if lr.DecidedBy != nil {
		resp["decided_by"] = *lr.DecidedBy
	}
	return resp
}

func mapPayrollRecord(p domain.PayrollRecord) map[string]any {
	resp := map[string]any{
		"id":           p.ID,
		"employee_id":  p.EmployeeID,
		"period_start": p.PeriodStart.Format(dateLayout),
		"period_end":   p.PeriodEnd.Format(dateLayout),
		"gross_amount": p.GrossAmount,
		"net_amount":   p.NetAmount,
		"currency":     p.Currency,
		"created_at":   formatTime(p.CreatedAt),
	}
	if p.PaidAt != nil {
		resp["paid_at"] = formatTime(*p.PaidAt)
	}
	return resp
}
