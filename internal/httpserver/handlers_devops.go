package httpserver

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/crewbase/crewbase/internal/repository"
)

func (h *handler) handlePipelineList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.PipelineFilter{
		Status:      domain.PipelineStatus(q.Get("status")),
		Environment: domain.Environment(q.Get("environment")),
		Branch:      q.Get("branch"),
		Limit:       queryLimit(r),
	}

	pipelines, err := h.svc.ListPipelines(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(pipelines))
	for _, p := range pipelines {
		items = append(items, mapPipeline(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"pipelines": items})
}

func (h *handler) handlePipelineGet(w http.ResponseWriter, r *http.Request) {
	p, jobs, err := h.svc.GetPipeline(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	jobItems := make([]map[string]any, 0, len(jobs))
	for _, j := range jobs {
		jobItems = append(jobItems, mapPipelineJob(j))
	}
	resp := mapPipeline(p)
	resp["jobs"] = jobItems
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handlePipelineAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
	}
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeValidationError(w, err)
		return
	}

	p, err := h.svc.PipelineAction(r.Context(), chi.URLParam(r, "id"), req.Action)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapPipeline(p))
}

func (h *handler) handlePipelineRefresh(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.RefreshPipeline(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapPipeline(p))
}

func (h *handler) handlePipelineDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePipeline(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleMergeRequestList(w http.ResponseWriter, r *http.Request) {
	status := domain.MergeRequestStatus(r.URL.Query().Get("status"))

	mrs, err := h.svc.ListMergeRequests(r.Context(), status, queryLimit(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(mrs))
	for _, mr := range mrs {
		items = append(items, mapMergeRequest(mr))
	}
	writeJSON(w, http.StatusOK, map[string]any{"merge_requests": items})
}

func (h *handler) handleMergeRequestGet(w http.ResponseWriter, r *http.Request) {
	number, err := pathInt64(r, chi.URLParam(r, "number"))
	if err != nil {
		writeValidationError(w, err)
		return
	}

	mr, approvals, err := h.svc.GetMergeRequest(r.Context(), number)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	approvalItems := make([]map[string]any, 0, len(approvals))
	for _, a := range approvals {
		approvalItems = append(approvalItems, mapApproval(a))
	}
	resp := mapMergeRequest(mr)
	resp["approval_history"] = approvalItems
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleMergeRequestAction(w http.ResponseWriter, r *http.Request) {
	number, err := pathInt64(r, chi.URLParam(r, "number"))
	if err != nil {
		writeValidationError(w, err)
		return
	}

	var req struct {
		Action   string `json:"action"`
		Approver string `json:"approver"`
		Comment  string `json:"comment"`
	}
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeValidationError(w, err)
		return
	}
	if req.Approver == "" {
		writeValidationError(w, errors.New("approver is required"))
		return
	}

	action := domain.ApprovalAction(req.Action)
	if action != domain.ApprovalActionApprove && action != domain.ApprovalActionReject {
		writeValidationError(w, errors.New("action must be approve or reject"))
		return
	}

	mr, err := h.svc.SubmitApproval(r.Context(), number, req.Approver, action, req.Comment)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapMergeRequest(mr))
}

func (h *handler) handleMergeRequestRefresh(w http.ResponseWriter, r *http.Request) {
	number, err := pathInt64(r, chi.URLParam(r, "number"))
	if err != nil {
		writeValidationError(w, err)
		return
	}

	mr, err := h.svc.RefreshMergeRequest(r.Context(), number)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapMergeRequest(mr))
}

func (h *handler) handleRequiredApprovals(w http.ResponseWriter, r *http.Request) {
	number, err := pathInt64(r, chi.URLParam(r, "number"))
	if err != nil {
		writeValidationError(w, err)
		return
	}

	var req struct {
		RequiredApprovals int `json:"required_approvals"`
	}
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeValidationError(w, err)
		return
	}

	mr, err := h.svc.SetRequiredApprovals(r.Context(), number, req.RequiredApprovals)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapMergeRequest(mr))
}

func (h *handler) handleMergeRequestDelete(w http.ResponseWriter, r *http.Request) {
	number, err := pathInt64(r, chi.URLParam(r, "number"))
	if err != nil {
		writeValidationError(w, err)
		return
	}
	if err := h.svc.DeleteMergeRequest(r.Context(), number); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleDeploymentList(w http.ResponseWriter, r *http.Request) {
	environment := domain.Environment(r.URL.Query().Get("environment"))

	deployments, err := h.svc.ListDeployments(r.Context(), environment, queryLimit(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(deployments))
	for _, d := range deployments {
		items = append(items, mapDeployment(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"deployments": items})
}

func (h *handler) handleDeploymentCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Environment string  `json:"environment"`
		Version     string  `json:"version"`
		PipelineID  *string `json:"pipeline_id"`
		DeployedBy  string  `json:"deployed_by"`
	}
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeValidationError(w, err)
		return
	}
	if req.Environment == "" || req.Version == "" {
		writeValidationError(w, errors.New("environment and version are required"))
		return
	}

	d, err := h.svc.CreateDeployment(r.Context(), domain.Deployment{
		Environment: domain.Environment(req.Environment),
		Version:     req.Version,
		PipelineID:  req.PipelineID,
		DeployedBy:  req.DeployedBy,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapDeployment(d))
}

func (h *handler) handleDeploymentUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
		Health string `json:"health"`
	}
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeValidationError(w, err)
		return
	}

	err := h.svc.UpdateDeployment(r.Context(), chi.URLParam(r, "id"),
		domain.DeploymentStatus(req.Status), domain.DeploymentHealth(req.Health))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *handler) handleDeploymentDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteDeployment(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleFlagList(w http.ResponseWriter, r *http.Request) {
	environment := domain.Environment(r.URL.Query().Get("environment"))

	flags, err := h.svc.ListFeatureFlags(r.Context(), environment)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(flags))
	for _, f := range flags {
		items = append(items, mapFeatureFlag(f))
	}
	writeJSON(w, http.StatusOK, map[string]any{"feature_flags": items})
}

func (h *handler) handleFlagUpsert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name              string                 `json:"name"`
		Description       string                 `json:"description"`
		Enabled           bool                   `json:"enabled"`
		Environment       string                 `json:"environment"`
		RolloutPercentage int                    `json:"rollout_percentage"`
		Conditions        []domain.FlagCondition `json:"conditions"`
		Metadata          map[string]string      `json:"metadata"`
		CreatedBy         string                 `json:"created_by"`
	}
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeValidationError(w, err)
		return
	}
	if req.Name == "" {
		writeValidationError(w, errors.New("name is required"))
		return
	}
	if req.RolloutPercentage < 0 || req.RolloutPercentage > 100 {
		writeValidationError(w, errors.New("rollout_percentage must be between 0 and 100"))
		return
	}

	f, err := h.svc.UpsertFeatureFlag(r.Context(), domain.FeatureFlag{
		Name:              req.Name,
		Description:       req.Description,
		Enabled:           req.Enabled,
		Environment:       domain.Environment(req.Environment),
		RolloutPercentage: req.RolloutPercentage,
		Conditions:        req.Conditions,
		Metadata:          req.Metadata,
		CreatedBy:         req.CreatedBy,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapFeatureFlag(f))
}

func (h *handler) handleFlagGet(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.GetFeatureFlag(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapFeatureFlag(f))
}

func (h *handler) handleFlagToggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.svc.SetFeatureFlagEnabled(r.Context(), chi.URLParam(r, "name"), req.Enabled); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"enabled": req.Enabled})
}

func (h *handler) handleFlagDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteFeatureFlag(r.Context(), chi.URLParam(r, "name")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleFlagEvaluate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject    string            `json:"subject"`
		Attributes map[string]string `json:"attributes"`
	}
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeValidationError(w, err)
		return
	}
	if req.Subject == "" {
		writeValidationError(w, errors.New("subject is required"))
		return
	}

	name := chi.URLParam(r, "name")
	enabled, err := h.svc.EvaluateFeatureFlag(r.Context(), name, req.Subject, req.Attributes)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    name,
		"subject": req.Subject,
		"enabled": enabled,
	})
}

func (h *handler) handleNotificationList(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.svc.ListNotifications(r.Context(), queryLimit(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, map[string]any{
			"id":         n.ID,
			"kind":       n.Kind,
			"title":      n.Title,
			"body":       n.Body,
			"status":     n.Status,
			"created_at": formatTime(n.CreatedAt),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": items})
}

func (h *handler) handleIntegrationList(w http.ResponseWriter, r *http.Request) {
	integrations, err := h.svc.ListIntegrations(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(integrations))
	for _, i := range integrations {
		items = append(items, mapIntegration(i))
	}
	writeJSON(w, http.StatusOK, map[string]any{"integrations": items})
}

func (h *handler) handleIntegrationCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		Kind       string `json:"kind"`
		WebhookURL string `json:"webhook_url"`
		CreatedBy  string `json:"created_by"`
	}
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeValidationError(w, err)
		return
	}
	if req.Name == "" || req.Kind == "" {
		writeValidationError(w, errors.New("name and kind are required"))
		return
	}

	i, err := h.svc.CreateIntegration(r.Context(), domain.Integration{
		Name:       req.Name,
		Kind:       req.Kind,
		WebhookURL: req.WebhookURL,
		CreatedBy:  req.CreatedBy,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapIntegration(i))
}

func (h *handler) handleIntegrationAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
	}
	if err := decodeJSON(r.Context(), r.Body, &req); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.svc.DecideIntegration(r.Context(), chi.URLParam(r, "id"), req.Action); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Action})
}

func mapPipeline(p domain.Pipeline) map[string]any {
	resp := map[string]any{
		"id":          p.ID,
		"branch":      p.Branch,
		"commit_sha":  p.CommitSHA,
		"author":      p.Author,
		"message":     p.Message,
		"status":      p.Status,
		"environment": p.Environment,
		"started_at":  formatTime(p.StartedAt),
	}
	if p.WorkflowFile != nil {
		resp["workflow_file"] = *p.WorkflowFile
	}
	if p.FinishedAt != nil {
		resp["finished_at"] = formatTime(*p.FinishedAt)
	}
	return resp
}

func mapPipelineJob(j domain.PipelineJob) map[string]any {
	resp := map[string]any{
		"id":               j.ID,
		"name":             j.Name,
		"status":           j.Status,
		"duration_seconds": j.Duration.Seconds(),
	}
	if j.StartedAt != nil {
		resp["started_at"] = formatTime(*j.StartedAt)
	}
	if j.FinishedAt != nil {
		resp["finished_at"] = formatTime(*j.FinishedAt)
	}
	return resp
}

func mapMergeRequest(mr domain.MergeRequest) map[string]any {
	return map[string]any{
		"id":                  mr.ID,
		"number":              mr.ExternalID,
		"title":               mr.Title,
		"description":         mr.Description,
		"author":              mr.Author,
		"source_branch":       mr.SourceBranch,
		"target_branch":       mr.TargetBranch,
		"status":              mr.Status,
		"approvals":           mr.Approvals,
		"required_approvals":  mr.RequiredApprovals,
		"approvals_satisfied": mr.ApprovalsSatisfied,
		"pipeline_status":     mr.PipelineStatus,
		"additions":           mr.Additions,
		"deletions":           mr.Deletions,
		"files_changed":       mr.FilesChanged,
		"conflicts":           mr.Conflicts,
		"created_at":          formatTime(mr.CreatedAt),
		"updated_at":          formatTime(mr.UpdatedAt),
	}
}

func mapApproval(a domain.MergeApproval) map[string]any {
	return map[string]any{
		"id":         a.ID,
		"approver":   a.Approver,
		"action":     a.Action,
		"comment":    a.Comment,
		"created_at": formatTime(a.CreatedAt),
	}
}

func mapDeployment(d domain.Deployment) map[string]any {
	resp := map[string]any{
		"id":          d.ID,
		"environment": d.Environment,
		"version":     d.Version,
		"status":      d.Status,
		"health":      d.Health,
		"deployed_by": d.DeployedBy,
		"deployed_at": formatTime(d.DeployedAt),
	}
	if d.PipelineID != nil {
		resp["pipeline_id"] = *d.PipelineID
	}
	return resp
}

func mapFeatureFlag(f domain.FeatureFlag) map[string]any {
	return map[string]any{
		"id":                 f.ID,
		"name":               f.Name,
		"description":        f.Description,
		"enabled":            f.Enabled,
		"environment":        f.Environment,
		"rollout_percentage": f.RolloutPercentage,
		"conditions":         f.Conditions,
		"metadata":           f.Metadata,
		"created_by":         f.CreatedBy,
		"created_at":         formatTime(f.CreatedAt),
		"updated_at":         formatTime(f.UpdatedAt),
	}
}

func mapIntegration(i domain.Integration) map[string]any {
	return map[string]any{
		"id":          i.ID,
		"name":        i.Name,
		"kind":        i.Kind,
		"webhook_url": i.WebhookURL,
		"status":      i.Status,
		"created_by":  i.CreatedBy,
		"created_at":  formatTime(i.CreatedAt),
	}
}
