package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/evaluate"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/exclusion"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/repository"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/rules"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	svc      *evaluate.Service
	registry *exclusion.Registry
	exprs    *rules.ExprEngine
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, svc *evaluate.Service, registry *exclusion.Registry, exprs *rules.ExprEngine, version string) *Handler {
	return &Handler{
		repo:     repo,
		cache:    cache,
		svc:      svc,
		registry: registry,
		exprs:    exprs,
		version:  version,
	}
}

// DisclosureRequest is the request body for POST /evaluate.
type DisclosureRequest struct {
	ID             string         `json:"id,omitempty"`
	PersonID       string         `json:"personId"`
	Type           string         `json:"type"`
	RelatedCompany string         `json:"relatedCompany,omitempty"`
	RelatedPerson  string         `json:"relatedPerson,omitempty"`
	Value          float64        `json:"value,omitempty"`
	FactData       map[string]any `json:"factData,omitempty"`
	SubmittedAt    *time.Time     `json:"submittedAt,omitempty"`
}

// EvaluateResponse is the response for POST /evaluate.
type EvaluateResponse struct {
	*domain.EvaluationResult
	Metadata struct {
		TraceID string `json:"traceId"`
		Version string `json:"version"`
	} `json:"metadata"`
}

// Evaluate handles POST /evaluate requests.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := GetOrgID(ctx)
	traceID := GetTraceID(ctx)

	var req DisclosureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.PersonID == "" || req.Type == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "personId and type are required",
		})
		return
	}

	d := &domain.Disclosure{
		ID:             req.ID,
		OrgID:          orgID,
		PersonID:       req.PersonID,
		Type:           req.Type,
		RelatedCompany: req.RelatedCompany,
		RelatedPerson:  req.RelatedPerson,
		Value:          req.Value,
		FactData:       req.FactData,
	}
	if req.SubmittedAt != nil {
		d.SubmittedAt = req.SubmittedAt.UTC()
	}

	result, err := h.svc.EvaluateDisclosure(ctx, d)
	if err != nil {
		slog.Error("evaluation failed", "org_id", orgID, "error", err)
		writeError(w, err)
		return
	}

	resp := EvaluateResponse{EvaluationResult: result}
	resp.Metadata.TraceID = traceID
	resp.Metadata.Version = h.version

	writeJSON(w, http.StatusOK, resp)
}

// GetDisclosure retrieves a disclosure by ID.
func (h *Handler) GetDisclosure(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := GetOrgID(ctx)
	id := chi.URLParam(r, "id")

	d, err := h.repo.GetDisclosure(ctx, orgID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// ListAlerts returns alerts, optionally filtered by status.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := GetOrgID(ctx)

	status := domain.AlertStatus(r.URL.Query().Get("status"))
	limit := queryInt(r, "limit", 100)

	alerts, err := h.repo.ListAlerts(ctx, orgID, status, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// GetAlert retrieves an alert by ID.
func (h *Handler) GetAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := GetOrgID(ctx)
	id := chi.URLParam(r, "id")

	alert, err := h.repo.GetAlert(ctx, orgID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, alert)
}

// DismissRequest is the request body for POST /alerts/{id}/dismiss.
type DismissRequest struct {
	Category    string `json:"category"`
	Reason      string `json:"reason"`
	DismissedBy string `json:"dismissedBy,omitempty"`

	// CreateExclusion also registers a standing exclusion for the alert's
	// (person, entity, type), so the same finding is not raised again.
	CreateExclusion bool       `json:"createExclusion,omitempty"`
	ExclusionScope  string     `json:"exclusionScope,omitempty"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
}

// DismissAlert handles POST /alerts/{id}/dismiss.
func (h *Handler) DismissAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := GetOrgID(ctx)
	id := chi.URLParam(r, "id")

	var req DismissRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	// Load first so a dismissal-created exclusion can copy the match tuple.
	alert, err := h.repo.GetAlert(ctx, orgID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.repo.DismissAlert(ctx, orgID, id, req.Category, req.Reason, req.DismissedBy); err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{"status": string(domain.AlertDismissed)}

	if req.CreateExclusion {
		scope := domain.ExclusionScope(req.ExclusionScope)
		if scope == "" {
			scope = domain.ScopePermanent
		}
		excl, err := h.registry.Create(ctx, exclusion.CreateInput{
			OrgID:         orgID,
			PersonID:      alert.PersonID,
			MatchedEntity: alert.MatchedEntity,
			Type:          alert.Type,
			Scope:         scope,
			ExpiresAt:     req.ExpiresAt,
			SourceAlertID: alert.ID,
			CreatedBy:     req.DismissedBy,
		})
		if err != nil {
			slog.Error("failed to create exclusion from dismissal",
				"alert_id", id, "org_id", orgID, "error", err)
			resp["exclusionError"] = err.Error()
		} else {
			if err := h.repo.LinkAlertExclusion(ctx, orgID, id, excl.ID); err != nil {
				slog.Error("failed to link exclusion to alert",
					"alert_id", id, "exclusion_id", excl.ID, "error", err)
			}
			resp["exclusion"] = excl
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// EscalateRequest is the request body for POST /alerts/{id}/escalate.
type EscalateRequest struct {
	CaseID string `json:"caseId"`
}

// EscalateAlert handles POST /alerts/{id}/escalate.
func (h *Handler) EscalateAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := GetOrgID(ctx)
	id := chi.URLParam(r, "id")

	var req EscalateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if err := h.repo.EscalateAlert(ctx, orgID, id, req.CaseID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": string(domain.AlertEscalated),
		"caseId": req.CaseID,
	})
}

// ResolveAlert handles POST /alerts/{id}/resolve.
func (h *Handler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := GetOrgID(ctx)
	id := chi.URLParam(r, "id")

	if err := h.repo.ResolveAlert(ctx, orgID, id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": string(domain.AlertResolved),
	})
}

// ExclusionRequest is the request body for POST /exclusions.
type ExclusionRequest struct {
	PersonID      string     `json:"personId"`
	MatchedEntity string     `json:"matchedEntity"`
	Type          string     `json:"type"`
	Scope         string     `json:"scope"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	CreatedBy     string     `json:"createdBy,omitempty"`
}

// CreateExclusion handles POST /exclusions.
func (h *Handler) CreateExclusion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := GetOrgID(ctx)

	var req ExclusionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	ct, ok := parseConflictType(req.Type)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "unknown conflict type: " + req.Type,
		})
		return
	}

	excl, err := h.registry.Create(ctx, exclusion.CreateInput{
		OrgID:         orgID,
		PersonID:      req.PersonID,
		MatchedEntity: req.MatchedEntity,
		Type:          ct,
		Scope:         domain.ExclusionScope(req.Scope),
		ExpiresAt:     req.ExpiresAt,
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			writeJSON(w, http.StatusConflict, map[string]string{
				"error": err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusCreated, excl)
}

// ListExclusions handles GET /exclusions.
func (h *Handler) ListExclusions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := GetOrgID(ctx)

	activeOnly := r.URL.Query().Get("active") == "true"
	limit := queryInt(r, "limit", 100)

	exclusions, err := h.repo.ListExclusions(ctx, orgID, activeOnly, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"exclusions": exclusions,
		"count":      len(exclusions),
	})
}

// DeactivateExclusion handles POST /exclusions/{id}/deactivate.
func (h *Handler) DeactivateExclusion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := GetOrgID(ctx)
	id := chi.URLParam(r, "id")

	if err := h.registry.Deactivate(ctx, orgID, id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "deactivated",
	})
}

// ListRules handles GET /rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := GetOrgID(ctx)

	activeOnly := r.URL.Query().Get("active") == "true"

	ruleList, err := h.repo.ListRules(ctx, orgID, activeOnly)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rules": ruleList,
		"count": len(ruleList),
	})
}

// GetRule handles GET /rules/{id}.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := GetOrgID(ctx)
	id := chi.URLParam(r, "id")

	rule, err := h.repo.GetRule(ctx, orgID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// CreateRule handles POST /rules. The rule's structure and any CEL
// expression are validated at write time so evaluation never sees
// malformed config.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	h.saveRule(w, r, "")
}

// UpdateRule handles PUT /rules/{id}.
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	h.saveRule(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) saveRule(w http.ResponseWriter, r *http.Request, ruleID string) {
	ctx := r.Context()
	orgID := GetOrgID(ctx)

	var rule domain.ThresholdRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	created := ruleID == ""
	if ruleID != "" {
		rule.ID = ruleID
	}
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	rule.OrgID = orgID
	if rule.ApplyMode == "" {
		rule.ApplyMode = domain.ApplyForward
	}

	if err := rule.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}
	if rule.Expression != "" {
		if err := h.exprs.Validate(rule.Expression); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid expression: " + err.Error(),
			})
			return
		}
	}

	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	// An update may narrow the rule's disclosure types; the previous
	// version's cached rule sets go stale too.
	staleTypes := rule.DisclosureTypes
	if !created {
		if prev, err := h.repo.GetRule(ctx, orgID, rule.ID); err == nil {
			staleTypes = append(staleTypes, prev.DisclosureTypes...)
		}
	}

	if err := h.repo.SaveRule(ctx, orgID, &rule); err != nil {
		writeError(w, err)
		return
	}

	// Drop any stale compiled program for this rule and the cached rule
	// sets it belongs to, so the change applies on the next evaluation.
	h.exprs.Remove(rule.ID)
	rules.InvalidateRuleCache(ctx, h.cache, orgID, staleTypes)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	slog.Info("rule saved", "id", rule.ID, "name", rule.Name, "org_id", orgID)
	writeJSON(w, status, &rule)
}

// DeactivateRule handles DELETE /rules/{id}. Rules are never deleted, only
// deactivated, so trigger logs keep a valid reference.
func (h *Handler) DeactivateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := GetOrgID(ctx)
	id := chi.URLParam(r, "id")

	rule, err := h.repo.GetRule(ctx, orgID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.repo.DeactivateRule(ctx, orgID, id); err != nil {
		writeError(w, err)
		return
	}

	h.exprs.Remove(id)
	rules.InvalidateRuleCache(ctx, h.cache, orgID, rule.DisclosureTypes)

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "deactivated",
	})
}

// EntityTimeline handles GET /entities/{name}/timeline: every alert and
// disclosure that names the entity, oldest disclosure first.
func (h *Handler) EntityTimeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := GetOrgID(ctx)
	name := chi.URLParam(r, "name")

	limit := queryInt(r, "limit", 100)

	alerts, err := h.repo.ListAlertsByEntity(ctx, orgID, name, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	disclosures, err := h.repo.ListDisclosuresInWindow(ctx, orgID, "", name,
		time.Time{}, time.Now().UTC().Add(time.Hour), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entity":      name,
		"alerts":      alerts,
		"disclosures": disclosures,
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func parseConflictType(s string) (domain.ConflictType, bool) {
	switch ct := domain.ConflictType(s); ct {
	case domain.ConflictSelfDealing,
		domain.ConflictHRISMatch,
		domain.ConflictPriorCaseHistory,
		domain.ConflictRelationship,
		domain.ConflictVendorMatch:
		return ct, true
	default:
		return "", false
	}
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// writeError maps repository sentinel errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, repository.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, repository.ErrDuplicate):
		status = http.StatusConflict
	}

	writeJSON(w, status, map[string]string{
		"error": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
