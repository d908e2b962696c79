package api

import (
	"net/http"

	"example.com/coursetrack/internal/auth"
	"example.com/coursetrack/internal/curriculum"
)

func (h *Handler) dayView(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	day, ok := pathDay(w, r)
	if !ok {
		return
	}
	view, err := h.content.DayView(r.Context(), day)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDayView(view))
}

func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	plans, err := h.content.ListPlans(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	items := make([]PlanView, 0, len(plans))
	for _, plan := range plans {
		items = append(items, toPlanView(plan))
	}
	writeJSON(w, http.StatusOK, PlanListResponse{Items: items})
}

func (h *Handler) createPlan(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	var req CreatePlanRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	plan, err := h.content.CreatePlan(r.Context(), curriculum.LearningPlan{
		Name:      req.Name,
		TotalDays: req.TotalDays,
		Days:      req.Days,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanView(plan))
}

func (h *Handler) activatePlan(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	if err := h.content.SetActivePlan(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deletePlan(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	if err := h.content.DeletePlan(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) saveDayContent(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	day, ok := pathDay(w, r)
	if !ok {
		return
	}
	var req curriculum.GeneratedContent
	if !decodeBody(w, r, &req, false) {
		return
	}
	if err := h.content.SaveGeneratedContent(r.Context(), day, req, claims.Subject); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	overview, err := h.admin.Overview(r.Context(), h.now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOverviewView(overview))
}
