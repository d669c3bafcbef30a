package issuance

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/usgportal/issuance-registry/pkg/auth"
	"github.com/usgportal/issuance-registry/pkg/httpapi"
)

// filterFromRequest parses the shared filter query params.
func filterFromRequest(r *http.Request) ListFilter {
	q := r.URL.Query()
	filter := ListFilter{
		Status:     Status(q.Get("status")),
		Type:       DocType(q.Get("type")),
		Priority:   Priority(q.Get("priority")),
		Department: q.Get("department"),
		Category:   q.Get("category"),
		Search:     q.Get("search"),
	}
	if v := q.Get("startDate"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.StartDate = &t
		}
	}
	if v := q.Get("endDate"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.EndDate = &t
		}
	}
	return filter
}

// PublishedHandler handles GET /issuances: public, PUBLISHED only.
func PublishedHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := httpapi.PageOptsFromRequest(r)
		records, total, err := svc.ListPublished(opts)
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, httpapi.NewPage(records, total, opts.Page, opts.Limit))
	}
}

// ListHandler handles GET /admin/issuances: any status, filtered.
func ListHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := httpapi.PageOptsFromRequest(r)
		records, total, err := svc.List(filterFromRequest(r), opts)
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, httpapi.NewPage(records, total, opts.Page, opts.Limit))
	}
}

// GetHandler handles GET /admin/issuances/{id}.
func GetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := svc.Get(chi.URLParam(r, "id"))
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, detail)
	}
}

// CreateHandler handles POST /admin/issuances.
func CreateHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CreateInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			httpapi.WriteErr(w, httpapi.Validation("invalid request body"))
			return
		}
		record, err := svc.Create(input, auth.ActorFromContext(r.Context()))
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusCreated, record)
	}
}

// UpdateHandler handles PUT /admin/issuances/{id}.
func UpdateHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch UpdateInput
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			httpapi.WriteErr(w, httpapi.Validation("invalid request body"))
			return
		}
		record, err := svc.Update(chi.URLParam(r, "id"), patch, auth.ActorFromContext(r.Context()))
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, record)
	}
}

// UpdateStatusHandler handles PATCH /admin/issuances/{id}/status.
// Body: {status, reason}. Missing status or an invalid transition is a 400.
func UpdateStatusHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Status Status `json:"status"`
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httpapi.WriteErr(w, httpapi.Validation("invalid request body"))
			return
		}
		if body.Status == "" {
			httpapi.WriteErr(w, httpapi.Validation("status is required"))
			return
		}
		record, err := svc.UpdateStatus(chi.URLParam(r, "id"), body.Status, auth.ActorFromContext(r.Context()), body.Reason)
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, record)
	}
}

// ValidStatusesHandler handles GET /admin/issuances/{id}/valid-statuses.
func ValidStatusesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		options, err := svc.ValidStatuses(chi.URLParam(r, "id"))
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, options)
	}
}

// AddAttachmentHandler handles POST /admin/issuances/{id}/attachments.
func AddAttachmentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input AttachmentInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			httpapi.WriteErr(w, httpapi.Validation("invalid request body"))
			return
		}
		att, err := svc.AddAttachment(chi.URLParam(r, "id"), input, auth.ActorFromContext(r.Context()))
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusCreated, att)
	}
}

// RemoveAttachmentHandler handles DELETE /admin/issuances/{id}/attachments/{attachmentId}.
func RemoveAttachmentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.RemoveAttachment(chi.URLParam(r, "id"), chi.URLParam(r, "attachmentId"), auth.ActorFromContext(r.Context()))
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteMessage(w, http.StatusOK, "attachment removed")
	}
}

// StatusHistoryHandler handles GET /admin/issuances/{id}/status-history.
func StatusHistoryHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.StatusHistory(chi.URLParam(r, "id"))
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, entries)
	}
}

// VersionHistoryHandler handles GET /admin/issuances/{id}/version-history.
func VersionHistoryHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.VersionHistory(chi.URLParam(r, "id"))
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, entries)
	}
}

// DeleteHandler handles DELETE /admin/issuances/{id}: soft delete.
func DeleteHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := svc.Delete(chi.URLParam(r, "id"), auth.ActorFromContext(r.Context())); err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteMessage(w, http.StatusOK, "issuance deleted")
	}
}

// AssignDepartmentHandler handles POST /admin/issuances/{id}/department.
// Body: {department, reason}.
func AssignDepartmentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Department string `json:"department"`
			Reason     string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httpapi.WriteErr(w, httpapi.Validation("invalid request body"))
			return
		}
		record, err := svc.AssignDepartment(chi.URLParam(r, "id"), body.Department, auth.ActorFromContext(r.Context()), body.Reason)
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, record)
	}
}

// AdminRouter mounts the admin issuance endpoints.
func AdminRouter(svc *Service) chi.Router {
	r := chi.NewRouter()
	r.Get("/", ListHandler(svc))
	r.Post("/", CreateHandler(svc))
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", GetHandler(svc))
		r.Put("/", UpdateHandler(svc))
		r.Delete("/", DeleteHandler(svc))
		r.Patch("/status", UpdateStatusHandler(svc))
		r.Get("/valid-statuses", ValidStatusesHandler(svc))
		r.Post("/attachments", AddAttachmentHandler(svc))
		r.Delete("/attachments/{attachmentId}", RemoveAttachmentHandler(svc))
		r.Get("/status-history", StatusHistoryHandler(svc))
		r.Get("/version-history", VersionHistoryHandler(svc))
		r.Post("/department", AssignDepartmentHandler(svc))
	})
	return r
}
