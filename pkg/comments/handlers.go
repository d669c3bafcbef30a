package comments

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/usgportal/issuance-registry/pkg/auth"
	"github.com/usgportal/issuance-registry/pkg/httpapi"
)

// ListHandler handles GET /issuances/{id}/comments. Internal comments
// appear only for admin callers requesting includeInternal=true.
func ListHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		opts := ListOpts{SortOrder: q.Get("sortOrder")}
		if v, err := strconv.Atoi(q.Get("page")); err == nil {
			opts.Page = v
		}
		if v, err := strconv.Atoi(q.Get("limit")); err == nil {
			opts.Limit = v
		}
		if v, _ := strconv.ParseBool(q.Get("includeInternal")); v {
			opts.IncludeInternal = auth.IsAdmin(r.Context())
		}

		records, total, err := svc.ListByIssuance(chi.URLParam(r, "id"), opts)
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		page := httpapi.PageOpts{Page: opts.Page, Limit: opts.Limit}.Clamp()
		httpapi.WriteJSON(w, http.StatusOK, httpapi.NewPage(records, total, page.Page, page.Limit))
	}
}

// CreateHandler handles POST /issuances/{id}/comments.
func CreateHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Content         string     `json:"content"`
			ParentCommentID string     `json:"parentCommentId"`
			Visibility      Visibility `json:"visibility"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httpapi.WriteErr(w, httpapi.Validation("invalid request body"))
			return
		}

		ctx := r.Context()
		record, err := svc.Create(chi.URLParam(r, "id"), auth.ActorFromContext(ctx), body.Content, body.ParentCommentID, body.Visibility, auth.IsAdmin(ctx))
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusCreated, record)
	}
}

// CountHandler handles GET /issuances/{id}/comments/count.
func CountHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := svc.CountByIssuance(chi.URLParam(r, "id"), auth.IsAdmin(r.Context()))
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, map[string]int64{"count": count})
	}
}

// UpdateHandler handles PUT /comments/{id}.
func UpdateHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httpapi.WriteErr(w, httpapi.Validation("invalid request body"))
			return
		}
		ctx := r.Context()
		record, err := svc.Update(chi.URLParam(r, "id"), auth.ActorFromContext(ctx), body.Content, auth.IsAdmin(ctx))
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, record)
	}
}

// DeleteHandler handles DELETE /comments/{id}.
func DeleteHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := svc.Delete(chi.URLParam(r, "id"), auth.ActorFromContext(ctx), auth.IsAdmin(ctx)); err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteMessage(w, http.StatusOK, "comment deleted")
	}
}
