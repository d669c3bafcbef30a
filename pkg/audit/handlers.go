package audit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/usgportal/issuance-registry/pkg/httpapi"
)

// ListLogsHandler handles GET /audit-logs.
// Query params: performedBy, action, entityType, entityId, startDate,
// endDate, page, limit, sortBy, sortOrder.
func ListLogsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := ListFilter{
			PerformedBy: q.Get("performedBy"),
			Action:      Action(q.Get("action")),
			EntityType:  EntityType(q.Get("entityType")),
			EntityID:    q.Get("entityId"),
		}
		if v := q.Get("startDate"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				filter.StartDate = &t
			} else {
				httpapi.WriteErr(w, httpapi.Validation("invalid startDate %q, expected RFC3339", v))
				return
			}
		}
		if v := q.Get("endDate"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				filter.EndDate = &t
			} else {
				httpapi.WriteErr(w, httpapi.Validation("invalid endDate %q, expected RFC3339", v))
				return
			}
		}

		opts := httpapi.PageOptsFromRequest(r)
		records, total, err := store.List(filter, opts)
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, httpapi.NewPage(records, total, opts.Page, opts.Limit))
	}
}

// EntityLogsHandler handles GET /audit-logs/entity/{entityType}/{entityId}.
func EntityLogsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entityType := EntityType(chi.URLParam(r, "entityType"))
		entityID := chi.URLParam(r, "entityId")

		opts := httpapi.PageOptsFromRequest(r)
		records, total, err := store.ListForEntity(entityType, entityID, opts)
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, httpapi.NewPage(records, total, opts.Page, opts.Limit))
	}
}

// RecentActivityHandler handles GET /audit-logs/recent?limit=N for
// dashboard display.
func RecentActivityHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 10
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		records, err := store.RecentActivity(limit)
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, records)
	}
}

// Router mounts the audit log read endpoints.
func Router(store *Store) chi.Router {
	r := chi.NewRouter()
	r.Get("/", ListLogsHandler(store))
	r.Get("/recent", RecentActivityHandler(store))
	r.Get("/entity/{entityType}/{entityId}", EntityLogsHandler(store))
	return r
}
