package reports

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/usgportal/issuance-registry/pkg/audit"
	"github.com/usgportal/issuance-registry/pkg/httpapi"
	"github.com/usgportal/issuance-registry/pkg/issuance"
)

// filterFromRequest parses the shared issuance filter query params.
func filterFromRequest(r *http.Request) issuance.ListFilter {
	q := r.URL.Query()
	filter := issuance.ListFilter{
		Status:     issuance.Status(q.Get("status")),
		Type:       issuance.DocType(q.Get("type")),
		Priority:   issuance.Priority(q.Get("priority")),
		Department: q.Get("department"),
		Category:   q.Get("category"),
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

// SummaryHandler handles GET /reports/summary.
func SummaryHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := agg.Summarize(filterFromRequest(r))
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		avgDays, resolved, err := agg.AverageResolutionDays(filterFromRequest(r))
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, map[string]any{
			"total":                 summary.Total,
			"byStatus":              summary.ByStatus,
			"byPriority":            summary.ByPriority,
			"averageResolutionDays": avgDays,
			"resolvedCount":         resolved,
		})
	}
}

// TrendsHandler handles GET /reports/trends?interval=monthly|quarterly.
func TrendsHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		interval := Interval(r.URL.Query().Get("interval"))
		if interval == "" {
			interval = IntervalMonthly
		}
		points, err := agg.Trends(filterFromRequest(r), interval)
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, points)
	}
}

// DepartmentsHandler handles GET /reports/departments.
func DepartmentsHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		breakdowns, err := agg.ByDepartment(filterFromRequest(r))
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, breakdowns)
	}
}

// DashboardHandler handles GET /reports/dashboard, composing the
// summary rollup with recent audit activity.
func DashboardHandler(agg *Aggregator, auditStore *audit.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := agg.Summarize(issuance.ListFilter{})
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		recent, err := auditStore.RecentActivity(10)
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, map[string]any{
			"summary":        summary,
			"recentActivity": recent,
		})
	}
}

// SearchHandler handles GET /reports/search?q=...
func SearchHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if query == "" {
			httpapi.WriteErr(w, httpapi.Validation("search query q is required"))
			return
		}
		opts := httpapi.PageOptsFromRequest(r)
		records, total, err := agg.Search(query, filterFromRequest(r), opts)
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, httpapi.NewPage(records, total, opts.Page, opts.Limit))
	}
}

// Router mounts the report endpoints.
func Router(agg *Aggregator, auditStore *audit.Store) chi.Router {
	r := chi.NewRouter()
	r.Get("/summary", SummaryHandler(agg))
	r.Get("/trends", TrendsHandler(agg))
	r.Get("/departments", DepartmentsHandler(agg))
	r.Get("/dashboard", DashboardHandler(agg, auditStore))
	r.Get("/search", SearchHandler(agg))
	return r
}

// ScheduleRouter mounts report schedule CRUD.
func ScheduleRouter(store *ScheduleStore) chi.Router {
	r := chi.NewRouter()
	r.Get("/", listSchedulesHandler(store))
	r.Post("/", createScheduleHandler(store))
	r.Get("/{id}", getScheduleHandler(store))
	r.Put("/{id}", updateScheduleHandler(store))
	r.Delete("/{id}", deleteScheduleHandler(store))
	return r
}

func listSchedulesHandler(store *ScheduleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := store.List()
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, records)
	}
}

func createScheduleHandler(store *ScheduleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input struct {
			ScheduleRecord
			Enabled *bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			httpapi.WriteErr(w, httpapi.Validation("invalid request body"))
			return
		}
		record := input.ScheduleRecord
		// Schedules start enabled unless the body says otherwise.
		record.Enabled = input.Enabled == nil || *input.Enabled
		if err := store.Create(&record); err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusCreated, record)
	}
}

func getScheduleHandler(store *ScheduleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		record, err := store.Get(id)
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		if record == nil {
			httpapi.WriteErr(w, httpapi.NotFound("report schedule %s not found", id))
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, record)
	}
}

func updateScheduleHandler(store *ScheduleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch SchedulePatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			httpapi.WriteErr(w, httpapi.Validation("invalid request body"))
			return
		}
		record, err := store.Update(chi.URLParam(r, "id"), &patch)
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, record)
	}
}

func deleteScheduleHandler(store *ScheduleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Delete(chi.URLParam(r, "id")); err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteMessage(w, http.StatusOK, "report schedule deleted")
	}
}
