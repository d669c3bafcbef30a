package departments

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/usgportal/issuance-registry/pkg/httpapi"
)

// ListHandler handles GET /admin/departments?activeOnly=true.
func ListHandler(registry *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("activeOnly"))
		records, err := registry.List(activeOnly)
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, records)
	}
}

// GetHandler handles GET /admin/departments/{id}.
func GetHandler(registry *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		record, err := registry.Get(id)
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		if record == nil {
			httpapi.WriteErr(w, httpapi.NotFound("department %s not found", id))
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, record)
	}
}

// CreateHandler handles POST /admin/departments.
func CreateHandler(registry *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input struct {
			Record
			IsActive *bool `json:"isActive"`
		}
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			httpapi.WriteErr(w, httpapi.Validation("invalid request body"))
			return
		}
		record := input.Record
		// New departments are active unless the body says otherwise.
		record.IsActive = input.IsActive == nil || *input.IsActive
		if err := registry.Create(&record); err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusCreated, record)
	}
}

// UpdateHandler handles PUT /admin/departments/{id}.
func UpdateHandler(registry *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch Record
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			httpapi.WriteErr(w, httpapi.Validation("invalid request body"))
			return
		}
		record, err := registry.Update(chi.URLParam(r, "id"), &patch)
		if err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, record)
	}
}

// DeleteHandler handles DELETE /admin/departments/{id}.
func DeleteHandler(registry *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := registry.Delete(chi.URLParam(r, "id")); err != nil {
			httpapi.WriteErr(w, err)
			return
		}
		httpapi.WriteMessage(w, http.StatusOK, "department deleted")
	}
}

// Router mounts the department CRUD endpoints.
func Router(registry *Registry) chi.Router {
	r := chi.NewRouter()
	r.Get("/", ListHandler(registry))
	r.Post("/", CreateHandler(registry))
	r.Get("/{id}", GetHandler(registry))
	r.Put("/{id}", UpdateHandler(registry))
	r.Delete("/{id}", DeleteHandler(registry))
	return r
}
