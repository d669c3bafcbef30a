package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageOpts_Clamp(t *testing.T) {
	tests := []struct {
		name string
		in   PageOpts
		want PageOpts
	}{
		{"zero values", PageOpts{}, PageOpts{Page: 1, Limit: 20, SortOrder: "desc"}},
		{"negative page", PageOpts{Page: -3, Limit: 10}, PageOpts{Page: 1, Limit: 10, SortOrder: "desc"}},
		{"limit capped", PageOpts{Page: 2, Limit: 500}, PageOpts{Page: 2, Limit: 100, SortOrder: "desc"}},
		{"asc preserved", PageOpts{Page: 1, Limit: 5, SortOrder: "ASC"}, PageOpts{Page: 1, Limit: 5, SortOrder: "asc"}},
		{"unknown order becomes desc", PageOpts{Page: 1, Limit: 5, SortOrder: "sideways"}, PageOpts{Page: 1, Limit: 5, SortOrder: "desc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Clamp()
			tt.want.SortBy = tt.in.SortBy
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPageOpts_Offset(t *testing.T) {
	opts := PageOpts{Page: 3, Limit: 20}.Clamp()
	assert.Equal(t, 40, opts.Offset())
}

func TestPageOptsFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=2&limit=50&sortBy=title&sortOrder=asc", nil)
	opts := PageOptsFromRequest(r)
	assert.Equal(t, PageOpts{Page: 2, Limit: 50, SortBy: "title", SortOrder: "asc"}, opts)

	r = httptest.NewRequest(http.MethodGet, "/?page=zzz&limit=", nil)
	opts = PageOptsFromRequest(r)
	assert.Equal(t, 1, opts.Page)
	assert.Equal(t, 20, opts.Limit)
}

func TestNewPage(t *testing.T) {
	page := NewPage([]string{"a", "b"}, 45, 2, 20)
	assert.Equal(t, int64(45), page.Total)
	assert.Equal(t, 3, page.TotalPages)

	page = NewPage(nil, 0, 1, 20)
	assert.Equal(t, 0, page.TotalPages)
}

func TestWriteErr(t *testing.T) {
	t.Run("status coder keeps its status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteErr(rec, NotFound("issuance %s not found", "iss-1"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		var env Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.False(t, env.Success)
		assert.Equal(t, "issuance iss-1 not found", env.Message)
	})

	t.Run("plain error becomes 500 without leaking detail", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteErr(rec, errors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		var env Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, "internal server error", env.Message)
	})
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"id": "iss-1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "iss-1", data["id"])
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		err    *Error
		code   string
		status int
	}{
		{NotFound("x"), "NOT_FOUND", 404},
		{Validation("x"), "VALIDATION_ERROR", 400},
		{Forbidden("x"), "FORBIDDEN", 403},
		{Unauthorized("x"), "UNAUTHORIZED", 401},
		{Conflict("x"), "CONFLICT", 409},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, tt.err.Code)
		assert.Equal(t, tt.status, tt.err.StatusCode())
	}
}
