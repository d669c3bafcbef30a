package comments

import (
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/usgportal/issuance-registry/pkg/audit"
	"github.com/usgportal/issuance-registry/pkg/httpapi"
	"github.com/usgportal/issuance-registry/pkg/issuance"
)

type fixture struct {
	svc       *Service
	audit     *audit.Store
	issuances *issuance.Store
}

// newFixture creates an in-memory DB with one issuance ("iss-1") to
// comment on.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	issuanceStore := issuance.NewStore(db)
	require.NoError(t, issuanceStore.AutoMigrate())
	auditStore := audit.NewStore(db)
	require.NoError(t, auditStore.AutoMigrate())

	svc := NewService(db, issuanceStore, auditStore, nil)
	require.NoError(t, svc.AutoMigrate())

	require.NoError(t, issuanceStore.Create(&issuance.Record{
		ID:          "iss-1",
		Title:       "Budget Resolution",
		Type:        issuance.TypeResolution,
		DocumentURL: "https://docs.example.edu/res.pdf",
		Priority:    issuance.PriorityMedium,
		Status:      issuance.StatusPublished,
	}))

	return &fixture{svc: svc, audit: auditStore, issuances: issuanceStore}
}

func TestService_CreateAndList(t *testing.T) {
	f := newFixture(t)

	comment, err := f.svc.Create("iss-1", "student-1", "When does this take effect?", "", "", false)
	require.NoError(t, err)
	assert.Equal(t, VisibilityPublic, comment.Visibility)
	assert.False(t, comment.IsEdited)

	records, total, err := f.svc.ListByIssuance("iss-1", ListOpts{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, records, 1)
	assert.Equal(t, "student-1", records[0].AuthorID)

	entries, _, err := f.audit.ListForEntity(audit.EntityComment, comment.ID, httpapi.PageOpts{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionCommentCreate, entries[0].Action)
}

func TestService_ReadableAfterIssuanceSoftDelete(t *testing.T) {
	f := newFixture(t)

	comment, err := f.svc.Create("iss-1", "student-1", "Still relevant?", "", "", false)
	require.NoError(t, err)

	rec, err := f.issuances.Get("iss-1")
	require.NoError(t, err)
	rec.IsDeleted = true
	require.NoError(t, f.issuances.Save(rec))

	// The existing thread stays readable through the tombstone.
	records, total, err := f.svc.ListByIssuance("iss-1", ListOpts{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, records, 1)
	assert.Equal(t, comment.ID, records[0].ID)

	count, err := f.svc.CountByIssuance("iss-1", false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// New comments still require a live issuance.
	_, err = f.svc.Create("iss-1", "student-2", "Reopening this", "", "", false)
	require.Error(t, err)
	apiErr, ok := err.(*httpapi.Error)
	require.True(t, ok)
	assert.Equal(t, 404, apiErr.StatusCode())
}

func TestService_Create_MissingIssuance(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create("missing", "student-1", "hello", "", "", false)
	require.Error(t, err)
	apiErr, ok := err.(*httpapi.Error)
	require.True(t, ok)
	assert.Equal(t, 404, apiErr.StatusCode())
}

func TestService_Create_ContentValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create("iss-1", "student-1", "", "", "", false)
	require.Error(t, err)

	tooLong := strings.Repeat("x", 2001)
	_, err = f.svc.Create("iss-1", "student-1", tooLong, "", "", false)
	require.Error(t, err)

	// Exactly at the limit is accepted.
	_, err = f.svc.Create("iss-1", "student-1", strings.Repeat("x", 2000), "", "", false)
	require.NoError(t, err)
}

func TestService_Create_InternalVisibility(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create("iss-1", "student-1", "internal note", "", VisibilityInternal, false)
	require.Error(t, err)
	apiErr, ok := err.(*httpapi.Error)
	require.True(t, ok)
	assert.Equal(t, 403, apiErr.StatusCode())

	comment, err := f.svc.Create("iss-1", "admin-1", "internal note", "", VisibilityInternal, true)
	require.NoError(t, err)
	assert.Equal(t, VisibilityInternal, comment.Visibility)

	_, err = f.svc.Create("iss-1", "admin-1", "x", "", "SECRET", true)
	require.Error(t, err)
}

func TestService_VisibilityScoping(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create("iss-1", "student-1", "public question", "", "", false)
	require.NoError(t, err)
	_, err = f.svc.Create("iss-1", "admin-1", "internal note", "", VisibilityInternal, true)
	require.NoError(t, err)

	records, total, err := f.svc.ListByIssuance("iss-1", ListOpts{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, records, 1)
	assert.Equal(t, VisibilityPublic, records[0].Visibility)

	_, total, err = f.svc.ListByIssuance("iss-1", ListOpts{IncludeInternal: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	count, err := f.svc.CountByIssuance("iss-1", false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = f.svc.CountByIssuance("iss-1", true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestService_Replies(t *testing.T) {
	f := newFixture(t)

	parent, err := f.svc.Create("iss-1", "student-1", "top-level", "", "", false)
	require.NoError(t, err)

	reply, err := f.svc.Create("iss-1", "student-2", "a reply", parent.ID, "", false)
	require.NoError(t, err)
	assert.Equal(t, parent.ID, reply.ParentCommentID)

	// Replies cannot themselves be replied to.
	_, err = f.svc.Create("iss-1", "student-3", "nested", reply.ID, "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested")

	// Parent must exist.
	_, err = f.svc.Create("iss-1", "student-3", "orphan", "missing", "", false)
	require.Error(t, err)
	apiErr, ok := err.(*httpapi.Error)
	require.True(t, ok)
	assert.Equal(t, 404, apiErr.StatusCode())
}

func TestService_Reply_CrossIssuanceRejected(t *testing.T) {
	f := newFixture(t)

	// Second issuance with its own comment thread.
	issuanceStore := f.svc.issuances
	require.NoError(t, issuanceStore.Create(&issuance.Record{
		ID:          "iss-2",
		Title:       "Other",
		Type:        issuance.TypeMemorandum,
		DocumentURL: "u",
		Priority:    issuance.PriorityMedium,
		Status:      issuance.StatusPublished,
	}))

	parent, err := f.svc.Create("iss-1", "student-1", "top-level", "", "", false)
	require.NoError(t, err)

	_, err = f.svc.Create("iss-2", "student-2", "cross reply", parent.ID, "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different issuance")
}

func TestService_Update_AuthorOrAdmin(t *testing.T) {
	f := newFixture(t)

	comment, err := f.svc.Create("iss-1", "student-1", "original", "", "", false)
	require.NoError(t, err)

	_, err = f.svc.Update(comment.ID, "student-2", "hijacked", false)
	require.Error(t, err)
	apiErr, ok := err.(*httpapi.Error)
	require.True(t, ok)
	assert.Equal(t, 403, apiErr.StatusCode())

	updated, err := f.svc.Update(comment.ID, "student-1", "edited by author", false)
	require.NoError(t, err)
	assert.Equal(t, "edited by author", updated.Content)
	assert.True(t, updated.IsEdited)
	require.NotNil(t, updated.EditedAt)

	// Admins may edit anyone's comment.
	_, err = f.svc.Update(comment.ID, "admin-1", "moderated", true)
	require.NoError(t, err)

	entries, _, err := f.audit.ListForEntity(audit.EntityComment, comment.ID, httpapi.PageOpts{SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, entries, 3) // create + two edits
	assert.Equal(t, audit.ActionCommentUpdate, entries[1].Action)
	require.Len(t, entries[1].Changes, 1)
	assert.Equal(t, "original", entries[1].Changes[0].OldValue)
}

func TestService_Delete(t *testing.T) {
	f := newFixture(t)

	comment, err := f.svc.Create("iss-1", "student-1", "to be removed", "", "", false)
	require.NoError(t, err)

	require.Error(t, f.svc.Delete(comment.ID, "student-2", false))

	require.NoError(t, f.svc.Delete(comment.ID, "student-1", false))

	_, total, err := f.svc.ListByIssuance("iss-1", ListOpts{IncludeInternal: true})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	// The removed content survives in the audit trail.
	entries, _, err := f.audit.ListForEntity(audit.EntityComment, comment.ID, httpapi.PageOpts{SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, audit.ActionCommentDelete, entries[1].Action)
	require.Len(t, entries[1].Changes, 1)
	assert.Equal(t, "to be removed", entries[1].Changes[0].OldValue)

	require.Error(t, f.svc.Delete(comment.ID, "student-1", false))
}
