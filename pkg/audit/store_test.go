package audit

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/usgportal/issuance-registry/pkg/httpapi"
)

// newTestStore creates an in-memory SQLite DB with audit tables migrated.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store := NewStore(db)
	require.NoError(t, store.AutoMigrate())
	return store
}

func TestStore_AppendGet(t *testing.T) {
	store := newTestStore(t)

	entry := &LogRecord{
		ID:          "log-1",
		PerformedBy: "alice",
		Action:      ActionStatusChange,
		EntityType:  EntityIssuance,
		EntityID:    "iss-1",
		Description: "Changed status from DRAFT to PENDING",
		Changes:     ChangeList{{Field: "status", OldValue: "DRAFT", NewValue: "PENDING"}},
		Metadata:    JSONAny{"reason": "submitted for review"},
	}
	require.NoError(t, store.Append(entry))

	got, err := store.GetByID("log-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.PerformedBy)
	assert.Equal(t, ActionStatusChange, got.Action)
	require.Len(t, got.Changes, 1)
	assert.Equal(t, "status", got.Changes[0].Field)
	assert.Equal(t, "submitted for review", got.Metadata["reason"])
	assert.False(t, got.CreatedAt.IsZero())

	got, err = store.GetByID("missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func seedEntries(t *testing.T, store *Store) {
	t.Helper()
	entries := []*LogRecord{
		{ID: "l1", PerformedBy: "alice", Action: ActionCreate, EntityType: EntityIssuance, EntityID: "iss-1", CreatedAt: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)},
		{ID: "l2", PerformedBy: "bob", Action: ActionStatusChange, EntityType: EntityIssuance, EntityID: "iss-1", CreatedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)},
		{ID: "l3", PerformedBy: "alice", Action: ActionCommentCreate, EntityType: EntityComment, EntityID: "com-1", CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		{ID: "l4", PerformedBy: "carol", Action: ActionDelete, EntityType: EntityIssuance, EntityID: "iss-2", CreatedAt: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)},
	}
	for _, e := range entries {
		require.NoError(t, store.Append(e))
	}
}

func TestStore_ListFilters(t *testing.T) {
	store := newTestStore(t)
	seedEntries(t, store)

	feb := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		filter  ListFilter
		wantIDs []string
	}{
		{"no filter", ListFilter{}, []string{"l1", "l2", "l3", "l4"}},
		{"by actor", ListFilter{PerformedBy: "alice"}, []string{"l1", "l3"}},
		{"by action", ListFilter{Action: ActionStatusChange}, []string{"l2"}},
		{"by entity type", ListFilter{EntityType: EntityComment}, []string{"l3"}},
		{"by date window", ListFilter{StartDate: &feb, EndDate: &mar}, []string{"l2", "l3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, total, err := store.List(tt.filter, httpapi.PageOpts{})
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.wantIDs)), total)

			ids := make([]string, 0, len(records))
			for _, r := range records {
				ids = append(ids, r.ID)
			}
			assert.ElementsMatch(t, tt.wantIDs, ids)
		})
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	seedEntries(t, store)

	records, _, err := store.List(ListFilter{}, httpapi.PageOpts{})
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "l4", records[0].ID)
	assert.Equal(t, "l1", records[3].ID)
}

func TestStore_ListForEntity(t *testing.T) {
	store := newTestStore(t)
	seedEntries(t, store)

	records, total, err := store.ListForEntity(EntityIssuance, "iss-1", httpapi.PageOpts{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, records, 2)
}

func TestStore_RecentActivity(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 15; i++ {
		require.NoError(t, store.Append(&LogRecord{
			ID:          fmt.Sprintf("l%d", i),
			PerformedBy: "alice",
			Action:      ActionUpdate,
			EntityType:  EntityIssuance,
			EntityID:    "iss-1",
			CreatedAt:   time.Date(2026, 1, 1, 0, i, 0, 0, time.UTC),
		}))
	}

	records, err := store.RecentActivity(5)
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "l14", records[0].ID)

	// Non-positive limit falls back to the default of 10.
	records, err = store.RecentActivity(0)
	require.NoError(t, err)
	assert.Len(t, records, 10)
}

func TestStore_DeleteOlderThan(t *testing.T) {
	store := newTestStore(t)
	seedEntries(t, store)

	cutoff := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	deleted, err := store.DeleteOlderThan(cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, total, err := store.List(ListFilter{}, httpapi.PageOpts{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestConfigFromEnv(t *testing.T) {
	cfg := ConfigFromEnv()
	assert.Equal(t, 365, cfg.RetentionDays)
	assert.True(t, cfg.Enabled)

	t.Setenv("ISSUANCE_AUDIT_RETENTION_DAYS", "90")
	t.Setenv("ISSUANCE_AUDIT_RETENTION_ENABLED", "false")
	cfg = ConfigFromEnv()
	assert.Equal(t, 90, cfg.RetentionDays)
	assert.False(t, cfg.Enabled)

	// Invalid values keep the defaults.
	t.Setenv("ISSUANCE_AUDIT_RETENTION_DAYS", "-5")
	cfg = ConfigFromEnv()
	assert.Equal(t, 365, cfg.RetentionDays)
}
