package reports

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/usgportal/issuance-registry/pkg/issuance"
)

func newTestScheduleStore(t *testing.T) *ScheduleStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store := NewScheduleStore(db)
	require.NoError(t, store.AutoMigrate())
	return store
}

func TestScheduleStore_CRUD(t *testing.T) {
	store := newTestScheduleStore(t)

	record := &ScheduleRecord{
		Name:       "Weekly summary",
		ReportType: "summary",
		Cron:       "0 8 * * MON",
		Recipients: issuance.JSONStringSlice{"exec-board@example.edu"},
		Enabled:    true,
		CreatedBy:  "alice",
	}
	require.NoError(t, store.Create(record))
	assert.NotEmpty(t, record.ID)

	got, err := store.Get(record.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "0 8 * * MON", got.Cron)
	assert.Equal(t, issuance.JSONStringSlice{"exec-board@example.edu"}, got.Recipients)

	disabled := false
	updated, err := store.Update(record.ID, &SchedulePatch{Cron: "0 9 * * MON", Enabled: &disabled})
	require.NoError(t, err)
	assert.Equal(t, "0 9 * * MON", updated.Cron)
	assert.Equal(t, "summary", updated.ReportType) // empty patch field keeps old value
	assert.False(t, updated.Enabled)

	list, err := store.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.Delete(record.ID))
	got, err = store.Get(record.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.Error(t, store.Delete(record.ID))
}

func TestScheduleStore_EnabledRoundTrip(t *testing.T) {
	store := newTestScheduleStore(t)

	record := &ScheduleRecord{Name: "Paused digest", ReportType: "summary", Cron: "@daily", Enabled: false}
	require.NoError(t, store.Create(record))

	got, err := store.Get(record.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Enabled)

	// A patch that omits enabled keeps the stored value.
	updated, err := store.Update(record.ID, &SchedulePatch{Cron: "@weekly"})
	require.NoError(t, err)
	assert.Equal(t, "@weekly", updated.Cron)
	assert.False(t, updated.Enabled)

	enabled := true
	updated, err = store.Update(record.ID, &SchedulePatch{Enabled: &enabled})
	require.NoError(t, err)
	assert.True(t, updated.Enabled)
}

func TestScheduleStore_Create_Validation(t *testing.T) {
	store := newTestScheduleStore(t)

	tests := []struct {
		name   string
		record *ScheduleRecord
	}{
		{"missing name", &ScheduleRecord{ReportType: "summary", Cron: "@daily"}},
		{"missing reportType", &ScheduleRecord{Name: "x", Cron: "@daily"}},
		{"missing cron", &ScheduleRecord{Name: "x", ReportType: "summary"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, store.Create(tt.record))
		})
	}
}
