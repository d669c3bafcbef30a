package reports

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/usgportal/issuance-registry/pkg/httpapi"
	"github.com/usgportal/issuance-registry/pkg/issuance"
)

func newTestAggregator(t *testing.T) (*Aggregator, *issuance.Store) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store := issuance.NewStore(db)
	require.NoError(t, store.AutoMigrate())
	return NewAggregator(db), store
}

func at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func seedIssuances(t *testing.T, store *issuance.Store) {
	t.Helper()

	approvedAt := at(2026, time.January, 20)
	lateApproval := at(2026, time.May, 1)

	seed := []*issuance.Record{
		{ID: "a", Title: "Budget Resolution", Type: issuance.TypeResolution, DocumentURL: "u",
			Priority: issuance.PriorityHigh, Status: issuance.StatusApproved,
			Department: "Finance", CreatedAt: at(2026, time.January, 10), ApprovedAt: &approvedAt},
		{ID: "b", Title: "Orientation Memo", Type: issuance.TypeMemorandum, DocumentURL: "u",
			Priority: issuance.PriorityLow, Status: issuance.StatusPending,
			Department: "Events", CreatedAt: at(2026, time.February, 5)},
		{ID: "c", Title: "Election Circular", Type: issuance.TypeCircular, DocumentURL: "u",
			Priority: issuance.PriorityHigh, Status: issuance.StatusRejected,
			Department: "Finance", CreatedAt: at(2026, time.February, 20)},
		{ID: "d", Title: "Annual Report", Type: issuance.TypeReport, DocumentURL: "u",
			Priority: issuance.PriorityMedium, Status: issuance.StatusPublished,
			CreatedAt: at(2026, time.April, 1), ApprovedAt: &lateApproval},
		{ID: "e", Title: "Retired Memo", Type: issuance.TypeMemorandum, DocumentURL: "u",
			Priority: issuance.PriorityMedium, Status: issuance.StatusDraft,
			Department: "Events", CreatedAt: at(2026, time.April, 15), IsDeleted: true},
	}
	for _, r := range seed {
		require.NoError(t, store.Create(r))
	}
}

func TestAggregator_Summarize(t *testing.T) {
	agg, store := newTestAggregator(t)
	seedIssuances(t, store)

	summary, err := agg.Summarize(issuance.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), summary.Total) // soft-deleted excluded
	assert.Equal(t, int64(1), summary.ByStatus["APPROVED"])
	assert.Equal(t, int64(1), summary.ByStatus["PENDING"])
	assert.Equal(t, int64(1), summary.ByStatus["REJECTED"])
	assert.Equal(t, int64(1), summary.ByStatus["PUBLISHED"])
	assert.Equal(t, int64(2), summary.ByPriority["HIGH"])
	assert.Equal(t, int64(1), summary.ByPriority["LOW"])

	// The shared filter narrows the rollup.
	summary, err = agg.Summarize(issuance.ListFilter{Department: "Finance"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Total)
}

func TestAggregator_ByDepartment(t *testing.T) {
	agg, store := newTestAggregator(t)
	seedIssuances(t, store)

	breakdowns, err := agg.ByDepartment(issuance.ListFilter{})
	require.NoError(t, err)
	require.Len(t, breakdowns, 3)

	// Sorted by department name; empty department folds into Unassigned.
	assert.Equal(t, "Events", breakdowns[0].Department)
	assert.Equal(t, "Finance", breakdowns[1].Department)
	assert.Equal(t, "Unassigned", breakdowns[2].Department)

	finance := breakdowns[1]
	assert.Equal(t, int64(2), finance.Total)
	assert.Equal(t, int64(1), finance.Approved)
	assert.Equal(t, int64(1), finance.Rejected)
	assert.Equal(t, int64(2), finance.HighPriority)

	events := breakdowns[0]
	assert.Equal(t, int64(1), events.Total)
	assert.Equal(t, int64(1), events.Pending)
}

func TestAggregator_Trends(t *testing.T) {
	agg, store := newTestAggregator(t)
	seedIssuances(t, store)

	monthly, err := agg.Trends(issuance.ListFilter{}, IntervalMonthly)
	require.NoError(t, err)
	require.Len(t, monthly, 3)
	assert.Equal(t, "2026-01", monthly[0].Period)
	assert.Equal(t, int64(1), monthly[0].Total)
	assert.Equal(t, "2026-02", monthly[1].Period)
	assert.Equal(t, int64(2), monthly[1].Total)
	assert.Equal(t, "2026-04", monthly[2].Period)

	quarterly, err := agg.Trends(issuance.ListFilter{}, IntervalQuarterly)
	require.NoError(t, err)
	require.Len(t, quarterly, 2)
	assert.Equal(t, "2026-Q1", quarterly[0].Period)
	assert.Equal(t, int64(3), quarterly[0].Total)
	assert.Equal(t, int64(1), quarterly[0].Approved)
	assert.Equal(t, "2026-Q2", quarterly[1].Period)
	assert.Equal(t, int64(1), quarterly[1].Total)

	_, err = agg.Trends(issuance.ListFilter{}, "weekly")
	require.Error(t, err)
}

func TestAggregator_AverageResolutionDays(t *testing.T) {
	agg, store := newTestAggregator(t)
	seedIssuances(t, store)

	// "a": 10 days to approval; "d": 30 days -> mean 20.
	avg, count, err := agg.AverageResolutionDays(issuance.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.InDelta(t, 20.0, avg, 0.01)

	// No matching rows yields zero without error.
	avg, count, err = agg.AverageResolutionDays(issuance.ListFilter{Department: "Events"})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Zero(t, avg)
}

func TestAggregator_Search(t *testing.T) {
	agg, store := newTestAggregator(t)
	seedIssuances(t, store)

	records, total, err := agg.Search("memo", issuance.ListFilter{}, httpapi.PageOpts{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total) // deleted "Retired Memo" excluded
	require.Len(t, records, 1)
	assert.Equal(t, "b", records[0].ID)

	// Search composes with the structured filter.
	_, total, err = agg.Search("memo", issuance.ListFilter{Department: "Finance"}, httpapi.PageOpts{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	// Department names are searchable too.
	_, total, err = agg.Search("finance", issuance.ListFilter{}, httpapi.PageOpts{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
