// Package reports computes read-only statistical rollups over the
// issuance collection. It shares the issuance filter shape so list,
// report, and search surfaces keep identical filter semantics, and it
// performs no mutation.
package reports

import (
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/usgportal/issuance-registry/pkg/httpapi"
	"github.com/usgportal/issuance-registry/pkg/issuance"
)

// Aggregator runs aggregation queries against the issuances table.
type Aggregator struct {
	db *gorm.DB
}

// NewAggregator creates a report Aggregator.
func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

// Summary is the status/priority count rollup.
type Summary struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"byStatus"`
	ByPriority map[string]int64 `json:"byPriority"`
}

type groupCount struct {
	Key   string
	Count int64
}

func (a *Aggregator) groupBy(filter issuance.ListFilter, column string) (map[string]int64, error) {
	var rows []groupCount
	err := filter.Apply(a.db.Model(&issuance.Record{})).
		Select(fmt.Sprintf("%s AS key, COUNT(*) AS count", column)).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("group issuances by %s: %w", column, err)
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Count
	}
	return out, nil
}

// Summarize returns total, per-status, and per-priority counts.
func (a *Aggregator) Summarize(filter issuance.ListFilter) (*Summary, error) {
	var total int64
	if err := filter.Apply(a.db.Model(&issuance.Record{})).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count issuances: %w", err)
	}
	byStatus, err := a.groupBy(filter, "status")
	if err != nil {
		return nil, err
	}
	byPriority, err := a.groupBy(filter, "priority")
	if err != nil {
		return nil, err
	}
	return &Summary{Total: total, ByStatus: byStatus, ByPriority: byPriority}, nil
}

// DepartmentBreakdown is the per-department rollup.
type DepartmentBreakdown struct {
	Department   string `json:"department"`
	Total        int64  `json:"total"`
	Approved     int64  `json:"approved"`
	Rejected     int64  `json:"rejected"`
	Pending      int64  `json:"pending"`
	HighPriority int64  `json:"highPriority"`
}

// trendRow is the minimal projection used for trend and department
// rollups computed in process.
type trendRow struct {
	Status     string
	Priority   string
	Department string
	CreatedAt  time.Time
}

func (a *Aggregator) fetchRows(filter issuance.ListFilter) ([]trendRow, error) {
	var rows []trendRow
	err := filter.Apply(a.db.Model(&issuance.Record{})).
		Select("status, priority, department, created_at").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("fetch issuance rows: %w", err)
	}
	return rows, nil
}

func tally(b *DepartmentBreakdown, row trendRow) {
	b.Total++
	switch issuance.Status(row.Status) {
	case issuance.StatusApproved:
		b.Approved++
	case issuance.StatusRejected:
		b.Rejected++
	case issuance.StatusPending:
		b.Pending++
	}
	if issuance.Priority(row.Priority) == issuance.PriorityHigh {
		b.HighPriority++
	}
}

// ByDepartment returns per-department breakdowns sorted by department name.
func (a *Aggregator) ByDepartment(filter issuance.ListFilter) ([]DepartmentBreakdown, error) {
	rows, err := a.fetchRows(filter)
	if err != nil {
		return nil, err
	}

	byDept := make(map[string]*DepartmentBreakdown)
	for _, row := range rows {
		dept := row.Department
		if dept == "" {
			dept = "Unassigned"
		}
		b, ok := byDept[dept]
		if !ok {
			b = &DepartmentBreakdown{Department: dept}
			byDept[dept] = b
		}
		tally(b, row)
	}

	out := make([]DepartmentBreakdown, 0, len(byDept))
	for _, b := range byDept {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Department < out[j].Department })
	return out, nil
}

// TrendPoint is one period in a trend series.
type TrendPoint struct {
	Period       string `json:"period"` // "2026-01" or "2026-Q1"
	Total        int64  `json:"total"`
	Approved     int64  `json:"approved"`
	Rejected     int64  `json:"rejected"`
	Pending      int64  `json:"pending"`
	HighPriority int64  `json:"highPriority"`
}

// Interval selects trend bucketing granularity.
type Interval string

const (
	IntervalMonthly   Interval = "monthly"
	IntervalQuarterly Interval = "quarterly"
)

// Trends buckets issuances by creation period. Bucketing happens in
// process so the series is identical across sqlite, postgres, and mysql.
func (a *Aggregator) Trends(filter issuance.ListFilter, interval Interval) ([]TrendPoint, error) {
	if interval != IntervalMonthly && interval != IntervalQuarterly {
		return nil, httpapi.Validation("unknown trend interval: %s", interval)
	}

	rows, err := a.fetchRows(filter)
	if err != nil {
		return nil, err
	}

	byPeriod := make(map[string]*TrendPoint)
	for _, row := range rows {
		var period string
		if interval == IntervalMonthly {
			period = row.CreatedAt.Format("2006-01")
		} else {
			quarter := (int(row.CreatedAt.Month())-1)/3 + 1
			period = fmt.Sprintf("%d-Q%d", row.CreatedAt.Year(), quarter)
		}
		point, ok := byPeriod[period]
		if !ok {
			point = &TrendPoint{Period: period}
			byPeriod[period] = point
		}
		var b DepartmentBreakdown
		tally(&b, row)
		point.Total += b.Total
		point.Approved += b.Approved
		point.Rejected += b.Rejected
		point.Pending += b.Pending
		point.HighPriority += b.HighPriority
	}

	out := make([]TrendPoint, 0, len(byPeriod))
	for _, point := range byPeriod {
		out = append(out, *point)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out, nil
}

// resolutionRow projects the timestamps needed for resolution math.
type resolutionRow struct {
	CreatedAt  time.Time
	ApprovedAt *time.Time
}

// AverageResolutionDays returns the mean approvedAt-createdAt span in
// days over APPROVED and PUBLISHED issuances with a non-null approvedAt,
// and the number of records averaged.
func (a *Aggregator) AverageResolutionDays(filter issuance.ListFilter) (float64, int, error) {
	var rows []resolutionRow
	err := filter.Apply(a.db.Model(&issuance.Record{})).
		Where("status IN ? AND approved_at IS NOT NULL", []string{string(issuance.StatusApproved), string(issuance.StatusPublished)}).
		Select("created_at, approved_at").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, fmt.Errorf("fetch resolution rows: %w", err)
	}

	if len(rows) == 0 {
		return 0, 0, nil
	}
	var totalDays float64
	for _, row := range rows {
		totalDays += row.ApprovedAt.Sub(row.CreatedAt).Hours() / 24
	}
	return totalDays / float64(len(rows)), len(rows), nil
}

// Search performs a case-insensitive substring match across title,
// description, department, category, and issuedBy, composed with the
// shared filter.
func (a *Aggregator) Search(query string, filter issuance.ListFilter, opts httpapi.PageOpts) ([]issuance.Record, int64, error) {
	filter.Search = query
	opts = opts.Clamp()

	var total int64
	if err := filter.Apply(a.db.Model(&issuance.Record{})).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count search results: %w", err)
	}

	var records []issuance.Record
	err := filter.Apply(a.db.Model(&issuance.Record{})).
		Order("created_at DESC").
		Offset(opts.Offset()).
		Limit(opts.Limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("search issuances: %w", err)
	}
	return records, total, nil
}
