package audit

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/usgportal/issuance-registry/pkg/httpapi"
)

// Store provides append-only access to audit log records.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new audit Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the audit_logs table.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&LogRecord{}); err != nil {
		return fmt.Errorf("auto-migrate audit_logs: %w", err)
	}
	return nil
}

// Append creates a new immutable audit log record.
func (s *Store) Append(entry *LogRecord) error {
	if err := s.db.Create(entry).Error; err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	return nil
}

// GetByID retrieves a single log entry. Returns nil, nil if absent.
func (s *Store) GetByID(id string) (*LogRecord, error) {
	var record LogRecord
	err := s.db.Where("id = ?", id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get audit log: %w", err)
	}
	return &record, nil
}

// ListFilter narrows audit log queries.
type ListFilter struct {
	PerformedBy string
	Action      Action
	EntityType  EntityType
	EntityID    string
	StartDate   *time.Time
	EndDate     *time.Time
}

func (f ListFilter) apply(tx *gorm.DB) *gorm.DB {
	if f.PerformedBy != "" {
		tx = tx.Where("performed_by = ?", f.PerformedBy)
	}
	if f.Action != "" {
		tx = tx.Where("action = ?", f.Action)
	}
	if f.EntityType != "" {
		tx = tx.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		tx = tx.Where("entity_id = ?", f.EntityID)
	}
	if f.StartDate != nil {
		tx = tx.Where("created_at >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		tx = tx.Where("created_at <= ?", *f.EndDate)
	}
	return tx
}

// sortColumns is the allow-list of sortable columns.
var sortColumns = map[string]string{
	"timestamp":   "created_at",
	"createdAt":   "created_at",
	"action":      "action",
	"performedBy": "performed_by",
	"entityType":  "entity_type",
}

// List returns a filtered, paginated page of audit log records,
// newest first unless a different sort is requested.
func (s *Store) List(filter ListFilter, opts httpapi.PageOpts) ([]LogRecord, int64, error) {
	opts = opts.Clamp()

	var total int64
	if err := filter.apply(s.db.Model(&LogRecord{})).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	column, ok := sortColumns[opts.SortBy]
	if !ok {
		column = "created_at"
	}

	var records []LogRecord
	err := filter.apply(s.db).
		Order(fmt.Sprintf("%s %s", column, opts.SortOrder)).
		Offset(opts.Offset()).
		Limit(opts.Limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}

	return records, total, nil
}

// ListForEntity is a convenience wrapper filtering by entity type and id.
func (s *Store) ListForEntity(entityType EntityType, entityID string, opts httpapi.PageOpts) ([]LogRecord, int64, error) {
	return s.List(ListFilter{EntityType: entityType, EntityID: entityID}, opts)
}

// RecentActivity returns the N most recent entries irrespective of filter.
func (s *Store) RecentActivity(limit int) ([]LogRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	var records []LogRecord
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("recent audit activity: %w", err)
	}
	return records, nil
}

// DeleteOlderThan removes entries created before the cutoff. Only the
// retention worker calls this; the public API never deletes entries.
func (s *Store) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := s.db.Where("created_at < ?", cutoff).Delete(&LogRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete old audit logs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
