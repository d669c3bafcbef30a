package issuance

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/usgportal/issuance-registry/pkg/httpapi"
)

// Store provides persistence for issuances and their history tables.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new issuance Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the issuance tables.
func (s *Store) AutoMigrate() error {
	for _, model := range []any{
		&Record{},
		&StatusHistoryRecord{},
		&VersionHistoryRecord{},
		&AttachmentRecord{},
	} {
		if err := s.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("auto-migrate issuance tables: %w", err)
		}
	}
	return nil
}

// Transaction runs fn against a Store bound to a single database
// transaction; an error from fn rolls back every write made through it.
func (s *Store) Transaction(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// Create inserts a new issuance record.
func (s *Store) Create(record *Record) error {
	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("create issuance: %w", err)
	}
	return nil
}

// Get retrieves an issuance by id, including soft-deleted records.
// Returns nil, nil if absent.
func (s *Store) Get(id string) (*Record, error) {
	var record Record
	err := s.db.Where("id = ?", id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get issuance: %w", err)
	}
	return &record, nil
}

// Exists reports whether a non-deleted issuance with the id exists.
func (s *Store) Exists(id string) (bool, error) {
	var count int64
	err := s.db.Model(&Record{}).Where("id = ? AND is_deleted = ?", id, false).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check issuance exists: %w", err)
	}
	return count > 0, nil
}

// ExistsAny reports whether an issuance with the id exists, counting
// soft-deleted tombstones.
func (s *Store) ExistsAny(id string) (bool, error) {
	var count int64
	err := s.db.Model(&Record{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check issuance exists: %w", err)
	}
	return count > 0, nil
}

// Save persists the full record.
func (s *Store) Save(record *Record) error {
	if err := s.db.Save(record).Error; err != nil {
		return fmt.Errorf("save issuance: %w", err)
	}
	return nil
}

// ListFilter narrows issuance list and report queries. The same shape
// backs list, report, and search surfaces so filter semantics stay
// consistent.
type ListFilter struct {
	Status         Status
	Type           DocType
	Priority       Priority
	Department     string
	Category       string
	Search         string
	StartDate      *time.Time
	EndDate        *time.Time
	IncludeDeleted bool
}

// Apply adds the filter's WHERE clauses to a query over issuances.
func (f ListFilter) Apply(tx *gorm.DB) *gorm.DB {
	if !f.IncludeDeleted {
		tx = tx.Where("is_deleted = ?", false)
	}
	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		tx = tx.Where("type = ?", f.Type)
	}
	if f.Priority != "" {
		tx = tx.Where("priority = ?", f.Priority)
	}
	if f.Department != "" {
		tx = tx.Where("department = ?", f.Department)
	}
	if f.Category != "" {
		tx = tx.Where("category = ?", f.Category)
	}
	if f.StartDate != nil {
		tx = tx.Where("created_at >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		tx = tx.Where("created_at <= ?", *f.EndDate)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		tx = tx.Where(
			"LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(department) LIKE ? OR LOWER(category) LIKE ? OR LOWER(issued_by) LIKE ?",
			like, like, like, like, like,
		)
	}
	return tx
}

// sortColumns is the allow-list of sortable columns.
var sortColumns = map[string]string{
	"createdAt":  "created_at",
	"updatedAt":  "updated_at",
	"issuedDate": "issued_date",
	"title":      "title",
	"status":     "status",
	"priority":   "priority",
	"type":       "type",
}

// List returns a filtered, paginated page of issuances.
func (s *Store) List(filter ListFilter, opts httpapi.PageOpts) ([]Record, int64, error) {
	opts = opts.Clamp()

	var total int64
	if err := filter.Apply(s.db.Model(&Record{})).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count issuances: %w", err)
	}

	column, ok := sortColumns[opts.SortBy]
	if !ok {
		column = "created_at"
	}

	var records []Record
	err := filter.Apply(s.db).
		Order(fmt.Sprintf("%s %s", column, opts.SortOrder)).
		Offset(opts.Offset()).
		Limit(opts.Limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list issuances: %w", err)
	}

	return records, total, nil
}

// ListPublished returns non-deleted PUBLISHED issuances sorted by
// issued date, newest first.
func (s *Store) ListPublished(opts httpapi.PageOpts) ([]Record, int64, error) {
	opts = opts.Clamp()
	filter := ListFilter{Status: StatusPublished}

	var total int64
	if err := filter.Apply(s.db.Model(&Record{})).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count published issuances: %w", err)
	}

	var records []Record
	err := filter.Apply(s.db).
		Order("issued_date DESC").
		Offset(opts.Offset()).
		Limit(opts.Limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list published issuances: %w", err)
	}

	return records, total, nil
}

// AppendStatusHistory inserts one immutable status history entry.
func (s *Store) AppendStatusHistory(entry *StatusHistoryRecord) error {
	if err := s.db.Create(entry).Error; err != nil {
		return fmt.Errorf("append status history: %w", err)
	}
	return nil
}

// ListStatusHistory returns the full status history of an issuance in
// chronological order.
func (s *Store) ListStatusHistory(issuanceID string) ([]StatusHistoryRecord, error) {
	var entries []StatusHistoryRecord
	err := s.db.Where("issuance_id = ?", issuanceID).Order("changed_at ASC").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	return entries, nil
}

// AppendVersionHistory inserts one immutable version history entry.
func (s *Store) AppendVersionHistory(entry *VersionHistoryRecord) error {
	if err := s.db.Create(entry).Error; err != nil {
		return fmt.Errorf("append version history: %w", err)
	}
	return nil
}

// ListVersionHistory returns the full version history of an issuance in
// chronological order.
func (s *Store) ListVersionHistory(issuanceID string) ([]VersionHistoryRecord, error) {
	var entries []VersionHistoryRecord
	err := s.db.Where("issuance_id = ?", issuanceID).Order("changed_at ASC").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list version history: %w", err)
	}
	return entries, nil
}

// AppendAttachment inserts an attachment row.
func (s *Store) AppendAttachment(att *AttachmentRecord) error {
	if err := s.db.Create(att).Error; err != nil {
		return fmt.Errorf("append attachment: %w", err)
	}
	return nil
}

// ListAttachments returns the attachments of an issuance in upload order.
func (s *Store) ListAttachments(issuanceID string) ([]AttachmentRecord, error) {
	var attachments []AttachmentRecord
	err := s.db.Where("issuance_id = ?", issuanceID).Order("uploaded_at ASC").Find(&attachments).Error
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return attachments, nil
}

// GetAttachment retrieves one attachment of an issuance by attachment id.
// Returns nil, nil if absent.
func (s *Store) GetAttachment(issuanceID, attachmentID string) (*AttachmentRecord, error) {
	var att AttachmentRecord
	err := s.db.Where("issuance_id = ? AND id = ?", issuanceID, attachmentID).First(&att).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	return &att, nil
}

// DeleteAttachment removes one attachment row.
func (s *Store) DeleteAttachment(issuanceID, attachmentID string) error {
	err := s.db.Where("issuance_id = ? AND id = ?", issuanceID, attachmentID).Delete(&AttachmentRecord{}).Error
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}

// CountAttachments returns the attachment count for an issuance.
func (s *Store) CountAttachments(issuanceID string) (int64, error) {
	var count int64
	err := s.db.Model(&AttachmentRecord{}).Where("issuance_id = ?", issuanceID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count attachments: %w", err)
	}
	return count, nil
}

// DB exposes the underlying handle for read-only aggregation consumers.
func (s *Store) DB() *gorm.DB { return s.db }
