package reports

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/usgportal/issuance-registry/pkg/httpapi"
	"github.com/usgportal/issuance-registry/pkg/issuance"
)

// ScheduleRecord describes a recurring report. Schedules are data only:
// no executor runs them in-process; an external scheduler is expected
// to read the cron expressions.
type ScheduleRecord struct {
	ID         string                   `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	Name       string                   `gorm:"column:name;not null" json:"name"`
	ReportType string                   `gorm:"column:report_type;not null" json:"reportType"` // summary, trends, departments
	Cron       string                   `gorm:"column:cron;not null" json:"cron"`
	Recipients issuance.JSONStringSlice `gorm:"column:recipients;type:text" json:"recipients,omitempty"`
	Enabled    bool                     `gorm:"column:enabled;not null" json:"enabled"`
	CreatedBy  string                   `gorm:"column:created_by" json:"createdBy,omitempty"`
	CreatedAt  time.Time                `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time                `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName returns the GORM table name.
func (ScheduleRecord) TableName() string { return "report_schedules" }

// ScheduleStore provides CRUD for report schedules.
type ScheduleStore struct {
	db *gorm.DB
}

// NewScheduleStore creates a ScheduleStore.
func NewScheduleStore(db *gorm.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

// AutoMigrate creates or updates the report_schedules table.
func (s *ScheduleStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&ScheduleRecord{}); err != nil {
		return fmt.Errorf("auto-migrate report_schedules: %w", err)
	}
	return nil
}

// Create inserts a schedule.
func (s *ScheduleStore) Create(record *ScheduleRecord) error {
	if record.Name == "" || record.Cron == "" || record.ReportType == "" {
		return httpapi.Validation("schedule name, reportType, and cron are required")
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("create report schedule: %w", err)
	}
	return nil
}

// List returns all schedules ordered by name.
func (s *ScheduleStore) List() ([]ScheduleRecord, error) {
	var records []ScheduleRecord
	if err := s.db.Order("name ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list report schedules: %w", err)
	}
	return records, nil
}

// Get retrieves a schedule by id. Returns nil, nil if absent.
func (s *ScheduleStore) Get(id string) (*ScheduleRecord, error) {
	var record ScheduleRecord
	err := s.db.Where("id = ?", id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get report schedule: %w", err)
	}
	return &record, nil
}

// SchedulePatch carries the updatable schedule fields. Enabled is a
// pointer so a patch that omits it keeps the stored value.
type SchedulePatch struct {
	Name       string                   `json:"name"`
	ReportType string                   `json:"reportType"`
	Cron       string                   `json:"cron"`
	Recipients issuance.JSONStringSlice `json:"recipients"`
	Enabled    *bool                    `json:"enabled"`
}

// Update saves changes to a schedule.
func (s *ScheduleStore) Update(id string, patch *SchedulePatch) (*ScheduleRecord, error) {
	existing, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, httpapi.NotFound("report schedule %s not found", id)
	}
	if patch.Name != "" {
		existing.Name = patch.Name
	}
	if patch.ReportType != "" {
		existing.ReportType = patch.ReportType
	}
	if patch.Cron != "" {
		existing.Cron = patch.Cron
	}
	if patch.Recipients != nil {
		existing.Recipients = patch.Recipients
	}
	if patch.Enabled != nil {
		existing.Enabled = *patch.Enabled
	}
	if err := s.db.Save(existing).Error; err != nil {
		return nil, fmt.Errorf("update report schedule: %w", err)
	}
	return existing, nil
}

// Delete removes a schedule by id.
func (s *ScheduleStore) Delete(id string) error {
	existing, err := s.Get(id)
	if err != nil {
		return err
	}
	if existing == nil {
		return httpapi.NotFound("report schedule %s not found", id)
	}
	if err := s.db.Where("id = ?", id).Delete(&ScheduleRecord{}).Error; err != nil {
		return fmt.Errorf("delete report schedule: %w", err)
	}
	return nil
}
