// Package departments maintains the department directory used to route
// issuances, and validates department identifiers at assignment time.
package departments

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/usgportal/issuance-registry/pkg/httpapi"
)

// Record is a persisted department.
type Record struct {
	ID          string    `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	Name        string    `gorm:"column:name;uniqueIndex;not null" json:"name"`
	Code        string    `gorm:"column:code;uniqueIndex;not null" json:"code"`
	Description string    `gorm:"column:description" json:"description,omitempty"`
	Head        string    `gorm:"column:head" json:"head,omitempty"`
	IsActive    bool      `gorm:"column:is_active;not null" json:"isActive"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName returns the GORM table name.
func (Record) TableName() string { return "departments" }

// Registry provides department CRUD and identifier resolution.
type Registry struct {
	db *gorm.DB
}

// NewRegistry creates a new department Registry.
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// AutoMigrate creates or updates the departments table.
func (r *Registry) AutoMigrate() error {
	if err := r.db.AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("auto-migrate departments: %w", err)
	}
	return nil
}

// Create inserts a department. Duplicate name or code is a Conflict.
func (r *Registry) Create(record *Record) error {
	if record.Name == "" || record.Code == "" {
		return httpapi.Validation("department name and code are required")
	}
	var count int64
	err := r.db.Model(&Record{}).
		Where("LOWER(name) = ? OR LOWER(code) = ?", strings.ToLower(record.Name), strings.ToLower(record.Code)).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("check department uniqueness: %w", err)
	}
	if count > 0 {
		return httpapi.Conflict("department with name %q or code %q already exists", record.Name, record.Code)
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// Get retrieves a department by id. Returns nil, nil if absent.
func (r *Registry) Get(id string) (*Record, error) {
	var record Record
	err := r.db.Where("id = ?", id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get department: %w", err)
	}
	return &record, nil
}

// List returns all departments ordered by name. Pass activeOnly to
// exclude deactivated departments.
func (r *Registry) List(activeOnly bool) ([]Record, error) {
	query := r.db.Order("name ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var records []Record
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return records, nil
}

// Update applies changes to an existing department. Name and code
// uniqueness is re-checked when either changes.
func (r *Registry) Update(id string, patch *Record) (*Record, error) {
	existing, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, httpapi.NotFound("department %s not found", id)
	}

	if patch.Name != "" && !strings.EqualFold(patch.Name, existing.Name) {
		var count int64
		if err := r.db.Model(&Record{}).Where("LOWER(name) = ? AND id <> ?", strings.ToLower(patch.Name), id).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("check department name: %w", err)
		}
		if count > 0 {
			return nil, httpapi.Conflict("department name %q already exists", patch.Name)
		}
		existing.Name = patch.Name
	}
	if patch.Code != "" && !strings.EqualFold(patch.Code, existing.Code) {
		var count int64
		if err := r.db.Model(&Record{}).Where("LOWER(code) = ? AND id <> ?", strings.ToLower(patch.Code), id).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("check department code: %w", err)
		}
		if count > 0 {
			return nil, httpapi.Conflict("department code %q already exists", patch.Code)
		}
		existing.Code = patch.Code
	}
	existing.Description = patch.Description
	existing.Head = patch.Head
	existing.IsActive = patch.IsActive

	if err := r.db.Save(existing).Error; err != nil {
		return nil, fmt.Errorf("update department: %w", err)
	}
	return existing, nil
}

// Delete removes a department by id.
func (r *Registry) Delete(id string) error {
	existing, err := r.Get(id)
	if err != nil {
		return err
	}
	if existing == nil {
		return httpapi.NotFound("department %s not found", id)
	}
	if err := r.db.Where("id = ?", id).Delete(&Record{}).Error; err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	return nil
}

// Resolve accepts a raw id or a case-insensitive exact name match and
// returns the active department. Unknown or inactive identifiers are
// client errors naming the identifier.
func (r *Registry) Resolve(identifier string) (*Record, error) {
	if identifier == "" {
		return nil, httpapi.Validation("department identifier is required")
	}

	var record Record
	err := r.db.Where("id = ? OR LOWER(name) = ?", identifier, strings.ToLower(identifier)).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, httpapi.Validation("invalid department: %s", identifier)
		}
		return nil, fmt.Errorf("resolve department: %w", err)
	}
	if !record.IsActive {
		return nil, httpapi.Validation("department is inactive: %s", identifier)
	}
	return &record, nil
}
