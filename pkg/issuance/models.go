// Package issuance implements the issuance lifecycle: the status state
// machine, version and status history, attachment management, and the
// audit fan-out for every mutation.
package issuance

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DocType classifies an issuance document.
type DocType string

const (
	TypeResolution DocType = "RESOLUTION"
	TypeMemorandum DocType = "MEMORANDUM"
	TypeReport     DocType = "REPORT"
	TypeCircular   DocType = "CIRCULAR"
)

// Priority classifies issuance urgency.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// JSONStringSlice is a custom GORM type for []string stored as JSON.
type JSONStringSlice []string

// Scan implements the sql.Scanner interface for JSONStringSlice.
func (s *JSONStringSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONStringSlice: %T", value)
	}
	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface for JSONStringSlice.
func (s JSONStringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Record is the persisted issuance entity. All mutations go through
// the Service so the history and audit invariants hold; nothing writes
// these columns directly.
type Record struct {
	ID            string          `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	Title         string          `gorm:"column:title;not null" json:"title"`
	Type          DocType         `gorm:"column:type;index;not null" json:"type"`
	Description   string          `gorm:"column:description;type:text" json:"description,omitempty"`
	DocumentURL   string          `gorm:"column:document_url;not null" json:"documentUrl"`
	IssuedBy      string          `gorm:"column:issued_by" json:"issuedBy,omitempty"`
	IssuedDate    *time.Time      `gorm:"column:issued_date;index" json:"issuedDate,omitempty"`
	Category      string          `gorm:"column:category;index" json:"category,omitempty"`
	Department    string          `gorm:"column:department;index" json:"department,omitempty"`
	Priority      Priority        `gorm:"column:priority;index;default:MEDIUM;not null" json:"priority"`
	Tags          JSONStringSlice `gorm:"column:tags;type:text" json:"tags,omitempty"`
	InternalNotes string          `gorm:"column:internal_notes;type:text" json:"internalNotes,omitempty"`

	Status     Status     `gorm:"column:status;index;default:DRAFT;not null" json:"status"`
	ApprovedAt *time.Time `gorm:"column:approved_at" json:"approvedAt,omitempty"`
	ApprovedBy string     `gorm:"column:approved_by" json:"approvedBy,omitempty"`
	RejectedAt *time.Time `gorm:"column:rejected_at" json:"rejectedAt,omitempty"`
	RejectedBy string     `gorm:"column:rejected_by" json:"rejectedBy,omitempty"`

	IsDeleted bool       `gorm:"column:is_deleted;index;default:false;not null" json:"isDeleted"`
	DeletedAt *time.Time `gorm:"column:deleted_at" json:"deletedAt,omitempty"`
	DeletedBy string     `gorm:"column:deleted_by" json:"deletedBy,omitempty"`

	CreatedBy      string    `gorm:"column:created_by" json:"createdBy,omitempty"`
	LastModifiedBy string    `gorm:"column:last_modified_by" json:"lastModifiedBy,omitempty"`
	CreatedAt      time.Time `gorm:"column:created_at;index;autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName returns the GORM table name.
func (Record) TableName() string { return "issuances" }

// StatusHistoryRecord is one append-only status transition entry.
// FromStatus is nil only for the synthetic creation entry.
type StatusHistoryRecord struct {
	ID         string    `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	IssuanceID string    `gorm:"column:issuance_id;index:idx_status_hist,priority:1;not null" json:"issuanceId"`
	FromStatus *Status   `gorm:"column:from_status" json:"fromStatus"`
	ToStatus   Status    `gorm:"column:to_status;not null" json:"toStatus"`
	ChangedBy  string    `gorm:"column:changed_by" json:"changedBy"`
	Reason     string    `gorm:"column:reason" json:"reason,omitempty"`
	ChangedAt  time.Time `gorm:"column:changed_at;index:idx_status_hist,priority:2;autoCreateTime" json:"changedAt"`
}

// TableName returns the GORM table name.
func (StatusHistoryRecord) TableName() string { return "issuance_status_history" }

// VersionHistoryRecord is one append-only field-change entry. Values
// are stored serialized; see encodeValue.
type VersionHistoryRecord struct {
	ID         string    `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	IssuanceID string    `gorm:"column:issuance_id;index:idx_version_hist,priority:1;not null" json:"issuanceId"`
	Field      string    `gorm:"column:field;not null" json:"field"`
	OldValue   string    `gorm:"column:old_value;type:text" json:"oldValue"`
	NewValue   string    `gorm:"column:new_value;type:text" json:"newValue"`
	ChangedBy  string    `gorm:"column:changed_by" json:"changedBy"`
	ChangedAt  time.Time `gorm:"column:changed_at;index:idx_version_hist,priority:2;autoCreateTime" json:"changedAt"`
}

// TableName returns the GORM table name.
func (VersionHistoryRecord) TableName() string { return "issuance_version_history" }

// AttachmentRecord is a file attachment reference on an issuance.
// Only metadata lives here; file bytes are stored elsewhere.
type AttachmentRecord struct {
	ID         string    `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	IssuanceID string    `gorm:"column:issuance_id;index;not null" json:"issuanceId"`
	Filename   string    `gorm:"column:filename;not null" json:"filename"`
	URL        string    `gorm:"column:url;not null" json:"url"`
	FileType   string    `gorm:"column:file_type" json:"fileType,omitempty"`
	MimeType   string    `gorm:"column:mime_type" json:"mimeType,omitempty"`
	Size       int64     `gorm:"column:size" json:"size"`
	UploadedBy string    `gorm:"column:uploaded_by" json:"uploadedBy,omitempty"`
	UploadedAt time.Time `gorm:"column:uploaded_at;autoCreateTime" json:"uploadedAt"`
}

// TableName returns the GORM table name.
func (AttachmentRecord) TableName() string { return "issuance_attachments" }

// encodeValue serializes a field value for version history storage.
// Strings are stored raw; everything else as JSON.
func encodeValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case Status:
		return string(x)
	case DocType:
		return string(x)
	case Priority:
		return string(x)
	case *time.Time:
		if x == nil {
			return ""
		}
		return x.Format(time.RFC3339)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
