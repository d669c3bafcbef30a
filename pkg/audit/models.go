// Package audit provides the append-only administrative audit trail.
// Entries are write-once: the public contract exposes no update or
// delete beyond the retention sweep.
package audit

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Action identifies the administrative mutation being recorded.
type Action string

const (
	ActionCreate           Action = "CREATE"
	ActionUpdate           Action = "UPDATE"
	ActionDelete           Action = "DELETE"
	ActionStatusChange     Action = "STATUS_CHANGE"
	ActionDepartmentAssign Action = "DEPARTMENT_ASSIGN"
	ActionAttachmentAdd    Action = "ATTACHMENT_ADD"
	ActionAttachmentRemove Action = "ATTACHMENT_REMOVE"
	ActionCommentCreate    Action = "COMMENT_CREATE"
	ActionCommentUpdate    Action = "COMMENT_UPDATE"
	ActionCommentDelete    Action = "COMMENT_DELETE"
)

// EntityType identifies the kind of entity a log entry references.
type EntityType string

const (
	EntityIssuance   EntityType = "Issuance"
	EntityComment    EntityType = "Comment"
	EntityAttachment EntityType = "Attachment"
)

// FieldChange records a single field diff mirrored from version history.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"oldValue"`
	NewValue string `json:"newValue"`
}

// ChangeList is a custom GORM type for []FieldChange stored as JSON.
type ChangeList []FieldChange

// Scan implements the sql.Scanner interface for ChangeList.
func (c *ChangeList) Scan(value any) error {
	if value == nil {
		*c = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for ChangeList: %T", value)
	}
	return json.Unmarshal(bytes, c)
}

// Value implements the driver.Valuer interface for ChangeList.
func (c ChangeList) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// JSONAny is a custom GORM type for map[string]any stored as JSON.
type JSONAny map[string]any

// Scan implements the sql.Scanner interface for JSONAny.
func (m *JSONAny) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONAny: %T", value)
	}
	return json.Unmarshal(bytes, m)
}

// Value implements the driver.Valuer interface for JSONAny.
func (m JSONAny) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// LogRecord is an immutable audit log entry.
type LogRecord struct {
	ID          string     `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	PerformedBy string     `gorm:"column:performed_by;index:idx_audit_actor_time,priority:1;not null" json:"performedBy"`
	Action      Action     `gorm:"column:action;index:idx_audit_action_time,priority:1;not null" json:"action"`
	EntityType  EntityType `gorm:"column:entity_type;index:idx_audit_entity,priority:1;not null" json:"entityType"`
	EntityID    string     `gorm:"column:entity_id;index:idx_audit_entity,priority:2;not null" json:"entityId"`
	Description string     `gorm:"column:description" json:"description"`
	Changes     ChangeList `gorm:"column:changes;type:text" json:"changes,omitempty"`
	Metadata    JSONAny    `gorm:"column:metadata;type:text" json:"metadata,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;index:idx_audit_actor_time,priority:2;index:idx_audit_action_time,priority:2;autoCreateTime" json:"timestamp"`
}

// TableName returns the GORM table name.
func (LogRecord) TableName() string { return "audit_logs" }
