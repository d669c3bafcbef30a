// Package comments implements single-level threaded comments on
// issuances, with public/internal visibility scoping and
// author-or-admin edit and delete rules.
package comments

import (
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/usgportal/issuance-registry/pkg/audit"
	"github.com/usgportal/issuance-registry/pkg/httpapi"
	"github.com/usgportal/issuance-registry/pkg/issuance"
)

// Visibility scopes who can see a comment.
type Visibility string

const (
	VisibilityPublic   Visibility = "PUBLIC"
	VisibilityInternal Visibility = "INTERNAL"
)

const maxContentLength = 2000

// Record is a persisted comment. ParentCommentID references at most
// one top-level comment; replies cannot themselves be replied to.
type Record struct {
	ID              string     `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	IssuanceID      string     `gorm:"column:issuance_id;index:idx_comment_issuance,priority:1;not null" json:"issuanceId"`
	AuthorID        string     `gorm:"column:author_id;index;not null" json:"authorId"`
	Content         string     `gorm:"column:content;type:text;not null" json:"content"`
	ParentCommentID string     `gorm:"column:parent_comment_id;index" json:"parentCommentId,omitempty"`
	Visibility      Visibility `gorm:"column:visibility;default:PUBLIC;not null" json:"visibility"`
	IsEdited        bool       `gorm:"column:is_edited;default:false;not null" json:"isEdited"`
	EditedAt        *time.Time `gorm:"column:edited_at" json:"editedAt,omitempty"`
	CreatedAt       time.Time  `gorm:"column:created_at;index:idx_comment_issuance,priority:2;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName returns the GORM table name.
func (Record) TableName() string { return "comments" }

// Service provides comment operations backed by gorm, validating
// issuance existence through the issuance store.
type Service struct {
	db        *gorm.DB
	issuances *issuance.Store
	audit     *audit.Store
	logger    *slog.Logger
}

// NewService creates a comment Service.
func NewService(db *gorm.DB, issuances *issuance.Store, auditStore *audit.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, issuances: issuances, audit: auditStore, logger: logger}
}

// AutoMigrate creates or updates the comments table.
func (s *Service) AutoMigrate() error {
	if err := s.db.AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("auto-migrate comments: %w", err)
	}
	return nil
}

// ListOpts controls comment listing.
type ListOpts struct {
	Page            int
	Limit           int
	SortOrder       string // "asc" (conversation order, default) or "desc"
	IncludeInternal bool   // admin context only
}

// ListByIssuance returns comments for an issuance. Internal comments
// are excluded unless IncludeInternal is granted. Comments on a
// soft-deleted issuance remain readable.
func (s *Service) ListByIssuance(issuanceID string, opts ListOpts) ([]Record, int64, error) {
	if err := s.requireIssuanceAny(issuanceID); err != nil {
		return nil, 0, err
	}

	page := httpapi.PageOpts{Page: opts.Page, Limit: opts.Limit, SortOrder: opts.SortOrder}.Clamp()
	order := "created_at DESC"
	if opts.SortOrder != "desc" {
		order = "created_at ASC"
	}

	query := s.db.Model(&Record{}).Where("issuance_id = ?", issuanceID)
	if !opts.IncludeInternal {
		query = query.Where("visibility = ?", VisibilityPublic)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}

	var records []Record
	err := query.Order(order).Offset(page.Offset()).Limit(page.Limit).Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list comments: %w", err)
	}
	return records, total, nil
}

// Create adds a comment. Non-admin authors may only create PUBLIC
// comments; parent references must resolve to a top-level comment on
// the same issuance.
func (s *Service) Create(issuanceID, authorID, content, parentCommentID string, visibility Visibility, isAdmin bool) (*Record, error) {
	if err := s.requireIssuance(issuanceID); err != nil {
		return nil, err
	}
	if err := validateContent(content); err != nil {
		return nil, err
	}

	if visibility == "" {
		visibility = VisibilityPublic
	}
	if visibility != VisibilityPublic && visibility != VisibilityInternal {
		return nil, httpapi.Validation("unknown visibility: %s", visibility)
	}
	if visibility == VisibilityInternal && !isAdmin {
		return nil, httpapi.Forbidden("only admins may create internal comments")
	}

	if parentCommentID != "" {
		parent, err := s.get(parentCommentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, httpapi.NotFound("parent comment %s not found", parentCommentID)
		}
		if parent.IssuanceID != issuanceID {
			return nil, httpapi.Validation("parent comment belongs to a different issuance")
		}
		if parent.ParentCommentID != "" {
			return nil, httpapi.Validation("replies cannot be nested: parent is itself a reply")
		}
	}

	record := &Record{
		ID:              uuid.New().String(),
		IssuanceID:      issuanceID,
		AuthorID:        authorID,
		Content:         content,
		ParentCommentID: parentCommentID,
		Visibility:      visibility,
	}
	if err := s.db.Create(record).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	s.auditLog(authorID, audit.ActionCommentCreate, record.ID,
		fmt.Sprintf("Commented on issuance %s", issuanceID),
		nil,
		audit.JSONAny{"issuanceId": issuanceID, "visibility": string(visibility)})

	return record, nil
}

// Update edits a comment's content. Only the author or an admin may
// edit; edits set isEdited/editedAt and are audit-logged with the
// old and new content.
func (s *Service) Update(id, actorID, content string, isAdmin bool) (*Record, error) {
	record, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, httpapi.NotFound("comment %s not found", id)
	}
	if record.AuthorID != actorID && !isAdmin {
		return nil, httpapi.Forbidden("only the author or an admin may edit this comment")
	}
	if err := validateContent(content); err != nil {
		return nil, err
	}

	oldContent := record.Content
	now := time.Now()
	record.Content = content
	record.IsEdited = true
	record.EditedAt = &now
	if err := s.db.Save(record).Error; err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}

	s.auditLog(actorID, audit.ActionCommentUpdate, record.ID,
		fmt.Sprintf("Edited comment on issuance %s", record.IssuanceID),
		audit.ChangeList{{Field: "content", OldValue: oldContent, NewValue: content}},
		audit.JSONAny{"issuanceId": record.IssuanceID})

	return record, nil
}

// Delete hard-deletes a comment. Only the author or an admin may
// delete; the removed content is captured in the audit entry.
func (s *Service) Delete(id, actorID string, isAdmin bool) error {
	record, err := s.get(id)
	if err != nil {
		return err
	}
	if record == nil {
		return httpapi.NotFound("comment %s not found", id)
	}
	if record.AuthorID != actorID && !isAdmin {
		return httpapi.Forbidden("only the author or an admin may delete this comment")
	}

	if err := s.db.Where("id = ?", id).Delete(&Record{}).Error; err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	s.auditLog(actorID, audit.ActionCommentDelete, record.ID,
		fmt.Sprintf("Deleted comment on issuance %s", record.IssuanceID),
		audit.ChangeList{{Field: "content", OldValue: record.Content, NewValue: ""}},
		audit.JSONAny{"issuanceId": record.IssuanceID})

	return nil
}

// CountByIssuance returns the number of comments visible at the given
// scope for an issuance.
func (s *Service) CountByIssuance(issuanceID string, includeInternal bool) (int64, error) {
	if err := s.requireIssuanceAny(issuanceID); err != nil {
		return 0, err
	}
	query := s.db.Model(&Record{}).Where("issuance_id = ?", issuanceID)
	if !includeInternal {
		query = query.Where("visibility = ?", VisibilityPublic)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return count, nil
}

func (s *Service) get(id string) (*Record, error) {
	var record Record
	err := s.db.Where("id = ?", id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return &record, nil
}

// requireIssuance admits only live issuances; new comments cannot be
// added once the issuance has been soft-deleted.
func (s *Service) requireIssuance(issuanceID string) error {
	exists, err := s.issuances.Exists(issuanceID)
	if err != nil {
		return err
	}
	if !exists {
		return httpapi.NotFound("issuance %s not found", issuanceID)
	}
	return nil
}

// requireIssuanceAny admits soft-deleted issuances too, keeping their
// comment threads readable.
func (s *Service) requireIssuanceAny(issuanceID string) error {
	exists, err := s.issuances.ExistsAny(issuanceID)
	if err != nil {
		return err
	}
	if !exists {
		return httpapi.NotFound("issuance %s not found", issuanceID)
	}
	return nil
}

func (s *Service) auditLog(actorID string, action audit.Action, entityID, description string, changes audit.ChangeList, metadata audit.JSONAny) {
	if actorID == "" || s.audit == nil {
		return
	}
	entry := &audit.LogRecord{
		ID:          uuid.New().String(),
		PerformedBy: actorID,
		Action:      action,
		EntityType:  audit.EntityComment,
		EntityID:    entityID,
		Description: description,
		Changes:     changes,
		Metadata:    metadata,
	}
	if err := s.audit.Append(entry); err != nil {
		s.logger.Error("audit append failed", "action", action, "entityId", entityID, "error", err)
	}
}

func validateContent(content string) error {
	if content == "" {
		return httpapi.Validation("comment content is required")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return httpapi.Validation("comment content exceeds %d characters", maxContentLength)
	}
	return nil
}
