package issuance

import (
	"fmt"
	"log/slog"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"

	"github.com/usgportal/issuance-registry/pkg/audit"
	"github.com/usgportal/issuance-registry/pkg/departments"
	"github.com/usgportal/issuance-registry/pkg/httpapi"
)

// Service owns the issuance entity. Every mutation appends the
// matching history entries and, when performed by an identified actor,
// exactly one audit trail entry. The record write and its history
// entries commit in one transaction; audit writes stay outside it and
// remain best-effort.
//
// Concurrent mutations of the same issuance are not guarded by a lock
// or revision token: the storage layer's last write wins. Callers that
// need stricter semantics must serialize externally.
type Service struct {
	store    *Store
	audit    *audit.Store
	registry *departments.Registry
	machine  *StatusMachine
	logger   *slog.Logger
}

// NewService creates an issuance Service with injected dependencies.
func NewService(store *Store, auditStore *audit.Store, registry *departments.Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		audit:    auditStore,
		registry: registry,
		machine:  NewStatusMachine(),
		logger:   logger,
	}
}

// Machine exposes the status machine for UI filtering endpoints.
func (s *Service) Machine() *StatusMachine { return s.machine }

// CreateInput carries the fields accepted on issuance creation.
type CreateInput struct {
	Title         string     `json:"title"`
	Type          DocType    `json:"type"`
	Description   string     `json:"description"`
	DocumentURL   string     `json:"documentUrl"`
	IssuedBy      string     `json:"issuedBy"`
	IssuedDate    *time.Time `json:"issuedDate"`
	Category      string     `json:"category"`
	Department    string     `json:"department"`
	Priority      Priority   `json:"priority"`
	Tags          []string   `json:"tags"`
	InternalNotes string     `json:"internalNotes"`
	Status        Status     `json:"status"`
}

// Create persists a new issuance. Status defaults to DRAFT, the status
// history is seeded with a synthetic creation entry, and a CREATE audit
// entry is written for identified actors.
func (s *Service) Create(input CreateInput, actorID string) (*Record, error) {
	if input.Title == "" {
		return nil, httpapi.Validation("title is required")
	}
	if input.Type == "" {
		return nil, httpapi.Validation("type is required")
	}
	if input.DocumentURL == "" {
		return nil, httpapi.Validation("documentUrl is required")
	}

	status := input.Status
	if status == "" {
		status = StatusDraft
	}
	if !status.Valid() {
		return nil, httpapi.Validation("unknown status: %s", status)
	}

	priority := input.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	record := &Record{
		ID:             uuid.New().String(),
		Title:          input.Title,
		Type:           input.Type,
		Description:    input.Description,
		DocumentURL:    input.DocumentURL,
		IssuedBy:       input.IssuedBy,
		IssuedDate:     input.IssuedDate,
		Category:       input.Category,
		Department:     input.Department,
		Priority:       priority,
		Tags:           dedupeTags(input.Tags),
		InternalNotes:  input.InternalNotes,
		Status:         status,
		CreatedBy:      actorID,
		LastModifiedBy: actorID,
	}

	err := s.store.Transaction(func(tx *Store) error {
		if err := tx.Create(record); err != nil {
			return err
		}
		return tx.AppendStatusHistory(&StatusHistoryRecord{
			ID:         uuid.New().String(),
			IssuanceID: record.ID,
			FromStatus: nil,
			ToStatus:   status,
			ChangedBy:  actorID,
			Reason:     "Initial creation",
		})
	})
	if err != nil {
		return nil, err
	}

	s.auditLog(actorID, audit.ActionCreate, record.ID,
		fmt.Sprintf("Created issuance %q", record.Title),
		nil,
		audit.JSONAny{
			"title":    record.Title,
			"status":   string(record.Status),
			"type":     string(record.Type),
			"priority": string(record.Priority),
		})

	return record, nil
}

// UpdateInput carries the allow-listed mutable fields. Nil pointers
// mean "not present in the patch".
type UpdateInput struct {
	Title         *string           `json:"title"`
	Type          *DocType          `json:"type"`
	Description   *string           `json:"description"`
	DocumentURL   *string           `json:"documentUrl"`
	IssuedBy      *string           `json:"issuedBy"`
	IssuedDate    *time.Time        `json:"issuedDate"`
	Category      *string           `json:"category"`
	Priority      *Priority         `json:"priority"`
	Department    *string           `json:"department"`
	Tags          *[]string         `json:"tags"`
	InternalNotes *string           `json:"internalNotes"`
	Attachments   []AttachmentInput `json:"attachments"`
}

// Update applies a patch over the allow-listed fields. Each field whose
// value actually changes yields one version history entry; attachments
// merge append-only by URL. A patch that changes nothing is a silent
// no-op: no history and no audit entry.
func (s *Service) Update(id string, patch UpdateInput, actorID string) (*Record, error) {
	record, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, httpapi.NotFound("issuance %s not found", id)
	}

	var changes audit.ChangeList

	err = s.store.Transaction(func(tx *Store) error {
		apply := func(field, oldVal, newVal string, set func()) error {
			if oldVal == newVal {
				return nil
			}
			if err := s.recordVersion(tx, record.ID, field, oldVal, newVal, actorID); err != nil {
				return err
			}
			changes = append(changes, audit.FieldChange{Field: field, OldValue: oldVal, NewValue: newVal})
			set()
			return nil
		}

		if patch.Title != nil {
			if err := apply("title", record.Title, *patch.Title, func() { record.Title = *patch.Title }); err != nil {
				return err
			}
		}
		if patch.Type != nil {
			if err := apply("type", encodeValue(record.Type), encodeValue(*patch.Type), func() { record.Type = *patch.Type }); err != nil {
				return err
			}
		}
		if patch.Description != nil {
			if err := apply("description", record.Description, *patch.Description, func() { record.Description = *patch.Description }); err != nil {
				return err
			}
		}
		if patch.DocumentURL != nil {
			if err := apply("documentUrl", record.DocumentURL, *patch.DocumentURL, func() { record.DocumentURL = *patch.DocumentURL }); err != nil {
				return err
			}
		}
		if patch.IssuedBy != nil {
			if err := apply("issuedBy", record.IssuedBy, *patch.IssuedBy, func() { record.IssuedBy = *patch.IssuedBy }); err != nil {
				return err
			}
		}
		if patch.IssuedDate != nil {
			if err := apply("issuedDate", encodeValue(record.IssuedDate), encodeValue(patch.IssuedDate), func() { record.IssuedDate = patch.IssuedDate }); err != nil {
				return err
			}
		}
		if patch.Category != nil {
			if err := apply("category", record.Category, *patch.Category, func() { record.Category = *patch.Category }); err != nil {
				return err
			}
		}
		if patch.Priority != nil {
			if err := apply("priority", encodeValue(record.Priority), encodeValue(*patch.Priority), func() { record.Priority = *patch.Priority }); err != nil {
				return err
			}
		}
		if patch.Department != nil {
			if err := apply("department", record.Department, *patch.Department, func() { record.Department = *patch.Department }); err != nil {
				return err
			}
		}
		if patch.Tags != nil {
			newTags := dedupeTags(*patch.Tags)
			if err := apply("tags", encodeValue([]string(record.Tags)), encodeValue([]string(newTags)), func() { record.Tags = newTags }); err != nil {
				return err
			}
		}
		if patch.InternalNotes != nil {
			if err := apply("internalNotes", record.InternalNotes, *patch.InternalNotes, func() { record.InternalNotes = *patch.InternalNotes }); err != nil {
				return err
			}
		}

		// Attachments merge append-only, keyed on URL. Existing attachments
		// are never replaced through this path.
		if len(patch.Attachments) > 0 {
			existing, err := tx.ListAttachments(record.ID)
			if err != nil {
				return err
			}
			seen := mapset.NewSet[string]()
			for _, att := range existing {
				seen.Add(att.URL)
			}
			added := 0
			for _, input := range patch.Attachments {
				if input.URL == "" || !seen.Add(input.URL) {
					continue
				}
				if err := tx.AppendAttachment(input.toRecord(record.ID, actorID)); err != nil {
					return err
				}
				added++
			}
			if added > 0 {
				oldCount := fmt.Sprintf("%d", len(existing))
				newCount := fmt.Sprintf("%d", len(existing)+added)
				if err := s.recordVersion(tx, record.ID, "attachments", oldCount, newCount, actorID); err != nil {
					return err
				}
				changes = append(changes, audit.FieldChange{Field: "attachments", OldValue: oldCount, NewValue: newCount})
			}
		}

		if len(changes) == 0 {
			return nil
		}

		record.LastModifiedBy = actorID
		return tx.Save(record)
	})
	if err != nil {
		return nil, err
	}

	if len(changes) == 0 {
		return record, nil
	}

	s.auditLog(actorID, audit.ActionUpdate, record.ID,
		fmt.Sprintf("Updated issuance %q (%d fields)", record.Title, len(changes)),
		changes, nil)

	return record, nil
}

// UpdateStatus moves the issuance through the workflow state machine.
// Invalid transitions are rejected before any mutation. APPROVED and
// REJECTED set their actor/timestamp side-effect fields.
func (s *Service) UpdateStatus(id string, newStatus Status, actorID, reason string) (*Record, error) {
	record, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, httpapi.NotFound("issuance %s not found", id)
	}

	if !newStatus.Valid() {
		return nil, httpapi.Validation("unknown status: %s", newStatus)
	}
	if err := s.machine.ValidateTransition(record.Status, newStatus); err != nil {
		return nil, err
	}

	oldStatus := record.Status
	now := time.Now()

	err = s.store.Transaction(func(tx *Store) error {
		if err := tx.AppendStatusHistory(&StatusHistoryRecord{
			ID:         uuid.New().String(),
			IssuanceID: record.ID,
			FromStatus: &oldStatus,
			ToStatus:   newStatus,
			ChangedBy:  actorID,
			Reason:     reason,
		}); err != nil {
			return err
		}
		if err := s.recordVersion(tx, record.ID, "status", encodeValue(oldStatus), encodeValue(newStatus), actorID); err != nil {
			return err
		}

		record.Status = newStatus
		switch newStatus {
		case StatusApproved:
			record.ApprovedAt = &now
			record.ApprovedBy = actorID
		case StatusRejected:
			record.RejectedAt = &now
			record.RejectedBy = actorID
		}
		record.LastModifiedBy = actorID
		return tx.Save(record)
	})
	if err != nil {
		return nil, err
	}

	s.auditLog(actorID, audit.ActionStatusChange, record.ID,
		fmt.Sprintf("Changed status of %q from %s to %s", record.Title, oldStatus, newStatus),
		audit.ChangeList{{Field: "status", OldValue: string(oldStatus), NewValue: string(newStatus)}},
		audit.JSONAny{"reason": reason})

	return record, nil
}

// AttachmentInput carries attachment metadata for add and merge paths.
type AttachmentInput struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	FileType string `json:"fileType"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

func (a AttachmentInput) toRecord(issuanceID, actorID string) *AttachmentRecord {
	return &AttachmentRecord{
		ID:         uuid.New().String(),
		IssuanceID: issuanceID,
		Filename:   a.Filename,
		URL:        a.URL,
		FileType:   a.FileType,
		MimeType:   a.MimeType,
		Size:       a.Size,
		UploadedBy: actorID,
	}
}

// AddAttachment appends one attachment and records the count delta in
// version history. Additions are not audit-logged; removals are.
func (s *Service) AddAttachment(id string, input AttachmentInput, actorID string) (*AttachmentRecord, error) {
	record, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, httpapi.NotFound("issuance %s not found", id)
	}
	if input.Filename == "" || input.URL == "" {
		return nil, httpapi.Validation("attachment filename and url are required")
	}

	att := input.toRecord(record.ID, actorID)
	err = s.store.Transaction(func(tx *Store) error {
		before, err := tx.CountAttachments(record.ID)
		if err != nil {
			return err
		}
		if err := tx.AppendAttachment(att); err != nil {
			return err
		}
		return s.recordVersion(tx, record.ID, "attachments",
			fmt.Sprintf("%d", before), fmt.Sprintf("%d", before+1), actorID)
	})
	if err != nil {
		return nil, err
	}

	return att, nil
}

// RemoveAttachment deletes one attachment by id, recording the removed
// filename and remaining count in version history plus an
// ATTACHMENT_REMOVE audit entry.
func (s *Service) RemoveAttachment(id, attachmentID, actorID string) error {
	record, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if record == nil {
		return httpapi.NotFound("issuance %s not found", id)
	}

	att, err := s.store.GetAttachment(record.ID, attachmentID)
	if err != nil {
		return err
	}
	if att == nil {
		return httpapi.NotFound("attachment %s not found on issuance %s", attachmentID, id)
	}

	err = s.store.Transaction(func(tx *Store) error {
		if err := tx.DeleteAttachment(record.ID, attachmentID); err != nil {
			return err
		}
		remaining, err := tx.CountAttachments(record.ID)
		if err != nil {
			return err
		}
		return s.recordVersion(tx, record.ID, "attachments",
			att.Filename, fmt.Sprintf("%d remaining", remaining), actorID)
	})
	if err != nil {
		return err
	}

	s.auditLog(actorID, audit.ActionAttachmentRemove, record.ID,
		fmt.Sprintf("Removed attachment %q from issuance %q", att.Filename, record.Title),
		audit.ChangeList{{Field: "attachments", OldValue: att.Filename, NewValue: ""}},
		nil)

	return nil
}

// Delete soft-deletes the issuance. History, comments, and attachments
// remain queryable. Deleting an already-deleted issuance is a no-op.
func (s *Service) Delete(id, actorID string) (*Record, error) {
	record, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, httpapi.NotFound("issuance %s not found", id)
	}
	if record.IsDeleted {
		return record, nil
	}

	now := time.Now()
	record.IsDeleted = true
	record.DeletedAt = &now
	record.DeletedBy = actorID
	record.LastModifiedBy = actorID
	err = s.store.Transaction(func(tx *Store) error {
		if err := tx.Save(record); err != nil {
			return err
		}
		return s.recordVersion(tx, record.ID, "isDeleted", "false", "true", actorID)
	})
	if err != nil {
		return nil, err
	}

	s.auditLog(actorID, audit.ActionDelete, record.ID,
		fmt.Sprintf("Deleted issuance %q", record.Title),
		audit.ChangeList{{Field: "isDeleted", OldValue: "false", NewValue: "true"}},
		nil)

	return record, nil
}

// AssignDepartment validates the identifier against the department
// registry and overwrites the department field.
func (s *Service) AssignDepartment(id, departmentIdentifier, actorID, reason string) (*Record, error) {
	dept, err := s.registry.Resolve(departmentIdentifier)
	if err != nil {
		return nil, err
	}

	record, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, httpapi.NotFound("issuance %s not found", id)
	}

	oldDept := record.Department
	if oldDept == dept.Name {
		return record, nil
	}

	record.Department = dept.Name
	record.LastModifiedBy = actorID
	err = s.store.Transaction(func(tx *Store) error {
		if err := s.recordVersion(tx, record.ID, "department", oldDept, dept.Name, actorID); err != nil {
			return err
		}
		return tx.Save(record)
	})
	if err != nil {
		return nil, err
	}

	description := fmt.Sprintf("Assigned issuance %q to department %q", record.Title, dept.Name)
	if oldDept != "" {
		description = fmt.Sprintf("Reassigned issuance %q from department %q to %q", record.Title, oldDept, dept.Name)
	}
	s.auditLog(actorID, audit.ActionDepartmentAssign, record.ID,
		description,
		audit.ChangeList{{Field: "department", OldValue: oldDept, NewValue: dept.Name}},
		audit.JSONAny{"reason": reason})

	return record, nil
}

// Detail bundles an issuance with its attachments and full history for
// the detail view.
type Detail struct {
	Record
	Attachments    []AttachmentRecord     `json:"attachments"`
	StatusHistory  []StatusHistoryRecord  `json:"statusHistory"`
	VersionHistory []VersionHistoryRecord `json:"versionHistory"`
}

// Get returns the full issuance record including soft-deleted ones.
func (s *Service) Get(id string) (*Detail, error) {
	record, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, httpapi.NotFound("issuance %s not found", id)
	}
	attachments, err := s.store.ListAttachments(record.ID)
	if err != nil {
		return nil, err
	}
	statusHistory, err := s.store.ListStatusHistory(record.ID)
	if err != nil {
		return nil, err
	}
	versionHistory, err := s.store.ListVersionHistory(record.ID)
	if err != nil {
		return nil, err
	}
	return &Detail{
		Record:         *record,
		Attachments:    attachments,
		StatusHistory:  statusHistory,
		VersionHistory: versionHistory,
	}, nil
}

// List returns filtered, paginated issuances.
func (s *Service) List(filter ListFilter, opts httpapi.PageOpts) ([]Record, int64, error) {
	return s.store.List(filter, opts)
}

// ListPublished returns published issuances, newest issued first.
func (s *Service) ListPublished(opts httpapi.PageOpts) ([]Record, int64, error) {
	return s.store.ListPublished(opts)
}

// StatusHistory returns the ordered status transitions of an issuance.
func (s *Service) StatusHistory(id string) ([]StatusHistoryRecord, error) {
	record, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, httpapi.NotFound("issuance %s not found", id)
	}
	return s.store.ListStatusHistory(id)
}

// VersionHistory returns the ordered field changes of an issuance.
func (s *Service) VersionHistory(id string) ([]VersionHistoryRecord, error) {
	record, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, httpapi.NotFound("issuance %s not found", id)
	}
	return s.store.ListVersionHistory(id)
}

// StatusOptions reports the current status and its valid successors.
type StatusOptions struct {
	CurrentStatus     Status   `json:"currentStatus"`
	ValidNextStatuses []Status `json:"validNextStatuses"`
}

// ValidStatuses returns the transition options for an issuance.
func (s *Service) ValidStatuses(id string) (*StatusOptions, error) {
	record, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, httpapi.NotFound("issuance %s not found", id)
	}
	return &StatusOptions{
		CurrentStatus:     record.Status,
		ValidNextStatuses: s.machine.ValidNextStatuses(record.Status),
	}, nil
}

func (s *Service) recordVersion(st *Store, issuanceID, field, oldValue, newValue, actorID string) error {
	return st.AppendVersionHistory(&VersionHistoryRecord{
		ID:         uuid.New().String(),
		IssuanceID: issuanceID,
		Field:      field,
		OldValue:   oldValue,
		NewValue:   newValue,
		ChangedBy:  actorID,
	})
}

// auditLog writes one audit entry for an identified actor. Anonymous
// mutations are not audited. Audit writes are best-effort: a failed
// append is logged, never surfaced to the caller.
func (s *Service) auditLog(actorID string, action audit.Action, entityID, description string, changes audit.ChangeList, metadata audit.JSONAny) {
	if actorID == "" || s.audit == nil {
		return
	}
	entry := &audit.LogRecord{
		ID:          uuid.New().String(),
		PerformedBy: actorID,
		Action:      action,
		EntityType:  audit.EntityIssuance,
		EntityID:    entityID,
		Description: description,
		Changes:     changes,
		Metadata:    metadata,
	}
	if err := s.audit.Append(entry); err != nil {
		s.logger.Error("audit append failed", "action", action, "entityId", entityID, "error", err)
	}
}

// dedupeTags removes duplicate tags preserving first-occurrence order.
func dedupeTags(tags []string) JSONStringSlice {
	if len(tags) == 0 {
		return nil
	}
	seen := mapset.NewSet[string]()
	out := make(JSONStringSlice, 0, len(tags))
	for _, tag := range tags {
		if tag == "" || !seen.Add(tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}
