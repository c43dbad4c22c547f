package adminkit

import (
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Status is the lifecycle state of an admin record. Only active records
// carry any permission.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a raw status name into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.TrimSpace(strings.ToLower(raw)))
	if !s.IsValid() {
		return "", NewError(ErrInvalidStatus, fmt.Sprintf("status %q is not defined", raw))
	}
	return s, nil
}

// AdminRecord binds one identity to one administrative role.
// One identity has at most one record.
type AdminRecord struct {
	bun.BaseModel `bun:"table:admin_records,alias:ar"`

	ID         string `bun:"id,pk,type:uuid"`
	IdentityID string `bun:"identity_id,notnull,unique"`
	Role       Role   `bun:"role,notnull"`

	// Explicit permissions of a custom role. nil means "not recorded" and is
	// always the case for built-in roles; an empty non-nil slice is an
	// explicit empty grant.
	Permissions []Permission `bun:"permissions,array"`

	Status     Status    `bun:"status,notnull"`
	AssignedAt time.Time `bun:"assigned_at,notnull"`
	AssignedBy string    `bun:"assigned_by,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`

	// Version increments on every write and guards against lost updates.
	Version int64 `bun:"version,notnull"`
}

// Clone returns a deep copy of the record.
func (r *AdminRecord) Clone() *AdminRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.Permissions != nil {
		out.Permissions = append([]Permission{}, r.Permissions...)
	}
	return &out
}

// State returns the audited portion of the record.
func (r *AdminRecord) State() *RoleState {
	if r == nil {
		return nil
	}
	return &RoleState{
		Role:        r.Role,
		Permissions: normalizePermissions(r.Permissions),
		Status:      r.Status,
	}
}

// RoleState is the role, explicit permissions and status of a record at one
// point in time. A nil *RoleState means "no record".
type RoleState struct {
	Role        Role         `json:"role" cbor:"1,keyasint"`
	Permissions []Permission `json:"permissions,omitempty" cbor:"2,keyasint"`
	Status      Status       `json:"status" cbor:"3,keyasint"`
}

// Equal compares two states, treating nil permissions and empty permissions
// as different.
func (s *RoleState) Equal(o *RoleState) bool {
	if s == nil || o == nil {
		return s == nil && o == nil
	}
	return s.Role == o.Role && s.Status == o.Status && equalPermissions(s.Permissions, o.Permissions)
}

// Diff names the fields that differ between s and o.
func (s *RoleState) Diff(o *RoleState) []string {
	var changes []string
	var a, b RoleState
	if s != nil {
		a = *s
	}
	if o != nil {
		b = *o
	}
	if a.Role != b.Role {
		changes = append(changes, ChangeRole)
	}
	if !equalPermissions(a.Permissions, b.Permissions) {
		changes = append(changes, ChangePermissions)
	}
	if a.Status != b.Status {
		changes = append(changes, ChangeStatus)
	}
	return changes
}

// Field names reported in AuditEntry.Changes.
const (
	ChangeRole        = "role"
	ChangePermissions = "permissions"
	ChangeStatus      = "status"
)

// AuditAction represents the type of action in the audit log.
type AuditAction string

const (
	AuditActionCreated     AuditAction = "created"
	AuditActionUpdated     AuditAction = "updated"
	AuditActionDeleted     AuditAction = "deleted"
	AuditActionSuspended   AuditAction = "suspended"
	AuditActionReactivated AuditAction = "reactivated"
)

// IsValid reports whether a is a known action.
func (a AuditAction) IsValid() bool {
	switch a {
	case AuditActionCreated, AuditActionUpdated, AuditActionDeleted, AuditActionSuspended, AuditActionReactivated:
		return true
	}
	return false
}

// AuditEntry records one transition of one admin record. Entries are
// appended once and never updated or deleted.
//
// There is no foreign key to admin_records: a removal is recorded before the
// row disappears and the entry must outlive it.
type AuditEntry struct {
	bun.BaseModel `bun:"table:admin_audit_log,alias:aal"`

	ID  string `bun:"id,pk,type:uuid"`
	Seq int64  `bun:"seq,scanonly"`

	// Target of the action
	AdminRecordID string `bun:"admin_record_id,notnull"`
	IdentityID    string `bun:"identity_id,notnull"`

	// What action was performed
	Action  AuditAction `bun:"action,notnull"`
	Changes []string    `bun:"changes,array"`

	// State before and after
	PreviousRole        Role         `bun:"previous_role,nullzero"`
	NewRole             Role         `bun:"new_role,nullzero"`
	PreviousPermissions []Permission `bun:"previous_permissions,array"`
	NewPermissions      []Permission `bun:"new_permissions,array"`
	PreviousStatus      Status       `bun:"previous_status,nullzero"`
	NewStatus           Status       `bun:"new_status,nullzero"`

	// Who performed the action and why
	ActorID string `bun:"actor_id,notnull"`
	Reason  string `bun:"reason,nullzero"`

	// Request metadata for forensics
	IPAddress string `bun:"ip_address,nullzero"`
	UserAgent string `bun:"user_agent,nullzero"`
	RequestID string `bun:"request_id,nullzero"`

	Timestamp time.Time `bun:"timestamp,notnull"`

	// Tamper evidence: hash of the previous entry of the same record and of this one.
	PrevHash string `bun:"prev_hash,nullzero"`
	Hash     string `bun:"hash,notnull"`
}

// Before returns the state of the record before the transition, or nil when
// the record did not exist.
func (e *AuditEntry) Before() *RoleState {
	if e.Action == AuditActionCreated || e.PreviousRole == "" {
		return nil
	}
	return &RoleState{Role: e.PreviousRole, Permissions: e.PreviousPermissions, Status: e.PreviousStatus}
}

// After returns the state of the record after the transition, or nil when
// the record was removed.
func (e *AuditEntry) After() *RoleState {
	if e.Action == AuditActionDeleted || e.NewRole == "" {
		return nil
	}
	return &RoleState{Role: e.NewRole, Permissions: e.NewPermissions, Status: e.NewStatus}
}

// Transition describes one change of one admin record, to be recorded.
type Transition struct {
	AdminRecordID string
	IdentityID    string
	Before        *RoleState
	After         *RoleState
	ActorID       string
	Reason        string
	Audit         AuditContext
}

// ToModel converts a Transition to an AuditEntry model. Identity, chain and
// time fields are set by the Recorder.
func (t *Transition) ToModel() *AuditEntry {
	e := &AuditEntry{
		AdminRecordID: t.AdminRecordID,
		IdentityID:    t.IdentityID,
		Action:        InferAction(t.Before, t.After),
		Changes:       t.Before.Diff(t.After),
		ActorID:       t.ActorID,
		Reason:        t.Reason,
		IPAddress:     t.Audit.IPAddress,
		UserAgent:     t.Audit.UserAgent,
		RequestID:     t.Audit.RequestID,
	}
	if t.Before != nil {
		e.PreviousRole = t.Before.Role
		e.PreviousPermissions = normalizePermissions(t.Before.Permissions)
		e.PreviousStatus = t.Before.Status
	}
	if t.After != nil {
		e.NewRole = t.After.Role
		e.NewPermissions = normalizePermissions(t.After.Permissions)
		e.NewStatus = t.After.Status
	}
	if e.Changes == nil {
		e.Changes = []string{}
	}
	return e
}
