package adminkit

import "time"

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// AuditLogFilter provides options for filtering audit log queries.
// Results are ordered by timestamp, ties broken by insertion order.
type AuditLogFilter struct {
	// Filter by affected admin record
	AdminRecordID string

	// Filter by affected identity
	IdentityID string

	// Filter by actor who performed the action
	ActorID string

	// Filter by action type
	Action AuditAction

	// Filter by time range (inclusive)
	Since time.Time
	Until time.Time

	// NewestFirst reverses the order.
	NewestFirst bool

	// Pagination. A zero Limit means the default of 100; negative means no limit.
	Limit  int
	Offset int
}

// NewAuditLogFilter creates a new AuditLogFilter with default values.
func NewAuditLogFilter() AuditLogFilter {
	return AuditLogFilter{
		Limit: defaultAuditLimit,
	}
}

// WithAdminRecord sets the admin record filter.
func (f AuditLogFilter) WithAdminRecord(id string) AuditLogFilter {
	f.AdminRecordID = id
	return f
}

// WithIdentity sets the affected identity filter.
func (f AuditLogFilter) WithIdentity(identityID string) AuditLogFilter {
	f.IdentityID = identityID
	return f
}

// WithActor sets the actor ID filter.
func (f AuditLogFilter) WithActor(actorID string) AuditLogFilter {
	f.ActorID = actorID
	return f
}

// WithAction sets the action filter.
func (f AuditLogFilter) WithAction(action AuditAction) AuditLogFilter {
	f.Action = action
	return f
}

// WithTimeRange sets the time range filter.
func (f AuditLogFilter) WithTimeRange(since, until time.Time) AuditLogFilter {
	f.Since = since
	f.Until = until
	return f
}

// WithSince sets the start time filter.
func (f AuditLogFilter) WithSince(since time.Time) AuditLogFilter {
	f.Since = since
	return f
}

// WithUntil sets the end time filter.
func (f AuditLogFilter) WithUntil(until time.Time) AuditLogFilter {
	f.Until = until
	return f
}

// WithNewestFirst orders the newest entries first.
func (f AuditLogFilter) WithNewestFirst() AuditLogFilter {
	f.NewestFirst = true
	return f
}

// WithLimit sets the limit for results.
func (f AuditLogFilter) WithLimit(limit int) AuditLogFilter {
	f.Limit = limit
	return f
}

// WithOffset sets the offset for pagination.
func (f AuditLogFilter) WithOffset(offset int) AuditLogFilter {
	f.Offset = offset
	return f
}

// WithPagination sets both limit and offset.
func (f AuditLogFilter) WithPagination(limit, offset int) AuditLogFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

// effectiveLimit resolves the default and the cap. 0 means unlimited.
func (f AuditLogFilter) effectiveLimit() int {
	switch {
	case f.Limit < 0:
		return 0
	case f.Limit == 0:
		return defaultAuditLimit
	case f.Limit > maxAuditLimit:
		return maxAuditLimit
	}
	return f.Limit
}

// Matches reports whether e passes every field filter. Pagination is not applied.
func (f AuditLogFilter) Matches(e *AuditEntry) bool {
	if f.AdminRecordID != "" && e.AdminRecordID != f.AdminRecordID {
		return false
	}
	if f.IdentityID != "" && e.IdentityID != f.IdentityID {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
		return false
	}
	return true
}

// AdminRecordFilter provides options for listing admin records.
type AdminRecordFilter struct {
	Role   Role
	Status Status

	Limit  int
	Offset int
}

// WithRole sets the role filter.
func (f AdminRecordFilter) WithRole(role Role) AdminRecordFilter {
	f.Role = role
	return f
}

// WithStatus sets the status filter.
func (f AdminRecordFilter) WithStatus(status Status) AdminRecordFilter {
	f.Status = status
	return f
}

// WithPagination sets both limit and offset.
func (f AdminRecordFilter) WithPagination(limit, offset int) AdminRecordFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

// Matches reports whether rec passes the role and status filters.
func (f AdminRecordFilter) Matches(rec *AdminRecord) bool {
	if f.Role != "" && rec.Role != f.Role {
		return false
	}
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	return true
}
