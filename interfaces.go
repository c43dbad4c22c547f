package adminkit

import (
	"context"
	"net/http"

	"github.com/fernandezvara/dbkit"
)

// Store is the persistence contract of the engine. Implementations must
// make WithinTx atomic: every write issued through the tx Store passed to fn
// commits together or not at all.
//
// Lookups return (nil, nil) when nothing matches.
type Store interface {
	// FindAdminRecord returns the record of an identity.
	FindAdminRecord(ctx context.Context, identityID string) (*AdminRecord, error)
	// GetAdminRecordByID returns a record by its own id.
	GetAdminRecordByID(ctx context.Context, id string) (*AdminRecord, error)
	// LockAdminRecord is FindAdminRecord that also holds the row until the
	// surrounding transaction ends.
	LockAdminRecord(ctx context.Context, identityID string) (*AdminRecord, error)
	// InsertAdminRecord fails with ErrAlreadyAdmin if the identity has a record.
	InsertAdminRecord(ctx context.Context, rec *AdminRecord) error
	// UpdateAdminRecord writes rec if the stored version still equals
	// expectedVersion, and fails with ErrVersionMismatch otherwise.
	UpdateAdminRecord(ctx context.Context, rec *AdminRecord, expectedVersion int64) error
	// DeleteAdminRecord removes rec under the same version check.
	DeleteAdminRecord(ctx context.Context, rec *AdminRecord, expectedVersion int64) error
	ListAdminRecords(ctx context.Context, filter AdminRecordFilter) ([]*AdminRecord, error)
	// LockAdminRecords blocks every other writer of admin records until the
	// surrounding transaction ends. Only valid inside WithinTx.
	LockAdminRecords(ctx context.Context) error

	// LastAuditEntry returns the newest entry of a record.
	LastAuditEntry(ctx context.Context, adminRecordID string) (*AuditEntry, error)
	AppendAuditEntry(ctx context.Context, entry *AuditEntry) error
	ListAuditEntries(ctx context.Context, filter AuditLogFilter) ([]*AuditEntry, error)

	WithinTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

// PrincipalResolver extracts the authenticated identity of a request.
// It returns ErrUnauthenticated when the request carries no valid principal;
// any other error is treated as an internal failure.
type PrincipalResolver interface {
	Resolve(r *http.Request) (string, error)
}

// TokenVerifier turns a bearer token into a stable identity reference.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// HealthMonitor defines the health monitoring interface
type HealthMonitor interface {
	Health(ctx context.Context) dbkit.HealthStatus
	IsHealthy(ctx context.Context) bool
	Ping(ctx context.Context) error
	GetPoolStats() dbkit.PoolStats
}

// TransactionMonitor defines the transaction monitoring interface
type TransactionMonitor interface {
	GetTransactionMetrics() TransactionMetrics
	ResetTransactionMetrics()
	IsTransactionHealthy() bool
}
