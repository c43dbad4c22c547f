package adminkit

import (
	"context"
	"fmt"

	"github.com/fernandezvara/dbkit"
	"github.com/sirupsen/logrus"
)

// DBStore is the PostgreSQL Store, built on dbkit and bun.
//
// Every database operation uses dbkit's chainable error wrapping so that
// failures carry the operation name and keep their original classification:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	store := adminkit.NewDBStore(db)
//	if _, err := db.Migrate(ctx, adminkit.Migrations()); err != nil {
//	    log.Fatal(err)
//	}
type DBStore struct {
	db     dbkit.IDB
	logger logrus.FieldLogger
}

// DBStoreOption configures a DBStore.
type DBStoreOption func(*DBStore)

// WithStoreLogger sets the logger used for pool and health events.
func WithStoreLogger(logger logrus.FieldLogger) DBStoreOption {
	return func(s *DBStore) {
		s.logger = logger
	}
}

// NewDBStore creates a Store over db. Transactions require db to be a
// *dbkit.DBKit or a *dbkit.Tx.
func NewDBStore(db dbkit.IDB, opts ...DBStoreOption) *DBStore {
	s := &DBStore{db: db, logger: discardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying database handle.
func (s *DBStore) DB() dbkit.IDB {
	return s.db
}

// WithinTx runs fn in a transaction. On a store that is already
// transactional it opens a savepoint instead.
func (s *DBStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	switch db := s.db.(type) {
	case *dbkit.Tx:
		return db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(&DBStore{db: tx, logger: s.logger})
		})
	case *dbkit.DBKit:
		return db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(&DBStore{db: tx, logger: s.logger})
		})
	}
	return fmt.Errorf("transaction support requires a dbkit.DBKit or dbkit.Tx instance, got %T", s.db)
}

func (s *DBStore) FindAdminRecord(ctx context.Context, identityID string) (*AdminRecord, error) {
	var rec AdminRecord
	err := dbkit.WithErr1(s.db.NewSelect().Model(&rec).Where("identity_id = ?", identityID).Limit(1).Scan(ctx), "FindAdminRecord").Err()
	return foundOrNil(&rec, err)
}

func (s *DBStore) GetAdminRecordByID(ctx context.Context, id string) (*AdminRecord, error) {
	var rec AdminRecord
	err := dbkit.WithErr1(s.db.NewSelect().Model(&rec).Where("id = ?", id).Limit(1).Scan(ctx), "GetAdminRecordByID").Err()
	return foundOrNil(&rec, err)
}

func (s *DBStore) LockAdminRecord(ctx context.Context, identityID string) (*AdminRecord, error) {
	var rec AdminRecord
	err := dbkit.WithErr1(s.db.NewSelect().Model(&rec).Where("identity_id = ?", identityID).For("UPDATE").Limit(1).Scan(ctx), "LockAdminRecord").Err()
	return foundOrNil(&rec, err)
}

// LockAdminRecords takes a table lock that conflicts with itself and with
// inserts, so checks over the whole table stay true until commit.
func (s *DBStore) LockAdminRecords(ctx context.Context) error {
	result, err := s.db.NewRaw("LOCK TABLE admin_records IN SHARE ROW EXCLUSIVE MODE").Exec(ctx)
	return dbkit.WithErr(result, err, "LockAdminRecords").Err()
}

func (s *DBStore) InsertAdminRecord(ctx context.Context, rec *AdminRecord) error {
	result, err := s.db.NewInsert().Model(rec).Exec(ctx)
	err = dbkit.WithErr(result, err, "InsertAdminRecord").Err()
	if err != nil {
		if dbkit.IsDuplicate(err) {
			return NewError(ErrAlreadyAdmin, "identity already has an admin record").WithIdentity(rec.IdentityID)
		}
		return err
	}
	return nil
}

func (s *DBStore) UpdateAdminRecord(ctx context.Context, rec *AdminRecord, expectedVersion int64) error {
	result, err := s.db.NewUpdate().Model(rec).WherePK().Where("version = ?", expectedVersion).Exec(ctx)
	if err = dbkit.WithErr(result, err, "UpdateAdminRecord").Err(); err != nil {
		return err
	}
	return checkVersionedWrite(result.RowsAffected, rec.IdentityID)
}

func (s *DBStore) DeleteAdminRecord(ctx context.Context, rec *AdminRecord, expectedVersion int64) error {
	result, err := s.db.NewDelete().Model((*AdminRecord)(nil)).Where("id = ?", rec.ID).Where("version = ?", expectedVersion).Exec(ctx)
	if err = dbkit.WithErr(result, err, "DeleteAdminRecord").Err(); err != nil {
		return err
	}
	return checkVersionedWrite(result.RowsAffected, rec.IdentityID)
}

func (s *DBStore) ListAdminRecords(ctx context.Context, filter AdminRecordFilter) ([]*AdminRecord, error) {
	var records []*AdminRecord
	q := s.db.NewSelect().Model(&records)
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	q = q.Order("created_at ASC", "identity_id ASC")
	if err := dbkit.WithErr1(q.Scan(ctx), "ListAdminRecords").Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *DBStore) LastAuditEntry(ctx context.Context, adminRecordID string) (*AuditEntry, error) {
	var entry AuditEntry
	err := dbkit.WithErr1(s.db.NewSelect().Model(&entry).
		Where("admin_record_id = ?", adminRecordID).
		Order("timestamp DESC", "seq DESC").
		Limit(1).
		Scan(ctx), "LastAuditEntry").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (s *DBStore) AppendAuditEntry(ctx context.Context, entry *AuditEntry) error {
	result, err := s.db.NewInsert().Model(entry).Returning("seq").Exec(ctx)
	return dbkit.WithErr(result, err, "AppendAuditEntry").Err()
}

func (s *DBStore) ListAuditEntries(ctx context.Context, filter AuditLogFilter) ([]*AuditEntry, error) {
	var entries []*AuditEntry
	q := s.db.NewSelect().Model(&entries)
	if filter.AdminRecordID != "" {
		q = q.Where("admin_record_id = ?", filter.AdminRecordID)
	}
	if filter.IdentityID != "" {
		q = q.Where("identity_id = ?", filter.IdentityID)
	}
	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("timestamp <= ?", filter.Until)
	}

	if limit := filter.effectiveLimit(); limit > 0 {
		q = q.Limit(limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	if filter.NewestFirst {
		q = q.Order("timestamp DESC", "seq DESC")
	} else {
		q = q.Order("timestamp ASC", "seq ASC")
	}
	if err := dbkit.WithErr1(q.Scan(ctx), "ListAuditEntries").Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Ping performs a basic connectivity test to the database.
func (s *DBStore) Ping(ctx context.Context) error {
	var result int
	return dbkit.WithErr1(s.db.NewRaw("SELECT 1").Scan(ctx, &result), "Ping").Err()
}

func foundOrNil(rec *AdminRecord, err error) (*AdminRecord, error) {
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func checkVersionedWrite(rowsAffected func() (int64, error), identityID string) error {
	n, err := rowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return NewError(ErrVersionMismatch, "admin record changed concurrently").WithIdentity(identityID)
	}
	return nil
}
