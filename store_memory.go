package adminkit

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store. Transactions are serialized by a
// single mutex and rolled back by restoring a snapshot taken when they start.
// It suits tests, single-instance deployments and the sample application.
type MemoryStore struct {
	mu   sync.Mutex
	data *memoryData
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemoryData()}
}

type memoryData struct {
	records map[string]*AdminRecord // by identity
	entries []*AuditEntry
	seq     int64
}

func newMemoryData() *memoryData {
	return &memoryData{records: make(map[string]*AdminRecord)}
}

// snapshot copies the record index. Records are replaced on write, never
// mutated, and entries are append-only, so sharing them is safe.
func (d *memoryData) snapshot() memoryData {
	records := make(map[string]*AdminRecord, len(d.records))
	for k, v := range d.records {
		records[k] = v
	}
	return memoryData{records: records, entries: d.entries[:len(d.entries):len(d.entries)], seq: d.seq}
}

func (d *memoryData) restore(s memoryData) {
	d.records = s.records
	d.entries = s.entries
	d.seq = s.seq
}

func (s *MemoryStore) FindAdminRecord(ctx context.Context, identityID string) (*AdminRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memoryTx{s.data}.FindAdminRecord(ctx, identityID)
}

func (s *MemoryStore) GetAdminRecordByID(ctx context.Context, id string) (*AdminRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memoryTx{s.data}.GetAdminRecordByID(ctx, id)
}

func (s *MemoryStore) LockAdminRecord(ctx context.Context, identityID string) (*AdminRecord, error) {
	return s.FindAdminRecord(ctx, identityID)
}

// LockAdminRecords is a no-op: writes already hold the store lock.
func (s *MemoryStore) LockAdminRecords(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) InsertAdminRecord(ctx context.Context, rec *AdminRecord) error {
	return s.WithinTx(ctx, func(tx Store) error { return tx.InsertAdminRecord(ctx, rec) })
}

func (s *MemoryStore) UpdateAdminRecord(ctx context.Context, rec *AdminRecord, expectedVersion int64) error {
	return s.WithinTx(ctx, func(tx Store) error { return tx.UpdateAdminRecord(ctx, rec, expectedVersion) })
}

func (s *MemoryStore) DeleteAdminRecord(ctx context.Context, rec *AdminRecord, expectedVersion int64) error {
	return s.WithinTx(ctx, func(tx Store) error { return tx.DeleteAdminRecord(ctx, rec, expectedVersion) })
}

func (s *MemoryStore) ListAdminRecords(ctx context.Context, filter AdminRecordFilter) ([]*AdminRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memoryTx{s.data}.ListAdminRecords(ctx, filter)
}

func (s *MemoryStore) LastAuditEntry(ctx context.Context, adminRecordID string) (*AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memoryTx{s.data}.LastAuditEntry(ctx, adminRecordID)
}

func (s *MemoryStore) AppendAuditEntry(ctx context.Context, entry *AuditEntry) error {
	return s.WithinTx(ctx, func(tx Store) error { return tx.AppendAuditEntry(ctx, entry) })
}

func (s *MemoryStore) ListAuditEntries(ctx context.Context, filter AuditLogFilter) ([]*AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memoryTx{s.data}.ListAuditEntries(ctx, filter)
}

// WithinTx runs fn holding the store lock. Any error, or a panic, restores
// the state from before the call.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memoryTx{s.data}.WithinTx(ctx, fn)
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// memoryTx operates on the data with the store lock already held.
type memoryTx struct {
	d *memoryData
}

func (t memoryTx) FindAdminRecord(ctx context.Context, identityID string) (*AdminRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.d.records[identityID].Clone(), nil
}

func (t memoryTx) GetAdminRecordByID(ctx context.Context, id string) (*AdminRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, rec := range t.d.records {
		if rec.ID == id {
			return rec.Clone(), nil
		}
	}
	return nil, nil
}

func (t memoryTx) LockAdminRecord(ctx context.Context, identityID string) (*AdminRecord, error) {
	return t.FindAdminRecord(ctx, identityID)
}

func (t memoryTx) LockAdminRecords(ctx context.Context) error {
	return ctx.Err()
}

func (t memoryTx) InsertAdminRecord(ctx context.Context, rec *AdminRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, exists := t.d.records[rec.IdentityID]; exists {
		return NewError(ErrAlreadyAdmin, "identity already has an admin record").WithIdentity(rec.IdentityID)
	}
	t.d.records[rec.IdentityID] = rec.Clone()
	return nil
}

func (t memoryTx) UpdateAdminRecord(ctx context.Context, rec *AdminRecord, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	current, ok := t.d.records[rec.IdentityID]
	if !ok || current.ID != rec.ID || current.Version != expectedVersion {
		return NewError(ErrVersionMismatch, "admin record changed concurrently").WithIdentity(rec.IdentityID)
	}
	t.d.records[rec.IdentityID] = rec.Clone()
	return nil
}

func (t memoryTx) DeleteAdminRecord(ctx context.Context, rec *AdminRecord, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	current, ok := t.d.records[rec.IdentityID]
	if !ok || current.ID != rec.ID || current.Version != expectedVersion {
		return NewError(ErrVersionMismatch, "admin record changed concurrently").WithIdentity(rec.IdentityID)
	}
	delete(t.d.records, rec.IdentityID)
	return nil
}

func (t memoryTx) ListAdminRecords(ctx context.Context, filter AdminRecordFilter) ([]*AdminRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*AdminRecord
	for _, rec := range t.d.records {
		if filter.Matches(rec) {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].IdentityID < out[j].IdentityID
	})
	return paginate(out, filter.Offset, filter.Limit), nil
}

func (t memoryTx) LastAuditEntry(ctx context.Context, adminRecordID string) (*AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var last *AuditEntry
	for _, e := range t.d.entries {
		if e.AdminRecordID == adminRecordID {
			last = e
		}
	}
	if last == nil {
		return nil, nil
	}
	cp := *last
	return &cp, nil
}

func (t memoryTx) AppendAuditEntry(ctx context.Context, entry *AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.d.seq++
	entry.Seq = t.d.seq
	cp := *entry
	t.d.entries = append(t.d.entries, &cp)
	return nil
}

func (t memoryTx) ListAuditEntries(ctx context.Context, filter AuditLogFilter) ([]*AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*AuditEntry
	for _, e := range t.d.entries {
		if filter.Matches(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	SortAuditEntries(out)
	if filter.NewestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return paginate(out, filter.Offset, filter.effectiveLimit()), nil
}

// WithinTx on an open transaction behaves like a savepoint.
func (t memoryTx) WithinTx(ctx context.Context, fn func(tx Store) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	saved := t.d.snapshot()
	defer func() {
		if p := recover(); p != nil {
			t.d.restore(saved)
			panic(p)
		}
		if err != nil {
			t.d.restore(saved)
		}
	}()
	return fn(t)
}

func (t memoryTx) Ping(ctx context.Context) error {
	return ctx.Err()
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
