package adminkit

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/stretchr/testify/require"
)

// testClock is a deterministic clock that advances one step per reading.
type testClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newTestClock() *testClock {
	return &testClock{
		now:  time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		step: time.Second,
	}
}

// Now returns the current time and moves the clock forward.
func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Set moves the clock to t.
func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// fixture is a service on the in-memory store with a bootstrapped
// super_admin "root".
type fixture struct {
	t       *testing.T
	ctx     context.Context
	store   *MemoryStore
	clock   *testClock
	service *Service
	root    *AuthorizationContext
}

func newFixture(t *testing.T, opts ...ServiceOption) *fixture {
	t.Helper()

	store := NewMemoryStore()
	clock := newTestClock()
	service := NewService(store, append([]ServiceOption{WithClock(clock.Now)}, opts...)...)

	f := &fixture{
		t:       t,
		ctx:     context.Background(),
		store:   store,
		clock:   clock,
		service: service,
	}

	_, err := service.Bootstrap(f.ctx, "root", "initial super admin")
	require.NoError(t, err)
	f.root = f.actor("root")
	return f
}

// actor loads the current context of an identity.
func (f *fixture) actor(identityID string) *AuthorizationContext {
	f.t.Helper()
	authz, err := f.service.LoadContext(f.ctx, identityID)
	require.NoError(f.t, err)
	return authz
}

// admin creates an admin record through root.
func (f *fixture) admin(identityID string, role Role, perms ...Permission) *AdminRecord {
	f.t.Helper()
	req := AssignRoleRequest{IdentityID: identityID, Role: role, Reason: "fixture"}
	if role == RoleCustom {
		req.Permissions = append([]Permission{}, perms...)
	}
	rec, err := f.service.AssignRole(f.ctx, f.root, req)
	require.NoError(f.t, err)
	return rec
}

// auditCount returns the number of audit entries in the store.
func (f *fixture) auditCount() int {
	f.t.Helper()
	entries, err := f.store.ListAuditEntries(f.ctx, NewAuditLogFilter().WithLimit(-1))
	require.NoError(f.t, err)
	return len(entries)
}

// trail returns the verified audit trail of a record.
func (f *fixture) trail(adminRecordID string) []*AuditEntry {
	f.t.Helper()
	entries, err := f.service.GetAuditTrail(f.ctx, adminRecordID)
	require.NoError(f.t, err)
	require.NoError(f.t, VerifyChain(entries))
	return entries
}

// ============================================================================
// DATABASE
// ============================================================================

// getTestDatabaseURL returns the database URL for testing.
func getTestDatabaseURL() string {
	return os.Getenv("TEST_DATABASE_URL")
}

// isDatabaseAvailable checks if the test database is reachable.
func isDatabaseAvailable() bool {
	dbURL := getTestDatabaseURL()
	if dbURL == "" {
		return false
	}

	db, err := dbkit.New(dbkit.Config{URL: dbURL})
	if err != nil {
		return false
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.PingContext(ctx) == nil
}

// requireDatabase skips the test if the database is not available.
func requireDatabase(t testing.TB) {
	t.Helper()
	if !isDatabaseAvailable() {
		t.Skip("database not available, set TEST_DATABASE_URL to run")
	}
}

// setupTestDatabase connects, migrates and returns a store on the test
// database.
func setupTestDatabase(ctx context.Context) (*DBStore, *dbkit.DBKit, error) {
	db, err := dbkit.New(dbkit.Config{URL: getTestDatabaseURL()})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if _, err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return NewDBStore(db), db, nil
}

// uniqueID returns an identity that does not collide across test runs.
func uniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
