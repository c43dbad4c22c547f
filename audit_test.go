package adminkit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func state(role Role, status Status, perms ...Permission) *RoleState {
	s := &RoleState{Role: role, Status: status}
	if role == RoleCustom {
		s.Permissions = normalizePermissions(append([]Permission{}, perms...))
	}
	return s
}

// TestInferAction tests action inference from before and after states
func TestInferAction(t *testing.T) {
	tests := []struct {
		name   string
		before *RoleState
		after  *RoleState
		want   AuditAction
	}{
		{"created", nil, state(RoleSupport, StatusActive), AuditActionCreated},
		{"deleted", state(RoleSupport, StatusActive), nil, AuditActionDeleted},
		{"suspended", state(RoleSupport, StatusActive), state(RoleSupport, StatusSuspended), AuditActionSuspended},
		{"reactivated", state(RoleSupport, StatusSuspended), state(RoleSupport, StatusActive), AuditActionReactivated},
		{"role change", state(RoleSupport, StatusActive), state(RoleModerator, StatusActive), AuditActionUpdated},
		{"permission change", state(RoleCustom, StatusActive, PermAuditView), state(RoleCustom, StatusActive, PermReportsView), AuditActionUpdated},
		{"deactivated", state(RoleSupport, StatusActive), state(RoleSupport, StatusInactive), AuditActionUpdated},
		{"inactive to active", state(RoleSupport, StatusInactive), state(RoleSupport, StatusActive), AuditActionUpdated},
		{"suspend with role change", state(RoleSupport, StatusActive), state(RoleAnalyst, StatusSuspended), AuditActionUpdated},
		{"unchanged", state(RoleSupport, StatusActive), state(RoleSupport, StatusActive), AuditActionUpdated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferAction(tt.before, tt.after))
		})
	}
}

// TestRoleStateDiff tests change detection between states
func TestRoleStateDiff(t *testing.T) {
	assert.Empty(t, state(RoleSupport, StatusActive).Diff(state(RoleSupport, StatusActive)))
	assert.Equal(t, []string{ChangeRole}, state(RoleSupport, StatusActive).Diff(state(RoleAnalyst, StatusActive)))
	assert.Equal(t, []string{ChangeStatus}, state(RoleSupport, StatusActive).Diff(state(RoleSupport, StatusSuspended)))
	assert.Equal(t,
		[]string{ChangeRole, ChangePermissions},
		state(RoleSupport, StatusActive).Diff(state(RoleCustom, StatusActive)))
	assert.Equal(t,
		[]string{ChangeRole, ChangeStatus},
		(*RoleState)(nil).Diff(state(RoleSupport, StatusActive)))
}

// recordTransitions appends a created, suspended, reactivated, updated and
// deleted entry for one record.
func recordTransitions(t *testing.T, store Store, rec *Recorder) []*AuditEntry {
	t.Helper()
	ctx := context.Background()

	states := []*RoleState{
		nil,
		state(RoleSupport, StatusActive),
		state(RoleSupport, StatusSuspended),
		state(RoleSupport, StatusActive),
		state(RoleCustom, StatusActive, PermReportsView),
		nil,
	}

	var entries []*AuditEntry
	for i := 1; i < len(states); i++ {
		entry, err := rec.Record(ctx, store, Transition{
			AdminRecordID: "rec-1",
			IdentityID:    "user_1",
			Before:        states[i-1],
			After:         states[i],
			ActorID:       "root",
			Reason:        fmt.Sprintf("step %d", i),
			Audit:         AuditContext{IPAddress: "10.0.0.1", RequestID: "req-1"},
		})
		require.NoError(t, err)
		entries = append(entries, entry)
	}
	return entries
}

func newTestRecorder(clock *testClock) *Recorder {
	n := 0
	return &Recorder{
		now: clock.Now,
		newID: func() string {
			n++
			return fmt.Sprintf("entry-%d", n)
		},
	}
}

// TestRecorderChain tests that recorded entries form a valid chain
func TestRecorderChain(t *testing.T) {
	store := NewMemoryStore()
	entries := recordTransitions(t, store, newTestRecorder(newTestClock()))

	require.Len(t, entries, 5)
	assert.Equal(t, AuditActionCreated, entries[0].Action)
	assert.Equal(t, AuditActionSuspended, entries[1].Action)
	assert.Equal(t, AuditActionReactivated, entries[2].Action)
	assert.Equal(t, AuditActionUpdated, entries[3].Action)
	assert.Equal(t, AuditActionDeleted, entries[4].Action)

	assert.Empty(t, entries[0].PrevHash)
	for i := 1; i < len(entries); i++ {
		assert.Equal(t, entries[i-1].Hash, entries[i].PrevHash)
		assert.Greater(t, entries[i].Seq, entries[i-1].Seq)
	}
	assert.Len(t, entries[0].Hash, 64)

	assert.Equal(t, []string{ChangeRole, ChangePermissions}, entries[3].Changes)
	assert.Equal(t, "10.0.0.1", entries[3].IPAddress)
	assert.Equal(t, "req-1", entries[3].RequestID)
	assert.Equal(t, "step 4", entries[3].Reason)

	stored, err := store.ListAuditEntries(context.Background(), NewAuditLogFilter().WithAdminRecord("rec-1"))
	require.NoError(t, err)
	require.NoError(t, VerifyChain(stored))
}

// TestRecorderRequiresActor tests that entries cannot be anonymous
func TestRecorderRequiresActor(t *testing.T) {
	rec := newTestRecorder(newTestClock())
	_, err := rec.Record(context.Background(), NewMemoryStore(), Transition{
		AdminRecordID: "rec-1",
		After:         state(RoleSupport, StatusActive),
	})
	assert.ErrorIs(t, err, ErrNoActor)

	_, err = rec.Record(context.Background(), NewMemoryStore(), Transition{
		ActorID: "root",
		After:   state(RoleSupport, StatusActive),
	})
	assert.True(t, IsValidation(err))
}

// TestRecorderMonotonicTimestamps tests that a clock going backwards does
// not reorder a record's entries
func TestRecorderMonotonicTimestamps(t *testing.T) {
	store := NewMemoryStore()
	clock := newTestClock()
	rec := newTestRecorder(clock)
	ctx := context.Background()

	first, err := rec.Record(ctx, store, Transition{
		AdminRecordID: "rec-1", ActorID: "root", After: state(RoleSupport, StatusActive),
	})
	require.NoError(t, err)

	clock.Set(first.Timestamp.Add(-time.Hour))
	second, err := rec.Record(ctx, store, Transition{
		AdminRecordID: "rec-1", ActorID: "root",
		Before: state(RoleSupport, StatusActive), After: state(RoleSupport, StatusSuspended),
	})
	require.NoError(t, err)

	assert.Equal(t, first.Timestamp, second.Timestamp)
	assert.Equal(t, time.UTC, second.Timestamp.Location())
	require.NoError(t, VerifyChain([]*AuditEntry{first, second}))
}

// TestRecorderTimestampPrecision tests that timestamps are truncated to the
// precision of the database
func TestRecorderTimestampPrecision(t *testing.T) {
	clock := newTestClock()
	clock.Set(time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.FixedZone("CET", 3600)))
	entry, err := newTestRecorder(clock).Record(context.Background(), NewMemoryStore(), Transition{
		AdminRecordID: "rec-1", ActorID: "root", After: state(RoleSupport, StatusActive),
	})
	require.NoError(t, err)
	assert.Equal(t, 123456000, entry.Timestamp.Nanosecond())
	assert.Equal(t, time.UTC, entry.Timestamp.Location())
}

// TestVerifyChainDetectsTampering tests each kind of manipulation
func TestVerifyChainDetectsTampering(t *testing.T) {
	fresh := func() []*AuditEntry {
		return recordTransitions(t, NewMemoryStore(), newTestRecorder(newTestClock()))
	}

	tests := []struct {
		name   string
		tamper func(entries []*AuditEntry) []*AuditEntry
		index  int
	}{
		{"edited role", func(e []*AuditEntry) []*AuditEntry {
			e[1].NewRole = RoleSuperAdmin
			return e
		}, 1},
		{"edited actor", func(e []*AuditEntry) []*AuditEntry {
			e[2].ActorID = "someone-else"
			return e
		}, 2},
		{"edited timestamp", func(e []*AuditEntry) []*AuditEntry {
			e[3].Timestamp = e[3].Timestamp.Add(time.Minute)
			return e
		}, 3},
		{"removed entry", func(e []*AuditEntry) []*AuditEntry {
			return append(e[:2:2], e[3:]...)
		}, 2},
		{"swapped entries", func(e []*AuditEntry) []*AuditEntry {
			e[1], e[2] = e[2], e[1]
			return e
		}, 1},
		{"removed head", func(e []*AuditEntry) []*AuditEntry {
			return e[1:]
		}, 0},
		{"rehashed edit", func(e []*AuditEntry) []*AuditEntry {
			e[1].Reason = "rewritten"
			h, err := hashEntry(e[1])
			require.NoError(t, err)
			e[1].Hash = h
			return e
		}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := tt.tamper(fresh())
			err := VerifyChain(entries)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrAuditChain)
			assert.True(t, IsInternal(err))

			var chainErr *ChainError
			require.True(t, errors.As(err, &chainErr))
			assert.Equal(t, tt.index, chainErr.Index)
		})
	}
}

// TestVerifyChainMixedRecords tests that entries of two records never form one chain
func TestVerifyChainMixedRecords(t *testing.T) {
	store := NewMemoryStore()
	rec := newTestRecorder(newTestClock())
	ctx := context.Background()

	a, err := rec.Record(ctx, store, Transition{AdminRecordID: "rec-a", ActorID: "root", After: state(RoleSupport, StatusActive)})
	require.NoError(t, err)
	b, err := rec.Record(ctx, store, Transition{AdminRecordID: "rec-b", ActorID: "root", After: state(RoleAnalyst, StatusActive)})
	require.NoError(t, err)

	assert.Empty(t, b.PrevHash, "chains are per record")
	assert.ErrorIs(t, VerifyChain([]*AuditEntry{a, b}), ErrAuditChain)
	assert.NoError(t, VerifyChain(nil))
}

// TestReplayState tests reconstructing state from the log alone
func TestReplayState(t *testing.T) {
	entries := recordTransitions(t, NewMemoryStore(), newTestRecorder(newTestClock()))

	assert.Nil(t, ReplayState(entries, entries[0].Timestamp.Add(-time.Second)))
	assert.True(t, state(RoleSupport, StatusActive).Equal(ReplayState(entries, entries[0].Timestamp)))
	assert.True(t, state(RoleSupport, StatusSuspended).Equal(ReplayState(entries, entries[1].Timestamp)))
	assert.True(t, state(RoleCustom, StatusActive, PermReportsView).Equal(ReplayState(entries, entries[3].Timestamp)))
	assert.Nil(t, ReplayState(entries, entries[4].Timestamp.Add(time.Hour)))
}

// TestSortAuditEntries tests ordering by timestamp then insertion order
func TestSortAuditEntries(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []*AuditEntry{
		{ID: "c", Seq: 3, Timestamp: ts.Add(time.Second)},
		{ID: "b", Seq: 2, Timestamp: ts},
		{ID: "a", Seq: 1, Timestamp: ts},
	}
	SortAuditEntries(entries)
	assert.Equal(t, "a", entries[0].ID)
	assert.Equal(t, "b", entries[1].ID)
	assert.Equal(t, "c", entries[2].ID)
}
