package adminkit

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// InferAction derives the audit action of a transition from the states
// before and after it.
//
//   - created: there was no record before
//   - deleted: there is no record after
//   - suspended / reactivated: only the status moved between active and suspended
//   - updated: anything else
func InferAction(before, after *RoleState) AuditAction {
	switch {
	case before == nil:
		return AuditActionCreated
	case after == nil:
		return AuditActionDeleted
	}
	if before.Role == after.Role && equalPermissions(before.Permissions, after.Permissions) {
		switch {
		case before.Status == StatusActive && after.Status == StatusSuspended:
			return AuditActionSuspended
		case before.Status == StatusSuspended && after.Status == StatusActive:
			return AuditActionReactivated
		}
	}
	return AuditActionUpdated
}

// timePrecision matches PostgreSQL timestamptz, so hashes survive a round trip.
const timePrecision = time.Microsecond

// Recorder appends audit entries. It holds no state between calls; the
// chain position is read from the store inside the caller's transaction.
type Recorder struct {
	now   func() time.Time
	newID func() string
}

// NewRecorder creates a Recorder using the wall clock and random UUIDs.
func NewRecorder() *Recorder {
	return &Recorder{
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// Record appends one entry describing t. tx must be the transaction that
// performs the record mutation, so that both writes commit or neither does.
//
// Every call appends, even when before and after are equal.
func (r *Recorder) Record(ctx context.Context, tx Store, t Transition) (*AuditEntry, error) {
	if t.AdminRecordID == "" {
		return nil, NewError(ErrValidation, "audit entry needs an admin record id")
	}
	if t.ActorID == "" {
		return nil, NewError(ErrNoActor, "audit entry needs an actor")
	}

	prev, err := tx.LastAuditEntry(ctx, t.AdminRecordID)
	if err != nil {
		return nil, internalError("load last audit entry", err)
	}

	entry := t.ToModel()
	entry.ID = r.newID()
	entry.Timestamp = r.now().UTC().Truncate(timePrecision)
	if prev != nil {
		entry.PrevHash = prev.Hash
		// entries of one record never go back in time, even if the clock does
		if entry.Timestamp.Before(prev.Timestamp) {
			entry.Timestamp = prev.Timestamp
		}
	}

	entry.Hash, err = hashEntry(entry)
	if err != nil {
		return nil, NewError(ErrAuditChain, "hash audit entry").WithCause(err)
	}

	if err := tx.AppendAuditEntry(ctx, entry); err != nil {
		return nil, internalError("append audit entry", err)
	}
	return entry, nil
}

// auditDomainKey separates audit entry hashes from any other BLAKE3 use.
var auditDomainKey = blake3.Sum256([]byte("adminkit audit entry v1"))

// auditEncMode is Core Deterministic CBOR: the same entry always encodes to
// the same bytes.
var auditEncMode cbor.EncMode

func init() {
	var err error
	auditEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("adminkit: CBOR encoder initialization failed: " + err.Error())
	}
}

// hashedEntry is the hashed content of an AuditEntry. Seq is assigned by the
// store after hashing and is not part of it.
type hashedEntry struct {
	ID            string      `cbor:"1,keyasint"`
	AdminRecordID string      `cbor:"2,keyasint"`
	IdentityID    string      `cbor:"3,keyasint"`
	Action        AuditAction `cbor:"4,keyasint"`
	Changes       []string    `cbor:"5,keyasint"`
	Before        *RoleState  `cbor:"6,keyasint"`
	After         *RoleState  `cbor:"7,keyasint"`
	ActorID       string      `cbor:"8,keyasint"`
	Reason        string      `cbor:"9,keyasint"`
	IPAddress     string      `cbor:"10,keyasint"`
	UserAgent     string      `cbor:"11,keyasint"`
	RequestID     string      `cbor:"12,keyasint"`
	TimestampUS   int64       `cbor:"13,keyasint"`
	PrevHash      string      `cbor:"14,keyasint"`
}

func hashEntry(e *AuditEntry) (string, error) {
	content := hashedEntry{
		ID:            e.ID,
		AdminRecordID: e.AdminRecordID,
		IdentityID:    e.IdentityID,
		Action:        e.Action,
		Before:        e.Before(),
		After:         e.After(),
		ActorID:       e.ActorID,
		Reason:        e.Reason,
		IPAddress:     e.IPAddress,
		UserAgent:     e.UserAgent,
		RequestID:     e.RequestID,
		TimestampUS:   e.Timestamp.UnixMicro(),
		PrevHash:      e.PrevHash,
	}
	if len(e.Changes) > 0 {
		content.Changes = e.Changes
	}

	data, err := auditEncMode.Marshal(content)
	if err != nil {
		return "", err
	}
	hasher, err := blake3.NewKeyed(auditDomainKey[:])
	if err != nil {
		return "", err
	}
	_, _ = hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// ChainError describes the first broken link found by VerifyChain.
type ChainError struct {
	Index   int
	EntryID string
	Problem string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("adminkit: audit chain broken at entry %d (%s): %s", e.Index, e.EntryID, e.Problem)
}

// Unwrap lets errors.Is match ErrAuditChain.
func (e *ChainError) Unwrap() error { return ErrAuditChain }

// VerifyChain checks the audit trail of a single admin record, given in
// chain order. It verifies that every hash matches the entry content, that
// each entry links to the previous one, that timestamps never decrease and
// that each entry's before-state is the previous entry's after-state.
func VerifyChain(entries []*AuditEntry) error {
	var prev *AuditEntry
	for i, e := range entries {
		fail := func(format string, args ...any) error {
			return &ChainError{Index: i, EntryID: e.ID, Problem: fmt.Sprintf(format, args...)}
		}

		if prev != nil && e.AdminRecordID != prev.AdminRecordID {
			return fail("entry belongs to record %s, chain to %s", e.AdminRecordID, prev.AdminRecordID)
		}

		want, err := hashEntry(e)
		if err != nil {
			return fail("hash: %v", err)
		}
		if want != e.Hash {
			return fail("content does not match hash")
		}

		if prev == nil {
			if e.PrevHash != "" {
				return fail("first entry links to %s", e.PrevHash)
			}
			if e.Action != AuditActionCreated {
				return fail("first entry is %s, not %s", e.Action, AuditActionCreated)
			}
		} else {
			if e.PrevHash != prev.Hash {
				return fail("previous hash does not match")
			}
			if e.Timestamp.Before(prev.Timestamp) {
				return fail("timestamp goes back in time")
			}
			if !e.Before().Equal(prev.After()) {
				return fail("before state differs from previous after state")
			}
		}
		prev = e
	}
	return nil
}

// SortAuditEntries orders entries by timestamp, ties broken by insertion order.
func SortAuditEntries(entries []*AuditEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.Before(entries[j].Timestamp)
		}
		return entries[i].Seq < entries[j].Seq
	})
}

// ReplayState rebuilds the state of a record at time at purely from its
// audit trail, given in chain order. It returns nil when the record did not
// exist at that time.
func ReplayState(entries []*AuditEntry, at time.Time) *RoleState {
	var state *RoleState
	for _, e := range entries {
		if e.Timestamp.After(at) {
			break
		}
		state = e.After()
	}
	return state
}
