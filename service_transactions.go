package adminkit

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// change computes the next state of a record. current is the locked record
// (nil when it does not exist) and actor the actor as currently stored.
// Returning nil removes the record; returning a record equal in state to
// current is a no-op.
type change func(current *AdminRecord, actor *AuthorizationContext) (*AdminRecord, error)

// mutation describes one role-management operation.
type mutation struct {
	op              string
	actor           *AuthorizationContext
	identityID      string
	expectedVersion int64
	reason          string
	// guard runs inside the transaction before the target is locked.
	guard func(ctx context.Context, tx Store) error
	apply change
}

// mutateAndAudit is the only path that writes admin records. Inside one
// store transaction it locks the target, re-reads the actor, applies the
// change, writes the record and appends the audit entry. Any failure rolls
// back both writes.
func (s *Service) mutateAndAudit(ctx context.Context, m mutation) (*AdminRecord, error) {
	ctx, span := s.tracer.Start(ctx, "adminkit."+m.op, trace.WithAttributes(
		attribute.String("adminkit.identity_id", m.identityID),
		attribute.String("adminkit.actor_id", m.actor.IdentityID()),
	))
	defer span.End()

	start := s.now()
	log := s.logger.WithFields(logrus.Fields{
		"operation":   m.op,
		"identity_id": m.identityID,
		"actor_id":    m.actor.IdentityID(),
		"request_id":  GetRequestID(ctx),
	})

	var (
		result *AdminRecord
		entry  *AuditEntry
	)
	err := s.checkActor(m.actor, m.identityID)
	if err == nil {
		err = s.store.WithinTx(ctx, func(tx Store) error {
			var txErr error
			result, entry, txErr = s.applyMutation(ctx, tx, m)
			return txErr
		})
	}
	err = internalError(m.op, err)

	duration := s.now().Sub(start)
	s.txMonitor.recordTransaction(duration, err)
	s.metrics.recordMutation(m.op, duration, err)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		logAtKind(log, err, "admin record mutation rejected")
		return nil, err
	}

	if entry != nil {
		s.metrics.recordAuditEntry(entry.Action)
		span.SetAttributes(attribute.String("adminkit.audit_action", string(entry.Action)))
		log.WithFields(logrus.Fields{
			"action":   entry.Action,
			"changes":  entry.Changes,
			"audit_id": entry.ID,
		}).Info("admin record changed")
	} else {
		log.Debug("admin record unchanged")
	}
	return result, nil
}

func (s *Service) applyMutation(ctx context.Context, tx Store, m mutation) (*AdminRecord, *AuditEntry, error) {
	actor, err := s.freshActor(ctx, tx, m.actor)
	if err != nil {
		return nil, nil, err
	}

	if m.guard != nil {
		if err := m.guard(ctx, tx); err != nil {
			return nil, nil, err
		}
	}

	current, err := tx.LockAdminRecord(ctx, m.identityID)
	if err != nil {
		return nil, nil, err
	}
	if m.expectedVersion > 0 && (current == nil || current.Version != m.expectedVersion) {
		return nil, nil, NewError(ErrVersionMismatch, "admin record was modified since it was read").
			WithIdentity(m.identityID)
	}

	next, err := m.apply(current.Clone(), actor)
	if err != nil {
		return nil, nil, err
	}

	if current != nil && next != nil && current.State().Equal(next.State()) {
		return current, nil, nil
	}

	now := s.now().UTC().Truncate(timePrecision)
	transition := Transition{
		IdentityID: m.identityID,
		Before:     current.State(),
		After:      next.State(),
		ActorID:    actor.IdentityID(),
		Reason:     m.reason,
		Audit:      GetAuditContext(ctx),
	}

	switch {
	case current == nil && next == nil:
		return nil, nil, NewError(ErrAdminNotFound, "no admin record to remove").WithIdentity(m.identityID)

	case current == nil:
		next.ID = s.newID()
		next.IdentityID = m.identityID
		next.AssignedAt = now
		next.AssignedBy = actor.IdentityID()
		next.CreatedAt = now
		next.UpdatedAt = now
		next.Version = 1
		if err := tx.InsertAdminRecord(ctx, next); err != nil {
			return nil, nil, err
		}
		transition.AdminRecordID = next.ID

	case next == nil:
		// recorded while the row still exists
		transition.AdminRecordID = current.ID
		entry, err := s.recorder.Record(ctx, tx, transition)
		if err != nil {
			return nil, nil, err
		}
		if err := tx.DeleteAdminRecord(ctx, current, current.Version); err != nil {
			return nil, nil, err
		}
		return current, entry, nil

	default:
		next.ID = current.ID
		next.IdentityID = current.IdentityID
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = now
		next.Version = current.Version + 1
		if next.Role != current.Role || !equalPermissions(next.Permissions, current.Permissions) {
			next.AssignedAt = now
			next.AssignedBy = actor.IdentityID()
		}
		if err := tx.UpdateAdminRecord(ctx, next, current.Version); err != nil {
			return nil, nil, err
		}
		transition.AdminRecordID = current.ID
	}

	entry, err := s.recorder.Record(ctx, tx, transition)
	if err != nil {
		return nil, nil, err
	}
	return next, entry, nil
}

// checkActor applies the rules that need no store access: an actor is
// required, and nobody changes their own record.
func (s *Service) checkActor(actor *AuthorizationContext, identityID string) error {
	if actor.IdentityID() == "" {
		return NewError(ErrNoActor, "role management requires an authenticated actor")
	}
	if actor.IdentityID() == identityID {
		return NewError(ErrSelfModification, "administrators cannot change their own admin record").
			WithActor(actor.IdentityID()).
			WithIdentity(identityID)
	}
	return nil
}

// freshActor rebuilds the actor context from the stored record so that a
// change of the actor's own role or status since the request started is
// honoured. Only the engine's own system actor skips the lookup.
func (s *Service) freshActor(ctx context.Context, tx Store, actor *AuthorizationContext) (*AuthorizationContext, error) {
	if actor == systemActor {
		return actor, nil
	}
	rec, err := tx.FindAdminRecord(ctx, actor.IdentityID())
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return AnonymousContext(actor.IdentityID()), nil
	}
	return BuildContext(rec), nil
}

// logAtKind logs err at the level its kind deserves: denials and validation
// failures are normal outcomes, conflicts are worth a warning, the rest is
// an error.
func logAtKind(log logrus.FieldLogger, err error, msg string) {
	log = log.WithFields(logrus.Fields{"error": err.Error(), "kind": KindOf(err)})
	switch KindOf(err) {
	case KindAccessDenied, KindPermissionDenied, KindValidation:
		log.Debug(msg)
	case KindConflict:
		log.Warn(msg)
	default:
		log.Error(msg)
	}
}
