package adminkit

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ============================================================================
// DATA RETRIEVAL
// ============================================================================

// GetAdminRecord returns the admin record of an identity, or an
// ErrAdminNotFound error when it has none.
func (s *Service) GetAdminRecord(ctx context.Context, identityID string) (*AdminRecord, error) {
	rec, err := retryRead(ctx, s, "GetAdminRecord", func(ctx context.Context) (*AdminRecord, error) {
		return s.store.FindAdminRecord(ctx, identityID)
	})
	if err != nil {
		return nil, internalError("GetAdminRecord", err)
	}
	if rec == nil {
		return nil, adminNotFound(identityID)
	}
	return rec, nil
}

// ListAdmins returns admin records matching filter, oldest first.
func (s *Service) ListAdmins(ctx context.Context, filter AdminRecordFilter) ([]*AdminRecord, error) {
	recs, err := retryRead(ctx, s, "ListAdmins", func(ctx context.Context) ([]*AdminRecord, error) {
		return s.store.ListAdminRecords(ctx, filter)
	})
	return recs, internalError("ListAdmins", err)
}

// GetAuditLog returns audit entries matching filter.
//
// Example:
//
//	entries, err := service.GetAuditLog(ctx, adminkit.NewAuditLogFilter().
//	    WithActor("user_1").
//	    WithSince(time.Now().Add(-24*time.Hour)).
//	    WithNewestFirst())
func (s *Service) GetAuditLog(ctx context.Context, filter AuditLogFilter) ([]*AuditEntry, error) {
	entries, err := retryRead(ctx, s, "GetAuditLog", func(ctx context.Context) ([]*AuditEntry, error) {
		return s.store.ListAuditEntries(ctx, filter)
	})
	return entries, internalError("GetAuditLog", err)
}

// GetAuditTrail returns the complete audit history of one admin record in
// chain order. The trail outlives the record itself.
func (s *Service) GetAuditTrail(ctx context.Context, adminRecordID string) ([]*AuditEntry, error) {
	filter := NewAuditLogFilter().WithAdminRecord(adminRecordID).WithLimit(-1)
	entries, err := s.GetAuditLog(ctx, filter)
	if err != nil {
		return nil, err
	}
	SortAuditEntries(entries)
	return entries, nil
}

// VerifyAuditTrail loads the trail of a record and checks its hash chain.
// A broken chain is reported as a *ChainError matching ErrAuditChain.
func (s *Service) VerifyAuditTrail(ctx context.Context, adminRecordID string) error {
	entries, err := s.GetAuditTrail(ctx, adminRecordID)
	if err != nil {
		return err
	}
	if err := VerifyChain(entries); err != nil {
		s.logger.WithFields(logrus.Fields{
			"admin_record_id": adminRecordID,
			"error":           err.Error(),
		}).Error("audit chain verification failed")
		return err
	}
	return nil
}

// StateAt reconstructs the role state of a record at time at from its audit
// trail alone. It returns nil when the record did not exist then.
func (s *Service) StateAt(ctx context.Context, adminRecordID string, at time.Time) (*RoleState, error) {
	entries, err := s.GetAuditTrail(ctx, adminRecordID)
	if err != nil {
		return nil, err
	}
	return ReplayState(entries, at), nil
}

// LoadContext builds the AuthorizationContext of an identity from its
// current admin record. The lookup is bounded by the configured lookup
// timeout and retried on transient failures only. An identity without a
// record yields an anonymous context, not an error.
func (s *Service) LoadContext(ctx context.Context, identityID string) (*AuthorizationContext, error) {
	ctx, span := s.tracer.Start(ctx, "adminkit.LoadContext",
		trace.WithAttributes(attribute.String("adminkit.identity_id", identityID)))
	defer span.End()

	if s.lookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.lookupTimeout)
		defer cancel()
	}

	start := s.now()
	rec, err := retryRead(ctx, s, "LoadContext", func(ctx context.Context) (*AdminRecord, error) {
		return s.store.FindAdminRecord(ctx, identityID)
	})
	s.metrics.recordLookup(s.now().Sub(start), err)

	if err != nil {
		err = internalError("LoadContext", err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if rec == nil {
		return AnonymousContext(identityID), nil
	}
	return BuildContext(rec), nil
}
