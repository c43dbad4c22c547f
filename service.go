package adminkit

import (
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/fernandezvara/adminkit"

// SystemActorID is the actor recorded for changes made by the engine itself,
// such as bootstrapping the first super_admin.
const SystemActorID = "system"

// Service provides role management on top of a Store. Every mutation runs
// validation, the self-protection rule and the hierarchy guard, then writes
// the record and its audit entry in one transaction.
//
// Errors returned by the service always match one of the kinds in errors.go:
//
//	_, err := service.ChangeRole(ctx, actor, req)
//	switch {
//	case adminkit.IsConflict(err):
//	    // re-read and retry, see RetryOnConflict
//	case adminkit.IsPermissionDenied(err):
//	    perm, _ := adminkit.MissingPermission(err)
//	    ...
//	}
type Service struct {
	store    Store
	recorder *Recorder
	validate *validator.Validate

	logger  logrus.FieldLogger
	metrics *Metrics
	tracer  trace.Tracer

	now   func() time.Time
	newID func() string

	lookupTimeout   time.Duration
	readRetries     int
	readBackoff     time.Duration
	conflictRetries int

	txMonitor *transactionMonitor
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger logrus.FieldLogger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider. The global
// provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) ServiceOption {
	return func(s *Service) {
		s.tracer = tp.Tracer(tracerName)
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator replaces the UUID generator of records and audit entries.
func WithIDGenerator(newID func() string) ServiceOption {
	return func(s *Service) {
		s.newID = newID
	}
}

// WithLookupTimeout bounds request-path record lookups.
func WithLookupTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.lookupTimeout = d
	}
}

// WithReadRetries sets how often idempotent reads are retried on transient
// errors, and the base backoff between attempts.
func WithReadRetries(retries int, backoff time.Duration) ServiceOption {
	return func(s *Service) {
		s.readRetries = retries
		s.readBackoff = backoff
	}
}

// WithConflictRetries sets the default attempt count of RetryOnConflict.
func WithConflictRetries(attempts int) ServiceOption {
	return func(s *Service) {
		s.conflictRetries = attempts
	}
}

// NewService creates a new adminkit service.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := adminkit.NewService(adminkit.NewDBStore(db),
//	    adminkit.WithLogger(logger),
//	    adminkit.WithMetrics(adminkit.NewMetrics(prometheus.DefaultRegisterer)),
//	)
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:           store,
		validate:        newValidator(),
		logger:          discardLogger(),
		tracer:          otel.Tracer(tracerName),
		now:             time.Now,
		newID:           func() string { return uuid.NewString() },
		lookupTimeout:   2 * time.Second,
		readRetries:     2,
		readBackoff:     50 * time.Millisecond,
		conflictRetries: 3,
		txMonitor:       newTransactionMonitor(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.recorder = &Recorder{now: s.now, newID: s.newID}
	return s
}

// Store returns the backing store.
func (s *Service) Store() Store {
	return s.store
}

// discardLogger is the default logger: nothing is written until the caller
// supplies one.
func discardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
