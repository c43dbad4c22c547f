package adminkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// Health performs a comprehensive health check of the database connection.
// Returns detailed status including latency, connection pool statistics, and error information.
func (s *DBStore) Health(ctx context.Context) dbkit.HealthStatus {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		status := db.Health(ctx)
		if !status.Healthy {
			s.logger.WithField("error", status.Error).Warn("database unhealthy")
		}
		return status
	}

	// In a transaction or a different type: do a basic ping
	status := dbkit.HealthStatus{Healthy: s.IsHealthy(ctx)}
	if !status.Healthy {
		status.Error = "ping failed"
	}
	return status
}

// IsHealthy reports whether the database is reachable.
func (s *DBStore) IsHealthy(ctx context.Context) bool {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.IsHealthy(ctx)
	}
	return s.Ping(ctx) == nil
}

// GetPoolStats returns connection pool statistics for monitoring.
// Returns zero values if the database instance doesn't support pool statistics.
func (s *DBStore) GetPoolStats() dbkit.PoolStats {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return dbkit.PoolStatsFromSQL(db.Stats())
	}
	return dbkit.PoolStats{}
}

// Health reports the health of the backing store. Stores that do not
// implement HealthMonitor are checked with Ping.
func (s *Service) Health(ctx context.Context) dbkit.HealthStatus {
	if hm, ok := s.store.(HealthMonitor); ok {
		return hm.Health(ctx)
	}
	if err := s.store.Ping(ctx); err != nil {
		return dbkit.HealthStatus{Healthy: false, Error: err.Error()}
	}
	return dbkit.HealthStatus{Healthy: true}
}

// IsHealthy reports whether the store is reachable and transactions are
// within their thresholds.
func (s *Service) IsHealthy(ctx context.Context) bool {
	return s.Health(ctx).Healthy && s.IsTransactionHealthy()
}
