package adminkit

import (
	"fmt"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/sirupsen/logrus"
)

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	MaxOpenConnections    int           `envconfig:"MAX_OPEN" default:"25"`
	MaxIdleConnections    int           `envconfig:"MAX_IDLE" default:"5"`
	ConnectionMaxLifetime time.Duration `envconfig:"MAX_LIFETIME" default:"30m"`
	ConnectionMaxIdleTime time.Duration `envconfig:"MAX_IDLE_TIME" default:"5m"`
}

// DefaultPoolConfig returns the pool settings used when nothing is configured.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConnections:    25,
		MaxIdleConnections:    5,
		ConnectionMaxLifetime: 30 * time.Minute,
		ConnectionMaxIdleTime: 5 * time.Minute,
	}
}

// ConfigurePool applies config to the connection pool.
func (s *DBStore) ConfigurePool(config PoolConfig) error {
	db, ok := s.db.(*dbkit.DBKit)
	if !ok {
		return fmt.Errorf("connection pool configuration requires a dbkit.DBKit instance")
	}
	bunDB := db.Bun()
	if bunDB == nil {
		return fmt.Errorf("database instance not available")
	}

	if config.MaxIdleConnections > config.MaxOpenConnections && config.MaxOpenConnections > 0 {
		config.MaxIdleConnections = config.MaxOpenConnections
	}
	bunDB.SetMaxOpenConns(config.MaxOpenConnections)
	bunDB.SetMaxIdleConns(config.MaxIdleConnections)
	bunDB.SetConnMaxLifetime(config.ConnectionMaxLifetime)
	bunDB.SetConnMaxIdleTime(config.ConnectionMaxIdleTime)

	s.logger.WithFields(logrus.Fields{
		"max_open":      config.MaxOpenConnections,
		"max_idle":      config.MaxIdleConnections,
		"max_lifetime":  config.ConnectionMaxLifetime,
		"max_idle_time": config.ConnectionMaxIdleTime,
	}).Info("connection pool configured")
	return nil
}

// ResetPool restores the default pool settings.
func (s *DBStore) ResetPool() error {
	return s.ConfigurePool(DefaultPoolConfig())
}
