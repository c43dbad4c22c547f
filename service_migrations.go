package adminkit

import (
	"context"
	"fmt"

	"github.com/fernandezvara/dbkit"
)

// Migrations returns all database migrations required by DBStore.
// Run them with db.Migrate(ctx, adminkit.Migrations()) or RunMigrations.
func Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "adminkit-001",
			Description: "Create admin_records table",
			SQL: `
                CREATE TABLE IF NOT EXISTS admin_records (
                    id UUID PRIMARY KEY,
                    identity_id TEXT NOT NULL UNIQUE,
                    role TEXT NOT NULL CHECK (role IN ('super_admin', 'moderator', 'support', 'analyst', 'custom')),
                    permissions TEXT[],
                    status TEXT NOT NULL CHECK (status IN ('active', 'inactive', 'suspended')),
                    assigned_at TIMESTAMPTZ NOT NULL,
                    assigned_by TEXT NOT NULL,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    version BIGINT NOT NULL DEFAULT 1,
                    CHECK (role = 'custom' OR permissions IS NULL)
                )`,
		},
		{
			ID:          "adminkit-002",
			Description: "Create admin_audit_log table",
			SQL: `
                CREATE TABLE IF NOT EXISTS admin_audit_log (
                    id UUID PRIMARY KEY,
                    seq BIGSERIAL NOT NULL UNIQUE,
                    admin_record_id UUID NOT NULL,
                    identity_id TEXT NOT NULL,
                    action TEXT NOT NULL CHECK (action IN ('created', 'updated', 'deleted', 'suspended', 'reactivated')),
                    changes TEXT[] NOT NULL DEFAULT '{}',
                    previous_role TEXT,
                    new_role TEXT,
                    previous_permissions TEXT[],
                    new_permissions TEXT[],
                    previous_status TEXT,
                    new_status TEXT,
                    actor_id TEXT NOT NULL,
                    reason TEXT,
                    ip_address TEXT,
                    user_agent TEXT,
                    request_id TEXT,
                    timestamp TIMESTAMPTZ NOT NULL,
                    prev_hash TEXT,
                    hash TEXT NOT NULL UNIQUE
                )`,
		},
		{
			ID:          "adminkit-003",
			Description: "Index admin_audit_log for per-record and per-actor retrieval",
			SQL: `
                CREATE INDEX IF NOT EXISTS admin_audit_log_record_idx ON admin_audit_log (admin_record_id, timestamp, seq);
                CREATE INDEX IF NOT EXISTS admin_audit_log_actor_idx ON admin_audit_log (actor_id, timestamp);
                CREATE INDEX IF NOT EXISTS admin_audit_log_identity_idx ON admin_audit_log (identity_id, timestamp)`,
		},
		{
			ID:          "adminkit-004",
			Description: "Make admin_audit_log append-only",
			SQL: `
                CREATE OR REPLACE FUNCTION admin_audit_log_immutable() RETURNS trigger AS $$
                BEGIN
                    RAISE EXCEPTION 'admin_audit_log is append-only';
                END;
                $$ LANGUAGE plpgsql;
                DROP TRIGGER IF EXISTS admin_audit_log_no_update ON admin_audit_log;
                CREATE TRIGGER admin_audit_log_no_update
                    BEFORE UPDATE OR DELETE ON admin_audit_log
                    FOR EACH ROW EXECUTE FUNCTION admin_audit_log_immutable()`,
		},
	}
}

// RunMigrations applies pending migrations and returns the ids it applied.
func RunMigrations(ctx context.Context, db *dbkit.DBKit) ([]string, error) {
	result, err := db.Migrate(ctx, Migrations())
	if err != nil {
		return nil, fmt.Errorf("adminkit: run migrations: %w", err)
	}
	applied := make([]string, 0, len(result.Applied))
	for _, m := range result.Applied {
		applied = append(applied, m.ID)
	}
	return applied, nil
}
