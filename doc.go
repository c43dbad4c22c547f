// Package adminkit provides role-based authorization and tamper-evident
// auditing for the administrators of a rental marketplace.
//
// Every administrator has exactly one AdminRecord: a fixed Role, an
// optional explicit permission list (custom role only) and a Status.
// Authorization is a pure function of that record: the record is turned
// into an AuthorizationContext once per request and every decision is a
// set membership test against it.
//
// # Core Concepts
//
// Permission: a namespaced capability from a closed catalog, such as
// "listings.approve" or "payments.refund". There are no wildcards.
//
// Role: super_admin, moderator, support, analyst or custom. Built-in roles
// map to fixed permission sets; custom roles carry their own list.
//
// Rank: roles are ordered (super_admin > moderator > support > custom >
// analyst). Only a strictly higher role, or a super_admin, may assign,
// change or revoke a role, and nobody may change their own record.
//
// Status: only active records grant anything. Suspended and inactive admins
// are denied exactly like identities without a record.
//
// # Basic Usage
//
//	// 1. Create the service on PostgreSQL (or NewMemoryStore for tests)
//	db, _ := dbkit.New(dbkit.Config{URL: cfg.DatabaseURL})
//	adminkit.RunMigrations(ctx, db)
//	service := adminkit.NewService(adminkit.NewDBStore(db), cfg.ServiceOptions()...)
//
//	// 2. Bootstrap the first super_admin
//	service.Bootstrap(ctx, "user_root", "initial setup")
//
//	// 3. Manage roles as an authenticated admin
//	actor, _ := service.LoadContext(ctx, "user_root")
//	service.AssignRole(ctx, actor, adminkit.AssignRoleRequest{
//	    IdentityID: "user_42",
//	    Role:       adminkit.RoleSupport,
//	    Reason:     "new support hire",
//	})
//
//	// 4. Check permissions
//	authz, _ := service.LoadContext(ctx, "user_42")
//	if authz.Has(adminkit.PermBookingsRefund) {
//	    // show the refund button
//	}
//
// # Middleware Usage
//
//	authz := adminkit.NewAuthorizer(service,
//	    adminkit.WithResolver(adminkit.BearerResolver{Verifier: verifier}))
//
//	router.Use(authz.InjectAuditContext())
//	router.With(authz.RequireAll(adminkit.PermListingsApprove)).
//	    Post("/admin/listings/{id}/approve", approveHandler)
//	router.With(authz.RequireSuperAdmin()).
//	    Get("/admin/settings", settingsHandler)
//
// Denials never reveal whether the caller is unknown, has no admin record
// or is inactive: all three are ErrAccessDenied. A missing permission is
// ErrPermissionDenied and names the permission.
//
// # Audit Log
//
// Every change to an admin record appends an AuditEntry in the same
// transaction as the change itself, with the previous and new role,
// permissions and status, the actor, a reason and request metadata. Entries
// of one record form a BLAKE3 hash chain, so VerifyAuditTrail detects
// edited, removed or reordered entries, and StateAt replays the log to the
// state of a record at any point in time.
package adminkit
