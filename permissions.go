package adminkit

import (
	"fmt"
	"sort"
	"strings"
)

// Permission is a namespaced admin capability such as "users.delete".
// The set of permissions is closed: only the constants below exist.
type Permission string

// Category groups permissions for display purposes only.
type Category string

const (
	CategoryUsers    Category = "users"
	CategoryListings Category = "listings"
	CategoryBookings Category = "bookings"
	CategoryPayments Category = "payments"
	CategoryContent  Category = "content"
	CategorySupport  Category = "support"
	CategoryReports  Category = "reports"
	CategorySystem   Category = "system"
)

const (
	// User management
	PermUsersView       Permission = "users.view"
	PermUsersEdit       Permission = "users.edit"
	PermUsersSuspend    Permission = "users.suspend"
	PermUsersDelete     Permission = "users.delete"
	PermUsersAssignRole Permission = "users.assign_role"

	// Listings
	PermListingsView    Permission = "listings.view"
	PermListingsApprove Permission = "listings.approve"
	PermListingsEdit    Permission = "listings.edit"
	PermListingsDelete  Permission = "listings.delete"

	// Bookings
	PermBookingsView   Permission = "bookings.view"
	PermBookingsManage Permission = "bookings.manage"
	PermBookingsRefund Permission = "bookings.refund"

	// Payments
	PermPaymentsView   Permission = "payments.view"
	PermPaymentsRefund Permission = "payments.refund"

	// Content moderation
	PermContentModerate Permission = "content.moderate"
	PermReviewsModerate Permission = "reviews.moderate"

	// Support desk
	PermSupportView     Permission = "support.view"
	PermSupportRespond  Permission = "support.respond"
	PermSupportEscalate Permission = "support.escalate"

	// Reporting
	PermReportsView   Permission = "reports.view"
	PermReportsExport Permission = "reports.export"
	PermAnalyticsView Permission = "analytics.view"

	// System
	PermSettingsView   Permission = "settings.view"
	PermSettingsManage Permission = "settings.manage"
	PermAuditView      Permission = "audit.view"
)

// PermissionInfo is the display metadata of a permission.
type PermissionInfo struct {
	Permission  Permission `json:"permission"`
	Category    Category   `json:"category"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
}

var catalog = map[Permission]PermissionInfo{
	PermUsersView:       {PermUsersView, CategoryUsers, "View users", "Browse renter and host accounts"},
	PermUsersEdit:       {PermUsersEdit, CategoryUsers, "Edit users", "Change profile data of renters and hosts"},
	PermUsersSuspend:    {PermUsersSuspend, CategoryUsers, "Suspend users", "Temporarily block marketplace accounts"},
	PermUsersDelete:     {PermUsersDelete, CategoryUsers, "Delete users", "Permanently remove marketplace accounts"},
	PermUsersAssignRole: {PermUsersAssignRole, CategoryUsers, "Manage admin roles", "Grant, change and revoke administrator roles"},

	PermListingsView:    {PermListingsView, CategoryListings, "View listings", "Browse all rental listings including drafts"},
	PermListingsApprove: {PermListingsApprove, CategoryListings, "Approve listings", "Publish or reject listings awaiting review"},
	PermListingsEdit:    {PermListingsEdit, CategoryListings, "Edit listings", "Correct listing content on behalf of hosts"},
	PermListingsDelete:  {PermListingsDelete, CategoryListings, "Delete listings", "Take listings down permanently"},

	PermBookingsView:   {PermBookingsView, CategoryBookings, "View bookings", "Inspect reservations and their history"},
	PermBookingsManage: {PermBookingsManage, CategoryBookings, "Manage bookings", "Change dates or cancel reservations"},
	PermBookingsRefund: {PermBookingsRefund, CategoryBookings, "Refund bookings", "Issue booking refunds to renters"},

	PermPaymentsView:   {PermPaymentsView, CategoryPayments, "View payments", "Inspect charges and host payouts"},
	PermPaymentsRefund: {PermPaymentsRefund, CategoryPayments, "Refund payments", "Reverse charges outside the booking flow"},

	PermContentModerate: {PermContentModerate, CategoryContent, "Moderate content", "Hide messages and media that break policy"},
	PermReviewsModerate: {PermReviewsModerate, CategoryContent, "Moderate reviews", "Remove or restore guest and host reviews"},

	PermSupportView:     {PermSupportView, CategorySupport, "View tickets", "Read support conversations"},
	PermSupportRespond:  {PermSupportRespond, CategorySupport, "Respond to tickets", "Reply to and close support tickets"},
	PermSupportEscalate: {PermSupportEscalate, CategorySupport, "Escalate tickets", "Hand tickets over to senior staff"},

	PermReportsView:   {PermReportsView, CategoryReports, "View reports", "Open operational reports"},
	PermReportsExport: {PermReportsExport, CategoryReports, "Export reports", "Download report data"},
	PermAnalyticsView: {PermAnalyticsView, CategoryReports, "View analytics", "Open marketplace dashboards"},

	PermSettingsView:   {PermSettingsView, CategorySystem, "View settings", "Read platform configuration"},
	PermSettingsManage: {PermSettingsManage, CategorySystem, "Manage settings", "Change platform configuration"},
	PermAuditView:      {PermAuditView, CategorySystem, "View audit log", "Read the administrator audit trail"},
}

// AllPermissions returns every catalogued permission in sorted order.
func AllPermissions() []Permission {
	perms := make([]Permission, 0, len(catalog))
	for p := range catalog {
		perms = append(perms, p)
	}
	sortPermissions(perms)
	return perms
}

// LookupPermission returns the metadata of a catalogued permission.
func LookupPermission(p Permission) (PermissionInfo, bool) {
	info, ok := catalog[p]
	return info, ok
}

// IsValid reports whether p is part of the catalog.
func (p Permission) IsValid() bool {
	_, ok := catalog[p]
	return ok
}

// Category returns the display category of p, or "" for unknown permissions.
func (p Permission) Category() Category {
	return catalog[p].Category
}

func (p Permission) String() string {
	return string(p)
}

// ParsePermission converts a raw permission key into a catalogued Permission.
func ParsePermission(raw string) (Permission, error) {
	p := Permission(strings.TrimSpace(strings.ToLower(raw)))
	if !p.IsValid() {
		return "", NewError(ErrInvalidPermission, fmt.Sprintf("permission %q is not catalogued", raw)).
			WithPermission(p)
	}
	return p, nil
}

// ParsePermissions converts raw keys, failing on the first unknown one.
// A nil input yields nil so that "absent" stays distinguishable from "empty".
func ParsePermissions(raw []string) ([]Permission, error) {
	if raw == nil {
		return nil, nil
	}
	perms := make([]Permission, 0, len(raw))
	for _, r := range raw {
		p, err := ParsePermission(r)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, nil
}

// PermissionSet is an immutable-by-convention set with O(1) membership.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the given permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Contains reports membership of p.
func (s PermissionSet) Contains(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Len returns the number of permissions in the set.
func (s PermissionSet) Len() int {
	return len(s)
}

// Slice returns the members in sorted order.
func (s PermissionSet) Slice() []Permission {
	perms := make([]Permission, 0, len(s))
	for p := range s {
		perms = append(perms, p)
	}
	sortPermissions(perms)
	return perms
}

// Clone returns an independent copy.
func (s PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

// normalizePermissions dedupes and sorts perms while preserving nil.
func normalizePermissions(perms []Permission) []Permission {
	if perms == nil {
		return nil
	}
	return NewPermissionSet(perms...).Slice()
}

func sortPermissions(perms []Permission) {
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
}

func equalPermissions(a, b []Permission) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	na, nb := normalizePermissions(a), normalizePermissions(b)
	if len(na) != len(nb) {
		return false
	}
	for i := range na {
		if na[i] != nb[i] {
			return false
		}
	}
	return true
}
