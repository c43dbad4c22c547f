package adminkit

// RoleInfo is the display metadata of a role, for admin UIs that render
// role pickers and permission overviews.
type RoleInfo struct {
	Role        Role         `json:"role"`
	Label       string       `json:"label"`
	Description string       `json:"description"`
	Rank        int          `json:"rank"`
	Permissions []Permission `json:"permissions"`
}

var roleDescriptions = map[Role]struct{ label, description string }{
	RoleSuperAdmin: {"Super admin", "Full control of the marketplace, including other administrators"},
	RoleModerator:  {"Moderator", "Trust and safety: listings, content, reviews and user enforcement"},
	RoleSupport:    {"Support", "Customer support: tickets, bookings and refunds"},
	RoleCustom:     {"Custom", "Explicitly granted permissions only"},
	RoleAnalyst:    {"Analyst", "Read-only access to reports and dashboards"},
}

// RoleInfos returns the metadata of every role, highest rank first.
// The permissions of RoleCustom are empty: they belong to each assignment.
func RoleInfos() []RoleInfo {
	roles := Roles()
	infos := make([]RoleInfo, 0, len(roles))
	for _, r := range roles {
		info, _ := LookupRole(r)
		infos = append(infos, info)
	}
	return infos
}

// LookupRole returns the metadata of a role.
func LookupRole(r Role) (RoleInfo, bool) {
	if !r.IsValid() {
		return RoleInfo{}, false
	}
	d := roleDescriptions[r]
	return RoleInfo{
		Role:        r,
		Label:       d.label,
		Description: d.description,
		Rank:        Rank(r),
		Permissions: PermissionsFor(r).Slice(),
	}, true
}

// Categories returns every permission category in display order.
func Categories() []Category {
	return []Category{
		CategoryUsers,
		CategoryListings,
		CategoryBookings,
		CategoryPayments,
		CategoryContent,
		CategorySupport,
		CategoryReports,
		CategorySystem,
	}
}

// PermissionsByCategory groups the catalog by category, each group sorted.
func PermissionsByCategory() map[Category][]PermissionInfo {
	groups := make(map[Category][]PermissionInfo, len(Categories()))
	for _, p := range AllPermissions() {
		info := catalog[p]
		groups[info.Category] = append(groups[info.Category], info)
	}
	return groups
}
