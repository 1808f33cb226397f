package shared

// Core platform permissions.
const (
	PermUsersView = "users.view"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"

	PermDelegationsView   = "delegations.view"
	PermDelegationsCreate = "delegations.create"

	PermReportsView   = "reports.view"
	PermImportsCreate = "imports.create"
)

// CoreScopes lists all permissions known to the platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermRolesView,
		PermRolesEdit,
		PermDelegationsView,
		PermDelegationsCreate,
		PermReportsView,
		PermImportsCreate,
	}
}
