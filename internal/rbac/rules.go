package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"quiz:view",
		"quiz:list",
		"attempt:submit",
		"result:view-own",
		"analytics:view-own",
		"activity:view-own",
		"goal:manage-own",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
