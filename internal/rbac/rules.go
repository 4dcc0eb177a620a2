package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"course:view",
		"course:enroll",
		"lesson:view",
		"lesson:complete",
		"quiz:take",
		"quiz:submit",
		"attempt:view-own",
		"certificate:request",
		"resource:download",
		"announcement:view",
	},
	"instructor": {
		"course:view",
		"course:create",
		"course:publish",
		"lesson:view",
		"lesson:create",
		"quiz:create",
		"question:create",
		"attempt:view-all",
		"attempt:grade",
		"gradebook:view",
		"analytics:view",
		"announcement:create",
		"announcement:view",
		"resource:upload",
		"resource:download",
	},
	"admin": {
		"*", // everything
	},
}
