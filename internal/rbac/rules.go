package rbac

const (
	PermExamTake      = "exam:take"
	PermDashboardView = "dashboard:view"
	PermCalcUse       = "calc:use"

	PermStudentsManage = "students:manage"
	PermSubjectsManage = "subjects:manage"
	PermAttemptsReview = "attempts:review"
	PermEventsView     = "events:view"
)

// RolePermissions is the portal's fixed policy.
var RolePermissions = map[string][]string{
	"student": {
		PermExamTake,
		PermDashboardView,
		PermCalcUse,
	},
	"admin": {
		"*", // everything
	},
}
