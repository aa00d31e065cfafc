package rbac

// Gateway permissions.
const (
	PermTrainingView   = "training:view"
	PermProgressView   = "progress:view"
	PermProgressUpdate = "progress:update"
	PermQuizTake       = "quiz:take"
	PermJournalView    = "journal:view"
)

// Default policy. Roles arrive lower-cased from the session profile.
var RolePermissions = map[string][]string{
	"employee": {
		PermTrainingView,
		PermProgressView,
		PermProgressUpdate,
		PermQuizTake,
	},
	"manager": {
		"training:*",
		"progress:*",
		PermQuizTake,
		PermJournalView,
	},
	"admin": {
		"*", // everything
	},
	// no session: reads only, progress comes back as NO_USER
	"anonymous": {
		PermTrainingView,
		PermProgressView,
	},
}
