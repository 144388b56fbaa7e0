package rbac

type Role string
type Action string

const (
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

const (
	ActionRead    Action = "read"
	ActionWrite   Action = "write"
	ActionPreview Action = "preview"
	// ActionPublishSite covers preset activation and rollback, which change
	// every page at once.
	ActionPublishSite Action = "publish_site"
	ActionAdmin       Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleEditor:
		return action == ActionRead || action == ActionWrite || action == ActionPreview
	default:
		return false
	}
}

// Normalize maps unknown roles to editor, the least privileged role.
func Normalize(role string) Role {
	switch Role(role) {
	case RoleEditor, RoleAdmin:
		return Role(role)
	default:
		return RoleEditor
	}
}
