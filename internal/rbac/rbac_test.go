package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "editor read", role: RoleEditor, action: ActionRead, allow: true},
		{name: "editor write", role: RoleEditor, action: ActionWrite, allow: true},
		{name: "editor preview", role: RoleEditor, action: ActionPreview, allow: true},
		{name: "editor publish", role: RoleEditor, action: ActionPublishSite, allow: false},
		{name: "editor admin", role: RoleEditor, action: ActionAdmin, allow: false},
		{name: "admin publish", role: RoleAdmin, action: ActionPublishSite, allow: true},
		{name: "admin admin", role: RoleAdmin, action: ActionAdmin, allow: true},
		{name: "unknown role", role: Role("guest"), action: ActionRead, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.role, tc.action); got != tc.allow {
				t.Fatalf("Can(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.allow)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("admin"); got != RoleAdmin {
		t.Fatalf("Normalize(admin) = %q", got)
	}
	if got := Normalize("viewer"); got != RoleEditor {
		t.Fatalf("Normalize(viewer) = %q", got)
	}
}
