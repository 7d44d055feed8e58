package model

import "testing"

func TestPageRole(t *testing.T) {
	t.Parallel()

	t.Run("String returns correct value", func(t *testing.T) {
		t.Parallel()
		if got := PageRoleIndex.String(); got != "index" {
			t.Errorf("expected index, got %s", got)
		}
		if got := PageRoleUnknown.String(); got != "unknown" {
			t.Errorf("expected unknown, got %s", got)
		}
	})

	t.Run("IsValid returns true for known roles", func(t *testing.T) {
		t.Parallel()
		for _, role := range []PageRole{PageRoleIndex, PageRoleNamespace, PageRoleClass} {
			if !role.IsValid() {
				t.Errorf("expected %s to be valid", role)
			}
		}
		if PageRoleUnknown.IsValid() {
			t.Error("expected unknown to be invalid")
		}
	})

	t.Run("ParsePageRole parses correctly", func(t *testing.T) {
		t.Parallel()
		if got := ParsePageRole("namespace"); got != PageRoleNamespace {
			t.Errorf("expected namespace, got %v", got)
		}
		if got := ParsePageRole("class"); got != PageRoleClass {
			t.Errorf("expected class, got %v", got)
		}
		if got := ParsePageRole("invalid"); got != PageRoleUnknown {
			t.Errorf("expected unknown, got %v", got)
		}
	})
}
