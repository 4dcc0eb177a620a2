package rbac_test

import (
	"testing"

	"github.com/studyhall/studyhall-lms/internal/rbac"
)

func TestDefaultRolePermissions(t *testing.T) {
	c := rbac.NewChecker(nil)

	cases := []struct {
		role, perm string
		want       bool
	}{
		{"student", "quiz:submit", true},
		{"student", "lesson:complete", true},
		{"student", "certificate:request", true},
		{"student", "quiz:create", false},
		{"student", "gradebook:view", false},
		{"student", "attempt:view-own", true},
		{"student", "attempt:view-all", false},
		{"instructor", "quiz:create", true},
		{"instructor", "gradebook:view", true},
		{"instructor", "attempt:grade", true},
		{"instructor", "certificate:request", false},
		{"admin", "quiz:create", true},
		{"admin", "anything:at-all", true},
		{"", "quiz:submit", false},
		{"ghost", "quiz:submit", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestAny(t *testing.T) {
	c := rbac.NewChecker(nil)
	if !c.Any("student", "attempt:view-own", "attempt:view-all") {
		t.Fatalf("student should pass on attempt:view-own")
	}
	if c.Any("student", "attempt:view-all", "attempt:grade") {
		t.Fatalf("student should fail both instructor perms")
	}
}

func TestWildcardSuffix(t *testing.T) {
	c := rbac.NewChecker(map[string][]string{
		"auditor": {"course:*"},
	})
	if !c.Has("auditor", "course:view") {
		t.Fatalf("course:* should cover course:view")
	}
	if c.Has("auditor", "quiz:take") {
		t.Fatalf("course:* must not cover quiz:take")
	}
}
