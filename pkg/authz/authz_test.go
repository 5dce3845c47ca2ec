package authz

import (
	"testing"

	"github.com/google/uuid"

	"github.com/librarium/librarium-backend/pkg/enums"
	pkgerrors "github.com/librarium/librarium-backend/pkg/errors"
)

func TestAllow(t *testing.T) {
	cases := []struct {
		name     string
		role     enums.Role
		resource Resource
		action   Action
		want     bool
	}{
		{"owner user admin", enums.RoleOwner, ResourceUsers, ActionWrite, true},
		{"owner audit logs", enums.RoleOwner, ResourceAuditLogs, ActionRead, true},
		{"admin user admin denied", enums.RoleAdmin, ResourceUsers, ActionWrite, false},
		{"admin audit logs denied", enums.RoleAdmin, ResourceAuditLogs, ActionRead, false},
		{"admin catalog write", enums.RoleAdmin, ResourceCatalog, ActionWrite, true},
		{"admin processes issues", enums.RoleAdmin, ResourceIssues, ActionProcess, true},
		{"student catalog read", enums.RoleStudent, ResourceCatalog, ActionRead, true},
		{"student catalog write denied", enums.RoleStudent, ResourceCatalog, ActionWrite, false},
		{"student requests issue", enums.RoleStudent, ResourceIssues, ActionWrite, true},
		{"student processes issue denied", enums.RoleStudent, ResourceIssues, ActionProcess, false},
		{"student submits review", enums.RoleStudent, ResourceReviews, ActionWrite, true},
		{"student moderates review denied", enums.RoleStudent, ResourceReviews, ActionProcess, false},
		{"student settings denied", enums.RoleStudent, ResourceSettings, ActionRead, false},
		{"unknown role denied", enums.Role("GHOST"), ResourceCatalog, ActionRead, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Allow(tc.role, tc.resource, tc.action); got != tc.want {
				t.Fatalf("expected %v got %v", tc.want, got)
			}
		})
	}
}

func TestCanActOn(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()

	cases := []struct {
		name  string
		actor Actor
		owner uuid.UUID
		want  bool
	}{
		{"student on own resource", Actor{UserID: owner, Role: enums.RoleStudent}, owner, true},
		{"student on other resource", Actor{UserID: other, Role: enums.RoleStudent}, owner, false},
		{"admin on other resource", Actor{UserID: other, Role: enums.RoleAdmin}, owner, true},
		{"owner on other resource", Actor{UserID: other, Role: enums.RoleOwner}, owner, true},
		{"nil actor id", Actor{Role: enums.RoleStudent}, uuid.Nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.actor.CanActOn(tc.owner); got != tc.want {
				t.Fatalf("expected %v got %v", tc.want, got)
			}
		})
	}
}

func TestRequire(t *testing.T) {
	if err := Require(Actor{Role: enums.RoleAdmin}, ResourceIssues, ActionProcess); err != nil {
		t.Fatalf("admin should process issues: %v", err)
	}
	err := Require(Actor{Role: enums.RoleStudent}, ResourceIssues, ActionProcess)
	if err == nil {
		t.Fatal("expected forbidden error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden code, got %v", err)
	}
	if err := Require(Actor{Role: enums.RoleAdmin}, ResourceUsers, ActionWrite); err == nil {
		t.Fatal("expected forbidden error for admin on user admin")
	}
}

func TestRequireSelfOrStaff(t *testing.T) {
	owner := uuid.New()
	if err := RequireSelfOrStaff(Actor{UserID: owner, Role: enums.RoleStudent}, owner); err != nil {
		t.Fatalf("self access should pass: %v", err)
	}
	if err := RequireSelfOrStaff(Actor{UserID: uuid.New(), Role: enums.RoleStudent}, owner); err == nil {
		t.Fatal("expected forbidden error")
	}
}
