package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/studyhall/studyhall-lms/internal/auth"
	"github.com/studyhall/studyhall-lms/internal/lms"
)

func newService(t *testing.T) (*auth.AuthService, lms.Store) {
	t.Helper()
	store := lms.NewInMemoryStore()
	return auth.NewAuthService("test-secret", store), store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "gopher", "gopher@example.com", "hunter22", "", "Grace", "Hopper")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Role != lms.RoleStudent {
		t.Fatalf("default role should be student, got %q", u.Role)
	}
	if u.PasswordHash == "hunter22" || u.PasswordHash == "" {
		t.Fatalf("password stored without hashing")
	}

	tok, got, err := svc.Login(ctx, "gopher", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("login returned wrong user")
	}

	claims, err := svc.Parse(tok)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Sub != u.ID || claims.Role != lms.RoleStudent {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLogin_BadCredentialsAreUniform(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "gopher", "gopher@example.com", "hunter22", "", "", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Wrong password and unknown username must be indistinguishable.
	_, _, errPw := svc.Login(ctx, "gopher", "wrong")
	_, _, errUser := svc.Login(ctx, "nobody", "hunter22")
	if !errors.Is(errPw, auth.ErrBadCredentials) || !errors.Is(errUser, auth.ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials for both, got %v / %v", errPw, errUser)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "gopher", "a@example.com", "pw", "", "", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(ctx, "gopher", "b@example.com", "pw", "", "", "")
	if !errors.Is(err, lms.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestParse_RejectsForeignSignature(t *testing.T) {
	svcA, _ := newService(t)
	store := lms.NewInMemoryStore()
	svcB := auth.NewAuthService("other-secret", store)

	tok, err := svcA.IssueJWT("user-1", lms.RoleStudent)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svcB.Parse(tok); err == nil {
		t.Fatalf("token signed with a different secret must not verify")
	}
}
