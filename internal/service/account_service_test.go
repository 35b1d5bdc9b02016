package service

import (
	"errors"
	"testing"

	"github.com/yourorg/centerattend/internal/domain"
	"github.com/yourorg/centerattend/internal/security"
)

type accountFixture struct {
	svc      *AccountService
	accounts *memAccountRepo
	admin    *domain.Account
	center   *domain.Account
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()

	accounts := newMemAccountRepo()
	admin := &domain.Account{Username: "root", Role: domain.RoleAdmin, Active: true}
	if err := accounts.Create(admin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	centerRef := domain.ProfileRef{Kind: domain.KindCenter, ID: "ctr-1"}
	center := &domain.Account{Username: "kandy", Role: domain.RoleCenter, Profile: &centerRef, Active: true}
	if err := accounts.Create(center); err != nil {
		t.Fatalf("seed center: %v", err)
	}

	return &accountFixture{
		svc:      NewAccountService(accounts, security.NewPolicyEngine(nil), nil),
		accounts: accounts,
		admin:    admin,
		center:   center,
	}
}

func TestAccountListAdminOnly(t *testing.T) {
	f := newAccountFixture(t)

	all, err := f.svc.List(f.admin, "")
	if err != nil {
		t.Fatalf("admin list failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(all))
	}

	centers, err := f.svc.List(f.admin, domain.RoleCenter)
	if err != nil {
		t.Fatalf("filtered list failed: %v", err)
	}
	if len(centers) != 1 || centers[0].ID != f.center.ID {
		t.Fatalf("expected only the center account, got %d", len(centers))
	}

	var verr *domain.ValidationError
	if _, err := f.svc.List(f.admin, "superuser"); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for bogus role, got %v", err)
	}

	if _, err := f.svc.List(f.center, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for center role, got %v", err)
	}
	if _, err := f.svc.List(nil, ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for nil caller, got %v", err)
	}
}

func TestAccountGet(t *testing.T) {
	f := newAccountFixture(t)

	got, err := f.svc.Get(f.admin, f.center.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Username != "kandy" {
		t.Fatalf("wrong account returned: %q", got.Username)
	}

	if _, err := f.svc.Get(f.admin, "nope"); !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if _, err := f.svc.Get(f.center, f.admin.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for center role, got %v", err)
	}
}

func TestAccountDeactivate(t *testing.T) {
	f := newAccountFixture(t)

	if err := f.svc.Deactivate(f.admin, f.center.ID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	stored, _ := f.accounts.GetByID(f.center.ID)
	if stored.Active {
		t.Fatal("account still active after deactivation")
	}

	if err := f.svc.Deactivate(f.admin, "nope"); !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if err := f.svc.Deactivate(f.center, f.admin.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for center role, got %v", err)
	}
}

func TestAccountDeactivateSelfRejected(t *testing.T) {
	f := newAccountFixture(t)

	var verr *domain.ValidationError
	if err := f.svc.Deactivate(f.admin, f.admin.ID); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for self-deactivation, got %v", err)
	}
	stored, _ := f.accounts.GetByID(f.admin.ID)
	if !stored.Active {
		t.Fatal("self-deactivation must not take effect")
	}
}
