package service

import (
	"context"
	"errors"
	"testing"

	"github.com/yourorg/centerattend/internal/domain"
)

func newTestResolver(t *testing.T) (*ProfileResolver, *memAccountRepo, *memCenterRepo, *memInstructorRepo, *memStudentRepo) {
	t.Helper()
	accounts := newMemAccountRepo()
	centers := newMemCenterRepo()
	instructors := newMemInstructorRepo()
	students := newMemStudentRepo()
	return NewProfileResolver(accounts, centers, instructors, students, nil, nil), accounts, centers, instructors, students
}

func TestResolveDispatch(t *testing.T) {
	resolver, _, centers, instructors, students := newTestResolver(t)

	center := &domain.Center{Code: "KDY-01", Name: "Kandy Center"}
	centers.Create(center)
	instructor := &domain.Instructor{ExternalID: "E-24-001", Name: "Nimal", Email: "nimal@eng.pdn.ac.lk", CenterID: center.ID}
	instructors.Create(instructor)
	student := &domain.Student{ExternalID: "S-001", Name: "Kamala", CenterID: center.ID}
	students.Create(student)

	got, err := resolver.Resolve(domain.ProfileRef{Kind: domain.KindCenter, ID: center.ID})
	if err != nil || got.Center == nil || got.Center.Code != "KDY-01" {
		t.Fatalf("center resolve failed: %+v (err %v)", got, err)
	}
	if got.Instructor != nil || got.Student != nil {
		t.Fatalf("only the matching variant may be set, got %+v", got)
	}

	got, err = resolver.Resolve(domain.ProfileRef{Kind: domain.KindInstructor, ID: instructor.ID})
	if err != nil || got.Instructor == nil || got.Instructor.ExternalID != "E-24-001" {
		t.Fatalf("instructor resolve failed: %+v (err %v)", got, err)
	}

	got, err = resolver.Resolve(domain.ProfileRef{Kind: domain.KindStudent, ID: student.ID})
	if err != nil || got.Student == nil || got.Student.ExternalID != "S-001" {
		t.Fatalf("student resolve failed: %+v (err %v)", got, err)
	}

	var verr *domain.ValidationError
	if _, err := resolver.Resolve(domain.ProfileRef{Kind: "building", ID: "x"}); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for unknown kind, got %v", err)
	}
}

func TestResolveDanglingRef(t *testing.T) {
	resolver, _, _, _, _ := newTestResolver(t)

	if _, err := resolver.Resolve(domain.ProfileRef{Kind: domain.KindStudent, ID: "gone"}); !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError for dangling reference, got %v", err)
	}
}

func TestLinkConflicts(t *testing.T) {
	resolver, accounts, centers, _, students := newTestResolver(t)

	center := &domain.Center{Code: "KDY-01", Name: "Kandy Center"}
	centers.Create(center)
	student := &domain.Student{ExternalID: "S-001", Name: "Kamala", CenterID: center.ID}
	students.Create(student)

	first := &domain.Account{Username: "S-001", Role: domain.RoleStudent, Active: true}
	accounts.Create(first)
	second := &domain.Account{Username: "other", Role: domain.RoleStudent, Active: true}
	accounts.Create(second)

	ref := domain.ProfileRef{Kind: domain.KindStudent, ID: student.ID}
	if err := resolver.Link(first.ID, ref); err != nil {
		t.Fatalf("link failed: %v", err)
	}

	// Linking the same pair again is a no-op, not a conflict.
	if err := resolver.Link(first.ID, ref); err != nil {
		t.Fatalf("idempotent re-link failed: %v", err)
	}

	// The same profile cannot back a second account.
	var cerr *domain.ConflictError
	if err := resolver.Link(second.ID, ref); !errors.As(err, &cerr) {
		t.Fatalf("expected ConflictError for already-claimed profile, got %v", err)
	}

	// An already-linked account cannot switch profiles.
	other := &domain.Student{ExternalID: "S-002", Name: "B", CenterID: center.ID}
	students.Create(other)
	if err := resolver.Link(first.ID, domain.ProfileRef{Kind: domain.KindStudent, ID: other.ID}); !errors.As(err, &cerr) {
		t.Fatalf("expected ConflictError for profile switch, got %v", err)
	}

	// Linking to a profile that does not exist fails before any write.
	if err := resolver.Link(second.ID, domain.ProfileRef{Kind: domain.KindStudent, ID: "gone"}); !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	reloaded, _ := accounts.GetByID(second.ID)
	if reloaded.Profile != nil {
		t.Fatalf("failed link must not persist, got %+v", reloaded.Profile)
	}
}

func TestFindByExternalID(t *testing.T) {
	resolver, _, centers, instructors, students := newTestResolver(t)
	ctx := context.Background()

	center := &domain.Center{Code: "KDY-01", Name: "Kandy Center"}
	centers.Create(center)
	students.Create(&domain.Student{ExternalID: "S-001", Name: "Kamala", CenterID: center.ID})
	instructors.Create(&domain.Instructor{ExternalID: "E-24-001", Name: "Nimal", Email: "nimal@eng.pdn.ac.lk", CenterID: center.ID})

	subject, err := resolver.FindByExternalID(ctx, domain.KindStudent, "S-001")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if subject.Ref.Kind != domain.KindStudent || subject.CenterID != center.ID {
		t.Fatalf("unexpected subject %+v", subject)
	}

	if _, err := resolver.FindByExternalID(ctx, domain.KindInstructor, "E-24-001"); err != nil {
		t.Fatalf("instructor lookup failed: %v", err)
	}

	// Centers are not attendance subjects.
	var verr *domain.ValidationError
	if _, err := resolver.FindByExternalID(ctx, domain.KindCenter, "KDY-01"); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for center subject, got %v", err)
	}

	if _, err := resolver.FindByExternalID(ctx, domain.KindStudent, "S-404"); !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestFindByExternalIDCaching(t *testing.T) {
	resolver, _, centers, _, students := newTestResolver(t)
	ctx := context.Background()

	center := &domain.Center{Code: "KDY-01", Name: "Kandy Center"}
	centers.Create(center)
	students.Create(&domain.Student{ExternalID: "S-001", Name: "Kamala", CenterID: center.ID})

	if _, err := resolver.FindByExternalID(ctx, domain.KindStudent, "S-001"); err != nil {
		t.Fatalf("first lookup failed: %v", err)
	}

	// Remove the row; the cached resolution still answers until invalidated.
	hit, _ := students.GetByExternalID("S-001")
	students.Delete(hit.ID)

	if _, err := resolver.FindByExternalID(ctx, domain.KindStudent, "S-001"); err != nil {
		t.Fatalf("expected cache hit after delete, got %v", err)
	}

	resolver.InvalidateExternalID(ctx, domain.KindStudent, "S-001")
	if _, err := resolver.FindByExternalID(ctx, domain.KindStudent, "S-001"); !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError after invalidation, got %v", err)
	}
}
