package security

import (
	"errors"
	"testing"
	"time"

	"github.com/yourorg/centerattend/internal/domain"
)

var allOperations = []Operation{
	OpReadAttendance,
	OpMarkAttendance,
	OpUpdateAttendance,
	OpDeleteAttendance,
	OpReadCenters,
	OpManageCenters,
	OpReadInstructors,
	OpManageInstructors,
	OpReadStudents,
	OpManageStudents,
	OpReadSeminars,
	OpManageSeminars,
	OpManageAccounts,
}

func adminAccount() *domain.Account {
	return &domain.Account{ID: "acc-admin", Role: domain.RoleAdmin, Active: true}
}

func centerAccount() *domain.Account {
	return &domain.Account{
		ID:      "acc-center",
		Role:    domain.RoleCenter,
		Profile: &domain.ProfileRef{Kind: domain.KindCenter, ID: "ctr-1"},
		Active:  true,
	}
}

func studentAccount() *domain.Account {
	return &domain.Account{
		ID:      "acc-student",
		Role:    domain.RoleStudent,
		Profile: &domain.ProfileRef{Kind: domain.KindStudent, ID: "stu-1"},
		Active:  true,
	}
}

func instructorAccount() *domain.Account {
	return &domain.Account{
		ID:      "acc-instructor",
		Role:    domain.RoleInstructor,
		Profile: &domain.ProfileRef{Kind: domain.KindInstructor, ID: "ins-1"},
		Active:  true,
	}
}

func TestComputeScopeAdmin(t *testing.T) {
	engine := NewPolicyEngine(nil)
	for _, op := range allOperations {
		scope, err := engine.ComputeScope(adminAccount(), op)
		if err != nil {
			t.Fatalf("%s: admin denied: %v", op, err)
		}
		if scope.Kind != ScopeAll {
			t.Fatalf("%s: expected ScopeAll for admin, got %v", op, scope.Kind)
		}
	}
}

func TestComputeScopeCenter(t *testing.T) {
	engine := NewPolicyEngine(nil)
	account := centerAccount()

	tests := []struct {
		op      Operation
		want    ScopeKind
		allowed bool
	}{
		{OpReadAttendance, ScopeCenter, true},
		{OpMarkAttendance, ScopeCenter, true},
		{OpUpdateAttendance, ScopeCenter, true},
		{OpDeleteAttendance, 0, false},
		{OpReadCenters, ScopeAll, true},
		{OpManageCenters, 0, false},
		{OpReadInstructors, ScopeCenter, true},
		{OpManageInstructors, 0, false},
		{OpReadStudents, ScopeCenter, true},
		{OpManageStudents, 0, false},
		{OpReadSeminars, ScopeAll, true},
		{OpManageSeminars, 0, false},
		{OpManageAccounts, 0, false},
	}

	for _, tt := range tests {
		scope, err := engine.ComputeScope(account, tt.op)
		if !tt.allowed {
			if !errors.Is(err, domain.ErrForbidden) {
				t.Fatalf("%s: expected ErrForbidden, got %v", tt.op, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.op, err)
		}
		if scope.Kind != tt.want {
			t.Fatalf("%s: expected kind %v, got %v", tt.op, tt.want, scope.Kind)
		}
		if tt.want == ScopeCenter && scope.CenterID != "ctr-1" {
			t.Fatalf("%s: scope must pin the caller's center, got %q", tt.op, scope.CenterID)
		}
	}
}

func TestComputeScopeSelf(t *testing.T) {
	engine := NewPolicyEngine(nil)

	for _, account := range []*domain.Account{studentAccount(), instructorAccount()} {
		for _, op := range allOperations {
			scope, err := engine.ComputeScope(account, op)
			switch op {
			case OpReadCenters, OpReadSeminars:
				if err != nil || scope.Kind != ScopeAll {
					t.Fatalf("%s/%s: expected ScopeAll, got %v (err %v)", account.Role, op, scope.Kind, err)
				}
			case OpReadAttendance:
				if err != nil || scope.Kind != ScopeSelf {
					t.Fatalf("%s/%s: expected ScopeSelf, got %v (err %v)", account.Role, op, scope.Kind, err)
				}
				if scope.Subject == nil || scope.Subject.ID != account.Profile.ID || scope.Subject.Kind != account.Profile.Kind {
					t.Fatalf("%s/%s: subject must mirror the account profile, got %+v", account.Role, op, scope.Subject)
				}
			default:
				if !errors.Is(err, domain.ErrForbidden) {
					t.Fatalf("%s/%s: expected ErrForbidden, got %v", account.Role, op, err)
				}
			}
		}
	}
}

func TestComputeScopeDegenerateAccounts(t *testing.T) {
	engine := NewPolicyEngine(nil)

	if _, err := engine.ComputeScope(nil, OpReadAttendance); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for nil account, got %v", err)
	}

	// A center account that never finished profile linking has the role but
	// no center to pin; denying is safer than granting center-wide reach.
	unlinked := &domain.Account{ID: "acc-x", Role: domain.RoleCenter, Active: true}
	if _, err := engine.ComputeScope(unlinked, OpMarkAttendance); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for unlinked center account, got %v", err)
	}

	unknown := &domain.Account{ID: "acc-y", Role: domain.Role("auditor"), Active: true}
	if _, err := engine.ComputeScope(unknown, OpReadAttendance); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for unknown role, got %v", err)
	}
}

func TestScopeNarrow(t *testing.T) {
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	submitted := domain.AttendanceFilter{
		Date:     &day,
		Subject:  &domain.SubjectRef{Kind: domain.KindStudent, ID: "stu-other"},
		CenterID: "ctr-other",
	}

	// ScopeAll passes the filter through untouched.
	got := (Scope{Kind: ScopeAll}).Narrow(submitted)
	if got != submitted {
		t.Fatalf("ScopeAll must not alter the filter, got %+v", got)
	}

	// ScopeCenter overwrites the center, keeps everything else.
	got = (Scope{Kind: ScopeCenter, CenterID: "ctr-1"}).Narrow(submitted)
	if got.CenterID != "ctr-1" {
		t.Fatalf("ScopeCenter must pin the center, got %q", got.CenterID)
	}
	if got.Date == nil || !got.Date.Equal(day) {
		t.Fatalf("ScopeCenter must keep the date filter")
	}

	// ScopeSelf overwrites the subject and drops any center filter so a
	// forged CenterID cannot hide the caller's own records.
	self := &domain.SubjectRef{Kind: domain.KindStudent, ID: "stu-1"}
	got = (Scope{Kind: ScopeSelf, Subject: self}).Narrow(submitted)
	if got.Subject != self {
		t.Fatalf("ScopeSelf must replace the subject, got %+v", got.Subject)
	}
	if got.CenterID != "" {
		t.Fatalf("ScopeSelf must clear the center filter, got %q", got.CenterID)
	}
}
