package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yourorg/centerattend/internal/domain"
	"github.com/yourorg/centerattend/internal/security"
)

type attendanceFixture struct {
	svc         *AttendanceService
	records     *memAttendanceRepo
	centers     *memCenterRepo
	students    *memStudentRepo
	instructors *memInstructorRepo

	admin         *domain.Account
	centerAccount *domain.Account
	studentAcct   *domain.Account

	center  *domain.Center
	student *domain.Student
}

func newAttendanceFixture(t *testing.T) *attendanceFixture {
	t.Helper()

	accounts := newMemAccountRepo()
	centers := newMemCenterRepo()
	instructors := newMemInstructorRepo()
	students := newMemStudentRepo()
	records := newMemAttendanceRepo()

	center := &domain.Center{Code: "KDY-01", Name: "Kandy Center"}
	centers.Create(center)
	student := &domain.Student{ExternalID: "S-001", Name: "Kamala", AgeOrGrade: "Grade 10", Gender: domain.GenderFemale, CenterID: center.ID}
	students.Create(student)
	instructors.Create(&domain.Instructor{ExternalID: "E-24-001", Name: "Nimal", Email: "nimal@eng.pdn.ac.lk", CenterID: center.ID})

	admin := &domain.Account{Username: "admin", Role: domain.RoleAdmin, Active: true}
	accounts.Create(admin)
	centerAccount := &domain.Account{
		Username: "kdy-01",
		Role:     domain.RoleCenter,
		Profile:  &domain.ProfileRef{Kind: domain.KindCenter, ID: center.ID},
		Active:   true,
	}
	accounts.Create(centerAccount)
	studentAcct := &domain.Account{
		Username: "S-001",
		Role:     domain.RoleStudent,
		Profile:  &domain.ProfileRef{Kind: domain.KindStudent, ID: student.ID},
		Active:   true,
	}
	accounts.Create(studentAcct)

	resolver := NewProfileResolver(accounts, centers, instructors, students, nil, nil)
	svc := NewAttendanceService(records, centers, resolver, security.NewPolicyEngine(nil), nil, nil)

	return &attendanceFixture{
		svc:           svc,
		records:       records,
		centers:       centers,
		students:      students,
		instructors:   instructors,
		admin:         admin,
		centerAccount: centerAccount,
		studentAcct:   studentAcct,
		center:        center,
		student:       student,
	}
}

func date(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		t.Fatalf("bad date %q: %v", raw, err)
	}
	return d
}

func TestMarkOneAndDuplicate(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()

	in := MarkInput{
		Date:              date(t, "2025-03-01"),
		Kind:              domain.KindStudent,
		SubjectExternalID: "S-001",
		Status:            domain.StatusPresent,
	}

	rec, err := f.svc.MarkOne(ctx, f.centerAccount, in)
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if rec.CenterID != f.center.ID {
		t.Fatalf("expected center inherited from the student, got %q", rec.CenterID)
	}
	if rec.MarkedBy != f.centerAccount.ID {
		t.Fatalf("expected recorder identity, got %q", rec.MarkedBy)
	}

	// Same day, same subject: rejected even when addressed to a different
	// center, and the first record stays untouched.
	other := &domain.Center{Code: "CMB-01", Name: "Colombo Center"}
	f.centers.Create(other)
	in.Status = domain.StatusLate
	in.CenterCode = "CMB-01"
	_, err = f.svc.MarkOne(ctx, f.admin, in)
	if !domain.IsDuplicate(err) {
		t.Fatalf("expected DuplicateError, got %v", err)
	}
	stored, _ := f.records.GetByID(rec.ID)
	if stored.Status != domain.StatusPresent {
		t.Fatalf("duplicate mark must not mutate, status is %q", stored.Status)
	}

	// Next day is a fresh record.
	in.Date = date(t, "2025-03-02")
	in.Status = domain.StatusPresent
	in.CenterCode = ""
	if _, err := f.svc.MarkOne(ctx, f.centerAccount, in); err != nil {
		t.Fatalf("next-day mark failed: %v", err)
	}
}

func TestMarkOneUnknownSubject(t *testing.T) {
	f := newAttendanceFixture(t)

	_, err := f.svc.MarkOne(context.Background(), f.admin, MarkInput{
		Date:              date(t, "2025-03-01"),
		Kind:              domain.KindStudent,
		SubjectExternalID: "S-999",
		Status:            domain.StatusPresent,
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if !strings.Contains(err.Error(), "S-999") {
		t.Fatalf("error must echo the external ID, got %q", err.Error())
	}
}

func TestMarkOneForbiddenRoles(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()

	in := MarkInput{
		Date:              date(t, "2025-03-01"),
		Kind:              domain.KindStudent,
		SubjectExternalID: "S-001",
		Status:            domain.StatusPresent,
	}

	// Students cannot mark attendance at all.
	if _, err := f.svc.MarkOne(ctx, f.studentAcct, in); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for student, got %v", err)
	}

	// Center accounts cannot mark outside their own center.
	other := &domain.Center{Code: "CMB-01", Name: "Colombo Center"}
	f.centers.Create(other)
	f.students.Create(&domain.Student{ExternalID: "S-100", Name: "Other", CenterID: other.ID})

	in.SubjectExternalID = "S-100"
	if _, err := f.svc.MarkOne(ctx, f.centerAccount, in); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for cross-center mark, got %v", err)
	}
}

func TestMarkBulkPartialFailure(t *testing.T) {
	f := newAttendanceFixture(t)
	f.students.Create(&domain.Student{ExternalID: "S-002", Name: "B", CenterID: f.center.ID})

	records := []BulkRecord{
		{Date: "2025-03-01", SubjectExternalID: "S-001", Status: "present"},
		{Date: "2025-03-01", SubjectExternalID: "S-404", Status: "present"},
		{Date: "2025-03-01", SubjectExternalID: "S-002", Status: "late"},
	}

	result, err := f.svc.MarkBulk(context.Background(), f.centerAccount, domain.KindStudent, records)
	if err != nil {
		t.Fatalf("bulk must not fail as a whole: %v", err)
	}
	if len(result.Succeeded) != 2 {
		t.Fatalf("expected 2 created, got %d", len(result.Succeeded))
	}
	if len(result.Failed) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(result.Failed))
	}
	failure := result.Failed[0]
	if failure.Record.SubjectExternalID != "S-404" {
		t.Fatalf("failure must echo the submitted record, got %+v", failure.Record)
	}
	if !strings.Contains(failure.Reason, "S-404") {
		t.Fatalf("reason must name the missing external ID, got %q", failure.Reason)
	}

	// Resubmitting the whole batch: the two already-marked rows fail as
	// duplicates, nothing is mutated.
	again, err := f.svc.MarkBulk(context.Background(), f.centerAccount, domain.KindStudent, records)
	if err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}
	if len(again.Succeeded) != 0 || len(again.Failed) != 3 {
		t.Fatalf("expected 0 created and 3 failed on resubmit, got %d/%d", len(again.Succeeded), len(again.Failed))
	}
}

func TestMarkBulkKeepsInputOrder(t *testing.T) {
	f := newAttendanceFixture(t)

	records := []BulkRecord{
		{Date: "not-a-date", SubjectExternalID: "S-001"},
		{Date: "2025-03-01", SubjectExternalID: "S-001"},
		{Date: "2025-03-01", SubjectExternalID: "S-001"}, // duplicate of the row above
	}

	result, err := f.svc.MarkBulk(context.Background(), f.admin, domain.KindStudent, records)
	if err != nil {
		t.Fatalf("bulk failed: %v", err)
	}
	if len(result.Failed) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(result.Failed))
	}
	if result.Failed[0].Record.Date != "not-a-date" {
		t.Fatalf("failures must come back in input order, got %+v", result.Failed[0].Record)
	}
}

func TestListForScopeNarrowing(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()

	other := &domain.Center{Code: "CMB-01", Name: "Colombo Center"}
	f.centers.Create(other)
	f.students.Create(&domain.Student{ExternalID: "S-100", Name: "Other", CenterID: other.ID})

	day := date(t, "2025-03-01")
	for _, ext := range []string{"S-001", "S-100"} {
		if _, err := f.svc.MarkOne(ctx, f.admin, MarkInput{
			Date:              day,
			Kind:              domain.KindStudent,
			SubjectExternalID: ext,
			Status:            domain.StatusPresent,
		}); err != nil {
			t.Fatalf("seed mark failed: %v", err)
		}
	}

	// Admin sees everything.
	all, err := f.svc.ListFor(f.admin, domain.AttendanceFilter{})
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 records for admin, got %d (err %v)", len(all), err)
	}

	// A center account asking for another center's records still only gets
	// its own; the scope overwrites the filter.
	mine, err := f.svc.ListFor(f.centerAccount, domain.AttendanceFilter{CenterID: other.ID})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(mine) != 1 || mine[0].CenterID != f.center.ID {
		t.Fatalf("expected only own-center records, got %d", len(mine))
	}

	// A student only ever sees itself, whatever the filter says.
	own, err := f.svc.ListFor(f.studentAcct, domain.AttendanceFilter{CenterID: other.ID})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(own) != 1 || own[0].Subject.ID != f.student.ID {
		t.Fatalf("expected only the student's own record, got %d", len(own))
	}
}

func TestUpdateStatus(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()

	rec, err := f.svc.MarkOne(ctx, f.admin, MarkInput{
		Date:              date(t, "2025-03-01"),
		Kind:              domain.KindStudent,
		SubjectExternalID: "S-001",
		Status:            domain.StatusAbsent,
	})
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	updated, err := f.svc.UpdateStatus(f.centerAccount, rec.ID, domain.StatusLate, "arrived 09:40")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Status != domain.StatusLate {
		t.Fatalf("expected late, got %q", updated.Status)
	}

	if _, err := f.svc.UpdateStatus(f.studentAcct, rec.ID, domain.StatusPresent, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for student update, got %v", err)
	}
	if _, err := f.svc.UpdateStatus(f.admin, "no-such-id", domain.StatusPresent, ""); !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	var verr *domain.ValidationError
	if _, err := f.svc.UpdateStatus(f.admin, rec.ID, "vanished", ""); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for unknown status, got %v", err)
	}
}

func TestDeleteAdminOnly(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()

	rec, err := f.svc.MarkOne(ctx, f.admin, MarkInput{
		Date:              date(t, "2025-03-01"),
		Kind:              domain.KindStudent,
		SubjectExternalID: "S-001",
		Status:            domain.StatusPresent,
	})
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	if err := f.svc.Delete(f.centerAccount, rec.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for center delete, got %v", err)
	}
	if err := f.svc.Delete(f.admin, rec.ID); err != nil {
		t.Fatalf("admin delete failed: %v", err)
	}

	// The day is free again after deletion.
	if _, err := f.svc.MarkOne(ctx, f.admin, MarkInput{
		Date:              date(t, "2025-03-01"),
		Kind:              domain.KindStudent,
		SubjectExternalID: "S-001",
		Status:            domain.StatusPresent,
	}); err != nil {
		t.Fatalf("re-mark after delete failed: %v", err)
	}
}

func TestGetScoped(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()

	other := &domain.Center{Code: "CMB-01", Name: "Colombo Center"}
	f.centers.Create(other)
	f.students.Create(&domain.Student{ExternalID: "S-100", Name: "Other", CenterID: other.ID})

	rec, err := f.svc.MarkOne(ctx, f.admin, MarkInput{
		Date:              date(t, "2025-03-01"),
		Kind:              domain.KindStudent,
		SubjectExternalID: "S-100",
		Status:            domain.StatusPresent,
	})
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	if _, err := f.svc.Get(f.centerAccount, rec.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign-center get, got %v", err)
	}
	if _, err := f.svc.Get(f.studentAcct, rec.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign-subject get, got %v", err)
	}
	if _, err := f.svc.Get(f.admin, rec.ID); err != nil {
		t.Fatalf("admin get failed: %v", err)
	}
}
