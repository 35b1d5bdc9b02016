package service

import (
	"fmt"
	"time"

	"github.com/yourorg/centerattend/internal/domain"
)

type memAccountRepo struct {
	byID       map[string]*domain.Account
	byUsername map[string]*domain.Account
	createErr  error
	seq        int
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{byID: map[string]*domain.Account{}, byUsername: map[string]*domain.Account{}}
}

func (m *memAccountRepo) Create(a *domain.Account) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.byUsername[a.Username]; exists {
		return &domain.DuplicateError{Resource: "account", Key: a.Username}
	}
	for _, other := range m.byID {
		if a.Profile != nil && other.Profile != nil && *a.Profile == *other.Profile {
			return &domain.ConflictError{Resource: "profile", Detail: "already linked"}
		}
	}
	m.seq++
	if a.ID == "" {
		a.ID = fmt.Sprintf("acc-%d", m.seq)
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.byID[a.ID] = a
	m.byUsername[a.Username] = a
	return nil
}

func (m *memAccountRepo) GetByID(id string) (*domain.Account, error) {
	if a, ok := m.byID[id]; ok {
		return a, nil
	}
	return nil, &domain.NotFoundError{Resource: "account", Key: id}
}

func (m *memAccountRepo) GetByUsername(username string) (*domain.Account, error) {
	if a, ok := m.byUsername[username]; ok && a.Active {
		return a, nil
	}
	return nil, &domain.NotFoundError{Resource: "account", Key: username}
}

func (m *memAccountRepo) Update(a *domain.Account) error {
	if _, ok := m.byID[a.ID]; !ok {
		return &domain.NotFoundError{Resource: "account", Key: a.ID}
	}
	a.UpdatedAt = time.Now()
	m.byID[a.ID] = a
	m.byUsername[a.Username] = a
	return nil
}

func (m *memAccountRepo) SetProfile(accountID string, ref domain.ProfileRef) error {
	a, ok := m.byID[accountID]
	if !ok {
		return &domain.NotFoundError{Resource: "account", Key: accountID}
	}
	for _, other := range m.byID {
		if other.ID != accountID && other.Profile != nil && *other.Profile == ref {
			return &domain.ConflictError{Resource: "profile", Detail: "already linked"}
		}
	}
	a.Profile = &ref
	return nil
}

func (m *memAccountRepo) GetByProfile(ref domain.ProfileRef) (*domain.Account, error) {
	for _, a := range m.byID {
		if a.Profile != nil && *a.Profile == ref {
			return a, nil
		}
	}
	return nil, &domain.NotFoundError{Resource: "account", Key: ref.ID}
}

func (m *memAccountRepo) Deactivate(id string) error {
	a, ok := m.byID[id]
	if !ok {
		return &domain.NotFoundError{Resource: "account", Key: id}
	}
	a.Active = false
	return nil
}

func (m *memAccountRepo) List(role domain.Role) ([]*domain.Account, error) {
	out := []*domain.Account{}
	for _, a := range m.byID {
		if role == "" || a.Role == role {
			out = append(out, a)
		}
	}
	return out, nil
}

type memCenterRepo struct {
	byID   map[string]*domain.Center
	byCode map[string]*domain.Center
	seq    int
}

func newMemCenterRepo() *memCenterRepo {
	return &memCenterRepo{byID: map[string]*domain.Center{}, byCode: map[string]*domain.Center{}}
}

func (m *memCenterRepo) Create(c *domain.Center) error {
	if _, exists := m.byCode[c.Code]; exists {
		return &domain.DuplicateError{Resource: "center", Key: c.Code}
	}
	m.seq++
	if c.ID == "" {
		c.ID = fmt.Sprintf("ctr-%d", m.seq)
	}
	m.byID[c.ID] = c
	m.byCode[c.Code] = c
	return nil
}

func (m *memCenterRepo) GetByID(id string) (*domain.Center, error) {
	if c, ok := m.byID[id]; ok {
		return c, nil
	}
	return nil, &domain.NotFoundError{Resource: "center", Key: id}
}

func (m *memCenterRepo) GetByCode(code string) (*domain.Center, error) {
	if c, ok := m.byCode[code]; ok {
		return c, nil
	}
	return nil, &domain.NotFoundError{Resource: "center", Key: code}
}

func (m *memCenterRepo) Update(c *domain.Center) error {
	m.byID[c.ID] = c
	m.byCode[c.Code] = c
	return nil
}

func (m *memCenterRepo) Delete(id string) error {
	if c, ok := m.byID[id]; ok {
		delete(m.byCode, c.Code)
		delete(m.byID, id)
	}
	return nil
}

func (m *memCenterRepo) List() ([]*domain.Center, error) {
	out := []*domain.Center{}
	for _, c := range m.byID {
		out = append(out, c)
	}
	return out, nil
}

type memInstructorRepo struct {
	byID  map[string]*domain.Instructor
	byExt map[string]*domain.Instructor
	seq   int
}

func newMemInstructorRepo() *memInstructorRepo {
	return &memInstructorRepo{byID: map[string]*domain.Instructor{}, byExt: map[string]*domain.Instructor{}}
}

func (m *memInstructorRepo) Create(i *domain.Instructor) error {
	if _, exists := m.byExt[i.ExternalID]; exists {
		return &domain.DuplicateError{Resource: "instructor", Key: i.ExternalID}
	}
	m.seq++
	if i.ID == "" {
		i.ID = fmt.Sprintf("ins-%d", m.seq)
	}
	m.byID[i.ID] = i
	m.byExt[i.ExternalID] = i
	return nil
}

func (m *memInstructorRepo) GetByID(id string) (*domain.Instructor, error) {
	if i, ok := m.byID[id]; ok {
		return i, nil
	}
	return nil, &domain.NotFoundError{Resource: "instructor", Key: id}
}

func (m *memInstructorRepo) GetByExternalID(externalID string) (*domain.Instructor, error) {
	if i, ok := m.byExt[externalID]; ok {
		return i, nil
	}
	return nil, &domain.NotFoundError{Resource: "instructor", Key: externalID}
}

func (m *memInstructorRepo) Update(i *domain.Instructor) error {
	m.byID[i.ID] = i
	m.byExt[i.ExternalID] = i
	return nil
}

func (m *memInstructorRepo) Delete(id string) error {
	if i, ok := m.byID[id]; ok {
		delete(m.byExt, i.ExternalID)
		delete(m.byID, id)
	}
	return nil
}

func (m *memInstructorRepo) List(centerID string) ([]*domain.Instructor, error) {
	out := []*domain.Instructor{}
	for _, i := range m.byID {
		if centerID == "" || i.CenterID == centerID {
			out = append(out, i)
		}
	}
	return out, nil
}

type memStudentRepo struct {
	byID  map[string]*domain.Student
	byExt map[string]*domain.Student
	seq   int
}

func newMemStudentRepo() *memStudentRepo {
	return &memStudentRepo{byID: map[string]*domain.Student{}, byExt: map[string]*domain.Student{}}
}

func (m *memStudentRepo) Create(s *domain.Student) error {
	if _, exists := m.byExt[s.ExternalID]; exists {
		return &domain.DuplicateError{Resource: "student", Key: s.ExternalID}
	}
	m.seq++
	if s.ID == "" {
		s.ID = fmt.Sprintf("stu-%d", m.seq)
	}
	m.byID[s.ID] = s
	m.byExt[s.ExternalID] = s
	return nil
}

func (m *memStudentRepo) GetByID(id string) (*domain.Student, error) {
	if s, ok := m.byID[id]; ok {
		return s, nil
	}
	return nil, &domain.NotFoundError{Resource: "student", Key: id}
}

func (m *memStudentRepo) GetByExternalID(externalID string) (*domain.Student, error) {
	if s, ok := m.byExt[externalID]; ok {
		return s, nil
	}
	return nil, &domain.NotFoundError{Resource: "student", Key: externalID}
}

func (m *memStudentRepo) Update(s *domain.Student) error {
	m.byID[s.ID] = s
	m.byExt[s.ExternalID] = s
	return nil
}

func (m *memStudentRepo) Delete(id string) error {
	if s, ok := m.byID[id]; ok {
		delete(m.byExt, s.ExternalID)
		delete(m.byID, id)
	}
	return nil
}

func (m *memStudentRepo) List(centerID string) ([]*domain.Student, error) {
	out := []*domain.Student{}
	for _, s := range m.byID {
		if centerID == "" || s.CenterID == centerID {
			out = append(out, s)
		}
	}
	return out, nil
}

// memAttendanceRepo enforces the one-record-per-(date, subject) unique key
// the way the database does, so duplicate-path tests exercise the same
// DuplicateError the postgres repository maps from its unique index.
type memAttendanceRepo struct {
	byID  map[string]*domain.AttendanceRecord
	byKey map[string]*domain.AttendanceRecord
	seq   int
}

func newMemAttendanceRepo() *memAttendanceRepo {
	return &memAttendanceRepo{byID: map[string]*domain.AttendanceRecord{}, byKey: map[string]*domain.AttendanceRecord{}}
}

func attendanceKey(date time.Time, subject domain.SubjectRef) string {
	return fmt.Sprintf("%s|%s|%s", date.Format(time.DateOnly), subject.Kind, subject.ID)
}

func (m *memAttendanceRepo) Insert(rec *domain.AttendanceRecord) error {
	key := attendanceKey(rec.Date, rec.Subject)
	if _, exists := m.byKey[key]; exists {
		return &domain.DuplicateError{
			Resource: "attendance",
			Key:      fmt.Sprintf("%s %s on %s", rec.Subject.Kind, rec.Subject.ID, rec.Date.Format(time.DateOnly)),
		}
	}
	m.seq++
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("att-%d", m.seq)
	}
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	m.byID[rec.ID] = rec
	m.byKey[key] = rec
	return nil
}

func (m *memAttendanceRepo) GetByID(id string) (*domain.AttendanceRecord, error) {
	if rec, ok := m.byID[id]; ok {
		return rec, nil
	}
	return nil, &domain.NotFoundError{Resource: "attendance", Key: id}
}

func (m *memAttendanceRepo) Exists(date time.Time, subject domain.SubjectRef) (bool, error) {
	_, ok := m.byKey[attendanceKey(date, subject)]
	return ok, nil
}

func (m *memAttendanceRepo) List(filter domain.AttendanceFilter) ([]*domain.AttendanceRecord, error) {
	out := []*domain.AttendanceRecord{}
	for _, rec := range m.byID {
		if filter.Date != nil && !rec.Date.Equal(*filter.Date) {
			continue
		}
		if filter.Subject != nil && rec.Subject != *filter.Subject {
			continue
		}
		if filter.CenterID != "" && rec.CenterID != filter.CenterID {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *memAttendanceRepo) UpdateStatus(id string, status domain.AttendanceStatus, notes string) (*domain.AttendanceRecord, error) {
	rec, ok := m.byID[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "attendance", Key: id}
	}
	rec.Status = status
	rec.Notes = notes
	rec.UpdatedAt = time.Now()
	return rec, nil
}

func (m *memAttendanceRepo) Delete(id string) error {
	rec, ok := m.byID[id]
	if !ok {
		return &domain.NotFoundError{Resource: "attendance", Key: id}
	}
	delete(m.byKey, attendanceKey(rec.Date, rec.Subject))
	delete(m.byID, id)
	return nil
}

func (m *memAttendanceRepo) CountPresentByCenter(date time.Time) (map[string]int, error) {
	counts := map[string]int{}
	for _, rec := range m.byID {
		if rec.Date.Equal(date) && rec.Status == domain.StatusPresent {
			counts[rec.CenterID]++
		}
	}
	return counts, nil
}
