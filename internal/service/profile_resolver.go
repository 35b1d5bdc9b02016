package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/centerattend/internal/domain"
	"github.com/yourorg/centerattend/internal/infrastructure/redis"
	"github.com/yourorg/centerattend/pkg/cache"
)

// ResolvedProfile is the variant returned by Resolve. Exactly one of the
// pointers is set, matching Kind.
type ResolvedProfile struct {
	Kind       domain.ProfileKind `json:"kind"`
	Center     *domain.Center     `json:"center,omitempty"`
	Instructor *domain.Instructor `json:"instructor,omitempty"`
	Student    *domain.Student    `json:"student,omitempty"`
}

// ResolvedSubject is the internal identity behind a human-facing external
// ID, as needed by the attendance recorder.
type ResolvedSubject struct {
	Ref      domain.SubjectRef `json:"ref"`
	CenterID string            `json:"centerId"`
	Name     string            `json:"name"`
}

const subjectCacheTTL = 5 * time.Minute

// ProfileResolver binds accounts to profiles and resolves discriminated
// profile references. External-ID lookup is the hot path for bulk
// ingestion, so resolutions are cached (in-process first, then redis); the
// cache is an optimization only and never the source of truth.
type ProfileResolver struct {
	accounts    domain.AccountRepository
	centers     domain.CenterRepository
	instructors domain.InstructorRepository
	students    domain.StudentRepository
	local       *cache.Cache
	redis       *redis.Client
	logger      *slog.Logger
}

// NewProfileResolver creates a new profile resolver. The redis client may be
// nil; lookups then fall through to the store after the in-process cache.
func NewProfileResolver(
	accounts domain.AccountRepository,
	centers domain.CenterRepository,
	instructors domain.InstructorRepository,
	students domain.StudentRepository,
	redisClient *redis.Client,
	logger *slog.Logger,
) *ProfileResolver {
	if logger == nil {
		logger = slog.Default()
	}

	return &ProfileResolver{
		accounts:    accounts,
		centers:     centers,
		instructors: instructors,
		students:    students,
		local:       cache.New(),
		redis:       redisClient,
		logger:      logger,
	}
}

// Resolve dispatches on the reference kind and loads the matching profile
// variant. A dangling reference yields a NotFoundError.
func (r *ProfileResolver) Resolve(ref domain.ProfileRef) (*ResolvedProfile, error) {
	switch ref.Kind {
	case domain.KindCenter:
		center, err := r.centers.GetByID(ref.ID)
		if err != nil {
			return nil, err
		}
		return &ResolvedProfile{Kind: ref.Kind, Center: center}, nil

	case domain.KindInstructor:
		instructor, err := r.instructors.GetByID(ref.ID)
		if err != nil {
			return nil, err
		}
		return &ResolvedProfile{Kind: ref.Kind, Instructor: instructor}, nil

	case domain.KindStudent:
		student, err := r.students.GetByID(ref.ID)
		if err != nil {
			return nil, err
		}
		return &ResolvedProfile{Kind: ref.Kind, Student: student}, nil

	default:
		return nil, &domain.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown profile kind %q", ref.Kind)}
	}
}

// Link binds an account to a profile. An account holds at most one profile,
// and a profile bound to a different account is rejected with a
// ConflictError (enforced by the store's unique constraint, double-checked
// here for a readable error).
func (r *ProfileResolver) Link(accountID string, ref domain.ProfileRef) error {
	account, err := r.accounts.GetByID(accountID)
	if err != nil {
		return err
	}
	if account.Profile != nil && (account.Profile.Kind != ref.Kind || account.Profile.ID != ref.ID) {
		return &domain.ConflictError{Resource: "account", Detail: "account is already linked to a profile"}
	}

	if _, err := r.Resolve(ref); err != nil {
		return err
	}

	if existing, err := r.accounts.GetByProfile(ref); err == nil && existing.ID != accountID {
		return &domain.ConflictError{
			Resource: "profile",
			Detail:   fmt.Sprintf("%s %s is already linked to another account", ref.Kind, ref.ID),
		}
	}

	return r.accounts.SetProfile(accountID, ref)
}

// FindByExternalID resolves a human-facing external ID to internal identity.
// The NotFoundError echoes the external ID verbatim because bulk callers
// surface its text per record.
func (r *ProfileResolver) FindByExternalID(ctx context.Context, kind domain.ProfileKind, externalID string) (*ResolvedSubject, error) {
	key := fmt.Sprintf("subject:%s:%s", kind, externalID)

	if cached, ok := r.local.Get(key); ok {
		return cached.(*ResolvedSubject), nil
	}
	if r.redis != nil {
		if data, err := r.redis.Get(ctx, key); err == nil {
			subject := &ResolvedSubject{}
			if err := json.Unmarshal([]byte(data), subject); err == nil {
				r.local.Set(key, subject, subjectCacheTTL)
				return subject, nil
			}
		}
	}

	subject, err := r.lookupExternalID(kind, externalID)
	if err != nil {
		return nil, err
	}

	r.local.Set(key, subject, subjectCacheTTL)
	if r.redis != nil {
		if data, err := json.Marshal(subject); err == nil {
			if err := r.redis.Set(ctx, key, string(data), subjectCacheTTL); err != nil {
				r.logger.Debug("subject cache write failed", slog.String("key", key), slog.String("error", err.Error()))
			}
		}
	}

	return subject, nil
}

func (r *ProfileResolver) lookupExternalID(kind domain.ProfileKind, externalID string) (*ResolvedSubject, error) {
	switch kind {
	case domain.KindStudent:
		student, err := r.students.GetByExternalID(externalID)
		if err != nil {
			return nil, err
		}
		return &ResolvedSubject{
			Ref:      domain.SubjectRef{Kind: domain.KindStudent, ID: student.ID},
			CenterID: student.CenterID,
			Name:     student.Name,
		}, nil

	case domain.KindInstructor:
		instructor, err := r.instructors.GetByExternalID(externalID)
		if err != nil {
			return nil, err
		}
		return &ResolvedSubject{
			Ref:      domain.SubjectRef{Kind: domain.KindInstructor, ID: instructor.ID},
			CenterID: instructor.CenterID,
			Name:     instructor.Name,
		}, nil

	default:
		return nil, &domain.ValidationError{Field: "kind", Message: fmt.Sprintf("attendance subjects must be students or instructors, got %q", kind)}
	}
}

// InvalidateExternalID drops a cached resolution, for use after profile
// updates or deletions.
func (r *ProfileResolver) InvalidateExternalID(ctx context.Context, kind domain.ProfileKind, externalID string) {
	key := fmt.Sprintf("subject:%s:%s", kind, externalID)
	r.local.Delete(key)
	if r.redis != nil {
		if err := r.redis.Delete(ctx, key); err != nil {
			r.logger.Debug("subject cache invalidation failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
}
