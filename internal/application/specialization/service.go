package specialization

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xbrain-api/internal/domain"
)

// InvalidIDsError reports every unknown specialization id from a replace
// call at once instead of failing on the first.
type InvalidIDsError struct {
	IDs []string
}

func (e *InvalidIDsError) Error() string {
	return fmt.Sprintf("invalid specialization ids: %s", strings.Join(e.IDs, ", "))
}

// UserSpecializations is the user's current assignment set plus the
// completion marker (nil until the form is first submitted or skipped).
type UserSpecializations struct {
	Specializations []domain.Specialization `json:"specializations"`
	CompletedAt     *time.Time              `json:"specialization_form_completed_at"`
}

type Service interface {
	List(ctx context.Context) ([]domain.Specialization, error)
	GetForUser(ctx context.Context, userID string) (*UserSpecializations, error)
	// Replace swaps the user's full assignment set. An empty id list
	// clears all rows; the completion marker is stamped either way.
	Replace(ctx context.Context, userID string, ids []string) (*UserSpecializations, error)
	// Skip stamps the completion marker without touching assignments.
	// Requires the caller's explicit affirmation. Not sticky: a later
	// Replace behaves normally.
	Skip(ctx context.Context, userID string, confirmed bool) error
}

type specializationStore interface {
	Scan(ctx context.Context) ([]domain.Specialization, error)
	BatchGet(ctx context.Context, ids []string) ([]domain.Specialization, error)
}

type joinStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.UserSpecialization, error)
	ReplaceForUser(ctx context.Context, userID string, ids []string, completedAt time.Time) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type service struct {
	specs specializationStore
	joins joinStore
	users userStore
}

func NewService(specs specializationStore, joins joinStore, users userStore) Service {
	return &service{specs: specs, joins: joins, users: users}
}

func (s *service) List(ctx context.Context) ([]domain.Specialization, error) {
	specs, err := s.specs.Scan(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs, nil
}

func (s *service) GetForUser(ctx context.Context, userID string) (*UserSpecializations, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.joins.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.SpecializationID)
	}
	specs, err := s.specs.BatchGet(ctx, ids)
	if err != nil {
		return nil, err
	}
	if specs == nil {
		specs = []domain.Specialization{}
	}
	return &UserSpecializations{
		Specializations: specs,
		CompletedAt:     u.SpecializationFormCompletedAt,
	}, nil
}

func (s *service) Replace(ctx context.Context, userID string, ids []string) (*UserSpecializations, error) {
	// Dedup before validating so a repeated id is neither an error nor a
	// double insert.
	ids = dedupe(ids)

	if len(ids) > 0 {
		found, err := s.specs.BatchGet(ctx, ids)
		if err != nil {
			return nil, err
		}
		known := make(map[string]bool, len(found))
		for _, sp := range found {
			known[sp.SpecializationID] = true
		}
		var invalid []string
		for _, id := range ids {
			if !known[id] {
				invalid = append(invalid, id)
			}
		}
		if len(invalid) > 0 {
			return nil, &InvalidIDsError{IDs: invalid}
		}
	}

	if err := s.joins.ReplaceForUser(ctx, userID, ids, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.GetForUser(ctx, userID)
}

func (s *service) Skip(ctx context.Context, userID string, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("skip must be explicitly confirmed: %w", domain.ErrBadRequest)
	}
	return s.users.Update(ctx, userID, map[string]interface{}{
		domain.AttrSpecializationFormCompletedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
