package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xbrain-api/internal/domain"
	"github.com/xbrain-api/internal/pkg/id"
	"github.com/xbrain-api/internal/pkg/validate"
)

const imageURLTTL = 15 * time.Minute

// Profile is the aggregated detail view of an account: the user record
// joined with its wallet, assigned specializations and a short-lived
// image URL. The user fields serialize inline, so clients read
// wallet.balance and specializations as properties of the user object.
type Profile struct {
	*domain.User
	Wallet          *domain.Wallet          `json:"wallet"`
	Specializations []domain.Specialization `json:"specializations"`
	ProfileImageURL string                  `json:"profile_image_url,omitempty"`
}

type Service interface {
	Profile(ctx context.Context, userID string) (*Profile, error)
	ListCertificates(ctx context.Context, userID string) ([]domain.Certificate, error)
	AddCertificate(ctx context.Context, userID string, req *domain.CreateCertificateRequest) (*domain.Certificate, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type walletStore interface {
	GetByUser(ctx context.Context, userID string) (*domain.Wallet, error)
}

type joinStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.UserSpecialization, error)
}

type specializationStore interface {
	BatchGet(ctx context.Context, ids []string) ([]domain.Specialization, error)
}

type certificateStore interface {
	Put(ctx context.Context, c *domain.Certificate) error
	ListByUser(ctx context.Context, userID string) ([]domain.Certificate, error)
}

type imageStore interface {
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type ServiceDeps struct {
	UserRepo        userStore
	WalletRepo      walletStore
	JoinRepo        joinStore
	SpecRepo        specializationStore
	CertificateRepo certificateStore
	ImageStore      imageStore
}

type service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) Service {
	return &service{deps: deps}
}

func (s *service) Profile(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.deps.UserRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	w, err := s.deps.WalletRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}

	rows, err := s.deps.JoinRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.SpecializationID)
	}
	specs, err := s.deps.SpecRepo.BatchGet(ctx, ids)
	if err != nil {
		return nil, err
	}
	if specs == nil {
		specs = []domain.Specialization{}
	}

	p := &Profile{User: u, Wallet: w, Specializations: specs}

	if u.ProfileImageKey != "" && s.deps.ImageStore != nil {
		url, uErr := s.deps.ImageStore.PresignedURL(ctx, u.ProfileImageKey, imageURLTTL)
		if uErr != nil {
			// A broken image link should not take the whole profile down.
			slog.Warn("presign profile image failed", "user_id", userID, "error", uErr)
		} else {
			p.ProfileImageURL = url
		}
	}

	return p, nil
}

func (s *service) ListCertificates(ctx context.Context, userID string) ([]domain.Certificate, error) {
	certs, err := s.deps.CertificateRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if certs == nil {
		certs = []domain.Certificate{}
	}
	return certs, nil
}

func (s *service) AddCertificate(ctx context.Context, userID string, req *domain.CreateCertificateRequest) (*domain.Certificate, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	issued, err := time.Parse("2006-01-02", req.IssueDate)
	if err != nil {
		return nil, fmt.Errorf("issue_date must be YYYY-MM-DD: %w", domain.ErrBadRequest)
	}
	if issued.After(time.Now()) {
		return nil, fmt.Errorf("issue_date cannot be in the future: %w", domain.ErrBadRequest)
	}

	cert := &domain.Certificate{
		CertificateID:  id.New(),
		UserID:         userID,
		Title:          req.Title,
		Issuer:         req.Issuer,
		IssueDate:      issued,
		CertificateURL: req.CertificateURL,
	}
	if err := s.deps.CertificateRepo.Put(ctx, cert); err != nil {
		return nil, err
	}
	return cert, nil
}
