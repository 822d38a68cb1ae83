package http

import (
	"context"
	"time"

	"github.com/xbrain-api/internal/domain"
)

// UserRepository is the minimal interface the router requires from a user store.
type UserRepository interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	// CreateWithWallet persists the user and its zero-balance wallet in one
	// transaction.
	CreateWithWallet(ctx context.Context, u *domain.User, w *domain.Wallet) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

// WalletRepository is the minimal interface the router requires from a wallet store.
type WalletRepository interface {
	GetByUser(ctx context.Context, userID string) (*domain.Wallet, error)
}

// SpecializationRepository is the minimal interface the router requires from
// the specialization catalog.
type SpecializationRepository interface {
	Scan(ctx context.Context) ([]domain.Specialization, error)
	BatchGet(ctx context.Context, ids []string) ([]domain.Specialization, error)
}

// UserSpecializationRepository is the minimal interface the router requires
// from the user<->specialization join store.
type UserSpecializationRepository interface {
	ListByUser(ctx context.Context, userID string) ([]domain.UserSpecialization, error)
	ReplaceForUser(ctx context.Context, userID string, ids []string, completedAt time.Time) error
}

// CertificateRepository is the minimal interface the router requires from a
// certificate store.
type CertificateRepository interface {
	Put(ctx context.Context, c *domain.Certificate) error
	ListByUser(ctx context.Context, userID string) ([]domain.Certificate, error)
}

// ObjectStore is the minimal interface the router requires from the
// profile-image storage backend.
type ObjectStore interface {
	UploadBase64(ctx context.Context, key, b64Data string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}
