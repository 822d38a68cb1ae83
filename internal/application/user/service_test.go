package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xbrain-api/internal/domain"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockWalletStore struct{ mock.Mock }

func (m *mockWalletStore) GetByUser(ctx context.Context, userID string) (*domain.Wallet, error) {
	args := m.Called(ctx, userID)
	if w, _ := args.Get(0).(*domain.Wallet); w != nil {
		return w, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockJoinStore struct{ mock.Mock }

func (m *mockJoinStore) ListByUser(ctx context.Context, userID string) ([]domain.UserSpecialization, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.UserSpecialization), args.Error(1)
}

type mockSpecStore struct{ mock.Mock }

func (m *mockSpecStore) BatchGet(ctx context.Context, ids []string) ([]domain.Specialization, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]domain.Specialization), args.Error(1)
}

type mockCertStore struct{ mock.Mock }

func (m *mockCertStore) Put(ctx context.Context, c *domain.Certificate) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCertStore) ListByUser(ctx context.Context, userID string) ([]domain.Certificate, error) {
	args := m.Called(ctx, userID)
	if c, _ := args.Get(0).([]domain.Certificate); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

type fakeImages struct {
	url string
	err error
}

func (f *fakeImages) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.url + key, nil
}

type fixture struct {
	users   *mockUserStore
	wallets *mockWalletStore
	joins   *mockJoinStore
	specs   *mockSpecStore
	certs   *mockCertStore
	images  *fakeImages
	svc     Service
}

func newFixture() *fixture {
	f := &fixture{
		users:   &mockUserStore{},
		wallets: &mockWalletStore{},
		joins:   &mockJoinStore{},
		specs:   &mockSpecStore{},
		certs:   &mockCertStore{},
		images:  &fakeImages{url: "https://cdn.example/"},
	}
	f.svc = NewService(ServiceDeps{
		UserRepo:        f.users,
		WalletRepo:      f.wallets,
		JoinRepo:        f.joins,
		SpecRepo:        f.specs,
		CertificateRepo: f.certs,
		ImageStore:      f.images,
	})
	return f
}

// --- Profile ---

func TestProfile_AggregatesAllSections(t *testing.T) {
	f := newFixture()
	f.users.On("Get", mock.Anything, "u1").
		Return(&domain.User{UserID: "u1", ProfileImageKey: "profile_images/u1.jpg"}, nil)
	f.wallets.On("GetByUser", mock.Anything, "u1").
		Return(&domain.Wallet{WalletID: "w1", UserID: "u1", Balance: 150}, nil)
	f.joins.On("ListByUser", mock.Anything, "u1").
		Return([]domain.UserSpecialization{{UserID: "u1", SpecializationID: "s1"}}, nil)
	f.specs.On("BatchGet", mock.Anything, []string{"s1"}).
		Return([]domain.Specialization{{SpecializationID: "s1", Name: "Cardiology"}}, nil)

	p, err := f.svc.Profile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(150), p.Wallet.Balance)
	require.Len(t, p.Specializations, 1)
	assert.Equal(t, "https://cdn.example/profile_images/u1.jpg", p.ProfileImageURL)
}

func TestProfile_NoImageKeyMeansNoURL(t *testing.T) {
	f := newFixture()
	f.users.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)
	f.wallets.On("GetByUser", mock.Anything, "u1").
		Return(&domain.Wallet{WalletID: "w1", UserID: "u1"}, nil)
	f.joins.On("ListByUser", mock.Anything, "u1").Return([]domain.UserSpecialization{}, nil)
	f.specs.On("BatchGet", mock.Anything, []string{}).Return([]domain.Specialization{}, nil)

	p, err := f.svc.Profile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, p.ProfileImageURL)
}

func TestProfile_PresignFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.images.err = errors.New("s3 down")
	f.users.On("Get", mock.Anything, "u1").
		Return(&domain.User{UserID: "u1", ProfileImageKey: "profile_images/u1.jpg"}, nil)
	f.wallets.On("GetByUser", mock.Anything, "u1").
		Return(&domain.Wallet{WalletID: "w1", UserID: "u1"}, nil)
	f.joins.On("ListByUser", mock.Anything, "u1").Return([]domain.UserSpecialization{}, nil)
	f.specs.On("BatchGet", mock.Anything, []string{}).Return([]domain.Specialization{}, nil)

	p, err := f.svc.Profile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, p.ProfileImageURL)
}

func TestProfile_UnknownUser(t *testing.T) {
	f := newFixture()
	f.users.On("Get", mock.Anything, "gone").Return(nil, domain.ErrNotFound)

	_, err := f.svc.Profile(context.Background(), "gone")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// --- certificates ---

func TestAddCertificate_ParsesIssueDate(t *testing.T) {
	f := newFixture()
	var stored *domain.Certificate
	f.certs.On("Put", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.Certificate) }).
		Return(nil)

	cert, err := f.svc.AddCertificate(context.Background(), "u1", &domain.CreateCertificateRequest{
		Title:          "AWS SAA",
		Issuer:         "Amazon",
		IssueDate:      "2025-06-01",
		CertificateURL: "https://cert.example/c1",
	})
	require.NoError(t, err)
	assert.Equal(t, stored, cert)
	assert.Equal(t, "u1", cert.UserID)
	assert.NotEmpty(t, cert.CertificateID)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), cert.IssueDate)
}

func TestAddCertificate_RejectsFutureIssueDate(t *testing.T) {
	f := newFixture()

	future := time.Now().AddDate(1, 0, 0).Format("2006-01-02")
	_, err := f.svc.AddCertificate(context.Background(), "u1", &domain.CreateCertificateRequest{
		Title:          "AWS SAA",
		Issuer:         "Amazon",
		IssueDate:      future,
		CertificateURL: "https://cert.example/c1",
	})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	f.certs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestAddCertificate_ValidationFailure(t *testing.T) {
	f := newFixture()

	_, err := f.svc.AddCertificate(context.Background(), "u1", &domain.CreateCertificateRequest{
		Title: "missing everything else",
	})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestListCertificates_NilBecomesEmptySlice(t *testing.T) {
	f := newFixture()
	f.certs.On("ListByUser", mock.Anything, "u1").Return(nil, nil)

	certs, err := f.svc.ListCertificates(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, certs)
	assert.Empty(t, certs)
}
