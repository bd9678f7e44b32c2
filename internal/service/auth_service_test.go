package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/studymarket/backend/internal/models"
	"github.com/studymarket/backend/internal/pkg/apperror"
	"github.com/studymarket/backend/internal/repository"
)

// mockAuthRepository хранит пользователей в памяти и воспроизводит
// уникальность email как в Postgres.
type mockAuthRepository struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*models.User
	byEmail map[string]*models.User
}

func newMockAuthRepository() *mockAuthRepository {
	return &mockAuthRepository{
		byID:    make(map[uuid.UUID]*models.User),
		byEmail: make(map[string]*models.User),
	}
}

func (m *mockAuthRepository) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byEmail[user.Email]; exists {
		return repository.ErrEmailTaken
	}
	user.ID = uuid.New()
	user.IsActive = true
	user.CreatedAt = time.Now()
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user
	return nil
}

func (m *mockAuthRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockAuthRepository) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockAuthRepository) GetByReferralCode(_ context.Context, code string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.byID {
		if user.ReferralCode != nil && *user.ReferralCode == code {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// mockBonusRecorder запоминает начисленные бонусы.
type mockBonusRecorder struct {
	calls []uuid.UUID
}

func (m *mockBonusRecorder) RecordRegistrationBonus(_ context.Context, partnerID, _ uuid.UUID) error {
	m.calls = append(m.calls, partnerID)
	return nil
}

func newAuthService(repo *mockAuthRepository, bonuses BonusRecorder) *AuthService {
	tokenManager := NewTokenManager("test-secret-key", time.Hour)
	return NewAuthService(repo, tokenManager, bonuses)
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	repo := newMockAuthRepository()
	svc := newAuthService(repo, nil)

	result, err := svc.Register(context.Background(), RegisterInput{
		Email:    "Ivan@Example.Com",
		Username: "ivan",
		Password: "secret123",
		Role:     models.RoleClient,
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "ivan@example.com", result.User.Email)
	assert.Equal(t, models.RoleClient, result.User.Role)
	assert.Equal(t, 0.0, result.User.CommissionRate)
	assert.NotEqual(t, "secret123", result.User.PasswordHash)

	login, err := svc.Login(context.Background(), "ivan@example.com", "secret123")
	assert.NoError(t, err)
	assert.Equal(t, result.User.ID, login.User.ID)

	_, err = svc.Login(context.Background(), "ivan@example.com", "wrong-password")
	appErr, ok := apperror.As(err)
	assert.True(t, ok)
	assert.Equal(t, apperror.ErrCodeUnauthorized, appErr.Code)
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	repo := newMockAuthRepository()
	svc := newAuthService(repo, nil)

	in := RegisterInput{
		Email:    "dup@example.com",
		Username: "first",
		Password: "secret123",
		Role:     models.RoleClient,
	}
	_, err := svc.Register(context.Background(), in)
	assert.NoError(t, err)

	in.Username = "second"
	_, err = svc.Register(context.Background(), in)
	assert.True(t, apperror.IsConflict(err))
}

func TestAuthService_RegisterRoleWhitelist(t *testing.T) {
	repo := newMockAuthRepository()
	svc := newAuthService(repo, nil)

	for _, role := range []string{models.RoleAdmin, models.RoleArbitrator, "superuser", ""} {
		_, err := svc.Register(context.Background(), RegisterInput{
			Email:    "user@example.com",
			Username: "user",
			Password: "secret123",
			Role:     role,
		})
		assert.True(t, apperror.IsValidation(err), "роль %q не должна регистрироваться", role)
	}
}

func TestAuthService_RegisterPartnerGetsCommissionRate(t *testing.T) {
	repo := newMockAuthRepository()
	svc := newAuthService(repo, nil)

	result, err := svc.Register(context.Background(), RegisterInput{
		Email:    "partner@example.com",
		Username: "partner",
		Password: "secret123",
		Role:     models.RolePartner,
	})
	assert.NoError(t, err)
	assert.Equal(t, defaultPartnerCommissionRate, result.User.CommissionRate)
}

func TestAuthService_RegisterWithReferralCode(t *testing.T) {
	repo := newMockAuthRepository()
	bonuses := &mockBonusRecorder{}
	svc := newAuthService(repo, bonuses)

	partner, err := svc.Register(context.Background(), RegisterInput{
		Email:    "partner@example.com",
		Username: "partner",
		Password: "secret123",
		Role:     models.RolePartner,
	})
	assert.NoError(t, err)

	code := "AB12CD34"
	partner.User.ReferralCode = &code

	t.Run("реферал привязывается к партнёру", func(t *testing.T) {
		ref := code
		result, err := svc.Register(context.Background(), RegisterInput{
			Email:        "referral@example.com",
			Username:     "referral",
			Password:     "secret123",
			Role:         models.RoleClient,
			ReferralCode: &ref,
		})
		assert.NoError(t, err)
		assert.NotNil(t, result.User.PartnerID)
		assert.Equal(t, partner.User.ID, *result.User.PartnerID)
		assert.Equal(t, []uuid.UUID{partner.User.ID}, bonuses.calls)
	})

	t.Run("код нормализуется по регистру", func(t *testing.T) {
		ref := strings.ToLower(code)
		result, err := svc.Register(context.Background(), RegisterInput{
			Email:        "referral2@example.com",
			Username:     "referral2",
			Password:     "secret123",
			Role:         models.RoleClient,
			ReferralCode: &ref,
		})
		assert.NoError(t, err)
		assert.Equal(t, partner.User.ID, *result.User.PartnerID)
	})

	t.Run("несуществующий код отклоняется", func(t *testing.T) {
		ref := "NOPE0000"
		_, err := svc.Register(context.Background(), RegisterInput{
			Email:        "referral3@example.com",
			Username:     "referral3",
			Password:     "secret123",
			Role:         models.RoleClient,
			ReferralCode: &ref,
		})
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("код не-партнёра отклоняется", func(t *testing.T) {
		client, err := svc.Register(context.Background(), RegisterInput{
			Email:    "plainclient@example.com",
			Username: "plainclient",
			Password: "secret123",
			Role:     models.RoleClient,
		})
		assert.NoError(t, err)
		clientCode := "ZZ99XX11"
		client.User.ReferralCode = &clientCode

		ref := clientCode
		_, err = svc.Register(context.Background(), RegisterInput{
			Email:        "referral4@example.com",
			Username:     "referral4",
			Password:     "secret123",
			Role:         models.RoleClient,
			ReferralCode: &ref,
		})
		assert.True(t, apperror.IsValidation(err))
	})
}

func TestAuthService_LoginInactiveUser(t *testing.T) {
	repo := newMockAuthRepository()
	svc := newAuthService(repo, nil)

	result, err := svc.Register(context.Background(), RegisterInput{
		Email:    "banned@example.com",
		Username: "banned",
		Password: "secret123",
		Role:     models.RoleExpert,
	})
	assert.NoError(t, err)

	result.User.IsActive = false

	_, err = svc.Login(context.Background(), "banned@example.com", "secret123")
	appErr, ok := apperror.As(err)
	assert.True(t, ok)
	assert.Equal(t, apperror.ErrCodeUnauthorized, appErr.Code)
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tokenManager := NewTokenManager("test-secret-key", time.Hour)
	user := &models.User{ID: uuid.New(), Role: models.RoleExpert}

	token, err := tokenManager.Generate(user)
	assert.NoError(t, err)

	userID, role, err := tokenManager.ParseAccess(token)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, userID)
	assert.Equal(t, models.RoleExpert, role)

	_, _, err = tokenManager.ParseAccess(token + "tampered")
	assert.Error(t, err)

	other := NewTokenManager("another-secret", time.Hour)
	_, _, err = other.ParseAccess(token)
	assert.Error(t, err)
}
