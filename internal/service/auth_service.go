package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/studymarket/backend/internal/logger"
	"github.com/studymarket/backend/internal/models"
	"github.com/studymarket/backend/internal/pkg/apperror"
	"github.com/studymarket/backend/internal/repository"
	"github.com/studymarket/backend/internal/validation"
)

// Комиссия партнёра по умолчанию, процент от цены завершённого заказа.
const defaultPartnerCommissionRate = 10.0

// Роли, доступные при самостоятельной регистрации. Арбитров и администраторов
// заводят вручную.
var selfRegisterRoles = map[string]struct{}{
	models.RoleClient:  {},
	models.RoleExpert:  {},
	models.RolePartner: {},
}

// AuthRepository описывает зависимости AuthService от слоя хранилища.
type AuthRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByReferralCode(ctx context.Context, code string) (*models.User, error)
}

// BonusRecorder начисляет партнёру бонус за регистрацию реферала.
type BonusRecorder interface {
	RecordRegistrationBonus(ctx context.Context, partnerID, referralID uuid.UUID) error
}

// AuthService инкапсулирует бизнес-логику регистрации и аутентификации.
type AuthService struct {
	repo         AuthRepository
	tokenManager *TokenManager
	bonuses      BonusRecorder
}

// RegisterInput содержит данные пользователя при регистрации.
type RegisterInput struct {
	Email        string
	Username     string
	Password     string
	Role         string
	ReferralCode *string
}

// AuthResult возвращает итог регистрации или авторизации.
type AuthResult struct {
	User  *models.User
	Token string
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(repo AuthRepository, tokenManager *TokenManager, bonuses BonusRecorder) *AuthService {
	return &AuthService{
		repo:         repo,
		tokenManager: tokenManager,
		bonuses:      bonuses,
	}
}

// Register создаёт нового пользователя. Если передан реферальный код,
// пользователь привязывается к партнёру навсегда, а партнёру начисляется
// бонус за регистрацию.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, apperror.NewValidation("%v", err)
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, apperror.NewValidation("%v", err)
	}
	if err := validation.ValidateLength("имя пользователя", in.Username,
		validation.MinUsernameLength, validation.MaxUsernameLength); err != nil {
		return nil, apperror.NewValidation("%v", err)
	}
	if _, ok := selfRegisterRoles[in.Role]; !ok {
		return nil, apperror.NewValidation("недопустимая роль: %s", in.Role)
	}

	var partnerID *uuid.UUID
	if in.ReferralCode != nil && *in.ReferralCode != "" {
		partner, err := s.repo.GetByReferralCode(ctx, strings.ToUpper(strings.TrimSpace(*in.ReferralCode)))
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.NewValidation("реферальный код не найден")
		}
		if err != nil {
			return nil, err
		}
		if partner.Role != models.RolePartner {
			return nil, apperror.NewValidation("реферальный код не найден")
		}
		partnerID = &partner.ID
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	commissionRate := 0.0
	if in.Role == models.RolePartner {
		commissionRate = defaultPartnerCommissionRate
	}

	user := &models.User{
		Email:          strings.ToLower(strings.TrimSpace(in.Email)),
		Username:       in.Username,
		PasswordHash:   string(passHash),
		Role:           in.Role,
		PartnerID:      partnerID,
		CommissionRate: commissionRate,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperror.NewConflict("email уже зарегистрирован")
		}
		return nil, err
	}

	// Бонус начисляется после создания пользователя. Сбой начисления не
	// откатывает регистрацию.
	if partnerID != nil && s.bonuses != nil {
		if err := s.bonuses.RecordRegistrationBonus(ctx, *partnerID, user.ID); err != nil {
			logger.Log.WithError(err).WithField("partner_id", partnerID).
				Error("не удалось начислить бонус за регистрацию")
		}
	}

	token, err := s.tokenManager.Generate(user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Token: token}, nil
}

// Login проверяет учётные данные и выдаёт токен.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "неверный email или пароль")
	}
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "учётная запись деактивирована")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "неверный email или пароль")
	}

	token, err := s.tokenManager.Generate(user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Token: token}, nil
}

// Me возвращает профиль текущего пользователя.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperror.ErrUserNotFound
	}
	return user, err
}
