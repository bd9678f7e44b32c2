package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studymarket/backend/internal/models"
	"github.com/studymarket/backend/internal/repository/common"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create регистрирует пользователя. Привязка к партнёру (partner_id)
// выставляется при создании и больше не меняется.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, username, password_hash, role, partner_id, commission_rate)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, is_active, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		user.Email, user.Username, user.PasswordHash, user.Role, user.PartnerID, user.CommissionRate,
	).Scan(&user.ID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return common.GetByID[models.User](ctx, r.db, "users", id, ErrUserNotFound)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return common.GetByField[models.User](ctx, r.db, "users", "email", email, ErrUserNotFound)
}

// GetByReferralCode находит партнёра по реферальному коду.
func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return common.GetByField[models.User](ctx, r.db, "users", "referral_code", code, ErrUserNotFound)
}

// SetReferralCode записывает реферальный код, только если он ещё не задан.
// Возвращает актуальный код: при конкурентной генерации обе стороны
// увидят одно и то же значение, выигравшее гонку.
func (r *UserRepository) SetReferralCode(ctx context.Context, userID uuid.UUID, code string) (string, error) {
	var current string
	err := r.db.QueryRowxContext(ctx, `
		UPDATE users SET referral_code = COALESCE(referral_code, $2), updated_at = NOW()
		WHERE id = $1
		RETURNING referral_code
	`, userID, code).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("set referral code: %w", err)
	}
	return current, nil
}

// ListReferrals возвращает приведённых партнёром пользователей с числом
// их заказов.
func (r *UserRepository) ListReferrals(ctx context.Context, partnerID uuid.UUID) ([]models.ReferralInfo, error) {
	var referrals []models.ReferralInfo
	err := r.db.SelectContext(ctx, &referrals, `
		SELECT u.id, u.username, u.email, u.role, u.created_at,
		       COUNT(o.id) AS orders_count
		FROM users u
		LEFT JOIN orders o ON o.client_id = u.id
		WHERE u.partner_id = $1
		GROUP BY u.id
		ORDER BY u.created_at DESC
	`, partnerID)
	return referrals, err
}

// ListByRole возвращает активных пользователей с заданной ролью.
func (r *UserRepository) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `
		SELECT * FROM users WHERE role = $1 AND is_active = TRUE ORDER BY created_at
	`, role)
	return users, err
}
