package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studymarket/backend/internal/models"
)

var (
	ErrEarningNotFound = errors.New("earning not found")
	// ErrEarningPaid возвращается, когда compare-and-set по is_paid не нашёл
	// строку: начисление уже выплачено.
	ErrEarningPaid = errors.New("earning already paid")
)

type EarningRepository struct {
	db *sqlx.DB
}

func NewEarningRepository(db *sqlx.DB) *EarningRepository {
	return &EarningRepository{db: db}
}

// InsertOrderCommission начисляет комиссию за завершённый заказ.
// Частичный уникальный индекс по (partner_id, order_id) делает операцию
// идемпотентной: повторный вызов ничего не вставляет, inserted = false.
func (r *EarningRepository) InsertOrderCommission(ctx context.Context, e *models.PartnerEarning) (bool, error) {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO partner_earnings (partner_id, referral_id, order_id, amount, earning_type)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (partner_id, order_id) WHERE earning_type = 'order' DO NOTHING
		RETURNING id, is_paid, created_at
	`, e.PartnerID, e.ReferralID, e.OrderID, e.Amount, models.EarningTypeOrder).
		Scan(&e.ID, &e.IsPaid, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert order commission: %w", err)
	}
	return true, nil
}

// InsertRegistrationBonus начисляет фиксированный бонус за регистрацию
// приведённого пользователя.
func (r *EarningRepository) InsertRegistrationBonus(ctx context.Context, e *models.PartnerEarning) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO partner_earnings (partner_id, referral_id, amount, earning_type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_paid, created_at
	`, e.PartnerID, e.ReferralID, e.Amount, models.EarningTypeRegistration).
		Scan(&e.ID, &e.IsPaid, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert registration bonus: %w", err)
	}
	return nil
}

// MarkPaid атомарно помечает начисление выплаченным.
// Compare-and-set по is_paid = FALSE: двойной выплаты не бывает.
func (r *EarningRepository) MarkPaid(ctx context.Context, earningID uuid.UUID) (*models.PartnerEarning, error) {
	var updated models.PartnerEarning
	err := r.db.QueryRowxContext(ctx, `
		UPDATE partner_earnings SET is_paid = TRUE
		WHERE id = $1 AND is_paid = FALSE
		RETURNING *
	`, earningID).StructScan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if getErr := r.db.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM partner_earnings WHERE id = $1)`, earningID); getErr != nil {
			return nil, fmt.Errorf("mark earning paid: %w", getErr)
		}
		if !exists {
			return nil, ErrEarningNotFound
		}
		return nil, ErrEarningPaid
	}
	if err != nil {
		return nil, fmt.Errorf("mark earning paid: %w", err)
	}
	return &updated, nil
}

// ListByPartner возвращает начисления партнёра, новые сверху.
func (r *EarningRepository) ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]models.PartnerEarning, error) {
	var earnings []models.PartnerEarning
	err := r.db.SelectContext(ctx, &earnings, `
		SELECT * FROM partner_earnings WHERE partner_id = $1 ORDER BY created_at DESC
	`, partnerID)
	return earnings, err
}

// ListAll возвращает все начисления (для администратора).
func (r *EarningRepository) ListAll(ctx context.Context, limit, offset int) ([]models.PartnerEarning, error) {
	var earnings []models.PartnerEarning
	err := r.db.SelectContext(ctx, &earnings, `
		SELECT * FROM partner_earnings ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	return earnings, err
}

// GetStats возвращает агрегаты партнёрского кабинета.
func (r *EarningRepository) GetStats(ctx context.Context, partnerID uuid.UUID) (*models.PartnerStats, error) {
	var stats models.PartnerStats
	err := r.db.GetContext(ctx, &stats, `
		SELECT
			(SELECT COUNT(*) FROM users WHERE partner_id = $1) AS total_referrals,
			(SELECT COUNT(*) FROM users WHERE partner_id = $1 AND is_active = TRUE) AS active_referrals,
			COALESCE(SUM(amount), 0) AS total_earnings,
			COALESCE(SUM(amount) FILTER (WHERE is_paid = FALSE), 0) AS unpaid_earnings
		FROM partner_earnings WHERE partner_id = $1
	`, partnerID)
	if err != nil {
		return nil, fmt.Errorf("partner stats: %w", err)
	}
	return &stats, nil
}
