package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studymarket/backend/internal/models"
)

var ErrBidNotFound = errors.New("bid not found")

type BidRepository struct {
	db *sqlx.DB
}

func NewBidRepository(db *sqlx.DB) *BidRepository {
	return &BidRepository{db: db}
}

// Upsert создаёт или обновляет ставку эксперта на заказ.
// Повторная ставка того же эксперта заменяет сумму и комментарий,
// дубликат строки не появляется.
func (r *BidRepository) Upsert(ctx context.Context, bid *models.Bid) error {
	query := `
		INSERT INTO bids (order_id, expert_id, amount, comment)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id, expert_id)
		DO UPDATE SET amount = EXCLUDED.amount, comment = EXCLUDED.comment, updated_at = NOW()
		RETURNING id, accepted, created_at, updated_at
	`
	return r.db.QueryRowxContext(ctx, query, bid.OrderID, bid.ExpertID, bid.Amount, bid.Comment).
		Scan(&bid.ID, &bid.Accepted, &bid.CreatedAt, &bid.UpdatedAt)
}

// ListByOrder возвращает ставки заказа в порядке создания.
// Сортировка по времени, не по сумме: клиент сравнивает предложения сам.
func (r *BidRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	err := r.db.SelectContext(ctx, &bids, `
		SELECT * FROM bids WHERE order_id = $1 ORDER BY created_at ASC
	`, orderID)
	return bids, err
}
