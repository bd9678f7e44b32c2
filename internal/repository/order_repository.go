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
	ErrOrderNotFound = errors.New("order not found")
	// ErrStatusConflict возвращается, когда compare-and-set по статусу не нашёл
	// строку: конкурентный вызов успел изменить заказ первым.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

type OrderRepository struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create вставляет новый заказ в статусе new.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (client_id, title, description, subject_id, topic_id, work_type_id, complexity_id, budget, deadline, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowxContext(ctx, query,
		order.ClientID, order.Title, order.Description,
		order.SubjectID, order.TopicID, order.WorkTypeID, order.ComplexityID,
		order.Budget, order.Deadline, order.Status,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return common.GetByID[models.Order](ctx, r.db, "orders", id, ErrOrderNotFound)
}

// ListByParticipant возвращает заказы, где пользователь клиент или эксперт.
func (r *OrderRepository) ListByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.SelectContext(ctx, &orders, `
		SELECT * FROM orders
		WHERE client_id = $1 OR expert_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return orders, err
}

// ListAll возвращает все заказы (для staff).
func (r *OrderRepository) ListAll(ctx context.Context, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.SelectContext(ctx, &orders, `
		SELECT * FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	return orders, err
}

// ListAvailable возвращает заказы, доступные для ставок: новые, без эксперта,
// кроме собственных заказов вызывающего.
func (r *OrderRepository) ListAvailable(ctx context.Context, excludeClientID uuid.UUID, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.SelectContext(ctx, &orders, `
		SELECT * FROM orders
		WHERE status = $1 AND expert_id IS NULL AND client_id <> $2
		ORDER BY created_at DESC LIMIT $3 OFFSET $4
	`, models.OrderStatusNew, excludeClientID, limit, offset)
	return orders, err
}

// UpdateStatus атомарно переводит заказ from -> to.
// Запись аудита пишется в той же транзакции. Если статус уже не from,
// возвращается ErrStatusConflict.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to string, actorID uuid.UUID) (*models.Order, error) {
	var updated models.Order
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
			UPDATE orders SET status = $3, updated_at = NOW()
			WHERE id = $1 AND status = $2
			RETURNING *
		`, orderID, from, to).StructScan(&updated)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrStatusConflict
		}
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		return insertHistory(ctx, tx, orderID, &actorID, from, to)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Take атомарно назначает эксперта на новый заказ (путь без торгов).
// Compare-and-set по статусу и отсутствию эксперта: проигравший конкурентный
// вызов получает ErrStatusConflict.
func (r *OrderRepository) Take(ctx context.Context, orderID, expertID uuid.UUID) (*models.Order, error) {
	var updated models.Order
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
			UPDATE orders SET expert_id = $2, status = $3, updated_at = NOW()
			WHERE id = $1 AND status = $4 AND expert_id IS NULL
			RETURNING *
		`, orderID, expertID, models.OrderStatusInProgress, models.OrderStatusNew).StructScan(&updated)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrStatusConflict
		}
		if err != nil {
			return fmt.Errorf("take order: %w", err)
		}
		return insertHistory(ctx, tx, orderID, &expertID, models.OrderStatusNew, models.OrderStatusInProgress)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// AcceptBid принимает ставку: единственная операция, меняющая две сущности.
// В одной транзакции заказ переводится new -> in_progress с назначением
// эксперта и фиксацией цены, ставка помечается принятой. Остальные ставки
// не трогаются и остаются историей. При конкурентном изменении статуса
// никакая часть мутации не видна снаружи.
func (r *OrderRepository) AcceptBid(ctx context.Context, orderID, bidID, actorID uuid.UUID) (*models.Order, *models.Bid, error) {
	var (
		updated models.Order
		bid     models.Bid
	)
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &bid, `
			SELECT * FROM bids WHERE id = $1 AND order_id = $2 FOR UPDATE
		`, bidID, orderID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBidNotFound
		}
		if err != nil {
			return fmt.Errorf("load bid: %w", err)
		}

		err = tx.QueryRowxContext(ctx, `
			UPDATE orders
			SET expert_id = $2, final_price = $3, status = $4, updated_at = NOW()
			WHERE id = $1 AND status = $5
			RETURNING *
		`, orderID, bid.ExpertID, bid.Amount, models.OrderStatusInProgress, models.OrderStatusNew).StructScan(&updated)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrStatusConflict
		}
		if err != nil {
			return fmt.Errorf("accept bid: update order: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE bids SET accepted = TRUE, updated_at = NOW() WHERE id = $1
		`, bid.ID); err != nil {
			return fmt.Errorf("accept bid: mark bid: %w", err)
		}
		bid.Accepted = true

		return insertHistory(ctx, tx, orderID, &actorID, models.OrderStatusNew, models.OrderStatusInProgress)
	})
	if err != nil {
		return nil, nil, err
	}
	return &updated, &bid, nil
}

// Cancel атомарно отменяет заказ из статуса from (new или in_progress).
// Эксперт снимается с заказа: терминальный cancelled не относится к статусам,
// требующим назначенного эксперта.
func (r *OrderRepository) Cancel(ctx context.Context, orderID uuid.UUID, from string, actorID uuid.UUID) (*models.Order, error) {
	var updated models.Order
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
			UPDATE orders SET status = $3, expert_id = NULL, updated_at = NOW()
			WHERE id = $1 AND status = $2
			RETURNING *
		`, orderID, from, models.OrderStatusCancelled).StructScan(&updated)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrStatusConflict
		}
		if err != nil {
			return fmt.Errorf("cancel order: %w", err)
		}
		return insertHistory(ctx, tx, orderID, &actorID, from, models.OrderStatusCancelled)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// GetClientStats возвращает агрегаты по заказам клиента.
func (r *OrderRepository) GetClientStats(ctx context.Context, clientID uuid.UUID) (*models.ClientStats, error) {
	var stats models.ClientStats
	err := r.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) AS total_orders,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed_orders,
			COUNT(*) FILTER (WHERE status IN ('in_progress', 'review', 'revision')) AS active_orders,
			COALESCE(SUM(COALESCE(final_price, budget)) FILTER (WHERE status = 'completed'), 0) AS total_spent
		FROM orders WHERE client_id = $1
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("client stats: %w", err)
	}
	return &stats, nil
}

// ListHistory возвращает записи аудита заказа в хронологическом порядке.
func (r *OrderRepository) ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error) {
	var history []models.OrderHistory
	err := r.db.SelectContext(ctx, &history, `
		SELECT * FROM order_history WHERE order_id = $1 ORDER BY created_at ASC
	`, orderID)
	return history, err
}

func insertHistory(ctx context.Context, tx *sqlx.Tx, orderID uuid.UUID, actorID *uuid.UUID, from, to string) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_history (order_id, actor_id, from_status, to_status)
		VALUES ($1, $2, $3, $4)
	`, orderID, actorID, from, to); err != nil {
		return fmt.Errorf("insert order history: %w", err)
	}
	return nil
}
