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
	ErrDisputeNotFound = errors.New("dispute not found")
	// ErrDisputeExists возвращается при попытке открыть второй спор по заказу.
	ErrDisputeExists = errors.New("dispute already exists for this order")
	// ErrDisputeResolved возвращается, когда compare-and-set по resolved не
	// нашёл строку: спор уже разрешён.
	ErrDisputeResolved = errors.New("dispute already resolved")
)

type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// Create вставляет спор. Уникальный индекс по order_id гарантирует не более
// одного спора на заказ; нарушение транслируется в ErrDisputeExists.
func (r *DisputeRepository) Create(ctx context.Context, d *models.Dispute) error {
	query := `
		INSERT INTO disputes (order_id, initiator_id, reason)
		VALUES ($1, $2, $3)
		RETURNING id, resolved, created_at
	`
	err := r.db.QueryRowxContext(ctx, query, d.OrderID, d.InitiatorID, d.Reason).
		Scan(&d.ID, &d.Resolved, &d.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDisputeExists
	}
	if err != nil {
		return fmt.Errorf("create dispute: %w", err)
	}
	return nil
}

func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return common.GetByID[models.Dispute](ctx, r.db, "disputes", id, ErrDisputeNotFound)
}

func (r *DisputeRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	return common.GetByField[models.Dispute](ctx, r.db, "disputes", "order_id", orderID, ErrDisputeNotFound)
}

// ListAll возвращает все споры (для staff).
func (r *DisputeRepository) ListAll(ctx context.Context, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT * FROM disputes ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	return disputes, err
}

// ListByUser возвращает споры по заказам, где пользователь участник,
// и споры, назначенные ему как арбитру.
func (r *DisputeRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT d.* FROM disputes d
		JOIN orders o ON d.order_id = o.id
		WHERE o.client_id = $1 OR o.expert_id = $1 OR d.arbitrator_id = $1
		ORDER BY d.created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return disputes, err
}

// AssignArbitrator назначает или переназначает арбитра неразрешённого спора.
func (r *DisputeRepository) AssignArbitrator(ctx context.Context, disputeID, arbitratorID uuid.UUID) (*models.Dispute, error) {
	var updated models.Dispute
	err := r.db.QueryRowxContext(ctx, `
		UPDATE disputes SET arbitrator_id = $2
		WHERE id = $1 AND resolved = FALSE
		RETURNING *
	`, disputeID, arbitratorID).StructScan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.casError(ctx, disputeID)
	}
	if err != nil {
		return nil, fmt.Errorf("assign arbitrator: %w", err)
	}
	return &updated, nil
}

// Resolve атомарно разрешает спор: compare-and-set по resolved = FALSE,
// result записывается одновременно с установкой флага. Из двух конкурентных
// решений арбитра выигрывает ровно одно.
func (r *DisputeRepository) Resolve(ctx context.Context, disputeID uuid.UUID, result string) (*models.Dispute, error) {
	var updated models.Dispute
	err := r.db.QueryRowxContext(ctx, `
		UPDATE disputes SET resolved = TRUE, result = $2, resolved_at = NOW()
		WHERE id = $1 AND resolved = FALSE
		RETURNING *
	`, disputeID, result).StructScan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.casError(ctx, disputeID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve dispute: %w", err)
	}
	return &updated, nil
}

// casError различает "спор не найден" и "спор уже разрешён" после неудачного
// compare-and-set.
func (r *DisputeRepository) casError(ctx context.Context, disputeID uuid.UUID) error {
	if _, getErr := r.GetByID(ctx, disputeID); errors.Is(getErr, ErrDisputeNotFound) {
		return ErrDisputeNotFound
	}
	return ErrDisputeResolved
}
