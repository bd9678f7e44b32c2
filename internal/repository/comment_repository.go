package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studymarket/backend/internal/models"
)

type CommentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create добавляет комментарий к заказу. Комментарии не редактируются
// и не удаляются.
func (r *CommentRepository) Create(ctx context.Context, c *models.OrderComment) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO order_comments (order_id, author_id, text)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, c.OrderID, c.AuthorID, c.Text).Scan(&c.ID, &c.CreatedAt)
}

// ListByOrder возвращает комментарии заказа в порядке создания.
func (r *CommentRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderComment, error) {
	var comments []models.OrderComment
	err := r.db.SelectContext(ctx, &comments, `
		SELECT * FROM order_comments WHERE order_id = $1 ORDER BY created_at ASC
	`, orderID)
	return comments, err
}
