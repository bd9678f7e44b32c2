package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studymarket/backend/internal/models"
	"github.com/studymarket/backend/internal/repository/common"
)

var ErrFileNotFound = errors.New("file not found")

type FileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

// Create сохраняет метаданные загруженного файла.
func (r *FileRepository) Create(ctx context.Context, f *models.OrderFile) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO order_files (order_id, uploaded_by, file_type, file_name, storage_path, content_type, size_bytes, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, f.OrderID, f.UploadedBy, f.FileType, f.FileName, f.StoragePath, f.ContentType, f.SizeBytes, f.Description).
		Scan(&f.ID, &f.CreatedAt)
}

func (r *FileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.OrderFile, error) {
	return common.GetByID[models.OrderFile](ctx, r.db, "order_files", id, ErrFileNotFound)
}

// ListByOrder возвращает файлы заказа в порядке загрузки.
func (r *FileRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderFile, error) {
	var files []models.OrderFile
	err := r.db.SelectContext(ctx, &files, `
		SELECT * FROM order_files WHERE order_id = $1 ORDER BY created_at ASC
	`, orderID)
	return files, err
}
