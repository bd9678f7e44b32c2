package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studymarket/backend/internal/models"
)

var ErrCatalogRefNotFound = errors.New("catalog reference not found")

// CatalogRepository читает справочники: предметы, темы, типы работ, сложности.
// Справочники правятся только миграциями, API наполнения нет.
type CatalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	var subjects []models.Subject
	err := r.db.SelectContext(ctx, &subjects, `
		SELECT * FROM subjects WHERE is_active = TRUE ORDER BY name
	`)
	return subjects, err
}

func (r *CatalogRepository) ListTopics(ctx context.Context, subjectID uuid.UUID) ([]models.Topic, error) {
	var topics []models.Topic
	err := r.db.SelectContext(ctx, &topics, `
		SELECT * FROM topics WHERE subject_id = $1 AND is_active = TRUE ORDER BY name
	`, subjectID)
	return topics, err
}

func (r *CatalogRepository) ListWorkTypes(ctx context.Context) ([]models.WorkType, error) {
	var workTypes []models.WorkType
	err := r.db.SelectContext(ctx, &workTypes, `
		SELECT * FROM work_types WHERE is_active = TRUE ORDER BY name
	`)
	return workTypes, err
}

func (r *CatalogRepository) ListComplexities(ctx context.Context) ([]models.Complexity, error) {
	var complexities []models.Complexity
	err := r.db.SelectContext(ctx, &complexities, `
		SELECT * FROM complexities WHERE is_active = TRUE ORDER BY level
	`)
	return complexities, err
}

// ValidateOrderRefs проверяет, что ссылки заказа указывают на активные
// строки справочников, а тема принадлежит выбранному предмету.
func (r *CatalogRepository) ValidateOrderRefs(ctx context.Context, subjectID uuid.UUID, topicID, workTypeID, complexityID *uuid.UUID) error {
	if err := r.checkExists(ctx, "subjects", "id = $1 AND is_active = TRUE", subjectID); err != nil {
		return fmt.Errorf("subject: %w", err)
	}
	if topicID != nil {
		if err := r.checkExists(ctx, "topics", "id = $1 AND subject_id = $2 AND is_active = TRUE", *topicID, subjectID); err != nil {
			return fmt.Errorf("topic: %w", err)
		}
	}
	if workTypeID != nil {
		if err := r.checkExists(ctx, "work_types", "id = $1 AND is_active = TRUE", *workTypeID); err != nil {
			return fmt.Errorf("work type: %w", err)
		}
	}
	if complexityID != nil {
		if err := r.checkExists(ctx, "complexities", "id = $1 AND is_active = TRUE", *complexityID); err != nil {
			return fmt.Errorf("complexity: %w", err)
		}
	}
	return nil
}

func (r *CatalogRepository) checkExists(ctx context.Context, table, where string, args ...interface{}) error {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s)", table, where)
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return err
	}
	if !exists {
		return ErrCatalogRefNotFound
	}
	return nil
}
