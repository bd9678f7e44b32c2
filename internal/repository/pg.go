package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Код ошибки PostgreSQL для нарушения уникальности.
const pgUniqueViolation = "23505"

// isUniqueViolation сообщает, вызвана ли ошибка нарушением уникального
// индекса.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}
