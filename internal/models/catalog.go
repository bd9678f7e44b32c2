package models

import (
	"github.com/google/uuid"
)

// Subject учебный предмет.
type Subject struct {
	ID       uuid.UUID `db:"id" json:"id"`
	Name     string    `db:"name" json:"name"`
	IsActive bool      `db:"is_active" json:"is_active"`
}

// Topic тема внутри предмета.
type Topic struct {
	ID        uuid.UUID `db:"id" json:"id"`
	SubjectID uuid.UUID `db:"subject_id" json:"subject_id"`
	Name      string    `db:"name" json:"name"`
	IsActive  bool      `db:"is_active" json:"is_active"`
}

// WorkType тип работы: задача, контрольная, курсовая и т.д.
type WorkType struct {
	ID       uuid.UUID `db:"id" json:"id"`
	Name     string    `db:"name" json:"name"`
	IsActive bool      `db:"is_active" json:"is_active"`
}

// Complexity уровень сложности работы. Используется только для валидации
// заказа, роли в ценообразовании не имеет: цену фиксирует принятая ставка.
type Complexity struct {
	ID       uuid.UUID `db:"id" json:"id"`
	Name     string    `db:"name" json:"name"`
	Level    int       `db:"level" json:"level"`
	IsActive bool      `db:"is_active" json:"is_active"`
}
