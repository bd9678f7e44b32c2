package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderHistory запись аудита перехода статуса заказа.
// Пишется в той же транзакции, что и сам переход.
type OrderHistory struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	OrderID    uuid.UUID  `db:"order_id" json:"order_id"`
	ActorID    *uuid.UUID `db:"actor_id" json:"actor_id,omitempty"`
	FromStatus string     `db:"from_status" json:"from_status"`
	ToStatus   string     `db:"to_status" json:"to_status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
