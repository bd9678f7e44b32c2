package models

import (
	"time"

	"github.com/google/uuid"
)

// Dispute представляет спор по заказу. На заказ допускается не более одного
// спора (уникальный индекс по order_id). Result записывается ровно один раз,
// одновременно с переводом resolved в true, и больше не меняется.
type Dispute struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	OrderID      uuid.UUID  `db:"order_id" json:"order_id"`
	InitiatorID  uuid.UUID  `db:"initiator_id" json:"initiator_id"`
	Reason       string     `db:"reason" json:"reason"`
	ArbitratorID *uuid.UUID `db:"arbitrator_id" json:"arbitrator_id,omitempty"`
	Resolved     bool       `db:"resolved" json:"resolved"`
	Result       *string    `db:"result" json:"result,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt   *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

// DisputableOrderStatuses статусы заказа, в которых допускается открыть спор.
var DisputableOrderStatuses = map[string]struct{}{
	OrderStatusReview:    {},
	OrderStatusCompleted: {},
}
