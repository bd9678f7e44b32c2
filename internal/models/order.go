package models

import (
	"time"

	"github.com/google/uuid"
)

// Order описывает заказ на учебную работу.
// Статус меняется только через именованные переходы (см. OrderTransitions),
// заказ никогда не удаляется физически — отмена является терминальным статусом.
type Order struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	ClientID     uuid.UUID  `db:"client_id" json:"client_id"`
	ExpertID     *uuid.UUID `db:"expert_id" json:"expert_id,omitempty"`
	Title        string     `db:"title" json:"title"`
	Description  string     `db:"description" json:"description"`
	SubjectID    uuid.UUID  `db:"subject_id" json:"subject_id"`
	TopicID      *uuid.UUID `db:"topic_id" json:"topic_id,omitempty"`
	WorkTypeID   *uuid.UUID `db:"work_type_id" json:"work_type_id,omitempty"`
	ComplexityID *uuid.UUID `db:"complexity_id" json:"complexity_id,omitempty"`
	Budget       float64    `db:"budget" json:"budget"`
	FinalPrice   *float64   `db:"final_price" json:"final_price,omitempty"`
	Deadline     time.Time  `db:"deadline" json:"deadline"`
	Status       string     `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// AgreedPrice возвращает обязывающую цену заказа: цену принятой ставки,
// а если заказ был взят напрямую без торгов — заявленный бюджет.
func (o *Order) AgreedPrice() float64 {
	if o.FinalPrice != nil {
		return *o.FinalPrice
	}
	return o.Budget
}

// IsParticipant проверяет, является ли пользователь клиентом или назначенным
// экспертом заказа.
func (o *Order) IsParticipant(userID uuid.UUID) bool {
	if o.ClientID == userID {
		return true
	}
	return o.ExpertID != nil && *o.ExpertID == userID
}

// Bid представляет ставку эксперта на заказ.
// На пару (order_id, expert_id) существует не более одной строки: повторная
// ставка того же эксперта обновляет сумму и комментарий.
type Bid struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OrderID   uuid.UUID `db:"order_id" json:"order_id"`
	ExpertID  uuid.UUID `db:"expert_id" json:"expert_id"`
	Amount    float64   `db:"amount" json:"amount"`
	Comment   *string   `db:"comment" json:"comment,omitempty"`
	Accepted  bool      `db:"accepted" json:"accepted"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClientStats агрегаты по заказам клиента для кабинета.
type ClientStats struct {
	TotalOrders     int     `db:"total_orders" json:"total_orders"`
	CompletedOrders int     `db:"completed_orders" json:"completed_orders"`
	ActiveOrders    int     `db:"active_orders" json:"active_orders"`
	TotalSpent      float64 `db:"total_spent" json:"total_spent"`
}

// OrderComment комментарий к заказу. Только добавление, без правок и удаления.
type OrderComment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OrderID   uuid.UUID `db:"order_id" json:"order_id"`
	AuthorID  uuid.UUID `db:"author_id" json:"author_id"`
	Text      string    `db:"text" json:"text"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
