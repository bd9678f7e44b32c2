package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы партнёрских начислений. Закрытый набор, продублирован
// CHECK-ограничением в таблице partner_earnings.
const (
	EarningTypeOrder        = "order"
	EarningTypeRegistration = "registration"
	EarningTypeBonus        = "bonus"
)

// ValidEarningTypes список валидных типов начислений.
var ValidEarningTypes = map[string]struct{}{
	EarningTypeOrder:        {},
	EarningTypeRegistration: {},
	EarningTypeBonus:        {},
}

// PartnerEarning начисление партнёру за приведённого пользователя.
// Для типа order действует уникальность (partner_id, order_id): комиссия
// считается один раз при завершении заказа и не пересчитывается.
// IsPaid меняется только false -> true, операции "отменить выплату" нет.
type PartnerEarning struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PartnerID   uuid.UUID  `db:"partner_id" json:"partner_id"`
	ReferralID  uuid.UUID  `db:"referral_id" json:"referral_id"`
	OrderID     *uuid.UUID `db:"order_id" json:"order_id,omitempty"`
	Amount      float64    `db:"amount" json:"amount"`
	EarningType string     `db:"earning_type" json:"earning_type"`
	IsPaid      bool       `db:"is_paid" json:"is_paid"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// PartnerStats агрегаты для партнёрского кабинета.
type PartnerStats struct {
	TotalReferrals  int     `db:"total_referrals" json:"total_referrals"`
	ActiveReferrals int     `db:"active_referrals" json:"active_referrals"`
	TotalEarnings   float64 `db:"total_earnings" json:"total_earnings"`
	UnpaidEarnings  float64 `db:"unpaid_earnings" json:"unpaid_earnings"`
}
