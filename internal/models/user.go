package models

import (
	"time"

	"github.com/google/uuid"
)

// User описывает пользователя платформы: клиента, эксперта, партнёра,
// арбитра или администратора.
type User struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Email          string     `db:"email" json:"email"`
	Username       string     `db:"username" json:"username"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	Role           string     `db:"role" json:"role"`
	PartnerID      *uuid.UUID `db:"partner_id" json:"partner_id,omitempty"`
	ReferralCode   *string    `db:"referral_code" json:"referral_code,omitempty"`
	CommissionRate float64    `db:"commission_rate" json:"commission_rate"`
	IsActive       bool       `db:"is_active" json:"is_active"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// ReferralInfo краткие сведения о реферале для партнёрского кабинета.
type ReferralInfo struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Username    string    `db:"username" json:"username"`
	Email       string    `db:"email" json:"email"`
	Role        string    `db:"role" json:"role"`
	OrdersCount int       `db:"orders_count" json:"orders_count"`
	CreatedAt   time.Time `db:"created_at" json:"date_joined"`
}
