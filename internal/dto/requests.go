package dto

import (
	"time"

	"github.com/google/uuid"
)

// RegisterRequest represents the request to register a user
type RegisterRequest struct {
	Email        string  `json:"email" binding:"required"`
	Username     string  `json:"username" binding:"required"`
	Password     string  `json:"password" binding:"required"`
	Role         string  `json:"role" binding:"required"`
	ReferralCode *string `json:"referral_code"`
}

// LoginRequest represents the request to log in
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateOrderRequest represents the request to create an order
type CreateOrderRequest struct {
	Title        string     `json:"title" binding:"required"`
	Description  string     `json:"description" binding:"required"`
	SubjectID    uuid.UUID  `json:"subject_id" binding:"required"`
	TopicID      *uuid.UUID `json:"topic_id"`
	WorkTypeID   *uuid.UUID `json:"work_type_id"`
	ComplexityID *uuid.UUID `json:"complexity_id"`
	Budget       float64    `json:"budget" binding:"required"`
	Deadline     time.Time  `json:"deadline" binding:"required"`
}

// PlaceBidRequest represents the request to place or update a bid
type PlaceBidRequest struct {
	Amount  float64 `json:"amount" binding:"required"`
	Comment *string `json:"comment"`
}

// AcceptBidRequest represents the request to accept a bid on an order
type AcceptBidRequest struct {
	BidID uuid.UUID `json:"bid_id" binding:"required"`
}

// CommentRequest represents the request to add an order comment
type CommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// CreateDisputeRequest represents the request to open a dispute
type CreateDisputeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// AssignArbitratorRequest represents the request to assign an arbitrator
type AssignArbitratorRequest struct {
	ArbitratorID uuid.UUID `json:"arbitrator_id" binding:"required"`
}

// ResolveDisputeRequest represents the request to resolve a dispute
type ResolveDisputeRequest struct {
	Result string `json:"result" binding:"required"`
}

// MarkEarningPaidRequest represents the request to mark an earning as paid
type MarkEarningPaidRequest struct {
	EarningID uuid.UUID `json:"earning_id" binding:"required"`
}
