package dto

import (
	"github.com/studymarket/backend/internal/models"
)

// AuthResponse represents a successful registration or login
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// OrderResponse represents an order with its agreed price
type OrderResponse struct {
	*models.Order
	AgreedPrice float64 `json:"agreed_price"`
}

// NewOrderResponse creates an OrderResponse from an order
func NewOrderResponse(order *models.Order) *OrderResponse {
	return &OrderResponse{
		Order:       order,
		AgreedPrice: order.AgreedPrice(),
	}
}

// NewOrderListResponse creates OrderResponses for a list of orders
func NewOrderListResponse(orders []models.Order) []*OrderResponse {
	resp := make([]*OrderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, NewOrderResponse(&orders[i]))
	}
	return resp
}

// AcceptBidResponse represents the result of accepting a bid
type AcceptBidResponse struct {
	Order *OrderResponse `json:"order"`
	Bid   *models.Bid    `json:"bid"`
}

// ReferralLinkResponse represents a partner referral link
type ReferralLinkResponse struct {
	ReferralCode string `json:"referral_code"`
	ReferralLink string `json:"referral_link"`
}

// PartnerDashboardResponse represents the partner dashboard
type PartnerDashboardResponse struct {
	Stats     *models.PartnerStats    `json:"stats"`
	Referrals []models.ReferralInfo   `json:"referrals"`
	Earnings  []models.PartnerEarning `json:"earnings"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ClientDashboardResponse represents the client dashboard
type ClientDashboardResponse struct {
	Stats  *models.ClientStats `json:"stats"`
	Orders []*OrderResponse    `json:"orders"`
}
