package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studymarket/backend/internal/dto"
	"github.com/studymarket/backend/internal/http/handlers/common"
	"github.com/studymarket/backend/internal/service"
)

// BidHandler отвечает за торги по заказам.
type BidHandler struct {
	bids *service.BidService
}

// NewBidHandler создаёт новый хэндлер.
func NewBidHandler(bids *service.BidService) *BidHandler {
	return &BidHandler{bids: bids}
}

// PlaceBid обрабатывает POST /orders/orders/:id/bids/.
func (h *BidHandler) PlaceBid(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.PlaceBidRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	bid, err := h.bids.PlaceBid(c.Request.Context(), orderID, userID, role, req.Amount, req.Comment)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bid)
}

// ListBids обрабатывает GET /orders/orders/:id/bids/.
func (h *BidHandler) ListBids(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	bids, err := h.bids.ListBids(c.Request.Context(), orderID, userID, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, bids)
}

// AcceptBid обрабатывает POST /orders/orders/:id/accept_bid/.
func (h *BidHandler) AcceptBid(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.AcceptBidRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	order, bid, err := h.bids.AcceptBid(c.Request.Context(), orderID, req.BidID, userID, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AcceptBidResponse{
		Order: dto.NewOrderResponse(order),
		Bid:   bid,
	})
}
