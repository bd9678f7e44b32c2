package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studymarket/backend/internal/dto"
	"github.com/studymarket/backend/internal/http/handlers/common"
	"github.com/studymarket/backend/internal/service"
)

// OrderHandler отвечает за жизненный цикл заказов.
type OrderHandler struct {
	orders *service.OrderService
}

// NewOrderHandler создаёт новый хэндлер.
func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// CreateOrder обрабатывает POST /orders/orders/.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID, role, ok := h.identity(c)
	if !ok {
		return
	}

	var req dto.CreateOrderRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	order, err := h.orders.Create(c.Request.Context(), userID, role, service.CreateOrderInput{
		Title:        req.Title,
		Description:  req.Description,
		SubjectID:    req.SubjectID,
		TopicID:      req.TopicID,
		WorkTypeID:   req.WorkTypeID,
		ComplexityID: req.ComplexityID,
		Budget:       req.Budget,
		Deadline:     req.Deadline,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewOrderResponse(order))
}

// GetOrder обрабатывает GET /orders/orders/:id/.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, role, ok := h.identity(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	order, err := h.orders.Get(c.Request.Context(), orderID, userID, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewOrderResponse(order))
}

// ListMyOrders обрабатывает GET /orders/orders/.
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	userID, role, ok := h.identity(c)
	if !ok {
		return
	}
	limit, offset := common.GetPagination(c)

	orders, err := h.orders.ListMy(c.Request.Context(), userID, role, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewOrderListResponse(orders))
}

// ListAvailableOrders обрабатывает GET /orders/orders/available/.
func (h *OrderHandler) ListAvailableOrders(c *gin.Context) {
	userID, role, ok := h.identity(c)
	if !ok {
		return
	}
	limit, offset := common.GetPagination(c)

	orders, err := h.orders.ListAvailable(c.Request.Context(), userID, role, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewOrderListResponse(orders))
}

// TakeOrder обрабатывает POST /orders/orders/:id/take/.
func (h *OrderHandler) TakeOrder(c *gin.Context) {
	userID, role, ok := h.identity(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	order, err := h.orders.Take(c.Request.Context(), orderID, userID, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewOrderResponse(order))
}

// SubmitOrder обрабатывает POST /orders/orders/:id/submit/.
func (h *OrderHandler) SubmitOrder(c *gin.Context) {
	userID, _, ok := h.identity(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	order, err := h.orders.Submit(c.Request.Context(), orderID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewOrderResponse(order))
}

// ApproveOrder обрабатывает POST /orders/orders/:id/approve/.
func (h *OrderHandler) ApproveOrder(c *gin.Context) {
	userID, role, ok := h.identity(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	order, err := h.orders.Approve(c.Request.Context(), orderID, userID, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewOrderResponse(order))
}

// RequestRevision обрабатывает POST /orders/orders/:id/revision/.
func (h *OrderHandler) RequestRevision(c *gin.Context) {
	userID, role, ok := h.identity(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	order, err := h.orders.RequestRevision(c.Request.Context(), orderID, userID, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewOrderResponse(order))
}

// CancelOrder обрабатывает POST /orders/orders/:id/cancel/.
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	userID, role, ok := h.identity(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	order, err := h.orders.Cancel(c.Request.Context(), orderID, userID, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewOrderResponse(order))
}

// OrderHistory обрабатывает GET /orders/orders/:id/history/.
func (h *OrderHandler) OrderHistory(c *gin.Context) {
	userID, role, ok := h.identity(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	history, err := h.orders.History(c.Request.Context(), orderID, userID, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

// AddComment обрабатывает POST /orders/orders/:id/comments/.
func (h *OrderHandler) AddComment(c *gin.Context) {
	userID, role, ok := h.identity(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	var req dto.CommentRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	comment, err := h.orders.AddComment(c.Request.Context(), orderID, userID, role, req.Text)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// ListComments обрабатывает GET /orders/orders/:id/comments/.
func (h *OrderHandler) ListComments(c *gin.Context) {
	userID, role, ok := h.identity(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	comments, err := h.orders.ListComments(c.Request.Context(), orderID, userID, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, comments)
}

// ClientDashboard обрабатывает GET /users/client_dashboard/.
func (h *OrderHandler) ClientDashboard(c *gin.Context) {
	userID, _, ok := h.identity(c)
	if !ok {
		return
	}

	stats, orders, err := h.orders.ClientDashboard(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ClientDashboardResponse{
		Stats:  stats,
		Orders: dto.NewOrderListResponse(orders),
	})
}

func (h *OrderHandler) identity(c *gin.Context) (uuid.UUID, string, bool) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return uuid.Nil, "", false
	}
	role, _ := common.CurrentUserRole(c)
	return userID, role, true
}

func (h *OrderHandler) orderID(c *gin.Context) (uuid.UUID, bool) {
	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return uuid.Nil, false
	}
	return orderID, true
}
