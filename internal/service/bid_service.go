package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/studymarket/backend/internal/models"
	"github.com/studymarket/backend/internal/pkg/apperror"
	"github.com/studymarket/backend/internal/repository"
	"github.com/studymarket/backend/internal/validation"
)

// BidRepository описывает зависимости BidService от слоя хранилища.
type BidRepository interface {
	Upsert(ctx context.Context, bid *models.Bid) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Bid, error)
}

// BidOrderRepository подмножество операций заказа, нужное ставкам.
type BidOrderRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	AcceptBid(ctx context.Context, orderID, bidID, actorID uuid.UUID) (*models.Order, *models.Bid, error)
}

// BidService реализует торги по заказу.
type BidService struct {
	bids     BidRepository
	orders   BidOrderRepository
	notifier Notifier
}

// NewBidService создаёт сервис ставок.
func NewBidService(bids BidRepository, orders BidOrderRepository, notifier Notifier) *BidService {
	return &BidService{bids: bids, orders: orders, notifier: notifier}
}

// PlaceBid размещает или обновляет ставку эксперта. Повторная ставка того же
// эксперта на тот же заказ заменяет предыдущую.
func (s *BidService) PlaceBid(ctx context.Context, orderID, expertID uuid.UUID, role string, amount float64, comment *string) (*models.Bid, error) {
	if role != models.RoleExpert {
		return nil, apperror.NewForbidden("делать ставки могут только эксперты")
	}
	if err := validation.ValidateAmount(amount); err != nil {
		return nil, apperror.NewValidation("%v", err)
	}
	if comment != nil {
		if err := validation.ValidateLength("комментарий", *comment, 0, validation.MaxBidCommentLength); err != nil {
			return nil, apperror.NewValidation("%v", err)
		}
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, apperror.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if order.ClientID == expertID {
		return nil, apperror.NewValidation("нельзя сделать ставку на собственный заказ")
	}
	// Ставки принимаются только пока заказ открыт. Это ошибка данных запроса,
	// а не переход статуса, поэтому VALIDATION_ERROR.
	if order.Status != models.OrderStatusNew {
		return nil, apperror.NewValidation("заказ не принимает ставки в статусе %s", order.Status)
	}

	bid := &models.Bid{
		OrderID:  orderID,
		ExpertID: expertID,
		Amount:   amount,
		Comment:  comment,
	}
	if err := s.bids.Upsert(ctx, bid); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		_ = s.notifier.BroadcastToUser(order.ClientID, "new_bid", bid)
	}
	return bid, nil
}

// ListBids возвращает ставки заказа. Видят их клиент заказа и staff;
// эксперт видит ставки открытого заказа, включая свою.
func (s *BidService) ListBids(ctx context.Context, orderID, userID uuid.UUID, role string) ([]models.Bid, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, apperror.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	allowed := order.IsParticipant(userID) || models.IsStaffRole(role) ||
		(order.Status == models.OrderStatusNew && role == models.RoleExpert)
	if !allowed {
		return nil, apperror.NewForbidden("ставки заказа недоступны")
	}
	return s.bids.ListByOrder(ctx, orderID)
}

// AcceptBid принимает ставку от имени клиента заказа. Заказ атомарно
// переходит в работу с назначением эксперта и фиксацией цены ставки.
func (s *BidService) AcceptBid(ctx context.Context, orderID, bidID, userID uuid.UUID, role string) (*models.Order, *models.Bid, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, nil, apperror.ErrOrderNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if order.ClientID != userID && role != models.RoleAdmin {
		return nil, nil, apperror.NewForbidden("принять ставку может только клиент заказа")
	}
	if order.Status != models.OrderStatusNew {
		return nil, nil, apperror.NewInvalidTransition(order.Status, models.OrderStatusInProgress)
	}

	updated, bid, err := s.orders.AcceptBid(ctx, orderID, bidID, userID)
	if errors.Is(err, repository.ErrBidNotFound) {
		return nil, nil, apperror.ErrBidNotFound
	}
	if errors.Is(err, repository.ErrStatusConflict) {
		return nil, nil, apperror.NewConflict("заказ был изменён конкурентным запросом")
	}
	if err != nil {
		return nil, nil, err
	}

	if s.notifier != nil {
		_ = s.notifier.BroadcastToUser(bid.ExpertID, "bid_accepted", updated)
	}
	return updated, bid, nil
}
