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

// DisputeRepository описывает зависимости DisputeService от слоя хранилища.
type DisputeRepository interface {
	Create(ctx context.Context, d *models.Dispute) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.Dispute, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error)
	AssignArbitrator(ctx context.Context, disputeID, arbitratorID uuid.UUID) (*models.Dispute, error)
	Resolve(ctx context.Context, disputeID uuid.UUID, result string) (*models.Dispute, error)
}

// DisputeOrderRepository подмножество операций заказа, нужное спорам.
type DisputeOrderRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// DisputeUserRepository подмножество операций пользователей, нужное спорам.
type DisputeUserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListByRole(ctx context.Context, role string) ([]models.User, error)
}

// DisputeService реализует разбор споров по заказам.
// Спор на заказ один, решение записывается однократно и не пересматривается.
type DisputeService struct {
	disputes DisputeRepository
	orders   DisputeOrderRepository
	users    DisputeUserRepository
	notifier Notifier
}

// NewDisputeService создаёт сервис споров.
func NewDisputeService(disputes DisputeRepository, orders DisputeOrderRepository, users DisputeUserRepository, notifier Notifier) *DisputeService {
	return &DisputeService{disputes: disputes, orders: orders, users: users, notifier: notifier}
}

// Create открывает спор по заказу. Допускается участником заказа в статусах
// review и completed: предмет спора появляется только после сдачи работы.
func (s *DisputeService) Create(ctx context.Context, orderID, initiatorID uuid.UUID, role, reason string) (*models.Dispute, error) {
	if err := validation.ValidateLength("причина спора", reason,
		validation.MinDisputeReasonLength, validation.MaxDisputeReasonLength); err != nil {
		return nil, apperror.NewValidation("%v", err)
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, apperror.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if !order.IsParticipant(initiatorID) {
		return nil, apperror.NewForbidden("открыть спор может только участник заказа")
	}
	if _, ok := models.DisputableOrderStatuses[order.Status]; !ok {
		return nil, apperror.NewValidation("спор нельзя открыть в статусе %s", order.Status)
	}

	d := &models.Dispute{
		OrderID:     orderID,
		InitiatorID: initiatorID,
		Reason:      reason,
	}
	if err := s.disputes.Create(ctx, d); err != nil {
		if errors.Is(err, repository.ErrDisputeExists) {
			return nil, apperror.NewConflict("по заказу уже открыт спор")
		}
		return nil, err
	}
	return d, nil
}

// Get возвращает спор с проверкой доступа.
func (s *DisputeService) Get(ctx context.Context, disputeID, userID uuid.UUID, role string) (*models.Dispute, error) {
	d, err := s.loadDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAccess(ctx, d, userID, role); err != nil {
		return nil, err
	}
	return d, nil
}

// AssignArbitrator назначает арбитра на спор. Только администратор,
// назначаемый пользователь обязан иметь роль арбитра.
func (s *DisputeService) AssignArbitrator(ctx context.Context, disputeID, arbitratorID uuid.UUID, role string) (*models.Dispute, error) {
	if role != models.RoleAdmin {
		return nil, apperror.NewForbidden("назначать арбитров может только администратор")
	}

	arbitrator, err := s.users.GetByID(ctx, arbitratorID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperror.NewValidation("арбитр не найден")
	}
	if err != nil {
		return nil, err
	}
	if arbitrator.Role != models.RoleArbitrator {
		return nil, apperror.NewValidation("пользователь %s не является арбитром", arbitrator.Username)
	}

	updated, err := s.disputes.AssignArbitrator(ctx, disputeID, arbitratorID)
	if err != nil {
		return nil, s.mapDisputeErr(err)
	}
	return updated, nil
}

// Resolve записывает решение по спору. Только назначенный арбитр, решение
// не короче минимальной длины, повторное решение отклоняется.
func (s *DisputeService) Resolve(ctx context.Context, disputeID, userID uuid.UUID, result string) (*models.Dispute, error) {
	if err := validation.ValidateLength("решение", result,
		validation.MinDisputeResultLength, validation.MaxDisputeResultLength); err != nil {
		return nil, apperror.NewValidation("%v", err)
	}

	d, err := s.loadDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if d.ArbitratorID == nil || *d.ArbitratorID != userID {
		return nil, apperror.NewForbidden("решение выносит только назначенный арбитр")
	}

	updated, err := s.disputes.Resolve(ctx, disputeID, result)
	if err != nil {
		return nil, s.mapDisputeErr(err)
	}

	if s.notifier != nil {
		if order, err := s.orders.GetByID(ctx, updated.OrderID); err == nil {
			_ = s.notifier.BroadcastToUser(order.ClientID, "dispute_resolved", updated)
			if order.ExpertID != nil {
				_ = s.notifier.BroadcastToUser(*order.ExpertID, "dispute_resolved", updated)
			}
		}
	}
	return updated, nil
}

// List возвращает споры пользователя; staff видит все споры.
func (s *DisputeService) List(ctx context.Context, userID uuid.UUID, role string, limit, offset int) ([]models.Dispute, error) {
	if models.IsStaffRole(role) {
		return s.disputes.ListAll(ctx, limit, offset)
	}
	return s.disputes.ListByUser(ctx, userID, limit, offset)
}

// ListMy возвращает только споры, где пользователь участник заказа или
// назначенный арбитр, независимо от роли.
func (s *DisputeService) ListMy(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	return s.disputes.ListByUser(ctx, userID, limit, offset)
}

// GetByOrder возвращает спор по заказу, если он открыт.
func (s *DisputeService) GetByOrder(ctx context.Context, orderID, userID uuid.UUID, role string) (*models.Dispute, error) {
	d, err := s.disputes.GetByOrderID(ctx, orderID)
	if errors.Is(err, repository.ErrDisputeNotFound) {
		return nil, apperror.ErrDisputeNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.checkAccess(ctx, d, userID, role); err != nil {
		return nil, err
	}
	return d, nil
}

// ListArbitrators возвращает активных арбитров для назначения на спор.
func (s *DisputeService) ListArbitrators(ctx context.Context, role string) ([]models.User, error) {
	if role != models.RoleAdmin {
		return nil, apperror.NewForbidden("список арбитров доступен только администратору")
	}
	return s.users.ListByRole(ctx, models.RoleArbitrator)
}

func (s *DisputeService) loadDispute(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	d, err := s.disputes.GetByID(ctx, disputeID)
	if errors.Is(err, repository.ErrDisputeNotFound) {
		return nil, apperror.ErrDisputeNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DisputeService) checkAccess(ctx context.Context, d *models.Dispute, userID uuid.UUID, role string) error {
	if models.IsStaffRole(role) {
		return nil
	}
	if d.ArbitratorID != nil && *d.ArbitratorID == userID {
		return nil
	}
	order, err := s.orders.GetByID(ctx, d.OrderID)
	if err != nil {
		return err
	}
	if !order.IsParticipant(userID) {
		return apperror.NewForbidden("спор недоступен")
	}
	return nil
}

func (s *DisputeService) mapDisputeErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrDisputeNotFound):
		return apperror.ErrDisputeNotFound
	case errors.Is(err, repository.ErrDisputeResolved):
		return apperror.NewConflict("спор уже разрешён")
	default:
		return err
	}
}
