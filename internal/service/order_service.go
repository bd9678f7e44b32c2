package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/studymarket/backend/internal/logger"
	"github.com/studymarket/backend/internal/models"
	"github.com/studymarket/backend/internal/pkg/apperror"
	"github.com/studymarket/backend/internal/repository"
	"github.com/studymarket/backend/internal/validation"
)

// OrderRepository описывает зависимости OrderService от слоя хранилища.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.Order, error)
	ListAvailable(ctx context.Context, excludeClientID uuid.UUID, limit, offset int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to string, actorID uuid.UUID) (*models.Order, error)
	Take(ctx context.Context, orderID, expertID uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, from string, actorID uuid.UUID) (*models.Order, error)
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error)
	GetClientStats(ctx context.Context, clientID uuid.UUID) (*models.ClientStats, error)
}

// CatalogValidator проверяет ссылки заказа на справочники.
type CatalogValidator interface {
	ValidateOrderRefs(ctx context.Context, subjectID uuid.UUID, topicID, workTypeID, complexityID *uuid.UUID) error
}

// OrderCommentRepository хранит комментарии заказов.
type OrderCommentRepository interface {
	Create(ctx context.Context, c *models.OrderComment) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderComment, error)
}

// CommissionRecorder начисляет партнёрскую комиссию за завершённый заказ.
type CommissionRecorder interface {
	RecordOrderCommission(ctx context.Context, order *models.Order) error
}

// Notifier доставляет событие пользователю.
type Notifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// OrderService реализует жизненный цикл заказа.
// Каждый переход статуса проходит две проверки: сперва по графу переходов
// (недопустимая пара отклоняется как INVALID_TRANSITION), затем атомарным
// compare-and-set в хранилище (проигрыш гонки отклоняется как CONFLICT).
type OrderService struct {
	orders     OrderRepository
	catalog    CatalogValidator
	comments   OrderCommentRepository
	commission CommissionRecorder
	notifier   Notifier
}

// CreateOrderInput содержит данные нового заказа.
type CreateOrderInput struct {
	Title        string
	Description  string
	SubjectID    uuid.UUID
	TopicID      *uuid.UUID
	WorkTypeID   *uuid.UUID
	ComplexityID *uuid.UUID
	Budget       float64
	Deadline     time.Time
}

// NewOrderService создаёт сервис заказов.
func NewOrderService(orders OrderRepository, catalog CatalogValidator, comments OrderCommentRepository, commission CommissionRecorder, notifier Notifier) *OrderService {
	return &OrderService{
		orders:     orders,
		catalog:    catalog,
		comments:   comments,
		commission: commission,
		notifier:   notifier,
	}
}

// Create публикует новый заказ от имени клиента.
func (s *OrderService) Create(ctx context.Context, clientID uuid.UUID, role string, in CreateOrderInput) (*models.Order, error) {
	if role != models.RoleClient {
		return nil, apperror.NewForbidden("создавать заказы могут только клиенты")
	}
	if err := validation.ValidateLength("заголовок", in.Title,
		validation.MinOrderTitleLength, validation.MaxOrderTitleLength); err != nil {
		return nil, apperror.NewValidation("%v", err)
	}
	if err := validation.ValidateLength("описание", in.Description,
		validation.MinOrderDescriptionLength, validation.MaxOrderDescriptionLength); err != nil {
		return nil, apperror.NewValidation("%v", err)
	}
	if err := validation.ValidateBudget(in.Budget); err != nil {
		return nil, apperror.NewValidation("%v", err)
	}
	if !in.Deadline.After(time.Now()) {
		return nil, apperror.NewValidation("срок выполнения должен быть в будущем")
	}
	if err := s.catalog.ValidateOrderRefs(ctx, in.SubjectID, in.TopicID, in.WorkTypeID, in.ComplexityID); err != nil {
		if errors.Is(err, repository.ErrCatalogRefNotFound) {
			return nil, apperror.NewValidation("%v", err)
		}
		return nil, err
	}

	order := &models.Order{
		ClientID:     clientID,
		Title:        in.Title,
		Description:  in.Description,
		SubjectID:    in.SubjectID,
		TopicID:      in.TopicID,
		WorkTypeID:   in.WorkTypeID,
		ComplexityID: in.ComplexityID,
		Budget:       in.Budget,
		Deadline:     in.Deadline,
		Status:       models.OrderStatusNew,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Get возвращает заказ с проверкой видимости: участники и staff видят заказ
// всегда, эксперты видят новые заказы, чтобы делать ставки.
func (s *OrderService) Get(ctx context.Context, orderID, userID uuid.UUID, role string) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.checkVisibility(order, userID, role); err != nil {
		return nil, err
	}
	return order, nil
}

// ListMy возвращает заказы пользователя; staff видит все заказы.
func (s *OrderService) ListMy(ctx context.Context, userID uuid.UUID, role string, limit, offset int) ([]models.Order, error) {
	if models.IsStaffRole(role) {
		return s.orders.ListAll(ctx, limit, offset)
	}
	return s.orders.ListByParticipant(ctx, userID, limit, offset)
}

// ListAvailable возвращает ленту новых заказов для экспертов.
func (s *OrderService) ListAvailable(ctx context.Context, userID uuid.UUID, role string, limit, offset int) ([]models.Order, error) {
	if role != models.RoleExpert {
		return nil, apperror.NewForbidden("лента заказов доступна только экспертам")
	}
	return s.orders.ListAvailable(ctx, userID, limit, offset)
}

// Take назначает эксперта на новый заказ напрямую, без торгов.
// Ценой становится заявленный бюджет.
func (s *OrderService) Take(ctx context.Context, orderID, expertID uuid.UUID, role string) (*models.Order, error) {
	if role != models.RoleExpert {
		return nil, apperror.NewForbidden("брать заказы могут только эксперты")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID == expertID {
		return nil, apperror.NewValidation("нельзя взять собственный заказ")
	}
	if order.Status != models.OrderStatusNew {
		return nil, apperror.NewInvalidTransition(order.Status, models.OrderStatusInProgress)
	}

	updated, err := s.orders.Take(ctx, orderID, expertID)
	if err != nil {
		return nil, s.mapTransitionErr(err)
	}
	s.notify(order.ClientID, "order_taken", updated)
	return updated, nil
}

// Submit сдаёт работу на проверку. Допускается из in_progress и из revision:
// второй случай — повторная сдача после доработки.
func (s *OrderService) Submit(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ExpertID == nil || *order.ExpertID != userID {
		return nil, apperror.NewForbidden("сдать работу может только назначенный эксперт")
	}
	if order.Status != models.OrderStatusInProgress && order.Status != models.OrderStatusRevision {
		return nil, apperror.NewInvalidTransition(order.Status, models.OrderStatusReview)
	}

	updated, err := s.orders.UpdateStatus(ctx, orderID, order.Status, models.OrderStatusReview, userID)
	if err != nil {
		return nil, s.mapTransitionErr(err)
	}
	s.notify(order.ClientID, "order_submitted", updated)
	return updated, nil
}

// Approve принимает работу. Заказ становится завершённым, партнёру реферала
// начисляется комиссия. Сбой начисления не откатывает завершение: комиссия
// идемпотентна и будет доначислена при повторном прогоне.
func (s *OrderService) Approve(ctx context.Context, orderID, userID uuid.UUID, role string) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID != userID && role != models.RoleAdmin {
		return nil, apperror.NewForbidden("принять работу может только клиент заказа")
	}
	if order.Status != models.OrderStatusReview {
		return nil, apperror.NewInvalidTransition(order.Status, models.OrderStatusCompleted)
	}

	updated, err := s.orders.UpdateStatus(ctx, orderID, models.OrderStatusReview, models.OrderStatusCompleted, userID)
	if err != nil {
		return nil, s.mapTransitionErr(err)
	}

	if s.commission != nil {
		if err := s.commission.RecordOrderCommission(ctx, updated); err != nil {
			logger.Log.WithError(err).WithField("order_id", orderID).
				Error("не удалось начислить партнёрскую комиссию")
		}
	}

	if updated.ExpertID != nil {
		s.notify(*updated.ExpertID, "order_completed", updated)
	}
	return updated, nil
}

// RequestRevision возвращает работу на доработку.
func (s *OrderService) RequestRevision(ctx context.Context, orderID, userID uuid.UUID, role string) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID != userID && role != models.RoleAdmin {
		return nil, apperror.NewForbidden("вернуть работу на доработку может только клиент заказа")
	}
	if order.Status != models.OrderStatusReview {
		return nil, apperror.NewInvalidTransition(order.Status, models.OrderStatusRevision)
	}

	updated, err := s.orders.UpdateStatus(ctx, orderID, models.OrderStatusReview, models.OrderStatusRevision, userID)
	if err != nil {
		return nil, s.mapTransitionErr(err)
	}
	if updated.ExpertID != nil {
		s.notify(*updated.ExpertID, "order_revision", updated)
	}
	return updated, nil
}

// Cancel отменяет заказ. Допускается из new и in_progress; сданная на
// проверку работа отменена быть не может, разногласия решаются через спор.
func (s *OrderService) Cancel(ctx context.Context, orderID, userID uuid.UUID, role string) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID != userID && role != models.RoleAdmin {
		return nil, apperror.NewForbidden("отменить заказ может только клиент заказа")
	}
	if order.Status != models.OrderStatusNew && order.Status != models.OrderStatusInProgress {
		return nil, apperror.NewInvalidTransition(order.Status, models.OrderStatusCancelled)
	}

	expertID := order.ExpertID
	updated, err := s.orders.Cancel(ctx, orderID, order.Status, userID)
	if err != nil {
		return nil, s.mapTransitionErr(err)
	}
	if expertID != nil {
		s.notify(*expertID, "order_cancelled", updated)
	}
	return updated, nil
}

// AddComment добавляет комментарий участника или staff к заказу.
func (s *OrderService) AddComment(ctx context.Context, orderID, authorID uuid.UUID, role, text string) (*models.OrderComment, error) {
	if err := validation.ValidateLength("комментарий", text, 1, validation.MaxCommentLength); err != nil {
		return nil, apperror.NewValidation("%v", err)
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsParticipant(authorID) && !models.IsStaffRole(role) {
		return nil, apperror.NewForbidden("комментировать заказ могут только его участники")
	}

	comment := &models.OrderComment{
		OrderID:  orderID,
		AuthorID: authorID,
		Text:     text,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments возвращает комментарии заказа.
func (s *OrderService) ListComments(ctx context.Context, orderID, userID uuid.UUID, role string) ([]models.OrderComment, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsParticipant(userID) && !models.IsStaffRole(role) {
		return nil, apperror.NewForbidden("комментарии видны только участникам заказа")
	}
	return s.comments.ListByOrder(ctx, orderID)
}

// History возвращает аудит переходов статуса заказа.
func (s *OrderService) History(ctx context.Context, orderID, userID uuid.UUID, role string) ([]models.OrderHistory, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsParticipant(userID) && !models.IsStaffRole(role) {
		return nil, apperror.NewForbidden("история заказа видна только участникам")
	}
	return s.orders.ListHistory(ctx, orderID)
}

// ClientDashboard возвращает агрегаты и заказы клиента.
func (s *OrderService) ClientDashboard(ctx context.Context, clientID uuid.UUID) (*models.ClientStats, []models.Order, error) {
	stats, err := s.orders.GetClientStats(ctx, clientID)
	if err != nil {
		return nil, nil, err
	}
	orders, err := s.orders.ListByParticipant(ctx, clientID, 50, 0)
	if err != nil {
		return nil, nil, err
	}
	return stats, orders, nil
}

func (s *OrderService) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, apperror.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) checkVisibility(order *models.Order, userID uuid.UUID, role string) error {
	if order.IsParticipant(userID) || models.IsStaffRole(role) {
		return nil
	}
	if order.Status == models.OrderStatusNew && role == models.RoleExpert {
		return nil
	}
	return apperror.NewForbidden("заказ недоступен")
}

// mapTransitionErr транслирует проигрыш compare-and-set в CONFLICT.
// Статус прошёл проверку по графу переходов до гонки, поэтому это не
// INVALID_TRANSITION: другой вызов успел изменить заказ первым.
func (s *OrderService) mapTransitionErr(err error) error {
	if errors.Is(err, repository.ErrStatusConflict) {
		return apperror.NewConflict("заказ был изменён конкурентным запросом")
	}
	if errors.Is(err, repository.ErrOrderNotFound) {
		return apperror.ErrOrderNotFound
	}
	return err
}

func (s *OrderService) notify(userID uuid.UUID, event string, data any) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BroadcastToUser(userID, event, data); err != nil {
		logger.Log.WithError(err).WithField("event", event).Debug("не удалось отправить уведомление")
	}
}
