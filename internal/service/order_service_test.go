package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/studymarket/backend/internal/models"
	"github.com/studymarket/backend/internal/pkg/apperror"
	"github.com/studymarket/backend/internal/repository"
)

type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) Create(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	if args.Error(0) == nil {
		order.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *mockOrderRepo) ListByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *mockOrderRepo) ListAll(ctx context.Context, limit, offset int) ([]models.Order, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *mockOrderRepo) ListAvailable(ctx context.Context, excludeClientID uuid.UUID, limit, offset int) ([]models.Order, error) {
	args := m.Called(ctx, excludeClientID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to string, actorID uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, orderID, from, to, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *mockOrderRepo) Take(ctx context.Context, orderID, expertID uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, orderID, expertID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *mockOrderRepo) Cancel(ctx context.Context, orderID uuid.UUID, from string, actorID uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, orderID, from, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *mockOrderRepo) ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OrderHistory), args.Error(1)
}

func (m *mockOrderRepo) GetClientStats(ctx context.Context, clientID uuid.UUID) (*models.ClientStats, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ClientStats), args.Error(1)
}

type mockCatalogValidator struct {
	mock.Mock
}

func (m *mockCatalogValidator) ValidateOrderRefs(ctx context.Context, subjectID uuid.UUID, topicID, workTypeID, complexityID *uuid.UUID) error {
	args := m.Called(ctx, subjectID, topicID, workTypeID, complexityID)
	return args.Error(0)
}

type mockCommentRepo struct {
	mock.Mock
}

func (m *mockCommentRepo) Create(ctx context.Context, c *models.OrderComment) error {
	args := m.Called(ctx, c)
	if args.Error(0) == nil {
		c.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockCommentRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderComment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OrderComment), args.Error(1)
}

type mockCommissionRecorder struct {
	mock.Mock
}

func (m *mockCommissionRecorder) RecordOrderCommission(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func newOrderService(orders *mockOrderRepo, catalog *mockCatalogValidator, commission *mockCommissionRecorder) *OrderService {
	var rec CommissionRecorder
	if commission != nil {
		rec = commission
	}
	return NewOrderService(orders, catalog, &mockCommentRepo{}, rec, nil)
}

func makeOrder(clientID uuid.UUID, expertID *uuid.UUID, status string) *models.Order {
	return &models.Order{
		ID:       uuid.New(),
		ClientID: clientID,
		ExpertID: expertID,
		Title:    "Контрольная по матанализу",
		Budget:   1000,
		Deadline: time.Now().Add(72 * time.Hour),
		Status:   status,
	}
}

func TestOrderService_CreateValidation(t *testing.T) {
	orders := &mockOrderRepo{}
	catalog := &mockCatalogValidator{}
	svc := newOrderService(orders, catalog, nil)
	clientID := uuid.New()

	valid := CreateOrderInput{
		Title:       "Контрольная по матанализу",
		Description: "Десять задач на пределы и производные",
		SubjectID:   uuid.New(),
		Budget:      1500,
		Deadline:    time.Now().Add(48 * time.Hour),
	}

	t.Run("эксперт не может создать заказ", func(t *testing.T) {
		_, err := svc.Create(context.Background(), clientID, models.RoleExpert, valid)
		assert.True(t, apperror.IsForbidden(err))
	})

	t.Run("дедлайн в прошлом", func(t *testing.T) {
		in := valid
		in.Deadline = time.Now().Add(-time.Hour)
		_, err := svc.Create(context.Background(), clientID, models.RoleClient, in)
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("нулевой бюджет", func(t *testing.T) {
		in := valid
		in.Budget = 0
		_, err := svc.Create(context.Background(), clientID, models.RoleClient, in)
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("короткий заголовок", func(t *testing.T) {
		in := valid
		in.Title = "ab"
		_, err := svc.Create(context.Background(), clientID, models.RoleClient, in)
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("успешное создание", func(t *testing.T) {
		catalog.On("ValidateOrderRefs", mock.Anything, valid.SubjectID, (*uuid.UUID)(nil), (*uuid.UUID)(nil), (*uuid.UUID)(nil)).Return(nil).Once()
		orders.On("Create", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil).Once()

		order, err := svc.Create(context.Background(), clientID, models.RoleClient, valid)
		assert.NoError(t, err)
		assert.Equal(t, models.OrderStatusNew, order.Status)
		assert.Equal(t, clientID, order.ClientID)
		orders.AssertExpectations(t)
		catalog.AssertExpectations(t)
	})
}

// Каждая операция отклоняет все стартовые статусы, из которых её переход
// не разрешён графом.
func TestOrderService_RejectsDisallowedTransitions(t *testing.T) {
	clientID := uuid.New()
	expertID := uuid.New()

	cases := []struct {
		name     string
		statuses []string
		call     func(svc *OrderService, orderID uuid.UUID) error
	}{
		{
			name:     "take",
			statuses: []string{models.OrderStatusInProgress, models.OrderStatusReview, models.OrderStatusRevision, models.OrderStatusCompleted, models.OrderStatusCancelled},
			call: func(svc *OrderService, orderID uuid.UUID) error {
				_, err := svc.Take(context.Background(), orderID, expertID, models.RoleExpert)
				return err
			},
		},
		{
			name:     "submit",
			statuses: []string{models.OrderStatusNew, models.OrderStatusReview, models.OrderStatusCompleted, models.OrderStatusCancelled},
			call: func(svc *OrderService, orderID uuid.UUID) error {
				_, err := svc.Submit(context.Background(), orderID, expertID)
				return err
			},
		},
		{
			name:     "approve",
			statuses: []string{models.OrderStatusNew, models.OrderStatusInProgress, models.OrderStatusRevision, models.OrderStatusCompleted, models.OrderStatusCancelled},
			call: func(svc *OrderService, orderID uuid.UUID) error {
				_, err := svc.Approve(context.Background(), orderID, clientID, models.RoleClient)
				return err
			},
		},
		{
			name:     "revision",
			statuses: []string{models.OrderStatusNew, models.OrderStatusInProgress, models.OrderStatusRevision, models.OrderStatusCompleted, models.OrderStatusCancelled},
			call: func(svc *OrderService, orderID uuid.UUID) error {
				_, err := svc.RequestRevision(context.Background(), orderID, clientID, models.RoleClient)
				return err
			},
		},
		{
			name:     "cancel",
			statuses: []string{models.OrderStatusReview, models.OrderStatusRevision, models.OrderStatusCompleted, models.OrderStatusCancelled},
			call: func(svc *OrderService, orderID uuid.UUID) error {
				_, err := svc.Cancel(context.Background(), orderID, clientID, models.RoleClient)
				return err
			},
		},
	}

	for _, tc := range cases {
		for _, status := range tc.statuses {
			t.Run(tc.name+"_from_"+status, func(t *testing.T) {
				orders := &mockOrderRepo{}
				svc := newOrderService(orders, &mockCatalogValidator{}, nil)

				order := makeOrder(clientID, &expertID, status)
				if status == models.OrderStatusNew || status == models.OrderStatusCancelled {
					order.ExpertID = nil
				}
				if tc.name == "submit" {
					// Эксперт должен быть назначен, иначе сработает проверка прав.
					order.ExpertID = &expertID
				}
				orders.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()

				err := tc.call(svc, order.ID)
				assert.True(t, apperror.IsInvalidTransition(err), "ожидался INVALID_TRANSITION, получено: %v", err)
			})
		}
	}
}

func TestOrderService_TakeForbiddenForClient(t *testing.T) {
	svc := newOrderService(&mockOrderRepo{}, &mockCatalogValidator{}, nil)
	_, err := svc.Take(context.Background(), uuid.New(), uuid.New(), models.RoleClient)
	assert.True(t, apperror.IsForbidden(err))
}

func TestOrderService_SubmitOnlyAssignedExpert(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := newOrderService(orders, &mockCatalogValidator{}, nil)

	clientID := uuid.New()
	assigned := uuid.New()
	order := makeOrder(clientID, &assigned, models.OrderStatusInProgress)
	orders.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()

	_, err := svc.Submit(context.Background(), order.ID, uuid.New())
	assert.True(t, apperror.IsForbidden(err))
}

func TestOrderService_SubmitFromRevision(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := newOrderService(orders, &mockCatalogValidator{}, nil)

	clientID := uuid.New()
	expertID := uuid.New()
	order := makeOrder(clientID, &expertID, models.OrderStatusRevision)
	updated := makeOrder(clientID, &expertID, models.OrderStatusReview)
	updated.ID = order.ID

	orders.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
	orders.On("UpdateStatus", mock.Anything, order.ID, models.OrderStatusRevision, models.OrderStatusReview, expertID).Return(updated, nil).Once()

	result, err := svc.Submit(context.Background(), order.ID, expertID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusReview, result.Status)
	orders.AssertExpectations(t)
}

func TestOrderService_ApproveRecordsCommission(t *testing.T) {
	orders := &mockOrderRepo{}
	commission := &mockCommissionRecorder{}
	svc := newOrderService(orders, &mockCatalogValidator{}, commission)

	clientID := uuid.New()
	expertID := uuid.New()
	order := makeOrder(clientID, &expertID, models.OrderStatusReview)
	completed := makeOrder(clientID, &expertID, models.OrderStatusCompleted)
	completed.ID = order.ID

	orders.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
	orders.On("UpdateStatus", mock.Anything, order.ID, models.OrderStatusReview, models.OrderStatusCompleted, clientID).Return(completed, nil).Once()
	commission.On("RecordOrderCommission", mock.Anything, completed).Return(nil).Once()

	result, err := svc.Approve(context.Background(), order.ID, clientID, models.RoleClient)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, result.Status)
	commission.AssertExpectations(t)
}

func TestOrderService_ApproveConflictOnLostRace(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := newOrderService(orders, &mockCatalogValidator{}, nil)

	clientID := uuid.New()
	expertID := uuid.New()
	order := makeOrder(clientID, &expertID, models.OrderStatusReview)

	orders.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
	orders.On("UpdateStatus", mock.Anything, order.ID, models.OrderStatusReview, models.OrderStatusCompleted, clientID).Return(nil, repository.ErrStatusConflict).Once()

	_, err := svc.Approve(context.Background(), order.ID, clientID, models.RoleClient)
	assert.True(t, apperror.IsConflict(err))
}

func TestOrderService_ApproveForbiddenForStranger(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := newOrderService(orders, &mockCatalogValidator{}, nil)

	clientID := uuid.New()
	expertID := uuid.New()
	order := makeOrder(clientID, &expertID, models.OrderStatusReview)
	orders.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()

	_, err := svc.Approve(context.Background(), order.ID, uuid.New(), models.RoleClient)
	assert.True(t, apperror.IsForbidden(err))
}

func TestOrderService_CancelKeepsOrderVisible(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := newOrderService(orders, &mockCatalogValidator{}, nil)

	clientID := uuid.New()
	expertID := uuid.New()
	order := makeOrder(clientID, &expertID, models.OrderStatusInProgress)
	cancelled := makeOrder(clientID, nil, models.OrderStatusCancelled)
	cancelled.ID = order.ID

	orders.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
	orders.On("Cancel", mock.Anything, order.ID, models.OrderStatusInProgress, clientID).Return(cancelled, nil).Once()

	result, err := svc.Cancel(context.Background(), order.ID, clientID, models.RoleClient)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, result.Status)
	assert.Nil(t, result.ExpertID)
}

func TestOrderService_GetVisibility(t *testing.T) {
	clientID := uuid.New()
	expertID := uuid.New()

	t.Run("посторонний не видит заказ в работе", func(t *testing.T) {
		orders := &mockOrderRepo{}
		svc := newOrderService(orders, &mockCatalogValidator{}, nil)
		order := makeOrder(clientID, &expertID, models.OrderStatusInProgress)
		orders.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()

		_, err := svc.Get(context.Background(), order.ID, uuid.New(), models.RoleExpert)
		assert.True(t, apperror.IsForbidden(err))
	})

	t.Run("эксперт видит новый заказ", func(t *testing.T) {
		orders := &mockOrderRepo{}
		svc := newOrderService(orders, &mockCatalogValidator{}, nil)
		order := makeOrder(clientID, nil, models.OrderStatusNew)
		orders.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()

		result, err := svc.Get(context.Background(), order.ID, uuid.New(), models.RoleExpert)
		assert.NoError(t, err)
		assert.Equal(t, order.ID, result.ID)
	})

	t.Run("несуществующий заказ", func(t *testing.T) {
		orders := &mockOrderRepo{}
		svc := newOrderService(orders, &mockCatalogValidator{}, nil)
		orderID := uuid.New()
		orders.On("GetByID", mock.Anything, orderID).Return(nil, repository.ErrOrderNotFound).Once()

		_, err := svc.Get(context.Background(), orderID, clientID, models.RoleClient)
		assert.True(t, apperror.IsNotFound(err))
	})
}
