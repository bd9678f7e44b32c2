package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/studymarket/backend/internal/models"
	"github.com/studymarket/backend/internal/pkg/apperror"
	"github.com/studymarket/backend/internal/repository"
)

type mockDisputeRepo struct {
	mock.Mock
}

func (m *mockDisputeRepo) Create(ctx context.Context, d *models.Dispute) error {
	args := m.Called(ctx, d)
	if args.Error(0) == nil {
		d.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockDisputeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) ListAll(ctx context.Context, limit, offset int) ([]models.Dispute, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) AssignArbitrator(ctx context.Context, disputeID, arbitratorID uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, disputeID, arbitratorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) Resolve(ctx context.Context, disputeID uuid.UUID, result string) (*models.Dispute, error) {
	args := m.Called(ctx, disputeID, result)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

type mockDisputeUserRepo struct {
	mock.Mock
}

func (m *mockDisputeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockDisputeUserRepo) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func newDisputeService(disputes *mockDisputeRepo, orders *mockBidOrderRepo, users *mockDisputeUserRepo) *DisputeService {
	return NewDisputeService(disputes, orders, users, nil)
}

func TestDisputeService_Create(t *testing.T) {
	clientID := uuid.New()
	expertID := uuid.New()

	t.Run("спор по заказу в работе не открывается", func(t *testing.T) {
		orders := &mockBidOrderRepo{}
		svc := newDisputeService(&mockDisputeRepo{}, orders, &mockDisputeUserRepo{})
		order := makeOrder(clientID, &expertID, models.OrderStatusInProgress)
		orders.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()

		_, err := svc.Create(context.Background(), order.ID, clientID, models.RoleClient, "работа не сдана")
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("посторонний не может открыть спор", func(t *testing.T) {
		orders := &mockBidOrderRepo{}
		svc := newDisputeService(&mockDisputeRepo{}, orders, &mockDisputeUserRepo{})
		order := makeOrder(clientID, &expertID, models.OrderStatusReview)
		orders.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()

		_, err := svc.Create(context.Background(), order.ID, uuid.New(), models.RoleExpert, "работа выполнена плохо")
		assert.True(t, apperror.IsForbidden(err))
	})

	t.Run("повторный спор по заказу", func(t *testing.T) {
		disputes := &mockDisputeRepo{}
		orders := &mockBidOrderRepo{}
		svc := newDisputeService(disputes, orders, &mockDisputeUserRepo{})
		order := makeOrder(clientID, &expertID, models.OrderStatusReview)

		orders.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
		disputes.On("Create", mock.Anything, mock.AnythingOfType("*models.Dispute")).Return(repository.ErrDisputeExists).Once()

		_, err := svc.Create(context.Background(), order.ID, clientID, models.RoleClient, "работа выполнена плохо")
		assert.True(t, apperror.IsConflict(err))
	})

	t.Run("эксперт открывает спор по завершённому заказу", func(t *testing.T) {
		disputes := &mockDisputeRepo{}
		orders := &mockBidOrderRepo{}
		svc := newDisputeService(disputes, orders, &mockDisputeUserRepo{})
		order := makeOrder(clientID, &expertID, models.OrderStatusCompleted)

		orders.On("GetByID", mock.Anything, order.ID).Return(order, nil).Once()
		disputes.On("Create", mock.Anything, mock.AnythingOfType("*models.Dispute")).Return(nil).Once()

		d, err := svc.Create(context.Background(), order.ID, expertID, models.RoleExpert, "оплата не согласована")
		assert.NoError(t, err)
		assert.Equal(t, expertID, d.InitiatorID)
		assert.False(t, d.Resolved)
	})
}

func TestDisputeService_AssignArbitrator(t *testing.T) {
	disputeID := uuid.New()
	arbitratorID := uuid.New()

	t.Run("только администратор", func(t *testing.T) {
		svc := newDisputeService(&mockDisputeRepo{}, &mockBidOrderRepo{}, &mockDisputeUserRepo{})
		_, err := svc.AssignArbitrator(context.Background(), disputeID, arbitratorID, models.RoleArbitrator)
		assert.True(t, apperror.IsForbidden(err))
	})

	t.Run("назначаемый пользователь не арбитр", func(t *testing.T) {
		users := &mockDisputeUserRepo{}
		svc := newDisputeService(&mockDisputeRepo{}, &mockBidOrderRepo{}, users)
		users.On("GetByID", mock.Anything, arbitratorID).Return(&models.User{ID: arbitratorID, Username: "vasya", Role: models.RoleExpert}, nil).Once()

		_, err := svc.AssignArbitrator(context.Background(), disputeID, arbitratorID, models.RoleAdmin)
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("успешное назначение", func(t *testing.T) {
		disputes := &mockDisputeRepo{}
		users := &mockDisputeUserRepo{}
		svc := newDisputeService(disputes, &mockBidOrderRepo{}, users)

		assigned := &models.Dispute{ID: disputeID, ArbitratorID: &arbitratorID}
		users.On("GetByID", mock.Anything, arbitratorID).Return(&models.User{ID: arbitratorID, Role: models.RoleArbitrator}, nil).Once()
		disputes.On("AssignArbitrator", mock.Anything, disputeID, arbitratorID).Return(assigned, nil).Once()

		d, err := svc.AssignArbitrator(context.Background(), disputeID, arbitratorID, models.RoleAdmin)
		assert.NoError(t, err)
		assert.Equal(t, arbitratorID, *d.ArbitratorID)
	})
}

func TestDisputeService_ListArbitrators(t *testing.T) {
	users := &mockDisputeUserRepo{}
	svc := newDisputeService(&mockDisputeRepo{}, &mockBidOrderRepo{}, users)

	_, err := svc.ListArbitrators(context.Background(), models.RoleArbitrator)
	assert.True(t, apperror.IsForbidden(err))

	users.On("ListByRole", mock.Anything, models.RoleArbitrator).Return([]models.User{{Role: models.RoleArbitrator}}, nil).Once()
	arbitrators, err := svc.ListArbitrators(context.Background(), models.RoleAdmin)
	assert.NoError(t, err)
	assert.Len(t, arbitrators, 1)
}

func TestDisputeService_Resolve(t *testing.T) {
	disputeID := uuid.New()
	arbitratorID := uuid.New()
	result := "возврат половины суммы клиенту"

	t.Run("слишком короткое решение", func(t *testing.T) {
		svc := newDisputeService(&mockDisputeRepo{}, &mockBidOrderRepo{}, &mockDisputeUserRepo{})
		_, err := svc.Resolve(context.Background(), disputeID, arbitratorID, "ок")
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("решение выносит только назначенный арбитр", func(t *testing.T) {
		disputes := &mockDisputeRepo{}
		svc := newDisputeService(disputes, &mockBidOrderRepo{}, &mockDisputeUserRepo{})
		d := &models.Dispute{ID: disputeID, ArbitratorID: &arbitratorID}
		disputes.On("GetByID", mock.Anything, disputeID).Return(d, nil).Once()

		_, err := svc.Resolve(context.Background(), disputeID, uuid.New(), result)
		assert.True(t, apperror.IsForbidden(err))
	})

	t.Run("повторное решение", func(t *testing.T) {
		disputes := &mockDisputeRepo{}
		svc := newDisputeService(disputes, &mockBidOrderRepo{}, &mockDisputeUserRepo{})
		d := &models.Dispute{ID: disputeID, ArbitratorID: &arbitratorID}

		disputes.On("GetByID", mock.Anything, disputeID).Return(d, nil).Once()
		disputes.On("Resolve", mock.Anything, disputeID, result).Return(nil, repository.ErrDisputeResolved).Once()

		_, err := svc.Resolve(context.Background(), disputeID, arbitratorID, result)
		assert.True(t, apperror.IsConflict(err))
	})

	t.Run("успешное решение", func(t *testing.T) {
		disputes := &mockDisputeRepo{}
		svc := newDisputeService(disputes, &mockBidOrderRepo{}, &mockDisputeUserRepo{})
		d := &models.Dispute{ID: disputeID, ArbitratorID: &arbitratorID}
		resolved := &models.Dispute{ID: disputeID, ArbitratorID: &arbitratorID, Resolved: true, Result: &result}

		disputes.On("GetByID", mock.Anything, disputeID).Return(d, nil).Once()
		disputes.On("Resolve", mock.Anything, disputeID, result).Return(resolved, nil).Once()

		got, err := svc.Resolve(context.Background(), disputeID, arbitratorID, result)
		assert.NoError(t, err)
		assert.True(t, got.Resolved)
		assert.Equal(t, result, *got.Result)
	})
}
