package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/studymarket/backend/internal/models"
	"github.com/studymarket/backend/internal/pkg/apperror"
	"github.com/studymarket/backend/internal/repository"
)

type mockEarningRepo struct {
	mock.Mock
}

func (m *mockEarningRepo) InsertOrderCommission(ctx context.Context, e *models.PartnerEarning) (bool, error) {
	args := m.Called(ctx, e)
	return args.Bool(0), args.Error(1)
}

func (m *mockEarningRepo) InsertRegistrationBonus(ctx context.Context, e *models.PartnerEarning) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *mockEarningRepo) MarkPaid(ctx context.Context, earningID uuid.UUID) (*models.PartnerEarning, error) {
	args := m.Called(ctx, earningID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PartnerEarning), args.Error(1)
}

func (m *mockEarningRepo) ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]models.PartnerEarning, error) {
	args := m.Called(ctx, partnerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PartnerEarning), args.Error(1)
}

func (m *mockEarningRepo) ListAll(ctx context.Context, limit, offset int) ([]models.PartnerEarning, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PartnerEarning), args.Error(1)
}

func (m *mockEarningRepo) GetStats(ctx context.Context, partnerID uuid.UUID) (*models.PartnerStats, error) {
	args := m.Called(ctx, partnerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PartnerStats), args.Error(1)
}

type mockReferralUserRepo struct {
	mock.Mock
}

func (m *mockReferralUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockReferralUserRepo) SetReferralCode(ctx context.Context, userID uuid.UUID, code string) (string, error) {
	args := m.Called(ctx, userID, code)
	return args.String(0), args.Error(1)
}

func (m *mockReferralUserRepo) ListReferrals(ctx context.Context, partnerID uuid.UUID) ([]models.ReferralInfo, error) {
	args := m.Called(ctx, partnerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReferralInfo), args.Error(1)
}

func TestReferralService_RecordOrderCommission(t *testing.T) {
	partnerID := uuid.New()
	clientID := uuid.New()
	expertID := uuid.New()

	t.Run("клиент без партнёра — начисления нет", func(t *testing.T) {
		earnings := &mockEarningRepo{}
		users := &mockReferralUserRepo{}
		svc := NewReferralService(earnings, users, "https://studymarket.ru", 50)

		order := makeOrder(clientID, &expertID, models.OrderStatusCompleted)
		users.On("GetByID", mock.Anything, clientID).Return(&models.User{ID: clientID, Role: models.RoleClient}, nil).Once()

		err := svc.RecordOrderCommission(context.Background(), order)
		assert.NoError(t, err)
		earnings.AssertNotCalled(t, "InsertOrderCommission", mock.Anything, mock.Anything)
	})

	t.Run("комиссия считается от цены принятой ставки", func(t *testing.T) {
		earnings := &mockEarningRepo{}
		users := &mockReferralUserRepo{}
		svc := NewReferralService(earnings, users, "https://studymarket.ru", 50)

		price := 2000.0
		order := makeOrder(clientID, &expertID, models.OrderStatusCompleted)
		order.Budget = 5000
		order.FinalPrice = &price

		users.On("GetByID", mock.Anything, clientID).Return(&models.User{ID: clientID, Role: models.RoleClient, PartnerID: &partnerID}, nil).Once()
		users.On("GetByID", mock.Anything, partnerID).Return(&models.User{ID: partnerID, Role: models.RolePartner, CommissionRate: 10}, nil).Once()
		earnings.On("InsertOrderCommission", mock.Anything, mock.MatchedBy(func(e *models.PartnerEarning) bool {
			return e.PartnerID == partnerID && e.ReferralID == clientID &&
				e.OrderID != nil && *e.OrderID == order.ID &&
				e.Amount == 200 && e.EarningType == models.EarningTypeOrder
		})).Return(true, nil).Once()

		err := svc.RecordOrderCommission(context.Background(), order)
		assert.NoError(t, err)
		earnings.AssertExpectations(t)
	})

	t.Run("повторное начисление проглатывается", func(t *testing.T) {
		earnings := &mockEarningRepo{}
		users := &mockReferralUserRepo{}
		svc := NewReferralService(earnings, users, "https://studymarket.ru", 50)

		order := makeOrder(clientID, &expertID, models.OrderStatusCompleted)
		users.On("GetByID", mock.Anything, clientID).Return(&models.User{ID: clientID, PartnerID: &partnerID}, nil).Once()
		users.On("GetByID", mock.Anything, partnerID).Return(&models.User{ID: partnerID, CommissionRate: 10}, nil).Once()
		earnings.On("InsertOrderCommission", mock.Anything, mock.Anything).Return(false, nil).Once()

		err := svc.RecordOrderCommission(context.Background(), order)
		assert.NoError(t, err)
	})

	t.Run("нулевая ставка комиссии — начисления нет", func(t *testing.T) {
		earnings := &mockEarningRepo{}
		users := &mockReferralUserRepo{}
		svc := NewReferralService(earnings, users, "https://studymarket.ru", 50)

		order := makeOrder(clientID, &expertID, models.OrderStatusCompleted)
		users.On("GetByID", mock.Anything, clientID).Return(&models.User{ID: clientID, PartnerID: &partnerID}, nil).Once()
		users.On("GetByID", mock.Anything, partnerID).Return(&models.User{ID: partnerID, CommissionRate: 0}, nil).Once()

		err := svc.RecordOrderCommission(context.Background(), order)
		assert.NoError(t, err)
		earnings.AssertNotCalled(t, "InsertOrderCommission", mock.Anything, mock.Anything)
	})
}

func TestReferralService_RecordRegistrationBonus(t *testing.T) {
	partnerID := uuid.New()
	referralID := uuid.New()

	t.Run("бонус выключен", func(t *testing.T) {
		earnings := &mockEarningRepo{}
		svc := NewReferralService(earnings, &mockReferralUserRepo{}, "https://studymarket.ru", 0)

		err := svc.RecordRegistrationBonus(context.Background(), partnerID, referralID)
		assert.NoError(t, err)
		earnings.AssertNotCalled(t, "InsertRegistrationBonus", mock.Anything, mock.Anything)
	})

	t.Run("бонус начисляется", func(t *testing.T) {
		earnings := &mockEarningRepo{}
		svc := NewReferralService(earnings, &mockReferralUserRepo{}, "https://studymarket.ru", 50)

		earnings.On("InsertRegistrationBonus", mock.Anything, mock.MatchedBy(func(e *models.PartnerEarning) bool {
			return e.PartnerID == partnerID && e.ReferralID == referralID &&
				e.Amount == 50 && e.EarningType == models.EarningTypeRegistration
		})).Return(nil).Once()

		err := svc.RecordRegistrationBonus(context.Background(), partnerID, referralID)
		assert.NoError(t, err)
		earnings.AssertExpectations(t)
	})
}

func TestReferralService_GenerateReferralLink(t *testing.T) {
	partnerID := uuid.New()

	t.Run("только партнёр", func(t *testing.T) {
		svc := NewReferralService(&mockEarningRepo{}, &mockReferralUserRepo{}, "https://studymarket.ru", 50)
		_, _, err := svc.GenerateReferralLink(context.Background(), partnerID, models.RoleClient)
		assert.True(t, apperror.IsForbidden(err))
	})

	t.Run("конкурентный вызов получает уже записанный код", func(t *testing.T) {
		users := &mockReferralUserRepo{}
		svc := NewReferralService(&mockEarningRepo{}, users, "https://studymarket.ru", 50)

		users.On("SetReferralCode", mock.Anything, partnerID, mock.AnythingOfType("string")).Return("AB12CD34", nil).Once()

		code, link, err := svc.GenerateReferralLink(context.Background(), partnerID, models.RolePartner)
		assert.NoError(t, err)
		assert.Equal(t, "AB12CD34", code)
		assert.Equal(t, "https://studymarket.ru/?ref=AB12CD34", link)
		assert.True(t, strings.HasSuffix(link, code))
	})
}

func TestReferralService_MarkEarningPaid(t *testing.T) {
	earningID := uuid.New()

	t.Run("только администратор", func(t *testing.T) {
		svc := NewReferralService(&mockEarningRepo{}, &mockReferralUserRepo{}, "https://studymarket.ru", 50)
		_, err := svc.MarkEarningPaid(context.Background(), earningID, models.RolePartner)
		assert.True(t, apperror.IsForbidden(err))
	})

	t.Run("начисление уже выплачено", func(t *testing.T) {
		earnings := &mockEarningRepo{}
		svc := NewReferralService(earnings, &mockReferralUserRepo{}, "https://studymarket.ru", 50)
		earnings.On("MarkPaid", mock.Anything, earningID).Return(nil, repository.ErrEarningPaid).Once()

		_, err := svc.MarkEarningPaid(context.Background(), earningID, models.RoleAdmin)
		assert.True(t, apperror.IsConflict(err))
	})

	t.Run("начисление не найдено", func(t *testing.T) {
		earnings := &mockEarningRepo{}
		svc := NewReferralService(earnings, &mockReferralUserRepo{}, "https://studymarket.ru", 50)
		earnings.On("MarkPaid", mock.Anything, earningID).Return(nil, repository.ErrEarningNotFound).Once()

		_, err := svc.MarkEarningPaid(context.Background(), earningID, models.RoleAdmin)
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("успешная выплата", func(t *testing.T) {
		earnings := &mockEarningRepo{}
		svc := NewReferralService(earnings, &mockReferralUserRepo{}, "https://studymarket.ru", 50)
		paid := &models.PartnerEarning{ID: earningID, IsPaid: true}
		earnings.On("MarkPaid", mock.Anything, earningID).Return(paid, nil).Once()

		got, err := svc.MarkEarningPaid(context.Background(), earningID, models.RoleAdmin)
		assert.NoError(t, err)
		assert.True(t, got.IsPaid)
	})
}
