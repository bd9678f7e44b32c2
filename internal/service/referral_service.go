package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/studymarket/backend/internal/logger"
	"github.com/studymarket/backend/internal/models"
	"github.com/studymarket/backend/internal/pkg/apperror"
	"github.com/studymarket/backend/internal/repository"
)

// EarningRepository описывает зависимости ReferralService от хранилища
// начислений.
type EarningRepository interface {
	InsertOrderCommission(ctx context.Context, e *models.PartnerEarning) (bool, error)
	InsertRegistrationBonus(ctx context.Context, e *models.PartnerEarning) error
	MarkPaid(ctx context.Context, earningID uuid.UUID) (*models.PartnerEarning, error)
	ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]models.PartnerEarning, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.PartnerEarning, error)
	GetStats(ctx context.Context, partnerID uuid.UUID) (*models.PartnerStats, error)
}

// ReferralUserRepository подмножество операций пользователей для партнёрки.
type ReferralUserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetReferralCode(ctx context.Context, userID uuid.UUID, code string) (string, error)
	ListReferrals(ctx context.Context, partnerID uuid.UUID) ([]models.ReferralInfo, error)
}

// ReferralService реализует партнёрскую программу: реферальные ссылки,
// комиссию с завершённых заказов рефералов и бонусы за регистрацию.
type ReferralService struct {
	earnings          EarningRepository
	users             ReferralUserRepository
	referralBaseURL   string
	registrationBonus float64
}

// NewReferralService создаёт сервис партнёрской программы.
func NewReferralService(earnings EarningRepository, users ReferralUserRepository, referralBaseURL string, registrationBonus float64) *ReferralService {
	return &ReferralService{
		earnings:          earnings,
		users:             users,
		referralBaseURL:   referralBaseURL,
		registrationBonus: registrationBonus,
	}
}

// RecordOrderCommission начисляет партнёру комиссию за завершённый заказ
// реферала. Если клиент пришёл без партнёра, начисления нет. Операция
// идемпотентна: по паре (партнёр, заказ) комиссия начисляется один раз.
func (s *ReferralService) RecordOrderCommission(ctx context.Context, order *models.Order) error {
	client, err := s.users.GetByID(ctx, order.ClientID)
	if err != nil {
		return err
	}
	if client.PartnerID == nil {
		return nil
	}

	partner, err := s.users.GetByID(ctx, *client.PartnerID)
	if err != nil {
		return err
	}

	amount := order.AgreedPrice() * partner.CommissionRate / 100
	if amount <= 0 {
		return nil
	}

	orderID := order.ID
	earning := &models.PartnerEarning{
		PartnerID:   partner.ID,
		ReferralID:  client.ID,
		OrderID:     &orderID,
		Amount:      amount,
		EarningType: models.EarningTypeOrder,
	}
	inserted, err := s.earnings.InsertOrderCommission(ctx, earning)
	if err != nil {
		return err
	}
	if inserted {
		logger.Log.WithField("partner_id", partner.ID).
			WithField("order_id", order.ID).
			WithField("amount", amount).
			Info("начислена партнёрская комиссия")
	}
	return nil
}

// RecordRegistrationBonus начисляет партнёру фиксированный бонус за
// регистрацию приведённого пользователя.
func (s *ReferralService) RecordRegistrationBonus(ctx context.Context, partnerID, referralID uuid.UUID) error {
	if s.registrationBonus <= 0 {
		return nil
	}
	return s.earnings.InsertRegistrationBonus(ctx, &models.PartnerEarning{
		PartnerID:   partnerID,
		ReferralID:  referralID,
		Amount:      s.registrationBonus,
		EarningType: models.EarningTypeRegistration,
	})
}

// GenerateReferralLink возвращает реферальную ссылку партнёра. Код
// генерируется один раз и дальше переиспользуется; конкурентные вызовы
// получают одно и то же значение.
func (s *ReferralService) GenerateReferralLink(ctx context.Context, userID uuid.UUID, role string) (string, string, error) {
	if role != models.RolePartner {
		return "", "", apperror.NewForbidden("реферальные ссылки доступны только партнёрам")
	}

	code := strings.ToUpper(uuid.NewString()[:8])
	current, err := s.users.SetReferralCode(ctx, userID, code)
	if errors.Is(err, repository.ErrUserNotFound) {
		return "", "", apperror.ErrUserNotFound
	}
	if err != nil {
		return "", "", err
	}

	link := s.referralBaseURL + "/?ref=" + current
	return current, link, nil
}

// PartnerDashboard возвращает агрегаты, рефералов и начисления партнёра.
func (s *ReferralService) PartnerDashboard(ctx context.Context, userID uuid.UUID, role string) (*models.PartnerStats, []models.ReferralInfo, []models.PartnerEarning, error) {
	if role != models.RolePartner {
		return nil, nil, nil, apperror.NewForbidden("кабинет партнёра доступен только партнёрам")
	}

	stats, err := s.earnings.GetStats(ctx, userID)
	if err != nil {
		return nil, nil, nil, err
	}
	referrals, err := s.users.ListReferrals(ctx, userID)
	if err != nil {
		return nil, nil, nil, err
	}
	earnings, err := s.earnings.ListByPartner(ctx, userID)
	if err != nil {
		return nil, nil, nil, err
	}
	return stats, referrals, earnings, nil
}

// MarkEarningPaid помечает начисление выплаченным. Только администратор,
// повторная выплата отклоняется.
func (s *ReferralService) MarkEarningPaid(ctx context.Context, earningID uuid.UUID, role string) (*models.PartnerEarning, error) {
	if role != models.RoleAdmin {
		return nil, apperror.NewForbidden("отмечать выплаты может только администратор")
	}

	updated, err := s.earnings.MarkPaid(ctx, earningID)
	switch {
	case errors.Is(err, repository.ErrEarningNotFound):
		return nil, apperror.ErrEarningNotFound
	case errors.Is(err, repository.ErrEarningPaid):
		return nil, apperror.NewConflict("начисление уже выплачено")
	case err != nil:
		return nil, err
	}
	return updated, nil
}

// ListAllEarnings возвращает все начисления для администратора.
func (s *ReferralService) ListAllEarnings(ctx context.Context, role string, limit, offset int) ([]models.PartnerEarning, error) {
	if role != models.RoleAdmin {
		return nil, apperror.NewForbidden("список начислений доступен только администратору")
	}
	return s.earnings.ListAll(ctx, limit, offset)
}
