package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studymarket/backend/internal/dto"
	"github.com/studymarket/backend/internal/http/handlers/common"
	"github.com/studymarket/backend/internal/service"
)

// PartnerHandler отвечает за партнёрскую программу.
type PartnerHandler struct {
	referrals *service.ReferralService
}

// NewPartnerHandler создаёт новый хэндлер.
func NewPartnerHandler(referrals *service.ReferralService) *PartnerHandler {
	return &PartnerHandler{referrals: referrals}
}

// GenerateReferralLink обрабатывает POST /users/generate_referral_link/.
func (h *PartnerHandler) GenerateReferralLink(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	code, link, err := h.referrals.GenerateReferralLink(c.Request.Context(), userID, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ReferralLinkResponse{
		ReferralCode: code,
		ReferralLink: link,
	})
}

// PartnerDashboard обрабатывает GET /users/partner_dashboard/.
func (h *PartnerHandler) PartnerDashboard(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	stats, referrals, earnings, err := h.referrals.PartnerDashboard(c.Request.Context(), userID, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.PartnerDashboardResponse{
		Stats:     stats,
		Referrals: referrals,
		Earnings:  earnings,
	})
}

// ListEarnings обрабатывает GET /users/admin_earnings/.
func (h *PartnerHandler) ListEarnings(c *gin.Context) {
	_, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)
	limit, offset := common.GetPagination(c)

	earnings, err := h.referrals.ListAllEarnings(c.Request.Context(), role, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, earnings)
}

// MarkEarningPaid обрабатывает POST /users/admin_mark_earning_paid/.
func (h *PartnerHandler) MarkEarningPaid(c *gin.Context) {
	_, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	var req dto.MarkEarningPaidRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	earning, err := h.referrals.MarkEarningPaid(c.Request.Context(), req.EarningID, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, earning)
}
