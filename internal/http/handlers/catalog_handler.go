package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studymarket/backend/internal/http/handlers/common"
	"github.com/studymarket/backend/internal/repository"
)

// CatalogHandler отдаёт справочники. Данные только для чтения, наполнение
// идёт миграциями, поэтому хэндлер работает с репозиторием напрямую.
type CatalogHandler struct {
	catalog *repository.CatalogRepository
}

// NewCatalogHandler создаёт новый хэндлер.
func NewCatalogHandler(catalog *repository.CatalogRepository) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListSubjects обрабатывает GET /catalog/subjects/.
func (h *CatalogHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.catalog.ListSubjects(c.Request.Context())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, subjects)
}

// ListTopics обрабатывает GET /catalog/subjects/:id/topics/.
func (h *CatalogHandler) ListTopics(c *gin.Context) {
	subjectID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	topics, err := h.catalog.ListTopics(c.Request.Context(), subjectID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, topics)
}

// ListWorkTypes обрабатывает GET /catalog/work_types/.
func (h *CatalogHandler) ListWorkTypes(c *gin.Context) {
	workTypes, err := h.catalog.ListWorkTypes(c.Request.Context())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, workTypes)
}

// ListComplexities обрабатывает GET /catalog/complexities/.
func (h *CatalogHandler) ListComplexities(c *gin.Context) {
	complexities, err := h.catalog.ListComplexities(c.Request.Context())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, complexities)
}
