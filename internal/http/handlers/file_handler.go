package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"

	"github.com/studymarket/backend/internal/http/handlers/common"
	"github.com/studymarket/backend/internal/models"
	"github.com/studymarket/backend/internal/pkg/apperror"
	"github.com/studymarket/backend/internal/repository"
	"github.com/studymarket/backend/internal/storage"
)

// Разрешённые расширения документов заказа.
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
	".ppt":  true,
	".pptx": true,
	".txt":  true,
	".zip":  true,
	".rar":  true,
	".7z":   true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// FileHandler управляет файлами заказов: заданиями клиента и решениями
// эксперта.
type FileHandler struct {
	files   *repository.FileRepository
	orders  *repository.OrderRepository
	storage *storage.FileStorage
}

// NewFileHandler создаёт новый хэндлер.
func NewFileHandler(files *repository.FileRepository, orders *repository.OrderRepository, storage *storage.FileStorage) *FileHandler {
	return &FileHandler{files: files, orders: orders, storage: storage}
}

// UploadFile обрабатывает POST /orders/orders/:id/files/.
func (h *FileHandler) UploadFile(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	order, err := h.orders.GetByID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			common.RespondNotFound(c, "заказ не найден")
			return
		}
		common.RespondAppError(c, err)
		return
	}

	fileType := c.PostForm("file_type")
	category, ok := models.Categorize(fileType)
	if !ok {
		common.RespondBadRequest(c, fmt.Sprintf("недопустимый тип файла: %s", fileType))
		return
	}

	// Задания загружает клиент заказа, решения и доработки — назначенный
	// эксперт.
	switch category.UploaderRole {
	case models.RoleClient:
		if order.ClientID != userID {
			common.RespondAppError(c, apperror.NewForbidden("загружать задание может только клиент заказа"))
			return
		}
	case models.RoleExpert:
		if order.ExpertID == nil || *order.ExpertID != userID {
			common.RespondAppError(c, apperror.NewForbidden("загружать решение может только назначенный эксперт"))
			return
		}
	}

	file, err := c.FormFile("file")
	if err != nil {
		common.RespondBadRequest(c, "поле file обязательно")
		return
	}
	if file.Size == 0 {
		common.RespondBadRequest(c, "файл не может быть пустым")
		return
	}
	if file.Size > h.storage.MaxUploadBytes() {
		common.RespondBadRequest(c, "размер файла превышает лимит")
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		common.RespondBadRequest(c, fmt.Sprintf("неподдерживаемый формат файла. Разрешены: %s", strings.Join(listAllowedExtensions(), ", ")))
		return
	}

	src, err := file.Open()
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	defer src.Close()

	// Определяем реальный тип по магическим байтам. Текстовые файлы сигнатуры
	// не имеют, для них допускается Unknown.
	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil && err != io.EOF {
		common.RespondBadRequest(c, "не удалось прочитать файл")
		return
	}

	contentType := "application/octet-stream"
	kind, err := filetype.Match(buffer[:n])
	if err == nil && kind != filetype.Unknown {
		contentType = kind.MIME.Value
	} else if ext != ".txt" {
		common.RespondBadRequest(c, "не удалось определить тип файла")
		return
	} else {
		contentType = "text/plain"
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		common.RespondAppError(c, err)
		return
	}

	relativePath, size, err := h.storage.Save(c.Request.Context(), orderID, file.Filename, src)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	var description *string
	if d := c.PostForm("description"); d != "" {
		description = &d
	}

	orderFile := &models.OrderFile{
		OrderID:     orderID,
		UploadedBy:  userID,
		FileType:    fileType,
		FileName:    file.Filename,
		StoragePath: filepath.ToSlash(relativePath),
		ContentType: contentType,
		SizeBytes:   size,
		Description: description,
	}
	if err := h.files.Create(c.Request.Context(), orderFile); err != nil {
		_ = h.storage.Delete(c.Request.Context(), relativePath)
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, orderFile)
}

// ListFiles обрабатывает GET /orders/orders/:id/files/.
func (h *FileHandler) ListFiles(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	order, err := h.orders.GetByID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			common.RespondNotFound(c, "заказ не найден")
			return
		}
		common.RespondAppError(c, err)
		return
	}
	if !order.IsParticipant(userID) && !models.IsStaffRole(role) {
		common.RespondAppError(c, apperror.NewForbidden("файлы заказа видны только участникам"))
		return
	}

	files, err := h.files.ListByOrder(c.Request.Context(), orderID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, files)
}

// DownloadFile обрабатывает GET /orders/orders/:id/files/:fileId/download/.
func (h *FileHandler) DownloadFile(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	fileID, err := common.ParseUUIDParam(c, "fileId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	orderFile, err := h.files.GetByID(c.Request.Context(), fileID)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			common.RespondNotFound(c, "файл не найден")
			return
		}
		common.RespondAppError(c, err)
		return
	}
	if orderFile.OrderID != orderID {
		common.RespondNotFound(c, "файл не найден")
		return
	}

	order, err := h.orders.GetByID(c.Request.Context(), orderFile.OrderID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	if !order.IsParticipant(userID) && !models.IsStaffRole(role) {
		common.RespondAppError(c, apperror.NewForbidden("файлы заказа видны только участникам"))
		return
	}

	f, err := h.storage.Open(c.Request.Context(), orderFile.StoragePath)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", orderFile.FileName))
	c.Header("Content-Type", orderFile.ContentType)
	c.DataFromReader(http.StatusOK, orderFile.SizeBytes, orderFile.ContentType, f, nil)
}

func listAllowedExtensions() []string {
	exts := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
