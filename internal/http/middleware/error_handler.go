package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/studymarket/backend/internal/logger"
	"github.com/studymarket/backend/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки централизованно. Ошибки AppError
// транслируются в свой HTTP статус и код, всё остальное маскируется как
// внутренняя ошибка сервера.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		if appErr, ok := apperror.As(err); ok {
			// Конфликты конкурентного доступа штатны, это не сбой сервера.
			if apperror.IsConflict(err) || apperror.IsInvalidTransition(err) {
				logger.Log.WithFields(logrus.Fields{
					"code": appErr.Code,
					"path": c.Request.URL.Path,
				}).Debug(appErr.Message)
			} else {
				logger.Log.WithFields(logrus.Fields{
					"code":   appErr.Code,
					"path":   c.Request.URL.Path,
					"method": c.Request.Method,
				}).Warn(appErr.Message)
			}
			c.JSON(appErr.HTTPStatus, gin.H{"error": appErr.Message, "code": appErr.Code})
			return
		}

		logger.Log.WithFields(logrus.Fields{
			"error":  err.Error(),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).Error("Request error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "внутренняя ошибка сервера",
			"code":  apperror.ErrCodeInternal,
		})
	}
}
