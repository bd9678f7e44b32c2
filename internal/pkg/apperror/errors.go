package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// AppError единый тип ошибок движка. Код различает ошибку валидации,
// недопустимый переход статуса и конфликт конкурентного изменения —
// фронтенд показывает для них разные сообщения.
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// NewValidation ошибка валидации входных данных.
func NewValidation(format string, args ...interface{}) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf(format, args...))
}

// NewInvalidTransition недопустимый переход статуса заказа.
// Сообщение всегда называет отклонённую пару (from, to).
func NewInvalidTransition(from, to string) *AppError {
	return New(ErrCodeInvalidTransition,
		fmt.Sprintf("переход статуса %s -> %s не разрешён", from, to))
}

// NewConflict конкурентное изменение опередило вызывающего.
func NewConflict(message string) *AppError {
	return New(ErrCodeConflict, message)
}

// NewForbidden у пользователя нет роли или владения, требуемых для действия.
func NewForbidden(message string) *AppError {
	if message == "" {
		message = "недостаточно прав"
	}
	return New(ErrCodeForbidden, message)
}

// NewNotFound сущность не найдена.
func NewNotFound(message string) *AppError {
	return New(ErrCodeNotFound, message)
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeInvalidTransition, ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func As(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

func IsNotFound(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == ErrCodeForbidden
}

func IsValidation(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == ErrCodeValidation
}

func IsInvalidTransition(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == ErrCodeInvalidTransition
}

// IsConflict true для конфликтов конкурентного доступа. Такие ошибки —
// штатная ситуация под нагрузкой, их не логируют как сбой сервера.
func IsConflict(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == ErrCodeConflict
}

var (
	ErrOrderNotFound   = New(ErrCodeNotFound, "заказ не найден")
	ErrBidNotFound     = New(ErrCodeNotFound, "ставка не найдена")
	ErrDisputeNotFound = New(ErrCodeNotFound, "спор не найден")
	ErrEarningNotFound = New(ErrCodeNotFound, "начисление не найдено")
	ErrUserNotFound    = New(ErrCodeNotFound, "пользователь не найден")
	ErrUnauthorized    = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden       = New(ErrCodeForbidden, "недостаточно прав")
)
