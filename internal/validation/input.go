package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength         = 3
	MaxUsernameLength         = 30
	MinOrderTitleLength       = 3
	MaxOrderTitleLength       = 255
	MinOrderDescriptionLength = 10
	MaxOrderDescriptionLength = 5000
	MaxBidCommentLength       = 2000
	MaxCommentLength          = 5000
	MinDisputeReasonLength    = 1
	MaxDisputeReasonLength    = 5000
	MinDisputeResultLength    = 10
	MaxDisputeResultLength    = 5000
	MinBudget                 = 0.0
	MaxBudget                 = 100000000.0 // 100 миллионов
)

// ValidateLength проверяет длину строки в рунах.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart, domainPart := parts[0], parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}
	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}
	if !strings.Contains(domainPart, ".") {
		return fmt.Errorf("домен email должен содержать точку")
	}

	return nil
}

// ValidateBudget проверяет, что бюджет в допустимом диапазоне.
func ValidateBudget(budget float64) error {
	if budget <= MinBudget {
		return fmt.Errorf("бюджет должен быть больше нуля")
	}
	if budget > MaxBudget {
		return fmt.Errorf("бюджет не может превышать %.0f", MaxBudget)
	}
	return nil
}

// ValidateAmount проверяет сумму ставки.
func ValidateAmount(amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("сумма ставки должна быть больше нуля")
	}
	if amount > MaxBudget {
		return fmt.Errorf("сумма ставки не может превышать %.0f", MaxBudget)
	}
	return nil
}

// ValidatePassword проверяет минимальные требования к паролю.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < 8 {
		return fmt.Errorf("пароль должен быть не менее 8 символов")
	}
	return nil
}
