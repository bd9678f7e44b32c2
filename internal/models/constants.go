package models

// Роли пользователей платформы.
const (
	RoleClient     = "client"
	RoleExpert     = "expert"
	RolePartner    = "partner"
	RoleArbitrator = "arbitrator"
	RoleAdmin      = "admin"
)

// ValidRoles список валидных ролей.
var ValidRoles = map[string]struct{}{
	RoleClient:     {},
	RoleExpert:     {},
	RolePartner:    {},
	RoleArbitrator: {},
	RoleAdmin:      {},
}

// IsStaffRole возвращает true для ролей с доступом ко всем заказам и спорам.
func IsStaffRole(role string) bool {
	return role == RoleAdmin || role == RoleArbitrator
}

// OrderStatus константы статусов заказов.
const (
	OrderStatusNew        = "new"
	OrderStatusInProgress = "in_progress"
	OrderStatusReview     = "review"
	OrderStatusRevision   = "revision"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

// ValidOrderStatuses список валидных статусов заказов.
var ValidOrderStatuses = map[string]struct{}{
	OrderStatusNew:        {},
	OrderStatusInProgress: {},
	OrderStatusReview:     {},
	OrderStatusRevision:   {},
	OrderStatusCompleted:  {},
	OrderStatusCancelled:  {},
}

// OrderTransitions задаёт граф допустимых переходов статуса.
// Любой переход вне таблицы отклоняется, completed и cancelled терминальны.
var OrderTransitions = map[string]map[string]struct{}{
	OrderStatusNew: {
		OrderStatusInProgress: {},
		OrderStatusCancelled:  {},
	},
	OrderStatusInProgress: {
		OrderStatusReview:    {},
		OrderStatusCancelled: {},
	},
	OrderStatusReview: {
		OrderStatusCompleted: {},
		OrderStatusRevision:  {},
	},
	OrderStatusRevision: {
		OrderStatusReview: {},
	},
	OrderStatusCompleted: {},
	OrderStatusCancelled: {},
}

// CanTransition проверяет допустимость перехода from -> to.
func CanTransition(from, to string) bool {
	targets, ok := OrderTransitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// StatusRequiresExpert возвращает true для статусов, в которых заказ обязан
// иметь назначенного эксперта.
func StatusRequiresExpert(status string) bool {
	switch status {
	case OrderStatusInProgress, OrderStatusReview, OrderStatusRevision, OrderStatusCompleted:
		return true
	}
	return false
}
