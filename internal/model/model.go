// Package model содержит доменные сущности маркетплейса виртов.
package model

import "time"

// OrderType описывает направление заявки.
type OrderType string

const (
	OrderTypeBuy  OrderType = "buy"
	OrderTypeSell OrderType = "sell"
)

// IsValid сообщает, относится ли значение к допустимым типам заявки.
func (t OrderType) IsValid() bool {
	return t == OrderTypeBuy || t == OrderTypeSell
}

// InitialStatus возвращает статус, с которым создаётся заявка данного типа.
// Покупка одобряется сразу, продажа уходит на модерацию.
func (t OrderType) InitialStatus() OrderStatus {
	if t == OrderTypeBuy {
		return OrderStatusApproved
	}
	return OrderStatusPending
}

// OrderStatus описывает статус заявки.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusApproved  OrderStatus = "approved"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusCompleted OrderStatus = "completed"
)

// IsValid сообщает, относится ли значение к допустимым статусам.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusApproved, OrderStatusRejected, OrderStatusCompleted:
		return true
	}
	return false
}

const (
	// DefaultProject проставляется заявкам без указанного проекта.
	DefaultProject = "GTA5RP"
	// DefaultSource проставляется заявкам без указанного источника.
	DefaultSource = "webapp"
	// MinOrderAmount минимальное количество виртов при создании заявки.
	MinOrderAmount int64 = 100_000
)

// Order описывает заявку на покупку или продажу виртов.
type Order struct {
	ID            string      `json:"id"`
	OrderType     OrderType   `json:"order_type"`
	Project       string      `json:"project"`
	ServerName    string      `json:"server_name"`
	ServerID      int         `json:"server_id"`
	UserID        int64       `json:"user_id"`
	Username      string      `json:"username"`
	Amount        int64       `json:"amount"`
	Price         float64     `json:"price"`
	Contact       string      `json:"contact"`
	RefundEnabled bool        `json:"refund_enabled"`
	Status        OrderStatus `json:"status"`
	Source        string      `json:"source"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// NewOrder содержит данные, присланные клиентом при создании заявки.
// Необязательные поля заданы указателями, чтобы отличать отсутствие от нулевого значения.
type NewOrder struct {
	OrderType     OrderType `json:"order_type"`
	Project       string    `json:"project"`
	ServerName    string    `json:"server_name"`
	ServerID      int       `json:"server_id"`
	UserID        int64     `json:"user_id"`
	Username      string    `json:"username"`
	Amount        *int64    `json:"amount"`
	Price         float64   `json:"price"`
	Contact       string    `json:"contact"`
	RefundEnabled *bool     `json:"refund_enabled"`
	Source        string    `json:"source"`
}

// OrderPatch описывает частичное обновление заявки.
type OrderPatch struct {
	Amount  *int64       `json:"amount,omitempty"`
	Price   *float64     `json:"price,omitempty"`
	Contact *string      `json:"contact,omitempty"`
	Status  *OrderStatus `json:"status,omitempty"`
}

// HasFields сообщает, затрагивает ли патч поля помимо статуса.
func (p OrderPatch) HasFields() bool {
	return p.Amount != nil || p.Price != nil || p.Contact != nil
}

// OrderFilter задаёт условия выборки заявок. Пустые поля не участвуют в фильтрации.
type OrderFilter struct {
	OrderType OrderType
	Status    OrderStatus
	UserID    int64
	Project   string
	Source    string
}

// ServerStats агрегат по одному игровому серверу.
type ServerStats struct {
	ServerName  string
	ServerID    int
	Users       int64
	TotalAmount int64
}

// StatsRole выбирает сторону рынка для агрегата.
type StatsRole string

const (
	StatsRoleSeller StatsRole = "seller"
	StatsRoleBuyer  StatsRole = "buyer"
)

// BannedUser запись о блокировке пользователя.
type BannedUser struct {
	UserID      int64      `json:"user_id"`
	Username    string     `json:"username,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	BannedBy    string     `json:"banned_by"`
	BannedAt    time.Time  `json:"banned_at"`
	BannedUntil *time.Time `json:"banned_until"`
}

// Server игровой сервер из статического каталога.
// Цены указаны в рублях за миллион виртов.
type Server struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	SellPrice int    `json:"sell_price"`
	BuyPrice  int    `json:"buy_price"`
}
