package models

import (
	"time"
)

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

type Session struct {
	IdentityToken string    `json:"-"`
	Username      string    `json:"username"`
	Role          Role      `json:"role"`
	IssuedAt      time.Time `json:"issued_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	IsNewUser     bool      `json:"is_new_user"`
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

type CartLine struct {
	FoodID    int64   `json:"foodId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

func (l CartLine) Subtotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

type Food struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
}

type FoodInput struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderPreparing OrderStatus = "PREPARING"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
)

var OrderStatuses = []OrderStatus{OrderPending, OrderConfirmed, OrderPreparing, OrderDelivered, OrderCancelled}

type OrderItem struct {
	FoodName string  `json:"foodName"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type Order struct {
	OrderID      int64       `json:"orderId"`
	CustomerName string      `json:"customerName"`
	Status       OrderStatus `json:"status"`
	TotalPrice   float64     `json:"totalPrice"`
	Items        []OrderItem `json:"items"`
}

type OrderLine struct {
	FoodID   int64 `json:"foodId"`
	Quantity int   `json:"quantity"`
}

type OrderRequest struct {
	CustomerName string      `json:"customerName"`
	Items        []OrderLine `json:"items"`
}

type User struct {
	ID       int64  `json:"id,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

type NewUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}
