package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	OrderPending   = "pending"
	OrderPreparing = "preparing"
	OrderReady     = "ready"
	OrderServed    = "served"
	OrderCancelled = "cancelled"
)

var orderTransitions = map[string][]string{
	OrderPending:   {OrderPreparing, OrderCancelled},
	OrderPreparing: {OrderReady, OrderCancelled},
	OrderReady:     {OrderServed},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ValidOrderStatus(status string) bool {
	switch status {
	case OrderPending, OrderPreparing, OrderReady, OrderServed, OrderCancelled:
		return true
	}
	return false
}

type Order struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	RestaurantID      uint            `gorm:"not null;index" json:"restaurant_id"`
	SessionID         *uint           `gorm:"index" json:"session_id,omitempty"`
	SessionCustomerID *uint           `gorm:"index" json:"session_customer_id,omitempty"`
	PlacedBy          string          `gorm:"type:varchar(64);not null" json:"placed_by"`
	Status            string          `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_amount"`
	Items             []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (o *Order) EntityName() string    { return EntityOrder }
func (o *Order) TenantID() uint        { return o.RestaurantID }
func (o *Order) OwnerIdentity() string { return o.PlacedBy }
func (o *Order) PrimaryKey() uint      { return o.ID }
func (o *Order) Tombstone() *time.Time { return deletedAt(o.DeletedAt) }
