package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderItem snapshots the menu item name and price at order time.
type OrderItem struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	OrderID      uint            `gorm:"not null;index" json:"order_id"`
	RestaurantID uint            `gorm:"not null;index" json:"restaurant_id"`
	MenuItemID   uint            `gorm:"not null" json:"menu_item_id"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	PriceAtTime  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price_at_time"`
	Notes        string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.PriceAtTime.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i *OrderItem) EntityName() string    { return EntityOrderItem }
func (i *OrderItem) TenantID() uint        { return i.RestaurantID }
func (i *OrderItem) OwnerIdentity() string { return "" }
func (i *OrderItem) PrimaryKey() uint      { return i.ID }
func (i *OrderItem) Tombstone() *time.Time { return deletedAt(i.DeletedAt) }
