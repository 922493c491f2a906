package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MenuItem struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	RestaurantID uint            `gorm:"not null;index" json:"restaurant_id"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	Category     string          `gorm:"type:varchar(100)" json:"category"`
	Description  string          `gorm:"type:text" json:"description"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Available    bool            `gorm:"not null;default:true" json:"available"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (m *MenuItem) EntityName() string    { return EntityMenuItem }
func (m *MenuItem) TenantID() uint        { return m.RestaurantID }
func (m *MenuItem) OwnerIdentity() string { return "" }
func (m *MenuItem) PrimaryKey() uint      { return m.ID }
func (m *MenuItem) Tombstone() *time.Time { return deletedAt(m.DeletedAt) }
