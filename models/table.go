package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	TableAvailable = "available"
	TableOccupied  = "occupied"
	TableDirty     = "dirty"
)

type Table struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	RestaurantID uint           `gorm:"not null;index" json:"restaurant_id"`
	TableNumber  string         `gorm:"type:varchar(50);not null" json:"table_number"`
	Status       string         `gorm:"type:varchar(20);not null;default:'available'" json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (t *Table) EntityName() string    { return EntityTable }
func (t *Table) TenantID() uint        { return t.RestaurantID }
func (t *Table) OwnerIdentity() string { return "" }
func (t *Table) PrimaryKey() uint      { return t.ID }
func (t *Table) Tombstone() *time.Time { return deletedAt(t.DeletedAt) }
