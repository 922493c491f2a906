package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	RoleWaiter = "waiter"
	RoleAdmin  = "admin"
	RoleOwner  = "owner"
)

type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	RestaurantID uint           `gorm:"not null;index" json:"restaurant_id"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password     string         `gorm:"type:varchar(255);not null" json:"-"`
	Role         string         `gorm:"type:varchar(20);not null" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Identity() string { return fmt.Sprintf("user:%d", u.ID) }

func ValidStaffRole(role string) bool {
	return role == RoleWaiter || role == RoleAdmin || role == RoleOwner
}
