package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// SessionCustomer is a diner who joined a session with its OTP.
type SessionCustomer struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	RestaurantID uint           `gorm:"not null;index" json:"restaurant_id"`
	SessionID    uint           `gorm:"not null;uniqueIndex:idx_session_contact" json:"session_id"`
	DisplayName  string         `gorm:"type:varchar(100);not null" json:"display_name"`
	Contact      string         `gorm:"type:varchar(255)" json:"contact,omitempty"`
	ContactKey   *string        `gorm:"type:varchar(255);uniqueIndex:idx_session_contact" json:"-"`
	JoinedAt     time.Time      `gorm:"not null" json:"joined_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// NormalizeContact lowercases and strips whitespace. Empty input yields nil,
// meaning the join is not deduplicated.
func NormalizeContact(contact string) *string {
	key := strings.ToLower(strings.Join(strings.Fields(contact), ""))
	if key == "" {
		return nil
	}
	return &key
}

func CustomerIdentity(id uint) string { return fmt.Sprintf("customer:%d", id) }

func (c *SessionCustomer) Identity() string { return CustomerIdentity(c.ID) }

func (c *SessionCustomer) EntityName() string    { return EntitySessionCustomer }
func (c *SessionCustomer) TenantID() uint        { return c.RestaurantID }
func (c *SessionCustomer) OwnerIdentity() string { return c.Identity() }
func (c *SessionCustomer) PrimaryKey() uint      { return c.ID }
func (c *SessionCustomer) Tombstone() *time.Time { return deletedAt(c.DeletedAt) }
