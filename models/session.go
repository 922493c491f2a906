package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	SessionActive  = "active"
	SessionBilled  = "billed"
	SessionCleared = "cleared"
)

// Session is one party's occupancy of a table. ActiveTableKey and
// ActiveOTPKey are only set while the session is active and carry unique
// indexes, so the database rejects a second active session on a table and a
// duplicate live OTP within a restaurant.
type Session struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	RestaurantID   uint            `gorm:"not null;index" json:"restaurant_id"`
	TableID        uint            `gorm:"not null;index" json:"table_id"`
	OTP            string          `gorm:"column:otp;type:varchar(6);not null;index" json:"otp,omitempty"`
	OTPExpiresAt   time.Time       `gorm:"column:otp_expires_at;not null" json:"otp_expires_at"`
	Status         string          `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	Total          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total"`
	ClosedAt       *time.Time      `json:"closed_at,omitempty"`
	ClearedAt      *time.Time      `json:"cleared_at,omitempty"`
	ActiveTableKey *uint           `gorm:"uniqueIndex" json:"-"`
	ActiveOTPKey   *string         `gorm:"column:active_otp_key;type:varchar(40);uniqueIndex" json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

// OTPKey is the value held in active_otp_key for an active session.
func OTPKey(restaurantID uint, code string) string {
	return fmt.Sprintf("%d:%s", restaurantID, code)
}

func (s *Session) IsActive() bool { return s.Status == SessionActive }

func (s *Session) EntityName() string    { return EntitySession }
func (s *Session) TenantID() uint        { return s.RestaurantID }
func (s *Session) OwnerIdentity() string { return "" }
func (s *Session) PrimaryKey() uint      { return s.ID }
func (s *Session) Tombstone() *time.Time { return deletedAt(s.DeletedAt) }

// TombstoneColumns releases the guards so the table can be reopened.
func (s *Session) TombstoneColumns() map[string]interface{} {
	return map[string]interface{}{
		"active_table_key": nil,
		"active_otp_key":   nil,
	}
}

// RestoreColumns retakes the guards of an active session. A restore fails
// with a duplicate key when the table has been reopened meanwhile. An
// expired code is not retaken; the session stays unjoinable until reissued.
func (s *Session) RestoreColumns() map[string]interface{} {
	if !s.IsActive() {
		return nil
	}
	cols := map[string]interface{}{
		"active_table_key": s.TableID,
		"active_otp_key":   nil,
	}
	if time.Now().Before(s.OTPExpiresAt) {
		cols["active_otp_key"] = OTPKey(s.RestaurantID, s.OTP)
	}
	return cols
}
