package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	EntitySession         = "session"
	EntitySessionCustomer = "session_customer"
	EntityOrder           = "order"
	EntityOrderItem       = "order_item"
	EntityTable           = "table"
	EntityMenuItem        = "menu_item"
)

// Record is a tenant-owned row that can be tombstoned.
type Record interface {
	EntityName() string
	TenantID() uint
	OwnerIdentity() string
	PrimaryKey() uint
	Tombstone() *time.Time
}

// TombstoneHook lets a model write extra columns in the same UPDATE that sets
// deleted_at.
type TombstoneHook interface {
	TombstoneColumns() map[string]interface{}
}

// RestoreHook is the restore counterpart of TombstoneHook.
type RestoreHook interface {
	RestoreColumns() map[string]interface{}
}

var registry = map[string]func() Record{
	EntitySession:         func() Record { return &Session{} },
	EntitySessionCustomer: func() Record { return &SessionCustomer{} },
	EntityOrder:           func() Record { return &Order{} },
	EntityOrderItem:       func() Record { return &OrderItem{} },
	EntityTable:           func() Record { return &Table{} },
	EntityMenuItem:        func() Record { return &MenuItem{} },
}

// NewRecord returns an empty record for entity, or false if the entity is not
// soft-deletable.
func NewRecord(entity string) (Record, bool) {
	fn, ok := registry[entity]
	if !ok {
		return nil, false
	}
	return fn(), true
}

func Entities() []string {
	return []string{EntitySession, EntitySessionCustomer, EntityOrder, EntityOrderItem, EntityTable, EntityMenuItem}
}

// All lists every model for migrations.
func All() []interface{} {
	return []interface{}{
		&Restaurant{}, &User{}, &Table{}, &MenuItem{},
		&Session{}, &SessionCustomer{}, &Order{}, &OrderItem{},
	}
}

func deletedAt(d gorm.DeletedAt) *time.Time {
	if !d.Valid {
		return nil
	}
	t := d.Time
	return &t
}
