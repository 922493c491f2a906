package policy

import "strings"

type Action string

const (
	ActionReadSession    Action = "read_session"
	ActionReadSummary    Action = "read_session_summary"
	ActionJoinSession    Action = "join_session"
	ActionOpenSession    Action = "open_session"
	ActionUpdateSession  Action = "update_session"
	ActionRegenerateOTP  Action = "regenerate_otp"
	ActionCloseSession   Action = "close_session"
	ActionClearSession   Action = "clear_session"
	ActionListSessions   Action = "list_sessions"
	ActionListOrders     Action = "list_orders"
	ActionAuditDeleted   Action = "audit_deleted"
	ActionCreateOrder    Action = "create_order"
	ActionReadOrder      Action = "read_order"
	ActionUpdateOrder    Action = "update_order"
	ActionCancelOrder    Action = "cancel_order"
	ActionOrderStatus    Action = "update_order_status"
	ActionAttributeOrder Action = "attribute_order"
	ActionDetachOrder    Action = "detach_order"
	ActionReadTable      Action = "read_table"
	ActionManageTable    Action = "manage_table"
	ActionCleanTable     Action = "clean_table"
	ActionReadMenu       Action = "read_menu"
	ActionInsertMenuItem Action = "insert_menu_item"
	ActionUpdateMenuItem Action = "update_menu_item"
	ActionInsertCategory Action = "insert_menu_category"
	ActionManageUsers    Action = "manage_users"
)

const (
	deletePrefix  = "delete_"
	restorePrefix = "restore_"
	purgePrefix   = "purge_"
)

func DeleteAction(entity string) Action  { return Action(deletePrefix + entity) }
func RestoreAction(entity string) Action { return Action(restorePrefix + entity) }
func PurgeAction(entity string) Action   { return Action(purgePrefix + entity) }

func (a Action) IsDelete() bool  { return strings.HasPrefix(string(a), deletePrefix) }
func (a Action) IsRestore() bool { return strings.HasPrefix(string(a), restorePrefix) }
func (a Action) IsPurge() bool   { return strings.HasPrefix(string(a), purgePrefix) }

func (a Action) IsSelfService() bool { return selfServiceActions[a] }

// RequiresOwnership reports whether a non-staff actor must own the resource.
func (a Action) RequiresOwnership() bool {
	return a == ActionUpdateOrder || a == ActionCancelOrder
}

var selfServiceActions = map[Action]bool{
	ActionJoinSession: true,
	ActionReadSession: true,
	ActionReadSummary: true,
	ActionCreateOrder: true,
	ActionReadOrder:   true,
	ActionReadMenu:    true,
	ActionUpdateOrder: true,
	ActionCancelOrder: true,
}

var publicActions = map[Action]bool{
	ActionJoinSession: true,
	ActionReadMenu:    true,
}

var waiterActions = map[Action]bool{
	ActionOpenSession:    true,
	ActionUpdateSession:  true,
	ActionRegenerateOTP:  true,
	ActionCloseSession:   true,
	ActionClearSession:   true,
	ActionListSessions:   true,
	ActionListOrders:     true,
	ActionOrderStatus:    true,
	ActionAttributeOrder: true,
	ActionDetachOrder:    true,
	ActionReadTable:      true,
	ActionCleanTable:     true,

	DeleteAction("order"):            true,
	DeleteAction("order_item"):       true,
	DeleteAction("session_customer"): true,
}
