package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateRuleTable(t *testing.T) {
	deletedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	owner := Actor{Role: RoleOwner, TenantID: 1, IdentityID: "user:1"}
	admin := Actor{Role: RoleAdmin, TenantID: 1, IdentityID: "user:2"}
	waiter := Actor{Role: RoleWaiter, TenantID: 1, IdentityID: "user:3"}
	customer := Actor{Role: RoleCustomer, TenantID: 1, IdentityID: "customer:7"}
	otherCustomer := Actor{Role: RoleCustomer, TenantID: 1, IdentityID: "customer:8"}

	session := Resource{Entity: "session", TenantID: 1}
	foreignSession := Resource{Entity: "session", TenantID: 2}
	tombstoned := Resource{Entity: "session", TenantID: 1, DeletedAt: &deletedAt}
	ownOrder := Resource{Entity: "order", TenantID: 1, OwnerID: "customer:7"}
	menu := Resource{Entity: "menu_item", TenantID: 1}

	tests := []struct {
		name   string
		actor  Actor
		action Action
		res    Resource
		allow  bool
		reason string
	}{
		{"tombstone hides from admin reads", admin, ActionReadSession, tombstoned, false, ReasonTombstoned},
		{"tombstone hides from admin writes", owner, ActionCloseSession, tombstoned, false, ReasonTombstoned},
		{"restore reaches tombstone", admin, RestoreAction("session"), tombstoned, true, ReasonStaff},
		{"purge reaches tombstone for owner", owner, PurgeAction("session"), tombstoned, true, ReasonStaff},
		{"purge is owner only", admin, PurgeAction("session"), tombstoned, false, ReasonPurgeOwnerOnly},
		{"tenant isolation beats role", owner, ActionCloseSession, foreignSession, false, ReasonTenantMismatch},
		{"customer cross tenant close", customer, ActionCloseSession, foreignSession, false, ReasonTenantMismatch},
		{"zero tenant actor", Actor{Role: RoleOwner}, ActionReadSession, Resource{Entity: "session"}, false, ReasonTenantMismatch},
		{"public may join", Public(1), ActionJoinSession, session, true, ReasonSelfService},
		{"public may not order", Public(1), ActionCreateOrder, session, false, ReasonPublicScope},
		{"public may not close", Public(1), ActionCloseSession, session, false, ReasonNoMatch},
		{"customer creates order", customer, ActionCreateOrder, session, true, ReasonSelfService},
		{"customer cancels own order", customer, ActionCancelOrder, ownOrder, true, ReasonSelfService},
		{"customer cannot cancel others order", otherCustomer, ActionCancelOrder, ownOrder, false, ReasonOwnerMismatch},
		{"staff bypasses ownership on self-service", waiter, ActionCancelOrder, ownOrder, true, ReasonSelfService},
		{"customer cannot close", customer, ActionCloseSession, session, false, ReasonNoMatch},
		{"admin manages menu", admin, ActionInsertMenuItem, menu, true, ReasonStaff},
		{"admin manages users", admin, ActionManageUsers, Resource{Entity: "user", TenantID: 1}, true, ReasonStaff},
		{"waiter closes session", waiter, ActionCloseSession, session, true, ReasonWaiterOperations},
		{"waiter regenerates otp", waiter, ActionRegenerateOTP, session, true, ReasonWaiterOperations},
		{"waiter updates order status", waiter, ActionOrderStatus, ownOrder, true, ReasonWaiterOperations},
		{"waiter deletes order", waiter, DeleteAction("order"), ownOrder, true, ReasonWaiterOperations},
		{"waiter cannot touch menu", waiter, ActionInsertMenuItem, menu, false, ReasonWaiterForbidden},
		{"waiter cannot add categories", waiter, ActionInsertCategory, menu, false, ReasonWaiterForbidden},
		{"waiter cannot manage users", waiter, ActionManageUsers, Resource{Entity: "user", TenantID: 1}, false, ReasonWaiterForbidden},
		{"waiter cannot restore", waiter, RestoreAction("order"), ownOrder, false, ReasonWaiterForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(tt.actor, tt.action, tt.res)
			assert.Equal(t, tt.allow, d.Allow)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestEngineMatchesEvaluate(t *testing.T) {
	actor := Actor{Role: RoleWaiter, TenantID: 4}
	res := Resource{Entity: "session", TenantID: 4}
	assert.Equal(t, Evaluate(actor, ActionCloseSession, res), NewEngine().Evaluate(actor, ActionCloseSession, res))
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleOwner, ParseRole(" Owner "))
	assert.Equal(t, RoleWaiter, ParseRole("waiter"))
	assert.Equal(t, RolePublic, ParseRole("chef"))
	assert.Equal(t, RolePublic, ParseRole(""))
}

func TestActionPrefixes(t *testing.T) {
	assert.True(t, DeleteAction("order").IsDelete())
	assert.True(t, RestoreAction("order").IsRestore())
	assert.True(t, PurgeAction("order").IsPurge())
	assert.False(t, ActionCloseSession.IsPurge())
	assert.Equal(t, Action("purge_session_customer"), PurgeAction("session_customer"))
}
