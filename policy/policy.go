// Package policy decides whether an actor may perform an action on a resource.
//
// The engine is a pure function over (actor, action, resource). It keeps no
// state and is safe for unlimited concurrent use. Callers turn a denied
// Decision into an authorization error at the call site; the Reason is meant
// for audit logs, never for end users.
package policy

import (
	"strings"
	"time"
)

type Role string

const (
	RolePublic   Role = "public"
	RoleCustomer Role = "customer"
	RoleWaiter   Role = "waiter"
	RoleAdmin    Role = "admin"
	RoleOwner    Role = "owner"
)

// ParseRole maps a claim value onto a known role. Unknown values become
// RolePublic, which can do almost nothing.
func ParseRole(s string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleCustomer, RoleWaiter, RoleAdmin, RoleOwner:
		return r
	}
	return RolePublic
}

func (r Role) IsStaff() bool {
	return r == RoleWaiter || r == RoleAdmin || r == RoleOwner
}

// Actor is the identity making a request, as supplied by the auth boundary.
type Actor struct {
	Role       Role   `json:"role"`
	TenantID   uint   `json:"tenant_id"`
	IdentityID string `json:"identity_id"`
}

// Public returns the synthetic unauthenticated actor scoped to a tenant.
func Public(tenantID uint) Actor {
	return Actor{Role: RolePublic, TenantID: tenantID}
}

// Resource describes the row an action targets.
type Resource struct {
	Entity    string
	TenantID  uint
	OwnerID   string
	DeletedAt *time.Time
}

func (r Resource) Tombstoned() bool { return r.DeletedAt != nil }

type Decision struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason"`
}

const (
	ReasonTombstoned       = "resource_tombstoned"
	ReasonTenantMismatch   = "tenant_mismatch"
	ReasonSelfService      = "self_service"
	ReasonOwnerMismatch    = "self_service_owner_mismatch"
	ReasonPublicScope      = "public_actor_out_of_scope"
	ReasonStaff            = "staff_allowed"
	ReasonPurgeOwnerOnly   = "purge_owner_only"
	ReasonWaiterOperations = "waiter_operational"
	ReasonWaiterForbidden  = "waiter_forbidden"
	ReasonNoMatch          = "no_matching_rule"
)

func allow(reason string) Decision { return Decision{Allow: true, Reason: reason} }
func deny(reason string) Decision  { return Decision{Allow: false, Reason: reason} }

// Engine is the default Evaluator.
type Engine struct{}

func NewEngine() Engine { return Engine{} }

func (Engine) Evaluate(actor Actor, action Action, res Resource) Decision {
	return Evaluate(actor, action, res)
}

// Evaluate applies the rule table in order; the first matching rule wins.
func Evaluate(actor Actor, action Action, res Resource) Decision {
	// 1. tombstones are invisible to everything except restore and purge
	if res.Tombstoned() && !action.IsRestore() && !action.IsPurge() {
		return deny(ReasonTombstoned)
	}

	// 2. tenant isolation, no override
	if actor.TenantID == 0 || actor.TenantID != res.TenantID {
		return deny(ReasonTenantMismatch)
	}

	// 3. customer self-service
	if action.IsSelfService() {
		if actor.Role == RolePublic && !publicActions[action] {
			return deny(ReasonPublicScope)
		}
		if action.RequiresOwnership() && !actor.Role.IsStaff() {
			if res.OwnerID == "" || res.OwnerID != actor.IdentityID {
				return deny(ReasonOwnerMismatch)
			}
		}
		return allow(ReasonSelfService)
	}

	switch actor.Role {
	// 4. admin and owner run the restaurant
	case RoleAdmin, RoleOwner:
		if action.IsPurge() && actor.Role != RoleOwner {
			return deny(ReasonPurgeOwnerOnly)
		}
		return allow(ReasonStaff)

	// 5. waiters run the floor, not the menu or the staff list
	case RoleWaiter:
		if waiterActions[action] {
			return allow(ReasonWaiterOperations)
		}
		return deny(ReasonWaiterForbidden)
	}

	// 6.
	return deny(ReasonNoMatch)
}
