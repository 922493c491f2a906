// Package store wraps gorm with tombstone-aware reads and the soft-delete,
// restore and purge operations. Every mutation the services perform is
// authorized through Store.Authorize first.
package store

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/suman7063/Restaurant-Managment-sub002/models"
	"github.com/suman7063/Restaurant-Managment-sub002/policy"
	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

type Evaluator interface {
	Evaluate(actor policy.Actor, action policy.Action, res policy.Resource) policy.Decision
}

type Store struct {
	db     *gorm.DB
	policy Evaluator
	now    func() time.Time
}

func New(db *gorm.DB, evaluator Evaluator) *Store {
	if evaluator == nil {
		evaluator = policy.NewEngine()
	}
	return &Store{db: db, policy: evaluator, now: time.Now}
}

// DB returns the handle bound to ctx. Inside Transaction it is the tx.
func (s *Store) DB(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Transaction runs fn with a Store bound to one database transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, policy: s.policy, now: s.now})
	})
	return utils.WrapDBError(err, "transaction")
}

func (s *Store) Now() time.Time { return s.now().UTC() }

func ResourceOf(rec models.Record) policy.Resource {
	return policy.Resource{
		Entity:    rec.EntityName(),
		TenantID:  rec.TenantID(),
		OwnerID:   rec.OwnerIdentity(),
		DeletedAt: rec.Tombstone(),
	}
}

// Authorize evaluates the policy and turns a deny into an authorization
// error. Denials are audit logged with the reason.
func (s *Store) Authorize(actor policy.Actor, action policy.Action, rec models.Record) error {
	return s.AuthorizeResource(actor, action, ResourceOf(rec))
}

func (s *Store) AuthorizeResource(actor policy.Actor, action policy.Action, res policy.Resource) error {
	d := s.policy.Evaluate(actor, action, res)
	if d.Allow {
		return nil
	}
	utils.ErrorLogger.WithFields(logrus.Fields{
		"actor_role":      actor.Role,
		"actor_tenant":    actor.TenantID,
		"actor_identity":  actor.IdentityID,
		"action":          action,
		"entity":          res.Entity,
		"resource_tenant": res.TenantID,
		"reason":          d.Reason,
	}).Warn("policy denied")
	return utils.AuthorizationError(d.Reason)
}

type readOptions struct {
	includeDeleted bool
}

type ReadOption func(*readOptions)

// IncludeDeleted makes a read see tombstoned rows.
func IncludeDeleted() ReadOption {
	return func(o *readOptions) { o.includeDeleted = true }
}

func (s *Store) query(ctx context.Context, opts []ReadOption) *gorm.DB {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}
	q := s.DB(ctx)
	if o.includeDeleted {
		q = q.Unscoped()
	}
	return q
}

// Get loads dest by primary key. Tombstoned rows read as not found unless
// IncludeDeleted is given.
func (s *Store) Get(ctx context.Context, dest models.Record, id uint, opts ...ReadOption) error {
	err := s.query(ctx, opts).First(dest, id).Error
	return utils.WrapDBError(err, dest.EntityName())
}

// Fetch is Get followed by Authorize.
func (s *Store) Fetch(ctx context.Context, actor policy.Actor, action policy.Action, dest models.Record, id uint, opts ...ReadOption) error {
	if err := s.Get(ctx, dest, id, opts...); err != nil {
		return err
	}
	return s.Authorize(actor, action, dest)
}

func (s *Store) Create(ctx context.Context, value interface{}, what string) error {
	return utils.WrapDBError(s.DB(ctx).Create(value).Error, what)
}

// UpdateIf is the compare-and-swap primitive: one UPDATE guarded by cond.
// It reports whether a row matched. Tombstoned rows never match.
func (s *Store) UpdateIf(ctx context.Context, model interface{}, id uint, cond map[string]interface{}, updates map[string]interface{}) (bool, error) {
	q := s.DB(ctx).Model(model).Where("id = ?", id)
	if len(cond) > 0 {
		q = q.Where(cond)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, utils.WrapDBError(res.Error, "update")
	}
	return res.RowsAffected == 1, nil
}

func newRecord(entity string) (models.Record, error) {
	rec, ok := models.NewRecord(entity)
	if !ok {
		return nil, utils.ValidationError("unknown entity %q", entity)
	}
	return rec, nil
}

// SoftDelete tombstones a live row. Deleting an already tombstoned row is
// not found.
func (s *Store) SoftDelete(ctx context.Context, actor policy.Actor, entity string, id uint) (models.Record, error) {
	rec, err := newRecord(entity)
	if err != nil {
		return nil, err
	}
	if err := s.Fetch(ctx, actor, policy.DeleteAction(entity), rec, id); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"deleted_at": s.Now()}
	if hook, ok := rec.(models.TombstoneHook); ok {
		for k, v := range hook.TombstoneColumns() {
			updates[k] = v
		}
	}
	res := s.DB(ctx).Model(rec).Where("deleted_at IS NULL").Updates(updates)
	if res.Error != nil {
		return nil, utils.WrapDBError(res.Error, entity)
	}
	if res.RowsAffected == 0 {
		return nil, utils.NotFoundError("%s not found", entity)
	}
	return s.reload(ctx, entity, id)
}

// Restore clears the tombstone of a row. A live row is an invalid state; a
// guard taken by a newer row surfaces as a conflict.
func (s *Store) Restore(ctx context.Context, actor policy.Actor, entity string, id uint) (models.Record, error) {
	rec, err := newRecord(entity)
	if err != nil {
		return nil, err
	}
	if err := s.Fetch(ctx, actor, policy.RestoreAction(entity), rec, id, IncludeDeleted()); err != nil {
		return nil, err
	}
	if rec.Tombstone() == nil {
		return nil, utils.InvalidStateError("%s is not deleted", entity)
	}

	updates := map[string]interface{}{"deleted_at": nil}
	if hook, ok := rec.(models.RestoreHook); ok {
		for k, v := range hook.RestoreColumns() {
			updates[k] = v
		}
	}
	res := s.DB(ctx).Unscoped().Model(rec).Where("deleted_at IS NOT NULL").Updates(updates)
	if res.Error != nil {
		return nil, utils.WrapDBError(res.Error, entity)
	}
	if res.RowsAffected == 0 {
		return nil, utils.InvalidStateError("%s is not deleted", entity)
	}
	return s.reload(ctx, entity, id)
}

// Purge removes a tombstoned row for good. Only tombstoned rows qualify.
func (s *Store) Purge(ctx context.Context, actor policy.Actor, entity string, id uint) (models.Record, error) {
	rec, err := newRecord(entity)
	if err != nil {
		return nil, err
	}
	if err := s.Fetch(ctx, actor, policy.PurgeAction(entity), rec, id, IncludeDeleted()); err != nil {
		return nil, err
	}
	if rec.Tombstone() == nil {
		return nil, utils.InvalidStateError("%s must be deleted before purge", entity)
	}

	res := s.DB(ctx).Unscoped().Where("deleted_at IS NOT NULL").Delete(rec)
	if res.Error != nil {
		return nil, utils.WrapDBError(res.Error, entity)
	}
	if res.RowsAffected == 0 {
		return nil, utils.NotFoundError("%s not found", entity)
	}
	return rec, nil
}

func (s *Store) reload(ctx context.Context, entity string, id uint) (models.Record, error) {
	rec, err := newRecord(entity)
	if err != nil {
		return nil, err
	}
	if err := s.Get(ctx, rec, id, IncludeDeleted()); err != nil {
		return nil, err
	}
	return rec, nil
}
