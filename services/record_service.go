package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/suman7063/Restaurant-Managment-sub002/kds"
	"github.com/suman7063/Restaurant-Managment-sub002/models"
	"github.com/suman7063/Restaurant-Managment-sub002/otp"
	"github.com/suman7063/Restaurant-Managment-sub002/policy"
	"github.com/suman7063/Restaurant-Managment-sub002/store"
	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

// RecordService exposes tombstone, restore and purge for every
// soft-deletable entity and keeps derived totals consistent afterwards.
type RecordService struct {
	store       *store.Store
	notifier    kds.Notifier
	issuer      *otp.Issuer
	maxAttempts int
}

type RecordOption func(*RecordService)

// WithOTPIssuer sets the issuer used when a restored session needs a fresh code.
func WithOTPIssuer(issuer *otp.Issuer, maxAttempts int) RecordOption {
	return func(r *RecordService) {
		if issuer != nil {
			r.issuer = issuer
		}
		if maxAttempts > 0 {
			r.maxAttempts = maxAttempts
		}
	}
}

func NewRecordService(st *store.Store, notifier kds.Notifier, opts ...RecordOption) *RecordService {
	if notifier == nil {
		notifier = kds.Nop{}
	}
	r := &RecordService{
		store:       st,
		notifier:    notifier,
		issuer:      otp.NewIssuer(otp.DefaultTTL),
		maxAttempts: DefaultMaxOTPAttempts,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RecordService) SoftDelete(ctx context.Context, actor policy.Actor, entity string, id uint) (models.Record, error) {
	return r.run(ctx, actor, entity, id, kds.EventRecordDeleted, (*store.Store).SoftDelete, reconcile)
}

func (r *RecordService) Restore(ctx context.Context, actor policy.Actor, entity string, id uint) (models.Record, error) {
	return r.run(ctx, actor, entity, id, kds.EventRecordRestored, (*store.Store).Restore, r.afterRestore)
}

func (r *RecordService) Purge(ctx context.Context, actor policy.Actor, entity string, id uint) (models.Record, error) {
	return r.run(ctx, actor, entity, id, kds.EventRecordPurged, (*store.Store).Purge, cascadePurge)
}

type storeOp func(*store.Store, context.Context, policy.Actor, string, uint) (models.Record, error)

func (r *RecordService) run(ctx context.Context, actor policy.Actor, entity string, id uint, eventType string, op storeOp, after func(context.Context, *store.Store, models.Record) error) (models.Record, error) {
	var rec models.Record
	err := r.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		if rec, err = op(tx, ctx, actor, entity, id); err != nil {
			return err
		}
		return after(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"entity":         entity,
		"id":             id,
		"actor_identity": actor.IdentityID,
		"event":          eventType,
	}).Info("record lifecycle")
	event := kds.NewEvent(eventType, rec.TenantID(), map[string]interface{}{
		"entity": entity,
		"id":     id,
	})
	if s, ok := rec.(*models.Session); ok {
		event = event.WithSession(s.ID)
	}
	if o, ok := rec.(*models.Order); ok {
		event = event.WithOrder(o.ID)
	}
	r.notifier.Publish(ctx, event)
	return rec, nil
}

// reconcile recomputes totals that depend on the tombstoned or restored row.
func reconcile(ctx context.Context, tx *store.Store, rec models.Record) error {
	switch v := rec.(type) {
	case *models.Order:
		if v.SessionID != nil {
			_, err := recomputeSessionTotal(ctx, tx, *v.SessionID)
			return err
		}
	case *models.OrderItem:
		return recomputeOrderTotal(ctx, tx, v.OrderID)
	case *models.Session:
		total, err := recomputeSessionTotal(ctx, tx, v.ID)
		if err != nil {
			return err
		}
		v.Total = total
	}
	return nil
}

// afterRestore reconciles totals and gives a restored active session whose
// code expired while it was deleted a new one, so it is joinable again.
func (r *RecordService) afterRestore(ctx context.Context, tx *store.Store, rec models.Record) error {
	if err := reconcile(ctx, tx, rec); err != nil {
		return err
	}
	s, ok := rec.(*models.Session)
	if !ok || !s.IsActive() || !otp.IsExpired(s.OTPExpiresAt, tx.Now()) {
		return nil
	}
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		code, err := issueUniqueOTP(ctx, tx, r.issuer, r.maxAttempts, s.RestaurantID)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{
			"otp":            code.Value,
			"otp_expires_at": code.ExpiresAt,
			"active_otp_key": models.OTPKey(s.RestaurantID, code.Value),
		}
		ok, err := tx.UpdateIf(ctx, &models.Session{}, s.ID,
			map[string]interface{}{"status": models.SessionActive}, updates)
		if errors.Is(err, utils.ErrConflict) {
			continue
		}
		if err != nil {
			return err
		}
		if !ok {
			return utils.InvalidStateError("session changed while restoring")
		}
		s.OTP = code.Value
		s.OTPExpiresAt = code.ExpiresAt
		return nil
	}
	return utils.IssuanceExhaustedError("could not issue a unique otp, retry later")
}

// cascadePurge removes rows that would dangle after a purge. A purged
// session takes its customers along and leaves its orders unattributed.
func cascadePurge(ctx context.Context, tx *store.Store, rec models.Record) error {
	db := tx.DB(ctx).Unscoped()
	switch v := rec.(type) {
	case *models.Session:
		if err := db.Model(&models.Order{}).Where("session_id = ?", v.ID).
			Updates(map[string]interface{}{"session_id": nil, "session_customer_id": nil}).Error; err != nil {
			return utils.WrapDBError(err, "order")
		}
		if err := db.Where("session_id = ?", v.ID).Delete(&models.SessionCustomer{}).Error; err != nil {
			return utils.WrapDBError(err, "customer")
		}
	case *models.SessionCustomer:
		// order sesi tanpa customer tidak boleh ada, jadi dilepas dari sesinya juga
		if err := db.Model(&models.Order{}).Where("session_customer_id = ?", v.ID).
			Updates(map[string]interface{}{"session_id": nil, "session_customer_id": nil}).Error; err != nil {
			return utils.WrapDBError(err, "order")
		}
		if _, err := recomputeSessionTotal(ctx, tx, v.SessionID); err != nil {
			return err
		}
	case *models.Order:
		if err := db.Where("order_id = ?", v.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return utils.WrapDBError(err, "order item")
		}
	}
	return nil
}
