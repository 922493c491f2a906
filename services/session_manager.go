package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/suman7063/Restaurant-Managment-sub002/kds"
	"github.com/suman7063/Restaurant-Managment-sub002/models"
	"github.com/suman7063/Restaurant-Managment-sub002/otp"
	"github.com/suman7063/Restaurant-Managment-sub002/policy"
	"github.com/suman7063/Restaurant-Managment-sub002/store"
	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

const DefaultMaxOTPAttempts = 10

// SessionManager menangani siklus hidup sesi meja: open, regenerate OTP,
// close (billed) dan clear.
type SessionManager struct {
	store       *store.Store
	issuer      *otp.Issuer
	notifier    kds.Notifier
	maxAttempts int
}

func NewSessionManager(st *store.Store, issuer *otp.Issuer, notifier kds.Notifier, maxAttempts int) *SessionManager {
	if notifier == nil {
		notifier = kds.Nop{}
	}
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxOTPAttempts
	}
	return &SessionManager{store: st, issuer: issuer, notifier: notifier, maxAttempts: maxAttempts}
}

type SessionFilter struct {
	Status         string
	TableID        uint
	IncludeDeleted bool
}

func sessionResource(tenantID uint) policy.Resource {
	return policy.Resource{Entity: models.EntitySession, TenantID: tenantID}
}

// otpTaken reports whether an active session of the restaurant holds code.
func otpTaken(st *store.Store, restaurantID uint) func(context.Context, string) (bool, error) {
	return func(ctx context.Context, code string) (bool, error) {
		var count int64
		err := st.DB(ctx).Unscoped().Model(&models.Session{}).
			Where("active_otp_key = ?", models.OTPKey(restaurantID, code)).
			Count(&count).Error
		return count > 0, utils.WrapDBError(err, "session")
	}
}

func issueUniqueOTP(ctx context.Context, st *store.Store, issuer *otp.Issuer, maxAttempts int, restaurantID uint) (otp.Code, error) {
	code, err := issuer.IssueUnique(ctx, maxAttempts, otpTaken(st, restaurantID))
	if errors.Is(err, otp.ErrIssuanceExhausted) {
		return otp.Code{}, utils.IssuanceExhaustedError("could not issue a unique otp, retry later")
	}
	if err != nil {
		return otp.Code{}, utils.WrapDBError(err, "otp")
	}
	return code, nil
}

func (m *SessionManager) issueUnique(ctx context.Context, restaurantID uint) (otp.Code, error) {
	return issueUniqueOTP(ctx, m.store, m.issuer, m.maxAttempts, restaurantID)
}

// precheck rejects actors whose role can never perform action in their own
// restaurant, before any lookup reveals whether the session exists.
func (m *SessionManager) precheck(actor policy.Actor, action policy.Action) error {
	return m.store.AuthorizeResource(actor, action, sessionResource(actor.TenantID))
}

func (m *SessionManager) hasActiveSession(ctx context.Context, tableID uint) (bool, error) {
	var count int64
	err := m.store.DB(ctx).Model(&models.Session{}).
		Where("table_id = ? AND status = ?", tableID, models.SessionActive).
		Count(&count).Error
	return count > 0, utils.WrapDBError(err, "session")
}

// Open starts a session on a table. The table must belong to restaurantID
// and have no active session.
func (m *SessionManager) Open(ctx context.Context, actor policy.Actor, tableID, restaurantID uint) (*models.Session, error) {
	var table models.Table
	if err := m.store.Get(ctx, &table, tableID); err != nil {
		return nil, err
	}
	if table.RestaurantID != restaurantID {
		return nil, utils.NotFoundError("table not found")
	}
	if err := m.store.AuthorizeResource(actor, policy.ActionOpenSession, sessionResource(table.RestaurantID)); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < m.maxAttempts; attempt++ {
		active, err := m.hasActiveSession(ctx, tableID)
		if err != nil {
			return nil, err
		}
		if active {
			return nil, utils.ConflictError("table %d already has an active session", tableID)
		}

		code, err := m.issueUnique(ctx, table.RestaurantID)
		if err != nil {
			return nil, err
		}

		tableKey := table.ID
		otpKey := models.OTPKey(table.RestaurantID, code.Value)
		session := &models.Session{
			RestaurantID:   table.RestaurantID,
			TableID:        table.ID,
			OTP:            code.Value,
			OTPExpiresAt:   code.ExpiresAt,
			Status:         models.SessionActive,
			Total:          decimal.Zero,
			ActiveTableKey: &tableKey,
			ActiveOTPKey:   &otpKey,
		}
		err = m.store.Transaction(ctx, func(tx *store.Store) error {
			if err := tx.Create(ctx, session, "session"); err != nil {
				return err
			}
			_, err := tx.UpdateIf(ctx, &models.Table{}, table.ID, nil,
				map[string]interface{}{"status": models.TableOccupied})
			return err
		})
		if errors.Is(err, utils.ErrConflict) {
			// lost a race on either guard; the next pass tells which
			continue
		}
		if err != nil {
			return nil, err
		}

		utils.InfoLogger.WithFields(logrus.Fields{
			"session_id":    session.ID,
			"table_id":      table.ID,
			"restaurant_id": table.RestaurantID,
		}).Info("session opened")
		m.notifier.Publish(ctx, kds.NewEvent(kds.EventSessionOpened, session.RestaurantID, session).WithSession(session.ID))
		return session, nil
	}
	return nil, utils.IssuanceExhaustedError("could not open session, retry later")
}

// RegenerateOTP replaces code and expiry of an active session in one write.
// The previous code stops working immediately.
func (m *SessionManager) RegenerateOTP(ctx context.Context, actor policy.Actor, id uint) (*models.Session, error) {
	if err := m.precheck(actor, policy.ActionRegenerateOTP); err != nil {
		return nil, err
	}
	var session models.Session
	if err := m.store.Fetch(ctx, actor, policy.ActionRegenerateOTP, &session, id); err != nil {
		return nil, err
	}
	if !session.IsActive() {
		return nil, utils.InvalidStateError("session is %s, not active", session.Status)
	}

	for attempt := 0; attempt < m.maxAttempts; attempt++ {
		code, err := m.issueUnique(ctx, session.RestaurantID)
		if err != nil {
			return nil, err
		}
		ok, err := m.store.UpdateIf(ctx, &models.Session{}, id,
			map[string]interface{}{"status": models.SessionActive},
			map[string]interface{}{
				"otp":            code.Value,
				"otp_expires_at": code.ExpiresAt,
				"active_otp_key": models.OTPKey(session.RestaurantID, code.Value),
			})
		if errors.Is(err, utils.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, m.explainMiss(ctx, id, models.SessionActive)
		}

		if err := m.store.Get(ctx, &session, id); err != nil {
			return nil, err
		}
		m.notifier.Publish(ctx, kds.NewEvent(kds.EventOTPRegenerated, session.RestaurantID, nil).WithSession(id))
		return &session, nil
	}
	return nil, utils.IssuanceExhaustedError("could not issue a unique otp, retry later")
}

// explainMiss turns a failed compare-and-swap into not_found or invalid_state.
func (m *SessionManager) explainMiss(ctx context.Context, id uint, want string) error {
	var current models.Session
	if err := m.store.Get(ctx, &current, id); err != nil {
		return err
	}
	return utils.InvalidStateError("session is %s, not %s", current.Status, want)
}

// Close moves an active session to billed and releases its table and OTP.
func (m *SessionManager) Close(ctx context.Context, actor policy.Actor, id uint) (*models.Session, error) {
	if err := m.precheck(actor, policy.ActionCloseSession); err != nil {
		return nil, err
	}
	var session models.Session
	if err := m.store.Fetch(ctx, actor, policy.ActionCloseSession, &session, id); err != nil {
		return nil, err
	}

	err := m.store.Transaction(ctx, func(tx *store.Store) error {
		ok, err := tx.UpdateIf(ctx, &models.Session{}, id,
			map[string]interface{}{"status": models.SessionActive},
			map[string]interface{}{
				"status":           models.SessionBilled,
				"closed_at":        tx.Now(),
				"active_table_key": nil,
				"active_otp_key":   nil,
			})
		if err != nil {
			return err
		}
		if !ok {
			return utils.InvalidStateError("session is not active")
		}
		_, err = recomputeSessionTotal(ctx, tx, id)
		return err
	})
	if errors.Is(err, utils.ErrInvalidState) {
		return nil, m.explainMiss(ctx, id, models.SessionActive)
	}
	if err != nil {
		return nil, err
	}

	if err := m.store.Get(ctx, &session, id); err != nil {
		return nil, err
	}
	utils.InfoLogger.WithFields(logrus.Fields{
		"session_id": id,
		"total":      session.Total.StringFixed(2),
	}).Info("session closed")
	m.notifier.Publish(ctx, kds.NewEvent(kds.EventSessionClosed, session.RestaurantID, session).WithSession(id))
	return &session, nil
}

// Clear moves a billed session to cleared and marks its table dirty.
func (m *SessionManager) Clear(ctx context.Context, actor policy.Actor, id uint) (*models.Session, error) {
	if err := m.precheck(actor, policy.ActionClearSession); err != nil {
		return nil, err
	}
	var session models.Session
	if err := m.store.Fetch(ctx, actor, policy.ActionClearSession, &session, id); err != nil {
		return nil, err
	}

	err := m.store.Transaction(ctx, func(tx *store.Store) error {
		ok, err := tx.UpdateIf(ctx, &models.Session{}, id,
			map[string]interface{}{"status": models.SessionBilled},
			map[string]interface{}{
				"status":     models.SessionCleared,
				"cleared_at": tx.Now(),
			})
		if err != nil {
			return err
		}
		if !ok {
			return utils.InvalidStateError("session is not billed")
		}
		_, err = tx.UpdateIf(ctx, &models.Table{}, session.TableID, nil,
			map[string]interface{}{"status": models.TableDirty})
		return err
	})
	if errors.Is(err, utils.ErrInvalidState) {
		return nil, m.explainMiss(ctx, id, models.SessionBilled)
	}
	if err != nil {
		return nil, err
	}

	if err := m.store.Get(ctx, &session, id); err != nil {
		return nil, err
	}
	m.notifier.Publish(ctx, kds.NewEvent(kds.EventSessionCleared, session.RestaurantID, session).WithSession(id))
	return &session, nil
}

// RecomputeTotal recalculates the stored total from attributed orders.
func (m *SessionManager) RecomputeTotal(ctx context.Context, id uint) (decimal.Decimal, error) {
	if err := m.store.Get(ctx, &models.Session{}, id); err != nil {
		return decimal.Zero, err
	}
	return recomputeSessionTotal(ctx, m.store, id)
}

func (m *SessionManager) Get(ctx context.Context, actor policy.Actor, id uint) (*models.Session, error) {
	var session models.Session
	if err := m.store.Fetch(ctx, actor, policy.ActionReadSession, &session, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// List returns the sessions of the actor's restaurant, newest first.
func (m *SessionManager) List(ctx context.Context, actor policy.Actor, filter SessionFilter) ([]models.Session, error) {
	if err := m.store.AuthorizeResource(actor, policy.ActionListSessions, sessionResource(actor.TenantID)); err != nil {
		return nil, err
	}
	q := m.store.DB(ctx)
	if filter.IncludeDeleted {
		if err := m.store.AuthorizeResource(actor, policy.ActionAuditDeleted, sessionResource(actor.TenantID)); err != nil {
			return nil, err
		}
		q = q.Unscoped()
	}
	q = q.Where("restaurant_id = ?", actor.TenantID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.TableID != 0 {
		q = q.Where("table_id = ?", filter.TableID)
	}

	var sessions []models.Session
	if err := q.Order("id DESC").Find(&sessions).Error; err != nil {
		return nil, utils.WrapDBError(err, "session")
	}
	return sessions, nil
}
