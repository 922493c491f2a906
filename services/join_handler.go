package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/suman7063/Restaurant-Managment-sub002/kds"
	"github.com/suman7063/Restaurant-Managment-sub002/models"
	"github.com/suman7063/Restaurant-Managment-sub002/otp"
	"github.com/suman7063/Restaurant-Managment-sub002/policy"
	"github.com/suman7063/Restaurant-Managment-sub002/store"
	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

const maxDisplayName = 100

type JoinRequest struct {
	OTP         string `json:"otp" binding:"required"`
	TableID     uint   `json:"-"`
	DisplayName string `json:"display_name" binding:"required"`
	Contact     string `json:"contact"`
}

type JoinResult struct {
	Customer *models.SessionCustomer `json:"customer"`
	Session  *models.Session         `json:"-"`
	Created  bool                    `json:"created"`
}

// JoinHandler lets a diner attach to the active session of a table with the
// OTP shown to them by staff.
type JoinHandler struct {
	store    *store.Store
	notifier kds.Notifier
	now      func() time.Time
}

func NewJoinHandler(st *store.Store, notifier kds.Notifier) *JoinHandler {
	if notifier == nil {
		notifier = kds.Nop{}
	}
	return &JoinHandler{store: st, notifier: notifier, now: time.Now}
}

func (r *JoinRequest) validate() error {
	r.OTP = strings.TrimSpace(r.OTP)
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	if r.TableID == 0 {
		return utils.ValidationError("table id is required")
	}
	if !otp.Valid(r.OTP) {
		return utils.ValidationError("otp must be %d digits", otp.Digits)
	}
	if r.DisplayName == "" {
		return utils.ValidationError("display name is required")
	}
	if utf8.RuneCountInString(r.DisplayName) > maxDisplayName {
		return utils.ValidationError("display name is too long")
	}
	return nil
}

// Join is idempotent per session and normalized contact: joining again with
// the same contact returns the existing customer with Created false.
func (h *JoinHandler) Join(ctx context.Context, req JoinRequest) (*JoinResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var session models.Session
	err := h.store.DB(ctx).
		Where("table_id = ? AND status = ? AND otp = ?", req.TableID, models.SessionActive, req.OTP).
		First(&session).Error
	if err != nil {
		return nil, utils.WrapDBError(err, "session")
	}
	if otp.IsExpired(session.OTPExpiresAt, h.now()) {
		return nil, utils.ExpiredError("otp has expired, ask staff for a new one")
	}
	if err := h.store.Authorize(policy.Public(session.RestaurantID), policy.ActionJoinSession, &session); err != nil {
		return nil, err
	}

	key := models.NormalizeContact(req.Contact)
	if key != nil {
		existing, err := h.findByContact(ctx, session.ID, *key)
		if err != nil || existing != nil {
			return h.existing(existing, &session, err)
		}
	}

	customer := &models.SessionCustomer{
		RestaurantID: session.RestaurantID,
		SessionID:    session.ID,
		DisplayName:  req.DisplayName,
		Contact:      strings.TrimSpace(req.Contact),
		ContactKey:   key,
		JoinedAt:     h.now().UTC(),
	}
	err = h.store.Create(ctx, customer, "customer")
	if errors.Is(err, utils.ErrConflict) && key != nil {
		// a concurrent join with the same contact won
		existing, ferr := h.findByContact(ctx, session.ID, *key)
		if ferr == nil && existing == nil {
			ferr = err
		}
		return h.existing(existing, &session, ferr)
	}
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"session_id":  session.ID,
		"customer_id": customer.ID,
	}).Info("customer joined")
	h.notifier.Publish(ctx, kds.NewEvent(kds.EventCustomerJoined, session.RestaurantID, customer).WithSession(session.ID))
	return &JoinResult{Customer: customer, Session: &session, Created: true}, nil
}

func (h *JoinHandler) findByContact(ctx context.Context, sessionID uint, key string) (*models.SessionCustomer, error) {
	var customer models.SessionCustomer
	err := h.store.DB(ctx).Unscoped().
		Where("session_id = ? AND contact_key = ?", sessionID, key).
		First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.WrapDBError(err, "customer")
	}
	return &customer, nil
}

func (h *JoinHandler) existing(customer *models.SessionCustomer, session *models.Session, err error) (*JoinResult, error) {
	if err != nil {
		return nil, err
	}
	if customer.DeletedAt.Valid {
		return nil, utils.ConflictError("this contact was removed from the session")
	}
	return &JoinResult{Customer: customer, Session: session, Created: false}, nil
}
