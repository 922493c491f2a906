package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/suman7063/Restaurant-Managment-sub002/middlewares"
	"github.com/suman7063/Restaurant-Managment-sub002/policy"
	"github.com/suman7063/Restaurant-Managment-sub002/services"
	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

type SessionController struct {
	Sessions    *services.SessionManager
	Joins       *services.JoinHandler
	Ledger      *services.OrderLedger
	Secret      []byte
	CustomerTTL time.Duration
	Timeout     time.Duration
}

// OpenSession -> membuka sesi baru di meja
func (sc *SessionController) OpenSession(c *gin.Context) {
	tableID, err := paramID(c, "table_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	ctx, cancel := withTimeout(c, sc.Timeout)
	defer cancel()

	actor := middlewares.ActorFrom(c)
	session, err := sc.Sessions.Open(ctx, actor, tableID, actor.TenantID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Session opened", session)
}

// JoinSession -> customer bergabung ke sesi dengan OTP, tanpa login
func (sc *SessionController) JoinSession(c *gin.Context) {
	tableID, err := paramID(c, "table_id")
	if err != nil {
		utils.RespondPublicError(c, err)
		return
	}
	var req services.JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}
	req.TableID = tableID

	ctx, cancel := withTimeout(c, sc.Timeout)
	defer cancel()

	res, err := sc.Joins.Join(ctx, req)
	if err != nil {
		utils.RespondPublicError(c, err)
		return
	}

	actor := policy.Actor{Role: policy.RoleCustomer, TenantID: res.Customer.RestaurantID, IdentityID: res.Customer.Identity()}
	ttl := sc.CustomerTTL
	if remaining := time.Until(res.Session.OTPExpiresAt); remaining > 0 && remaining < ttl {
		ttl = remaining
	}
	token, err := utils.GenerateToken(sc.Secret, actor, res.Session.ID, ttl)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	code := http.StatusOK
	if res.Created {
		code = http.StatusCreated
	}
	utils.RespondJSON(c, code, "Joined session", gin.H{
		"customer":   res.Customer,
		"session_id": res.Session.ID,
		"created":    res.Created,
		"token":      token,
	})
}

// RegenerateOTP -> mengganti OTP sesi aktif
func (sc *SessionController) RegenerateOTP(c *gin.Context) {
	id, err := paramID(c, "session_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	ctx, cancel := withTimeout(c, sc.Timeout)
	defer cancel()

	session, err := sc.Sessions.RegenerateOTP(ctx, middlewares.ActorFrom(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "OTP regenerated", gin.H{
		"session_id":     session.ID,
		"otp":            session.OTP,
		"otp_expires_at": session.OTPExpiresAt,
	})
}

// CloseSession -> active ke billed
func (sc *SessionController) CloseSession(c *gin.Context) {
	id, err := paramID(c, "session_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	ctx, cancel := withTimeout(c, sc.Timeout)
	defer cancel()

	session, err := sc.Sessions.Close(ctx, middlewares.ActorFrom(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session closed", session)
}

// ClearSession -> billed ke cleared
func (sc *SessionController) ClearSession(c *gin.Context) {
	id, err := paramID(c, "session_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	ctx, cancel := withTimeout(c, sc.Timeout)
	defer cancel()

	session, err := sc.Sessions.Clear(ctx, middlewares.ActorFrom(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session cleared", session)
}

func (sc *SessionController) GetSession(c *gin.Context) {
	id, err := paramID(c, "session_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	ctx, cancel := withTimeout(c, sc.Timeout)
	defer cancel()

	session, err := sc.Sessions.Get(ctx, middlewares.ActorFrom(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session detail", session)
}

func (sc *SessionController) ListSessions(c *gin.Context) {
	var query struct {
		Status         string `form:"status"`
		TableID        uint   `form:"table_id"`
		IncludeDeleted bool   `form:"include_deleted"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}
	ctx, cancel := withTimeout(c, sc.Timeout)
	defer cancel()

	sessions, err := sc.Sessions.List(ctx, middlewares.ActorFrom(c), services.SessionFilter{
		Status:         query.Status,
		TableID:        query.TableID,
		IncludeDeleted: query.IncludeDeleted,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of sessions", sessions)
}

// GetSessionSummary -> ringkasan tagihan per customer (staff)
func (sc *SessionController) GetSessionSummary(c *gin.Context) {
	id, err := paramID(c, "session_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	sc.summary(c, id)
}

// GetMySessionSummary -> ringkasan untuk sesi milik token customer
func (sc *SessionController) GetMySessionSummary(c *gin.Context) {
	id, ok := middlewares.SessionIDFrom(c)
	if !ok {
		utils.RespondError(c, utils.NotFoundError("session not found"))
		return
	}
	sc.summary(c, id)
}

func (sc *SessionController) summary(c *gin.Context, id uint) {
	ctx, cancel := withTimeout(c, sc.Timeout)
	defer cancel()

	summary, err := sc.Ledger.Summarize(ctx, middlewares.ActorFrom(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session summary", summary)
}

