package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/suman7063/Restaurant-Managment-sub002/middlewares"
	"github.com/suman7063/Restaurant-Managment-sub002/models"
	"github.com/suman7063/Restaurant-Managment-sub002/policy"
	"github.com/suman7063/Restaurant-Managment-sub002/store"
	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

type UserController struct {
	Store    *store.Store
	Secret   []byte
	TokenTTL time.Duration
	Timeout  time.Duration
}

// Register staff baru di restoran milik token
func (uc *UserController) Register(c *gin.Context) {
	type request struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		Role     string `json:"role" binding:"required"` // waiter, admin, owner
	}
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if !models.ValidStaffRole(role) {
		utils.RespondError(c, utils.ValidationError("unknown role %q", req.Role))
		return
	}

	actor := middlewares.ActorFrom(c)
	if err := uc.Store.AuthorizeResource(actor, policy.ActionManageUsers, policy.Resource{Entity: "user", TenantID: actor.TenantID}); err != nil {
		utils.RespondError(c, err)
		return
	}
	if role == models.RoleOwner && actor.Role != policy.RoleOwner {
		utils.RespondError(c, utils.AuthorizationError("only an owner can register an owner"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	ctx, cancel := withTimeout(c, uc.Timeout)
	defer cancel()

	user := models.User{
		RestaurantID: actor.TenantID,
		Name:         req.Name,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Password:     string(hashed),
		Role:         role,
	}
	if err := uc.Store.Create(ctx, &user, "user"); err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.InfoLogger.Printf("New user registered: %s (role=%s)", user.Email, user.Role)
	utils.RespondJSON(c, http.StatusCreated, "User registered", gin.H{
		"user_id": user.ID,
	})
}

// Login user -> return JWT
func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}

	ctx, cancel := withTimeout(c, uc.Timeout)
	defer cancel()

	var user models.User
	err := uc.Store.DB(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user).Error
	if err == nil {
		err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password))
	}
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			utils.ErrorLogger.Printf("login lookup failed: %v", err)
		}
		utils.RespondJSON(c, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}

	actor := policy.Actor{Role: policy.ParseRole(user.Role), TenantID: user.RestaurantID, IdentityID: user.Identity()}
	token, err := utils.GenerateToken(uc.Secret, actor, 0, uc.TokenTTL)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.InfoLogger.Printf("User logged in: %s", user.Email)
	utils.RespondJSON(c, http.StatusOK, "Login success", gin.H{
		"token": token,
		"role":  user.Role,
	})
}

// GetProfile -> data user dari token
func (uc *UserController) GetProfile(c *gin.Context) {
	actor := middlewares.ActorFrom(c)
	id, ok := userIDFrom(actor.IdentityID)
	if !ok {
		utils.RespondError(c, utils.NotFoundError("user not found"))
		return
	}

	ctx, cancel := withTimeout(c, uc.Timeout)
	defer cancel()

	var user models.User
	if err := uc.Store.DB(ctx).Where("restaurant_id = ?", actor.TenantID).First(&user, id).Error; err != nil {
		utils.RespondError(c, utils.WrapDBError(err, "user"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "User profile", user)
}
