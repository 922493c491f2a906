package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/suman7063/Restaurant-Managment-sub002/config"
	"github.com/suman7063/Restaurant-Managment-sub002/controllers"
	"github.com/suman7063/Restaurant-Managment-sub002/kds"
	"github.com/suman7063/Restaurant-Managment-sub002/middlewares"
	"github.com/suman7063/Restaurant-Managment-sub002/services"
	"github.com/suman7063/Restaurant-Managment-sub002/store"
)

// Deps is everything the HTTP layer needs. Redis is optional.
type Deps struct {
	Config   config.Config
	Store    *store.Store
	Sessions *services.SessionManager
	Joins    *services.JoinHandler
	Ledger   *services.OrderLedger
	Records  *services.RecordService
	Hub      *kds.Hub
	Notifier kds.Notifier
	Redis    *redis.Client
}

const loginRateLimit = 10

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// Apply security middlewares
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.Config.CORSOrigin))

	secret := []byte(d.Config.JWTSecret)
	timeout := d.Config.OperationTimeout

	// Inisialisasi controller
	userCtrl := &controllers.UserController{Store: d.Store, Secret: secret, TokenTTL: d.Config.TokenTTL, Timeout: timeout}
	tableCtrl := &controllers.TableController{Store: d.Store, Notifier: d.Notifier, Timeout: timeout}
	menuCtrl := &controllers.MenuController{Store: d.Store, Timeout: timeout}
	sessionCtrl := &controllers.SessionController{
		Sessions:    d.Sessions,
		Joins:       d.Joins,
		Ledger:      d.Ledger,
		Secret:      secret,
		CustomerTTL: d.Config.CustomerTokenTTL,
		Timeout:     timeout,
	}
	orderCtrl := &controllers.OrderController{Ledger: d.Ledger, Timeout: timeout}
	recordCtrl := &controllers.RecordController{Records: d.Records, Timeout: timeout}
	billCtrl := &controllers.BillController{Ledger: d.Ledger, Timeout: timeout}
	kdsCtrl := &controllers.KDSController{Hub: d.Hub, AllowedOrigin: d.Config.CORSOrigin}

	joinLimiter := middlewares.NewRateLimiter(d.Redis, d.Config.JoinRateLimit, d.Config.JoinRateWindow)
	loginLimiter := middlewares.NewRateLimiter(d.Redis, loginRateLimit, time.Minute)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.POST("/login", loginLimiter.Middleware(middlewares.ByIP("login")), userCtrl.Login)
	r.GET("/menu/:restaurant_id", menuCtrl.GetPublicMenu)

	// Customer scan QR lalu masukkan OTP
	r.POST("/tables/:table_id/join",
		joinLimiter.Middleware(middlewares.ByParamAndIP("join", "table_id")),
		sessionCtrl.JoinSession)

	// Feed realtime untuk dapur, waiter dan customer
	r.GET("/ws", middlewares.WebSocketAuthMiddleware(secret), kdsCtrl.KDSHandler)

	// ----------------------------------------------------------------
	//                      CUSTOMER ROUTES (token dari join)
	// ----------------------------------------------------------------
	customer := r.Group("/customer")
	customer.Use(middlewares.AuthMiddleware(secret), middlewares.RequireCustomer())
	{
		customer.GET("/session/summary", sessionCtrl.GetMySessionSummary)
		customer.GET("/menus", menuCtrl.GetAllMenus)
		customer.POST("/orders", orderCtrl.CreateOrder)
		customer.GET("/orders/:order_id", orderCtrl.GetOrderByID)
		customer.PATCH("/orders/:order_id/status", orderCtrl.UpdateOrderStatus)
	}

	// ----------------------------------------------------------------
	//                      STAFF ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/admin")
	auth.Use(middlewares.AuthMiddleware(secret), middlewares.RequireStaff())

	auth.GET("/profile", userCtrl.GetProfile)
	auth.POST("/users", userCtrl.Register)

	// TABLE
	auth.GET("/tables", tableCtrl.GetAllTables)
	auth.POST("/tables", tableCtrl.CreateTable)
	auth.PATCH("/tables/:table_id", tableCtrl.UpdateTable)
	auth.POST("/tables/:table_id/clean", tableCtrl.MarkTableClean)
	auth.POST("/tables/:table_id/sessions", sessionCtrl.OpenSession)

	// SESSIONS
	auth.GET("/sessions", sessionCtrl.ListSessions)
	auth.GET("/sessions/:session_id", sessionCtrl.GetSession)
	auth.POST("/sessions/:session_id/otp", sessionCtrl.RegenerateOTP)
	auth.POST("/sessions/:session_id/close", sessionCtrl.CloseSession)
	auth.POST("/sessions/:session_id/clear", sessionCtrl.ClearSession)
	auth.GET("/sessions/:session_id/summary", sessionCtrl.GetSessionSummary)
	auth.GET("/sessions/:session_id/bill", billCtrl.GetBill)
	auth.GET("/sessions/:session_id/bill/pdf", billCtrl.GetBillPDF)

	// MENUS
	auth.GET("/menus", menuCtrl.GetAllMenus)
	auth.POST("/menus", menuCtrl.CreateMenu)
	auth.PATCH("/menus/:menu_id", menuCtrl.UpdateMenu)

	// ORDERS
	auth.GET("/orders", orderCtrl.GetAllOrders)
	auth.POST("/orders", orderCtrl.CreateOrder)
	auth.GET("/orders/:order_id", orderCtrl.GetOrderByID)
	auth.PATCH("/orders/:order_id/status", orderCtrl.UpdateOrderStatus)
	auth.PUT("/orders/:order_id/attribution", orderCtrl.AttributeOrder)
	auth.DELETE("/orders/:order_id/attribution", orderCtrl.DetachOrder)

	// SOFT DELETE / RESTORE / PURGE
	auth.DELETE("/records/:entity/:id", recordCtrl.SoftDelete)
	auth.POST("/records/:entity/:id/restore", recordCtrl.Restore)
	auth.DELETE("/records/:entity/:id/purge", recordCtrl.Purge)

	return r
}
