package router

import (
	"github.com/gin-gonic/gin"

	"github.com/studymarket/backend/internal/config"
	"github.com/studymarket/backend/internal/http/handlers"
	"github.com/studymarket/backend/internal/http/middleware"
	"github.com/studymarket/backend/internal/models"
	"github.com/studymarket/backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	orderHandler *handlers.OrderHandler,
	bidHandler *handlers.BidHandler,
	disputeHandler *handlers.DisputeHandler,
	partnerHandler *handlers.PartnerHandler,
	catalogHandler *handlers.CatalogHandler,
	fileHandler *handlers.FileHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.RedirectTrailingSlash = true
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	api.GET("/ws", wsHandler.Handle)

	// Регистрация и вход с собственным лимитом запросов.
	users := api.Group("/users")
	authRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
	users.POST("/register/", authRateLimit, authHandler.Register)
	users.POST("/login/", authRateLimit, authHandler.Login)

	// Каталог публичный.
	catalog := api.Group("/catalog")
	{
		catalog.GET("/subjects/", catalogHandler.ListSubjects)
		catalog.GET("/subjects/:id/topics/", middleware.UUIDValidator("id"), catalogHandler.ListTopics)
		catalog.GET("/work_types/", catalogHandler.ListWorkTypes)
		catalog.GET("/complexities/", catalogHandler.ListComplexities)
	}

	auth := middleware.AuthMiddleware(tokenManager)

	protectedUsers := api.Group("/users")
	protectedUsers.Use(auth)
	{
		protectedUsers.GET("/me/", authHandler.Me)
		protectedUsers.GET("/client_dashboard/", orderHandler.ClientDashboard)
		protectedUsers.GET("/partner_dashboard/", partnerHandler.PartnerDashboard)
		protectedUsers.POST("/generate_referral_link/", partnerHandler.GenerateReferralLink)

		adminOnly := middleware.RequireRoles(models.RoleAdmin)
		protectedUsers.GET("/admin_earnings/", adminOnly, partnerHandler.ListEarnings)
		protectedUsers.POST("/admin_mark_earning_paid/", adminOnly, partnerHandler.MarkEarningPaid)
	}

	orders := api.Group("/orders")
	orders.Use(auth)
	{
		orders.POST("/orders/", orderHandler.CreateOrder)
		orders.GET("/orders/", orderHandler.ListMyOrders)
		orders.GET("/orders/available/", orderHandler.ListAvailableOrders)

		byID := orders.Group("/orders/:id")
		byID.Use(middleware.UUIDValidator("id"))
		{
			byID.GET("/", orderHandler.GetOrder)
			byID.POST("/take/", orderHandler.TakeOrder)
			byID.POST("/submit/", orderHandler.SubmitOrder)
			byID.POST("/approve/", orderHandler.ApproveOrder)
			byID.POST("/revision/", orderHandler.RequestRevision)
			byID.POST("/cancel/", orderHandler.CancelOrder)
			byID.GET("/history/", orderHandler.OrderHistory)

			byID.POST("/bids/", bidHandler.PlaceBid)
			byID.GET("/bids/", bidHandler.ListBids)
			byID.POST("/accept_bid/", bidHandler.AcceptBid)

			byID.POST("/comments/", orderHandler.AddComment)
			byID.GET("/comments/", orderHandler.ListComments)

			byID.POST("/files/", fileHandler.UploadFile)
			byID.GET("/files/", fileHandler.ListFiles)
			byID.GET("/files/:fileId/download/", middleware.UUIDValidator("fileId"), fileHandler.DownloadFile)

			byID.POST("/create_dispute/", disputeHandler.CreateDispute)
			byID.GET("/dispute/", disputeHandler.GetOrderDispute)
		}

		disputes := orders.Group("/disputes")
		{
			disputes.GET("/", disputeHandler.ListDisputes)
			disputes.GET("/my_disputes/", disputeHandler.MyDisputes)
			disputes.GET("/arbitrators/", disputeHandler.ListArbitrators)
			disputes.GET("/:id/", middleware.UUIDValidator("id"), disputeHandler.GetDispute)
			disputes.POST("/:id/assign_arbitrator/", middleware.UUIDValidator("id"), disputeHandler.AssignArbitrator)
			disputes.POST("/:id/resolve/", middleware.UUIDValidator("id"), disputeHandler.ResolveDispute)
		}
	}

	return r
}
