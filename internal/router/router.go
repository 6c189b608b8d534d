package router

import (
	"net/http"
	"time"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/config"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/handler"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/middleware"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/response"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth         *handler.AuthHandler
	Attempt      *handler.AttemptHandler
	Catalog      *handler.CatalogHandler
	Result       *handler.ResultHandler
	Subscription *handler.SubscriptionHandler
	Exam         *handler.ExamHandler
	WS           *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", handler.HeaderGuestToken}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireUserJWT(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireUserJWT(authService), handlers.Auth.GetProfile)
		auth.GET("/admin/me", middleware.RequireAdminJWT(authService), handlers.Auth.GetAdminProfile)
	}

	// ─── 2. Catalog Group (Public) ─────────────────────────────────────
	catalog := router.Group("/api/v1")
	catalog.Use(middleware.CacheControl(60))
	{
		catalog.GET("/subjects", handlers.Catalog.ListSubjects)
		catalog.GET("/exams", handlers.Catalog.ListExams)
	}
	router.GET("/api/v1/subjects/:subject_id/quota",
		middleware.RequireUserJWT(authService),
		middleware.CheckActiveSession(authService),
		handlers.Catalog.GetQuotaStatus,
	)

	// ─── 3. Attempt Group (Optional Identity) ──────────────────────────
	// Anonymous visitors pass with a guest token; registered users with a
	// JWT. Ownership is re-checked per attempt inside the service.
	attemptAPI := router.Group("/api/v1/attempts")
	attemptAPI.Use(
		middleware.OptionalUserJWT(authService),
		middleware.CheckActiveSession(authService),
	)
	{
		attemptAPI.POST("", handlers.Attempt.Start)
		attemptAPI.GET("/:attempt_id", handlers.Attempt.GetState)
		attemptAPI.PUT("/:attempt_id/answer", handlers.Attempt.SelectAnswer)
		attemptAPI.PUT("/:attempt_id/navigate", handlers.Attempt.Navigate)
		attemptAPI.POST("/:attempt_id/submit", handlers.Attempt.Submit)
		attemptAPI.GET("/:attempt_id/result", handlers.Attempt.GetResult)
		attemptAPI.GET("/:attempt_id/review", handlers.Attempt.GetReview)
	}

	// Held anonymous results (guest token header only).
	guestAPI := router.Group("/api/v1/guest")
	{
		guestAPI.GET("/held-result", handlers.Attempt.PeekHeldResult)
		guestAPI.DELETE("/held-result", handlers.Attempt.DiscardHeldResult)
	}

	// ─── 4. User Group (JWT + Active Session) ──────────────────────────
	userAPI := router.Group("/api/v1")
	userAPI.Use(
		middleware.RequireUserJWT(authService),
		middleware.CheckActiveSession(authService),
	)
	{
		userAPI.GET("/results", handlers.Result.List)
		userAPI.GET("/results/:result_id", handlers.Result.Get)
		userAPI.GET("/dashboard", handlers.Result.Dashboard)
		userAPI.GET("/subscription", handlers.Subscription.GetMine)
	}

	// ─── 5. WebSocket Group (Optional Identity) ────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.OptionalUserJWT(authService))
	{
		ws.GET("/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 6. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		// Exam management
		adminAPI.GET("/exams", handlers.Exam.List)
		adminAPI.POST("/exams", handlers.Exam.Create)
		adminAPI.GET("/exams/:exam_id", handlers.Exam.Get)
		adminAPI.PUT("/exams/:exam_id", handlers.Exam.Update)
		adminAPI.DELETE("/exams/:exam_id", handlers.Exam.Delete)
		adminAPI.GET("/exams/:exam_id/questions", handlers.Exam.ListQuestions)
		adminAPI.PUT("/exams/:exam_id/questions", handlers.Exam.ReplaceQuestions)
		adminAPI.POST("/exams/:exam_id/publish", handlers.Exam.Publish)
		adminAPI.POST("/exams/:exam_id/archive", handlers.Exam.Archive)
		adminAPI.POST("/exams/:exam_id/refresh-cache", handlers.Exam.RefreshCache)

		// Subjects
		adminAPI.POST("/subjects", handlers.Exam.CreateSubject)

		// Premium entitlements
		adminAPI.POST("/users/:user_id/subscription", handlers.Subscription.Grant)
	}

	return router
}
