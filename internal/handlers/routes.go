package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rewards-service/internal/middleware"
	"rewards-service/internal/models"
)

// Register mounts the API under /api. Role checks here are coarse; the
// services enforce the exact rules.
func (h *Handler) Register(r *gin.Engine, authenticator middleware.Authenticator) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	api := r.Group("/api")
	requireAuth := middleware.Auth(authenticator, h.CookieName)

	auth := api.Group("/auth")
	auth.POST("/login", h.Login)
	auth.POST("/logout", requireAuth, h.Logout)
	auth.GET("/me", requireAuth, h.Me)

	private := api.Group("", requireAuth)

	staff := middleware.RequireRole(models.RoleAdmin, models.RoleSupervisor)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	gifts := private.Group("/gifts")
	gifts.GET("", h.ListGifts)
	gifts.GET("/:id", h.GetGift)
	gifts.POST("", staff, h.CreateGift)
	gifts.PUT("/:id", staff, h.UpdateGift)
	gifts.DELETE("/:id", staff, h.DeleteGift)

	redemptions := private.Group("/redemptions")
	redemptions.GET("", h.ListRedemptions)
	redemptions.GET("/:id", h.GetRedemption)
	redemptions.POST("", middleware.RequireRole(models.RoleUser, models.RoleAdmin, models.RoleSupervisor), h.CreateRedemption)
	redemptions.PUT("/:id", staff, h.ProcessRedemption)

	users := private.Group("/users", staff)
	users.GET("", h.ListUsers)
	users.GET("/:id", h.GetUser)
	users.POST("", adminOnly, h.CreateUser)
	users.PUT("/:id", adminOnly, h.UpdateUser)
	users.DELETE("/:id", adminOnly, h.DeleteUser)

	admin := private.Group("/admin", adminOnly)
	admin.GET("/pumps", h.ListPumps)
	admin.GET("/pumps/:id", h.GetPump)
	admin.POST("/pumps", h.CreatePump)
	admin.PUT("/pumps/:id", h.UpdatePump)
	admin.DELETE("/pumps/:id", h.DeletePump)
	admin.POST("/assign-pump", h.AssignPump)
	admin.GET("/pump-assignments", h.ListPumpAssignments)
	admin.GET("/settings", h.GetSettings)
	admin.PUT("/settings", h.UpdateSettings)
	admin.GET("/dashboard", h.DashboardStats)

	employer := private.Group("/employer", middleware.RequireRole(models.RoleEmployer))
	employer.GET("/transactions", h.ListEmployerTransactions)
	employer.POST("/transactions", h.RecordTransaction)
	employer.GET("/transactions/:invoice", h.GetTransaction)
	employer.GET("/reward-points", h.EmployerRewardPoints)
	employer.GET("/gifts", h.EmployerGifts)
	employer.GET("/gifts/:id/status", h.EmployerGiftStatus)
	employer.PUT("/gifts/:id/availability", h.UpdateGiftAvailability)
	employer.GET("/pumps", h.MyPumps)
	employer.GET("/users", h.EmployerUsers)

	user := private.Group("/user", middleware.RequireRole(models.RoleUser))
	user.GET("/reward-points", h.UserRewardPoints)
	user.GET("/available-gifts", h.AvailableGifts)

	supervisor := private.Group("/supervisor", staff)
	supervisor.POST("/assign-gift", h.AssignGift)
	supervisor.PUT("/gift-assignments/:id/approve", h.ApproveGiftAssignment)
	supervisor.POST("/assign-user", h.AssignUser)

	notifications := private.Group("/notifications")
	notifications.GET("", h.ListNotifications)
	notifications.PUT("/:id/read", h.MarkNotificationRead)
}
