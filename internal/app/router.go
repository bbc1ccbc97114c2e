// internal/app/router.go
package app

import (
	authHandler "mealbox-service/internal/handlers/auth"
	couponHandler "mealbox-service/internal/handlers/coupon"
	deliveryHandler "mealbox-service/internal/handlers/delivery"
	mealplanHandler "mealbox-service/internal/handlers/mealplan"
	mealprepHandler "mealbox-service/internal/handlers/mealprep"
	paymentHandler "mealbox-service/internal/handlers/payment"
	scheduleHandler "mealbox-service/internal/handlers/schedule"
	subscriptionHandler "mealbox-service/internal/handlers/subscription"
	"mealbox-service/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	AuthHandler         *authHandler.AuthHandler
	MealPlanHandler     *mealplanHandler.MealPlanHandler
	SubscriptionHandler *subscriptionHandler.SubscriptionHandler
	ScheduleHandler     *scheduleHandler.ScheduleHandler
	MealPrepHandler     *mealprepHandler.MealPrepHandler
	PaymentHandler      *paymentHandler.PaymentHandler
	DeliveryHandler     *deliveryHandler.DeliveryHandler
	CouponHandler       *couponHandler.CouponHandler
	AuthMiddleware      *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== Public Auth Routes ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/register", h.AuthHandler.Register)
		authPublic.POST("/login", h.AuthHandler.Login)
	}

	// ==================== Authenticated Auth Routes ====================
	authProtected := api.Group("/auth")
	authProtected.Use(h.AuthMiddleware.Auth())
	{
		authProtected.POST("/logout", h.AuthHandler.Logout)
		authProtected.POST("/logout-all", h.AuthHandler.LogoutAll)
		authProtected.GET("/me", h.AuthHandler.Me)
	}

	// ==================== Storefront ====================
	plans := api.Group("/plans")
	{
		plans.GET("", h.MealPlanHandler.ListPublic)
		plans.GET("/:id", h.MealPlanHandler.Get)
	}

	payments := api.Group("/payments")
	{
		payments.POST("/checkout", h.PaymentHandler.Checkout)
		payments.POST("/callback", h.PaymentHandler.Callback)
		payments.POST("/webhook", h.PaymentHandler.Webhook)
	}

	coupons := api.Group("/coupons")
	{
		coupons.POST("/validate", h.CouponHandler.Validate)
	}

	// ==================== Subscriptions ====================
	subscriptions := api.Group("/subscriptions")
	subscriptions.Use(h.AuthMiddleware.Auth())
	{
		subscriptions.GET("", h.SubscriptionHandler.List)
		subscriptions.GET("/:id", h.SubscriptionHandler.Get)
		subscriptions.PUT("/:id/pause", h.SubscriptionHandler.Pause)
		subscriptions.PUT("/:id/resume", h.SubscriptionHandler.Resume)
		subscriptions.POST("/:id/cancel", h.SubscriptionHandler.Cancel)
		subscriptions.PUT("/:id/delivery-days", h.SubscriptionHandler.UpdateDeliveryDays)

		// Delivery schedule
		subscriptions.GET("/:id/deliveries", h.ScheduleHandler.Upcoming)
		subscriptions.POST("/:id/deliveries/skip", h.ScheduleHandler.Skip)
		subscriptions.POST("/:id/deliveries/unskip", h.ScheduleHandler.Unskip)
		subscriptions.GET("/:id/deliveries/history", h.DeliveryHandler.ListForSubscription)
	}

	// ==================== ADMIN ROUTES ====================
	admin := api.Group("/admin")
	admin.Use(h.AuthMiddleware.AdminOnly()...)
	{
		// Catalog management
		adminPlans := admin.Group("/plans")
		{
			adminPlans.GET("", h.MealPlanHandler.ListAll)
			adminPlans.POST("", h.MealPlanHandler.Create)
			adminPlans.PUT("/:id", h.MealPlanHandler.Update)
			adminPlans.PUT("/:id/status", h.MealPlanHandler.SetStatus)
		}

		// Coupon management
		adminCoupons := admin.Group("/coupons")
		{
			adminCoupons.GET("", h.CouponHandler.List)
			adminCoupons.POST("", h.CouponHandler.Create)
			adminCoupons.PUT("/:id/status", h.CouponHandler.SetStatus)
		}

		// Subscription management
		adminSubscriptions := admin.Group("/subscriptions")
		{
			adminSubscriptions.POST("/:id/renew", h.SubscriptionHandler.Renew)
			adminSubscriptions.POST("/maintenance", h.SubscriptionHandler.RunMaintenance)
			adminSubscriptions.GET("/stats", h.SubscriptionHandler.Stats)
		}

		// Kitchen operations
		admin.GET("/mealprep", h.MealPrepHandler.Report)

		adminDeliveries := admin.Group("/deliveries")
		{
			adminDeliveries.GET("", h.DeliveryHandler.ListForDate)
			adminDeliveries.PUT("/:id/status", h.DeliveryHandler.UpdateStatus)
		}
		admin.POST("/subscriptions/:id/deliveries", h.DeliveryHandler.Materialize)

		// Live kitchen feed (token via query param)
		admin.GET("/kitchen/feed", h.DeliveryHandler.Feed)
	}
}
