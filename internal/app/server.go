// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"log"

	"mealbox-service/internal/config"
	"mealbox-service/internal/db"
	razorpaygw "mealbox-service/internal/gateway/razorpay"
	authHandler "mealbox-service/internal/handlers/auth"
	couponHandler "mealbox-service/internal/handlers/coupon"
	deliveryHandler "mealbox-service/internal/handlers/delivery"
	mealplanHandler "mealbox-service/internal/handlers/mealplan"
	mealprepHandler "mealbox-service/internal/handlers/mealprep"
	paymentHandler "mealbox-service/internal/handlers/payment"
	scheduleHandler "mealbox-service/internal/handlers/schedule"
	subscriptionHandler "mealbox-service/internal/handlers/subscription"
	"mealbox-service/internal/middleware"
	"mealbox-service/internal/pkg/jwt"
	"mealbox-service/internal/pkg/session"
	"mealbox-service/internal/repository/postgres"
	authUsecase "mealbox-service/internal/service/auth"
	couponUsecase "mealbox-service/internal/service/coupon"
	deliveryUsecase "mealbox-service/internal/service/delivery"
	mealplanUsecase "mealbox-service/internal/service/mealplan"
	mealprepUsecase "mealbox-service/internal/service/mealprep"
	paymentUsecase "mealbox-service/internal/service/payment"
	scheduleUsecase "mealbox-service/internal/service/schedule"
	subscriptionUsecase "mealbox-service/internal/service/subscription"
	"mealbox-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- Logger -----
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	s.logger = logger

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       0,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	// ----- JWT & Sessions -----
	jwtManager, err := jwt.NewManager(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to build JWT manager: %w", err)
	}
	sessionManager := session.NewManager(redisClient, s.cfg.JWT.TTL)

	// ----- Payment gateway -----
	gateway := razorpaygw.NewClient(razorpaygw.Config{
		KeyID:         s.cfg.RazorpayKeyID,
		KeySecret:     s.cfg.RazorpayKeySecret,
		WebhookSecret: s.cfg.RazorpayWebhookSecret,
	}, logger)

	// ----- Repositories -----
	dbWrapper := postgres.NewDB(pool)
	userRepo := postgres.NewUserRepository(pool)
	planRepo := postgres.NewMealPlanRepository(pool)
	subscriptionRepo := postgres.NewSubscriptionRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	couponRepo := postgres.NewCouponRepository(pool)
	skipRepo := postgres.NewSkippedDeliveryRepository(pool)
	deliveryRepo := postgres.NewDeliveryRepository(pool)

	// ----- WebSocket hub -----
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	// ----- Services -----
	authService := authUsecase.NewAuthService(userRepo, jwtManager, sessionManager, logger)
	planService := mealplanUsecase.NewMealPlanService(planRepo, logger)
	couponService := couponUsecase.NewCouponService(couponRepo, planRepo, logger)
	subscriptionService := subscriptionUsecase.NewSubscriptionService(
		subscriptionRepo,
		orderRepo,
		planRepo,
		dbWrapper,
		s.cfg.ExpiringSoonDays,
		logger,
	)
	scheduleService := scheduleUsecase.NewScheduleService(
		skipRepo,
		deliveryRepo,
		dbWrapper,
		s.cfg.DeliveryCutoffHour,
		logger,
	)
	mealprepService := mealprepUsecase.NewAggregatorService(subscriptionRepo, skipRepo, redisClient, logger)
	deliveryService := deliveryUsecase.NewDeliveryService(deliveryRepo, hub, logger)
	paymentService := paymentUsecase.NewPaymentService(
		orderRepo,
		subscriptionRepo,
		userRepo,
		couponRepo,
		planRepo,
		gateway,
		dbWrapper,
		logger,
	)

	// ----- Handlers -----
	handlers := &Handlers{
		AuthHandler:         authHandler.NewAuthHandler(authService),
		MealPlanHandler:     mealplanHandler.NewMealPlanHandler(planService),
		SubscriptionHandler: subscriptionHandler.NewSubscriptionHandler(subscriptionService),
		ScheduleHandler:     scheduleHandler.NewScheduleHandler(scheduleService, subscriptionService, s.cfg.ScheduleWindowDays),
		MealPrepHandler:     mealprepHandler.NewMealPrepHandler(mealprepService),
		PaymentHandler:      paymentHandler.NewPaymentHandler(paymentService),
		DeliveryHandler:     deliveryHandler.NewDeliveryHandler(deliveryService, hub, logger),
		CouponHandler:       couponHandler.NewCouponHandler(couponService),
		AuthMiddleware:      middleware.NewAuthMiddleware(authService),
	}

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
	)

	SetupRouter(s.engine, handlers)

	log.Printf("server running on %s", s.cfg.HTTPAddr)
	return s.engine.Run(s.cfg.HTTPAddr)
}
