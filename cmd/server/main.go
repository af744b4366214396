package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"sms-campaign-platform/internal/analytics"
	"sms-campaign-platform/internal/config"
	"sms-campaign-platform/internal/handler"
	"sms-campaign-platform/internal/middleware"
	"sms-campaign-platform/internal/model"
	"sms-campaign-platform/internal/send"
	"sms-campaign-platform/internal/shortcode"
	"sms-campaign-platform/internal/shorturl"
	"sms-campaign-platform/internal/sms"
	"sms-campaign-platform/pkg/database"
	auth "sms-campaign-platform/pkg/jwt"
	"sms-campaign-platform/pkg/logger"
	"sms-campaign-platform/pkg/redis"

	_ "sms-campaign-platform/docs"

	"github.com/gin-gonic/gin"
	redisClient "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Println("配置加载失败:", err)
		return
	}

	logger.InitLogger(cfg.App.Mode)
	defer func() {
		if err := logger.Logger.Sync(); err != nil {
			fmt.Println("日志同步失败:", err)
		}
	}()
	sugaredLogger := zap.S()

	db, err := database.InitMySQL(cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name)
	if err != nil {
		sugaredLogger.Fatalf("数据库初始化失败: %v", err)
	}
	sugaredLogger.Info("✅ 数据库连接成功")

	var rdb *redisClient.Client
	if cfg.Cache.Host != "" {
		rdb, err = redis.NewRedisClient(&redis.Options{
			Host: cfg.Cache.Host, Port: cfg.Cache.Port, Password: cfg.Cache.Password, DB: cfg.Cache.DB,
		})
		if err != nil {
			sugaredLogger.Warnf("缓存连接失败: %v", err)
		} else {
			defer func() {
				if err := rdb.Close(); err != nil {
					sugaredLogger.Errorf("关闭 Redis 连接失败: %v", err)
				}
			}()
			sugaredLogger.Info("✅ 缓存连接成功")
		}
	}

	tokenManager := auth.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.ExpirationHours)
	sugaredLogger.Info("✅ 认证管理器初始化成功")

	if err := createAdminUser(db); err != nil {
		sugaredLogger.Errorf("创建管理员失败: %v", err)
	}

	// 短链接子系统
	registry := shorturl.NewRegistry(db, rdb, shortcode.NewGenerator(), sugaredLogger)
	rewriter := shorturl.NewRewriter(registry, cfg.ShortURL.BaseURL, sugaredLogger)
	recorder := shorturl.NewClickRecorder(db)

	// 运营商网关与批量发送编排器
	gateway := sms.NewTwilioGateway(sms.TwilioConfig{
		AccountSID: cfg.SMS.AccountSID,
		AuthToken:  cfg.SMS.AuthToken,
		FromNumber: cfg.SMS.FromNumber,
		APIBase:    cfg.SMS.APIBase,
		Timeout:    time.Duration(cfg.SMS.TimeoutSeconds) * time.Second,
	})
	orchestrator := send.NewOrchestrator(db, gateway, rewriter, registry, sugaredLogger)

	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.GinZapRecovery(logger.Logger, true))
	router.Use(middleware.GinZapLogger(logger.Logger))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authMiddleware := middleware.AuthMiddleware(tokenManager)
	adminMiddleware := middleware.AdminMiddleware()
	router.Use(middleware.RateLimit(rdb, &cfg.RateLimit))

	redirectHandler := handler.NewRedirectHandler(registry, recorder, sugaredLogger)
	sendHandler := handler.NewSendHandler(db, orchestrator, sugaredLogger)
	analyticsHandler := handler.NewAnalyticsHandler(analytics.NewAggregator(db, sugaredLogger), sugaredLogger)
	campaignHandler := handler.NewCampaignHandler(db)
	contactHandler := handler.NewContactHandler(db)
	logHandler := handler.NewLogHandler(db)
	authHandler := handler.NewAuthHandler(db, rdb, tokenManager)

	registerRoutes(router, redirectHandler, sendHandler, analyticsHandler, campaignHandler, contactHandler, logHandler, authHandler, authMiddleware, adminMiddleware)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	sugaredLogger.Infof("🚀 服务启动成功, 访问 http://localhost:%d", cfg.Server.Port)
	sugaredLogger.Infof("📚 Swagger 文档地址: http://localhost:%d/swagger/index.html", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugaredLogger.Fatalf("服务启动失败: %v", err)
	}
}

func registerRoutes(
	router *gin.Engine,
	redirectHandler *handler.RedirectHandler,
	sendHandler *handler.SendHandler,
	analyticsHandler *handler.AnalyticsHandler,
	campaignHandler *handler.CampaignHandler,
	contactHandler *handler.ContactHandler,
	logHandler *handler.LogHandler,
	authHandler *handler.AuthHandler,
	authMiddleware, adminMiddleware gin.HandlerFunc,
) {
	router.GET("/health", handler.HealthCheck)

	// 短链接重定向是唯一的公开业务入口
	router.GET("/r/:code", redirectHandler.Redirect)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
	}

	api := router.Group("/api")
	api.Use(authMiddleware)
	{
		api.GET("/me", authHandler.GetCurrentUser)

		api.POST("/send-sms", sendHandler.SendBatch)
		api.GET("/logs", logHandler.ListLogs)
		api.GET("/analytics", analyticsHandler.GetAnalytics)

		api.GET("/campaigns", campaignHandler.ListCampaigns)
		api.POST("/campaigns", campaignHandler.CreateCampaign)
		api.PATCH("/campaigns/:id", campaignHandler.UpdateCampaign)
		api.GET("/campaigns/:id/preview", campaignHandler.PreviewCampaign)

		api.GET("/contacts", contactHandler.ListContacts)
		api.POST("/contacts", contactHandler.ImportContacts)
		api.POST("/contacts/import", contactHandler.ImportContactsCsv)
		api.PATCH("/contacts/:id", contactHandler.UpdateContact)
	}

	admin := api.Group("")
	admin.Use(adminMiddleware)
	{
		admin.DELETE("/campaigns/:id", campaignHandler.DeleteCampaign)
		admin.DELETE("/contacts/:id", contactHandler.DeleteContact)
	}
}

func createAdminUser(db *gorm.DB) error {
	var existing model.User
	if err := db.Where("username = ?", "admin").First(&existing).Error; err == nil {
		return nil
	}

	admin := model.User{Username: "admin", Email: "admin@sms-campaign.local", Role: "admin", IsActive: true}
	if err := admin.SetPassword("admin"); err != nil {
		return err
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	zap.S().Infow("✅ 默认管理员创建成功", "username", "admin")
	return nil
}
