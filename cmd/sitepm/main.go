package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	bidentity "github.com/bitfantasy/sitepm/internal/bidding/entity"
	bidhandler "github.com/bitfantasy/sitepm/internal/bidding/handler"
	bidrepo "github.com/bitfantasy/sitepm/internal/bidding/repository"
	bidsvc "github.com/bitfantasy/sitepm/internal/bidding/service"
	"github.com/bitfantasy/sitepm/internal/config"
	"github.com/bitfantasy/sitepm/internal/middleware"
	pmentity "github.com/bitfantasy/sitepm/internal/pm/entity"
	pmhandler "github.com/bitfantasy/sitepm/internal/pm/handler"
	pmrepo "github.com/bitfantasy/sitepm/internal/pm/repository"
	pmsvc "github.com/bitfantasy/sitepm/internal/pm/service"
	"github.com/bitfantasy/sitepm/internal/shared/notify"
	"github.com/bitfantasy/sitepm/internal/shared/storage"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting sitepm service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := migrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}
	zapLogger.Info("Database migration completed")

	// Redis（事件通知用，连不上不阻塞启动）
	rdb := initRedis(cfg.Redis)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		zapLogger.Warn("Redis unavailable, event publishing disabled", zap.Error(err))
		rdb = nil
	}
	notifier := notify.NewNotifier(rdb, cfg.Notify.WebhookURL)

	// 对象存储
	store, err := storage.New(storage.Options{
		Endpoint:  cfg.MinIO.Endpoint,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		UseSSL:    cfg.MinIO.UseSSL,
		Bucket:    cfg.MinIO.Bucket,
	})
	if err != nil {
		zapLogger.Warn("Object storage unavailable, attachments disabled", zap.Error(err))
		store = nil
	}
	if store != nil {
		if err := store.EnsureBucket(context.Background()); err != nil {
			zapLogger.Warn("Failed to ensure bucket", zap.Error(err))
		}
	}

	// PM仓库和服务
	pmRepos := pmrepo.NewRepositories(db)
	projectSvc := pmsvc.NewProjectService(pmRepos.Project)
	vendorSvc := pmsvc.NewVendorService(pmRepos.Vendor)
	budgetSvc := pmsvc.NewBudgetService(pmRepos.Budget, pmRepos.Project)
	commitmentSvc := pmsvc.NewCommitmentService(pmRepos.Commitment)
	pmHandlers := pmhandler.NewHandlers(projectSvc, vendorSvc, budgetSvc, commitmentSvc)

	// 招投标仓库和服务
	bidRepos := bidrepo.NewRepositories(db)
	attachmentRepo := bidrepo.NewAttachmentRepository(db)
	tabulationSvc := bidsvc.NewTabulationService(bidRepos.RFP, bidRepos.Bid, pmRepos.Vendor, cfg.Bidding.TabulationTimeout)
	rfpSvc := bidsvc.NewRFPService(bidRepos.RFP, bidRepos.Bid, pmRepos.Project, notifier, zapLogger)
	bidSvc := bidsvc.NewBidService(bidRepos.RFP, bidRepos.Bid, pmRepos.Vendor, notifier, zapLogger)
	levelingSvc := bidsvc.NewLevelingService(bidRepos.Bid, tabulationSvc, notifier, zapLogger, cfg.Bidding.TabulationTimeout)
	awardSvc := bidsvc.NewAwardService(db, bidRepos.RFP, bidRepos.Bid, bidRepos.Award, pmRepos.Project,
		tabulationSvc, notifier, zapLogger,
		decimal.NewFromFloat(cfg.Bidding.AwardTolerance), cfg.Bidding.AwardTimeout)
	attachmentSvc := bidsvc.NewAttachmentService(attachmentRepo, bidRepos.Bid, store)
	bidHandlers := bidhandler.NewHandlers(rfpSvc, bidSvc, tabulationSvc, levelingSvc, awardSvc, attachmentSvc)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, pmHandlers, bidHandlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

// migrate 建表与唯一索引。AutoMigrate建基础结构，
// 业务关键的唯一约束用raw SQL兜底（幂等）。
func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&pmentity.Project{},
		&pmentity.Vendor{},
		&pmentity.VendorContact{},
		&pmentity.BudgetItem{},
		&pmentity.BudgetTransaction{},
		&pmentity.Commitment{},
		&pmentity.CommitmentAllocation{},
		&bidentity.RFP{},
		&bidentity.RFPLineItem{},
		&bidentity.Bid{},
		&bidentity.BidItem{},
		&bidentity.BidAdjustment{},
		&bidentity.BidAttachment{},
		&bidentity.Award{},
	); err != nil {
		return err
	}

	// 一个RFP只能有一条有效定标（已撤销的不占位）、一个供应商只能投一次标
	constraints := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS uniq_award_rfp ON bid_awards(rfp_id) WHERE status = 'active'",
		"CREATE UNIQUE INDEX IF NOT EXISTS uniq_rfp_vendor ON bid_bids(rfp_id, vendor_id)",
		"CREATE UNIQUE INDEX IF NOT EXISTS uniq_commitment_contract_no ON pm_commitments(contract_no)",
	}
	for _, sql := range constraints {
		if err := db.Exec(sql).Error; err != nil {
			return err
		}
	}
	return nil
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, pmH *pmhandler.Handlers, bidH *bidhandler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			// === 项目管理 ===
			projects := authorized.Group("/pm/projects")
			{
				projects.GET("", pmH.Project.List)
				projects.POST("", pmH.Project.Create)
				projects.GET("/:id", pmH.Project.Get)
				projects.PUT("/:id", pmH.Project.Update)
			}

			vendors := authorized.Group("/pm/vendors")
			{
				vendors.GET("", pmH.Vendor.List)
				vendors.POST("", pmH.Vendor.Create)
				vendors.GET("/:id", pmH.Vendor.Get)
				vendors.PUT("/:id", pmH.Vendor.Update)
				vendors.POST("/:id/contacts", pmH.Vendor.AddContact)
				vendors.DELETE("/:id/contacts/:contactId", pmH.Vendor.DeleteContact)
			}

			budgetItems := authorized.Group("/pm/budget-items")
			{
				budgetItems.GET("", pmH.Budget.List)
				budgetItems.POST("", pmH.Budget.Create)
				budgetItems.GET("/:id", pmH.Budget.Get)
				budgetItems.PUT("/:id", pmH.Budget.Update)
				budgetItems.GET("/:id/balance", pmH.Budget.Balance)
				budgetItems.GET("/:id/transactions", pmH.Budget.Transactions)
			}

			commitments := authorized.Group("/pm/commitments")
			{
				commitments.GET("", pmH.Commitment.List)
				commitments.GET("/:id", pmH.Commitment.Get)
				commitments.POST("/:id/activate", pmH.Commitment.Activate)
				commitments.POST("/:id/close", pmH.Commitment.Close)
			}

			// === 招投标 ===
			rfps := authorized.Group("/bidding/rfps")
			{
				rfps.GET("", bidH.RFP.List)
				rfps.POST("", bidH.RFP.Create)
				rfps.GET("/:id", bidH.RFP.Get)
				rfps.PUT("/:id", bidH.RFP.Update)
				rfps.POST("/:id/publish", bidH.RFP.Publish)
				rfps.POST("/:id/cancel", bidH.RFP.Cancel)
				rfps.POST("/:id/line-items", bidH.RFP.AddLineItem)
				rfps.PUT("/:id/line-items/:itemId", bidH.RFP.UpdateLineItem)
				rfps.DELETE("/:id/line-items/:itemId", bidH.RFP.DeleteLineItem)

				rfps.GET("/:id/bids", bidH.Bid.List)
				rfps.POST("/:id/bids", bidH.Bid.Create)
				rfps.GET("/:id/bids/:bidId", bidH.Bid.Get)
				rfps.PUT("/:id/bids/:bidId/items", bidH.Bid.UpsertItem)
				rfps.DELETE("/:id/bids/:bidId/items/:itemId", bidH.Bid.DeleteItem)
				rfps.POST("/:id/bids/:bidId/adjustments", bidH.Bid.AddAdjustment)
				rfps.PUT("/:id/bids/:bidId/adjustments/:adjId", bidH.Bid.UpdateAdjustment)
				rfps.DELETE("/:id/bids/:bidId/adjustments/:adjId", bidH.Bid.DeleteAdjustment)
				rfps.POST("/:id/bids/:bidId/submit", bidH.Bid.Submit)
				rfps.POST("/:id/bids/:bidId/withdraw", bidH.Bid.Withdraw)

				rfps.POST("/:id/bids/:bidId/attachments", bidH.Attachment.Upload)
				rfps.GET("/:id/bids/:bidId/attachments", bidH.Attachment.List)

				// 比价与定标仅限评标管理员
				admin := rfps.Group("")
				admin.Use(middleware.RequireRole("bid_admin"))
				{
					admin.GET("/:id/comparison", bidH.Tabulation.GetComparison)
					admin.GET("/:id/comparison/export", bidH.Tabulation.Export)
					admin.PUT("/:id/bids/:bidId/leveling", bidH.Leveling.Apply)
					admin.POST("/:id/award", bidH.Award.Award)
					admin.GET("/:id/award", bidH.Award.Get)
					admin.POST("/:id/award/rescind", bidH.Award.Rescind)
				}
			}

			attachments := authorized.Group("/bidding/attachments")
			{
				attachments.GET("/:attachmentId/download", bidH.Attachment.Download)
				attachments.DELETE("/:attachmentId", bidH.Attachment.Delete)
			}
		}
	}
}
