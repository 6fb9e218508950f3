package handler

import (
	"testing"
	"time"

	"github.com/bitfantasy/sitepm/internal/bidding/entity"
	"github.com/bitfantasy/sitepm/internal/bidding/repository"
	"github.com/bitfantasy/sitepm/internal/bidding/service"
	"github.com/bitfantasy/sitepm/internal/middleware"
	pmentity "github.com/bitfantasy/sitepm/internal/pm/entity"
	pmrepo "github.com/bitfantasy/sitepm/internal/pm/repository"
	"github.com/bitfantasy/sitepm/internal/pm/testutil"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// biddingEnv 招投标接口测试环境：独立schema + 完整路由
type biddingEnv struct {
	db     *gorm.DB
	router *gin.Engine
	token  string
}

func setupBiddingEnv(t *testing.T) *biddingEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	rfpRepo := repository.NewRFPRepository(db)
	bidRepo := repository.NewBidRepository(db)
	awardRepo := repository.NewAwardRepository(db)
	projectRepo := pmrepo.NewProjectRepository(db)
	vendorRepo := pmrepo.NewVendorRepository(db)

	logger := zap.NewNop()
	rfpSvc := service.NewRFPService(rfpRepo, bidRepo, projectRepo, nil, logger)
	bidSvc := service.NewBidService(rfpRepo, bidRepo, vendorRepo, nil, logger)
	tabulationSvc := service.NewTabulationService(rfpRepo, bidRepo, vendorRepo, 0)
	levelingSvc := service.NewLevelingService(bidRepo, tabulationSvc, nil, logger, 0)
	awardSvc := service.NewAwardService(db, rfpRepo, bidRepo, awardRepo, projectRepo,
		tabulationSvc, nil, logger, decimal.NewFromFloat(0.01), 0)

	r := testutil.SetupRouter()
	authorized := testutil.AuthGroup(r, "/api/v1")
	rfps := authorized.Group("/bidding/rfps")

	rfpHandler := NewRFPHandler(rfpSvc)
	bidHandler := NewBidHandler(bidSvc)
	tabulationHandler := NewTabulationHandler(tabulationSvc)
	levelingHandler := NewLevelingHandler(levelingSvc)
	awardHandler := NewAwardHandler(awardSvc)

	rfps.POST("", rfpHandler.Create)
	rfps.GET("/:id", rfpHandler.Get)
	rfps.PUT("/:id", rfpHandler.Update)
	rfps.POST("/:id/publish", rfpHandler.Publish)
	rfps.POST("/:id/line-items", rfpHandler.AddLineItem)
	rfps.GET("/:id/bids", bidHandler.List)
	rfps.POST("/:id/bids", bidHandler.Create)
	rfps.GET("/:id/bids/:bidId", bidHandler.Get)
	rfps.PUT("/:id/bids/:bidId/items", bidHandler.UpsertItem)
	rfps.POST("/:id/bids/:bidId/submit", bidHandler.Submit)
	rfps.POST("/:id/bids/:bidId/withdraw", bidHandler.Withdraw)

	admin := rfps.Group("", middleware.RequireRole("bid_admin"))
	admin.GET("/:id/comparison", tabulationHandler.GetComparison)
	admin.GET("/:id/comparison/export", tabulationHandler.Export)
	admin.PUT("/:id/bids/:bidId/leveling", levelingHandler.Apply)
	admin.POST("/:id/award", awardHandler.Award)
	admin.GET("/:id/award", awardHandler.Get)
	admin.POST("/:id/award/rescind", awardHandler.Rescind)

	return &biddingEnv{db: db, router: r, token: testutil.DefaultTestToken()}
}

func dec(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

// seedComparisonFixture 造一个已开标RFP：两家已提交投标，
// 甲15000、乙16000，配套项目/供应商/预算科目。
func (e *biddingEnv) seedComparisonFixture(t *testing.T) {
	t.Helper()
	now := time.Now()
	opened := now.Add(-1 * time.Hour)
	subA := now.Add(-3 * time.Hour)
	subB := now.Add(-2 * time.Hour)

	fixtures := []interface{}{
		&pmentity.Project{ID: "proj-0001", Code: "HQ01", Name: "总部园区一期",
			Status: pmentity.ProjectStatusActive, CreatedBy: "test-user-001"},
		&pmentity.Vendor{ID: "vendor-a", Code: "V-A", Name: "华建一局",
			Trade: "concrete", Status: pmentity.VendorStatusActive},
		&pmentity.Vendor{ID: "vendor-b", Code: "V-B", Name: "宏远机电",
			Trade: "concrete", Status: pmentity.VendorStatusActive},
		&pmentity.BudgetItem{ID: "budget-concrete", ProjectID: "proj-0001",
			CostCode: "03-3000", Name: "混凝土工程", EstimatedTotal: dec(50000)},
		&pmentity.BudgetItem{ID: "budget-general", ProjectID: "proj-0001",
			CostCode: "01-0000", Name: "总承包杂项", EstimatedTotal: dec(2000)},
		&entity.RFP{ID: "rfp-0001", RFPCode: "RFP-HQ01-001", ProjectID: "proj-0001",
			Title: "结构混凝土分包招标", Status: entity.RFPStatusPublished, BidOpeningAt: &opened},
		&entity.RFPLineItem{ID: "li-concrete", RFPID: "rfp-0001", SpecCode: "03-3000",
			Description: "现浇混凝土", Quantity: dec(100), Unit: "CY"},
		&entity.Bid{ID: "bid-a", RFPID: "rfp-0001", VendorID: "vendor-a",
			Status: entity.BidStatusSubmitted, SubmittedAt: &subA},
		&entity.BidItem{ID: "bi-a-1", BidID: "bid-a", RFPLineItemID: "li-concrete",
			UnitPrice: dec(150), Quantity: dec(100), Unit: "CY", TotalPrice: dec(15000)},
		&entity.Bid{ID: "bid-b", RFPID: "rfp-0001", VendorID: "vendor-b",
			Status: entity.BidStatusSubmitted, SubmittedAt: &subB},
		&entity.BidItem{ID: "bi-b-1", BidID: "bid-b", RFPLineItemID: "li-concrete",
			UnitPrice: dec(160), Quantity: dec(100), Unit: "CY", TotalPrice: dec(16000)},
	}
	for _, f := range fixtures {
		if err := e.db.Create(f).Error; err != nil {
			t.Fatalf("init test data failed: %v", err)
		}
	}
}

// assertRule 校验422响应携带的前置条件规则名
func assertRule(t *testing.T, resp map[string]interface{}, rule string) {
	t.Helper()
	data, _ := resp["data"].(map[string]interface{})
	if data == nil || data["rule"] != rule {
		t.Errorf("precondition rule = %v, want %s (resp=%v)", data, rule, resp)
	}
}
