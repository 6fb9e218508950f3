package handler

import (
	"testing"

	"github.com/bitfantasy/sitepm/internal/pm/entity"
	"github.com/bitfantasy/sitepm/internal/pm/repository"
	"github.com/bitfantasy/sitepm/internal/pm/service"
	"github.com/bitfantasy/sitepm/internal/pm/testutil"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupBudgetRouter(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	budgetRepo := repository.NewBudgetRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	budgetSvc := service.NewBudgetService(budgetRepo, projectRepo)
	h := NewBudgetHandler(budgetSvc)

	r := testutil.SetupRouter()
	g := testutil.AuthGroup(r, "/api/v1")
	g.POST("/pm/budget-items", h.Create)
	g.GET("/pm/budget-items/:id", h.Get)
	g.GET("/pm/budget-items/:id/balance", h.Balance)
	return db, r
}

func TestCreateBudgetItem(t *testing.T) {
	db, r := setupBudgetRouter(t)
	project := entity.Project{ID: "proj-0001", Code: "HQ01", Name: "总部园区一期"}
	if err := db.Create(&project).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}

	w := testutil.DoRequest(r, "POST", "/api/v1/pm/budget-items", map[string]interface{}{
		"project_id":      "proj-0001",
		"cost_code":       "03-3000",
		"name":            "混凝土工程",
		"estimated_total": "50000",
	}, testutil.DefaultTestToken())
	if w.Code != 201 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var item entity.BudgetItem
	if err := db.Where("cost_code = ?", "03-3000").First(&item).Error; err != nil {
		t.Fatalf("budget item not persisted: %v", err)
	}
	if !item.EstimatedTotal.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("estimated total = %s", item.EstimatedTotal)
	}
}

func TestBudgetBalance(t *testing.T) {
	db, r := setupBudgetRouter(t)

	seed := []interface{}{
		&entity.Project{ID: "proj-0001", Code: "HQ01", Name: "总部园区一期"},
		&entity.BudgetItem{ID: "budget-1", ProjectID: "proj-0001", CostCode: "03-3000",
			Name: "混凝土工程", EstimatedTotal: decimal.NewFromInt(10000)},
		&entity.Commitment{ID: "cmt-1", ContractNo: "CT-HQ01-202601-0001",
			ProjectID: "proj-0001", VendorID: "vendor-1", Type: entity.CommitmentTypeContract,
			Status:         entity.CommitmentStatusActive,
			OriginalAmount: decimal.NewFromInt(9500), CurrentAmount: decimal.NewFromInt(9500)},
		&entity.CommitmentAllocation{ID: "alloc-1", CommitmentID: "cmt-1",
			BudgetItemID: "budget-1", Amount: decimal.NewFromInt(9500)},
		// cancelled承诺不占余额
		&entity.Commitment{ID: "cmt-2", ContractNo: "CT-HQ01-202601-0002",
			ProjectID: "proj-0001", VendorID: "vendor-1", Type: entity.CommitmentTypeContract,
			Status:         entity.CommitmentStatusCancelled,
			OriginalAmount: decimal.NewFromInt(3000), CurrentAmount: decimal.NewFromInt(3000)},
		&entity.CommitmentAllocation{ID: "alloc-2", CommitmentID: "cmt-2",
			BudgetItemID: "budget-1", Amount: decimal.NewFromInt(3000)},
	}
	for _, s := range seed {
		if err := db.Create(s).Error; err != nil {
			t.Fatalf("init test data failed: %v", err)
		}
	}

	w := testutil.DoRequest(r, "GET", "/api/v1/pm/budget-items/budget-1/balance", nil, testutil.DefaultTestToken())
	if w.Code != 200 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	data, _ := resp["data"].(map[string]interface{})
	if data["committed"] != "9500" {
		t.Errorf("committed = %v, want 9500", data["committed"])
	}
	if data["available"] != "500" {
		t.Errorf("available = %v, want 500", data["available"])
	}
}

func TestBudgetItemNotFound(t *testing.T) {
	_, r := setupBudgetRouter(t)

	w := testutil.DoRequest(r, "GET", "/api/v1/pm/budget-items/no-such-item", nil, testutil.DefaultTestToken())
	if w.Code != 404 {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
