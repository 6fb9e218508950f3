package handler

import (
	"strings"
	"testing"

	"github.com/bitfantasy/sitepm/internal/bidding/entity"
	pmentity "github.com/bitfantasy/sitepm/internal/pm/entity"
	"github.com/bitfantasy/sitepm/internal/pm/testutil"
)

func awardBody(amount string, allocations ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"bid_id":        "bid-a",
		"amount":        amount,
		"justification": "最低价且资审合格",
		"allocations":   allocations,
	}
}

func TestAwardBid(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	body := awardBody("15000",
		map[string]interface{}{"budget_item_id": "budget-concrete", "amount": "14000"},
		map[string]interface{}{"budget_item_id": "budget-general", "amount": "1000"},
	)
	w := testutil.DoRequest(env.router, "POST", "/api/v1/bidding/rfps/rfp-0001/award", body, env.token)
	if w.Code != 201 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	// 定标记录
	var award entity.Award
	if err := env.db.Where("rfp_id = ?", "rfp-0001").First(&award).Error; err != nil {
		t.Fatalf("award not persisted: %v", err)
	}
	if award.BidID != "bid-a" || award.Status != entity.AwardStatusActive {
		t.Errorf("award = %+v", award)
	}
	if award.CommitmentID == nil {
		t.Fatal("award not linked to commitment")
	}

	// 投标状态翻转：中标方awarded，其余submitted一律unsuccessful
	var bidA, bidB entity.Bid
	env.db.First(&bidA, "id = ?", "bid-a")
	env.db.First(&bidB, "id = ?", "bid-b")
	if bidA.Status != entity.BidStatusAwarded {
		t.Errorf("winner status = %s", bidA.Status)
	}
	if bidB.Status != entity.BidStatusUnsuccessful {
		t.Errorf("loser status = %s", bidB.Status)
	}

	// RFP收口
	var rfp entity.RFP
	env.db.First(&rfp, "id = ?", "rfp-0001")
	if rfp.Status != entity.RFPStatusAwarded {
		t.Errorf("rfp status = %s", rfp.Status)
	}

	// 合同承诺与分摊
	var commitment pmentity.Commitment
	if err := env.db.Preload("Allocations").First(&commitment, "id = ?", *award.CommitmentID).Error; err != nil {
		t.Fatalf("commitment not persisted: %v", err)
	}
	if !strings.HasPrefix(commitment.ContractNo, "CT-HQ01-") {
		t.Errorf("contract no = %s", commitment.ContractNo)
	}
	if !commitment.OriginalAmount.Equal(dec(15000)) || !commitment.CurrentAmount.Equal(dec(15000)) {
		t.Errorf("commitment amounts = %s / %s", commitment.OriginalAmount, commitment.CurrentAmount)
	}
	if len(commitment.Allocations) != 2 {
		t.Errorf("allocations = %d, want 2", len(commitment.Allocations))
	}

	// 预算占用与台账
	var concrete pmentity.BudgetItem
	env.db.First(&concrete, "id = ?", "budget-concrete")
	if !concrete.CommittedTotal.Equal(dec(14000)) {
		t.Errorf("committed total = %s, want 14000", concrete.CommittedTotal)
	}
	var debits int64
	env.db.Model(&pmentity.BudgetTransaction{}).
		Where("commitment_id = ? AND type = ?", commitment.ID, pmentity.BudgetTxDebit).
		Count(&debits)
	if debits != 2 {
		t.Errorf("debit transactions = %d, want 2", debits)
	}
}

func TestAwardBidAmountOutOfTolerance(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	// 调整后合计15000，报20000偏离33%，远超默认1%容差
	body := awardBody("20000",
		map[string]interface{}{"budget_item_id": "budget-concrete", "amount": "20000"},
	)
	w := testutil.DoRequest(env.router, "POST", "/api/v1/bidding/rfps/rfp-0001/award", body, env.token)
	if w.Code != 422 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	assertRule(t, testutil.ParseResponse(w), "award_amount_out_of_tolerance")
}

func TestAwardBidAllocationMismatch(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	body := awardBody("15000",
		map[string]interface{}{"budget_item_id": "budget-concrete", "amount": "10000"},
	)
	w := testutil.DoRequest(env.router, "POST", "/api/v1/bidding/rfps/rfp-0001/award", body, env.token)
	if w.Code != 422 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	assertRule(t, testutil.ParseResponse(w), "allocation_sum_mismatch")
}

func TestAwardBidInsufficientBudget(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	// budget-general科目预算2000，分摊3000必须整体回滚
	body := awardBody("15000",
		map[string]interface{}{"budget_item_id": "budget-concrete", "amount": "12000"},
		map[string]interface{}{"budget_item_id": "budget-general", "amount": "3000"},
	)
	w := testutil.DoRequest(env.router, "POST", "/api/v1/bidding/rfps/rfp-0001/award", body, env.token)
	if w.Code != 422 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	assertRule(t, testutil.ParseResponse(w), "insufficient_budget")

	// 回滚校验：另一科目不能留下半截占用
	var concrete pmentity.BudgetItem
	env.db.First(&concrete, "id = ?", "budget-concrete")
	if !concrete.CommittedTotal.IsZero() {
		t.Errorf("committed total leaked: %s", concrete.CommittedTotal)
	}
	var commitments int64
	env.db.Model(&pmentity.Commitment{}).Count(&commitments)
	if commitments != 0 {
		t.Errorf("commitments leaked: %d", commitments)
	}
	var bidA entity.Bid
	env.db.First(&bidA, "id = ?", "bid-a")
	if bidA.Status != entity.BidStatusSubmitted {
		t.Errorf("bid status leaked: %s", bidA.Status)
	}
}

func TestAwardBidRejectedByExistingCommitment(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	// 已有active承诺占掉49000，可用只剩1000，再分摊15000必须拒绝
	existing := pmentity.Commitment{
		ID: "cmt-existing", ContractNo: "CT-HQ01-202601-0001", ProjectID: "proj-0001",
		VendorID: "vendor-b", Type: pmentity.CommitmentTypeContract,
		Status: pmentity.CommitmentStatusActive,
		OriginalAmount: dec(49000), CurrentAmount: dec(49000),
	}
	if err := env.db.Create(&existing).Error; err != nil {
		t.Fatalf("seed commitment: %v", err)
	}
	alloc := pmentity.CommitmentAllocation{
		ID: "alloc-existing", CommitmentID: "cmt-existing",
		BudgetItemID: "budget-concrete", Amount: dec(49000), Percentage: dec(100),
	}
	if err := env.db.Create(&alloc).Error; err != nil {
		t.Fatalf("seed allocation: %v", err)
	}

	body := awardBody("15000",
		map[string]interface{}{"budget_item_id": "budget-concrete", "amount": "15000"},
	)
	w := testutil.DoRequest(env.router, "POST", "/api/v1/bidding/rfps/rfp-0001/award", body, env.token)
	if w.Code != 422 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	assertRule(t, testutil.ParseResponse(w), "insufficient_budget")
}

func TestAwardBidTwiceRejected(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	body := awardBody("15000",
		map[string]interface{}{"budget_item_id": "budget-concrete", "amount": "15000"},
	)
	w := testutil.DoRequest(env.router, "POST", "/api/v1/bidding/rfps/rfp-0001/award", body, env.token)
	if w.Code != 201 {
		t.Fatalf("first award failed: %d %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.router, "POST", "/api/v1/bidding/rfps/rfp-0001/award", body, env.token)
	if w.Code != 422 {
		t.Fatalf("second award status = %d, body = %s", w.Code, w.Body.String())
	}
	assertRule(t, testutil.ParseResponse(w), "rfp_already_awarded")
}

func TestRescindAward(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	body := awardBody("15000",
		map[string]interface{}{"budget_item_id": "budget-concrete", "amount": "15000"},
	)
	w := testutil.DoRequest(env.router, "POST", "/api/v1/bidding/rfps/rfp-0001/award", body, env.token)
	if w.Code != 201 {
		t.Fatalf("award failed: %d %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.router, "POST", "/api/v1/bidding/rfps/rfp-0001/award/rescind",
		map[string]interface{}{"reason": "中标方资审复核不通过"}, env.token)
	if w.Code != 200 {
		t.Fatalf("rescind status = %d, body = %s", w.Code, w.Body.String())
	}

	var award entity.Award
	env.db.Where("rfp_id = ?", "rfp-0001").First(&award)
	if award.Status != entity.AwardStatusRescinded {
		t.Errorf("award status = %s", award.Status)
	}

	// 预算占用释放
	var concrete pmentity.BudgetItem
	env.db.First(&concrete, "id = ?", "budget-concrete")
	if !concrete.CommittedTotal.IsZero() {
		t.Errorf("committed total not released: %s", concrete.CommittedTotal)
	}
	var credits int64
	env.db.Model(&pmentity.BudgetTransaction{}).
		Where("type = ?", pmentity.BudgetTxCredit).Count(&credits)
	if credits != 1 {
		t.Errorf("credit transactions = %d, want 1", credits)
	}

	// 投标与RFP回到可重新定标的状态
	var bidA entity.Bid
	env.db.First(&bidA, "id = ?", "bid-a")
	if bidA.Status != entity.BidStatusSubmitted {
		t.Errorf("winner status = %s", bidA.Status)
	}
	var rfp entity.RFP
	env.db.First(&rfp, "id = ?", "rfp-0001")
	if rfp.Status != entity.RFPStatusPublished {
		t.Errorf("rfp status = %s", rfp.Status)
	}
}

func TestAwardBidUnknownBudgetItem(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	body := awardBody("15000",
		map[string]interface{}{"budget_item_id": "budget-missing", "amount": "15000"},
	)
	w := testutil.DoRequest(env.router, "POST", "/api/v1/bidding/rfps/rfp-0001/award", body, env.token)
	if w.Code != 404 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	// 事务回滚，不留半截状态
	var bidA entity.Bid
	env.db.First(&bidA, "id = ?", "bid-a")
	if bidA.Status != entity.BidStatusSubmitted {
		t.Errorf("bid status leaked: %s", bidA.Status)
	}
	var commitments int64
	env.db.Model(&pmentity.Commitment{}).Count(&commitments)
	if commitments != 0 {
		t.Errorf("commitments leaked: %d", commitments)
	}
}

func TestReAwardAfterRescind(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	body := awardBody("15000",
		map[string]interface{}{"budget_item_id": "budget-concrete", "amount": "15000"},
	)
	w := testutil.DoRequest(env.router, "POST", "/api/v1/bidding/rfps/rfp-0001/award", body, env.token)
	if w.Code != 201 {
		t.Fatalf("first award failed: %d %s", w.Code, w.Body.String())
	}
	w = testutil.DoRequest(env.router, "POST", "/api/v1/bidding/rfps/rfp-0001/award/rescind",
		map[string]interface{}{"reason": "中标方弃标"}, env.token)
	if w.Code != 200 {
		t.Fatalf("rescind failed: %d %s", w.Code, w.Body.String())
	}

	// 撤销后的历史记录不占位，可重新定标
	w = testutil.DoRequest(env.router, "POST", "/api/v1/bidding/rfps/rfp-0001/award", body, env.token)
	if w.Code != 201 {
		t.Fatalf("re-award status = %d, body = %s", w.Code, w.Body.String())
	}

	var active, rescinded int64
	env.db.Model(&entity.Award{}).
		Where("rfp_id = ? AND status = ?", "rfp-0001", entity.AwardStatusActive).Count(&active)
	env.db.Model(&entity.Award{}).
		Where("rfp_id = ? AND status = ?", "rfp-0001", entity.AwardStatusRescinded).Count(&rescinded)
	if active != 1 || rescinded != 1 {
		t.Errorf("awards = %d active / %d rescinded, want 1/1", active, rescinded)
	}

	var concrete pmentity.BudgetItem
	env.db.First(&concrete, "id = ?", "budget-concrete")
	if !concrete.CommittedTotal.Equal(dec(15000)) {
		t.Errorf("committed total = %s, want 15000", concrete.CommittedTotal)
	}
	var rfp entity.RFP
	env.db.First(&rfp, "id = ?", "rfp-0001")
	if rfp.Status != entity.RFPStatusAwarded {
		t.Errorf("rfp status = %s", rfp.Status)
	}
}

func TestAwardZeroAdjustedTotalRequiresExactAmount(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	// 减项把调整后合计抵成0，相对偏差没有意义，金额只能报0
	adj := entity.BidAdjustment{
		ID: "adj-offset", BidID: "bid-a", Type: entity.AdjustmentDeduct,
		Description: "全额冲抵", Amount: dec(15000), Accepted: true,
	}
	if err := env.db.Create(&adj).Error; err != nil {
		t.Fatalf("seed adjustment: %v", err)
	}

	body := awardBody("1000",
		map[string]interface{}{"budget_item_id": "budget-concrete", "amount": "1000"},
	)
	w := testutil.DoRequest(env.router, "POST", "/api/v1/bidding/rfps/rfp-0001/award", body, env.token)
	if w.Code != 422 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	assertRule(t, testutil.ParseResponse(w), "award_amount_out_of_tolerance")
}

func TestAwardRequiresAdminRole(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	viewer := testutil.GenerateTestToken("viewer-001", "Viewer", "viewer@test.com",
		[]string{"viewer"}, nil)
	body := awardBody("15000",
		map[string]interface{}{"budget_item_id": "budget-concrete", "amount": "15000"},
	)
	w := testutil.DoRequest(env.router, "POST", "/api/v1/bidding/rfps/rfp-0001/award", body, viewer)
	if w.Code != 403 {
		t.Errorf("status = %d, want 403", w.Code)
	}
}
