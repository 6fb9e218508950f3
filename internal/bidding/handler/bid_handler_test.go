package handler

import (
	"testing"
	"time"

	"github.com/bitfantasy/sitepm/internal/bidding/entity"
	"github.com/bitfantasy/sitepm/internal/pm/testutil"
)

func TestGetBidRedactedBeforeOpening(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	// 开标时间改到未来，非管理员只能看到脱敏投标
	future := time.Now().Add(24 * time.Hour)
	env.db.Model(&entity.RFP{}).Where("id = ?", "rfp-0001").Update("bid_opening_at", future)

	viewer := testutil.GenerateTestToken("viewer-001", "Viewer", "viewer@test.com",
		[]string{"viewer"}, nil)
	w := testutil.DoRequest(env.router, "GET", "/api/v1/bidding/rfps/rfp-0001/bids/bid-a", nil, viewer)
	if w.Code != 200 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	data, _ := resp["data"].(map[string]interface{})
	items, _ := data["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	item, _ := items[0].(map[string]interface{})
	if item["unit_price"] != "0" || item["total_price"] != "0" {
		t.Errorf("amounts not redacted: unit=%v total=%v", item["unit_price"], item["total_price"])
	}
	// 状态和存在性照常可见
	if data["status"] != entity.BidStatusSubmitted {
		t.Errorf("status hidden: %v", data["status"])
	}
}

func TestGetBidVisibleToAdminBeforeOpening(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	future := time.Now().Add(24 * time.Hour)
	env.db.Model(&entity.RFP{}).Where("id = ?", "rfp-0001").Update("bid_opening_at", future)

	w := testutil.DoRequest(env.router, "GET", "/api/v1/bidding/rfps/rfp-0001/bids/bid-a", nil, env.token)
	if w.Code != 200 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	data, _ := resp["data"].(map[string]interface{})
	items, _ := data["items"].([]interface{})
	item, _ := items[0].(map[string]interface{})
	if item["unit_price"] != "150" {
		t.Errorf("admin should see real amounts, got %v", item["unit_price"])
	}
}

func TestGetBidVisibleAfterOpening(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	viewer := testutil.GenerateTestToken("viewer-001", "Viewer", "viewer@test.com",
		[]string{"viewer"}, nil)
	w := testutil.DoRequest(env.router, "GET", "/api/v1/bidding/rfps/rfp-0001/bids/bid-a", nil, viewer)
	if w.Code != 200 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	data, _ := resp["data"].(map[string]interface{})
	items, _ := data["items"].([]interface{})
	item, _ := items[0].(map[string]interface{})
	if item["unit_price"] != "150" {
		t.Errorf("amounts should be open after bid opening, got %v", item["unit_price"])
	}
}

func TestCreateBidOnUnpublishedRFP(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	env.db.Model(&entity.RFP{}).Where("id = ?", "rfp-0001").Update("status", entity.RFPStatusDraft)

	w := testutil.DoRequest(env.router, "POST", "/api/v1/bidding/rfps/rfp-0001/bids",
		map[string]interface{}{"vendor_id": "vendor-a"}, env.token)
	if w.Code != 422 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	assertRule(t, testutil.ParseResponse(w), "rfp_not_published")
}

func TestCreateBidDuplicateVendor(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	// vendor-a在rfp-0001下已有投标
	w := testutil.DoRequest(env.router, "POST", "/api/v1/bidding/rfps/rfp-0001/bids",
		map[string]interface{}{"vendor_id": "vendor-a"}, env.token)
	if w.Code != 422 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	assertRule(t, testutil.ParseResponse(w), "bid_already_exists")
}

func TestSubmitBidAfterDueDate(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	past := time.Now().Add(-1 * time.Hour)
	env.db.Model(&entity.RFP{}).Where("id = ?", "rfp-0001").Update("due_at", past)
	env.db.Model(&entity.Bid{}).Where("id = ?", "bid-a").
		Updates(map[string]interface{}{"status": entity.BidStatusDraft, "submitted_at": nil})

	w := testutil.DoRequest(env.router, "POST", "/api/v1/bidding/rfps/rfp-0001/bids/bid-a/submit", nil, env.token)
	if w.Code != 422 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestWithdrawBidAfterOpeningRejected(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	// 开标后不允许撤标
	w := testutil.DoRequest(env.router, "POST", "/api/v1/bidding/rfps/rfp-0001/bids/bid-a/withdraw", nil, env.token)
	if w.Code != 422 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var bid entity.Bid
	env.db.First(&bid, "id = ?", "bid-a")
	if bid.Status != entity.BidStatusSubmitted {
		t.Errorf("bid status = %s, want submitted", bid.Status)
	}
}

func TestUpsertBidItemUnitConversionGuard(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	env.db.Model(&entity.Bid{}).Where("id = ?", "bid-a").
		Updates(map[string]interface{}{"status": entity.BidStatusDraft, "submitted_at": nil})

	// EA换不到CY，录入即拒绝
	w := testutil.DoRequest(env.router, "PUT", "/api/v1/bidding/rfps/rfp-0001/bids/bid-a/items",
		map[string]interface{}{
			"rfp_line_item_id": "li-concrete",
			"unit_price":       "100",
			"quantity":         "100",
			"unit":             "EA",
		}, env.token)
	if w.Code != 422 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	assertRule(t, testutil.ParseResponse(w), "unknown_unit")
}
