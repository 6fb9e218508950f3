package handler

import (
	"strings"
	"testing"
	"time"

	"github.com/bitfantasy/sitepm/internal/bidding/entity"
	"github.com/bitfantasy/sitepm/internal/pm/testutil"
)

func TestGetComparison(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	w := testutil.DoRequest(env.router, "GET", "/api/v1/bidding/rfps/rfp-0001/comparison", nil, env.token)
	if w.Code != 200 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	data, _ := resp["data"].(map[string]interface{})
	if data == nil {
		t.Fatalf("no data in response: %v", resp)
	}

	vendors, _ := data["vendors"].([]interface{})
	if len(vendors) != 2 {
		t.Fatalf("vendors = %d, want 2", len(vendors))
	}
	first, _ := vendors[0].(map[string]interface{})
	if first["vendor_name"] != "华建一局" {
		t.Errorf("vendor name not resolved: %v", first)
	}

	rankings, _ := data["rankings"].([]interface{})
	if len(rankings) != 2 {
		t.Fatalf("rankings = %d, want 2", len(rankings))
	}
	top, _ := rankings[0].(map[string]interface{})
	if top["vendor_id"] != "vendor-a" || top["total"] != "15000" {
		t.Errorf("top rank = %v", top)
	}

	lowest, _ := data["lowest_bidder"].(map[string]interface{})
	if lowest == nil || lowest["bid_id"] != "bid-a" {
		t.Errorf("lowest bidder = %v", lowest)
	}
}

func TestGetComparisonBeforeBidOpening(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	future := time.Now().Add(24 * time.Hour)
	env.db.Model(&entity.RFP{}).Where("id = ?", "rfp-0001").Update("bid_opening_at", future)

	w := testutil.DoRequest(env.router, "GET", "/api/v1/bidding/rfps/rfp-0001/comparison", nil, env.token)
	if w.Code != 409 {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestGetComparisonNoSubmittedBids(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	env.db.Model(&entity.Bid{}).Where("rfp_id = ?", "rfp-0001").
		Update("status", entity.BidStatusWithdrawn)

	w := testutil.DoRequest(env.router, "GET", "/api/v1/bidding/rfps/rfp-0001/comparison", nil, env.token)
	if w.Code != 409 {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestGetComparisonRFPNotFound(t *testing.T) {
	env := setupBiddingEnv(t)

	w := testutil.DoRequest(env.router, "GET", "/api/v1/bidding/rfps/no-such-rfp/comparison", nil, env.token)
	if w.Code != 404 {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestComparisonRequiresAdminRole(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	viewer := testutil.GenerateTestToken("viewer-001", "Viewer", "viewer@test.com",
		[]string{"viewer"}, nil)
	w := testutil.DoRequest(env.router, "GET", "/api/v1/bidding/rfps/rfp-0001/comparison", nil, viewer)
	if w.Code != 403 {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestExportComparisonCSV(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	w := testutil.DoRequest(env.router, "GET", "/api/v1/bidding/rfps/rfp-0001/comparison/export?format=csv", nil, env.token)
	if w.Code != 200 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "RFP-HQ01-001_comparison.csv") {
		t.Errorf("content-disposition = %q", cd)
	}
	body := w.Body.String()
	for _, want := range []string{"清单编码", "华建一局", "小计", "调整后合计"} {
		if !strings.Contains(body, want) {
			t.Errorf("csv missing %q", want)
		}
	}
}

func TestExportComparisonUnknownFormat(t *testing.T) {
	env := setupBiddingEnv(t)
	env.seedComparisonFixture(t)

	w := testutil.DoRequest(env.router, "GET", "/api/v1/bidding/rfps/rfp-0001/comparison/export?format=pdf", nil, env.token)
	if w.Code != 400 {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
