package handler

import (
	"fmt"
	"testing"
	"time"

	"github.com/bitfantasy/sitepm/internal/bidding/entity"
	pmentity "github.com/bitfantasy/sitepm/internal/pm/entity"
	"github.com/bitfantasy/sitepm/internal/pm/testutil"
)

func TestRFPLifecycle(t *testing.T) {
	env := setupBiddingEnv(t)
	project := pmentity.Project{ID: "proj-0001", Code: "HQ01", Name: "总部园区一期",
		Status: pmentity.ProjectStatusActive}
	if err := env.db.Create(&project).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}

	// 创建草稿
	w := testutil.DoRequest(env.router, "POST", "/api/v1/bidding/rfps", map[string]interface{}{
		"project_id": "proj-0001",
		"title":      "机电安装分包招标",
	}, env.token)
	if w.Code != 201 {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data, _ := resp["data"].(map[string]interface{})
	rfpID, _ := data["id"].(string)
	if rfpID == "" {
		t.Fatalf("no rfp id in response: %v", resp)
	}

	// 空清单不能发布
	w = testutil.DoRequest(env.router, "POST", fmt.Sprintf("/api/v1/bidding/rfps/%s/publish", rfpID), nil, env.token)
	if w.Code != 422 {
		t.Fatalf("publish without items: %d %s", w.Code, w.Body.String())
	}

	// 未知单位拒绝
	w = testutil.DoRequest(env.router, "POST", fmt.Sprintf("/api/v1/bidding/rfps/%s/line-items", rfpID),
		map[string]interface{}{"spec_code": "26-0500", "quantity": "300", "unit": "XYZ"}, env.token)
	if w.Code != 422 {
		t.Fatalf("unknown unit: %d %s", w.Code, w.Body.String())
	}
	assertRule(t, testutil.ParseResponse(w), "unknown_unit")

	w = testutil.DoRequest(env.router, "POST", fmt.Sprintf("/api/v1/bidding/rfps/%s/line-items", rfpID),
		map[string]interface{}{"spec_code": "26-0500", "description": "电气导管", "quantity": "300", "unit": "LF"}, env.token)
	if w.Code != 200 {
		t.Fatalf("add line item: %d %s", w.Code, w.Body.String())
	}

	// 没有开标时间仍然不能发布
	w = testutil.DoRequest(env.router, "POST", fmt.Sprintf("/api/v1/bidding/rfps/%s/publish", rfpID), nil, env.token)
	if w.Code != 422 {
		t.Fatalf("publish without opening time: %d %s", w.Code, w.Body.String())
	}

	opening := time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339)
	w = testutil.DoRequest(env.router, "PUT", fmt.Sprintf("/api/v1/bidding/rfps/%s", rfpID),
		map[string]interface{}{"bid_opening_at": opening}, env.token)
	if w.Code != 200 {
		t.Fatalf("update opening time: %d %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.router, "POST", fmt.Sprintf("/api/v1/bidding/rfps/%s/publish", rfpID), nil, env.token)
	if w.Code != 200 {
		t.Fatalf("publish: %d %s", w.Code, w.Body.String())
	}

	var rfp entity.RFP
	env.db.First(&rfp, "id = ?", rfpID)
	if rfp.Status != entity.RFPStatusPublished {
		t.Errorf("rfp status = %s", rfp.Status)
	}

	// 发布后清单冻结
	w = testutil.DoRequest(env.router, "POST", fmt.Sprintf("/api/v1/bidding/rfps/%s/line-items", rfpID),
		map[string]interface{}{"spec_code": "26-0600", "quantity": "100", "unit": "EA"}, env.token)
	if w.Code != 422 {
		t.Fatalf("line item after publish: %d %s", w.Code, w.Body.String())
	}
	assertRule(t, testutil.ParseResponse(w), "rfp_not_draft")
}

func TestCreateRFPUnknownProject(t *testing.T) {
	env := setupBiddingEnv(t)

	w := testutil.DoRequest(env.router, "POST", "/api/v1/bidding/rfps", map[string]interface{}{
		"project_id": "no-such-project",
		"title":      "无主招标单",
	}, env.token)
	if w.Code != 404 {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
