package service

import (
	"testing"
	"time"

	"github.com/bitfantasy/sitepm/internal/bidding/entity"
	"github.com/shopspring/decimal"
)

func testRFP() *entity.RFP {
	return &entity.RFP{
		ID:      "rfp-1",
		RFPCode: "RFP-HQ-001",
		LineItems: []entity.RFPLineItem{
			lineItem("li-concrete", "03-3000", "CY", 100),
			lineItem("li-floor", "09-6500", "SF", 900),
			lineItem("li-conduit", "26-0500", "LF", 300),
		},
	}
}

func bidItemFor(lineItemID string, unitPrice, qty int64, unit string) entity.BidItem {
	up := decimal.NewFromInt(unitPrice)
	q := decimal.NewFromInt(qty)
	return entity.BidItem{
		RFPLineItemID: lineItemID,
		UnitPrice:     up,
		Quantity:      q,
		Unit:          unit,
		TotalPrice:    up.Mul(q),
	}
}

func submittedBid(id, vendorID string, submitted time.Time, items ...entity.BidItem) entity.Bid {
	return entity.Bid{
		ID:          id,
		VendorID:    vendorID,
		RFPID:       "rfp-1",
		Status:      entity.BidStatusSubmitted,
		SubmittedAt: &submitted,
		Items:       items,
	}
}

func TestBuildComparisonTotalsAndGaps(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// 甲：全覆盖，地板按SY报价（可换算）
	bidA := submittedBid("bid-a", "vendor-a", base,
		bidItemFor("li-concrete", 150, 100, "CY"), // 15000
		bidItemFor("li-floor", 9, 100, "SY"),      // 归一后 1元/SF × 900 = 900
		bidItemFor("li-conduit", 10, 300, "LF"),   // 3000
	)
	// 乙：漏了导管行，属于范围缺口
	bidB := submittedBid("bid-b", "vendor-b", base.Add(time.Hour),
		bidItemFor("li-concrete", 140, 100, "CY"), // 14000
		bidItemFor("li-floor", 2, 900, "SF"),      // 1800
	)

	c := buildComparison(testRFP(), []entity.Bid{bidA, bidB})

	if got := c.Totals["vendor-a"].Subtotal; !got.Equal(decimal.NewFromInt(18900)) {
		t.Errorf("vendor-a subtotal = %s, want 18900", got)
	}
	// 缺口行贡献0，不按0元计价混入
	if got := c.Totals["vendor-b"].Subtotal; !got.Equal(decimal.NewFromInt(15800)) {
		t.Errorf("vendor-b subtotal = %s, want 15800", got)
	}

	if len(c.ScopeGaps) != 1 {
		t.Fatalf("scope gaps = %d, want 1", len(c.ScopeGaps))
	}
	gap := c.ScopeGaps[0]
	if gap.VendorID != "vendor-b" || len(gap.SpecCodes) != 1 || gap.SpecCodes[0] != "26-0500" {
		t.Errorf("unexpected gap: %+v", gap)
	}

	// 矩阵里缺口格子存在且标记为Missing
	if line, ok := c.Matrix["vendor-b"]["li-conduit"]; !ok || !line.Missing {
		t.Errorf("vendor-b conduit cell should be a missing line, got %+v", line)
	}
	if c.Discrepancies != 0 {
		t.Errorf("discrepancies = %d, want 0", c.Discrepancies)
	}
}

func TestBuildComparisonAdjustments(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	bid := submittedBid("bid-a", "vendor-a", base,
		bidItemFor("li-concrete", 100, 100, "CY"), // 10000
		bidItemFor("li-floor", 1, 900, "SF"),      // 900
		bidItemFor("li-conduit", 10, 300, "LF"),   // 3000
	)
	bid.Adjustments = []entity.BidAdjustment{
		{Type: entity.AdjustmentAdd, Amount: decimal.NewFromInt(500), Accepted: true},
		{Type: entity.AdjustmentDeduct, Amount: decimal.NewFromInt(200), Accepted: true},
		{Type: entity.AdjustmentAlternate, Amount: decimal.NewFromInt(9999), Accepted: true},
		{Type: entity.AdjustmentAllowance, Amount: decimal.NewFromInt(1000), Accepted: false},
	}

	c := buildComparison(testRFP(), []entity.Bid{bid})

	totals := c.Totals["vendor-a"]
	if !totals.Subtotal.Equal(decimal.NewFromInt(13900)) {
		t.Errorf("subtotal = %s, want 13900", totals.Subtotal)
	}
	// 只有已接受的add/deduct计入：+500 −200；alternate和未接受项为0
	if !totals.AdjustmentTotal.Equal(decimal.NewFromInt(300)) {
		t.Errorf("adjustment total = %s, want 300", totals.AdjustmentTotal)
	}
	if !totals.AdjustedTotal.Equal(decimal.NewFromInt(14200)) {
		t.Errorf("adjusted total = %s, want 14200", totals.AdjustedTotal)
	}
}

func TestBuildComparisonCountsDiscrepancies(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	bid := submittedBid("bid-a", "vendor-a", base,
		bidItemFor("li-concrete", 150, 100, "CY"),
		bidItemFor("li-floor", 2, 900, "SF"),
		bidItemFor("li-conduit", 500, 1, "EA"), // EA换不到LF
	)

	c := buildComparison(testRFP(), []entity.Bid{bid})

	if c.Discrepancies != 1 {
		t.Errorf("discrepancies = %d, want 1", c.Discrepancies)
	}
	line := c.Matrix["vendor-a"]["li-conduit"]
	if !line.HasDiscrepancy {
		t.Error("conduit cell should carry discrepancy flag")
	}
	// 无法换算的行按原始总价参与小计
	want := decimal.NewFromInt(15000 + 1800 + 500)
	if got := c.Totals["vendor-a"].Subtotal; !got.Equal(want) {
		t.Errorf("subtotal = %s, want %s", got, want)
	}
}

func TestRankOrdersByAdjustedTotal(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	bidA := submittedBid("bid-a", "vendor-a", base,
		bidItemFor("li-concrete", 180, 100, "CY"))
	bidB := submittedBid("bid-b", "vendor-b", base.Add(time.Hour),
		bidItemFor("li-concrete", 150, 100, "CY"))
	bidC := submittedBid("bid-c", "vendor-c", base.Add(2*time.Hour),
		bidItemFor("li-concrete", 160, 100, "CY"))

	c := buildComparison(testRFP(), []entity.Bid{bidA, bidB, bidC})

	wantOrder := []string{"vendor-b", "vendor-c", "vendor-a"}
	if len(c.Rankings) != 3 {
		t.Fatalf("rankings = %d, want 3", len(c.Rankings))
	}
	for i, entry := range c.Rankings {
		if entry.VendorID != wantOrder[i] {
			t.Errorf("rank %d = %s, want %s", i+1, entry.VendorID, wantOrder[i])
		}
		if entry.Rank != i+1 {
			t.Errorf("rank field = %d, want %d", entry.Rank, i+1)
		}
	}
	if c.LowestBidder == nil || c.LowestBidder.VendorID != "vendor-b" {
		t.Errorf("lowest bidder = %+v, want vendor-b", c.LowestBidder)
	}
}

func TestRankTieGoesToEarlierSubmitter(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	// 两家同价，bids入参已按提交时间排好，先提交者应保持在前
	bidEarly := submittedBid("bid-early", "vendor-early", base,
		bidItemFor("li-concrete", 150, 100, "CY"))
	bidLate := submittedBid("bid-late", "vendor-late", base.Add(time.Minute),
		bidItemFor("li-concrete", 150, 100, "CY"))

	c := buildComparison(testRFP(), []entity.Bid{bidEarly, bidLate})

	if c.Rankings[0].VendorID != "vendor-early" {
		t.Errorf("tie-break winner = %s, want vendor-early", c.Rankings[0].VendorID)
	}
	if c.Rankings[1].VendorID != "vendor-late" {
		t.Errorf("second = %s, want vendor-late", c.Rankings[1].VendorID)
	}
}

func TestBuildComparisonMixedUnitsAndGapScenario(t *testing.T) {
	// 甲全覆盖报3000；乙管线按FT报价（FT↔LF系数1）且漏报混凝土行。
	// 乙的小计300看似更低，但缺口报告必须把漏项暴露出来，
	// 评标人补plug前的裸排名不可作为定标依据。
	rfp := &entity.RFP{
		ID:      "rfp-1",
		RFPCode: "RFP-MIX-001",
		LineItems: []entity.RFPLineItem{
			lineItem("li-pipe", "22-1000", "LF", 100),
			lineItem("li-concrete", "03-3000", "CY", 10),
		},
	}
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	bid1 := submittedBid("bid-1", "vendor-1", base,
		bidItemFor("li-pipe", 10, 100, "LF"),     // 1000
		bidItemFor("li-concrete", 200, 10, "CY")) // 2000
	bid2 := submittedBid("bid-2", "vendor-2", base.Add(time.Hour),
		bidItemFor("li-pipe", 3, 300, "FT")) // 归一后 3元/LF × 100 = 300

	c := buildComparison(rfp, []entity.Bid{bid1, bid2})

	if got := c.Totals["vendor-1"].AdjustedTotal; !got.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("vendor-1 total = %s, want 3000", got)
	}
	if got := c.Totals["vendor-2"].AdjustedTotal; !got.Equal(decimal.NewFromInt(300)) {
		t.Errorf("vendor-2 total = %s, want 300", got)
	}

	pipe := c.Matrix["vendor-2"]["li-pipe"]
	if pipe.HasDiscrepancy || !pipe.UnitPrice.Equal(decimal.NewFromInt(3)) {
		t.Errorf("FT bid should normalize cleanly: %+v", pipe)
	}

	if len(c.ScopeGaps) != 1 || c.ScopeGaps[0].VendorID != "vendor-2" ||
		c.ScopeGaps[0].SpecCodes[0] != "03-3000" {
		t.Errorf("scope gaps = %+v", c.ScopeGaps)
	}

	// 缺口方裸排名第一——正是缺口报告要防的误导
	if c.Rankings[0].VendorID != "vendor-2" {
		t.Errorf("raw rank 1 = %s", c.Rankings[0].VendorID)
	}
}

func TestLowestResponsibleSkipsExcluded(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	bidA := submittedBid("bid-a", "vendor-a", base,
		bidItemFor("li-concrete", 150, 100, "CY"))
	bidB := submittedBid("bid-b", "vendor-b", base.Add(time.Hour),
		bidItemFor("li-concrete", 160, 100, "CY"))

	c := buildComparison(testRFP(), []entity.Bid{bidA, bidB})

	winner := LowestResponsible(c, map[string]bool{"vendor-a": true})
	if winner == nil || winner.VendorID != "vendor-b" {
		t.Errorf("responsible winner = %+v, want vendor-b", winner)
	}

	if got := LowestResponsible(c, map[string]bool{"vendor-a": true, "vendor-b": true}); got != nil {
		t.Errorf("all excluded should yield nil, got %+v", got)
	}
}
