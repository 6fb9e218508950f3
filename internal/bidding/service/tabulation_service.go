package service

import (
	"context"
	"time"

	"github.com/bitfantasy/sitepm/internal/bidding/entity"
	"github.com/bitfantasy/sitepm/internal/bidding/repository"
	pmrepo "github.com/bitfantasy/sitepm/internal/pm/repository"
	"github.com/shopspring/decimal"
)

// TabulationService 比价表服务。只读、无副作用，每次调用都从存储重读，
// 不在进程内缓存任何投标或比价数据。
type TabulationService struct {
	rfpRepo    *repository.RFPRepository
	bidRepo    *repository.BidRepository
	vendorRepo *pmrepo.VendorRepository
	timeout    time.Duration
}

func NewTabulationService(rfpRepo *repository.RFPRepository, bidRepo *repository.BidRepository, vendorRepo *pmrepo.VendorRepository, timeout time.Duration) *TabulationService {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &TabulationService{
		rfpRepo:    rfpRepo,
		bidRepo:    bidRepo,
		vendorRepo: vendorRepo,
		timeout:    timeout,
	}
}

// VendorColumn 比价表中的一列（一家投标供应商）
type VendorColumn struct {
	VendorID    string     `json:"vendor_id"`
	VendorName  string     `json:"vendor_name"`
	BidID       string     `json:"bid_id"`
	SubmittedAt *time.Time `json:"submitted_at"`
}

// VendorTotals 单家供应商的小计/调整/调整后合计
type VendorTotals struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	AdjustmentTotal decimal.Decimal `json:"adjustment_total"`
	AdjustedTotal   decimal.Decimal `json:"adjusted_total"`
}

// RankEntry 排名条目，rank=1为最低价
type RankEntry struct {
	VendorID string          `json:"vendor_id"`
	BidID    string          `json:"bid_id"`
	Rank     int             `json:"rank"`
	Total    decimal.Decimal `json:"total"`
}

// ScopeGap 范围缺口：某供应商投标未覆盖的清单行项
type ScopeGap struct {
	VendorID  string   `json:"vendor_id"`
	SpecCodes []string `json:"spec_codes"`
}

// Comparison 完整比价表。矩阵是稀疏的嵌套映射
// （供应商ID → 清单行项ID → 归一化行），缺标的格子不存在。
type Comparison struct {
	RFP           *entity.RFP                          `json:"rfp"`
	LineItems     []entity.RFPLineItem                 `json:"line_items"`
	Vendors       []VendorColumn                       `json:"vendors"`
	Matrix        map[string]map[string]NormalizedLine `json:"matrix"`
	Adjustments   map[string][]entity.BidAdjustment    `json:"adjustments"`
	Totals        map[string]VendorTotals              `json:"totals"`
	Rankings      []RankEntry                          `json:"rankings"`
	ScopeGaps     []ScopeGap                           `json:"scope_gaps"`
	LowestBidder  *RankEntry                           `json:"lowest_bidder,omitempty"`
	Discrepancies int                                  `json:"discrepancies"`
}

// BuildComparison 构建某RFP的完整比价表。
// 门禁：RFP不存在 / 开标时间未到 / 没有已提交投标均直接报错，不产出半成品。
func (s *TabulationService) BuildComparison(ctx context.Context, rfpID string) (*Comparison, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rfp, err := s.rfpRepo.FindByID(ctx, rfpID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrRFPNotFound
		}
		return nil, classifyTimeout(ctx, err)
	}

	if rfp.BidOpeningAt == nil || rfp.BidOpeningAt.After(time.Now()) {
		return nil, ErrBidOpeningNotReached
	}

	bids, err := s.bidRepo.FindSubmittedByRFP(ctx, rfpID)
	if err != nil {
		return nil, classifyTimeout(ctx, err)
	}
	if len(bids) == 0 {
		return nil, ErrNoSubmittedBids
	}

	comparison := buildComparison(rfp, bids)

	// 补充供应商名称（名称只用于展示，缺失不影响比价）
	vendorIDs := make([]string, 0, len(comparison.Vendors))
	for _, v := range comparison.Vendors {
		vendorIDs = append(vendorIDs, v.VendorID)
	}
	vendors, err := s.vendorRepo.FindByIDs(ctx, vendorIDs)
	if err != nil {
		return nil, classifyTimeout(ctx, err)
	}
	names := make(map[string]string, len(vendors))
	for _, v := range vendors {
		names[v.ID] = v.Name
	}
	for i := range comparison.Vendors {
		comparison.Vendors[i].VendorName = names[comparison.Vendors[i].VendorID]
	}

	return comparison, nil
}

// buildComparison 纯计算部分：对每个(供应商, 清单行项)调用归一化，
// 累计小计、挂接已接受调整项、算出调整后合计并排名。
// bids必须已按确定顺序排好（提交时间、供应商ID）。
func buildComparison(rfp *entity.RFP, bids []entity.Bid) *Comparison {
	comparison := &Comparison{
		RFP:         rfp,
		LineItems:   rfp.LineItems,
		Matrix:      make(map[string]map[string]NormalizedLine, len(bids)),
		Adjustments: make(map[string][]entity.BidAdjustment, len(bids)),
		Totals:      make(map[string]VendorTotals, len(bids)),
	}

	for _, bid := range bids {
		comparison.Vendors = append(comparison.Vendors, VendorColumn{
			VendorID:    bid.VendorID,
			BidID:       bid.ID,
			SubmittedAt: bid.SubmittedAt,
		})

		itemsByLine := make(map[string]*entity.BidItem, len(bid.Items))
		for i := range bid.Items {
			itemsByLine[bid.Items[i].RFPLineItemID] = &bid.Items[i]
		}

		row := make(map[string]NormalizedLine, len(rfp.LineItems))
		subtotal := decimal.Zero
		var gapCodes []string

		for _, lineItem := range rfp.LineItems {
			line := normalizeLine(lineItem, itemsByLine[lineItem.ID])
			row[lineItem.ID] = line
			if line.Missing {
				// 缺口行对小计贡献恰好为0，单独进入缺口报告
				gapCodes = append(gapCodes, lineItem.SpecCode)
				continue
			}
			if line.HasDiscrepancy {
				comparison.Discrepancies++
			}
			subtotal = subtotal.Add(line.TotalPrice)
		}
		comparison.Matrix[bid.VendorID] = row

		adjTotal := decimal.Zero
		for _, adj := range bid.Adjustments {
			adjTotal = adjTotal.Add(adj.SignedContribution())
		}
		comparison.Adjustments[bid.VendorID] = bid.Adjustments
		comparison.Totals[bid.VendorID] = VendorTotals{
			Subtotal:        subtotal,
			AdjustmentTotal: adjTotal,
			AdjustedTotal:   subtotal.Add(adjTotal),
		}

		if len(gapCodes) > 0 {
			comparison.ScopeGaps = append(comparison.ScopeGaps, ScopeGap{
				VendorID:  bid.VendorID,
				SpecCodes: gapCodes,
			})
		}
	}

	comparison.Rankings = Rank(comparison)
	if len(comparison.Rankings) > 0 {
		lowest := comparison.Rankings[0]
		comparison.LowestBidder = &lowest
	}

	return comparison
}

// Rank 按调整后合计升序排名（rank 1 = 最低价）。
// 同价时按输入顺序稳定排序——Vendors本身已按提交时间、供应商ID排定，
// 所以并列时先提交者在前。真实的并列裁决政策待产品确认。
func Rank(comparison *Comparison) []RankEntry {
	entries := make([]RankEntry, 0, len(comparison.Vendors))
	for _, v := range comparison.Vendors {
		entries = append(entries, RankEntry{
			VendorID: v.VendorID,
			BidID:    v.BidID,
			Total:    comparison.Totals[v.VendorID].AdjustedTotal,
		})
	}

	// 插入排序保证稳定性，数据量是一个RFP下的投标数，极小
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].Total.LessThan(entries[j-1].Total); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// LowestResponsible 在排除不合格供应商后返回新的第一名；
// 全部被排除时返回nil。
func LowestResponsible(comparison *Comparison, excludedVendorIDs map[string]bool) *RankEntry {
	for _, entry := range comparison.Rankings {
		if excludedVendorIDs[entry.VendorID] {
			continue
		}
		result := entry
		return &result
	}
	return nil
}
