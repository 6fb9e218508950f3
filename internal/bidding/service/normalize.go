package service

import (
	"fmt"

	"github.com/bitfantasy/sitepm/internal/bidding/entity"
	"github.com/bitfantasy/sitepm/internal/bidding/uom"
	"github.com/shopspring/decimal"
)

// NormalizedLine 归一化后的比价行：同一清单行项下各家投标折算到
// 招标单位后的可比数据。
type NormalizedLine struct {
	RFPLineItemID  string          `json:"rfp_line_item_id"`
	SpecCode       string          `json:"spec_code"`
	BidItemID      string          `json:"bid_item_id,omitempty"`
	Missing        bool            `json:"missing"`         // 投标未包含该行项（范围缺口）
	HasDiscrepancy bool            `json:"has_discrepancy"` // 单位无法换算等需人工复核的差异
	Unit           string          `json:"unit"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	Note           string          `json:"note,omitempty"`
}

// normalizeLine 把一条投标行项归一到招标清单行项的单位口径。
//   - 无对应投标行项：产出零价缺口行，该行不计入小计但要进入范围缺口报告，
//     绝不能当作0元报价。
//   - 单位一致：单价/总价原样通过。
//   - 单位可换算：归一单价 = 投标单价 × 换算系数，归一总价按招标需求量重算
//     （不用投标方自报数量），保证各家同口径可比。
//   - 单位无法换算：保留投标原始总价并标记差异，交人工复核。
func normalizeLine(lineItem entity.RFPLineItem, bidItem *entity.BidItem) NormalizedLine {
	if bidItem == nil {
		return NormalizedLine{
			RFPLineItemID: lineItem.ID,
			SpecCode:      lineItem.SpecCode,
			Missing:       true,
			Unit:          lineItem.Unit,
			UnitPrice:     decimal.Zero,
			TotalPrice:    decimal.Zero,
			Note:          "item not included in bid",
		}
	}

	bidUnit := bidItem.Unit
	if bidUnit == "" {
		bidUnit = lineItem.Unit
	}

	if bidUnit == lineItem.Unit {
		return NormalizedLine{
			RFPLineItemID: lineItem.ID,
			SpecCode:      lineItem.SpecCode,
			BidItemID:     bidItem.ID,
			Unit:          lineItem.Unit,
			UnitPrice:     bidItem.UnitPrice,
			TotalPrice:    bidItem.TotalPrice,
		}
	}

	factor, ok := uom.Convert(bidUnit, lineItem.Unit)
	if !ok {
		return NormalizedLine{
			RFPLineItemID:  lineItem.ID,
			SpecCode:       lineItem.SpecCode,
			BidItemID:      bidItem.ID,
			HasDiscrepancy: true,
			Unit:           bidUnit,
			UnitPrice:      bidItem.UnitPrice,
			TotalPrice:     bidItem.TotalPrice,
			Note:           fmt.Sprintf("unit mismatch: bid in %s, rfp requires %s, no conversion", bidUnit, lineItem.Unit),
		}
	}

	unitPrice := bidItem.UnitPrice.Mul(factor)
	return NormalizedLine{
		RFPLineItemID: lineItem.ID,
		SpecCode:      lineItem.SpecCode,
		BidItemID:     bidItem.ID,
		Unit:          lineItem.Unit,
		UnitPrice:     unitPrice,
		TotalPrice:    unitPrice.Mul(lineItem.Quantity),
		Note:          fmt.Sprintf("converted %s to %s (factor %s)", bidUnit, lineItem.Unit, factor.String()),
	}
}
