package uom

import "github.com/shopspring/decimal"

// 计量单位换算表。单位按可换算类别分组（长度/面积/体积/重量/液体/工时/计数），
// 每个类别定义各单位相对基准单位的比率，换算系数 = factor[from] / factor[to]。
// 新增单位只需在表中登记，不需要新增代码分支。

// Class 可换算类别
type Class string

const (
	ClassLength Class = "length"
	ClassArea   Class = "area"
	ClassVolume Class = "volume"
	ClassWeight Class = "weight"
	ClassLiquid Class = "liquid"
	ClassTime   Class = "time"
	ClassCount  Class = "count"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// classTable 类别 → 单位 → 相对基准单位的比率
// 长度基准 LF（延英尺），面积基准 SF，体积基准 CY，重量基准 LB，
// 液体基准 GAL，工时基准 HR，计数基准 EA。
var classTable = map[Class]map[string]decimal.Decimal{
	ClassLength: {
		"LF": d("1"),
		"FT": d("1"),
		"IN": d("1").Div(d("12")),
		"YD": d("3"),
	},
	ClassArea: {
		"SF": d("1"),
		"SY": d("9"),
		"SQ": d("100"), // 屋面平方（100平方英尺）
	},
	ClassVolume: {
		"CY": d("1"),
		"CF": d("1").Div(d("27")),
	},
	ClassWeight: {
		"LB":  d("1"),
		"CWT": d("100"),
		"TON": d("2000"),
	},
	ClassLiquid: {
		"GAL": d("1"),
		"QT":  d("0.25"),
		"PT":  d("0.125"),
	},
	ClassTime: {
		"HR":  d("1"),
		"DAY": d("8"),
		"WK":  d("40"),
	},
	ClassCount: {
		"EA":  d("1"),
		"DOZ": d("12"),
		"LS":  d("1"), // 总价包干项
	},
}

// unitClass 单位 → 类别反查表，init时从classTable构建
var unitClass = map[string]Class{}

func init() {
	for class, units := range classTable {
		for unit := range units {
			unitClass[unit] = class
		}
	}
}

// Known 单位是否在换算表中登记
func Known(unit string) bool {
	_, ok := unitClass[unit]
	return ok
}

// ClassOf 返回单位所属类别
func ClassOf(unit string) (Class, bool) {
	c, ok := unitClass[unit]
	return c, ok
}

// Convert 返回 from → to 的换算系数。
// 两个单位必须属于同一类别，否则返回 (zero, false)——调用方必须把 false
// 视为"无法归一"，绝不能当作系数1处理。本层不做任何舍入。
func Convert(from, to string) (decimal.Decimal, bool) {
	fromClass, ok := unitClass[from]
	if !ok {
		return decimal.Zero, false
	}
	toClass, ok := unitClass[to]
	if !ok {
		return decimal.Zero, false
	}
	if fromClass != toClass {
		return decimal.Zero, false
	}
	factors := classTable[fromClass]
	return factors[from].Div(factors[to]), true
}

// Units 返回全部已登记单位（测试与RFP行项校验用）
func Units() []string {
	units := make([]string, 0, len(unitClass))
	for u := range unitClass {
		units = append(units, u)
	}
	return units
}
