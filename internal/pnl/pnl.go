// Package pnl 提供未实现盈亏的纯函数计算。
package pnl

import "strategy-api/internal/model"

// Compute 结合持仓与实时报价计算未实现盈亏总额。
// 无对应报价的仓位被跳过，既不计为 0 也不报错，且不计入 evaluated。
// 汇总结果不做四舍五入。
func Compute(positions []model.Position, summary []model.MarketSummaryItem) (total float64, evaluated int) {
	currentPrices := make(map[string]float64, len(summary))
	for _, item := range summary {
		currentPrices[item.Ticker] = item.CurrentPrice
	}

	for _, position := range positions {
		currentPrice, ok := currentPrices[position.Ticker]
		if !ok {
			continue
		}
		total += (currentPrice - position.PurchasePrice) * position.Quantity
		evaluated++
	}

	return total, evaluated
}
