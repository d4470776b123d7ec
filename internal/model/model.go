package model

import (
	"math"
	"time"
)

// DayFormat 为系统内交易日字符串的统一格式。
const DayFormat = "2006-01-02"

// Action 表示一次决策或流水记录的动作类型。
type Action string

const (
	ActionBuy        Action = "BUY"
	ActionSell       Action = "SELL"
	ActionStay       Action = "STAY"
	ActionHold       Action = "HOLD"
	ActionTickUpdate Action = "TICK_UPDATE"
	ActionInitial    Action = "INITIAL"
)

// Position 表示账本中单个股票的持仓。
// 同一 ticker 在账本中至多出现一次，unrealized_pnl 随价格更新重算。
type Position struct {
	Ticker        string  `json:"ticker"`
	Quantity      float64 `json:"quantity"`
	PurchasePrice float64 `json:"purchase_price"`
	CurrentPrice  float64 `json:"current_price"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// MarketSummaryItem 为单个 ticker 的实时报价，仅随请求传入，不落盘。
type MarketSummaryItem struct {
	Ticker       string  `json:"ticker"`
	CurrentPrice float64 `json:"current_price"`
}

// HistoryPoint 为单个 ticker 某交易日的历史价格点。
type HistoryPoint struct {
	Ticker string  `json:"ticker"`
	Price  float64 `json:"price"`
	Day    string  `json:"day"`
}

// TickPayload 为一次 tick 的完整入站数据。
// 顶层字段名保持对外协议的原始大小写。
type TickPayload struct {
	Positions     []Position          `json:"Positions"`
	MarketSummary []MarketSummaryItem `json:"Market_Summary"`
	MarketHistory []HistoryPoint      `json:"market_history"`
}

// Day 返回最近一个历史点的交易日，历史为空时返回 now 对应的日期。
func (p TickPayload) Day(now time.Time) string {
	if n := len(p.MarketHistory); n > 0 {
		if day := p.MarketHistory[n-1].Day; day != "" {
			return day
		}
	}
	return now.Format(DayFormat)
}

// Decision 表示针对单个 ticker 的交易决策。
// quantity 对非交易型动作无意义，推荐结果中固定填 0。
type Decision struct {
	Action   Action `json:"action"`
	Ticker   string `json:"ticker"`
	Quantity int    `json:"quantity"`
}

// StreamTick 为连续行情流中的单笔报价。
type StreamTick struct {
	Ticker        string  `json:"ticker"`
	Price         float64 `json:"price"`
	Quantity      float64 `json:"quantity"`
	PurchasePrice float64 `json:"purchase_price"`
}

// ReconciliationResult 记录对账结果：成功时携带权威仓位快照，失败时携带错误串。
type ReconciliationResult struct {
	Positions []Position `json:"Positions,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Failed 返回对账是否失败。
func (r ReconciliationResult) Failed() bool {
	return r.Error != ""
}

// LogEntry 为每次 tick 处理后追加的不可变审计记录。
type LogEntry struct {
	TradeID         string               `json:"trade_id"`
	Timestamp       time.Time            `json:"timestamp"`
	Day             string               `json:"day"`
	Decisions       []Decision           `json:"decisions"`
	PositionsBefore []Position           `json:"positions_before"`
	PositionsAfter  []Position           `json:"positions_after"`
	UnrealizedPnL   float64              `json:"unrealized_pnl"`
	Reconciliation  ReconciliationResult `json:"reconciliation"`
}

// Transaction 为连续行情流策略写入的交易流水。
// TICK_UPDATE 记录不携带 quantity 字段。
type Transaction struct {
	Date     string   `json:"date"`
	Ticker   string   `json:"ticker"`
	Action   Action   `json:"action"`
	Price    float64  `json:"price"`
	Note     string   `json:"note"`
	Quantity *float64 `json:"quantity,omitempty"`
}

// Round2 将数值四舍五入到两位小数，用于落盘的单仓位盈亏与流水价格。
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
