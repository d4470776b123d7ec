package validate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"strategy-api/internal/model"
)

// Error 为入站数据校验失败的结构化描述。
// Field 指向出错的字段路径（含数组下标），Reason 为可读原因。
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("Invalid payload: %s %s", e.Field, e.Reason)
}

func newError(field, reason string) *Error {
	return &Error{Field: field, Reason: reason}
}

// 入站 tick 的三个顶层字段，按校验顺序排列。
var requiredKeys = []string{"Positions", "Market_Summary", "market_history"}

// TickPayload 对原始请求体做单次完整校验，返回类型化载荷或首个错误。
// 校验顺序与短路行为固定：顶层字段 → Positions → Market_Summary → market_history。
// 数值字段接受 JSON 数字或可解析为数字的字符串。
// market_history 的 day 必须为 ISO `YYYY-MM-DD` 字符串。
func TickPayload(data []byte) (model.TickPayload, error) {
	var payload model.TickPayload

	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return payload, newError("payload", "must be a JSON object")
	}

	for _, key := range requiredKeys {
		if _, ok := root[key]; !ok {
			return payload, newError(key, "is a missing required field")
		}
	}

	positions, err := parsePositions(root["Positions"])
	if err != nil {
		return payload, err
	}

	summary, err := parseMarketSummary(root["Market_Summary"])
	if err != nil {
		return payload, err
	}

	history, err := parseMarketHistory(root["market_history"])
	if err != nil {
		return payload, err
	}

	payload.Positions = positions
	payload.MarketSummary = summary
	payload.MarketHistory = history
	return payload, nil
}

// StreamTick 校验连续行情流中的单笔报价。
func StreamTick(data []byte) (model.StreamTick, error) {
	var tick model.StreamTick

	obj, ok := toObject(data)
	if !ok {
		return tick, newError("tick", "must be a JSON object")
	}

	ticker, ok := toString(obj["ticker"])
	if !ok || strings.TrimSpace(ticker) == "" {
		return tick, newError("tick.ticker", "must be a non-empty string")
	}
	price, ok := toFloat(obj["price"])
	if !ok {
		return tick, newError("tick.price", "must be numeric")
	}
	quantity, ok := toFloat(obj["quantity"])
	if !ok {
		return tick, newError("tick.quantity", "must be numeric")
	}
	purchase, ok := toFloat(obj["purchase_price"])
	if !ok {
		return tick, newError("tick.purchase_price", "must be numeric")
	}

	tick.Ticker = ticker
	tick.Price = price
	tick.Quantity = quantity
	tick.PurchasePrice = purchase
	return tick, nil
}

func parsePositions(raw json.RawMessage) ([]model.Position, error) {
	items, ok := toArray(raw)
	if !ok {
		return nil, newError("Positions", "must be a list")
	}
	if len(items) == 0 {
		return nil, newError("Positions", "must be a non-empty list")
	}

	positions := make([]model.Position, 0, len(items))
	for i, item := range items {
		obj, ok := toObject(item)
		if !ok {
			return nil, newError(indexed("Positions", i), "must be an object")
		}

		ticker, ok := toString(obj["ticker"])
		if !ok || strings.TrimSpace(ticker) == "" {
			return nil, newError(indexed("Positions", i)+".ticker", "must be a non-empty string")
		}
		quantity, ok := toFloat(obj["quantity"])
		if !ok {
			return nil, newError(indexed("Positions", i)+".quantity", "must be numeric")
		}
		purchase, ok := toFloat(obj["purchase_price"])
		if !ok {
			return nil, newError(indexed("Positions", i)+".purchase_price", "must be numeric")
		}

		// current_price 与 unrealized_pnl 为可选字段，原样透传进账本。
		current, _ := toFloat(obj["current_price"])
		pnl, _ := toFloat(obj["unrealized_pnl"])

		positions = append(positions, model.Position{
			Ticker:        ticker,
			Quantity:      quantity,
			PurchasePrice: purchase,
			CurrentPrice:  current,
			UnrealizedPnL: pnl,
		})
	}

	return positions, nil
}

func parseMarketSummary(raw json.RawMessage) ([]model.MarketSummaryItem, error) {
	items, ok := toArray(raw)
	if !ok {
		return nil, newError("Market_Summary", "must be a list")
	}
	if len(items) == 0 {
		return nil, newError("Market_Summary", "must be a non-empty list")
	}

	summary := make([]model.MarketSummaryItem, 0, len(items))
	for i, item := range items {
		obj, ok := toObject(item)
		if !ok {
			return nil, newError(indexed("Market_Summary", i), "must be an object")
		}

		ticker, ok := toString(obj["ticker"])
		if !ok {
			return nil, newError(indexed("Market_Summary", i)+".ticker", "must be a string")
		}
		price, ok := toFloat(obj["current_price"])
		if !ok {
			return nil, newError(indexed("Market_Summary", i)+".current_price", "must be numeric")
		}

		summary = append(summary, model.MarketSummaryItem{
			Ticker:       ticker,
			CurrentPrice: price,
		})
	}

	return summary, nil
}

func parseMarketHistory(raw json.RawMessage) ([]model.HistoryPoint, error) {
	items, ok := toArray(raw)
	if !ok {
		return nil, newError("market_history", "must be a list")
	}

	// market_history 允许为空。
	history := make([]model.HistoryPoint, 0, len(items))
	for i, item := range items {
		obj, ok := toObject(item)
		if !ok {
			return nil, newError(indexed("market_history", i), "must be an object")
		}

		ticker, ok := toString(obj["ticker"])
		if !ok || strings.TrimSpace(ticker) == "" {
			return nil, newError(indexed("market_history", i)+".ticker", "must be a non-empty string")
		}
		price, ok := toFloat(obj["price"])
		if !ok {
			return nil, newError(indexed("market_history", i)+".price", "must be numeric")
		}
		day, ok := toString(obj["day"])
		if !ok || !isISODate(day) {
			return nil, newError(indexed("market_history", i)+".day", "must be a 'YYYY-MM-DD' string")
		}

		history = append(history, model.HistoryPoint{
			Ticker: ticker,
			Price:  price,
			Day:    day,
		})
	}

	return history, nil
}

func indexed(field string, i int) string {
	return fmt.Sprintf("%s[%d]", field, i)
}

func toObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	if raw == nil {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func toArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	if raw == nil {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	// JSON null 会解出 nil 切片，与缺失列表同样视为非法。
	if items == nil && strings.TrimSpace(string(raw)) != "[]" {
		return nil, false
	}
	return items, true
}

func toString(raw json.RawMessage) (string, bool) {
	if raw == nil {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// toFloat 接受 JSON 数字或数字字符串，对齐原有宽松的数值协议。
func toFloat(raw json.RawMessage) (float64, bool) {
	if raw == nil {
		return 0, false
	}
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return num, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, parseErr := strconv.ParseFloat(strings.TrimSpace(s), 64); parseErr == nil {
			return f, true
		}
	}
	return 0, false
}

func isISODate(s string) bool {
	_, err := time.Parse(model.DayFormat, s)
	return err == nil
}
