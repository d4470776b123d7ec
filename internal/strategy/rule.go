package strategy

import (
	"context"
	"math"
	"sort"

	talib "github.com/markcheno/go-talib"
	"go.uber.org/zap"

	"strategy-api/internal/config"
	"strategy-api/internal/model"
)

const (
	defaultShortWindow = 3
	defaultLongWindow  = 5
)

// Rule 实现确定性的均线交叉决策。
// 仅输出信号，不做仓位大小计算，也不带迟滞。
type Rule struct {
	shortWindow int
	longWindow  int
}

// NewRule 根据配置创建均线交叉引擎，窗口非法时回落到默认的 3/5。
func NewRule(cfg config.StrategyConfig) *Rule {
	short := cfg.ShortWindow
	long := cfg.LongWindow
	if short <= 0 {
		short = defaultShortWindow
	}
	if long < short {
		long = defaultLongWindow
	}
	return &Rule{
		shortWindow: short,
		longWindow:  long,
	}
}

// DecideFromHistory 根据单个 ticker 的全部历史点给出决策。
// 历史按 day 升序排序；不足 shortWindow 个点时保守返回 HOLD。
// 长均线在点数不足 longWindow 时退化为全量均线。
func (r *Rule) DecideFromHistory(points []model.HistoryPoint) model.Action {
	prices := sortedPrices(points)
	if len(prices) < r.shortWindow {
		return model.ActionHold
	}

	short := sma(prices, r.shortWindow)

	longWindow := r.longWindow
	if len(prices) < longWindow {
		longWindow = len(prices)
	}
	long := sma(prices, longWindow)

	if math.IsNaN(short) || math.IsNaN(long) {
		return model.ActionHold
	}

	switch {
	case short > long:
		return model.ActionBuy
	case short < long:
		return model.ActionSell
	default:
		return model.ActionHold
	}
}

// RuleRecommender 将均线交叉引擎适配为整个 tick 载荷的推荐器，
// 对每个持仓 ticker 给出一条信号型决策（quantity 固定为 0）。
type RuleRecommender struct {
	rule   *Rule
	logger *zap.Logger
}

// NewRuleRecommender 创建基于规则引擎的推荐器。
func NewRuleRecommender(rule *Rule, logger *zap.Logger) *RuleRecommender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleRecommender{
		rule:   rule,
		logger: logger,
	}
}

// Recommend 对载荷中的每个持仓 ticker 运行均线交叉规则。
func (r *RuleRecommender) Recommend(ctx context.Context, payload model.TickPayload, day string) ([]model.Decision, error) {
	historyByTicker := make(map[string][]model.HistoryPoint, len(payload.Positions))
	for _, point := range payload.MarketHistory {
		historyByTicker[point.Ticker] = append(historyByTicker[point.Ticker], point)
	}

	decisions := make([]model.Decision, 0, len(payload.Positions))
	for _, position := range payload.Positions {
		action := r.rule.DecideFromHistory(historyByTicker[position.Ticker])
		decisions = append(decisions, model.Decision{
			Action:   action,
			Ticker:   position.Ticker,
			Quantity: 0,
		})

		r.logger.Debug("规则引擎决策",
			zap.String("ticker", position.Ticker),
			zap.String("action", string(action)),
			zap.Int("history_points", len(historyByTicker[position.Ticker])),
		)
	}

	return decisions, nil
}

func sortedPrices(points []model.HistoryPoint) []float64 {
	sorted := make([]model.HistoryPoint, len(points))
	copy(sorted, points)
	// ISO 日期串按字典序即为时间序。
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Day < sorted[j].Day
	})

	prices := make([]float64, len(sorted))
	for i, point := range sorted {
		prices[i] = point.Price
	}
	return prices
}

// sma 返回末端窗口的简单移动平均。调用方保证 len(prices) >= window。
func sma(prices []float64, window int) float64 {
	if window <= 0 || len(prices) < window {
		return math.NaN()
	}
	values := talib.Sma(prices, window)
	return values[len(values)-1]
}
