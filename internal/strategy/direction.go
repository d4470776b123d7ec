package strategy

import (
	"time"

	"go.uber.org/zap"

	"strategy-api/internal/auditlog"
	"strategy-api/internal/model"
)

// 交易流水中的固定备注，属于对外数据格式的一部分。
const (
	noteSell = "Price increased - sell signal"
	noteStay = "Price decreased - stay"
)

// Direction 实现连续行情流的单笔价差方向策略：
// 价格上涨记 SELL，下跌或持平记 STAY（流水中记为 TICK_UPDATE）。
// 持平视同下跌是有意的简化，不是缺陷。
type Direction struct {
	transactions *auditlog.TransactionLog
	logger       *zap.Logger
}

// NewDirection 创建方向策略引擎。
func NewDirection(transactions *auditlog.TransactionLog, logger *zap.Logger) *Direction {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Direction{
		transactions: transactions,
		logger:       logger,
	}
}

// Apply 比较本次价格与前价并写入流水。
// seen=false 表示该 ticker 首次出现：返回 INITIAL 且不写任何流水。
func (d *Direction) Apply(tick model.StreamTick, prevPrice float64, seen bool, now time.Time) (model.Action, error) {
	if !seen {
		d.logger.Debug("首次观察到 ticker，静默吸收",
			zap.String("ticker", tick.Ticker),
			zap.Float64("price", tick.Price),
		)
		return model.ActionInitial, nil
	}

	if tick.Price > prevPrice {
		quantity := tick.Quantity
		tx := model.Transaction{
			Date:     now.Format(model.DayFormat),
			Ticker:   tick.Ticker,
			Action:   model.ActionSell,
			Price:    model.Round2(tick.Price),
			Note:     noteSell,
			Quantity: &quantity,
		}
		if err := d.transactions.Append(tx); err != nil {
			return model.ActionSell, err
		}
		return model.ActionSell, nil
	}

	// 下跌与持平走同一分支，TICK_UPDATE 记录不携带 quantity。
	tx := model.Transaction{
		Date:   now.Format(model.DayFormat),
		Ticker: tick.Ticker,
		Action: model.ActionTickUpdate,
		Price:  model.Round2(tick.Price),
		Note:   noteStay,
	}
	if err := d.transactions.Append(tx); err != nil {
		return model.ActionStay, err
	}
	return model.ActionStay, nil
}
