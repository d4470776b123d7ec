// Package pipeline 将校验后的 tick 组织成一次完整的处理流程：
// 账本替换 → 决策推荐 → 对账 → 盈亏计算 → 审计落盘 → 响应。
package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"strategy-api/internal/auditlog"
	"strategy-api/internal/ledger"
	"strategy-api/internal/model"
	"strategy-api/internal/monitor"
	"strategy-api/internal/pnl"
	"strategy-api/internal/strategy"
)

// 推荐为空时写入审计记录的固定错误串，保持既有日志格式。
const errNoRecommendations = "No recommendations received from AI"

// Recommender 为决策推荐提供方（AI 或规则引擎）。
// 返回空列表表示"无推荐"，不是错误。
type Recommender interface {
	Recommend(ctx context.Context, payload model.TickPayload, day string) ([]model.Decision, error)
}

// Reconciler 为外部权威对账方。
// 返回 (nil, nil) 表示对方未给出仓位快照，本地仓位保持不变。
type Reconciler interface {
	MakeTrade(ctx context.Context, tradeID string, decisions []model.Decision) ([]model.Position, error)
}

// Summary 为一次 tick 处理的响应摘要。
type Summary struct {
	UnrealizedPnL  float64 `json:"unrealized_pnl"`
	TotalPositions int     `json:"total_positions"`
	Day            string  `json:"day"`
}

// TickResult 为一次 tick 处理的完整结果。
type TickResult struct {
	Summary   Summary          `json:"summary"`
	Decisions []model.Decision `json:"decisions"`
}

// StreamResult 为连续行情流单笔处理的结果。
type StreamResult struct {
	Action        model.Action `json:"action"`
	PreviousPrice float64      `json:"previous_price"`
	FirstSight    bool         `json:"first_sight"`
}

// Params 聚合管线依赖。
type Params struct {
	Ledger      *ledger.Ledger
	Recommender Recommender
	Engine      string
	Reconciler  Reconciler
	TradeLog    *auditlog.TradeLog
	Direction   *strategy.Direction
	Monitor     *monitor.Service
}

// Pipeline 按固定线性顺序处理每个 tick。
// 校验失败（在服务层）终止流程；校验之后的任何外部失败都不中断流程，
// 仅记录在审计与响应载荷中。
type Pipeline struct {
	ledger      *ledger.Ledger
	recommender Recommender
	engine      string
	reconciler  Reconciler
	tradeLog    *auditlog.TradeLog
	direction   *strategy.Direction
	monitor     *monitor.Service
	logger      *zap.Logger
	now         func() time.Time
}

// New 创建管线。
func New(p Params, logger *zap.Logger) (*Pipeline, error) {
	if p.Ledger == nil {
		return nil, errors.New("pipeline: ledger 不能为空")
	}
	if p.Recommender == nil {
		return nil, errors.New("pipeline: recommender 不能为空")
	}
	if p.Reconciler == nil {
		return nil, errors.New("pipeline: reconciler 不能为空")
	}
	if p.TradeLog == nil {
		return nil, errors.New("pipeline: trade log 不能为空")
	}
	if p.Direction == nil {
		return nil, errors.New("pipeline: direction 引擎不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		ledger:      p.Ledger,
		recommender: p.Recommender,
		engine:      p.Engine,
		reconciler:  p.Reconciler,
		tradeLog:    p.TradeLog,
		direction:   p.Direction,
		monitor:     p.Monitor,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// ProcessTick 处理一次完整的 tick。
// 入站仓位先整体替换账本；对账成功时采纳权威快照，失败时保留对账前仓位；
// 盈亏始终基于对账前仓位与入站报价计算；无论成败都追加一条审计记录。
func (p *Pipeline) ProcessTick(ctx context.Context, tradeID string, payload model.TickPayload) (TickResult, error) {
	now := p.now()
	day := payload.Day(now)

	if p.monitor != nil {
		p.monitor.RecordTickReceived(ctx, tradeID, day, payload)
	}

	if err := p.ledger.Replace(payload.Positions); err != nil {
		return TickResult{}, err
	}

	decisions, err := p.recommender.Recommend(ctx, payload, day)
	if err != nil {
		// 推荐失败降级为零决策，管线继续。
		p.logger.Warn("推荐引擎调用失败，按无推荐处理",
			zap.String("trade_id", tradeID),
			zap.Error(err),
		)
		if p.monitor != nil {
			p.monitor.RecordError(ctx, "推荐引擎调用失败", err, map[string]interface{}{"trade_id": tradeID})
		}
		decisions = nil
	}
	if p.monitor != nil {
		p.monitor.RecordRecommendation(ctx, tradeID, p.engine, decisions)
	}

	recon := model.ReconciliationResult{}
	positionsAfter := payload.Positions

	if len(decisions) == 0 {
		recon.Error = errNoRecommendations
	} else {
		remote, err := p.reconciler.MakeTrade(ctx, tradeID, decisions)
		switch {
		case err != nil:
			// 对账失败不重试也不上抛：保留对账前仓位，错误串进审计。
			recon.Error = err.Error()
			p.logger.Warn("对账失败，保留本地仓位",
				zap.String("trade_id", tradeID),
				zap.Error(err),
			)
		case remote != nil:
			recon.Positions = remote
			positionsAfter = remote
			if err := p.ledger.Replace(remote); err != nil {
				return TickResult{}, err
			}
		}
	}
	if p.monitor != nil {
		p.monitor.RecordReconciliation(ctx, tradeID, recon)
	}

	// 盈亏基于对账前的入站仓位计算。
	total, evaluated := pnl.Compute(payload.Positions, payload.MarketSummary)

	if decisions == nil {
		decisions = []model.Decision{}
	}

	entry := model.LogEntry{
		TradeID:         tradeID,
		Timestamp:       now,
		Day:             day,
		Decisions:       decisions,
		PositionsBefore: payload.Positions,
		PositionsAfter:  positionsAfter,
		UnrealizedPnL:   total,
		Reconciliation:  recon,
	}
	if err := p.tradeLog.Append(entry); err != nil {
		return TickResult{}, err
	}

	p.logger.Info("tick 处理完成",
		zap.String("trade_id", tradeID),
		zap.String("day", day),
		zap.Int("decisions", len(decisions)),
		zap.Int("positions_evaluated", evaluated),
		zap.Float64("unrealized_pnl", total),
		zap.Bool("reconciled", !recon.Failed()),
	)

	return TickResult{
		Summary: Summary{
			UnrealizedPnL:  total,
			TotalPositions: len(payload.Positions),
			Day:            day,
		},
		Decisions: decisions,
	}, nil
}

// ProcessStream 处理连续行情流中的单笔报价：
// 按 ticker 增量更新账本，再交给方向策略决定是否写流水。
func (p *Pipeline) ProcessStream(ctx context.Context, tick model.StreamTick) (StreamResult, error) {
	prevPrice, seen, err := p.ledger.Upsert(tick)
	if err != nil {
		return StreamResult{}, err
	}

	action, err := p.direction.Apply(tick, prevPrice, seen, p.now())
	if err != nil {
		return StreamResult{}, err
	}

	if p.monitor != nil {
		p.monitor.RecordStreamTick(ctx, tick, action, prevPrice, !seen)
	}

	p.logger.Info("行情流处理完成",
		zap.String("ticker", tick.Ticker),
		zap.String("action", string(action)),
		zap.Float64("price", tick.Price),
		zap.Float64("previous_price", prevPrice),
	)

	return StreamResult{
		Action:        action,
		PreviousPrice: prevPrice,
		FirstSight:    !seen,
	}, nil
}
