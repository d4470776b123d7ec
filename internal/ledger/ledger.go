package ledger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"strategy-api/internal/model"
	"strategy-api/internal/store"
)

// Ledger 维护 ticker → Position 的本地持仓账本，每次变更后整体落盘。
//
// 账本存在两种并存的更新语义，分别服务两条调用路径：
//   - Replace：整体替换，接收权威快照（tick 入站与对账成功后），
//     未出现在快照中的 ticker 随之消失；
//   - Upsert：按 ticker 增量更新，连续行情流使用，ticker 一经出现即长期保留。
type Ledger struct {
	mu     sync.Mutex
	file   *store.JSONFile
	logger *zap.Logger
}

// New 创建账本。
func New(file *store.JSONFile, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		file:   file,
		logger: logger,
	}
}

// Positions 返回当前账本内容的副本。
// 底层文件缺失或损坏时返回空账本，而非报错。
func (l *Ledger) Positions() []model.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// Replace 用给定仓位列表整体覆盖账本并落盘，列表内容原样保存。
func (l *Ledger) Replace(positions []model.Position) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if positions == nil {
		positions = []model.Position{}
	}
	if err := l.file.Save(positions); err != nil {
		return fmt.Errorf("ledger: 保存仓位失败: %w", err)
	}

	l.logger.Debug("账本已整体替换", zap.Int("positions", len(positions)))
	return nil
}

// Upsert 按 ticker 更新或插入仓位并落盘。
// 已存在时返回更新前的 current_price 与 seen=true，并重算 unrealized_pnl；
// 首次出现时插入新仓位（unrealized_pnl=0），返回本次价格与 seen=false。
func (l *Ledger) Upsert(tick model.StreamTick) (prevPrice float64, seen bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	positions := l.load()

	for i := range positions {
		if positions[i].Ticker != tick.Ticker {
			continue
		}

		prevPrice = positions[i].CurrentPrice
		positions[i].CurrentPrice = tick.Price
		positions[i].UnrealizedPnL = model.Round2(
			(tick.Price - positions[i].PurchasePrice) * positions[i].Quantity,
		)

		if err := l.file.Save(positions); err != nil {
			return 0, false, fmt.Errorf("ledger: 保存仓位失败: %w", err)
		}
		return prevPrice, true, nil
	}

	positions = append(positions, model.Position{
		Ticker:        tick.Ticker,
		Quantity:      tick.Quantity,
		PurchasePrice: tick.PurchasePrice,
		CurrentPrice:  tick.Price,
		UnrealizedPnL: 0,
	})

	if err := l.file.Save(positions); err != nil {
		return 0, false, fmt.Errorf("ledger: 保存仓位失败: %w", err)
	}
	return tick.Price, false, nil
}

func (l *Ledger) load() []model.Position {
	positions := []model.Position{}
	// Load 对缺失与损坏的文件静默降级为空账本。
	_ = l.file.Load(&positions)
	return positions
}
