// Package auditlog 维护系统仅有的两份持久化决策历史：
// 每次 tick 处理的审计记录（TradeLog）与连续行情流的交易流水（TransactionLog）。
// 两者都只追加，记录一经写入不再修改或删除。
package auditlog

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"strategy-api/internal/model"
	"strategy-api/internal/store"
)

// TradeLog 记录每次 tick 的输入、决策与对账结果。
type TradeLog struct {
	mu     sync.Mutex
	file   *store.JSONFile
	logger *zap.Logger
}

// NewTradeLog 创建审计日志。
func NewTradeLog(file *store.JSONFile, logger *zap.Logger) *TradeLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TradeLog{
		file:   file,
		logger: logger,
	}
}

// Append 追加一条审计记录并落盘。无论对账成败，每次 tick 恰好追加一条。
func (l *TradeLog) Append(entry model.LogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := []model.LogEntry{}
	_ = l.file.Load(&entries)

	entries = append(entries, entry)
	if err := l.file.Save(entries); err != nil {
		return fmt.Errorf("auditlog: 追加审计记录失败: %w", err)
	}

	l.logger.Debug("审计记录已追加",
		zap.String("trade_id", entry.TradeID),
		zap.Int("decisions", len(entry.Decisions)),
	)
	return nil
}

// Entries 返回全部审计记录的副本。
func (l *TradeLog) Entries() []model.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := []model.LogEntry{}
	_ = l.file.Load(&entries)
	return entries
}

// Recent 返回最近 n 条审计记录，时间升序。
func (l *TradeLog) Recent(n int) []model.LogEntry {
	entries := l.Entries()
	if n <= 0 || len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}

// TransactionLog 记录连续行情流策略产生的交易流水。
type TransactionLog struct {
	mu     sync.Mutex
	file   *store.JSONFile
	logger *zap.Logger
}

// NewTransactionLog 创建交易流水日志。
func NewTransactionLog(file *store.JSONFile, logger *zap.Logger) *TransactionLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionLog{
		file:   file,
		logger: logger,
	}
}

// Append 追加一条交易流水并落盘。
func (l *TransactionLog) Append(tx model.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	transactions := []model.Transaction{}
	_ = l.file.Load(&transactions)

	transactions = append(transactions, tx)
	if err := l.file.Save(transactions); err != nil {
		return fmt.Errorf("auditlog: 追加交易流水失败: %w", err)
	}

	l.logger.Debug("交易流水已追加",
		zap.String("ticker", tx.Ticker),
		zap.String("action", string(tx.Action)),
	)
	return nil
}

// Transactions 返回全部交易流水的副本。
func (l *TransactionLog) Transactions() []model.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	transactions := []model.Transaction{}
	_ = l.file.Load(&transactions)
	return transactions
}
