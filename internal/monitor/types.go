package monitor

import (
	"time"

	"strategy-api/internal/model"
)

// EventType 表示监控事件类型。
type EventType string

const (
	EventTickReceived   EventType = "tick_received"
	EventRecommendation EventType = "recommendation"
	EventReconciliation EventType = "reconciliation"
	EventStreamTick     EventType = "stream_tick"
	EventError          EventType = "error"
)

// Event 封装通用监控事件。
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TickReceivedPayload 记录一次通过校验的 tick。
type TickReceivedPayload struct {
	TradeID   string `json:"trade_id"`
	Day       string `json:"day"`
	Positions int    `json:"positions"`
	History   int    `json:"history_points"`
}

// RecommendationPayload 记录推荐引擎的输出。
type RecommendationPayload struct {
	TradeID   string           `json:"trade_id"`
	Engine    string           `json:"engine"`
	Decisions []model.Decision `json:"decisions"`
}

// ReconciliationPayload 记录对账结果。
type ReconciliationPayload struct {
	TradeID string                     `json:"trade_id"`
	Result  model.ReconciliationResult `json:"result"`
}

// StreamTickPayload 记录连续行情流的单笔处理结果。
type StreamTickPayload struct {
	Tick          model.StreamTick `json:"tick"`
	Action        model.Action     `json:"action"`
	PreviousPrice float64          `json:"previous_price"`
	FirstSight    bool             `json:"first_sight"`
}

// ErrorPayload 记录异常。
type ErrorPayload struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}
